package box

import (
	"fmt"
	"io"

	"github.com/yapingcat/gomedia/go-codec"
)

// aligned(8) class SampleDependencyTypeBox
// extends FullBox(‘sdtp’, version = 0, 0) {
// 	for (i=0; i < sample_count; i++){
// 		unsigned int(2) reserved = 0;
// 		unsigned int(2) sample_depends_on;
// 		unsigned int(2) sample_is_depended_on;
// 		unsigned int(2) sample_has_redundancy;
// 	}
// }

type SdtpEntry struct {
	Reserved      uint8
	DependsOn     uint8
	IsDependedOn  uint8
	HasRedundancy uint8
}

func (e SdtpEntry) validate() error {
	if e.Reserved > 3 || e.DependsOn > 3 || e.IsDependedOn > 3 || e.HasRedundancy > 3 {
		return fmt.Errorf("%w: sdtp entry %+v has a field above 3", ErrFieldOverflow, e)
	}
	return nil
}

func (e SdtpEntry) put(bsw *codec.BitStreamWriter) {
	bsw.PutUint8(e.Reserved, 2)
	bsw.PutUint8(e.DependsOn, 2)
	bsw.PutUint8(e.IsDependedOn, 2)
	bsw.PutUint8(e.HasRedundancy, 2)
}

// Pack returns the one byte wire form of e.
func (e SdtpEntry) Pack() (byte, error) {
	if err := e.validate(); err != nil {
		return 0, err
	}
	bsw := codec.NewBitStreamWriter(1)
	e.put(bsw)
	return bsw.Bits()[0], nil
}

func getSdtpEntry(bs *codec.BitStream) SdtpEntry {
	return SdtpEntry{
		Reserved:      bs.Uint8(2),
		DependsOn:     bs.Uint8(2),
		IsDependedOn:  bs.Uint8(2),
		HasRedundancy: bs.Uint8(2),
	}
}

func UnpackSdtpEntry(b byte) SdtpEntry {
	return getSdtpEntry(codec.NewBitStream([]byte{b}))
}

// SampleDependencyTypeBox does not store its entry count. Decode keeps the
// payload aside and Resolve splits it into Entries once the count is known
// from the rest of the tree. Bytes past the resolved count stay in Trailing.
type SampleDependencyTypeBox struct {
	FullBox
	Entries  []SdtpEntry
	Trailing []byte
	Rule     CountRule
	resolved bool
}

func NewSampleDependencyTypeBox(rule CountRule, entries ...SdtpEntry) *SampleDependencyTypeBox {
	return &SampleDependencyTypeBox{
		FullBox:  NewFullBox(TypeSDTP, 0),
		Entries:  entries,
		Rule:     rule,
		resolved: true,
	}
}

func (sdtp *SampleDependencyTypeBox) EntryCount() int {
	return len(sdtp.Entries)
}

// Resolved is false between Decode and Resolve.
func (sdtp *SampleDependencyTypeBox) Resolved() bool {
	return sdtp.resolved
}

func (sdtp *SampleDependencyTypeBox) ContentSize() uint64 {
	return 4 + uint64(len(sdtp.Entries)) + uint64(len(sdtp.Trailing))
}

func (sdtp *SampleDependencyTypeBox) Decode(r io.Reader, size uint64) (err error) {
	if err = sdtp.ReadVersionFlags(r); err != nil {
		return
	}
	if size < 4 {
		return fmt.Errorf("%w: sdtp content is %d bytes", ErrTruncatedBox, size)
	}
	sdtp.Entries = nil
	sdtp.Trailing = make([]byte, size-4)
	if _, err = io.ReadFull(r, sdtp.Trailing); err != nil {
		return eofAsTruncated(err)
	}
	sdtp.resolved = false
	return
}

// Resolve obtains the sample count through res and unpacks that many entries.
// Calling it again after a successful resolution does nothing.
func (sdtp *SampleDependencyTypeBox) Resolve(res *Resolver) (diags []Diagnostic, err error) {
	if sdtp.resolved {
		return nil, nil
	}
	var count uint32
	if count, diags, err = res.ResolveCount(sdtp, sdtp.Rule); err != nil {
		return
	}
	if uint64(count) > uint64(len(sdtp.Trailing)) {
		return diags, fmt.Errorf("%w: sdtp needs %d entries, payload has %d", ErrTruncatedBox, count, len(sdtp.Trailing))
	}
	bs := codec.NewBitStream(sdtp.Trailing[:count])
	sdtp.Entries = make([]SdtpEntry, count)
	for i := range sdtp.Entries {
		sdtp.Entries[i] = getSdtpEntry(bs)
	}
	sdtp.Trailing = append([]byte(nil), sdtp.Trailing[count:]...)
	sdtp.resolved = true
	return
}

func (sdtp *SampleDependencyTypeBox) Validate() error {
	for _, e := range sdtp.Entries {
		if err := e.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (sdtp *SampleDependencyTypeBox) Encode(w io.Writer) (err error) {
	if err = sdtp.Validate(); err != nil {
		return
	}
	if err = sdtp.WriteVersionFlags(w); err != nil {
		return
	}
	if len(sdtp.Entries) > 0 {
		bsw := codec.NewBitStreamWriter(len(sdtp.Entries))
		for _, e := range sdtp.Entries {
			e.put(bsw)
		}
		if _, err = w.Write(bsw.Bits()[:len(sdtp.Entries)]); err != nil {
			return
		}
	}
	_, err = w.Write(sdtp.Trailing)
	return
}
