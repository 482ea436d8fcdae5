package box

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/yapingcat/gomedia/go-codec"
	"m7s.live/bmff/pkg/util"
)

// aligned(8) class TrackFragmentRandomAccessBox
// extends FullBox(‘tfra’, version, 0) {
// 	unsigned int(32)  track_ID;
// 	const unsigned int(26)  reserved = 0;
// 	unsigned int(2) length_size_of_traf_num;
// 	unsigned int(2) length_size_of_trun_num;
// 	unsigned int(2)  length_size_of_sample_num;
// 	unsigned int(32)  number_of_entry;
// 	for(i=1; i <= number_of_entry; i++){
// 		if(version==1){
// 			unsigned int(64)  time;
// 			unsigned int(64)  moof_offset;
// 		 }else{
// 			unsigned int(32)  time;
// 			unsigned int(32)  moof_offset;
// 		 }
// 		 unsignedint((length_size_of_traf_num+1)*8) traf_number;
// 		 unsignedint((length_size_of_trun_num+1)*8) trun_number;
// 		 unsigned int((length_size_of_sample_num+1) * 8)sample_number;
// 	}
// }

type TfraEntry struct {
	Time         uint64
	MoofOffset   uint64
	TrafNumber   uint32
	TrunNumber   uint32
	SampleNumber uint32
}

// TrackFragmentRandomAccessBox keeps the three LengthSize fields as byte
// widths (1 to 4); on the wire they are stored minus one.
type TrackFragmentRandomAccessBox struct {
	FullBox
	TrackID               uint32
	Reserved              uint32 // upper 26 bits of the length size word
	LengthSizeOfTrafNum   uint8
	LengthSizeOfTrunNum   uint8
	LengthSizeOfSampleNum uint8
	Entries               []TfraEntry
}

const tfraFixedLen = 12

func NewTrackFragmentRandomAccessBox(trackid uint32) *TrackFragmentRandomAccessBox {
	return &TrackFragmentRandomAccessBox{
		FullBox:               NewFullBox(TypeTFRA, 1),
		TrackID:               trackid,
		LengthSizeOfTrafNum:   1,
		LengthSizeOfTrunNum:   1,
		LengthSizeOfSampleNum: 1,
	}
}

func (tfra *TrackFragmentRandomAccessBox) NumberOfEntries() uint32 {
	return uint32(len(tfra.Entries))
}

func (tfra *TrackFragmentRandomAccessBox) timeWidth() int {
	return util.Conditional(tfra.Version == 1, 8, 4)
}

func (tfra *TrackFragmentRandomAccessBox) entrySize() int {
	return 2*tfra.timeWidth() + int(tfra.LengthSizeOfTrafNum) + int(tfra.LengthSizeOfTrunNum) + int(tfra.LengthSizeOfSampleNum)
}

func (tfra *TrackFragmentRandomAccessBox) ContentSize() uint64 {
	return 4 + tfraFixedLen + uint64(len(tfra.Entries))*uint64(tfra.entrySize())
}

func (tfra *TrackFragmentRandomAccessBox) Decode(r io.Reader, size uint64) (err error) {
	if size < 4+tfraFixedLen {
		return fmt.Errorf("%w: tfra content is %d bytes", ErrTruncatedBox, size)
	}
	if err = tfra.ReadVersionFlags(r); err != nil {
		return
	}
	buf := make([]byte, tfraFixedLen)
	if _, err = io.ReadFull(r, buf); err != nil {
		return eofAsTruncated(err)
	}
	tfra.TrackID = binary.BigEndian.Uint32(buf)
	bs := codec.NewBitStream(buf[4:8])
	tfra.Reserved = bs.Uint32(26)
	tfra.LengthSizeOfTrafNum = bs.Uint8(2) + 1
	tfra.LengthSizeOfTrunNum = bs.Uint8(2) + 1
	tfra.LengthSizeOfSampleNum = bs.Uint8(2) + 1
	count := uint64(binary.BigEndian.Uint32(buf[8:]))

	entrySize := uint64(tfra.entrySize())
	remain := size - 4 - tfraFixedLen
	if count*entrySize > remain {
		return fmt.Errorf("%w: tfra declares %d entries of %d bytes, %d bytes left", ErrTruncatedBox, count, entrySize, remain)
	}
	data := make([]byte, count*entrySize)
	if _, err = io.ReadFull(r, data); err != nil {
		return eofAsTruncated(err)
	}
	tw := tfra.timeWidth()
	tfra.Entries = make([]TfraEntry, count)
	n := 0
	next := func(width int) []byte {
		field := data[n : n+width]
		n += width
		return field
	}
	for i := range tfra.Entries {
		entry := &tfra.Entries[i]
		entry.Time = util.ReadBE[uint64](next(tw))
		entry.MoofOffset = util.ReadBE[uint64](next(tw))
		entry.TrafNumber = util.ReadBE[uint32](next(int(tfra.LengthSizeOfTrafNum)))
		entry.TrunNumber = util.ReadBE[uint32](next(int(tfra.LengthSizeOfTrunNum)))
		entry.SampleNumber = util.ReadBE[uint32](next(int(tfra.LengthSizeOfSampleNum)))
	}
	return
}

// Validate checks that every field fits the width it is going to be written with.
func (tfra *TrackFragmentRandomAccessBox) Validate() error {
	for _, ls := range []struct {
		name  string
		width uint8
	}{
		{"length_size_of_traf_num", tfra.LengthSizeOfTrafNum},
		{"length_size_of_trun_num", tfra.LengthSizeOfTrunNum},
		{"length_size_of_sample_num", tfra.LengthSizeOfSampleNum},
	} {
		if ls.width < 1 || ls.width > 4 {
			return fmt.Errorf("%w: tfra %s is %d bytes, must be 1 to 4", ErrFieldOverflow, ls.name, ls.width)
		}
	}
	if tfra.Reserved >= 1<<26 {
		return fmt.Errorf("%w: tfra reserved %#x does not fit 26 bits", ErrFieldOverflow, tfra.Reserved)
	}
	tw := tfra.timeWidth()
	for i, entry := range tfra.Entries {
		for _, field := range []struct {
			name  string
			value uint64
			width int
		}{
			{"time", entry.Time, tw},
			{"moof_offset", entry.MoofOffset, tw},
			{"traf_number", uint64(entry.TrafNumber), int(tfra.LengthSizeOfTrafNum)},
			{"trun_number", uint64(entry.TrunNumber), int(tfra.LengthSizeOfTrunNum)},
			{"sample_number", uint64(entry.SampleNumber), int(tfra.LengthSizeOfSampleNum)},
		} {
			if !util.FitsBE(field.value, field.width) {
				return fmt.Errorf("%w: tfra entry %d %s %d does not fit %d bytes", ErrFieldOverflow, i, field.name, field.value, field.width)
			}
		}
	}
	return nil
}

func (tfra *TrackFragmentRandomAccessBox) Encode(w io.Writer) (err error) {
	if err = tfra.Validate(); err != nil {
		return
	}
	if err = tfra.WriteVersionFlags(w); err != nil {
		return
	}
	buf := make([]byte, tfraFixedLen+len(tfra.Entries)*tfra.entrySize())
	binary.BigEndian.PutUint32(buf, tfra.TrackID)
	bsw := codec.NewBitStreamWriter(4)
	bsw.PutUint16(uint16(tfra.Reserved>>10), 16)
	bsw.PutUint16(uint16(tfra.Reserved&0x3FF), 10)
	bsw.PutUint8(tfra.LengthSizeOfTrafNum-1, 2)
	bsw.PutUint8(tfra.LengthSizeOfTrunNum-1, 2)
	bsw.PutUint8(tfra.LengthSizeOfSampleNum-1, 2)
	copy(buf[4:8], bsw.Bits())
	binary.BigEndian.PutUint32(buf[8:], tfra.NumberOfEntries())
	tw := tfra.timeWidth()
	n := tfraFixedLen
	next := func(width int) []byte {
		field := buf[n : n+width]
		n += width
		return field
	}
	for _, entry := range tfra.Entries {
		util.PutBE(next(tw), entry.Time)
		util.PutBE(next(tw), entry.MoofOffset)
		util.PutBE(next(int(tfra.LengthSizeOfTrafNum)), entry.TrafNumber)
		util.PutBE(next(int(tfra.LengthSizeOfTrunNum)), entry.TrunNumber)
		util.PutBE(next(int(tfra.LengthSizeOfSampleNum)), entry.SampleNumber)
	}
	_, err = w.Write(buf)
	return
}
