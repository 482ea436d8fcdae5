package box

import (
	"encoding/binary"
	"fmt"
	"io"
)

// aligned(8) class SampleSizeBox extends FullBox(‘stsz’, version = 0, 0) {
// 		unsigned int(32) sample_size;
// 		unsigned int(32) sample_count;
// 		if (sample_size==0) {
// 		for (i=1; i <= sample_count; i++) {
// 		unsigned int(32) entry_size;
// 		}
// 	}
// }

// SampleSizeBox lists one size per sample, or a single SampleSize shared by
// ConstantCount samples.
type SampleSizeBox struct {
	FullBox
	SampleSize    uint32
	ConstantCount uint32
	EntrySizelist []uint32
}

func NewSampleSizeBox(sizes ...uint32) *SampleSizeBox {
	return &SampleSizeBox{
		FullBox:       NewFullBox(TypeSTSZ, 0),
		EntrySizelist: sizes,
	}
}

func (stsz *SampleSizeBox) SampleCount() uint32 {
	if stsz.SampleSize == 0 {
		return uint32(len(stsz.EntrySizelist))
	}
	return stsz.ConstantCount
}

func (stsz *SampleSizeBox) ContentSize() uint64 {
	if stsz.SampleSize == 0 {
		return 4 + 8 + 4*uint64(len(stsz.EntrySizelist))
	}
	return 4 + 8
}

func (stsz *SampleSizeBox) Decode(r io.Reader, size uint64) (err error) {
	if err = stsz.ReadVersionFlags(r); err != nil {
		return
	}
	tmp := make([]byte, 8)
	if _, err = io.ReadFull(r, tmp); err != nil {
		return eofAsTruncated(err)
	}
	stsz.SampleSize = binary.BigEndian.Uint32(tmp[:])
	sampleCount := binary.BigEndian.Uint32(tmp[4:])
	if stsz.SampleSize != 0 {
		stsz.ConstantCount = sampleCount
		return
	}
	if 12+stszTableLen(sampleCount) > size {
		return fmt.Errorf("%w: stsz declares %d samples in %d bytes", ErrTruncatedBox, sampleCount, size)
	}
	buf := make([]byte, stszTableLen(sampleCount))
	if _, err = io.ReadFull(r, buf); err != nil {
		return eofAsTruncated(err)
	}
	idx := 0
	stsz.EntrySizelist = make([]uint32, sampleCount)
	for i := range stsz.EntrySizelist {
		stsz.EntrySizelist[i] = binary.BigEndian.Uint32(buf[idx:])
		idx += 4
	}
	return
}

// stszTableLen is the byte length of count entry_size fields.
func stszTableLen(count uint32) uint64 {
	return 4 * uint64(count)
}

func (stsz *SampleSizeBox) Encode(w io.Writer) (err error) {
	if err = stsz.WriteVersionFlags(w); err != nil {
		return
	}
	buf := make([]byte, stsz.ContentSize()-4)
	binary.BigEndian.PutUint32(buf, stsz.SampleSize)
	binary.BigEndian.PutUint32(buf[4:], stsz.SampleCount())
	if stsz.SampleSize == 0 {
		offset := 8
		for _, entry := range stsz.EntrySizelist {
			binary.BigEndian.PutUint32(buf[offset:], entry)
			offset += 4
		}
	}
	_, err = w.Write(buf)
	return
}
