package box

import (
	"encoding/binary"
	"io"
)

// aligned(8) class MovieFragmentHeaderBox extends FullBox(‘mfhd’, 0, 0){
// 	unsigned int(32) sequence_number;
// }

type MovieFragmentHeaderBox struct {
	FullBox
	SequenceNumber uint32
}

func NewMovieFragmentHeaderBox(sequence uint32) *MovieFragmentHeaderBox {
	return &MovieFragmentHeaderBox{
		FullBox:        NewFullBox(TypeMFHD, 0),
		SequenceNumber: sequence,
	}
}

func (mfhd *MovieFragmentHeaderBox) ContentSize() uint64 {
	return 4 + 4
}

func (mfhd *MovieFragmentHeaderBox) Decode(r io.Reader, size uint64) (err error) {
	if err = mfhd.ReadVersionFlags(r); err != nil {
		return
	}
	buf := make([]byte, 4)
	if _, err = io.ReadFull(r, buf); err != nil {
		return eofAsTruncated(err)
	}
	mfhd.SequenceNumber = binary.BigEndian.Uint32(buf)
	return
}

func (mfhd *MovieFragmentHeaderBox) Encode(w io.Writer) (err error) {
	if err = mfhd.WriteVersionFlags(w); err != nil {
		return
	}
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, mfhd.SequenceNumber)
	_, err = w.Write(buf)
	return
}
