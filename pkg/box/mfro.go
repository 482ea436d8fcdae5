package box

import (
	"encoding/binary"
	"io"
)

// aligned(8) class MovieFragmentRandomAccessOffsetBox extends FullBox(‘mfro’, version, 0) {
// 	unsigned int(32)  size;
// }

type MovieFragmentRandomAccessOffsetBox struct {
	FullBox
	MfraSize uint32
}

func NewMovieFragmentRandomAccessOffsetBox(mfraSize uint32) *MovieFragmentRandomAccessOffsetBox {
	return &MovieFragmentRandomAccessOffsetBox{
		FullBox:  NewFullBox(TypeMFRO, 0),
		MfraSize: mfraSize,
	}
}

func (mfro *MovieFragmentRandomAccessOffsetBox) ContentSize() uint64 {
	return 4 + 4
}

func (mfro *MovieFragmentRandomAccessOffsetBox) Decode(r io.Reader, size uint64) (err error) {
	if err = mfro.ReadVersionFlags(r); err != nil {
		return
	}
	buf := make([]byte, 4)
	if _, err = io.ReadFull(r, buf); err != nil {
		return eofAsTruncated(err)
	}
	mfro.MfraSize = binary.BigEndian.Uint32(buf)
	return
}

func (mfro *MovieFragmentRandomAccessOffsetBox) Encode(w io.Writer) (err error) {
	if err = mfro.WriteVersionFlags(w); err != nil {
		return
	}
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, mfro.MfraSize)
	_, err = w.Write(buf)
	return
}

// NewMovieFragmentRandomAccessBox builds an mfra holding the given tfra boxes
// followed by an mfro that records the size of the whole mfra.
func NewMovieFragmentRandomAccessBox(tfras ...*TrackFragmentRandomAccessBox) *ContainerBox {
	mfra := NewContainerBox(TypeMFRA)
	for _, tfra := range tfras {
		mfra.Append(tfra)
	}
	mfro := NewMovieFragmentRandomAccessOffsetBox(0)
	mfra.Append(mfro)
	mfro.MfraSize = uint32(Size(mfra))
	return mfra
}
