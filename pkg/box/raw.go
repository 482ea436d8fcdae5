package box

import (
	"io"
)

// RawBox keeps the payload of a box nobody registered a decoder for. The
// bytes are written back untouched. Large payloads stay in the source and are
// copied on Encode instead of being loaded.
type RawBox struct {
	BasicBox
	Data []byte
	src  *io.SectionReader

	lazyThreshold uint64
}

func NewRawBox(boxtype [4]byte, data []byte) *RawBox {
	return &RawBox{
		BasicBox: BasicBox{Type: boxtype},
		Data:     data,
	}
}

func (raw *RawBox) ContentSize() uint64 {
	if raw.src != nil {
		return uint64(raw.src.Size())
	}
	return uint64(len(raw.Data))
}

// NewLazyRawBox builds a box whose payload is copied from src when encoded.
func NewLazyRawBox(boxtype [4]byte, src *io.SectionReader) *RawBox {
	return &RawBox{
		BasicBox: BasicBox{Type: boxtype},
		src:      src,
	}
}

// Lazy reports whether the payload still lives in the parse source.
func (raw *RawBox) Lazy() bool {
	return raw.src != nil
}

func (raw *RawBox) Decode(r io.Reader, size uint64) (err error) {
	if sr, ok := r.(*io.SectionReader); ok && raw.lazyThreshold > 0 && size > raw.lazyThreshold {
		raw.src = io.NewSectionReader(sr, 0, int64(size))
		return nil
	}
	raw.Data = make([]byte, size)
	_, err = io.ReadFull(r, raw.Data)
	return eofAsTruncated(err)
}

func (raw *RawBox) Encode(w io.Writer) (err error) {
	if raw.src != nil {
		_, err = io.Copy(w, io.NewSectionReader(raw.src, 0, raw.src.Size()))
		return
	}
	_, err = w.Write(raw.Data)
	return
}
