package box

import (
	"fmt"
	"io"
)

// ReadHeader decodes the box header starting at offset. end is the end of
// the enclosing container (or of the source) and bounds both the header read
// and the declared size. A size=0 header is completed to reach end.
func ReadHeader(src io.ReaderAt, offset, end int64) (*BasicBox, error) {
	if end-offset < BasicBoxLen {
		return nil, fmt.Errorf("%w: %d bytes left at %d, need a header", ErrTruncatedBox, end-offset, offset)
	}
	box := &BasicBox{Offset: offset}
	if _, err := box.DecodeHeader(io.NewSectionReader(src, offset, end-offset)); err != nil {
		return nil, fmt.Errorf("header at %d: %w", offset, eofAsTruncated(err))
	}
	if box.ToEnd {
		box.Size = uint64(end - offset)
	}
	if box.Size < uint64(box.HeaderLen) {
		return nil, fmt.Errorf("%w: %s at %d declares %d bytes, header is %d", ErrMalformedHeader, box, offset, box.Size, box.HeaderLen)
	}
	if box.Size > uint64(end-offset) {
		return nil, fmt.Errorf("%w: %s at %d declares %d bytes, %d available", ErrTruncatedBox, box, offset, box.Size, end-offset)
	}
	return box, nil
}

// ContentLen is the payload length implied by the parsed header.
func (box *BasicBox) ContentLen() uint64 {
	return box.Size - uint64(box.HeaderLen)
}
