package box

import (
	"encoding/binary"
	"fmt"
	"io"
)

// aligned(8) class FileTypeBox extends Box(‘ftyp’) {
// 	unsigned int(32) major_brand;
// 	unsigned int(32) minor_version;
// 	unsigned int(32) compatible_brands[];
// }
//
// styp shares the layout.

type FileTypeBox struct {
	BasicBox
	MajorBrand       [4]byte
	MinorVersion     uint32
	CompatibleBrands [][4]byte
}

func NewFileTypeBox(boxtype [4]byte) *FileTypeBox {
	return &FileTypeBox{
		BasicBox: BasicBox{Type: boxtype},
	}
}

func (ftyp *FileTypeBox) ContentSize() uint64 {
	return 8 + 4*uint64(len(ftyp.CompatibleBrands))
}

func (ftyp *FileTypeBox) Decode(r io.Reader, size uint64) error {
	if size < 8 || size%4 != 0 {
		return fmt.Errorf("%w: %s content of %d bytes", ErrMalformedHeader, ftyp, size)
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return eofAsTruncated(err)
	}
	ftyp.MajorBrand = [4]byte(buf[0:])
	ftyp.MinorVersion = binary.BigEndian.Uint32(buf[4:])
	ftyp.CompatibleBrands = nil
	for n := 8; n < len(buf); n += 4 {
		ftyp.CompatibleBrands = append(ftyp.CompatibleBrands, [4]byte(buf[n:]))
	}
	return nil
}

func (ftyp *FileTypeBox) Encode(w io.Writer) error {
	buf := make([]byte, ftyp.ContentSize())
	copy(buf, ftyp.MajorBrand[:])
	binary.BigEndian.PutUint32(buf[4:], ftyp.MinorVersion)
	offset := 8
	for _, brand := range ftyp.CompatibleBrands {
		copy(buf[offset:], brand[:])
		offset += 4
	}
	_, err := w.Write(buf)
	return err
}
