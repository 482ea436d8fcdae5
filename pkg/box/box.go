package box

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"strings"
)

const (
	BasicBoxLen = 8
	FullBoxLen  = 12
	LargeBoxLen = 16
	UserTypeLen = 16
)

func f(s string) [4]byte {
	return [4]byte([]byte(s))
}

var (
	TypeFTYP = f("ftyp")
	TypeSTYP = f("styp")
	TypeMOOV = f("moov")
	TypeTRAK = f("trak")
	TypeMDIA = f("mdia")
	TypeMINF = f("minf")
	TypeSTBL = f("stbl")
	TypeDINF = f("dinf")
	TypeEDTS = f("edts")
	TypeSINF = f("sinf")
	TypeSCHI = f("schi")
	TypeMETA = f("meta")
	TypeHDLR = f("hdlr")
	TypeSTSZ = f("stsz")
	TypeSDTP = f("sdtp")
	TypeMDAT = f("mdat")
	TypeFREE = f("free")
	TypeSKIP = f("skip")
	TypeUUID = f("uuid")
	TypeMVEX = f("mvex")
	TypeMOOF = f("moof")
	TypeMFHD = f("mfhd")
	TypeTRAF = f("traf")
	TypeTFDT = f("tfdt")
	TypeTRUN = f("trun")
	TypeMFRA = f("mfra")
	TypeMFRO = f("mfro")
	TypeTFRA = f("tfra")
)

// Box is a node of the tree. Decode receives exactly the content bytes
// following the header, Encode writes them back; headers are handled by the
// parser and EncodeBox.
type Box interface {
	Basic() *BasicBox
	ContentSize() uint64
	Decode(r io.Reader, size uint64) error
	Encode(w io.Writer) error
}

// Resolvable boxes derive part of their content from other boxes of the tree.
// The parser resolves them once the whole tree has been built.
type Resolvable interface {
	Box
	Resolve(res *Resolver) ([]Diagnostic, error)
}

// Validator boxes check their fields before anything is written.
type Validator interface {
	Validate() error
}

//	aligned(8) class Box (unsigned int(32) boxtype, optional unsigned int(8)[16] extended_type) {
//	    unsigned int(32) size;
//	    unsigned int(32) type = boxtype;
//	    if (size==1) {
//	       unsigned int(64) largesize;
//	    } else if (size==0) {
//	       // box extends to end of file
//	    }
//	    if (boxtype=='uuid') {
//	    unsigned int(8)[16] usertype = extended_type;
//	 }
//	}
type BasicBox struct {
	Offset    int64
	Size      uint64
	Type      [4]byte
	UserType  [16]byte
	HeaderLen int
	LargeSize bool // header used the size=1 form
	ToEnd     bool // header used the size=0 form
	// Padding holds content bytes the decoder did not consume. They are
	// written back after the content.
	Padding []byte
	parent  Container
}

func NewBasicBox(boxtype [4]byte) *BasicBox {
	return &BasicBox{
		Type: boxtype,
	}
}

func (box *BasicBox) Basic() *BasicBox {
	return box
}

// Parent returns the enclosing container, nil for a detached box.
func (box *BasicBox) Parent() Container {
	return box.parent
}

func (box *BasicBox) String() string {
	return string(box.Type[:])
}

// DecodeHeader reads the header fields. Size is left as declared, so a zero
// size (box extends to the end of its parent) has to be completed by the caller.
func (box *BasicBox) DecodeHeader(r io.Reader) (nn int, err error) {
	if _, err = io.ReadFull(r, box.Type[:]); err != nil {
		return
	}
	box.Size = uint64(binary.BigEndian.Uint32(box.Type[:]))
	if _, err = io.ReadFull(r, box.Type[:]); err != nil {
		return
	}
	nn = BasicBoxLen
	box.LargeSize = box.Size == 1
	box.ToEnd = box.Size == 0
	if box.LargeSize {
		if _, err = io.ReadFull(r, box.UserType[:8]); err != nil {
			return
		}
		box.Size = binary.BigEndian.Uint64(box.UserType[:8])
		box.UserType = [16]byte{}
		nn += 8
	}
	if box.Type == TypeUUID {
		if _, err = io.ReadFull(r, box.UserType[:]); err != nil {
			return
		}
		nn += UserTypeLen
	}
	box.HeaderLen = nn
	return
}

// HeaderSize is the header length needed for a box carrying contentSize bytes.
func (box *BasicBox) HeaderSize(contentSize uint64) int {
	n := BasicBoxLen
	if box.Type == TypeUUID {
		n += UserTypeLen
	}
	if box.LargeSize || contentSize+uint64(n) > math.MaxUint32 {
		n += 8
	}
	return n
}

func (box *BasicBox) large(contentSize uint64) bool {
	return box.HeaderSize(contentSize) > BasicBoxLen+box.userTypeLen()
}

func (box *BasicBox) userTypeLen() int {
	if box.Type == TypeUUID {
		return UserTypeLen
	}
	return 0
}

// EncodeHeader emits the header for a box whose content is contentSize bytes
// long. toEnd keeps a parsed size=0 header when the box is still the last one.
func (box *BasicBox) EncodeHeader(w io.Writer, contentSize uint64, toEnd bool) (int, error) {
	nn := box.HeaderSize(contentSize)
	buf := make([]byte, nn)
	total := uint64(nn) + contentSize
	copy(buf[4:], box.Type[:])
	offset := BasicBoxLen
	switch {
	case box.large(contentSize):
		binary.BigEndian.PutUint32(buf, 1)
		binary.BigEndian.PutUint64(buf[offset:], total)
		offset += 8
	case toEnd && box.ToEnd:
		binary.BigEndian.PutUint32(buf, 0)
	default:
		binary.BigEndian.PutUint32(buf, uint32(total))
	}
	if box.Type == TypeUUID {
		copy(buf[offset:], box.UserType[:])
	}
	return w.Write(buf)
}

// aligned(8) class FullBox(unsigned int(32) boxtype, unsigned int(8) v, bit(24) f) extends Box(boxtype) {
//     unsigned int(8) version = v;
//     bit(24) flags = f;
// }

type FullBox struct {
	BasicBox
	Version uint8
	Flags   [3]byte
}

func NewFullBox(boxtype [4]byte, version uint8) FullBox {
	return FullBox{
		BasicBox: BasicBox{Type: boxtype},
		Version:  version,
	}
}

func (box *FullBox) FlagsUint32() uint32 {
	return uint32(box.Flags[0])<<16 | uint32(box.Flags[1])<<8 | uint32(box.Flags[2])
}

func (box *FullBox) SetFlags(flags uint32) {
	box.Flags = [3]byte{byte(flags >> 16), byte(flags >> 8), byte(flags)}
}

func (box *FullBox) ReadVersionFlags(r io.Reader) error {
	buf := make([]byte, 4)
	if _, err := io.ReadFull(r, buf); err != nil {
		return eofAsTruncated(err)
	}
	box.Version = buf[0]
	copy(box.Flags[:], buf[1:])
	return nil
}

func (box *FullBox) WriteVersionFlags(w io.Writer) error {
	_, err := w.Write([]byte{box.Version, box.Flags[0], box.Flags[1], box.Flags[2]})
	return err
}

// Size returns the full serialized length of b, header included.
func Size(b Box) uint64 {
	content := contentSize(b)
	return uint64(b.Basic().HeaderSize(content)) + content
}

func contentSize(b Box) uint64 {
	return b.ContentSize() + uint64(len(b.Basic().Padding))
}

// EncodeBox writes header and content of b.
func EncodeBox(w io.Writer, b Box) error {
	return encodeBox(w, b, false)
}

func encodeBox(w io.Writer, b Box, last bool) error {
	basic := b.Basic()
	if _, err := basic.EncodeHeader(w, contentSize(b), last); err != nil {
		return wrapBoxError(b, err)
	}
	if err := b.Encode(w); err != nil {
		return wrapBoxError(b, err)
	}
	if len(basic.Padding) > 0 {
		if _, err := w.Write(basic.Padding); err != nil {
			return wrapBoxError(b, err)
		}
	}
	return nil
}

// Path names b by the types of its ancestors, e.g. "moof/traf/sdtp".
func Path(b Box) string {
	var parts []string
	for cur := b; cur != nil; {
		parts = append(parts, cur.Basic().String())
		parent, ok := cur.Basic().Parent().(Box)
		if !ok {
			break
		}
		cur = parent
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/")
}

// Root walks the parent chain up to the outermost container.
func Root(b Box) Container {
	var root Container
	for cur := b.Basic().Parent(); cur != nil; {
		root = cur
		parent, ok := cur.(Box)
		if !ok {
			break
		}
		cur = parent.Basic().Parent()
	}
	return root
}

func eofAsTruncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrTruncatedBox
	}
	return err
}
