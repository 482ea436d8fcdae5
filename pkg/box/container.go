package box

import (
	"io"
	"slices"

	"github.com/samber/lo"
)

// Container owns an ordered list of child boxes. Appending sets the child's
// parent reference, removing clears it.
type Container interface {
	Boxes() []Box
	Append(children ...Box)
	Remove(child Box) bool
}

//	aligned(8) class ContainerBox extends Box(type) {
//	    Box child_boxes[];
//	}
//
// Full containers such as meta carry version and flags before the children.
type ContainerBox struct {
	BasicBox
	Full     bool
	Version  uint8
	Flags    [3]byte
	children []Box
}

func NewContainerBox(boxtype [4]byte, children ...Box) *ContainerBox {
	c := &ContainerBox{BasicBox: BasicBox{Type: boxtype}}
	c.Append(children...)
	return c
}

func NewFullContainerBox(boxtype [4]byte, version uint8, children ...Box) *ContainerBox {
	c := NewContainerBox(boxtype, children...)
	c.Full = true
	c.Version = version
	return c
}

func (c *ContainerBox) Boxes() []Box {
	return c.children
}

func (c *ContainerBox) Append(children ...Box) {
	c.children = adopt(c, c.children, children)
}

func (c *ContainerBox) Remove(child Box) bool {
	var ok bool
	c.children, ok = disown(c.children, child)
	return ok
}

// Find returns the direct children of the given type.
func (c *ContainerBox) Find(boxtype [4]byte) []Box {
	return filterType(c.children, boxtype)
}

func (c *ContainerBox) prefixSize() uint64 {
	if c.Full {
		return 4
	}
	return 0
}

func (c *ContainerBox) ContentSize() uint64 {
	return c.prefixSize() + childrenSize(c.children)
}

// Decode reads the fields preceding the children; the children themselves
// are parsed by the Parser.
func (c *ContainerBox) Decode(r io.Reader, size uint64) error {
	if !c.Full {
		return nil
	}
	if c.Type == TypeMETA && quickTimeMeta(r) {
		c.Full = false
		return nil
	}
	var full FullBox
	if err := full.ReadVersionFlags(r); err != nil {
		return err
	}
	c.Version, c.Flags = full.Version, full.Flags
	return nil
}

// quickTimeMeta reports whether a meta box starts directly with its hdlr child
// instead of version and flags, as QuickTime writes it. r is left unmoved.
func quickTimeMeta(r io.Reader) bool {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		return false
	}
	buf := make([]byte, 8)
	n, _ := io.ReadFull(rs, buf)
	if _, err := rs.Seek(-int64(n), io.SeekCurrent); err != nil {
		return false
	}
	return n == len(buf) && [4]byte(buf[4:]) == TypeHDLR
}

func (c *ContainerBox) Encode(w io.Writer) error {
	if c.Full {
		if _, err := w.Write([]byte{c.Version, c.Flags[0], c.Flags[1], c.Flags[2]}); err != nil {
			return err
		}
	}
	return encodeChildren(w, c.children)
}

// File is the root of a parsed tree. It has no header of its own.
type File struct {
	children    []Box
	Diagnostics []Diagnostic
}

func NewFile(children ...Box) *File {
	file := &File{}
	file.Append(children...)
	return file
}

func (file *File) Boxes() []Box {
	return file.children
}

func (file *File) Append(children ...Box) {
	file.children = adopt(file, file.children, children)
}

func (file *File) Remove(child Box) bool {
	var ok bool
	file.children, ok = disown(file.children, child)
	return ok
}

func (file *File) Find(boxtype [4]byte) []Box {
	return filterType(file.children, boxtype)
}

func (file *File) Size() uint64 {
	return childrenSize(file.children)
}

func (file *File) WriteTo(w io.Writer) (n int64, err error) {
	cw := &countWriter{w: w}
	err = encodeChildren(cw, file.children)
	return cw.n, err
}

// FindAll collects every box of the given type below c, depth first.
func FindAll(c Container, boxtype [4]byte) (result []Box) {
	for _, child := range c.Boxes() {
		if child.Basic().Type == boxtype {
			result = append(result, child)
		}
		if sub, ok := child.(Container); ok {
			result = append(result, FindAll(sub, boxtype)...)
		}
	}
	return
}

func adopt(parent Container, list []Box, children []Box) []Box {
	for _, child := range children {
		if old := child.Basic().parent; old == parent {
			list, _ = disown(list, child)
		} else if old != nil {
			old.Remove(child)
		}
		child.Basic().parent = parent
		list = append(list, child)
	}
	return list
}

func disown(list []Box, child Box) ([]Box, bool) {
	i := slices.Index(list, child)
	if i == -1 {
		return list, false
	}
	child.Basic().parent = nil
	return slices.Delete(list, i, i+1), true
}

func filterType(list []Box, boxtype [4]byte) []Box {
	return lo.Filter(list, func(b Box, _ int) bool {
		return b.Basic().Type == boxtype
	})
}

func childrenSize(children []Box) (n uint64) {
	for _, child := range children {
		n += Size(child)
	}
	return
}

func encodeChildren(w io.Writer, children []Box) error {
	for i, child := range children {
		if err := encodeBox(w, child, i == len(children)-1); err != nil {
			return err
		}
	}
	return nil
}

type countWriter struct {
	w io.Writer
	n int64
}

func (cw *countWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
