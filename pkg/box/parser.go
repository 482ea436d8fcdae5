package box

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"

	"m7s.live/bmff/pkg"
	"m7s.live/bmff/pkg/config"
)

type Option func(*Parser)

func WithRegistry(r *Registry) Option {
	return func(p *Parser) {
		p.registry = r
	}
}

// WithLogger replaces the stderr logger built from the LogLevel of the config.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}

func WithConfig(conf config.Parser) Option {
	return func(p *Parser) {
		p.conf = conf
	}
}

// Parser builds a box tree from a positional source. A Parser holds no state
// between calls and may be shared.
type Parser struct {
	registry *Registry
	logger   *slog.Logger
	conf     config.Parser
}

func NewParser(opts ...Option) *Parser {
	p := &Parser{
		registry: DefaultRegistry,
		conf:     config.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = pkg.NewLogger(os.Stderr, p.conf.LogLevel)
	}
	return p
}

func Parse(src io.ReaderAt, size int64) (*File, error) {
	return NewParser().Parse(src, size)
}

func ParseBytes(data []byte) (*File, error) {
	return NewParser().ParseBytes(data)
}

func (p *Parser) ParseBytes(data []byte) (*File, error) {
	return p.Parse(bytes.NewReader(data), int64(len(data)))
}

// Parse reads size bytes of src as a sequence of top-level boxes. On error the
// boxes built so far are returned together with it.
func (p *Parser) Parse(src io.ReaderAt, size int64) (file *File, err error) {
	file = NewFile()
	if err = p.parseChildren(src, file, file, 0, size, 1); err != nil {
		return
	}
	res := &Resolver{Logger: p.logger, Strict: p.conf.StrictContext}
	err = Walk(file, func(b Box) error {
		r, ok := b.(Resolvable)
		if !ok {
			return nil
		}
		diags, err := r.Resolve(res)
		file.Diagnostics = append(file.Diagnostics, diags...)
		return wrapBoxError(b, err)
	})
	return
}

func (p *Parser) parseChildren(src io.ReaderAt, file *File, parent Container, offset, end int64, depth int) error {
	if depth > p.conf.MaxDepth {
		return &BoxError{Path: containerPath(parent), Offset: offset, Err: fmt.Errorf("%w: nesting deeper than %d", ErrMalformedHeader, p.conf.MaxDepth)}
	}
	for offset < end {
		header, err := ReadHeader(src, offset, end)
		if err != nil {
			return &BoxError{Path: containerPath(parent), Offset: offset, Err: err}
		}
		b := p.registry.resolve(header.Type, parent)()
		basic := b.Basic()
		basic.Offset = header.Offset
		basic.Size = header.Size
		basic.Type = header.Type
		basic.UserType = header.UserType
		basic.HeaderLen = header.HeaderLen
		basic.LargeSize = header.LargeSize
		basic.ToEnd = header.ToEnd
		raw, isRaw := b.(*RawBox)
		if isRaw {
			raw.lazyThreshold = p.conf.LazyRawThreshold
			p.logger.Debug("unknown box kept raw", "box", header.String(), "offset", offset, "size", header.Size)
		}
		parent.Append(b)

		contentStart := offset + int64(header.HeaderLen)
		content := io.NewSectionReader(src, contentStart, int64(header.ContentLen()))
		if err = b.Decode(content, header.ContentLen()); err != nil {
			return wrapBoxError(b, err)
		}
		read, _ := content.Seek(0, io.SeekCurrent)
		if c, ok := b.(Container); ok {
			if err = p.parseChildren(src, file, c, contentStart+read, offset+int64(header.Size), depth+1); err != nil {
				return err
			}
		} else if left := content.Size() - read; left > 0 && !(isRaw && raw.Lazy()) {
			basic.Padding = make([]byte, left)
			if _, err = io.ReadFull(content, basic.Padding); err != nil {
				return wrapBoxError(b, eofAsTruncated(err))
			}
			p.logger.Warn("content bytes not decoded, kept as padding", "path", Path(b), "count", left)
			file.Diagnostics = append(file.Diagnostics, newDiagnostic(b, fmt.Errorf("%w: %d of %d content bytes", ErrTrailingData, left, content.Size())))
		}
		offset += int64(header.Size)
	}
	return nil
}

func containerPath(c Container) string {
	if b, ok := c.(Box); ok {
		return Path(b)
	}
	return ""
}

// Walk calls fn for every box below c in pre-order and stops at the first error.
func Walk(c Container, fn func(Box) error) error {
	for _, child := range c.Boxes() {
		if err := fn(child); err != nil {
			return err
		}
		if sub, ok := child.(Container); ok {
			if err := Walk(sub, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// Serialize validates every box of f and then writes the tree. Nothing is
// written when validation fails.
func Serialize(w io.Writer, f *File) error {
	err := Walk(f, func(b Box) error {
		if v, ok := b.(Validator); ok {
			return wrapBoxError(b, v.Validate())
		}
		return nil
	})
	if err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}
