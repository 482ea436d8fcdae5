package box

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedHeader  = errors.New("malformed box header")
	ErrTruncatedBox     = errors.New("truncated box")
	ErrFieldOverflow    = errors.New("field overflow")
	ErrAmbiguousContext = errors.New("ambiguous context")
	ErrMissingContext   = errors.New("missing context")
	ErrTrailingData     = errors.New("undecoded trailing data")
)

// BoxError attaches the position of the failing box to a decode or encode error.
type BoxError struct {
	Path   string
	Offset int64
	Err    error
}

func (e *BoxError) Error() string {
	return fmt.Sprintf("box %s at %d: %v", e.Path, e.Offset, e.Err)
}

func (e *BoxError) Unwrap() error {
	return e.Err
}

func wrapBoxError(b Box, err error) error {
	if err == nil {
		return nil
	}
	var be *BoxError
	if errors.As(err, &be) {
		return err
	}
	return &BoxError{Path: Path(b), Offset: b.Basic().Offset, Err: err}
}

// Diagnostic is a non-fatal condition recorded while building or resolving a tree.
type Diagnostic struct {
	Err    error
	Type   [4]byte
	Path   string
	Offset int64
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s at %d: %v", d.Path, d.Offset, d.Err)
}

func (d Diagnostic) Unwrap() error {
	return d.Err
}

func newDiagnostic(b Box, err error) Diagnostic {
	return Diagnostic{
		Err:    err,
		Type:   b.Basic().Type,
		Path:   Path(b),
		Offset: b.Basic().Offset,
	}
}
