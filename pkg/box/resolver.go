package box

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/lo"
)

// SampleCounter is implemented by boxes that declare how many samples they describe.
type SampleCounter interface {
	Box
	SampleCount() uint32
}

// CountRule names where a count missing from a box can be found: first among
// the box's siblings, then in the single Nested box below the single
// top-level Ancestor box.
type CountRule struct {
	Siblings [][4]byte
	Ancestor [4]byte
	Nested   [4]byte
}

var (
	SampleCountRule         = CountRule{Siblings: [][4]byte{TypeTRUN, TypeSTSZ}, Ancestor: TypeMOOV, Nested: TypeSTSZ}
	FragmentSampleCountRule = CountRule{Siblings: [][4]byte{TypeTRUN}, Ancestor: TypeMOOV, Nested: TypeSTSZ}
	TableSampleCountRule    = CountRule{Siblings: [][4]byte{TypeSTSZ}, Ancestor: TypeMOOV, Nested: TypeSTSZ}
)

// Resolver looks up values that live elsewhere in the tree. It only reads the
// tree, so it can be used by several boxes, and several goroutines, at once.
type Resolver struct {
	Logger *slog.Logger
	// Strict turns any ambiguous lookup into an error.
	Strict bool
}

func (res *Resolver) logger() *slog.Logger {
	if res == nil || res.Logger == nil {
		return slog.Default()
	}
	return res.Logger
}

// ResolveCount derives the count for b according to rule. When nothing
// matches it returns 0 together with an ErrMissingContext diagnostic.
func (res *Resolver) ResolveCount(b Box, rule CountRule) (count uint32, diags []Diagnostic, err error) {
	path := Path(b)
	if parent := b.Basic().Parent(); parent != nil {
		siblings := counters(parent.Boxes(), rule.Siblings, b)
		switch len(siblings) {
		case 0:
		case 1:
			return siblings[0].SampleCount(), nil, nil
		default:
			d := newDiagnostic(b, fmt.Errorf("%w: %d sibling boxes of type %s", ErrAmbiguousContext, len(siblings), typeNames(rule.Siblings)))
			if res != nil && res.Strict {
				return 0, nil, d
			}
			res.logger().Warn("ambiguous siblings, trying ancestors", "path", path, "count", len(siblings))
			diags = append(diags, d)
		}
	}
	if root := Root(b); root != nil {
		ancestors := filterType(root.Boxes(), rule.Ancestor)
		if top, ok := root.(Box); ok && top.Basic().Type == rule.Ancestor {
			ancestors = append(ancestors, top)
		}
		switch len(ancestors) {
		case 0:
		case 1:
			anc, ok := ancestors[0].(Container)
			if !ok {
				break
			}
			nested := counters(FindAll(anc, rule.Nested), [][4]byte{rule.Nested}, b)
			switch len(nested) {
			case 0:
			case 1:
				return nested[0].SampleCount(), diags, nil
			default:
				d := newDiagnostic(b, fmt.Errorf("%w: %d %s boxes in %s", ErrAmbiguousContext, len(nested), string(rule.Nested[:]), string(rule.Ancestor[:])))
				if res != nil && res.Strict {
					return 0, nil, d
				}
				res.logger().Warn("ambiguous nested boxes", "path", path, "count", len(nested))
				diags = append(diags, d)
			}
		default:
			d := newDiagnostic(b, fmt.Errorf("%w: %d %s boxes", ErrAmbiguousContext, len(ancestors), string(rule.Ancestor[:])))
			if res != nil && res.Strict {
				return 0, nil, d
			}
			res.logger().Warn("ambiguous ancestors", "path", path, "count", len(ancestors))
			diags = append(diags, d)
		}
	}
	res.logger().Info("no count found, defaulting to 0", "path", path)
	diags = append(diags, newDiagnostic(b, fmt.Errorf("%w: no %s sibling and no %s/%s", ErrMissingContext,
		typeNames(rule.Siblings), string(rule.Ancestor[:]), string(rule.Nested[:]))))
	return 0, diags, nil
}

func counters(list []Box, types [][4]byte, self Box) []SampleCounter {
	return lo.FilterMap(list, func(b Box, _ int) (SampleCounter, bool) {
		if b == self || !lo.Contains(types, b.Basic().Type) {
			return nil, false
		}
		c, ok := b.(SampleCounter)
		return c, ok
	})
}

func typeNames(types [][4]byte) string {
	return strings.Join(lo.Map(types, func(t [4]byte, _ int) string {
		return string(t[:])
	}), "|")
}
