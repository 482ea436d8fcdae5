package box

import (
	"slices"
	"sync"

	"github.com/samber/lo"
)

type Constructor func() Box

// ContextPredicate decides whether a registration applies below parent.
// parent is the *File for top-level boxes.
type ContextPredicate func(parent Container) bool

type registration struct {
	match ContextPredicate
	ctor  Constructor
}

// Registry maps a box type, disambiguated by its parent, to a constructor.
type Registry struct {
	mu      sync.RWMutex
	entries map[[4]byte][]registration
}

var DefaultRegistry = &Registry{}

func NewRegistry() *Registry {
	r := &Registry{}
	DefaultRegistry.mu.RLock()
	defer DefaultRegistry.mu.RUnlock()
	for typ, regs := range DefaultRegistry.entries {
		r.set(typ, slices.Clone(regs))
	}
	return r
}

func (r *Registry) set(typ [4]byte, regs []registration) {
	if r.entries == nil {
		r.entries = make(map[[4]byte][]registration)
	}
	r.entries[typ] = regs
}

// Register binds boxtype to ctor for parents accepted by match (any parent if
// match is nil). Later registrations take precedence over earlier ones.
func (r *Registry) Register(boxtype [4]byte, match ContextPredicate, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.set(boxtype, append(r.entries[boxtype], registration{match: match, ctor: ctor}))
}

func (r *Registry) resolve(boxtype [4]byte, parent Container) Constructor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	regs := r.entries[boxtype]
	for i := len(regs) - 1; i >= 0; i-- {
		if regs[i].match == nil || regs[i].match(parent) {
			return regs[i].ctor
		}
	}
	return func() Box {
		return &RawBox{}
	}
}

// InParent matches when the parent box has one of the given types.
func InParent(types ...[4]byte) ContextPredicate {
	return func(parent Container) bool {
		p, ok := parent.(Box)
		return ok && lo.Contains(types, p.Basic().Type)
	}
}

// AtTopLevel matches boxes whose parent is the root of the tree.
func AtTopLevel(parent Container) bool {
	_, ok := parent.(*File)
	return ok
}

func containerOf(boxtype [4]byte) Constructor {
	return func() Box {
		return NewContainerBox(boxtype)
	}
}

func init() {
	for _, typ := range [][4]byte{TypeMOOV, TypeTRAK, TypeMDIA, TypeMINF, TypeSTBL, TypeDINF, TypeEDTS,
		TypeMVEX, TypeMOOF, TypeTRAF, TypeMFRA, TypeSINF, TypeSCHI} {
		DefaultRegistry.Register(typ, nil, containerOf(typ))
	}
	DefaultRegistry.Register(TypeMETA, nil, func() Box { return NewFullContainerBox(TypeMETA, 0) })
	DefaultRegistry.Register(TypeFTYP, nil, func() Box { return NewFileTypeBox(TypeFTYP) })
	DefaultRegistry.Register(TypeSTYP, nil, func() Box { return NewFileTypeBox(TypeSTYP) })
	DefaultRegistry.Register(TypeMFHD, nil, func() Box { return NewMovieFragmentHeaderBox(0) })
	DefaultRegistry.Register(TypeTFDT, nil, func() Box { return NewTrackFragmentBaseMediaDecodeTimeBox(0) })
	DefaultRegistry.Register(TypeTRUN, nil, func() Box { return NewTrackRunBox() })
	DefaultRegistry.Register(TypeSTSZ, nil, func() Box { return NewSampleSizeBox() })
	DefaultRegistry.Register(TypeMFRO, nil, func() Box { return NewMovieFragmentRandomAccessOffsetBox(0) })
	DefaultRegistry.Register(TypeTFRA, nil, func() Box { return NewTrackFragmentRandomAccessBox(0) })

	// sdtp takes its sample count from trun inside a fragment and from stsz
	// inside a sample table.
	DefaultRegistry.Register(TypeSDTP, nil, func() Box { return NewSampleDependencyTypeBox(SampleCountRule) })
	DefaultRegistry.Register(TypeSDTP, InParent(TypeTRAF), func() Box { return NewSampleDependencyTypeBox(FragmentSampleCountRule) })
	DefaultRegistry.Register(TypeSDTP, InParent(TypeSTBL), func() Box { return NewSampleDependencyTypeBox(TableSampleCountRule) })
}
