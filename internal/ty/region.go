// Package ty is the semantic type model the well-formedness pass works on:
// regions, types, generic arguments, constants, trait references and
// predicates. Values are immutable once built; all comparisons are
// structural and every value has a canonical String form that doubles as
// its identity key in sets.
package ty

import "fmt"

// DefID identifies a declaration. IDs are path-like ("demo::Ref::x") and
// stable across runs.
type DefID string

// RegionKind distinguishes the different sorts of lifetimes.
type RegionKind uint8

const (
	// ReEarlyBound is a lifetime parameter of an item, addressed by index.
	ReEarlyBound RegionKind = iota
	// ReLateBound is a lifetime bound by a function signature's binder.
	ReLateBound
	// ReFree is a late-bound lifetime after the binder has been liberated.
	ReFree
	// ReStatic is 'static.
	ReStatic
	// ReErased stands for a region that has been erased.
	ReErased
	// ReError marks a region that already produced an error.
	ReError
)

// Region is a lifetime. Regions are plain values and may be used as map keys.
type Region struct {
	Kind  RegionKind
	Name  string // including the leading quote, e.g. "'a"
	Index int    // parameter index for ReEarlyBound
	Scope DefID  // binding function for ReLateBound and ReFree
}

// Static is the 'static region.
var Static = Region{Kind: ReStatic, Name: "'static"}

// Erased is the erased region.
var Erased = Region{Kind: ReErased, Name: "'_"}

// EarlyBound returns the region parameter at index.
func EarlyBound(name string, index int) Region {
	return Region{Kind: ReEarlyBound, Name: name, Index: index}
}

// LateBound returns a region bound by the signature of fn.
func LateBound(name string, fn DefID) Region {
	return Region{Kind: ReLateBound, Name: name, Scope: fn}
}

// IsStatic reports whether r is 'static.
func (r Region) IsStatic() bool { return r.Kind == ReStatic }

// IsLateBound reports whether r is still bound by a signature binder.
func (r Region) IsLateBound() bool { return r.Kind == ReLateBound }

// String renders the region the way users write it.
func (r Region) String() string {
	switch r.Kind {
	case ReStatic:
		return "'static"
	case ReErased:
		return "'_"
	case ReError:
		return "'{error}"
	}
	return r.Name
}

// Key is the identity of the region; two regions with equal keys are equal.
func (r Region) Key() string {
	switch r.Kind {
	case ReEarlyBound:
		return fmt.Sprintf("%s#%d", r.Name, r.Index)
	case ReLateBound:
		return fmt.Sprintf("%s^%s", r.Name, r.Scope)
	case ReFree:
		return fmt.Sprintf("%s@%s", r.Name, r.Scope)
	}
	return r.String()
}
