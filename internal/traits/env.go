// Package traits is the obligation solver the well-formedness pass relies
// on. It evaluates predicates modulo regions against a parameter
// environment, expands well-formedness obligations one level at a time,
// normalizes projections through impls and environment bounds, and answers
// the auxiliary queries (autoderef, object safety, drop glue) the checks
// need. Outlives predicates are never decided here; they are handed back
// to the caller for region resolution.
package traits

import (
	"strings"

	"github.com/orizon-lang/wfcheck/internal/ty"
)

// Reveal controls whether opaque items may be looked through.
type Reveal uint8

const (
	// UserFacing keeps projections opaque unless an impl or bound resolves them.
	UserFacing Reveal = iota
	// All reveals everything; used after type checking.
	All
)

// ParamEnv is the set of facts assumed while checking an item. A ParamEnv
// is immutable; Augment returns a new environment.
type ParamEnv struct {
	bounds []ty.Predicate
	Reveal Reveal
	key    string
}

// NewParamEnv returns an environment holding preds, duplicates removed.
func NewParamEnv(preds []ty.Predicate) *ParamEnv {
	set := ty.NewPredicateSet(preds...)
	e := &ParamEnv{bounds: set.Items()}
	e.key = envKey(e.bounds, e.Reveal)
	return e
}

// EmptyEnv returns the environment with no caller bounds.
func EmptyEnv() *ParamEnv { return NewParamEnv(nil) }

// CallerBounds returns the assumed predicates.
func (e *ParamEnv) CallerBounds() []ty.Predicate { return e.bounds }

// Augment returns e extended with extra.
func (e *ParamEnv) Augment(extra ...ty.Predicate) *ParamEnv {
	all := make([]ty.Predicate, 0, len(e.bounds)+len(extra))
	all = append(all, e.bounds...)
	all = append(all, extra...)
	n := NewParamEnv(all)
	n.Reveal = e.Reveal
	n.key = envKey(n.bounds, n.Reveal)
	return n
}

// Key identifies the environment for caching.
func (e *ParamEnv) Key() string { return e.key }

func (e *ParamEnv) String() string {
	parts := make([]string, len(e.bounds))
	for i, p := range e.bounds {
		parts[i] = p.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func envKey(preds []ty.Predicate, r Reveal) string {
	var b strings.Builder
	if r == All {
		b.WriteString("all|")
	}
	for _, p := range preds {
		b.WriteString(p.Key())
		b.WriteByte(';')
	}
	return b.String()
}
