package traits

import (
	"github.com/orizon-lang/wfcheck/internal/hir"
	"github.com/orizon-lang/wfcheck/internal/ty"
)

// DerefKind says how one autoderef step was taken.
type DerefKind uint8

const (
	BuiltinDeref DerefKind = iota
	OverloadedDeref
)

// DerefStep is one completed autoderef step from Ty.
type DerefStep struct {
	Ty   *ty.Ty
	Kind DerefKind
}

// Autoderef iterates a type and its successive dereferences. The first
// call to Next yields the starting type.
type Autoderef struct {
	s       *Solver
	e       *evaluator
	cur     *ty.Ty
	started bool
	rawPtrs bool

	steps       []DerefStep
	obligations []ty.Predicate
	limitHit    bool
}

// Autoderef starts an autoderef sequence at t. With rawPtrs set, raw
// pointers are dereferenced too.
func (s *Solver) Autoderef(env *ParamEnv, t *ty.Ty, rawPtrs bool) *Autoderef {
	e := s.newEvaluator(env)
	return &Autoderef{s: s, e: e, cur: e.normalize(t, 0), rawPtrs: rawPtrs}
}

// Next advances the sequence and returns the current type.
func (a *Autoderef) Next() (*ty.Ty, bool) {
	if !a.started {
		a.started = true
		return a.cur, true
	}
	if a.limitHit {
		return nil, false
	}
	if len(a.steps) >= a.s.limit {
		a.limitHit = true
		return nil, false
	}

	var next *ty.Ty
	kind := BuiltinDeref
	switch {
	case a.cur.Kind == ty.Ref:
		next = a.cur.Elem
	case a.cur.Kind == ty.RawPtr && a.rawPtrs:
		next = a.cur.Elem
	default:
		next = a.overloaded()
		kind = OverloadedDeref
	}
	if next == nil {
		return nil, false
	}
	a.steps = append(a.steps, DerefStep{Ty: a.cur, Kind: kind})
	a.cur = next
	return next, true
}

// overloaded derefs through `Deref::Target`, recording the Deref bound.
func (a *Autoderef) overloaded() *ty.Ty {
	c := a.s.crate
	deref, ok := c.LangItem(hir.LangDeref)
	if !ok || a.cur.Kind == ty.RawPtr || a.cur.Kind == ty.Error {
		return nil
	}
	pred := a.s.langPred(hir.LangDeref, a.cur)
	if !a.s.Evaluate(a.e.env, pred) {
		return nil
	}
	target := c.AssocNamed(deref, "Target", hir.AssocType)
	if target == nil {
		return nil
	}
	proj := ty.NewProjection(target.Def, target.Ident, deref, pred.Trait.Name,
		[]ty.GenericArg{ty.TypeArg(a.cur)}, 1)
	n := a.e.normalize(proj, 0)
	if n.Kind == ty.Projection && n.Def == target.Def && ty.EqualModuloRegions(n.SelfTy(), a.cur) {
		return nil
	}
	a.obligations = append(a.obligations, pred)
	return n
}

// Steps returns the steps taken so far.
func (a *Autoderef) Steps() []DerefStep { return a.steps }

// Obligations returns the Deref bounds overloaded steps relied on.
func (a *Autoderef) Obligations() []ty.Predicate { return a.obligations }

// ReachedRecursionLimit reports whether iteration stopped at the limit.
func (a *Autoderef) ReachedRecursionLimit() bool { return a.limitHit }
