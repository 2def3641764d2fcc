// Package regions decides outlives relations between regions and types.
//
// An Environment holds the facts a declaration may assume: the outlives
// bounds of its parameter environment and those implied by types known to
// be well-formed. An InferCtxt collects outlives constraints against one
// environment and checks them in Resolve. Every InferCtxt is disposable;
// nothing is shared between two of them.
package regions

import (
	"github.com/orizon-lang/wfcheck/internal/traits"
	"github.com/orizon-lang/wfcheck/internal/ty"
)

// Environment is a set of assumed outlives facts.
type Environment struct {
	// edges[a] lists the regions a is known to outlive directly.
	edges map[ty.Region][]ty.Region
	// bounds holds `P: 'r` facts for parameters and projections.
	bounds []ty.Predicate
	solver *traits.Solver
	env    *traits.ParamEnv
}

// NewEnvironment builds the outlives environment for env, assuming every
// type in implied is well-formed.
func NewEnvironment(s *traits.Solver, env *traits.ParamEnv, implied []*ty.Ty) *Environment {
	e := &Environment{edges: make(map[ty.Region][]ty.Region), solver: s, env: env}
	for _, p := range env.CallerBounds() {
		e.add(p)
	}
	for _, t := range implied {
		for _, p := range s.ImpliedOutlives(env, t) {
			e.add(p)
		}
	}
	return e
}

func (e *Environment) add(p ty.Predicate) {
	switch p.Kind {
	case ty.PredRegionOutlives:
		e.addEdge(p.Region, p.Sub)
	case ty.PredTypeOutlives:
		for _, c := range Components(p.Ty) {
			switch c.Kind {
			case RegionComponent:
				e.addEdge(c.Region, p.Region)
			case ParamComponent, ProjectionComponent:
				e.bounds = append(e.bounds, ty.TypeOutlives(c.Ty, p.Region))
			}
		}
	}
}

func (e *Environment) addEdge(a, b ty.Region) {
	for _, x := range e.edges[a] {
		if x == b {
			return
		}
	}
	e.edges[a] = append(e.edges[a], b)
}

// RegionOutlives reports whether a: b follows from the environment.
func (e *Environment) RegionOutlives(a, b ty.Region) bool {
	if a == b || a.IsStatic() || trivialRegion(a) || trivialRegion(b) {
		return true
	}
	seen := map[ty.Region]bool{a: true}
	stack := []ty.Region{a}
	for len(stack) > 0 {
		r := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range e.edges[r] {
			if next == b || next.IsStatic() {
				return true
			}
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}

func trivialRegion(r ty.Region) bool {
	return r.Kind == ty.ReErased || r.Kind == ty.ReError
}

// TypeOutlives reports whether t: r follows from the environment.
func (e *Environment) TypeOutlives(t *ty.Ty, r ty.Region) bool {
	for _, c := range Components(t) {
		if !e.componentOutlives(c, r) {
			return false
		}
	}
	return true
}

func (e *Environment) componentOutlives(c Component, r ty.Region) bool {
	switch c.Kind {
	case RegionComponent:
		return e.RegionOutlives(c.Region, r)
	case ParamComponent:
		return e.boundedBy(c.Ty, r)
	case ProjectionComponent:
		if e.boundedBy(c.Ty, r) || e.itemBoundOutlives(c.Ty, r) {
			return true
		}
		// A projection outlives r when all of its arguments do.
		for _, a := range c.Ty.Args {
			switch a.Kind {
			case ty.ArgRegion:
				if !e.RegionOutlives(a.Region, r) {
					return false
				}
			case ty.ArgType:
				if !e.TypeOutlives(a.Ty, r) {
					return false
				}
			}
		}
		return true
	}
	return true
}

// boundedBy looks for `t: 'x` in the environment with 'x: r.
func (e *Environment) boundedBy(t *ty.Ty, r ty.Region) bool {
	for _, b := range e.bounds {
		if ty.Equal(b.Ty, t) && e.RegionOutlives(b.Region, r) {
			return true
		}
	}
	return false
}

// itemBoundOutlives uses `Self::Item: 'x` bounds declared on the
// associated type itself.
func (e *Environment) itemBoundOutlives(p *ty.Ty, r ty.Region) bool {
	for _, b := range e.solver.Crate().ItemBounds(p.Def) {
		if b.Pred.Kind != ty.PredTypeOutlives {
			continue
		}
		q := ty.Subst(p.Args).FoldPredicate(b.Pred)
		if ty.Equal(q.Ty, p) && e.RegionOutlives(q.Region, r) {
			return true
		}
	}
	return false
}
