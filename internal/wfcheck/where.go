package wfcheck

import (
	"github.com/orizon-lang/wfcheck/internal/traits"
	"github.com/orizon-lang/wfcheck/internal/ty"
)

// checkWhereClauses checks the defaults of the declaration's own
// parameters and the well-formedness of its declared predicates.
//
// A default is checked on its own when it does not depend on other
// parameters. Then each predicate that mentions exactly one parameter and
// no region is instantiated with the defaults; when the result is fully
// concrete and not already declared, it has to hold. For
// `struct Foo<T: Copy = String>` this rejects the default.
func (s *session) checkWhereClauses() {
	own := s.ck.crate.OwnPredicates(s.def)

	for _, p := range s.gen.Params {
		switch {
		case p.Default != nil && !ty.NeedsSubst(p.Default):
			s.registerWF(p.Default, p.Span, traits.WellFormedCause)
		case p.ConstDefault != nil && !ty.ConstNeedsSubst(p.ConstDefault):
			s.register(traits.Cause{Span: p.Span, Code: traits.WellFormedCause}, ty.WellFormed(ty.ConstArg(p.ConstDefault)))
		}
	}

	args := s.gen.Identity()
	pc := s.gen.ParentCount()
	for _, p := range s.gen.Params {
		switch {
		case p.Default != nil && !ty.NeedsSubst(p.Default):
			args[p.Index] = ty.TypeArg(p.Default)
		case p.ConstDefault != nil && !ty.ConstNeedsSubst(p.ConstDefault):
			args[p.Index] = ty.ConstArg(p.ConstDefault)
		}
	}
	subst := ty.Subst(args)

	declared := ty.NewPredicateSet()
	for _, p := range own {
		declared.Insert(p.Pred)
	}
	for _, p := range own {
		if ty.PredicateHasRegions(p.Pred) || len(ty.ParamIndices(p.Pred)) > 1 {
			continue
		}
		mentionsOwn := false
		for idx := range ty.ParamIndices(p.Pred) {
			if idx >= pc {
				mentionsOwn = true
			}
		}
		if !mentionsOwn {
			continue
		}
		inst := subst.FoldPredicate(p.Pred)
		if ty.PredicateHasParamTypesOrConsts(inst) || declared.Contains(inst) {
			continue
		}
		cause := traits.Cause{Span: p.Span, Code: traits.DefaultBound, Item: s.def}
		s.register(cause, s.ck.solver.NormalizePredicate(s.env, inst))
	}

	for _, p := range own {
		norm := s.ck.solver.NormalizePredicate(s.env, p.Pred)
		s.registerObligationsOf(norm, traits.Cause{Span: p.Span, Code: traits.WellFormedCause})
	}
}

// checkFalseGlobalBounds requires every declared predicate that mentions
// no parameter, supertraits included, to hold in an empty environment.
// `where i32: Iterator` can never be satisfied by a caller.
func (s *session) checkFalseGlobalBounds() {
	empty := traits.EmptyEnv()
	for _, p := range s.ck.crate.OwnPredicates(s.def) {
		for _, q := range s.ck.solver.Elaborate([]ty.Predicate{p.Pred}) {
			if !ty.PredicateIsGlobal(q) || ty.PredicateHasLateBound(q) {
				continue
			}
			q = s.ck.solver.NormalizePredicate(empty, q)
			s.fcx.Register(traits.NewObligation(empty, traits.Cause{Span: p.Span, Code: traits.TrivialBound}, q))
		}
	}
}
