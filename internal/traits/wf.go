package traits

import (
	"github.com/orizon-lang/wfcheck/internal/hir"
	"github.com/orizon-lang/wfcheck/internal/ty"
)

// WFObligations returns what arg needs to be well-formed, one level deep:
// nested types come back as further WellFormed predicates.
func (s *Solver) WFObligations(arg ty.GenericArg) []ty.Predicate {
	switch arg.Kind {
	case ty.ArgType:
		return s.wfTy(arg.Ty)
	case ty.ArgConst:
		if c := arg.Const; c != nil && c.Kind == ty.ConstUnevaluated {
			return []ty.Predicate{ty.ConstEvaluatable(c)}
		}
	}
	return nil
}

func (s *Solver) wfTy(t *ty.Ty) []ty.Predicate {
	var out []ty.Predicate
	wf := func(t *ty.Ty) { out = append(out, ty.WellFormed(ty.TypeArg(t))) }
	sized := func(t *ty.Ty) {
		if p, ok := s.LangPredicate(hir.LangSized, t); ok {
			out = append(out, p)
		}
	}
	wfArgs := func(args []ty.GenericArg) {
		for _, a := range args {
			if a.Kind != ty.ArgRegion {
				out = append(out, ty.WellFormed(a))
			}
		}
	}

	switch t.Kind {
	case ty.Slice:
		sized(t.Elem)
		wf(t.Elem)
	case ty.Array:
		sized(t.Elem)
		wf(t.Elem)
		if t.Len != nil && t.Len.Kind == ty.ConstUnevaluated {
			out = append(out, ty.ConstEvaluatable(t.Len))
		}
	case ty.Tuple:
		for i, el := range t.Elems {
			if i < len(t.Elems)-1 {
				sized(el)
			}
		}
		for _, el := range t.Elems {
			wf(el)
		}
	case ty.RawPtr:
		wf(t.Elem)
	case ty.Ref:
		out = append(out, ty.TypeOutlives(t.Elem, t.Region))
		wf(t.Elem)
	case ty.FnPtr:
		for _, in := range t.Elems {
			wf(in)
		}
		if t.Output != nil {
			wf(t.Output)
		}
	case ty.Adt, ty.Projection:
		out = append(out, s.NominalObligations(t.Def, t.Args)...)
		wfArgs(t.Args)
	case ty.Dynamic:
		out = append(out, ty.ObjectSafe(t.Trait, t.TraitName))
		wfArgs(t.Args)
	}
	return out
}

// NominalObligations returns the predicates of def instantiated with args.
func (s *Solver) NominalObligations(def ty.DefID, args []ty.GenericArg) []ty.Predicate {
	var out []ty.Predicate
	for _, p := range s.crate.PredicatesOf(def) {
		out = append(out, ty.Subst(args).FoldPredicate(p.Pred))
	}
	return out
}

// PredicateObligations returns what a predicate needs to be well-formed.
func (s *Solver) PredicateObligations(p ty.Predicate) []ty.Predicate {
	var out []ty.Predicate
	wfArgs := func(args []ty.GenericArg) {
		for _, a := range args {
			if a.Kind != ty.ArgRegion {
				out = append(out, ty.WellFormed(a))
			}
		}
	}
	switch p.Kind {
	case ty.PredTrait:
		for _, q := range s.NominalObligations(p.Trait.Def, p.Trait.Args) {
			if !q.Equal(p) {
				out = append(out, q)
			}
		}
		wfArgs(p.Trait.Args)
	case ty.PredProjection:
		wfArgs(p.Projection.Args)
		out = append(out, ty.WellFormed(ty.TypeArg(p.Term)))
	case ty.PredTypeOutlives:
		out = append(out, ty.WellFormed(ty.TypeArg(p.Ty)))
	case ty.PredWellFormed:
		out = append(out, s.WFObligations(p.Arg)...)
	case ty.PredEquate:
		out = append(out, ty.WellFormed(ty.TypeArg(p.Ty)), ty.WellFormed(ty.TypeArg(p.Term)))
	case ty.PredConstEvaluatable:
		out = append(out, ty.WellFormed(ty.ConstArg(p.Const)))
	}
	return out
}

// Elaborate returns preds followed by everything their traits imply about
// the same self type: supertraits and outlives bounds on Self, transitively.
func (s *Solver) Elaborate(preds []ty.Predicate) []ty.Predicate {
	set := ty.NewPredicateSet(preds...)
	queue := append([]ty.Predicate(nil), set.Items()...)
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		if p.Kind != ty.PredTrait || s.crate.Trait(p.Trait.Def) == nil {
			continue
		}
		for _, sp := range s.crate.OwnPredicates(p.Trait.Def) {
			if sp.Implicit || !onSelf(sp.Pred) {
				continue
			}
			q := ty.Subst(p.Trait.Args).FoldPredicate(sp.Pred)
			if set.Insert(q) {
				queue = append(queue, q)
			}
		}
	}
	return set.Items()
}

// onSelf reports whether a trait's predicate constrains Self.
func onSelf(p ty.Predicate) bool {
	isSelf := func(t *ty.Ty) bool { return t != nil && t.Kind == ty.Param && t.Index == 0 }
	switch p.Kind {
	case ty.PredTrait:
		return isSelf(p.Trait.SelfTy())
	case ty.PredTypeOutlives:
		return isSelf(p.Ty)
	case ty.PredProjection:
		return isSelf(p.Projection.SelfTy())
	}
	return false
}

// ImpliedOutlives returns the outlives facts that follow from t being
// well-formed, found by expanding WF obligations transitively.
func (s *Solver) ImpliedOutlives(env *ParamEnv, t *ty.Ty) []ty.Predicate {
	e := s.newEvaluator(env)
	set := ty.NewPredicateSet()
	seen := map[string]bool{}
	queue := []ty.GenericArg{ty.TypeArg(e.normalize(t, 0))}
	for len(queue) > 0 {
		arg := queue[0]
		queue = queue[1:]
		k := arg.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		for _, p := range s.WFObligations(arg) {
			switch p.Kind {
			case ty.PredTypeOutlives:
				set.Insert(ty.TypeOutlives(e.normalize(p.Ty, 0), p.Region))
			case ty.PredRegionOutlives:
				set.Insert(p)
			case ty.PredWellFormed:
				a := p.Arg
				if a.Kind == ty.ArgType {
					a = ty.TypeArg(e.normalize(a.Ty, 0))
				}
				queue = append(queue, a)
			}
		}
	}
	return set.Items()
}
