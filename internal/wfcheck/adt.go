package wfcheck

import (
	"github.com/orizon-lang/wfcheck/internal/diagnostic"
	"github.com/orizon-lang/wfcheck/internal/hir"
	"github.com/orizon-lang/wfcheck/internal/traits"
	"github.com/orizon-lang/wfcheck/internal/ty"
	"github.com/orizon-lang/wfcheck/internal/variance"
)

// checkTypeDefn checks a struct, union or enum. Every field must be
// well-formed and every field but the last of a struct must be Sized.
// A type definition implies nothing about its parameters.
func (ck *checker) checkTypeDefn(a *hir.Adt, sink diagnostic.Sink) {
	ck.enter(a.Def, sink, func(s *session) []*ty.Ty {
		for _, v := range a.Variants {
			fields := make([]*ty.Ty, len(v.Fields))
			for i, f := range v.Fields {
				fields[i] = s.normalize(f.Ty)
			}

			// Unions and enums keep every field sized. A packed struct can
			// only leave its tail unsized when dropping it needs no copy.
			allSized := a.Kind != hir.Struct || len(fields) == 0
			if !allSized && a.Packed {
				allSized = ck.solver.NeedsDropCopy(s.env, ty.EraseRegions.FoldTy(fields[len(fields)-1]))
			}
			sized := len(fields)
			if !allSized {
				sized--
			}
			for i := 0; i < sized; i++ {
				s.registerLang(hir.LangSized, fields[i], traits.Cause{
					Span:       v.Fields[i].Span,
					Code:       traits.FieldSized,
					FieldIndex: i,
					LastField:  i == len(fields)-1,
				})
			}

			for i, f := range v.Fields {
				s.registerWF(fields[i], f.Span, traits.WellFormedCause)
			}

			if v.Discr != nil {
				s.register(traits.MiscCause(v.DiscrSpan), ty.ConstEvaluatable(v.Discr))
			}
		}
		s.checkWhereClauses()
		return nil
	})
	ck.checkVariances(a, sink)
}

// checkVariances reports parameters that are neither used with a variance
// nor constrained by a projection predicate.
func (ck *checker) checkVariances(a *hir.Adt, sink diagnostic.Sink) {
	for _, f := range a.Fields() {
		if ty.ReferencesError(f.Ty) {
			return
		}
	}

	var preds []ty.Predicate
	for _, p := range ck.crate.OwnPredicates(a.Def) {
		preds = append(preds, p.Pred)
	}
	constrained := variance.Constrained(preds, variance.UsedParams(ck.variance.Of(a.Def)))

	for _, p := range a.Generics().Params {
		if constrained[p.Index] || p.Kind == hir.ConstParam {
			continue
		}
		ck.reportUnusedParam(a, p, sink)
	}
}

func (ck *checker) reportUnusedParam(a *hir.Adt, p *hir.GenericParam, sink diagnostic.Sink) {
	b := diagnostic.Errorf(p.Span, "parameter `%s` is never used", p.Name).
		Code("E0392").
		Primary("unused parameter")

	if def, ok := ck.crate.LangItem(hir.LangPhantomData); ok {
		name := "PhantomData"
		if m := ck.crate.Adt(def); m != nil {
			name = m.Ident
		}
		b.Help("consider removing `%s`, referring to it in a field, or using a marker such as `%s`", p.Name, name)
	} else {
		b.Help("consider removing `%s` or referring to it in a field", p.Name)
	}

	if p.Kind == hir.TypeParam && !p.ExplicitBounds {
		b.Help("if you intended `%s` to be a const parameter, use `const %s: usize` instead", p.Name, p.Name)
	}
	ck.emit(sink, a.Def, b)
}
