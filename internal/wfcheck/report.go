package wfcheck

import (
	"fmt"

	"github.com/orizon-lang/wfcheck/internal/diagnostic"
	"github.com/orizon-lang/wfcheck/internal/features"
	"github.com/orizon-lang/wfcheck/internal/hir"
	"github.com/orizon-lang/wfcheck/internal/regions"
	"github.com/orizon-lang/wfcheck/internal/traits"
	"github.com/orizon-lang/wfcheck/internal/ty"
)

func (s *session) reportFulfillmentError(e traits.Error) {
	o := e.Obligation
	p := o.Pred
	span := o.Cause.Span

	var b *diagnostic.DiagnosticBuilder
	switch {
	case e.Overflow:
		b = diagnostic.Errorf(span, "overflow evaluating the requirement `%s`", p).
			Code("E0275").
			Help("consider increasing the recursion limit (currently %d)", s.ck.solver.RecursionLimit())
	case p.Kind == ty.PredTrait:
		b = s.unsatisfiedTrait(o)
	case p.Kind == ty.PredProjection:
		b = diagnostic.Errorf(span, "type mismatch resolving `%s`", p).Code("E0271")
	case p.Kind == ty.PredObjectSafe:
		b = diagnostic.Errorf(span, "the trait `%s` cannot be made into an object", p.Trait.Name).
			Code("E0038").
			Primary(fmt.Sprintf("`%s` cannot be made into an object", p.Trait.Name))
		for _, v := range s.ck.solver.ObjectSafetyViolations(p.Trait.Def) {
			b.Label(v.Span, "...because "+v.String())
		}
	case p.Kind == ty.PredConstEvaluatable && p.Const != nil && len(p.Const.Params) > 0:
		b = diagnostic.Errorf(span, "unconstrained generic constant").
			Help("try adding a `where` bound using this expression: `where [(); %s]:`", p.Const)
	case p.Kind == ty.PredConstEvaluatable:
		b = diagnostic.Errorf(span, "evaluation of constant value failed").Code("E0080")
	case p.Kind == ty.PredEquate:
		b = diagnostic.Errorf(span, "mismatched types").
			Code("E0308").
			Primary(fmt.Sprintf("expected `%s`, found `%s`", p.Ty, p.Term))
	default:
		b = diagnostic.Errorf(span, "the requirement `%s` is not satisfied", p)
	}

	if note := o.Cause.Note(); note != "" {
		b.Note("%s", note)
	}
	if o.Cause.Code == traits.TrivialBound {
		b.Help("add `%s` to the crate features to allow bounds that do not depend on a parameter", features.TrivialBounds)
	}
	if r := e.Root.Pred; r.Kind == ty.PredWellFormed && !r.Equal(p) {
		b.Note("required for `%s` to be well-formed", r.Arg)
	}
	s.emit(b)
}

func (s *session) unsatisfiedTrait(o traits.Obligation) *diagnostic.DiagnosticBuilder {
	tr := o.Pred.Trait
	self := tr.SelfTy()
	span := o.Cause.Span
	c := s.ck.crate

	var b *diagnostic.DiagnosticBuilder
	switch {
	case c.IsLang(tr.Def, hir.LangSized):
		b = diagnostic.Errorf(span, "the size for values of type `%s` cannot be known at compilation time", self).
			Code("E0277").
			Primary("doesn't have a size known at compile-time").
			Help("the trait `Sized` is not implemented for `%s`", self)
	case c.IsLang(tr.Def, hir.LangSync):
		b = diagnostic.Errorf(span, "`%s` cannot be shared between threads safely", self).
			Code("E0277").
			Primary(fmt.Sprintf("`%s` cannot be shared between threads safely", self)).
			Help("the trait `%s` is not implemented for `%s`", tr, self)
	case c.IsLang(tr.Def, hir.LangSend):
		b = diagnostic.Errorf(span, "`%s` cannot be sent between threads safely", self).
			Code("E0277").
			Primary(fmt.Sprintf("`%s` cannot be sent between threads safely", self)).
			Help("the trait `%s` is not implemented for `%s`", tr, self)
	default:
		b = diagnostic.Errorf(span, "the trait bound `%s` is not satisfied", o.Pred).
			Code("E0277").
			Primary(fmt.Sprintf("the trait `%s` is not implemented for `%s`", tr, self))
	}

	if self != nil && self.Kind == ty.Param && o.Cause.Code != traits.TrivialBound && s.gen.Lookup(self.Name) != nil {
		b.SuggestInsert(fmt.Sprintf("consider restricting type parameter `%s`", self), s.gen.Tail,
			fmt.Sprintf(" %s %s", s.gen.WhereOrComma(), o.Pred), diagnostic.MaybeIncorrect)
	}
	return b
}

func (s *session) reportRegionError(e regions.RegionError) {
	b := diagnostic.Errorf(e.Cause.Span, "%s", e.Message()).Code(e.Code()).Primary(e.Label())
	bound := e.SuggestedBound()
	if s.nameable(bound) {
		title := fmt.Sprintf("consider adding the bound `%s`", bound)
		if e.Kind == regions.GenericBoundFailure {
			title = fmt.Sprintf("consider adding an explicit lifetime bound `%s`...", bound)
		}
		b.SuggestInsert(title, s.gen.Tail, fmt.Sprintf(" %s %s", s.gen.WhereOrComma(), bound), diagnostic.MaybeIncorrect)
	}
	if note := e.Cause.Note(); note != "" {
		b.Note("%s", note)
	}
	s.emit(b)
}

// nameable reports whether p can be written in the declaration's where
// clause: every region it mentions is a parameter or 'static.
func (s *session) nameable(p ty.Predicate) bool {
	ok := func(r ty.Region) bool { return r.Kind == ty.ReEarlyBound || r.IsStatic() }
	switch p.Kind {
	case ty.PredRegionOutlives:
		return ok(p.Region) && ok(p.Sub)
	case ty.PredTypeOutlives:
		if !ok(p.Region) {
			return false
		}
		for _, r := range ty.Regions(p.Ty) {
			if !ok(r) {
				return false
			}
		}
		return true
	}
	return false
}
