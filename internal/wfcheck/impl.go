package wfcheck

import (
	"github.com/orizon-lang/wfcheck/internal/diagnostic"
	"github.com/orizon-lang/wfcheck/internal/hir"
	"github.com/orizon-lang/wfcheck/internal/traits"
	"github.com/orizon-lang/wfcheck/internal/ty"
)

// checkImplItem checks an impl header. Reservation impls never hold and
// are not checked.
func (ck *checker) checkImplItem(im *hir.Impl, sink diagnostic.Sink) {
	if im.Default && im.TraitRef != nil {
		if t := ck.crate.Trait(im.TraitRef.Def); t != nil && t.Auto {
			ck.emit(sink, im.Def, diagnostic.Errorf(im.TraitSpan, "impls of auto traits cannot be default").
				Label(im.DefaultSpan, "default because of this").
				Primary("auto trait"))
		}
	}

	switch im.Polarity {
	case hir.Positive:
		ck.checkImpl(im, sink)
	case hir.Negative:
		if im.Default {
			ck.emit(sink, im.Def, diagnostic.Errorf(im.PolaritySpan, "negative impls cannot be default impls").
				Code("E0750").
				Label(im.DefaultSpan, ""))
		}
	}
}

func (ck *checker) checkImpl(im *hir.Impl, sink diagnostic.Sink) {
	ck.enter(im.Def, sink, func(s *session) []*ty.Ty {
		if im.TraitRef != nil {
			tr := s.normalizeTraitRef(*im.TraitRef)
			cause := traits.Cause{Span: im.TraitSpan, Code: traits.WellFormedCause}
			s.registerObligationsOf(ty.TraitPred(tr), cause)
		} else {
			s.registerWF(s.normalize(im.SelfTy), im.SelfSpan, traits.WellFormedCause)
		}
		s.checkWhereClauses()
		return s.implImpliedBounds(im)
	})
}

// implImpliedBounds returns the types an impl may assume well-formed: the
// arguments of its trait reference, or its self type.
func (s *session) implImpliedBounds(im *hir.Impl) []*ty.Ty {
	if im.TraitRef != nil {
		return s.normalizeTraitRef(*im.TraitRef).Types()
	}
	return []*ty.Ty{s.normalize(im.SelfTy)}
}

func (s *session) normalizeTraitRef(tr ty.TraitRef) ty.TraitRef {
	return s.ck.solver.NormalizePredicate(s.env, ty.TraitPred(tr)).Trait
}

// checkAssociatedItem checks an associated const, function or type of a
// trait or an impl.
func (ck *checker) checkAssociatedItem(it *hir.AssocItem, sink diagnostic.Sink) {
	ck.enter(it.Def, sink, func(s *session) []*ty.Ty {
		var implied []*ty.Ty
		var selfTy *ty.Ty
		var im *hir.Impl
		if it.InTrait {
			selfTy = ty.NewParam("Self", 0)
		} else {
			im = ck.crate.Impl(it.Container)
			if im == nil {
				return nil
			}
			implied = s.implImpliedBounds(im)
			selfTy = im.SelfTy
		}

		switch it.Kind {
		case hir.AssocConst:
			s.registerWF(s.normalize(it.Ty), it.TySpan, traits.WellFormedCause)
		case hir.AssocFn:
			implied = append(implied, s.checkFnOrMethod(it.Sig)...)
			s.checkMethodReceiver(it.Sig, selfTy)
		case hir.AssocType:
			if it.InTrait {
				s.checkAssociatedTypeBounds(it)
			} else {
				s.checkImplTypeValue(im, it)
			}
			s.checkWhereClauses()
			if it.Ty != nil {
				s.registerWF(s.normalize(it.Ty), it.TySpan, traits.WellFormedCause)
			}
		}
		return implied
	})
}

// checkAssociatedTypeBounds requires every declared bound of a trait's
// associated type to be well-formed.
func (s *session) checkAssociatedTypeBounds(it *hir.AssocItem) {
	for _, b := range it.Bounds {
		norm := s.ck.solver.NormalizePredicate(s.env, b.Pred)
		s.registerObligationsOf(norm, traits.Cause{Span: b.Span, Code: traits.WellFormedCause})
	}
}

// checkImplTypeValue requires the value of an impl's associated type to
// meet the bounds the trait declares for it.
func (s *session) checkImplTypeValue(im *hir.Impl, it *hir.AssocItem) {
	if im.TraitRef == nil || it.Ty == nil {
		return
	}
	decl := s.ck.crate.AssocNamed(im.TraitRef.Def, it.Ident, hir.AssocType)
	if decl == nil {
		return
	}
	// Trait arguments first, then the item's own parameters.
	args := append([]ty.GenericArg(nil), im.TraitRef.Args...)
	for _, p := range it.Generics().Params {
		args = append(args, p.Arg())
	}
	if len(args) != decl.Generics().Count() {
		return
	}
	subst := ty.Subst(args)
	for _, b := range decl.Bounds {
		p := s.ck.solver.NormalizePredicate(s.env, subst.FoldPredicate(b.Pred))
		s.register(traits.Cause{Span: it.TySpan, Code: traits.AssocTypeBound, Item: decl.Def}, p)
	}
}
