package wfcheck

import (
	"github.com/orizon-lang/wfcheck/internal/diagnostic"
	"github.com/orizon-lang/wfcheck/internal/hir"
	"github.com/orizon-lang/wfcheck/internal/ty"
)

// checkTrait checks a trait or trait alias declaration. Marker traits may
// not have items; the missing-bounds check of generic associated types
// runs here, once per trait.
func (ck *checker) checkTrait(t *hir.Trait, sink diagnostic.Sink) {
	if t.Marker {
		for _, it := range t.Items {
			ck.emit(sink, t.Def, diagnostic.Errorf(it.IdentSpan, "marker traits cannot have associated items").Code("E0714"))
		}
	}

	ck.enter(t.Def, sink, func(s *session) []*ty.Ty {
		s.checkWhereClauses()
		return nil
	})

	if !t.Alias {
		ck.checkGATWhereClauses(t, sink)
	}
}

// checkTraitItem checks an item declared in a trait.
func (ck *checker) checkTraitItem(it *hir.AssocItem, sink diagnostic.Sink) {
	t := ck.crate.Trait(it.Container)
	if t == nil {
		return
	}
	ck.checkObjectUnsafeSelfTraitByName(t, it, sink)
	ck.checkAssociatedItem(it, sink)
	if ck.crate.IsLang(t.Def, hir.LangFn) || ck.crate.IsLang(t.Def, hir.LangFnMut) {
		ck.checkCallLangItem(t, it, sink)
	}
}

// checkObjectUnsafeSelfTraitByName flags items that spell their own trait
// as a bare trait object where `Self` was probably meant. Object-safe
// traits are left alone since the trait object type is legitimate there.
func (ck *checker) checkObjectUnsafeSelfTraitByName(t *hir.Trait, it *hir.AssocItem, sink diagnostic.Sink) {
	if len(it.SelfObjectSpans) == 0 || len(ck.solver.ObjectSafetyViolations(t.Def)) == 0 {
		return
	}
	b := diagnostic.Errorf(it.SelfObjectSpans[0], "associated item referring to unboxed trait object for its own trait").
		Label(t.IdentSpan, "in this trait")
	edits := make([]diagnostic.TextEdit, len(it.SelfObjectSpans))
	for i, sp := range it.SelfObjectSpans {
		if i > 0 {
			b.Label(sp, "")
		}
		edits[i] = diagnostic.TextEdit{Span: sp, NewText: "Self"}
	}
	b.Suggest("you might have meant to use `Self` to refer to the implementing type", diagnostic.MachineApplicable, edits...)
	ck.emit(sink, it.Def, b)
}

// checkCallLangItem checks the `call` item of the function lang traits.
func (ck *checker) checkCallLangItem(t *hir.Trait, it *hir.AssocItem, sink diagnostic.Sink) {
	if it.Ident != "call" {
		return
	}
	lang := t.Lang
	switch {
	case it.Kind != hir.AssocFn:
		ck.emit(sink, it.Def, diagnostic.Errorf(it.Span(), "`call` trait item in `%s` lang item must be a function", lang))
	case len(it.Sig.Inputs) != 2:
		ck.emit(sink, it.Def, diagnostic.Errorf(it.IdentSpan, "`call` function in `%s` lang item takes exactly two arguments", lang))
	case !it.Sig.InputRefs[0]:
		ck.emit(sink, it.Def, diagnostic.Errorf(it.Sig.InputSpans[0], "first argument of `call` in `%s` lang item must be a reference", lang))
	}
}
