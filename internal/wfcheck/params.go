package wfcheck

import (
	"fmt"

	"github.com/orizon-lang/wfcheck/internal/diagnostic"
	"github.com/orizon-lang/wfcheck/internal/features"
	"github.com/orizon-lang/wfcheck/internal/hir"
	"github.com/orizon-lang/wfcheck/internal/ty"
)

// checkParamsWF checks the types of the const parameters n declares.
func (ck *checker) checkParamsWF(n hir.Node, sink diagnostic.Sink) {
	for _, p := range n.Generics().Params {
		if p.Kind == hir.ConstParam && p.ConstTy != nil {
			ck.checkConstParamTy(n.ID(), p, sink)
		}
	}
}

func (ck *checker) checkConstParamTy(def ty.DefID, p *hir.GenericParam, sink diagnostic.Sink) {
	t := p.ConstTy
	span := p.ConstTySpan

	if !ck.features.Enabled(features.AdtConstParams) {
		switch t.Kind {
		case ty.Bool, ty.Char, ty.Int, ty.Uint, ty.Error:
		case ty.FnPtr:
			ck.emit(sink, def, diagnostic.Errorf(span, "using function pointers as const generic parameters is forbidden"))
		case ty.RawPtr:
			ck.emit(sink, def, diagnostic.Errorf(span, "using raw pointers as const generic parameters is forbidden"))
		default:
			ck.emit(sink, def, diagnostic.Errorf(span, "`%s` is forbidden as the type of a const generic parameter", t).
				Note("the only supported types are integers, `bool` and `char`").
				Help("more complex types are supported with the `%s` feature", features.AdtConstParams))
		}
		return
	}

	switch t.PeelRefs().Kind {
	case ty.FnPtr:
		ck.emit(sink, def, diagnostic.Errorf(span, "using function pointers as const generic parameters is forbidden"))
		return
	case ty.RawPtr:
		ck.emit(sink, def, diagnostic.Errorf(span, "using raw pointers as const generic parameters is forbidden"))
		return
	}

	v := ck.structuralMatchViolation(t)
	if v == nil {
		return
	}
	if t.PeelRefs().Kind == ty.Param {
		ck.emit(sink, def, diagnostic.Errorf(span,
			"`%s` is not guaranteed to `#[derive(PartialEq, Eq)]`, so may not be used as the type of a const parameter", t).
			Code("E0741").
			Primary(fmt.Sprintf("`%s` may not derive both `PartialEq` and `Eq`", t)).
			Note("it is not currently possible to use a type parameter as the type of a const parameter"))
		return
	}
	b := diagnostic.Errorf(span, "`%s` must be annotated with `#[derive(PartialEq, Eq)]` to be used as the type of a const parameter", v).
		Code("E0741")
	if ty.Equal(v, t) {
		b.Primary(fmt.Sprintf("`%s` doesn't derive both `PartialEq` and `Eq`", v))
	}
	ck.emit(sink, def, b)
}

// structuralMatchViolation returns the first type inside t whose equality
// is not structural, or nil. Parameters always violate since nothing is
// known about them.
func (ck *checker) structuralMatchViolation(t *ty.Ty) *ty.Ty {
	seen := make(map[ty.DefID]bool)
	var search func(t *ty.Ty) *ty.Ty
	search = func(t *ty.Ty) *ty.Ty {
		switch t.Kind {
		case ty.Bool, ty.Char, ty.Int, ty.Uint, ty.Str, ty.Never, ty.Error, ty.FnPtr, ty.RawPtr:
			return nil
		case ty.Ref, ty.Slice, ty.Array:
			return search(t.Elem)
		case ty.Tuple:
			for _, e := range t.Elems {
				if v := search(e); v != nil {
					return v
				}
			}
			return nil
		case ty.Adt:
			if ck.crate.IsLang(t.Def, hir.LangPhantomData) {
				return nil
			}
			a := ck.crate.Adt(t.Def)
			if a == nil || !a.StructuralMatch() {
				return t
			}
			if seen[t.Def] {
				return nil
			}
			seen[t.Def] = true
			subst := ty.Subst(t.Args)
			for _, f := range a.Fields() {
				if v := search(subst.FoldTy(f.Ty)); v != nil {
					return v
				}
			}
			return nil
		}
		return t
	}
	return search(t)
}
