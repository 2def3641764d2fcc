package wfcheck

import (
	"github.com/orizon-lang/wfcheck/internal/diagnostic"
	"github.com/orizon-lang/wfcheck/internal/hir"
	"github.com/orizon-lang/wfcheck/internal/traits"
	"github.com/orizon-lang/wfcheck/internal/ty"
)

// checkItemType checks a static, const or foreign static. The type must be
// Sized unless it is a foreign static ending in an extern type, and an
// immutable local static must be Sync.
func (ck *checker) checkItemType(st *hir.Static, sink diagnostic.Sink) {
	ck.enter(st.Def, sink, func(s *session) []*ty.Ty {
		t := s.normalize(st.Ty)

		forbidUnsized := true
		if st.Kind == hir.ItemForeignStatic {
			if tail := ck.structTail(ty.EraseRegions.FoldTy(t)); tail.Kind == ty.Foreign {
				forbidUnsized = false
			}
		}

		s.registerWF(t, st.TySpan, traits.WellFormedCause)
		if forbidUnsized {
			s.registerLang(hir.LangSized, t, traits.Cause{Span: st.TySpan, Code: traits.StaticSized})
		}
		if st.Kind == hir.ItemStatic && !st.Mutable && !st.ThreadLocal {
			s.registerLang(hir.LangSync, t, traits.Cause{Span: st.TySpan, Code: traits.SharedStatic})
		}
		return nil
	})
}

// structTail returns the type that decides whether t is sized: the last
// field of a struct or the last element of a tuple, recursively.
func (ck *checker) structTail(t *ty.Ty) *ty.Ty {
	for i := 0; i < ck.solver.RecursionLimit(); i++ {
		switch t.Kind {
		case ty.Adt:
			a := ck.crate.Adt(t.Def)
			if a == nil || a.Kind != hir.Struct || len(a.Variants) == 0 || len(a.Variants[0].Fields) == 0 {
				return t
			}
			fields := a.Variants[0].Fields
			t = ty.Subst(t.Args).FoldTy(fields[len(fields)-1].Ty)
		case ty.Tuple:
			if len(t.Elems) == 0 {
				return t
			}
			t = t.Elems[len(t.Elems)-1]
		default:
			return t
		}
	}
	return t
}
