package traits

import (
	"github.com/orizon-lang/wfcheck/internal/hir"
	"github.com/orizon-lang/wfcheck/internal/ty"
)

// NeedsDropCopy reports whether dropping a value of type t may run code.
// Copy types never do; generic types that are not known to be Copy are
// assumed to.
func (s *Solver) NeedsDropCopy(env *ParamEnv, t *ty.Ty) bool {
	return s.needsDrop(env, s.Normalize(env, t), map[string]bool{})
}

func (s *Solver) needsDrop(env *ParamEnv, t *ty.Ty, visiting map[string]bool) bool {
	switch t.Kind {
	case ty.Bool, ty.Char, ty.Int, ty.Uint, ty.Float, ty.Str, ty.Never,
		ty.Ref, ty.RawPtr, ty.FnPtr, ty.Error:
		return false
	case ty.Slice, ty.Array:
		return s.needsDrop(env, t.Elem, visiting)
	case ty.Tuple:
		for _, el := range t.Elems {
			if s.needsDrop(env, el, visiting) {
				return true
			}
		}
		return false
	}

	if p, ok := s.LangPredicate(hir.LangCopy, t); ok && s.Evaluate(env, p) {
		return false
	}
	if t.Kind != ty.Adt {
		return true
	}

	key := t.Key()
	if visiting[key] {
		return false
	}
	visiting[key] = true
	defer delete(visiting, key)

	a := s.crate.Adt(t.Def)
	if a == nil || s.crate.IsLang(a.Def, hir.LangOwnedBox) || s.hasDropImpl(a.Def) {
		return true
	}
	if a.Kind == hir.Union {
		return false
	}
	for _, f := range a.Fields() {
		if s.needsDrop(env, ty.Subst(t.Args).FoldTy(f.Ty), visiting) {
			return true
		}
	}
	return false
}

func (s *Solver) hasDropImpl(adt ty.DefID) bool {
	drop, ok := s.crate.LangItem(hir.LangDrop)
	if !ok {
		return false
	}
	for _, im := range s.crate.ImplsOf(drop) {
		if im.SelfTy != nil && im.SelfTy.Kind == ty.Adt && im.SelfTy.Def == adt {
			return true
		}
	}
	return false
}
