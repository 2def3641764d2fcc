package traits

import (
	"github.com/orizon-lang/wfcheck/internal/hir"
	"github.com/orizon-lang/wfcheck/internal/ty"
)

// normalize resolves projections bottom-up. A projection that no impl or
// bound resolves is left in place.
func (e *evaluator) normalize(t *ty.Ty, depth int) *ty.Ty {
	if t == nil {
		return nil
	}
	return ty.Folder{Ty: func(u *ty.Ty) *ty.Ty {
		if u.Kind != ty.Projection {
			return nil
		}
		return e.project(e.normalizeArgsOf(u, depth), depth)
	}}.FoldTy(t)
}

func (e *evaluator) normalizeArgsOf(p *ty.Ty, depth int) *ty.Ty {
	n := *p
	n.Args = make([]ty.GenericArg, len(p.Args))
	for i, a := range p.Args {
		if a.Kind == ty.ArgType {
			a = ty.TypeArg(e.normalize(a.Ty, depth))
		}
		n.Args[i] = a
	}
	return &n
}

func (e *evaluator) normalizeTraitRef(tr ty.TraitRef, depth int) ty.TraitRef {
	out := ty.TraitRef{Def: tr.Def, Name: tr.Name, Args: make([]ty.GenericArg, len(tr.Args))}
	for i, a := range tr.Args {
		if a.Kind == ty.ArgType {
			a = ty.TypeArg(e.normalize(a.Ty, depth))
		}
		out.Args[i] = a
	}
	return out
}

// project resolves one projection whose arguments are already normalized.
func (e *evaluator) project(p *ty.Ty, depth int) *ty.Ty {
	if depth > e.s.limit || len(p.Args) == 0 {
		return p
	}
	tr := p.TraitRef()
	if self := tr.SelfTy(); self != nil && self.Kind == ty.Error {
		return ty.ErrorTy
	}

	for _, im := range e.c.ImplsOf(p.Trait) {
		if im.Polarity != hir.Positive {
			continue
		}
		args, ok := matchImpl(im, tr)
		if !ok {
			continue
		}
		item := e.c.AssocNamed(im.Def, p.Name, hir.AssocType)
		if item == nil || item.Ty == nil || !e.implHolds(im, args, depth) {
			continue
		}
		full := append(append([]ty.GenericArg{}, args...), p.OwnArgs()...)
		return e.normalize(ty.Subst(full).FoldTy(item.Ty), depth+1)
	}

	for _, b := range e.env.CallerBounds() {
		if b.Kind == ty.PredProjection && ty.EqualModuloRegions(b.Projection, p) {
			return e.normalize(b.Term, depth+1)
		}
	}

	if self := tr.SelfTy(); self != nil && self.Kind == ty.Projection {
		var bounds []ty.Predicate
		for _, b := range e.c.ItemBounds(self.Def) {
			bounds = append(bounds, ty.Subst(self.Args).FoldPredicate(b.Pred))
		}
		for _, b := range bounds {
			if b.Kind == ty.PredProjection && ty.EqualModuloRegions(b.Projection, p) {
				return e.normalize(b.Term, depth+1)
			}
		}
	}
	return p
}
