package traits

import (
	"github.com/orizon-lang/wfcheck/internal/hir"
	"github.com/orizon-lang/wfcheck/internal/ty"
)

// matchImpl unifies the impl's trait reference with tr, treating the
// impl's parameters as variables. It returns the impl substitution;
// parameters the header does not mention become error types or erased
// regions.
func matchImpl(im *hir.Impl, tr ty.TraitRef) ([]ty.GenericArg, bool) {
	if im.TraitRef == nil || im.TraitRef.Def != tr.Def || len(im.TraitRef.Args) != len(tr.Args) {
		return nil, false
	}
	m := newMatcher(im.Generics())
	if !m.args(im.TraitRef.Args, tr.Args) {
		return nil, false
	}
	return m.result(), true
}

// MatchImplSelf unifies an impl's self type with t.
func MatchImplSelf(im *hir.Impl, t *ty.Ty) ([]ty.GenericArg, bool) {
	m := newMatcher(im.Generics())
	if !m.ty(im.SelfTy, t) {
		return nil, false
	}
	return m.result(), true
}

type matcher struct {
	gen   *hir.Generics
	bound []ty.GenericArg
	set   []bool
}

func newMatcher(g *hir.Generics) *matcher {
	n := g.Count()
	return &matcher{gen: g, bound: make([]ty.GenericArg, n), set: make([]bool, n)}
}

func (m *matcher) bind(index int, a ty.GenericArg) bool {
	if index >= len(m.bound) {
		return false
	}
	if m.set[index] {
		prev := m.bound[index]
		switch a.Kind {
		case ty.ArgType:
			return ty.EqualModuloRegions(prev.Ty, a.Ty)
		case ty.ArgConst:
			return prev.Const.Key() == a.Const.Key()
		}
		return true
	}
	m.bound[index], m.set[index] = a, true
	return true
}

func (m *matcher) args(ps, ts []ty.GenericArg) bool {
	if len(ps) != len(ts) {
		return false
	}
	for i := range ps {
		if !m.arg(ps[i], ts[i]) {
			return false
		}
	}
	return true
}

func (m *matcher) arg(p, t ty.GenericArg) bool {
	if p.Kind != t.Kind {
		return false
	}
	switch p.Kind {
	case ty.ArgRegion:
		m.region(p.Region, t.Region)
		return true
	case ty.ArgType:
		return m.ty(p.Ty, t.Ty)
	}
	return m.konst(p.Const, t.Const)
}

func (m *matcher) region(p, t ty.Region) {
	if p.Kind == ty.ReEarlyBound {
		m.bind(p.Index, ty.RegionArg(t))
	}
}

func (m *matcher) konst(p, t *ty.Const) bool {
	if p == nil || t == nil {
		return p == t
	}
	if p.Kind == ty.ConstParam {
		return m.bind(p.Index, ty.ConstArg(t))
	}
	if t.Kind == ty.ConstError {
		return true
	}
	return p.Key() == t.Key()
}

func (m *matcher) ty(p, t *ty.Ty) bool {
	if p.Kind == ty.Param {
		return m.bind(p.Index, ty.TypeArg(t))
	}
	if t.Kind == ty.Error {
		return true
	}
	if p.Kind != t.Kind {
		return false
	}
	switch p.Kind {
	case ty.Bool, ty.Char, ty.Int, ty.Uint, ty.Float, ty.Str, ty.Never:
		return p.Name == t.Name
	case ty.Adt, ty.Foreign:
		return p.Def == t.Def && m.args(p.Args, t.Args)
	case ty.Ref:
		m.region(p.Region, t.Region)
		return p.Mut == t.Mut && m.ty(p.Elem, t.Elem)
	case ty.RawPtr:
		return p.Mut == t.Mut && m.ty(p.Elem, t.Elem)
	case ty.Slice:
		return m.ty(p.Elem, t.Elem)
	case ty.Array:
		return m.ty(p.Elem, t.Elem) && m.konst(p.Len, t.Len)
	case ty.Tuple, ty.FnPtr:
		if len(p.Elems) != len(t.Elems) {
			return false
		}
		for i := range p.Elems {
			if !m.ty(p.Elems[i], t.Elems[i]) {
				return false
			}
		}
		if (p.Output == nil) != (t.Output == nil) {
			return false
		}
		return p.Output == nil || m.ty(p.Output, t.Output)
	case ty.Projection:
		return p.Def == t.Def && m.args(p.Args, t.Args)
	case ty.Dynamic:
		m.region(p.Region, t.Region)
		return p.Trait == t.Trait && m.args(p.Args, t.Args)
	}
	return false
}

func (m *matcher) result() []ty.GenericArg {
	out := make([]ty.GenericArg, len(m.bound))
	for i := range out {
		if m.set[i] {
			out[i] = m.bound[i]
			continue
		}
		switch p := m.gen.ParamAt(i); {
		case p == nil || p.Kind == hir.TypeParam:
			out[i] = ty.TypeArg(ty.ErrorTy)
		case p.Kind == hir.LifetimeParam:
			out[i] = ty.RegionArg(ty.Erased)
		default:
			out[i] = ty.ConstArg(&ty.Const{Kind: ty.ConstError, Ty: p.ConstTy})
		}
	}
	return out
}
