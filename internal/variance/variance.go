// Package variance computes how the generic parameters of type
// definitions are used by their fields, and which parameters a set of
// predicates constrains.
package variance

import (
	"github.com/orizon-lang/wfcheck/internal/hir"
	"github.com/orizon-lang/wfcheck/internal/ty"
)

// Variance of one parameter.
type Variance uint8

const (
	// Bivariant parameters are not used at all.
	Bivariant Variance = iota
	Covariant
	Contravariant
	Invariant
)

func (v Variance) String() string {
	switch v {
	case Covariant:
		return "+"
	case Contravariant:
		return "-"
	case Invariant:
		return "o"
	}
	return "*"
}

// join combines two uses of a parameter.
func join(a, b Variance) Variance {
	switch {
	case a == b, b == Bivariant:
		return a
	case a == Bivariant:
		return b
	}
	return Invariant
}

// xform is the variance of a use with variance v inside a context with
// variance ctx.
func xform(ctx, v Variance) Variance {
	switch ctx {
	case Covariant:
		return v
	case Contravariant:
		switch v {
		case Covariant:
			return Contravariant
		case Contravariant:
			return Covariant
		}
		return v
	case Invariant:
		if v == Bivariant {
			return Bivariant
		}
		return Invariant
	}
	return Bivariant
}

// Table holds the variances of every type definition reachable from a
// crate's declarations.
type Table struct {
	c *hir.Crate
	m map[ty.DefID][]Variance
}

// Compute runs the variance fixpoint over every type definition the
// crate's items mention, external ones included.
func Compute(c *hir.Crate) *Table {
	t := &Table{c: c, m: make(map[ty.DefID][]Variance)}
	var adts []*hir.Adt
	queue := []*hir.Adt{}
	for _, n := range c.Items() {
		if a, ok := n.(*hir.Adt); ok {
			queue = append(queue, a)
		}
	}
	for len(queue) > 0 {
		a := queue[0]
		queue = queue[1:]
		if _, ok := t.m[a.Def]; ok {
			continue
		}
		t.m[a.Def] = make([]Variance, a.Generics().Count())
		adts = append(adts, a)
		for _, f := range a.Fields() {
			ty.Walk(f.Ty, func(g ty.GenericArg) bool {
				if g.Kind == ty.ArgType && g.Ty.Kind == ty.Adt {
					if b := c.Adt(g.Ty.Def); b != nil {
						queue = append(queue, b)
					}
				}
				return true
			})
		}
	}

	for changed := true; changed; {
		changed = false
		for _, a := range adts {
			next := make([]Variance, len(t.m[a.Def]))
			if c.IsLang(a.Def, hir.LangPhantomData) {
				for i := range next {
					next[i] = Covariant
				}
			}
			for _, f := range a.Fields() {
				t.add(next, f.Ty, Covariant)
			}
			for i, v := range next {
				if v != t.m[a.Def][i] {
					changed = true
				}
			}
			t.m[a.Def] = next
		}
	}
	return t
}

// Of returns the variances of def's parameters, or nil.
func (t *Table) Of(def ty.DefID) []Variance { return t.m[def] }

func (t *Table) add(out []Variance, typ *ty.Ty, ctx Variance) {
	if typ == nil || ctx == Bivariant {
		return
	}
	set := func(i int, v Variance) {
		if i < len(out) {
			out[i] = join(out[i], v)
		}
	}
	region := func(r ty.Region, v Variance) {
		if r.Kind == ty.ReEarlyBound {
			set(r.Index, v)
		}
	}
	args := func(as []ty.GenericArg, vs []Variance, ctx Variance) {
		for i, a := range as {
			v := Invariant
			if i < len(vs) {
				v = vs[i]
			}
			switch a.Kind {
			case ty.ArgRegion:
				region(a.Region, xform(ctx, v))
			case ty.ArgType:
				t.add(out, a.Ty, xform(ctx, v))
			case ty.ArgConst:
				t.addConst(out, a.Const)
			}
		}
	}

	switch typ.Kind {
	case ty.Param:
		set(typ.Index, ctx)
	case ty.Ref:
		region(typ.Region, ctx)
		if typ.Mut {
			t.add(out, typ.Elem, xform(ctx, Invariant))
		} else {
			t.add(out, typ.Elem, ctx)
		}
	case ty.RawPtr:
		if typ.Mut {
			t.add(out, typ.Elem, xform(ctx, Invariant))
		} else {
			t.add(out, typ.Elem, ctx)
		}
	case ty.Slice:
		t.add(out, typ.Elem, ctx)
	case ty.Array:
		t.add(out, typ.Elem, ctx)
		t.addConst(out, typ.Len)
	case ty.Tuple:
		for _, e := range typ.Elems {
			t.add(out, e, ctx)
		}
	case ty.FnPtr:
		for _, in := range typ.Elems {
			t.add(out, in, xform(ctx, Contravariant))
		}
		t.add(out, typ.Output, ctx)
	case ty.Adt:
		args(typ.Args, t.m[typ.Def], ctx)
	case ty.Projection:
		args(typ.Args, nil, ctx)
	case ty.Dynamic:
		region(typ.Region, ctx)
		args(typ.Args, nil, ctx)
	}
}

// addConst marks the const parameters a constant mentions as invariant.
func (t *Table) addConst(out []Variance, c *ty.Const) {
	if c == nil {
		return
	}
	mark := func(k *ty.Const) {
		if k.Kind == ty.ConstParam && k.Index < len(out) {
			out[k.Index] = Invariant
		}
	}
	mark(c)
	for _, p := range c.Params {
		mark(p)
	}
}
