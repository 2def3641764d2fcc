package hir

import (
	"github.com/orizon-lang/wfcheck/internal/position"
	"github.com/orizon-lang/wfcheck/internal/ty"
)

// ParamKind is the sort of a generic parameter.
type ParamKind uint8

const (
	LifetimeParam ParamKind = iota
	TypeParam
	ConstParam
)

func (k ParamKind) String() string {
	switch k {
	case LifetimeParam:
		return "lifetime"
	case TypeParam:
		return "type"
	}
	return "const"
}

// GenericParam is one declared generic parameter.
type GenericParam struct {
	Name  string
	Index int
	Kind  ParamKind
	Def   ty.DefID
	Span  position.Span

	Default      *ty.Ty    // type parameters
	ConstDefault *ty.Const // const parameters
	ConstTy      *ty.Ty    // declared type of a const parameter
	ConstTySpan  position.Span

	// MaybeUnsized is set by a `?Sized` bound.
	MaybeUnsized bool
	// ExplicitBounds is set when the parameter is the bounded type of any
	// written bound, inline or in a where clause.
	ExplicitBounds bool
}

// HasDefault reports whether the parameter declares a default.
func (p *GenericParam) HasDefault() bool {
	return p.Default != nil || p.ConstDefault != nil
}

// Arg returns the identity argument for the parameter.
func (p *GenericParam) Arg() ty.GenericArg {
	switch p.Kind {
	case LifetimeParam:
		return ty.RegionArg(ty.EarlyBound(p.Name, p.Index))
	case TypeParam:
		return ty.TypeArg(ty.NewParam(p.Name, p.Index))
	}
	return ty.ConstArg(ty.NewConstParam(p.Name, p.Index, p.ConstTy))
}

// Generics are the parameters an item declares, chained to the parameters
// of its enclosing item. Indices are global: the parent's parameters come
// first.
type Generics struct {
	Parent *Generics
	Params []*GenericParam

	// Span covers the parameter list.
	Span position.Span
	// WhereSpan covers the where clause; invalid when there is none.
	WhereSpan position.Span
	// WherePreds is the number of written where-clause predicates.
	WherePreds int
	// Tail is where a new predicate would be inserted.
	Tail position.Span
}

// ParentCount is the number of parameters inherited from the parent.
func (g *Generics) ParentCount() int {
	if g == nil || g.Parent == nil {
		return 0
	}
	return g.Parent.Count()
}

// Count is the total number of parameters, parents included.
func (g *Generics) Count() int {
	if g == nil {
		return 0
	}
	return g.ParentCount() + len(g.Params)
}

// ParamAt returns the parameter at a global index, or nil.
func (g *Generics) ParamAt(index int) *GenericParam {
	for cur := g; cur != nil; cur = cur.Parent {
		pc := cur.ParentCount()
		if index >= pc {
			if index-pc < len(cur.Params) {
				return cur.Params[index-pc]
			}
			return nil
		}
	}
	return nil
}

// All returns every parameter in index order, parents first.
func (g *Generics) All() []*GenericParam {
	if g == nil {
		return nil
	}
	return append(g.Parent.All(), g.Params...)
}

// Identity returns the substitution mapping every parameter to itself.
func (g *Generics) Identity() []ty.GenericArg {
	all := g.All()
	args := make([]ty.GenericArg, len(all))
	for i, p := range all {
		args[i] = p.Arg()
	}
	return args
}

// Lookup finds a parameter by name, innermost scope first.
func (g *Generics) Lookup(name string) *GenericParam {
	for cur := g; cur != nil; cur = cur.Parent {
		for _, p := range cur.Params {
			if p.Name == name {
				return p
			}
		}
	}
	return nil
}

// WhereOrComma returns the token that has to precede a predicate inserted
// at Tail.
func (g *Generics) WhereOrComma() string {
	if g.WherePreds == 0 {
		return "where"
	}
	return ","
}
