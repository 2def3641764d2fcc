package ty

import (
	"strconv"
	"strings"
)

// ArgKind says which field of a GenericArg is set.
type ArgKind uint8

const (
	ArgRegion ArgKind = iota
	ArgType
	ArgConst
)

// GenericArg is one entry of a substitution: a region, a type or a constant.
type GenericArg struct {
	Kind   ArgKind
	Region Region
	Ty     *Ty
	Const  *Const
}

// RegionArg wraps a region.
func RegionArg(r Region) GenericArg { return GenericArg{Kind: ArgRegion, Region: r} }

// TypeArg wraps a type.
func TypeArg(t *Ty) GenericArg { return GenericArg{Kind: ArgType, Ty: t} }

// ConstArg wraps a constant.
func ConstArg(c *Const) GenericArg { return GenericArg{Kind: ArgConst, Const: c} }

// String renders the argument in surface syntax.
func (a GenericArg) String() string {
	switch a.Kind {
	case ArgRegion:
		return a.Region.String()
	case ArgType:
		return a.Ty.String()
	default:
		return a.Const.String()
	}
}

// Key is the structural identity of the argument.
func (a GenericArg) Key() string {
	switch a.Kind {
	case ArgRegion:
		return a.Region.Key()
	case ArgType:
		return a.Ty.Key()
	default:
		return "const " + a.Const.Key()
	}
}

// ArgsEqual compares two argument lists structurally.
func ArgsEqual(a, b []GenericArg) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Key() != b[i].Key() {
			return false
		}
	}
	return true
}

// ConstKind distinguishes constant forms.
type ConstKind uint8

const (
	ConstValue ConstKind = iota
	ConstParam
	// ConstUnevaluated is an expression that still has to be evaluated,
	// such as an enum discriminant or an array length written as `{ N + 1 }`.
	ConstUnevaluated
	ConstError
)

// Const is a constant generic argument.
type Const struct {
	Kind  ConstKind
	Value string // literal text for ConstValue, expression text for ConstUnevaluated
	Name  string
	Index int
	Def   DefID // owner of an unevaluated expression
	Ty    *Ty
	// Params lists the const parameters an unevaluated expression mentions.
	Params []*Const
}

// NewConstValue returns a literal constant.
func NewConstValue(value string, t *Ty) *Const {
	return &Const{Kind: ConstValue, Value: value, Ty: t}
}

// NewConstParam returns the const parameter at index.
func NewConstParam(name string, index int, t *Ty) *Const {
	return &Const{Kind: ConstParam, Name: name, Index: index, Ty: t}
}

// String renders the constant.
func (c *Const) String() string {
	if c == nil {
		return "_"
	}
	switch c.Kind {
	case ConstParam:
		return c.Name
	case ConstUnevaluated:
		return "{ " + c.Value + " }"
	case ConstError:
		return "{const error}"
	}
	return c.Value
}

// Key is the structural identity of the constant.
func (c *Const) Key() string {
	if c == nil {
		return "_"
	}
	switch c.Kind {
	case ConstParam:
		return c.Name + "#" + strconv.Itoa(c.Index)
	case ConstUnevaluated:
		var b strings.Builder
		b.WriteString("{")
		b.WriteString(string(c.Def))
		b.WriteString(":")
		b.WriteString(c.Value)
		for _, p := range c.Params {
			b.WriteString(",")
			b.WriteString(p.Key())
		}
		b.WriteString("}")
		return b.String()
	}
	return c.String()
}

// TraitRef is a reference to a trait with its arguments; Args[0] is Self.
type TraitRef struct {
	Def  DefID
	Name string
	Args []GenericArg
}

// SelfTy returns the Self argument.
func (tr TraitRef) SelfTy() *Ty {
	if len(tr.Args) == 0 {
		return nil
	}
	return tr.Args[0].Ty
}

// Types returns every type argument, Self included.
func (tr TraitRef) Types() []*Ty {
	var out []*Ty
	for _, a := range tr.Args {
		if a.Kind == ArgType {
			out = append(out, a.Ty)
		}
	}
	return out
}

// String renders `Self: Trait<Args>` without the Self part, i.e. `Trait<Args>`.
func (tr TraitRef) String() string {
	var b strings.Builder
	b.WriteString(tr.Name)
	if len(tr.Args) > 1 {
		writeArgs(&b, tr.Args[1:])
	}
	return b.String()
}

// Key is the structural identity of the trait reference.
func (tr TraitRef) Key() string {
	var b strings.Builder
	b.WriteString(string(tr.Def))
	writeArgKeys(&b, tr.Args)
	return b.String()
}
