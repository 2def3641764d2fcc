package ty

import (
	"strconv"
	"strings"
)

// Kind is the shape of a Ty.
type Kind uint8

const (
	Bool Kind = iota
	Char
	Int   // signed integers; Name holds the width ("i32")
	Uint  // unsigned integers; Name holds the width ("usize")
	Float // Name holds the width ("f64")
	Str
	Never
	Adt        // struct, union or enum; Def + Args
	Foreign    // extern type; Def
	Ref        // &'r T / &'r mut T
	RawPtr     // *const T / *mut T
	Slice      // [T]
	Array      // [T; N]
	Tuple      // (A, B, ...)
	FnPtr      // fn(A, B) -> C
	Param      // type parameter; Name + Index
	Projection // <Args[0] as Trait<Args[1:ParentCount]>>::Name<Args[ParentCount:]>
	Dynamic    // dyn Trait<Args> + 'r
	Error      // a type that already produced an error
)

// Ty is a type. Build types with the constructors below; treat them as
// immutable afterwards.
type Ty struct {
	Kind  Kind
	Name  string
	Def   DefID
	Index int

	// Args are the generic arguments of an Adt, the full substitution of a
	// Projection (trait arguments first, Self at 0) or the trait arguments
	// of a Dynamic (without Self).
	Args []GenericArg
	// ParentCount is the number of Projection args that belong to the trait.
	ParentCount int
	// Trait is the trait of a Projection or the principal of a Dynamic.
	Trait DefID
	// TraitName is the display name of Trait.
	TraitName string

	Region Region
	Mut    bool
	Elem   *Ty
	Len    *Const
	Elems  []*Ty // tuple elements and fn inputs
	Output *Ty
}

var (
	BoolTy  = &Ty{Kind: Bool, Name: "bool"}
	CharTy  = &Ty{Kind: Char, Name: "char"}
	StrTy   = &Ty{Kind: Str, Name: "str"}
	NeverTy = &Ty{Kind: Never, Name: "!"}
	ErrorTy = &Ty{Kind: Error, Name: "{error}"}
	UnitTy  = &Ty{Kind: Tuple}
)

// Prim returns the primitive type named name, or nil if name is not a primitive.
func Prim(name string) *Ty {
	switch name {
	case "bool":
		return BoolTy
	case "char":
		return CharTy
	case "str":
		return StrTy
	case "i8", "i16", "i32", "i64", "i128", "isize":
		return &Ty{Kind: Int, Name: name}
	case "u8", "u16", "u32", "u64", "u128", "usize":
		return &Ty{Kind: Uint, Name: name}
	case "f32", "f64":
		return &Ty{Kind: Float, Name: name}
	}
	return nil
}

// NewParam returns the type parameter at index.
func NewParam(name string, index int) *Ty {
	return &Ty{Kind: Param, Name: name, Index: index}
}

// NewAdt returns an instantiated struct, union or enum.
func NewAdt(def DefID, name string, args []GenericArg) *Ty {
	return &Ty{Kind: Adt, Def: def, Name: name, Args: args}
}

// NewForeign returns an extern type.
func NewForeign(def DefID, name string) *Ty {
	return &Ty{Kind: Foreign, Def: def, Name: name}
}

// NewRef returns &'r T or &'r mut T.
func NewRef(r Region, elem *Ty, mut bool) *Ty {
	return &Ty{Kind: Ref, Region: r, Elem: elem, Mut: mut}
}

// NewRawPtr returns *const T or *mut T.
func NewRawPtr(elem *Ty, mut bool) *Ty {
	return &Ty{Kind: RawPtr, Elem: elem, Mut: mut}
}

// NewSlice returns [T].
func NewSlice(elem *Ty) *Ty { return &Ty{Kind: Slice, Elem: elem} }

// NewArray returns [T; n].
func NewArray(elem *Ty, n *Const) *Ty { return &Ty{Kind: Array, Elem: elem, Len: n} }

// NewTuple returns (elems...).
func NewTuple(elems ...*Ty) *Ty { return &Ty{Kind: Tuple, Elems: elems} }

// NewFnPtr returns fn(inputs) -> output.
func NewFnPtr(inputs []*Ty, output *Ty) *Ty {
	if output == nil {
		output = UnitTy
	}
	return &Ty{Kind: FnPtr, Elems: inputs, Output: output}
}

// NewProjection returns <args[0] as trait<args[1:parentCount]>>::name<args[parentCount:]>.
func NewProjection(item DefID, name string, trait DefID, traitName string, args []GenericArg, parentCount int) *Ty {
	return &Ty{Kind: Projection, Def: item, Name: name, Trait: trait, TraitName: traitName, Args: args, ParentCount: parentCount}
}

// NewDynamic returns dyn trait<args> + 'r.
func NewDynamic(trait DefID, traitName string, args []GenericArg, r Region) *Ty {
	return &Ty{Kind: Dynamic, Trait: trait, TraitName: traitName, Args: args, Region: r}
}

// IsPrimitive reports whether t is bool, char or a numeric type.
func (t *Ty) IsPrimitive() bool {
	switch t.Kind {
	case Bool, Char, Int, Uint, Float:
		return true
	}
	return false
}

// IsUnit reports whether t is ().
func (t *Ty) IsUnit() bool { return t.Kind == Tuple && len(t.Elems) == 0 }

// SelfTy returns the Self type of a projection.
func (t *Ty) SelfTy() *Ty {
	if t.Kind != Projection || len(t.Args) == 0 {
		return nil
	}
	return t.Args[0].Ty
}

// TraitRef returns the trait reference of a projection.
func (t *Ty) TraitRef() TraitRef {
	return TraitRef{Def: t.Trait, Name: t.TraitName, Args: t.Args[:t.ParentCount]}
}

// OwnArgs returns the projection arguments that belong to the associated item.
func (t *Ty) OwnArgs() []GenericArg {
	return t.Args[t.ParentCount:]
}

// PeelRefs strips any number of outer references.
func (t *Ty) PeelRefs() *Ty {
	for t.Kind == Ref {
		t = t.Elem
	}
	return t
}

// String renders the type in surface syntax.
func (t *Ty) String() string {
	var b strings.Builder
	t.write(&b)
	return b.String()
}

// Key is the structural identity of the type.
func (t *Ty) Key() string {
	var b strings.Builder
	t.writeKey(&b)
	return b.String()
}

func (t *Ty) write(b *strings.Builder) {
	if t == nil {
		b.WriteString("<nil>")
		return
	}
	switch t.Kind {
	case Bool, Char, Int, Uint, Float, Str, Never, Param, Foreign, Error:
		b.WriteString(t.Name)
	case Adt:
		b.WriteString(t.Name)
		writeArgs(b, t.Args)
	case Ref:
		b.WriteByte('&')
		if t.Region.Kind != ReErased {
			b.WriteString(t.Region.String())
			b.WriteByte(' ')
		}
		if t.Mut {
			b.WriteString("mut ")
		}
		t.Elem.write(b)
	case RawPtr:
		if t.Mut {
			b.WriteString("*mut ")
		} else {
			b.WriteString("*const ")
		}
		t.Elem.write(b)
	case Slice:
		b.WriteByte('[')
		t.Elem.write(b)
		b.WriteByte(']')
	case Array:
		b.WriteByte('[')
		t.Elem.write(b)
		b.WriteString("; ")
		b.WriteString(t.Len.String())
		b.WriteByte(']')
	case Tuple:
		b.WriteByte('(')
		for i, e := range t.Elems {
			if i > 0 {
				b.WriteString(", ")
			}
			e.write(b)
		}
		if len(t.Elems) == 1 {
			b.WriteByte(',')
		}
		b.WriteByte(')')
	case FnPtr:
		b.WriteString("fn(")
		for i, e := range t.Elems {
			if i > 0 {
				b.WriteString(", ")
			}
			e.write(b)
		}
		b.WriteByte(')')
		if t.Output != nil && !t.Output.IsUnit() {
			b.WriteString(" -> ")
			t.Output.write(b)
		}
	case Projection:
		self := t.SelfTy()
		if self != nil && self.Kind == Param && self.Name == "Self" {
			b.WriteString("Self")
		} else {
			b.WriteByte('<')
			self.write(b)
			b.WriteString(" as ")
			b.WriteString(t.TraitName)
			writeArgs(b, t.Args[1:t.ParentCount])
			b.WriteByte('>')
		}
		b.WriteString("::")
		b.WriteString(t.Name)
		writeArgs(b, t.OwnArgs())
	case Dynamic:
		b.WriteString("dyn ")
		b.WriteString(t.TraitName)
		writeArgs(b, t.Args)
		if t.Region.Kind != ReErased && t.Region.Name != "" {
			b.WriteString(" + ")
			b.WriteString(t.Region.String())
		}
	}
}

func writeArgs(b *strings.Builder, args []GenericArg) {
	if len(args) == 0 {
		return
	}
	b.WriteByte('<')
	for i, a := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.String())
	}
	b.WriteByte('>')
}

func (t *Ty) writeKey(b *strings.Builder) {
	if t == nil {
		b.WriteString("nil")
		return
	}
	switch t.Kind {
	case Param:
		b.WriteString(t.Name)
		b.WriteByte('#')
		b.WriteString(strconv.Itoa(t.Index))
	case Adt, Foreign:
		b.WriteString(string(t.Def))
		writeArgKeys(b, t.Args)
	case Ref:
		b.WriteString("&")
		b.WriteString(t.Region.Key())
		if t.Mut {
			b.WriteString(" mut")
		}
		b.WriteByte(' ')
		t.Elem.writeKey(b)
	case RawPtr:
		if t.Mut {
			b.WriteString("*mut ")
		} else {
			b.WriteString("*const ")
		}
		t.Elem.writeKey(b)
	case Slice:
		b.WriteByte('[')
		t.Elem.writeKey(b)
		b.WriteByte(']')
	case Array:
		b.WriteByte('[')
		t.Elem.writeKey(b)
		b.WriteString("; ")
		b.WriteString(t.Len.Key())
		b.WriteByte(']')
	case Tuple, FnPtr:
		if t.Kind == FnPtr {
			b.WriteString("fn")
		}
		b.WriteByte('(')
		for i, e := range t.Elems {
			if i > 0 {
				b.WriteByte(',')
			}
			e.writeKey(b)
		}
		b.WriteByte(')')
		if t.Kind == FnPtr {
			b.WriteString("->")
			t.Output.writeKey(b)
		}
	case Projection:
		b.WriteString("<")
		b.WriteString(string(t.Trait))
		b.WriteString(">::")
		b.WriteString(string(t.Def))
		writeArgKeys(b, t.Args)
	case Dynamic:
		b.WriteString("dyn ")
		b.WriteString(string(t.Trait))
		writeArgKeys(b, t.Args)
		b.WriteByte('+')
		b.WriteString(t.Region.Key())
	default:
		b.WriteString(t.Name)
	}
}

func writeArgKeys(b *strings.Builder, args []GenericArg) {
	b.WriteByte('<')
	for i, a := range args {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(a.Key())
	}
	b.WriteByte('>')
}

// Equal reports structural equality, regions included.
func Equal(a, b *Ty) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a.Key() == b.Key()
}
