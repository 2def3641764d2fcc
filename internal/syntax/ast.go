package syntax

// TypeKind is the shape of a written type.
type TypeKind uint8

const (
	TPath      TypeKind = iota // Vec<T>, T, Self::Item<'a>, i32
	TRef                       // &'a mut T
	TPtr                       // *const T, *mut T
	TSlice                     // [T]
	TArray                     // [T; N]
	TTuple                     // (A, B)
	TFn                        // fn(A) -> B
	TDyn                       // dyn Trait<A> + 'a
	TQualified                 // <T as Trait>::Name<A>
	TNever                     // !
)

// Type is a written type. Offset and End delimit it in the source string.
type Type struct {
	Kind   TypeKind
	Offset int
	End    int

	Path     *Path  // TPath, TDyn (principal trait), TQualified (trait)
	Lifetime string // TRef, TDyn; empty when elided
	Mut      bool   // TRef, TPtr
	Elem     *Type  // TRef, TPtr, TSlice, TArray
	Len      *ConstExpr
	Elems    []*Type // TTuple, TFn inputs
	Output   *Type   // TFn; nil for unit
	QSelf    *Type   // TQualified
	Assoc    *Segment
}

// Path is a `::`-separated path.
type Path struct {
	Segments []*Segment
	Offset   int
	End      int
}

// Last returns the final segment.
func (p *Path) Last() *Segment { return p.Segments[len(p.Segments)-1] }

// Segment is one path component with its generic arguments.
type Segment struct {
	Name     string
	Args     []*GenericArg
	Bindings []*Binding
	Offset   int
	End      int
}

// GenericArg is a written generic argument. Exactly one field is set; a
// bare identifier is parsed as a type and may still name a const parameter.
type GenericArg struct {
	Lifetime string
	Type     *Type
	Const    *ConstExpr
	Offset   int
	End      int
}

// Binding is an associated-type binding such as `Item = T`.
type Binding struct {
	Name   string
	Args   []*GenericArg
	Type   *Type
	Offset int
	End    int
}

// ConstExpr is a constant: an integer or bool literal, a parameter name or
// a `{ ... }` block.
type ConstExpr struct {
	Text   string
	Block  bool
	Offset int
	End    int
}

// Bound is one bound in a bound list: a lifetime, a trait or `?Trait`.
type Bound struct {
	Lifetime string
	Trait    *Path
	Maybe    bool
	Offset   int
	End      int
}

// WherePredicate is `Type: Bounds` or `'a: 'b + 'c`.
type WherePredicate struct {
	Lifetime string
	Bounded  *Type
	Bounds   []*Bound
	Offset   int
	End      int
}

// ParamKind is the kind of a declared generic parameter.
type ParamKind uint8

const (
	ParamLifetime ParamKind = iota
	ParamType
	ParamConst
)

// Param is a declared generic parameter.
type Param struct {
	Kind         ParamKind
	Name         string
	Bounds       []*Bound
	Default      *Type
	ConstTy      *Type
	ConstDefault *ConstExpr
	Offset       int
	End          int
}

// ImplHeader is `[!]Trait<Args> for Type` or a bare self type.
type ImplHeader struct {
	Negative bool
	Trait    *Path
	SelfTy   *Type
	// BangOffset locates the `!` of a negative impl.
	BangOffset int
}
