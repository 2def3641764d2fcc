package hir

import (
	"github.com/orizon-lang/wfcheck/internal/position"
	"github.com/orizon-lang/wfcheck/internal/ty"
)

// AdtKind distinguishes structs, unions and enums.
type AdtKind uint8

const (
	Struct AdtKind = iota
	Union
	Enum
)

func (k AdtKind) String() string {
	switch k {
	case Struct:
		return "struct"
	case Union:
		return "union"
	}
	return "enum"
}

// Field is one field of a variant.
type Field struct {
	Name string
	Def  ty.DefID
	Ty   *ty.Ty
	// Span covers the written field type.
	Span position.Span
}

// Variant is a struct body or one enum variant.
type Variant struct {
	Name   string
	Span   position.Span
	Fields []*Field
	// Discr is the explicit discriminant expression, if any.
	Discr     *ty.Const
	DiscrSpan position.Span
}

// Adt is a struct, union or enum definition. Structs and unions have
// exactly one variant.
type Adt struct {
	Decl
	Kind     AdtKind
	Variants []*Variant
	Packed   bool
	Derives  []string
}

func (a *Adt) Accept(v Visitor) { v.VisitAdt(a) }

// StructuralMatch reports whether the type derives both PartialEq and Eq.
func (a *Adt) StructuralMatch() bool {
	var eq, partial bool
	for _, d := range a.Derives {
		switch d {
		case "PartialEq":
			partial = true
		case "Eq":
			eq = true
		}
	}
	return eq && partial
}

// Fields returns the fields of every variant in order.
func (a *Adt) Fields() []*Field {
	var out []*Field
	for _, v := range a.Variants {
		out = append(out, v.Fields...)
	}
	return out
}

// SelfTy returns the type of the definition applied to its own parameters.
func (a *Adt) SelfTy() *ty.Ty {
	return ty.NewAdt(a.Def, a.Ident, a.Generics().Identity())
}

// Trait is a trait or trait alias declaration.
type Trait struct {
	Decl
	Alias  bool
	Auto   bool
	Marker bool
	Items  []*AssocItem
}

func (t *Trait) Accept(v Visitor) { v.VisitTrait(t) }

// SelfRef returns `Self: Trait<params>`.
func (t *Trait) SelfRef() ty.TraitRef {
	return ty.TraitRef{Def: t.Def, Name: t.Ident, Args: t.Generics().Identity()}
}

// Polarity of an impl.
type Polarity uint8

const (
	Positive Polarity = iota
	Negative
	// Reservation impls reserve a trait for a type without implementing it.
	Reservation
)

// Impl is an inherent or trait impl.
type Impl struct {
	Decl
	SelfTy   *ty.Ty
	SelfSpan position.Span
	// TraitRef is nil for inherent impls.
	TraitRef     *ty.TraitRef
	TraitSpan    position.Span
	Polarity     Polarity
	PolaritySpan position.Span
	Default      bool
	DefaultSpan  position.Span
	Items        []*AssocItem
}

func (i *Impl) Accept(v Visitor) { v.VisitImpl(i) }

// FnSig is a function signature. Late-bound regions appear as
// ty.ReLateBound regions scoped to the function.
type FnSig struct {
	Inputs     []*ty.Ty
	InputSpans []position.Span
	// InputRefs marks inputs written as a reference type.
	InputRefs  []bool
	Output     *ty.Ty
	OutputSpan position.Span
	HasSelf    bool
	LateBound  []string
}

// OutputTy returns the return type, unit when none was written.
func (s *FnSig) OutputTy() *ty.Ty {
	if s.Output == nil {
		return ty.UnitTy
	}
	return s.Output
}

// Fn is a free or foreign function.
type Fn struct {
	Decl
	Sig     *FnSig
	Foreign bool
}

func (f *Fn) Accept(v Visitor) { v.VisitFn(f) }

// StaticKind distinguishes statics, constants and foreign statics.
type StaticKind uint8

const (
	ItemStatic StaticKind = iota
	ItemConst
	ItemForeignStatic
)

// Static is a static, a const or a foreign static.
type Static struct {
	Decl
	Kind        StaticKind
	Ty          *ty.Ty
	TySpan      position.Span
	Mutable     bool
	ThreadLocal bool
}

func (s *Static) Accept(v Visitor) { v.VisitStatic(s) }

// AssocKind is the kind of an associated item.
type AssocKind uint8

const (
	AssocConst AssocKind = iota
	AssocFn
	AssocType
)

// AssocItem is an item of a trait or impl.
type AssocItem struct {
	Decl
	Kind      AssocKind
	Container ty.DefID
	InTrait   bool
	Sig       *FnSig
	// Ty is the type of an associated const or the value of an associated
	// type; nil for a type without a value.
	Ty     *ty.Ty
	TySpan position.Span
	// Bounds are the explicit item bounds of an associated type, written
	// on the projection `Self::Name<..>`.
	Bounds []Predicate
	// SelfObjectSpans are the spans of written types that name the
	// enclosing trait as a bare trait object.
	SelfObjectSpans []position.Span
}

func (a *AssocItem) Accept(v Visitor) { v.VisitAssocItem(a) }

// ForeignType is an `extern` opaque type.
type ForeignType struct {
	Decl
}

func (f *ForeignType) Accept(v Visitor) { v.VisitForeignType(f) }
