// Package hir defines the declaration tree the well-formedness pass runs on.
// A Crate holds every declaration of a compilation unit in declaration
// order; each declaration carries its generics, its declared predicates and
// the spans needed to point diagnostics at the exact offending element.
//
// The set of declaration kinds is closed. Consumers dispatch on it through
// Visitor instead of type switches.
package hir

import (
	"github.com/orizon-lang/wfcheck/internal/position"
	"github.com/orizon-lang/wfcheck/internal/ty"
)

// Node is any declaration of the crate.
type Node interface {
	// ID returns the stable identifier of the declaration.
	ID() ty.DefID
	// Name returns the declared identifier.
	Name() string
	// Span returns the source span of the whole declaration.
	Span() position.Span
	// Generics returns the generic parameters in scope, parents included.
	Generics() *Generics
	// Accept dispatches to the matching Visitor method.
	Accept(v Visitor)
}

// Visitor has one method per declaration kind.
type Visitor interface {
	VisitAdt(a *Adt)
	VisitTrait(t *Trait)
	VisitImpl(i *Impl)
	VisitFn(f *Fn)
	VisitStatic(s *Static)
	VisitAssocItem(a *AssocItem)
	VisitForeignType(f *ForeignType)
}

// Predicate is a declared predicate together with the span it was written at.
type Predicate struct {
	Pred ty.Predicate
	Span position.Span
	// Implicit marks predicates the frontend adds on its own, such as the
	// default `T: Sized` bound.
	Implicit bool
}

// Decl is the part every declaration shares.
type Decl struct {
	Def       ty.DefID
	Ident     string
	IdentSpan position.Span
	Sp        position.Span
	Gen       *Generics
	// Preds are the predicates declared on this item itself; parent
	// predicates are reached through the crate.
	Preds []Predicate
	// Lang names the lang item this declaration implements, if any.
	Lang string
}

func (d *Decl) ID() ty.DefID        { return d.Def }
func (d *Decl) Name() string        { return d.Ident }
func (d *Decl) Span() position.Span { return d.Sp }
func (d *Decl) Generics() *Generics {
	if d.Gen == nil {
		d.Gen = &Generics{}
	}
	return d.Gen
}

// Lang item names understood by the pass.
const (
	LangSized       = "sized"
	LangCopy        = "copy"
	LangSync        = "sync"
	LangSend        = "send"
	LangReceiver    = "receiver"
	LangDeref       = "deref"
	LangDrop        = "drop"
	LangPhantomData = "phantom_data"
	LangOwnedBox    = "owned_box"
	LangFn          = "fn"
	LangFnMut       = "fn_mut"
	LangPartialEq   = "eq"
)
