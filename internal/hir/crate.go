package hir

import (
	"fmt"

	"github.com/orizon-lang/wfcheck/internal/position"
	"github.com/orizon-lang/wfcheck/internal/ty"
)

// Crate is the set of declarations of one compilation unit. It is built
// once by the loader and read concurrently afterwards.
type Crate struct {
	Name string
	// Features are the opt-in extensions the crate enables itself.
	Features []string
	Sources  *position.SourceMap

	items  []Node
	byID   map[ty.DefID]Node
	lang   map[string]ty.DefID
	impls  map[ty.DefID][]*Impl
	traits []*Trait
}

// NewCrate returns an empty crate.
func NewCrate(name string) *Crate {
	return &Crate{
		Name:    name,
		Sources: position.NewSourceMap(),
		byID:    make(map[ty.DefID]Node),
		lang:    make(map[string]ty.DefID),
		impls:   make(map[ty.DefID][]*Impl),
	}
}

// Add registers a local declaration. Associated items are registered
// through their container and must not be added separately.
func (c *Crate) Add(n Node) error {
	if err := c.add(n); err != nil {
		return err
	}
	c.items = append(c.items, n)
	return nil
}

// AddExternal registers a declaration of another crate: it resolves and
// takes part in trait selection but is never checked.
func (c *Crate) AddExternal(n Node) error {
	return c.add(n)
}

func (c *Crate) add(n Node) error {
	if err := c.register(n); err != nil {
		return err
	}

	switch n := n.(type) {
	case *Trait:
		c.traits = append(c.traits, n)
		for _, it := range n.Items {
			if err := c.register(it); err != nil {
				return err
			}
		}
	case *Impl:
		if n.TraitRef != nil {
			c.impls[n.TraitRef.Def] = append(c.impls[n.TraitRef.Def], n)
		}
		for _, it := range n.Items {
			if err := c.register(it); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Crate) register(n Node) error {
	if _, dup := c.byID[n.ID()]; dup {
		return fmt.Errorf("duplicate definition of %s", n.ID())
	}
	c.byID[n.ID()] = n

	var lang string
	switch n := n.(type) {
	case *Adt:
		lang = n.Lang
	case *Trait:
		lang = n.Lang
	}
	if lang != "" {
		c.lang[lang] = n.ID()
	}
	return nil
}

// Items returns the local top-level declarations in declaration order.
func (c *Crate) Items() []Node { return c.items }

// Node returns the declaration with the given id.
func (c *Crate) Node(id ty.DefID) (Node, bool) {
	n, ok := c.byID[id]
	return n, ok
}

// Adt returns the type definition with the given id, or nil.
func (c *Crate) Adt(id ty.DefID) *Adt {
	a, _ := c.byID[id].(*Adt)
	return a
}

// Trait returns the trait with the given id, or nil.
func (c *Crate) Trait(id ty.DefID) *Trait {
	t, _ := c.byID[id].(*Trait)
	return t
}

// Impl returns the impl with the given id, or nil.
func (c *Crate) Impl(id ty.DefID) *Impl {
	i, _ := c.byID[id].(*Impl)
	return i
}

// AssocItem returns the associated item with the given id, or nil.
func (c *Crate) AssocItem(id ty.DefID) *AssocItem {
	a, _ := c.byID[id].(*AssocItem)
	return a
}

// Traits returns every trait in declaration order.
func (c *Crate) Traits() []*Trait { return c.traits }

// LangItem returns the declaration implementing a lang item.
func (c *Crate) LangItem(name string) (ty.DefID, bool) {
	id, ok := c.lang[name]
	return id, ok
}

// IsLang reports whether id implements the named lang item.
func (c *Crate) IsLang(id ty.DefID, name string) bool {
	l, ok := c.lang[name]
	return ok && l == id
}

// ImplsOf returns the impls of a trait in declaration order.
func (c *Crate) ImplsOf(trait ty.DefID) []*Impl { return c.impls[trait] }

// AssocNamed finds an associated item of a trait or impl by name and kind.
func (c *Crate) AssocNamed(container ty.DefID, name string, kind AssocKind) *AssocItem {
	var items []*AssocItem
	switch n := c.byID[container].(type) {
	case *Trait:
		items = n.Items
	case *Impl:
		items = n.Items
	}
	for _, it := range items {
		if it.Ident == name && it.Kind == kind {
			return it
		}
	}
	return nil
}

// GenericsOf returns the generics of a declaration.
func (c *Crate) GenericsOf(id ty.DefID) *Generics {
	if n, ok := c.byID[id]; ok {
		return n.Generics()
	}
	return &Generics{}
}

// OwnPredicates returns the predicates declared on the item itself. A
// trait additionally carries `Self: Trait`.
func (c *Crate) OwnPredicates(id ty.DefID) []Predicate {
	n, ok := c.byID[id]
	if !ok {
		return nil
	}
	var own []Predicate
	if t, ok := n.(*Trait); ok {
		own = append(own, Predicate{Pred: ty.TraitPred(t.SelfRef()), Span: t.IdentSpan, Implicit: true})
	}
	return append(own, declOf(n).Preds...)
}

// PredicatesOf returns the predicates of the item and of every enclosing
// item, parents first.
func (c *Crate) PredicatesOf(id ty.DefID) []Predicate {
	var out []Predicate
	if a := c.AssocItem(id); a != nil {
		out = append(out, c.PredicatesOf(a.Container)...)
	}
	return append(out, c.OwnPredicates(id)...)
}

// ItemBounds returns the explicit bounds of an associated type.
func (c *Crate) ItemBounds(id ty.DefID) []Predicate {
	if a := c.AssocItem(id); a != nil {
		return a.Bounds
	}
	return nil
}

// TraitOf returns the trait an associated item belongs to, through its
// impl when needed.
func (c *Crate) TraitOf(item ty.DefID) ty.DefID {
	a := c.AssocItem(item)
	if a == nil {
		return ""
	}
	if a.InTrait {
		return a.Container
	}
	if i := c.Impl(a.Container); i != nil && i.TraitRef != nil {
		return i.TraitRef.Def
	}
	return ""
}

// ProjectionOf returns `Self::Name<own params>` for an associated type of
// a trait.
func (c *Crate) ProjectionOf(a *AssocItem) *ty.Ty {
	t := c.Trait(a.Container)
	args := a.Generics().Identity()
	return ty.NewProjection(a.Def, a.Ident, t.Def, t.Ident, args, a.Generics().ParentCount())
}

func declOf(n Node) *Decl {
	switch n := n.(type) {
	case *Adt:
		return &n.Decl
	case *Trait:
		return &n.Decl
	case *Impl:
		return &n.Decl
	case *Fn:
		return &n.Decl
	case *Static:
		return &n.Decl
	case *AssocItem:
		return &n.Decl
	case *ForeignType:
		return &n.Decl
	}
	return &Decl{}
}

// DeclOf returns the common part of a declaration.
func DeclOf(n Node) *Decl { return declOf(n) }
