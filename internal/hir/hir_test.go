package hir

import (
	"testing"

	"github.com/orizon-lang/wfcheck/internal/ty"
)

func traitWithGAT() (*Crate, *Trait, *AssocItem) {
	c := NewCrate("demo")
	tr := &Trait{Decl: Decl{Def: "demo::Iter", Ident: "Iter"}}
	tr.Gen = &Generics{Params: []*GenericParam{{Name: "Self", Index: 0, Kind: TypeParam}}}

	item := &AssocItem{
		Decl:      Decl{Def: "demo::Iter::Item", Ident: "Item"},
		Kind:      AssocType,
		Container: tr.Def,
		InTrait:   true,
	}
	item.Gen = &Generics{Parent: tr.Gen, Params: []*GenericParam{{Name: "'a", Index: 1, Kind: LifetimeParam}}}
	item.Preds = []Predicate{{Pred: ty.TypeOutlives(ty.NewParam("Self", 0), ty.EarlyBound("'a", 1))}}
	tr.Items = []*AssocItem{item}

	if err := c.Add(tr); err != nil {
		panic(err)
	}
	return c, tr, item
}

func TestGenericsIndexing(t *testing.T) {
	_, _, item := traitWithGAT()
	g := item.Generics()

	if g.ParentCount() != 1 || g.Count() != 2 {
		t.Fatalf("expected 1 parent and 2 total params, got %d and %d", g.ParentCount(), g.Count())
	}
	if p := g.ParamAt(0); p == nil || p.Name != "Self" {
		t.Errorf("expected Self at 0, got %+v", p)
	}
	if p := g.ParamAt(1); p == nil || p.Name != "'a" {
		t.Errorf("expected 'a at 1, got %+v", p)
	}
	if g.ParamAt(2) != nil {
		t.Error("expected nothing at 2")
	}

	id := g.Identity()
	if len(id) != 2 || id[0].Kind != ty.ArgType || id[1].Kind != ty.ArgRegion {
		t.Errorf("unexpected identity args %v", id)
	}
	if g.Lookup("Self") == nil || g.Lookup("T") != nil {
		t.Error("unexpected lookup result")
	}
}

func TestPredicatesOf(t *testing.T) {
	c, tr, item := traitWithGAT()

	own := c.OwnPredicates(tr.Def)
	if len(own) != 1 || own[0].Pred.Kind != ty.PredTrait || !own[0].Implicit {
		t.Fatalf("expected implicit Self: Iter, got %v", own)
	}

	all := c.PredicatesOf(item.Def)
	if len(all) != 2 {
		t.Fatalf("expected parent and own predicate, got %d", len(all))
	}
	if got := all[0].Pred.String(); got != "Self: Iter" {
		t.Errorf("expected Self: Iter first, got %s", got)
	}
	if got := all[1].Pred.String(); got != "Self: 'a" {
		t.Errorf("expected Self: 'a second, got %s", got)
	}
}

func TestCrateLookup(t *testing.T) {
	c, tr, item := traitWithGAT()

	if c.AssocNamed(tr.Def, "Item", AssocType) != item {
		t.Error("expected to find Item")
	}
	if c.AssocNamed(tr.Def, "Item", AssocFn) != nil {
		t.Error("expected kind to be respected")
	}
	if c.TraitOf(item.Def) != tr.Def {
		t.Errorf("expected trait of item to be %s", tr.Def)
	}
	if got := c.ProjectionOf(item).String(); got != "Self::Item<'a>" {
		t.Errorf("expected Self::Item<'a>, got %s", got)
	}
	if err := c.Add(tr); err == nil {
		t.Error("expected duplicate definition error")
	}
	if len(c.Items()) != 1 {
		t.Errorf("expected 1 local item, got %d", len(c.Items()))
	}

	sized := &Trait{Decl: Decl{Def: "core::Sized", Ident: "Sized", Lang: LangSized}}
	if err := c.AddExternal(sized); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.IsLang(sized.Def, LangSized) || len(c.Items()) != 1 {
		t.Error("expected external lang item to resolve without becoming local")
	}
}

type kindCounter map[string]int

func (k kindCounter) VisitAdt(*Adt)                 { k["adt"]++ }
func (k kindCounter) VisitTrait(*Trait)             { k["trait"]++ }
func (k kindCounter) VisitImpl(*Impl)               { k["impl"]++ }
func (k kindCounter) VisitFn(*Fn)                   { k["fn"]++ }
func (k kindCounter) VisitStatic(*Static)           { k["static"]++ }
func (k kindCounter) VisitAssocItem(*AssocItem)     { k["assoc"]++ }
func (k kindCounter) VisitForeignType(*ForeignType) { k["foreign"]++ }

func TestVisitorDispatch(t *testing.T) {
	nodes := []Node{
		&Adt{}, &Trait{}, &Impl{}, &Fn{}, &Static{}, &AssocItem{}, &ForeignType{},
	}
	k := kindCounter{}
	for _, n := range nodes {
		n.Accept(k)
	}
	for _, kind := range []string{"adt", "trait", "impl", "fn", "static", "assoc", "foreign"} {
		if k[kind] != 1 {
			t.Errorf("expected one %s visit, got %d", kind, k[kind])
		}
	}
}
