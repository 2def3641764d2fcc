package traits

import (
	"sync"
	"testing"

	"github.com/orizon-lang/wfcheck/internal/hir"
	"github.com/orizon-lang/wfcheck/internal/loader"
	"github.com/orizon-lang/wfcheck/internal/position"
	"github.com/orizon-lang/wfcheck/internal/ty"
)

const fixture = `
crate: demo
items:
  - trait: Shape
  - trait: Solid
    bounds: Shape
  - struct: Square
  - struct: Circle
  - impl: "Shape for Square"
  - struct: Wrapper
    generics: [T]
    fields:
      - {name: inner, type: T}
  - impl: "Shape for Wrapper<T>"
    generics: ["T: Shape"]
  - struct: Tail
    fields:
      - {name: len, type: usize}
      - {name: data, type: str}
  - struct: Handle
    fields:
      - {name: raw, type: "*const u8"}
  - struct: Owner
    fields:
      - {name: b, type: "Box<i32>"}
  - fn: generic
    generics: ["T: Solid", "P: Deref"]
    params: [T, P]
  - fn: targets
    params: ["<Box<i32> as Deref>::Target", "<Pin<Box<u8>> as Deref>::Target"]
`

func setup(t *testing.T) (*Solver, *hir.Crate) {
	t.Helper()
	c, err := loader.Load("fixture.yaml", []byte(fixture))
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	return NewSolver(c, 0), c
}

func adt(c *hir.Crate, name string, args ...*ty.Ty) *ty.Ty {
	id := ty.DefID("demo::" + name)
	if c.Adt(id) == nil {
		id = ty.DefID("core::" + name)
	}
	var ga []ty.GenericArg
	for _, a := range args {
		ga = append(ga, ty.TypeArg(a))
	}
	return ty.NewAdt(id, name, ga)
}

func traitPred(c *hir.Crate, trait ty.DefID, self *ty.Ty) ty.Predicate {
	tr := c.Trait(trait)
	return ty.TraitPred(ty.TraitRef{Def: tr.Def, Name: tr.Ident, Args: []ty.GenericArg{ty.TypeArg(self)}})
}

func fnSig(t *testing.T, c *hir.Crate, name string) *hir.FnSig {
	t.Helper()
	n, ok := c.Node(ty.DefID("demo::" + name))
	if !ok {
		t.Fatalf("expected fn %s", name)
	}
	return n.(*hir.Fn).Sig
}

func TestEvaluateTraitPredicates(t *testing.T) {
	s, c := setup(t)
	sig := fnSig(t, c, "generic")
	env := s.ParamEnvOf("demo::generic")
	tParam, pParam := sig.Inputs[0], sig.Inputs[1]

	tests := []struct {
		name  string
		trait ty.DefID
		self  *ty.Ty
		want  bool
	}{
		{"direct impl", "demo::Shape", adt(c, "Square"), true},
		{"no impl", "demo::Shape", adt(c, "Circle"), false},
		{"impl with satisfied bound", "demo::Shape", adt(c, "Wrapper", adt(c, "Square")), true},
		{"impl with unsatisfied bound", "demo::Shape", adt(c, "Wrapper", adt(c, "Circle")), false},
		{"caller bound", "demo::Solid", tParam, true},
		{"elaborated supertrait", "demo::Shape", tParam, true},
		{"missing bound", "demo::Shape", pParam, false},
		{"error type holds", "demo::Shape", ty.ErrorTy, true},
		{"sized primitive", "core::Sized", ty.Prim("i32"), true},
		{"unsized str", "core::Sized", ty.StrTy, false},
		{"unsized slice", "core::Sized", ty.NewSlice(ty.Prim("u8")), false},
		{"unsized tail field", "core::Sized", adt(c, "Tail"), false},
		{"boxed str is sized", "core::Sized", adt(c, "Box", ty.StrTy), true},
		{"sized param from implicit bound", "core::Sized", tParam, true},
		{"copy shared ref", "core::Copy", ty.NewRef(ty.Static, ty.StrTy, false), true},
		{"copy mut ref", "core::Copy", ty.NewRef(ty.Static, ty.Prim("i32"), true), false},
		{"copy option of copy", "core::Copy", adt(c, "Option", ty.Prim("u8")), true},
		{"copy option of box", "core::Copy", adt(c, "Option", adt(c, "Box", ty.Prim("u8"))), false},
		{"structural send", "core::Send", adt(c, "Owner"), true},
		{"raw pointer field is not send", "core::Send", adt(c, "Handle"), false},
		{"negative impl", "core::Send", adt(c, "Rc", ty.Prim("i32")), false},
		{"arc of sync data", "core::Sync", adt(c, "Arc", ty.Prim("i32")), true},
		{"deref bound", "core::Deref", pParam, true},
		{"receiver through pin", "core::Receiver", adt(c, "Pin", adt(c, "Box", ty.Prim("i32"))), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Evaluate(env, traitPred(c, tt.trait, tt.self))
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestEvaluateConcurrent(t *testing.T) {
	s, c := setup(t)
	pred := traitPred(c, "demo::Shape", adt(c, "Wrapper", adt(c, "Wrapper", adt(c, "Square"))))
	var wg sync.WaitGroup
	results := make([]bool, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.Evaluate(EmptyEnv(), pred)
		}(i)
	}
	wg.Wait()
	for i, r := range results {
		if !r {
			t.Errorf("expected goroutine %d to prove the bound", i)
		}
	}
}

func TestNormalize(t *testing.T) {
	s, c := setup(t)
	sig := fnSig(t, c, "targets")
	tests := []struct {
		in   *ty.Ty
		want string
	}{
		{sig.Inputs[0], "i32"},
		{sig.Inputs[1], "u8"},
	}
	for _, tt := range tests {
		t.Run(tt.in.String(), func(t *testing.T) {
			if got := s.Normalize(EmptyEnv(), tt.in).String(); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}

	generic := fnSig(t, c, "generic")
	deref, _ := c.LangItem(hir.LangDeref)
	target := c.AssocNamed(deref, "Target", hir.AssocType)
	proj := ty.NewProjection(target.Def, "Target", deref, "Deref", []ty.GenericArg{ty.TypeArg(generic.Inputs[1])}, 1)
	if got := s.Normalize(s.ParamEnvOf("demo::generic"), proj); got.Kind != ty.Projection {
		t.Errorf("expected an opaque projection on a parameter, got %s", got)
	}
}

func TestWFObligations(t *testing.T) {
	s, c := setup(t)
	a := ty.EarlyBound("'a", 0)
	tests := []struct {
		name string
		in   *ty.Ty
		want []string
	}{
		{"reference", ty.NewRef(a, ty.NewParam("T", 1), false), []string{"T: 'a", "WF(T)"}},
		{"slice", ty.NewSlice(ty.NewParam("T", 1)), []string{"T: Sized", "WF(T)"}},
		{"adt", adt(c, "Wrapper", ty.Prim("u8")), []string{"u8: Sized", "WF(u8)"}},
		{"primitive", ty.Prim("u8"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, p := range s.WFObligations(ty.TypeArg(tt.in)) {
				got = append(got, p.String())
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("expected %s at %d, got %s", tt.want[i], i, got[i])
				}
			}
		})
	}
}

func TestFulfillment(t *testing.T) {
	s, c := setup(t)
	cause := MiscCause(position.DummySpan)
	a := ty.EarlyBound("'a", 0)

	f := NewFulfillmentContext()
	f.Register(NewObligation(EmptyEnv(), cause, ty.WellFormed(ty.TypeArg(adt(c, "Wrapper", ty.StrTy)))))
	f.Register(NewObligation(EmptyEnv(), cause, ty.WellFormed(ty.TypeArg(ty.NewRef(a, ty.NewParam("T", 1), false)))))
	f.Register(NewObligation(EmptyEnv(), cause, traitPred(c, "demo::Shape", adt(c, "Square"))))
	if f.Pending() != 3 {
		t.Fatalf("expected 3 pending obligations, got %d", f.Pending())
	}

	outlives, errs := f.SelectAll(s)
	if len(errs) != 1 || errs[0].Obligation.Pred.String() != "str: Sized" {
		t.Fatalf("expected one `str: Sized` error, got %v", errs)
	}
	if errs[0].Root.Pred.Kind != ty.PredWellFormed {
		t.Errorf("expected the error to keep its root WF obligation")
	}
	if len(outlives) != 1 || outlives[0].Pred.String() != "T: 'a" {
		t.Errorf("expected the outlives obligation T: 'a, got %v", outlives)
	}
	if f.Pending() != 0 {
		t.Errorf("expected the queue to drain")
	}
}

func TestImpliedOutlives(t *testing.T) {
	s, _ := setup(t)
	a := ty.EarlyBound("'a", 0)
	b := ty.EarlyBound("'b", 1)
	inner := ty.NewRef(b, ty.NewParam("T", 2), false)
	got := s.ImpliedOutlives(EmptyEnv(), ty.NewRef(a, inner, false))
	var keys []string
	for _, p := range got {
		keys = append(keys, p.String())
	}
	want := []string{"&'b T: 'a", "T: 'b"}
	if len(keys) != len(want) || keys[0] != want[0] || keys[1] != want[1] {
		t.Errorf("expected %v, got %v", want, keys)
	}
}

func TestAutoderef(t *testing.T) {
	s, c := setup(t)
	start := ty.NewRef(ty.Static, adt(c, "Box", adt(c, "Rc", ty.Prim("u8"))), false)
	ad := s.Autoderef(EmptyEnv(), start, false)
	var seen []string
	for t, ok := ad.Next(); ok; t, ok = ad.Next() {
		seen = append(seen, t.String())
	}
	want := []string{"&'static Box<Rc<u8>>", "Box<Rc<u8>>", "Rc<u8>", "u8"}
	if len(seen) != len(want) {
		t.Fatalf("expected %v, got %v", want, seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("expected %s at step %d, got %s", want[i], i, seen[i])
		}
	}
	if len(ad.Obligations()) != 2 {
		t.Errorf("expected 2 overloaded steps, got %d", len(ad.Obligations()))
	}
	if steps := ad.Steps(); len(steps) != 3 || steps[0].Kind != BuiltinDeref || steps[1].Kind != OverloadedDeref {
		t.Errorf("unexpected steps %+v", steps)
	}

	raw := s.Autoderef(EmptyEnv(), ty.NewRawPtr(ty.Prim("u8"), false), false)
	raw.Next()
	if _, ok := raw.Next(); ok {
		t.Error("expected raw pointers to stop autoderef")
	}
}

func TestObjectSafety(t *testing.T) {
	c, err := loader.Load("objects.yaml", []byte(`
crate: demo
items:
  - trait: Fine
    items:
      - fn: show
        self: "&Self"
      - fn: build
        ret: i32
        where: ["Self: Sized"]
  - trait: Generic
    items:
      - fn: map
        generics: [U]
        self: "&Self"
        params: [U]
  - trait: Cloner
    items:
      - fn: dup
        self: "&Self"
        ret: Self
  - trait: Maker
    items:
      - fn: make
        ret: i32
  - trait: Bounded
    bounds: Sized
  - trait: Inherits
    bounds: Cloner
  - trait: Holder
    items:
      - const: ID
        type: u32
`))
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	s := NewSolver(c, 0)
	tests := []struct {
		trait string
		want  []ViolationKind
	}{
		{"Fine", nil},
		{"Generic", []ViolationKind{GenericMethod}},
		{"Cloner", []ViolationKind{ReferencesSelf}},
		{"Maker", []ViolationKind{StaticMethod}},
		{"Bounded", []ViolationKind{SizedSelf}},
		{"Inherits", []ViolationKind{ReferencesSelf}},
		{"Holder", []ViolationKind{AssocConstViolation}},
	}
	for _, tt := range tests {
		t.Run(tt.trait, func(t *testing.T) {
			got := s.ObjectSafetyViolations(ty.DefID("demo::" + tt.trait))
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i].Kind != tt.want[i] {
					t.Errorf("expected %v, got %v", tt.want[i], got[i])
				}
			}
		})
	}
}

func TestNeedsDropCopy(t *testing.T) {
	s, c := setup(t)
	tests := []struct {
		name string
		in   *ty.Ty
		want bool
	}{
		{"integer", ty.Prim("i32"), false},
		{"box", adt(c, "Box", ty.Prim("i32")), true},
		{"field with drop glue", adt(c, "Owner"), true},
		{"copy option", adt(c, "Option", ty.Prim("i32")), false},
		{"plain struct", adt(c, "Handle"), false},
		{"array of boxes", ty.NewArray(adt(c, "Box", ty.Prim("i32")), ty.NewConstValue("2", ty.Prim("usize"))), true},
		{"type parameter", ty.NewParam("T", 0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.NeedsDropCopy(EmptyEnv(), tt.in); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestParamEnvAugment(t *testing.T) {
	base := NewParamEnv([]ty.Predicate{ty.TypeOutlives(ty.NewParam("T", 0), ty.Static)})
	more := base.Augment(ty.TypeOutlives(ty.NewParam("T", 0), ty.Static), ty.RegionOutlives(ty.Static, ty.EarlyBound("'a", 1)))
	if len(base.CallerBounds()) != 1 {
		t.Errorf("expected the original environment to stay unchanged")
	}
	if len(more.CallerBounds()) != 2 {
		t.Errorf("expected duplicates to collapse, got %v", more)
	}
	if base.Key() == more.Key() {
		t.Error("expected distinct keys")
	}
}
