package ty

import "testing"

func TestTyString(t *testing.T) {
	a := EarlyBound("'a", 0)
	tp := NewParam("T", 1)
	self := NewParam("Self", 0)

	tests := []struct {
		name     string
		ty       *Ty
		expected string
	}{
		{"ref", NewRef(a, tp, false), "&'a T"},
		{"mut ref", NewRef(a, tp, true), "&'a mut T"},
		{"erased ref", NewRef(Erased, tp, false), "&T"},
		{"raw", NewRawPtr(tp, false), "*const T"},
		{"slice", NewSlice(Prim("u8")), "[u8]"},
		{"array", NewArray(Prim("u8"), NewConstValue("4", Prim("usize"))), "[u8; 4]"},
		{"unit", UnitTy, "()"},
		{"one tuple", NewTuple(tp), "(T,)"},
		{"fn", NewFnPtr([]*Ty{tp}, BoolTy), "fn(T) -> bool"},
		{"adt", NewAdt("demo::Vec", "Vec", []GenericArg{TypeArg(tp)}), "Vec<T>"},
		{
			"self projection",
			NewProjection("demo::Iter::Item", "Item", "demo::Iter", "Iter", []GenericArg{TypeArg(self), RegionArg(EarlyBound("'a", 1))}, 1),
			"Self::Item<'a>",
		},
		{
			"qualified projection",
			NewProjection("demo::Iter::Item", "Item", "demo::Iter", "Iter", []GenericArg{TypeArg(tp)}, 1),
			"<T as Iter>::Item",
		},
		{"dyn", NewDynamic("demo::Tr", "Tr", nil, Erased), "dyn Tr"},
		{"dyn region", NewDynamic("demo::Tr", "Tr", nil, Static), "dyn Tr + 'static"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ty.String(); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestSubst(t *testing.T) {
	a := EarlyBound("'a", 0)
	ref := NewRef(a, NewParam("T", 1), false)
	args := []GenericArg{RegionArg(Static), TypeArg(Prim("i32"))}

	got := Subst(args).FoldTy(ref)
	if got.String() != "&'static i32" {
		t.Errorf("expected &'static i32, got %s", got)
	}
	if ref.String() != "&'a T" {
		t.Errorf("substitution mutated its input: %s", ref)
	}

	partial := Subst(args[:1]).FoldTy(ref)
	if !HasParamTypesOrConsts(partial) {
		t.Errorf("expected %s to keep its type parameter", partial)
	}
}

func TestLiberate(t *testing.T) {
	fn := DefID("demo::f")
	r := LateBound("'a", fn)
	other := LateBound("'b", "demo::g")
	in := NewRef(r, NewRef(other, BoolTy, false), false)

	out := Liberate(fn).FoldTy(in)
	if out.Region.Kind != ReFree {
		t.Errorf("expected free region, got %v", out.Region.Kind)
	}
	if out.Elem.Region.Kind != ReLateBound {
		t.Errorf("expected region of another binder to stay bound, got %v", out.Elem.Region.Kind)
	}
	if !PredicateHasLateBound(TypeOutlives(in, Static)) {
		t.Error("expected late-bound region to be detected")
	}
}

func TestPredicateSet(t *testing.T) {
	a := EarlyBound("'a", 1)
	self := NewParam("Self", 0)

	s := NewPredicateSet(TypeOutlives(self, a))
	if s.Insert(TypeOutlives(NewParam("Self", 0), EarlyBound("'a", 1))) {
		t.Error("expected structurally equal predicate to be a duplicate")
	}
	s.Insert(RegionOutlives(a, Static))
	if s.Len() != 2 {
		t.Fatalf("expected 2 predicates, got %d", s.Len())
	}

	other := NewPredicateSet(RegionOutlives(a, Static))
	s.Retain(other.Contains)
	if s.Len() != 1 || s.Items()[0].Kind != PredRegionOutlives {
		t.Errorf("expected intersection to keep only the region bound, got %v", s.Items())
	}
	if got := s.Items()[0].String(); got != "'a: 'static" {
		t.Errorf("expected 'a: 'static, got %s", got)
	}
}

func TestPredicateQueries(t *testing.T) {
	tp := NewParam("T", 0)
	up := NewParam("U", 1)
	copyRef := func(self *Ty) Predicate {
		return TraitPred(TraitRef{Def: "core::Copy", Name: "Copy", Args: []GenericArg{TypeArg(self)}})
	}

	tests := []struct {
		name    string
		pred    Predicate
		global  bool
		params  int
		regions bool
	}{
		{"param bound", copyRef(tp), false, 1, false},
		{"global bound", copyRef(Prim("i32")), true, 0, false},
		{"outlives", TypeOutlives(tp, EarlyBound("'a", 2)), false, 1, true},
		{"two params", Equate(tp, up), false, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PredicateIsGlobal(tt.pred); got != tt.global {
				t.Errorf("expected global=%v, got %v", tt.global, got)
			}
			if got := len(ParamIndices(tt.pred)); got != tt.params {
				t.Errorf("expected %d params, got %d", tt.params, got)
			}
			if got := PredicateHasRegions(tt.pred); got != tt.regions {
				t.Errorf("expected regions=%v, got %v", tt.regions, got)
			}
		})
	}
}
