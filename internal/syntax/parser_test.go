package syntax

import "testing"

func TestParseType(t *testing.T) {
	tests := []struct {
		input string
		kind  TypeKind
		check func(t *testing.T, ty *Type)
	}{
		{"&'a mut T", TRef, func(t *testing.T, ty *Type) {
			if ty.Lifetime != "'a" || !ty.Mut || ty.Elem.Path.Last().Name != "T" {
				t.Errorf("unexpected reference %+v", ty)
			}
		}},
		{"*const u8", TPtr, func(t *testing.T, ty *Type) {
			if ty.Mut {
				t.Error("expected const pointer")
			}
		}},
		{"[u8; { N + 1 }]", TArray, func(t *testing.T, ty *Type) {
			if !ty.Len.Block || ty.Len.Text != "N + 1" {
				t.Errorf("unexpected length %+v", ty.Len)
			}
		}},
		{"(i32,)", TTuple, func(t *testing.T, ty *Type) {
			if len(ty.Elems) != 1 {
				t.Errorf("expected one element, got %d", len(ty.Elems))
			}
		}},
		{"(i32)", TPath, nil},
		{"fn(&'a T, u8) -> bool", TFn, func(t *testing.T, ty *Type) {
			if len(ty.Elems) != 2 || ty.Output == nil {
				t.Errorf("unexpected fn type %+v", ty)
			}
		}},
		{"dyn Iterator<Item = u8> + 'static", TDyn, func(t *testing.T, ty *Type) {
			seg := ty.Path.Last()
			if ty.Lifetime != "'static" || len(seg.Bindings) != 1 || seg.Bindings[0].Name != "Item" {
				t.Errorf("unexpected dyn type %+v", ty)
			}
		}},
		{"<T as Iter>::Item<'a>", TQualified, func(t *testing.T, ty *Type) {
			if ty.Assoc.Name != "Item" || len(ty.Assoc.Args) != 1 || ty.Assoc.Args[0].Lifetime != "'a" {
				t.Errorf("unexpected projection %+v", ty.Assoc)
			}
		}},
		{"Self::Item<'a>", TPath, func(t *testing.T, ty *Type) {
			if len(ty.Path.Segments) != 2 {
				t.Errorf("expected two segments, got %d", len(ty.Path.Segments))
			}
		}},
		{"Iterator<Item<'a> = &'a T>", TPath, func(t *testing.T, ty *Type) {
			b := ty.Path.Last().Bindings
			if len(b) != 1 || len(b[0].Args) != 1 || b[0].Type.Kind != TRef {
				t.Errorf("unexpected binding %+v", b)
			}
		}},
		{"Arr<3, true>", TPath, func(t *testing.T, ty *Type) {
			args := ty.Path.Last().Args
			if len(args) != 2 || args[0].Const == nil || args[1].Const == nil {
				t.Errorf("expected two const args, got %+v", args)
			}
		}},
		{"!", TNever, nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			ty, err := ParseType(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ty.Kind != tt.kind {
				t.Fatalf("expected kind %d, got %d", tt.kind, ty.Kind)
			}
			if tt.check != nil {
				tt.check(t, ty)
			}
		})
	}
}

func TestParseTypeSpans(t *testing.T) {
	ty, err := ParseType("Box< &'a T >")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	arg := ty.Path.Last().Args[0].Type
	if arg.Offset != 5 || arg.End != 10 {
		t.Errorf("expected inner type at 5..10, got %d..%d", arg.Offset, arg.End)
	}
	if ty.End != 12 {
		t.Errorf("expected end 12, got %d", ty.End)
	}
}

func TestParseErrors(t *testing.T) {
	inputs := []string{"&", "*T", "Vec<T", "T U", "[u8; ]", "{ 1"}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			if _, err := ParseType(in); err == nil {
				t.Errorf("expected error for %q", in)
			}
		})
	}
}

func TestParseWherePredicate(t *testing.T) {
	w, err := ParseWherePredicate("T: 'a + Iterator<Item = u8> + ?Sized")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w.Bounds) != 3 {
		t.Fatalf("expected 3 bounds, got %d", len(w.Bounds))
	}
	if w.Bounds[0].Lifetime != "'a" || w.Bounds[1].Trait == nil || !w.Bounds[2].Maybe {
		t.Errorf("unexpected bounds %+v", w.Bounds)
	}

	r, err := ParseWherePredicate("'a: 'b + 'static")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Lifetime != "'a" || len(r.Bounds) != 2 {
		t.Errorf("unexpected region predicate %+v", r)
	}
}

func TestParseParam(t *testing.T) {
	tests := []struct {
		input string
		kind  ParamKind
		name  string
	}{
		{"'a", ParamLifetime, "'a"},
		{"'a: 'b", ParamLifetime, "'a"},
		{"T", ParamType, "T"},
		{"T: Copy = u8", ParamType, "T"},
		{"const N: usize = 3", ParamConst, "N"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			p, err := ParseParam(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Kind != tt.kind || p.Name != tt.name {
				t.Errorf("expected %d %s, got %d %s", tt.kind, tt.name, p.Kind, p.Name)
			}
		})
	}

	p, _ := ParseParam("T: Copy = u8")
	if p.Default == nil || len(p.Bounds) != 1 {
		t.Errorf("expected bound and default, got %+v", p)
	}
}

func TestParseImplHeader(t *testing.T) {
	tests := []struct {
		input    string
		negative bool
		trait    string
		self     string
	}{
		{"Iter for Foo<T>", false, "Iter", "Foo"},
		{"!Send for Foo", true, "Send", "Foo"},
		{"Foo<T>", false, "", "Foo"},
		{"Deref for Box<T>", false, "Deref", "Box"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			h, err := ParseImplHeader(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if h.Negative != tt.negative {
				t.Errorf("expected negative=%v", tt.negative)
			}
			trait := ""
			if h.Trait != nil {
				trait = h.Trait.Last().Name
			}
			if trait != tt.trait {
				t.Errorf("expected trait %q, got %q", tt.trait, trait)
			}
			if h.SelfTy.Path.Last().Name != tt.self {
				t.Errorf("expected self %q, got %q", tt.self, h.SelfTy.Path.Last().Name)
			}
		})
	}
}
