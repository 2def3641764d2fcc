package wfcheck

import (
	"testing"

	"github.com/orizon-lang/wfcheck/internal/diagnostic"
	"github.com/orizon-lang/wfcheck/internal/features"
	"github.com/orizon-lang/wfcheck/internal/ty"
)

func TestMarkerTraitItems(t *testing.T) {
	res := run(t, `
crate: demo
items:
  - trait: Tag
    marker: true
    items:
      - type: Kind
      - fn: tag
        self: "&Self"
  - trait: Empty
    marker: true
`, Options{})
	var n int
	for _, d := range res.Diagnostics {
		if d.Code == "E0714" {
			n++
			if d.Item != "demo::Tag" {
				t.Errorf("expected E0714 on demo::Tag, got %s", d.Item)
			}
		}
	}
	if n != 2 {
		t.Errorf("expected one E0714 per item, got %d", n)
	}
	if res.Failed("demo::Empty") {
		t.Error("expected an empty marker trait to be accepted")
	}
}

func TestObjectUnsafeSelfByName(t *testing.T) {
	res := run(t, `
crate: demo
items:
  - trait: Shape
    where: ["Self: Sized"]
    items:
      - fn: merge
        self: "&Self"
        params: ["&dyn Shape"]
        ret: "Box<dyn Shape>"
      - fn: same
        params: ["dyn Shape"]
  - trait: Safe
    items:
      - fn: same
        self: "&Self"
        params: ["dyn Safe"]
`, Options{})

	d := expectOne(t, res, "demo::Shape::same", "", "associated item referring to unboxed trait object for its own trait")
	if len(d.Suggestions) != 1 {
		t.Fatalf("expected one suggestion, got %d", len(d.Suggestions))
	}
	s := d.Suggestions[0]
	if s.Applicability != diagnostic.MachineApplicable || len(s.Edits) != 1 || s.Edits[0].NewText != "Self" {
		t.Errorf("expected a machine-applicable rewrite to Self, got %+v", s)
	}
	if len(d.Labels) != 1 || d.Labels[0].Message != "in this trait" {
		t.Errorf("expected the trait to be labelled, got %+v", d.Labels)
	}
	if find(res, "demo::Shape::merge", "unboxed trait object") != nil {
		t.Error("expected boxed and borrowed trait objects to be left alone")
	}
	if find(res, "demo::Safe::same", "unboxed trait object") != nil {
		t.Error("expected object-safe traits to be left alone")
	}
}

func TestCallLangItem(t *testing.T) {
	tests := []struct {
		name  string
		item  string
		title string
	}{
		{"valid", `{fn: call, self: "&Self", params: [Args]}`, ""},
		{"by value", `{fn: call, self: "Self", params: [Args]}`, "first argument of `call` in `fn` lang item must be a reference"},
		{"arity", `{fn: call, self: "&Self"}`, "`call` function in `fn` lang item takes exactly two arguments"},
		{"not a function", `{type: call}`, "`call` trait item in `fn` lang item must be a function"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := run(t, `
crate: demo
items:
  - trait: Call
    lang: fn
    generics: [Args]
    items:
      - `+tt.item+`
`, Options{})
			if tt.title == "" {
				expectClean(t, res)
				return
			}
			expectOne(t, res, "demo::Call::call", "", tt.title)
		})
	}
}

func TestImplHeaders(t *testing.T) {
	res := run(t, `
crate: demo
items:
  - struct: S
  - impl: "!Send for S"
    default: true
  - impl: "Sync for S"
    default: true
  - impl: "Copy for S"
    reservation: true
    where: ["u8: Iterator"]
  - trait: Named
    generics: [T]
    where: ["T: Copy"]
  - struct: String
  - impl: "Named<String> for S"
  - impl: "Named<u8> for S"
`, Options{})

	d := expectOne(t, res, "demo::impl#0", "E0750", "negative impls cannot be default impls")
	if len(d.Labels) != 1 {
		t.Errorf("expected the default keyword to be labelled, got %+v", d.Labels)
	}
	d = expectOne(t, res, "demo::impl#1", "", "impls of auto traits cannot be default")
	if d.Label != "auto trait" || len(d.Labels) != 1 || d.Labels[0].Message != "default because of this" {
		t.Errorf("unexpected labels %q %+v", d.Label, d.Labels)
	}
	if find(res, "demo::impl#2", "") != nil {
		t.Error("expected the reservation impl to be skipped")
	}
	expectOne(t, res, "demo::impl#3", "E0277", "the trait bound `String: Copy` is not satisfied")
	if res.Failed("demo::impl#4") {
		t.Error("expected Named<u8> to be accepted")
	}
}

func TestImplAssociatedTypes(t *testing.T) {
	res := run(t, `
crate: demo
items:
  - trait: Container
    items:
      - type: Elem
        bounds: Copy
      - type: View
        generics: ["'a"]
        where: ["Self: 'a"]
  - struct: String
  - struct: Good
    generics: [T]
    fields:
      - {name: t, type: T}
  - impl: "Container for Good<T>"
    generics: [T]
    items:
      - {type: Elem, value: u32}
      - type: View
        generics: ["'a"]
        where: ["T: 'a"]
        value: "&'a T"
  - struct: Bad
    generics: [T]
    fields:
      - {name: t, type: T}
  - impl: "Container for Bad<T>"
    generics: [T]
    items:
      - {type: Elem, value: String}
      - type: View
        generics: ["'a"]
        value: "&'a T"
`, Options{})

	expectOne(t, res, "demo::impl#1::Elem", "E0277", "the trait bound `String: Copy` is not satisfied")
	expectOne(t, res, "demo::impl#1::View", "E0309", "the parameter type `T` may not live long enough")
	for _, item := range []string{"demo::impl#0::Elem", "demo::impl#0::View", "demo::Container::View"} {
		if res.Failed(ty.DefID(item)) {
			t.Errorf("expected %s to be accepted", item)
		}
	}
}

func TestConstParamTypes(t *testing.T) {
	decls := `
crate: demo
items:
  - struct: Point
    derive: [PartialEq, Eq]
    fields:
      - {name: x, type: i32}
  - struct: Loose
    fields:
      - {name: x, type: i32}
  - struct: Holder
    derive: [PartialEq, Eq]
    fields:
      - {name: inner, type: Loose}
  - struct: Int
    generics: ["const N: usize"]
  - struct: ByPoint
    generics: ["const P: Point"]
  - struct: ByLoose
    generics: ["const L: Loose"]
  - struct: ByHolder
    generics: ["const H: Holder"]
  - struct: ByRaw
    generics: ["const R: *const u8"]
  - struct: ByParam
    generics: [T, "const V: T"]
    fields:
      - {name: t, type: T}
`
	tests := []struct {
		name     string
		features *features.Set
		want     map[string]string
	}{
		{
			"integers only",
			nil,
			map[string]string{
				"demo::ByPoint":  "`Point` is forbidden as the type of a const generic parameter",
				"demo::ByLoose":  "`Loose` is forbidden as the type of a const generic parameter",
				"demo::ByHolder": "`Holder` is forbidden as the type of a const generic parameter",
				"demo::ByRaw":    "using raw pointers as const generic parameters is forbidden",
				"demo::ByParam":  "`T` is forbidden as the type of a const generic parameter",
			},
		},
		{
			"adt const params",
			mustFeatures(t, features.DefaultLanguageVersion, string(features.AdtConstParams)),
			map[string]string{
				"demo::ByLoose":  "`Loose` must be annotated with `#[derive(PartialEq, Eq)]`",
				"demo::ByHolder": "`Loose` must be annotated with `#[derive(PartialEq, Eq)]`",
				"demo::ByRaw":    "using raw pointers as const generic parameters is forbidden",
				"demo::ByParam":  "`T` is not guaranteed to `#[derive(PartialEq, Eq)]`",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := run(t, decls, Options{Features: tt.features})
			for item, title := range tt.want {
				if find(res, item, title) == nil {
					t.Errorf("expected %q on %s", title, item)
				}
			}
			for _, item := range []string{"demo::Int", "demo::Point"} {
				if res.Failed(ty.DefID(item)) {
					t.Errorf("expected %s to be accepted", item)
				}
			}
			if tt.features != nil && res.Failed("demo::ByPoint") {
				t.Error("expected a structural-match type to be accepted")
			}
		})
	}
}
