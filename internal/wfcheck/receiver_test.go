package wfcheck

import (
	"strings"
	"testing"

	"github.com/orizon-lang/wfcheck/internal/diagnostic"
	"github.com/orizon-lang/wfcheck/internal/features"
	"github.com/orizon-lang/wfcheck/internal/ty"
)

const receivers = `
crate: demo
items:
  - struct: MyBox
    generics: ["T: ?Sized"]
    fields:
      - {name: ptr, type: "*const T"}
  - impl: "Deref for MyBox<T>"
    generics: ["T: ?Sized"]
    items:
      - {type: Target, value: T}
  - struct: Foo
  - impl: "Foo"
    items:
      - fn: by_ref
        self: "&Self"
      - fn: by_value
        self: "Self"
      - fn: boxed
        self: "Box<Self>"
      - fn: pinned
        self: "Pin<&mut Self>"
      - fn: nested
        self: "&Box<Self>"
      - fn: custom
        self: "MyBox<Self>"
      - fn: raw
        self: "*const Self"
      - fn: wrong
        self: "u32"
      - fn: other
        self: "&MyBox<u8>"
`

func TestMethodReceivers(t *testing.T) {
	gated := map[string]bool{"custom": true, "raw": true}
	invalid := map[string]bool{"wrong": true, "other": true}

	tests := []struct {
		name     string
		features *features.Set
	}{
		{"strict", nil},
		{"arbitrary", mustFeatures(t, features.DefaultLanguageVersion, string(features.ArbitrarySelfTypes))},
		{"stabilized", mustFeatures(t, "3.0.0")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := run(t, receivers, Options{Features: tt.features})
			arbitrary := tt.features != nil
			for _, m := range []string{"by_ref", "by_value", "boxed", "pinned", "nested", "custom", "raw", "wrong", "other"} {
				item := "demo::impl#1::" + m
				switch {
				case invalid[m]:
					d := expectOne(t, res, item, "E0307", "invalid `self` parameter type")
					if len(d.Notes) == 0 || d.Notes[0] != "type of `self` must be `Self` or a type that dereferences to it" {
						t.Errorf("%s: unexpected notes %v", m, d.Notes)
					}
				case gated[m] && !arbitrary:
					d := expectOne(t, res, item, "E0658", "cannot be used as the type of `self` without the `arbitrary_self_types` feature")
					if len(d.Help) != 2 || !strings.Contains(d.Help[0], "arbitrary_self_types") {
						t.Errorf("%s: unexpected help %v", m, d.Help)
					}
				default:
					if res.Failed(ty.DefID(item)) {
						for _, d := range res.Diagnostics {
							if d.Item == item {
								t.Errorf("%s: unexpected %s", m, d)
							}
						}
					}
				}
			}
		})
	}
}

func TestTraitMethodReceiver(t *testing.T) {
	res := run(t, `
crate: demo
items:
  - trait: Shape
    items:
      - fn: area
        self: "&Self"
        ret: f64
      - fn: consume
        self: "Box<Self>"
      - fn: bad
        self: "&u8"
`, Options{})
	expectOne(t, res, "demo::Shape::bad", "E0307", "invalid `self` parameter type: &")
	if res.ErrorCount != 1 {
		t.Errorf("expected 1 error, got %d", res.ErrorCount)
	}
}

func TestReceiverRecursionLimit(t *testing.T) {
	res := run(t, `
crate: demo
items:
  - struct: Loop
  - impl: "Deref for Loop"
    items:
      - {type: Target, value: Loop}
  - struct: Foo
  - impl: "Foo"
    items:
      - fn: spin
        self: "Loop"
`, Options{Features: mustFeatures(t, features.DefaultLanguageVersion, string(features.ArbitrarySelfTypes)), RecursionLimit: 8})
	expectOne(t, res, "demo::impl#1::spin", "E0307", "invalid `self` parameter type: Loop")

	d := expectOne(t, res, "demo::impl#1::spin", "", "reached the recursion limit while auto-dereferencing `Loop`")
	if d.Level != diagnostic.DiagnosticWarning {
		t.Errorf("expected a warning, got %s", d.Level)
	}
}

func mustFeatures(t *testing.T, version string, names ...string) *features.Set {
	t.Helper()
	fs, err := features.New(version, names...)
	if err != nil {
		t.Fatalf("features: %v", err)
	}
	return fs
}
