package wfcheck

import (
	"context"
	"testing"

	"github.com/orizon-lang/wfcheck/internal/features"
	"github.com/orizon-lang/wfcheck/internal/hir"
	"github.com/orizon-lang/wfcheck/internal/loader"
	"github.com/orizon-lang/wfcheck/internal/ty"
)

// loadCrate resolves src without checking it, so tests can patch in types
// the loader never produces.
func loadCrate(t *testing.T, src string) *hir.Crate {
	t.Helper()
	c, err := loader.Load("test.yaml", []byte(src))
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	return c
}

func runCrate(t *testing.T, c *hir.Crate, opts Options) *Result {
	t.Helper()
	res, err := NewDriver(c, opts).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected run error: %v", err)
	}
	return res
}

func TestErrorReceiverIsSilent(t *testing.T) {
	const src = `
crate: demo
items:
  - struct: Foo
  - impl: "Foo"
    items:
      - fn: broken
        self: "u32"
      - fn: boxed
        self: "Box<u32>"
`
	tests := []struct {
		name  string
		patch func(orig *ty.Ty) *ty.Ty
		item  ty.DefID
	}{
		{"error type", func(*ty.Ty) *ty.Ty { return ty.ErrorTy }, "demo::impl#0::broken"},
		{"error argument", func(orig *ty.Ty) *ty.Ty {
			return ty.NewAdt(orig.Def, orig.Name, []ty.GenericArg{ty.TypeArg(ty.ErrorTy)})
		}, "demo::impl#0::boxed"},
	}
	for _, tt := range tests {
		for _, mode := range []string{"strict", "arbitrary"} {
			t.Run(tt.name+"/"+mode, func(t *testing.T) {
				opts := Options{}
				if mode == "arbitrary" {
					opts.Features = mustFeatures(t, features.DefaultLanguageVersion, string(features.ArbitrarySelfTypes))
				}

				before := runCrate(t, loadCrate(t, src), opts)
				if find(before, string(tt.item), "invalid `self` parameter type") == nil {
					t.Fatalf("expected %s to be rejected before patching", tt.item)
				}

				c := loadCrate(t, src)
				m := c.AssocItem(tt.item)
				if m == nil {
					t.Fatalf("expected method %s", tt.item)
				}
				m.Sig.Inputs[0] = tt.patch(m.Sig.Inputs[0])

				res := runCrate(t, c, opts)
				for _, d := range res.Diagnostics {
					if d.Item == string(tt.item) {
						t.Errorf("unexpected diagnostic: %s", d)
					}
				}
				if res.Failed(tt.item) {
					t.Errorf("expected %s to be accepted", tt.item)
				}
			})
		}
	}
}

func TestErrorFieldSuppressesUnusedParameter(t *testing.T) {
	const src = `
crate: demo
items:
  - struct: Holder
    generics: [T]
    fields:
      - {name: x, type: u8}
  - struct: Plain
    generics: [T]
    fields:
      - {name: x, type: u8}
`
	c := loadCrate(t, src)
	a := c.Adt("demo::Holder")
	if a == nil {
		t.Fatal("expected struct Holder")
	}
	a.Fields()[0].Ty = ty.ErrorTy

	res := runCrate(t, c, Options{})
	for _, d := range res.Diagnostics {
		if d.Item == "demo::Holder" {
			t.Errorf("unexpected diagnostic: %s", d)
		}
	}
	expectOne(t, res, "demo::Plain", "E0392", "parameter `T` is never used")
}
