package wfcheck

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/orizon-lang/wfcheck/internal/cli"
	"github.com/orizon-lang/wfcheck/internal/diagnostic"
	"github.com/orizon-lang/wfcheck/internal/loader"
	"github.com/orizon-lang/wfcheck/internal/ty"
)

func run(t *testing.T, src string, opts Options) *Result {
	t.Helper()
	return runCrate(t, loadCrate(t, src), opts)
}

// find returns the first diagnostic of item whose title contains title.
func find(res *Result, item, title string) *diagnostic.Diagnostic {
	for _, d := range res.Diagnostics {
		if d.Item == item && strings.Contains(d.Title, title) {
			return d
		}
	}
	return nil
}

func expectClean(t *testing.T, res *Result) {
	t.Helper()
	if res.HasErrors() {
		for _, d := range res.Diagnostics {
			t.Errorf("unexpected diagnostic: %s (%s)", d, d.Item)
		}
	}
}

func expectOne(t *testing.T, res *Result, item, code, title string) *diagnostic.Diagnostic {
	t.Helper()
	d := find(res, item, title)
	if d == nil {
		var got []string
		for _, d := range res.Diagnostics {
			got = append(got, d.Item+": "+d.Title)
		}
		t.Fatalf("expected %q on %s, got %v", title, item, got)
	}
	if d.Code != code {
		t.Errorf("expected code %q, got %q", code, d.Code)
	}
	return d
}

func TestFieldOutlives(t *testing.T) {
	res := run(t, `
crate: demo
items:
  - struct: Ref
    generics: ["'a", "T"]
    fields:
      - {name: x, type: "&'a T"}
  - struct: RefOk
    generics: ["'a", "T"]
    where: ["T: 'a"]
    fields:
      - {name: x, type: "&'a T"}
`, Options{})

	d := expectOne(t, res, "demo::Ref", "E0309", "the parameter type `T` may not live long enough")
	if d.Span.Start.Line != 7 {
		t.Errorf("expected the error on the field at line 7, got %s", d.Span)
	}
	if len(d.Suggestions) != 1 || d.Suggestions[0].Edits[0].NewText != " where T: 'a" {
		t.Errorf("expected a `where T: 'a` suggestion, got %+v", d.Suggestions)
	}
	if res.ErrorCount != 1 {
		t.Errorf("expected 1 error, got %d", res.ErrorCount)
	}
	if !res.Failed("demo::Ref") || res.Failed("demo::RefOk") {
		t.Error("expected only demo::Ref to fail")
	}
}

func TestUnusedParameter(t *testing.T) {
	res := run(t, `
crate: demo
items:
  - struct: PhantomUnused
    generics: [T]
    fields:
      - {name: x, type: i32}
  - struct: Marked
    generics: [T]
    fields:
      - {name: x, type: i32}
      - {name: m, type: "PhantomData<T>"}
  - struct: Bounded
    generics: ["T: Copy"]
  - struct: Projected
    generics: [I, T]
    where: ["I: Iterator<Item = T>"]
    fields:
      - {name: it, type: I}
  - struct: ConstOnly
    generics: ["const N: usize"]
`, Options{})

	d := expectOne(t, res, "demo::PhantomUnused", "E0392", "parameter `T` is never used")
	if len(d.Help) != 2 || !strings.Contains(d.Help[0], "PhantomData") {
		t.Errorf("expected marker and const-parameter help, got %v", d.Help)
	}

	d = expectOne(t, res, "demo::Bounded", "E0392", "parameter `T` is never used")
	if len(d.Help) != 1 {
		t.Errorf("expected no const-parameter help for a bounded parameter, got %v", d.Help)
	}

	for _, item := range []string{"demo::Marked", "demo::Projected", "demo::ConstOnly"} {
		if res.Failed(ty.DefID(item)) {
			t.Errorf("expected %s to be accepted", item)
		}
	}
}

func TestFieldsSized(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		title string
		note  string
	}{
		{
			"unsized tail is allowed",
			`
  - struct: S
    fields:
      - {name: len, type: usize}
      - {name: data, type: "[u8]"}
`, "", "",
		},
		{
			"unsized field before the tail",
			`
  - struct: S
    fields:
      - {name: data, type: "[u8]"}
      - {name: len, type: usize}
`,
			"the size for values of type `[u8]` cannot be known at compilation time",
			"only the last field of a struct may have a dynamically sized type",
		},
		{
			"enum fields are all sized",
			`
  - enum: E
    variants:
      - {name: A, fields: [{type: str}]}
`,
			"the size for values of type `str` cannot be known at compilation time", "",
		},
		{
			"packed tail without drop",
			`
  - struct: S
    packed: true
    fields:
      - {name: len, type: usize}
      - {name: data, type: "[u8]"}
`, "", "",
		},
		{
			"packed tail that needs drop",
			`
  - struct: S
    packed: true
    fields:
      - {name: len, type: usize}
      - {name: data, type: "[Box<u8>]"}
`,
			"the size for values of type `[Box<u8>]` cannot be known at compilation time",
			"the last field of a packed struct may only have a dynamically sized type if it does not need drop to be run",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := run(t, "crate: demo\nitems:"+tt.src, Options{})
			if tt.title == "" {
				expectClean(t, res)
				return
			}
			var item string
			for _, d := range res.Diagnostics {
				item = d.Item
			}
			d := expectOne(t, res, item, "E0277", tt.title)
			if tt.note != "" && (len(d.Notes) == 0 || d.Notes[0] != tt.note) {
				t.Errorf("expected note %q, got %v", tt.note, d.Notes)
			}
		})
	}
}

func TestEnumDiscriminant(t *testing.T) {
	res := run(t, `
crate: demo
items:
  - enum: E
    generics: ["const N: usize"]
    variants:
      - {name: A, discr: "1"}
      - {name: B, discr: "{ N + 1 }", fields: [{type: i32}]}
`, Options{})
	d := expectOne(t, res, "demo::E", "", "unconstrained generic constant")
	if len(d.Help) != 1 || !strings.Contains(d.Help[0], "where [(); ") {
		t.Errorf("expected a where-bound help, got %v", d.Help)
	}
	if res.ErrorCount != 1 {
		t.Errorf("expected only the generic discriminant to fail, got %d errors", res.ErrorCount)
	}
}

func TestStatics(t *testing.T) {
	res := run(t, `
crate: demo
items:
  - static: SHARED
    type: "*const u8"
  - static: MUTABLE
    type: "*const u8"
    mut: true
  - static: LOCAL
    type: "*const u8"
    thread_local: true
  - static: BYTES
    type: "[u8]"
  - const: NAME
    type: str
  - static: FINE
    type: "&'static str"
  - extern:
      - type: Opaque
      - static: HANDLE
        type: Opaque
      - static: RAW
        type: "[u8]"
`, Options{})

	d := expectOne(t, res, "demo::SHARED", "E0277", "`*const u8` cannot be shared between threads safely")
	if len(d.Notes) == 0 || d.Notes[0] != "shared static variables must have a type that implements `Sync`" {
		t.Errorf("expected the shared static note, got %v", d.Notes)
	}
	for _, item := range []string{"demo::BYTES", "demo::NAME", "demo::RAW"} {
		d := expectOne(t, res, item, "E0277", "cannot be known at compilation time")
		if len(d.Notes) == 0 || d.Notes[0] != "statics and constants must have a statically known size" {
			t.Errorf("%s: expected the static size note, got %v", item, d.Notes)
		}
	}
	for _, item := range []string{"demo::MUTABLE", "demo::LOCAL", "demo::FINE", "demo::HANDLE"} {
		if res.Failed(ty.DefID(item)) {
			t.Errorf("expected %s to be accepted", item)
		}
	}
	if res.ErrorCount != 4 {
		t.Errorf("expected 4 errors, got %d", res.ErrorCount)
	}
}

func TestDefaultSubstitution(t *testing.T) {
	res := run(t, `
crate: demo
items:
  - struct: String
  - struct: Bad
    generics: ["T: Copy = String"]
    fields:
      - {name: x, type: T}
  - struct: Good
    generics: ["T: Copy = u32"]
    fields:
      - {name: x, type: T}
  - struct: Dependent
    generics: [A, "B = A"]
    where: ["B: Copy"]
    fields:
      - {name: a, type: A}
      - {name: b, type: B}
`, Options{})

	expectOne(t, res, "demo::Bad", "E0277", "the trait bound `String: Copy` is not satisfied")
	if res.ErrorCount != 1 {
		t.Errorf("expected only the default of demo::Bad to fail, got %d errors", res.ErrorCount)
	}
}

func TestWhereClauseWellFormed(t *testing.T) {
	res := run(t, `
crate: demo
items:
  - struct: NeedsCopy
    generics: ["T: Copy"]
    fields:
      - {name: v, type: T}
  - fn: take
    generics: [T]
    params: ["NeedsCopy<T>"]
  - fn: take_ok
    generics: ["T: Copy"]
    params: ["NeedsCopy<T>"]
  - fn: give
    generics: [T]
    ret: "NeedsCopy<T>"
`, Options{})

	d := expectOne(t, res, "demo::take", "E0277", "the trait bound `T: Copy` is not satisfied")
	if len(d.Suggestions) != 1 || d.Suggestions[0].Title != "consider restricting type parameter `T`" {
		t.Errorf("expected a restriction suggestion, got %+v", d.Suggestions)
	}
	expectOne(t, res, "demo::give", "E0277", "the trait bound `T: Copy` is not satisfied")
	if res.Failed("demo::take_ok") {
		t.Error("expected demo::take_ok to be accepted")
	}
}

func TestTrivialBounds(t *testing.T) {
	src := `
crate: demo
%s
items:
  - fn: never
    where: ["i32: Iterator"]
  - fn: always
    where: ["i32: Copy"]
`
	res := run(t, strings.Replace(src, "%s", "", 1), Options{})
	d := expectOne(t, res, "demo::never", "E0277", "the trait bound `i32: Iterator` is not satisfied")
	if len(d.Help) == 0 || !strings.Contains(d.Help[len(d.Help)-1], "trivial_bounds") {
		t.Errorf("expected the trivial_bounds help, got %v", d.Help)
	}
	if res.ErrorCount != 1 {
		t.Errorf("expected 1 error, got %d", res.ErrorCount)
	}

	res = run(t, strings.Replace(src, "%s", "features: [trivial_bounds]", 1), Options{})
	expectClean(t, res)
}

const manyErrors = `
crate: demo
items:
  - struct: A
    generics: [T]
  - struct: B
    generics: ["'a", T]
    fields:
      - {name: x, type: "&'a T"}
  - static: C
    type: "*mut u8"
  - struct: D
    generics: [U]
`

func TestMaxErrors(t *testing.T) {
	res := run(t, manyErrors, Options{MaxErrors: 2})
	if res.ErrorCount != 4 {
		t.Errorf("expected 4 errors counted, got %d", res.ErrorCount)
	}
	if len(res.Diagnostics) != 3 {
		t.Fatalf("expected 2 diagnostics and an abort note, got %d", len(res.Diagnostics))
	}
	if got := res.Diagnostics[2].Title; got != "aborting after 2 errors" {
		t.Errorf("expected abort note, got %q", got)
	}
	if !res.Failed("demo::D") {
		t.Error("expected truncated declarations to still be marked as failed")
	}
}

func render(t *testing.T, res *Result) string {
	t.Helper()
	var buf bytes.Buffer
	r := diagnostic.NewRenderer(&buf, nil, diagnostic.FormatText, diagnostic.ColorNever)
	if err := r.Render(&buf, res.Diagnostics); err != nil {
		t.Fatalf("render: %v", err)
	}
	return buf.String()
}

func TestDeterministicOrder(t *testing.T) {
	want := render(t, run(t, manyErrors, Options{Jobs: 1}))
	for _, jobs := range []int{2, 8, 0} {
		for i := 0; i < 3; i++ {
			if got := render(t, run(t, manyErrors, Options{Jobs: jobs})); got != want {
				t.Fatalf("jobs=%d: output differs:\n%s\nwant:\n%s", jobs, got, want)
			}
		}
	}

	res := run(t, manyErrors, Options{Jobs: 4})
	var items []string
	for _, d := range res.Diagnostics {
		items = append(items, d.Item)
	}
	if got := strings.Join(items, ","); got != "demo::A,demo::B,demo::C,demo::D" {
		t.Errorf("expected declaration order, got %s", got)
	}
}

func TestDriverLogging(t *testing.T) {
	var buf bytes.Buffer
	log := cli.NewLogger(&buf, true, true)
	run(t, manyErrors, Options{Logger: log})
	out := buf.String()
	if !strings.Contains(out, "checking demo::A") {
		t.Errorf("expected per-item debug output, got %q", out)
	}
	if !strings.Contains(out, "checked 4 declarations of demo") {
		t.Errorf("expected a summary line, got %q", out)
	}
}

func TestUnknownCrateFeature(t *testing.T) {
	c, err := loader.Load("test.yaml", []byte("crate: demo\nfeatures: [no_such_feature]\nitems: []\n"))
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if _, err := NewDriver(c, Options{}).Run(context.Background()); err == nil {
		t.Error("expected an unknown feature to fail the run")
	}
}

func TestCancelledRun(t *testing.T) {
	c, err := loader.Load("test.yaml", []byte(manyErrors))
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewDriver(c, Options{}).Run(ctx); err == nil {
		t.Error("expected a cancelled context to fail the run")
	}
}
