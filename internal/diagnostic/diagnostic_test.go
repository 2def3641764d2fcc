package diagnostic

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/orizon-lang/wfcheck/internal/position"
)

const source = "crate: demo\nitems:\n  - struct: Foo\n    generics: [T]\n"

func sources() *position.SourceMap {
	sm := position.NewSourceMap()
	sm.AddFile("demo.yaml", source)
	return sm
}

func unused() *Diagnostic {
	span := position.At("demo.yaml", 4, 16, 1)
	return Errorf(span, "parameter `%s` is never used", "T").
		Code("E0392").
		Item("demo::Foo").
		Primary("unused parameter").
		Help("consider removing `T`").
		SuggestInsert("add a marker field", position.At("demo.yaml", 3, 16, 0).Shrink(), " { _m: PhantomData<T> }", MaybeIncorrect).
		Build()
}

func TestBuilder(t *testing.T) {
	d := unused()
	if d.Level != DiagnosticError || d.Code != "E0392" || d.Item != "demo::Foo" {
		t.Errorf("unexpected diagnostic %+v", d)
	}
	if len(d.Suggestions) != 1 || d.Suggestions[0].Applicability != MaybeIncorrect {
		t.Errorf("expected one maybe-incorrect suggestion, got %+v", d.Suggestions)
	}
	if got := NewDiagnostic().Label(position.DummySpan, "x").Build().Labels; len(got) != 0 {
		t.Errorf("expected invalid label spans to be dropped, got %v", got)
	}
}

func TestEngineMaxErrors(t *testing.T) {
	tests := []struct {
		name    string
		max     int
		emitted int
		kept    int
		abort   bool
	}{
		{"unlimited", 0, 5, 5, false},
		{"under the limit", 10, 5, 5, false},
		{"over the limit", 2, 5, 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewDiagnosticEngine(DiagnosticConfig{MaxErrors: tt.max})
			for i := 0; i < tt.emitted; i++ {
				e.Emit(unused())
			}
			got := e.GetDiagnostics()
			if len(got) != tt.kept {
				t.Fatalf("expected %d diagnostics, got %d", tt.kept, len(got))
			}
			last := got[len(got)-1]
			if aborted := strings.HasPrefix(last.Title, "aborting after"); aborted != tt.abort {
				t.Errorf("expected abort note %v, got %q", tt.abort, last.Title)
			}
			if e.ErrorCount() != tt.emitted {
				t.Errorf("expected %d errors counted, got %d", tt.emitted, e.ErrorCount())
			}
		})
	}
}

func TestEngineConcurrent(t *testing.T) {
	e := NewDiagnosticEngine(DiagnosticConfig{IgnoreCodes: []string{"E9999"}})
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.Emit(unused())
			e.Emit(NewDiagnostic().Code("E9999").Build())
		}()
	}
	wg.Wait()
	if got := len(e.GetDiagnostics()); got != 50 {
		t.Errorf("expected 50 diagnostics, got %d", got)
	}
	e.Clear()
	if e.HasErrors() {
		t.Error("expected no errors after Clear")
	}
}

func TestRenderText(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, sources(), FormatText, ColorAuto)
	if err := r.Render(&out, []*Diagnostic{unused()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := out.String()
	for _, want := range []string{
		"error[E0392]: parameter `T` is never used",
		"--> demo.yaml:4:16",
		"4 |     generics: [T]",
		"^ unused parameter",
		"= help: consider removing `T`",
		"help: add a marker field",
		"found 1 error",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in output:\n%s", want, got)
		}
	}
	if strings.Contains(got, "\x1b[") {
		t.Error("expected no colors when writing to a buffer")
	}
}

func TestRenderJSON(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, sources(), FormatJSON, ColorNever)
	if err := r.Render(&out, []*Diagnostic{unused(), unused()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 JSON lines, got %d", len(lines))
	}
	var jd jsonDiagnostic
	if err := json.Unmarshal([]byte(lines[0]), &jd); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if jd.Code != "E0392" || len(jd.Spans) != 1 || !jd.Spans[0].Primary || jd.Spans[0].Line != 4 {
		t.Errorf("unexpected JSON diagnostic %+v", jd)
	}
	if len(jd.Suggestions) != 1 || jd.Suggestions[0].Applicability != "maybe-incorrect" {
		t.Errorf("unexpected suggestions %+v", jd.Suggestions)
	}
}
