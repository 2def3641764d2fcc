package position

import "testing"

func TestSpanString(t *testing.T) {
	tests := []struct {
		name     string
		span     Span
		expected string
	}{
		{"single line", At("/tmp/decls.yaml", 3, 5, 4), "decls.yaml:3:5-9"},
		{"no file", At("", 2, 1, 1), "2:1-2"},
		{"dummy", DummySpan, "<unknown>"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := test.span.String(); got != test.expected {
				t.Errorf("Expected %q, got %q", test.expected, got)
			}
		})
	}
}

func TestSpanUnionAndContains(t *testing.T) {
	a := At("f.yaml", 1, 1, 3)
	b := At("f.yaml", 4, 2, 5)
	u := a.Union(b)
	if !u.Contains(a) || !u.Contains(b) {
		t.Errorf("Expected union %v to contain %v and %v", u, a, b)
	}
	if a.Contains(b) {
		t.Errorf("Expected %v not to contain %v", a, b)
	}
	if got := DummySpan.Union(a); got != a {
		t.Errorf("Expected union with dummy span to be %v, got %v", a, got)
	}
}

func TestSourceMapLines(t *testing.T) {
	sm := NewSourceMap()
	sm.AddFile("f.yaml", "items:\n  - struct: Ref\r\n")
	if got := sm.GetLine(Position{Filename: "f.yaml", Line: 2, Column: 1}); got != "  - struct: Ref" {
		t.Errorf("Expected second line, got %q", got)
	}
	if got := sm.GetLine(Position{Filename: "missing.yaml", Line: 1, Column: 1}); got != "" {
		t.Errorf("Expected empty line for unknown file, got %q", got)
	}
}
