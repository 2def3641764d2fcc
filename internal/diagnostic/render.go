package diagnostic

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/orizon-lang/wfcheck/internal/position"
)

// ColorMode selects when ANSI colors are used.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// Format selects the output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

const (
	ansiReset  = "\x1b[0m"
	ansiBold   = "\x1b[1m"
	ansiRed    = "\x1b[1;31m"
	ansiYellow = "\x1b[1;33m"
	ansiBlue   = "\x1b[1;34m"
	ansiCyan   = "\x1b[1;36m"
)

// Renderer writes diagnostics in text or JSON form.
type Renderer struct {
	Sources *position.SourceMap
	Format  Format
	color   bool
}

// NewRenderer returns a renderer for w. In ColorAuto mode colors are used
// only when w is a terminal.
func NewRenderer(w io.Writer, sources *position.SourceMap, format Format, mode ColorMode) *Renderer {
	color := false
	switch mode {
	case ColorAlways:
		color = true
	case ColorAuto:
		if f, ok := w.(*os.File); ok {
			color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
		}
	}
	if format == "" {
		format = FormatText
	}
	return &Renderer{Sources: sources, Format: format, color: color}
}

// Render writes every diagnostic followed by a summary line.
func (r *Renderer) Render(w io.Writer, diags []*Diagnostic) error {
	if r.Format == FormatJSON {
		return r.renderJSON(w, diags)
	}
	var b strings.Builder
	errors, warnings := 0, 0
	for _, d := range diags {
		r.renderText(&b, d)
		switch d.Level {
		case DiagnosticError:
			errors++
		case DiagnosticWarning:
			warnings++
		}
	}
	if errors > 0 || warnings > 0 {
		var parts []string
		if errors > 0 {
			parts = append(parts, plural(errors, "error"))
		}
		if warnings > 0 {
			parts = append(parts, plural(warnings, "warning"))
		}
		b.WriteString(r.paint(ansiBold, fmt.Sprintf("found %s", strings.Join(parts, " and "))))
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func (r *Renderer) paint(code, s string) string {
	if !r.color {
		return s
	}
	return code + s + ansiReset
}

func (r *Renderer) levelColor(l DiagnosticLevel) string {
	switch l {
	case DiagnosticError:
		return ansiRed
	case DiagnosticWarning:
		return ansiYellow
	case DiagnosticHelp:
		return ansiCyan
	}
	return ansiBold
}

// renderText writes one diagnostic in the usual compiler layout:
//
//	error[E0392]: parameter `T` is never used
//	 --> demo.yaml:3:16
//	  |
//	3 |     generics: [T]
//	  |                ^ unused parameter
//	  = help: consider removing `T`
func (r *Renderer) renderText(b *strings.Builder, d *Diagnostic) {
	head := d.Level.String()
	if d.Code != "" {
		head += "[" + d.Code + "]"
	}
	b.WriteString(r.paint(r.levelColor(d.Level), head))
	b.WriteString(r.paint(ansiBold, ": "+d.Title))
	b.WriteString("\n")

	if d.Span.IsValid() {
		r.snippet(b, d.Span, d.Label, true)
		for _, l := range d.Labels {
			r.snippet(b, l.Span, l.Message, false)
		}
	}
	for _, n := range d.Notes {
		fmt.Fprintf(b, "  %s %s\n", r.paint(ansiBlue, "="), "note: "+n)
	}
	for _, h := range d.Help {
		fmt.Fprintf(b, "  %s %s\n", r.paint(ansiBlue, "="), "help: "+h)
	}
	for _, s := range d.Suggestions {
		fmt.Fprintf(b, "%s: %s\n", r.paint(ansiCyan, "help"), s.Title)
		for _, e := range s.Edits {
			r.suggestionLine(b, e)
		}
	}
	b.WriteString("\n")
}

func (r *Renderer) snippet(b *strings.Builder, span position.Span, label string, primary bool) {
	lineNo := fmt.Sprint(span.Start.Line)
	gutter := strings.Repeat(" ", len(lineNo))
	arrow := "-->"
	if !primary {
		arrow = ":::"
	}
	fmt.Fprintf(b, "%s%s %s\n", gutter, r.paint(ansiBlue, arrow), span.Start)

	line := ""
	if r.Sources != nil {
		line = r.Sources.GetLine(span.Start)
	}
	if line == "" {
		if label != "" {
			fmt.Fprintf(b, "%s %s %s\n", gutter, r.paint(ansiBlue, "="), label)
		}
		return
	}
	width := 1
	if span.End.Line == span.Start.Line && span.End.Column > span.Start.Column {
		width = span.End.Column - span.Start.Column
	}
	mark := "^"
	color := r.levelColor(DiagnosticError)
	if !primary {
		mark = "-"
		color = ansiBlue
	}
	fmt.Fprintf(b, "%s %s\n", gutter, r.paint(ansiBlue, "|"))
	fmt.Fprintf(b, "%s %s %s\n", r.paint(ansiBlue, lineNo), r.paint(ansiBlue, "|"), line)
	pad := strings.Repeat(" ", max(span.Start.Column-1, 0))
	under := strings.Repeat(mark, width)
	if label != "" {
		under += " " + label
	}
	fmt.Fprintf(b, "%s %s %s%s\n", gutter, r.paint(ansiBlue, "|"), pad, r.paint(color, under))
}

func (r *Renderer) suggestionLine(b *strings.Builder, e TextEdit) {
	line := ""
	if r.Sources != nil {
		line = r.Sources.GetLine(e.Span.Start)
	}
	start := e.Span.Start.Column - 1
	end := start
	if e.Span.End.Line == e.Span.Start.Line {
		end = e.Span.End.Column - 1
	}
	if line == "" || start < 0 || end > len(line) || start > end {
		fmt.Fprintf(b, "  %s %s\n", r.paint(ansiBlue, "|"), e.NewText)
		return
	}
	lineNo := fmt.Sprint(e.Span.Start.Line)
	fmt.Fprintf(b, "%s %s %s%s%s\n", lineNo, r.paint(ansiBlue, "|"), line[:start], r.paint(ansiCyan, e.NewText), line[end:])
}

type jsonSpan struct {
	File        string `json:"file"`
	Line        int    `json:"line"`
	Column      int    `json:"column"`
	EndLine     int    `json:"end_line"`
	EndColumn   int    `json:"end_column"`
	Label       string `json:"label,omitempty"`
	Primary     bool   `json:"primary"`
	Replacement string `json:"suggested_replacement,omitempty"`
}

type jsonSuggestion struct {
	Message       string     `json:"message"`
	Applicability string     `json:"applicability"`
	Edits         []jsonSpan `json:"edits"`
}

type jsonDiagnostic struct {
	Level       string           `json:"level"`
	Code        string           `json:"code,omitempty"`
	Message     string           `json:"message"`
	Item        string           `json:"item,omitempty"`
	Spans       []jsonSpan       `json:"spans"`
	Notes       []string         `json:"notes,omitempty"`
	Help        []string         `json:"help,omitempty"`
	Suggestions []jsonSuggestion `json:"suggestions,omitempty"`
}

func toJSONSpan(s position.Span, label string, primary bool) jsonSpan {
	return jsonSpan{
		File: s.Start.Filename, Line: s.Start.Line, Column: s.Start.Column,
		EndLine: s.End.Line, EndColumn: s.End.Column, Label: label, Primary: primary,
	}
}

// renderJSON writes one JSON object per line.
func (r *Renderer) renderJSON(w io.Writer, diags []*Diagnostic) error {
	enc := json.NewEncoder(w)
	for _, d := range diags {
		jd := jsonDiagnostic{
			Level: d.Level.String(), Code: d.Code, Message: d.Title, Item: d.Item,
			Spans: []jsonSpan{}, Notes: d.Notes, Help: d.Help,
		}
		if d.Span.IsValid() {
			jd.Spans = append(jd.Spans, toJSONSpan(d.Span, d.Label, true))
		}
		for _, l := range d.Labels {
			jd.Spans = append(jd.Spans, toJSONSpan(l.Span, l.Message, false))
		}
		for _, s := range d.Suggestions {
			js := jsonSuggestion{Message: s.Title, Applicability: s.Applicability.String()}
			for _, e := range s.Edits {
				sp := toJSONSpan(e.Span, "", false)
				sp.Replacement = e.NewText
				js.Edits = append(js.Edits, sp)
			}
			jd.Suggestions = append(jd.Suggestions, js)
		}
		if err := enc.Encode(jd); err != nil {
			return fmt.Errorf("encode diagnostic: %w", err)
		}
	}
	return nil
}
