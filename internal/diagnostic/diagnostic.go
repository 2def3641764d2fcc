// Diagnostic model for the well-formedness pass.
// Provides the diagnostic record, a fluent builder and a concurrency-safe
// engine that collects diagnostics from parallel checks.

package diagnostic

import (
	"fmt"
	"sync"

	"github.com/orizon-lang/wfcheck/internal/position"
)

// DiagnosticLevel represents the severity level of a diagnostic message.
type DiagnosticLevel int

const (
	DiagnosticError DiagnosticLevel = iota
	DiagnosticWarning
	DiagnosticNote
	DiagnosticHelp
)

func (dl DiagnosticLevel) String() string {
	switch dl {
	case DiagnosticError:
		return "error"
	case DiagnosticWarning:
		return "warning"
	case DiagnosticNote:
		return "note"
	case DiagnosticHelp:
		return "help"
	default:
		return "unknown"
	}
}

// Applicability says how safe it is to apply a suggestion automatically.
type Applicability int

const (
	MachineApplicable Applicability = iota
	MaybeIncorrect
	HasPlaceholders
	Unspecified
)

func (a Applicability) String() string {
	switch a {
	case MachineApplicable:
		return "machine-applicable"
	case MaybeIncorrect:
		return "maybe-incorrect"
	case HasPlaceholders:
		return "has-placeholders"
	default:
		return "unspecified"
	}
}

// Diagnostic represents a single diagnostic message.
type Diagnostic struct {
	Code        string
	Title       string
	Suggestions []Suggestion
	Labels      []Label
	Notes       []string
	Help        []string
	// Item is the declaration the diagnostic was reported for.
	Item  string
	Span  position.Span
	Label string
	Level DiagnosticLevel
}

// Suggestion represents a suggested fix for a diagnostic.
type Suggestion struct {
	Title         string
	Edits         []TextEdit
	Applicability Applicability
}

// TextEdit represents a text replacement.
type TextEdit struct {
	NewText string
	Span    position.Span
}

// Label is a secondary span with a message.
type Label struct {
	Message string
	Span    position.Span
}

// IsError reports whether the diagnostic is error-level.
func (d *Diagnostic) IsError() bool { return d.Level == DiagnosticError }

func (d *Diagnostic) String() string {
	if d.Code != "" {
		return fmt.Sprintf("%s: %s[%s]: %s", d.Span.Start, d.Level, d.Code, d.Title)
	}
	return fmt.Sprintf("%s: %s: %s", d.Span.Start, d.Level, d.Title)
}

// DiagnosticBuilder helps construct diagnostic messages with fluent API.
type DiagnosticBuilder struct {
	diagnostic *Diagnostic
}

// NewDiagnostic creates a new diagnostic builder.
func NewDiagnostic() *DiagnosticBuilder {
	return &DiagnosticBuilder{diagnostic: &Diagnostic{}}
}

// Errorf starts an error diagnostic at span.
func Errorf(span position.Span, format string, args ...interface{}) *DiagnosticBuilder {
	return NewDiagnostic().Error().Span(span).Title(fmt.Sprintf(format, args...))
}

func (db *DiagnosticBuilder) Error() *DiagnosticBuilder {
	db.diagnostic.Level = DiagnosticError

	return db
}

func (db *DiagnosticBuilder) Warning() *DiagnosticBuilder {
	db.diagnostic.Level = DiagnosticWarning

	return db
}

func (db *DiagnosticBuilder) Code(code string) *DiagnosticBuilder {
	db.diagnostic.Code = code

	return db
}

func (db *DiagnosticBuilder) Title(title string) *DiagnosticBuilder {
	db.diagnostic.Title = title

	return db
}

func (db *DiagnosticBuilder) Span(span position.Span) *DiagnosticBuilder {
	db.diagnostic.Span = span

	return db
}

// Item records the declaration being checked.
func (db *DiagnosticBuilder) Item(item string) *DiagnosticBuilder {
	db.diagnostic.Item = item

	return db
}

// Primary sets the message shown under the primary span.
func (db *DiagnosticBuilder) Primary(message string) *DiagnosticBuilder {
	db.diagnostic.Label = message

	return db
}

// Label adds a secondary span. Invalid spans are dropped.
func (db *DiagnosticBuilder) Label(span position.Span, message string) *DiagnosticBuilder {
	if span.IsValid() {
		db.diagnostic.Labels = append(db.diagnostic.Labels, Label{Span: span, Message: message})
	}

	return db
}

func (db *DiagnosticBuilder) Note(format string, args ...interface{}) *DiagnosticBuilder {
	db.diagnostic.Notes = append(db.diagnostic.Notes, fmt.Sprintf(format, args...))

	return db
}

func (db *DiagnosticBuilder) Help(format string, args ...interface{}) *DiagnosticBuilder {
	db.diagnostic.Help = append(db.diagnostic.Help, fmt.Sprintf(format, args...))

	return db
}

// Suggest adds a fix made of edits.
func (db *DiagnosticBuilder) Suggest(title string, applicability Applicability, edits ...TextEdit) *DiagnosticBuilder {
	db.diagnostic.Suggestions = append(db.diagnostic.Suggestions, Suggestion{
		Title:         title,
		Edits:         edits,
		Applicability: applicability,
	})

	return db
}

// SuggestInsert suggests inserting text at span.
func (db *DiagnosticBuilder) SuggestInsert(title string, span position.Span, text string, applicability Applicability) *DiagnosticBuilder {
	return db.Suggest(title, applicability, TextEdit{Span: span, NewText: text})
}

func (db *DiagnosticBuilder) Build() *Diagnostic {
	return db.diagnostic
}

// Emit builds the diagnostic and hands it to sink.
func (db *DiagnosticBuilder) Emit(sink Sink) {
	sink.Emit(db.diagnostic)
}

// Sink receives diagnostics.
type Sink interface {
	Emit(d *Diagnostic)
}

// Buffer is a Sink that keeps diagnostics in emission order. It is not
// safe for concurrent use.
type Buffer struct {
	diagnostics []*Diagnostic
}

func (b *Buffer) Emit(d *Diagnostic) { b.diagnostics = append(b.diagnostics, d) }

// Diagnostics returns what was emitted.
func (b *Buffer) Diagnostics() []*Diagnostic { return b.diagnostics }

// HasErrors reports whether an error was emitted.
func (b *Buffer) HasErrors() bool {
	for _, d := range b.diagnostics {
		if d.IsError() {
			return true
		}
	}

	return false
}

// DiagnosticEngine manages the collection and processing of diagnostics.
// It is safe for concurrent use.
type DiagnosticEngine struct {
	mu          sync.Mutex
	diagnostics []*Diagnostic
	errors      int
	truncated   bool
	config      DiagnosticConfig
}

// DiagnosticConfig controls diagnostic behavior.
type DiagnosticConfig struct {
	IgnoreCodes      []string
	MaxErrors        int
	WarningsAsErrors bool
}

// NewDiagnosticEngine creates a new diagnostic engine.
func NewDiagnosticEngine(config DiagnosticConfig) *DiagnosticEngine {
	return &DiagnosticEngine{config: config}
}

// Emit adds a diagnostic to the engine.
func (de *DiagnosticEngine) Emit(diagnostic *Diagnostic) {
	if de.shouldIgnore(diagnostic) {
		return
	}

	de.mu.Lock()
	defer de.mu.Unlock()

	if de.config.WarningsAsErrors && diagnostic.Level == DiagnosticWarning {
		diagnostic.Level = DiagnosticError
	}

	if diagnostic.IsError() {
		de.errors++
	}

	// Past the limit diagnostics are counted but not kept.
	if de.config.MaxErrors > 0 && de.errors > de.config.MaxErrors {
		de.truncated = true

		return
	}

	de.diagnostics = append(de.diagnostics, diagnostic)
}

func (de *DiagnosticEngine) shouldIgnore(diagnostic *Diagnostic) bool {
	for _, code := range de.config.IgnoreCodes {
		if diagnostic.Code == code {
			return true
		}
	}

	return false
}

// GetDiagnostics returns the kept diagnostics. When the error limit was
// exceeded a final note says so.
func (de *DiagnosticEngine) GetDiagnostics() []*Diagnostic {
	de.mu.Lock()
	defer de.mu.Unlock()

	out := append([]*Diagnostic(nil), de.diagnostics...)
	if de.truncated {
		out = append(out, NewDiagnostic().
			Error().
			Title(fmt.Sprintf("aborting after %d errors", de.config.MaxErrors)).
			Note("%d errors were reported in total", de.errors).
			Build())
	}

	return out
}

// ErrorCount returns the number of errors emitted, dropped ones included.
func (de *DiagnosticEngine) ErrorCount() int {
	de.mu.Lock()
	defer de.mu.Unlock()

	return de.errors
}

// HasErrors returns true if there are any errors.
func (de *DiagnosticEngine) HasErrors() bool {
	return de.ErrorCount() > 0
}

// Clear removes all diagnostics.
func (de *DiagnosticEngine) Clear() {
	de.mu.Lock()
	defer de.mu.Unlock()

	de.diagnostics = nil
	de.errors = 0
	de.truncated = false
}
