// Package position tracks where declaration elements come from so that
// well-formedness diagnostics can point at the exact field, parameter or
// bound that caused them.
package position

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// Position represents a single point in a declaration file
type Position struct {
	Filename string // Source file name
	Line     int    // 1-based line number
	Column   int    // 1-based column number
	Offset   int    // 0-based byte offset in source
}

// IsValid returns true if the position is valid
func (p Position) IsValid() bool {
	return p.Line > 0 && p.Column > 0 && p.Offset >= 0
}

// String returns a string representation of the position
func (p Position) String() string {
	if p.Filename != "" {
		return fmt.Sprintf("%s:%d:%d", filepath.Base(p.Filename), p.Line, p.Column)
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Before reports whether p sorts before other.
func (p Position) Before(other Position) bool {
	if p.Filename != other.Filename {
		return p.Filename < other.Filename
	}
	if p.Line != other.Line {
		return p.Line < other.Line
	}
	return p.Column < other.Column
}

// Span represents a range of source between two positions
type Span struct {
	Start Position // inclusive
	End   Position // exclusive
}

// DummySpan is used for synthesized predicates that have no source.
var DummySpan = Span{}

// At returns a span covering length bytes on a single line.
func At(filename string, line, column, length int) Span {
	start := Position{Filename: filename, Line: line, Column: column}
	end := start
	end.Column += length
	return Span{Start: start, End: end}
}

// IsValid returns true if the span is valid
func (s Span) IsValid() bool {
	return s.Start.IsValid() && s.End.IsValid() &&
		s.Start.Filename == s.End.Filename &&
		!s.End.Before(s.Start)
}

// String returns a string representation of the span
func (s Span) String() string {
	if !s.Start.IsValid() {
		return "<unknown>"
	}
	if s.Start.Filename != "" {
		filename := filepath.Base(s.Start.Filename)
		if s.Start.Line == s.End.Line {
			return fmt.Sprintf("%s:%d:%d-%d", filename, s.Start.Line, s.Start.Column, s.End.Column)
		}
		return fmt.Sprintf("%s:%d:%d-%d:%d", filename, s.Start.Line, s.Start.Column, s.End.Line, s.End.Column)
	}
	if s.Start.Line == s.End.Line {
		return fmt.Sprintf("%d:%d-%d", s.Start.Line, s.Start.Column, s.End.Column)
	}
	return fmt.Sprintf("%d:%d-%d:%d", s.Start.Line, s.Start.Column, s.End.Line, s.End.Column)
}

// Contains returns true if other lies entirely within s.
func (s Span) Contains(other Span) bool {
	if !s.IsValid() || !other.IsValid() || s.Start.Filename != other.Start.Filename {
		return false
	}
	return !other.Start.Before(s.Start) && !s.End.Before(other.End)
}

// Union returns a span that encompasses both this span and other
func (s Span) Union(other Span) Span {
	if !s.IsValid() {
		return other
	}
	if !other.IsValid() {
		return s
	}
	if s.Start.Filename != other.Start.Filename {
		return s
	}
	start, end := s.Start, s.End
	if other.Start.Before(start) {
		start = other.Start
	}
	if end.Before(other.End) {
		end = other.End
	}
	return Span{Start: start, End: end}
}

// Shrink returns the zero-width span at the end of s. Suggestions that
// append text (a where clause, a bound) are anchored there.
func (s Span) Shrink() Span {
	return Span{Start: s.End, End: s.End}
}

// SourceFile holds the text of a declaration file so renderers can quote it.
type SourceFile struct {
	Filename string
	Content  string
	Lines    []string
}

// NewSourceFile creates a new source file from content
func NewSourceFile(filename, content string) *SourceFile {
	return &SourceFile{
		Filename: filename,
		Content:  content,
		Lines:    strings.Split(content, "\n"),
	}
}

// GetLine returns the specified line (1-based) or empty string if invalid
func (sf *SourceFile) GetLine(lineNum int) string {
	if lineNum < 1 || lineNum > len(sf.Lines) {
		return ""
	}
	return strings.TrimRight(sf.Lines[lineNum-1], "\r")
}

// SourceMap manages the files a run has loaded. It is safe for concurrent use.
type SourceMap struct {
	mu    sync.RWMutex
	files map[string]*SourceFile
}

// NewSourceMap creates a new source map
func NewSourceMap() *SourceMap {
	return &SourceMap{files: make(map[string]*SourceFile)}
}

// AddFile adds a source file to the map
func (sm *SourceMap) AddFile(filename, content string) *SourceFile {
	file := NewSourceFile(filename, content)
	sm.mu.Lock()
	sm.files[filename] = file
	sm.mu.Unlock()
	return file
}

// GetFile returns the source file for the given filename
func (sm *SourceMap) GetFile(filename string) *SourceFile {
	if sm == nil {
		return nil
	}
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.files[filename]
}

// GetLine returns the line a position points into, if the file is known.
func (sm *SourceMap) GetLine(pos Position) string {
	file := sm.GetFile(pos.Filename)
	if file == nil {
		return ""
	}
	return file.GetLine(pos.Line)
}
