// Package loader decodes YAML declaration files into a resolved hir.Crate.
//
// A file names a crate and lists its items:
//
//	crate: demo
//	features: [arbitrary_self_types]
//	items:
//	  - struct: Ref
//	    generics: ["'a", "T"]
//	    where: ["T: 'a"]
//	    fields:
//	      - {name: x, type: "&'a T"}
//
// Types, bounds and generic parameters are written in surface syntax and
// parsed by package syntax. Every declaration is resolved against the
// file's own items and an embedded prelude of lang items, which is loaded
// as the external crate "core".
package loader

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/orizon-lang/wfcheck/internal/errors"
	"github.com/orizon-lang/wfcheck/internal/hir"
	"github.com/orizon-lang/wfcheck/internal/position"
	"github.com/orizon-lang/wfcheck/internal/ty"
)

//go:embed prelude.yaml
var prelude []byte

// PreludeFile is the file name spans inside the prelude refer to.
const PreludeFile = "<prelude>"

// LoadFile reads and loads the declaration file at path.
func LoadFile(path string) (*hir.Crate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewStandardError(apperrors.CategoryInput, "READ_FAILED",
			fmt.Sprintf("cannot read %s", path), map[string]interface{}{"path": path}).Wrap(err)
	}
	return Load(path, data)
}

// Load decodes data, named filename in spans, into a crate. All resolution
// problems are reported together.
func Load(filename string, data []byte) (*hir.Crate, error) {
	l := newLoader()
	if err := l.loadFile(PreludeFile, prelude, true); err != nil {
		return nil, apperrors.Internal("prelude does not load").Wrap(err)
	}
	l.local = make(map[string]hir.Node)
	if err := l.loadFile(filename, data, false); err != nil {
		return nil, err
	}
	return l.crate, nil
}

type loader struct {
	crate *hir.Crate
	file  string
	krate string
	errs  []error

	local map[string]hir.Node
	core  map[string]hir.Node
	// names is the table declarations are currently added to.
	names map[string]hir.Node

	byID       map[ty.DefID]hir.Node
	traits     []*hir.Trait
	superNames map[ty.DefID][]string
	impls      int

	defaults []func()
	bodies   []func()
	order    []hir.Node
}

func newLoader() *loader {
	return &loader{
		crate:      hir.NewCrate(""),
		core:       make(map[string]hir.Node),
		byID:       make(map[ty.DefID]hir.Node),
		superNames: make(map[ty.DefID][]string),
	}
}

func (l *loader) loadFile(filename string, data []byte, external bool) error {
	l.file = filename
	l.errs = nil
	l.defaults, l.bodies, l.order = nil, nil, nil
	l.impls = 0
	l.crate.Sources.AddFile(filename, string(data))

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return apperrors.NewStandardError(apperrors.CategoryInput, "MALFORMED_YAML",
			fmt.Sprintf("cannot decode %s", filename), map[string]interface{}{"path": filename}).Wrap(err)
	}
	if len(doc.Content) == 0 {
		return apperrors.InvalidDeclaration(filename, "empty declaration file")
	}
	root, ok := l.mapping(doc.Content[0])
	if !ok {
		return errors.Join(l.errs...)
	}
	l.checkKeys(root, "crate", "features", "items")

	if external {
		l.krate = "core"
		l.names = l.core
	} else {
		l.krate = root.str("crate")
		if l.krate == "" {
			l.errorAt(l.nodeSpan(root.node), "missing crate name")
			l.krate = "main"
		}
		l.crate.Name = l.krate
		l.crate.Features = root.strs("features")
		l.names = l.local
	}

	for _, n := range root.seq("items") {
		l.declareItem(n)
	}
	for _, f := range l.defaults {
		f()
	}
	for _, f := range l.bodies {
		f()
	}
	if len(l.errs) > 0 {
		return errors.Join(l.errs...)
	}

	for _, n := range l.order {
		var err error
		if external {
			err = l.crate.AddExternal(n)
		} else {
			err = l.crate.Add(n)
		}
		if err != nil {
			l.errs = append(l.errs, apperrors.InvalidDeclaration(n.Span().String(), err.Error()))
		}
	}
	return errors.Join(l.errs...)
}

// declare records a named declaration in the current table.
func (l *loader) declare(n hir.Node, nameNode *yaml.Node) {
	name := n.Name()
	if prev, dup := l.names[name]; dup {
		l.errorAt(l.nodeSpan(nameNode), fmt.Sprintf("the name `%s` is defined multiple times (first at %s)", name, prev.Span()))
		return
	}
	l.names[name] = n
	l.byID[n.ID()] = n
	if t, ok := n.(*hir.Trait); ok {
		l.traits = append(l.traits, t)
	}
}

func (l *loader) lookup(name string) hir.Node {
	if n, ok := l.local[name]; ok {
		return n
	}
	return l.core[name]
}

func (l *loader) lookupTrait(name string) *hir.Trait {
	t, _ := l.lookup(name).(*hir.Trait)
	return t
}

func (l *loader) traitByID(id ty.DefID) *hir.Trait {
	t, _ := l.byID[id].(*hir.Trait)
	return t
}

func (l *loader) allTraits() []*hir.Trait { return l.traits }

func (l *loader) defID(parts ...string) ty.DefID {
	return ty.DefID(l.krate + "::" + strings.Join(parts, "::"))
}

func (l *loader) errorAt(span position.Span, msg string) {
	l.errs = append(l.errs, apperrors.InvalidDeclaration(span.String(), msg))
}

func (l *loader) unresolvedAt(span position.Span, kind, name string) {
	l.errs = append(l.errs, apperrors.UnresolvedName(span.String(), kind, name))
}

// spanOf locates bytes [off, end) of a scalar's value.
func (l *loader) spanOf(n *yaml.Node, off, end int) position.Span {
	col := n.Column
	if n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0 {
		col++
	}
	if end < off {
		end = off
	}
	return position.At(l.file, n.Line, col+off, end-off)
}

func (l *loader) nodeSpan(n *yaml.Node) position.Span {
	if n == nil {
		return position.DummySpan
	}
	if n.Kind == yaml.ScalarNode {
		return l.spanOf(n, 0, len(n.Value))
	}
	return position.At(l.file, n.Line, n.Column, 1)
}

// mapping is a YAML mapping node with key lookup.
type mapping struct {
	l    *loader
	node *yaml.Node
}

func (l *loader) mapping(n *yaml.Node) (mapping, bool) {
	if n == nil || n.Kind != yaml.MappingNode || len(n.Content) < 2 {
		l.errorAt(l.nodeSpan(n), "expected a mapping")
		return mapping{}, false
	}
	return mapping{l: l, node: n}, true
}

// head returns the first key and its value; it names the item kind.
func (m mapping) head() (string, *yaml.Node) {
	return m.node.Content[0].Value, m.node.Content[1]
}

func (m mapping) get(key string) (k, v *yaml.Node) {
	for i := 0; i+1 < len(m.node.Content); i += 2 {
		if m.node.Content[i].Value == key {
			return m.node.Content[i], m.node.Content[i+1]
		}
	}
	return nil, nil
}

func (m mapping) val(key string) *yaml.Node {
	_, v := m.get(key)
	return v
}

func (m mapping) str(key string) string {
	v := m.val(key)
	if v == nil {
		return ""
	}
	if v.Kind != yaml.ScalarNode {
		m.l.errorAt(m.l.nodeSpan(v), fmt.Sprintf("`%s` must be a string", key))
		return ""
	}
	return v.Value
}

func (m mapping) bool(key string) bool {
	v := m.val(key)
	if v == nil {
		return false
	}
	var b bool
	if err := v.Decode(&b); err != nil {
		m.l.errorAt(m.l.nodeSpan(v), fmt.Sprintf("`%s` must be a boolean", key))
	}
	return b
}

// seq returns the elements of a sequence; a lone scalar counts as a
// sequence of one.
func (m mapping) seq(key string) []*yaml.Node {
	v := m.val(key)
	switch {
	case v == nil:
		return nil
	case v.Kind == yaml.SequenceNode:
		return v.Content
	case v.Kind == yaml.ScalarNode && v.Tag != "!!null":
		return []*yaml.Node{v}
	}
	return nil
}

func (m mapping) strs(key string) []string {
	var out []string
	for _, n := range m.seq(key) {
		if n.Kind != yaml.ScalarNode {
			m.l.errorAt(m.l.nodeSpan(n), fmt.Sprintf("`%s` must list strings", key))
			continue
		}
		out = append(out, n.Value)
	}
	return out
}

func (l *loader) checkKeys(m mapping, allowed ...string) {
	for i := 0; i+1 < len(m.node.Content); i += 2 {
		k := m.node.Content[i]
		known := false
		for _, a := range allowed {
			if k.Value == a {
				known = true
				break
			}
		}
		if !known {
			l.errorAt(l.nodeSpan(k), fmt.Sprintf("unknown key `%s`", k.Value))
		}
	}
}
