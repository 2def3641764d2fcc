package loader

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/orizon-lang/wfcheck/internal/hir"
	"github.com/orizon-lang/wfcheck/internal/position"
	"github.com/orizon-lang/wfcheck/internal/syntax"
	"github.com/orizon-lang/wfcheck/internal/ty"
)

// scope is the name-resolution context of one declaration.
type scope struct {
	owner ty.DefID
	gen   *hir.Generics
	// self is what `Self` means; nil where `Self` is not allowed.
	self *ty.Ty
	// trait is the enclosing trait, or the trait an impl implements.
	trait *hir.Trait
	// selfTrait is the trait reference `Self::Name` projects from.
	selfTrait *ty.TraitRef
	// lateBound maps the late-bound lifetimes of a function signature.
	lateBound map[string]ty.Region
	// elided produces the region of an elided lifetime; nil forbids elision.
	elided func() (ty.Region, bool)
	// bounds lists the written trait bounds per parameter name, used to
	// resolve `T::Name`.
	bounds map[string][]*syntax.Path
}

func (sc *scope) withSelf(self *ty.Ty) *scope {
	n := *sc
	n.self = self
	return &n
}

// nested returns the scope of an item declared inside sc's item.
func (sc *scope) nested(owner ty.DefID, gen *hir.Generics, bounds map[string][]*syntax.Path) *scope {
	n := *sc
	n.owner, n.gen, n.bounds = owner, gen, bounds
	n.lateBound, n.elided = nil, nil
	return &n
}

// src locates a syntax element inside a YAML scalar.
type src struct {
	l    *loader
	node *yaml.Node
}

func (s src) span(off, end int) position.Span { return s.l.spanOf(s.node, off, end) }

func (s src) errorf(off int, format string, args ...interface{}) {
	s.l.errorAt(s.span(off, off+1), fmt.Sprintf(format, args...))
}

func (s src) unresolved(off int, kind, name string) {
	s.l.unresolvedAt(s.span(off, off+len(name)), kind, name)
}

func (l *loader) resolveRegion(sc *scope, name string, s src, off int) ty.Region {
	switch name {
	case "'static":
		return ty.Static
	case "", "'_":
		if sc.elided != nil {
			if r, ok := sc.elided(); ok {
				return r
			}
		}
		s.errorf(off, "missing lifetime specifier")
		return ty.Region{Kind: ty.ReError, Name: "'{error}"}
	}
	if p := sc.gen.Lookup(name); p != nil && p.Kind == hir.LifetimeParam {
		return ty.EarlyBound(p.Name, p.Index)
	}
	if r, ok := sc.lateBound[name]; ok {
		return r
	}
	s.unresolved(off, "lifetime", name)
	return ty.Region{Kind: ty.ReError, Name: "'{error}"}
}

func (l *loader) resolveType(sc *scope, t *syntax.Type, s src) *ty.Ty {
	return l.resolveTypeIn(sc, t, s, ty.Static)
}

// resolveTypeIn resolves t; objectDefault is the region of a trait object
// without an explicit lifetime.
func (l *loader) resolveTypeIn(sc *scope, t *syntax.Type, s src, objectDefault ty.Region) *ty.Ty {
	if t == nil {
		return ty.ErrorTy
	}
	switch t.Kind {
	case syntax.TRef:
		r := l.resolveRegion(sc, t.Lifetime, s, t.Offset)
		return ty.NewRef(r, l.resolveTypeIn(sc, t.Elem, s, r), t.Mut)
	case syntax.TPtr:
		return ty.NewRawPtr(l.resolveType(sc, t.Elem, s), t.Mut)
	case syntax.TSlice:
		return ty.NewSlice(l.resolveType(sc, t.Elem, s))
	case syntax.TArray:
		return ty.NewArray(l.resolveType(sc, t.Elem, s), l.resolveConst(sc, t.Len, ty.Prim("usize"), s, sc.owner))
	case syntax.TTuple:
		elems := make([]*ty.Ty, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = l.resolveType(sc, e, s)
		}
		if len(elems) == 0 {
			return ty.UnitTy
		}
		return ty.NewTuple(elems...)
	case syntax.TFn:
		inputs := make([]*ty.Ty, len(t.Elems))
		for i, e := range t.Elems {
			inputs[i] = l.resolveType(sc, e, s)
		}
		var out *ty.Ty
		if t.Output != nil {
			out = l.resolveType(sc, t.Output, s)
		}
		return ty.NewFnPtr(inputs, out)
	case syntax.TNever:
		return ty.NeverTy
	case syntax.TDyn:
		tr, ok := l.resolveTraitPath(sc, t.Path, nil, s)
		if !ok {
			return ty.ErrorTy
		}
		r := objectDefault
		if t.Lifetime != "" {
			r = l.resolveRegion(sc, t.Lifetime, s, t.Offset)
		}
		return ty.NewDynamic(tr.Def, tr.Name, tr.Args, r)
	case syntax.TQualified:
		self := l.resolveType(sc, t.QSelf, s)
		trait := l.lookupTrait(t.Path.Last().Name)
		if trait == nil {
			s.unresolved(t.Path.Offset, "trait", t.Path.Last().Name)
			return ty.ErrorTy
		}
		args := l.resolveArgs(sc, trait.Generics(), []ty.GenericArg{ty.TypeArg(self)}, t.Path.Last(), s)
		tr := ty.TraitRef{Def: trait.Def, Name: trait.Ident, Args: append([]ty.GenericArg{ty.TypeArg(self)}, args...)}
		return l.projection(sc, tr, t.Assoc, s)
	case syntax.TPath:
		return l.resolvePathType(sc, t, s)
	}
	s.errorf(t.Offset, "unsupported type")
	return ty.ErrorTy
}

func (l *loader) resolvePathType(sc *scope, t *syntax.Type, s src) *ty.Ty {
	segs := t.Path.Segments
	first := segs[0]

	if len(segs) == 1 {
		if first.Name == "Self" {
			if sc.self == nil {
				s.errorf(first.Offset, "`Self` is not available here")
				return ty.ErrorTy
			}
			return sc.self
		}
		if p := ty.Prim(first.Name); p != nil {
			if len(first.Args) > 0 {
				s.errorf(first.Offset, "type arguments are not allowed on `%s`", first.Name)
			}
			return p
		}
		if p := sc.gen.Lookup(first.Name); p != nil {
			if p.Kind != hir.TypeParam {
				s.errorf(first.Offset, "expected type, found %s parameter `%s`", p.Kind, p.Name)
				return ty.ErrorTy
			}
			return ty.NewParam(p.Name, p.Index)
		}
		switch n := l.lookup(first.Name).(type) {
		case *hir.Adt:
			return ty.NewAdt(n.Def, n.Ident, l.resolveArgs(sc, n.Generics(), nil, first, s))
		case *hir.ForeignType:
			return ty.NewForeign(n.Def, n.Ident)
		case *hir.Trait:
			s.errorf(first.Offset, "expected type, found trait `%s`; trait objects are written `dyn %s`", n.Ident, n.Ident)
			return ty.ErrorTy
		}
		s.unresolved(first.Offset, "type", first.Name)
		return ty.ErrorTy
	}

	if len(segs) != 2 {
		s.errorf(t.Offset, "unsupported path `%s`", pathString(t.Path))
		return ty.ErrorTy
	}

	base := l.resolvePathType(sc, &syntax.Type{Kind: syntax.TPath, Offset: first.Offset, End: first.End,
		Path: &syntax.Path{Segments: []*syntax.Segment{first}, Offset: first.Offset, End: first.End}}, s)
	if base.Kind == ty.Error {
		return base
	}
	assoc := segs[1]
	tr, ok := l.traitForAssoc(sc, first.Name, base, assoc.Name, s)
	if !ok {
		s.errorf(assoc.Offset, "cannot find associated type `%s` for `%s`", assoc.Name, base)
		return ty.ErrorTy
	}
	return l.projection(sc, tr, assoc, s)
}

// traitForAssoc finds the trait reference an associated type `base::name`
// belongs to.
func (l *loader) traitForAssoc(sc *scope, baseName string, base *ty.Ty, name string, s src) (ty.TraitRef, bool) {
	withSelf := func(t *hir.Trait, args []ty.GenericArg) ty.TraitRef {
		return ty.TraitRef{Def: t.Def, Name: t.Ident, Args: append([]ty.GenericArg{ty.TypeArg(base)}, args...)}
	}

	if baseName == "Self" && sc.selfTrait != nil && l.traitByID(sc.selfTrait.Def) != nil {
		t := l.traitByID(sc.selfTrait.Def)
		if hasAssocType(t, name) {
			return *sc.selfTrait, true
		}
		for _, st := range l.supertraits(t) {
			if hasAssocType(st, name) {
				return withSelf(st, nil), true
			}
		}
	}
	for _, p := range sc.bounds[baseName] {
		t := l.lookupTrait(p.Last().Name)
		if t == nil {
			continue
		}
		for _, c := range append([]*hir.Trait{t}, l.supertraits(t)...) {
			if hasAssocType(c, name) {
				if c == t {
					return withSelf(c, l.resolveArgs(sc, c.Generics(), []ty.GenericArg{ty.TypeArg(base)}, p.Last(), s)), true
				}
				return withSelf(c, nil), true
			}
		}
	}
	var found []*hir.Trait
	for _, t := range l.allTraits() {
		if hasAssocType(t, name) {
			found = append(found, t)
		}
	}
	if len(found) == 1 && found[0].Generics().Count() == 1 {
		return withSelf(found[0], nil), true
	}
	return ty.TraitRef{}, false
}

func hasAssocType(t *hir.Trait, name string) bool {
	if t == nil {
		return false
	}
	for _, it := range t.Items {
		if it.Kind == hir.AssocType && it.Ident == name {
			return true
		}
	}
	return false
}

// supertraits returns the traits named in the `Self: Trait` bounds of t,
// transitively.
func (l *loader) supertraits(t *hir.Trait) []*hir.Trait {
	var out []*hir.Trait
	seen := map[ty.DefID]bool{t.Def: true}
	var walk func(t *hir.Trait)
	walk = func(t *hir.Trait) {
		for _, name := range l.superNames[t.Def] {
			st := l.lookupTrait(name)
			if st == nil || seen[st.Def] {
				continue
			}
			seen[st.Def] = true
			out = append(out, st)
			walk(st)
		}
	}
	walk(t)
	return out
}

// projection builds `<tr>::seg.Name<seg.Args>`.
func (l *loader) projection(sc *scope, tr ty.TraitRef, seg *syntax.Segment, s src) *ty.Ty {
	trait := l.traitByID(tr.Def)
	item := findAssoc(trait, seg.Name, hir.AssocType)
	if item == nil {
		s.errorf(seg.Offset, "associated type `%s` not found for `%s`", seg.Name, tr.Name)
		return ty.ErrorTy
	}
	own := l.resolveOwnArgs(sc, item.Generics(), seg.Args, seg.Offset, s)
	return ty.NewProjection(item.Def, item.Ident, trait.Def, trait.Ident, append(append([]ty.GenericArg{}, tr.Args...), own...), len(tr.Args))
}

func findAssoc(t *hir.Trait, name string, kind hir.AssocKind) *hir.AssocItem {
	if t == nil {
		return nil
	}
	for _, it := range t.Items {
		if it.Ident == name && it.Kind == kind {
			return it
		}
	}
	return nil
}

// resolveArgs resolves the written arguments of seg against the
// parameters of target that follow prefix, the arguments already chosen.
func (l *loader) resolveArgs(sc *scope, target *hir.Generics, prefix []ty.GenericArg, seg *syntax.Segment, s src) []ty.GenericArg {
	all := target.All()
	skip := len(prefix)
	if skip > len(all) {
		skip = len(all)
	}
	return l.fillArgs(sc, all[skip:], prefix, seg.Args, seg.Offset, s)
}

func (l *loader) resolveOwnArgs(sc *scope, target *hir.Generics, written []*syntax.GenericArg, off int, s src) []ty.GenericArg {
	return l.fillArgs(sc, target.Params, nil, written, off, s)
}

// fillArgs matches written arguments to params: lifetimes in order, then
// types and constants in order. Missing lifetimes are elided and missing
// types fall back to their defaults.
func (l *loader) fillArgs(sc *scope, params []*hir.GenericParam, prefix []ty.GenericArg, written []*syntax.GenericArg, off int, s src) []ty.GenericArg {
	var lifetimes, others []*syntax.GenericArg
	for _, w := range written {
		if w.Lifetime != "" {
			lifetimes = append(lifetimes, w)
		} else {
			others = append(others, w)
		}
	}

	out := make([]ty.GenericArg, 0, len(params))
	li, oi := 0, 0
	for _, p := range params {
		switch p.Kind {
		case hir.LifetimeParam:
			if li < len(lifetimes) {
				w := lifetimes[li]
				li++
				out = append(out, ty.RegionArg(l.resolveRegion(sc, w.Lifetime, s, w.Offset)))
			} else {
				out = append(out, ty.RegionArg(l.resolveRegion(sc, "", s, off)))
			}
		case hir.TypeParam:
			if oi < len(others) {
				w := others[oi]
				oi++
				if w.Type == nil {
					s.errorf(w.Offset, "expected type argument for `%s`", p.Name)
					out = append(out, ty.TypeArg(ty.ErrorTy))
					continue
				}
				out = append(out, ty.TypeArg(l.resolveType(sc, w.Type, s)))
			} else if p.Default != nil {
				out = append(out, ty.TypeArg(l.substDefault(p.Default, prefix, out)))
			} else {
				s.errorf(off, "missing generic argument for `%s`", p.Name)
				out = append(out, ty.TypeArg(ty.ErrorTy))
			}
		case hir.ConstParam:
			if oi < len(others) {
				w := others[oi]
				oi++
				out = append(out, ty.ConstArg(l.resolveConstArg(sc, w, p.ConstTy, s)))
			} else if p.ConstDefault != nil {
				out = append(out, ty.ConstArg(p.ConstDefault))
			} else {
				s.errorf(off, "missing generic argument for `%s`", p.Name)
				out = append(out, ty.ConstArg(&ty.Const{Kind: ty.ConstError}))
			}
		}
	}
	if li < len(lifetimes) || oi < len(others) {
		s.errorf(off, "too many generic arguments")
	}
	return out
}

// substDefault instantiates a parameter default with the arguments chosen
// so far.
func (l *loader) substDefault(def *ty.Ty, prefix []ty.GenericArg, chosen []ty.GenericArg) *ty.Ty {
	args := make([]ty.GenericArg, 0, len(prefix)+len(chosen))
	args = append(args, prefix...)
	args = append(args, chosen...)
	return ty.Subst(args).FoldTy(def)
}

func (l *loader) resolveConstArg(sc *scope, w *syntax.GenericArg, t *ty.Ty, s src) *ty.Const {
	if w.Const != nil {
		return l.resolveConst(sc, w.Const, t, s, sc.owner)
	}
	if w.Type != nil && w.Type.Kind == syntax.TPath && len(w.Type.Path.Segments) == 1 {
		name := w.Type.Path.Segments[0].Name
		return l.resolveConst(sc, &syntax.ConstExpr{Text: name, Offset: w.Offset, End: w.End}, t, s, sc.owner)
	}
	s.errorf(w.Offset, "expected constant argument")
	return &ty.Const{Kind: ty.ConstError}
}

// resolveConst resolves a literal, a const parameter or a `{ expr }` block
// owned by owner.
func (l *loader) resolveConst(sc *scope, c *syntax.ConstExpr, t *ty.Ty, s src, owner ty.DefID) *ty.Const {
	if c == nil {
		return &ty.Const{Kind: ty.ConstError}
	}
	text := strings.TrimSpace(c.Text)
	if text == "true" || text == "false" {
		return ty.NewConstValue(text, ty.BoolTy)
	}
	if _, err := strconv.ParseInt(strings.ReplaceAll(text, "_", ""), 0, 64); err == nil {
		return ty.NewConstValue(text, t)
	}
	if isIdent(text) {
		if p := sc.gen.Lookup(text); p != nil && p.Kind == hir.ConstParam {
			return ty.NewConstParam(p.Name, p.Index, p.ConstTy)
		}
		if !c.Block {
			s.unresolved(c.Offset, "constant", text)
			return &ty.Const{Kind: ty.ConstError}
		}
	}
	if !c.Block {
		s.errorf(c.Offset, "complex constant expressions must be wrapped in braces")
		return &ty.Const{Kind: ty.ConstError}
	}
	u := &ty.Const{Kind: ty.ConstUnevaluated, Value: text, Def: owner, Ty: t}
	for _, word := range identifiers(text) {
		if p := sc.gen.Lookup(word); p != nil && p.Kind == hir.ConstParam {
			u.Params = append(u.Params, ty.NewConstParam(p.Name, p.Index, p.ConstTy))
		}
	}
	return u
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (i > 0 && r >= '0' && r <= '9') {
			continue
		}
		return false
	}
	return true
}

// identifiers returns the distinct identifiers of an expression in order.
func identifiers(expr string) []string {
	var out []string
	seen := map[string]bool{}
	fields := strings.FieldsFunc(expr, func(r rune) bool {
		return !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
	})
	for _, f := range fields {
		if isIdent(f) && !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

// resolveTraitPath resolves a trait path for self; a nil self leaves the
// Self argument out, as in trait objects.
func (l *loader) resolveTraitPath(sc *scope, p *syntax.Path, self *ty.Ty, s src) (ty.TraitRef, bool) {
	if p == nil {
		return ty.TraitRef{}, false
	}
	name := p.Last().Name
	t := l.lookupTrait(name)
	if t == nil {
		s.unresolved(p.Offset, "trait", name)
		return ty.TraitRef{}, false
	}
	selfArg := ty.TypeArg(ty.NewParam("Self", 0))
	if self != nil {
		selfArg = ty.TypeArg(self)
	}
	args := l.resolveArgs(sc, t.Generics(), []ty.GenericArg{selfArg}, p.Last(), s)
	if self != nil {
		args = append([]ty.GenericArg{ty.TypeArg(self)}, args...)
	}
	return ty.TraitRef{Def: t.Def, Name: t.Ident, Args: args}, true
}

// lowerBound turns one bound on bounded into predicates. `?Sized` yields
// nothing and is reported through maybe.
func (l *loader) lowerBound(sc *scope, bounded *ty.Ty, b *syntax.Bound, s src) (preds []hir.Predicate, maybe bool) {
	span := s.span(b.Offset, b.End)
	if b.Lifetime != "" {
		r := l.resolveRegion(sc, b.Lifetime, s, b.Offset)
		return []hir.Predicate{{Pred: ty.TypeOutlives(bounded, r), Span: span}}, false
	}
	if b.Maybe {
		if t := l.lookupTrait(b.Trait.Last().Name); t == nil || t.Lang != hir.LangSized {
			s.errorf(b.Offset, "`?Trait` is only supported for `?Sized`")
		}
		return nil, true
	}
	tr, ok := l.resolveTraitPath(sc, b.Trait, bounded, s)
	if !ok {
		return nil, false
	}
	preds = append(preds, hir.Predicate{Pred: ty.TraitPred(tr), Span: span})

	trait := l.traitByID(tr.Def)
	for _, bind := range b.Trait.Last().Bindings {
		owner := trait
		item := findAssoc(owner, bind.Name, hir.AssocType)
		if item == nil {
			for _, st := range l.supertraits(trait) {
				if item = findAssoc(st, bind.Name, hir.AssocType); item != nil {
					owner = st
					break
				}
			}
		}
		if item == nil {
			s.errorf(bind.Offset, "associated type `%s` not found for `%s`", bind.Name, tr.Name)
			continue
		}
		parent := tr.Args
		if owner != trait {
			parent = []ty.GenericArg{ty.TypeArg(bounded)}
		}
		own := l.resolveOwnArgs(sc, item.Generics(), bind.Args, bind.Offset, s)
		proj := ty.NewProjection(item.Def, item.Ident, owner.Def, owner.Ident,
			append(append([]ty.GenericArg{}, parent...), own...), len(parent))
		preds = append(preds, hir.Predicate{
			Pred: ty.ProjectionPred(proj, l.resolveType(sc, bind.Type, s)),
			Span: s.span(bind.Offset, bind.End),
		})
	}
	return preds, false
}

func pathString(p *syntax.Path) string {
	names := make([]string, len(p.Segments))
	for i, s := range p.Segments {
		names[i] = s.Name
	}
	return strings.Join(names, "::")
}
