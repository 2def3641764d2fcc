package loader

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/orizon-lang/wfcheck/internal/hir"
	"github.com/orizon-lang/wfcheck/internal/position"
	"github.com/orizon-lang/wfcheck/internal/syntax"
	"github.com/orizon-lang/wfcheck/internal/ty"
)

var itemKeys = map[string][]string{
	"struct":      {"generics", "where", "fields", "packed", "derive", "lang"},
	"union":       {"generics", "where", "fields", "packed", "derive", "lang"},
	"enum":        {"generics", "where", "variants", "derive", "lang"},
	"trait":       {"generics", "where", "bounds", "items", "auto", "marker", "lang"},
	"trait_alias": {"generics", "where", "bounds"},
	"impl":        {"generics", "where", "items", "default", "reservation"},
	"fn":          {"generics", "where", "self", "params", "ret"},
	"static":      {"type", "mut", "thread_local"},
	"const":       {"type", "value"},
	"extern":      {},
}

func (l *loader) declareItem(n *yaml.Node) {
	m, ok := l.mapping(n)
	if !ok {
		return
	}
	kind, nameNode := m.head()
	keys, known := itemKeys[kind]
	if !known {
		l.errorAt(l.nodeSpan(m.node.Content[0]), fmt.Sprintf("unknown item kind `%s`", kind))
		return
	}
	l.checkKeys(m, append([]string{kind}, keys...)...)

	switch kind {
	case "struct", "union", "enum":
		l.declareAdt(kind, m, nameNode)
	case "trait", "trait_alias":
		l.declareTrait(kind == "trait_alias", m, nameNode)
	case "impl":
		l.declareImpl(m, nameNode)
	case "fn":
		l.declareFn(m, nameNode, false)
	case "static", "const":
		l.declareStatic(kind, m, nameNode, false)
	case "extern":
		l.declareExtern(nameNode)
	}
}

func (l *loader) ident(n *yaml.Node) (string, bool) {
	if n == nil || n.Kind != yaml.ScalarNode || !isIdent(n.Value) {
		l.errorAt(l.nodeSpan(n), "expected an identifier")
		return "", false
	}
	return n.Value, true
}

func (l *loader) newDecl(def ty.DefID, name string, nameNode *yaml.Node) hir.Decl {
	span := l.nodeSpan(nameNode)
	return hir.Decl{Def: def, Ident: name, IdentSpan: span, Sp: span}
}

func (l *loader) declareAdt(kind string, m mapping, nameNode *yaml.Node) {
	name, ok := l.ident(nameNode)
	if !ok {
		return
	}
	def := l.defID(name)
	a := &hir.Adt{Decl: l.newDecl(def, name, nameNode), Packed: m.bool("packed"), Derives: m.strs("derive")}
	a.Lang = m.str("lang")
	switch kind {
	case "struct":
		a.Kind = hir.Struct
	case "union":
		a.Kind = hir.Union
	default:
		a.Kind = hir.Enum
	}
	gs := l.declareGenerics(def, nil, m, a.IdentSpan, false)
	a.Gen = gs.gen
	l.declare(a, nameNode)
	l.order = append(l.order, a)

	l.defaults = append(l.defaults, func() { l.resolveDefaults(gs, l.scopeFor(gs, nil, nil)) })
	l.bodies = append(l.bodies, func() {
		sc := l.scopeFor(gs, a.SelfTy(), nil)
		a.Preds = l.lowerPredicates(gs, sc)
		if a.Kind != hir.Enum {
			a.Variants = []*hir.Variant{{Name: name, Span: a.IdentSpan, Fields: l.fields(sc, string(def), m.seq("fields"))}}
			return
		}
		for _, vn := range m.seq("variants") {
			vm, ok := l.mapping(vn)
			if !ok {
				continue
			}
			l.checkKeys(vm, "name", "discr", "fields")
			_, vnameNode := vm.get("name")
			vname, ok := l.ident(vnameNode)
			if !ok {
				continue
			}
			v := &hir.Variant{Name: vname, Span: l.nodeSpan(vnameNode)}
			v.Fields = l.fields(sc, string(def)+"::"+vname, vm.seq("fields"))
			if dn := vm.val("discr"); dn != nil {
				v.DiscrSpan = l.nodeSpan(dn)
				c, err := syntax.ParseConst(dn.Value)
				if err != nil {
					l.syntaxError(dn, err)
				} else {
					v.Discr = l.resolveConst(sc, c, ty.Prim("isize"), src{l, dn}, def+ty.DefID("::"+vname+"::discr"))
				}
			}
			a.Variants = append(a.Variants, v)
		}
	})
}

func (l *loader) fields(sc *scope, prefix string, nodes []*yaml.Node) []*hir.Field {
	var out []*hir.Field
	for i, fn := range nodes {
		fm, ok := l.mapping(fn)
		if !ok {
			continue
		}
		l.checkKeys(fm, "name", "type")
		fname := fm.str("name")
		if fname == "" {
			fname = fmt.Sprint(i)
		}
		tn := fm.val("type")
		f := &hir.Field{Name: fname, Def: ty.DefID(prefix + "::" + fname), Span: l.nodeSpan(tn)}
		f.Ty = ty.ErrorTy
		if t := l.parseType(tn); t != nil {
			f.Ty = l.resolveType(sc, t, src{l, tn})
		}
		out = append(out, f)
	}
	return out
}

func (l *loader) declareTrait(alias bool, m mapping, nameNode *yaml.Node) {
	name, ok := l.ident(nameNode)
	if !ok {
		return
	}
	def := l.defID(name)
	t := &hir.Trait{Decl: l.newDecl(def, name, nameNode), Alias: alias, Auto: m.bool("auto"), Marker: m.bool("marker")}
	t.Lang = m.str("lang")
	gs := l.declareGenerics(def, nil, m, t.IdentSpan, true)
	t.Gen = gs.gen

	var supers []*syntax.Bound
	boundsNode := m.val("bounds")
	if boundsNode != nil {
		bs, err := syntax.ParseBounds(boundsNode.Value)
		if err != nil {
			l.syntaxError(boundsNode, err)
		}
		supers = bs
		for _, b := range bs {
			if b.Trait != nil && !b.Maybe {
				gs.bounds["Self"] = append(gs.bounds["Self"], b.Trait)
			}
		}
	}
	for _, p := range gs.bounds["Self"] {
		l.superNames[def] = append(l.superNames[def], p.Last().Name)
	}

	var bodies []func(*scope)
	for _, in := range m.seq("items") {
		it, body := l.declareAssoc(in, def, gs, true)
		if it == nil {
			continue
		}
		t.Items = append(t.Items, it)
		bodies = append(bodies, body)
	}
	l.declare(t, nameNode)
	l.order = append(l.order, t)

	self := ty.NewParam("Self", 0)
	traitScope := func() *scope {
		sc := l.scopeFor(gs, self, t)
		tr := t.SelfRef()
		sc.selfTrait = &tr
		return sc
	}
	l.defaults = append(l.defaults, func() { l.resolveDefaults(gs, traitScope()) })
	l.bodies = append(l.bodies, func() {
		sc := traitScope()
		var preds []hir.Predicate
		for _, b := range supers {
			ps, _ := l.lowerBound(sc, self, b, src{l, boundsNode})
			preds = append(preds, ps...)
		}
		t.Preds = append(preds, l.lowerPredicates(gs, sc)...)
		for _, body := range bodies {
			body(sc)
		}
	})
}

func (l *loader) declareImpl(m mapping, header *yaml.Node) {
	def := l.defID(fmt.Sprintf("impl#%d", l.impls))
	l.impls++
	if header == nil || header.Kind != yaml.ScalarNode {
		l.errorAt(l.nodeSpan(header), "expected an impl header")
		return
	}
	h, err := syntax.ParseImplHeader(header.Value)
	if err != nil {
		l.syntaxError(header, err)
		return
	}

	im := &hir.Impl{Decl: l.newDecl(def, header.Value, header), Default: m.bool("default")}
	s := src{l, header}
	im.SelfSpan = s.span(h.SelfTy.Offset, h.SelfTy.End)
	if h.Trait != nil {
		im.TraitSpan = s.span(h.Trait.Offset, h.Trait.End)
	}
	if h.Negative {
		im.Polarity = hir.Negative
		im.PolaritySpan = s.span(h.BangOffset, h.BangOffset+1)
	}
	if m.bool("reservation") {
		im.Polarity = hir.Reservation
	}
	if k, _ := m.get("default"); k != nil {
		im.DefaultSpan = l.nodeSpan(k)
	}
	if h.Trait == nil && (h.Negative || im.Polarity == hir.Reservation) {
		l.errorAt(im.SelfSpan, "inherent impls cannot be negative or reservation impls")
	}

	gs := l.declareGenerics(def, nil, m, im.IdentSpan, false)
	im.Gen = gs.gen

	var bodies []func(*scope)
	for _, in := range m.seq("items") {
		it, body := l.declareAssoc(in, def, gs, false)
		if it == nil {
			continue
		}
		im.Items = append(im.Items, it)
		bodies = append(bodies, body)
	}
	l.byID[def] = im
	l.order = append(l.order, im)

	l.defaults = append(l.defaults, func() { l.resolveDefaults(gs, l.scopeFor(gs, nil, nil)) })
	l.bodies = append(l.bodies, func() {
		sc := l.scopeFor(gs, nil, nil)
		im.SelfTy = l.resolveType(sc, h.SelfTy, s)
		if h.Trait != nil {
			if tr, ok := l.resolveTraitPath(sc, h.Trait, im.SelfTy, s); ok {
				im.TraitRef = &tr
			}
		}
		sc = sc.withSelf(im.SelfTy)
		im.Preds = l.lowerPredicates(gs, sc)
		if im.TraitRef != nil {
			sc.trait = l.traitByID(im.TraitRef.Def)
			sc.selfTrait = im.TraitRef
		}
		for _, body := range bodies {
			body(sc)
		}
	})
}

// sigSrc is the parsed signature of a function.
type sigSrc struct {
	self       *syntax.Type
	selfNode   *yaml.Node
	params     []*syntax.Type
	paramNodes []*yaml.Node
	ret        *syntax.Type
	retNode    *yaml.Node
}

func (s *sigSrc) inputs() []*syntax.Type {
	if s.self == nil {
		return s.params
	}
	return append([]*syntax.Type{s.self}, s.params...)
}

func (l *loader) parseSig(m mapping) *sigSrc {
	s := &sigSrc{}
	if n := m.val("self"); n != nil {
		s.self, s.selfNode = l.parseType(n), n
	}
	for _, n := range m.seq("params") {
		s.params = append(s.params, l.parseType(n))
		s.paramNodes = append(s.paramNodes, n)
	}
	if n := m.val("ret"); n != nil {
		s.ret, s.retNode = l.parseType(n), n
	}
	return s
}

// lowerSig resolves a signature. Elided input lifetimes become fresh
// late-bound regions; an elided output lifetime is taken from `self` or
// from the only lifetime of the inputs.
func (l *loader) lowerSig(outer *scope, ss *sigSrc, fn ty.DefID, late map[string]bool, anchor position.Span) *hir.FnSig {
	sig := &hir.FnSig{HasSelf: ss.self != nil, OutputSpan: anchor}
	sc := *outer
	sc.lateBound = make(map[string]ty.Region)
	for _, p := range sortedNames(late) {
		sc.lateBound[p] = ty.LateBound(p, fn)
		sig.LateBound = append(sig.LateBound, p)
	}
	anon := 0
	sc.elided = func() (ty.Region, bool) {
		name := fmt.Sprintf("'_%d", anon)
		anon++
		sig.LateBound = append(sig.LateBound, name)
		return ty.LateBound(name, fn), true
	}

	add := func(t *syntax.Type, n *yaml.Node) {
		sig.InputSpans = append(sig.InputSpans, l.nodeSpan(n))
		sig.InputRefs = append(sig.InputRefs, t != nil && t.Kind == syntax.TRef)
		if t == nil {
			sig.Inputs = append(sig.Inputs, ty.ErrorTy)
			return
		}
		sig.Inputs = append(sig.Inputs, l.resolveType(&sc, t, src{l, n}))
	}
	if ss.self != nil {
		add(ss.self, ss.selfNode)
	}
	for i, p := range ss.params {
		add(p, ss.paramNodes[i])
	}

	if ss.retNode == nil {
		return sig
	}
	sig.OutputSpan = l.nodeSpan(ss.retNode)
	var out *ty.Region
	if ss.self != nil && sig.Inputs[0].Kind == ty.Ref {
		out = &sig.Inputs[0].Region
	} else {
		var regions []ty.Region
		seen := map[ty.Region]bool{}
		for _, in := range sig.Inputs {
			for _, r := range ty.Regions(in) {
				if !seen[r] {
					seen[r] = true
					regions = append(regions, r)
				}
			}
		}
		if len(regions) == 1 {
			out = &regions[0]
		}
	}
	sc.elided = func() (ty.Region, bool) {
		if out == nil {
			return ty.Region{}, false
		}
		return *out, true
	}
	sig.Output = ty.ErrorTy
	if ss.ret != nil {
		sig.Output = l.resolveType(&sc, ss.ret, src{l, ss.retNode})
	}
	return sig
}

func (l *loader) declareFn(m mapping, nameNode *yaml.Node, foreign bool) {
	name, ok := l.ident(nameNode)
	if !ok {
		return
	}
	def := l.defID(name)
	f := &hir.Fn{Decl: l.newDecl(def, name, nameNode), Foreign: foreign}
	ss := l.parseSig(m)
	if ss.selfNode != nil {
		l.errorAt(l.nodeSpan(ss.selfNode), "`self` parameter is only allowed in associated functions")
		ss.self, ss.selfNode = nil, nil
	}
	gs := l.declareGenerics(def, nil, m, f.IdentSpan, false)
	late := lateBoundLifetimes(gs, ss)
	gs.dropLateBound(late)
	f.Gen = gs.gen
	l.declare(f, nameNode)
	l.order = append(l.order, f)

	l.defaults = append(l.defaults, func() { l.resolveDefaults(gs, l.scopeFor(gs, nil, nil)) })
	l.bodies = append(l.bodies, func() {
		sc := l.scopeFor(gs, nil, nil)
		sc.lateBound = lateMap(late, def)
		f.Preds = l.lowerPredicates(gs, sc)
		f.Sig = l.lowerSig(sc, ss, def, late, f.IdentSpan)
	})
}

func sortedNames(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func lateMap(late map[string]bool, fn ty.DefID) map[string]ty.Region {
	out := make(map[string]ty.Region, len(late))
	for name := range late {
		out[name] = ty.LateBound(name, fn)
	}
	return out
}

func (l *loader) declareStatic(kind string, m mapping, nameNode *yaml.Node, foreign bool) {
	name, ok := l.ident(nameNode)
	if !ok {
		return
	}
	def := l.defID(name)
	s := &hir.Static{Decl: l.newDecl(def, name, nameNode), Mutable: m.bool("mut"), ThreadLocal: m.bool("thread_local")}
	switch {
	case foreign:
		s.Kind = hir.ItemForeignStatic
	case kind == "const":
		s.Kind = hir.ItemConst
	default:
		s.Kind = hir.ItemStatic
	}
	s.Gen = &hir.Generics{}
	l.declare(s, nameNode)
	l.order = append(l.order, s)

	tn := m.val("type")
	t := l.parseType(tn)
	if tn != nil {
		s.TySpan = l.nodeSpan(tn)
	}
	l.bodies = append(l.bodies, func() {
		s.Ty = ty.ErrorTy
		if t == nil {
			return
		}
		sc := &scope{owner: def, gen: s.Gen, elided: func() (ty.Region, bool) { return ty.Static, true }}
		s.Ty = l.resolveType(sc, t, src{l, tn})
	})
}

func (l *loader) declareExtern(block *yaml.Node) {
	if block == nil || block.Kind != yaml.SequenceNode {
		l.errorAt(l.nodeSpan(block), "`extern` expects a list of items")
		return
	}
	for _, n := range block.Content {
		m, ok := l.mapping(n)
		if !ok {
			continue
		}
		kind, nameNode := m.head()
		switch kind {
		case "fn":
			l.checkKeys(m, "fn", "generics", "where", "params", "ret")
			l.declareFn(m, nameNode, true)
		case "static":
			l.checkKeys(m, "static", "type", "mut")
			l.declareStatic(kind, m, nameNode, true)
		case "type":
			l.checkKeys(m, "type")
			name, ok := l.ident(nameNode)
			if !ok {
				continue
			}
			ft := &hir.ForeignType{Decl: l.newDecl(l.defID(name), name, nameNode)}
			ft.Gen = &hir.Generics{}
			l.declare(ft, nameNode)
			l.order = append(l.order, ft)
		default:
			l.errorAt(l.nodeSpan(m.node.Content[0]), fmt.Sprintf("unexpected `%s` in extern block", kind))
		}
	}
}

// declareAssoc declares an associated item of container. The returned
// body resolves it once the container's scope is known.
func (l *loader) declareAssoc(n *yaml.Node, container ty.DefID, parent *genericsSrc, inTrait bool) (*hir.AssocItem, func(*scope)) {
	m, ok := l.mapping(n)
	if !ok {
		return nil, nil
	}
	kind, nameNode := m.head()
	name, ok := l.ident(nameNode)
	if !ok {
		return nil, nil
	}
	def := container + ty.DefID("::"+name)
	it := &hir.AssocItem{Decl: l.newDecl(def, name, nameNode), Container: container, InTrait: inTrait}
	l.byID[def] = it

	switch kind {
	case "type":
		l.checkKeys(m, "type", "generics", "where", "bounds", "value")
		it.Kind = hir.AssocType
		gs := l.declareGenerics(def, parent, m, it.IdentSpan, false)
		it.Gen = gs.gen
		var bounds []*syntax.Bound
		boundsNode := m.val("bounds")
		if boundsNode != nil {
			if !inTrait {
				l.errorAt(l.nodeSpan(boundsNode), "bounds on associated types in impls have no effect")
			}
			bs, err := syntax.ParseBounds(boundsNode.Value)
			if err != nil {
				l.syntaxError(boundsNode, err)
			}
			bounds = bs
		}
		var value *syntax.Type
		valueNode := m.val("value")
		if valueNode != nil {
			value = l.parseType(valueNode)
			it.TySpan = l.nodeSpan(valueNode)
		} else if !inTrait {
			l.errorAt(it.IdentSpan, fmt.Sprintf("associated type `%s` in an impl needs a value", name))
		}
		l.defaults = append(l.defaults, func() { l.resolveDefaults(gs, l.scopeFor(gs, nil, nil)) })
		return it, func(outer *scope) {
			sc := outer.nested(def, gs.gen, gs.bounds)
			it.Preds = l.lowerPredicates(gs, sc)
			if inTrait {
				proj := ty.NewProjection(it.Def, it.Ident, container, outer.trait.Ident, gs.gen.Identity(), gs.gen.ParentCount())
				maybe := false
				var preds []hir.Predicate
				for _, b := range bounds {
					ps, mb := l.lowerBound(sc, proj, b, src{l, boundsNode})
					maybe = maybe || mb
					preds = append(preds, ps...)
				}
				if sized := l.langTrait(hir.LangSized); sized != nil && !maybe {
					tr := ty.TraitRef{Def: sized.Def, Name: sized.Ident, Args: []ty.GenericArg{ty.TypeArg(proj)}}
					preds = append([]hir.Predicate{{Pred: ty.TraitPred(tr), Span: it.IdentSpan, Implicit: true}}, preds...)
				}
				it.Bounds = preds
			}
			if value != nil {
				it.Ty = l.resolveType(sc, value, src{l, valueNode})
				if inTrait && isSelfObject(value, outer.trait) {
					it.SelfObjectSpans = append(it.SelfObjectSpans, it.TySpan)
				}
			}
		}

	case "fn":
		l.checkKeys(m, "fn", "generics", "where", "self", "params", "ret")
		it.Kind = hir.AssocFn
		ss := l.parseSig(m)
		gs := l.declareGenerics(def, parent, m, it.IdentSpan, false)
		late := lateBoundLifetimes(gs, ss)
		gs.dropLateBound(late)
		it.Gen = gs.gen
		l.defaults = append(l.defaults, func() { l.resolveDefaults(gs, l.scopeFor(gs, nil, nil)) })
		return it, func(outer *scope) {
			sc := outer.nested(def, gs.gen, gs.bounds)
			sc.lateBound = lateMap(late, def)
			it.Preds = l.lowerPredicates(gs, sc)
			it.Sig = l.lowerSig(sc, ss, def, late, it.IdentSpan)
			if inTrait {
				for i, in := range ss.inputs() {
					if isSelfObject(in, outer.trait) {
						it.SelfObjectSpans = append(it.SelfObjectSpans, it.Sig.InputSpans[i])
					}
				}
				if isSelfObject(ss.ret, outer.trait) {
					it.SelfObjectSpans = append(it.SelfObjectSpans, it.Sig.OutputSpan)
				}
			}
		}

	case "const":
		l.checkKeys(m, "const", "type", "value")
		it.Kind = hir.AssocConst
		it.Gen = &hir.Generics{Parent: parent.gen}
		tn := m.val("type")
		t := l.parseType(tn)
		if tn != nil {
			it.TySpan = l.nodeSpan(tn)
		}
		return it, func(outer *scope) {
			it.Ty = ty.ErrorTy
			if t == nil {
				return
			}
			sc := outer.nested(def, it.Gen, parent.bounds)
			it.Ty = l.resolveType(sc, t, src{l, tn})
			if inTrait && isSelfObject(t, outer.trait) {
				it.SelfObjectSpans = append(it.SelfObjectSpans, it.TySpan)
			}
		}
	}
	l.errorAt(l.nodeSpan(m.node.Content[0]), fmt.Sprintf("unexpected associated item kind `%s`", kind))
	return nil, nil
}

// isSelfObject reports whether t is a bare trait object of trait itself.
func isSelfObject(t *syntax.Type, trait *hir.Trait) bool {
	return t != nil && trait != nil && t.Kind == syntax.TDyn &&
		len(t.Path.Segments) == 1 && t.Path.Segments[0].Name == trait.Ident
}
