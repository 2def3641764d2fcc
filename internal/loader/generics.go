package loader

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/orizon-lang/wfcheck/internal/hir"
	"github.com/orizon-lang/wfcheck/internal/position"
	"github.com/orizon-lang/wfcheck/internal/syntax"
	"github.com/orizon-lang/wfcheck/internal/ty"
)

// genericsSrc keeps the parsed generics of a declaration between the
// declaration pass and the resolution passes.
type genericsSrc struct {
	owner  ty.DefID
	gen    *hir.Generics
	params []*syntax.Param
	nodes  []*yaml.Node
	// self is set for traits, whose Self parameter has no syntax.
	self *hir.GenericParam

	where      []*syntax.WherePredicate
	whereNodes []*yaml.Node
	// bounds lists the trait bounds written on each parameter, inherited
	// from the parent generics.
	bounds map[string][]*syntax.Path
}

func (l *loader) parseType(n *yaml.Node) *syntax.Type {
	if n == nil || n.Kind != yaml.ScalarNode {
		l.errorAt(l.nodeSpan(n), "expected a type")
		return nil
	}
	t, err := syntax.ParseType(n.Value)
	if err != nil {
		l.syntaxError(n, err)
		return nil
	}
	return t
}

func (l *loader) syntaxError(n *yaml.Node, err error) {
	var pe *syntax.ParseError
	if errors.As(err, &pe) {
		l.errorAt(l.spanOf(n, pe.Offset, pe.Offset+1), pe.Message)
		return
	}
	l.errorAt(l.nodeSpan(n), err.Error())
}

// declareGenerics parses the `generics` and `where` entries of m. A trait
// gets an implicit `Self` parameter at index 0.
func (l *loader) declareGenerics(owner ty.DefID, parent *genericsSrc, m mapping, anchor position.Span, traitSelf bool) *genericsSrc {
	gs := &genericsSrc{owner: owner, gen: &hir.Generics{Span: anchor}, bounds: make(map[string][]*syntax.Path)}
	if parent != nil {
		gs.gen.Parent = parent.gen
		for k, v := range parent.bounds {
			gs.bounds[k] = append([]*syntax.Path(nil), v...)
		}
	}
	g := gs.gen
	if traitSelf {
		gs.self = &hir.GenericParam{Name: "Self", Kind: hir.TypeParam, Def: owner + "::Self", Span: anchor, MaybeUnsized: true}
		g.Params = append(g.Params, gs.self)
	}

	if _, v := m.get("generics"); v != nil {
		g.Span = l.nodeSpan(v)
	}
	tail := anchor.Shrink()
	for _, n := range m.seq("generics") {
		tail = l.nodeSpan(n).Shrink()
		p, err := syntax.ParseParam(n.Value)
		if err != nil {
			l.syntaxError(n, err)
			continue
		}
		if g.Lookup(p.Name) != nil {
			l.errorAt(l.nodeSpan(n), fmt.Sprintf("the name `%s` is already used for a generic parameter", p.Name))
			continue
		}
		gp := &hir.GenericParam{
			Name: p.Name,
			Kind: paramKind(p.Kind),
			Def:  owner + ty.DefID("::"+p.Name),
			Span: l.nodeSpan(n),
		}
		for _, b := range p.Bounds {
			gp.ExplicitBounds = true
			if b.Maybe {
				gp.MaybeUnsized = true
			} else if b.Trait != nil {
				gs.bounds[p.Name] = append(gs.bounds[p.Name], b.Trait)
			}
		}
		g.Params = append(g.Params, gp)
		gs.params = append(gs.params, p)
		gs.nodes = append(gs.nodes, n)
	}

	if _, v := m.get("where"); v != nil {
		g.WhereSpan = l.nodeSpan(v)
	}
	for _, n := range m.seq("where") {
		tail = l.nodeSpan(n).Shrink()
		w, err := syntax.ParseWherePredicate(n.Value)
		if err != nil {
			l.syntaxError(n, err)
			continue
		}
		gs.where = append(gs.where, w)
		gs.whereNodes = append(gs.whereNodes, n)

		name, ok := boundedParam(w)
		if !ok {
			continue
		}
		for _, p := range g.Params {
			if p.Name != name {
				continue
			}
			p.ExplicitBounds = true
			for _, b := range w.Bounds {
				if b.Maybe {
					p.MaybeUnsized = true
				}
			}
		}
		for _, b := range w.Bounds {
			if b.Trait != nil && !b.Maybe {
				gs.bounds[name] = append(gs.bounds[name], b.Trait)
			}
		}
	}
	g.WherePreds = len(gs.where)
	g.Tail = tail
	gs.reindex()
	return gs
}

func paramKind(k syntax.ParamKind) hir.ParamKind {
	switch k {
	case syntax.ParamLifetime:
		return hir.LifetimeParam
	case syntax.ParamType:
		return hir.TypeParam
	}
	return hir.ConstParam
}

// boundedParam returns the name of a where predicate's bounded type when
// it is a bare parameter or `Self`.
func boundedParam(w *syntax.WherePredicate) (string, bool) {
	t := w.Bounded
	if t == nil || t.Kind != syntax.TPath || len(t.Path.Segments) != 1 || len(t.Path.Segments[0].Args) != 0 {
		return "", false
	}
	return t.Path.Segments[0].Name, true
}

func (gs *genericsSrc) reindex() {
	base := gs.gen.ParentCount()
	for i, p := range gs.gen.Params {
		p.Index = base + i
	}
}

// dropLateBound removes the lifetimes bound by a function signature from
// the item's parameters.
func (gs *genericsSrc) dropLateBound(late map[string]bool) {
	var params []*hir.GenericParam
	var src []*syntax.Param
	var nodes []*yaml.Node
	j := 0
	for _, p := range gs.gen.Params {
		if p == gs.self {
			params = append(params, p)
			continue
		}
		sp, n := gs.params[j], gs.nodes[j]
		j++
		if p.Kind == hir.LifetimeParam && late[p.Name] {
			continue
		}
		params = append(params, p)
		src = append(src, sp)
		nodes = append(nodes, n)
	}
	gs.gen.Params, gs.params, gs.nodes = params, src, nodes
	gs.reindex()
}

func (l *loader) scopeFor(gs *genericsSrc, self *ty.Ty, trait *hir.Trait) *scope {
	return &scope{owner: gs.owner, gen: gs.gen, self: self, trait: trait, bounds: gs.bounds}
}

// resolveDefaults resolves parameter defaults and const parameter types.
func (l *loader) resolveDefaults(gs *genericsSrc, sc *scope) {
	for i, p := range gs.params {
		gp := gs.gen.Lookup(p.Name)
		s := src{l, gs.nodes[i]}
		switch p.Kind {
		case syntax.ParamType:
			if p.Default != nil {
				gp.Default = l.resolveType(sc, p.Default, s)
			}
		case syntax.ParamConst:
			gp.ConstTy = l.resolveType(sc, p.ConstTy, s)
			gp.ConstTySpan = s.span(p.ConstTy.Offset, p.ConstTy.End)
			if p.ConstDefault != nil {
				gp.ConstDefault = l.resolveConst(sc, p.ConstDefault, gp.ConstTy, s, gp.Def)
			}
		}
	}
}

// lowerPredicates produces the declared predicates of gs: implicit
// `Sized` bounds first, then inline bounds, then where clauses.
func (l *loader) lowerPredicates(gs *genericsSrc, sc *scope) []hir.Predicate {
	var preds []hir.Predicate
	if sized := l.langTrait(hir.LangSized); sized != nil {
		for _, p := range gs.gen.Params {
			if p.Kind != hir.TypeParam || p.MaybeUnsized {
				continue
			}
			tr := ty.TraitRef{Def: sized.Def, Name: sized.Ident, Args: []ty.GenericArg{ty.TypeArg(ty.NewParam(p.Name, p.Index))}}
			preds = append(preds, hir.Predicate{Pred: ty.TraitPred(tr), Span: p.Span, Implicit: true})
		}
	}

	for i, p := range gs.params {
		s := src{l, gs.nodes[i]}
		gp := gs.gen.Lookup(p.Name)
		switch p.Kind {
		case syntax.ParamLifetime:
			r := ty.EarlyBound(gp.Name, gp.Index)
			for _, b := range p.Bounds {
				if b.Lifetime == "" {
					s.errorf(b.Offset, "lifetime parameters can only be bounded by lifetimes")
					continue
				}
				preds = append(preds, hir.Predicate{
					Pred: ty.RegionOutlives(r, l.resolveRegion(sc, b.Lifetime, s, b.Offset)),
					Span: s.span(b.Offset, b.End),
				})
			}
		case syntax.ParamType:
			bounded := ty.NewParam(gp.Name, gp.Index)
			for _, b := range p.Bounds {
				ps, _ := l.lowerBound(sc, bounded, b, s)
				preds = append(preds, ps...)
			}
		}
	}

	for i, w := range gs.where {
		s := src{l, gs.whereNodes[i]}
		if w.Lifetime != "" {
			r := l.resolveRegion(sc, w.Lifetime, s, w.Offset)
			for _, b := range w.Bounds {
				preds = append(preds, hir.Predicate{
					Pred: ty.RegionOutlives(r, l.resolveRegion(sc, b.Lifetime, s, b.Offset)),
					Span: s.span(w.Offset, w.End),
				})
			}
			continue
		}
		bounded := l.resolveType(sc, w.Bounded, s)
		for _, b := range w.Bounds {
			ps, _ := l.lowerBound(sc, bounded, b, s)
			for k := range ps {
				ps[k].Span = s.span(w.Offset, w.End)
			}
			preds = append(preds, ps...)
		}
	}
	return preds
}

// langTrait returns the trait implementing a lang item, preferring the
// local crate.
func (l *loader) langTrait(name string) *hir.Trait {
	var found *hir.Trait
	for _, t := range l.traits {
		if t.Lang == name {
			found = t
		}
	}
	return found
}

// lateBoundLifetimes decides which lifetime parameters of a function are
// bound by its signature: those not named by any bound or where clause
// that are either constrained by an input or absent from the output.
func lateBoundLifetimes(gs *genericsSrc, sig *sigSrc) map[string]bool {
	pinned := map[string]bool{}
	pin := func(name string, _ bool) { pinned[name] = true }
	for _, p := range gs.params {
		if p.Kind == syntax.ParamLifetime && len(p.Bounds) > 0 {
			pinned[p.Name] = true
		}
		for _, b := range p.Bounds {
			if b.Lifetime != "" {
				pinned[b.Lifetime] = true
			}
			if b.Trait != nil {
				walkPathLifetimes(b.Trait, false, pin)
			}
		}
	}
	for _, w := range gs.where {
		if w.Lifetime != "" {
			pinned[w.Lifetime] = true
		}
		walkLifetimes(w.Bounded, false, pin)
		for _, b := range w.Bounds {
			if b.Lifetime != "" {
				pinned[b.Lifetime] = true
			}
			if b.Trait != nil {
				walkPathLifetimes(b.Trait, false, pin)
			}
		}
	}

	constrained := map[string]bool{}
	for _, t := range sig.inputs() {
		walkLifetimes(t, false, func(name string, inProjection bool) {
			if !inProjection {
				constrained[name] = true
			}
		})
	}
	inOutput := map[string]bool{}
	walkLifetimes(sig.ret, false, func(name string, _ bool) { inOutput[name] = true })

	late := map[string]bool{}
	for _, p := range gs.params {
		if p.Kind != syntax.ParamLifetime || pinned[p.Name] {
			continue
		}
		if constrained[p.Name] || !inOutput[p.Name] {
			late[p.Name] = true
		}
	}
	return late
}

func walkLifetimes(t *syntax.Type, inProjection bool, visit func(name string, inProjection bool)) {
	if t == nil {
		return
	}
	if t.Lifetime != "" {
		visit(t.Lifetime, inProjection)
	}
	switch t.Kind {
	case syntax.TPath, syntax.TDyn:
		walkPathLifetimes(t.Path, inProjection, visit)
	case syntax.TQualified:
		walkLifetimes(t.QSelf, true, visit)
		walkPathLifetimes(t.Path, true, visit)
		walkArgLifetimes(t.Assoc.Args, true, visit)
	}
	walkLifetimes(t.Elem, inProjection, visit)
	for _, e := range t.Elems {
		walkLifetimes(e, inProjection, visit)
	}
	walkLifetimes(t.Output, inProjection, visit)
}

// walkPathLifetimes visits the lifetimes of a path; everything after the
// first segment of `T::Name<..>` is a projection.
func walkPathLifetimes(p *syntax.Path, inProjection bool, visit func(string, bool)) {
	if p == nil {
		return
	}
	for i, seg := range p.Segments {
		proj := inProjection || i > 0
		walkArgLifetimes(seg.Args, proj, visit)
		for _, b := range seg.Bindings {
			walkArgLifetimes(b.Args, proj, visit)
			walkLifetimes(b.Type, proj, visit)
		}
	}
}

func walkArgLifetimes(args []*syntax.GenericArg, inProjection bool, visit func(string, bool)) {
	for _, a := range args {
		if a.Lifetime != "" {
			visit(a.Lifetime, inProjection)
		}
		walkLifetimes(a.Type, inProjection, visit)
	}
}
