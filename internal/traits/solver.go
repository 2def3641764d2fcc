package traits

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/orizon-lang/wfcheck/internal/hir"
	"github.com/orizon-lang/wfcheck/internal/ty"
)

// DefaultRecursionLimit bounds evaluation depth and autoderef steps.
const DefaultRecursionLimit = 64

// Solver answers trait queries for one crate. It is safe for concurrent
// use: results are memoized and identical in-flight queries are coalesced.
type Solver struct {
	crate *hir.Crate
	limit int

	mu    sync.RWMutex
	cache map[string]bool
	sf    singleflight.Group

	safetyMu sync.RWMutex
	safety   map[ty.DefID][]Violation
}

// NewSolver returns a solver over c. A non-positive limit selects
// DefaultRecursionLimit.
func NewSolver(c *hir.Crate, limit int) *Solver {
	if limit <= 0 {
		limit = DefaultRecursionLimit
	}
	return &Solver{
		crate:  c,
		limit:  limit,
		cache:  make(map[string]bool),
		safety: make(map[ty.DefID][]Violation),
	}
}

// Crate returns the crate the solver works on.
func (s *Solver) Crate() *hir.Crate { return s.crate }

// RecursionLimit returns the configured depth limit.
func (s *Solver) RecursionLimit() int { return s.limit }

// ParamEnvOf returns the environment of a declaration: its predicates and
// those of its parents, with supertraits elaborated.
func (s *Solver) ParamEnvOf(def ty.DefID) *ParamEnv {
	var preds []ty.Predicate
	for _, p := range s.crate.PredicatesOf(def) {
		preds = append(preds, p.Pred)
	}
	return NewParamEnv(s.Elaborate(preds))
}

// Evaluate reports whether p provably holds in env, ignoring regions.
// Predicates that mention an error type hold trivially.
func (s *Solver) Evaluate(env *ParamEnv, p ty.Predicate) bool {
	key := env.Key() + "|" + ty.EraseRegions.FoldPredicate(p).Key()
	s.mu.RLock()
	v, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		return v
	}
	res, _, _ := s.sf.Do(key, func() (any, error) {
		holds := s.newEvaluator(env).eval(p, 0)
		s.mu.Lock()
		s.cache[key] = holds
		s.mu.Unlock()
		return holds, nil
	})
	return res.(bool)
}

// Normalize replaces every projection in t that can be resolved.
func (s *Solver) Normalize(env *ParamEnv, t *ty.Ty) *ty.Ty {
	return s.newEvaluator(env).normalize(t, 0)
}

// NormalizePredicate normalizes every type in p.
func (s *Solver) NormalizePredicate(env *ParamEnv, p ty.Predicate) ty.Predicate {
	e := s.newEvaluator(env)
	return ty.Folder{Ty: func(t *ty.Ty) *ty.Ty {
		if t.Kind != ty.Projection {
			return nil
		}
		return e.normalize(t, 0)
	}}.FoldPredicate(p)
}

// evaluator carries the state of one top-level query: the environment
// and the stack of trait goals under evaluation.
type evaluator struct {
	s     *Solver
	c     *hir.Crate
	env   *ParamEnv
	stack map[string]bool
}

func (s *Solver) newEvaluator(env *ParamEnv) *evaluator {
	return &evaluator{s: s, c: s.crate, env: env, stack: make(map[string]bool)}
}

func (e *evaluator) eval(p ty.Predicate, depth int) bool {
	if depth > e.s.limit {
		return false
	}
	if ty.PredicateReferencesError(p) {
		return true
	}
	switch p.Kind {
	case ty.PredTrait:
		return e.evalTrait(e.normalizeTraitRef(p.Trait, depth), depth)
	case ty.PredProjection:
		return e.evalProjection(p, depth)
	case ty.PredTypeOutlives, ty.PredRegionOutlives:
		return true
	case ty.PredWellFormed:
		arg := p.Arg
		if arg.Kind == ty.ArgType {
			arg = ty.TypeArg(e.normalize(arg.Ty, depth))
		}
		for _, sub := range e.s.WFObligations(arg) {
			if !e.eval(sub, depth+1) {
				return false
			}
		}
		return true
	case ty.PredConstEvaluatable:
		return e.evalConst(p.Const)
	case ty.PredObjectSafe:
		return len(e.s.ObjectSafetyViolations(p.Trait.Def)) == 0
	case ty.PredEquate:
		return ty.EqualModuloRegions(e.normalize(p.Ty, depth), e.normalize(p.Term, depth))
	}
	return false
}

func (e *evaluator) evalTrait(tr ty.TraitRef, depth int) bool {
	self := tr.SelfTy()
	if self == nil {
		return false
	}
	if self.Kind == ty.Error {
		return true
	}
	key := ty.EraseRegions.FoldTraitRef(tr).Key()
	if e.stack[key] {
		// Cycles are only productive for auto traits.
		t := e.c.Trait(tr.Def)
		return t != nil && t.Auto
	}
	e.stack[key] = true
	defer delete(e.stack, key)

	if e.fromEnv(key) || e.fromAliasBounds(self, key) {
		return true
	}
	switch {
	case e.c.IsLang(tr.Def, hir.LangSized):
		return e.sized(self, depth)
	case e.c.IsLang(tr.Def, hir.LangCopy):
		if holds, decided := e.builtinCopy(self, depth); decided {
			return holds
		}
	}
	if self.Kind == ty.Dynamic && e.fromObject(self, key) {
		return true
	}
	t := e.c.Trait(tr.Def)
	if t == nil {
		return false
	}
	if t.Alias {
		for _, p := range e.c.OwnPredicates(t.Def) {
			if p.Implicit {
				continue
			}
			if !e.eval(ty.Subst(tr.Args).FoldPredicate(p.Pred), depth+1) {
				return false
			}
		}
		return true
	}
	if t.Auto {
		return e.autoTrait(tr, self, depth)
	}
	return e.fromImpls(tr, depth)
}

func (e *evaluator) fromEnv(key string) bool {
	for _, b := range e.env.CallerBounds() {
		if b.Kind == ty.PredTrait && ty.EraseRegions.FoldTraitRef(b.Trait).Key() == key {
			return true
		}
	}
	return false
}

// fromAliasBounds proves a goal on a projection from the item bounds of
// its associated type.
func (e *evaluator) fromAliasBounds(self *ty.Ty, key string) bool {
	if self.Kind != ty.Projection {
		return false
	}
	var preds []ty.Predicate
	for _, b := range e.c.ItemBounds(self.Def) {
		preds = append(preds, ty.Subst(self.Args).FoldPredicate(b.Pred))
	}
	for _, p := range e.s.Elaborate(preds) {
		if p.Kind == ty.PredTrait && ty.EraseRegions.FoldTraitRef(p.Trait).Key() == key {
			return true
		}
	}
	return false
}

func (e *evaluator) fromObject(self *ty.Ty, key string) bool {
	principal := ty.TraitRef{Def: self.Trait, Name: self.TraitName,
		Args: append([]ty.GenericArg{ty.TypeArg(self)}, self.Args...)}
	for _, p := range e.s.Elaborate([]ty.Predicate{ty.TraitPred(principal)}) {
		if p.Kind == ty.PredTrait && ty.EraseRegions.FoldTraitRef(p.Trait).Key() == key {
			return true
		}
	}
	return false
}

func (e *evaluator) sized(self *ty.Ty, depth int) bool {
	switch self.Kind {
	case ty.Str, ty.Slice, ty.Dynamic, ty.Foreign:
		return false
	case ty.Tuple:
		if len(self.Elems) == 0 {
			return true
		}
		return e.eval(e.s.sizedPred(self.Elems[len(self.Elems)-1]), depth+1)
	case ty.Adt:
		a := e.c.Adt(self.Def)
		if a == nil || a.Kind != hir.Struct {
			return true
		}
		fields := a.Fields()
		if len(fields) == 0 {
			return true
		}
		last := ty.Subst(self.Args).FoldTy(fields[len(fields)-1].Ty)
		return e.eval(e.s.sizedPred(last), depth+1)
	case ty.Param, ty.Projection:
		return false
	}
	return true
}

func (e *evaluator) builtinCopy(self *ty.Ty, depth int) (holds, decided bool) {
	switch self.Kind {
	case ty.Bool, ty.Char, ty.Int, ty.Uint, ty.Float, ty.Never, ty.RawPtr, ty.FnPtr:
		return true, true
	case ty.Ref:
		return !self.Mut, true
	case ty.Str, ty.Slice, ty.Dynamic, ty.Foreign:
		return false, true
	case ty.Array:
		return e.eval(e.s.langPred(hir.LangCopy, self.Elem), depth+1), true
	case ty.Tuple:
		for _, el := range self.Elems {
			if !e.eval(e.s.langPred(hir.LangCopy, el), depth+1) {
				return false, true
			}
		}
		return true, true
	}
	return false, false
}

// autoTrait tries explicit impls first; without one the trait holds when
// it holds for every constituent type.
func (e *evaluator) autoTrait(tr ty.TraitRef, self *ty.Ty, depth int) bool {
	for _, im := range e.c.ImplsOf(tr.Def) {
		args, ok := matchImpl(im, tr)
		if !ok {
			continue
		}
		switch im.Polarity {
		case hir.Negative:
			return false
		case hir.Reservation:
			continue
		}
		return e.implHolds(im, args, depth)
	}
	parts, ok := e.constituents(self)
	if !ok {
		return false
	}
	for _, p := range parts {
		sub := ty.TraitRef{Def: tr.Def, Name: tr.Name, Args: append([]ty.GenericArg{ty.TypeArg(p)}, tr.Args[1:]...)}
		if !e.eval(ty.TraitPred(sub), depth+1) {
			return false
		}
	}
	return true
}

func (e *evaluator) constituents(t *ty.Ty) ([]*ty.Ty, bool) {
	switch t.Kind {
	case ty.Ref, ty.RawPtr, ty.Slice, ty.Array:
		return []*ty.Ty{t.Elem}, true
	case ty.Tuple:
		return t.Elems, true
	case ty.Adt:
		a := e.c.Adt(t.Def)
		if a == nil {
			return nil, true
		}
		var out []*ty.Ty
		for _, f := range a.Fields() {
			out = append(out, ty.Subst(t.Args).FoldTy(f.Ty))
		}
		return out, true
	case ty.Param, ty.Projection, ty.Dynamic, ty.Foreign:
		return nil, false
	}
	return nil, true
}

func (e *evaluator) fromImpls(tr ty.TraitRef, depth int) bool {
	for _, im := range e.c.ImplsOf(tr.Def) {
		if im.Polarity != hir.Positive {
			continue
		}
		if args, ok := matchImpl(im, tr); ok && e.implHolds(im, args, depth) {
			return true
		}
	}
	return false
}

func (e *evaluator) implHolds(im *hir.Impl, args []ty.GenericArg, depth int) bool {
	for _, p := range e.c.PredicatesOf(im.Def) {
		if !e.eval(ty.Subst(args).FoldPredicate(p.Pred), depth+1) {
			return false
		}
	}
	return true
}

func (e *evaluator) evalProjection(p ty.Predicate, depth int) bool {
	proj := e.normalizeArgsOf(p.Projection, depth)
	if !e.evalTrait(proj.TraitRef(), depth+1) {
		return false
	}
	got := e.project(proj, depth+1)
	want := e.normalize(p.Term, depth+1)
	return ty.EqualModuloRegions(got, want)
}

// evalConst holds for constants without parameters, and for generic ones
// the environment already requires to evaluate.
func (e *evaluator) evalConst(c *ty.Const) bool {
	if c == nil || c.Kind != ty.ConstUnevaluated || len(c.Params) == 0 {
		return true
	}
	want := ty.ConstEvaluatable(c).Key()
	for _, b := range e.env.CallerBounds() {
		if b.Kind == ty.PredConstEvaluatable && b.Key() == want {
			return true
		}
	}
	return false
}

func (s *Solver) sizedPred(t *ty.Ty) ty.Predicate { return s.langPred(hir.LangSized, t) }

// langPred returns `t: Lang` for a trait lang item.
func (s *Solver) langPred(lang string, t *ty.Ty) ty.Predicate {
	def, _ := s.crate.LangItem(lang)
	name := ""
	if tr := s.crate.Trait(def); tr != nil {
		name = tr.Ident
	}
	return ty.TraitPred(ty.TraitRef{Def: def, Name: name, Args: []ty.GenericArg{ty.TypeArg(t)}})
}

// LangPredicate returns `t: Lang` for the trait implementing lang, and
// false when the crate declares no such trait.
func (s *Solver) LangPredicate(lang string, t *ty.Ty) (ty.Predicate, bool) {
	if _, ok := s.crate.LangItem(lang); !ok {
		return ty.Predicate{}, false
	}
	return s.langPred(lang, t), true
}
