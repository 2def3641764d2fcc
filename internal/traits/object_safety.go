package traits

import (
	"fmt"

	"github.com/orizon-lang/wfcheck/internal/hir"
	"github.com/orizon-lang/wfcheck/internal/position"
	"github.com/orizon-lang/wfcheck/internal/ty"
)

// ViolationKind classifies why a trait cannot be made into an object.
type ViolationKind uint8

const (
	SizedSelf ViolationKind = iota
	SupertraitSelf
	StaticMethod
	ReferencesSelf
	GenericMethod
	AssocConstViolation
	GenericAssocType
)

// Violation is one reason a trait is not object safe.
type Violation struct {
	Kind  ViolationKind
	Trait ty.DefID
	Item  string
	Span  position.Span
}

func (v Violation) String() string {
	switch v.Kind {
	case SizedSelf:
		return "it requires `Self: Sized`"
	case SupertraitSelf:
		return "it uses `Self` as a type parameter"
	case StaticMethod:
		return fmt.Sprintf("associated function `%s` has no `self` parameter", v.Item)
	case ReferencesSelf:
		return fmt.Sprintf("method `%s` references the `Self` type in its parameters or return type", v.Item)
	case GenericMethod:
		return fmt.Sprintf("method `%s` has generic type parameters", v.Item)
	case AssocConstViolation:
		return fmt.Sprintf("it contains the associated `const` `%s`", v.Item)
	}
	return fmt.Sprintf("it contains the generic associated type `%s`", v.Item)
}

// ObjectSafetyViolations lists why trait cannot be used as `dyn Trait`,
// supertraits included. The result is memoized.
func (s *Solver) ObjectSafetyViolations(trait ty.DefID) []Violation {
	s.safetyMu.RLock()
	v, ok := s.safety[trait]
	s.safetyMu.RUnlock()
	if ok {
		return v
	}
	v = s.objectSafety(trait)
	s.safetyMu.Lock()
	s.safety[trait] = v
	s.safetyMu.Unlock()
	return v
}

func (s *Solver) objectSafety(trait ty.DefID) []Violation {
	t := s.crate.Trait(trait)
	if t == nil {
		return nil
	}
	var out []Violation
	visited := map[ty.DefID]bool{}
	for _, p := range s.Elaborate([]ty.Predicate{ty.TraitPred(t.SelfRef())}) {
		if p.Kind != ty.PredTrait || visited[p.Trait.Def] {
			continue
		}
		visited[p.Trait.Def] = true
		if st := s.crate.Trait(p.Trait.Def); st != nil {
			out = append(out, s.ownViolations(st)...)
		}
	}
	return out
}

func (s *Solver) ownViolations(t *hir.Trait) []Violation {
	var out []Violation
	for _, p := range s.crate.OwnPredicates(t.Def) {
		if p.Implicit || !onSelf(p.Pred) || p.Pred.Kind != ty.PredTrait {
			continue
		}
		if s.crate.IsLang(p.Pred.Trait.Def, hir.LangSized) {
			out = append(out, Violation{Kind: SizedSelf, Trait: t.Def, Span: p.Span})
			continue
		}
		for _, a := range p.Pred.Trait.Args[1:] {
			if mentionsSelf(a) {
				out = append(out, Violation{Kind: SupertraitSelf, Trait: t.Def, Span: p.Span})
				break
			}
		}
	}

	for _, it := range t.Items {
		switch it.Kind {
		case hir.AssocConst:
			out = append(out, Violation{Kind: AssocConstViolation, Trait: t.Def, Item: it.Ident, Span: it.IdentSpan})
		case hir.AssocType:
			if len(it.Generics().Params) > 0 {
				out = append(out, Violation{Kind: GenericAssocType, Trait: t.Def, Item: it.Ident, Span: it.IdentSpan})
			}
		case hir.AssocFn:
			if s.requiresSelfSized(it) {
				continue
			}
			out = append(out, s.methodViolations(t, it)...)
		}
	}
	return out
}

func (s *Solver) methodViolations(t *hir.Trait, it *hir.AssocItem) []Violation {
	v := func(k ViolationKind) Violation {
		return Violation{Kind: k, Trait: t.Def, Item: it.Ident, Span: it.IdentSpan}
	}
	if it.Sig == nil || !it.Sig.HasSelf {
		return []Violation{v(StaticMethod)}
	}
	var out []Violation
	refs := false
	for _, in := range it.Sig.Inputs[1:] {
		refs = refs || referencesSelf(in)
	}
	if it.Sig.Output != nil && referencesSelf(it.Sig.Output) {
		refs = true
	}
	if refs {
		out = append(out, v(ReferencesSelf))
	}
	for _, p := range it.Generics().Params {
		if p.Kind != hir.LifetimeParam {
			out = append(out, v(GenericMethod))
			break
		}
	}
	return out
}

// requiresSelfSized reports a `where Self: Sized` clause on a method.
func (s *Solver) requiresSelfSized(it *hir.AssocItem) bool {
	for _, p := range it.Preds {
		if p.Pred.Kind == ty.PredTrait && s.crate.IsLang(p.Pred.Trait.Def, hir.LangSized) && onSelf(p.Pred) {
			return true
		}
	}
	return false
}

func isSelfParam(t *ty.Ty) bool { return t.Kind == ty.Param && t.Index == 0 }

func mentionsSelf(a ty.GenericArg) bool {
	found := false
	ty.WalkArg(a, func(x ty.GenericArg) bool {
		if x.Kind == ty.ArgType && isSelfParam(x.Ty) {
			found = true
		}
		return !found
	})
	return found
}

// referencesSelf reports Self appearing other than as the self type of a
// projection.
func referencesSelf(t *ty.Ty) bool {
	found := false
	ty.Walk(t, func(x ty.GenericArg) bool {
		if found || x.Kind != ty.ArgType {
			return !found
		}
		if x.Ty.Kind == ty.Projection && x.Ty.SelfTy() != nil && isSelfParam(x.Ty.SelfTy()) {
			return false
		}
		if isSelfParam(x.Ty) {
			found = true
		}
		return !found
	})
	return found
}
