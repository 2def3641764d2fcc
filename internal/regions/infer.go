package regions

import (
	"fmt"

	"github.com/orizon-lang/wfcheck/internal/traits"
	"github.com/orizon-lang/wfcheck/internal/ty"
)

type constraintKind uint8

const (
	// regionConstraint requires sup: sub.
	regionConstraint constraintKind = iota
	// verifyConstraint requires a parameter or projection to outlive sub.
	verifyConstraint
)

type constraint struct {
	kind  constraintKind
	sup   ty.Region
	sub   ty.Region
	ty    *ty.Ty
	cause traits.Cause
}

// InferCtxt collects outlives constraints against one environment.
type InferCtxt struct {
	env         *Environment
	constraints []constraint
}

// NewInferCtxt returns an empty context over env.
func NewInferCtxt(env *Environment) *InferCtxt {
	return &InferCtxt{env: env}
}

// RegisterObligation records an outlives obligation; other predicates
// are ignored.
func (ic *InferCtxt) RegisterObligation(o traits.Obligation) {
	switch o.Pred.Kind {
	case ty.PredTypeOutlives:
		ic.RegisterTypeOutlives(o.Cause, o.Pred.Ty, o.Pred.Region)
	case ty.PredRegionOutlives:
		ic.RegisterRegionOutlives(o.Cause, o.Pred.Region, o.Pred.Sub)
	}
}

// RegisterTypeOutlives records t: r.
func (ic *InferCtxt) RegisterTypeOutlives(cause traits.Cause, t *ty.Ty, r ty.Region) {
	for _, c := range Components(t) {
		if c.Kind == RegionComponent {
			ic.RegisterRegionOutlives(cause, c.Region, r)
			continue
		}
		ic.constraints = append(ic.constraints, constraint{kind: verifyConstraint, ty: c.Ty, sub: r, cause: cause})
	}
}

// RegisterRegionOutlives records a: b.
func (ic *InferCtxt) RegisterRegionOutlives(cause traits.Cause, a, b ty.Region) {
	ic.constraints = append(ic.constraints, constraint{kind: regionConstraint, sup: a, sub: b, cause: cause})
}

// Resolve checks every registered constraint and returns the failures in
// registration order, duplicates removed.
func (ic *InferCtxt) Resolve() []RegionError {
	var errs []RegionError
	seen := map[string]bool{}
	for _, c := range ic.constraints {
		var err RegionError
		switch c.kind {
		case regionConstraint:
			if ic.env.RegionOutlives(c.sup, c.sub) {
				continue
			}
			err = RegionError{Kind: ConcreteFailure, Sup: c.sup, Sub: c.sub, Cause: c.cause}
		case verifyConstraint:
			if ic.env.componentOutlives(componentOf(c.ty), c.sub) {
				continue
			}
			err = RegionError{Kind: GenericBoundFailure, Ty: c.ty, Sub: c.sub, Cause: c.cause}
		}
		k := err.key()
		if !seen[k] {
			seen[k] = true
			errs = append(errs, err)
		}
	}
	return errs
}

func componentOf(t *ty.Ty) Component {
	if t.Kind == ty.Projection {
		return Component{Kind: ProjectionComponent, Ty: t}
	}
	return Component{Kind: ParamComponent, Ty: t}
}

// ErrorKind classifies a region error.
type ErrorKind uint8

const (
	// GenericBoundFailure: a parameter or projection may not outlive Sub.
	GenericBoundFailure ErrorKind = iota
	// ConcreteFailure: Sup is not known to outlive Sub.
	ConcreteFailure
)

// RegionError is one unprovable outlives constraint.
type RegionError struct {
	Kind  ErrorKind
	Ty    *ty.Ty
	Sup   ty.Region
	Sub   ty.Region
	Cause traits.Cause
}

func (e RegionError) key() string {
	if e.Kind == GenericBoundFailure {
		return "G" + e.Ty.Key() + ":" + e.Sub.Key() + "@" + e.Cause.Span.String()
	}
	return "C" + e.Sup.Key() + ":" + e.Sub.Key() + "@" + e.Cause.Span.String()
}

// Code returns the diagnostic code: E0310 when 'static is required of a
// parameter, E0309 for other parameter bounds, none for region failures.
func (e RegionError) Code() string {
	if e.Kind != GenericBoundFailure {
		return ""
	}
	if e.Sub.IsStatic() {
		return "E0310"
	}
	return "E0309"
}

// Message is the primary diagnostic text.
func (e RegionError) Message() string {
	if e.Kind == ConcreteFailure {
		return "lifetime may not live long enough"
	}
	if e.Ty.Kind == ty.Param {
		return fmt.Sprintf("the parameter type `%s` may not live long enough", e.Ty)
	}
	return fmt.Sprintf("the associated type `%s` may not live long enough", e.Ty)
}

// Label explains the failure at the primary span.
func (e RegionError) Label() string {
	if e.Kind == ConcreteFailure {
		return fmt.Sprintf("requires that `%s` must outlive `%s`", e.Sup, e.Sub)
	}
	return fmt.Sprintf("...so that the type `%s` will meet its required lifetime bounds", e.Ty)
}

// SuggestedBound returns the where-clause that would fix the error.
func (e RegionError) SuggestedBound() ty.Predicate {
	if e.Kind == ConcreteFailure {
		return ty.RegionOutlives(e.Sup, e.Sub)
	}
	return ty.TypeOutlives(e.Ty, e.Sub)
}

// TyKnownToOutlive reports whether t: r is provable in env with the
// implied types assumed well-formed. Every call uses a fresh context.
func TyKnownToOutlive(s *traits.Solver, env *traits.ParamEnv, implied []*ty.Ty, t *ty.Ty, r ty.Region) bool {
	ic := NewInferCtxt(NewEnvironment(s, env, implied))
	ic.RegisterTypeOutlives(traits.Cause{}, t, r)
	return len(ic.Resolve()) == 0
}

// RegionKnownToOutlive reports whether a: b is provable in env with the
// implied types assumed well-formed.
func RegionKnownToOutlive(s *traits.Solver, env *traits.ParamEnv, implied []*ty.Ty, a, b ty.Region) bool {
	ic := NewInferCtxt(NewEnvironment(s, env, implied))
	ic.RegisterRegionOutlives(traits.Cause{}, a, b)
	return len(ic.Resolve()) == 0
}
