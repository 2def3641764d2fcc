package traits

import (
	"github.com/orizon-lang/wfcheck/internal/ty"
)

// Error is an obligation that could not be proven.
type Error struct {
	Obligation Obligation
	// Root is the obligation as registered, before WF expansion.
	Root Obligation
	// Overflow is set when the recursion limit was hit.
	Overflow bool
}

// FulfillmentContext batches obligations registered during one check.
// It is not safe for concurrent use.
type FulfillmentContext struct {
	pending []pending
}

type pending struct {
	ob   Obligation
	root Obligation
}

// NewFulfillmentContext returns an empty context.
func NewFulfillmentContext() *FulfillmentContext { return &FulfillmentContext{} }

// Register queues o for SelectAll.
func (f *FulfillmentContext) Register(o Obligation) {
	f.pending = append(f.pending, pending{ob: o, root: o})
}

// Pending returns the number of queued obligations.
func (f *FulfillmentContext) Pending() int { return len(f.pending) }

// SelectAll proves every queued obligation. WF obligations are expanded
// in place. Outlives obligations are not decided; they are returned for
// region resolution. Errors come back in registration order.
func (f *FulfillmentContext) SelectAll(s *Solver) (outlives []Obligation, errs []Error) {
	seen := map[string]bool{}
	failed := map[string]bool{}
	queue := f.pending
	f.pending = nil

	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		o := p.ob
		k := o.key()
		if seen[k] {
			continue
		}
		seen[k] = true
		if ty.PredicateReferencesError(o.Pred) {
			continue
		}
		if o.Depth > s.limit {
			errs = append(errs, Error{Obligation: o, Root: p.root, Overflow: true})
			continue
		}

		switch o.Pred.Kind {
		case ty.PredWellFormed:
			arg := o.Pred.Arg
			if arg.Kind == ty.ArgType {
				arg = ty.TypeArg(s.Normalize(o.Env, arg.Ty))
			}
			var nested []pending
			for _, sub := range s.WFObligations(arg) {
				nested = append(nested, pending{ob: o.derive(sub), root: p.root})
			}
			queue = append(nested, queue...)
		case ty.PredTypeOutlives, ty.PredRegionOutlives:
			outlives = append(outlives, Obligation{
				Pred:  s.NormalizePredicate(o.Env, o.Pred),
				Env:   o.Env,
				Cause: o.Cause,
				Depth: o.Depth,
			})
		default:
			if !s.Evaluate(o.Env, o.Pred) {
				ek := ty.EraseRegions.FoldPredicate(o.Pred).Key() + "@" + o.Cause.Span.String()
				if !failed[ek] {
					failed[ek] = true
					errs = append(errs, Error{Obligation: o, Root: p.root})
				}
			}
		}
	}
	return outlives, errs
}
