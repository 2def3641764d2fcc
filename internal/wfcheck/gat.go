package wfcheck

import (
	"fmt"
	"sort"
	"strings"

	"github.com/orizon-lang/wfcheck/internal/diagnostic"
	"github.com/orizon-lang/wfcheck/internal/hir"
	"github.com/orizon-lang/wfcheck/internal/regions"
	"github.com/orizon-lang/wfcheck/internal/traits"
	"github.com/orizon-lang/wfcheck/internal/ty"
)

// checkGATWhereClauses infers the outlives bounds each generic associated
// type of t needs and reports the ones its where clause does not declare.
//
// For `type Item<'a>` and `fn next<'a>(&'a self) -> Self::Item<'a>`, the
// method can only name `Self::Item<'a>` because `Self: 'a` follows from
// its input. An impl is then free to rely on `Self: 'a` in its value, so
// the bound must be required up front. A bound is required when every
// other item that mentions the GAT proves it; requirements found for one
// GAT are assumed when checking the bounds of another, until nothing
// changes.
func (ck *checker) checkGATWhereClauses(t *hir.Trait, sink diagnostic.Sink) {
	required := ck.inferGATBounds(t)

	for _, gat := range t.Items {
		req := required[gat.Def]
		if req == nil || req.Len() == 0 {
			continue
		}
		env := ck.solver.ParamEnvOf(gat.Def)
		var missing []string
		for _, p := range req.Items() {
			if !ck.provable(env, nil, p) {
				missing = append(missing, p.String())
			}
		}
		if len(missing) == 0 {
			continue
		}
		sort.Strings(missing)
		ck.reportMissingGATBounds(gat, missing, sink)
	}
}

// inferGATBounds runs the fixpoint and returns, per GAT, the bounds the
// other items of the trait require, in the GAT's own parameters.
func (ck *checker) inferGATBounds(t *hir.Trait) map[ty.DefID]*ty.PredicateSet {
	required := make(map[ty.DefID]*ty.PredicateSet)
	for pass := 1; ; pass++ {
		changed := false
		for _, gat := range t.Items {
			if gat.Kind != hir.AssocType || len(gat.Generics().Params) == 0 {
				continue
			}

			var newReq *ty.PredicateSet
			for _, item := range t.Items {
				if item == gat {
					continue
				}
				itemReq, ok := ck.requiredByItem(item, gat, required)
				if !ok {
					continue
				}
				if newReq == nil {
					newReq = itemReq
				} else {
					newReq.Retain(itemReq.Contains)
				}
			}
			if newReq == nil {
				continue
			}

			acc := required[gat.Def]
			if acc == nil {
				acc = ty.NewPredicateSet()
				required[gat.Def] = acc
			}
			for _, p := range newReq.Items() {
				if acc.Insert(p) {
					changed = true
				}
			}
		}
		if !changed {
			ck.log.Debug("%s: GAT bounds settled after %d passes", t.Def, pass)
			break
		}
	}

	if ck.log != nil && ck.log.DebugMode {
		dump := make(map[string][]string)
		for def, set := range required {
			for _, p := range set.Items() {
				dump[string(def)] = append(dump[string(def)], p.String())
			}
		}
		ck.log.Dump(fmt.Sprintf("inferred GAT bounds of %s", t.Def), dump)
	}
	return required
}

// requiredByItem returns the bounds on gat that item proves where it
// mentions gat, and false when it does not mention gat at all.
func (ck *checker) requiredByItem(item, gat *hir.AssocItem, required map[ty.DefID]*ty.PredicateSet) (*ty.PredicateSet, bool) {
	env := ck.solver.ParamEnvOf(item.Def)
	switch item.Kind {
	case hir.AssocFn:
		lib := ty.Liberate(item.Def)
		out := lib.FoldTy(item.Sig.OutputTy())
		var wf []*ty.Ty
		for _, in := range item.Sig.Inputs {
			wf = append(wf, lib.FoldTy(in))
		}
		return ck.gatherGATBounds(env, wf, gat, func(visit func(ty.GenericArg) bool) {
			ty.Walk(out, visit)
		})
	case hir.AssocType:
		if req := required[item.Def]; req != nil {
			env = env.Augment(req.Items()...)
		}
		return ck.gatherGATBounds(env, nil, gat, func(visit func(ty.GenericArg) bool) {
			for _, b := range item.Bounds {
				ty.WalkPredicate(b.Pred, visit)
			}
		})
	}
	return nil, false
}

type gatRegion struct {
	r   ty.Region
	idx int
}

type gatType struct {
	t   *ty.Ty
	idx int
}

// gatherGATBounds scans walk for projections onto gat and tests, in env
// with wf assumed well-formed, which of their type arguments outlive
// which region arguments and which region arguments outlive each other.
// Each fact is stated in the GAT's parameters by argument position.
func (ck *checker) gatherGATBounds(env *traits.ParamEnv, wf []*ty.Ty, gat *hir.AssocItem, walk func(func(ty.GenericArg) bool)) (*ty.PredicateSet, bool) {
	var rs []gatRegion
	var ts []gatType
	seenR := make(map[string]bool)
	seenT := make(map[string]bool)
	walk(func(a ty.GenericArg) bool {
		if a.Kind != ty.ArgType || a.Ty.Kind != ty.Projection || a.Ty.Def != gat.Def {
			return true
		}
		for idx, arg := range a.Ty.Args {
			key := fmt.Sprintf("%d:%s", idx, arg.Key())
			switch arg.Kind {
			case ty.ArgRegion:
				if !arg.Region.IsLateBound() && !seenR[key] {
					seenR[key] = true
					rs = append(rs, gatRegion{arg.Region, idx})
				}
			case ty.ArgType:
				if !seenT[key] {
					seenT[key] = true
					ts = append(ts, gatType{arg.Ty, idx})
				}
			}
		}
		return true
	})
	if len(rs) == 0 && len(ts) == 0 {
		return nil, false
	}

	gen := gat.Generics()
	out := ty.NewPredicateSet()
	for _, ra := range rs {
		if ra.r.IsStatic() {
			continue
		}
		regionParam := gen.ParamAt(ra.idx)
		if regionParam == nil || regionParam.Kind != hir.LifetimeParam {
			continue
		}
		for _, tb := range ts {
			if !regions.TyKnownToOutlive(ck.solver, env, wf, tb.t, ra.r) {
				continue
			}
			tyParam := gen.ParamAt(tb.idx)
			if tyParam == nil || tyParam.Kind != hir.TypeParam {
				continue
			}
			out.Insert(ty.TypeOutlives(ty.NewParam(tyParam.Name, tyParam.Index), ty.EarlyBound(regionParam.Name, regionParam.Index)))
		}
		for _, rb := range rs {
			if rb.r.IsStatic() || rb.r == ra.r {
				continue
			}
			if !regions.RegionKnownToOutlive(ck.solver, env, wf, ra.r, rb.r) {
				continue
			}
			other := gen.ParamAt(rb.idx)
			if other == nil || other.Kind != hir.LifetimeParam {
				continue
			}
			out.Insert(ty.RegionOutlives(ty.EarlyBound(regionParam.Name, regionParam.Index), ty.EarlyBound(other.Name, other.Index)))
		}
	}
	return out, true
}

// provable reports whether an outlives predicate holds in env.
func (ck *checker) provable(env *traits.ParamEnv, wf []*ty.Ty, p ty.Predicate) bool {
	switch p.Kind {
	case ty.PredTypeOutlives:
		return regions.TyKnownToOutlive(ck.solver, env, wf, p.Ty, p.Region)
	case ty.PredRegionOutlives:
		return regions.RegionKnownToOutlive(ck.solver, env, wf, p.Region, p.Sub)
	}
	return ck.solver.Evaluate(env, p)
}

func (ck *checker) reportMissingGATBounds(gat *hir.AssocItem, missing []string, sink diagnostic.Sink) {
	plural := len(missing) > 1
	title := "missing required bound on `%s`"
	suggestion := "add the required where clause"
	note := "this bound is currently required to ensure that impls have maximum flexibility"
	if plural {
		title = "missing required bounds on `%s`"
		suggestion = "add the required where clauses"
		note = "these bounds are currently required to ensure that impls have maximum flexibility"
	}
	gen := gat.Generics()
	b := diagnostic.Errorf(gat.IdentSpan, title, gat.Ident).
		SuggestInsert(suggestion, gen.Tail, fmt.Sprintf(" %s %s", gen.WhereOrComma(), strings.Join(missing, ", ")),
			diagnostic.MachineApplicable).
		Note(note).
		Note("we are soliciting feedback, see issue #87479 <https://github.com/rust-lang/rust/issues/87479> for more information")
	ck.emit(sink, gat.Def, b)
}
