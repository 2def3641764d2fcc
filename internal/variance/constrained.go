package variance

import "github.com/orizon-lang/wfcheck/internal/ty"

// Constrained extends initial with the parameters that projection
// predicates determine: once every parameter of `<A as Tr>::X` is
// constrained, so is every parameter of the type it equals.
func Constrained(preds []ty.Predicate, initial map[int]bool) map[int]bool {
	out := make(map[int]bool, len(initial))
	for k, v := range initial {
		if v {
			out[k] = true
		}
	}
	for changed := true; changed; {
		changed = false
		for _, p := range preds {
			if p.Kind != ty.PredProjection {
				continue
			}
			inputs := ty.TypeParamIndices(p.Projection)
			ready := true
			for i := range inputs {
				if !out[i] {
					ready = false
					break
				}
			}
			if !ready {
				continue
			}
			for i := range ty.TypeParamIndices(p.Term) {
				if !out[i] {
					out[i] = true
					changed = true
				}
			}
		}
	}
	return out
}

// UsedParams returns the indices whose variance is not bivariant.
func UsedParams(vs []Variance) map[int]bool {
	out := map[int]bool{}
	for i, v := range vs {
		if v != Bivariant {
			out[i] = true
		}
	}
	return out
}
