package regions

import "github.com/orizon-lang/wfcheck/internal/ty"

// ComponentKind classifies the parts an outlives requirement on a type
// breaks into.
type ComponentKind uint8

const (
	RegionComponent ComponentKind = iota
	ParamComponent
	ProjectionComponent
)

// Component is one part of a type that must outlive a region for the
// whole type to.
type Component struct {
	Kind   ComponentKind
	Region ty.Region
	Ty     *ty.Ty
}

// Components decomposes t: a type outlives 'r exactly when each of its
// components does. Projections are kept whole.
func Components(t *ty.Ty) []Component {
	var out []Component
	seen := map[string]bool{}
	push := func(c Component) {
		k := c.Region.Key()
		if c.Ty != nil {
			k = c.Ty.Key()
		}
		if !seen[k] {
			seen[k] = true
			out = append(out, c)
		}
	}
	ty.Walk(t, func(a ty.GenericArg) bool {
		switch a.Kind {
		case ty.ArgRegion:
			if a.Region.Kind != ty.ReLateBound {
				push(Component{Kind: RegionComponent, Region: a.Region})
			}
		case ty.ArgType:
			switch a.Ty.Kind {
			case ty.Param:
				push(Component{Kind: ParamComponent, Ty: a.Ty})
			case ty.Projection:
				push(Component{Kind: ProjectionComponent, Ty: a.Ty})
				return false
			}
		}
		return true
	})
	return out
}
