package ty

// Folder rewrites types bottom-up. Each hook may be nil. A Ty hook that
// returns a non-nil type replaces the visited type without descending into it.
type Folder struct {
	Ty     func(*Ty) *Ty
	Region func(Region) Region
	Const  func(*Const) *Const
}

// FoldTy applies f to t.
func (f Folder) FoldTy(t *Ty) *Ty {
	if t == nil {
		return nil
	}
	if f.Ty != nil {
		if r := f.Ty(t); r != nil {
			return r
		}
	}
	switch t.Kind {
	case Adt, Projection, Dynamic:
		n := *t
		n.Args = f.FoldArgs(t.Args)
		if t.Kind == Dynamic {
			n.Region = f.FoldRegion(t.Region)
		}
		return &n
	case Ref:
		n := *t
		n.Region = f.FoldRegion(t.Region)
		n.Elem = f.FoldTy(t.Elem)
		return &n
	case RawPtr, Slice:
		n := *t
		n.Elem = f.FoldTy(t.Elem)
		return &n
	case Array:
		n := *t
		n.Elem = f.FoldTy(t.Elem)
		n.Len = f.FoldConst(t.Len)
		return &n
	case Tuple, FnPtr:
		if len(t.Elems) == 0 && t.Output == nil {
			return t
		}
		n := *t
		n.Elems = make([]*Ty, len(t.Elems))
		for i, e := range t.Elems {
			n.Elems[i] = f.FoldTy(e)
		}
		n.Output = f.FoldTy(t.Output)
		return &n
	}
	return t
}

// FoldRegion applies f to r.
func (f Folder) FoldRegion(r Region) Region {
	if f.Region != nil {
		return f.Region(r)
	}
	return r
}

// FoldConst applies f to c.
func (f Folder) FoldConst(c *Const) *Const {
	if c == nil {
		return nil
	}
	if f.Const != nil {
		if r := f.Const(c); r != nil {
			return r
		}
	}
	if c.Kind == ConstUnevaluated && len(c.Params) > 0 {
		n := *c
		n.Params = make([]*Const, len(c.Params))
		for i, p := range c.Params {
			n.Params[i] = f.FoldConst(p)
		}
		n.Ty = f.FoldTy(c.Ty)
		return &n
	}
	return c
}

// FoldArg applies f to a.
func (f Folder) FoldArg(a GenericArg) GenericArg {
	switch a.Kind {
	case ArgRegion:
		return RegionArg(f.FoldRegion(a.Region))
	case ArgType:
		return TypeArg(f.FoldTy(a.Ty))
	default:
		return ConstArg(f.FoldConst(a.Const))
	}
}

// FoldArgs applies f to every argument.
func (f Folder) FoldArgs(args []GenericArg) []GenericArg {
	if args == nil {
		return nil
	}
	out := make([]GenericArg, len(args))
	for i, a := range args {
		out[i] = f.FoldArg(a)
	}
	return out
}

// FoldTraitRef applies f to the arguments of tr.
func (f Folder) FoldTraitRef(tr TraitRef) TraitRef {
	return TraitRef{Def: tr.Def, Name: tr.Name, Args: f.FoldArgs(tr.Args)}
}

// FoldPredicate applies f to every type, region and constant in p.
func (f Folder) FoldPredicate(p Predicate) Predicate {
	n := p
	switch p.Kind {
	case PredTrait:
		n.Trait = f.FoldTraitRef(p.Trait)
	case PredProjection:
		n.Projection = f.FoldTy(p.Projection)
		n.Term = f.FoldTy(p.Term)
	case PredTypeOutlives:
		n.Ty = f.FoldTy(p.Ty)
		n.Region = f.FoldRegion(p.Region)
	case PredRegionOutlives:
		n.Region = f.FoldRegion(p.Region)
		n.Sub = f.FoldRegion(p.Sub)
	case PredWellFormed:
		n.Arg = f.FoldArg(p.Arg)
	case PredConstEvaluatable:
		n.Const = f.FoldConst(p.Const)
	case PredEquate:
		n.Ty = f.FoldTy(p.Ty)
		n.Term = f.FoldTy(p.Term)
	}
	return n
}

// Subst returns a folder replacing parameters by the argument at their index.
// Parameters whose index is out of range are left in place.
func Subst(args []GenericArg) Folder {
	return Folder{
		Ty: func(t *Ty) *Ty {
			if t.Kind == Param && t.Index < len(args) && args[t.Index].Kind == ArgType {
				return args[t.Index].Ty
			}
			return nil
		},
		Region: func(r Region) Region {
			if r.Kind == ReEarlyBound && r.Index < len(args) && args[r.Index].Kind == ArgRegion {
				return args[r.Index].Region
			}
			return r
		},
		Const: func(c *Const) *Const {
			if c.Kind == ConstParam && c.Index < len(args) && args[c.Index].Kind == ArgConst {
				return args[c.Index].Const
			}
			return nil
		},
	}
}

// EraseRegions replaces every region by 'erased.
var EraseRegions = Folder{Region: func(Region) Region { return Erased }}

// Walk visits t and everything nested in it in pre-order. Returning false
// from visit skips the children of the visited argument.
func Walk(t *Ty, visit func(GenericArg) bool) {
	if t == nil || !visit(TypeArg(t)) {
		return
	}
	switch t.Kind {
	case Adt, Projection:
		WalkArgs(t.Args, visit)
	case Dynamic:
		WalkArgs(t.Args, visit)
		if t.Region.Kind != ReErased && t.Region.Name != "" {
			visit(RegionArg(t.Region))
		}
	case Ref:
		visit(RegionArg(t.Region))
		Walk(t.Elem, visit)
	case RawPtr, Slice:
		Walk(t.Elem, visit)
	case Array:
		Walk(t.Elem, visit)
		walkConst(t.Len, visit)
	case Tuple, FnPtr:
		for _, e := range t.Elems {
			Walk(e, visit)
		}
		if t.Output != nil {
			Walk(t.Output, visit)
		}
	}
}

func walkConst(c *Const, visit func(GenericArg) bool) {
	if c == nil || !visit(ConstArg(c)) {
		return
	}
	for _, p := range c.Params {
		walkConst(p, visit)
	}
}

// WalkArgs walks every argument in args.
func WalkArgs(args []GenericArg, visit func(GenericArg) bool) {
	for _, a := range args {
		WalkArg(a, visit)
	}
}

// WalkArg walks one argument.
func WalkArg(a GenericArg, visit func(GenericArg) bool) {
	switch a.Kind {
	case ArgRegion:
		visit(a)
	case ArgType:
		Walk(a.Ty, visit)
	default:
		walkConst(a.Const, visit)
	}
}

// WalkPredicate walks every type, region and constant in p.
func WalkPredicate(p Predicate, visit func(GenericArg) bool) {
	switch p.Kind {
	case PredTrait:
		WalkArgs(p.Trait.Args, visit)
	case PredProjection:
		Walk(p.Projection, visit)
		Walk(p.Term, visit)
	case PredTypeOutlives:
		Walk(p.Ty, visit)
		visit(RegionArg(p.Region))
	case PredRegionOutlives:
		visit(RegionArg(p.Region))
		visit(RegionArg(p.Sub))
	case PredWellFormed:
		WalkArg(p.Arg, visit)
	case PredConstEvaluatable:
		walkConst(p.Const, visit)
	case PredEquate:
		Walk(p.Ty, visit)
		Walk(p.Term, visit)
	}
}

func anyArg(walk func(func(GenericArg) bool), pred func(GenericArg) bool) bool {
	found := false
	walk(func(a GenericArg) bool {
		if found {
			return false
		}
		if pred(a) {
			found = true
			return false
		}
		return true
	})
	return found
}

func isParamTypeOrConst(a GenericArg) bool {
	return (a.Kind == ArgType && a.Ty.Kind == Param) || (a.Kind == ArgConst && a.Const.Kind == ConstParam)
}

func isParam(a GenericArg) bool {
	return isParamTypeOrConst(a) || (a.Kind == ArgRegion && a.Region.Kind == ReEarlyBound)
}

func isError(a GenericArg) bool {
	switch a.Kind {
	case ArgType:
		return a.Ty.Kind == Error
	case ArgRegion:
		return a.Region.Kind == ReError
	default:
		return a.Const.Kind == ConstError
	}
}

// HasParamTypesOrConsts reports whether t mentions a type or const parameter.
func HasParamTypesOrConsts(t *Ty) bool {
	return anyArg(func(v func(GenericArg) bool) { Walk(t, v) }, isParamTypeOrConst)
}

// NeedsSubst reports whether t mentions any parameter, regions included.
func NeedsSubst(t *Ty) bool {
	return anyArg(func(v func(GenericArg) bool) { Walk(t, v) }, isParam)
}

// ConstNeedsSubst reports whether c mentions a parameter.
func ConstNeedsSubst(c *Const) bool {
	return anyArg(func(v func(GenericArg) bool) { walkConst(c, v) }, isParam)
}

// PredicateHasParamTypesOrConsts reports whether p mentions a type or const parameter.
func PredicateHasParamTypesOrConsts(p Predicate) bool {
	return anyArg(func(v func(GenericArg) bool) { WalkPredicate(p, v) }, isParamTypeOrConst)
}

// PredicateHasRegions reports whether p mentions any region.
func PredicateHasRegions(p Predicate) bool {
	return anyArg(func(v func(GenericArg) bool) { WalkPredicate(p, v) }, func(a GenericArg) bool {
		return a.Kind == ArgRegion
	})
}

// PredicateHasLateBound reports whether p mentions a late-bound region.
func PredicateHasLateBound(p Predicate) bool {
	return anyArg(func(v func(GenericArg) bool) { WalkPredicate(p, v) }, func(a GenericArg) bool {
		return a.Kind == ArgRegion && a.Region.Kind == ReLateBound
	})
}

// PredicateIsGlobal reports whether p mentions no parameter at all.
func PredicateIsGlobal(p Predicate) bool {
	return !anyArg(func(v func(GenericArg) bool) { WalkPredicate(p, v) }, func(a GenericArg) bool {
		return isParam(a) || (a.Kind == ArgRegion && (a.Region.Kind == ReFree || a.Region.Kind == ReLateBound))
	})
}

// ReferencesError reports whether t contains an error type, region or constant.
func ReferencesError(t *Ty) bool {
	return anyArg(func(v func(GenericArg) bool) { Walk(t, v) }, isError)
}

// PredicateReferencesError reports whether p contains an error.
func PredicateReferencesError(p Predicate) bool {
	return anyArg(func(v func(GenericArg) bool) { WalkPredicate(p, v) }, isError)
}

// ParamIndices returns the indices of the type and const parameters in p.
func ParamIndices(p Predicate) map[int]bool {
	out := map[int]bool{}
	WalkPredicate(p, func(a GenericArg) bool {
		if a.Kind == ArgType && a.Ty.Kind == Param {
			out[a.Ty.Index] = true
		}
		if a.Kind == ArgConst && a.Const.Kind == ConstParam {
			out[a.Const.Index] = true
		}
		return true
	})
	return out
}

// TypeParamIndices returns the indices of every parameter (regions included) mentioned by t.
func TypeParamIndices(t *Ty) map[int]bool {
	out := map[int]bool{}
	Walk(t, func(a GenericArg) bool {
		switch {
		case a.Kind == ArgType && a.Ty.Kind == Param:
			out[a.Ty.Index] = true
		case a.Kind == ArgConst && a.Const.Kind == ConstParam:
			out[a.Const.Index] = true
		case a.Kind == ArgRegion && a.Region.Kind == ReEarlyBound:
			out[a.Region.Index] = true
		}
		return true
	})
	return out
}

// EqualModuloRegions compares two types ignoring every region.
func EqualModuloRegions(a, b *Ty) bool {
	return EraseRegions.FoldTy(a).Key() == EraseRegions.FoldTy(b).Key()
}

// Regions returns the distinct regions mentioned by t, in first-seen order.
func Regions(t *Ty) []Region {
	var out []Region
	seen := map[Region]bool{}
	Walk(t, func(a GenericArg) bool {
		if a.Kind == ArgRegion && !seen[a.Region] {
			seen[a.Region] = true
			out = append(out, a.Region)
		}
		return true
	})
	return out
}

// Liberate turns the late-bound regions of fn's signature into free regions
// scoped to fn.
func Liberate(fn DefID) Folder {
	return Folder{Region: func(r Region) Region {
		if r.Kind == ReLateBound && r.Scope == fn {
			return Region{Kind: ReFree, Name: r.Name, Scope: fn}
		}
		return r
	}}
}
