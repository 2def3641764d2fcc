package ty

import "fmt"

// PredicateKind is the shape of a Predicate.
type PredicateKind uint8

const (
	// PredTrait is `Self: Trait<Args>`.
	PredTrait PredicateKind = iota
	// PredProjection is `<T as Trait>::Name == Term`.
	PredProjection
	// PredTypeOutlives is `T: 'r`.
	PredTypeOutlives
	// PredRegionOutlives is `'a: 'b`.
	PredRegionOutlives
	// PredWellFormed requires a generic argument to be well-formed.
	PredWellFormed
	// PredConstEvaluatable requires an unevaluated constant to evaluate.
	PredConstEvaluatable
	// PredObjectSafe requires a trait to be usable as a trait object.
	PredObjectSafe
	// PredEquate requires two types to be equal, regions included.
	PredEquate
)

// Predicate is a proposition over types and regions. Predicates are values
// and compare structurally through Key.
type Predicate struct {
	Kind PredicateKind

	Trait TraitRef // PredTrait, PredObjectSafe (Def only)

	Projection *Ty // PredProjection
	Term       *Ty // PredProjection, PredEquate (right side)

	Ty     *Ty    // PredTypeOutlives, PredEquate (left side)
	Region Region // PredTypeOutlives, PredRegionOutlives (longer region)
	Sub    Region // PredRegionOutlives: Region: Sub

	Arg   GenericArg // PredWellFormed
	Const *Const     // PredConstEvaluatable
}

// TraitPred returns `tr.Self: tr`.
func TraitPred(tr TraitRef) Predicate { return Predicate{Kind: PredTrait, Trait: tr} }

// ProjectionPred returns `proj == term`.
func ProjectionPred(proj, term *Ty) Predicate {
	return Predicate{Kind: PredProjection, Projection: proj, Term: term}
}

// TypeOutlives returns `t: r`.
func TypeOutlives(t *Ty, r Region) Predicate {
	return Predicate{Kind: PredTypeOutlives, Ty: t, Region: r}
}

// RegionOutlives returns `a: b`.
func RegionOutlives(a, b Region) Predicate {
	return Predicate{Kind: PredRegionOutlives, Region: a, Sub: b}
}

// WellFormed returns `WF(arg)`.
func WellFormed(arg GenericArg) Predicate { return Predicate{Kind: PredWellFormed, Arg: arg} }

// ConstEvaluatable returns `ConstEvaluatable(c)`.
func ConstEvaluatable(c *Const) Predicate { return Predicate{Kind: PredConstEvaluatable, Const: c} }

// ObjectSafe returns a predicate requiring trait to be object safe.
func ObjectSafe(trait DefID, name string) Predicate {
	return Predicate{Kind: PredObjectSafe, Trait: TraitRef{Def: trait, Name: name}}
}

// Equate returns `a == b`.
func Equate(a, b *Ty) Predicate { return Predicate{Kind: PredEquate, Ty: a, Term: b} }

// String renders the predicate the way it would be written in a where clause.
func (p Predicate) String() string {
	switch p.Kind {
	case PredTrait:
		return fmt.Sprintf("%s: %s", p.Trait.SelfTy(), p.Trait)
	case PredProjection:
		return fmt.Sprintf("%s == %s", p.Projection, p.Term)
	case PredTypeOutlives:
		return fmt.Sprintf("%s: %s", p.Ty, p.Region)
	case PredRegionOutlives:
		return fmt.Sprintf("%s: %s", p.Region, p.Sub)
	case PredWellFormed:
		return fmt.Sprintf("WF(%s)", p.Arg)
	case PredConstEvaluatable:
		return fmt.Sprintf("ConstEvaluatable(%s)", p.Const)
	case PredObjectSafe:
		return fmt.Sprintf("ObjectSafe(%s)", p.Trait.Name)
	case PredEquate:
		return fmt.Sprintf("%s == %s", p.Ty, p.Term)
	}
	return "<unknown predicate>"
}

// Key is the structural identity of the predicate.
func (p Predicate) Key() string {
	switch p.Kind {
	case PredTrait:
		return "T:" + p.Trait.Key()
	case PredProjection:
		return "P:" + p.Projection.Key() + "==" + p.Term.Key()
	case PredTypeOutlives:
		return "TO:" + p.Ty.Key() + ":" + p.Region.Key()
	case PredRegionOutlives:
		return "RO:" + p.Region.Key() + ":" + p.Sub.Key()
	case PredWellFormed:
		return "WF:" + p.Arg.Key()
	case PredConstEvaluatable:
		return "CE:" + p.Const.Key()
	case PredObjectSafe:
		return "OS:" + string(p.Trait.Def)
	case PredEquate:
		return "EQ:" + p.Ty.Key() + "==" + p.Term.Key()
	}
	return "?"
}

// Equal compares two predicates structurally.
func (p Predicate) Equal(q Predicate) bool { return p.Key() == q.Key() }

// IsOutlives reports whether p is a type or region outlives predicate.
func (p Predicate) IsOutlives() bool {
	return p.Kind == PredTypeOutlives || p.Kind == PredRegionOutlives
}

// PredicateSet is an insertion-ordered set of predicates keyed structurally.
type PredicateSet struct {
	keys  map[string]int
	items []Predicate
}

// NewPredicateSet returns a set holding preds.
func NewPredicateSet(preds ...Predicate) *PredicateSet {
	s := &PredicateSet{keys: make(map[string]int)}
	for _, p := range preds {
		s.Insert(p)
	}
	return s
}

// Insert adds p and reports whether it was new.
func (s *PredicateSet) Insert(p Predicate) bool {
	if s.keys == nil {
		s.keys = make(map[string]int)
	}
	k := p.Key()
	if _, ok := s.keys[k]; ok {
		return false
	}
	s.keys[k] = len(s.items)
	s.items = append(s.items, p)
	return true
}

// Contains reports whether an equal predicate is in the set.
func (s *PredicateSet) Contains(p Predicate) bool {
	if s == nil {
		return false
	}
	_, ok := s.keys[p.Key()]
	return ok
}

// Len returns the number of predicates.
func (s *PredicateSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Items returns the predicates in insertion order.
func (s *PredicateSet) Items() []Predicate {
	if s == nil {
		return nil
	}
	return s.items
}

// Retain keeps only the predicates for which keep returns true.
func (s *PredicateSet) Retain(keep func(Predicate) bool) {
	items := s.items[:0:0]
	s.keys = make(map[string]int)
	for _, p := range s.items {
		if keep(p) {
			s.keys[p.Key()] = len(items)
			items = append(items, p)
		}
	}
	s.items = items
}

// Clone returns an independent copy of the set.
func (s *PredicateSet) Clone() *PredicateSet {
	return NewPredicateSet(s.Items()...)
}
