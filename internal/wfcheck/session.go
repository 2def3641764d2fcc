package wfcheck

import (
	"github.com/orizon-lang/wfcheck/internal/diagnostic"
	"github.com/orizon-lang/wfcheck/internal/features"
	"github.com/orizon-lang/wfcheck/internal/hir"
	"github.com/orizon-lang/wfcheck/internal/position"
	"github.com/orizon-lang/wfcheck/internal/regions"
	"github.com/orizon-lang/wfcheck/internal/traits"
	"github.com/orizon-lang/wfcheck/internal/ty"
)

type sessionState uint8

const (
	stateStart sessionState = iota
	stateOpen
	stateRegistered
	stateResolved
	stateAccepted
	stateDiagnosed
)

func (s sessionState) String() string {
	switch s {
	case stateStart:
		return "start"
	case stateOpen:
		return "open"
	case stateRegistered:
		return "registered"
	case stateResolved:
		return "resolved"
	case stateAccepted:
		return "accepted"
	}
	return "diagnosed"
}

// session collects the obligations of one declaration and reports the ones
// that fail. A session is confined to one goroutine.
type session struct {
	ck   *checker
	def  ty.DefID
	gen  *hir.Generics
	env  *traits.ParamEnv
	fcx  *traits.FulfillmentContext
	sink diagnostic.Sink

	state  sessionState
	errors int
}

// enter runs check inside a fresh session for def. check registers
// obligations and returns the types the declaration may assume
// well-formed; they feed region resolution.
func (ck *checker) enter(def ty.DefID, sink diagnostic.Sink, check func(s *session) []*ty.Ty) {
	s := &session{
		ck:   ck,
		def:  def,
		gen:  ck.crate.GenericsOf(def),
		env:  ck.solver.ParamEnvOf(def),
		fcx:  traits.NewFulfillmentContext(),
		sink: sink,
	}
	s.advance(stateOpen)

	if !ck.features.Enabled(features.TrivialBounds) {
		s.checkFalseGlobalBounds()
	}
	implied := check(s)
	s.advance(stateRegistered)

	s.resolve(implied)
	if s.errors > 0 {
		s.advance(stateDiagnosed)
	} else {
		s.advance(stateAccepted)
	}
}

func (s *session) advance(to sessionState) {
	s.ck.log.Debug("%s: %s -> %s", s.def, s.state, to)
	s.state = to
}

func (s *session) emit(b *diagnostic.DiagnosticBuilder) {
	d := b.Item(string(s.def)).Build()
	if d.IsError() {
		s.errors++
	}
	s.sink.Emit(d)
}

func (s *session) normalize(t *ty.Ty) *ty.Ty { return s.ck.solver.Normalize(s.env, t) }

func (s *session) register(cause traits.Cause, p ty.Predicate) {
	s.fcx.Register(traits.NewObligation(s.env, cause, p))
}

// registerWF requires t to be well-formed.
func (s *session) registerWF(t *ty.Ty, span position.Span, code traits.CauseCode) {
	s.register(traits.Cause{Span: span, Code: code}, ty.WellFormed(ty.TypeArg(t)))
}

// registerLang requires t to implement the trait behind a lang item. It
// does nothing when the crate declares no such trait.
func (s *session) registerLang(lang string, t *ty.Ty, cause traits.Cause) {
	if p, ok := s.ck.solver.LangPredicate(lang, t); ok {
		s.register(cause, p)
	}
}

// registerObligationsOf registers what p being well-formed requires.
func (s *session) registerObligationsOf(p ty.Predicate, cause traits.Cause) {
	for _, q := range s.ck.solver.PredicateObligations(p) {
		s.register(cause, q)
	}
}

// resolve proves every registered obligation, then checks the outlives
// constraints they produced with implied assumed well-formed.
func (s *session) resolve(implied []*ty.Ty) {
	s.ck.log.Debug("%s: %d obligations pending", s.def, s.fcx.Pending())
	outlives, errs := s.fcx.SelectAll(s.ck.solver)
	for _, e := range errs {
		s.reportFulfillmentError(e)
	}

	// Obligations proven in another environment (global bounds) are
	// resolved there, without the implied types.
	ctxts := make(map[string]*regions.InferCtxt)
	var order []*regions.InferCtxt
	for _, o := range outlives {
		key := o.Env.Key()
		ic, ok := ctxts[key]
		if !ok {
			var wf []*ty.Ty
			if key == s.env.Key() {
				wf = implied
			}
			ic = regions.NewInferCtxt(regions.NewEnvironment(s.ck.solver, o.Env, wf))
			ctxts[key] = ic
			order = append(order, ic)
		}
		ic.RegisterObligation(o)
	}
	for _, ic := range order {
		for _, e := range ic.Resolve() {
			s.reportRegionError(e)
		}
	}
	s.advance(stateResolved)
}
