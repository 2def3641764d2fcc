package wfcheck

import (
	"github.com/orizon-lang/wfcheck/internal/diagnostic"
	"github.com/orizon-lang/wfcheck/internal/features"
	"github.com/orizon-lang/wfcheck/internal/hir"
	"github.com/orizon-lang/wfcheck/internal/position"
	"github.com/orizon-lang/wfcheck/internal/traits"
	"github.com/orizon-lang/wfcheck/internal/ty"
)

const helpForSelfType = "consider changing to `self`, `&self`, `&mut self`, `self: Box<Self>`, " +
	"`self: Rc<Self>`, `self: Arc<Self>`, or `self: Pin<P>` (where P is one of the previous types except `Self`)"

// checkItemFn checks a free or foreign function.
func (ck *checker) checkItemFn(f *hir.Fn, sink diagnostic.Sink) {
	ck.enter(f.Def, sink, func(s *session) []*ty.Ty {
		return s.checkFnOrMethod(f.Sig)
	})
}

// checkFnOrMethod checks a signature and returns its input types, which
// callers may assume well-formed. The output is checked but implies
// nothing: a caller cannot know it is well-formed before the call returns.
func (s *session) checkFnOrMethod(sig *hir.FnSig) []*ty.Ty {
	lib := ty.Liberate(s.def)

	var implied []*ty.Ty
	for i, in := range sig.Inputs {
		t := s.normalize(lib.FoldTy(in))
		s.registerWF(t, sig.InputSpans[i], traits.WellFormedCause)
		implied = append(implied, t)
	}
	out := s.normalize(lib.FoldTy(sig.OutputTy()))
	s.registerWF(out, sig.OutputSpan, traits.ReturnType)

	s.checkWhereClauses()
	return implied
}

// checkMethodReceiver checks that the `self` parameter dereferences to
// selfTy. Without arbitrary_self_types every step has to implement the
// Receiver trait.
func (s *session) checkMethodReceiver(sig *hir.FnSig, selfTy *ty.Ty) {
	if !sig.HasSelf || len(sig.Inputs) == 0 {
		return
	}
	span := sig.InputSpans[0]
	receiver := s.normalize(ty.Liberate(s.def).FoldTy(sig.Inputs[0]))
	selfTy = s.normalize(selfTy)

	if s.ck.features.Enabled(features.ArbitrarySelfTypes) {
		if !s.receiverIsValid(span, receiver, selfTy, true) {
			s.emit(invalidReceiver(span, receiver))
		}
		return
	}
	if s.receiverIsValid(span, receiver, selfTy, false) {
		return
	}
	if s.receiverIsValid(span, receiver, selfTy, true) {
		s.emit(diagnostic.Errorf(span, "`%s` cannot be used as the type of `self` without the `%s` feature",
			receiver, features.ArbitrarySelfTypes).
			Code("E0658").
			Note("see issue #44874 <https://github.com/rust-lang/rust/issues/44874> for more information").
			Help("add `%s` to the crate features to enable", features.ArbitrarySelfTypes).
			Help(helpForSelfType))
		return
	}
	s.emit(invalidReceiver(span, receiver))
}

func invalidReceiver(span position.Span, receiver *ty.Ty) *diagnostic.DiagnosticBuilder {
	return diagnostic.Errorf(span, "invalid `self` parameter type: %s", receiver).
		Code("E0307").
		Note("type of `self` must be `Self` or a type that dereferences to it").
		Help(helpForSelfType)
}

// receiverIsValid walks the autoderef chain of receiver looking for
// selfTy. In strict mode the receiver and every intermediate type must
// implement Receiver; in arbitrary mode raw pointers may be dereferenced.
// Obligations are registered only once a match is found.
func (s *session) receiverIsValid(span position.Span, receiver, selfTy *ty.Ty, arbitrary bool) bool {
	cause := traits.Cause{Span: span, Code: traits.MethodReceiver}

	if ty.EqualModuloRegions(receiver, selfTy) {
		s.register(cause, ty.Equate(selfTy, receiver))
		return true
	}

	ad := s.ck.solver.Autoderef(s.env, receiver, arbitrary)
	ad.Next()
	for {
		potential, ok := ad.Next()
		if !ok {
			// Only the relaxed walk reports, so strict mode warns once.
			if ad.ReachedRecursionLimit() && arbitrary {
				s.ck.log.Debug("%s: autoderef of %s hit the recursion limit", s.def, receiver)
				s.emit(diagnostic.Errorf(span, "reached the recursion limit while auto-dereferencing `%s`", receiver).
					Warning().
					Help("consider increasing the `recursion_limit` setting"))
			}
			return ty.ReferencesError(receiver)
		}
		if ty.EqualModuloRegions(potential, selfTy) {
			for _, p := range ad.Obligations() {
				s.register(cause, p)
			}
			s.register(cause, ty.Equate(selfTy, potential))
			break
		}
		if !arbitrary && !s.receiverImplemented(potential) {
			s.ck.log.Debug("%s: %s does not implement Receiver", s.def, potential)
			return false
		}
	}

	if !arbitrary && !s.receiverImplemented(receiver) {
		s.ck.log.Debug("%s: receiver %s does not implement Receiver", s.def, receiver)
		return false
	}
	return true
}

func (s *session) receiverImplemented(t *ty.Ty) bool {
	p, ok := s.ck.solver.LangPredicate(hir.LangReceiver, t)
	if !ok {
		return true
	}
	return s.ck.solver.Evaluate(s.env, p)
}
