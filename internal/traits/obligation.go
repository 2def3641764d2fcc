package traits

import (
	"fmt"

	"github.com/orizon-lang/wfcheck/internal/position"
	"github.com/orizon-lang/wfcheck/internal/ty"
)

// CauseCode says why an obligation exists. It only affects diagnostics.
type CauseCode uint8

const (
	MiscObligation CauseCode = iota
	// WellFormedCause is a plain WF requirement on a written type.
	WellFormedCause
	// FieldSized requires a non-final field to be Sized.
	FieldSized
	// ReturnType requires a function's return type to be well-formed.
	ReturnType
	// ItemObligation comes from a bound declared on Item.
	ItemObligation
	// TrivialBound is a global where-clause that must hold on its own.
	TrivialBound
	// MethodReceiver comes from receiver validation.
	MethodReceiver
	// SharedStatic requires a static's type to be Sync.
	SharedStatic
	// StaticSized requires a static's type to be Sized.
	StaticSized
	// DefaultBound checks a where-clause with defaults substituted.
	DefaultBound
	// AssocTypeBound requires an associated type value to meet the item bounds.
	AssocTypeBound
)

// Cause records where an obligation came from.
type Cause struct {
	Span position.Span
	Code CauseCode
	// Item is the declaration whose bound produced an ItemObligation.
	Item ty.DefID
	// FieldIndex and VariantLast describe FieldSized causes.
	FieldIndex int
	LastField  bool
}

// MiscCause returns a cause with no particular code.
func MiscCause(span position.Span) Cause { return Cause{Span: span} }

// Note returns the explanatory note a diagnostic should carry, or "".
func (c Cause) Note() string {
	switch c.Code {
	case FieldSized:
		if c.LastField {
			return "the last field of a packed struct may only have a dynamically sized type if it does not need drop to be run"
		}
		return "only the last field of a struct may have a dynamically sized type"
	case SharedStatic:
		return "shared static variables must have a type that implements `Sync`"
	case StaticSized:
		return "statics and constants must have a statically known size"
	case TrivialBound:
		return "see issue #48214 <https://github.com/rust-lang/rust/issues/48214> for more information"
	case ItemObligation:
		if c.Item != "" {
			return fmt.Sprintf("required by a bound in `%s`", c.Item)
		}
	}
	return ""
}

// Obligation is a predicate that must be proven in an environment.
type Obligation struct {
	Pred  ty.Predicate
	Env   *ParamEnv
	Cause Cause
	Depth int
}

// NewObligation returns a depth-zero obligation.
func NewObligation(env *ParamEnv, cause Cause, pred ty.Predicate) Obligation {
	return Obligation{Pred: pred, Env: env, Cause: cause}
}

func (o Obligation) derive(pred ty.Predicate) Obligation {
	return Obligation{Pred: pred, Env: o.Env, Cause: o.Cause, Depth: o.Depth + 1}
}

func (o Obligation) key() string {
	return o.Env.Key() + "|" + o.Pred.Key()
}

func (o Obligation) String() string { return o.Pred.String() }
