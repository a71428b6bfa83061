// Package forecast holds the shared error taxonomy used across every
// model family and the batch dispatcher. A Kind-tagged value type stands
// in for sentinel errors so the dispatcher can switch on Kind cheaply
// instead of repeated errors.Is calls, generalized minimally from the
// teacher's plain fmt.Errorf/errors.New style (no custom error types
// existed there) to carry the one piece of structure the dispatcher
// needs: which of the six failure kinds occurred.
package forecast

import "fmt"

// Kind classifies a forecast failure by cause, not by Go type.
type Kind int

const (
	// InvalidParameter: unknown key, wrong value type, out-of-range
	// value, or cross-parameter invariant violated. Raised at create time.
	InvalidParameter Kind = iota
	// InsufficientData: series shorter than the model's minimum length.
	// Raised at fit time.
	InsufficientData
	// NonFiniteObservation: a NaN or infinite observation where the model
	// disallows it. Raised at fit time.
	NonFiniteObservation
	// ModelFitFailed: the optimizer converged to a non-finite objective
	// or an infeasible point after fallback. Raised at fit time.
	ModelFitFailed
	// PredictBeforeFit: predict called on an unfitted instance.
	PredictBeforeFit
	// Cancelled: cooperative cancellation observed.
	Cancelled
)

func (k Kind) String() string {
	switch k {
	case InvalidParameter:
		return "InvalidParameter"
	case InsufficientData:
		return "InsufficientData"
	case NonFiniteObservation:
		return "NonFiniteObservation"
	case ModelFitFailed:
		return "ModelFitFailed"
	case PredictBeforeFit:
		return "PredictBeforeFit"
	case Cancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Error is a Kind-tagged error carrying an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an Error of the given kind around a cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind from err if it is (or wraps) a *Error,
// defaulting to ModelFitFailed for any other error — the dispatcher's
// fallback classification for failures raised outside this taxonomy
// (e.g. a plain error returned by a registry build step).
func KindOf(err error) Kind {
	var fe *Error
	for e := err; e != nil; {
		if asErr, ok := e.(*Error); ok {
			fe = asErr
			break
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	if fe != nil {
		return fe.Kind
	}
	return ModelFitFailed
}
