package reactive

import "fmt"

// Kind enumerates the error taxonomy of spec §7. They are kinds, not
// distinct Go types, grounded on pumped-fn-pumped-go/errors.go's single
// cause-wrapping error struct with a discriminating field.
type Kind int

const (
	// KindCompute is a synchronous panic/error from a user compute function.
	KindCompute Kind = iota
	// KindAsync is a rejected (errored) thenable returned by compute.
	KindAsync
	// KindPropagation is a listener throwing during notification.
	KindPropagation
	// KindDisposed is an operation attempted on a disposed cell.
	KindDisposed
	// KindTimeout is a wait.timeout expiration.
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindCompute:
		return "compute"
	case KindAsync:
		return "async"
	case KindPropagation:
		return "propagation"
	case KindDisposed:
		return "disposed"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error is the engine's single error type. Every taxonomy kind in spec §7
// is represented by a Kind value instead of a distinct Go type, so callers
// can branch with a type switch on Kind or use errors.Is against the
// package-level sentinels below.
type Error struct {
	Kind   Kind
	Signal string // display name of the signal involved, if any
	Cause  error
}

func (e *Error) Error() string {
	if e.Signal != "" {
		return fmt.Sprintf("reactive: %s error in %q: %v", e.Kind, e.Signal, e.Cause)
	}
	return fmt.Sprintf("reactive: %s error: %v", e.Kind, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, ErrTimeout) etc. match by Kind rather than identity.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinel errors usable with errors.Is, one per Kind.
var (
	ErrCompute     = &Error{Kind: KindCompute}
	ErrAsync       = &Error{Kind: KindAsync}
	ErrPropagation = &Error{Kind: KindPropagation}
	ErrDisposed    = &Error{Kind: KindDisposed}
	ErrTimeout     = &Error{Kind: KindTimeout}
)

func newError(kind Kind, name string, cause error) *Error {
	return &Error{Kind: kind, Signal: name, Cause: cause}
}
