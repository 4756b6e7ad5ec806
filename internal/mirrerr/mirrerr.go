// Package mirrerr defines the error taxonomy shared across the casting
// pipeline: transient errors stay local to the stage that raised them,
// fatal errors walk the session close cascade exactly once.
package mirrerr

import "fmt"

// Kind identifies which row of the error taxonomy an error belongs to.
type Kind int

const (
	// ParameterRejected means a configuration value failed validation
	// before any resource was acquired.
	ParameterRejected Kind = iota
	// SourceDisconnected means a capture source vanished mid-session.
	SourceDisconnected
	// EncoderInitFailed means a codec adapter could not be constructed.
	EncoderInitFailed
	// EncodeTransient means a single encode call failed but the encoder
	// is still usable.
	EncodeTransient
	// DecodeTransient means a single decode call failed but the decoder
	// is still usable.
	DecodeTransient
	// TransportUnreachable means a send/receive failed at the transport
	// boundary (unreachable peer, closed socket, relay rejection).
	TransportUnreachable
	// StallTimeout means the receiver's stall deadline elapsed without a
	// usable packet arriving.
	StallTimeout
	// AbandonmentTimeout means the receiver's abandonment deadline
	// elapsed while stalled.
	AbandonmentTimeout
	// InternalFatal means an invariant was violated; always fatal.
	InternalFatal
)

func (k Kind) String() string {
	switch k {
	case ParameterRejected:
		return "parameter_rejected"
	case SourceDisconnected:
		return "source_disconnected"
	case EncoderInitFailed:
		return "encoder_init_failed"
	case EncodeTransient:
		return "encode_transient"
	case DecodeTransient:
		return "decode_transient"
	case TransportUnreachable:
		return "transport_unreachable"
	case StallTimeout:
		return "stall_timeout"
	case AbandonmentTimeout:
		return "abandonment_timeout"
	case InternalFatal:
		return "internal_fatal"
	default:
		return "unknown"
	}
}

// Fatal reports whether an error of this kind must walk the close cascade.
func (k Kind) Fatal() bool {
	switch k {
	case SourceDisconnected, TransportUnreachable, AbandonmentTimeout, InternalFatal:
		return true
	default:
		return false
	}
}

// Error is the concrete error type produced throughout the pipeline.
type Error struct {
	Kind    Kind
	Op      string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is supports errors.Is comparisons against a bare Kind sentinel created
// via New(kind, "", nil).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an *Error for the given kind, operation and cause.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Sentinel returns a comparison-only error of the given kind, for use with
// errors.Is(err, mirrerr.Sentinel(mirrerr.StallTimeout)).
func Sentinel(kind Kind) error { return &Error{Kind: kind} }
