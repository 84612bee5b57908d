package aurora

import (
	"errors"
	"fmt"
)

// ErrorCode tags an AuroraError the way MeshError's Code field does in the
// teacher's mesh package, so callers can switch on a stable identifier
// instead of parsing error strings.
type ErrorCode string

const (
	// ErrInvalidDomain marks a numeric precondition violation (n > N, K > N).
	// Fatal at construction; never recovered.
	ErrInvalidDomain ErrorCode = "INVALID_DOMAIN"
	// ErrSingular marks an undefined matrix inverse for a parameter set.
	// Fatal for that parameter set.
	ErrSingular ErrorCode = "SINGULAR"
	// ErrNoCandidates marks pick() called with nothing to choose from.
	ErrNoCandidates ErrorCode = "NO_CANDIDATES"
	// ErrConnectionRefused marks a transient peer-level failure within a walk.
	ErrConnectionRefused ErrorCode = "CONNECTION_REFUSED"
	// ErrTimeout marks an RPC that exceeded its deadline.
	ErrTimeout ErrorCode = "TIMEOUT"
	// ErrCliqueDetected marks accumulated_mistake >= T.
	ErrCliqueDetected ErrorCode = "CLIQUE_DETECTED"
	// ErrCancelled marks external cancellation; propagates immediately, no retries.
	ErrCancelled ErrorCode = "CANCELLED"
)

// sentinels let callers use errors.Is(err, aurora.ErrClique) etc.
var (
	sentinelInvalidDomain      = errors.New(string(ErrInvalidDomain))
	sentinelSingular           = errors.New(string(ErrSingular))
	sentinelNoCandidates       = errors.New(string(ErrNoCandidates))
	sentinelConnectionRefused  = errors.New(string(ErrConnectionRefused))
	sentinelTimeout            = errors.New(string(ErrTimeout))
	sentinelCliqueDetected     = errors.New(string(ErrCliqueDetected))
	sentinelCancelled          = errors.New(string(ErrCancelled))
)

// ErrClique, ErrConnRefused etc. are the sentinels exposed for errors.Is.
var (
	ErrClique       = sentinelCliqueDetected
	ErrConnRefused  = sentinelConnectionRefused
	ErrRPCTimeout   = sentinelTimeout
	ErrWalkCanceled = sentinelCancelled
)

func sentinelFor(code ErrorCode) error {
	switch code {
	case ErrInvalidDomain:
		return sentinelInvalidDomain
	case ErrSingular:
		return sentinelSingular
	case ErrNoCandidates:
		return sentinelNoCandidates
	case ErrConnectionRefused:
		return sentinelConnectionRefused
	case ErrTimeout:
		return sentinelTimeout
	case ErrCliqueDetected:
		return sentinelCliqueDetected
	case ErrCancelled:
		return sentinelCancelled
	default:
		return errors.New(string(code))
	}
}

// AuroraError is a production-grade tagged error carrying structured
// context, mirroring the teacher's MeshError.
type AuroraError struct {
	Code    ErrorCode
	Message string
	Context map[string]interface{}
	Cause   error
}

func newError(code ErrorCode, message string) *AuroraError {
	return &AuroraError{Code: code, Message: message, Context: make(map[string]interface{})}
}

func wrapError(code ErrorCode, message string, cause error) *AuroraError {
	e := newError(code, message)
	e.Cause = cause
	return e
}

func (e *AuroraError) withContext(key string, value interface{}) *AuroraError {
	e.Context[key] = value
	return e
}

func (e *AuroraError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AuroraError) Unwrap() error { return e.Cause }

// Is reports whether target is the sentinel for e's code, so
// errors.Is(err, aurora.ErrClique) works against a wrapped *AuroraError.
func (e *AuroraError) Is(target error) bool {
	return target == sentinelFor(e.Code)
}
