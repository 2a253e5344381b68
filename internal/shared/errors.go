package shared

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Sentinel errors shared by stores, the importer and the HTTP adapter.
var (
	// ErrNotFound indicates that a requested title or row does not exist
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates malformed input, e.g. a mapping without an identifier
	ErrValidation = errors.New("validation failed")

	// ErrConflict indicates that a write conflicts with current state
	ErrConflict = errors.New("conflict")

	// ErrInternal indicates a bug or an unexpected state
	ErrInternal = errors.New("internal error")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrDependencyFailure indicates that a database, cache or remote dataset failed
	ErrDependencyFailure = errors.New("dependency failure")
)

// Kind is a coarse error category used by adapters to pick a response.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindValidation
	KindConflict
	KindInternal
	KindTimeout
	KindDependencyFailure
	KindCanceled
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindValidation:
		return "Validation"
	case KindConflict:
		return "Conflict"
	case KindInternal:
		return "Internal"
	case KindTimeout:
		return "Timeout"
	case KindDependencyFailure:
		return "DependencyFailure"
	case KindCanceled:
		return "Canceled"
	default:
		return "Unknown"
	}
}

var kindToSentinel = map[Kind]error{
	KindNotFound:          ErrNotFound,
	KindValidation:        ErrValidation,
	KindConflict:          ErrConflict,
	KindInternal:          ErrInternal,
	KindTimeout:           ErrTimeout,
	KindDependencyFailure: ErrDependencyFailure,
}

// kindPriorities is the order KindOf checks kinds in; the first match wins.
var kindPriorities = []struct {
	kind Kind
	err  error
}{
	{KindCanceled, nil},
	{KindTimeout, ErrTimeout},
	{KindNotFound, ErrNotFound},
	{KindValidation, ErrValidation},
	{KindConflict, ErrConflict},
	{KindDependencyFailure, ErrDependencyFailure},
	{KindInternal, ErrInternal},
}

// KindOf classifies err by walking its chain against the known sentinels.
//
// Cancellation beats timeouts, timeouts beat everything else, and dependency
// failures beat internal errors, so for errors.Join values the most
// actionable kind is reported. Unrecognized errors are KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	for _, p := range kindPriorities {
		switch p.kind {
		case KindCanceled:
			if IsCanceled(err) {
				return KindCanceled
			}
		case KindTimeout:
			if IsTimeout(err) {
				return KindTimeout
			}
		default:
			if errors.Is(err, p.err) {
				return p.kind
			}
		}
	}

	return KindUnknown
}

// HasKind reports whether KindOf(err) == kind.
func HasKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// SentinelOf returns the sentinel error for kind, or nil for KindUnknown and KindCanceled.
func SentinelOf(kind Kind) error {
	return kindToSentinel[kind]
}

// MarkKind attaches kind to err while keeping err in the chain, so both
// KindOf(marked) == kind and errors.Is(marked, err) hold.
//
// Marking is idempotent. A nil err yields the bare sentinel; KindUnknown and
// KindCanceled leave err untouched.
//
//	if errors.Is(err, pgx.ErrNoRows) {
//	    return shared.MarkKind(err, shared.KindNotFound)
//	}
func MarkKind(err error, kind Kind) error {
	sentinel := SentinelOf(kind)
	if err == nil {
		return sentinel
	}
	if sentinel == nil || KindOf(err) == kind {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

// Wrap prefixes err with context. A nil err stays nil and an empty context
// returns err unchanged.
func Wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	if context == "" {
		return err
	}
	return fmt.Errorf("%s: %w", context, err)
}

// Wrapf is Wrap with a formatted context.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// IsCanceled reports whether err is a context cancellation.
func IsCanceled(err error) bool {
	return err != nil && errors.Is(err, context.Canceled)
}

// IsTimeout reports whether err is a deadline, an ErrTimeout or a net.Error timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrTimeout) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func IsNotFound(err error) bool          { return errors.Is(err, ErrNotFound) }
func IsValidation(err error) bool        { return errors.Is(err, ErrValidation) }
func IsConflict(err error) bool          { return errors.Is(err, ErrConflict) }
func IsInternal(err error) bool          { return errors.Is(err, ErrInternal) }
func IsDependencyFailure(err error) bool { return errors.Is(err, ErrDependencyFailure) }
