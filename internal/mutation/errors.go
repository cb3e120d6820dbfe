package mutation

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
)

var (
	// ErrInFlight is returned when a mutation is run while an attempt is
	// already outstanding.
	ErrInFlight = errors.New("mutation already in flight")

	// ErrAbandoned is returned once the caller has abandoned a mutation.
	ErrAbandoned = errors.New("mutation abandoned")

	// ErrAlreadyRun is returned by Run on a mutation that has left Idle.
	ErrAlreadyRun = errors.New("mutation already run")

	// ErrNothingToRetry is returned by Retry unless the mutation failed.
	ErrNothingToRetry = errors.New("mutation has not failed")

	// ErrConfirmation is the pre-flight failure for a mistyped confirmation.
	ErrConfirmation = errors.New("confirmation does not match")
)

// Category is the user-facing class of a mutation failure.
type Category string

const (
	CategoryNone               Category = ""
	CategoryTransientServer    Category = "transient_server"
	CategoryAuthorization      Category = "authorization"
	CategoryNotFound           Category = "not_found"
	CategoryClientInput        Category = "client_input"
	CategoryNetworkUnreachable Category = "network_unreachable"
	CategoryServerFault        Category = "server_fault"
	CategoryUnknown            Category = "unknown"
)

// StatusError is implemented by errors that carry an HTTP status.
type StatusError interface {
	error
	Status() int
}

// InputError marks a failure caused by the operator's own input.
type InputError struct {
	Err error
}

func (e *InputError) Error() string { return e.Err.Error() }
func (e *InputError) Unwrap() error { return e.Err }

// ConfirmPhrase returns a pre-flight check that fails unless typed equals
// expected exactly.
func ConfirmPhrase(expected, typed string) func() error {
	return func() error {
		if typed != expected {
			return &InputError{Err: fmt.Errorf("%w: type %q to confirm", ErrConfirmation, expected)}
		}
		return nil
	}
}

// Classify maps err to a Category.
func Classify(err error) Category {
	if err == nil {
		return CategoryNone
	}

	var input *InputError
	if errors.As(err, &input) || errors.Is(err, ErrConfirmation) {
		return CategoryClientInput
	}

	var se StatusError
	if errors.As(err, &se) {
		switch code := se.Status(); {
		case code == http.StatusUnauthorized || code == http.StatusForbidden:
			return CategoryAuthorization
		case code == http.StatusNotFound || code == http.StatusGone:
			return CategoryNotFound
		case code >= 500:
			return CategoryTransientServer
		default:
			return CategoryServerFault
		}
	}

	if unreachable(err) {
		return CategoryNetworkUnreachable
	}
	return CategoryUnknown
}

func unreachable(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// RetryOnStatus returns a retry predicate that accepts errors carrying one
// of the given HTTP statuses.
func RetryOnStatus(codes ...int) func(error) bool {
	return func(err error) bool {
		var se StatusError
		if !errors.As(err, &se) {
			return false
		}
		for _, c := range codes {
			if se.Status() == c {
				return true
			}
		}
		return false
	}
}

// Describe turns err into the message shown to the operator.
func Describe(cat Category, err error) string {
	switch cat {
	case CategoryNone:
		return ""
	case CategoryAuthorization:
		return "not authorized: your session may have expired, sign in again (clubdesk remote add) and retry"
	case CategoryNotFound:
		return "not found: it may already have been deleted"
	case CategoryNetworkUnreachable:
		return "cannot reach the server, check your connection"
	case CategoryClientInput:
		return err.Error()
	case CategoryTransientServer:
		return "server error: " + message(err)
	default:
		return message(err)
	}
}

// message returns the server's own wording when err carries one.
func message(err error) string {
	var m interface{ ServerMessage() string }
	if errors.As(err, &m) && m.ServerMessage() != "" {
		return m.ServerMessage()
	}
	return err.Error()
}
