package vies

import (
	"fmt"
)

// FailureKind classifies a failed attempt. Transient kinds are worth
// retrying; the client kind is permanent and fails the identifier
// immediately.
type FailureKind int

const (
	// FailureServiceBusy covers VIES-side unavailability: maintenance
	// windows, member-state overload, 5xx responses and explicit
	// concurrency-cap error codes.
	FailureServiceBusy FailureKind = iota
	// FailureProxy covers failures connecting through the configured proxy.
	FailureProxy
	// FailureNetwork covers other transport-level failures: timeouts, DNS,
	// connection resets, unusable payloads.
	FailureNetwork
	// FailureClient covers permanent client-side rejections (malformed
	// request); retrying cannot help.
	FailureClient
)

// Transient reports whether an attempt with this failure kind should be
// retried.
func (k FailureKind) Transient() bool { return k != FailureClient }

func (k FailureKind) String() string {
	switch k {
	case FailureServiceBusy:
		return "service-busy"
	case FailureProxy:
		return "proxy-failure"
	case FailureNetwork:
		return "network-failure"
	default:
		return "client-error"
	}
}

// ServiceError reports one attempt that did not yield a definitive answer.
type ServiceError struct {
	Kind   FailureKind
	Status int    // HTTP status, when a response was received
	Code   string // VIES error code from the response body, when present
	cause  error
}

func (e *ServiceError) Error() string {
	switch {
	case e.Code != "":
		return fmt.Sprintf("vies: %s (code %s)", e.Kind, e.Code)
	case e.Status != 0:
		return fmt.Sprintf("vies: %s (status %d)", e.Kind, e.Status)
	case e.cause != nil:
		return fmt.Sprintf("vies: %s: %v", e.Kind, e.cause)
	default:
		return fmt.Sprintf("vies: %s", e.Kind)
	}
}

func (e *ServiceError) Unwrap() error { return e.cause }

// ExhaustedError is the terminal failure after every permitted attempt
// came back transient.
type ExhaustedError struct {
	Attempts int
	Last     *ServiceError // classification of the final attempt
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("vies: retries exhausted after %d attempts (last: %v)", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }
