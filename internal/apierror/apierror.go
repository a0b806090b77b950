// Package apierror provides the typed fault values used across the service
// layer and the standardized error envelopes returned to API clients. Every
// fault carries a stable machine-readable kind plus a human message; internal
// details (stack traces, DB errors) never leak to clients.
package apierror

import "fmt"

// Kind is the stable identifier of a fault. Handlers map kinds to HTTP
// status codes; clients may branch on them.
type Kind string

const (
	// Validation faults — caller error, rejected before any write
	KindInvalidOpeningAmount   Kind = "INVALID_OPENING_AMOUNT"
	KindInsufficientWithdrawal Kind = "INSUFFICIENT_WITHDRAWABLE_BALANCE"
	KindReasonTooShort         Kind = "REASON_TOO_SHORT"
	KindInvalidCountLine       Kind = "INVALID_COUNT_LINE"
	KindInvalidInput           Kind = "INVALID_INPUT"

	// State faults — operation illegal for the current session status
	KindRegisterAlreadyOpen Kind = "REGISTER_ALREADY_OPEN"
	KindSessionNotOpen      Kind = "SESSION_NOT_OPEN"
	KindSessionMustBeClosed Kind = "SESSION_MUST_BE_CLOSED"

	// Not-found faults
	KindSessionNotFound  Kind = "SESSION_NOT_FOUND"
	KindRegisterNotFound Kind = "REGISTER_NOT_FOUND"
	KindDocumentNotFound Kind = "DOCUMENT_NOT_FOUND"

	// Integrity faults — the ledger disagrees with the stored closure
	// figures; generation must abort loudly, never be swallowed
	KindLedgerIntegrity Kind = "LEDGER_INTEGRITY_FAULT"

	// Collaborator faults — renderer/store unavailable, safe to retry
	KindCollaboratorUnavailable Kind = "COLLABORATOR_UNAVAILABLE"
)

// Fault is the typed error returned by services.
type Fault struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

func (f *Fault) Error() string { return string(f.Kind) + ": " + f.Message }

// New builds a Fault with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Fault {
	return &Fault{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// StateFault builds a state fault naming the expected vs actual status.
func StateFault(kind Kind, expected, actual string) *Fault {
	return New(kind, "session status must be %s, is %s", expected, actual)
}

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Kind   Kind   `json:"kind,omitempty"`
	Detail string `json:"detail"`
}

// Envelope converts any error into the client-safe envelope. Faults keep
// their kind; anything else becomes an opaque detail.
func Envelope(err error) *APIError {
	if f, ok := err.(*Fault); ok {
		return &APIError{Kind: f.Kind, Detail: f.Message}
	}
	return &APIError{Detail: err.Error()}
}

// Internal is the envelope for unhandled server errors.
func Internal() *APIError {
	return &APIError{Detail: "internal server error"}
}

// ValidationError wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "validation error", Fields: fields}
}
