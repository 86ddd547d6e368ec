package audit

import "time"

// Actions recorded by this core. The payment actions double as the manual
// reconciliation trail: every callback outcome lands here even when the
// ledger rejects it.
const (
	ActionPaymentInitiated        = "payment.initiated"
	ActionPaymentCallbackSuccess  = "payment.callback.success"
	ActionPaymentCallbackFailed   = "payment.callback.failed"
	ActionPaymentCallbackRejected = "payment.callback.rejected"
	ActionPaymentVerified         = "payment.verified"
	ActionPaymentReset            = "payment.reset"
	ActionWorkflowTransition      = "workflow.transition"
	ActionCertificateIssued       = "certificate.issued"
)

// Event is one immutable audit record. Subject carries the application number
// or appRefNo the event is about.
type Event struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	Subject    string    `json:"subject"`
	ActorID    string    `json:"actor_id,omitempty"`
	ActorRole  string    `json:"actor_role,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	Device     string    `json:"device,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
