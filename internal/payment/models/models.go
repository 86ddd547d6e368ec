package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus is the lifecycle state of one payment attempt.
type TransactionStatus string

const (
	// TxnInitiated: outbound payload built and persisted, applicant not yet
	// returned from the gateway.
	TxnInitiated TransactionStatus = "initiated"
	// TxnRedirected: applicant handed off to the gateway form.
	TxnRedirected TransactionStatus = "redirected"
	TxnSuccess    TransactionStatus = "success"
	TxnFailed     TransactionStatus = "failed"
	// TxnVerified: success re-confirmed by out-of-band double verification.
	TxnVerified TransactionStatus = "verified"
)

// IsTerminal reports whether no further gateway outcome is expected.
func (s TransactionStatus) IsTerminal() bool {
	return s == TxnSuccess || s == TxnFailed || s == TxnVerified
}

// CancelledByApplicant is the synthetic gateway status stamped by a stalled
// reset. It never originates from HimKosh.
const CancelledByApplicant = "CANCELLED_BY_APPLICANT"

// Transaction is one payment attempt against an application. An application
// may accumulate several; only the latest matters operationally.
type Transaction struct {
	ID            string
	ApplicationID string

	// AppRefNo is the globally unique attempt identifier we generate;
	// DeptRefNo is the application's human-readable number, the correlation
	// key on the gateway side.
	AppRefNo  string
	DeptRefNo string

	// TotalAmount is what the gateway was asked for; ActualAmount is the real
	// fee. They differ only when test mode substituted a nominal value.
	TotalAmount  decimal.Decimal
	ActualAmount decimal.Decimal
	TestMode     bool

	Head1   string
	Amount1 decimal.Decimal
	Head2   string
	Amount2 decimal.Decimal
	Head3   string
	Amount3 decimal.Decimal
	Head4   string
	Amount4 decimal.Decimal
	DDO     string

	// Audit copy of the outbound payload.
	EncryptedRequest string
	RequestChecksum  string

	// Response fields, populated only after the gateway calls back.
	EchTxnID         string
	BankCIN          string
	BankName         string
	PaymentDate      string
	GatewayStatus    string
	StatusCd         string
	ResponseChecksum string

	Status        TransactionStatus
	FailureReason string

	CreatedAt   time.Time
	RespondedAt *time.Time
	VerifiedAt  *time.Time
}

// ListFilter narrows transaction listings for the audit endpoints.
type ListFilter struct {
	ApplicationID string
	Status        TransactionStatus
}
