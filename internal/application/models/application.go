package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Application is one homestay property registration. Created in draft, moved
// through review by officers, approved only by a successful payment callback.
// Rows are never deleted, only status-transitioned.
type Application struct {
	ID string
	// ApplicationNumber is the sequential human-readable number assigned at
	// creation; it doubles as DeptRefNo on the gateway side.
	ApplicationNumber string
	OwnerID           string
	PropertyName      string
	District          string
	Status            Status
	// TotalFee is set during review; payment cannot be initiated without it.
	TotalFee    decimal.NullDecimal
	SubmittedAt *time.Time
	ApprovedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Certificate is minted exactly once, as a side effect of a successful payment
// callback. Immutable after issue.
type Certificate struct {
	ID                string
	ApplicationID     string
	CertificateNumber string
	IssuedDate        time.Time
	ValidUpto         time.Time
}
