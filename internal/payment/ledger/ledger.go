// Package ledger owns the lifecycle of payment attempts. One row per attempt,
// atomic single-row updates only; there is deliberately no transaction
// spanning the ledger and the application workflow (see callback service).
package ledger

import (
	"context"
	"errors"
	"time"

	"himstay/internal/payment/codec"
	"himstay/internal/payment/models"
	dErrors "himstay/pkg/domain-errors"
	"himstay/pkg/platform/sentinel"
)

// Store is the persistence contract the ledger drives.
type Store interface {
	Create(ctx context.Context, txn *models.Transaction) error
	Update(ctx context.Context, txn *models.Transaction) error
	FindByAppRefNo(ctx context.Context, appRefNo string) (*models.Transaction, error)
	FindLatestByApplication(ctx context.Context, applicationID string) (*models.Transaction, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.Transaction, error)
}

type Ledger struct {
	store Store
}

func New(store Store) *Ledger {
	return &Ledger{store: store}
}

// Record persists a freshly built attempt in initiated status, with the
// outbound encrypted payload and checksum kept for audit.
func (l *Ledger) Record(ctx context.Context, txn *models.Transaction) error {
	txn.Status = models.TxnInitiated
	txn.CreatedAt = time.Now().UTC()
	if err := l.store.Create(ctx, txn); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeConflict,
				"another payment attempt is already in progress for this application")
		}
		return dErrors.Wrap(dErrors.CodeInternal, "failed to record payment attempt", err)
	}
	return nil
}

// UpdateOnCallback stamps the gateway's response onto the attempt. StatusCd
// "1" is the gateway's only success code; everything else is a failure.
// RespondedAt is always stamped, success or not.
func (l *Ledger) UpdateOnCallback(ctx context.Context, appRefNo string, resp codec.Response) (*models.Transaction, error) {
	txn, err := l.store.FindByAppRefNo(ctx, appRefNo)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no payment attempt for appRefNo "+appRefNo)
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to load payment attempt", err)
	}

	now := time.Now().UTC()
	txn.EchTxnID = resp.EchTxnID
	txn.BankCIN = resp.BankCIN
	txn.BankName = resp.BankName
	txn.PaymentDate = resp.PaymentDate
	txn.GatewayStatus = resp.Status
	txn.StatusCd = resp.StatusCd
	txn.ResponseChecksum = resp.Checksum
	txn.RespondedAt = &now
	if resp.StatusCd == "1" {
		txn.Status = models.TxnSuccess
	} else {
		txn.Status = models.TxnFailed
	}

	if err := l.store.Update(ctx, txn); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to update payment attempt", err)
	}
	return txn, nil
}

// MarkVerified records the outcome of a double verification. Only a
// verification that confirms success promotes the attempt to verified; a
// non-confirming response leaves the row untouched for manual reconciliation.
func (l *Ledger) MarkVerified(ctx context.Context, appRefNo string, resp codec.Response) (*models.Transaction, error) {
	txn, err := l.store.FindByAppRefNo(ctx, appRefNo)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no payment attempt for appRefNo "+appRefNo)
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to load payment attempt", err)
	}
	if resp.StatusCd != "1" {
		return txn, nil
	}

	now := time.Now().UTC()
	txn.Status = models.TxnVerified
	txn.VerifiedAt = &now
	if txn.EchTxnID == "" {
		// Verification can beat a lost callback; keep whatever detail it has.
		txn.EchTxnID = resp.EchTxnID
		txn.GatewayStatus = resp.Status
		txn.StatusCd = resp.StatusCd
	}
	if err := l.store.Update(ctx, txn); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to update payment attempt", err)
	}
	return txn, nil
}

// ResetStalled force-fails the most recent attempt for an application so the
// applicant can retry after an abandoned gateway session. Terminal attempts
// are never reset; that narrows (without fully closing) the race against a
// genuine late callback.
func (l *Ledger) ResetStalled(ctx context.Context, applicationID string) (*models.Transaction, error) {
	txn, err := l.store.FindLatestByApplication(ctx, applicationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no payment attempt for this application")
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to load payment attempt", err)
	}
	if txn.Status.IsTerminal() {
		return nil, dErrors.New(dErrors.CodeStateConflict,
			"latest payment attempt is already "+string(txn.Status))
	}

	now := time.Now().UTC()
	txn.Status = models.TxnFailed
	txn.GatewayStatus = models.CancelledByApplicant
	txn.FailureReason = "cancelled by applicant"
	txn.RespondedAt = &now
	if err := l.store.Update(ctx, txn); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to reset payment attempt", err)
	}
	return txn, nil
}

// Get returns one attempt by its appRefNo.
func (l *Ledger) Get(ctx context.Context, appRefNo string) (*models.Transaction, error) {
	txn, err := l.store.FindByAppRefNo(ctx, appRefNo)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no payment attempt for appRefNo "+appRefNo)
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to load payment attempt", err)
	}
	return txn, nil
}

// List returns attempts matching the filter, newest first.
func (l *Ledger) List(ctx context.Context, filter models.ListFilter) ([]*models.Transaction, error) {
	txns, err := l.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to list payment attempts", err)
	}
	return txns, nil
}
