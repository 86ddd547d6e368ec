package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	appmodels "himstay/internal/application/models"
	"himstay/internal/audit"
	"himstay/internal/payment/codec"
	"himstay/internal/payment/crypto"
	"himstay/internal/payment/models"
	dErrors "himstay/pkg/domain-errors"
	"himstay/pkg/platform/sentinel"
)

// certificateValidity is how long an issued registration certificate remains
// valid.
const certificateValidity = 365 * 24 * time.Hour

// CallbackResult is the outcome of one gateway callback, consumed by the
// handler to build the applicant-facing redirect.
type CallbackResult struct {
	Success           bool
	AppRefNo          string
	ApplicationNumber string
	EchTxnID          string
}

// HandleCallback processes an encrypted gateway callback end to end: decrypt,
// checksum-verify, update the ledger, and on success mint the certificate and
// approve the application. Nothing is written before the checksum passes.
func (s *Service) HandleCallback(ctx context.Context, encData string) (*CallbackResult, error) {
	ctx, span := s.tracer.Start(ctx, "payment.HandleCallback")
	defer span.End()
	started := s.now()

	plaintext, err := s.cipher.Decrypt(encData)
	if err != nil {
		s.metrics.RecordCallback("undecryptable", time.Since(started).Seconds())
		s.audit.Record(ctx, audit.ActionPaymentCallbackRejected, "", "callback payload could not be decrypted")
		s.logger.WarnContext(ctx, "callback decryption failed", "error", err)
		return nil, dErrors.New(dErrors.CodeBadRequest, "callback could not be processed")
	}

	resp := codec.ParseResponse(plaintext)
	span.SetAttributes(attribute.String("payment.app_ref_no", resp.AppRefNo))

	if resp.Checksum == "" || !crypto.VerifyChecksum(codec.StripChecksum(plaintext), resp.Checksum) {
		s.metrics.RecordCallback("checksum_mismatch", time.Since(started).Seconds())
		s.audit.Record(ctx, audit.ActionPaymentCallbackRejected, resp.AppRefNo, "callback checksum mismatch")
		s.logger.WarnContext(ctx, "callback checksum mismatch", "appRefNo", resp.AppRefNo)
		return nil, dErrors.New(dErrors.CodeBadRequest, "callback integrity check failed")
	}

	txn, err := s.ledger.UpdateOnCallback(ctx, resp.AppRefNo, resp)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeNotFound) {
			s.metrics.RecordCallback("unknown_ref", time.Since(started).Seconds())
			s.audit.Record(ctx, audit.ActionPaymentCallbackRejected, resp.AppRefNo, "no matching payment attempt")
			// Kept for manual reconciliation against the treasury scroll.
			s.logger.ErrorContext(ctx, "callback for unknown appRefNo",
				"appRefNo", resp.AppRefNo, "echTxnId", resp.EchTxnID, "statusCd", resp.StatusCd)
		}
		return nil, err
	}

	result := &CallbackResult{
		Success:  txn.Status == models.TxnSuccess,
		AppRefNo: txn.AppRefNo,
		EchTxnID: txn.EchTxnID,
	}

	if !result.Success {
		s.metrics.RecordCallback("failed", time.Since(started).Seconds())
		s.audit.Record(ctx, audit.ActionPaymentCallbackFailed, txn.AppRefNo,
			fmt.Sprintf("gateway status %s (cd=%s)", txn.GatewayStatus, txn.StatusCd))
		s.logger.InfoContext(ctx, "payment failed at gateway",
			"appRefNo", txn.AppRefNo, "status", txn.GatewayStatus, "statusCd", txn.StatusCd)
		result.ApplicationNumber = txn.DeptRefNo
		return result, nil
	}

	app, err := s.approveApplication(ctx, txn)
	if err != nil {
		// The attempt is already success in the ledger; a crash or conflict
		// here leaves a success row without an approved application, which is
		// exactly what manual reconciliation watches for.
		s.metrics.RecordCallback("approve_failed", time.Since(started).Seconds())
		s.logger.ErrorContext(ctx, "payment succeeded but approval failed",
			"appRefNo", txn.AppRefNo, "application", txn.ApplicationID, "error", err)
		return nil, err
	}
	result.ApplicationNumber = app.ApplicationNumber

	s.metrics.RecordCallback("success", time.Since(started).Seconds())
	s.audit.Record(ctx, audit.ActionPaymentCallbackSuccess, txn.AppRefNo,
		fmt.Sprintf("himgrn=%s application=%s", txn.EchTxnID, app.ApplicationNumber))
	s.logger.InfoContext(ctx, "payment confirmed",
		"appRefNo", txn.AppRefNo, "himgrn", txn.EchTxnID, "application", app.ApplicationNumber)
	return result, nil
}

// approveApplication mints the certificate and moves the application to
// approved. Both steps are idempotent against duplicate callbacks: an existing
// certificate is kept, an already-approved application is left alone.
func (s *Service) approveApplication(ctx context.Context, txn *models.Transaction) (*appmodels.Application, error) {
	app, err := s.apps.FindByID(ctx, txn.ApplicationID)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to load application for approval", err)
	}
	if app.Status == appmodels.StatusApproved {
		return app, nil
	}
	if err := appmodels.CanTransition(app.Status, appmodels.StatusApproved, appmodels.RoleSystem); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeStateConflict, "application cannot be approved", err)
	}

	now := s.now().UTC()
	cert := &appmodels.Certificate{
		ID:                uuid.NewString(),
		ApplicationID:     app.ID,
		CertificateNumber: fmt.Sprintf("CERT-%d-%s", now.Year(), app.ApplicationNumber),
		IssuedDate:        now,
		ValidUpto:         now.Add(certificateValidity),
	}
	if err := s.apps.SaveCertificate(ctx, cert); err != nil && !errors.Is(err, sentinel.ErrConflict) {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to issue certificate", err)
	} else if err == nil {
		s.audit.Record(ctx, audit.ActionCertificateIssued, app.ApplicationNumber,
			fmt.Sprintf("certificate=%s validUpto=%s", cert.CertificateNumber, cert.ValidUpto.Format("2006-01-02")))
	}

	app.Status = appmodels.StatusApproved
	app.ApprovedAt = &now
	app.UpdatedAt = now
	if err := s.apps.Update(ctx, app); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to approve application", err)
	}
	return app, nil
}
