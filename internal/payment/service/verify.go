package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"himstay/internal/audit"
	"himstay/internal/payment/codec"
	"himstay/internal/payment/crypto"
	"himstay/internal/payment/models"
	dErrors "himstay/pkg/domain-errors"
)

// VerificationResult is what a double verification reports back to the
// operator.
type VerificationResult struct {
	Verified    bool                `json:"verified"`
	Transaction *models.Transaction `json:"transaction"`
	Data        map[string]string   `json:"data,omitempty"`
}

// Verify asks the gateway's double-verification endpoint for the settled
// status of one attempt and reconciles the ledger with the answer. Used when
// a callback was lost or its outcome is disputed.
func (s *Service) Verify(ctx context.Context, appRefNo string) (*VerificationResult, error) {
	ctx, span := s.tracer.Start(ctx, "payment.Verify",
		trace.WithAttributes(attribute.String("payment.app_ref_no", appRefNo)))
	defer span.End()

	// The attempt must exist before we bother the gateway.
	if _, err := s.ledger.Get(ctx, appRefNo); err != nil {
		return nil, err
	}

	request := codec.BuildVerificationRequest(codec.VerificationFields{
		AppRefNo:     appRefNo,
		ServiceCode:  s.cfg.ServiceCode,
		MerchantCode: s.cfg.MerchantCode,
	})
	encData, err := s.cipher.Encrypt(codec.AppendChecksum(request, crypto.Checksum(request)))
	if err != nil {
		return nil, err
	}

	plaintext, err := s.postVerification(ctx, encData)
	if err != nil {
		s.metrics.RecordVerification("gateway_error")
		return nil, err
	}

	resp := codec.ParseResponse(plaintext)
	if resp.Checksum != "" && !crypto.VerifyChecksum(codec.StripChecksum(plaintext), resp.Checksum) {
		s.metrics.RecordVerification("checksum_mismatch")
		s.logger.WarnContext(ctx, "verification response checksum mismatch", "appRefNo", appRefNo)
		return nil, dErrors.New(dErrors.CodeBadRequest, "verification response integrity check failed")
	}

	txn, err := s.ledger.MarkVerified(ctx, appRefNo, resp)
	if err != nil {
		return nil, err
	}

	verified := txn.Status == models.TxnVerified
	outcome := "not_confirmed"
	if verified {
		outcome = "confirmed"
		s.audit.Record(ctx, audit.ActionPaymentVerified, appRefNo,
			fmt.Sprintf("himgrn=%s status=%s", resp.EchTxnID, resp.Status))
	}
	s.metrics.RecordVerification(outcome)
	s.logger.InfoContext(ctx, "double verification completed",
		"appRefNo", appRefNo, "outcome", outcome, "gatewayStatus", resp.Status)

	return &VerificationResult{Verified: verified, Transaction: txn, Data: resp.Raw}, nil
}

// postVerification performs the outbound gateway call and decrypts the reply.
// The gateway answers verification calls with the same encdata form it uses
// for callbacks.
func (s *Service) postVerification(ctx context.Context, encData string) (string, error) {
	form := url.Values{}
	form.Set("MerchantCode", s.cfg.MerchantCode)
	form.Set("encdata", encData)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.VerifyURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", dErrors.Wrap(dErrors.CodeInternal, "failed to build verification request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	httpResp, err := s.client.Do(req)
	if err != nil {
		return "", dErrors.Wrap(dErrors.CodeUnavailable, "verification gateway unreachable", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return "", dErrors.Wrap(dErrors.CodeUnavailable, "failed to read verification response", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return "", dErrors.New(dErrors.CodeUnavailable,
			fmt.Sprintf("verification gateway returned HTTP %d", httpResp.StatusCode))
	}

	return s.cipher.Decrypt(strings.TrimSpace(string(body)))
}
