package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"himstay/internal/audit"
	"himstay/internal/payment/codec"
	"himstay/internal/payment/crypto"
	"himstay/internal/payment/models"
	dErrors "himstay/pkg/domain-errors"
	"himstay/pkg/platform/sentinel"
)

// InitiationResult carries everything the portal frontend needs to submit the
// applicant to the gateway payment form.
type InitiationResult struct {
	PaymentURL   string          `json:"paymentUrl"`
	MerchantCode string          `json:"merchantCode"`
	EncData      string          `json:"encdata"`
	Checksum     string          `json:"checksum"`
	AppRefNo     string          `json:"appRefNo"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	ActualAmount decimal.Decimal `json:"actualAmount"`
	TestMode     bool            `json:"isTestMode"`
	Message      string          `json:"message"`
}

// Initiate builds, encrypts and records a payment attempt for an application
// that has reached a payment-eligible state. It does not change the
// application's status; only the gateway callback does that.
func (s *Service) Initiate(ctx context.Context, applicationID string) (*InitiationResult, error) {
	ctx, span := s.tracer.Start(ctx, "payment.Initiate",
		trace.WithAttributes(attribute.String("application.id", applicationID)))
	defer span.End()

	app, err := s.apps.FindByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.RecordInitiation("not_found")
			return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to load application", err)
	}
	if !app.Status.PaymentEligible() {
		s.metrics.RecordInitiation("ineligible")
		return nil, dErrors.New(dErrors.CodeStateConflict,
			fmt.Sprintf("application is %s, payment requires verified_for_payment or payment_pending", app.Status))
	}
	if !app.TotalFee.Valid || !app.TotalFee.Decimal.IsPositive() {
		s.metrics.RecordInitiation("no_fee")
		return nil, dErrors.New(dErrors.CodeConfiguration,
			"application has no assessed fee; payment cannot be initiated")
	}

	// Serialize initiation per application. The store's one-live-attempt
	// constraint backstops this if the lock backend is degraded.
	release, err := s.locker.Acquire(ctx, app.ID, initiationLockTTL)
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			s.metrics.RecordInitiation("locked")
			return nil, dErrors.New(dErrors.CodeConflict, "a payment initiation is already in progress")
		}
		return nil, dErrors.Wrap(dErrors.CodeUnavailable, "initiation lock unavailable", err)
	}
	defer release()

	actualAmount := app.TotalFee.Decimal.Round(0)
	gatewayAmount := actualAmount
	if s.cfg.TestMode {
		gatewayAmount = decimal.NewFromInt(s.cfg.TestModeAmount)
	}

	appRefNo := s.newAppRefNo()
	ddo := s.resolveDDO(app.District)
	now := s.now().UTC()

	request := codec.BuildRequest(codec.RequestFields{
		DeptID:      s.cfg.DeptID,
		DeptRefNo:   app.ApplicationNumber,
		TotalAmount: gatewayAmount,
		TenderBy:    s.cfg.TenderBy,
		AppRefNo:    appRefNo,
		Head1:       registrationFeeHead,
		Amount1:     gatewayAmount,
		Ddo:         ddo,
		PeriodFrom:  now.Format("02/01/2006"),
		PeriodTo:    now.AddDate(1, 0, 0).Format("02/01/2006"),
		ServiceCode: s.cfg.ServiceCode,
		ReturnURL:   s.returnURL,
	})
	checksum := crypto.Checksum(request.Core)
	encData, err := s.cipher.Encrypt(codec.AppendChecksum(request.Full, checksum))
	if err != nil {
		s.metrics.RecordInitiation("encrypt_failed")
		return nil, err
	}

	txn := &models.Transaction{
		ApplicationID:    app.ID,
		AppRefNo:         appRefNo,
		DeptRefNo:        app.ApplicationNumber,
		TotalAmount:      gatewayAmount,
		ActualAmount:     actualAmount,
		TestMode:         s.cfg.TestMode,
		Head1:            registrationFeeHead,
		Amount1:          gatewayAmount,
		DDO:              ddo,
		EncryptedRequest: encData,
		RequestChecksum:  checksum,
	}
	if err := s.ledger.Record(ctx, txn); err != nil {
		s.metrics.RecordInitiation("conflict")
		return nil, err
	}

	message := "You will be redirected to HimKosh to complete the payment."
	if s.cfg.TestMode {
		message = fmt.Sprintf("TEST MODE: the gateway will charge a nominal %s; the actual fee of %s is recorded but not collected.",
			gatewayAmount, actualAmount)
	}

	s.metrics.RecordInitiation("ok")
	s.audit.Record(ctx, audit.ActionPaymentInitiated, appRefNo,
		fmt.Sprintf("application=%s amount=%s actual=%s testMode=%t", app.ApplicationNumber, gatewayAmount, actualAmount, s.cfg.TestMode))
	s.logger.InfoContext(ctx, "payment initiated",
		"appRefNo", appRefNo, "application", app.ApplicationNumber,
		"amount", gatewayAmount, "testMode", s.cfg.TestMode)

	return &InitiationResult{
		PaymentURL:   s.cfg.PaymentURL,
		MerchantCode: s.cfg.MerchantCode,
		EncData:      encData,
		Checksum:     checksum,
		AppRefNo:     appRefNo,
		TotalAmount:  gatewayAmount,
		ActualAmount: actualAmount,
		TestMode:     s.cfg.TestMode,
		Message:      message,
	}, nil
}

// Reset cancels a stalled (non-terminal) attempt so the applicant can retry
// after abandoning the gateway session.
func (s *Service) Reset(ctx context.Context, applicationID string) (*models.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "payment.Reset",
		trace.WithAttributes(attribute.String("application.id", applicationID)))
	defer span.End()

	txn, err := s.ledger.ResetStalled(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.ActionPaymentReset, txn.AppRefNo, "stalled attempt cancelled by applicant")
	s.logger.InfoContext(ctx, "payment attempt reset", "appRefNo", txn.AppRefNo, "application", applicationID)
	return txn, nil
}

// Get returns one attempt by appRefNo.
func (s *Service) Get(ctx context.Context, appRefNo string) (*models.Transaction, error) {
	return s.ledger.Get(ctx, appRefNo)
}

// List returns attempts matching the filter, newest first.
func (s *Service) List(ctx context.Context, filter models.ListFilter) ([]*models.Transaction, error) {
	return s.ledger.List(ctx, filter)
}
