// Package service implements the homestay application workflow: creation,
// submission, officer review, inspection, and the payment-demand stage. All
// status changes flow through the transition table in the models package;
// approval itself belongs to the payment callback, not to any endpoint here.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"himstay/internal/application/models"
	"himstay/internal/audit"
	"himstay/internal/platform/middleware"
	dErrors "himstay/pkg/domain-errors"
	"himstay/pkg/platform/sentinel"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

// Store is the persistence contract for applications and certificates.
type Store interface {
	Create(ctx context.Context, app *models.Application) error
	Update(ctx context.Context, app *models.Application) error
	FindByID(ctx context.Context, id string) (*models.Application, error)
	FindByNumber(ctx context.Context, number string) (*models.Application, error)
	FindCertificateByApplication(ctx context.Context, applicationID string) (*models.Certificate, error)
}

// AuditRecorder receives the workflow audit trail.
type AuditRecorder interface {
	Record(ctx context.Context, action, subject, detail string)
}

type Service struct {
	store  Store
	audit  AuditRecorder
	logger *slog.Logger
	now    func() time.Time
}

func New(store Store, auditor AuditRecorder, logger *slog.Logger) *Service {
	return &Service{store: store, audit: auditor, logger: logger, now: time.Now}
}

// CreateRequest carries the applicant's inputs for a new registration.
type CreateRequest struct {
	PropertyName string
	District     string
}

// Create opens a new application in draft for the authenticated owner. An
// owner with a live (non-terminal) application cannot open another.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Application, error) {
	if strings.TrimSpace(req.PropertyName) == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "propertyName is required")
	}
	if strings.TrimSpace(req.District) == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "district is required")
	}
	ownerID := middleware.GetUserID(ctx)
	if ownerID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	now := s.now().UTC()
	app := &models.Application{
		OwnerID:      ownerID,
		PropertyName: strings.TrimSpace(req.PropertyName),
		District:     strings.TrimSpace(req.District),
		Status:       models.StatusDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, app); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "you already have an application in progress")
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to create application", err)
	}

	s.audit.Record(ctx, audit.ActionWorkflowTransition, app.ApplicationNumber, "created in draft")
	s.logger.InfoContext(ctx, "application created",
		"application", app.ApplicationNumber, "district", app.District)
	return app, nil
}

// Get returns one application. Applicants may only see their own; officers see
// all.
func (s *Service) Get(ctx context.Context, id string) (*models.Application, error) {
	app, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if middleware.GetRole(ctx) == models.RoleApplicant && app.OwnerID != middleware.GetUserID(ctx) {
		return nil, dErrors.New(dErrors.CodeForbidden, "not your application")
	}
	return app, nil
}

// Submit moves a draft or sent-back application into the review queue. Only
// the owner may submit.
func (s *Service) Submit(ctx context.Context, id string) (*models.Application, error) {
	app, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.OwnerID != middleware.GetUserID(ctx) {
		return nil, dErrors.New(dErrors.CodeForbidden, "only the owner may submit")
	}

	if err := s.applyTransition(ctx, app, models.StatusSubmitted, "submitted for review"); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	app.SubmittedAt = &now
	if err := s.store.Update(ctx, app); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to update application", err)
	}
	return app, nil
}

// Transition moves an application along one review edge, gated by the
// caller's role. The detail string lands in the audit trail.
func (s *Service) Transition(ctx context.Context, id string, to models.Status, detail string) (*models.Application, error) {
	app, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyTransition(ctx, app, to, detail); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, app); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to update application", err)
	}
	return app, nil
}

// InspectionOutcome records the inspector's verdict: pass clears the
// application for payment and fixes the registration fee; fail sends it back
// to the applicant or rejects it outright.
type InspectionOutcome struct {
	Passed bool
	// Fee is the assessed registration fee, required on a pass.
	Fee decimal.Decimal
	// Reject escalates a failed inspection to outright rejection instead of a
	// send-back.
	Reject bool
	Remark string
}

// RecordInspection applies an inspection outcome to an application under
// review.
func (s *Service) RecordInspection(ctx context.Context, id string, outcome InspectionOutcome) (*models.Application, error) {
	app, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	switch {
	case outcome.Passed:
		if !outcome.Fee.IsPositive() {
			return nil, dErrors.New(dErrors.CodeBadRequest, "a positive fee is required when the inspection passes")
		}
		if err := s.applyTransition(ctx, app, models.StatusVerifiedForPayment,
			"inspection passed: "+outcome.Remark); err != nil {
			return nil, err
		}
		app.TotalFee = decimal.NewNullDecimal(outcome.Fee)
	case outcome.Reject:
		if err := s.applyTransition(ctx, app, models.StatusRejected,
			"inspection failed, rejected: "+outcome.Remark); err != nil {
			return nil, err
		}
	default:
		if err := s.applyTransition(ctx, app, models.StatusRevertedToApplicant,
			"inspection failed, returned to applicant: "+outcome.Remark); err != nil {
			return nil, err
		}
	}

	if err := s.store.Update(ctx, app); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to update application", err)
	}
	return app, nil
}

// Certificate returns the issued certificate for an approved application.
func (s *Service) Certificate(ctx context.Context, id string) (*models.Certificate, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	cert, err := s.store.FindCertificateByApplication(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no certificate has been issued for this application")
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to load certificate", err)
	}
	return cert, nil
}

func (s *Service) load(ctx context.Context, id string) (*models.Application, error) {
	app, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to load application", err)
	}
	return app, nil
}

// applyTransition validates the edge against the caller's role and mutates
// the in-memory application. The caller persists.
func (s *Service) applyTransition(ctx context.Context, app *models.Application, to models.Status, detail string) error {
	role := middleware.GetRole(ctx)
	if err := models.CanTransition(app.Status, to, role); err != nil {
		return dErrors.Wrap(dErrors.CodeStateConflict, "transition not allowed", err)
	}

	from := app.Status
	app.Status = to
	app.UpdatedAt = s.now().UTC()

	s.audit.Record(ctx, audit.ActionWorkflowTransition, app.ApplicationNumber,
		fmt.Sprintf("%s -> %s: %s", from, to, detail))
	s.logger.InfoContext(ctx, "application transitioned",
		"application", app.ApplicationNumber, "from", from, "to", to, "role", role)
	return nil
}
