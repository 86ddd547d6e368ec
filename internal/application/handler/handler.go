// Package handler exposes the application workflow over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"himstay/internal/application/models"
	"himstay/internal/application/service"
	"himstay/internal/audit"
	"himstay/internal/platform/middleware"
	dErrors "himstay/pkg/domain-errors"
	"himstay/pkg/platform/httputil"
)

// Service is the slice of the workflow service the HTTP layer consumes.
type Service interface {
	Create(ctx context.Context, req service.CreateRequest) (*models.Application, error)
	Get(ctx context.Context, id string) (*models.Application, error)
	Submit(ctx context.Context, id string) (*models.Application, error)
	Transition(ctx context.Context, id string, to models.Status, detail string) (*models.Application, error)
	RecordInspection(ctx context.Context, id string, outcome service.InspectionOutcome) (*models.Application, error)
	Certificate(ctx context.Context, id string) (*models.Certificate, error)
}

// AuditLister exposes the stored audit trail for one application.
type AuditLister interface {
	ListBySubject(ctx context.Context, subject string) ([]audit.Event, error)
}

// Handler wires application endpoints to the workflow service.
type Handler struct {
	service Service
	audits  AuditLister
	logger  *slog.Logger
}

func New(svc Service, audits AuditLister, logger *slog.Logger) *Handler {
	return &Handler{service: svc, audits: audits, logger: logger}
}

// Register mounts the application endpoints. Role gating happens in the
// transition table, not in the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/applications", h.HandleCreate)
	r.Get("/applications/{id}", h.HandleGet)
	r.Get("/applications/{id}/certificate", h.HandleCertificate)
	r.Get("/applications/{id}/audit", h.HandleAuditTrail)

	r.Post("/applications/{id}/submit", h.HandleSubmit)
	r.Post("/applications/{id}/scrutinize", h.transitionTo(models.StatusUnderScrutiny, "taken up for scrutiny"))
	r.Post("/applications/{id}/forward", h.transitionTo(models.StatusForwardedToDTDO, "forwarded to DTDO"))
	r.Post("/applications/{id}/review", h.transitionTo(models.StatusDTDOReview, "under DTDO review"))
	r.Post("/applications/{id}/schedule-inspection", h.transitionTo(models.StatusInspectionScheduled, "inspection scheduled"))
	r.Post("/applications/{id}/begin-inspection", h.transitionTo(models.StatusInspectionUnderReview, "inspection under review"))
	r.Post("/applications/{id}/inspection-outcome", h.HandleInspectionOutcome)
	r.Post("/applications/{id}/demand-payment", h.transitionTo(models.StatusPaymentPending, "payment demand issued"))
	r.Post("/applications/{id}/reject", h.HandleReject)
	r.Post("/applications/{id}/send-back", h.HandleSendBack)
}

// CreateApplicationRequest is the body of POST /applications.
type CreateApplicationRequest struct {
	PropertyName string `json:"propertyName"`
	District     string `json:"district"`
}

// RemarkRequest carries an optional officer remark.
type RemarkRequest struct {
	Remark string `json:"remark"`
}

// InspectionOutcomeRequest is the body of POST /applications/{id}/inspection-outcome.
type InspectionOutcomeRequest struct {
	Passed bool   `json:"passed"`
	Fee    string `json:"fee,omitempty"`
	Reject bool   `json:"reject,omitempty"`
	Remark string `json:"remark,omitempty"`
}

// HandleCreate handles POST /applications.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[CreateApplicationRequest](w, r)
	if !ok {
		return
	}
	app, err := h.service.Create(r.Context(), service.CreateRequest{
		PropertyName: req.PropertyName,
		District:     req.District,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromApplication(app))
}

// HandleGet handles GET /applications/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	app, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromApplication(app))
}

// HandleSubmit handles POST /applications/{id}/submit.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	app, err := h.service.Submit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromApplication(app))
}

// transitionTo builds a handler that drives one fixed workflow edge.
func (h *Handler) transitionTo(to models.Status, detail string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		app, err := h.service.Transition(r.Context(), chi.URLParam(r, "id"), to, detail)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, FromApplication(app))
	}
}

// HandleInspectionOutcome handles POST /applications/{id}/inspection-outcome.
func (h *Handler) HandleInspectionOutcome(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[InspectionOutcomeRequest](w, r)
	if !ok {
		return
	}
	outcome := service.InspectionOutcome{
		Passed: req.Passed,
		Reject: req.Reject,
		Remark: req.Remark,
	}
	if req.Fee != "" {
		fee, err := parseAmount(req.Fee)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "fee is not a valid amount"))
			return
		}
		outcome.Fee = fee
	}
	app, err := h.service.RecordInspection(r.Context(), chi.URLParam(r, "id"), outcome)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromApplication(app))
}

// HandleReject handles POST /applications/{id}/reject.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[RemarkRequest](w, r)
	if !ok {
		return
	}
	app, err := h.service.Transition(r.Context(), chi.URLParam(r, "id"),
		models.StatusRejected, "rejected: "+req.Remark)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromApplication(app))
}

// HandleSendBack handles POST /applications/{id}/send-back. The target
// send-back state depends on who is sending back: dealing assistants return
// for corrections, the DTDO reverts at their stage.
func (h *Handler) HandleSendBack(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[RemarkRequest](w, r)
	if !ok {
		return
	}

	var to models.Status
	switch middleware.GetRole(r.Context()) {
	case models.RoleDealingAssistant:
		to = models.StatusSentBackForCorrections
	case models.RoleDTDO:
		to = models.StatusRevertedByDTDO
	default:
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "only reviewing officers may send back"))
		return
	}

	app, err := h.service.Transition(r.Context(), chi.URLParam(r, "id"), to, "sent back: "+req.Remark)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromApplication(app))
}

// HandleCertificate handles GET /applications/{id}/certificate.
func (h *Handler) HandleCertificate(w http.ResponseWriter, r *http.Request) {
	cert, err := h.service.Certificate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCertificate(cert))
}

// HandleAuditTrail handles GET /applications/{id}/audit. The trail is keyed
// by application number, so resolve the application first.
func (h *Handler) HandleAuditTrail(w http.ResponseWriter, r *http.Request) {
	app, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	events, err := h.audits.ListBySubject(r.Context(), app.ApplicationNumber)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(dErrors.CodeInternal, "failed to load audit trail", err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, events)
}
