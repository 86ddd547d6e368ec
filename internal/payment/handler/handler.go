// Package handler exposes the payment core over HTTP. Handlers stay thin:
// decode, delegate, translate errors.
package handler

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"himstay/internal/payment/models"
	"himstay/internal/payment/service"
	dErrors "himstay/pkg/domain-errors"
	"himstay/pkg/platform/httputil"
)

// Service is the slice of the payment service the HTTP layer consumes.
type Service interface {
	Initiate(ctx context.Context, applicationID string) (*service.InitiationResult, error)
	HandleCallback(ctx context.Context, encData string) (*service.CallbackResult, error)
	Verify(ctx context.Context, appRefNo string) (*service.VerificationResult, error)
	Reset(ctx context.Context, applicationID string) (*models.Transaction, error)
	Get(ctx context.Context, appRefNo string) (*models.Transaction, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.Transaction, error)
}

// Handler wires payment endpoints to the payment service.
type Handler struct {
	service       Service
	portalBaseURL string
	logger        *slog.Logger
}

func New(svc Service, portalBaseURL string, logger *slog.Logger) *Handler {
	return &Handler{service: svc, portalBaseURL: portalBaseURL, logger: logger}
}

// Register mounts the authenticated payment endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/payment/initiate", h.HandleInitiate)
	r.Post("/payment/verify/{appRefNo}", h.HandleVerify)
	r.Get("/payment/transactions", h.HandleListTransactions)
	r.Get("/payment/transaction/{appRefNo}", h.HandleGetTransaction)
	r.Post("/payment/application/{id}/reset", h.HandleReset)
}

// RegisterPublic mounts the gateway-facing callback. It must stay outside the
// auth chain: HimKosh posts to it directly with no portal token.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/payment/callback", h.HandleCallback)
}

// InitiateRequest is the body of POST /payment/initiate.
type InitiateRequest struct {
	ApplicationID string `json:"applicationId"`
}

// HandleInitiate handles POST /payment/initiate.
func (h *Handler) HandleInitiate(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[InitiateRequest](w, r)
	if !ok {
		return
	}
	if req.ApplicationID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "applicationId is required"))
		return
	}

	result, err := h.service.Initiate(r.Context(), req.ApplicationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleCallback handles the gateway's form POST. Whatever happens, the
// browser sitting on the gateway page gets a holding page that sends it back
// to the portal; errors surface there as a failed payment indicator.
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	encData := r.FormValue("encdata")
	if encData == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "missing encdata"))
		return
	}

	result, err := h.service.HandleCallback(r.Context(), encData)
	if err != nil {
		// The applicant's browser is mid-redirect; a JSON error would strand
		// it on the gateway. Send it home with a failure indicator.
		h.writeHoldingPage(w, "", "failed", "")
		return
	}

	outcome := "failed"
	if result.Success {
		outcome = "success"
	}
	h.writeHoldingPage(w, result.ApplicationNumber, outcome, result.EchTxnID)
}

// HandleVerify handles POST /payment/verify/{appRefNo}.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Verify(r.Context(), chi.URLParam(r, "appRefNo"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, VerificationResponse{
		Verified:    result.Verified,
		Transaction: FromTransaction(result.Transaction),
		Data:        result.Data,
	})
}

// HandleListTransactions handles GET /payment/transactions.
func (h *Handler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	filter := models.ListFilter{
		ApplicationID: r.URL.Query().Get("applicationId"),
		Status:        models.TransactionStatus(r.URL.Query().Get("status")),
	}
	txns, err := h.service.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]TransactionResponse, 0, len(txns))
	for _, txn := range txns {
		out = append(out, FromTransaction(txn))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// HandleGetTransaction handles GET /payment/transaction/{appRefNo}.
func (h *Handler) HandleGetTransaction(w http.ResponseWriter, r *http.Request) {
	txn, err := h.service.Get(r.Context(), chi.URLParam(r, "appRefNo"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromTransaction(txn))
}

// HandleReset handles POST /payment/application/{id}/reset.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	txn, err := h.service.Reset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromTransaction(txn))
}

const holdingPage = `<!DOCTYPE html>
<html>
<head>
<meta http-equiv="refresh" content="3;url=%s">
<title>Processing payment</title>
</head>
<body>
<p>Your payment is being processed. You will be redirected to the portal shortly.</p>
<p><a href="%s">Continue</a></p>
</body>
</html>`

// writeHoldingPage answers the gateway POST with an HTML page that bounces the
// applicant's browser back to the portal with the payment outcome in the URL.
func (h *Handler) writeHoldingPage(w http.ResponseWriter, applicationNumber, outcome, himgrn string) {
	target := h.portalBaseURL + "/applications/" + url.PathEscape(applicationNumber) +
		"?payment=" + outcome
	if himgrn != "" {
		target += "&himgrn=" + url.QueryEscape(himgrn)
	}
	escaped := html.EscapeString(target)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, holdingPage, escaped, escaped)
}
