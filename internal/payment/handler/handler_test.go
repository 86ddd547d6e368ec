package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	appmodels "himstay/internal/application/models"
	appstore "himstay/internal/application/store"
	"himstay/internal/payment/crypto"
	"himstay/internal/payment/ledger"
	"himstay/internal/payment/lock"
	"himstay/internal/payment/service"
	txnstore "himstay/internal/payment/store"
	"himstay/internal/platform/config"
)

type noopAudit struct{}

func (noopAudit) Record(context.Context, string, string, string) {}

// HandlerSuite runs the payment endpoints against real in-memory components.
type HandlerSuite struct {
	suite.Suite
	router http.Handler
	cipher *crypto.Adapter
	apps   *appstore.MemoryStore
	ctx    context.Context
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	keyPath := filepath.Join(s.T().TempDir(), "himkosh.key")
	s.Require().NoError(os.WriteFile(keyPath, []byte("0123456789abcdef"), 0o600))

	s.ctx = context.Background()
	s.cipher = crypto.New(crypto.NewKeyProvider(keyPath))
	s.apps = appstore.NewMemoryStore()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Gateway{
		PaymentURL:   "https://gateway.example/entry",
		VerifyURL:    "https://gateway.example/verify",
		MerchantCode: "HIMSTAY_DEV",
		DeptID:       "TSM",
		ServiceCode:  "HOMESTAY_REG",
		DefaultDDO:   "SML00-001",
		TenderBy:     "Department of Tourism",
	}
	svc := service.New(cfg, "https://portal.example/payment/callback",
		ledger.New(txnstore.NewMemoryStore()), s.apps, s.cipher,
		lock.NewMemoryLocker(), nil, noopAudit{}, nil, logger)

	h := New(svc, "https://portal.example", logger)
	r := chi.NewRouter()
	h.Register(r)
	h.RegisterPublic(r)
	s.router = r
}

func (s *HandlerSuite) newEligibleApplication() *appmodels.Application {
	app := &appmodels.Application{
		OwnerID:  "owner-1",
		District: "Mandi",
		Status:   appmodels.StatusVerifiedForPayment,
		TotalFee: decimal.NewNullDecimal(decimal.NewFromInt(3000)),
	}
	s.Require().NoError(s.apps.Create(s.ctx, app))
	return app
}

func (s *HandlerSuite) postJSON(path string, body any) *httptest.ResponseRecorder {
	raw, err := json.Marshal(body)
	s.Require().NoError(err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *HandlerSuite) initiate(applicationID string) map[string]any {
	w := s.postJSON("/payment/initiate", map[string]string{"applicationId": applicationID})
	s.Require().Equal(http.StatusOK, w.Code)
	var body map[string]any
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&body))
	return body
}

func (s *HandlerSuite) TestInitiateReturnsGatewayPayload() {
	app := s.newEligibleApplication()

	body := s.initiate(app.ID)
	s.Equal("https://gateway.example/entry", body["paymentUrl"])
	s.Equal("HIMSTAY_DEV", body["merchantCode"])
	s.NotEmpty(body["encdata"])
	s.NotEmpty(body["appRefNo"])
	s.Equal(false, body["isTestMode"])
}

func (s *HandlerSuite) TestInitiateValidation() {
	w := s.postJSON("/payment/initiate", map[string]string{})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.postJSON("/payment/initiate", map[string]string{"applicationId": "no-such-app"})
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlerSuite) TestInitiateConflictOnIneligibleStatus() {
	app := &appmodels.Application{
		OwnerID:  "owner-2",
		District: "Mandi",
		Status:   appmodels.StatusDraft,
		TotalFee: decimal.NewNullDecimal(decimal.NewFromInt(3000)),
	}
	s.Require().NoError(s.apps.Create(s.ctx, app))

	w := s.postJSON("/payment/initiate", map[string]string{"applicationId": app.ID})
	s.Equal(http.StatusConflict, w.Code)
}

func (s *HandlerSuite) callbackForm(appRefNo, deptRefNo, statusCd string) *httptest.ResponseRecorder {
	text := strings.Join([]string{
		"AppRefNo=" + appRefNo,
		"DeptRefNo=" + deptRefNo,
		"EchTxnId=HIMGRN777",
		"Status=Success",
		"StatusCd=" + statusCd,
	}, "|")
	enc, err := s.cipher.Encrypt(text + "|checkSum=" + crypto.Checksum(text))
	s.Require().NoError(err)

	form := url.Values{}
	form.Set("encdata", enc)
	req := httptest.NewRequest(http.MethodPost, "/payment/callback", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *HandlerSuite) TestCallbackSuccessRedirectsToPortal() {
	app := s.newEligibleApplication()
	body := s.initiate(app.ID)
	appRefNo := body["appRefNo"].(string)

	w := s.callbackForm(appRefNo, app.ApplicationNumber, "1")
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Header().Get("Content-Type"), "text/html")
	page := w.Body.String()
	s.Contains(page, "/applications/"+app.ApplicationNumber+"?payment=success")
	s.Contains(page, "himgrn=HIMGRN777")

	updated, err := s.apps.FindByID(s.ctx, app.ID)
	s.Require().NoError(err)
	s.Equal(appmodels.StatusApproved, updated.Status)
}

func (s *HandlerSuite) TestCallbackUnknownAttemptStillRedirects() {
	w := s.callbackForm("HS00000000000000000", "HS-2026-000099", "1")
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "payment=failed")
}

func (s *HandlerSuite) TestCallbackMissingEncdata() {
	req := httptest.NewRequest(http.MethodPost, "/payment/callback", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerSuite) TestGetAndListTransactions() {
	app := s.newEligibleApplication()
	body := s.initiate(app.ID)
	appRefNo := body["appRefNo"].(string)

	req := httptest.NewRequest(http.MethodGet, "/payment/transaction/"+appRefNo, nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Require().Equal(http.StatusOK, w.Code)
	var txn TransactionResponse
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&txn))
	s.Equal(appRefNo, txn.AppRefNo)
	s.Equal("initiated", txn.Status)

	req = httptest.NewRequest(http.MethodGet, "/payment/transactions?applicationId="+app.ID, nil)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Require().Equal(http.StatusOK, w.Code)
	var list []TransactionResponse
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&list))
	s.Len(list, 1)
}

func (s *HandlerSuite) TestGetTransactionNotFound() {
	req := httptest.NewRequest(http.MethodGet, "/payment/transaction/HS-missing", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlerSuite) TestResetStalledAttempt() {
	app := s.newEligibleApplication()
	s.initiate(app.ID)

	w := s.postJSON("/payment/application/"+app.ID+"/reset", map[string]string{})
	s.Require().Equal(http.StatusOK, w.Code)
	var txn TransactionResponse
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&txn))
	s.Equal("failed", txn.Status)
	s.Equal("CANCELLED_BY_APPLICANT", txn.GatewayStatus)

	// A second reset finds only the terminal attempt.
	w = s.postJSON("/payment/application/"+app.ID+"/reset", map[string]string{})
	s.Equal(http.StatusConflict, w.Code)
}
