// Package service orchestrates the HimKosh gateway integration: building and
// encrypting outbound payment requests, handling callbacks, and double
// verification of settled transactions.
package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	appmodels "himstay/internal/application/models"
	"himstay/internal/payment/crypto"
	"himstay/internal/payment/ledger"
	"himstay/internal/payment/lock"
	"himstay/internal/payment/metrics"
	"himstay/internal/platform/config"
)

// initiationLockTTL bounds how long a crashed initiation can block retries.
const initiationLockTTL = 30 * time.Second

// registrationFeeHead is the budget head registration fees are credited to.
const registrationFeeHead = "0070-01-800"

// ApplicationStore is the slice of the application persistence layer the
// payment core needs.
type ApplicationStore interface {
	FindByID(ctx context.Context, id string) (*appmodels.Application, error)
	FindByNumber(ctx context.Context, number string) (*appmodels.Application, error)
	Update(ctx context.Context, app *appmodels.Application) error
	SaveCertificate(ctx context.Context, cert *appmodels.Certificate) error
	FindCertificateByApplication(ctx context.Context, applicationID string) (*appmodels.Certificate, error)
}

// AuditRecorder receives the audit trail of every payment event.
type AuditRecorder interface {
	Record(ctx context.Context, action, subject, detail string)
}

// Service wires the payment components together behind the portal endpoints.
type Service struct {
	cfg       config.Gateway
	returnURL string

	ledger  *ledger.Ledger
	apps    ApplicationStore
	cipher  *crypto.Adapter
	locker  lock.Locker
	metrics *metrics.Metrics
	audit   AuditRecorder
	client  *http.Client
	logger  *slog.Logger
	tracer  trace.Tracer

	now func() time.Time
}

// New builds the payment service. returnURL is the absolute portal URL the
// gateway posts callbacks to; client is used for outbound verification calls
// and must carry its own timeout.
func New(
	cfg config.Gateway,
	returnURL string,
	txnLedger *ledger.Ledger,
	apps ApplicationStore,
	cipher *crypto.Adapter,
	locker lock.Locker,
	m *metrics.Metrics,
	auditor AuditRecorder,
	client *http.Client,
	logger *slog.Logger,
) *Service {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Service{
		cfg:       cfg,
		returnURL: returnURL,
		ledger:    txnLedger,
		apps:      apps,
		cipher:    cipher,
		locker:    locker,
		metrics:   m,
		audit:     auditor,
		client:    client,
		logger:    logger,
		tracer:    otel.Tracer("himstay/payment"),
		now:       time.Now,
	}
}

// newAppRefNo generates a unique attempt identifier: "HS" + millisecond
// timestamp + 4 random hex characters, 19 characters total (the gateway field
// is capped at 21).
func (s *Service) newAppRefNo() string {
	var suffix [2]byte
	_, _ = rand.Read(suffix[:])
	return fmt.Sprintf("HS%d%02x%02x", s.now().UnixMilli(), suffix[0], suffix[1])
}
