package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"himstay/internal/payment/models"
	"himstay/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *MemoryStore
	ctx   context.Context
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewMemoryStore()
	s.ctx = context.Background()
}

func (s *MemoryStoreSuite) newTransaction(appRefNo, applicationID string, status models.TransactionStatus) *models.Transaction {
	return &models.Transaction{
		ApplicationID: applicationID,
		AppRefNo:      appRefNo,
		DeptRefNo:     "HS-2025-000123",
		TotalAmount:   decimal.NewFromInt(9440),
		ActualAmount:  decimal.NewFromInt(9440),
		Status:        status,
		CreatedAt:     time.Now(),
	}
}

func (s *MemoryStoreSuite) TestCreateAndFind() {
	txn := s.newTransaction("HS1", "app-1", models.TxnInitiated)
	s.Require().NoError(s.store.Create(s.ctx, txn))

	found, err := s.store.FindByAppRefNo(s.ctx, "HS1")
	s.Require().NoError(err)
	s.Equal("app-1", found.ApplicationID)
	s.Equal(models.TxnInitiated, found.Status)
}

func (s *MemoryStoreSuite) TestFindUnknownRefNo() {
	_, err := s.store.FindByAppRefNo(s.ctx, "missing")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestDuplicateAppRefNoConflicts() {
	s.Require().NoError(s.store.Create(s.ctx, s.newTransaction("HS1", "app-1", models.TxnFailed)))
	err := s.store.Create(s.ctx, s.newTransaction("HS1", "app-2", models.TxnInitiated))
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *MemoryStoreSuite) TestSecondLiveAttemptConflicts() {
	s.Require().NoError(s.store.Create(s.ctx, s.newTransaction("HS1", "app-1", models.TxnInitiated)))
	err := s.store.Create(s.ctx, s.newTransaction("HS2", "app-1", models.TxnInitiated))
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *MemoryStoreSuite) TestNewAttemptAllowedAfterTerminal() {
	first := s.newTransaction("HS1", "app-1", models.TxnInitiated)
	s.Require().NoError(s.store.Create(s.ctx, first))

	first.Status = models.TxnFailed
	s.Require().NoError(s.store.Update(s.ctx, first))

	s.Require().NoError(s.store.Create(s.ctx, s.newTransaction("HS2", "app-1", models.TxnInitiated)))
}

func (s *MemoryStoreSuite) TestFindLatestByApplication() {
	first := s.newTransaction("HS1", "app-1", models.TxnFailed)
	first.CreatedAt = time.Now().Add(-time.Hour)
	s.Require().NoError(s.store.Create(s.ctx, first))
	s.Require().NoError(s.store.Create(s.ctx, s.newTransaction("HS2", "app-1", models.TxnInitiated)))

	latest, err := s.store.FindLatestByApplication(s.ctx, "app-1")
	s.Require().NoError(err)
	s.Equal("HS2", latest.AppRefNo)

	_, err = s.store.FindLatestByApplication(s.ctx, "app-9")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestListFilters() {
	s.Require().NoError(s.store.Create(s.ctx, s.newTransaction("HS1", "app-1", models.TxnFailed)))
	s.Require().NoError(s.store.Create(s.ctx, s.newTransaction("HS2", "app-2", models.TxnSuccess)))

	all, err := s.store.List(s.ctx, models.ListFilter{})
	s.Require().NoError(err)
	s.Len(all, 2)

	failed, err := s.store.List(s.ctx, models.ListFilter{Status: models.TxnFailed})
	s.Require().NoError(err)
	s.Require().Len(failed, 1)
	s.Equal("HS1", failed[0].AppRefNo)

	byApp, err := s.store.List(s.ctx, models.ListFilter{ApplicationID: "app-2"})
	s.Require().NoError(err)
	s.Require().Len(byApp, 1)
	s.Equal("HS2", byApp[0].AppRefNo)
}

func (s *MemoryStoreSuite) TestUpdateReturnsCopyIsolation() {
	txn := s.newTransaction("HS1", "app-1", models.TxnInitiated)
	s.Require().NoError(s.store.Create(s.ctx, txn))

	found, err := s.store.FindByAppRefNo(s.ctx, "HS1")
	s.Require().NoError(err)
	found.Status = models.TxnSuccess // mutating the copy must not leak

	again, err := s.store.FindByAppRefNo(s.ctx, "HS1")
	s.Require().NoError(err)
	s.Equal(models.TxnInitiated, again.Status)
}
