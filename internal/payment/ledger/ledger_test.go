package ledger

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"himstay/internal/payment/codec"
	"himstay/internal/payment/models"
	"himstay/internal/payment/store"
	dErrors "himstay/pkg/domain-errors"
)

type LedgerSuite struct {
	suite.Suite
	ledger *Ledger
	ctx    context.Context
}

func (s *LedgerSuite) SetupTest() {
	s.ledger = New(store.NewMemoryStore())
	s.ctx = context.Background()
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) newAttempt(appRefNo, applicationID string) *models.Transaction {
	return &models.Transaction{
		ApplicationID: applicationID,
		AppRefNo:      appRefNo,
		DeptRefNo:     "HS-2026-000042",
		TotalAmount:   decimal.NewFromInt(3000),
		ActualAmount:  decimal.NewFromInt(3000),
		Head1:         "0070-01-800",
		Amount1:       decimal.NewFromInt(3000),
		DDO:           "SML00-001",
	}
}

func (s *LedgerSuite) TestRecordStampsInitiated() {
	txn := s.newAttempt("HS100", "app-1")
	s.Require().NoError(s.ledger.Record(s.ctx, txn))
	s.Equal(models.TxnInitiated, txn.Status)
	s.False(txn.CreatedAt.IsZero())

	got, err := s.ledger.Get(s.ctx, "HS100")
	s.Require().NoError(err)
	s.Equal(models.TxnInitiated, got.Status)
}

func (s *LedgerSuite) TestRecordRejectsSecondLiveAttempt() {
	s.Require().NoError(s.ledger.Record(s.ctx, s.newAttempt("HS100", "app-1")))

	err := s.ledger.Record(s.ctx, s.newAttempt("HS101", "app-1"))
	s.Require().Error(err)
	s.Equal(dErrors.CodeConflict, dErrors.CodeOf(err))
}

func (s *LedgerSuite) TestUpdateOnCallbackSuccess() {
	s.Require().NoError(s.ledger.Record(s.ctx, s.newAttempt("HS100", "app-1")))

	txn, err := s.ledger.UpdateOnCallback(s.ctx, "HS100", codec.Response{
		EchTxnID:    "HIMGRN123",
		BankCIN:     "CIN-1",
		BankName:    "SBI",
		PaymentDate: "21/08/2026",
		Status:      "Success",
		StatusCd:    "1",
		Checksum:    "abc123",
	})
	s.Require().NoError(err)
	s.Equal(models.TxnSuccess, txn.Status)
	s.Equal("HIMGRN123", txn.EchTxnID)
	s.Equal("abc123", txn.ResponseChecksum)
	s.Require().NotNil(txn.RespondedAt)
}

func (s *LedgerSuite) TestUpdateOnCallbackFailure() {
	s.Require().NoError(s.ledger.Record(s.ctx, s.newAttempt("HS100", "app-1")))

	txn, err := s.ledger.UpdateOnCallback(s.ctx, "HS100", codec.Response{
		Status:   "Failure",
		StatusCd: "0",
	})
	s.Require().NoError(err)
	s.Equal(models.TxnFailed, txn.Status)
	s.Require().NotNil(txn.RespondedAt)
}

func (s *LedgerSuite) TestUpdateOnCallbackUnknownRefNo() {
	_, err := s.ledger.UpdateOnCallback(s.ctx, "HS999", codec.Response{StatusCd: "1"})
	s.Require().Error(err)
	s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func (s *LedgerSuite) TestMarkVerifiedPromotesSuccess() {
	s.Require().NoError(s.ledger.Record(s.ctx, s.newAttempt("HS100", "app-1")))
	_, err := s.ledger.UpdateOnCallback(s.ctx, "HS100", codec.Response{StatusCd: "1", EchTxnID: "HIMGRN123"})
	s.Require().NoError(err)

	txn, err := s.ledger.MarkVerified(s.ctx, "HS100", codec.Response{StatusCd: "1", EchTxnID: "HIMGRN123"})
	s.Require().NoError(err)
	s.Equal(models.TxnVerified, txn.Status)
	s.Require().NotNil(txn.VerifiedAt)
}

func (s *LedgerSuite) TestMarkVerifiedFillsDetailAfterLostCallback() {
	// Reconciliation can run before the callback ever arrives.
	s.Require().NoError(s.ledger.Record(s.ctx, s.newAttempt("HS100", "app-1")))

	txn, err := s.ledger.MarkVerified(s.ctx, "HS100", codec.Response{
		StatusCd: "1",
		Status:   "Success",
		EchTxnID: "HIMGRN123",
	})
	s.Require().NoError(err)
	s.Equal(models.TxnVerified, txn.Status)
	s.Equal("HIMGRN123", txn.EchTxnID)
}

func (s *LedgerSuite) TestMarkVerifiedNonConfirmingLeavesRowAlone() {
	s.Require().NoError(s.ledger.Record(s.ctx, s.newAttempt("HS100", "app-1")))
	_, err := s.ledger.UpdateOnCallback(s.ctx, "HS100", codec.Response{StatusCd: "1"})
	s.Require().NoError(err)

	txn, err := s.ledger.MarkVerified(s.ctx, "HS100", codec.Response{StatusCd: "0", Status: "Failure"})
	s.Require().NoError(err)
	s.Equal(models.TxnSuccess, txn.Status)
	s.Nil(txn.VerifiedAt)
}

func (s *LedgerSuite) TestResetStalledForcesFailure() {
	s.Require().NoError(s.ledger.Record(s.ctx, s.newAttempt("HS100", "app-1")))

	txn, err := s.ledger.ResetStalled(s.ctx, "app-1")
	s.Require().NoError(err)
	s.Equal(models.TxnFailed, txn.Status)
	s.Equal(models.CancelledByApplicant, txn.GatewayStatus)
	s.Require().NotNil(txn.RespondedAt)

	// The slot is free again.
	s.Require().NoError(s.ledger.Record(s.ctx, s.newAttempt("HS101", "app-1")))
}

func (s *LedgerSuite) TestResetStalledRefusesTerminal() {
	s.Require().NoError(s.ledger.Record(s.ctx, s.newAttempt("HS100", "app-1")))
	_, err := s.ledger.UpdateOnCallback(s.ctx, "HS100", codec.Response{StatusCd: "1"})
	s.Require().NoError(err)

	_, err = s.ledger.ResetStalled(s.ctx, "app-1")
	s.Require().Error(err)
	s.Equal(dErrors.CodeStateConflict, dErrors.CodeOf(err))
}

func (s *LedgerSuite) TestResetStalledWithNoAttempts() {
	_, err := s.ledger.ResetStalled(s.ctx, "app-none")
	s.Require().Error(err)
	s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func (s *LedgerSuite) TestListFiltersByStatus() {
	s.Require().NoError(s.ledger.Record(s.ctx, s.newAttempt("HS100", "app-1")))
	_, err := s.ledger.UpdateOnCallback(s.ctx, "HS100", codec.Response{StatusCd: "0"})
	s.Require().NoError(err)
	s.Require().NoError(s.ledger.Record(s.ctx, s.newAttempt("HS101", "app-1")))

	failed, err := s.ledger.List(s.ctx, models.ListFilter{Status: models.TxnFailed})
	s.Require().NoError(err)
	s.Require().Len(failed, 1)
	s.Equal("HS100", failed[0].AppRefNo)
}
