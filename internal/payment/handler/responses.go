package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"himstay/internal/payment/models"
)

// TransactionResponse is the wire shape of one payment attempt.
type TransactionResponse struct {
	AppRefNo      string          `json:"appRefNo"`
	ApplicationID string          `json:"applicationId"`
	DeptRefNo     string          `json:"deptRefNo"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	ActualAmount  decimal.Decimal `json:"actualAmount"`
	TestMode      bool            `json:"isTestMode"`
	DDO           string          `json:"ddo"`
	Status        string          `json:"status"`
	GatewayStatus string          `json:"gatewayStatus,omitempty"`
	EchTxnID      string          `json:"echTxnId,omitempty"`
	BankCIN       string          `json:"bankCIN,omitempty"`
	BankName      string          `json:"bankName,omitempty"`
	PaymentDate   string          `json:"paymentDate,omitempty"`
	FailureReason string          `json:"failureReason,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	RespondedAt   *time.Time      `json:"respondedAt,omitempty"`
	VerifiedAt    *time.Time      `json:"verifiedAt,omitempty"`
}

// VerificationResponse is the wire shape of a double-verification outcome.
type VerificationResponse struct {
	Verified    bool                `json:"verified"`
	Transaction TransactionResponse `json:"transaction"`
	Data        map[string]string   `json:"data,omitempty"`
}

// FromTransaction maps a ledger row to its wire shape. The encrypted request
// and checksums stay internal.
func FromTransaction(txn *models.Transaction) TransactionResponse {
	return TransactionResponse{
		AppRefNo:      txn.AppRefNo,
		ApplicationID: txn.ApplicationID,
		DeptRefNo:     txn.DeptRefNo,
		TotalAmount:   txn.TotalAmount,
		ActualAmount:  txn.ActualAmount,
		TestMode:      txn.TestMode,
		DDO:           txn.DDO,
		Status:        string(txn.Status),
		GatewayStatus: txn.GatewayStatus,
		EchTxnID:      txn.EchTxnID,
		BankCIN:       txn.BankCIN,
		BankName:      txn.BankName,
		PaymentDate:   txn.PaymentDate,
		FailureReason: txn.FailureReason,
		CreatedAt:     txn.CreatedAt,
		RespondedAt:   txn.RespondedAt,
		VerifiedAt:    txn.VerifiedAt,
	}
}
