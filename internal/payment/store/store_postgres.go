package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"himstay/internal/payment/models"
	"himstay/pkg/platform/sentinel"
)

// PostgresStore persists payment attempts. The "one non-terminal transaction
// per application" invariant is enforced by a unique partial index
// (see migrations/0001_init.sql), so concurrent initiations race safely at the
// database rather than in application code.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const txnColumns = `application_id, app_ref_no, dept_ref_no, total_amount, actual_amount, test_mode,
	head1, amount1, head2, amount2, head3, amount3, head4, amount4, ddo,
	encrypted_request, request_checksum,
	ech_txn_id, bank_cin, bank_name, payment_date, gateway_status, status_cd, response_checksum,
	status, failure_reason, created_at, responded_at, verified_at`

func (s *PostgresStore) Create(ctx context.Context, txn *models.Transaction) error {
	query := `
		INSERT INTO payment_transactions (` + txnColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29)
		RETURNING id`
	err := s.db.QueryRowContext(ctx, query,
		txn.ApplicationID, txn.AppRefNo, txn.DeptRefNo, txn.TotalAmount, txn.ActualAmount, txn.TestMode,
		txn.Head1, txn.Amount1, txn.Head2, txn.Amount2, txn.Head3, txn.Amount3, txn.Head4, txn.Amount4, txn.DDO,
		txn.EncryptedRequest, txn.RequestChecksum,
		txn.EchTxnID, txn.BankCIN, txn.BankName, txn.PaymentDate, txn.GatewayStatus, txn.StatusCd, txn.ResponseChecksum,
		txn.Status, txn.FailureReason, txn.CreatedAt, txn.RespondedAt, txn.VerifiedAt,
	).Scan(&txn.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert payment transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, txn *models.Transaction) error {
	query := `
		UPDATE payment_transactions SET
			ech_txn_id = $2, bank_cin = $3, bank_name = $4, payment_date = $5,
			gateway_status = $6, status_cd = $7, response_checksum = $8,
			status = $9, failure_reason = $10, responded_at = $11, verified_at = $12
		WHERE app_ref_no = $1`
	res, err := s.db.ExecContext(ctx, query,
		txn.AppRefNo,
		txn.EchTxnID, txn.BankCIN, txn.BankName, txn.PaymentDate,
		txn.GatewayStatus, txn.StatusCd, txn.ResponseChecksum,
		txn.Status, txn.FailureReason, txn.RespondedAt, txn.VerifiedAt,
	)
	if err != nil {
		return fmt.Errorf("update payment transaction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update payment transaction: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByAppRefNo(ctx context.Context, appRefNo string) (*models.Transaction, error) {
	query := `SELECT id, ` + txnColumns + ` FROM payment_transactions WHERE app_ref_no = $1`
	txn, err := scanTransaction(s.db.QueryRowContext(ctx, query, appRefNo))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find payment transaction: %w", err)
	}
	return txn, nil
}

func (s *PostgresStore) FindLatestByApplication(ctx context.Context, applicationID string) (*models.Transaction, error) {
	query := `SELECT id, ` + txnColumns + ` FROM payment_transactions
		WHERE application_id = $1 ORDER BY created_at DESC LIMIT 1`
	txn, err := scanTransaction(s.db.QueryRowContext(ctx, query, applicationID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find latest payment transaction: %w", err)
	}
	return txn, nil
}

func (s *PostgresStore) List(ctx context.Context, filter models.ListFilter) ([]*models.Transaction, error) {
	query := `SELECT id, ` + txnColumns + ` FROM payment_transactions
		WHERE ($1 = '' OR application_id = $1)
		  AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, filter.ApplicationID, string(filter.Status))
	if err != nil {
		return nil, fmt.Errorf("list payment transactions: %w", err)
	}
	defer rows.Close()

	var out []*models.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment transaction: %w", err)
		}
		out = append(out, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list payment transactions: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var txn models.Transaction
	err := row.Scan(
		&txn.ID,
		&txn.ApplicationID, &txn.AppRefNo, &txn.DeptRefNo, &txn.TotalAmount, &txn.ActualAmount, &txn.TestMode,
		&txn.Head1, &txn.Amount1, &txn.Head2, &txn.Amount2, &txn.Head3, &txn.Amount3, &txn.Head4, &txn.Amount4, &txn.DDO,
		&txn.EncryptedRequest, &txn.RequestChecksum,
		&txn.EchTxnID, &txn.BankCIN, &txn.BankName, &txn.PaymentDate, &txn.GatewayStatus, &txn.StatusCd, &txn.ResponseChecksum,
		&txn.Status, &txn.FailureReason, &txn.CreatedAt, &txn.RespondedAt, &txn.VerifiedAt,
	)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
