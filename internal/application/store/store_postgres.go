package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"himstay/internal/application/models"
	"himstay/pkg/platform/sentinel"
)

// PostgresStore persists applications and certificates. The one-live-
// application-per-owner rule rides on a unique partial index, so concurrent
// creates resolve at the database.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, app *models.Application) error {
	query := `
		INSERT INTO applications
			(application_number, owner_id, property_name, district, status, total_fee, created_at, updated_at)
		VALUES
			('HS-' || EXTRACT(YEAR FROM NOW())::text || '-' || LPAD(nextval('application_number_seq')::text, 6, '0'),
			 $1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, application_number, created_at, updated_at`
	err := s.db.QueryRowContext(ctx, query,
		app.OwnerID, app.PropertyName, app.District, app.Status, nullDecimal(app),
	).Scan(&app.ID, &app.ApplicationNumber, &app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, app *models.Application) error {
	query := `
		UPDATE applications SET
			property_name = $2, district = $3, status = $4, total_fee = $5,
			submitted_at = $6, approved_at = $7, updated_at = NOW()
		WHERE id = $1`
	res, err := s.db.ExecContext(ctx, query,
		app.ID, app.PropertyName, app.District, app.Status, nullDecimal(app),
		app.SubmittedAt, app.ApprovedAt,
	)
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

const appColumns = `id, application_number, owner_id, property_name, district, status,
	total_fee, submitted_at, approved_at, created_at, updated_at`

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.Application, error) {
	return s.findOne(ctx, `SELECT `+appColumns+` FROM applications WHERE id = $1`, id)
}

func (s *PostgresStore) FindByNumber(ctx context.Context, number string) (*models.Application, error) {
	return s.findOne(ctx, `SELECT `+appColumns+` FROM applications WHERE application_number = $1`, number)
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*models.Application, error) {
	var app models.Application
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&app.ID, &app.ApplicationNumber, &app.OwnerID, &app.PropertyName, &app.District, &app.Status,
		&app.TotalFee, &app.SubmittedAt, &app.ApprovedAt, &app.CreatedAt, &app.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find application: %w", err)
	}
	return &app, nil
}

func (s *PostgresStore) SaveCertificate(ctx context.Context, cert *models.Certificate) error {
	if cert.ID == "" {
		cert.ID = uuid.NewString()
	}
	query := `
		INSERT INTO certificates (id, application_id, certificate_number, issued_date, valid_upto)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := s.db.ExecContext(ctx, query,
		cert.ID, cert.ApplicationID, cert.CertificateNumber, cert.IssuedDate, cert.ValidUpto)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert certificate: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindCertificateByApplication(ctx context.Context, applicationID string) (*models.Certificate, error) {
	query := `SELECT id, application_id, certificate_number, issued_date, valid_upto
		FROM certificates WHERE application_id = $1`
	var cert models.Certificate
	var issued, valid time.Time
	err := s.db.QueryRowContext(ctx, query, applicationID).Scan(
		&cert.ID, &cert.ApplicationID, &cert.CertificateNumber, &issued, &valid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find certificate: %w", err)
	}
	cert.IssuedDate = issued
	cert.ValidUpto = valid
	return &cert, nil
}

func nullDecimal(app *models.Application) any {
	if !app.TotalFee.Valid {
		return nil
	}
	return app.TotalFee.Decimal
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
