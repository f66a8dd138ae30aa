package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"scanbo/internal/hospital/models"
	id "scanbo/pkg/domain"
	"scanbo/pkg/platform/sentinel"
	txcontext "scanbo/pkg/platform/tx"
)

const uniqueViolation = "23505"

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore persists hospitals in the hospitals table. It joins the
// transaction carried in ctx when there is one.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Contains(ctx context.Context, accountID id.AccountID) (bool, error) {
	var exists bool
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM hospitals WHERE account_id = $1)`,
		accountID.String(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check hospital: %w", err)
	}
	return exists, nil
}

// Insert never overwrites: a conflicting row leaves the table unchanged and
// reports sentinel.ErrAlreadyUsed.
func (s *PostgresStore) Insert(ctx context.Context, hospital *models.Hospital) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO hospitals (account_id, name, location, registered_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id) DO NOTHING
	`, hospital.AccountID.String(), hospital.Name.Bytes(), hospital.Location.Bytes(), hospital.RegisteredAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert hospital: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert hospital rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, accountID id.AccountID) (*models.Hospital, error) {
	var (
		name, location []byte
		registeredAt   time.Time
	)
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT name, location, registered_at FROM hospitals WHERE account_id = $1`,
		accountID.String(),
	).Scan(&name, &location, &registeredAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find hospital: %w", err)
	}
	return &models.Hospital{
		AccountID:    accountID,
		Name:         models.RestoreBoundedBytes(name),
		Location:     models.RestoreBoundedBytes(location),
		RegisteredAt: registeredAt,
	}, nil
}

// isUniqueViolation recognises 23505 from either registered driver.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	return false
}
