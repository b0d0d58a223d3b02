// Package store provides persistent implementations of the mint request
// registry.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/randworks/lottery_token/internal/lottery"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements lottery.Store backed by PostgreSQL. Nonces and
// amounts are 256-bit values stored as NUMERIC(78,0).
type PostgresStore struct {
	db *sqlx.DB
}

var _ lottery.Store = (*PostgresStore)(nil)

// NewPostgresStore opens a connection pool and runs pending migrations.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromDB wraps an existing handle without running migrations.
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: sqlx.NewDb(db, "postgres")}
}

func runMigrations(db *sql.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) CreateRequest(ctx context.Context, req lottery.PendingRequest) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mint_requests (nonce, recipient, status, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (nonce) DO UPDATE
		SET recipient = EXCLUDED.recipient, status = EXCLUDED.status,
		    created_at = EXCLUDED.created_at, amount = NULL,
		    last_error = '', fulfilled_at = NULL
	`, req.Nonce.String(), req.Recipient.Hex(), string(req.Status), req.CreatedAt.UTC())
	return err
}

func (s *PostgresStore) GetRequest(ctx context.Context, nonce *big.Int) (lottery.PendingRequest, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT nonce, recipient, status, amount, last_error, created_at, fulfilled_at
		FROM mint_requests
		WHERE nonce = $1
	`, nonce.String())

	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return lottery.PendingRequest{}, fmt.Errorf("%w: %s", lottery.ErrUnknownNonce, nonce)
	}
	return req, err
}

func (s *PostgresStore) MarkFulfilled(ctx context.Context, nonce *big.Int, amount *big.Int) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE mint_requests
		SET status = $2, amount = $3, last_error = '', fulfilled_at = $4
		WHERE nonce = $1
	`, nonce.String(), string(lottery.StatusFulfilled), amount.String(), time.Now().UTC())
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("%w: %s", lottery.ErrUnknownNonce, nonce)
	}
	return nil
}

func (s *PostgresStore) RecordMintFailure(ctx context.Context, nonce *big.Int, cause string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE mint_requests
		SET last_error = $2
		WHERE nonce = $1
	`, nonce.String(), cause)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("%w: %s", lottery.ErrUnknownNonce, nonce)
	}
	return nil
}

func (s *PostgresStore) ListByStatus(ctx context.Context, status lottery.RequestStatus, limit int) ([]lottery.PendingRequest, error) {
	query := `
		SELECT nonce, recipient, status, amount, last_error, created_at, fulfilled_at
		FROM mint_requests
		WHERE status = $1
		ORDER BY created_at
	`
	args := []interface{}{string(status)}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []lottery.PendingRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, req)
	}
	return result, rows.Err()
}

func (s *PostgresStore) Stats(ctx context.Context) (lottery.Stats, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = $1),
		       COUNT(*) FILTER (WHERE status = $2)
		FROM mint_requests
	`, string(lottery.StatusPending), string(lottery.StatusFulfilled))

	var stats lottery.Stats
	if err := row.Scan(&stats.TotalRequests, &stats.PendingRequests, &stats.FulfilledRequests); err != nil {
		return lottery.Stats{}, err
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(row rowScanner) (lottery.PendingRequest, error) {
	var (
		req         lottery.PendingRequest
		nonceStr    string
		recipient   string
		status      string
		amount      sql.NullString
		lastError   sql.NullString
		fulfilledAt sql.NullTime
	)
	if err := row.Scan(&nonceStr, &recipient, &status, &amount, &lastError, &req.CreatedAt, &fulfilledAt); err != nil {
		return lottery.PendingRequest{}, err
	}

	nonce, ok := new(big.Int).SetString(nonceStr, 10)
	if !ok {
		return lottery.PendingRequest{}, fmt.Errorf("bad nonce value %q", nonceStr)
	}
	req.Nonce = nonce
	req.Recipient = common.HexToAddress(recipient)
	req.Status = lottery.RequestStatus(status)

	if amount.Valid && amount.String != "" {
		v, ok := new(big.Int).SetString(amount.String, 10)
		if !ok {
			return lottery.PendingRequest{}, fmt.Errorf("bad amount value %q", amount.String)
		}
		req.Amount = v
	}
	if lastError.Valid {
		req.LastError = lastError.String
	}
	if fulfilledAt.Valid {
		req.FulfilledAt = fulfilledAt.Time.UTC()
	}
	req.CreatedAt = req.CreatedAt.UTC()
	return req, nil
}
