// Package postgres implements the account store using PostgreSQL
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sirosfoundation/go-fiscal/internal/storage"
)

//go:embed schema.sql
var schema string

const uniqueViolation = "23505"

// Config holds PostgreSQL connection settings
type Config struct {
	URL            string
	MaxConnections int32
	ConnectTimeout time.Duration
}

// Store implements storage.AccountStore using PostgreSQL
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to PostgreSQL and applies the account schema
func NewStore(ctx context.Context, cfg *Config) (*Store, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("postgres url is required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres url: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = cfg.MaxConnections
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases the connection pool
func (s *Store) Close(ctx context.Context) error {
	s.pool.Close()
	return nil
}

// Ping checks PostgreSQL connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) CreateAccount(ctx context.Context, a *storage.Account) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO fiscal_accounts (api_key, cnpj, certificate, password, company_name, issuer, serial_number, valid_until, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.APIKey,
		a.Metadata.CNPJ,
		a.Certificate,
		a.Password,
		a.Metadata.CompanyName,
		a.Metadata.Issuer,
		a.Metadata.SerialNumber,
		a.Metadata.ValidUntil,
		a.Metadata.CreatedAt,
		a.Metadata.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: cnpj %s", storage.ErrAccountExists, a.Metadata.CNPJ)
	}
	return err
}

const selectAccount = `
SELECT api_key, cnpj, certificate, password, company_name, issuer, serial_number, valid_until, created_at, updated_at
FROM fiscal_accounts`

func (s *Store) GetAccount(ctx context.Context, apiKey string) (*storage.Account, error) {
	return scanAccount(s.pool.QueryRow(ctx, selectAccount+" WHERE api_key = $1", apiKey))
}

func (s *Store) GetAccountByCNPJ(ctx context.Context, cnpj string) (*storage.Account, error) {
	return scanAccount(s.pool.QueryRow(ctx, selectAccount+" WHERE cnpj = $1", cnpj))
}

func scanAccount(row pgx.Row) (*storage.Account, error) {
	var a storage.Account
	err := row.Scan(
		&a.APIKey,
		&a.Metadata.CNPJ,
		&a.Certificate,
		&a.Password,
		&a.Metadata.CompanyName,
		&a.Metadata.Issuer,
		&a.Metadata.SerialNumber,
		&a.Metadata.ValidUntil,
		&a.Metadata.CreatedAt,
		&a.Metadata.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) UpdateAccount(ctx context.Context, a *storage.Account) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE fiscal_accounts
SET cnpj = $2, certificate = $3, password = $4, company_name = $5, issuer = $6,
    serial_number = $7, valid_until = $8, created_at = $9, updated_at = $10
WHERE api_key = $1`,
		a.APIKey,
		a.Metadata.CNPJ,
		a.Certificate,
		a.Password,
		a.Metadata.CompanyName,
		a.Metadata.Issuer,
		a.Metadata.SerialNumber,
		a.Metadata.ValidUntil,
		a.Metadata.CreatedAt,
		a.Metadata.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: cnpj %s", storage.ErrAccountExists, a.Metadata.CNPJ)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrAccountNotFound
	}
	return nil
}

func (s *Store) DeleteAccount(ctx context.Context, apiKey string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM fiscal_accounts WHERE api_key = $1", apiKey)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrAccountNotFound
	}
	return nil
}

func (s *Store) AccountExists(ctx context.Context, apiKey string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM fiscal_accounts WHERE api_key = $1)", apiKey).Scan(&exists)
	return exists, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

var _ storage.AccountStore = (*Store)(nil)
