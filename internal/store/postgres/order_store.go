// Package postgres provides a Postgres-backed OrderStore.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forgemedia/portal/internal/portal"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for order rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// DB is the subset of pgxpool.Pool the store uses; pgxmock satisfies it.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// OrderStore persists orders in Postgres. Update runs SELECT ... FOR UPDATE,
// applies the mutation, and writes back inside one transaction, so concurrent
// transitions for the same order serialize on the row lock.
//
// Expected schema:
//
//	CREATE TABLE orders (
//		id                   TEXT PRIMARY KEY,
//		service_type         TEXT NOT NULL,
//		original_filename    TEXT NOT NULL,
//		storage_key          TEXT NOT NULL DEFAULT '',
//		file_size            BIGINT NOT NULL DEFAULT 0,
//		file_type            TEXT NOT NULL DEFAULT '',
//		client_id            TEXT NOT NULL,
//		instructions         TEXT NOT NULL DEFAULT '',
//		status               TEXT NOT NULL,
//		assigned_worker      TEXT NOT NULL DEFAULT '',
//		transcription_handle TEXT NOT NULL DEFAULT '',
//		transcript           TEXT NOT NULL DEFAULT '',
//		created_at           TIMESTAMPTZ NOT NULL,
//		started_at           TIMESTAMPTZ,
//		completed_at         TIMESTAMPTZ
//	);
type OrderStore struct {
	pool  DB
	table string
}

// New creates a Postgres-backed OrderStore using the provided config.
func New(ctx context.Context, cfg Config) (*OrderStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "orders"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &OrderStore{pool: pool, table: table}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(pool DB, table string) (*OrderStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "orders"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &OrderStore{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *OrderStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

const orderColumns = `id, service_type, original_filename, storage_key, file_size, file_type,
client_id, instructions, status, assigned_worker, transcription_handle, transcript,
created_at, started_at, completed_at`

// Create inserts a new order row.
func (s *OrderStore) Create(ctx context.Context, order portal.Order) error {
	query := fmt.Sprintf(`
INSERT INTO %s (%s)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`, s.table, orderColumns)
	if _, err := s.pool.Exec(ctx, query,
		order.ID,
		order.ServiceType,
		order.OriginalFilename,
		order.StorageKey,
		order.FileSize,
		order.FileType,
		order.ClientID,
		order.Instructions,
		order.Status,
		order.AssignedWorker,
		order.TranscriptionHandle,
		order.Transcript,
		order.CreatedAt,
		order.StartedAt,
		order.CompletedAt,
	); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// Get fetches one order by id.
func (s *OrderStore) Get(ctx context.Context, id string) (portal.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, orderColumns, s.table)
	order, err := scanOrder(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return portal.Order{}, portal.ErrNotFound
		}
		return portal.Order{}, fmt.Errorf("select order: %w", err)
	}
	return order, nil
}

// Update locks the row, applies the mutation, and writes the result back. A
// mutation error aborts the transaction with no visible change.
func (s *OrderStore) Update(ctx context.Context, id string, apply portal.Mutation) (portal.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return portal.Order{}, fmt.Errorf("begin update: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 FOR UPDATE`, orderColumns, s.table)
	order, err := scanOrder(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return portal.Order{}, portal.ErrNotFound
		}
		return portal.Order{}, fmt.Errorf("lock order: %w", err)
	}

	if err := apply(&order); err != nil {
		return portal.Order{}, err
	}

	update := fmt.Sprintf(`
UPDATE %s SET
	storage_key = $2,
	file_size = $3,
	instructions = $4,
	status = $5,
	assigned_worker = $6,
	transcription_handle = $7,
	transcript = $8,
	started_at = $9,
	completed_at = $10
WHERE id = $1`, s.table)
	if _, err := tx.Exec(ctx, update,
		order.ID,
		order.StorageKey,
		order.FileSize,
		order.Instructions,
		order.Status,
		order.AssignedWorker,
		order.TranscriptionHandle,
		order.Transcript,
		order.StartedAt,
		order.CompletedAt,
	); err != nil {
		return portal.Order{}, fmt.Errorf("update order: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return portal.Order{}, fmt.Errorf("commit update: %w", err)
	}
	return order, nil
}

// List returns matching orders newest first.
func (s *OrderStore) List(ctx context.Context, filter portal.ListFilter) ([]portal.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE ($1 = '' OR status = $1) AND ($2 = '' OR client_id = $2)
ORDER BY created_at DESC, id DESC`, orderColumns, s.table)
	rows, err := s.pool.Query(ctx, query, string(filter.Status), filter.ClientID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []portal.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return out, nil
}

func scanOrder(row pgx.Row) (portal.Order, error) {
	var o portal.Order
	err := row.Scan(
		&o.ID,
		&o.ServiceType,
		&o.OriginalFilename,
		&o.StorageKey,
		&o.FileSize,
		&o.FileType,
		&o.ClientID,
		&o.Instructions,
		&o.Status,
		&o.AssignedWorker,
		&o.TranscriptionHandle,
		&o.Transcript,
		&o.CreatedAt,
		&o.StartedAt,
		&o.CompletedAt,
	)
	return o, err
}
