package repository

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"volunteerhub/internal/db"
)

var ErrNotFound = errors.New("not found")

// Store runs queries against the pool, or against a transaction when it was
// handed out by WithTx.
type Store struct {
	pool    *pgxpool.Pool
	q       db.Querier
	tx      bool
	timeout time.Duration
}

func NewStore(pool *pgxpool.Pool, queryTimeout time.Duration) *Store {
	return &Store{pool: pool, q: pool, timeout: queryTimeout}
}

// WithTx runs fn with a Store bound to a single transaction. Nested calls reuse
// the outer transaction.
func (s *Store) WithTx(ctx context.Context, fn func(*Store) error) error {
	if s.tx {
		return fn(s)
	}
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&Store{pool: s.pool, q: tx, tx: true, timeout: s.timeout})
	})
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.queryContext(ctx)
	defer cancel()
	return s.pool.Ping(ctx)
}

func (s *Store) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Store) get(ctx context.Context, dst any, sql string, args ...any) error {
	ctx, cancel := s.queryContext(ctx)
	defer cancel()
	err := pgxscan.Get(ctx, s.q, dst, sql, args...)
	if pgxscan.NotFound(err) {
		return ErrNotFound
	}
	return err
}

func (s *Store) selectAll(ctx context.Context, dst any, sql string, args ...any) error {
	ctx, cancel := s.queryContext(ctx)
	defer cancel()
	return pgxscan.Select(ctx, s.q, dst, sql, args...)
}

func (s *Store) exec(ctx context.Context, sql string, args ...any) (int64, error) {
	ctx, cancel := s.queryContext(ctx)
	defer cancel()
	tag, err := s.q.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// builder accumulates positional arguments for dynamically assembled SQL.
type builder struct {
	args  []any
	conds []string
	sets  []string
}

func (b *builder) arg(value any) string {
	b.args = append(b.args, value)
	return "$" + strconv.Itoa(len(b.args))
}

func (b *builder) where(cond string) {
	b.conds = append(b.conds, cond)
}

func (b *builder) set(column string, value any) {
	b.sets = append(b.sets, column+" = "+b.arg(value))
}

func (b *builder) whereClause() string {
	if len(b.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conds, " AND ")
}

func qualify(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = alias + "." + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}

func nullableID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
