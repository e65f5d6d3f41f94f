package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// txKey is the context key carrying the active transaction.
type txKey struct{}

func withTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func txFromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so repositories
// work inside and outside a transaction scope.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxScope runs a function inside an explicit transaction with the requested
// isolation level. The transaction travels in the context; repositories pick
// it up transparently. Commit on nil return, rollback otherwise.
type TxScope struct {
	pool *pgxpool.Pool
}

func NewTxScope(pool *pgxpool.Pool) *TxScope {
	return &TxScope{pool: pool}
}

func (s *TxScope) run(ctx context.Context, opts pgx.TxOptions, fn func(ctx context.Context) error) error {
	tx, err := s.pool.BeginTx(ctx, opts)
	if err != nil {
		return err
	}
	if err := fn(withTx(ctx, tx)); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// RepeatableRead guards read-then-write sequences against concurrent
// phantoms, e.g. the implicit uniqueness check before inserting an email.
func (s *TxScope) RepeatableRead(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.run(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead}, fn)
}

func (s *TxScope) ReadCommitted(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.run(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
}

func (s *TxScope) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.run(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadOnly}, fn)
}
