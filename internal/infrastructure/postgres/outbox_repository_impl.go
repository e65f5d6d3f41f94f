package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmarkov/user-microservice/internal/domain/entity"
	"github.com/dmarkov/user-microservice/internal/domain/repository"
)

type OutboxRepository struct {
	pool *pgxpool.Pool
}

func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

func (r *OutboxRepository) q(ctx context.Context) querier {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return r.pool
}

func (r *OutboxRepository) Append(ctx context.Context, rec *entity.OutboxRecord) error {
	// ON CONFLICT keeps appends idempotent per (user id, event type).
	_, err := r.q(ctx).Exec(ctx, `
		INSERT INTO user_outbox (idempotency_key, event_type, user_id, name, email)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (idempotency_key) DO NOTHING
	`, rec.Key, rec.EventType, rec.UserID, rec.Name, rec.Email)
	return err
}

func (r *OutboxRepository) Pending(ctx context.Context, limit int) ([]*entity.OutboxRecord, error) {
	rows, err := r.q(ctx).Query(ctx, `
		SELECT id, idempotency_key, event_type, user_id, name, email, attempts, created_at
		FROM user_outbox
		WHERE dispatched_at IS NULL
		ORDER BY id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*entity.OutboxRecord
	for rows.Next() {
		rec := &entity.OutboxRecord{}
		if err := rows.Scan(&rec.ID, &rec.Key, &rec.EventType, &rec.UserID,
			&rec.Name, &rec.Email, &rec.Attempts, &rec.CreatedAt); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (r *OutboxRepository) MarkDispatched(ctx context.Context, id int64) error {
	_, err := r.q(ctx).Exec(ctx, `
		UPDATE user_outbox SET dispatched_at = now() WHERE id = $1
	`, id)
	return err
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id int64) error {
	_, err := r.q(ctx).Exec(ctx, `
		UPDATE user_outbox SET attempts = attempts + 1 WHERE id = $1
	`, id)
	return err
}

var _ repository.OutboxRepository = (*OutboxRepository)(nil)
