package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/onnyvergiean/basic-banking-system/internal/core/domain"
)

// OutboxRepository queues transactional email for the mail worker.
type OutboxRepository struct {
	db *pgxpool.Pool
}

func NewOutboxRepository(db *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Enqueue inserts one pending email job.
func (r *OutboxRepository) Enqueue(ctx context.Context, recipient, subject, body string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO email_jobs (id, recipient, subject, body)
		VALUES ($1, $2, $3, $4)
	`, uuid.New(), recipient, subject, body)
	if err != nil {
		return domain.StorageFailure(err)
	}
	return nil
}
