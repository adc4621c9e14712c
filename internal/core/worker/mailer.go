// Package worker runs the background email outbox processor.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/onnyvergiean/basic-banking-system/internal/core/notifications"
)

const (
	pollInterval = 5 * time.Second
	maxAttempts  = 5
)

// StartMailWorker polls the email_jobs outbox and delivers queued mail.
// Handlers only ever insert rows; delivery failures are retried here with a
// linear backoff and never affect the request that queued the message.
func StartMailWorker(ctx context.Context, db *pgxpool.Pool, mailer *notifications.Mailer) {
	go func() {
		slog.Info("👷 Mail worker started")
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				slog.Info("Mail worker stopped")
				return
			case <-ticker.C:
				processJob(ctx, db, mailer)
			}
		}
	}()
}

func processJob(ctx context.Context, db *pgxpool.Pool, mailer *notifications.Mailer) {
	tx, err := db.Begin(ctx)
	if err != nil {
		slog.Error("Worker: failed to begin tx", "error", err)
		return
	}
	defer tx.Rollback(ctx)

	// SKIP LOCKED lets several instances drain the outbox without stepping
	// on each other.
	query := `
		SELECT id, recipient, subject, body, attempts
		FROM email_jobs
		WHERE status = 'PENDING' AND next_run_at <= NOW()
		ORDER BY created_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`

	var (
		id        string
		recipient string
		subject   string
		body      string
		attempts  int
	)
	if err := tx.QueryRow(ctx, query).Scan(&id, &recipient, &subject, &body, &attempts); err != nil {
		return // nothing to do
	}

	sendErr := mailer.Send(recipient, subject, body)
	if sendErr != nil {
		slog.Error("Worker: mail delivery failed", "error", sendErr, "job_id", id, "attempts", attempts)
		if attempts+1 >= maxAttempts {
			_, err = tx.Exec(ctx, `UPDATE email_jobs SET status = 'FAILED', attempts = attempts + 1 WHERE id = $1`, id)
		} else {
			nextRun := time.Now().Add(time.Duration(attempts*10+10) * time.Second)
			_, err = tx.Exec(ctx,
				`UPDATE email_jobs SET attempts = attempts + 1, next_run_at = $2 WHERE id = $1`, id, nextRun)
		}
	} else {
		slog.Info("✅ Worker: mail sent", "job_id", id, "recipient", recipient)
		_, err = tx.Exec(ctx, `UPDATE email_jobs SET status = 'COMPLETED', attempts = attempts + 1 WHERE id = $1`, id)
	}
	if err != nil {
		slog.Error("Worker: failed to update job", "error", err, "job_id", id)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		slog.Error("Worker: failed to commit", "error", err, "job_id", id)
	}
}
