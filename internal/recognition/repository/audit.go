// Package repository persists the recognition attempt audit trail.
// Only image hashes and outcomes are stored; pixel data and plate text
// never reach the database.
package repository

import (
	"context"
	"time"

	"github.com/plateflow/plateflow-backend/internal/recognition/domain"
	"github.com/plateflow/plateflow-backend/pkg/database"
	"github.com/plateflow/plateflow-backend/pkg/logger"
)

// AuditRepository writes recognition attempts to Postgres.
type AuditRepository struct {
	db  *database.DB
	log *logger.Logger
}

// NewAuditRepository creates an audit repository.
func NewAuditRepository(db *database.DB, log *logger.Logger) *AuditRepository {
	return &AuditRepository{
		db:  db,
		log: log.WithComponent("audit"),
	}
}

// RecordAttempt inserts one attempt. Audit writes are best-effort:
// a failed insert is logged and never fails the recognition request.
func (r *AuditRepository) RecordAttempt(ctx context.Context, attempt domain.RecognitionAttempt) {
	query := `INSERT INTO recognition_attempts
		(image_hash, outcome, error_code, confidence, from_cache, duration_ms, attempted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		attempt.ImageHash,
		string(attempt.Outcome),
		attempt.ErrorCode,
		attempt.Confidence,
		attempt.FromCache,
		attempt.DurationMs,
		attempt.AttemptedAt,
	)
	if err != nil {
		r.log.Error().Err(err).
			Str("image_hash", attempt.ImageHash).
			Str("outcome", string(attempt.Outcome)).
			Msg("failed to write recognition audit record")
	}
}

// CountByOutcome returns attempt counts per outcome since the cutoff.
func (r *AuditRepository) CountByOutcome(ctx context.Context, since time.Time) (map[domain.AttemptOutcome]int, error) {
	query := `SELECT outcome, COUNT(*) AS count
		FROM recognition_attempts
		WHERE attempted_at >= $1
		GROUP BY outcome`

	rows, err := r.db.QueryxContext(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.AttemptOutcome]int)
	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, err
		}
		counts[domain.AttemptOutcome(outcome)] = count
	}
	return counts, rows.Err()
}
