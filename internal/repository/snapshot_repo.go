package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fazztrack/backend/internal/models"
)

type SnapshotRepo struct {
	pool *pgxpool.Pool
}

func NewSnapshotRepo(pool *pgxpool.Pool) *SnapshotRepo {
	return &SnapshotRepo{pool: pool}
}

// Get returns the snapshot for (studentID, month, year), or (nil, nil) when
// none exists.
func (r *SnapshotRepo) Get(ctx context.Context, studentID uuid.UUID, month, year int) (*models.Snapshot, error) {
	var s models.Snapshot
	err := r.pool.QueryRow(ctx, `
		SELECT id, student_id, month, year, pending_credit, pending_debit, created_at, updated_at
		FROM snapshots WHERE student_id = $1 AND month = $2 AND year = $3
	`, studentID, month, year).Scan(&s.ID, &s.StudentID, &s.Month, &s.Year, &s.PendingCredit, &s.PendingDebit, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Upsert writes the snapshot for (student_id, month, year). The values are a
// deterministic function of the period's transactions and the prior carry, so
// a concurrent duplicate write (resolver backfill racing the rollover batch)
// lands on the same row with the same numbers.
func (r *SnapshotRepo) Upsert(ctx context.Context, s *models.Snapshot) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO snapshots (id, student_id, month, year, pending_credit, pending_debit)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (student_id, month, year) DO UPDATE
			SET pending_credit = EXCLUDED.pending_credit,
			    pending_debit = EXCLUDED.pending_debit,
			    updated_at = now()
		RETURNING id, created_at, updated_at
	`, s.ID, s.StudentID, s.Month, s.Year, s.PendingCredit, s.PendingDebit).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

// DeleteByPeriod removes every student's snapshot for the given period and
// returns the number of rows deleted. Used by retention.
func (r *SnapshotRepo) DeleteByPeriod(ctx context.Context, month, year int) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM snapshots WHERE month = $1 AND year = $2
	`, month, year)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
