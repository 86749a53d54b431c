package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fazztrack/backend/internal/models"
)

type ChargeRepo struct {
	pool *pgxpool.Pool
}

func NewChargeRepo(pool *pgxpool.Pool) *ChargeRepo {
	return &ChargeRepo{pool: pool}
}

func (r *ChargeRepo) Create(ctx context.Context, c *models.Charge) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO charges (id, student_id, item_reference, quantity, unit_price, total, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, c.ID, c.StudentID, c.ItemReference, c.Quantity, c.UnitPrice, c.Total, c.OccurredAt)
	return err
}

func (r *ChargeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM charges WHERE id = $1", id)
	return err
}

// ListByStudent returns the student's charges with occurred_at in [from, to).
func (r *ChargeRepo) ListByStudent(ctx context.Context, studentID uuid.UUID, from, to time.Time) ([]*models.Charge, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, student_id, item_reference, quantity, unit_price, total, occurred_at
		FROM charges
		WHERE student_id = $1 AND occurred_at >= $2 AND occurred_at < $3
		ORDER BY occurred_at DESC
	`, studentID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Charge
	for rows.Next() {
		var c models.Charge
		if err := rows.Scan(&c.ID, &c.StudentID, &c.ItemReference, &c.Quantity, &c.UnitPrice, &c.Total, &c.OccurredAt); err != nil {
			return nil, err
		}
		list = append(list, &c)
	}
	return list, rows.Err()
}

// SumByStudent totals the student's charge totals with occurred_at in [from, to).
func (r *ChargeRepo) SumByStudent(ctx context.Context, studentID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(total), 0)
		FROM charges
		WHERE student_id = $1 AND occurred_at >= $2 AND occurred_at < $3
	`, studentID, from, to).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

// DeleteInRange removes all charges (any student) with occurred_at in
// [from, to) and returns the number of rows deleted. Used by retention.
func (r *ChargeRepo) DeleteInRange(ctx context.Context, from, to time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM charges WHERE occurred_at >= $1 AND occurred_at < $2
	`, from, to)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
