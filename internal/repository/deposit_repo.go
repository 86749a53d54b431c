package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fazztrack/backend/internal/models"
)

type DepositRepo struct {
	pool *pgxpool.Pool
}

func NewDepositRepo(pool *pgxpool.Pool) *DepositRepo {
	return &DepositRepo{pool: pool}
}

func (r *DepositRepo) Create(ctx context.Context, d *models.Deposit) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO deposits (id, student_id, amount, category, occurred_at, note)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, d.ID, d.StudentID, d.Amount, d.Category, d.OccurredAt, d.Note)
	return err
}

func (r *DepositRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Deposit, error) {
	var d models.Deposit
	err := r.pool.QueryRow(ctx, `
		SELECT id, student_id, amount, category, occurred_at, note
		FROM deposits WHERE id = $1
	`, id).Scan(&d.ID, &d.StudentID, &d.Amount, &d.Category, &d.OccurredAt, &d.Note)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Update applies an explicit correction to amount, category and note.
func (r *DepositRepo) Update(ctx context.Context, d *models.Deposit) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE deposits SET amount = $2, category = $3, note = $4 WHERE id = $1
	`, d.ID, d.Amount, d.Category, d.Note)
	return err
}

func (r *DepositRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM deposits WHERE id = $1", id)
	return err
}

// ListByStudent returns the student's deposits with occurred_at in [from, to).
func (r *DepositRepo) ListByStudent(ctx context.Context, studentID uuid.UUID, from, to time.Time) ([]*models.Deposit, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, student_id, amount, category, occurred_at, note
		FROM deposits
		WHERE student_id = $1 AND occurred_at >= $2 AND occurred_at < $3
		ORDER BY occurred_at DESC
	`, studentID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Deposit
	for rows.Next() {
		var d models.Deposit
		if err := rows.Scan(&d.ID, &d.StudentID, &d.Amount, &d.Category, &d.OccurredAt, &d.Note); err != nil {
			return nil, err
		}
		list = append(list, &d)
	}
	return list, rows.Err()
}

// SumByStudent totals the student's deposit amounts with occurred_at in [from, to).
func (r *DepositRepo) SumByStudent(ctx context.Context, studentID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM deposits
		WHERE student_id = $1 AND occurred_at >= $2 AND occurred_at < $3
	`, studentID, from, to).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

// DeleteInRange removes all deposits (any student) with occurred_at in
// [from, to) and returns the number of rows deleted. Used by retention.
func (r *DepositRepo) DeleteInRange(ctx context.Context, from, to time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM deposits WHERE occurred_at >= $1 AND occurred_at < $2
	`, from, to)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
