package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Snapshot is the persisted closing balance of one student for one period.
// At most one of PendingCredit/PendingDebit is positive: PendingCredit is a
// surplus carried in the student's favor, PendingDebit an outstanding amount
// owed. Both zero means the period closed even.
//
// A snapshot for period P is the opening carry-forward for period P+1. One
// row exists per (student_id, month, year); the table enforces uniqueness on
// that triple.
type Snapshot struct {
	ID            uuid.UUID       `json:"id"`
	StudentID     uuid.UUID       `json:"student_id"`
	Month         int             `json:"month"`
	Year          int             `json:"year"`
	PendingCredit decimal.Decimal `json:"pending_credit"`
	PendingDebit  decimal.Decimal `json:"pending_debit"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Net returns the signed position: positive in the student's favor.
func (s *Snapshot) Net() decimal.Decimal {
	return s.PendingCredit.Sub(s.PendingDebit)
}
