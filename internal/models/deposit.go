package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Deposit is a credit transaction in the student's favor. Records are
// append-only; corrections go through explicit update/delete.
type Deposit struct {
	ID         uuid.UUID       `json:"id"`
	StudentID  uuid.UUID       `json:"student_id"`
	Amount     decimal.Decimal `json:"amount"`
	Category   string          `json:"category"`
	OccurredAt time.Time       `json:"occurred_at"`
	Note       *string         `json:"note,omitempty"`
}
