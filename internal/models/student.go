package models

import (
	"time"

	"github.com/google/uuid"
)

// Student is the account whose running balance is tracked. It carries no
// balance state of its own; the position lives in transactions and snapshots.
type Student struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
