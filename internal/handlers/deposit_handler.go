package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/fazztrack/backend/internal/models"
	"github.com/fazztrack/backend/internal/period"
)

// DepositRepo is the subset of the deposit repository the handler needs.
type DepositRepo interface {
	Create(ctx context.Context, d *models.Deposit) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Deposit, error)
	Update(ctx context.Context, d *models.Deposit) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByStudent(ctx context.Context, studentID uuid.UUID, from, to time.Time) ([]*models.Deposit, error)
}

// DepositHandler serves the /abonos intake endpoints.
type DepositHandler struct {
	Deposits DepositRepo
	Students StudentGetter
	Loc      *time.Location
	Now      func() time.Time
	Logger   *slog.Logger
}

type createDepositRequest struct {
	StudentID  string          `json:"student_id"`
	Amount     decimal.Decimal `json:"amount"`
	Category   string          `json:"category"`
	OccurredAt *time.Time      `json:"occurred_at,omitempty"`
	Note       *string         `json:"note,omitempty"`
}

// CreateDeposit handles POST /abonos.
func (h *DepositHandler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	var req createDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	studentID, err := uuid.Parse(req.StudentID)
	if err != nil {
		http.Error(w, `{"error":"invalid student_id"}`, http.StatusBadRequest)
		return
	}
	if req.Amount.Sign() <= 0 {
		http.Error(w, `{"error":"amount must be > 0"}`, http.StatusBadRequest)
		return
	}
	if _, err := h.Students.GetByID(r.Context(), studentID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, `{"error":"student not found"}`, http.StatusNotFound)
			return
		}
		h.Logger.Error("get student", "student_id", studentID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	occurredAt := h.Now()
	if req.OccurredAt != nil {
		occurredAt = *req.OccurredAt
	}
	d := &models.Deposit{
		ID:         uuid.New(),
		StudentID:  studentID,
		Amount:     req.Amount,
		Category:   req.Category,
		OccurredAt: occurredAt,
		Note:       req.Note,
	}
	if err := h.Deposits.Create(r.Context(), d); err != nil {
		h.Logger.Error("create deposit", "student_id", studentID, "error", err)
		http.Error(w, `{"error":"failed to create deposit"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// ListDeposits handles GET /abonos/estudiante/{id}. The period defaults to
// the current month.
func (h *DepositHandler) ListDeposits(w http.ResponseWriter, r *http.Request) {
	studentID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid student id"}`, http.StatusBadRequest)
		return
	}
	p, err := parsePeriodQuery(r, period.FromTime(h.Now().In(h.Loc)))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	from, to := p.Bounds(h.Loc)
	list, err := h.Deposits.ListByStudent(r.Context(), studentID, from, to)
	if err != nil {
		h.Logger.Error("list deposits", "student_id", studentID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*models.Deposit{}
	}
	writeJSON(w, http.StatusOK, list)
}

type updateDepositRequest struct {
	Amount   *decimal.Decimal `json:"amount,omitempty"`
	Category *string          `json:"category,omitempty"`
	Note     *string          `json:"note,omitempty"`
}

// UpdateDeposit handles PATCH /abonos/{id}: an explicit correction.
func (h *DepositHandler) UpdateDeposit(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid deposit id"}`, http.StatusBadRequest)
		return
	}
	var req updateDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	d, err := h.Deposits.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, `{"error":"deposit not found"}`, http.StatusNotFound)
			return
		}
		h.Logger.Error("get deposit", "deposit_id", id, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if req.Amount != nil {
		if req.Amount.Sign() <= 0 {
			http.Error(w, `{"error":"amount must be > 0"}`, http.StatusBadRequest)
			return
		}
		d.Amount = *req.Amount
	}
	if req.Category != nil {
		d.Category = *req.Category
	}
	if req.Note != nil {
		d.Note = req.Note
	}
	if err := h.Deposits.Update(r.Context(), d); err != nil {
		h.Logger.Error("update deposit", "deposit_id", id, "error", err)
		http.Error(w, `{"error":"failed to update deposit"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// DeleteDeposit handles DELETE /abonos/{id}.
func (h *DepositHandler) DeleteDeposit(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid deposit id"}`, http.StatusBadRequest)
		return
	}
	if err := h.Deposits.Delete(r.Context(), id); err != nil {
		h.Logger.Error("delete deposit", "deposit_id", id, "error", err)
		http.Error(w, `{"error":"failed to delete deposit"}`, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
