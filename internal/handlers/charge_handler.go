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

// ChargeRepo is the subset of the charge repository the handler needs.
type ChargeRepo interface {
	Create(ctx context.Context, c *models.Charge) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByStudent(ctx context.Context, studentID uuid.UUID, from, to time.Time) ([]*models.Charge, error)
}

// ChargeHandler serves the /ventas intake endpoints.
type ChargeHandler struct {
	Charges  ChargeRepo
	Students StudentGetter
	Loc      *time.Location
	Now      func() time.Time
	Logger   *slog.Logger
}

type createChargeRequest struct {
	StudentID     string          `json:"student_id"`
	ItemReference string          `json:"item_reference"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	OccurredAt    *time.Time      `json:"occurred_at,omitempty"`
}

// CreateCharge handles POST /ventas. The line total is computed server-side
// from quantity and unit price.
func (h *ChargeHandler) CreateCharge(w http.ResponseWriter, r *http.Request) {
	var req createChargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	studentID, err := uuid.Parse(req.StudentID)
	if err != nil {
		http.Error(w, `{"error":"invalid student_id"}`, http.StatusBadRequest)
		return
	}
	if req.Quantity <= 0 {
		http.Error(w, `{"error":"quantity must be > 0"}`, http.StatusBadRequest)
		return
	}
	if req.UnitPrice.Sign() <= 0 {
		http.Error(w, `{"error":"unit_price must be > 0"}`, http.StatusBadRequest)
		return
	}
	if req.ItemReference == "" {
		http.Error(w, `{"error":"item_reference is required"}`, http.StatusBadRequest)
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
	c := &models.Charge{
		ID:            uuid.New(),
		StudentID:     studentID,
		ItemReference: req.ItemReference,
		Quantity:      req.Quantity,
		UnitPrice:     req.UnitPrice,
		Total:         req.UnitPrice.Mul(decimal.NewFromInt(int64(req.Quantity))),
		OccurredAt:    occurredAt,
	}
	if err := h.Charges.Create(r.Context(), c); err != nil {
		h.Logger.Error("create charge", "student_id", studentID, "error", err)
		http.Error(w, `{"error":"failed to create charge"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// ListCharges handles GET /ventas/estudiante/{id}. The period defaults to
// the current month.
func (h *ChargeHandler) ListCharges(w http.ResponseWriter, r *http.Request) {
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
	list, err := h.Charges.ListByStudent(r.Context(), studentID, from, to)
	if err != nil {
		h.Logger.Error("list charges", "student_id", studentID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*models.Charge{}
	}
	writeJSON(w, http.StatusOK, list)
}

// DeleteCharge handles DELETE /ventas/{id}.
func (h *ChargeHandler) DeleteCharge(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid charge id"}`, http.StatusBadRequest)
		return
	}
	if err := h.Charges.Delete(r.Context(), id); err != nil {
		h.Logger.Error("delete charge", "charge_id", id, "error", err)
		http.Error(w, `{"error":"failed to delete charge"}`, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
