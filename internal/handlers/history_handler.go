package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/fazztrack/backend/internal/jobs"
	"github.com/fazztrack/backend/internal/ledger"
	"github.com/fazztrack/backend/internal/models"
	"github.com/fazztrack/backend/internal/period"
)

// StudentGetter resolves a student id to its record.
type StudentGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Student, error)
}

// SnapshotResolver is the read path for closed-period balances.
type SnapshotResolver interface {
	Resolve(ctx context.Context, studentID uuid.UUID, p period.Period, now time.Time) (*models.Snapshot, error)
	CarryInto(ctx context.Context, studentID uuid.UUID, p period.Period, now time.Time) (ledger.Balance, error)
}

// ActivityReader sums a period's transactions directly.
type ActivityReader interface {
	Activity(ctx context.Context, studentID uuid.UUID, p period.Period) (ledger.Activity, error)
}

// RolloverRunner and RetentionRunner abstract the batch jobs for manual
// invocation, so tests don't need the real batches.
type RolloverRunner interface {
	Run(ctx context.Context, target period.Period) (*jobs.RolloverSummary, error)
}

type RetentionRunner interface {
	Run(ctx context.Context, target period.Period) (*jobs.RetentionSummary, error)
}

// HistoryHandler serves the /control-historico endpoints: the per-student
// balance view and the manual triggers for rollover and retention.
type HistoryHandler struct {
	Students  StudentGetter
	Resolver  SnapshotResolver
	Activity  ActivityReader
	Rollover  RolloverRunner
	Retention RetentionRunner
	Loc       *time.Location
	Now       func() time.Time
	Logger    *slog.Logger
}

type historyResponse struct {
	StudentID     string          `json:"student_id"`
	Month         int             `json:"month"`
	Year          int             `json:"year"`
	TotalDeposits decimal.Decimal `json:"total_deposits"`
	TotalCharges  decimal.Decimal `json:"total_charges"`
	PendingCredit decimal.Decimal `json:"pending_credit"`
	PendingDebit  decimal.Decimal `json:"pending_debit"`
}

// GetStudentHistory handles GET /control-historico/estudiante/{id}.
//
// The period defaults to the current month. For the current (open) period
// the response carries live transaction totals plus the prior period's
// carry; for a closed period it carries that period's totals plus its
// resolved snapshot. Open periods are never served from a snapshot.
func (h *HistoryHandler) GetStudentHistory(w http.ResponseWriter, r *http.Request) {
	studentID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid student id"}`, http.StatusBadRequest)
		return
	}

	now := h.Now()
	current := period.FromTime(now.In(h.Loc))
	p, err := parsePeriodQuery(r, current)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if current.Before(p) {
		http.Error(w, `{"error":"period is in the future"}`, http.StatusBadRequest)
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

	act, err := h.Activity.Activity(r.Context(), studentID, p)
	if err != nil {
		h.Logger.Error("period activity", "student_id", studentID, "period", p.String(), "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	resp := historyResponse{
		StudentID:     studentID.String(),
		Month:         int(p.Month),
		Year:          p.Year,
		TotalDeposits: act.Deposits,
		TotalCharges:  act.Charges,
		PendingCredit: decimal.Zero,
		PendingDebit:  decimal.Zero,
	}

	if p == current {
		carry, err := h.Resolver.CarryInto(r.Context(), studentID, p, now)
		if err != nil {
			h.Logger.Error("carry into current period", "student_id", studentID, "error", err)
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}
		resp.PendingCredit = carry.PendingCredit
		resp.PendingDebit = carry.PendingDebit
		writeJSON(w, http.StatusOK, resp)
		return
	}

	snap, err := h.Resolver.Resolve(r.Context(), studentID, p, now)
	if err != nil {
		if errors.Is(err, ledger.ErrNoHistory) {
			http.Error(w, `{"error":"no history for this period"}`, http.StatusNotFound)
			return
		}
		h.Logger.Error("resolve snapshot", "student_id", studentID, "period", p.String(), "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	resp.PendingCredit = snap.PendingCredit
	resp.PendingDebit = snap.PendingDebit
	writeJSON(w, http.StatusOK, resp)
}

// GenerateMonthly handles POST /control-historico/generate-monthly.
// Default target: the period that just closed.
func (h *HistoryHandler) GenerateMonthly(w http.ResponseWriter, r *http.Request) {
	now := h.Now()
	target, err := parsePeriodQuery(r, jobs.DefaultTarget(now, h.Loc))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	current := period.FromTime(now.In(h.Loc))
	if !target.Before(current) {
		http.Error(w, `{"error":"period is not closed yet"}`, http.StatusBadRequest)
		return
	}

	summary, err := h.Rollover.Run(r.Context(), target)
	if err != nil {
		h.Logger.Error("manual rollover", "period", target.String(), "error", err)
		http.Error(w, `{"error":"rollover failed"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// CleanupOldData handles POST /control-historico/cleanup-old-data.
// Default target: two months back.
func (h *HistoryHandler) CleanupOldData(w http.ResponseWriter, r *http.Request) {
	now := h.Now()
	target, err := parsePeriodQuery(r, jobs.RetentionTarget(now, h.Loc))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	current := period.FromTime(now.In(h.Loc))
	if !target.Before(current) {
		http.Error(w, `{"error":"refusing to purge an open period"}`, http.StatusBadRequest)
		return
	}

	summary, err := h.Retention.Run(r.Context(), target)
	if err != nil {
		h.Logger.Error("manual retention", "period", target.String(), "error", err)
		http.Error(w, `{"error":"cleanup failed"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// parsePeriodQuery reads the optional month/year query parameters. Both must
// be present or both absent; absent falls back to def.
func parsePeriodQuery(r *http.Request, def period.Period) (period.Period, error) {
	mStr := r.URL.Query().Get("month")
	yStr := r.URL.Query().Get("year")
	if mStr == "" && yStr == "" {
		return def, nil
	}
	if mStr == "" || yStr == "" {
		return period.Period{}, errors.New("month and year must be provided together")
	}
	m, err := strconv.Atoi(mStr)
	if err != nil {
		return period.Period{}, errors.New("month must be a number")
	}
	y, err := strconv.Atoi(yStr)
	if err != nil {
		return period.Period{}, errors.New("year must be a number")
	}
	return period.New(m, y)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
