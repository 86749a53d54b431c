package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fazztrack/backend/internal/models"
)

// StudentRepo is the subset of the student repository the handler needs.
type StudentRepo interface {
	Create(ctx context.Context, s *models.Student) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Student, error)
	List(ctx context.Context) ([]*models.Student, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// StudentHandler serves the /estudiantes endpoints.
type StudentHandler struct {
	Students StudentRepo
	Logger   *slog.Logger
}

type createStudentRequest struct {
	Name string `json:"name"`
}

// CreateStudent handles POST /estudiantes.
func (h *StudentHandler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var req createStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, `{"error":"name is required"}`, http.StatusBadRequest)
		return
	}
	s := &models.Student{
		ID:   uuid.New(),
		Name: req.Name,
	}
	if err := h.Students.Create(r.Context(), s); err != nil {
		h.Logger.Error("create student", "error", err)
		http.Error(w, `{"error":"failed to create student"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

// ListStudents handles GET /estudiantes.
func (h *StudentHandler) ListStudents(w http.ResponseWriter, r *http.Request) {
	list, err := h.Students.List(r.Context())
	if err != nil {
		h.Logger.Error("list students", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*models.Student{}
	}
	writeJSON(w, http.StatusOK, list)
}

// GetStudent handles GET /estudiantes/{id}.
func (h *StudentHandler) GetStudent(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid student id"}`, http.StatusBadRequest)
		return
	}
	s, err := h.Students.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, `{"error":"student not found"}`, http.StatusNotFound)
			return
		}
		h.Logger.Error("get student", "student_id", id, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// DeleteStudent handles DELETE /estudiantes/{id}.
func (h *StudentHandler) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid student id"}`, http.StatusBadRequest)
		return
	}
	if err := h.Students.Delete(r.Context(), id); err != nil {
		h.Logger.Error("delete student", "student_id", id, "error", err)
		http.Error(w, `{"error":"failed to delete student"}`, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
