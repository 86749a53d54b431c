package router

import (
	"net/http"

	"github.com/fazztrack/backend/internal/auth"
	"github.com/fazztrack/backend/internal/handlers"
	"github.com/fazztrack/backend/internal/middleware"
)

// New assembles the full route table. Everything except registration and
// login sits behind JWT auth.
func New(
	authHandler *auth.Handler,
	validator middleware.TokenValidator,
	students *handlers.StudentHandler,
	deposits *handlers.DepositHandler,
	charges *handlers.ChargeHandler,
	history *handlers.HistoryHandler,
) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/register", authHandler.Register)
	mux.HandleFunc("POST /auth/login", authHandler.Login)

	requireAuth := middleware.RequireAuth(validator)
	protect := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, requireAuth(h))
	}

	protect("POST /estudiantes", students.CreateStudent)
	protect("GET /estudiantes", students.ListStudents)
	protect("GET /estudiantes/{id}", students.GetStudent)
	protect("DELETE /estudiantes/{id}", students.DeleteStudent)

	protect("POST /abonos", deposits.CreateDeposit)
	protect("GET /abonos/estudiante/{id}", deposits.ListDeposits)
	protect("PATCH /abonos/{id}", deposits.UpdateDeposit)
	protect("DELETE /abonos/{id}", deposits.DeleteDeposit)

	protect("POST /ventas", charges.CreateCharge)
	protect("GET /ventas/estudiante/{id}", charges.ListCharges)
	protect("DELETE /ventas/{id}", charges.DeleteCharge)

	protect("GET /control-historico/estudiante/{id}", history.GetStudentHistory)
	protect("POST /control-historico/generate-monthly", history.GenerateMonthly)
	protect("POST /control-historico/cleanup-old-data", history.CleanupOldData)

	return mux
}
