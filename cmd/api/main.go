package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/fazztrack/backend/internal/auth"
	"github.com/fazztrack/backend/internal/config"
	"github.com/fazztrack/backend/internal/handlers"
	"github.com/fazztrack/backend/internal/jobs"
	"github.com/fazztrack/backend/internal/ledger"
	"github.com/fazztrack/backend/internal/repository"
	"github.com/fazztrack/backend/internal/router"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	loc := cfg.Location()

	ctx := context.Background()
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		slog.Error("Invalid DATABASE_URL", "error", err)
		os.Exit(1)
	}
	// Ledger amounts travel as shopspring decimals, never floats.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		slog.Error("Unable to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("Cannot reach PostgreSQL (connection refused or invalid). Ensure Postgres is running, e.g. docker-compose up -d", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to PostgreSQL database successfully!")

	// River migrations
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("Failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("River migrate up failed. If the error is 'connection refused', start PostgreSQL first", "error", err)
		os.Exit(1)
	}
	slog.Info("River migrations applied")

	// Repositories
	studentRepo := repository.NewStudentRepo(pool)
	depositRepo := repository.NewDepositRepo(pool)
	chargeRepo := repository.NewChargeRepo(pool)
	snapshotRepo := repository.NewSnapshotRepo(pool)

	// Ledger core
	calc := ledger.NewCalculator(depositRepo, chargeRepo, loc)
	resolver := ledger.NewResolver(snapshotRepo, calc, loc, cfg.MaxBackfillMonths)

	// Period-boundary batches
	rollover := jobs.NewRollover(studentRepo, calc, snapshotRepo, logger)
	retention := jobs.NewRetention(depositRepo, chargeRepo, snapshotRepo, loc, logger)

	workers := river.NewWorkers()
	river.AddWorker(workers, jobs.NewRolloverWorker(rollover, loc))
	river.AddWorker(workers, jobs.NewRetentionWorker(retention, loc))

	rolloverSched, err := jobs.ParseSchedule(cfg.RolloverCron, cfg.TimeZone)
	if err != nil {
		slog.Error("Invalid rollover schedule", "error", err)
		os.Exit(1)
	}
	retentionSched, err := jobs.ParseSchedule(cfg.RetentionCron, cfg.TimeZone)
	if err != nil {
		slog.Error("Invalid retention schedule", "error", err)
		os.Exit(1)
	}

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 10},
		},
		Workers: workers,
		PeriodicJobs: []*river.PeriodicJob{
			river.NewPeriodicJob(rolloverSched, func() (river.JobArgs, *river.InsertOpts) {
				return jobs.RolloverArgs{}, nil
			}, nil),
			river.NewPeriodicJob(retentionSched, func() (river.JobArgs, *river.InsertOpts) {
				return jobs.RetentionArgs{}, nil
			}, nil),
		},
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}

	// Auth
	authRepo := auth.NewRepository(pool)
	authSvc := auth.NewService(authRepo, cfg.JWTSecret)
	authHandler := auth.NewHandler(authSvc, logger)

	// HTTP handlers
	studentHandler := &handlers.StudentHandler{
		Students: studentRepo,
		Logger:   logger,
	}
	depositHandler := &handlers.DepositHandler{
		Deposits: depositRepo,
		Students: studentRepo,
		Loc:      loc,
		Now:      time.Now,
		Logger:   logger,
	}
	chargeHandler := &handlers.ChargeHandler{
		Charges:  chargeRepo,
		Students: studentRepo,
		Loc:      loc,
		Now:      time.Now,
		Logger:   logger,
	}
	historyHandler := &handlers.HistoryHandler{
		Students:  studentRepo,
		Resolver:  resolver,
		Activity:  calc,
		Rollover:  rollover,
		Retention: retention,
		Loc:       loc,
		Now:       time.Now,
		Logger:    logger,
	}

	apiRouter := router.New(authHandler, authSvc, studentHandler, depositHandler, chargeHandler, historyHandler)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(apiRouter)

	// Start River client (runs the scheduled batches)
	riverCtx, stopRiver := context.WithCancel(ctx)
	defer stopRiver()
	go func() {
		if err := riverClient.Start(riverCtx); err != nil && riverCtx.Err() == nil {
			slog.Error("River client stopped", "error", err)
		}
	}()

	serverAddr := "0.0.0.0:" + cfg.Port
	slog.Info("Starting HTTP server", "addr", serverAddr, "timezone", cfg.TimeZone)
	if err := http.ListenAndServe(serverAddr, corsHandler); err != nil {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}
