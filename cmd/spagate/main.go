package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"

	"github.com/jmolas/spagate/internal/adapter/fsm"
	handler "github.com/jmolas/spagate/internal/adapter/http"
	"github.com/jmolas/spagate/internal/adapter/otel"
	"github.com/jmolas/spagate/internal/adapter/river"
	"github.com/jmolas/spagate/internal/adapter/sqlite"
	"github.com/jmolas/spagate/internal/app"
	"github.com/jmolas/spagate/internal/config"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("spagate: %v", err)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// --- Observability ---
	providers, err := otel.Setup(ctx, otel.ConfigFromEnv())
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			slog.Error("otel shutdown", "error", err)
		}
	}()

	// --- Adapters (out) ---
	db, err := otel.OpenDB(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	spaRepo, err := sqlite.NewFromDB(db)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	paymentRepo := sqlite.NewPaymentRepository(db)
	auditLog := sqlite.NewAuditLog(db)

	spas := otel.NewTracingRepository(spaRepo)
	validator := fsm.New()
	clock := app.SystemClock{}

	// The sweeper and the river client reference each other, so the sink is
	// bound after Setup.
	sweeper := app.NewSweeper(spas, nil, validator, clock)

	client, err := river.Setup(ctx, db, sweeper, auditLog, cfg.SweepInterval)
	if err != nil {
		return fmt.Errorf("river: %w", err)
	}

	publisher := river.NewPublisher(client)
	sink := otel.NewTracingSink(publisher)
	sweeper.SetSink(sink)

	// --- Application ---
	svc := app.NewLifecycleService(spas, sink, validator, clock)
	payments := app.NewPaymentService(spas, paymentRepo, svc, clock)

	// --- Adapters (in) ---
	router := chi.NewMux()
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)
	router.Use(otelchi.Middleware("spagate", otelchi.WithChiRoutes(router)))

	api := humachi.New(router, huma.DefaultConfig("spagate", "0.1.0"))
	handler.Register(api, svc, payments, publisher)

	// --- Background workers ---
	if err := client.Start(ctx); err != nil {
		return fmt.Errorf("starting river: %w", err)
	}

	// --- Server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("spagate listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server: %w", err)
	case <-done:
	}

	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown", "error", err)
	}

	if err := client.Stop(shutdownCtx); err != nil {
		slog.Error("river stop", "error", err)
	}

	slog.Info("stopped")
	return nil
}
