package main

import (
	"context"
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
	"github.com/go-chi/httprate"
	"github.com/joho/godotenv"
	"github.com/riandyrn/otelchi"

	"github.com/neomorfeo/stanzaq/internal/adapter/fsm"
	"github.com/neomorfeo/stanzaq/internal/adapter/otel"
	"github.com/neomorfeo/stanzaq/internal/adapter/river"
	"github.com/neomorfeo/stanzaq/internal/adapter/sqlite"
	"github.com/neomorfeo/stanzaq/internal/app"

	handler "github.com/neomorfeo/stanzaq/internal/adapter/http"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	port := envOrDefault("PORT", "8080")
	dbPath := envOrDefault("DATABASE_PATH", "stanzaq.db")

	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// --- Observability ---
	providers, err := otel.Setup(ctx, otel.ConfigFromEnv())
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}

	// --- Adapters (out) ---
	db, err := otel.OpenDB(dbPath)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}

	store, err := sqlite.NewFromDB(db)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	defer store.Close()

	riverClient, riverServices, err := river.Setup(ctx, db)
	if err != nil {
		return fmt.Errorf("river: %w", err)
	}

	notifier := otel.NewTracingNotifier(river.NewNotifier(riverClient))
	scheduler := river.NewScheduler(riverClient)
	interests := otel.NewTracingInterestRepository(store.Interests)

	// --- Application ---
	lifecycle := app.NewLifecycleService(store.Listings, interests, store,
		fsm.NewListingValidator(), fsm.NewInterestValidator(),
		scheduler, notifier, logger)
	queue := app.NewAdmissionService(interests, store.Listings, store.Tenants,
		store.Groups, store, fsm.NewInterestValidator(), lifecycle, notifier, logger)
	groups := app.NewGroupService(store.Groups, interests, queue, notifier, logger)
	wishes := app.NewWishService(store.Wishes, store.Listings, store.Tenants,
		queue, notifier, logger)

	riverServices.Lifecycle = lifecycle
	riverServices.Wishes = wishes

	if err := riverClient.Start(ctx); err != nil {
		return fmt.Errorf("river start: %w", err)
	}

	// --- Adapters (in) ---
	router := chi.NewMux()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)
	router.Use(otelchi.Middleware("stanzaq", otelchi.WithChiRoutes(router)))
	router.Use(httprate.LimitByIP(100, time.Minute))

	api := humachi.New(router, huma.DefaultConfig("stanzaq", "0.1.0"))
	handler.Register(api, handler.Services{
		Lifecycle: lifecycle,
		Queue:     queue,
		Groups:    groups,
		Wishes:    wishes,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(done)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("stanzaq listening on :%s", port)
		log.Printf("API docs: http://localhost:%s/docs", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-done:
	}
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	if err := riverClient.Stop(shutdownCtx); err != nil {
		log.Printf("river shutdown: %v", err)
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("otel shutdown: %v", err)
	}

	log.Println("stopped")
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
