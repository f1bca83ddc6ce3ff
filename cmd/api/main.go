package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/payflow/backend/internal/generator"
	"github.com/payflow/backend/internal/handlers"
	"github.com/payflow/backend/internal/invoice"
	"github.com/payflow/backend/internal/notify"
	"github.com/payflow/backend/internal/repository"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx := context.Background()

	// Store: Postgres when DATABASE_URL is set, otherwise the in-memory
	// demo store. Background message drafting needs Postgres (river).
	var store invoice.Store
	var pool *pgxpool.Pool
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		var err error
		pool, err = pgxpool.New(ctx, dbURL)
		if err != nil {
			slog.Error("Unable to create database pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			slog.Error("Cannot reach PostgreSQL. Ensure Postgres is running or unset DATABASE_URL for in-memory mode", "error", err)
			os.Exit(1)
		}
		repo := repository.NewInvoiceRepo(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			slog.Error("Failed to create invoices schema", "error", err)
			os.Exit(1)
		}
		store = repo
		slog.Info("Connected to PostgreSQL database")
	} else {
		store = invoice.NewMemStore()
		slog.Info("DATABASE_URL not set, using in-memory store")
	}

	if os.Getenv("SEED_DEMO") == "true" {
		if err := invoice.SeedDemo(ctx, store); err != nil {
			slog.Error("Demo seed failed", "error", err)
			os.Exit(1)
		}
	}

	// AI generation collaborator. Without an API key the generate endpoint
	// reports unavailable but everything else still works.
	schemaDir := os.Getenv("SCHEMA_DIR")
	if schemaDir == "" {
		schemaDir = "schemas"
	}
	var gen *generator.Client
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		var err error
		gen, err = generator.NewClient(os.Getenv("GEMINI_BASE_URL"), apiKey, schemaDir, logger)
		if err != nil {
			slog.Error("Failed to init generation client", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Warn("GEMINI_API_KEY not set, invoice generation disabled")
	}

	// Enqueue func is set after the River client is created (breaks init cycle).
	var insertMu sync.Mutex
	var insertFn invoice.EnqueueMessageFunc
	var enqueueMessage invoice.EnqueueMessageFunc
	if pool != nil && gen != nil {
		enqueueMessage = func(ctx context.Context, invoiceID string) error {
			insertMu.Lock()
			fn := insertFn
			insertMu.Unlock()
			if fn == nil {
				return nil
			}
			return fn(ctx, invoiceID)
		}
	}

	ledger := invoice.NewService(store, logger, enqueueMessage)

	if pool != nil && gen != nil {
		migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
		if err != nil {
			slog.Error("Failed to create River migrator", "error", err)
			os.Exit(1)
		}
		if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
			slog.Error("River migrate up failed", "error", err)
			os.Exit(1)
		}

		workers := river.NewWorkers()
		river.AddWorker(workers, notify.NewDraftClientMessageWorker(ledger, gen, logger))

		rc, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
			Queues: map[string]river.QueueConfig{
				river.QueueDefault: {MaxWorkers: 4},
			},
			Workers: workers,
		})
		if err != nil {
			slog.Error("Failed to create River client", "error", err)
			os.Exit(1)
		}

		insertMu.Lock()
		insertFn = func(ctx context.Context, invoiceID string) error {
			_, err := rc.Insert(ctx, notify.DraftClientMessageArgs{InvoiceID: invoiceID}, nil)
			return err
		}
		insertMu.Unlock()

		riverCtx, stopRiver := context.WithCancel(ctx)
		defer stopRiver()
		go func() {
			if err := rc.Start(riverCtx); err != nil && riverCtx.Err() == nil {
				slog.Error("River client stopped", "error", err)
			}
		}()
	}

	h := &handlers.InvoiceHandler{
		Ledger: ledger,
		Logger: logger,
	}
	if gen != nil {
		h.Generator = gen
	}

	mux := http.NewServeMux()
	RegisterRoutes(mux, h)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Wallet-Address"},
		AllowCredentials: true,
	}).Handler(mux)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	addr := "0.0.0.0:" + port

	slog.Info("Starting HTTP server", "addr", addr)
	if err := http.ListenAndServe(addr, corsHandler); err != nil {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}
