package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"pilotage-service/internal/config"
	"pilotage-service/internal/database"
	"pilotage-service/internal/handlers"
	"pilotage-service/internal/logging"
	"pilotage-service/internal/matching"
	"pilotage-service/internal/reconciler"
	"pilotage-service/internal/repositories"
	"pilotage-service/internal/rules"
	"pilotage-service/internal/services"
	"pilotage-service/internal/storage"
	"pilotage-service/internal/storage/local"
	s3store "pilotage-service/internal/storage/s3"
)

func main() {
	migrateCmd := flag.String("migrate", "", "Migration command (up/down/version)")
	steps := flag.Int("steps", 0, "Number of migration steps (0 means all)")
	envFile := flag.String("env", ".env", "Path to the .env file")
	flag.Parse()

	cfg, err := config.LoadConfig(*envFile)
	if err != nil {
		fatal("error loading config", err)
	}
	if err := logging.Setup(cfg.Log.Level, cfg.Log.Format); err != nil {
		fatal("error configuring logger", err)
	}

	ctx := context.Background()

	if *migrateCmd != "" {
		handleMigration(ctx, cfg, *migrateCmd, *steps)
		return
	}

	db, err := database.NewConnection(ctx, cfg)
	if err != nil {
		fatal("error connecting to database", err)
	}
	defer db.Close()

	engine, err := loadEngine(cfg)
	if err != nil {
		fatal("error loading engine tables", err)
	}

	store, err := newReportStore(ctx, cfg)
	if err != nil {
		fatal("error creating report store", err)
	}

	invoiceRepo := repositories.NewInvoiceRepository(db)
	costDocRepo := repositories.NewCostDocumentRepository(db)
	reconciliationRepo := repositories.NewReconciliationRepository(db)

	dataIngestionService := services.NewDataIngestionService(db, invoiceRepo, costDocRepo, reconciliationRepo)
	reconciliationService := services.NewReconciliationService(db, invoiceRepo, costDocRepo, reconciliationRepo, store, engine)

	router := handlers.SetupRouter(
		handlers.NewDataHandler(dataIngestionService),
		handlers.NewReconciliationHandler(reconciliationService),
	)

	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		slog.Info("server is running", "address", cfg.ServerAddress, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("HTTP server error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fatal("server shutdown failed", err)
	}
	slog.Info("server exited gracefully")
}

func loadEngine(cfg *config.Config) (services.EngineSettings, error) {
	ruleSet, err := rules.LoadRuleSet(cfg.Engine.RulesFile)
	if err != nil {
		return services.EngineSettings{}, err
	}
	ref, err := rules.LoadReference(cfg.Engine.ReferenceFile)
	if err != nil {
		return services.EngineSettings{}, err
	}

	slog.Info("engine tables loaded",
		"rules", len(ruleSet.KeywordRules),
		"coverage_threshold", ruleSet.CoverageThreshold,
		"destinations", len(ref.Destinations),
		"normalize_refs", cfg.Engine.NormalizeRefs,
	)
	return services.EngineSettings{
		Rules:     ruleSet,
		Reference: ref,
		Options: reconciler.Options{
			Matching: matching.Options{NormalizeRefs: cfg.Engine.NormalizeRefs},
		},
		Workers: cfg.Engine.Workers,
	}, nil
}

func newReportStore(ctx context.Context, cfg *config.Config) (storage.ReportStore, error) {
	switch cfg.Report.Storage {
	case config.StorageS3:
		return s3store.NewS3Store(ctx, cfg.Report.S3)
	default:
		return local.NewLocalStore(cfg.Report.Dir)
	}
}

func handleMigration(ctx context.Context, cfg *config.Config, command string, steps int) {
	db, err := database.NewConnection(ctx, cfg)
	if err != nil {
		fatal("failed to ensure database exists", err)
	}
	db.Close()

	m, err := migrate.New(
		fmt.Sprintf("file://%s", cfg.Migration.Dir),
		cfg.GetMigrationDBURL(),
	)
	if err != nil {
		fatal("failed to initialize migrate", err)
	}
	defer m.Close()

	switch command {
	case "up":
		if steps > 0 {
			err = m.Steps(steps)
		} else {
			err = m.Up()
		}
	case "down":
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
	case "version":
		version, dirty, verErr := m.Version()
		if verErr != nil {
			if errors.Is(verErr, migrate.ErrNilVersion) {
				slog.Info("no migrations have been applied yet")
				return
			}
			fatal("failed to get version", verErr)
		}
		fmt.Printf("Current migration version: %d (dirty: %v)\n", version, dirty)
		return
	default:
		fatal("invalid migration command", fmt.Errorf("unknown command %q", command))
	}

	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Info("no migration changes to apply")
			return
		}
		fatal("migration failed", err)
	}

	slog.Info("migration completed successfully", "command", command)
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
