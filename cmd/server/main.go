// Command server runs the dynamic pricing engine: the HTTP API, the
// scheduled price updates, the weekly history rollup and model training,
// and the nightly database backups.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pricewise/pricewise/internal/config"
	"github.com/pricewise/pricewise/internal/database"
	"github.com/pricewise/pricewise/internal/modules/analytics"
	analyticshandlers "github.com/pricewise/pricewise/internal/modules/analytics/handlers"
	"github.com/pricewise/pricewise/internal/modules/catalog"
	cataloghandlers "github.com/pricewise/pricewise/internal/modules/catalog/handlers"
	"github.com/pricewise/pricewise/internal/modules/export"
	exporthandlers "github.com/pricewise/pricewise/internal/modules/export/handlers"
	"github.com/pricewise/pricewise/internal/modules/history"
	"github.com/pricewise/pricewise/internal/modules/pricing"
	pricinghandlers "github.com/pricewise/pricewise/internal/modules/pricing/handlers"
	"github.com/pricewise/pricewise/internal/modules/training"
	traininghandlers "github.com/pricewise/pricewise/internal/modules/training/handlers"
	"github.com/pricewise/pricewise/internal/reliability"
	"github.com/pricewise/pricewise/internal/scheduler"
	"github.com/pricewise/pricewise/internal/server"
	"github.com/pricewise/pricewise/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Str("model_dir", cfg.ModelDir).
		Int("port", cfg.Port).
		Msg("Starting pricing engine")

	// Databases: catalog (products), ledger (price-change audit trail),
	// history (weekly sales snapshots).
	catalogDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "catalog.db"),
		Profile: database.ProfileStandard,
		Name:    "catalog",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open catalog database")
	}
	defer catalogDB.Close()

	ledgerDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "ledger.db"),
		Profile: database.ProfileLedger,
		Name:    "ledger",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger database")
	}
	defer ledgerDB.Close()

	historyDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "history.db"),
		Profile: database.ProfileStandard,
		Name:    "history",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history database")
	}
	defer historyDB.Close()

	for _, db := range []*database.DB{catalogDB, ledgerDB, historyDB} {
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Str("database", db.Name()).Msg("Migration failed")
		}
	}

	// Repositories
	productRepo := catalog.NewProductRepository(catalogDB.Conn(), log)
	changeLogRepo := pricing.NewChangeLogRepository(ledgerDB.Conn(), log)
	historyRepo := history.NewRepository(historyDB.Conn(), log)

	// Pricing pipeline: demand scoring, learned strategy with the
	// rule-based floor as fallback, coordinator on top.
	scorer := pricing.NewDemandScorer()
	artifactStore := training.NewStore(cfg.ModelDir, log)
	learned := pricing.NewLearnedStrategy(artifactStore, log)
	strategy := pricing.NewFallbackStrategy(learned, pricing.NewRuleBasedStrategy(), log)
	coordinator := pricing.NewCoordinator(productRepo, changeLogRepo, scorer, strategy, log)

	// Weekly history rollup and model training
	rollup := history.NewRollupService(productRepo, historyRepo, scorer, log)
	trainer := training.NewTrainer(historyRepo, productRepo, artifactStore, log)

	// Reporting
	exportService := export.NewService(productRepo, scorer, log)
	analyticsService := analytics.NewService(productRepo, changeLogRepo, historyRepo, log)

	// Off-site backups (optional)
	var backupService *reliability.BackupService
	if cfg.R2.Enabled() {
		r2Client, err := reliability.NewR2Client(
			cfg.R2.AccountID, cfg.R2.AccessKeyID, cfg.R2.SecretAccessKey, cfg.R2.BucketName, log,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create R2 client")
		}
		backupService = reliability.NewBackupService(
			[]*database.DB{catalogDB, ledgerDB, historyDB},
			cfg.DataDir, artifactStore.CurrentPath(), r2Client, log,
		)
	} else {
		log.Info().Msg("R2 not configured, local backups only")
		backupService = reliability.NewBackupService(
			[]*database.DB{catalogDB, ledgerDB, historyDB},
			cfg.DataDir, artifactStore.CurrentPath(), nil, log,
		)
	}

	// Background jobs
	priceUpdateJob := scheduler.NewPriceUpdateJob(coordinator, log)
	rollupJob := scheduler.NewHistoryRollupJob(rollup)
	trainJob := scheduler.NewTrainJob(trainer, learned, log)
	backupJob := scheduler.NewBackupJob(backupService)

	sched := scheduler.New(log)
	jobSchedules := []struct {
		schedule string
		job      scheduler.Job
	}{
		{cfg.PriceUpdateSchedule, priceUpdateJob},
		{cfg.HistoryRollupSchedule, rollupJob},
		{cfg.TrainingSchedule, trainJob},
		{cfg.BackupSchedule, backupJob},
	}
	for _, js := range jobSchedules {
		if err := sched.AddJob(js.schedule, js.job); err != nil {
			log.Fatal().Err(err).Str("job", js.job.Name()).Msg("Failed to register job")
		}
	}

	// HTTP server
	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		CatalogDB: catalogDB,
		LedgerDB:  ledgerDB,
		HistoryDB: historyDB,

		CatalogHandler:   cataloghandlers.NewHandler(productRepo, log),
		PricingHandler:   pricinghandlers.NewHandler(coordinator, changeLogRepo, log),
		TrainingHandler:  traininghandlers.NewHandler(trainer, artifactStore, learned, log),
		ExportHandler:    exporthandlers.NewHandler(exportService, log),
		AnalyticsHandler: analyticshandlers.NewHandler(analyticsService, log),
	})
	srv.SetJobs(priceUpdateJob, rollupJob, trainJob, backupJob)

	sched.Start()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Error().Err(err).Msg("HTTP server failed")
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Pricing engine stopped")
}
