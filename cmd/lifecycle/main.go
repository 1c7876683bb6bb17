package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"offspring_lifecycle/internal/app"
	"offspring_lifecycle/internal/domain/offspring"
	"offspring_lifecycle/internal/domain/species"
	"offspring_lifecycle/internal/infra/config"
	idb "offspring_lifecycle/internal/infra/database"
	"offspring_lifecycle/internal/infra/logger"
	"offspring_lifecycle/internal/infra/memory"
	"offspring_lifecycle/internal/infra/metrics"
	"offspring_lifecycle/internal/infra/scheduler"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("Could not load application configuration: %v", err)
	}
	logger.Init(cfg)
	log := logger.Get()

	log.WithFields(logrus.Fields{
		"storage":     cfg.StorageDriver,
		"environment": cfg.Environment,
	}).Info("Configuration loaded.")

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Could not open %s store: %v", cfg.StorageDriver, err)
	}
	defer closeStore()
	log.Info("Offspring store initialized.")

	recorder := metrics.NewRecorder()
	lifecycleService := app.NewLifecycleServiceImpl(store, log, recorder)
	milestoneService := app.NewMilestoneServiceImpl(store, lifecycleService, species.Table{}, log, cfg.OverdueGraceDays)
	log.Info("Lifecycle and milestone services initialized.")

	args := os.Args[1:]
	if len(args) > 0 && args[0] != "serve" {
		if err := checkCommandStorage(cfg.StorageDriver, args[0]); err != nil {
			log.WithError(err).Error("Command rejected")
			closeStore()
			os.Exit(2)
		}
		if err := runCommand(ctx, args, lifecycleService, milestoneService, os.Stdout); err != nil {
			log.WithError(err).Error("Command failed")
			closeStore()
			os.Exit(1)
		}
		return
	}

	overdueScheduler := scheduler.NewOverdueScheduler(milestoneService, log, cfg.CronSpecOverdue)
	if err := overdueScheduler.Start(); err != nil {
		log.Fatalf("Could not add overdue sweep cron job: %v", err)
	}

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", recorder.Handler())
		metricsServer = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.WithField("addr", cfg.MetricsAddr).Info("Metrics listener started.")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("Metrics listener stopped unexpectedly")
			}
		}()
	}

	log.Info("Application setup complete. Scheduler is running...")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit // Block until a signal is received

	log.Info("Shutting down application...")
	overdueScheduler.Stop()
	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("Metrics listener did not shut down cleanly")
		}
	}
	log.Info("Application shut down gracefully.")
}

// openStore builds the store selected by STORAGE_DRIVER, applying migrations for SQL drivers.
func openStore(ctx context.Context, cfg *config.AppConfig) (offspring.Store, func(), error) {
	var db *sql.DB
	var dialect idb.Dialect
	var err error

	switch cfg.StorageDriver {
	case config.DriverMemory:
		return memory.NewStore(), func() {}, nil
	case config.DriverPostgres:
		dialect = idb.DialectPostgres
		db, err = idb.NewPostgresConnection(cfg.DatabaseURL)
	case config.DriverSQLite:
		dialect = idb.DialectSQLite
		db, err = idb.NewSQLiteConnection(cfg.SQLitePath)
	default:
		return nil, nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
	if err != nil {
		return nil, nil, err
	}
	if err := idb.ApplyMigrations(ctx, db, dialect); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	return idb.NewGroupRepository(db, dialect), func() { db.Close() }, nil
}
