// Package main is the entry point for the medstock background worker.
// It drains the report generation queue.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"medstock/internal/domain/catalogs/product"
	"medstock/internal/domain/inventory/lot"
	"medstock/internal/domain/ledger"
	"medstock/internal/domain/reporting"
	"medstock/internal/infrastructure/storage/postgres"
	"medstock/internal/infrastructure/storage/postgres/catalog_repo"
	"medstock/internal/infrastructure/storage/postgres/register_repo"
	"medstock/internal/infrastructure/storage/postgres/report_repo"
	"medstock/pkg/logger"
	"medstock/pkg/numerator"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting medstock worker")

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(mustEnv("DATABASE_URL")))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)

	auditService, err := postgres.NewAuditService(txManager)
	if err != nil {
		log.Fatalw("failed to initialize audit service", "error", err)
	}

	lotService := lot.NewService(register_repo.NewLotRepo(txManager), txManager)
	ledgerService := ledger.NewService(register_repo.NewMovementRepo(txManager))
	productService := product.NewService(catalog_repo.NewProductRepo(txManager), txManager, numerator.New(pool))

	reportService := reporting.NewService(
		report_repo.NewReportRepo(txManager),
		report_repo.NewJobRepo(txManager),
		ledgerService,
		lotService,
		productService,
		txManager,
		auditService,
	)

	worker := NewReportWorker(reportService, log)
	worker.pollInterval = getEnvDuration("WORKER_POLL_INTERVAL", worker.pollInterval)
	worker.batchSize = getEnvInt("WORKER_BATCH_SIZE", worker.batchSize)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

// ReportWorker polls the report job queue and runs the aggregation.
type ReportWorker struct {
	reports *reporting.Service
	log     *logger.Logger

	pollInterval time.Duration
	batchSize    int
}

func NewReportWorker(reports *reporting.Service, log *logger.Logger) *ReportWorker {
	return &ReportWorker{
		reports:      reports,
		log:          log.WithComponent("report-worker"),
		pollInterval: 2 * time.Second,
		batchSize:    5,
	}
}

// Run polls until the context is cancelled.
func (w *ReportWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			processed, err := w.reports.ProcessPending(ctx, w.batchSize)
			if err != nil {
				w.log.Errorw("report job batch failed", "error", err)
				continue
			}
			if processed > 0 {
				w.log.Infow("processed report jobs", "count", processed)
			}
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
