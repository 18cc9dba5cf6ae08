// Package main is the entry point for the medstock API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medstock/internal/domain/auth"
	"medstock/internal/domain/catalogs/facility"
	"medstock/internal/domain/catalogs/product"
	"medstock/internal/domain/consumption"
	"medstock/internal/domain/dispensing"
	"medstock/internal/domain/inventory/allocation"
	"medstock/internal/domain/inventory/lot"
	"medstock/internal/domain/inventory/stock"
	"medstock/internal/domain/ledger"
	"medstock/internal/domain/orders"
	"medstock/internal/domain/reporting"
	"medstock/internal/domain/transfers"
	v1 "medstock/internal/infrastructure/http/v1"
	"medstock/internal/infrastructure/storage/postgres"
	"medstock/internal/infrastructure/storage/postgres/auth_repo"
	"medstock/internal/infrastructure/storage/postgres/catalog_repo"
	"medstock/internal/infrastructure/storage/postgres/document_repo"
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

	ctx := context.Background()
	log.Info("starting medstock server")

	// --- Database ---
	dsn := mustEnv("DATABASE_URL")
	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dsn))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// --- Auth ---
	jwtSecret := getEnv("JWT_SECRET", "your-secret-key-change-in-production")
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(jwtSecret))
	userRepo := auth_repo.NewUserRepo(txManager)
	authService := auth.NewService(userRepo, txManager, jwtService, auth.DefaultServiceConfig())

	// --- Shared infrastructure ---
	numeratorService := numerator.New(pool)
	auditService, err := postgres.NewAuditService(txManager)
	if err != nil {
		log.Fatalw("failed to initialize audit service", "error", err)
	}

	// --- Catalogs ---
	facilityService := facility.NewService(catalog_repo.NewFacilityRepo(txManager), txManager, numeratorService)
	productRepo := catalog_repo.NewProductRepo(txManager)
	productService := product.NewService(productRepo, txManager, numeratorService)

	// --- Inventory core ---
	lotRepo := register_repo.NewLotRepo(txManager)
	lotService := lot.NewService(lotRepo, txManager)
	ledgerService := ledger.NewService(register_repo.NewMovementRepo(txManager))
	allocationEngine := allocation.NewEngine(lotService, txManager)
	stockService := stock.NewService(lotService, ledgerService, txManager)

	// --- Documents ---
	dispenseService := dispensing.NewService(
		document_repo.NewDispenseRepo(txManager), allocationEngine, ledgerService, numeratorService, txManager)
	transferService := transfers.NewService(
		document_repo.NewTransferRepo(txManager), allocationEngine, lotService, ledgerService, numeratorService, txManager)
	orderService := orders.NewService(
		document_repo.NewOrderRepo(txManager), lotService, ledgerService, numeratorService, txManager)

	// --- Reporting & consumption ---
	reportService := reporting.NewService(
		report_repo.NewReportRepo(txManager),
		report_repo.NewJobRepo(txManager),
		ledgerService,
		lotService,
		productService,
		txManager,
		auditService,
	)
	consumptionService := consumption.NewService(report_repo.NewConsumptionRepo(txManager))

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:               pool,
		Logger:             log,
		JWTValidator:       jwtService,
		AuthService:        authService,
		FacilityService:    facilityService,
		ProductService:     productService,
		StockService:       stockService,
		LotService:         lotService,
		LedgerService:      ledgerService,
		DispenseService:    dispenseService,
		TransferService:    transferService,
		OrderService:       orderService,
		ReportService:      reportService,
		ConsumptionService: consumptionService,
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
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
