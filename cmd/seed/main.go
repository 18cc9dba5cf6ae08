// Package main provides a CLI tool for seeding the database with initial data.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"medstock/internal/core/apperror"
	"medstock/internal/core/types"
	"medstock/internal/domain/auth"
	"medstock/internal/domain/catalogs/facility"
	"medstock/internal/domain/catalogs/product"
	"medstock/internal/domain/inventory/lot"
	"medstock/internal/domain/inventory/stock"
	"medstock/internal/domain/ledger"
	"medstock/internal/infrastructure/storage/postgres"
	"medstock/internal/infrastructure/storage/postgres/auth_repo"
	"medstock/internal/infrastructure/storage/postgres/catalog_repo"
	"medstock/internal/infrastructure/storage/postgres/register_repo"
	"medstock/pkg/logger"
	"medstock/pkg/numerator"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	txManager := postgres.NewTxManager(pool)

	if err := seedAdminUser(ctx, txManager, log); err != nil {
		log.Fatalw("failed to seed admin user", "error", err)
	}

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := seedDemoData(ctx, pool, txManager, log); err != nil {
			log.Fatalw("failed to seed demo data", "error", err)
		}
	}

	log.Info("seeding completed successfully")
}

func seedAdminUser(ctx context.Context, txManager *postgres.TxManager, log *logger.Logger) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	if adminEmail == "" {
		adminEmail = "admin@medstock.local"
	}

	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "Admin123!"
	}

	userRepo := auth_repo.NewUserRepo(txManager)

	exists, err := userRepo.Exists(ctx, adminEmail)
	if err != nil {
		return fmt.Errorf("check admin exists: %w", err)
	}
	if exists {
		log.Infow("admin user already exists", "email", adminEmail)
		return nil
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := auth.NewUser(adminEmail, string(passwordHash))
	user.FullName = "System Admin"
	user.IsAdmin = true

	err = txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return userRepo.Create(ctx, user)
	})
	if err != nil {
		return fmt.Errorf("insert admin user: %w", err)
	}

	log.Infow("admin user created", "email", adminEmail, "user_id", user.ID)
	return nil
}

func seedDemoData(ctx context.Context, pool *postgres.Pool, txManager *postgres.TxManager, log *logger.Logger) error {
	num := numerator.New(pool)

	facilityService := facility.NewService(catalog_repo.NewFacilityRepo(txManager), txManager, num)
	productService := product.NewService(catalog_repo.NewProductRepo(txManager), txManager, num)

	lotService := lot.NewService(register_repo.NewLotRepo(txManager), txManager)
	ledgerService := ledger.NewService(register_repo.NewMovementRepo(txManager))
	stockService := stock.NewService(lotService, ledgerService, txManager)

	// --- Facilities ---
	warehouse := facility.NewFacility("WH-CENTRAL", "Central Warehouse", facility.TypeWarehouse)
	clinic := facility.NewFacility("CL-NORTH", "North Clinic", facility.TypeHealthFacility)

	for _, f := range []*facility.Facility{warehouse, clinic} {
		if err := facilityService.Create(ctx, f); err != nil {
			if appErr, ok := apperror.AsAppError(err); ok && appErr.Code == apperror.CodeDuplicate {
				log.Infow("facility already exists", "code", f.Code)
				continue
			}
			return fmt.Errorf("create facility %s: %w", f.Code, err)
		}
		log.Infow("facility created", "code", f.Code, "id", f.ID)
	}

	// --- Products ---
	amoxicillin := product.NewProduct("MED-0001", "Amoxicillin 500mg", "capsule", product.CategoryMedicine)
	amoxicillin.LeadTimeMonths = decimal.NewFromInt(2)
	paracetamol := product.NewProduct("MED-0002", "Paracetamol 500mg", "tablet", product.CategoryMedicine)
	gloves := product.NewProduct("SUP-0001", "Examination Gloves", "pair", product.CategoryConsumable)
	gloves.TrackExpiry = false

	for _, p := range []*product.Product{amoxicillin, paracetamol, gloves} {
		if err := productService.Create(ctx, p); err != nil {
			if appErr, ok := apperror.AsAppError(err); ok && appErr.Code == apperror.CodeDuplicate {
				log.Infow("product already exists", "code", p.Code)
				continue
			}
			return fmt.Errorf("create product %s: %w", p.Code, err)
		}
		log.Infow("product created", "code", p.Code, "id", p.ID)
	}

	// --- Opening stock at the warehouse ---
	expiry := time.Now().UTC().AddDate(1, 0, 0)
	receipts := []lot.ReceiveInput{
		{
			FacilityID:  warehouse.ID,
			ProductID:   amoxicillin.ID,
			BatchNumber: "AMX-2026-001",
			ExpiryDate:  &expiry,
			Quantity:    types.NewQuantityFromInt(500),
			Unit:        "capsule",
		},
		{
			FacilityID:  warehouse.ID,
			ProductID:   paracetamol.ID,
			BatchNumber: "PCM-2026-001",
			ExpiryDate:  &expiry,
			Quantity:    types.NewQuantityFromInt(1200),
			Unit:        "tablet",
		},
		{
			FacilityID:  warehouse.ID,
			ProductID:   gloves.ID,
			BatchNumber: "GLV-2026-001",
			Quantity:    types.NewQuantityFromInt(2000),
			Unit:        "pair",
		},
	}

	for _, in := range receipts {
		if _, err := stockService.Receive(ctx, in); err != nil {
			return fmt.Errorf("receive batch %s: %w", in.BatchNumber, err)
		}
		log.Infow("batch received", "batch", in.BatchNumber, "quantity", in.Quantity)
	}

	return nil
}
