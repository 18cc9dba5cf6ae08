// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"medstock/internal/domain/auth"
	"medstock/internal/domain/catalogs/facility"
	"medstock/internal/domain/catalogs/product"
	"medstock/internal/domain/consumption"
	"medstock/internal/domain/dispensing"
	"medstock/internal/domain/inventory/lot"
	"medstock/internal/domain/inventory/stock"
	"medstock/internal/domain/ledger"
	"medstock/internal/domain/orders"
	"medstock/internal/domain/reporting"
	"medstock/internal/domain/transfers"
	"medstock/internal/infrastructure/http/v1/handlers"
	"medstock/internal/infrastructure/http/v1/middleware"
	"medstock/internal/infrastructure/storage/postgres"
	"medstock/pkg/logger"
)

// RouterConfig wires the assembled services into the HTTP surface.
type RouterConfig struct {
	Pool   *postgres.Pool
	Logger *logger.Logger

	JWTValidator middleware.JWTValidator
	AuthService  *auth.Service

	FacilityService *facility.Service
	ProductService  *product.Service

	StockService  *stock.Service
	LotService    *lot.Service
	LedgerService *ledger.Service

	DispenseService *dispensing.Service
	TransferService *transfers.Service
	OrderService    *orders.Service

	ReportService      *reporting.Service
	ConsumptionService *consumption.Service
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	baseHandler := handlers.NewBaseHandler()

	// API v1
	v1 := router.Group("/api/v1")
	{
		// Auth: public register/login, protected /me
		authHandler := handlers.NewAuthHandler(baseHandler, cfg.AuthService)
		publicAuth := v1.Group("/auth")
		protectedAuth := v1.Group("/auth")
		protectedAuth.Use(middleware.Auth(cfg.JWTValidator))
		authHandler.RegisterRoutes(publicAuth, protectedAuth)

		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))

		registerCatalogRoutes(protected, baseHandler, cfg)
		registerStockRoutes(protected, baseHandler, cfg)
		registerDocumentRoutes(protected, baseHandler, cfg)
		registerReportRoutes(protected, baseHandler, cfg)
	}

	return router
}

// registerCatalogRoutes registers facility and product catalog endpoints.
func registerCatalogRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	// --- FACILITIES ---
	{
		handler := handlers.NewFacilityHandler(base, cfg.FacilityService)
		g := rg.Group("/facilities")
		g.GET("", handler.List)
		g.POST("", middleware.RequireRole("admin"), handler.Create)
		g.GET("/:id", handler.Get)
		g.GET("/by-code/:code", handler.GetByCode)
		g.PUT("/:id", middleware.RequireRole("admin"), handler.Update)
		g.POST("/:id/active", middleware.RequireRole("admin"), handler.SetActive)
	}

	// --- PRODUCTS ---
	{
		handler := handlers.NewProductHandler(base, cfg.ProductService)
		g := rg.Group("/products")
		g.GET("", handler.List)
		g.POST("", middleware.RequireRole("admin"), handler.Create)
		g.GET("/:id", handler.Get)
		g.GET("/by-code/:code", handler.GetByCode)
		g.GET("/by-barcode/:barcode", handler.GetByBarcode)
		g.PUT("/:id", middleware.RequireRole("admin"), handler.Update)
		g.POST("/:id/active", middleware.RequireRole("admin"), handler.SetActive)
	}
}

// registerStockRoutes registers lot store and movement ledger endpoints.
func registerStockRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	handler := handlers.NewStockHandler(base, cfg.StockService, cfg.LotService, cfg.LedgerService)

	rg.POST("/stock/receive", handler.Receive)
	rg.GET("/lots/:id", handler.GetLot)
	rg.POST("/lots/:id/adjust", handler.AdjustLot)

	rg.GET("/facilities/:id/lots", handler.ListLots)
	rg.GET("/facilities/:id/stock/:productId", handler.TotalQuantity)
	rg.GET("/facilities/:id/movements", handler.ListMovements)
}

// registerDocumentRoutes registers dispense, transfer and order endpoints.
func registerDocumentRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	// --- DISPENSES ---
	{
		handler := handlers.NewDispenseHandler(base, cfg.DispenseService)
		rg.POST("/dispenses", handler.Create)
		rg.GET("/dispenses/:id", handler.Get)
		rg.GET("/facilities/:id/dispenses", handler.List)
	}

	// --- TRANSFERS ---
	{
		handler := handlers.NewTransferHandler(base, cfg.TransferService)
		rg.POST("/transfers", handler.Create)
		rg.GET("/transfers/:id", handler.Get)
		rg.POST("/transfers/:id/dispatch", handler.Dispatch)
		rg.POST("/transfers/:id/receive", handler.Receive)
		rg.GET("/facilities/:id/transfers", handler.List)
	}

	// --- ORDERS ---
	{
		handler := handlers.NewOrderHandler(base, cfg.OrderService)
		rg.POST("/orders", handler.Create)
		rg.GET("/orders/:id", handler.Get)
		rg.POST("/orders/:id/deliveries", handler.ReceiveDelivery)
		rg.GET("/facilities/:id/orders", handler.List)
	}
}

// registerReportRoutes registers monthly report and consumption endpoints.
func registerReportRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	handler := handlers.NewReportHandler(base, cfg.ReportService, cfg.ConsumptionService, cfg.ProductService)

	rg.POST("/facilities/:id/reports", handler.Generate)
	rg.GET("/facilities/:id/reports", handler.List)
	rg.GET("/facilities/:id/reports/:period", handler.GetForPeriod)
	rg.GET("/reports/:id", handler.Get)
	rg.POST("/reports/:id/submit", handler.Submit)
	rg.POST("/reports/:id/approve", middleware.RequireRole("supervisor"), handler.Approve)
	rg.PUT("/report-items/:id", handler.UpdateItem)

	rg.GET("/facilities/:id/products/:productId/amc", handler.AMC)
	rg.GET("/facilities/:id/products/:productId/reorder-level", handler.ReorderLevel)
}
