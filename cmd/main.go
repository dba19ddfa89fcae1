package main

import (
	"github.com/wrhermikkhh/InfiniteHome-sub000/internal/handler"
	mid "github.com/wrhermikkhh/InfiniteHome-sub000/internal/middleware"
	"github.com/wrhermikkhh/InfiniteHome-sub000/internal/model"
	"github.com/wrhermikkhh/InfiniteHome-sub000/pkg/config"
	"github.com/wrhermikkhh/InfiniteHome-sub000/pkg/database"
	"github.com/wrhermikkhh/InfiniteHome-sub000/pkg/jwtutil"
	"github.com/wrhermikkhh/InfiniteHome-sub000/pkg/logger"
	"github.com/wrhermikkhh/InfiniteHome-sub000/pkg/mailer"
	"github.com/wrhermikkhh/InfiniteHome-sub000/prometheus"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		// Can't use structured logger yet since it's not initialized
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	logger.InitLogger(cfg)
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting storefront service",
		zap.String("environment", cfg.Server.Env),
		zap.String("port", cfg.Server.Port))

	// Initialize JWT utility
	jwtutil.Initialize(&cfg.JWT)

	// Initialize Prometheus metrics
	prometheus.InitMetrics(cfg)
	log.Info("Prometheus metrics initialized",
		zap.String("metrics_prefix", cfg.Metrics.Prefix))

	// Initialize database
	if err := database.InitDB(cfg); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Initialize mail dispatch and checkout defaults
	mailer.Initialize(&cfg.Mailer)
	handler.Initialize(cfg)

	// Seed the back-office admin account if configured
	if err := seedAdmin(cfg, log); err != nil {
		log.Fatal("Failed to seed admin account", zap.Error(err))
	}

	// Initialize Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(mid.RequestIDMiddleware)
	e.Use(mid.MetricsMiddleware)

	// Metrics endpoint
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	// Authentication
	auth := e.Group("/auth")
	auth.POST("/register", handler.Register)
	auth.POST("/login", handler.Login)

	// Public storefront routes
	e.GET("/api/catalog", handler.StorefrontProducts)
	e.GET("/api/catalog/:id", handler.GetProduct)
	e.GET("/api/orders/track/:orderNumber", handler.TrackOrder)
	e.POST("/api/orders", handler.CreateOrder)
	e.POST("/api/coupons/validate", handler.ValidateCoupon)

	// Cart routes - token-addressed, no authentication required
	carts := e.Group("/api/carts")
	carts.POST("", handler.CreateCart)
	carts.GET("/:token", handler.GetCart)
	carts.PUT("/:token/items", handler.ReplaceCartItems)
	carts.DELETE("/:token", handler.DeleteCart)

	// Customer account routes
	account := e.Group("/api/account", mid.AuthMiddleware)
	account.GET("/profile", handler.GetProfile)
	account.PATCH("/profile", handler.UpdateProfile)
	account.GET("/orders", handler.MyOrders)

	// Admin back-office routes
	admin := e.Group("/api/admin", mid.AuthMiddleware, mid.RequireAdmin)
	admin.GET("/products", handler.ListProducts)
	admin.GET("/products/low-stock", handler.LowStockReport)
	admin.GET("/products/:id", handler.GetProduct)
	admin.POST("/products", handler.CreateProduct)
	admin.PUT("/products/:id", handler.UpdateProduct)
	admin.DELETE("/products/:id", handler.DeleteProduct)

	admin.GET("/orders", handler.ListOrders)
	admin.GET("/orders/:id", handler.GetOrder)
	admin.PATCH("/orders/:id/status", handler.UpdateOrderStatus)

	admin.GET("/coupons", handler.ListCoupons)
	admin.GET("/coupons/:id", handler.GetCoupon)
	admin.POST("/coupons", handler.CreateCoupon)
	admin.PUT("/coupons/:id", handler.UpdateCoupon)
	admin.DELETE("/coupons/:id", handler.DeleteCoupon)

	// POS routes - counter staff authenticate with admin accounts
	pos := e.Group("/api/pos", mid.AuthMiddleware, mid.RequireAdmin)
	pos.POST("/transactions", handler.CreatePosTransaction)
	pos.GET("/transactions", handler.ListPosTransactions)
	pos.GET("/transactions/:id", handler.GetPosTransaction)
	pos.PATCH("/transactions/:id/status", handler.UpdatePosTransactionStatus)

	// Start server
	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Server error", zap.Error(err))
	}
}

// seedAdmin ensures the configured back-office account exists
func seedAdmin(cfg *config.Config, log *zap.Logger) error {
	if cfg.Admin.Password == "" {
		log.Warn("No admin password configured, skipping admin seed")
		return nil
	}

	db := database.GetDB()

	var count int64
	if err := db.Model(&model.Customer{}).Where("email = ?", cfg.Admin.Email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.Admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := model.Customer{
		Email:    cfg.Admin.Email,
		Password: string(hashed),
		Name:     "Administrator",
		Role:     model.RoleAdmin,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	log.Info("Admin account seeded", zap.String("email", admin.Email))
	return nil
}
