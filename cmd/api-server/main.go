package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/bloodbank-api/api/swagger"
	"github.com/noah-isme/bloodbank-api/internal/handler"
	"github.com/noah-isme/bloodbank-api/internal/middleware"
	"github.com/noah-isme/bloodbank-api/internal/models"
	"github.com/noah-isme/bloodbank-api/internal/repository"
	"github.com/noah-isme/bloodbank-api/internal/service"
	"github.com/noah-isme/bloodbank-api/pkg/config"
	"github.com/noah-isme/bloodbank-api/pkg/database"
	"github.com/noah-isme/bloodbank-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/bloodbank-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/bloodbank-api/pkg/middleware/requestid"
)

// @title Blood Bank API
// @version 1.0.0
// @description Blood bank management service: donors, donations, requests and inventory
// @BasePath /api
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close()

	validate := validator.New()

	store := repository.NewStore(db)
	userRepo := repository.NewUserRepository(db)
	donorRepo := repository.NewDonorRepository(db)
	recipientRepo := repository.NewRecipientRepository(db)
	bankRepo := repository.NewBankRepository(db)
	donationRepo := repository.NewDonationRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	metricsSvc := service.NewMetricsService()
	activitySvc := service.NewActivityService(activityRepo, logr, cfg.Activity)

	authSvc := service.NewAuthService(userRepo, activitySvc, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "bloodbank-api",
	})
	donorSvc := service.NewDonorService(donorRepo, validate, logr)
	recipientSvc := service.NewRecipientService(recipientRepo, validate, logr)
	bankSvc := service.NewBankService(bankRepo, validate, logr)
	donationSvc := service.NewDonationService(store, donationRepo, donorRepo, bankRepo, inventoryRepo, activitySvc, metricsSvc, validate, logr, cfg.Inventory)
	requestSvc := service.NewRequestService(store, requestRepo, recipientRepo, bankRepo, inventoryRepo, activitySvc, metricsSvc, validate, logr)
	inventorySvc := service.NewInventoryService(store, inventoryRepo, bankRepo, activitySvc, metricsSvc, validate, logr, cfg.Inventory)
	expirySvc := service.NewExpiryService(store, donationRepo, inventoryRepo, activitySvc, metricsSvc, logr, cfg.Sweep)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	activitySvc.Start(ctx)
	defer activitySvc.Stop()

	if cfg.Sweep.Enabled {
		expirySvc.Start(ctx)
		defer expirySvc.Stop()
	}

	authHandler := handler.NewAuthHandler(authSvc)
	donorHandler := handler.NewDonorHandler(donorSvc)
	recipientHandler := handler.NewRecipientHandler(recipientSvc)
	bankHandler := handler.NewBankHandler(bankSvc)
	donationHandler := handler.NewDonationHandler(donationSvc)
	requestHandler := handler.NewRequestHandler(requestSvc)
	inventoryHandler := handler.NewInventoryHandler(inventorySvc)
	activityHandler := handler.NewActivityHandler(activitySvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
	auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))

	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	anyRole := middleware.RequireRoles(models.RoleAdmin, models.RoleHospital)

	donors := protected.Group("/donors")
	donors.GET("", anyRole, donorHandler.List)
	donors.GET("/:id", anyRole, donorHandler.Get)
	donors.POST("", adminOnly, donorHandler.Create)
	donors.PUT("/:id", adminOnly, donorHandler.Update)
	donors.DELETE("/:id", adminOnly, donorHandler.Delete)

	recipients := protected.Group("/recipients")
	recipients.GET("", anyRole, recipientHandler.List)
	recipients.GET("/:id", anyRole, recipientHandler.Get)
	recipients.POST("", adminOnly, recipientHandler.Create)
	recipients.PUT("/:id", adminOnly, recipientHandler.Update)
	recipients.DELETE("/:id", adminOnly, recipientHandler.Delete)

	banks := protected.Group("/banks")
	banks.GET("", anyRole, bankHandler.List)
	banks.GET("/:id", anyRole, bankHandler.Get)
	banks.POST("", adminOnly, bankHandler.Create)
	banks.PUT("/:id", adminOnly, bankHandler.Update)
	banks.DELETE("/:id", adminOnly, bankHandler.Delete)

	donations := protected.Group("/donations")
	donations.GET("", anyRole, donationHandler.List)
	donations.GET("/:id", anyRole, donationHandler.Get)
	donations.POST("", adminOnly, donationHandler.Create)
	donations.PUT("/:id/status", adminOnly, donationHandler.UpdateStatus)

	requests := protected.Group("/requests")
	requests.GET("", anyRole, requestHandler.List)
	requests.GET("/:id", anyRole, requestHandler.Get)
	requests.POST("", middleware.RequireRoles(models.RoleHospital), requestHandler.Create)
	requests.PUT("/:id/status", adminOnly, requestHandler.UpdateStatus)

	inventory := protected.Group("/inventory")
	inventory.GET("", anyRole, inventoryHandler.List)
	inventory.GET("/expiring", anyRole, inventoryHandler.Expiring)
	inventory.GET("/report", adminOnly, inventoryHandler.Report)
	inventory.GET("/blood-group/:group", anyRole, inventoryHandler.ListByGroup)
	inventory.POST("/update", adminOnly, inventoryHandler.Adjust)

	protected.GET("/activity", adminOnly, activityHandler.List)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
