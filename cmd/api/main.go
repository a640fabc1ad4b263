package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/flicky/storefront/internal/config"
	"github.com/flicky/storefront/internal/handler"
	"github.com/flicky/storefront/internal/middleware"
	"github.com/flicky/storefront/internal/repository"
	"github.com/flicky/storefront/internal/service"
	"github.com/flicky/storefront/internal/storage"
	"github.com/flicky/storefront/internal/worker"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	poolCfg, err := pgxpool.ParseConfig(cfg.DB.DSN())
	if err != nil {
		log.Error("parse db config", "error", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = cfg.DB.MaxConns

	dbPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		log.Error("ping database", "error", err)
		os.Exit(1)
	}
	if err := repository.Migrate(ctx, dbPool); err != nil {
		log.Error("migrate database", "error", err)
		os.Exit(1)
	}
	log.Info("connected to PostgreSQL")

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to Redis")

	// RabbitMQ: one channel consumes, one publishes.
	amqpConn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		log.Error("connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer amqpConn.Close()

	consumeCh, err := amqpConn.Channel()
	if err != nil {
		log.Error("open RabbitMQ channel", "error", err)
		os.Exit(1)
	}
	defer consumeCh.Close()

	if err := worker.SetupRabbitMQ(consumeCh); err != nil {
		log.Error("setup RabbitMQ", "error", err)
		os.Exit(1)
	}

	publishCh, err := amqpConn.Channel()
	if err != nil {
		log.Error("open RabbitMQ channel", "error", err)
		os.Exit(1)
	}
	defer publishCh.Close()
	log.Info("connected to RabbitMQ")

	// Image storage
	images, err := storage.NewLocalStore(cfg.Upload.Dir, cfg.Upload.PublicPath, cfg.Upload.MaxBytes)
	if err != nil {
		log.Error("prepare upload dir", "error", err)
		os.Exit(1)
	}

	// Repositories
	userRepo := repository.NewUserRepository(dbPool)
	productRepo := repository.NewProductRepository(dbPool)
	cartRepo := repository.NewCartRepository(dbPool)
	orderRepo := repository.NewOrderRepository(dbPool)
	settingsRepo := repository.NewSettingsRepository(dbPool)
	contactRepo := repository.NewContactRepository(dbPool)

	// Services
	authSvc := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration, log)
	userSvc := service.NewUserService(userRepo)
	productSvc := service.NewProductService(productRepo, redisClient, images, log)
	cartSvc := service.NewCartService(cartRepo, productRepo)
	orderSvc := service.NewOrderService(orderRepo, cartRepo, worker.NewPublisher(publishCh), log)
	settingsSvc := service.NewSettingsService(settingsRepo, redisClient, images, log)
	contactSvc := service.NewContactService(contactRepo)
	statsSvc := service.NewStatsService(redisClient)

	if err := settingsSvc.Ensure(ctx); err != nil {
		log.Error("ensure settings", "error", err)
		os.Exit(1)
	}
	if _, err := authSvc.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password); err != nil {
		log.Error("ensure admin user", "error", err)
		os.Exit(1)
	}

	// Handlers
	authH := handler.NewAuthHandler(authSvc)
	userH := handler.NewUserHandler(userSvc)
	productH := handler.NewProductHandler(productSvc, cfg.Upload.MaxBytes)
	cartH := handler.NewCartHandler(cartSvc)
	orderH := handler.NewOrderHandler(orderSvc)
	settingsH := handler.NewSettingsHandler(settingsSvc, cfg.Upload.MaxBytes)
	contactH := handler.NewContactHandler(contactSvc)
	statsH := handler.NewStatsHandler(statsSvc)
	healthH := handler.NewHealthHandler(dbPool, redisClient, amqpConn)

	// Worker
	orderWorker := worker.NewOrderWorker(consumeCh, orderRepo, statsSvc, log)

	// Router
	router := gin.Default()
	router.MaxMultipartMemory = 8 << 20
	router.Use(middleware.CORS(cfg.CORS))
	router.Static(cfg.Upload.PublicPath, cfg.Upload.Dir)
	router.GET("/healthz", healthH.Healthz)
	router.GET("/readyz", healthH.Readyz)

	authRequired := middleware.AuthMiddleware(cfg.JWT.Secret)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/register", authH.Register)
		auth.POST("/login", authH.Login)

		products := v1.Group("/products")
		products.GET("", productH.List)
		products.GET("/:id", productH.GetByID)

		v1.GET("/settings", settingsH.Get)
		v1.POST("/contact", contactH.Submit)

		account := v1.Group("/account", authRequired)
		account.PUT("/password", authH.ChangePassword)

		cart := v1.Group("/cart", authRequired)
		cart.GET("", cartH.GetCart)
		cart.POST("/items", cartH.AddItem)
		cart.PUT("/items/:id", cartH.UpdateItem)
		cart.DELETE("/items/:id", cartH.RemoveItem)

		orders := v1.Group("/orders", authRequired)
		orders.POST("", orderH.Checkout)
		orders.GET("", orderH.ListOrders)
		orders.GET("/:id", orderH.GetOrder)

		admin := v1.Group("/admin", authRequired, middleware.AdminOnly())
		admin.POST("/products", productH.Create)
		admin.PUT("/products/:id", productH.Update)
		admin.POST("/products/:id/image", productH.SetImage)
		admin.DELETE("/products/:id", productH.Delete)

		admin.GET("/orders", orderH.AdminList)
		admin.GET("/orders/export", orderH.Export)
		admin.GET("/orders/:id", orderH.AdminGet)
		admin.PUT("/orders/:id/status", orderH.UpdateStatus)
		admin.DELETE("/orders/:id", orderH.Delete)

		admin.GET("/users", userH.List)
		admin.POST("/users", userH.Create)

		admin.GET("/settings", settingsH.Get)
		admin.PUT("/settings", settingsH.Update)
		admin.POST("/settings/background", settingsH.SetBackground)

		admin.GET("/messages", contactH.List)
		admin.PUT("/messages/:id/read", contactH.MarkRead)

		admin.GET("/stats", statsH.Daily)
	}

	if err := orderWorker.Start(ctx); err != nil {
		log.Error("start order worker", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "error", err)
	}

	orderWorker.Stop()
	time.Sleep(500 * time.Millisecond)
	cancel()
	log.Info("server stopped")
}
