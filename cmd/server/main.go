package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	crmapp "github.com/channelops/backend/internal/application/crm"
	insightapp "github.com/channelops/backend/internal/application/insight"
	inventoryapp "github.com/channelops/backend/internal/application/inventory"
	marketplaceapp "github.com/channelops/backend/internal/application/marketplace"
	"github.com/channelops/backend/internal/domain/marketplace"
	"github.com/channelops/backend/internal/infrastructure/auth"
	"github.com/channelops/backend/internal/infrastructure/cache"
	"github.com/channelops/backend/internal/infrastructure/channel"
	"github.com/channelops/backend/internal/infrastructure/config"
	"github.com/channelops/backend/internal/infrastructure/credentials"
	"github.com/channelops/backend/internal/infrastructure/logger"
	"github.com/channelops/backend/internal/infrastructure/persistence"
	"github.com/channelops/backend/internal/infrastructure/scheduler"
	"github.com/channelops/backend/internal/infrastructure/shipping"
	"github.com/channelops/backend/internal/infrastructure/telemetry"
	"github.com/channelops/backend/internal/interfaces/http/handler"
	"github.com/channelops/backend/internal/interfaces/http/middleware"
	"github.com/channelops/backend/internal/interfaces/http/router"
)

// version is set at build time via -ldflags
var version = "dev"

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting ChannelOps backend",
		zap.String("version", version),
		zap.String("env", cfg.App.Env),
	)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Telemetry pipelines
	tracing, err := telemetry.NewTracing(context.Background(), telemetry.TracingConfig{
		Enabled:     cfg.Telemetry.TracingEnabled,
		Endpoint:    cfg.Telemetry.Endpoint,
		SampleRatio: cfg.Telemetry.SampleRatio,
		ServiceName: cfg.App.Name,
		Insecure:    cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	metrics, err := telemetry.NewMetrics(context.Background(), telemetry.MetricsConfig{
		Enabled:     cfg.Telemetry.MetricsEnabled,
		Endpoint:    cfg.Telemetry.Endpoint,
		Interval:    cfg.Telemetry.MetricsInterval,
		ServiceName: cfg.App.Name,
		Insecure:    cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}

	// Database, with SQL logs routed through zap
	gormLog := logger.NewGormLogger(log, logger.GormLevelFor(cfg.Log.Level), 0)
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if tracing.Enabled() {
		if err := telemetry.TraceDatabase(db.DB, cfg.Database.DBName); err != nil {
			log.Fatal("Failed to enable database tracing", zap.Error(err))
		}
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", zap.Error(err))
		}
	}()

	if err := db.DB.AutoMigrate(persistence.AllModels()...); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Credential encryption
	encryptionKey := cfg.Credentials.EncryptionKey
	if encryptionKey == "" {
		encryptionKey = generateEphemeralKey()
		log.Warn("No credential encryption key configured, using an ephemeral key. " +
			"Stored credentials will be unreadable after restart.")
	}
	cipher, err := credentials.NewCipherFromBase64Key(encryptionKey)
	if err != nil {
		log.Fatal("Failed to initialize credential cipher", zap.Error(err))
	}
	credManager := credentials.NewGormCredentialManager(db.DB, cipher)

	// Marketplace adapters
	registry, err := buildAdapterRegistry(cfg, log)
	if err != nil {
		log.Fatal("Failed to configure marketplace adapters", zap.Error(err))
	}
	defer func() {
		if err := registry.CloseAll(); err != nil {
			log.Error("Failed to close marketplace adapters", zap.Error(err))
		}
	}()

	// Idempotency store (Redis with in-memory fallback outside production)
	idemFactory := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	)
	idemStore, err := idemFactory.CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	healthCache := cache.NewHealthSnapshotCache(cfg.Marketplace.HealthCacheTTL)

	// Repositories
	itemRepo := persistence.NewGormItemRepository(db.DB)
	insightRepo := persistence.NewGormInsightRepository(db.DB)
	customerRepo := persistence.NewGormCustomerRepository(db.DB)
	projectRepo := persistence.NewGormProjectRepository(db.DB)
	syncRecordRepo := persistence.NewGormSyncRecordRepository(db.DB)
	activityRecorder := persistence.NewGormActivityRecorder(db.DB, log)

	// Application services
	itemService := inventoryapp.NewItemService(itemRepo)
	insightService := insightapp.NewInsightService(insightRepo)
	customerService := crmapp.NewCustomerService(customerRepo)
	projectService := crmapp.NewProjectService(projectRepo)
	pushService := marketplaceapp.NewPushService(
		itemRepo, credManager, registry, activityRecorder, idemStore, log)
	syncService := marketplaceapp.NewSyncService(
		registry, credManager, syncRecordRepo, healthCache, log)

	// Catalog sync scheduler
	executor := scheduler.NewCatalogSyncExecutor(itemRepo, syncService, log)
	syncScheduler, err := scheduler.NewCatalogSyncScheduler(scheduler.CatalogSyncSchedulerConfig{
		Enabled:           cfg.Scheduler.Enabled,
		MaxConcurrentJobs: cfg.Scheduler.MaxConcurrentJobs,
		JobTimeout:        cfg.Scheduler.JobTimeout,
		RetryAttempts:     cfg.Scheduler.RetryAttempts,
		RetryDelay:        cfg.Scheduler.RetryDelay,
		SyncInterval:      cfg.Scheduler.SyncInterval,
	}, executor, log)
	if err != nil {
		log.Fatal("Failed to create catalog sync scheduler", zap.Error(err))
	}
	cronTrigger := scheduler.NewCatalogSyncCronTrigger(scheduler.CatalogSyncCronTriggerConfig{
		CheckInterval: cfg.Scheduler.CheckInterval,
		SyncInterval:  cfg.Scheduler.SyncInterval,
	}, syncScheduler, credManager, log)

	schedulerCtx, cancelScheduler := context.WithCancel(context.Background())
	defer cancelScheduler()
	if cfg.Scheduler.Enabled {
		if err := syncScheduler.Start(schedulerCtx); err != nil {
			log.Fatal("Failed to start catalog sync scheduler", zap.Error(err))
		}
		if err := cronTrigger.Start(schedulerCtx); err != nil {
			log.Fatal("Failed to start catalog sync cron trigger", zap.Error(err))
		}
	}

	// Authentication
	jwtService := auth.NewJWTService(cfg.JWT)
	blacklist := buildTokenBlacklist(cfg, log)

	// HTTP engine and middleware
	middleware.SetupValidator()
	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	if tracing.Enabled() {
		engine.Use(otelgin.Middleware(cfg.App.Name))
	}
	if metrics.Enabled() {
		engine.Use(telemetry.RequestMetrics(metrics))
	}
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	engine.Use(middleware.CORSWithConfig(corsCfg))

	jwtCfg := middleware.DefaultJWTConfig(jwtService)
	jwtCfg.TokenBlacklist = blacklist
	jwtCfg.Logger = log
	engine.Use(middleware.JWTAuthMiddlewareWithConfig(jwtCfg))

	if cfg.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(limiter))
	}

	// Liveness endpoint outside the versioned API for load balancers
	engine.GET("/healthz", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Handlers
	systemHandler := handler.NewSystemHandler(version)
	itemHandler := handler.NewItemHandler(itemService)
	insightHandler := handler.NewInsightHandler(insightService)
	customerHandler := handler.NewCustomerHandler(customerService)
	projectHandler := handler.NewProjectHandler(projectService)
	marketplaceHandler := handler.NewMarketplaceHandler(
		pushService, syncService, itemRepo, credManager, syncRecordRepo, activityRecorder)

	// Routes
	system := router.NewDomainGroup("system", "/system")
	system.GET("/info", systemHandler.GetSystemInfo).
		GET("/ping", systemHandler.Ping)

	inventoryGroup := router.NewDomainGroup("inventory", "/inventory")
	inventoryGroup.POST("/items", itemHandler.CreateItem).
		GET("/items", itemHandler.ListItems).
		GET("/items/lookup", itemHandler.LookupItem).
		GET("/items/:id", itemHandler.GetItem).
		PUT("/items/:id", itemHandler.UpdateItem).
		POST("/items/:id/adjust-stock", itemHandler.AdjustStock).
		DELETE("/items/:id", middleware.RequireAdmin(), itemHandler.DeleteItem)

	insights := router.NewDomainGroup("insights", "/insights")
	insights.POST("", insightHandler.CreateInsight).
		GET("", insightHandler.ListInsights).
		GET("/:id", insightHandler.GetInsight).
		POST("/:id/approve", insightHandler.ApproveInsight).
		POST("/:id/resolve", insightHandler.ResolveInsight).
		POST("/:id/dismiss", insightHandler.DismissInsight).
		DELETE("/:id", middleware.RequireAdmin(), insightHandler.DeleteInsight)

	crmGroup := router.NewDomainGroup("crm", "/crm")
	crmGroup.POST("/customers", customerHandler.CreateCustomer).
		GET("/customers", customerHandler.ListCustomers).
		GET("/customers/:id", customerHandler.GetCustomer).
		PUT("/customers/:id", customerHandler.UpdateCustomer).
		DELETE("/customers/:id", middleware.RequireAdmin(), customerHandler.DeleteCustomer).
		POST("/projects", projectHandler.CreateProject).
		GET("/projects", projectHandler.ListProjects).
		GET("/projects/:id", projectHandler.GetProject).
		PUT("/projects/:id", projectHandler.UpdateProject).
		POST("/projects/:id/complete", projectHandler.CompleteProject).
		DELETE("/projects/:id", middleware.RequireAdmin(), projectHandler.DeleteProject)

	marketplaces := router.NewDomainGroup("marketplaces", "/marketplaces")
	marketplaces.POST("/:id/initialize", marketplaceHandler.InitializeMarketplace).
		GET("/health", marketplaceHandler.CheckHealth).
		POST("/:id/credentials", marketplaceHandler.StoreCredentials).
		GET("/credentials", marketplaceHandler.ListCredentials).
		DELETE("/:id/credentials", marketplaceHandler.DeleteCredentials).
		POST("/:id/products/:product_id/push", marketplaceHandler.PushProduct).
		POST("/sync/product", marketplaceHandler.SyncProduct).
		POST("/sync/stock", marketplaceHandler.SyncStock).
		GET("/sync/records", marketplaceHandler.ListSyncRecords).
		GET("/activities", marketplaceHandler.ListActivities)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(system).
		Register(inventoryGroup).
		Register(insights).
		Register(crmGroup).
		Register(marketplaces)
	r.Setup()

	// HTTP server
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if cfg.Scheduler.Enabled {
		if err := cronTrigger.Stop(shutdownCtx); err != nil {
			log.Error("Failed to stop catalog sync cron trigger", zap.Error(err))
		}
		if err := syncScheduler.Stop(shutdownCtx); err != nil {
			log.Error("Failed to stop catalog sync scheduler", zap.Error(err))
		}
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Forced shutdown", zap.Error(err))
	}

	if err := metrics.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to stop metrics pipeline", zap.Error(err))
	}
	if err := tracing.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to stop tracing pipeline", zap.Error(err))
	}

	log.Info("Server stopped")
}

// buildAdapterRegistry validates vendor configuration once and registers an
// adapter constructor per supported marketplace and carrier
func buildAdapterRegistry(cfg *config.Config, log *zap.Logger) (*channel.Factory, error) {
	amazonCfg := channel.NewAmazonConfig()
	amazonCfg.DefaultMarketplaceID = amazonCfg.MarketplaceIDForRegion(cfg.Marketplace.AmazonRegion)
	amazonCfg.TimeoutSeconds = cfg.Marketplace.RequestTimeoutSeconds
	if err := amazonCfg.Validate(); err != nil {
		return nil, err
	}

	shopifyCfg := channel.NewShopifyConfig()
	if cfg.Marketplace.ShopifyAPIVersion != "" {
		shopifyCfg.APIVersion = cfg.Marketplace.ShopifyAPIVersion
	}
	shopifyCfg.TimeoutSeconds = cfg.Marketplace.RequestTimeoutSeconds
	if err := shopifyCfg.Validate(); err != nil {
		return nil, err
	}

	takealotCfg := channel.NewTakealotConfig()
	if cfg.Marketplace.TakealotBaseURL != "" {
		takealotCfg.APIBaseURL = cfg.Marketplace.TakealotBaseURL
	}
	takealotCfg.TimeoutSeconds = cfg.Marketplace.RequestTimeoutSeconds
	if err := takealotCfg.Validate(); err != nil {
		return nil, err
	}

	dhlCfg := shipping.NewDHLConfig()
	dhlCfg.TimeoutSeconds = cfg.Marketplace.RequestTimeoutSeconds
	if err := dhlCfg.Validate(); err != nil {
		return nil, err
	}

	fedexCfg := shipping.NewFedExConfig()
	fedexCfg.TimeoutSeconds = cfg.Marketplace.RequestTimeoutSeconds
	if err := fedexCfg.Validate(); err != nil {
		return nil, err
	}

	factory := channel.NewFactory(log)
	factory.Register(marketplace.CodeAmazon, func() marketplace.Adapter {
		return mustAdapter(channel.NewAmazonAdapter(amazonCfg))
	})
	factory.Register(marketplace.CodeShopify, func() marketplace.Adapter {
		return mustAdapter(channel.NewShopifyAdapter(shopifyCfg))
	})
	factory.Register(marketplace.CodeTakealot, func() marketplace.Adapter {
		return mustAdapter(channel.NewTakealotAdapter(takealotCfg))
	})
	factory.Register(marketplace.CodeDHL, func() marketplace.Adapter {
		return mustAdapter(shipping.NewDHLAdapter(dhlCfg))
	})
	factory.Register(marketplace.CodeFedEx, func() marketplace.Adapter {
		return mustAdapter(shipping.NewFedExAdapter(fedexCfg))
	})
	return factory, nil
}

// mustAdapter panics on construction errors. Configs are validated before
// registration, so a failure here is a programming error.
func mustAdapter[T marketplace.Adapter](adapter T, err error) marketplace.Adapter {
	if err != nil {
		panic(err)
	}
	return adapter
}

// buildTokenBlacklist prefers Redis so revocation survives restarts and
// spans instances, falling back to in-memory
func buildTokenBlacklist(cfg *config.Config, log *zap.Logger) auth.TokenBlacklist {
	blacklist, err := auth.NewRedisTokenBlacklist(auth.RedisTokenBlacklistConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn("Redis unavailable for token blacklist, using in-memory store", zap.Error(err))
		return auth.NewInMemoryTokenBlacklist()
	}
	return blacklist
}

// generateEphemeralKey returns a random base64-encoded AES-256 key
func generateEphemeralKey() string {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic(err)
	}
	return base64.StdEncoding.EncodeToString(key)
}
