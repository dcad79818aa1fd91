package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"listings-cms/internal/auth"
	"listings-cms/internal/cache"
	"listings-cms/internal/config"
	"listings-cms/internal/logger"
	"listings-cms/internal/queue"
	"listings-cms/internal/scheduler"
	"listings-cms/internal/store"
	"listings-cms/internal/telemetry"
	"listings-cms/models"
	"listings-cms/routes"
	"listings-cms/services"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	// pruneAt is the daily UTC time for the upload sweep.
	pruneAt    = "03:30"
	jobTimeout = 2 * time.Minute
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	if cfg.OTELEnabled {
		shutdown, err := telemetry.InitTracer(context.Background(), "listings-cms", cfg.OTELEndpoint, cfg.GinMode)
		if err != nil {
			logger.Warn("tracing disabled", "error", err)
		} else {
			defer shutdown()
		}
	}

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Fatal("Failed to initialize metrics:", err)
	}

	// Connect to MongoDB
	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := mongoClient.Disconnect(ctx); err != nil {
			logger.Error("mongo disconnect failed", "error", err)
		}
	}()
	db := mongoClient.Database(cfg.DBName)

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer rdb.Close()

	addr, password, redisDB := cfg.AsynqRedisAddr()
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: addr, Password: password, DB: redisDB})
	defer asynqClient.Close()

	listingCache := cache.NewRedisCache(rdb, cfg.CacheStaleTTL, metrics)
	listingOpts := services.ListingOptions{
		Cache:    listingCache,
		TTL:      cfg.CacheTTL,
		StaleTTL: cfg.CacheStaleTTL,
		Observer: metrics,
	}

	profiles := services.NewListingService[models.Profile](config.ProfilesCollection,
		store.NewMongoRepository[models.Profile](db.Collection(config.ProfilesCollection), metrics), listingOpts)
	highProfiles := services.NewListingService[models.HighProfileCallGirl](config.HighProfilesCollection,
		store.NewMongoRepository[models.HighProfileCallGirl](db.Collection(config.HighProfilesCollection), metrics), listingOpts)
	rateCard := services.NewListingService[models.Service](config.ServicesCollection,
		store.NewMongoRepository[models.Service](db.Collection(config.ServicesCollection), metrics), listingOpts)
	extraServices := services.NewListingService[models.ExtraService](config.ExtraServicesCollection,
		store.NewMongoRepository[models.ExtraService](db.Collection(config.ExtraServicesCollection), metrics), listingOpts)
	finalCallGirls := services.NewListingService[models.FinalCallGirl](config.FinalCallGirlsCollection,
		store.NewMongoRepository[models.FinalCallGirl](db.Collection(config.FinalCallGirlsCollection), metrics), listingOpts)

	videoService := services.NewVideoService(
		store.NewSingleton[models.VideoSettings](db.Collection(config.VideoSettingsCollection), metrics),
		services.VideoOptions{
			UploadsDir:   cfg.UploadsDir,
			MaxSize:      cfg.MaxVideoSize,
			DefaultPhone: cfg.DefaultPhoneNumber,
			UploadRate:   cfg.UploadRate,
			Pruner:       queue.NewProducer(asynqClient),
			Recorder:     metrics,
		},
	)

	sessions, err := auth.NewManager(cfg.SessionSecret, cfg.SessionTTL, auth.NewRedisTokenStore(rdb))
	if err != nil {
		log.Fatal("Failed to initialize sessions:", err)
	}
	adminService, err := services.NewAdminService(
		services.NewMongoAdminStore(db.Collection(config.AdminUsersCollection)), sessions, cfg.BcryptCost)
	if err != nil {
		log.Fatal("Failed to initialize admin service:", err)
	}
	if cfg.AdminUsername != "" && cfg.AdminPassword != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		created, err := adminService.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword)
		cancel()
		if err != nil {
			log.Fatal("Failed to bootstrap admin user:", err)
		}
		if created {
			logger.Info("admin user created", "username", cfg.AdminUsername)
		}
	}

	exportService := services.NewExportService(
		services.ProfilesSheet(profiles),
		services.HighProfilesSheet(highProfiles),
		services.ServicesSheet(rateCard),
		services.ExtraServicesSheet(extraServices),
		services.FinalCallGirlsSheet(finalCallGirls),
	)

	auditLogger := services.NewAuditLogger(services.NewMongoAuditStore(db.Collection(config.AuditLogsCollection)), 256)
	auditLogger.Start()

	jobs := scheduler.New(jobTimeout)
	warmers := []interface {
		Warm(ctx context.Context) error
	}{profiles, highProfiles, rateCard, extraServices, finalCallGirls}
	if err := jobs.ScheduleInterval(scheduler.TagCacheWarm, cfg.CacheWarmInterval, func(ctx context.Context) error {
		var errs []error
		for _, w := range warmers {
			if err := w.Warm(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}); err != nil {
		log.Fatal("Failed to schedule cache warm-up:", err)
	}
	if err := jobs.ScheduleDaily(scheduler.TagUploadPrune, pruneAt, func(ctx context.Context) error {
		keep, err := videoService.CurrentFile(ctx)
		if err != nil {
			return err
		}
		removed, err := services.PruneVideos(videoService.UploadsDir(), keep)
		if len(removed) > 0 {
			logger.Info("pruned superseded videos", "count", len(removed), "kept", keep)
		}
		return err
	}); err != nil {
		log.Fatal("Failed to schedule upload pruning:", err)
	}
	jobs.Start()

	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	mongoPing := func(ctx context.Context) error {
		return mongoClient.Ping(ctx, readpref.Primary())
	}
	router := routes.NewRouter(routes.Dependencies{
		Config:         cfg,
		Profiles:       profiles,
		HighProfiles:   highProfiles,
		Services:       rateCard,
		ExtraServices:  extraServices,
		FinalCallGirls: finalCallGirls,
		Video:          videoService,
		Admin:          adminService,
		Export:         exportService,
		Audit:          auditLogger,
		Redis:          rdb,
		Metrics:        metrics,
		MongoPing:      mongoPing,
		Checks: map[string]routes.PingFunc{
			"mongo": mongoPing,
			"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port, "mode", cfg.GinMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	jobs.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	auditLogger.Close()

	logger.Info("server exited")
}
