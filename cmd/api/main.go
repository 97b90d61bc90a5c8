package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/mzemr/record-api/internal/config"
	"github.com/mzemr/record-api/internal/external"
	authHandler "github.com/mzemr/record-api/internal/handler/auth"
	dictHandler "github.com/mzemr/record-api/internal/handler/dict"
	exportHandler "github.com/mzemr/record-api/internal/handler/export"
	"github.com/mzemr/record-api/internal/handler/health"
	printHandler "github.com/mzemr/record-api/internal/handler/printing"
	recordHandler "github.com/mzemr/record-api/internal/handler/record"
	"github.com/mzemr/record-api/internal/middleware"
	"github.com/mzemr/record-api/internal/repository/postgres"
	"github.com/mzemr/record-api/internal/router"
	authService "github.com/mzemr/record-api/internal/service/auth"
	dictService "github.com/mzemr/record-api/internal/service/dict"
	exportService "github.com/mzemr/record-api/internal/service/export"
	prefillService "github.com/mzemr/record-api/internal/service/prefill"
	printService "github.com/mzemr/record-api/internal/service/printing"
	recordService "github.com/mzemr/record-api/internal/service/record"
	"github.com/mzemr/record-api/internal/service/validation"
	"github.com/mzemr/record-api/pkg/logger"
	"github.com/mzemr/record-api/pkg/security"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
	})

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	adapter, err := external.NewAdapter(cfg.External, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to HIS views")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		// Recents and favorites degrade without Redis; the API still runs.
		log.Warn().Err(err).Msg("redis unreachable at startup")
	}
	defer redisClient.Close()

	recordRepo := postgres.NewRecordRepository(db)
	dictRepo := postgres.NewDictRepository(db)
	exportLogRepo := postgres.NewExportLogRepository(db)
	auditRepo := postgres.NewAuditRepository(db)
	userRepo := postgres.NewUserRepository(db)

	engine := validation.NewEngine(validation.NewCachedLookup(dictRepo, cfg.Dict.CacheTTL))

	authSvc := authService.NewService(
		userRepo,
		security.NewBcryptHasher(0),
		cfg.JWT.Secret,
		time.Duration(cfg.JWT.ExpiryHours)*time.Hour,
		log,
	)
	prefillSvc := prefillService.NewService(adapter, log)
	recordSvc := recordService.NewService(recordRepo, auditRepo, adapter, engine, log)
	dictSvc := dictService.NewService(dictRepo, dictService.NewRedisUsageStore(redisClient, log), log)
	exportSvc := exportService.NewService(recordRepo, exportLogRepo, adapter, engine, log)
	printSvc := printService.NewService(recordRepo, exportLogRepo, adapter, engine, log)

	authMiddleware := middleware.NewAuthMiddleware(authSvc)

	r := router.New(
		authMiddleware,
		health.NewHandler(db),
		authHandler.NewHandler(authSvc),
		recordHandler.NewHandler(recordSvc, prefillSvc),
		dictHandler.NewHandler(dictSvc),
		exportHandler.NewHandler(exportSvc),
		printHandler.NewHandler(printSvc),
		router.Config{
			RateLimit: rate.Limit(cfg.Server.RateLimit),
			RateBurst: cfg.Server.RateBurst,
		},
		log,
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}
