package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"pollsight/datahub/internal/config"
	"pollsight/datahub/internal/handler"
	"pollsight/datahub/internal/metrics"
	"pollsight/datahub/internal/model"
	"pollsight/datahub/internal/repository"
	"pollsight/datahub/internal/service"
	"pollsight/datahub/pkg/asyncop"
	jwtpkg "pollsight/datahub/pkg/jwt"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// 2. Initialize logger
	var logger *zap.Logger
	if cfg.Log.Format == "json" {
		logger, _ = zap.NewProduction()
	} else {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	// 3. Connect to PostgreSQL
	db, err := config.NewPostgresDB(cfg.Database.Postgres)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}

	// 4. Auto-migrate if enabled
	if cfg.Database.Postgres.AutoMigrate {
		if err := model.AutoMigrate(db); err != nil {
			logger.Fatal("failed to auto-migrate", zap.Error(err))
		}
		logger.Info("database migration completed")
	}

	// 5. Initialize state store (Redis or in-memory)
	var stateStore repository.StateStore
	switch cfg.State.Backend {
	case "redis":
		redisClient, err := config.NewRedisClient(cfg.Database.Redis)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		stateStore = repository.NewRedisStateStore(redisClient)
		logger.Info("using Redis state store")
	case "memory", "":
		stateStore = repository.NewMemoryStateStore()
		logger.Info("using in-memory state store")
	default:
		logger.Fatal("unknown state backend", zap.String("backend", cfg.State.Backend))
	}

	// 6. Initialize repositories
	userRepo := repository.NewPGUserRepository(db)
	inviteRepo := repository.NewPGInviteCodeRepository(db)
	constituencyRepo := repository.NewPGConstituencyRepository(db)
	resultRepo := repository.NewPGResultRepository(db)
	contactRepo := repository.NewPGContactRepository(db)

	// 7. Initialize JWT manager
	jwtManager := jwtpkg.NewManager(
		cfg.JWT.SigningKey,
		cfg.JWT.Issuer,
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
	)

	// 8. Initialize the operation manager with Prometheus instrumentation
	registry := prometheus.NewRegistry()
	opManager := asyncop.New(asyncop.WithRecorder(metrics.NewRecorder(registry)))

	// 9. Initialize services
	inviteService := service.NewInviteService(inviteRepo)
	authService := service.NewAuthService(
		userRepo, inviteService, stateStore,
		jwtManager, cfg.Invite.Enabled,
	)
	electionService := service.NewElectionService(constituencyRepo, resultRepo, contactRepo)
	datasetService := service.NewDatasetService(
		cfg.Datasets, opManager,
		constituencyRepo, resultRepo, contactRepo,
		logger,
	)

	// 10. Initialize handlers
	authHandler := handler.NewAuthHandler(authService)
	electionHandler := handler.NewElectionHandler(electionService)
	operationsHandler := handler.NewOperationsHandler(datasetService, opManager)
	adminHandler := handler.NewAdminHandler(inviteService)

	// 11. Setup router
	router := handler.SetupRouter(cfg, logger, jwtManager, registry, authHandler, electionHandler, operationsHandler, adminHandler)

	// 12. Start dataset refresh loops
	datasetCtx, stopDatasets := context.WithCancel(context.Background())
	go datasetService.Run(datasetCtx)

	// 13. Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 14. Start server with graceful shutdown
	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// 15. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	stopDatasets()
	opManager.Clear()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}
	logger.Info("server exited gracefully")
}
