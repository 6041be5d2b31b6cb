package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/joserubemneto/tqs-project-sub002/internal/app"
	"github.com/joserubemneto/tqs-project-sub002/internal/clock"
	"github.com/joserubemneto/tqs-project-sub002/internal/config"
	"github.com/joserubemneto/tqs-project-sub002/internal/logging"
	"github.com/joserubemneto/tqs-project-sub002/internal/storage/postgres"
	transporthttp "github.com/joserubemneto/tqs-project-sub002/internal/transport/http"
	"github.com/joserubemneto/tqs-project-sub002/migrations"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("connect to db", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		logger.Fatal("db ping", zap.Error(err))
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		logger.Fatal("apply migrations", zap.Error(err))
	}

	clk := clock.NewSystem()

	opportunityRepo := postgres.NewOpportunityRepository(pool)
	opportunitySvc := app.NewOpportunityService(opportunityRepo, clk)
	applicationRepo := postgres.NewApplicationRepository(pool)
	applicationSvc := app.NewApplicationService(applicationRepo, clk)
	rewardRepo := postgres.NewRewardRepository(pool)
	rewardSvc := app.NewRewardService(rewardRepo, clk)
	redemptionRepo := postgres.NewRedemptionRepository(pool)
	redemptionSvc := app.NewRedemptionService(redemptionRepo, clk)

	sweeper := app.NewSweeper(opportunityRepo, clk, logger, app.WithSweepInterval(cfg.SweepInterval))
	stopSweeper := sweeper.Start()
	defer stopSweeper()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", transporthttp.HealthHandler)
	mux.Handle("/opportunities", transporthttp.HandleOpportunities(opportunitySvc))
	mux.Handle("/opportunities/", transporthttp.HandleOpportunity(opportunitySvc, applicationSvc))
	mux.Handle("/applications", transporthttp.HandleApplications(applicationSvc))
	mux.Handle("/applications/", transporthttp.HandleApplicationReview(applicationSvc))
	mux.Handle("/rewards", transporthttp.HandleRewards(rewardSvc))
	mux.Handle("/rewards/", transporthttp.HandleReward(rewardSvc, redemptionSvc))
	mux.Handle("/users/", transporthttp.HandleUserRedemptions(redemptionSvc))
	mux.Handle("/", transporthttp.NotFoundHandler())

	handler := transporthttp.RequestLogger(transporthttp.CORS(cfg.CORSOrigins, mux), logger)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	logger.Info("api listening", zap.String("port", cfg.Port))

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
		}
	case <-stopCtx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("server stopped")
}
