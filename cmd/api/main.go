package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/teamhub-backend/api/controllers"
	"github.com/angelmondragon/teamhub-backend/api/middleware"
	"github.com/angelmondragon/teamhub-backend/api/routes"
	"github.com/angelmondragon/teamhub-backend/internal/balance"
	"github.com/angelmondragon/teamhub-backend/internal/ledger"
	"github.com/angelmondragon/teamhub-backend/internal/meals"
	"github.com/angelmondragon/teamhub-backend/internal/menu"
	"github.com/angelmondragon/teamhub-backend/internal/reporting"
	"github.com/angelmondragon/teamhub-backend/internal/topups"
	"github.com/angelmondragon/teamhub-backend/internal/transfers"
	"github.com/angelmondragon/teamhub-backend/internal/users"
	"github.com/angelmondragon/teamhub-backend/pkg/config"
	"github.com/angelmondragon/teamhub-backend/pkg/db"
	"github.com/angelmondragon/teamhub-backend/pkg/logger"
	"github.com/angelmondragon/teamhub-backend/pkg/metrics"
	"github.com/angelmondragon/teamhub-backend/pkg/migrate"
	"github.com/angelmondragon/teamhub-backend/pkg/outbox"
	"github.com/angelmondragon/teamhub-backend/pkg/redis"
)

const (
	serviceName          = "teamhub-api"
	limiterSweepInterval = time.Minute
)

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	infra := routes.Infra{
		Health: map[string]controllers.Pinger{"database": dbClient},
	}
	closers := []func() error{dbClient.Close}

	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		infra.Health["redis"] = redisClient
		infra.Idempotency = redisClient
		closers = append(closers, redisClient.Close)
	} else {
		logg.Warn(ctx, "redis not configured, idempotent replay disabled")
	}

	var ledgerMetrics *metrics.LedgerMetrics
	if cfg.FeatureFlags.Metrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		ledgerMetrics = metrics.NewLedgerMetrics(reg)
		infra.Metrics = reg
	}

	svcs, err := buildServices(cfg, logg, dbClient, ledgerMetrics)
	if err != nil {
		logg.Error(ctx, "failed to build services", err)
		os.Exit(1)
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit, logg)
	go limiter.Run(ctx, limiterSweepInterval)
	infra.RateLimiter = limiter

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "addr": addr})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, infra, svcs),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			closeAll(context.Background(), logg, closers)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "graceful shutdown failed", err)
	}
	closeAll(shutdownCtx, logg, closers)
	logg.Info(ctx, "api server stopped")
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, m *metrics.LedgerMetrics) (routes.Services, error) {
	conn := dbClient.DB()

	userRepo := users.NewRepository(conn)
	balances := balance.NewAccessor(conn)
	ledgerRepo := ledger.NewRepository(conn)
	outboxSvc := outbox.NewService(outbox.NewRepository(conn), logg)
	menuRepo := menu.NewRepository(conn)

	ledgerSvc, err := ledger.NewService(ledgerRepo, m)
	if err != nil {
		return routes.Services{}, err
	}

	var (
		svcs routes.Services
		errs error
	)
	svcs.Transfers, err = transfers.NewService(userRepo, dbClient, balances, ledgerSvc, outboxSvc, logg)
	errs = multierr.Append(errs, err)
	svcs.TopUps, err = topups.NewService(ledgerRepo, ledgerSvc, dbClient, balances, outboxSvc, cfg.TopUp, m, logg)
	errs = multierr.Append(errs, err)
	svcs.Reporting, err = reporting.NewService(ledgerRepo, balances, userRepo)
	errs = multierr.Append(errs, err)
	svcs.Menu, err = menu.NewService(menuRepo)
	errs = multierr.Append(errs, err)
	svcs.Meals, err = meals.NewService(meals.NewRepository(conn), menuRepo, dbClient, balances, ledgerSvc, outboxSvc, cfg.Meals, logg)
	errs = multierr.Append(errs, err)

	return svcs, errs
}

func closeAll(ctx context.Context, logg *logger.Logger, closers []func() error) {
	var errs error
	for i := len(closers) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, closers[i]())
	}
	if errs != nil {
		logg.Error(ctx, "error releasing resources", errs)
	}
}
