package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/planmoni/planmoni-backend/internal/api"
	"github.com/planmoni/planmoni-backend/internal/auth"
	"github.com/planmoni/planmoni-backend/internal/config"
	"github.com/planmoni/planmoni-backend/internal/db"
	"github.com/planmoni/planmoni-backend/internal/idempotency"
	"github.com/planmoni/planmoni-backend/internal/logger"
	"github.com/planmoni/planmoni-backend/internal/metrics"
	"github.com/planmoni/planmoni-backend/internal/notify"
	"github.com/planmoni/planmoni-backend/internal/paystack"
	repo "github.com/planmoni/planmoni-backend/internal/repository"
	"github.com/planmoni/planmoni-backend/internal/repository/memory"
	"github.com/planmoni/planmoni-backend/internal/repository/postgres"
	"github.com/planmoni/planmoni-backend/internal/services"
	"github.com/planmoni/planmoni-backend/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if port, _ := cmd.Flags().GetString("port"); port != "" {
			cfg.HTTPPort = port
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
		log, err := logger.New(cfg.Env)
		if err != nil {
			return fmt.Errorf("logger: %w", err)
		}
		defer func() { _ = log.Sync() }()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, log)
	},
}

func init() {
	serveCmd.Flags().String("port", "", "HTTP port (overrides HTTP_PORT)")
}

func serve(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	var store repo.Store
	switch cfg.Store {
	case "memory":
		log.Warn("using in-memory store; data is lost on exit")
		store = memory.NewStore()
	default:
		if cfg.Migrate {
			if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
				return err
			}
			log.Info("migrations applied")
		}
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("db connect: %w", err)
		}
		defer pool.Close()
		store = postgres.NewStore(pool)
	}

	wp := worker.NewPool(cfg.WorkerCount, 1024)
	defer wp.Stop()

	var (
		rdb      redis.UniversalClient
		guard    idempotency.Guard = idempotency.NewLocalGuard()
		notifier services.Notifier = notify.Nop{}
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis url: %w", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err = client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		rdb = client
		guard = idempotency.NewRedisGuard(client, "webhook")
		notifier = notify.NewPublisher(client, wp, log)
	} else {
		log.Info("REDIS_URL not set; using local guard, notifications disabled")
	}

	ps := paystack.NewClient(cfg.PaystackSecretKey, cfg.PaystackBaseURL, cfg.PaystackTimeout)
	tm := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, time.Hour)

	metrics.Init()
	h := api.NewRouter(api.RouterDeps{
		Cfg:         cfg,
		Log:         log,
		TM:          tm,
		Redis:       rdb,
		Webhooks:    services.NewWebhookService(store, guard, notifier, log),
		Withdrawals: services.NewWithdrawalService(store, notifier, log, cfg.UseDBProcedures),
		Cards:       services.NewCardService(store, ps, notifier, log, cfg.CardVerificationAmountKobo),
		Wallets:     services.NewWalletService(store),
		Plans:       services.NewPlanService(store, notifier, log),
		Deposits:    services.NewDepositService(store, ps, log),
		Accounts:    services.NewAccountService(store, ps, log),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("port", cfg.HTTPPort), zap.String("env", cfg.Env), zap.String("store", cfg.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	}

	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
