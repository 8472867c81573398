package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/planmoni/planmoni-backend/internal/api/handlers"
	"github.com/planmoni/planmoni-backend/internal/auth"
	"github.com/planmoni/planmoni-backend/internal/config"
	"github.com/planmoni/planmoni-backend/internal/metrics"
	"github.com/planmoni/planmoni-backend/internal/middleware"
	"github.com/planmoni/planmoni-backend/internal/services"
)

type RouterDeps struct {
	Cfg   config.Config
	Log   *zap.Logger
	TM    *auth.TokenManager
	Redis redis.UniversalClient // optional

	Webhooks    *services.WebhookService
	Withdrawals *services.WithdrawalService
	Cards       *services.CardService
	Wallets     *services.WalletService
	Plans       *services.PlanService
	Deposits    *services.DepositService
	Accounts    *services.AccountService
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover(d.Log), middleware.HTTPMetrics, middleware.RateLimit(d.Cfg.RateRPS))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	// health & metrics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	// Paystack authenticates with the body signature, not a bearer token.
	wh := handlers.NewWebhookHandler(d.Webhooks, d.Cfg.PaystackSecretKey, d.Log)
	r.Post("/webhooks/paystack", wh.Paystack)

	am := middleware.NewAuthMiddleware(d.TM, d.Cfg.Env)
	wd := handlers.NewWithdrawalHandler(d.Withdrawals, d.Log)
	cards := handlers.NewCardHandler(d.Cards, d.Log)
	wallet := handlers.NewWalletHandler(d.Wallets, d.Log)
	plans := handlers.NewPlanHandler(d.Plans, d.Log)
	deps := handlers.NewDepositHandler(d.Deposits, d.Accounts, d.Log)

	r.Route("/api/v1", func(r chi.Router) {
		if d.Cfg.Env == "dev" {
			ah := handlers.NewAuthHandler(d.TM, d.Log)
			r.Post("/auth/dev-token", ah.DevToken)
		}

		r.Group(func(r chi.Router) {
			r.Use(am.Auth, middleware.RequireRole("authenticated", "service_role"))
			r.Use(middleware.RedisRateLimit(d.Redis, d.Log, d.Cfg.UserRatePerMinute, time.Minute, time.Minute, "rl:api"))

			// ---------- wallet ----------
			r.Get("/wallet", wallet.Get)
			r.Get("/transactions", wallet.Transactions)
			r.Get("/events", wallet.Events)
			r.Post("/events/{id}/read", wallet.MarkEventRead)

			// ---------- payout plans ----------
			r.Post("/payout-plans/emergency-withdrawal", wd.Emergency)
			r.Post("/payout-plans", plans.Create)
			r.Get("/payout-plans", plans.List)
			r.Get("/payout-plans/{id}", plans.Get)
			r.Post("/payout-plans/{id}/pause", plans.Pause)
			r.Post("/payout-plans/{id}/resume", plans.Resume)

			// ---------- cards ----------
			r.Post("/cards/tokenize", cards.Tokenize)
			r.Put("/cards/tokenize", cards.Continue)
			r.Get("/cards", cards.List)
			r.Delete("/cards/{id}", cards.Delete)

			// ---------- deposits ----------
			r.Post("/deposits/ussd", deps.USSD)
			r.Get("/virtual-account", deps.GetAccount)
			r.Post("/virtual-account", deps.CreateAccount)
		})
	})

	return r
}
