package handler

import (
	"wallet-ledger/internal/adapter/http/middleware"
	"wallet-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	Ledger         ports.LedgerService
	Query          ports.QueryService
	RateLimit      *middleware.RateLimitRule // nil = rate limiting disabled
	RateLimiter    ports.RateLimiter         // nil = in-process limiter
	HealthCheckers []ports.HealthChecker
	Registry       *prometheus.Registry // nil = no /metrics endpoint
	MaxBodyBytes   int64
	Mode           string
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	switch deps.Mode {
	case gin.DebugMode, gin.TestMode:
		gin.SetMode(deps.Mode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	maxBody := deps.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(maxBody))

	if deps.Registry != nil {
		r.Use(middleware.NewHTTPMetrics(deps.Registry).Middleware())
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Swagger documentation
	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	v1 := r.Group("/api/v1")
	if rl := rateLimit(deps); rl != nil {
		v1.Use(rl)
	}

	walletHandler := NewWalletHandler(deps.Ledger, deps.Query)
	wallets := v1.Group("/wallets")
	{
		wallets.POST("", walletHandler.CreateWallet)
		wallets.POST("/fund", walletHandler.Fund)
		wallets.POST("/transfer", walletHandler.Transfer)
		wallets.GET("/:id", walletHandler.GetWallet)
		wallets.GET("/:id/transactions", walletHandler.ListTransactions)
	}

	return r
}

func rateLimit(deps RouterDeps) gin.HandlerFunc {
	if deps.RateLimit == nil {
		return nil
	}
	if deps.RateLimiter != nil {
		return middleware.RateLimiter(deps.RateLimiter, "api", *deps.RateLimit, deps.Logger)
	}
	return middleware.NewLocalRateLimiter(*deps.RateLimit).Middleware()
}
