package http

import (
	"context"
	"net/http"
	"time"

	"github.com/jmehdipour/loyalty-backoffice/internal/config"
	"github.com/jmehdipour/loyalty-backoffice/internal/http/middleware"
	"github.com/jmehdipour/loyalty-backoffice/internal/logger"
	"github.com/jmehdipour/loyalty-backoffice/internal/notify"
	"github.com/jmehdipour/loyalty-backoffice/internal/repository"
	"github.com/jmehdipour/loyalty-backoffice/internal/service"
	"github.com/jmehdipour/loyalty-backoffice/internal/util"
	"github.com/jmoiron/sqlx"
	echo "github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	e   *echo.Echo
	svc *service.Set
}

// NewServer wires repositories and services over the transactional store.
// clickhouseDB and rds are optional: without ClickHouse reports aggregate from
// SQL, without Redis rate limiting is per process and /v1/stream answers 503.
func NewServer(cfg config.Config, sqlDB, clickhouseDB *sqlx.DB, rds *redis.Client) *Server {
	svc := service.NewSet(cfg, sqlDB)

	var reportsRepo repository.ReportsRepository
	if clickhouseDB != nil {
		reportsRepo = repository.NewCHReportsRepository(clickhouseDB)
	} else {
		reportsRepo = repository.NewSQLReportsRepository(sqlDB)
	}
	pointsSvc, backofficeSvc, redemptionSvc := svc.Points, svc.Backoffice, svc.Redemption

	var sub Subscriber
	if rds != nil {
		sub = notify.NewRedis(rds, cfg.Redis.ChannelPrefix)
	}

	// echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetLevel(echoLogLevel(cfg.Log.Level))
	e.Use(echoMid.Recover(), echoMid.RequestID(), echoMid.Logger())

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := sqlDB.PingContext(ctx); err != nil {
			return c.String(http.StatusServiceUnavailable, "db unavailable")
		}
		return c.String(http.StatusOK, "ok")
	})

	// middlewares
	authMW := middleware.APIKeyMiddleware(svc.Companies)
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          rds,
		RPS:            cfg.RateLimit.RPS,
		Burst:          cfg.RateLimit.Burst,
		KeyPrefix:      "rl:tenant:",
		Window:         time.Second,
		RetryAfterHint: true,
	})

	// routes
	v1 := e.Group("/v1", authMW, rlMW)

	v1.POST("/requests", createRequestHandler(redemptionSvc))
	v1.GET("/requests", listRequestsHandler(redemptionSvc))
	v1.GET("/requests/:id", getRequestHandler(redemptionSvc))
	v1.POST("/requests/:id/approve", approveRequestHandler(redemptionSvc))
	v1.POST("/requests/:id/reject", rejectRequestHandler(redemptionSvc))
	v1.POST("/requests/:id/complete", completeRequestHandler(redemptionSvc))
	v1.DELETE("/requests/:id", deleteRequestHandler(redemptionSvc))

	v1.POST("/customers", enrollCustomerHandler(backofficeSvc))
	v1.GET("/customers", listCustomersHandler(backofficeSvc))
	v1.GET("/customers/:id", getCustomerHandler(backofficeSvc))
	v1.GET("/customers/:id/balance", balanceHandler(pointsSvc))
	v1.GET("/customers/:id/ledger", ledgerHandler(pointsSvc))
	v1.POST("/customers/:id/adjustments", adjustmentHandler(pointsSvc))
	v1.POST("/sales", recordSaleHandler(pointsSvc))

	v1.POST("/products", createProductHandler(backofficeSvc))
	v1.GET("/products", listProductsHandler(backofficeSvc))
	v1.GET("/products/:id", getProductHandler(backofficeSvc))
	v1.PATCH("/products/:id", updateProductHandler(backofficeSvc))
	v1.DELETE("/products/:id", deleteProductHandler(redemptionSvc))

	v1.GET("/points-config", getPointsConfigHandler(pointsSvc))
	v1.PUT("/points-config", putPointsConfigHandler(pointsSvc))

	v1.GET("/reports/redemptions", redemptionReportHandler(reportsRepo, util.Now))
	v1.GET("/stream", streamHandler(sub))

	return &Server{e: e, svc: svc}
}

// Services exposes the wired services to background loops sharing the process.
func (s *Server) Services() *service.Set { return s.svc }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.e.ServeHTTP(w, r) }

func (s *Server) Start(addr string) error {
	logger.Log.Info("http: listening", zap.String("addr", addr))
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }

func echoLogLevel(level string) log.Lvl {
	switch level {
	case "debug":
		return log.DEBUG
	case "warn":
		return log.WARN
	case "error":
		return log.ERROR
	default:
		return log.INFO
	}
}
