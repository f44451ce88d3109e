// Package api is the HTTP adapter over the risk service.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/banking/risk-analytics/internal/config"
	"github.com/banking/risk-analytics/internal/pkg/logger"
	"github.com/banking/risk-analytics/internal/service"
	"github.com/banking/risk-analytics/internal/telemetry"
)

var apiTracer = otel.Tracer("risk-engine.api")

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "risk_engine",
	Subsystem: "api",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency by route and status",
	Buckets:   prometheus.DefBuckets,
}, []string{"route", "method", "status"})

// Handler serves the engine operations
type Handler struct {
	svc *service.Service
	log *logger.Logger
}

// NewServer builds the echo instance with middleware and routes. Bearer
// authentication guards /api/v1 when a JWT secret is configured.
func NewServer(svc *service.Service, cfg *config.Config, log *logger.Logger) *echo.Echo {
	log = log.Named("api")
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(log)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Secure())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Security.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
	}))
	e.Use(requestContext())
	e.Use(requestLogger(log))
	if cfg.Server.RequestTimeout > 0 {
		e.Use(middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{
			Timeout: cfg.Server.RequestTimeout,
		}))
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	h := &Handler{svc: svc, log: log}
	v1 := e.Group("/api/v1")
	if cfg.Security.JWTSecret != "" {
		v1.Use(BearerAuth(cfg.Security.JWTSecret, cfg.Security.JWTIssuer))
	} else {
		log.Warn("JWT secret not configured, API is unauthenticated")
	}
	h.Register(v1)

	return e
}

// Register mounts the routes on g
func (h *Handler) Register(g *echo.Group) {
	g.POST("/transactions", h.ProcessTransaction)
	g.POST("/transactions/analyze", h.AnalyzeTransaction)

	g.POST("/profiles/score", h.ScoreEntity)
	g.GET("/profiles", h.ListProfiles)
	g.GET("/profiles/:type/:id", h.GetProfile)

	g.GET("/alerts", h.ListActiveAlerts)
	g.GET("/alerts/:id", h.GetAlert)
	g.PUT("/alerts/:id/status", h.UpdateAlertStatus)

	g.GET("/graph/systemic", h.AnalyzeSystemicRisks)
	g.GET("/graph/patterns", h.DetectFraudPatterns)
	g.POST("/graph/stress", h.SimulateRiskPropagation)
	g.GET("/graph/contagion/:id", h.FindContagionPaths)
	g.GET("/graph/centrality", h.CalculateCentrality)
	g.GET("/graph/communities", h.DetectCommunities)
	g.GET("/graph/resilience", h.AnalyzeResilience)
	g.POST("/graph/smes", h.RegisterSME)
	g.POST("/graph/credits", h.RecordCredit)

	g.GET("/portfolios", h.AllPortfolioConcentrations)
	g.GET("/portfolios/:id/concentration", h.PortfolioConcentration)
	g.GET("/portfolios/:id/product-mix", h.ProductMix)
	g.GET("/smes/:id/dependency", h.BorrowerDependency)
}

// requestContext starts the request span and copies the request and trace
// ids into the context read by the logger
func requestContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx, span := apiTracer.Start(req.Context(), req.Method+" "+c.Path())
			defer span.End()
			span.SetAttributes(attribute.String("http.route", c.Path()))

			requestID := c.Response().Header().Get(echo.HeaderXRequestID)
			ctx = context.WithValue(ctx, logger.RequestIDKey, requestID)
			if traceID, spanID := telemetry.TraceIDs(ctx); traceID != "" {
				ctx = context.WithValue(ctx, logger.TraceIDKey, traceID)
				ctx = context.WithValue(ctx, logger.SpanIDKey, spanID)
			}
			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}

func requestLogger(log *logger.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRoutePath: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			requestDuration.WithLabelValues(v.RoutePath, v.Method, strconv.Itoa(v.Status)).
				Observe(v.Latency.Seconds())
			log.WithContext(c.Request().Context()).Info("request",
				logger.StringField("method", v.Method),
				logger.StringField("uri", v.URI),
				logger.IntField("status", v.Status),
				logger.DurationField("latency", v.Latency),
			)
			return nil
		},
	})
}

// Shutdown stops the server within timeout
func Shutdown(e *echo.Echo, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return e.Shutdown(ctx)
}
