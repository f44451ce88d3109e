package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/banking/risk-analytics/internal/api"
	"github.com/banking/risk-analytics/internal/config"
	"github.com/banking/risk-analytics/internal/domain"
	"github.com/banking/risk-analytics/internal/fraud"
	"github.com/banking/risk-analytics/internal/graph"
	"github.com/banking/risk-analytics/internal/messaging/kafka"
	"github.com/banking/risk-analytics/internal/microrel"
	"github.com/banking/risk-analytics/internal/pkg/logger"
	"github.com/banking/risk-analytics/internal/repository/memory"
	"github.com/banking/risk-analytics/internal/repository/postgres"
	"github.com/banking/risk-analytics/internal/repository/redis"
	"github.com/banking/risk-analytics/internal/scoring"
	"github.com/banking/risk-analytics/internal/service"
	"github.com/banking/risk-analytics/internal/storage/badger"
	"github.com/banking/risk-analytics/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "risk-engine: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// 2. Initialize logger and tracing
	log, err := logger.New(cfg.Telemetry.ServiceName, cfg.Telemetry.Environment, cfg.Telemetry.Debug)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, &cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("tracer shutdown failed", logger.ErrorField(err))
		}
	}()

	// 3. Graph store
	graphStore, err := badger.OpenGraphStore(badger.ConfigFrom(&cfg.Graph, log))
	if err != nil {
		return fmt.Errorf("open graph store: %w", err)
	}
	defer graphStore.Close()

	analyzer := graph.NewAnalyzer(graphStore, &cfg.Graph, log)
	if err := analyzer.InitSchema(ctx); err != nil {
		return fmt.Errorf("init graph schema: %w", err)
	}

	// 4. Profile and alert stores
	profiles, alerts, closeStores, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStores()

	// 5. Transaction history
	history, closeHistory, err := openHistory(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeHistory()

	// 6. Alert publisher
	var publisher service.AlertPublisher
	if cfg.Kafka.Enabled {
		p, err := kafka.NewAlertPublisher(&cfg.Kafka)
		if err != nil {
			return fmt.Errorf("create alert publisher: %w", err)
		}
		defer p.Close()
		publisher = p
	}

	svc := service.New(service.Params{
		Scorer:    scoring.NewScorer(scoring.NewModel(&cfg.Scoring), profiles, log),
		Detector:  fraud.NewDetector(history, alerts, &cfg.Fraud, log),
		History:   history,
		Graph:     analyzer,
		Portfolio: microrel.NewAnalyzer(graphStore, &cfg.MicroRel, log),
		Profiles:  profiles,
		Alerts:    alerts,
		Publisher: publisher,
		Config:    &cfg.Graph,
		Logger:    log,
	})

	// 7. Servers and consumer
	e := api.NewServer(svc, cfg, log)
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	metrics := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		log.Info("API server started", logger.StringField("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info("metrics server started", logger.StringField("addr", metrics.Addr))
		if err := metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	if cfg.Kafka.Enabled {
		consumer, err := kafka.NewTransactionConsumer(&cfg.Kafka, func(ctx context.Context, tx *domain.Transaction) error {
			_, err := svc.ProcessTransaction(ctx, tx)
			return err
		}, log)
		if err != nil {
			return fmt.Errorf("create transaction consumer: %w", err)
		}
		defer consumer.Close()
		g.Go(func() error {
			return consumer.Run(gctx)
		})
	}

	// Wait for a signal or a failed component, then drain
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		if err := api.Shutdown(e, cfg.Server.ShutdownTimeout); err != nil {
			log.Error("api shutdown failed", logger.ErrorField(err))
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := metrics.Shutdown(shutdownCtx); err != nil {
			log.Error("metrics shutdown failed", logger.ErrorField(err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server exited properly")
	return nil
}

// openStores returns PostgreSQL repositories when the database is enabled,
// and in-memory stores otherwise
func openStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (domain.RiskProfileStore, domain.FraudAlertStore, func(), error) {
	if !cfg.Database.Enabled {
		log.Warn("database disabled, profiles and alerts are kept in memory")
		return memory.NewProfileStore(), memory.NewAlertStore(), func() {}, nil
	}

	pool, err := postgres.NewPool(ctx, &cfg.Database)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect database: %w", err)
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("migrate database: %w", err)
	}

	return postgres.NewRiskProfileRepository(pool, postgres.NewBreaker("risk_profiles", &cfg.Breaker, log)),
		postgres.NewFraudAlertRepository(pool, postgres.NewBreaker("fraud_alerts", &cfg.Breaker, log)),
		closePool(pool),
		nil
}

func closePool(pool *pgxpool.Pool) func() {
	return func() { pool.Close() }
}

// openHistory returns the Redis history store when Redis is enabled
func openHistory(ctx context.Context, cfg *config.Config, log *logger.Logger) (fraud.HistoryStore, func(), error) {
	if !cfg.Redis.Enabled {
		log.Warn("redis disabled, transaction history is kept in memory")
		return memory.NewHistoryStore(cfg.Fraud.AmountHistorySize), func() {}, nil
	}

	client, err := redis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	store := redis.NewHistoryStore(client, redis.HistoryOptions{
		TTL:         cfg.Redis.HistoryTTL,
		AmountLimit: cfg.Fraud.AmountHistorySize,
	})
	return store, closeClient(client, log), nil
}

func closeClient(client *goredis.Client, log *logger.Logger) func() {
	return func() {
		if err := client.Close(); err != nil {
			log.Warn("redis close failed", logger.ErrorField(err))
		}
	}
}
