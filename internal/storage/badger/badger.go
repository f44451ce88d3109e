// Package badger persists the risk graph in BadgerDB.
package badger

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/banking/risk-analytics/internal/config"
	"github.com/banking/risk-analytics/internal/pkg/logger"
)

// Config configures the BadgerDB instance
type Config struct {
	// Path is ignored when InMemory is true
	Path     string
	InMemory bool

	SyncWrites bool
	Logger     *logger.Logger

	// GCInterval of 0 disables value log garbage collection
	GCInterval     time.Duration
	GCDiscardRatio float64
}

// DefaultConfig returns production defaults
func DefaultConfig() Config {
	return Config{
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns a configuration for tests
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// ConfigFrom builds a Config from the graph settings
func ConfigFrom(cfg *config.GraphConfig, log *logger.Logger) Config {
	if cfg.InMemory {
		c := InMemoryConfig()
		c.Logger = log
		return c
	}
	c := DefaultConfig()
	c.Path = cfg.BadgerPath
	c.Logger = log
	return c
}

// badgerLogger routes BadgerDB logs through zap
type badgerLogger struct {
	log *logger.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Sugar().Errorf(format, args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Sugar().Warnf(format, args...)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Sugar().Debugf(format, args...)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Sugar().Debugf(format, args...)
}

// Open opens a BadgerDB database
func Open(cfg Config) (*badger.DB, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{log: cfg.Logger.Named("badger")})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return db, nil
}

// GCRunner periodically runs value log garbage collection
type GCRunner struct {
	db       *badger.DB
	interval time.Duration
	ratio    float64
	stopCh   chan struct{}
	doneCh   chan struct{}
	log      *logger.Logger
}

// NewGCRunner validates the settings and creates a stopped runner
func NewGCRunner(db *badger.DB, interval time.Duration, ratio float64, log *logger.Logger) (*GCRunner, error) {
	if db == nil {
		return nil, errors.New("db must not be nil")
	}
	if interval <= 0 {
		return nil, errors.New("interval must be positive")
	}
	if ratio < 0 || ratio > 1 {
		return nil, errors.New("ratio must be between 0 and 1")
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &GCRunner{
		db:       db,
		interval: interval,
		ratio:    ratio,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		log:      log,
	}, nil
}

// Start runs GC in the background until Stop
func (r *GCRunner) Start() {
	go r.run()
}

// Stop blocks until the background loop exits
func (r *GCRunner) Stop() {
	close(r.stopCh)
	<-r.doneCh
}

func (r *GCRunner) run() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			// ErrNoRewrite only means nothing was collected
			if err := r.db.RunValueLogGC(r.ratio); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				r.log.Warn("badger value log GC error", logger.ErrorField(err))
			}
		}
	}
}
