// Package service exposes the engine operations and runs the
// transaction-to-score control flow.
package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/banking/risk-analytics/internal/config"
	"github.com/banking/risk-analytics/internal/domain"
	"github.com/banking/risk-analytics/internal/fraud"
	"github.com/banking/risk-analytics/internal/graph"
	"github.com/banking/risk-analytics/internal/microrel"
	"github.com/banking/risk-analytics/internal/pkg/logger"
	"github.com/banking/risk-analytics/internal/scoring"
)

var serviceTracer = otel.Tracer("risk-engine.service")

// TransactionAnalyzer evaluates a transaction for fraud
type TransactionAnalyzer interface {
	Analyze(ctx context.Context, tx *domain.Transaction) ([]*domain.FraudAlert, error)
}

// AlertPublisher forwards raised alerts to downstream consumers
type AlertPublisher interface {
	PublishAlert(ctx context.Context, alert *domain.FraudAlert) error
}

// Params holds the collaborators of a Service. Publisher and Inputs are
// optional.
type Params struct {
	Scorer    *scoring.Scorer
	Detector  TransactionAnalyzer
	History   fraud.HistoryRecorder
	Graph     *graph.Analyzer
	Portfolio *microrel.Analyzer
	Profiles  domain.RiskProfileStore
	Alerts    domain.FraudAlertStore
	Inputs    InputsProvider
	Publisher AlertPublisher
	Config    *config.GraphConfig
	Logger    *logger.Logger
}

// Service is the engine facade used by the API, the consumer and the CLI
type Service struct {
	scorer    *scoring.Scorer
	detector  TransactionAnalyzer
	history   fraud.HistoryRecorder
	graph     *graph.Analyzer
	portfolio *microrel.Analyzer
	profiles  domain.RiskProfileStore
	alerts    domain.FraudAlertStore
	inputs    InputsProvider
	publisher AlertPublisher
	cfg       *config.GraphConfig
	log       *logger.Logger
	now       func() time.Time
}

// New creates the service
func New(p Params) *Service {
	inputs := p.Inputs
	if inputs == nil {
		inputs = NewGraphInputsProvider(p.Graph)
	}
	return &Service{
		scorer:    p.Scorer,
		detector:  p.Detector,
		history:   p.History,
		graph:     p.Graph,
		portfolio: p.Portfolio,
		profiles:  p.Profiles,
		alerts:    p.Alerts,
		inputs:    inputs,
		publisher: p.Publisher,
		cfg:       p.Config,
		log:       p.Logger.Named("risk_service"),
		now:       time.Now,
	}
}

// WithClock overrides the clock used for alert expiry
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}
