package logger

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with risk-engine specific functionality
type Logger struct {
	*zap.Logger
	serviceName string
}

// ContextKey for request context values
type ContextKey string

const (
	RequestIDKey ContextKey = "request_id"
	ActorIDKey   ContextKey = "actor_id"
	TraceIDKey   ContextKey = "trace_id"
	SpanIDKey    ContextKey = "span_id"
)

// New creates a new logger instance
func New(serviceName, environment string, debug bool) (*Logger, error) {
	var config zap.Config

	if environment == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if debug {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	// Add service metadata
	config.InitialFields = map[string]interface{}{
		"service": serviceName,
		"env":     environment,
		"pid":     os.Getpid(),
	}

	zapLogger, err := config.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zap.ErrorLevel),
	)
	if err != nil {
		return nil, err
	}

	return &Logger{
		Logger:      zapLogger,
		serviceName: serviceName,
	}, nil
}

// NewNop returns a logger that discards everything. Used by tests and CLIs.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop(), serviceName: "nop"}
}

// Named returns a named sub-logger
func (l *Logger) Named(name string) *Logger {
	return &Logger{
		Logger:      l.Logger.Named(name),
		serviceName: l.serviceName,
	}
}

// WithContext returns a logger with context values
func (l *Logger) WithContext(ctx context.Context) *Logger {
	fields := []zap.Field{}

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if actorID, ok := ctx.Value(ActorIDKey).(string); ok && actorID != "" {
		fields = append(fields, zap.String("actor_id", actorID))
	}
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok && traceID != "" {
		fields = append(fields, zap.String("trace_id", traceID))
	}
	if spanID, ok := ctx.Value(SpanIDKey).(string); ok && spanID != "" {
		fields = append(fields, zap.String("span_id", spanID))
	}

	return &Logger{
		Logger:      l.With(fields...),
		serviceName: l.serviceName,
	}
}

// WithEntity returns a logger scoped to a scored or analyzed entity
func (l *Logger) WithEntity(entityType, entityID string) *Logger {
	return &Logger{
		Logger: l.With(
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityID),
		),
		serviceName: l.serviceName,
	}
}

// WithTransaction returns a logger with transaction context
func (l *Logger) WithTransaction(txID, entityID string) *Logger {
	return &Logger{
		Logger: l.With(
			zap.String("transaction_id", txID),
			zap.String("entity_id", entityID),
		),
		serviceName: l.serviceName,
	}
}

// ProfileScored logs a completed risk scoring
func (l *Logger) ProfileScored(entityType, entityID string, score float64, level string, confidence float64) {
	l.Info("risk profile scored",
		zap.String("entity_type", entityType),
		zap.String("entity_id", entityID),
		zap.Float64("risk_score", score),
		zap.String("risk_level", level),
		zap.Float64("confidence", confidence),
	)
}

// DetectionStarted logs the start of a fraud analysis
func (l *Logger) DetectionStarted(txID, entityID string) {
	l.Debug("fraud detection started",
		zap.String("transaction_id", txID),
		zap.String("entity_id", entityID),
	)
}

// DetectionCompleted logs the completion of a fraud analysis
func (l *Logger) DetectionCompleted(txID string, alerts int, durationMs int64) {
	l.Info("fraud detection completed",
		zap.String("transaction_id", txID),
		zap.Int("alerts", alerts),
		zap.Int64("duration_ms", durationMs),
	)
}

// HeuristicFailed logs an isolated heuristic failure
func (l *Logger) HeuristicFailed(heuristic, txID string, err error) {
	l.Warn("fraud heuristic failed",
		zap.String("heuristic", heuristic),
		zap.String("transaction_id", txID),
		zap.Error(err),
	)
}

// AlertCreated logs alert creation
func (l *Logger) AlertCreated(alertID, fraudType, entityID, severity string, riskScore float64) {
	l.Warn("fraud alert created",
		zap.String("alert_id", alertID),
		zap.String("fraud_type", fraudType),
		zap.String("entity_id", entityID),
		zap.String("severity", severity),
		zap.Float64("risk_score", riskScore),
	)
}

// PatternDetected logs a detected graph pattern
func (l *Logger) PatternDetected(patternID, patternType string, entities int, score float64) {
	l.Warn("suspicious graph pattern detected",
		zap.String("pattern_id", patternID),
		zap.String("pattern_type", patternType),
		zap.Int("entities", entities),
		zap.Float64("score", score),
	)
}

// AnalysisCompleted logs completion of a graph analysis
func (l *Logger) AnalysisCompleted(analysis string, results int, duration time.Duration) {
	l.Info("graph analysis completed",
		zap.String("analysis", analysis),
		zap.Int("results", results),
		zap.Duration("duration", duration),
	)
}

// LatencyWarning logs when a check exceeds expected latency
func (l *Logger) LatencyWarning(checkType string, durationMs, thresholdMs int64) {
	l.Warn("latency threshold exceeded",
		zap.String("check_type", checkType),
		zap.Int64("duration_ms", durationMs),
		zap.Int64("threshold_ms", thresholdMs),
	)
}

// Helper field functions

// ErrorField creates an error field
func ErrorField(err error) zap.Field {
	return zap.Error(err)
}

// DurationField creates a duration field
func DurationField(name string, d time.Duration) zap.Field {
	return zap.Duration(name, d)
}

// StringField creates a string field
func StringField(key, value string) zap.Field {
	return zap.String(key, value)
}

// IntField creates an int field
func IntField(key string, value int) zap.Field {
	return zap.Int(key, value)
}

// Float64Field creates a float64 field
func Float64Field(key string, value float64) zap.Field {
	return zap.Float64(key, value)
}

// BoolField creates a bool field
func BoolField(key string, value bool) zap.Field {
	return zap.Bool(key, value)
}
