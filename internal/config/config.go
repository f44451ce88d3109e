package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the risk analytics engine
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Fraud     FraudConfig     `mapstructure:"fraud"`
	Graph     GraphConfig     `mapstructure:"graph"`
	MicroRel  MicroRelConfig  `mapstructure:"microrel"`
	Breaker   BreakerConfig   `mapstructure:"breaker"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Security  SecurityConfig  `mapstructure:"security"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	MetricsPort     int           `mapstructure:"metrics_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// RedisConfig holds Redis configuration for the transaction history provider
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	MaxRetries   int           `mapstructure:"max_retries"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	HistoryTTL   time.Duration `mapstructure:"history_ttl"`
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	Brokers          []string `mapstructure:"brokers"`
	ConsumerGroup    string   `mapstructure:"consumer_group"`
	TransactionTopic string   `mapstructure:"transaction_topic"`
	AlertsTopic      string   `mapstructure:"alerts_topic"`
}

// ScoringConfig holds the risk scoring model configuration.
// Sector and province tables are keyed by normalized (lower case) names.
type ScoringConfig struct {
	ModelID             string             `mapstructure:"model_id"`
	Weights             FactorWeights      `mapstructure:"weights"`
	SectorRisk          map[string]float64 `mapstructure:"sector_risk"`
	ProvinceRisk        map[string]float64 `mapstructure:"province_risk"`
	RecoveryAdjustments map[string]float64 `mapstructure:"recovery_adjustments"`
}

// FactorWeights are the composite weights of the five risk factors
type FactorWeights struct {
	Financial   float64 `mapstructure:"financial"`
	Operational float64 `mapstructure:"operational"`
	Market      float64 `mapstructure:"market"`
	Geographic  float64 `mapstructure:"geographic"`
	Behavioral  float64 `mapstructure:"behavioral"`
}

// FraudConfig holds fraud anomaly detection configuration
type FraudConfig struct {
	// Per fraud type trigger values recorded on alerts
	Thresholds map[string]float64 `mapstructure:"thresholds"`

	HighRiskProvinces    []string `mapstructure:"high_risk_provinces"`
	DeclarationThreshold float64  `mapstructure:"declaration_threshold"`

	// History lookups
	MinAmountHistory  int `mapstructure:"min_amount_history"`
	HistoryHoursBack  int `mapstructure:"history_hours_back"`
	AmountHistorySize int `mapstructure:"amount_history_size"`

	MaxDetectionLatency time.Duration `mapstructure:"max_detection_latency"`
}

// GraphConfig holds graph analysis configuration
type GraphConfig struct {
	BadgerPath            string        `mapstructure:"badger_path"`
	InMemory              bool          `mapstructure:"in_memory"`
	QueryTimeout          time.Duration `mapstructure:"query_timeout"`
	MaxContagionHops      int           `mapstructure:"max_contagion_hops"`
	MaxPatterns           int           `mapstructure:"max_patterns"`
	HighRiskPatternScore  float64       `mapstructure:"high_risk_pattern_score"`
	ExactCentrality       bool          `mapstructure:"exact_centrality"`
	MaintainConcentration bool          `mapstructure:"maintain_concentration"`

	// Structuring threshold for credit splitting
	StructuringThreshold float64 `mapstructure:"structuring_threshold"`
}

// MicroRelConfig holds portfolio concentration configuration
type MicroRelConfig struct {
	MediumHHI float64 `mapstructure:"medium_hhi"`
	HighHHI   float64 `mapstructure:"high_hhi"`
}

// BreakerConfig holds circuit breaker settings for store calls
type BreakerConfig struct {
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	ConsecutiveFails uint32        `mapstructure:"consecutive_fails"`
}

// TelemetryConfig holds observability configuration
type TelemetryConfig struct {
	ServiceName   string  `mapstructure:"service_name"`
	Environment   string  `mapstructure:"environment"`
	OTLPEndpoint  string  `mapstructure:"otlp_endpoint"`
	SamplingRatio float64 `mapstructure:"sampling_ratio"`
	Enabled       bool    `mapstructure:"enabled"`
	Debug         bool    `mapstructure:"debug"`
}

// SecurityConfig holds security configuration
type SecurityConfig struct {
	JWTSecret      string   `mapstructure:"jwt_secret"`
	JWTIssuer      string   `mapstructure:"jwt_issuer"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load loads configuration from environment and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.SetEnvPrefix("RISK_ENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/risk-engine")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// Config file not found, use defaults + env
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration built from defaults only.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	// Defaults are static and always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8086)
	v.SetDefault("server.metrics_port", 9096)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.request_timeout", "20s")

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.database", "risk_db")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 25)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.conn_max_idle_time", "5m")

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 50)
	v.SetDefault("redis.min_idle_conns", 10)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "1s")
	v.SetDefault("redis.write_timeout", "1s")
	v.SetDefault("redis.history_ttl", "720h") // 30 days

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.consumer_group", "risk-engine-group")
	v.SetDefault("kafka.transaction_topic", "finance.transactions.created")
	v.SetDefault("kafka.alerts_topic", "finance.fraud.alerts")

	// Scoring defaults
	v.SetDefault("scoring.model_id", "sme_risk_rules_v1")
	v.SetDefault("scoring.weights.financial", 0.35)
	v.SetDefault("scoring.weights.operational", 0.25)
	v.SetDefault("scoring.weights.market", 0.20)
	v.SetDefault("scoring.weights.geographic", 0.15)
	v.SetDefault("scoring.weights.behavioral", 0.05)
	v.SetDefault("scoring.sector_risk", DefaultSectorRisk())
	v.SetDefault("scoring.province_risk", DefaultProvinceRisk())
	v.SetDefault("scoring.recovery_adjustments", DefaultRecoveryAdjustments())

	// Fraud defaults
	v.SetDefault("fraud.thresholds", DefaultFraudThresholds())
	v.SetDefault("fraud.high_risk_provinces", []string{
		"nord-kivu", "sud-kivu", "ituri", "tanganyika", "haut-uele",
	})
	v.SetDefault("fraud.declaration_threshold", 10000000.0)
	v.SetDefault("fraud.min_amount_history", 5)
	v.SetDefault("fraud.history_hours_back", 168) // 7 days
	v.SetDefault("fraud.amount_history_size", 100)
	v.SetDefault("fraud.max_detection_latency", "500ms")

	// Graph defaults
	v.SetDefault("graph.badger_path", "./data/graph")
	v.SetDefault("graph.in_memory", false)
	v.SetDefault("graph.query_timeout", "15s")
	v.SetDefault("graph.max_contagion_hops", 3)
	v.SetDefault("graph.max_patterns", 100)
	v.SetDefault("graph.high_risk_pattern_score", 15.0)
	v.SetDefault("graph.exact_centrality", false)
	v.SetDefault("graph.maintain_concentration", true)
	v.SetDefault("graph.structuring_threshold", 10000000.0)

	// Portfolio concentration defaults (HHI on a 0-10000 scale)
	v.SetDefault("microrel.medium_hhi", 1500.0)
	v.SetDefault("microrel.high_hhi", 2500.0)

	// Circuit breaker defaults
	v.SetDefault("breaker.max_requests", 5)
	v.SetDefault("breaker.interval", "60s")
	v.SetDefault("breaker.timeout", "30s")
	v.SetDefault("breaker.consecutive_fails", 5)

	// Telemetry defaults
	v.SetDefault("telemetry.service_name", "risk-engine")
	v.SetDefault("telemetry.environment", "development")
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4317")
	v.SetDefault("telemetry.sampling_ratio", 0.1)
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.debug", false)

	// Security defaults
	v.SetDefault("security.jwt_issuer", "risk-engine")
	v.SetDefault("security.allowed_origins", []string{"*"})
}

// DefaultSectorRisk returns the static market risk table by sector
func DefaultSectorRisk() map[string]float64 {
	return map[string]float64{
		"mining":             7.5,
		"construction":       7.0,
		"agriculture":        6.5,
		"real_estate":        6.5,
		"tourism":            6.5,
		"transport":          6.0,
		"energy":             6.0,
		"manufacturing":      5.5,
		"commerce":           5.0,
		"finance":            4.5,
		"technology":         4.5,
		"services":           4.0,
		"telecommunications": 4.0,
		"health":             3.5,
		"education":          3.5,
	}
}

// DefaultProvinceRisk returns the static geographic risk table by province
func DefaultProvinceRisk() map[string]float64 {
	return map[string]float64{
		"kinshasa":       4.0,
		"kongo-central":  5.0,
		"haut-katanga":   5.5,
		"lualaba":        6.0,
		"equateur":       6.5,
		"kasai-central":  6.5,
		"kasai-oriental": 6.5,
		"kasai":          7.0,
		"tshopo":         7.0,
		"maniema":        7.0,
		"tanganyika":     7.5,
		"haut-uele":      7.5,
		"sud-kivu":       8.0,
		"nord-kivu":      8.5,
		"ituri":          9.0,
	}
}

// DefaultRecoveryAdjustments returns recovery rate adjustments by sector.
// Tangible-asset sectors recover more, intangible-asset sectors less.
func DefaultRecoveryAdjustments() map[string]float64 {
	return map[string]float64{
		"mining":             0.1,
		"real_estate":        0.1,
		"manufacturing":      0.1,
		"agriculture":        0.1,
		"construction":       0.1,
		"services":           -0.1,
		"technology":         -0.1,
		"telecommunications": -0.1,
		"tourism":            -0.1,
	}
}

// DefaultFraudThresholds returns the trigger value per fraud type
func DefaultFraudThresholds() map[string]float64 {
	return map[string]float64{
		"unusual_transaction": 0.6,
		"payment_fraud":       0.65,
		"money_laundering":    0.7,
		"collusion":           0.75,
		"identity_fraud":      0.8,
		"document_fraud":      0.8,
		"account_takeover":    0.85,
		"fake_business":       0.9,
	}
}
