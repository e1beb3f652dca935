// Package config defines the top-level configuration for the kalshi arb bot
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by KALSHIBOT_* environment
// variables.
type Config struct {
	Kalshi     KalshiConfig     `toml:"kalshi"`
	Database   DatabaseConfig   `toml:"database"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Scanner    ScannerConfig    `toml:"scanner"`
	Classifier ClassifierConfig `toml:"classifier"`
	Analyzer   AnalyzerConfig   `toml:"analyzer"`
	Strategy   StrategyConfig   `toml:"strategy"`
	Execution  ExecutionConfig  `toml:"execution"`
	Pipeline   PipelineConfig   `toml:"pipeline"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// KalshiConfig holds exchange API credentials. The RSA key may be given as a
// plaintext PEM path or as an encrypted blob plus password.
type KalshiConfig struct {
	BaseURL           string `toml:"base_url"`
	ApiKeyID          string `toml:"api_key_id"`
	RsaPrivateKeyPath string `toml:"rsa_private_key_path"`
	EncryptedKeyPath  string `toml:"encrypted_key_path"`
	KeyPassword       string `toml:"key_password"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for archival.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	Prefix         string `toml:"prefix"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ScannerConfig holds event discovery parameters.
type ScannerConfig struct {
	TopN                 int   `toml:"top_n"`
	MinVolume            int64 `toml:"min_volume"`
	OrderbookConcurrency int   `toml:"orderbook_concurrency"`
}

// ClassifierConfig holds mutual-exclusivity classification parameters.
type ClassifierConfig struct {
	CacheTTL      duration `toml:"cache_ttl"`
	MinConfidence float64  `toml:"min_confidence"`
}

// AnalyzerConfig holds arbitrage analysis thresholds.
type AnalyzerConfig struct {
	MinMarkets      int     `toml:"min_markets"`
	MaxMarkets      int     `toml:"max_markets"`
	RequireTwoSided bool    `toml:"require_two_sided"`
	MinCoverage     float64 `toml:"min_coverage"`
	MinContracts    int64   `toml:"min_contracts"`
}

// StrategyConfig holds signal generation parameters.
type StrategyConfig struct {
	ContractsPerLeg     int64 `toml:"contracts_per_leg"`
	MinProfitCents      int64 `toml:"min_profit_cents"`
	FullConfidenceCents int64 `toml:"full_confidence_cents"`
}

// ExecutionConfig holds order execution risk limits and polling policy.
type ExecutionConfig struct {
	PaperMode            bool     `toml:"paper_mode"`
	AutoExecute          bool     `toml:"auto_execute"`
	MaxLegs              int      `toml:"max_legs"`
	MaxBasketCostUSD     float64  `toml:"max_basket_cost_usd"`
	MaxPositionPerMarket int64    `toml:"max_position_per_market"`
	MinConfidence        float64  `toml:"min_confidence"`
	PollInterval         duration `toml:"poll_interval"`
	PollTimeout          duration `toml:"poll_timeout"`
	DedupTTL             duration `toml:"dedup_ttl"`
	PaperFillDelay       duration `toml:"paper_fill_delay"`
}

// PipelineConfig holds the scan loop schedule and archival policy.
type PipelineConfig struct {
	ScanInterval         duration `toml:"scan_interval"`
	PersistSnapshots     bool     `toml:"persist_snapshots"`
	ArchiveRetentionDays int      `toml:"archive_retention_days"`
	LockTTL              duration `toml:"lock_ttl"`
}

// NotifyConfig holds alert channel credentials and event filters.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration wraps time.Duration for TOML decoding from strings like "5m".
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Defaults returns the built-in configuration. Paper mode is the default;
// live trading is opt-in.
func Defaults() Config {
	return Config{
		Kalshi: KalshiConfig{
			BaseURL: "https://api.elections.kalshi.com/trade-api/v2",
		},
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "kalshibot",
			User:          "kalshibot",
			SSLMode:       "disable",
			PoolMaxConns:  8,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:  false,
			Addr:     "localhost:6379",
			PoolSize: 8,
		},
		S3: S3Config{
			Enabled: false,
			Region:  "us-east-1",
			Prefix:  "kalshibot",
			UseSSL:  true,
		},
		Scanner: ScannerConfig{
			TopN:                 100,
			MinVolume:            100,
			OrderbookConcurrency: 8,
		},
		Classifier: ClassifierConfig{
			CacheTTL:      duration{time.Hour},
			MinConfidence: 0.8,
		},
		Analyzer: AnalyzerConfig{
			MinMarkets:      2,
			MaxMarkets:      50,
			RequireTwoSided: true,
			MinCoverage:     0.9,
			MinContracts:    10_000,
		},
		Strategy: StrategyConfig{
			ContractsPerLeg:     10,
			MinProfitCents:      2,
			FullConfidenceCents: 5,
		},
		Execution: ExecutionConfig{
			PaperMode:            true,
			AutoExecute:          false,
			MaxLegs:              20,
			MaxBasketCostUSD:     250,
			MaxPositionPerMarket: 100,
			MinConfidence:        0.3,
			PollInterval:         duration{500 * time.Millisecond},
			PollTimeout:          duration{30 * time.Second},
			DedupTTL:             duration{5 * time.Minute},
			PaperFillDelay:       duration{25 * time.Millisecond},
		},
		Pipeline: PipelineConfig{
			ScanInterval:         duration{5 * time.Minute},
			PersistSnapshots:     true,
			ArchiveRetentionDays: 90,
			LockTTL:              duration{10 * time.Minute},
		},
		Notify: NotifyConfig{
			Events: []string{"opportunity", "basket", "kill_switch"},
		},
		Mode:     "scan",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"scan":  true,
	"paper": true,
	"trade": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: scan, paper, trade)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Credentials are mandatory in every mode: even scanning hits
	// authenticated endpoints.
	if c.Kalshi.ApiKeyID == "" {
		errs = append(errs, "kalshi: api_key_id must be set")
	}
	if c.Kalshi.RsaPrivateKeyPath == "" && c.Kalshi.EncryptedKeyPath == "" {
		errs = append(errs, "kalshi: either rsa_private_key_path or encrypted_key_path must be set")
	}
	if c.Kalshi.EncryptedKeyPath != "" && c.Kalshi.KeyPassword == "" {
		errs = append(errs, "kalshi: key_password is required when encrypted_key_path is set")
	}

	if c.Database.DSN == "" && (c.Database.Host == "" || c.Database.Database == "" || c.Database.User == "") {
		errs = append(errs, "database: set dsn or host/database/user")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must be set when enabled")
	}
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must be set when enabled")
		}
		if c.S3.AccessKey == "" || c.S3.SecretKey == "" {
			errs = append(errs, "s3: access_key and secret_key must be set when enabled")
		}
	}

	if c.Scanner.TopN <= 0 {
		errs = append(errs, "scanner: top_n must be positive")
	}
	if c.Classifier.MinConfidence < 0 || c.Classifier.MinConfidence > 1 {
		errs = append(errs, "classifier: min_confidence must be in [0,1]")
	}
	if c.Analyzer.MinCoverage < 0 || c.Analyzer.MinCoverage > 1 {
		errs = append(errs, "analyzer: min_coverage must be in [0,1]")
	}
	if c.Analyzer.MinMarkets < 2 {
		errs = append(errs, "analyzer: min_markets must be at least 2")
	}
	if c.Strategy.ContractsPerLeg <= 0 {
		errs = append(errs, "strategy: contracts_per_leg must be positive")
	}
	if c.Execution.MaxLegs <= 0 {
		errs = append(errs, "execution: max_legs must be positive")
	}
	if c.Execution.MaxPositionPerMarket <= 0 {
		errs = append(errs, "execution: max_position_per_market must be positive")
	}
	if strings.ToLower(c.Mode) == "trade" && c.Execution.PaperMode {
		errs = append(errs, "execution: paper_mode must be false in trade mode (use mode = \"paper\" instead)")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
