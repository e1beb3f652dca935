package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies KALSHIBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known KALSHIBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Kalshi ──
	setStr(&cfg.Kalshi.BaseURL, "KALSHIBOT_KALSHI_BASE_URL")
	setStr(&cfg.Kalshi.ApiKeyID, "KALSHIBOT_KALSHI_API_KEY_ID")
	setStr(&cfg.Kalshi.RsaPrivateKeyPath, "KALSHIBOT_KALSHI_RSA_PRIVATE_KEY_PATH")
	setStr(&cfg.Kalshi.EncryptedKeyPath, "KALSHIBOT_KALSHI_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Kalshi.KeyPassword, "KALSHIBOT_KALSHI_KEY_PASSWORD")

	// ── Database ──
	setStr(&cfg.Database.DSN, "KALSHIBOT_DATABASE_DSN")
	setStr(&cfg.Database.Host, "KALSHIBOT_DATABASE_HOST")
	setInt(&cfg.Database.Port, "KALSHIBOT_DATABASE_PORT")
	setStr(&cfg.Database.Database, "KALSHIBOT_DATABASE_NAME")
	setStr(&cfg.Database.User, "KALSHIBOT_DATABASE_USER")
	setStr(&cfg.Database.Password, "KALSHIBOT_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "KALSHIBOT_DATABASE_SSL_MODE")
	setInt(&cfg.Database.PoolMaxConns, "KALSHIBOT_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "KALSHIBOT_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "KALSHIBOT_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "KALSHIBOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "KALSHIBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "KALSHIBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "KALSHIBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "KALSHIBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "KALSHIBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "KALSHIBOT_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "KALSHIBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "KALSHIBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "KALSHIBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "KALSHIBOT_S3_BUCKET")
	setStr(&cfg.S3.Prefix, "KALSHIBOT_S3_PREFIX")
	setStr(&cfg.S3.AccessKey, "KALSHIBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "KALSHIBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "KALSHIBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "KALSHIBOT_S3_FORCE_PATH_STYLE")

	// ── Scanner ──
	setInt(&cfg.Scanner.TopN, "KALSHIBOT_SCANNER_TOP_N")
	setInt64(&cfg.Scanner.MinVolume, "KALSHIBOT_SCANNER_MIN_VOLUME")
	setInt(&cfg.Scanner.OrderbookConcurrency, "KALSHIBOT_SCANNER_ORDERBOOK_CONCURRENCY")

	// ── Classifier ──
	setDuration(&cfg.Classifier.CacheTTL, "KALSHIBOT_CLASSIFIER_CACHE_TTL")
	setFloat64(&cfg.Classifier.MinConfidence, "KALSHIBOT_CLASSIFIER_MIN_CONFIDENCE")

	// ── Analyzer ──
	setInt(&cfg.Analyzer.MinMarkets, "KALSHIBOT_ANALYZER_MIN_MARKETS")
	setInt(&cfg.Analyzer.MaxMarkets, "KALSHIBOT_ANALYZER_MAX_MARKETS")
	setBool(&cfg.Analyzer.RequireTwoSided, "KALSHIBOT_ANALYZER_REQUIRE_TWO_SIDED")
	setFloat64(&cfg.Analyzer.MinCoverage, "KALSHIBOT_ANALYZER_MIN_COVERAGE")
	setInt64(&cfg.Analyzer.MinContracts, "KALSHIBOT_ANALYZER_MIN_CONTRACTS")

	// ── Strategy ──
	setInt64(&cfg.Strategy.ContractsPerLeg, "KALSHIBOT_STRATEGY_CONTRACTS_PER_LEG")
	setInt64(&cfg.Strategy.MinProfitCents, "KALSHIBOT_STRATEGY_MIN_PROFIT_CENTS")
	setInt64(&cfg.Strategy.FullConfidenceCents, "KALSHIBOT_STRATEGY_FULL_CONFIDENCE_CENTS")

	// ── Execution ──
	setBool(&cfg.Execution.PaperMode, "KALSHIBOT_EXECUTION_PAPER_MODE")
	setBool(&cfg.Execution.AutoExecute, "KALSHIBOT_EXECUTION_AUTO_EXECUTE")
	setInt(&cfg.Execution.MaxLegs, "KALSHIBOT_EXECUTION_MAX_LEGS")
	setFloat64(&cfg.Execution.MaxBasketCostUSD, "KALSHIBOT_EXECUTION_MAX_BASKET_COST_USD")
	setInt64(&cfg.Execution.MaxPositionPerMarket, "KALSHIBOT_EXECUTION_MAX_POSITION_PER_MARKET")
	setFloat64(&cfg.Execution.MinConfidence, "KALSHIBOT_EXECUTION_MIN_CONFIDENCE")
	setDuration(&cfg.Execution.PollInterval, "KALSHIBOT_EXECUTION_POLL_INTERVAL")
	setDuration(&cfg.Execution.PollTimeout, "KALSHIBOT_EXECUTION_POLL_TIMEOUT")
	setDuration(&cfg.Execution.DedupTTL, "KALSHIBOT_EXECUTION_DEDUP_TTL")
	setDuration(&cfg.Execution.PaperFillDelay, "KALSHIBOT_EXECUTION_PAPER_FILL_DELAY")

	// ── Pipeline ──
	setDuration(&cfg.Pipeline.ScanInterval, "KALSHIBOT_PIPELINE_SCAN_INTERVAL")
	setBool(&cfg.Pipeline.PersistSnapshots, "KALSHIBOT_PIPELINE_PERSIST_SNAPSHOTS")
	setInt(&cfg.Pipeline.ArchiveRetentionDays, "KALSHIBOT_PIPELINE_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Pipeline.LockTTL, "KALSHIBOT_PIPELINE_LOCK_TTL")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "KALSHIBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "KALSHIBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "KALSHIBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "KALSHIBOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "KALSHIBOT_MODE")
	setStr(&cfg.LogLevel, "KALSHIBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
