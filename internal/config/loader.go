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
// built-in defaults, applies GALEBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env if present; missing files are fine.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known GALEBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "GALEBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "GALEBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "GALEBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "GALEBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "GALEBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "GALEBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "GALEBOT_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "GALEBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "GALEBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "GALEBOT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "GALEBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "GALEBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "GALEBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "GALEBOT_REDIS_POOL_SIZE")
	setBool(&cfg.Redis.TLSEnabled, "GALEBOT_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "GALEBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "GALEBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "GALEBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "GALEBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "GALEBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "GALEBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "GALEBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "GALEBOT_S3_FORCE_PATH_STYLE")

	// ── Kalshi ──
	setStr(&cfg.Kalshi.BaseURL, "GALEBOT_KALSHI_BASE_URL")
	setStr(&cfg.Kalshi.WsURL, "GALEBOT_KALSHI_WS_URL")
	setStringSlice(&cfg.Kalshi.Series, "GALEBOT_KALSHI_SERIES")

	// ── Polymarket ──
	setStr(&cfg.Polymarket.GammaHost, "GALEBOT_POLYMARKET_GAMMA_HOST")
	setStr(&cfg.Polymarket.YesLabel, "GALEBOT_POLYMARKET_YES_LABEL")

	// ── GEFS ──
	setStr(&cfg.GEFS.BaseURL, "GALEBOT_GEFS_BASE_URL")
	setInt(&cfg.GEFS.LookbackDays, "GALEBOT_GEFS_LOOKBACK_DAYS")

	// ── Strategy ──
	setFloat64(&cfg.Strategy.MinEdge, "GALEBOT_STRATEGY_MIN_EDGE")
	setFloat64(&cfg.Strategy.MinEV, "GALEBOT_STRATEGY_MIN_EV")
	setInt(&cfg.Strategy.MinMembers, "GALEBOT_STRATEGY_MIN_MEMBERS")

	// ── Risk ──
	setFloat64(&cfg.Risk.KellyFraction, "GALEBOT_RISK_KELLY_FRACTION")
	setFloat64(&cfg.Risk.PerContractCap, "GALEBOT_RISK_PER_CONTRACT_CAP")
	setFloat64(&cfg.Risk.Bankroll, "GALEBOT_RISK_BANKROLL")

	// ── Market ──
	setDuration(&cfg.Market.Staleness, "GALEBOT_MARKET_STALENESS")

	// ── Universe ──
	setFloat64(&cfg.Universe.MinVolumeUSD, "GALEBOT_UNIVERSE_MIN_VOLUME_USD")
	setInt(&cfg.Universe.WindowDaysMin, "GALEBOT_UNIVERSE_WINDOW_DAYS_MIN")
	setInt(&cfg.Universe.WindowDaysMax, "GALEBOT_UNIVERSE_WINDOW_DAYS_MAX")
	setInt(&cfg.Universe.MaxMarkets, "GALEBOT_UNIVERSE_MAX_MARKETS")
	setStringSlice(&cfg.Universe.Variables, "GALEBOT_UNIVERSE_VARIABLES")

	// ── Pipeline ──
	setDuration(&cfg.Pipeline.ScanInterval, "GALEBOT_PIPELINE_SCAN_INTERVAL")
	setDuration(&cfg.Pipeline.SignalInterval, "GALEBOT_PIPELINE_SIGNAL_INTERVAL")
	setDuration(&cfg.Pipeline.OutcomeInterval, "GALEBOT_PIPELINE_OUTCOME_INTERVAL")
	setInt(&cfg.Pipeline.ArchiveRetentionDays, "GALEBOT_PIPELINE_ARCHIVE_RETENTION_DAYS")

	// ── Backtest ──
	setStr(&cfg.Backtest.CSVPath, "GALEBOT_BACKTEST_CSV_PATH")
	setStr(&cfg.Backtest.ArchiveRun, "GALEBOT_BACKTEST_ARCHIVE_RUN")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "GALEBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "GALEBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "GALEBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "GALEBOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "GALEBOT_MODE")
	setStr(&cfg.LogLevel, "GALEBOT_LOG_LEVEL")
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
