// Package config defines the top-level configuration for galebot and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by GALEBOT_* environment
// variables.
type Config struct {
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Kalshi     KalshiConfig     `toml:"kalshi"`
	Polymarket PolymarketConfig `toml:"polymarket"`
	GEFS       GEFSConfig       `toml:"gefs"`
	Strategy   StrategyConfig   `toml:"strategy"`
	Risk       RiskConfig       `toml:"risk"`
	Market     MarketConfig     `toml:"market"`
	Universe   UniverseConfig   `toml:"universe"`
	Pipeline   PipelineConfig   `toml:"pipeline"`
	Backtest   BacktestConfig   `toml:"backtest"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// PostgresConfig holds PostgreSQL connection parameters. DSN, when set,
// wins over the individual fields.
type PostgresConfig struct {
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
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// KalshiConfig holds Kalshi market-data API parameters. The market-data
// endpoints used here are public and unsigned.
type KalshiConfig struct {
	BaseURL string   `toml:"base_url"`
	WsURL   string   `toml:"ws_url"`
	Series  []string `toml:"series"` // series tickers watched in monitor mode
}

// PolymarketConfig holds Polymarket Gamma API parameters.
type PolymarketConfig struct {
	GammaHost string `toml:"gamma_host"`
	YesLabel  string `toml:"yes_label"`
}

// GEFSConfig holds NOAA GEFS ensemble access parameters.
type GEFSConfig struct {
	BaseURL      string `toml:"base_url"`
	LookbackDays int    `toml:"lookback_days"`
}

// StrategyConfig holds the signal gate thresholds.
type StrategyConfig struct {
	MinEdge float64 `toml:"min_edge"`
	MinEV   float64 `toml:"min_ev"`
	// MinMembers rejects unanimous forecasts from ensembles smaller than
	// this. 0 disables the gate.
	MinMembers int `toml:"min_members"`
}

// RiskConfig holds Kelly sizing parameters and the paper bankroll.
type RiskConfig struct {
	KellyFraction  float64 `toml:"kelly_fraction"`
	PerContractCap float64 `toml:"per_contract_cap"`
	Bankroll       float64 `toml:"bankroll"`
}

// MarketConfig holds quote handling parameters.
type MarketConfig struct {
	// Staleness is the maximum quote age before rejection. Also the cache
	// TTL, so an expired key and a stale quote mean the same thing.
	Staleness duration `toml:"staleness"`
}

// CityConfig describes one city the universe selector can match.
type CityConfig struct {
	Label    string   `toml:"label"`
	Name     string   `toml:"name"`
	Aliases  []string `toml:"aliases"`
	Lat      float64  `toml:"lat"`
	Lon      float64  `toml:"lon"`
	Timezone string   `toml:"timezone"`
}

// UniverseConfig holds market discovery filters.
type UniverseConfig struct {
	Cities        []CityConfig `toml:"cities"`
	MinVolumeUSD  float64      `toml:"min_volume_usd"`
	WindowDaysMin int          `toml:"window_days_min"`
	WindowDaysMax int          `toml:"window_days_max"`
	MaxMarkets    int          `toml:"max_markets"`
	Variables     []string     `toml:"variables"`
}

// PipelineConfig holds scheduling parameters for the long-running modes.
type PipelineConfig struct {
	ScanInterval         duration `toml:"scan_interval"`
	SignalInterval       duration `toml:"signal_interval"`
	OutcomeInterval      duration `toml:"outcome_interval"`
	ArchiveRetentionDays int      `toml:"archive_retention_days"`
}

// BacktestConfig selects the replay source for backtest mode. With neither
// field set, the mode replays the snapshot store.
type BacktestConfig struct {
	CSVPath    string `toml:"csv_path"`    // replay a local CSV export
	ArchiveRun string `toml:"archive_run"` // replay an archived dataset by run id
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration wraps time.Duration so the TOML decoder can parse strings like
// "5m" or "30s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with the documented default values.
func Defaults() Config {
	return Config{
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "galebot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			DB:       0,
			PoolSize: 20,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "galebot-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Kalshi: KalshiConfig{
			BaseURL: "https://api.elections.kalshi.com/trade-api/v2",
			WsURL:   "wss://api.elections.kalshi.com/trade-api/ws/v2",
			Series:  []string{"KXHIGHNY", "KXHIGHCHI", "KXHIGHMIA"},
		},
		Polymarket: PolymarketConfig{
			GammaHost: "https://gamma-api.polymarket.com",
			YesLabel:  "Yes",
		},
		GEFS: GEFSConfig{
			BaseURL:      "https://nomads.ncep.noaa.gov/dods/gefs",
			LookbackDays: 2,
		},
		Strategy: StrategyConfig{
			MinEdge:    0.10,
			MinEV:      0.0,
			MinMembers: 10,
		},
		Risk: RiskConfig{
			KellyFraction:  0.25,
			PerContractCap: 0.02,
			Bankroll:       10_000,
		},
		Market: MarketConfig{
			Staleness: duration{10 * time.Minute},
		},
		Universe: UniverseConfig{
			MinVolumeUSD:  1_000,
			WindowDaysMin: 0,
			WindowDaysMax: 10,
			MaxMarkets:    50,
			Variables:     []string{"temp_max", "precip_total"},
		},
		Pipeline: PipelineConfig{
			ScanInterval:         duration{30 * time.Minute},
			SignalInterval:       duration{10 * time.Minute},
			OutcomeInterval:      duration{1 * time.Hour},
			ArchiveRetentionDays: 90,
		},
		Notify: NotifyConfig{
			Events: []string{"signal", "order", "outcome", "error"},
		},
		Mode:     "signal",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"signal":   true,
	"scan":     true,
	"backtest": true,
	"outcome":  true,
	"monitor":  true,
	"full":     true,
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
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: signal, scan, backtest, outcome, monitor, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
	}

	if c.Kalshi.BaseURL == "" {
		errs = append(errs, "kalshi: base_url must not be empty")
	}
	if c.Polymarket.GammaHost == "" {
		errs = append(errs, "polymarket: gamma_host must not be empty")
	}

	if c.GEFS.BaseURL == "" {
		errs = append(errs, "gefs: base_url must not be empty")
	}
	if c.GEFS.LookbackDays < 1 {
		errs = append(errs, "gefs: lookback_days must be >= 1")
	}

	if c.Strategy.MinEdge < 0 || c.Strategy.MinEdge > 1 {
		errs = append(errs, fmt.Sprintf("strategy: min_edge must be in [0, 1], got %g", c.Strategy.MinEdge))
	}
	if c.Strategy.MinMembers < 0 {
		errs = append(errs, "strategy: min_members must be >= 0")
	}

	if c.Risk.KellyFraction <= 0 || c.Risk.KellyFraction > 1 {
		errs = append(errs, fmt.Sprintf("risk: kelly_fraction must be in (0, 1], got %g", c.Risk.KellyFraction))
	}
	if c.Risk.PerContractCap <= 0 || c.Risk.PerContractCap > 1 {
		errs = append(errs, fmt.Sprintf("risk: per_contract_cap must be in (0, 1], got %g", c.Risk.PerContractCap))
	}
	if c.Risk.Bankroll <= 0 {
		errs = append(errs, "risk: bankroll must be > 0")
	}

	if c.Market.Staleness.Duration <= 0 {
		errs = append(errs, "market: staleness must be > 0")
	}

	if c.Universe.WindowDaysMin < 0 {
		errs = append(errs, "universe: window_days_min must be >= 0")
	}
	if c.Universe.WindowDaysMax < c.Universe.WindowDaysMin {
		errs = append(errs, "universe: window_days_max must be >= window_days_min")
	}
	if c.Universe.MaxMarkets < 1 {
		errs = append(errs, "universe: max_markets must be >= 1")
	}
	for i, city := range c.Universe.Cities {
		if city.Label == "" || city.Name == "" {
			errs = append(errs, fmt.Sprintf("universe: cities[%d] needs label and name", i))
		}
		if city.Lat < -90 || city.Lat > 90 {
			errs = append(errs, fmt.Sprintf("universe: cities[%d] lat %g out of range", i, city.Lat))
		}
		if city.Timezone == "" {
			errs = append(errs, fmt.Sprintf("universe: cities[%d] needs a timezone", i))
		}
	}

	if c.Pipeline.ScanInterval.Duration <= 0 {
		errs = append(errs, "pipeline: scan_interval must be > 0")
	}
	if c.Pipeline.SignalInterval.Duration <= 0 {
		errs = append(errs, "pipeline: signal_interval must be > 0")
	}

	if c.Backtest.CSVPath != "" && c.Backtest.ArchiveRun != "" {
		errs = append(errs, "backtest: csv_path and archive_run are mutually exclusive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
