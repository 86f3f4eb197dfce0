package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Health     HealthConfig     `yaml:"health"`
	AliasStore AliasStoreConfig `yaml:"alias_store"`
	Bookmakers BookmakersConfig `yaml:"bookmakers"`
	Resolver   ResolverConfig   `yaml:"resolver"`
	Sources    SourcesConfig    `yaml:"sources"`
	Evaluator  EvaluatorConfig  `yaml:"evaluator"`
	Publisher  PublisherConfig  `yaml:"publisher"`
	ResultsDir string           `yaml:"results_dir"` // Non-zero profit events are written here as <name>.json
}

type LoggingConfig struct {
	Level      string `yaml:"level"`        // debug, info, warn, error (default: info)
	File       string `yaml:"file"`         // Optional JSON log file, rotated by size
	MaxSizeMB  int    `yaml:"max_size_mb"`  // default: 100
	MaxBackups int    `yaml:"max_backups"`  // default: 5
	MaxAgeDays int    `yaml:"max_age_days"` // default: 28
	Compress   bool   `yaml:"compress"`
}

type HealthConfig struct {
	Port              int           `yaml:"port"` // 0 disables the health server
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
}

type AliasStoreConfig struct {
	Backend string `yaml:"backend"` // file, postgres or badger (default: file)
	Path    string `yaml:"path"`    // JSON file or badger directory
	DSN     string `yaml:"dsn"`     // Postgres DSN
}

type BookmakerConfig struct {
	Name             string  `yaml:"name"`
	Commission       float64 `yaml:"commission"`
	Balance          float64 `yaml:"balance"`
	PercentOfBalance float64 `yaml:"percent_of_balance"`
	MaxWagerCount    int     `yaml:"max_wager_count"`
}

type BookmakersConfig struct {
	Default BookmakerConfig   `yaml:"default"` // Settings of bookmakers first seen in a feed
	Known   []BookmakerConfig `yaml:"known"`
}

type ResolverConfig struct {
	Escalation       string        `yaml:"escalation"`     // terminal, telegram, auto or reject (default: terminal)
	AutoThreshold    float64       `yaml:"auto_threshold"` // Similarity needed by the auto escalator (default: 0.8)
	TelegramBotToken string        `yaml:"telegram_bot_token"`
	TelegramChatID   int64         `yaml:"telegram_chat_id"`
	GatherNewLeagues bool          `yaml:"gather_new_leagues"` // Ignore the learned league filter
	Sports           []string      `yaml:"sports"`             // default: [football]
	Interval         time.Duration `yaml:"interval"`           // Pause between cycles (default: 5m)
	TimeWindow       time.Duration `yaml:"time_window"`        // How far ahead to look for fixtures (default: 25h)
	Sources          []string      `yaml:"sources"`            // Source order; the first one is authoritative for new names
}

type SourcesConfig struct {
	Exchange   ExchangeConfig   `yaml:"exchange"`
	Aggregator AggregatorConfig `yaml:"aggregator"`
}

type ExchangeConfig struct {
	BaseURL        string        `yaml:"base_url"`
	LoginURL       string        `yaml:"login_url"`
	AppKey         string        `yaml:"app_key"`
	SessionToken   string        `yaml:"session_token"`    // Used as is when set, otherwise username/password login
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	Timeout        time.Duration `yaml:"timeout"`
	Locale         string        `yaml:"locale"`
	PriceData      []string      `yaml:"price_data"`       // default: [EX_BEST_OFFERS]
	BestPriceDepth int           `yaml:"best_price_depth"` // 0 keeps the exchange default of 3
	MaxRunners     int           `yaml:"max_runners"`      // Runner budget per market book request (default: 250)
	MarketTypes    []string      `yaml:"market_types"`     // Overrides the per-sport market type codes
}

type AggregatorConfig struct {
	BaseURL         string        `yaml:"base_url"`
	APIKey          string        `yaml:"api_key"`
	Regions         []string      `yaml:"regions"` // default: [uk, eu]
	Markets         []string      `yaml:"markets"` // default: [h2h, totals, spreads]
	ExtraMarkets    []string      `yaml:"extra_markets"`
	OddsFormat      string        `yaml:"odds_format"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxEventsPerRun int           `yaml:"max_events_per_run"` // 0 means no limit
}

type EvaluatorConfig struct {
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	APIHost string        `yaml:"api_host"`
	Timeout time.Duration `yaml:"timeout"`
	Retries int           `yaml:"retries"` // Attempts per event (default: 3)
}

type PublisherConfig struct {
	RedisAddr string `yaml:"redis_addr"` // Empty disables publishing
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	Stream    string `yaml:"stream"`  // default: oddsmerge.events
	MaxLen    int64  `yaml:"max_len"` // Approximate stream cap (default: 10000)
}

// Load reads a YAML config, expanding ${VAR} references from the environment,
// and applies defaults.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &config, nil
}

// Validate fills in defaults and rejects settings that cannot work together.
func (c *Config) Validate() error {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = 100
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = 5
	}
	if c.Logging.MaxAgeDays == 0 {
		c.Logging.MaxAgeDays = 28
	}
	if c.Health.ReadHeaderTimeout == 0 {
		c.Health.ReadHeaderTimeout = 5 * time.Second
	}

	if c.AliasStore.Backend == "" {
		c.AliasStore.Backend = "file"
	}
	switch c.AliasStore.Backend {
	case "file":
		if c.AliasStore.Path == "" {
			c.AliasStore.Path = "storage/aliases.json"
		}
	case "badger":
		if c.AliasStore.Path == "" {
			c.AliasStore.Path = "storage/aliases"
		}
	case "postgres":
		if c.AliasStore.DSN == "" {
			return errors.New("alias_store.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown alias_store.backend %q", c.AliasStore.Backend)
	}

	if c.Resolver.Escalation == "" {
		c.Resolver.Escalation = "terminal"
	}
	switch c.Resolver.Escalation {
	case "terminal", "reject":
	case "auto":
		if c.Resolver.AutoThreshold == 0 {
			c.Resolver.AutoThreshold = 0.8
		}
		if c.Resolver.AutoThreshold < 0 || c.Resolver.AutoThreshold > 1 {
			return fmt.Errorf("resolver.auto_threshold must be within [0, 1], got %v", c.Resolver.AutoThreshold)
		}
	case "telegram":
		if c.Resolver.TelegramBotToken == "" || c.Resolver.TelegramChatID == 0 {
			return errors.New("resolver.telegram_bot_token and resolver.telegram_chat_id are required for telegram escalation")
		}
	default:
		return fmt.Errorf("unknown resolver.escalation %q", c.Resolver.Escalation)
	}
	if len(c.Resolver.Sports) == 0 {
		c.Resolver.Sports = []string{"football"}
	}
	if c.Resolver.Interval == 0 {
		c.Resolver.Interval = 5 * time.Minute
	}
	if c.Resolver.TimeWindow == 0 {
		c.Resolver.TimeWindow = 25 * time.Hour
	}
	if len(c.Resolver.Sources) == 0 {
		return errors.New("resolver.sources must list at least one source")
	}

	ex := &c.Sources.Exchange
	if ex.BaseURL == "" {
		ex.BaseURL = "https://api.betfair.com/exchange/betting/rest/v1.0"
	}
	if ex.LoginURL == "" {
		ex.LoginURL = "https://identitysso.betfair.com/api/login"
	}
	if ex.Timeout == 0 {
		ex.Timeout = 30 * time.Second
	}
	if len(ex.PriceData) == 0 {
		ex.PriceData = []string{"EX_BEST_OFFERS"}
	}
	if ex.MaxRunners == 0 {
		ex.MaxRunners = 250
	}

	agg := &c.Sources.Aggregator
	if agg.BaseURL == "" {
		agg.BaseURL = "https://api.the-odds-api.com/v4"
	}
	if len(agg.Regions) == 0 {
		agg.Regions = []string{"uk", "eu"}
	}
	if len(agg.Markets) == 0 {
		agg.Markets = []string{"h2h", "totals", "spreads"}
	}
	if agg.OddsFormat == "" {
		agg.OddsFormat = "decimal"
	}
	if agg.Timeout == 0 {
		agg.Timeout = 30 * time.Second
	}

	if c.Evaluator.Timeout == 0 {
		c.Evaluator.Timeout = 30 * time.Second
	}
	if c.Evaluator.Retries == 0 {
		c.Evaluator.Retries = 3
	}

	if c.Publisher.Stream == "" {
		c.Publisher.Stream = "oddsmerge.events"
	}
	if c.Publisher.MaxLen == 0 {
		c.Publisher.MaxLen = 10000
	}

	if c.ResultsDir == "" {
		c.ResultsDir = "results"
	}
	return nil
}
