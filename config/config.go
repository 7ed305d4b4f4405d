package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rustyeddy/propfirm/challenge"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"
	"gopkg.in/yaml.v3"
)

// Config represents the complete engine configuration
type Config struct {
	Storage   StorageConfig   `json:"storage" yaml:"storage"`
	Engine    EngineConfig    `json:"engine" yaml:"engine"`
	Pricing   PricingConfig   `json:"pricing" yaml:"pricing"`
	Server    ServerConfig    `json:"server" yaml:"server"`
	Profiling ProfilingConfig `json:"profiling" yaml:"profiling"`
	Plans     []PlanConfig    `json:"plans,omitempty" yaml:"plans,omitempty"`
}

// StorageConfig selects the durable store
type StorageConfig struct {
	Driver string `json:"driver" yaml:"driver"` // "memory", "sqlite" or "postgres"
	Path   string `json:"path,omitempty" yaml:"path,omitempty"`
	DSN    string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
}

// EngineConfig contains execution parameters. Durations use
// time.ParseDuration syntax, e.g. "5s" or "250ms".
type EngineConfig struct {
	SlippageBand float64 `json:"slippage_band" yaml:"slippage_band"`
	LockTimeout  string  `json:"lock_timeout" yaml:"lock_timeout"`
	PriceTimeout string  `json:"price_timeout" yaml:"price_timeout"`
	StoreTimeout string  `json:"store_timeout" yaml:"store_timeout"`
}

func (e EngineConfig) LockWait() time.Duration { return duration(e.LockTimeout, 5*time.Second) }
func (e EngineConfig) PriceWait() time.Duration { return duration(e.PriceTimeout, 3*time.Second) }
func (e EngineConfig) StoreWait() time.Duration { return duration(e.StoreTimeout, 5*time.Second) }

// PricingConfig selects where trusted prices come from
type PricingConfig struct {
	Source     string             `json:"source" yaml:"source"` // "static" or "binance"
	QuoteAsset string             `json:"quote_asset,omitempty" yaml:"quote_asset,omitempty"`
	MaxAge     string             `json:"max_age,omitempty" yaml:"max_age,omitempty"`
	QuotesFile string             `json:"quotes_file,omitempty" yaml:"quotes_file,omitempty"` // tick CSV replayed over quotes
	Quotes     map[string]float64 `json:"quotes,omitempty" yaml:"quotes,omitempty"`
}

func (p PricingConfig) MaxQuoteAge() time.Duration { return duration(p.MaxAge, 0) }

// ServerConfig contains HTTP parameters
type ServerConfig struct {
	Addr        string `json:"addr" yaml:"addr"`
	Environment string `json:"environment" yaml:"environment"`
}

// ProfilingConfig enables continuous profiling with pyroscope
type ProfilingConfig struct {
	Enabled         bool   `json:"enabled" yaml:"enabled"`
	ApplicationName string `json:"application_name,omitempty" yaml:"application_name,omitempty"`
	ServerAddress   string `json:"server_address,omitempty" yaml:"server_address,omitempty"`
}

// PlanConfig overrides or adds a challenge plan
type PlanConfig struct {
	Name           string  `json:"name" yaml:"name"`
	InitialBalance float64 `json:"initial_balance" yaml:"initial_balance"`
	ProfitTarget   float64 `json:"profit_target" yaml:"profit_target"`
	MaxDailyLoss   float64 `json:"max_daily_loss" yaml:"max_daily_loss"`
	MaxTotalLoss   float64 `json:"max_total_loss" yaml:"max_total_loss"`
}

func duration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// Load builds the effective configuration: defaults, then the file at path
// (if any), then a .env file and the process environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logs.Errorf("load .env: %+v", err)
	}

	cfg := Default()
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a file (JSON or YAML), on top of
// the defaults.
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.readFile(path); err != nil {
		return nil, err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, c)
	if err != nil {
		err = json.Unmarshal(data, c)
		if err != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}
	return nil
}

// ApplyEnv overlays the process environment.
func (c *Config) ApplyEnv() {
	c.Storage.Driver = getEnv("PROPFIRM_DB_DRIVER", c.Storage.Driver)
	c.Storage.Path = getEnv("PROPFIRM_SQLITE_PATH", c.Storage.Path)
	c.Storage.DSN = getEnv("DATABASE_URL", c.Storage.DSN)
	c.Server.Addr = getEnv("PROPFIRM_ADDR", c.Server.Addr)
	c.Server.Environment = getEnv("ENVIRONMENT", c.Server.Environment)
	c.Pricing.Source = getEnv("PROPFIRM_PRICE_SOURCE", c.Pricing.Source)
	c.Pricing.QuotesFile = getEnv("PROPFIRM_QUOTES_FILE", c.Pricing.QuotesFile)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	// Determine format by extension
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory":
	case "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path required for sqlite driver")
		}
	case "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn required for postgres driver")
		}
	default:
		return fmt.Errorf("storage.driver must be 'memory', 'sqlite' or 'postgres'")
	}

	if c.Engine.SlippageBand < 0 || c.Engine.SlippageBand >= 1 {
		return fmt.Errorf("engine.slippage_band must be in [0, 1)")
	}
	for name, s := range map[string]string{
		"engine.lock_timeout":  c.Engine.LockTimeout,
		"engine.price_timeout": c.Engine.PriceTimeout,
		"engine.store_timeout": c.Engine.StoreTimeout,
		"pricing.max_age":      c.Pricing.MaxAge,
	} {
		if s == "" {
			continue
		}
		if d, err := time.ParseDuration(s); err != nil || d < 0 {
			return fmt.Errorf("%s: invalid duration %q", name, s)
		}
	}

	if c.Pricing.MaxAge != "" && c.Pricing.QuotesFile != "" {
		// replayed ticks keep their historical timestamps
		return fmt.Errorf("pricing.max_age cannot be combined with pricing.quotes_file")
	}

	switch c.Pricing.Source {
	case "static":
		for sym, p := range c.Pricing.Quotes {
			if p <= 0 {
				return fmt.Errorf("pricing.quotes[%s] must be positive", sym)
			}
		}
	case "binance":
	default:
		return fmt.Errorf("pricing.source must be 'static' or 'binance'")
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Profiling.Enabled && c.Profiling.ServerAddress == "" {
		return fmt.Errorf("profiling.server_address required when profiling is enabled")
	}

	if _, err := c.PlanSet(); err != nil {
		return err
	}
	return nil
}

// PlanSet returns the built-in plans with any configured overrides applied.
func (c *Config) PlanSet() (challenge.Plans, error) {
	plans := make(challenge.Plans, len(challenge.DefaultPlans)+len(c.Plans))
	for k, v := range challenge.DefaultPlans {
		plans[k] = v
	}
	for _, pc := range c.Plans {
		p := challenge.Plan{
			Name:           challenge.NormalizePlan(pc.Name),
			InitialBalance: decimal.NewFromFloat(pc.InitialBalance),
			ProfitTarget:   decimal.NewFromFloat(pc.ProfitTarget),
			MaxDailyLoss:   decimal.NewFromFloat(pc.MaxDailyLoss),
			MaxTotalLoss:   decimal.NewFromFloat(pc.MaxTotalLoss),
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("plans[%s]: %w", pc.Name, err)
		}
		plans[p.Name] = p
	}
	return plans, nil
}

// Production reports whether the server runs in production mode.
func (c *Config) Production() bool {
	return c.Server.Environment == "production"
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Driver: "sqlite",
			Path:   "./propfirm.db",
		},
		Engine: EngineConfig{
			SlippageBand: 0.001,
			LockTimeout:  "5s",
			PriceTimeout: "3s",
			StoreTimeout: "5s",
		},
		Pricing: PricingConfig{
			Source:     "static",
			QuoteAsset: "USDT",
			Quotes: map[string]float64{
				"BTC-USD": 65000,
				"ETH-USD": 3200,
			},
		},
		Server: ServerConfig{
			Addr:        ":8080",
			Environment: "development",
		},
		Profiling: ProfilingConfig{
			ApplicationName: "propfirm",
			ServerAddress:   "http://localhost:4040",
		},
	}
}
