// Package config loads the service configuration from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	sdkmath "cosmossdk.io/math"
	"gopkg.in/yaml.v3"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/idhash"
	"token-launchpad/internal/market"
)

// Storage backends.
const (
	BackendMemory = "memory"
	BackendSQL    = "sql"
)

// Environment overrides.
const (
	EnvPostgresDSN   = "LAUNCHPAD_POSTGRES_DSN"
	EnvClickhouseDSN = "LAUNCHPAD_CLICKHOUSE_DSN"
	EnvAPIListen     = "LAUNCHPAD_API_LISTEN"
	EnvMetricsListen = "LAUNCHPAD_METRICS_LISTEN"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds every setting of the service.
type Config struct {
	Registry struct {
		Owner     string   `yaml:"owner"`
		Admins    []string `yaml:"admins"`
		Threshold int      `yaml:"threshold"`
	} `yaml:"registry"`

	Market struct {
		BasePrice string `yaml:"base_price"` // base units, decimal string
		Slope     string `yaml:"slope"`
		MaxSupply string `yaml:"max_supply"`
		ProgramID string `yaml:"program_id"`
	} `yaml:"market"`

	Genesis []GenesisBalance `yaml:"genesis"`

	API struct {
		Listen            string        `yaml:"listen"`
		RequireSignatures bool          `yaml:"require_signatures"`
		SignatureWindow   time.Duration `yaml:"signature_window"` // max X-Timestamp skew, e.g. "5m"
	} `yaml:"api"`

	Storage struct {
		Backend       string `yaml:"backend"`
		PostgresDSN   string `yaml:"postgres_dsn"`
		ClickhouseDSN string `yaml:"clickhouse_dsn"`
	} `yaml:"storage"`

	Metrics struct {
		Listen string `yaml:"listen"`
	} `yaml:"metrics"`
}

// GenesisBalance is an initial base-currency balance.
type GenesisBalance struct {
	Account string `yaml:"account"`
	Amount  string `yaml:"amount"` // base units, decimal string
}

// Load reads path, applies defaults and environment overrides, and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies defaults and environment overrides, and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.API.Listen == "" {
		c.API.Listen = ":8080"
	}
	if c.Metrics.Listen == "" {
		c.Metrics.Listen = ":9090"
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendMemory
	}
}

// overrideWithEnv lets environment variables take precedence over the file.
func (c *Config) overrideWithEnv() {
	if v := os.Getenv(EnvPostgresDSN); v != "" {
		c.Storage.PostgresDSN = v
	}
	if v := os.Getenv(EnvClickhouseDSN); v != "" {
		c.Storage.ClickhouseDSN = v
	}
	if v := os.Getenv(EnvAPIListen); v != "" {
		c.API.Listen = v
	}
	if v := os.Getenv(EnvMetricsListen); v != "" {
		c.Metrics.Listen = v
	}
}

// Validate checks that every field parses and the admin set is well formed.
func (c *Config) Validate() error {
	if _, err := domain.ParseAccount(c.Registry.Owner); err != nil {
		return fmt.Errorf("%w: registry.owner: %v", ErrInvalidConfig, err)
	}
	admins, err := c.Admins()
	if err != nil {
		return err
	}
	if len(admins) == 0 {
		return fmt.Errorf("%w: registry.admins must not be empty", ErrInvalidConfig)
	}
	if c.Registry.Threshold < 1 || c.Registry.Threshold > len(admins) {
		return fmt.Errorf("%w: registry.threshold %d not in [1, %d]", ErrInvalidConfig, c.Registry.Threshold, len(admins))
	}

	params, err := c.MarketParams()
	if err != nil {
		return err
	}
	if err := market.ValidateParams(params); err != nil {
		return fmt.Errorf("%w: market: %v", ErrInvalidConfig, err)
	}
	if _, err := c.ProgramID(); err != nil {
		return err
	}
	if _, err := c.GenesisBalances(); err != nil {
		return err
	}

	if c.API.SignatureWindow < 0 {
		return fmt.Errorf("%w: api.signature_window must not be negative", ErrInvalidConfig)
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendSQL:
		if c.Storage.PostgresDSN == "" || c.Storage.ClickhouseDSN == "" {
			return fmt.Errorf("%w: storage.backend sql requires postgres_dsn and clickhouse_dsn", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage.backend %q", ErrInvalidConfig, c.Storage.Backend)
	}
	return nil
}

// Owner returns the parsed registry owner.
func (c *Config) Owner() domain.Account {
	a, _ := domain.ParseAccount(c.Registry.Owner)
	return a
}

// Admins returns the parsed admin list.
func (c *Config) Admins() ([]domain.Account, error) {
	admins := make([]domain.Account, 0, len(c.Registry.Admins))
	for i, s := range c.Registry.Admins {
		a, err := domain.ParseAccount(s)
		if err != nil {
			return nil, fmt.Errorf("%w: registry.admins[%d]: %v", ErrInvalidConfig, i, err)
		}
		admins = append(admins, a)
	}
	return admins, nil
}

// MarketParams returns the configured curve, falling back to market.DefaultParams per field.
func (c *Config) MarketParams() (domain.MarketParams, error) {
	p := market.DefaultParams()
	fields := []struct {
		name string
		raw  string
		dst  *sdkmath.Int
	}{
		{"base_price", c.Market.BasePrice, &p.BasePrice},
		{"slope", c.Market.Slope, &p.Slope},
		{"max_supply", c.Market.MaxSupply, &p.MaxSupply},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.raw) == "" {
			continue
		}
		v, err := domain.ParseAmount(f.raw)
		if err != nil {
			return domain.MarketParams{}, fmt.Errorf("%w: market.%s: %v", ErrInvalidConfig, f.name, err)
		}
		*f.dst = v
	}
	return p, nil
}

// ProgramID returns the configured program id or idhash.DefaultProgramID.
func (c *Config) ProgramID() (domain.Account, error) {
	if c.Market.ProgramID == "" {
		return idhash.DefaultProgramID, nil
	}
	a, err := domain.ParseAccount(c.Market.ProgramID)
	if err != nil {
		return domain.Account{}, fmt.Errorf("%w: market.program_id: %v", ErrInvalidConfig, err)
	}
	return a, nil
}

// Balance is a parsed genesis balance.
type Balance struct {
	Account domain.Account
	Amount  sdkmath.Int
}

// GenesisBalances returns the parsed genesis list.
func (c *Config) GenesisBalances() ([]Balance, error) {
	out := make([]Balance, 0, len(c.Genesis))
	for i, g := range c.Genesis {
		a, err := domain.ParseAccount(g.Account)
		if err != nil {
			return nil, fmt.Errorf("%w: genesis[%d].account: %v", ErrInvalidConfig, i, err)
		}
		amt, err := domain.ParseAmount(g.Amount)
		if err != nil {
			return nil, fmt.Errorf("%w: genesis[%d].amount: %v", ErrInvalidConfig, i, err)
		}
		out = append(out, Balance{Account: a, Amount: amt})
	}
	return out, nil
}

// LoadEnvFile sets variables from a .env file without overriding existing ones.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		if _, set := os.LookupEnv(key); !set {
			os.Setenv(key, value)
		}
	}
	return nil
}
