// Package config loads and validates the riskgate engine
// configuration.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/riskgate/budget"
	"github.com/rustyeddy/riskgate/gate"
	"github.com/rustyeddy/riskgate/sizing"
)

// Config is the complete engine configuration.
type Config struct {
	Budget budget.Config `json:"budget" yaml:"budget"`
	Sizing SizingConfig  `json:"sizing" yaml:"sizing"`
	Gate   gate.Config   `json:"gate" yaml:"gate"`
	Audit  AuditConfig   `json:"audit" yaml:"audit"`
}

// SizingConfig contains the per-trade fraction and the sizer
// constants.
type SizingConfig struct {
	MaxTradeRiskFraction float64 `json:"max_trade_risk_fraction" yaml:"max_trade_risk_fraction"`
	LowCapThreshold      float64 `json:"low_cap_threshold" yaml:"low_cap_threshold"`
	LowCapFraction       float64 `json:"low_cap_fraction" yaml:"low_cap_fraction"`
	SafetyBuffer         float64 `json:"safety_buffer" yaml:"safety_buffer"`
	HardCapContracts     int     `json:"hard_cap_contracts" yaml:"hard_cap_contracts"`
	MinWidthPoints       float64 `json:"min_width_points" yaml:"min_width_points"`
}

// Params converts the sizing section to sizer constants.
func (c SizingConfig) Params() sizing.Params {
	return sizing.Params{
		LowCapThreshold:  c.LowCapThreshold,
		LowCapFraction:   c.LowCapFraction,
		SafetyBuffer:     c.SafetyBuffer,
		HardCapContracts: c.HardCapContracts,
		MinWidthPoints:   c.MinWidthPoints,
	}
}

// AuditConfig contains durable audit storage parameters; in-memory
// retention lives on the gate section.
type AuditConfig struct {
	// DBPath, when set, tees audit records into a SQLite store.
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// Default returns the production configuration.
func Default() *Config {
	p := sizing.DefaultParams()
	return &Config{
		Budget: budget.DefaultConfig(),
		Sizing: SizingConfig{
			MaxTradeRiskFraction: sizing.DefaultMaxTradeRiskFraction,
			LowCapThreshold:      p.LowCapThreshold,
			LowCapFraction:       p.LowCapFraction,
			SafetyBuffer:         p.SafetyBuffer,
			HardCapContracts:     p.HardCapContracts,
			MinWidthPoints:       p.MinWidthPoints,
		},
		Gate: gate.Config{
			MinLiquidityScore: 0.5,
			MaxBidAskSpread:   0.25,
		},
		Audit: AuditConfig{},
	}
}

// LoadFromFile loads configuration from a file (YAML first, JSON
// fallback) and validates it. Fields absent from the file keep their
// defaults; an empty file is an error, since silently substituting
// the full defaults could loosen limits an operator had tightened.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("config file %s is empty", path)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes the configuration, choosing the format by file
// extension (.yaml/.yml for YAML, JSON otherwise). The write goes
// through a temp file and rename so a watcher never observes a
// half-written document.
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace config file: %w", err)
	}
	return nil
}

// Validate checks the configuration is internally consistent.
func (c *Config) Validate() error {
	if len(c.Budget.Ladder) == 0 {
		return fmt.Errorf("budget.ladder is required")
	}
	prev := 0.0
	for i, v := range c.Budget.Ladder {
		if v <= 0 {
			return fmt.Errorf("budget.ladder[%d] must be positive", i)
		}
		if i > 0 && v > prev {
			return fmt.Errorf("budget.ladder must be non-increasing (index %d)", i)
		}
		prev = v
	}
	if c.Budget.ResetProfitThreshold <= 0 {
		return fmt.Errorf("budget.reset_profit_threshold must be positive")
	}
	if c.Sizing.MaxTradeRiskFraction <= 0 || c.Sizing.MaxTradeRiskFraction > 1 {
		return fmt.Errorf("sizing.max_trade_risk_fraction must be in (0, 1]")
	}
	if c.Sizing.LowCapFraction <= 0 || c.Sizing.LowCapFraction > 1 {
		return fmt.Errorf("sizing.low_cap_fraction must be in (0, 1]")
	}
	if c.Sizing.LowCapThreshold < 0 {
		return fmt.Errorf("sizing.low_cap_threshold must not be negative")
	}
	if c.Sizing.SafetyBuffer < 0 || c.Sizing.SafetyBuffer >= 1 {
		return fmt.Errorf("sizing.safety_buffer must be in [0, 1)")
	}
	if c.Sizing.HardCapContracts < 1 {
		return fmt.Errorf("sizing.hard_cap_contracts must be at least 1")
	}
	if c.Sizing.MinWidthPoints <= 0 {
		return fmt.Errorf("sizing.min_width_points must be positive")
	}
	if c.Gate.MinLiquidityScore < 0 || c.Gate.MinLiquidityScore > 1 {
		return fmt.Errorf("gate.min_liquidity_score must be in [0, 1]")
	}
	if c.Gate.MaxBidAskSpread < 0 {
		return fmt.Errorf("gate.max_bid_ask_spread must not be negative")
	}
	if c.Gate.PerTradeMaxLoss < 0 {
		return fmt.Errorf("gate.per_trade_max_loss must not be negative")
	}
	if c.Gate.AuditRetention < 0 {
		return fmt.Errorf("gate.audit_retention must not be negative")
	}
	return nil
}
