package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, []float64{500, 300, 200, 100}, cfg.Budget.Ladder)
	assert.InDelta(t, 16.0, cfg.Budget.ResetProfitThreshold, 1e-9)
	assert.InDelta(t, 0.45, cfg.Sizing.MaxTradeRiskFraction, 1e-9)
	assert.Equal(t, 8, cfg.Sizing.HardCapContracts)
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()

	yaml := `
budget:
  ladder: [400, 250, 150]
  reset_profit_threshold: 20
sizing:
  max_trade_risk_fraction: 0.5
  hard_cap_contracts: 4
gate:
  min_liquidity_score: 0.6
audit:
  db_path: ./audit.db
`
	path := filepath.Join(t.TempDir(), "riskgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, []float64{400, 250, 150}, cfg.Budget.Ladder)
	assert.InDelta(t, 20.0, cfg.Budget.ResetProfitThreshold, 1e-9)
	assert.InDelta(t, 0.5, cfg.Sizing.MaxTradeRiskFraction, 1e-9)
	assert.Equal(t, 4, cfg.Sizing.HardCapContracts)
	assert.InDelta(t, 0.6, cfg.Gate.MinLiquidityScore, 1e-9)
	assert.Equal(t, "./audit.db", cfg.Audit.DBPath)

	// Unset fields keep their defaults.
	assert.InDelta(t, 0.05, cfg.Sizing.SafetyBuffer, 1e-9)
	assert.InDelta(t, 1.0, cfg.Sizing.MinWidthPoints, 1e-9)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := Default()
	cfg.Sizing.HardCapContracts = 5

	for _, name := range []string{"riskgate.yaml", "riskgate.json"} {
		path := filepath.Join(dir, name)
		require.NoError(t, cfg.SaveToFile(path))

		got, err := LoadFromFile(path)
		require.NoError(t, err, name)
		assert.Equal(t, cfg, got, name)

		// The rename-based save leaves no temp file behind.
		_, statErr := os.Stat(path + ".tmp")
		assert.True(t, os.IsNotExist(statErr), name)
	}
}

func TestValidateRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty ladder", func(c *Config) { c.Budget.Ladder = nil }},
		{"ascending ladder", func(c *Config) { c.Budget.Ladder = []float64{100, 500} }},
		{"non-positive rung", func(c *Config) { c.Budget.Ladder = []float64{500, 0} }},
		{"zero reset threshold", func(c *Config) { c.Budget.ResetProfitThreshold = 0 }},
		{"fraction above one", func(c *Config) { c.Sizing.MaxTradeRiskFraction = 1.5 }},
		{"zero low-cap fraction", func(c *Config) { c.Sizing.LowCapFraction = 0 }},
		{"full safety buffer", func(c *Config) { c.Sizing.SafetyBuffer = 1 }},
		{"zero hard cap", func(c *Config) { c.Sizing.HardCapContracts = 0 }},
		{"zero min width", func(c *Config) { c.Sizing.MinWidthPoints = 0 }},
		{"negative spread cap", func(c *Config) { c.Gate.MaxBidAskSpread = -0.1 }},
		{"liquidity above one", func(c *Config) { c.Gate.MinLiquidityScore = 1.2 }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadRejectsEmptyFile(t *testing.T) {
	t.Parallel()

	// An empty or blank file must not load as the defaults: the
	// defaults (hard cap 8) may be looser than what an operator's
	// config had tightened them to.
	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"whitespace only", " \n\t\n"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "riskgate.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0644))

			_, err := LoadFromFile(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not valid: [yaml or json"), 0644))

	_, err := LoadFromFile(path)
	assert.Error(t, err)
}
