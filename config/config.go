package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config is the engine's full configuration document : how much
// paper capital to run with, whether to run in paper mode at all, and
// the per-strategy knobs the risk gate reads at startup.
type Config struct {
	CapitalUSD float64          `json:"capital_usd"`
	PaperMode  bool             `json:"paper_mode"`
	Strategies StrategiesConfig `json:"strategies"`
}

// StrategiesConfig holds the three fixed strategy slots by name.
// Unknown keys in the source document are ignored; any of the three
// may be omitted, in which case it keeps its Default() value:
// cross_exchange enabled at priority 0, the other two disabled.
type StrategiesConfig struct {
	Statistical    StrategyConfig `json:"statistical"`
	CrossExchange  StrategyConfig `json:"cross_exchange"`
	Triangular     StrategyConfig `json:"triangular"`
}

// StrategyConfig is one strategy slot's startup configuration.
type StrategyConfig struct {
	Enabled        bool    `json:"enabled"`
	Priority       int     `json:"priority"`
	MinSpreadBps   float64 `json:"min_spread_bps,omitempty"`
	BestPairsOnly  bool    `json:"best_pairs_only,omitempty"`
	RealisticOnly  bool    `json:"realistic_only,omitempty"`
}

// Load reads the JSON configuration document at path, applies any
// recognized .env overlay (silently ignored if absent), and fills in
// the contract's defaults for anything left unset.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse JSON: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// applyEnvOverrides lets a couple of operational knobs be flipped
// without editing the config file, matching the teacher's env-overlay
// pattern.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DRAIZER_PAPER_MODE"); v == "0" {
		cfg.PaperMode = false
	} else if v == "1" {
		cfg.PaperMode = true
	}
	if v := os.Getenv("DRAIZER_CAPITAL_USD"); v != "" {
		var capital float64
		if _, err := fmt.Sscanf(v, "%f", &capital); err == nil && capital > 0 {
			cfg.CapitalUSD = capital
		}
	}
}

// setDefaults fills in anything still zero after starting from
// Default() and unmarshaling over it — CapitalUSD is the only field
// where the zero value and "unset" coincide safely (0 is never a valid
// capital), so it's the only one worth re-checking here.
func setDefaults(cfg *Config) {
	if cfg.CapitalUSD <= 0 {
		cfg.CapitalUSD = 1000
	}
}

// Default returns the contract's documented zero-config defaults.
func Default() Config {
	return Config{
		CapitalUSD: 1000,
		PaperMode:  true,
		Strategies: StrategiesConfig{
			CrossExchange: StrategyConfig{Enabled: true, Priority: 0},
		},
	}
}
