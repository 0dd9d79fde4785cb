// Package config loads and validates the run configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/quantbt/mabot/sim"
	"github.com/quantbt/mabot/strategy"
	"gopkg.in/yaml.v3"
)

// Config is the complete backtest configuration. It is read once at startup;
// the simulation loop only ever sees the immutable sim.Config derived from it.
type Config struct {
	Market   MarketConfig   `json:"market" yaml:"market"`
	Strategy StrategyConfig `json:"strategy" yaml:"strategy"`
	Risk     RiskConfig     `json:"risk" yaml:"risk"`
	Account  AccountConfig  `json:"account" yaml:"account"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
}

// MarketConfig selects the instrument and replay window.
type MarketConfig struct {
	Symbol   string `json:"symbol" yaml:"symbol"`
	Interval string `json:"interval" yaml:"interval"` // e.g. 5m
	Start    string `json:"start,omitempty" yaml:"start,omitempty"`
	End      string `json:"end,omitempty" yaml:"end,omitempty"`
}

// StrategyConfig parameterizes the signal generator.
type StrategyConfig struct {
	EnableLong  bool `json:"enable_long" yaml:"enable_long"`
	EnableShort bool `json:"enable_short" yaml:"enable_short"`

	FastWindow int `json:"fast_window" yaml:"fast_window"`
	MidWindow  int `json:"mid_window" yaml:"mid_window"`
	SlowWindow int `json:"slow_window,omitempty" yaml:"slow_window,omitempty"`

	DistanceFilter bool    `json:"distance_filter" yaml:"distance_filter"`
	LongDistance   float64 `json:"long_distance,omitempty" yaml:"long_distance,omitempty"`
	ShortDistance  float64 `json:"short_distance,omitempty" yaml:"short_distance,omitempty"`

	StreakFilter bool `json:"streak_filter" yaml:"streak_filter"`
	MaxLongRun   int  `json:"max_long_run,omitempty" yaml:"max_long_run,omitempty"`
	MaxShortRun  int  `json:"max_short_run,omitempty" yaml:"max_short_run,omitempty"`
}

// RiskConfig covers leverage, fees, exits and sizing.
type RiskConfig struct {
	Leverage float64 `json:"leverage" yaml:"leverage"`
	FeeRate  float64 `json:"fee_rate" yaml:"fee_rate"`

	TakeProfitLong  float64 `json:"take_profit_long" yaml:"take_profit_long"`
	StopLossLong    float64 `json:"stop_loss_long" yaml:"stop_loss_long"`
	TakeProfitShort float64 `json:"take_profit_short" yaml:"take_profit_short"`
	StopLossShort   float64 `json:"stop_loss_short" yaml:"stop_loss_short"`

	SizingMode  string  `json:"sizing_mode" yaml:"sizing_mode"` // fixed | fraction
	Margin      float64 `json:"margin,omitempty" yaml:"margin,omitempty"`
	Fraction    float64 `json:"fraction,omitempty" yaml:"fraction,omitempty"`
	MaxNotional float64 `json:"max_notional,omitempty" yaml:"max_notional,omitempty"`

	MaxPositions int `json:"max_positions" yaml:"max_positions"`
}

// AccountConfig sets the opening capital.
type AccountConfig struct {
	Balance float64 `json:"balance" yaml:"balance"`
	Reserve float64 `json:"reserve,omitempty" yaml:"reserve,omitempty"`
}

// JournalConfig picks the results sink.
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // none | csv | sqlite
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// LoadFromFile loads configuration from a file (YAML or JSON).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes the configuration as YAML or JSON based on extension.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration is runnable.
func (c *Config) Validate() error {
	if c.Market.Symbol == "" {
		return fmt.Errorf("market.symbol is required")
	}
	if c.Market.Interval == "" {
		return fmt.Errorf("market.interval is required")
	}
	if _, err := c.StartTime(); err != nil {
		return fmt.Errorf("market.start: %w", err)
	}
	if _, err := c.EndTime(); err != nil {
		return fmt.Errorf("market.end: %w", err)
	}
	if !c.Strategy.EnableLong && !c.Strategy.EnableShort {
		return fmt.Errorf("strategy must enable at least one of long/short")
	}
	if c.Strategy.FastWindow <= 0 || c.Strategy.MidWindow <= 0 {
		return fmt.Errorf("strategy fast_window and mid_window must be positive")
	}
	if c.Strategy.FastWindow >= c.Strategy.MidWindow {
		return fmt.Errorf("strategy fast_window must be shorter than mid_window")
	}
	if c.Strategy.SlowWindow > 0 && c.Strategy.SlowWindow <= c.Strategy.MidWindow {
		return fmt.Errorf("strategy slow_window must be longer than mid_window")
	}
	if c.Risk.Leverage <= 0 {
		return fmt.Errorf("risk.leverage must be positive")
	}
	if c.Risk.FeeRate < 0 {
		return fmt.Errorf("risk.fee_rate must not be negative")
	}
	for name, v := range map[string]float64{
		"take_profit_long":  c.Risk.TakeProfitLong,
		"stop_loss_long":    c.Risk.StopLossLong,
		"take_profit_short": c.Risk.TakeProfitShort,
		"stop_loss_short":   c.Risk.StopLossShort,
	} {
		if v <= 0 || v >= 1 {
			return fmt.Errorf("risk.%s must be a fraction between 0 and 1", name)
		}
	}
	switch sim.SizingMode(c.Risk.SizingMode) {
	case sim.SizingFixed:
		if c.Risk.Margin <= 0 {
			return fmt.Errorf("risk.margin must be positive for fixed sizing")
		}
	case sim.SizingFraction:
		if c.Risk.Fraction <= 0 || c.Risk.Fraction > 1 {
			return fmt.Errorf("risk.fraction must be in (0, 1] for fraction sizing")
		}
	default:
		return fmt.Errorf("risk.sizing_mode must be 'fixed' or 'fraction'")
	}
	if c.Risk.MaxPositions <= 0 {
		return fmt.Errorf("risk.max_positions must be positive")
	}
	if c.Account.Balance <= 0 {
		return fmt.Errorf("account.balance must be positive")
	}
	if c.Account.Reserve < 0 {
		return fmt.Errorf("account.reserve must not be negative")
	}
	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal trades_file and equity_file required for csv type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for sqlite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite'")
	}
	return nil
}

// StartTime parses market.start; zero when unset.
func (c *Config) StartTime() (time.Time, error) {
	return parseTime(c.Market.Start)
}

// EndTime parses market.end; zero when unset (replay to latest data).
func (c *Config) EndTime() (time.Time, error) {
	return parseTime(c.Market.End)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

// SimConfig assembles the immutable engine input.
func (c *Config) SimConfig() sim.Config {
	return sim.Config{
		Strategy: strategy.Params{
			EnableLong:     c.Strategy.EnableLong,
			EnableShort:    c.Strategy.EnableShort,
			FastWindow:     c.Strategy.FastWindow,
			MidWindow:      c.Strategy.MidWindow,
			SlowWindow:     c.Strategy.SlowWindow,
			DistanceFilter: c.Strategy.DistanceFilter,
			LongDistance:   c.Strategy.LongDistance,
			ShortDistance:  c.Strategy.ShortDistance,
			StreakFilter:   c.Strategy.StreakFilter,
			MaxLongRun:     c.Strategy.MaxLongRun,
			MaxShortRun:    c.Strategy.MaxShortRun,
		},
		Leverage:        c.Risk.Leverage,
		FeeRate:         c.Risk.FeeRate,
		TakeProfitLong:  c.Risk.TakeProfitLong,
		StopLossLong:    c.Risk.StopLossLong,
		TakeProfitShort: c.Risk.TakeProfitShort,
		StopLossShort:   c.Risk.StopLossShort,
		Sizing: sim.Sizing{
			Mode:        sim.SizingMode(c.Risk.SizingMode),
			Margin:      c.Risk.Margin,
			Fraction:    c.Risk.Fraction,
			MaxNotional: c.Risk.MaxNotional,
		},
		InitialBalance: c.Account.Balance,
		InitialReserve: c.Account.Reserve,
		MaxPositions:   c.Risk.MaxPositions,
	}
}

// Default returns a configuration with the canonical strategy parameters.
func Default() *Config {
	return &Config{
		Market: MarketConfig{
			Symbol:   "BTCUSDT",
			Interval: "5m",
		},
		Strategy: StrategyConfig{
			EnableLong:  true,
			EnableShort: true,
			FastWindow:  31,
			MidWindow:   128,
			SlowWindow:  373,
		},
		Risk: RiskConfig{
			Leverage:        10,
			FeeRate:         0.0005,
			TakeProfitLong:  0.014,
			StopLossLong:    0.041,
			TakeProfitShort: 0.013,
			StopLossShort:   0.04,
			SizingMode:      string(sim.SizingFixed),
			Margin:          1000,
			MaxPositions:    1,
		},
		Account: AccountConfig{
			Balance: 2500,
		},
		Journal: JournalConfig{
			Type:       "csv",
			TradesFile: "./trades.csv",
			EquityFile: "./equity.csv",
		},
	}
}
