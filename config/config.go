// Package config loads, validates and serves the bot configuration. A Store
// holds the live copy every component reads on each decision; a Watcher
// hot-reloads it from disk.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/autotrader/market"
	"github.com/rustyeddy/autotrader/strategies"
)

// Config is the complete bot configuration.
type Config struct {
	Account    AccountConfig    `json:"account" yaml:"account"`
	Trading    TradingConfig    `json:"trading" yaml:"trading"`
	Risk       RiskConfig       `json:"risk" yaml:"risk"`
	AI         AIConfig         `json:"ai" yaml:"ai"`
	Sessions   SessionsConfig   `json:"sessions" yaml:"sessions"`
	Telegram   TelegramConfig   `json:"telegram" yaml:"telegram"`
	Connection ConnectionConfig `json:"connection" yaml:"connection"`
	Journal    JournalConfig    `json:"journal" yaml:"journal"`
}

// AccountConfig describes the simulated terminal account.
type AccountConfig struct {
	Login    int64   `json:"login" yaml:"login"`
	Server   string  `json:"server" yaml:"server"`
	Currency string  `json:"currency" yaml:"currency" validate:"required,len=3"`
	Balance  float64 `json:"balance" yaml:"balance" validate:"gt=0"`
	Leverage int     `json:"leverage" yaml:"leverage" validate:"gte=1"`
}

type TradingConfig struct {
	Symbol           string  `json:"symbol" yaml:"symbol" validate:"required"`
	Strategy         string  `json:"strategy" yaml:"strategy" validate:"oneof=Scalping HFT Intraday Arbitrage"`
	LotSize          float64 `json:"lot_size" yaml:"lot_size" validate:"min=0.01,max=100"`
	AutoLot          bool    `json:"auto_lot" yaml:"auto_lot"`
	RiskPercent      float64 `json:"risk_percent" yaml:"risk_percent" validate:"min=0.1,max=50"`
	TPValue          float64 `json:"tp_value" yaml:"tp_value" validate:"gte=0"`
	TPUnit           string  `json:"tp_unit" yaml:"tp_unit" validate:"oneof=pips price percent currency"`
	SLValue          float64 `json:"sl_value" yaml:"sl_value" validate:"gte=0"`
	SLUnit           string  `json:"sl_unit" yaml:"sl_unit" validate:"oneof=pips price percent currency"`
	TrailingStop     bool    `json:"trailing_stop" yaml:"trailing_stop"`
	TrailingDistance float64 `json:"trailing_distance" yaml:"trailing_distance" validate:"gte=0"`
	HFTMaxSpread     float64 `json:"hft_max_spread" yaml:"hft_max_spread" validate:"gte=0"`
}

// RiskConfig percentages are whole percents.
type RiskConfig struct {
	MaxDailyLoss      float64 `json:"max_daily_loss" yaml:"max_daily_loss" validate:"min=0.1,max=100"`
	DailyProfitTarget float64 `json:"daily_profit_target" yaml:"daily_profit_target" validate:"gte=0"`
	MaxPositions      int     `json:"max_positions" yaml:"max_positions" validate:"min=1"`
	MaxLossStreak     int     `json:"max_loss_streak" yaml:"max_loss_streak" validate:"min=1"`
	MaxDrawdown       float64 `json:"max_drawdown" yaml:"max_drawdown" validate:"gt=0,max=100"`
	AutoStopDrawdown  bool    `json:"auto_stop_drawdown" yaml:"auto_stop_drawdown"`
	EmergencyStop     float64 `json:"emergency_stop_threshold" yaml:"emergency_stop_threshold" validate:"gt=0,max=100"`
}

type AIConfig struct {
	Enabled    bool    `json:"enabled" yaml:"enabled"`
	Confidence float64 `json:"confidence" yaml:"confidence" validate:"min=0.5,max=1"`
}

type SessionsConfig struct {
	Asia       bool `json:"asia" yaml:"asia"`
	London     bool `json:"london" yaml:"london"`
	NewYork    bool `json:"new_york" yaml:"new_york"`
	Overlap    bool `json:"overlap" yaml:"overlap"`
	AvoidNews  bool `json:"avoid_news" yaml:"avoid_news"`
	// NewsBuffer pads each news window, in minutes.
	NewsBuffer int  `json:"news_buffer" yaml:"news_buffer" validate:"gte=0,lte=240"`
}

func (s SessionsConfig) NewsPad() time.Duration {
	return time.Duration(s.NewsBuffer) * time.Minute
}

type TelegramConfig struct {
	Enabled bool         `json:"enabled" yaml:"enabled"`
	Token   string       `json:"token,omitempty" yaml:"token,omitempty"`
	ChatID  string       `json:"chat_id,omitempty" yaml:"chat_id,omitempty"`
	Notify  NotifyConfig `json:"notify" yaml:"notify"`
}

type NotifyConfig struct {
	Trades       bool `json:"trades" yaml:"trades"`
	Errors       bool `json:"errors" yaml:"errors"`
	DailySummary bool `json:"daily_summary" yaml:"daily_summary"`
	Connections  bool `json:"connections" yaml:"connections"`
}

type ConnectionConfig struct {
	MaxReconnectAttempts int `json:"max_reconnect_attempts" yaml:"max_reconnect_attempts" validate:"min=1"`
	// ReconnectDelay is in seconds.
	ReconnectDelay int `json:"reconnect_delay" yaml:"reconnect_delay" validate:"gte=0"`
}

func (c ConnectionConfig) Delay() time.Duration {
	return time.Duration(c.ReconnectDelay) * time.Second
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type" validate:"oneof=sqlite csv none"`
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// Default returns the stock bot configuration.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			Login:    1001,
			Server:   "Sim-Demo",
			Currency: "USD",
			Balance:  10000,
			Leverage: 100,
		},
		Trading: TradingConfig{
			Symbol:           "XAUUSD",
			Strategy:         "Scalping",
			LotSize:          0.01,
			AutoLot:          true,
			RiskPercent:      1.0,
			TPValue:          50,
			TPUnit:           "pips",
			SLValue:          25,
			SLUnit:           "pips",
			TrailingDistance: 15,
			HFTMaxSpread:     2,
		},
		Risk: RiskConfig{
			MaxDailyLoss:      5,
			DailyProfitTarget: 10,
			MaxPositions:      10,
			MaxLossStreak:     3,
			MaxDrawdown:       5,
			AutoStopDrawdown:  true,
			EmergencyStop:     20,
		},
		AI: AIConfig{Enabled: true, Confidence: 0.75},
		Sessions: SessionsConfig{
			Asia:       true,
			London:     true,
			NewYork:    true,
			Overlap:    true,
			AvoidNews:  true,
			NewsBuffer: 0,
		},
		Telegram: TelegramConfig{
			Notify: NotifyConfig{Trades: true, Errors: true, DailySummary: true},
		},
		Connection: ConnectionConfig{MaxReconnectAttempts: 5, ReconnectDelay: 3},
		Journal:    JournalConfig{Type: "sqlite", DBPath: "./autotrader.sqlite"},
	}
}

// LoadFromFile reads a YAML or JSON file over the defaults, applies
// credentials from the environment and validates the result.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = Default()
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	ApplyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes YAML for .yaml/.yml paths and indented JSON otherwise.
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

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report fields by their yaml names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate runs the field range checks and the cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			field := strings.TrimPrefix(fe.Namespace(), "Config.")
			if fe.Param() != "" {
				msgs = append(msgs, fmt.Sprintf("%s fails %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value()))
			} else {
				msgs = append(msgs, fmt.Sprintf("%s is %s", field, fe.Tag()))
			}
		}
		return errors.New(strings.Join(msgs, "; "))
	}

	if _, err := market.Lookup(c.Trading.Symbol); err != nil {
		return fmt.Errorf("trading.symbol: %w", err)
	}
	if c.Telegram.Enabled {
		if c.Telegram.Token == "" {
			return errors.New("telegram.token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return errors.New("telegram.chat_id is required when telegram is enabled")
		}
	}
	if c.Journal.Type == "csv" && (c.Journal.TradesFile == "" || c.Journal.EquityFile == "") {
		return errors.New("journal trades_file and equity_file required for CSV type")
	}
	if c.Journal.Type == "sqlite" && c.Journal.DBPath == "" {
		return errors.New("journal db_path required for SQLite type")
	}
	return nil
}

// Kind resolves the configured strategy.
func (c *Config) Kind() (strategies.Kind, error) {
	return strategies.ParseKind(c.Trading.Strategy)
}
