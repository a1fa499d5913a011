package config

import (
	"sync"

	"github.com/rustyeddy/autotrader/notify"
	"github.com/rustyeddy/autotrader/risk"
	"github.com/rustyeddy/autotrader/session"
)

// Exits is the take-profit, stop-loss and trailing setup an order is built
// with.
type Exits struct {
	TPValue          float64
	TPUnit           risk.Unit
	SLValue          float64
	SLUnit           risk.Unit
	Trailing         bool
	TrailingDistance float64
}

// Store is the live configuration. Readers always get a copy.
type Store struct {
	mu   sync.RWMutex
	cfg  Config
	path string

	// fileRisk is trading.risk_percent as last read from or written to
	// disk. The live value drifts from it under adaptive risk.
	fileRisk float64
}

func NewStore(cfg *Config, path string) *Store {
	if cfg == nil {
		cfg = Default()
	}
	return &Store{cfg: *cfg, path: path, fileRisk: cfg.Trading.RiskPercent}
}

func (s *Store) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *Store) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

// Update mutates the live configuration in place.
func (s *Store) Update(fn func(*Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.cfg)
}

// Reload installs a configuration freshly read from disk and returns what
// was installed. The live risk percent survives unless the file's own
// risk_percent changed.
func (s *Store) Reload(cfg Config) Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg.Trading.RiskPercent == s.fileRisk {
		cfg.Trading.RiskPercent = s.cfg.Trading.RiskPercent
	} else {
		s.fileRisk = cfg.Trading.RiskPercent
	}
	s.cfg = cfg
	return cfg
}

// Save writes the current configuration back to its file.
func (s *Store) Save() error {
	s.mu.RLock()
	cfg, path := s.cfg, s.path
	s.mu.RUnlock()
	if path == "" {
		return nil
	}
	if err := cfg.SaveToFile(path); err != nil {
		return err
	}
	s.mu.Lock()
	s.fileRisk = cfg.Trading.RiskPercent
	s.mu.Unlock()
	return nil
}

func (s *Store) RiskLimits() risk.Limits {
	c := s.Get()
	return risk.Limits{
		MaxDailyLossPct:      c.Risk.MaxDailyLoss,
		DailyProfitTargetPct: c.Risk.DailyProfitTarget,
		MaxDrawdownPct:       c.Risk.MaxDrawdown,
		AutoStopDrawdown:     c.Risk.AutoStopDrawdown,
		MaxPositions:         c.Risk.MaxPositions,
		MaxLossStreak:        c.Risk.MaxLossStreak,
		EmergencyStopPct:     c.Risk.EmergencyStop,
	}
}

func (s *Store) RiskPercent() float64 {
	return s.Get().Trading.RiskPercent
}

func (s *Store) SetRiskPercent(pct float64) {
	s.Update(func(c *Config) { c.Trading.RiskPercent = pct })
}

func unit(s string) risk.Unit {
	u, err := risk.ParseUnit(s)
	if err != nil {
		return risk.UnitPips
	}
	return u
}

func (s *Store) Sizing() risk.SizingConfig {
	c := s.Get()
	return risk.SizingConfig{
		AutoLot:     c.Trading.AutoLot,
		LotSize:     c.Trading.LotSize,
		RiskPercent: c.Trading.RiskPercent,
		SLValue:     c.Trading.SLValue,
		SLUnit:      unit(c.Trading.SLUnit),
	}
}

func (s *Store) Exits() Exits {
	c := s.Get()
	return Exits{
		TPValue:          c.Trading.TPValue,
		TPUnit:           unit(c.Trading.TPUnit),
		SLValue:          c.Trading.SLValue,
		SLUnit:           unit(c.Trading.SLUnit),
		Trailing:         c.Trading.TrailingStop,
		TrailingDistance: c.Trading.TrailingDistance,
	}
}

func (s *Store) Notifications() notify.Routes {
	n := s.Get().Telegram.Notify
	return notify.Routes{
		Trades:       n.Trades,
		Errors:       n.Errors,
		DailySummary: n.DailySummary,
		Connections:  n.Connections,
	}
}

// SessionFlags maps the per-session switches onto session names.
func (c *Config) SessionFlags() map[session.Name]bool {
	return map[session.Name]bool{
		session.Asia:    c.Sessions.Asia,
		session.London:  c.Sessions.London,
		session.NewYork: c.Sessions.NewYork,
		session.Overlap: c.Sessions.Overlap,
	}
}
