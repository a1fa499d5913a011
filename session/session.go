// Package session knows when the FX market is worth trading: which regional
// session is live, how it behaves, and when news makes entries unwise.
package session

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/autotrader/market"
)

type Name string

const (
	Asia    Name = "Asia"
	London  Name = "London"
	NewYork Name = "New_York"
	Overlap Name = "Overlap_London_NY"
)

// Names lists the sessions in schedule order.
func Names() []Name { return []Name{Asia, London, NewYork, Overlap} }

type Volatility string

const (
	Low      Volatility = "low"
	Medium   Volatility = "medium"
	High     Volatility = "high"
	VeryHigh Volatility = "very_high"
)

type Intensity string

const (
	Conservative   Intensity = "conservative"
	Moderate       Intensity = "moderate"
	Aggressive     Intensity = "aggressive"
	VeryAggressive Intensity = "very_aggressive"
)

type Characteristics struct {
	Volume           string
	Volatility       string
	SpreadMultiplier float64
	NewsImpact       string
}

// Window is a daily UTC trading session. Start and End are minutes after
// midnight; End < Start wraps past midnight. Both ends are inclusive.
type Window struct {
	Name           Name
	Start, End     int
	Volatility     Volatility
	PreferredPairs []string
	Traits         Characteristics
	Enabled        bool
}

func (w Window) Contains(t time.Time) bool {
	t = t.UTC()
	m := hm(t.Hour(), t.Minute())
	if w.Start > w.End {
		return m >= w.Start || m <= w.End
	}
	return w.Start <= m && m <= w.End
}

func clock(m int) string { return fmt.Sprintf("%02d:%02d", m/60, m%60) }

func defaultWindows() map[Name]*Window {
	return map[Name]*Window{
		Asia: {
			Name: Asia, Start: hm(21, 0), End: hm(6, 0), Volatility: Medium, Enabled: true,
			PreferredPairs: []string{"USDJPY", "AUDUSD", "NZDUSD", "EURJPY", "GBPJPY"},
			Traits:         Characteristics{Volume: "low_to_medium", Volatility: "lower", SpreadMultiplier: 1.5, NewsImpact: "medium"},
		},
		London: {
			Name: London, Start: hm(7, 0), End: hm(16, 0), Volatility: High, Enabled: true,
			PreferredPairs: []string{"EURUSD", "GBPUSD", "EURGBP", "EURJPY", "GBPJPY"},
			Traits:         Characteristics{Volume: "high", Volatility: "high", SpreadMultiplier: 1.0, NewsImpact: "high"},
		},
		NewYork: {
			Name: NewYork, Start: hm(13, 0), End: hm(22, 0), Volatility: High, Enabled: true,
			PreferredPairs: []string{"EURUSD", "GBPUSD", "USDJPY", "USDCAD", "AUDUSD"},
			Traits:         Characteristics{Volume: "high", Volatility: "high", SpreadMultiplier: 0.9, NewsImpact: "very_high"},
		},
		Overlap: {
			Name: Overlap, Start: hm(13, 0), End: hm(16, 0), Volatility: VeryHigh, Enabled: true,
			PreferredPairs: []string{"EURUSD", "GBPUSD", "USDCAD"},
			Traits:         Characteristics{Volume: "very_high", Volatility: "very_high", SpreadMultiplier: 0.8, NewsImpact: "extreme"},
		},
	}
}

var defaultPairs = []string{"EURUSD", "GBPUSD", "USDJPY", "XAUUSD"}

// Manager answers session questions against an injectable clock.
type Manager struct {
	mu      sync.RWMutex
	windows map[Name]*Window
	now     func() time.Time
	log     *zap.Logger
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(log *zap.Logger, opts ...Option) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Manager{windows: defaultWindows(), now: time.Now, log: log}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Window returns a copy of the named window.
func (m *Manager) Window(n Name) (Window, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.windows[n]
	if !ok {
		return Window{}, false
	}
	cp := *w
	cp.PreferredPairs = append([]string(nil), w.PreferredPairs...)
	return cp, true
}

// Enable toggles a session. Unknown names are an error.
func (m *Manager) Enable(n Name, on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.windows[n]
	if !ok {
		return fmt.Errorf("session %s not found", n)
	}
	w.Enabled = on
	m.log.Info("session toggled", zap.String("session", string(n)), zap.Bool("enabled", on))
	return nil
}

// Apply sets every session's enabled flag at once, e.g. from config.
func (m *Manager) Apply(flags map[Name]bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for n, on := range flags {
		if w, ok := m.windows[n]; ok {
			w.Enabled = on
		}
	}
}

func (m *Manager) sessionAt(t time.Time) (Name, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var first Name
	found := false
	for _, n := range Names() {
		w := m.windows[n]
		if !w.Enabled || !w.Contains(t) {
			continue
		}
		if n == Overlap {
			return Overlap, true
		}
		if !found {
			first, found = n, true
		}
	}
	return first, found
}

// Current is the enabled session covering now. Overlap beats the sessions
// it overlaps.
func (m *Manager) Current() (Name, bool) {
	return m.sessionAt(m.now())
}

// Active reports whether the market is open and a session is live.
func (m *Manager) Active() bool {
	now := m.now()
	if !MarketOpen(now) {
		m.log.Debug("market closed", zap.Time("now", now))
		return false
	}
	n, ok := m.sessionAt(now)
	if !ok {
		m.log.Debug("no active trading session")
		return false
	}
	m.log.Debug("active trading session", zap.String("session", string(n)))
	return true
}

func (m *Manager) resolve(n []Name) (Name, bool) {
	if len(n) > 0 && n[0] != "" {
		return n[0], true
	}
	return m.Current()
}

// Characteristics of the named session, or the current one when omitted.
func (m *Manager) Characteristics(n ...Name) (Characteristics, bool) {
	name, ok := m.resolve(n)
	if !ok {
		return Characteristics{}, false
	}
	w, ok := m.Window(name)
	return w.Traits, ok
}

// PreferredPairs falls back to the majors plus gold outside any session.
func (m *Manager) PreferredPairs(n ...Name) []string {
	name, ok := m.resolve(n)
	if ok {
		if w, ok := m.Window(name); ok {
			return w.PreferredPairs
		}
	}
	return append([]string(nil), defaultPairs...)
}

var volatilityFilter = map[string]float64{
	"low":       0.7,
	"medium":    1.0,
	"high":      1.3,
	"very_high": 1.6,
}

func (m *Manager) VolatilityFilter(n ...Name) float64 {
	c, _ := m.Characteristics(n...)
	if f, ok := volatilityFilter[c.Volatility]; ok {
		return f
	}
	return 1.0
}

func (m *Manager) SpreadMultiplier(n ...Name) float64 {
	c, ok := m.Characteristics(n...)
	if !ok || c.SpreadMultiplier <= 0 {
		return 1.0
	}
	return c.SpreadMultiplier
}

// ShouldTradePair accepts preferred pairs (exact or substring either way),
// gold at any time, and anything when the session has no preferences.
func (m *Manager) ShouldTradePair(symbol string, n ...Name) bool {
	pairs := m.PreferredPairs(n...)
	for _, p := range pairs {
		if p == symbol || strings.Contains(symbol, p) || strings.Contains(p, symbol) {
			return true
		}
	}
	if market.IsGold(symbol) {
		return true
	}
	return len(pairs) == 0
}

var intensityByVolatility = map[Volatility]Intensity{
	Low:      Conservative,
	Medium:   Moderate,
	High:     Aggressive,
	VeryHigh: VeryAggressive,
}

func (m *Manager) Intensity(n ...Name) Intensity {
	name, ok := m.resolve(n)
	if !ok {
		return Moderate
	}
	w, ok := m.Window(name)
	if !ok {
		return Moderate
	}
	if i, ok := intensityByVolatility[w.Volatility]; ok {
		return i
	}
	return Moderate
}

var riskAdjustment = map[Intensity]float64{
	Conservative:   0.7,
	Moderate:       1.0,
	Aggressive:     1.3,
	VeryAggressive: 1.5,
}

// Adjustment is how a session nudges strategy tunables.
type Adjustment struct {
	Session             Name
	Intensity           Intensity
	RiskMultiplier      float64
	SignalThreshold     float64
	MinProfitMultiplier float64
	MaxSpread           float64
	VolatilityFilter    float64
}

// Adjust scales a signal threshold and spread tolerance for the current
// session. Outside any session the inputs come back unchanged.
func (m *Manager) Adjust(signalThreshold, maxSpread float64) Adjustment {
	a := Adjustment{
		Intensity:           Moderate,
		RiskMultiplier:      1,
		SignalThreshold:     signalThreshold,
		MinProfitMultiplier: 1,
		MaxSpread:           maxSpread,
		VolatilityFilter:    1,
	}
	name, ok := m.Current()
	if !ok {
		return a
	}
	a.Session = name
	a.Intensity = m.Intensity(name)
	switch a.Intensity {
	case Conservative:
		a.RiskMultiplier, a.SignalThreshold, a.MinProfitMultiplier = 0.7, signalThreshold*1.2, 1.3
	case Aggressive:
		a.RiskMultiplier, a.SignalThreshold, a.MinProfitMultiplier = 1.3, signalThreshold*0.8, 0.8
	case VeryAggressive:
		a.RiskMultiplier, a.SignalThreshold, a.MinProfitMultiplier = 1.5, signalThreshold*0.6, 0.6
	}
	a.MaxSpread = maxSpread * m.SpreadMultiplier(name)
	a.VolatilityFilter = m.VolatilityFilter(name)
	return a
}

type ScheduleEntry struct {
	Name       Name
	Start, End string
	Timezone   string
	Volatility Volatility
	Enabled    bool
}

func (m *Manager) Schedule() []ScheduleEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ScheduleEntry, 0, len(m.windows))
	for _, n := range Names() {
		w := m.windows[n]
		out = append(out, ScheduleEntry{
			Name:       n,
			Start:      clock(w.Start),
			End:        clock(w.End),
			Timezone:   "UTC",
			Volatility: w.Volatility,
			Enabled:    w.Enabled,
		})
	}
	return out
}

// Next is the enabled session starting soonest after now. A session that
// starts this very minute is next seen tomorrow.
func (m *Manager) Next() (Name, time.Time, bool) {
	now := m.now().UTC()
	cur := hm(now.Hour(), now.Minute())
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	m.mu.RLock()
	defer m.mu.RUnlock()

	var (
		next  Name
		start time.Time
		wait  = 24 * 60
		found bool
	)
	for _, n := range Names() {
		w := m.windows[n]
		if !w.Enabled {
			continue
		}
		day := midnight
		d := w.Start - cur
		if d <= 0 {
			d += 24 * 60
			day = day.AddDate(0, 0, 1)
		}
		if d < wait {
			wait, next, found = d, n, true
			start = day.Add(time.Duration(w.Start) * time.Minute)
		}
	}
	return next, start, found
}

type Statistics struct {
	Current         Name
	Next            Name
	NextStart       time.Time
	SessionActive   bool
	MarketOpen      bool
	Enabled         []Name
	Characteristics Characteristics
	PreferredPairs  []string
	Intensity       Intensity
}

func (m *Manager) Statistics() Statistics {
	now := m.now()
	cur, active := m.sessionAt(now)
	next, start, _ := m.Next()
	st := Statistics{
		Current:       cur,
		Next:          next,
		NextStart:     start,
		SessionActive: active,
		MarketOpen:    MarketOpen(now),
	}
	m.mu.RLock()
	for _, n := range Names() {
		if m.windows[n].Enabled {
			st.Enabled = append(st.Enabled, n)
		}
	}
	m.mu.RUnlock()
	if active {
		st.Characteristics, _ = m.Characteristics(cur)
		st.PreferredPairs = m.PreferredPairs(cur)
		st.Intensity = m.Intensity(cur)
	}
	return st
}

// IsOptimal requires an open market, a live session that suits symbol (when
// given), and anything but low volatility.
func (m *Manager) IsOptimal(symbol string) bool {
	now := m.now()
	if !MarketOpen(now) {
		return false
	}
	cur, ok := m.sessionAt(now)
	if !ok {
		return false
	}
	if symbol != "" && !m.ShouldTradePair(symbol, cur) {
		return false
	}
	c, _ := m.Characteristics(cur)
	return c.Volatility != string(Low)
}

type Recommendation struct {
	Recommended           bool
	Reason                string
	Session               Name
	Intensity             Intensity
	PreferredPairs        []string
	VolatilityExpectation string
	SpreadCondition       string
	VolumeExpectation     string
	RiskAdjustment        float64
}

func (m *Manager) Recommendations() Recommendation {
	cur, ok := m.Current()
	if !ok {
		return Recommendation{Reason: "no active trading session"}
	}
	c, _ := m.Characteristics(cur)
	in := m.Intensity(cur)
	spread := "normal"
	if c.SpreadMultiplier <= 1.0 {
		spread = "favorable"
	}
	adj, ok := riskAdjustment[in]
	if !ok {
		adj = 1.0
	}
	return Recommendation{
		Recommended:           true,
		Session:               cur,
		Intensity:             in,
		PreferredPairs:        m.PreferredPairs(cur),
		VolatilityExpectation: c.Volatility,
		SpreadCondition:       spread,
		VolumeExpectation:     c.Volume,
		RiskAdjustment:        adj,
	}
}
