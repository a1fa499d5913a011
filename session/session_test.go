package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// 2026-03-10 is a Tuesday.
func at(day, h, m int) time.Time {
	return time.Date(2026, 3, day, h, m, 0, 0, time.UTC)
}

func managerAt(t *testing.T, now time.Time) *Manager {
	t.Helper()
	return NewManager(zaptest.NewLogger(t), WithClock(func() time.Time { return now }))
}

func TestCurrent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		now  time.Time
		want Name
		ok   bool
	}{
		{"asia after midnight", at(10, 3, 0), Asia, true},
		{"asia end inclusive", at(10, 6, 0), Asia, true},
		{"gap", at(10, 6, 30), "", false},
		{"london open", at(10, 7, 0), London, true},
		{"overlap wins", at(10, 13, 30), Overlap, true},
		{"overlap end inclusive", at(10, 16, 0), Overlap, true},
		{"new york", at(10, 16, 1), NewYork, true},
		{"asia before ny close", at(10, 21, 30), Asia, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := managerAt(t, tt.now).Current()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnable(t *testing.T) {
	t.Parallel()

	m := managerAt(t, at(10, 14, 0))
	require.NoError(t, m.Enable(Overlap, false))
	got, _ := m.Current()
	assert.Equal(t, London, got)

	m.Apply(map[Name]bool{London: false, NewYork: false})
	_, ok := m.Current()
	assert.False(t, ok)
	assert.False(t, m.Active())

	assert.Error(t, m.Enable("Sydney", true))
}

func TestMarketOpen(t *testing.T) {
	t.Parallel()

	tests := []struct {
		now  time.Time
		want bool
	}{
		{at(13, 21, 59), true},
		{at(13, 22, 0), false},
		{at(14, 12, 0), false},
		{at(15, 21, 59), false},
		{at(15, 22, 0), true},
		{at(9, 0, 0), true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MarketOpen(tt.now), tt.now.Format(time.RFC1123))
	}
}

func TestActive(t *testing.T) {
	t.Parallel()

	assert.False(t, managerAt(t, at(14, 10, 0)).Active())
	assert.False(t, managerAt(t, at(10, 6, 30)).Active())
	assert.True(t, managerAt(t, at(10, 10, 0)).Active())
}

func TestNewsBlackout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"european open", at(10, 8, 30), true},
		{"european close inclusive", at(10, 9, 30), true},
		{"after european", at(10, 9, 31), false},
		{"us data", at(10, 13, 0), true},
		{"quiet afternoon", at(10, 14, 45), false},
		{"london fix", at(10, 16, 15), true},
		{"friday payrolls", at(13, 14, 45), true},
		{"friday end inclusive", at(13, 15, 0), true},
		{"friday after", at(13, 15, 1), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NewsBlackout(tt.now, 0), tt.name)
	}
}

func TestNewsBlackoutPadding(t *testing.T) {
	t.Parallel()

	assert.False(t, NewsBlackout(at(10, 8, 15), 0))
	assert.True(t, NewsBlackout(at(10, 8, 15), 15*time.Minute))
	assert.True(t, NewsBlackout(at(10, 9, 45), 15*time.Minute))
	assert.False(t, NewsBlackout(at(10, 9, 46), 15*time.Minute))
}

func TestNextNews(t *testing.T) {
	t.Parallel()

	assert.Equal(t, at(10, 12, 30), NextNews(at(10, 10, 0)))
	assert.Equal(t, at(11, 8, 30), NextNews(at(10, 17, 0)))
}

func TestShouldTradePair(t *testing.T) {
	t.Parallel()

	m := managerAt(t, at(10, 14, 0))
	assert.True(t, m.ShouldTradePair("EURUSD"))
	assert.False(t, m.ShouldTradePair("USDJPY"))
	assert.True(t, m.ShouldTradePair("XAUUSD"))
	assert.True(t, m.ShouldTradePair("GOLD"))
	assert.True(t, m.ShouldTradePair("EUR"))
	assert.True(t, m.ShouldTradePair("USDJPY", Asia))

	off := managerAt(t, at(10, 6, 30))
	assert.Equal(t, defaultPairs, off.PreferredPairs())
	assert.True(t, off.ShouldTradePair("EURUSD"))
	assert.False(t, off.ShouldTradePair("AUDNZD"))
}

func TestIntensity(t *testing.T) {
	t.Parallel()

	m := managerAt(t, at(10, 14, 0))
	assert.Equal(t, VeryAggressive, m.Intensity())
	assert.Equal(t, Aggressive, m.Intensity(London))
	assert.Equal(t, Moderate, m.Intensity(Asia))
	assert.Equal(t, Moderate, managerAt(t, at(10, 6, 30)).Intensity())
}

func TestAdjust(t *testing.T) {
	t.Parallel()

	a := managerAt(t, at(10, 14, 0)).Adjust(0.75, 2)
	assert.Equal(t, Overlap, a.Session)
	assert.InDelta(t, 1.5, a.RiskMultiplier, 1e-12)
	assert.InDelta(t, 0.45, a.SignalThreshold, 1e-9)
	assert.InDelta(t, 0.6, a.MinProfitMultiplier, 1e-12)
	assert.InDelta(t, 1.6, a.MaxSpread, 1e-9)
	assert.InDelta(t, 1.6, a.VolatilityFilter, 1e-12)

	none := managerAt(t, at(10, 6, 30)).Adjust(0.75, 2)
	assert.Equal(t, Name(""), none.Session)
	assert.Equal(t, 0.75, none.SignalThreshold)
	assert.Equal(t, 2.0, none.MaxSpread)
}

func TestNext(t *testing.T) {
	t.Parallel()

	n, start, ok := managerAt(t, at(10, 10, 0)).Next()
	require.True(t, ok)
	assert.Equal(t, NewYork, n)
	assert.Equal(t, at(10, 13, 0), start)

	n, start, ok = managerAt(t, at(10, 22, 30)).Next()
	require.True(t, ok)
	assert.Equal(t, London, n)
	assert.Equal(t, at(11, 7, 0), start)
}

func TestSchedule(t *testing.T) {
	t.Parallel()

	s := managerAt(t, at(10, 10, 0)).Schedule()
	require.Len(t, s, 4)
	assert.Equal(t, ScheduleEntry{Name: Asia, Start: "21:00", End: "06:00", Timezone: "UTC", Volatility: Medium, Enabled: true}, s[0])
	assert.Equal(t, Overlap, s[3].Name)
}

func TestStatisticsAndRecommendations(t *testing.T) {
	t.Parallel()

	m := managerAt(t, at(10, 14, 0))
	st := m.Statistics()
	assert.Equal(t, Overlap, st.Current)
	assert.True(t, st.SessionActive)
	assert.True(t, st.MarketOpen)
	assert.Len(t, st.Enabled, 4)
	assert.Equal(t, VeryAggressive, st.Intensity)
	assert.Equal(t, 0.8, st.Characteristics.SpreadMultiplier)

	r := m.Recommendations()
	assert.True(t, r.Recommended)
	assert.Equal(t, "favorable", r.SpreadCondition)
	assert.Equal(t, 1.5, r.RiskAdjustment)

	asia := managerAt(t, at(10, 3, 0)).Recommendations()
	assert.Equal(t, "normal", asia.SpreadCondition)
	assert.Equal(t, 1.0, asia.RiskAdjustment)

	assert.False(t, managerAt(t, at(10, 6, 30)).Recommendations().Recommended)
}

func TestIsOptimal(t *testing.T) {
	t.Parallel()

	m := managerAt(t, at(10, 14, 0))
	assert.True(t, m.IsOptimal("EURUSD"))
	assert.True(t, m.IsOptimal(""))
	assert.False(t, m.IsOptimal("USDJPY"))
	assert.False(t, managerAt(t, at(14, 14, 0)).IsOptimal("EURUSD"))
}
