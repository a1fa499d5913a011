package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/time/rate"

	"github.com/rustyeddy/autotrader/market"
	"github.com/rustyeddy/autotrader/risk"
	"github.com/rustyeddy/autotrader/strategies"
)

type fakeBot struct {
	mu       sync.Mutex
	texts    []string
	failSend int
	getMeOK  bool
}

func (f *fakeBot) handler(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/botTOKEN/getMe", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		f.mu.Lock()
		ok := f.getMeOK
		f.mu.Unlock()
		if !ok {
			json.NewEncoder(w).Encode(map[string]any{"ok": false, "description": "Unauthorized"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": map[string]any{"id": 1, "username": "gold_bot"}})
	})
	mux.HandleFunc("/botTOKEN/sendMessage", func(w http.ResponseWriter, r *http.Request) {
		var req sendMessageRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			return
		}
		assert.Equal(t, "42", req.ChatID)
		assert.Equal(t, "Markdown", req.ParseMode)
		assert.True(t, req.DisableWebPagePreview)

		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failSend > 0 {
			f.failSend--
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		f.texts = append(f.texts, req.Text)
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": map[string]any{"message_id": len(f.texts)}})
	})
	return mux
}

func (f *fakeBot) received() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

func newFake(t *testing.T, bot *fakeBot) *Telegram {
	t.Helper()
	srv := httptest.NewServer(bot.handler(t))
	t.Cleanup(srv.Close)
	return NewTelegram("TOKEN", WithBaseURL(srv.URL))
}

func TestTelegramClient(t *testing.T) {
	t.Parallel()

	bot := &fakeBot{getMeOK: true}
	tg := newFake(t, bot)
	ctx := context.Background()

	name, err := tg.GetMe(ctx)
	require.NoError(t, err)
	assert.Equal(t, "gold_bot", name)

	require.NoError(t, tg.SendMessage(ctx, "42", "hello"))
	assert.Equal(t, []string{"hello"}, bot.received())

	bot.mu.Lock()
	bot.failSend = 1
	bot.mu.Unlock()
	err = tg.SendMessage(ctx, "42", "again")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 500")

	bot.mu.Lock()
	bot.getMeOK = false
	bot.mu.Unlock()
	_, err = tg.GetMe(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unauthorized")

	assert.ErrorIs(t, NewTelegram("").SendMessage(ctx, "42", "x"), ErrNoCredentials)
	assert.ErrorIs(t, tg.SendMessage(ctx, "", "x"), ErrNoCredentials)
}

func TestFormat(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 10, 9, 5, 7, 0, time.UTC)
	got := Format("*P/L* 1.5 (x) - done! `_ok_`", at)
	assert.Equal(t, "⏰ `09:05:07`\n*P/L* 1\\.5 \\(x\\) \\- done\\! `_ok_`", got)
}

func TestMessages(t *testing.T) {
	t.Parallel()

	trade := TradeMessage(TradeInfo{Side: "buy", Symbol: "XAUUSD", Volume: 0.1, Price: 2000.5, Strategy: "Scalping", Confidence: 0.8, SL: 1990})
	assert.Contains(t, trade, "*BUY*")
	assert.Contains(t, trade, "`0.10` lots")
	assert.Contains(t, trade, "SL: `1990.00000`")
	assert.NotContains(t, trade, "TP:")

	closed := CloseMessage(CloseInfo{Symbol: "XAUUSD", Side: "sell", Volume: 0.05, Exit: 1995.25, Profit: -12.4, Reason: "StopLoss"})
	assert.Contains(t, closed, "❌ *POSITION CLOSED*")
	assert.Contains(t, closed, "`-12.40`")
	assert.Contains(t, closed, "StopLoss")

	sig := SignalMessage(strategies.Signal{Side: market.Sell, Symbol: "EURUSD", Strategy: "AI_ML", Confidence: 0.9})
	assert.Contains(t, sig, "*SELL*")
	assert.Contains(t, sig, "No reason provided")

	sum := DailySummaryMessage(risk.DailySummary{
		Date:           time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		DailyProfit:    -12.5,
		DailyProfitPct: -0.125,
		TotalTrades:    4,
		WinRate:        25,
		CurrentBalance: 9987.5,
	})
	assert.Contains(t, sum, "📉")
	assert.Contains(t, sum, "`2026-03-10`")
	assert.Contains(t, sum, "`25.0%`")

	assert.True(t, strings.HasPrefix(ConnectionMessage("Connected", ""), "✅"))
	assert.Contains(t, ConnectionMessage("Lost", "retrying"), "Details: retrying")
	assert.Equal(t, "*Hi*\n\nthere", CustomMessage("Hi", "there"))
}

func TestQueueOrder(t *testing.T) {
	t.Parallel()

	bot := &fakeBot{getMeOK: true}
	s := NewService(newFake(t, bot), "42", zaptest.NewLogger(t), WithLimit(rate.Inf, 1))

	require.True(t, s.Send("low", Low))
	require.True(t, s.Send("normal", Normal))
	require.True(t, s.Send("high-1", High))
	require.True(t, s.Send("high-2", High))
	assert.Equal(t, 4, s.Info().Queued)

	require.NoError(t, s.Start(context.Background()))
	defer s.Close()

	require.Eventually(t, func() bool { return len(bot.received()) == 4 }, 5*time.Second, 10*time.Millisecond)
	got := bot.received()
	for i, want := range []string{"high\\-1", "high\\-2", "normal", "low"} {
		assert.True(t, strings.HasSuffix(got[i], "\n"+want), got[i])
	}

	info := s.Info()
	assert.Equal(t, "gold_bot", info.Bot)
	assert.Equal(t, 4, info.Sent)
	assert.Zero(t, info.Queued)
}

func TestRetryFailedMessage(t *testing.T) {
	t.Parallel()

	bot := &fakeBot{getMeOK: true, failSend: 2}
	s := NewService(newFake(t, bot), "42", zaptest.NewLogger(t), WithLimit(rate.Inf, 1))
	require.NoError(t, s.Start(context.Background()))
	defer s.Close()

	require.True(t, s.Send("eventually", Normal))
	require.Eventually(t, func() bool { return len(bot.received()) == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, s.Info().Failed)
	assert.Equal(t, 1, s.Info().Sent)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type failingSender struct{ calls chan struct{} }

func (failingSender) GetMe(context.Context) (string, error) { return "bot", nil }

func (f failingSender) SendMessage(context.Context, string, string) error {
	f.calls <- struct{}{}
	return errors.New("network down")
}

func TestExpiredMessageIsDropped(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	sender := failingSender{calls: make(chan struct{}, 1)}
	s := NewService(sender, "42", zaptest.NewLogger(t), WithLimit(rate.Inf, 1), WithClock(clk.now))

	require.True(t, s.Send("stale", High))
	clk.advance(6 * time.Minute)
	require.NoError(t, s.Start(context.Background()))
	defer s.Close()

	select {
	case <-sender.calls:
	case <-time.After(5 * time.Second):
		t.Fatal("message was not attempted")
	}
	require.Eventually(t, func() bool { return s.Info().Failed == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Zero(t, s.Info().Queued)
}

func TestGetMeFailureDisables(t *testing.T) {
	t.Parallel()

	bot := &fakeBot{}
	s := NewService(newFake(t, bot), "42", zaptest.NewLogger(t), WithLimit(rate.Inf, 1))
	require.Error(t, s.Start(context.Background()))
	defer s.Close()

	assert.False(t, s.Enabled())
	assert.False(t, s.Send("dropped", High))

	bot.mu.Lock()
	bot.getMeOK = true
	bot.mu.Unlock()
	require.NoError(t, s.Enable(context.Background()))
	assert.True(t, s.Send("back", High))
	require.Eventually(t, func() bool { return len(bot.received()) == 1 }, 5*time.Second, 10*time.Millisecond)
}

type routes Routes

func (r routes) Notifications() Routes { return Routes(r) }

func TestRouting(t *testing.T) {
	t.Parallel()

	s := NewService(failingSender{calls: make(chan struct{}, 16)}, "42", zaptest.NewLogger(t),
		WithRoutes(routes{Errors: true}))

	assert.False(t, s.Trade(TradeInfo{Symbol: "XAUUSD"}))
	assert.True(t, s.Error("Connectivity", "lost"))
	assert.False(t, s.DailySummary(risk.DailySummary{}))
	assert.False(t, s.Connection("Connected", ""))
	assert.True(t, s.Signal(strategies.Signal{Side: market.Buy}))
	assert.True(t, s.Custom("t", "c", Low))
	assert.Equal(t, 3, s.Clear())

	s.Disable()
	assert.False(t, s.Error("x", "y"))

	var nilService *Service
	assert.False(t, nilService.Trade(TradeInfo{}))
	assert.NoError(t, nilService.Start(context.Background()))
	nilService.Close()
	assert.False(t, NewService(nil, "", nil).Enabled())
}

func TestParsePriority(t *testing.T) {
	t.Parallel()

	assert.Equal(t, High, ParsePriority("high"))
	assert.Equal(t, Low, ParsePriority("low"))
	assert.Equal(t, Normal, ParsePriority("urgent"))
	assert.Equal(t, "normal", Normal.String())
}
