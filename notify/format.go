package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/autotrader/risk"
	"github.com/rustyeddy/autotrader/strategies"
)

// backtick, star and underscore stay live for formatting
var escaper = strings.NewReplacer(
	"[", `\[`, "]", `\]`, "(", `\(`, ")", `\)`, "~", `\~`, ">", `\>`,
	"#", `\#`, "+", `\+`, "-", `\-`, "=", `\=`, "|", `\|`,
	"{", `\{`, "}", `\}`, ".", `\.`, "!", `\!`,
)

// Format stamps text with the local time of day and escapes Markdown
// specials.
func Format(text string, at time.Time) string {
	return escaper.Replace(fmt.Sprintf("⏰ `%s`\n%s", at.Format("15:04:05"), text))
}

// TradeInfo is an executed order as announced to the chat.
type TradeInfo struct {
	Side       string
	Symbol     string
	Volume     float64
	Price      float64
	Strategy   string
	Confidence float64
	TP         float64
	SL         float64
	Risk       float64
	RR         float64
}

func TradeMessage(t TradeInfo) string {
	var b strings.Builder
	b.WriteString("🎯 *TRADE EXECUTED*\n\n")
	fmt.Fprintf(&b, "📊 Symbol: `%s`\n", t.Symbol)
	fmt.Fprintf(&b, "🔄 Action: *%s*\n", strings.ToUpper(t.Side))
	fmt.Fprintf(&b, "💰 Volume: `%.2f` lots\n", t.Volume)
	fmt.Fprintf(&b, "💲 Price: `%.5f`\n", t.Price)
	fmt.Fprintf(&b, "🧠 Strategy: `%s`\n", t.Strategy)
	fmt.Fprintf(&b, "🎯 Confidence: `%.2f`", t.Confidence)
	if t.TP > 0 {
		fmt.Fprintf(&b, "\n🎯 TP: `%.5f`", t.TP)
	}
	if t.SL > 0 {
		fmt.Fprintf(&b, "\n🛑 SL: `%.5f`", t.SL)
	}
	if t.Risk > 0 {
		fmt.Fprintf(&b, "\n⚖️ Risk: `%.2f`", t.Risk)
	}
	if t.RR > 0 {
		fmt.Fprintf(&b, "\n📐 R:R: `1:%.2f`", t.RR)
	}
	return b.String()
}

// CloseInfo is a closed position as announced to the chat.
type CloseInfo struct {
	Ticket int64
	Symbol string
	Side   string
	Volume float64
	Exit   float64
	Profit float64
	Reason string
}

func CloseMessage(c CloseInfo) string {
	icon := "✅"
	if c.Profit <= 0 {
		icon = "❌"
	}
	return fmt.Sprintf("%s *POSITION CLOSED*\n\n📊 Symbol: `%s`\n🔄 Side: *%s*\n💰 Volume: `%.2f` lots\n💲 Exit: `%.5f`\n💵 Profit: `%.2f`\n📝 Reason: %s",
		icon, c.Symbol, strings.ToUpper(c.Side), c.Volume, c.Exit, c.Profit, c.Reason)
}

func SignalMessage(s strategies.Signal) string {
	reason := s.Reason
	if reason == "" {
		reason = "No reason provided"
	}
	return fmt.Sprintf("🚨 *TRADING SIGNAL*\n\n📊 Symbol: `%s`\n🔄 Signal: *%s*\n🧠 Strategy: `%s`\n🎯 Confidence: `%.2f`\n💡 Reason: %s",
		s.Symbol, strings.ToUpper(s.Side.String()), s.Strategy, s.Confidence, reason)
}

func ErrorMessage(kind, msg string) string {
	return fmt.Sprintf("❌ *ERROR ALERT*\n\n🏷️ Type: `%s`\n📝 Message: %s", kind, msg)
}

func DailySummaryMessage(s risk.DailySummary) string {
	trend := "➡️"
	switch {
	case s.DailyProfit > 0:
		trend = "📈"
	case s.DailyProfit < 0:
		trend = "📉"
	}
	return fmt.Sprintf("📊 *DAILY SUMMARY*\n\n📅 Date: `%s`\n%s P/L: `%.2f` (%.2f%%)\n🔢 Trades: `%d`\n🎯 Win Rate: `%.1f%%`\n💰 Balance: `%.2f`",
		s.Date.Format(time.DateOnly), trend, s.DailyProfit, s.DailyProfitPct, s.TotalTrades, s.WinRate, s.CurrentBalance)
}

func ConnectionMessage(status, details string) string {
	icon := "❌"
	if strings.EqualFold(status, "connected") {
		icon = "✅"
	}
	msg := fmt.Sprintf("%s *MT5 CONNECTION*\n\n📊 Status: `%s`", icon, status)
	if details != "" {
		msg += "\n📝 Details: " + details
	}
	return msg
}

func CustomMessage(title, content string) string {
	return fmt.Sprintf("*%s*\n\n%s", title, content)
}
