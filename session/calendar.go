package session

import "time"

// MarketOpen reports whether the FX week is running: closed from Friday
// 22:00 UTC until Sunday 22:00 UTC.
func MarketOpen(t time.Time) bool {
	t = t.UTC()
	switch t.Weekday() {
	case time.Friday:
		return t.Hour() < 22
	case time.Saturday:
		return false
	case time.Sunday:
		return t.Hour() >= 22
	}
	return true
}

// span is a same-day window in minutes after midnight, both ends inclusive.
type span struct{ from, to int }

func (s span) contains(m int) bool { return s.from <= m && m <= s.to }

func hm(h, m int) int { return h*60 + m }

var dailyNews = []span{
	{hm(8, 30), hm(9, 30)},
	{hm(12, 30), hm(14, 30)},
	{hm(16, 0), hm(16, 30)},
}

func newsWindows(day time.Weekday) []span {
	w := append([]span(nil), dailyNews...)
	switch day {
	case time.Wednesday:
		w = append(w, span{hm(13, 0), hm(14, 0)})
	case time.Friday:
		w = append(w, span{hm(12, 30), hm(15, 0)})
	}
	return w
}

// NewsBlackout reports whether t falls inside a high-impact release window
// widened by pad on both sides.
func NewsBlackout(t time.Time, pad time.Duration) bool {
	t = t.UTC()
	now := hm(t.Hour(), t.Minute())
	p := int(pad / time.Minute)
	for _, s := range newsWindows(t.Weekday()) {
		if (span{s.from - p, s.to + p}).contains(now) {
			return true
		}
	}
	return false
}

// NextNews returns the start of the next blackout window after t, searching
// up to a week ahead.
func NextNews(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	for d := 0; d < 7; d++ {
		base := day.AddDate(0, 0, d)
		best := time.Time{}
		for _, s := range newsWindows(base.Weekday()) {
			start := base.Add(time.Duration(s.from) * time.Minute)
			if start.After(t) && (best.IsZero() || start.Before(best)) {
				best = start
			}
		}
		if !best.IsZero() {
			return best
		}
	}
	return time.Time{}
}
