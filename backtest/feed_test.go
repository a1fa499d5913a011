package backtest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCandleRow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		row     []string
		ok      bool
		wantErr string
		close   float64
		volume  float64
	}{
		{"full row", []string{"2026-03-10T10:00:00Z", "XAUUSD", "2000", "2001.5", "1999", "2001", "350"}, true, "", 2001, 350},
		{"no volume", []string{"2026-03-10T10:00:00Z", "XAUUSD", "2000", "2001.5", "1999", "2001"}, true, "", 2001, 0},
		{"empty volume", []string{"2026-03-10T10:00:00Z", "XAUUSD", "2000", "2001.5", "1999", "2001", ""}, true, "", 2001, 0},
		{"short row", []string{"2026-03-10T10:00:00Z", "XAUUSD", "2000"}, false, "", 0, 0},
		{"blank symbol", []string{"2026-03-10T10:00:00Z", " ", "2000", "2001", "1999", "2000"}, false, "", 0, 0},
		{"bad time", []string{"10/03/2026", "XAUUSD", "2000", "2001", "1999", "2000"}, false, "bad time", 0, 0},
		{"bad high", []string{"2026-03-10T10:00:00Z", "XAUUSD", "2000", "x", "1999", "2000"}, false, "bad high", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b, ok, err := parseCandleRow(tt.row)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, "XAUUSD", b.Symbol)
				assert.Equal(t, tt.close, b.Close)
				assert.Equal(t, tt.volume, b.Volume)
			}
		})
	}
}

func TestCSVCandleFeed(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bars.csv")
	data := "time,symbol,open,high,low,close,volume\n" +
		"2026-03-10T09:59:00Z,XAUUSD,1999,2000,1998,1999.5,100\n" +
		"2026-03-10T10:00:00Z,XAUUSD,1999.5,2001,1999,2000.5,120\n" +
		"\n" +
		"2026-03-10T10:01:00Z,XAUUSD,2000.5,2002,2000,2001.5,130\n" +
		"2026-03-10T10:02:00Z,XAUUSD,2001.5,2003,2001,2002.5,140\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	from := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	to := from.Add(2 * time.Minute)
	feed, err := NewCSVCandleFeed(path, from, to)
	require.NoError(t, err)
	defer feed.Close()

	var got []Bar
	for {
		b, ok, err := feed.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, b)
	}

	require.Len(t, got, 2)
	assert.Equal(t, from, got[0].Time)
	assert.Equal(t, 2000.5, got[0].Close)
	assert.Equal(t, from.Add(time.Minute), got[1].Time)
}

func TestCSVCandleFeedMissingFile(t *testing.T) {
	t.Parallel()
	_, err := NewCSVCandleFeed(filepath.Join(t.TempDir(), "nope.csv"), time.Time{}, time.Time{})
	assert.Error(t, err)
}

func drain(t *testing.T, f CandleFeed) []Bar {
	t.Helper()
	var out []Bar
	for {
		b, ok, err := f.Next()
		require.NoError(t, err)
		if !ok {
			return out
		}
		out = append(out, b)
	}
}

func TestRandomWalkFeedIsSeeded(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 10, 10, 0, 30, 0, time.UTC)
	a := drain(t, NewRandomWalkFeed("XAUUSD", start, 2000, 50, 42))
	b := drain(t, NewRandomWalkFeed("XAUUSD", start, 2000, 50, 42))
	c := drain(t, NewRandomWalkFeed("XAUUSD", start, 2000, 50, 43))

	require.Len(t, a, 50)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, start.Truncate(time.Minute), a[0].Time)
	assert.Equal(t, a[0].Time.Add(49*time.Minute), a[49].Time)
	for _, bar := range a {
		assert.Equal(t, "XAUUSD", bar.Symbol)
		assert.GreaterOrEqual(t, bar.High, bar.Low)
	}
}
