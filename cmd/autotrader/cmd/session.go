package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/autotrader/config"
	"github.com/rustyeddy/autotrader/session"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Show trading session state",
	Long: `Inspect the FX trading sessions the bot trades in.

Subcommands:
  status   - Current session, next session and recommendation
  schedule - The daily UTC session windows`,
}

var sessionStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current trading session",
	Args:  cobra.NoArgs,
	RunE:  runSessionStatus,
}

var sessionScheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Show the daily session windows",
	Args:  cobra.NoArgs,
	RunE:  runSessionSchedule,
}

var (
	sessionConfigPath string
	sessionAt         string
)

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionStatusCmd)
	sessionCmd.AddCommand(sessionScheduleCmd)

	sessionCmd.PersistentFlags().StringVarP(&sessionConfigPath, "config", "f", "", "config file with session switches (defaults when empty)")
	sessionStatusCmd.Flags().StringVar(&sessionAt, "at", "", "evaluate at this time instead of now (RFC3339)")
}

func sessionManager() (*session.Manager, *config.Config, time.Time, error) {
	cfg, err := loadConfig(sessionConfigPath)
	if err != nil {
		return nil, nil, time.Time{}, err
	}
	at, err := parseTimeFlag("at", sessionAt)
	if err != nil {
		return nil, nil, time.Time{}, err
	}
	if at.IsZero() {
		at = time.Now()
	}
	m := session.NewManager(logger, session.WithClock(func() time.Time { return at }))
	m.Apply(cfg.SessionFlags())
	return m, cfg, at, nil
}

func runSessionStatus(cmd *cobra.Command, args []string) error {
	m, cfg, now, err := sessionManager()
	if err != nil {
		return err
	}
	st := m.Statistics()
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Market open:   %v\n", st.MarketOpen)
	fmt.Fprintf(out, "Optimal:       %v (%s)\n", m.IsOptimal(cfg.Trading.Symbol), cfg.Trading.Symbol)
	if st.SessionActive {
		fmt.Fprintf(out, "Session:       %s (%s)\n", st.Current, st.Intensity)
		fmt.Fprintf(out, "Volatility:    %s\n", st.Characteristics.Volatility)
		fmt.Fprintf(out, "Spread x:      %.2f\n", st.Characteristics.SpreadMultiplier)
		fmt.Fprintf(out, "Pairs:         %s\n", strings.Join(st.PreferredPairs, ", "))
	} else {
		fmt.Fprintln(out, "Session:       none")
	}
	if st.Next != "" {
		fmt.Fprintf(out, "Next:          %s at %s\n", st.Next, st.NextStart.Format(time.RFC3339))
	}

	rec := m.Recommendations()
	if rec.Recommended {
		fmt.Fprintf(out, "Recommended:   yes (risk x%.2f, spread %s)\n", rec.RiskAdjustment, rec.SpreadCondition)
	} else {
		fmt.Fprintf(out, "Recommended:   no (%s)\n", rec.Reason)
	}
	pad := cfg.Sessions.NewsPad()
	if session.NewsBlackout(now, pad) {
		fmt.Fprintln(out, "News:          high-impact window running")
	} else if next := session.NextNews(now); !next.IsZero() {
		fmt.Fprintf(out, "Next news:     %s\n", next.Add(-pad).Format(time.RFC3339))
	}
	return nil
}

func runSessionSchedule(cmd *cobra.Command, args []string) error {
	m, _, _, err := sessionManager()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-18s %-5s %-5s %-10s %s\n", "SESSION", "START", "END", "VOLATILITY", "ENABLED")
	for _, e := range m.Schedule() {
		fmt.Fprintf(out, "%-18s %-5s %-5s %-10s %v\n", e.Name, e.Start, e.End, e.Volatility, e.Enabled)
	}
	return nil
}
