package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/autotrader/notify"
)

var telegramCmd = &cobra.Command{
	Use:   "telegram",
	Short: "Telegram notification tools",
}

var telegramTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Check the bot token and send a test message",
	Long: `Test calls getMe with the configured token and sends a test message to
the configured chat. Credentials come from the config file or from
TELEGRAM_TOKEN and TELEGRAM_CHAT_ID.`,
	Args: cobra.NoArgs,
	RunE: runTelegramTest,
}

var (
	telegramConfigPath string
	telegramTimeout    time.Duration
)

func init() {
	rootCmd.AddCommand(telegramCmd)
	telegramCmd.AddCommand(telegramTestCmd)

	telegramCmd.PersistentFlags().StringVarP(&telegramConfigPath, "config", "f", "", "config file with Telegram credentials")
	telegramTestCmd.Flags().DurationVar(&telegramTimeout, "timeout", 10*time.Second, "request timeout")
}

func runTelegramTest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(telegramConfigPath)
	if err != nil {
		return err
	}
	if cfg.Telegram.Token == "" || cfg.Telegram.ChatID == "" {
		return errors.New("telegram token and chat id are required")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), telegramTimeout)
	defer cancel()

	tg := notify.NewTelegram(cfg.Telegram.Token)
	name, err := tg.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("getMe: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Connected as @%s\n", name)

	msg := notify.Format(notify.CustomMessage("Test", "Telegram notifications are working."), time.Now())
	if err := tg.SendMessage(ctx, cfg.Telegram.ChatID, msg); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Test message sent to %s\n", cfg.Telegram.ChatID)
	return nil
}
