package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/j-veylop/quota-autopay/internal/config"
	"github.com/j-veylop/quota-autopay/internal/logger"
)

const longHelp = `qap watches the main data allowance of a prepaid account and buys the
configured offer when it drops below a threshold, or on a fixed timer.

Without a subcommand it starts the terminal UI. Type the stop answer (99 by
default) at any prompt to cancel a wait or a run, and 00 at the entry prompt
to abort setup.

Environment Variables:
  BILLING_API_KEY         API key for the billing API (required)
  BILLING_BASE_URL        Billing API base URL
  CATALOG_URL             Public offer catalog URL
  TARGET_OFFER_NAME       Offer bought on every trigger
  PROBE_URLS              Connectivity probe URLs, at least two
  REFRESH_INTERVAL        Poll interval (default: 20s)
  PURCHASE_COOLDOWN       Minimum gap between quota-mode triggers (default: 3m)
  CANCEL_SENTINEL         Stop answer (default: 99)
  SESSION_PATH            Session token file
  DATABASE_PATH           SQLite history database
  LOG_PATH, LOG_LEVEL     Log file and level
  DESKTOP_NOTIFY          Desktop notifications (default: true)
  TELEGRAM_BOT_TOKEN      Telegram bot token
  TELEGRAM_CHAT_ID        Telegram chat to notify

Configuration:
  .env files are read from the current directory,
  ~/.config/quota-autopay/.env and ~/.quota-autopay/.env.`

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "qap",
		Short:        "Quota autopay: buy a data offer before the quota runs out",
		Long:         longHelp,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd)
		},
	}

	rootCmd.AddCommand(
		newWatchCmd(),
		newHistoryCmd(),
		newSessionCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

// setup loads the configuration and points the logger at its destination.
// The UI owns the terminal, so it logs to a file next to the database unless
// LOG_PATH says otherwise.
func setup(tui bool) (*config.Config, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logPath := cfg.LogPath
	if logPath == "" && tui {
		logPath = filepath.Join(filepath.Dir(cfg.DatabasePath), "qap.log")
	}

	closer, err := logger.Init(logPath, cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	return cfg, func() { _ = closer.Close() }, nil
}
