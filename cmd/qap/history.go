package main

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/j-veylop/quota-autopay/internal/db"
	"github.com/j-veylop/quota-autopay/internal/models"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print recorded purchase attempts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, closeLog, err := setup(false)
			if err != nil {
				return err
			}
			defer closeLog()

			database, err := db.New(cfg.DatabasePath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = database.Close() }()

			purchases, err := database.RecentPurchases(limit)
			if err != nil {
				return err
			}
			stats, err := database.SubmittedSince(startOfDay(time.Now()))
			if err != nil {
				return err
			}
			return printHistory(cmd.OutOrStdout(), purchases, stats)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of purchases to show")

	return cmd
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func printHistory(out io.Writer, purchases []models.PurchaseRecord, stats *db.PurchaseStats) error {
	if stats != nil {
		fmt.Fprintf(out, "Today: %s spent on %d purchases\n",
			humanize.Comma(stats.TotalSpent), stats.Count)
	}
	if len(purchases) == 0 {
		_, err := fmt.Fprintln(out, "No purchases recorded yet.")
		return err
	}

	rows := make([][]string, 0, len(purchases))
	for _, p := range purchases {
		rows = append(rows, []string{
			humanize.Time(p.Timestamp),
			p.Mode,
			p.OfferName,
			string(p.Status),
			humanize.Comma(p.TotalPrice),
			shortID(p.RunID),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("When", "Mode", "Offer", "Status", "Total", "Run").
		Rows(rows...)

	_, err := fmt.Fprintln(out, t.String())
	return err
}
