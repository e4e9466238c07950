package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/j-veylop/quota-autopay/internal/app"
	"github.com/j-veylop/quota-autopay/internal/models"
	"github.com/j-veylop/quota-autopay/internal/services"
	"github.com/j-veylop/quota-autopay/internal/services/monitor"
	"github.com/j-veylop/quota-autopay/internal/services/quota"
	"github.com/j-veylop/quota-autopay/internal/services/session"
)

var errSetupAborted = errors.New("setup aborted")

type watchOptions struct {
	entry        string
	mode         string
	thresholdMB  string
	timerSeconds string
}

func newWatchCmd() *cobra.Command {
	var opts watchOptions

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the monitor without the UI, asking for missing answers on stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.entry, "entry", "", "entry number to watch")
	cmd.Flags().StringVar(&opts.mode, "mode", "", "1 or quota, 2 or timer")
	cmd.Flags().StringVar(&opts.thresholdMB, "threshold-mb", "", "quota mode threshold in MB")
	cmd.Flags().StringVar(&opts.timerSeconds, "timer-seconds", "", "timer mode period in seconds")

	return cmd
}

func runWatch(cmd *cobra.Command, opts watchOptions) error {
	cfg, closeLog, err := setup(false)
	if err != nil {
		return err
	}
	defer closeLog()

	svcManager, err := services.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer func() { _ = svcManager.Close() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	lines := newLineReader(cmd.InOrStdin())

	fmt.Fprintln(out, "Loading quota entries...")
	entries, err := svcManager.Prepare(ctx)
	switch {
	case errors.Is(err, session.ErrExpired):
		return fmt.Errorf("no session: run 'qap session set' first")
	case errors.Is(err, monitor.ErrNoEntries):
		fmt.Fprintln(out, "No active quota on this account.")
		return nil
	case err != nil:
		return fmt.Errorf("setup failed: %w", err)
	}
	printEntries(out, entries)

	plan, err := collectPlan(ctx, entries, opts, lines, out, cfg.CancelSentinel)
	if errors.Is(err, errSetupAborted) || errors.Is(err, context.Canceled) {
		fmt.Fprintln(out, "Setup aborted.")
		return nil
	}
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	fmt.Fprintf(out, "Monitoring %s. Type %s to stop.\n", plan.Target.Name, cfg.CancelSentinel)
	go watchSentinel(runCtx, lines, cfg.CancelSentinel, out, cancel)

	events, _ := svcManager.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range events {
			if line := formatEvent(event); line != "" {
				fmt.Fprintln(out, line)
			}
		}
	}()

	reason, err := svcManager.RunMonitor(runCtx, plan)
	svcManager.Unsubscribe(events)
	<-done

	fmt.Fprintf(out, "Monitor stopped: %s\n", reason)
	if reason == monitor.StopSessionExpired {
		return fmt.Errorf("session expired")
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// lineReader turns an input stream into trimmed lines that can be awaited
// together with a context.
type lineReader struct {
	lines chan string
}

func newLineReader(r io.Reader) *lineReader {
	l := &lineReader{lines: make(chan string)}
	go func() {
		defer close(l.lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			l.lines <- strings.TrimSpace(scanner.Text())
		}
	}()
	return l
}

// next returns the next line, io.EOF once input ends, or the context error.
func (l *lineReader) next(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-l.lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	}
}

func printEntries(out io.Writer, entries []models.QuotaEntry) {
	fmt.Fprintln(out, "Active quotas:")
	for i, entry := range entries {
		benefit := quota.SelectMain(entry)
		fmt.Fprintf(out, "%2d. %s  %s\n", i+1, entry.Label(i+1), quota.FormatQuota(benefit.Remaining, benefit.Total))
	}
	fmt.Fprintf(out, "%s. abort\n", app.AbortAnswer)
}

// collectPlan takes answers from flags first and asks for the rest.
func collectPlan(ctx context.Context, entries []models.QuotaEntry, opts watchOptions, lines *lineReader, out io.Writer, sentinel string) (models.MonitorPlan, error) {
	ask := func(preset, prompt string) (string, error) {
		if preset != "" {
			return preset, nil
		}
		fmt.Fprint(out, prompt)
		answer, err := lines.next(ctx)
		if errors.Is(err, io.EOF) {
			return "", errSetupAborted
		}
		if err != nil {
			return "", err
		}
		if answer == sentinel {
			return "", errSetupAborted
		}
		return answer, nil
	}

	choice, err := ask(opts.entry, "Entry number: ")
	if err != nil {
		return models.MonitorPlan{}, err
	}
	if choice == app.AbortAnswer {
		return models.MonitorPlan{}, errSetupAborted
	}
	if _, err := models.ParseChoice(choice, len(entries)); err != nil {
		return models.MonitorPlan{}, err
	}

	modeAnswer, err := ask(opts.mode, "Mode (1 quota, 2 timer): ")
	if err != nil {
		return models.MonitorPlan{}, err
	}
	mode, err := models.ParseMode(modeAnswer)
	if err != nil {
		return models.MonitorPlan{}, err
	}

	preset, prompt := opts.thresholdMB, "Threshold in MB: "
	if mode == models.ModeTimer {
		preset, prompt = opts.timerSeconds, "Timer in seconds: "
	}
	value, err := ask(preset, prompt)
	if err != nil {
		return models.MonitorPlan{}, err
	}

	return models.NewMonitorPlan(entries, choice, modeAnswer, value)
}

// watchSentinel cancels the run when the stop answer arrives on stdin.
func watchSentinel(ctx context.Context, lines *lineReader, sentinel string, out io.Writer, cancel context.CancelFunc) {
	for {
		line, err := lines.next(ctx)
		if err != nil {
			return
		}
		if line == sentinel {
			cancel()
			return
		}
		if line != "" {
			fmt.Fprintf(out, "Type %s to stop the monitor.\n", sentinel)
		}
	}
}

// formatEvent renders a service event as one log line. Countdown ticks and
// lifecycle events return "".
func formatEvent(event services.ServiceEvent) string {
	switch e := event.(type) {
	case services.SessionChangedEvent:
		if e.Active {
			return "session loaded"
		}
		return "session removed"

	case services.ErrorEvent:
		return fmt.Sprintf("error [%s]: %v", e.Service, e.Error)

	case services.MonitorEvent:
		return formatMonitorEvent(e.Event)
	}
	return ""
}

func formatMonitorEvent(e monitor.Event) string {
	stamp := e.Time.Format("15:04:05")

	switch e.Type {
	case monitor.EventStarted:
		return fmt.Sprintf("%s run %s started in %s mode", stamp, shortID(e.RunID), e.Mode)

	case monitor.EventPoll:
		if e.Snapshot == nil {
			return ""
		}
		snap := e.Snapshot
		line := fmt.Sprintf("%s %s: %s, balance %s",
			stamp, entryName(snap), quota.FormatQuota(snap.Benefit.Remaining, snap.Benefit.Total),
			humanize.Comma(snap.Balance))
		if snap.Projection != nil && snap.Projection.Status != "" {
			line += fmt.Sprintf(", projection %s", snap.Projection.Status)
		}
		return line

	case monitor.EventStatus:
		return fmt.Sprintf("%s %s", stamp, e.Status)

	case monitor.EventTrigger:
		if e.Err != nil {
			return fmt.Sprintf("%s purchase failed: %v", stamp, e.Err)
		}
		var b strings.Builder
		if e.Outcome.Submitted() {
			fmt.Fprintf(&b, "%s purchase submitted", stamp)
		} else {
			fmt.Fprintf(&b, "%s settlement failed: %v", stamp, e.Outcome.SettleErr)
		}
		if e.Outcome != nil && e.Outcome.Plan != nil {
			fmt.Fprintf(&b, " (total %s)", humanize.Comma(e.Outcome.Plan.TotalPrice()))
		}
		for _, item := range e.Outcome.Preview() {
			fmt.Fprintf(&b, "\n    %s", item)
		}
		return b.String()
	}
	return ""
}

func entryName(snap *monitor.Snapshot) string {
	if snap.Entry.Name != "" {
		return snap.Entry.Name
	}
	if snap.Match == models.MatchNone {
		return "target missing"
	}
	return snap.Entry.Code
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
