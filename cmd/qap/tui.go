package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/j-veylop/quota-autopay/internal/app"
	"github.com/j-veylop/quota-autopay/internal/logger"
	"github.com/j-veylop/quota-autopay/internal/services"
	"github.com/j-veylop/quota-autopay/internal/ui/tabs/history"
	"github.com/j-veylop/quota-autopay/internal/ui/tabs/info"
	monitortab "github.com/j-veylop/quota-autopay/internal/ui/tabs/monitor"
)

// runTUI runs the Bubble Tea program until the operator quits.
func runTUI(cmd *cobra.Command) error {
	cfg, closeLog, err := setup(true)
	if err != nil {
		return err
	}
	defer closeLog()

	svcManager, err := services.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	defer func() {
		if closeErr := svcManager.Close(); closeErr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: error closing services: %v\n", closeErr)
		}
	}()

	model := app.NewModel(svcManager, cfg.CancelSentinel)

	// Each tab receives the shared application state for consistent data access
	state := model.GetState()
	state.SetSessionActive(svcManager.SessionActive())
	tabs := []app.Tab{
		monitortab.New(state, cfg.CancelSentinel), // Tab 0: setup prompt and live run
		history.New(svcManager),                   // Tab 1: recorded polls and purchases
		info.New(state, cfg),                      // Tab 2: configuration and build info
	}
	model.SetTabs(tabs)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithContext(cmd.Context()),
	)

	// ctrl+c cancels the run before quitting
	go func() {
		if _, ok := <-sigChan; ok {
			p.Send(tea.KeyMsg{Type: tea.KeyCtrlC})
		}
	}()

	logger.Info("starting ui", "session", svcManager.SessionActive())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
