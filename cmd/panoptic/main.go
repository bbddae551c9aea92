// Package main is the entry point for the Panoptic TUI application.
// It initializes configuration, services, and runs the Bubble Tea program.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/panoptic/internal/app"
	"github.com/j-veylop/panoptic/internal/config"
	"github.com/j-veylop/panoptic/internal/logger"
	"github.com/j-veylop/panoptic/internal/services"
	"github.com/j-veylop/panoptic/internal/ui/tabs/auditlog"
	"github.com/j-veylop/panoptic/internal/ui/tabs/keys"
	"github.com/j-veylop/panoptic/internal/ui/tabs/overview"
	"github.com/j-veylop/panoptic/internal/ui/tabs/projects"
	"github.com/j-veylop/panoptic/internal/version"
)

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "-v" || os.Args[1] == "--version") {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	if len(os.Args) > 1 && (os.Args[1] == "-h" || os.Args[1] == "--help") {
		printUsage()
		os.Exit(0)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// The TUI owns stdout, so logs go to a file or nowhere.
	if cfg.LogPath != "" {
		logFile, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer logFile.Close()
		logger.SetOutput(logFile)
	} else {
		logger.SetOutput(nil)
	}

	mgr, err := services.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer func() {
		if closeErr := mgr.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: error closing services: %v\n", closeErr)
		}
	}()

	mgr.Start()

	model := app.NewModel(mgr)
	state := model.GetState()
	model.SetTabs([]app.Tab{
		overview.New(state),      // Tab 0: Overview - combined spend and series
		projects.New(state),      // Tab 1: Projects - per-unit attribution
		keys.New(state, mgr),     // Tab 2: Keys - credential management
		auditlog.New(state, mgr), // Tab 3: Audit - local audit trail
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	go func() {
		<-sigChan
		p.Send(tea.Quit())
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

func printUsage() {
	fmt.Println(`Panoptic - local dashboard for LLM API usage and spend

Usage:
  panoptic [flags]

Flags:
  -h, --help      Show this help message
  -v, --version   Show version information

Keyboard Shortcuts:
  1-4             Switch between tabs (Overview, Projects, Keys, Audit)
  Tab/Shift+Tab   Navigate between tabs
  j/k, Up/Down    Navigate lists
  r               Refresh usage data
  D               Diagnose stored keys
  a / x           Add / delete a key (Keys tab)
  ?               Toggle help
  q, Ctrl+C       Quit

Environment Variables:
  PANOPTIC_DB_PATH             SQLite database path
  PANOPTIC_SECRETS_PATH        Secrets JSON file path
  PANOPTIC_LOG_PATH            Log file path (logs are dropped when unset)
  PANOPTIC_REFRESH_INTERVAL    Usage refresh interval (default: 5m)
  PANOPTIC_COST_ALERT_USD      Daily spend notification threshold (0 disables)

Configuration:
  The application looks for .env files in the following locations:
  - Current directory
  - ~/.config/panoptic/.env
  - ~/.panoptic/.env`)
}
