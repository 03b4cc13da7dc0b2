package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"ragdesk/internal/adapters/browser"
	"ragdesk/internal/adapters/editor"
	"ragdesk/internal/adapters/gateway"
	"ragdesk/internal/adapters/tui"
	"ragdesk/internal/application/collections"
	"ragdesk/internal/config"
	"ragdesk/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// The TUI owns the terminal: logs go to LogFile or nowhere
	logger, logCloser, err := config.NewLogger(cfg, nil)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gw, gwCloser, err := gateway.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer gwCloser.Close()

	st := store.New(store.WithLogger(logger))
	coord := gateway.NewCoordinator(gw, st, cfg, logger)
	defer coord.Close()

	ops := collections.New(gw, st,
		collections.WithLogger(logger),
		collections.WithChangeHook(func(name string) {
			if _, err := coord.RefreshSyncStatus(ctx, name); err != nil {
				logger.Warn("refreshing sync status failed", "collection", name, "error", err)
			}
		}),
	)

	app := tui.NewApp(ctx, ops, coord, st,
		tui.WithLogger(logger),
		tui.WithEditor(editor.NewOpener(cfg.Editor)),
		tui.WithBrowser(browser.NewOpener()),
	)
	p := tea.NewProgram(app, tea.WithAltScreen())

	// Update dispatches too, so never block the event loop on Send
	unsubscribe := st.Subscribe(func(store.State) {
		go p.Send(tui.StateChangedMsg{})
	})
	defer unsubscribe()

	coord.Start()
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}
