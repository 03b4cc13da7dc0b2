package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"ragdesk/internal/adapters/gateway"
	"ragdesk/internal/config"
	"ragdesk/internal/ports"
)

const version = "0.1.0"

var (
	apiURL  string
	cfg     config.Config
	logger  *slog.Logger
	gw      ports.Gateway
	closers []io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "ragdesk-cli",
	Short: "CLI for managing document collections",
	Long: `ragdesk-cli manages document collections on a RAG backend: collections,
files, crawled pages and the vector sync that embeds them.

Without an API URL it works against the local SQLite backend.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip initialization for help commands
		if cmd.Name() == "help" {
			return nil
		}
		return setup(cmd.Flags().Changed("api"))
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return teardown()
	},
}

// Execute runs the root command through fang
func Execute(ctx context.Context) error {
	return fang.Execute(ctx, rootCmd,
		fang.WithVersion(version),
		fang.WithoutCompletions(),
		fang.WithoutManpage(),
	)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", `backend API URL, or "local" for the SQLite backend`)
}

func setup(override bool) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return err
	}
	if override {
		cfg.APIURL = apiURL
		if apiURL == "local" {
			cfg.APIURL = ""
		}
	}

	var logCloser io.Closer
	logger, logCloser, err = config.NewLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	closers = append(closers, logCloser)

	var gwCloser io.Closer
	gw, gwCloser, err = gateway.Open(cfg, logger)
	if err != nil {
		return err
	}
	closers = append(closers, gwCloser)
	return nil
}

// teardown closes in reverse order of setup
func teardown() error {
	var first error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	closers = nil
	return first
}

// GetGateway returns the initialized backend gateway
func GetGateway() ports.Gateway {
	return gw
}
