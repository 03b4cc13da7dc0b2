package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"ragdesk/internal/adapters/gateway"
	mcpadapter "ragdesk/internal/adapters/mcp"
	"ragdesk/internal/application/collections"
	"ragdesk/internal/config"
	"ragdesk/internal/store"
)

const version = "0.1.0"

func main() {
	var apiURL string
	cmd := &cobra.Command{
		Use:   "ragdesk-mcp",
		Short: "MCP server for ragdesk collections",
		Long: `ragdesk-mcp serves document collections, files, page crawling and
vector sync over the Model Context Protocol on stdio.

Without an API URL it uses the local SQLite backend.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), apiURL, cmd.Flags().Changed("api"))
		},
	}
	cmd.Flags().StringVar(&apiURL, "api", "", `backend API URL, or "local" for the SQLite backend`)

	if err := fang.Execute(context.Background(), cmd,
		fang.WithVersion(version),
		fang.WithoutCompletions(),
		fang.WithoutManpage(),
	); err != nil {
		os.Exit(1)
	}
}

func serve(ctx context.Context, apiURL string, override bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if override {
		cfg.APIURL = apiURL
		if apiURL == "local" {
			cfg.APIURL = ""
		}
	}
	// stdout carries the protocol
	logger, logCloser, err := config.NewLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	gw, gwCloser, err := gateway.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer gwCloser.Close()

	st := store.New(store.WithLogger(logger))
	coord := gateway.NewCoordinator(gw, st, cfg, logger)
	defer coord.Close()
	ops := collections.New(gw, st, collections.WithLogger(logger))

	s := server.NewMCPServer(
		"ragdesk-mcp",
		version,
		server.WithToolCapabilities(true),
	)
	s.AddTool(
		mcp.NewTool("ping",
			mcp.WithDescription("Health check, returns pong"),
		),
		func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText("pong"), nil
		},
	)
	mcpadapter.RegisterReadTools(s, gw)
	mcpadapter.RegisterWriteTools(s, gw, coord)
	mcpadapter.RegisterPageTools(s, ops)

	logger.Info("serving MCP on stdio", "version", version)
	if err := server.ServeStdio(s); err != nil {
		return fmt.Errorf("ragdesk-mcp: %w", err)
	}
	return nil
}
