// Package gateway wires the configured backend and the sync coordinator
// for the ragdesk binaries.
package gateway

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"ragdesk/internal/adapters/httpapi"
	"ragdesk/internal/adapters/sqlite"
	"ragdesk/internal/application/vectorsync"
	"ragdesk/internal/config"
	"ragdesk/internal/ports"
	"ragdesk/internal/store"
)

// Open returns the REST client, or the local SQLite backend when no API
// URL is configured. The closer releases the backend.
func Open(cfg config.Config, logger *slog.Logger) (ports.Gateway, io.Closer, error) {
	if cfg.UseLocalBackend() {
		b, err := sqlite.Open(cfg.DatabasePath(),
			sqlite.WithLogger(logger),
			sqlite.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open local backend: %w", err)
		}
		logger.Info("using local backend", slog.String("path", b.Path()))
		return b, b, nil
	}

	c, err := httpapi.New(cfg.APIURL,
		httpapi.WithTimeout(cfg.RequestTimeout),
		httpapi.WithLogger(logger),
	)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("using API backend", slog.String("url", cfg.APIURL))
	return c, io.NopCloser(nil), nil
}

// NewCoordinator builds a coordinator with the configured poll and sweep timing
func NewCoordinator(gw ports.VectorSyncGateway, st *store.Store, cfg config.Config, logger *slog.Logger) *vectorsync.Coordinator {
	return vectorsync.New(gw, st,
		vectorsync.WithLogger(logger),
		vectorsync.WithPollInterval(cfg.PollInterval),
		vectorsync.WithSweepInterval(cfg.SweepInterval),
		vectorsync.WithStallTimeout(cfg.StallTimeout),
		vectorsync.WithStaleSweeps(cfg.StaleSweeps),
	)
}
