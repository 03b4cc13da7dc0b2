// Package httpapi implements ports.Gateway against the ragdesk REST backend.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ragdesk/internal/application"
	"ragdesk/internal/domain"
	"ragdesk/internal/ports"
)

const maxErrorBody = 64 << 10

// Client talks to the backend over HTTP/JSON
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  *slog.Logger
}

var _ ports.Gateway = (*Client)(nil)

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a Client for the backend at baseURL
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, &application.ValidationError{Field: "url", Message: fmt.Sprintf("invalid backend URL: %s", baseURL)}
	}
	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// errorEnvelope is the body of a failed response
type errorEnvelope struct {
	Detail    json.RawMessage `json:"detail"`
	ErrorType string          `json:"error_type"`
	Message   string          `json:"message"`
}

func (e errorEnvelope) text() string {
	if len(e.Detail) > 0 {
		var s string
		if err := json.Unmarshal(e.Detail, &s); err == nil {
			return s
		}
		return string(e.Detail)
	}
	return e.Message
}

// endpoint builds a URL from escaped path segments and an optional folder
func (c *Client) endpoint(folder string, segments ...string) string {
	u := *c.baseURL
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	u.Path = c.baseURL.Path + "/api/" + strings.Join(segments, "/")
	u.RawPath = c.baseURL.EscapedPath() + "/api/" + strings.Join(escaped, "/")
	if folder != "" {
		u.RawQuery = url.Values{"folder": {folder}}.Encode()
	}
	return u.String()
}

// do sends a JSON request and decodes the JSON response into out
func (c *Client) do(ctx context.Context, op, method, endpoint string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: failed to encode request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return &application.GatewayError{Op: op, Kind: application.KindUnknown, Err: ctxErr}
		}
		return &application.GatewayError{Op: op, Kind: application.KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("backend request",
		slog.String("op", op),
		slog.String("method", method),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)))

	if resp.StatusCode >= 300 {
		return decodeError(op, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return &application.GatewayError{Op: op, Kind: application.KindUnknown, Status: resp.StatusCode, Message: "malformed response", Err: err}
	}
	return nil
}

func decodeError(op string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var env errorEnvelope
	msg := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &env) == nil {
		if t := env.text(); t != "" {
			msg = t
		}
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &application.GatewayError{
		Op:      op,
		Kind:    kindFor(resp.StatusCode, env.ErrorType),
		Status:  resp.StatusCode,
		Message: msg,
	}
}

func kindFor(status int, errorType string) application.ErrorKind {
	switch strings.ToLower(errorType) {
	case "sync_failed", "vector_sync_error":
		return application.KindSyncFailed
	case "not_found":
		return application.KindNotFound
	case "service_unavailable":
		return application.KindServiceUnavailable
	case "validation", "validation_error":
		return application.KindValidation
	}
	switch status {
	case http.StatusNotFound:
		return application.KindNotFound
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return application.KindValidation
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return application.KindServiceUnavailable
	}
	return application.KindUnknown
}

func (c *Client) ListCollections(ctx context.Context) ([]domain.Collection, error) {
	var out []domain.Collection
	if err := c.do(ctx, "list collections", http.MethodGet, c.endpoint("", "collections"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateCollection(ctx context.Context, name, description string) (*domain.Collection, error) {
	in := struct {
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
	}{name, description}
	var out domain.Collection
	if err := c.do(ctx, "create collection", http.MethodPost, c.endpoint("", "collections"), in, &out); err != nil {
		return nil, err
	}
	if out.Name == "" {
		out.Name = name
		out.Description = description
	}
	return &out, nil
}

func (c *Client) DeleteCollection(ctx context.Context, name string) error {
	return c.do(ctx, "delete collection", http.MethodDelete, c.endpoint("", "collections", name), nil, nil)
}

func (c *Client) ListFiles(ctx context.Context, collection string) (*domain.FileListing, error) {
	var out domain.FileListing
	if err := c.do(ctx, "list files", http.MethodGet, c.endpoint("", "collections", collection, "files"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ReadFile(ctx context.Context, collection, filename, folder string) (string, error) {
	var out struct {
		Content string `json:"content"`
	}
	if err := c.do(ctx, "read file", http.MethodGet, c.endpoint(folder, "collections", collection, "files", filename), nil, &out); err != nil {
		return "", err
	}
	return out.Content, nil
}

func (c *Client) SaveFile(ctx context.Context, collection string, req domain.SaveFileRequest) (*domain.FileMetadata, error) {
	var out domain.FileMetadata
	if err := c.do(ctx, "save file", http.MethodPost, c.endpoint("", "collections", collection, "files"), req, &out); err != nil {
		return nil, err
	}
	if out.Filename == "" {
		out.Filename = req.Filename
		out.FolderPath = req.Folder
		out.Size = int64(len(req.Content))
	}
	return &out, nil
}

func (c *Client) UpdateFile(ctx context.Context, collection, filename, folder, content string) error {
	in := struct {
		Content string `json:"content"`
	}{content}
	return c.do(ctx, "update file", http.MethodPut, c.endpoint(folder, "collections", collection, "files", filename), in, nil)
}

func (c *Client) DeleteFile(ctx context.Context, collection, filename, folder string) error {
	return c.do(ctx, "delete file", http.MethodDelete, c.endpoint(folder, "collections", collection, "files", filename), nil, nil)
}

func (c *Client) CrawlToCollection(ctx context.Context, collection string, req domain.CrawlRequest) (*domain.CrawlResult, error) {
	var out domain.CrawlResult
	if err := c.do(ctx, "crawl page", http.MethodPost, c.endpoint("", "collections", collection, "crawl"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetSyncStatus(ctx context.Context, collection string) (*domain.VectorSyncStatus, error) {
	out := domain.NewVectorSyncStatus()
	if err := c.do(ctx, "get sync status", http.MethodGet, c.endpoint("", "collections", collection, "vector-sync", "status"), nil, &out); err != nil {
		return nil, err
	}
	out = out.Normalize()
	return &out, nil
}

func (c *Client) ListSyncStatuses(ctx context.Context) (map[string]domain.VectorSyncStatus, error) {
	var out map[string]domain.VectorSyncStatus
	if err := c.do(ctx, "list sync statuses", http.MethodGet, c.endpoint("", "vector-sync", "statuses"), nil, &out); err != nil {
		return nil, err
	}
	for name, st := range out {
		out[name] = st.Normalize()
	}
	return out, nil
}

func (c *Client) SyncCollection(ctx context.Context, collection string, req domain.SyncRequest) error {
	return c.do(ctx, "sync collection", http.MethodPost, c.endpoint("", "collections", collection, "vector-sync"), req, nil)
}

func (c *Client) EnableSync(ctx context.Context, collection string) error {
	return c.do(ctx, "enable sync", http.MethodPost, c.endpoint("", "collections", collection, "vector-sync", "enable"), nil, nil)
}

func (c *Client) DisableSync(ctx context.Context, collection string) error {
	return c.do(ctx, "disable sync", http.MethodPost, c.endpoint("", "collections", collection, "vector-sync", "disable"), nil, nil)
}

func (c *Client) DeleteVectors(ctx context.Context, collection string) error {
	return c.do(ctx, "delete vectors", http.MethodDelete, c.endpoint("", "collections", collection, "vectors"), nil, nil)
}
