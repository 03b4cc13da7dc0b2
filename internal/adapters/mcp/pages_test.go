package mcp

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"ragdesk/internal/application/collections"
	"ragdesk/internal/store"
)

func TestAddPages(t *testing.T) {
	gw := newGateway()
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ops := collections.New(gw, store.New(),
		collections.WithClock(func() time.Time { return at }),
		collections.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	h := addPagesHandler(ops)

	text, isErr := call(t, h, map[string]any{
		"collection": "docs",
		"folder":     "web",
		"pages": []any{
			map[string]any{"url": "https://example.com/intro", "title": "Intro Guide", "markdown": "# Intro", "score": 0.9},
			map[string]any{"url": "https://example.com/broken", "markdown": "", "success": false},
		},
	})
	if isErr || !strings.Contains(text, "Saved 1 pages to docs") {
		t.Fatalf("add_pages = %q (error %v)", text, isErr)
	}
	content, ok := gw.Content("docs", "web/intro-guide-20240301-120000-1.md")
	if !ok {
		t.Fatal("page not stored")
	}
	for _, want := range []string{"title: Intro Guide", "source_url: https://example.com/intro", "score: 0.9", "# Intro"} {
		if !strings.Contains(content, want) {
			t.Errorf("stored page missing %q:\n%s", want, content)
		}
	}

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"missing pages", map[string]any{"collection": "docs"}, "pages is required"},
		{"pages not a list", map[string]any{"collection": "docs", "pages": "nope"}, "list of objects"},
		{"unknown collection", map[string]any{
			"collection": "nope",
			"pages":      []any{map[string]any{"url": "https://example.com", "markdown": "x"}},
		}, "failed: https://example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, isErr := call(t, h, tt.args)
			if !isErr || !strings.Contains(text, tt.want) {
				t.Errorf("result = %q (error %v), want error containing %q", text, isErr, tt.want)
			}
		})
	}
}
