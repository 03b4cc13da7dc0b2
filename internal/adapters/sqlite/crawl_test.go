package sqlite

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"ragdesk/internal/application"
	"ragdesk/internal/domain"
)

const testPage = `<!doctype html>
<html><head><title>Getting &amp; Started</title><style>body{}</style></head>
<body>
<nav>menu</nav>
<h1>Welcome</h1>
<p>First   paragraph with <a href="/x">a link</a>.</p>
<ul><li>one</li><li>two</li></ul>
<script>alert(1)</script>
</body></html>`

func TestHTMLToMarkdown(t *testing.T) {
	title, md := htmlToMarkdown(testPage)
	if title != "Getting & Started" {
		t.Errorf("title = %q", title)
	}
	for _, want := range []string{"# Welcome", "First paragraph with a link.", "- one", "- two"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
	for _, unwanted := range []string{"alert", "menu", "body{}", "<"} {
		if strings.Contains(md, unwanted) {
			t.Errorf("markdown contains %q:\n%s", unwanted, md)
		}
	}
}

func TestHTMLToMarkdown_Structure(t *testing.T) {
	tests := []struct {
		name string
		page string
		want string
	}{
		{
			name: "header and main survive, footer dropped",
			page: `<header><h1>Site</h1></header><main><p>Important article text</p></main><footer>c</footer>`,
			want: "# Site\n\nImportant article text",
		},
		{
			name: "nested inline elements",
			page: `<p>Run <code>make</code> then <em>wait</em>.</p>`,
			want: "Run make then wait.",
		},
		{
			name: "preformatted block kept verbatim",
			page: "<p>Example:</p><pre>a  b\n  c</pre>",
			want: "Example:\n\n```\na  b\n  c\n```",
		},
		{
			name: "line breaks and table cells",
			page: `<p>one<br>two</p><table><tr><td>a</td><td>b</td></tr></table>`,
			want: "one\ntwo\n\na b",
		},
		{
			name: "unclosed elements",
			page: `<div><h2>Partial</h2><p>still here`,
			want: "## Partial\n\nstill here",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got := htmlToMarkdown(tt.page)
			if got != tt.want {
				t.Errorf("htmlToMarkdown() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPageFilename(t *testing.T) {
	tests := []struct {
		raw, want string
	}{
		{"https://example.com/docs/Getting-Started", "example-com-docs-getting-started.md"},
		{"https://example.com/", "example-com.md"},
		{"https://" + strings.Repeat("a", 100) + ".com", strings.Repeat("a", 80) + ".md"},
	}
	for _, tt := range tests {
		u, _ := url.Parse(tt.raw)
		if got := pageFilename(u); got != tt.want {
			t.Errorf("pageFilename(%s) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestCrawlToCollection(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/guide", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, testPage)
	})
	mux.HandleFunc("/notes.md", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/markdown")
		io.WriteString(w, "## Raw\n\nmarkdown body")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	b := openTestBackend(t, WithHTTPClient(srv.Client()))
	ctx := context.Background()
	mustCreate(t, b, "web")

	res, err := b.CrawlToCollection(ctx, "web", domain.CrawlRequest{URL: srv.URL + "/guide", Folder: "pages"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Folder != "pages" || !strings.HasSuffix(res.Filename, "-guide.md") || res.ContentLength == 0 {
		t.Errorf("CrawlToCollection() = %+v", res)
	}
	content, err := b.ReadFile(ctx, "web", res.Filename, "pages")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(content, "# Getting & Started\n\nSource: "+srv.URL+"/guide") {
		t.Errorf("stored page = %q", content)
	}

	listing, err := b.ListFiles(ctx, "web")
	if err != nil {
		t.Fatal(err)
	}
	if len(listing.Files) != 1 || listing.Files[0].SourceURL != srv.URL+"/guide" {
		t.Errorf("listing = %+v", listing.Files)
	}

	// Crawling again replaces the page
	if _, err := b.CrawlToCollection(ctx, "web", domain.CrawlRequest{URL: srv.URL + "/guide", Folder: "pages"}); err != nil {
		t.Fatal(err)
	}
	res, err = b.CrawlToCollection(ctx, "web", domain.CrawlRequest{URL: srv.URL + "/notes.md"})
	if err != nil {
		t.Fatal(err)
	}
	content, _ = b.ReadFile(ctx, "web", res.Filename, "")
	if !strings.Contains(content, "## Raw\n\nmarkdown body") {
		t.Errorf("markdown page = %q", content)
	}
	listing, _ = b.ListFiles(ctx, "web")
	if len(listing.Files) != 2 {
		t.Errorf("expected 2 files, got %d", len(listing.Files))
	}
}

func TestCrawlToCollection_Errors(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	b := openTestBackend(t, WithHTTPClient(srv.Client()))
	mustCreate(t, b, "web")

	tests := []struct {
		name       string
		collection string
		url        string
		want       error
	}{
		{"bad scheme", "web", "ftp://example.com", application.ErrInvalidInput},
		{"missing collection", "nope", srv.URL + "/x", application.ErrNotFound},
		{"remote 404", "web", srv.URL + "/x", application.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.CrawlToCollection(context.Background(), tt.collection, domain.CrawlRequest{URL: tt.url})
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}
