package sqlite

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"ragdesk/internal/application"
	"ragdesk/internal/domain"
)

const maxPageSize = 5 << 20

var filenamePattern = regexp.MustCompile(`[^a-z0-9]+`)

// CrawlToCollection fetches one page and stores it as markdown. Crawling
// the same URL again overwrites the stored page.
func (b *Backend) CrawlToCollection(ctx context.Context, collection string, req domain.CrawlRequest) (*domain.CrawlResult, error) {
	const op = "crawl page"
	u, err := url.Parse(req.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, invalid(op, http.StatusUnprocessableEntity, fmt.Sprintf("invalid URL: %s", req.URL))
	}
	if err := b.requireCollection(ctx, op, collection); err != nil {
		return nil, err
	}

	title, markdown, err := b.fetchPage(ctx, op, u)
	if err != nil {
		return nil, err
	}
	doc := fmt.Sprintf("# %s\n\nSource: %s\n\n%s\n", title, u.String(), markdown)

	meta := domain.FileMetadata{
		Filename:   pageFilename(u),
		FolderPath: cleanFolder(req.Folder),
		CreatedAt:  b.now().UTC(),
		Size:       int64(len(doc)),
		SourceURL:  u.String(),
	}
	err = b.withTx(ctx, func(tx *writeTx) error {
		if err := tx.upsertFile(collection, meta, doc); err != nil {
			return err
		}
		return tx.markOutOfSync(collection)
	})
	if err != nil {
		return nil, internal(op, err)
	}

	b.logger.Info("page crawled",
		slog.String("collection", collection),
		slog.String("url", u.String()),
		slog.Int64("bytes", meta.Size))
	return &domain.CrawlResult{
		Filename:      meta.Filename,
		URL:           u.String(),
		Folder:        meta.FolderPath,
		ContentLength: meta.Size,
	}, nil
}

func (b *Backend) fetchPage(ctx context.Context, op string, u *url.URL) (title, markdown string, err error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", "", internal(op, err)
	}
	httpReq.Header.Set("Accept", "text/html, text/markdown;q=0.9, text/plain;q=0.8")
	resp, err := b.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", "", internal(op, ctx.Err())
		}
		return "", "", &application.GatewayError{Op: op, Kind: application.KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", "", &application.GatewayError{
			Op:      op,
			Kind:    application.KindValidation,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("page returned %s", resp.Status),
		}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return "", "", &application.GatewayError{Op: op, Kind: application.KindNetwork, Err: err}
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == "text/html" || mediaType == "application/xhtml+xml" {
		title, markdown = htmlToMarkdown(string(body))
	} else {
		markdown = strings.TrimSpace(string(body))
	}
	if title == "" {
		title = u.Host + u.Path
	}
	return title, markdown, nil
}

// pageFilename derives a stable markdown filename from the URL
func pageFilename(u *url.URL) string {
	base := strings.Trim(filenamePattern.ReplaceAllString(strings.ToLower(u.Host+u.Path), "-"), "-")
	if len(base) > 80 {
		base = strings.TrimRight(base[:80], "-")
	}
	if base == "" {
		base = "page"
	}
	return base + ".md"
}
