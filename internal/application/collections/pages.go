package collections

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"

	"ragdesk/internal/domain"
)

const maxSlugLength = 60

// pageFrontMatter is the preamble written at the top of saved crawl results
type pageFrontMatter struct {
	Title     string   `yaml:"title"`
	SourceURL string   `yaml:"source_url"`
	CrawledAt string   `yaml:"crawled_at"`
	Score     *float64 `yaml:"score,omitempty"`
}

// PageDocument renders a crawl result as markdown with a YAML front matter block
func PageDocument(page domain.PageResult, crawledAt time.Time) (string, error) {
	fm := pageFrontMatter{
		Title:     pageTitle(page),
		SourceURL: page.URL,
		CrawledAt: crawledAt.UTC().Format(time.RFC3339),
		Score:     page.Score,
	}
	out, err := yaml.Marshal(fm)
	if err != nil {
		return "", fmt.Errorf("failed to encode front matter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(out)
	b.WriteString("---\n\n")
	b.WriteString(strings.TrimLeft(page.Markdown, "\n"))
	if !strings.HasSuffix(page.Markdown, "\n") {
		b.WriteString("\n")
	}
	return b.String(), nil
}

// PageFilename derives a unique file name from the page title, the batch
// timestamp and the position of the page in the batch.
func PageFilename(page domain.PageResult, at time.Time, index int) string {
	return fmt.Sprintf("%s-%s-%d.md", Slugify(pageTitle(page)), at.UTC().Format("20060102-150405"), index+1)
}

func pageTitle(page domain.PageResult) string {
	if t := strings.TrimSpace(page.Title); t != "" {
		return t
	}
	return page.URL
}

// Slugify lowercases s and keeps only letters and digits, joined by dashes
func Slugify(s string) string {
	var out []rune
	dash := false
	for _, r := range strings.ToLower(s) {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			dash = true
			continue
		}
		sep := dash && len(out) > 0
		if n := len(out) + 1; (sep && n+1 > maxSlugLength) || n > maxSlugLength {
			break
		}
		if sep {
			out = append(out, '-')
		}
		dash = false
		out = append(out, r)
	}
	slug := strings.Trim(string(out), "-")
	if slug == "" {
		return "page"
	}
	return slug
}
