package sqlite

import (
	"path"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	goldtext "github.com/yuin/goldmark/text"

	"ragdesk/internal/domain"
)

const (
	fixedChunkSize    = 1000
	fixedChunkOverlap = 200
	maxSectionSize    = 2 * fixedChunkSize
)

// chunk is one embeddable piece of a file
type chunk struct {
	Heading string
	Content string
	Overlap bool // shares text with the previous chunk
}

var markdownParser = goldmark.New().Parser()

// chunkDocument splits content according to strategy. The default picks
// heading-aware splitting for markdown files and fixed windows otherwise.
func chunkDocument(name, content string, strategy domain.ChunkingStrategy) []chunk {
	if strategy == domain.ChunkingDefault {
		switch strings.ToLower(path.Ext(name)) {
		case ".md", ".markdown", ".mdx":
			strategy = domain.ChunkingMarkdown
		default:
			strategy = domain.ChunkingFixed
		}
	}
	if strings.TrimSpace(content) == "" {
		return nil
	}
	if strategy == domain.ChunkingFixed {
		return fixedChunks("", content)
	}
	return markdownChunks(content)
}

// markdownChunks cuts the document at every heading line. Sections that
// are too long fall back to fixed windows under the same heading.
func markdownChunks(content string) []chunk {
	src := []byte(stripFrontMatter(content))
	doc := markdownParser.Parse(goldtext.NewReader(src))

	type section struct {
		start   int
		heading string
	}
	sections := []section{{start: 0}}
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok || h.Lines().Len() == 0 {
			continue
		}
		first := h.Lines().At(0)
		start := lineStart(src, first.Start)
		var title strings.Builder
		for i := 0; i < h.Lines().Len(); i++ {
			seg := h.Lines().At(i)
			title.Write(seg.Value(src))
		}
		sections = append(sections, section{start: start, heading: strings.TrimSpace(title.String())})
	}

	var out []chunk
	for i, s := range sections {
		end := len(src)
		if i+1 < len(sections) {
			end = sections[i+1].start
		}
		if s.start >= end {
			continue
		}
		body := strings.TrimSpace(string(src[s.start:end]))
		if body == "" {
			continue
		}
		if len([]rune(body)) > maxSectionSize {
			out = append(out, fixedChunks(s.heading, body)...)
			continue
		}
		out = append(out, chunk{Heading: s.heading, Content: body})
	}
	return out
}

// fixedChunks slides a window of fixedChunkSize runes with fixedChunkOverlap
func fixedChunks(heading, content string) []chunk {
	runes := []rune(strings.TrimSpace(content))
	if len(runes) == 0 {
		return nil
	}
	step := fixedChunkSize - fixedChunkOverlap
	var out []chunk
	for start := 0; start < len(runes); start += step {
		end := min(start+fixedChunkSize, len(runes))
		out = append(out, chunk{
			Heading: heading,
			Content: string(runes[start:end]),
			Overlap: start > 0,
		})
		if end == len(runes) {
			break
		}
	}
	return out
}

// lineStart returns the offset of the line containing pos. Heading
// segments start after the '#' markers.
func lineStart(src []byte, pos int) int {
	for pos > 0 && src[pos-1] != '\n' {
		pos--
	}
	return pos
}

// stripFrontMatter drops a leading YAML block; goldmark would otherwise
// read it as a thematic break followed by a setext heading.
func stripFrontMatter(content string) string {
	if !strings.HasPrefix(content, "---\n") {
		return content
	}
	rest := content[len("---\n"):]
	end := strings.Index(rest, "\n---\n")
	if end < 0 {
		if strings.HasSuffix(rest, "\n---") {
			return ""
		}
		return content
	}
	return rest[end+len("\n---\n"):]
}
