package sqlite

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// skipped elements contribute nothing to the stored page
var skipped = map[atom.Atom]bool{
	atom.Head:     true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Nav:      true,
	atom.Footer:   true,
	atom.Svg:      true,
	atom.Iframe:   true,
}

var blocks = map[atom.Atom]bool{
	atom.P:          true,
	atom.Div:        true,
	atom.Main:       true,
	atom.Header:     true,
	atom.Section:    true,
	atom.Article:    true,
	atom.Aside:      true,
	atom.Blockquote: true,
	atom.Ul:         true,
	atom.Ol:         true,
	atom.Table:      true,
	atom.Tr:         true,
	atom.Figure:     true,
}

var headings = map[atom.Atom]int{
	atom.H1: 1, atom.H2: 2, atom.H3: 3, atom.H4: 4, atom.H5: 5, atom.H6: 6,
}

// htmlToMarkdown keeps the title, headings, list items, preformatted
// blocks and paragraph breaks of a page.
func htmlToMarkdown(page string) (title, markdown string) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return "", strings.TrimSpace(page)
	}
	var w markdownWriter
	w.walk(doc)
	return pageTitle(doc), strings.TrimSpace(w.sb.String())
}

func pageTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.Title {
		return strings.Join(strings.Fields(textContent(n)), " ")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := pageTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return sb.String()
}

type markdownWriter struct {
	sb     strings.Builder
	breaks int  // newlines owed before the next output
	space  bool // a space is owed before the next word
	fresh  bool // nothing written since the last line start or prefix
}

func (w *markdownWriter) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.text(n.Data)
		return
	case html.ElementNode:
		if skipped[n.DataAtom] {
			return
		}
		if level, ok := headings[n.DataAtom]; ok {
			w.block(2)
			w.prefix(strings.Repeat("#", level) + " ")
			w.text(textContent(n))
			w.block(2)
			return
		}
		switch n.DataAtom {
		case atom.Br:
			w.block(1)
			return
		case atom.Pre:
			w.block(2)
			w.prefix("```\n")
			w.sb.WriteString(strings.Trim(textContent(n), "\n"))
			w.sb.WriteString("\n```")
			w.block(2)
			return
		case atom.Li:
			w.block(1)
			w.prefix("- ")
		case atom.Td, atom.Th:
			defer func() { w.space = true }()
		}
		if blocks[n.DataAtom] {
			w.block(2)
			defer w.block(2)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

func (w *markdownWriter) block(newlines int) {
	w.breaks = max(w.breaks, newlines)
	w.space = false
}

func (w *markdownWriter) flush() {
	if w.breaks > 0 && w.sb.Len() > 0 {
		w.sb.WriteString(strings.Repeat("\n", w.breaks))
		w.fresh = true
	}
	w.breaks = 0
}

func (w *markdownWriter) prefix(p string) {
	w.flush()
	w.sb.WriteString(p)
	w.fresh = true
	w.space = false
}

func (w *markdownWriter) text(s string) {
	words := strings.Fields(s)
	if len(words) == 0 {
		if s != "" {
			w.space = true
		}
		return
	}
	lead, _ := utf8.DecodeRuneInString(s)
	w.flush()
	if (w.space || unicode.IsSpace(lead)) && !w.fresh && w.sb.Len() > 0 {
		w.sb.WriteByte(' ')
	}
	w.sb.WriteString(strings.Join(words, " "))
	trail, _ := utf8.DecodeLastRuneInString(s)
	w.space = unicode.IsSpace(trail)
	w.fresh = false
}
