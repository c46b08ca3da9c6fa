package services

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"golang.org/x/net/html"
)

// excessiveLinesRe collapses runs of blank lines left over from
// conversion.
var excessiveLinesRe = regexp.MustCompile(`\n{3,}`)

// htmlTagRe detects markup in adapter output.
var htmlTagRe = regexp.MustCompile(`(?s)<[a-zA-Z][^>]*>`)

// SectionExtractor pulls structured fragments out of HTML the AI
// insight adapter occasionally returns. The grammar is deliberately
// narrow: a section is everything between a heading whose text matches
// the requested label (case-insensitive) and the next heading of the
// same or higher level; list items are the <li> elements inside that
// span.
type SectionExtractor struct {
	converter *md.Converter
}

func NewSectionExtractor() *SectionExtractor {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &SectionExtractor{converter: converter}
}

// Markdown converts an HTML fragment to markdown and normalizes
// whitespace. Unparseable input falls back to the raw text with tags
// stripped by the converter's best effort.
func (e *SectionExtractor) Markdown(htmlContent string) (string, error) {
	markdown, err := e.converter.ConvertString(htmlContent)
	if err != nil {
		return "", err
	}
	markdown = excessiveLinesRe.ReplaceAllString(markdown, "\n\n")
	return strings.TrimSpace(markdown), nil
}

// Normalize prepares adapter output for display: responses containing
// HTML markup are converted to markdown, plain text passes through
// unchanged. Conversion failures fall back to the original text.
func (e *SectionExtractor) Normalize(text string) string {
	if !htmlTagRe.MatchString(text) {
		return text
	}
	markdown, err := e.Markdown(text)
	if err != nil || markdown == "" {
		return text
	}
	return markdown
}

// ListItems returns the text of every <li> in the fragment, in document
// order.
func (e *SectionExtractor) ListItems(htmlContent string) []string {
	root, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil
	}
	var items []string
	walk(root, func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "li" {
			if text := strings.TrimSpace(nodeText(n)); text != "" {
				items = append(items, text)
			}
		}
	})
	return items
}

// SectionItems returns the list items that appear under the heading
// with the given label, stopping at the next heading of the same or
// higher level. A missing heading yields nil.
func (e *SectionExtractor) SectionItems(htmlContent, label string) []string {
	root, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil
	}

	var items []string
	level := 0
	inSection := false
	walk(root, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		if l := headingLevel(n.Data); l > 0 {
			if inSection && l <= level {
				inSection = false
				return
			}
			if strings.EqualFold(strings.TrimSpace(nodeText(n)), strings.TrimSpace(label)) {
				inSection = true
				level = l
			}
			return
		}
		if inSection && n.Data == "li" {
			if text := strings.TrimSpace(nodeText(n)); text != "" {
				items = append(items, text)
			}
		}
	})
	return items
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

// walk visits nodes in document order.
func walk(n *html.Node, visit func(*html.Node)) {
	visit(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

// nodeText concatenates the text content beneath a node.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
