package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/poiesic/artifex/core"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// WebScraper extracts readable text from a web page.
type WebScraper interface {
	Scrape(ctx context.Context, url string) (string, error)
}

// HTMLScraper downloads a page and strips its markup.
type HTMLScraper struct {
	Fetcher HTTPFetcher
}

// Scrape returns the visible text of the page at url, one block per line.
func (s HTMLScraper) Scrape(ctx context.Context, url string) (string, error) {
	raw, err := s.Fetcher.Fetch(ctx, url)
	if err != nil {
		return "", err
	}
	return ExtractText(raw)
}

// ExtractText returns the text content of an HTML document. Script, style
// and other non-rendered elements are skipped.
func ExtractText(raw []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("%w: html: %w", core.ErrParse, err)
	}

	var lines []string
	var line []string
	flush := func() {
		if len(line) > 0 {
			lines = append(lines, strings.Join(line, " "))
			line = line[:0]
		}
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedElement(n.DataAtom) {
			return
		}
		if n.Type == html.TextNode {
			line = append(line, strings.Fields(n.Data)...)
			return
		}
		block := n.Type == html.ElementNode && blockElement(n.DataAtom)
		if block {
			flush()
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			flush()
		}
	}
	walk(doc)
	flush()

	return strings.Join(lines, "\n"), nil
}

func skippedElement(a atom.Atom) bool {
	switch a {
	case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Head, atom.Svg, atom.Iframe:
		return true
	}
	return false
}

func blockElement(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Br, atom.Li, atom.Tr, atom.Section, atom.Article,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Header, atom.Footer, atom.Nav, atom.Main, atom.Blockquote, atom.Pre,
		atom.Ul, atom.Ol, atom.Table, atom.Title:
		return true
	}
	return false
}

type scraperFetcher struct {
	scraper WebScraper
}

func (f scraperFetcher) Fetch(ctx context.Context, source any) ([]byte, error) {
	url, ok := source.(string)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported source type %T", core.ErrFetch, source)
	}
	text, err := f.scraper.Scrape(ctx, url)
	if err != nil {
		if errors.Is(err, core.ErrFetch) || errors.Is(err, core.ErrParse) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: scrape %s: %w", core.ErrFetch, url, err)
	}
	return []byte(text), nil
}

// NewWebLoader creates a loader that turns a URL into a TextArtifact of the
// page's readable text. A nil scraper uses HTMLScraper with default
// settings.
func NewWebLoader(scraper WebScraper, opts ...Option) (*Base, error) {
	if scraper == nil {
		scraper = HTMLScraper{}
	}
	return NewBase("web", scraperFetcher{scraper: scraper}, TextParser{}, opts...)
}
