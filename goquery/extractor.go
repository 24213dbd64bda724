// Package goquery extracts search records from generated documentation pages
// using goquery selections over the parsed HTML tree.
package goquery

import (
	"errors"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/docindex"
	"golang.org/x/net/html"
)

// Selectors locating the parts of a documentation page.
const (
	articleSelector    = "article"
	markdownSelector   = ".markdown"
	titleSelector      = "h1"
	subHeadingSelector = "h2, h3"
	keywordsSelector   = `meta[name="keywords"]`
)

// Ensure Extractor implements docindex.Extractor at compile time.
var _ docindex.Extractor = (*Extractor)(nil)

// Extractor reads generated HTML pages from disk and splits them into a page
// record and one record per sub-heading. It holds no per-call state and is
// safe for concurrent use.
type Extractor struct {
	logger *slog.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithLogger sets the logger used to report unreadable files.
func WithLogger(logger *slog.Logger) ExtractorOption {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// NewExtractor creates a new Extractor.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the records of the page at file.SourcePath.
// A missing file yields nothing. Any other read or parse failure is logged
// and yields nothing.
func (e *Extractor) Extract(file docindex.FileDescriptor) iter.Seq[docindex.Record] {
	return func(yield func(docindex.Record) bool) {
		doc, ok := e.load(file.SourcePath)
		if !ok {
			return
		}
		for rec := range Records(doc, file.URL) {
			if !yield(rec) {
				return
			}
		}
	}
}

func (e *Extractor) load(path string) (*goquery.Document, bool) {
	f, err := os.Open(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			e.logger.Error("unable to read file", "path", path, "err", err)
		}
		return nil, false
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		e.logger.Error("unable to read file", "path", path, "err", err)
		return nil, false
	}
	return doc, true
}

// Records yields the records of a parsed page served at url.
//
// Pages without an article region, a markdown body or a title heading yield
// nothing. The page record comes first; it carries the whole body text only
// when the body has no sub-headings. Section records follow in document order.
func Records(doc *goquery.Document, url string) iter.Seq[docindex.Record] {
	return func(yield func(docindex.Record) bool) {
		article := doc.Find(articleSelector).First()
		if article.Length() == 0 {
			return
		}
		markdown := article.Find(markdownSelector).First()
		if markdown.Length() == 0 {
			return
		}
		title := article.Find(titleSelector).First()
		if title.Length() == 0 {
			return
		}

		hasSections := markdown.Find(subHeadingSelector).Length() > 0

		page := &docindex.PageRecord{
			Title:    headingText(title),
			URL:      url,
			Keywords: keywords(doc),
		}
		if !hasSections {
			page.Content = nodeText(markdown)
		}
		if !yield(page) || !hasSections {
			return
		}

		w := &sectionWalk{pageTitle: page.Title, url: url, yield: yield}
		if w.visit(markdown) {
			w.close()
		}
	}
}

// walkState is the state of a section walk.
type walkState int

const (
	noOpenSection walkState = iota
	sectionOpen
)

// sectionWalk splits the children of a markdown body into sections.
// Every transition out of sectionOpen emits a SectionRecord.
type sectionWalk struct {
	state     walkState
	heading   *goquery.Selection
	content   strings.Builder
	pageTitle string
	url       string
	yield     func(docindex.Record) bool
}

// visit walks the child nodes of sel in order. Children that contain
// sub-headings are descended into so nested headings still split sections.
// It returns false once the consumer stops.
func (w *sectionWalk) visit(sel *goquery.Selection) bool {
	children := sel.Contents()
	for i, n := range children.Nodes {
		child := children.Eq(i)
		switch {
		case isSubHeading(n):
			if !w.close() {
				return false
			}
			w.open(child)
		case n.Type == html.CommentNode:
		case n.Type == html.ElementNode && child.Find(subHeadingSelector).Length() > 0:
			if !w.visit(child) {
				return false
			}
		default:
			w.appendText(child)
		}
	}
	return true
}

func (w *sectionWalk) open(heading *goquery.Selection) {
	w.state = sectionOpen
	w.heading = heading
	w.content.Reset()
}

// close emits the open section, if any, and reports whether the consumer
// wants more records.
func (w *sectionWalk) close() bool {
	if w.state != sectionOpen {
		return true
	}
	rec := &docindex.SectionRecord{
		Title:     headingText(w.heading),
		PageTitle: w.pageTitle,
		URL:       w.url + "#" + anchor(w.heading),
		Content:   collapse(w.content.String()),
	}
	w.state = noOpenSection
	w.heading = nil
	w.content.Reset()
	return w.yield(rec)
}

// appendText adds the text of a node to the open section. Text outside any
// section belongs to no record and is dropped.
func (w *sectionWalk) appendText(node *goquery.Selection) {
	if w.state != sectionOpen {
		return
	}
	text := nodeText(node)
	if text == "" {
		return
	}
	w.content.WriteString(text)
	w.content.WriteByte(' ')
}

func isSubHeading(n *html.Node) bool {
	return n.Type == html.ElementNode && (n.Data == "h2" || n.Data == "h3")
}

// anchor returns the id to link to a heading: a nested .anchor element, the
// heading itself, or its first child element, in that order.
func anchor(heading *goquery.Selection) string {
	if id, ok := heading.Find(".anchor").First().Attr("id"); ok && id != "" {
		return id
	}
	if id, ok := heading.Attr("id"); ok && id != "" {
		return id
	}
	if id, ok := heading.Children().First().Attr("id"); ok && id != "" {
		return id
	}
	return docindex.NoAnchor
}

// headingText returns the text of a heading without hash-link markers.
func headingText(heading *goquery.Selection) string {
	text := strings.ReplaceAll(heading.Text(), "\u200b", "")
	text = collapse(text)
	text = strings.TrimLeft(text, "#")
	text = strings.TrimSuffix(text, "#")
	return strings.TrimSpace(text)
}

// nodeText returns the visible text of a selection with whitespace collapsed.
// Block elements are separated by a space and script-like elements are
// skipped. Inside tables every text node is separated so cell boundaries
// survive.
func nodeText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		visibleText(n, &b, false)
	}
	return collapse(b.String())
}

func visibleText(n *html.Node, b *strings.Builder, inTable bool) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		if inTable {
			b.WriteByte(' ')
		}
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		if hiddenElements[n.Data] {
			return
		}
		if n.Data == "table" {
			inTable = true
		}
	}

	block := n.Type == html.ElementNode && blockElements[n.Data]
	if block {
		b.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		visibleText(c, b, inTable)
	}
	if block {
		b.WriteByte(' ')
	}
}

// hiddenElements never contribute text.
var hiddenElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// blockElements break the text flow the way a browser renders them.
var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"br": true, "dd": true, "details": true, "div": true, "dl": true,
	"dt": true, "figcaption": true, "figure": true, "footer": true,
	"form": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"h5": true, "h6": true, "header": true, "hr": true, "li": true,
	"main": true, "nav": true, "ol": true, "p": true, "pre": true,
	"section": true, "summary": true, "table": true, "tbody": true,
	"td": true, "tfoot": true, "th": true, "thead": true, "tr": true,
	"ul": true,
}

// keywords joins the content of every keywords meta tag, commas replaced by
// spaces.
func keywords(doc *goquery.Document) string {
	var parts []string
	doc.Find(keywordsSelector).Each(func(_ int, s *goquery.Selection) {
		if content, ok := s.Attr("content"); ok && content != "" {
			parts = append(parts, strings.ReplaceAll(content, ",", " "))
		}
	})
	return strings.Join(parts, " ")
}

// collapse replaces every run of whitespace with a single space and trims
// the result.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
