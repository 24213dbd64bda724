package goquery_test

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	pq "github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/docindex"
	"github.com/fwojciec/docindex/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sectionedPage = `<!DOCTYPE html>
<html>
<head>
	<meta name="keywords" content="lunr,search">
	<meta name="keywords" content="docs">
</head>
<body>
<nav><h2>Navigation heading</h2></nav>
<article>
	<header><h1>Getting Started</h1></header>
	<div class="markdown">
		<p>Lead paragraph before any heading.</p>
		<h2 class="anchor anchorWithStickyNavbar" id="install">Install<a class="hash-link" href="#install">&#8203;</a></h2>
		<p>Run   npm
		install.</p>
		<!-- a comment -->
		<h3 id="configure">Configure<a class="hash-link" href="#configure">#</a></h3>
		<table><tr><td>key</td><td>value</td></tr></table>
		<h2>No Anchor</h2>
		<p>Tail</p>
	</div>
</article>
</body>
</html>`

func writePage(t *testing.T, html string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "index.html")
	require.NoError(t, os.WriteFile(path, []byte(html), 0644))
	return path
}

func extract(t *testing.T, html, url string) []docindex.Record {
	t.Helper()

	ext := goquery.NewExtractor()
	return slices.Collect(ext.Extract(docindex.FileDescriptor{
		SourcePath: writePage(t, html),
		URL:        url,
	}))
}

func TestExtractor_Extract(t *testing.T) {
	t.Parallel()

	t.Run("emits page record followed by one section per heading", func(t *testing.T) {
		t.Parallel()

		records := extract(t, sectionedPage, "/docs/start")

		require.Len(t, records, 4)
		assert.Equal(t, &docindex.PageRecord{
			Title:    "Getting Started",
			URL:      "/docs/start",
			Content:  "",
			Keywords: "lunr search docs",
		}, records[0])
		assert.Equal(t, &docindex.SectionRecord{
			Title:     "Install",
			PageTitle: "Getting Started",
			URL:       "/docs/start#install",
			Content:   "Run npm install.",
		}, records[1])
		assert.Equal(t, &docindex.SectionRecord{
			Title:     "Configure",
			PageTitle: "Getting Started",
			URL:       "/docs/start#configure",
			Content:   "key value",
		}, records[2])
		assert.Equal(t, &docindex.SectionRecord{
			Title:     "No Anchor",
			PageTitle: "Getting Started",
			URL:       "/docs/start##",
			Content:   "Tail",
		}, records[3])
	})

	t.Run("page without sub-headings carries the whole body", func(t *testing.T) {
		t.Parallel()

		html := `<html><body><article>
			<h1>Overview</h1>
			<div class="markdown">
				<p>First   paragraph.</p>
				<ul><li>one</li><li>two</li></ul>
			</div>
		</article></body></html>`

		records := extract(t, html, "/docs/overview")

		require.Len(t, records, 1)
		page, ok := records[0].(*docindex.PageRecord)
		require.True(t, ok)
		assert.Equal(t, "Overview", page.Title)
		assert.Equal(t, "First paragraph. one two", page.Content)
		assert.Empty(t, page.Keywords)
	})

	t.Run("separates block elements and skips scripts", func(t *testing.T) {
		t.Parallel()

		// Given: minified markup with sibling blocks and inline script and style
		html := `<html><body><article><h1>Minified</h1><div class="markdown"><p>Alpha</p><p>Beta<br>Epsilon</p><ul><li>Gamma</li><li>Delta</li></ul><script>var secret=1</script><style>.x{color:red}</style><noscript>Enable JS</noscript><p>Zeta <code>eta</code>theta</p></div></article></body></html>`

		// When: extracting the page
		records := extract(t, html, "/docs/minified")

		// Then: block boundaries become spaces, inline boundaries do not
		require.Len(t, records, 1)
		assert.Equal(t, "Alpha Beta Epsilon Gamma Delta Zeta etatheta", records[0].(*docindex.PageRecord).Content)
	})

	t.Run("separates list items inside sections", func(t *testing.T) {
		t.Parallel()

		html := `<html><body><article><h1>Lists</h1><div class="markdown"><h2 id="items">Items</h2><ul><li>Gamma</li><li>Delta</li></ul><script>track()</script></div></article></body></html>`

		records := extract(t, html, "/docs/lists")

		require.Len(t, records, 2)
		assert.Equal(t, "Gamma Delta", records[1].(*docindex.SectionRecord).Content)
	})

	t.Run("flattens tables so cell boundaries survive", func(t *testing.T) {
		t.Parallel()

		html := `<html><body><article><h1>Table</h1><div class="markdown">
			<div><table><tr><th>Name</th><th>Type</th></tr><tr><td>id</td><td>int</td></tr></table></div>
		</div></article></body></html>`

		records := extract(t, html, "/docs/table")

		require.Len(t, records, 1)
		assert.Equal(t, "Name Type id int", records[0].(*docindex.PageRecord).Content)
	})

	t.Run("uses legacy anchor element inside heading", func(t *testing.T) {
		t.Parallel()

		html := `<html><body><article><h1>Legacy</h1><div class="markdown">
			<h2><a aria-hidden="true" tabindex="-1" class="anchor" id="old-style"></a>Old Style<a class="hash-link" href="#old-style">#</a></h2>
			<p>Body</p>
		</div></article></body></html>`

		records := extract(t, html, "/docs/legacy")

		require.Len(t, records, 2)
		section := records[1].(*docindex.SectionRecord)
		assert.Equal(t, "Old Style", section.Title)
		assert.Equal(t, "/docs/legacy#old-style", section.URL)
		assert.Equal(t, "Body", section.Content)
	})

	t.Run("splits sections on nested headings", func(t *testing.T) {
		t.Parallel()

		html := `<html><body><article><h1>Nested</h1><div class="markdown">
			<h2 id="a">A</h2>
			<p>alpha</p>
			<div class="tabs">
				<p>still alpha</p>
				<h3 id="b">B</h3>
				<p>beta</p>
			</div>
			<p>more beta</p>
		</div></article></body></html>`

		records := extract(t, html, "/docs/nested")

		require.Len(t, records, 3)
		assert.Equal(t, "alpha still alpha", records[1].(*docindex.SectionRecord).Content)
		assert.Equal(t, "beta more beta", records[2].(*docindex.SectionRecord).Content)
	})

	t.Run("does not escape reserved characters", func(t *testing.T) {
		t.Parallel()

		html := `<html><body><article><h1>Ops</h1><div class="markdown">
			<p>a &lt; b &amp;&amp; "c" &gt; d</p>
		</div></article></body></html>`

		records := extract(t, html, "/docs/ops")

		require.Len(t, records, 1)
		assert.Equal(t, `a < b && "c" > d`, records[0].(*docindex.PageRecord).Content)
	})

	t.Run("yields nothing without article region", func(t *testing.T) {
		t.Parallel()

		html := `<html><body><h1>Title</h1><div class="markdown"><p>x</p></div></body></html>`

		assert.Empty(t, extract(t, html, "/x"))
	})

	t.Run("yields nothing without markdown body", func(t *testing.T) {
		t.Parallel()

		html := `<html><body><article><h1>Title</h1><p>x</p></article></body></html>`

		assert.Empty(t, extract(t, html, "/x"))
	})

	t.Run("yields nothing without title heading", func(t *testing.T) {
		t.Parallel()

		html := `<html><body><article><div class="markdown"><h2>Sub</h2><p>x</p></div></article></body></html>`

		assert.Empty(t, extract(t, html, "/x"))
	})

	t.Run("missing file yields nothing and logs nothing", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		ext := goquery.NewExtractor(goquery.WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

		records := slices.Collect(ext.Extract(docindex.FileDescriptor{
			SourcePath: filepath.Join(t.TempDir(), "missing", "index.html"),
			URL:        "/missing",
		}))

		assert.Empty(t, records)
		assert.Empty(t, buf.String())
	})

	t.Run("unreadable file yields nothing and logs a diagnostic", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		ext := goquery.NewExtractor(goquery.WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
		dir := t.TempDir()

		// A directory can be opened but not read as a file.
		records := slices.Collect(ext.Extract(docindex.FileDescriptor{
			SourcePath: dir,
			URL:        "/dir",
		}))

		assert.Empty(t, records)
		assert.Contains(t, buf.String(), "unable to read file")
		assert.Contains(t, buf.String(), "path="+dir)
	})

	t.Run("stops when the consumer stops", func(t *testing.T) {
		t.Parallel()

		ext := goquery.NewExtractor()
		path := writePage(t, sectionedPage)

		var seen []docindex.Record
		for rec := range ext.Extract(docindex.FileDescriptor{SourcePath: path, URL: "/docs/start"}) {
			seen = append(seen, rec)
			if len(seen) == 2 {
				break
			}
		}

		assert.Len(t, seen, 2)
	})
}

func TestRecords(t *testing.T) {
	t.Parallel()

	t.Run("section count matches sub-heading count", func(t *testing.T) {
		t.Parallel()

		doc, err := pq.NewDocumentFromReader(strings.NewReader(sectionedPage))
		require.NoError(t, err)

		records := slices.Collect(goquery.Records(doc, "/docs/start"))

		var sections int
		for _, rec := range records {
			if rec.Kind() == docindex.KindSection {
				sections++
				assert.NotEmpty(t, rec.(*docindex.SectionRecord).Title)
			}
		}
		assert.Equal(t, doc.Find("article .markdown").Find("h2, h3").Length(), sections)
	})

	t.Run("is deterministic across runs", func(t *testing.T) {
		t.Parallel()

		doc, err := pq.NewDocumentFromReader(strings.NewReader(sectionedPage))
		require.NoError(t, err)

		first := slices.Collect(goquery.Records(doc, "/docs/start"))
		second := slices.Collect(goquery.Records(doc, "/docs/start"))

		assert.Equal(t, first, second)
	})
}
