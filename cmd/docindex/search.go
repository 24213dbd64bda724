package main

import (
	"fmt"

	"github.com/fwojciec/docindex"
	"github.com/fwojciec/docindex/fs"
)

// Run executes the search command.
func (c *SearchCmd) Run(deps *Dependencies) error {
	docs, err := fs.ReadSearchDocs(c.IndexDir)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docindex.ErrorMessage(err))
		return err
	}

	hits, err := deps.Searcher.Search(deps.Ctx, c.Query, c.Limit)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docindex.ErrorMessage(err))
		return err
	}

	if len(hits) == 0 {
		fmt.Fprintln(deps.Stdout, "No results.")
		return nil
	}

	for _, h := range hits {
		if h.ID < 0 || h.ID >= len(docs) {
			return docindex.Errorf(docindex.EINTERNAL, "index refers to unknown record %d", h.ID)
		}
		doc := docs[h.ID]
		title := doc.Title
		if doc.Type == docindex.KindSection && doc.PageTitle != "" {
			title = doc.PageTitle + " > " + doc.Title
		}
		fmt.Fprintf(deps.Stdout, "%s  %s  %.3f\n", title, doc.URL, h.Score)
	}
	return nil
}
