package main

import (
	"fmt"
	"time"

	"github.com/fwojciec/docindex"
)

// Run executes the runs command.
func (c *RunsCmd) Run(deps *Dependencies) error {
	if deps.Runs == nil {
		err := docindex.Errorf(docindex.EINVALID, "no database configured. Use --db or DOCINDEX_DB")
		fmt.Fprintf(deps.Stderr, "error: %s\n", docindex.ErrorMessage(err))
		return err
	}

	if c.ID != "" {
		return c.show(deps)
	}

	runs, err := deps.Runs.FindRuns(deps.Ctx, c.Limit, 0)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docindex.ErrorMessage(err))
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(deps.Stdout, "No runs found. Use 'docindex build --db' to record one.")
		return nil
	}

	for _, r := range runs {
		fmt.Fprintf(deps.Stdout, "%s  %s  %s  %d records\n", r.ID, r.CreatedAt.Format(time.RFC3339), r.OutDir, r.RecordCount)
	}
	return nil
}

// show prints the records of one run. Records whose URL had different
// content in another run are marked as changed.
func (c *RunsCmd) show(deps *Dependencies) error {
	run, err := deps.Runs.FindRunByID(deps.Ctx, c.ID)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docindex.ErrorMessage(err))
		return err
	}
	records, err := deps.Runs.FindRecords(deps.Ctx, run.ID)
	if err != nil {
		return err
	}

	fmt.Fprintf(deps.Stdout, "Run %s\n", run.ID)
	fmt.Fprintf(deps.Stdout, "Built %s from %s (base URL %s), %d records\n",
		run.CreatedAt.Format(time.RFC3339), run.OutDir, run.BaseURL, run.RecordCount)

	for _, rec := range records {
		title, url := describe(rec.Record)
		hashes, err := deps.Runs.ContentHashes(deps.Ctx, url)
		if err != nil {
			return err
		}
		line := fmt.Sprintf("%4d  %-7s  %s  %s", rec.ID, rec.Record.Kind(), url, title)
		if distinct(hashes) > 1 {
			line += "  (changed)"
		}
		fmt.Fprintln(deps.Stdout, line)
	}
	return nil
}

func describe(rec docindex.Record) (title, url string) {
	switch r := rec.(type) {
	case *docindex.PageRecord:
		return r.Title, r.URL
	case *docindex.SectionRecord:
		return r.PageTitle + " > " + r.Title, r.URL
	}
	return "", ""
}

func distinct(values []string) int {
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		seen[v] = true
	}
	return len(seen)
}
