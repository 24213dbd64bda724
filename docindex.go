// Package docindex builds a full-text search index from the HTML pages of a
// generated documentation site. It scans each page for a page-level record and
// one record per heading-delimited section, fans the work out over a pool of
// extractor workers, and feeds the records into an index builder.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., goquery/, bleve/, sqlite/).
package docindex
