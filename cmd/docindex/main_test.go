package main_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	main "github.com/fwojciec/docindex/cmd/docindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	m := main.NewMain()
	var stdout, stderr bytes.Buffer
	err := m.Run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestMain_Run_Help(t *testing.T) {
	t.Parallel()

	stdout, _, err := run(t, "--help")

	require.NoError(t, err)
	assert.Contains(t, stdout, "docindex")
	assert.Contains(t, stdout, "build")
	assert.Contains(t, stdout, "search")
}

func TestMain_Run_NoArgs(t *testing.T) {
	t.Parallel()

	_, _, err := run(t)

	assert.Error(t, err)
}

func TestMain_Run_BuildRequiresDirectory(t *testing.T) {
	t.Parallel()

	_, _, err := run(t, "build")

	assert.Error(t, err)
}

func TestMain_Run_BuildThenSearch(t *testing.T) {
	t.Parallel()

	// Given a generated site
	dir := writeSite(t)

	// When building its index and searching it
	stdout, _, err := run(t, "build", dir, "--exclude-routes=docs/changelogs/**")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Indexed 2 documents")

	stdout, _, err = run(t, "search", filepath.Join(dir, "search"), "install")

	// Then the matching section is found
	require.NoError(t, err)
	assert.Contains(t, stdout, "Introduction > install  /docs/intro#install")
}

func TestMain_Run_SitemapRoutes(t *testing.T) {
	t.Parallel()

	dir := writeSite(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sitemap.xml"), []byte(`<urlset>
  <url><loc>https://example.com/docs/guide</loc></url>
</urlset>`), 0644))

	stdout, _, err := run(t, "build", dir, "--routes=sitemap", "--name=idx")

	require.NoError(t, err)
	assert.Contains(t, stdout, "Indexed 1 documents")
	_, err = os.Stat(filepath.Join(dir, "idx", "search-doc.json"))
	require.NoError(t, err)
}

func TestMain_Run_ConfigFile(t *testing.T) {
	t.Parallel()

	// Given a config file excluding the changelogs
	dir := writeSite(t)
	config := filepath.Join(t.TempDir(), "docindex.yaml")
	require.NoError(t, os.WriteFile(config, []byte("build:\n  exclude-routes:\n    - docs/changelogs/**\n  workers: 2\n"), 0644))

	// When building with it
	stdout, _, err := run(t, "--config", config, "build", dir)

	// Then the excluded routes are reported
	require.NoError(t, err)
	assert.Contains(t, stdout, "Excluded 2 routes")
}

func TestMain_Run_RecordsRunsInDatabase(t *testing.T) {
	t.Parallel()

	dir := writeSite(t)
	dbPath := filepath.Join(t.TempDir(), "docindex.db")

	_, _, err := run(t, "--db", dbPath, "build", dir)
	require.NoError(t, err)

	stdout, _, err := run(t, "--db", dbPath, "runs")

	require.NoError(t, err)
	assert.Contains(t, stdout, dir)
	assert.Contains(t, stdout, "6 records")
}

func TestMain_Run_SearchWithoutIndex(t *testing.T) {
	t.Parallel()

	_, stderr, err := run(t, "search", t.TempDir(), "x")

	require.Error(t, err)
	assert.Contains(t, stderr, "docindex build")
}
