package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	out := filepath.Join(t.TempDir(), "schema.json")

	var opts options
	opts.Args.Output = out
	require.NoError(t, run(opts))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ArchiveConfig"`)
	assert.Contains(t, string(data), `"pdf_storage_url"`)

	opts.Check = true
	require.NoError(t, run(opts), "freshly generated schema is current")

	require.NoError(t, os.WriteFile(out, []byte(`{}`), 0o600))
	require.ErrorContains(t, run(opts), "out of date")

	opts.Args.Output = filepath.Join(t.TempDir(), "missing.json")
	require.ErrorContains(t, run(opts), "read schema")
}
