package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/lepdl/pkg/archive"
)

func TestLoad(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		t.Setenv("LEP_FEED", "https://teacherluke.libsyn.com/rss")
		configContent := `
archive:
  url: https://example.com/archive/
  newest_first: false
  timeout: 10s
  pdf_storage_url: https://pdf.example.com/lep/

rules:
  reserve_hosts: [mirror.example.com]
  host_fixes:
    example.comm: example.com

feed:
  url: ${LEP_FEED}

download:
  dest: /tmp/lep
  workers: 5
  with_pdf: true

snapshot:
  location: lep.db
  save: true

server:
  listen: ":9090"
  timeout: 45s
`
		configPath := filepath.Join(t.TempDir(), "test-config.yml")
		require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o600))

		cfg, err := Load(configPath)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "https://example.com/archive/", cfg.Archive.URL)
		assert.False(t, cfg.Archive.NewestFirst)
		assert.Equal(t, 10*time.Second, cfg.Archive.Timeout)
		assert.Equal(t, "https://pdf.example.com/lep/", cfg.Archive.PDFStorageURL)
		assert.Equal(t, 3, cfg.Archive.Retries)

		assert.Equal(t, []string{"mirror.example.com"}, cfg.Rules.ReserveHosts)
		assert.Equal(t, map[string]string{"example.comm": "example.com"}, cfg.Rules.HostFixes)
		assert.Equal(t, archive.DefaultRules().AudioExtensions, cfg.Rules.AudioExtensions, "missing tables use defaults")

		assert.Equal(t, "https://teacherluke.libsyn.com/rss", cfg.Feed.URL)
		assert.Equal(t, "/tmp/lep", cfg.Download.Dest)
		assert.Equal(t, 5, cfg.Download.Workers)
		assert.True(t, cfg.Download.WithPDF)
		assert.Equal(t, "lep.db", cfg.Snapshot.Location)
		assert.True(t, cfg.Snapshot.Save)
		assert.Equal(t, ":9090", cfg.Server.Listen)
		assert.Equal(t, 45*time.Second, cfg.Server.Timeout)
	})

	t.Run("defaults", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "test-config.yml")
		require.NoError(t, os.WriteFile(configPath, []byte("feed:\n  url: \"\"\n"), 0o600))

		cfg, err := Load(configPath)
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
		assert.True(t, cfg.Archive.NewestFirst)
		assert.Equal(t, "https://teacherluke.co.uk/episodes-mp3-downloads/", cfg.Archive.URL)
		assert.Equal(t, 3, cfg.Download.Workers)
		assert.Equal(t, ".", cfg.Download.Dest)
		assert.Equal(t, "lep-db.json", cfg.Snapshot.Location)
		assert.Equal(t, archive.DefaultRules(), cfg.Rules)
	})

	t.Run("file not found", func(t *testing.T) {
		cfg, err := Load("/non/existent/file.yml")
		require.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "read config file")
	})

	t.Run("invalid yaml", func(t *testing.T) {
		configContent := `
invalid yaml content
  with bad indentation
    and no structure
`
		configPath := filepath.Join(t.TempDir(), "invalid.yml")
		require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o600))

		cfg, err := Load(configPath)
		require.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "parse config")
	})

	t.Run("invalid values", func(t *testing.T) {
		tests := []struct {
			name    string
			content string
			errMsg  string
		}{
			{name: "archive url", content: "archive:\n  url: ftp://example.com/\n", errMsg: "archive.url must be an http(s) url"},
			{name: "feed url", content: "feed:\n  url: not-a-url\n", errMsg: "feed.url must be an http(s) url"},
			{name: "workers", content: "download:\n  workers: -1\n", errMsg: "download.workers must be at least 1"},
			{name: "retries", content: "archive:\n  retries: -2\n", errMsg: "archive.retries must be at least 1"},
			{name: "ignore pattern", content: "rules:\n  ignore: ['([']\n", errMsg: "compile ignore pattern"},
			{name: "server timeout", content: "server:\n  timeout: 10ms\n", errMsg: "server timeout must be at least 1 second"},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				configPath := filepath.Join(t.TempDir(), "config.yml")
				require.NoError(t, os.WriteFile(configPath, []byte(tc.content), 0o600))
				_, err := Load(configPath)
				require.Error(t, err)
				assert.Contains(t, err.Error(), "validate config")
				assert.Contains(t, err.Error(), tc.errMsg)
			})
		}
	})
}
