package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/umputun/lepdl/pkg/archive"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// Config holds the application configuration
type Config struct {
	Archive  ArchiveConfig  `yaml:"archive" json:"archive" jsonschema:"description=Archive page configuration"`
	Rules    archive.Rules  `yaml:"rules" json:"rules" jsonschema:"description=Link classification and repair rules (empty lists use built-in rules)"`
	Feed     FeedConfig     `yaml:"feed" json:"feed" jsonschema:"description=Podcast feed used to fill reserve audio links"`
	Download DownloadConfig `yaml:"download" json:"download" jsonschema:"description=Download configuration"`
	Snapshot SnapshotConfig `yaml:"snapshot" json:"snapshot" jsonschema:"description=Episode database snapshot"`
	Server   ServerConfig   `yaml:"server" json:"server" jsonschema:"description=Snapshot server configuration"`
}

// ArchiveConfig defines where and how the archive page is read
type ArchiveConfig struct {
	URL           string        `yaml:"url" json:"url" jsonschema:"default=https://teacherluke.co.uk/episodes-mp3-downloads/,description=Archive page URL"`
	NewestFirst   bool          `yaml:"newest_first" json:"newest_first" jsonschema:"default=true,description=Archive lists posts newest first"`
	Timeout       time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=Archive request timeout"`
	Retries       int           `yaml:"retries" json:"retries" jsonschema:"default=3,minimum=1,description=Archive request attempts"`
	RetryDelay    time.Duration `yaml:"retry_delay" json:"retry_delay" jsonschema:"default=500ms,description=Initial delay between archive request attempts"`
	UserAgent     string        `yaml:"user_agent" json:"user_agent" jsonschema:"description=User agent for HTTP requests"`
	PDFStorageURL string        `yaml:"pdf_storage_url" json:"pdf_storage_url" jsonschema:"description=Base URL of the PDF mirror for posts without a PDF link"`
}

// FeedConfig defines the podcast feed
type FeedConfig struct {
	URL     string        `yaml:"url" json:"url" jsonschema:"description=Podcast RSS feed URL (empty disables enrichment)"`
	Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=Feed request timeout"`
}

// DownloadConfig defines download parameters
type DownloadConfig struct {
	Dest    string        `yaml:"dest" json:"dest" jsonschema:"default=.,description=Destination directory"`
	Workers int           `yaml:"workers" json:"workers" jsonschema:"default=3,minimum=1,description=Parallel downloads"`
	Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30m,description=Timeout of one file transfer"`
	WithPDF bool          `yaml:"with_pdf" json:"with_pdf" jsonschema:"default=false,description=Download PDF files along with audio"`
}

// SnapshotConfig defines the episode database location
type SnapshotConfig struct {
	Location string        `yaml:"location" json:"location" jsonschema:"default=lep-db.json,description=JSON file or sqlite database (.db) or http(s) URL of a published database"`
	Save     bool          `yaml:"save" json:"save" jsonschema:"default=false,description=Save the database after downloads"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=15s,description=Remote database request timeout"`
}

// ServerConfig defines the snapshot server
type ServerConfig struct {
	Listen  string        `yaml:"listen" json:"listen" jsonschema:"default=:8080,description=HTTP server listen address"`
	Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=HTTP server timeout"`
	BaseURL string        `yaml:"base_url" json:"base_url" jsonschema:"default=http://localhost:8080,description=Base URL for RSS feed links"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Config{Archive: ArchiveConfig{NewestFirst: true}}
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	setDefaults(&cfg)

	// validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// verify against embedded schema
	if err := VerifyAgainstEmbeddedSchema(&cfg); err != nil {
		// log warning but don't fail - schema validation is supplementary
		fmt.Printf("warning: schema validation failed: %v\n", err)
	}

	return &cfg, nil
}

// Default returns the configuration used without a config file
func Default() *Config {
	cfg := Config{Archive: ArchiveConfig{NewestFirst: true}}
	setDefaults(&cfg)
	return &cfg
}

func setDefaults(cfg *Config) {
	// archive
	if cfg.Archive.URL == "" {
		cfg.Archive.URL = "https://teacherluke.co.uk/episodes-mp3-downloads/"
	}
	if cfg.Archive.Timeout == 0 {
		cfg.Archive.Timeout = 30 * time.Second
	}
	if cfg.Archive.Retries == 0 {
		cfg.Archive.Retries = 3
	}
	if cfg.Archive.RetryDelay == 0 {
		cfg.Archive.RetryDelay = 500 * time.Millisecond
	}

	// rules, each empty table falls back to the built-in one
	def := archive.DefaultRules()
	if cfg.Rules.ReserveHosts == nil {
		cfg.Rules.ReserveHosts = def.ReserveHosts
	}
	if cfg.Rules.AudioExtensions == nil {
		cfg.Rules.AudioExtensions = def.AudioExtensions
	}
	if cfg.Rules.TranscriptMarkers == nil {
		cfg.Rules.TranscriptMarkers = def.TranscriptMarkers
	}
	if cfg.Rules.Ignore == nil {
		cfg.Rules.Ignore = def.Ignore
	}
	if cfg.Rules.Substitutions == nil {
		cfg.Rules.Substitutions = def.Substitutions
	}
	if cfg.Rules.HostFixes == nil {
		cfg.Rules.HostFixes = def.HostFixes
	}

	if cfg.Feed.Timeout == 0 {
		cfg.Feed.Timeout = 30 * time.Second
	}

	// download
	if cfg.Download.Dest == "" {
		cfg.Download.Dest = "."
	}
	if cfg.Download.Workers == 0 {
		cfg.Download.Workers = 3
	}
	if cfg.Download.Timeout == 0 {
		cfg.Download.Timeout = 30 * time.Minute
	}

	// snapshot
	if cfg.Snapshot.Location == "" {
		cfg.Snapshot.Location = "lep-db.json"
	}
	if cfg.Snapshot.Timeout == 0 {
		cfg.Snapshot.Timeout = 15 * time.Second
	}

	// server
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = 30 * time.Second
	}
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = "http://localhost:8080"
	}
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	if err := checkURL("archive.url", cfg.Archive.URL); err != nil {
		return err
	}
	if cfg.Archive.Retries < 1 {
		return fmt.Errorf("archive.retries must be at least 1")
	}
	if cfg.Archive.Timeout < time.Second {
		return fmt.Errorf("archive timeout must be at least 1 second")
	}
	if cfg.Archive.PDFStorageURL != "" {
		if err := checkURL("archive.pdf_storage_url", cfg.Archive.PDFStorageURL); err != nil {
			return err
		}
	}
	if cfg.Feed.URL != "" {
		if err := checkURL("feed.url", cfg.Feed.URL); err != nil {
			return err
		}
	}
	if cfg.Download.Workers < 1 {
		return fmt.Errorf("download.workers must be at least 1")
	}
	if _, err := archive.NewClassifier(cfg.Rules); err != nil {
		return fmt.Errorf("rules: %w", err)
	}

	// validate server config
	if cfg.Server.Timeout < time.Second {
		return fmt.Errorf("server timeout must be at least 1 second")
	}

	return nil
}

func checkURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an http(s) url, got %q", name, raw)
	}
	return nil
}
