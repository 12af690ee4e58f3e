package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Options define how Open creates a store
type Options struct {
	Timeout time.Duration // remote snapshot request timeout
}

// Open picks a store by location: http(s) urls are read-only published snapshots,
// "sqlite:" prefixed paths and .db/.sqlite files are SQLite databases, anything else is a JSON file.
func Open(ctx context.Context, location string, opts Options) (StoreCloser, error) {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, errors.New("empty snapshot location")
	}

	lower := strings.ToLower(location)
	switch {
	case strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://"):
		return NewJSONURL(location, opts.Timeout), nil
	case strings.HasPrefix(lower, "sqlite:"):
		return openSQLite(ctx, location[len("sqlite:"):])
	case filepath.Ext(lower) == ".db" || filepath.Ext(lower) == ".sqlite":
		return openSQLite(ctx, location)
	default:
		return &JSONFile{Path: location}, nil
	}
}

func openSQLite(ctx context.Context, path string) (*SQLite, error) {
	dsn := path
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		dsn = "file:" + path + "?mode=rwc&_txlock=immediate&_pragma=busy_timeout(5000)"
	}
	s, err := NewSQLite(ctx, SQLiteConfig{DSN: dsn, MaxOpenConns: 1})
	if err != nil {
		return nil, fmt.Errorf("open sqlite snapshot %s: %w", path, err)
	}
	return s, nil
}
