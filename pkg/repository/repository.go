// Package repository persists episode database snapshots. Snapshots live in a JSON file,
// a published JSON document (read-only) or a SQLite database.
package repository

import (
	"context"
	"errors"
	"io"

	"github.com/umputun/lepdl/pkg/domain"
)

// ErrReadOnly is returned by stores that can't be written to
var ErrReadOnly = errors.New("snapshot store is read-only")

// Store loads and saves episode snapshots in the database insertion order
type Store interface {
	Load(ctx context.Context) ([]domain.Episode, error)
	Save(ctx context.Context, eps []domain.Episode) error
}

// StoreCloser is a store holding resources
type StoreCloser interface {
	Store
	io.Closer
}
