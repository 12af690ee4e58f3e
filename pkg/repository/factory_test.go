package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		location string
		check    func(t *testing.T, s StoreCloser)
	}{
		{location: "https://hotenov.com/d/lep/v3-lep-db.min.json", check: func(t *testing.T, s StoreCloser) {
			assert.IsType(t, &JSONURL{}, s)
		}},
		{location: filepath.Join(dir, "lep-db.json"), check: func(t *testing.T, s StoreCloser) {
			assert.IsType(t, &JSONFile{}, s)
		}},
		{location: filepath.Join(dir, "lep.db"), check: func(t *testing.T, s StoreCloser) {
			assert.IsType(t, &SQLite{}, s)
		}},
		{location: "sqlite::memory:", check: func(t *testing.T, s StoreCloser) {
			assert.IsType(t, &SQLite{}, s)
			eps, err := s.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, eps)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			s, err := Open(ctx, tt.location, Options{})
			require.NoError(t, err)
			defer s.Close()
			tt.check(t, s)
		})
	}

	_, err := Open(ctx, "  ", Options{})
	require.Error(t, err)
}
