package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/umputun/lepdl/pkg/domain"
)

// maxSnapshotSize caps a remote snapshot body
const maxSnapshotSize = 64 << 20

// JSONFile keeps the snapshot as an indented JSON array in a local file
type JSONFile struct {
	Path string
}

// Load reads the snapshot, a missing file is an empty snapshot
func (f *JSONFile) Load(_ context.Context) ([]domain.Episode, error) {
	data, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return []domain.Episode{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", f.Path, err)
	}
	return decodeSnapshot(data)
}

// Save writes the snapshot to a temp file next to the target and renames it over
func (f *JSONFile) Save(_ context.Context, eps []domain.Episode) error {
	data, err := encodeSnapshot(eps)
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("make snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// Close is a no-op
func (f *JSONFile) Close() error { return nil }

// JSONURL reads a published snapshot over http
type JSONURL struct {
	URL    string
	Client *http.Client
}

// NewJSONURL makes a remote snapshot reader with the given request timeout
func NewJSONURL(url string, timeout time.Duration) *JSONURL {
	return &JSONURL{URL: url, Client: &http.Client{Timeout: timeout}}
}

// Load fetches and decodes the snapshot
func (j *JSONURL) Load(ctx context.Context) ([]domain.Episode, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.URL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := j.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot %s: %w", j.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch snapshot %s: unexpected status code: %d", j.URL, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotSize))
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", j.URL, err)
	}
	return decodeSnapshot(data)
}

// Save always fails, the published snapshot is read-only
func (j *JSONURL) Save(context.Context, []domain.Episode) error {
	return fmt.Errorf("save to %s: %w", j.URL, ErrReadOnly)
}

// Close is a no-op
func (j *JSONURL) Close() error { return nil }

func decodeSnapshot(data []byte) ([]domain.Episode, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []domain.Episode{}, nil
	}
	var eps []domain.Episode
	if err := json.Unmarshal(data, &eps); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if eps == nil {
		eps = []domain.Episode{}
	}
	return eps, nil
}

// encodeSnapshot renders the snapshot with two-space indent, non-ascii text kept as is
func encodeSnapshot(eps []domain.Episode) ([]byte, error) {
	if eps == nil {
		eps = []domain.Episode{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(eps); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}
