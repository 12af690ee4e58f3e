// Package download fetches episode media into a destination directory, falling back
// to the reserve mirror when the primary link fails.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another run holds the destination directory
var ErrLocked = errors.New("destination is locked by another run")

const lockFileName = ".lepdl.lock"

// Check validates saved content, size is the number of bytes available from r
type Check func(r io.ReaderAt, size int64) error

// LocalStorage keeps media files in a local directory. Writes go to a temp file
// and are renamed into place once the content check passes.
type LocalStorage struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLocalStorage makes a storage for an existing directory
func NewLocalStorage(dir string) (*LocalStorage, error) {
	st, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat destination: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("destination %s is not a directory", dir)
	}
	return &LocalStorage{dir: dir, locks: map[string]*sync.Mutex{}}, nil
}

// Lock takes the advisory lock of the destination directory, the returned func releases it
func (s *LocalStorage) Lock() (unlock func() error, err error) {
	lock := flock.New(filepath.Join(s.dir, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock destination: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, s.dir)
	}
	return lock.Unlock, nil
}

// Exists reports whether the named file is already in the destination
func (s *LocalStorage) Exists(name string) bool {
	l := s.lock(name)
	l.Lock()
	defer l.Unlock()
	st, err := os.Stat(filepath.Join(s.dir, name))
	return err == nil && st.Mode().IsRegular()
}

// Save writes r to the named file. The optional check runs on the complete temp file,
// a failed check, copy error or cancellation leaves nothing behind.
func (s *LocalStorage) Save(ctx context.Context, name string, r io.Reader, check Check) (int64, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return 0, fmt.Errorf("invalid file name %q", name)
	}
	l := s.lock(name)
	l.Lock()
	defer l.Unlock()

	tmp, err := os.CreateTemp(s.dir, ".lepdl-*.part")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	n, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: r})
	if err != nil {
		return n, fmt.Errorf("write %s: %w", name, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("write %s: empty body", name)
	}
	if check != nil {
		if err := check(tmp, n); err != nil {
			return n, fmt.Errorf("check %s: %w", name, err)
		}
	}
	if err := tmp.Close(); err != nil {
		return n, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		return n, fmt.Errorf("rename %s: %w", name, err)
	}
	committed = true
	return n, nil
}

func (s *LocalStorage) lock(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	return l
}

// ctxReader stops reading once the context is done
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
