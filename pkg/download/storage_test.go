package download

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_Save(t *testing.T) {
	dir := t.TempDir()
	st, err := NewLocalStorage(dir)
	require.NoError(t, err)

	t.Run("saved and renamed", func(t *testing.T) {
		n, err := st.Save(context.Background(), "[2021-08-03] # 733. Ramble.pdf", bytes.NewReader(testPDF()), ContentCheck(".pdf"))
		require.NoError(t, err)
		assert.Equal(t, int64(len(testPDF())), n)
		assert.True(t, st.Exists("[2021-08-03] # 733. Ramble.pdf"))
		assert.Empty(t, tempFiles(t, dir))
	})

	t.Run("failed check leaves nothing", func(t *testing.T) {
		_, err := st.Save(context.Background(), "bad.pdf", strings.NewReader("<html>oops</html>"), ContentCheck(".pdf"))
		require.ErrorIs(t, err, ErrContent)
		assert.False(t, st.Exists("bad.pdf"))
		assert.Empty(t, tempFiles(t, dir))
	})

	t.Run("empty body", func(t *testing.T) {
		_, err := st.Save(context.Background(), "empty.mp3", strings.NewReader(""), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty body")
		assert.False(t, st.Exists("empty.mp3"))
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := st.Save(ctx, "cancelled.mp3", bytes.NewReader(testMP3()), nil)
		require.ErrorIs(t, err, context.Canceled)
		assert.False(t, st.Exists("cancelled.mp3"))
		assert.Empty(t, tempFiles(t, dir))
	})

	t.Run("read error", func(t *testing.T) {
		_, err := st.Save(context.Background(), "broken.mp3", errReader{}, nil)
		require.Error(t, err)
		assert.Empty(t, tempFiles(t, dir))
	})

	t.Run("bad name", func(t *testing.T) {
		_, err := st.Save(context.Background(), "../escape.mp3", bytes.NewReader(testMP3()), nil)
		require.Error(t, err)
	})

	t.Run("concurrent writes of one name", func(t *testing.T) {
		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := st.Save(context.Background(), "same.mp3", bytes.NewReader(testMP3()), ContentCheck(".mp3"))
				assert.NoError(t, err)
			}()
		}
		wg.Wait()
		data, err := os.ReadFile(filepath.Join(dir, "same.mp3"))
		require.NoError(t, err)
		assert.Equal(t, testMP3(), data)
	})
}

func TestLocalStorage_Lock(t *testing.T) {
	dir := t.TempDir()
	st1, err := NewLocalStorage(dir)
	require.NoError(t, err)
	st2, err := NewLocalStorage(dir)
	require.NoError(t, err)

	unlock, err := st1.Lock()
	require.NoError(t, err)

	_, err = st2.Lock()
	require.ErrorIs(t, err, ErrLocked)

	require.NoError(t, unlock())
	unlock2, err := st2.Lock()
	require.NoError(t, err)
	require.NoError(t, unlock2())
}

func TestNewLocalStorage(t *testing.T) {
	_, err := NewLocalStorage(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)

	f := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(f, []byte("x"), 0o600))
	_, err = NewLocalStorage(f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func tempFiles(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, ".lepdl-*.part"))
	require.NoError(t, err)
	return matches
}
