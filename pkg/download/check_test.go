package download

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentCheck(t *testing.T) {
	id3 := append([]byte{'I', 'D', '3', 4, 0, 0, 0, 0, 0, 20}, make([]byte, 20)...)

	tests := []struct {
		name    string
		ext     string
		body    []byte
		wantErr bool
	}{
		{name: "mp3 frame", ext: ".mp3", body: testMP3()},
		{name: "mp3 after id3 tag", ext: ".MP3", body: append(id3, testMP3()...)},
		{name: "mp3 garbage", ext: ".mp3", body: []byte("definitely not an mpeg stream"), wantErr: true},
		{name: "only id3 tag", ext: ".mp3", body: id3, wantErr: true},
		{name: "html instead of mp3", ext: ".mp3", body: []byte("<!DOCTYPE html><html><body>Not found</body></html>"), wantErr: true},
		{name: "pdf", ext: ".pdf", body: testPDF()},
		{name: "html instead of pdf", ext: ".pdf", body: []byte("<html><head><title>transcript</title></head></html>"), wantErr: true},
		{name: "truncated pdf", ext: ".pdf", body: testPDF()[:40], wantErr: true},
		{name: "other audio not decoded", ext: ".m4a", body: []byte("\x00\x00\x00\x20ftypM4A ")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ContentCheck(tc.ext)(bytes.NewReader(tc.body), int64(len(tc.body)))
			if tc.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrContent)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestID3Size(t *testing.T) {
	assert.Equal(t, int64(0), id3Size(bytes.NewReader(testMP3())))
	hdr := []byte{'I', 'D', '3', 3, 0, 0, 0, 0, 0x01, 0x7f}
	assert.Equal(t, int64(10+255), id3Size(bytes.NewReader(hdr)))
	hdr[5] = 0x10
	assert.Equal(t, int64(10+255+10), id3Size(bytes.NewReader(hdr)))
}
