package download

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/tcolgate/mp3"
)

// ErrContent marks a body that isn't the expected media
var ErrContent = errors.New("unexpected content")

// sniffSize is the prefix used to detect html served in place of media
const sniffSize = 512

// ContentCheck returns the check for a file extension. Every check rejects html pages,
// .mp3 must hold a decodable MPEG frame and .pdf must open as a pdf document.
func ContentCheck(ext string) Check {
	ext = strings.ToLower(ext)
	return func(r io.ReaderAt, size int64) error {
		if err := rejectHTML(r, size); err != nil {
			return err
		}
		switch ext {
		case ".mp3":
			return checkMP3(r, size)
		case ".pdf":
			return checkPDF(r, size)
		}
		return nil
	}
}

func rejectHTML(r io.ReaderAt, size int64) error {
	head := make([]byte, min(size, sniffSize))
	n, err := r.ReadAt(head, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read head: %w", err)
	}
	if ct := http.DetectContentType(head[:n]); strings.HasPrefix(ct, "text/html") {
		return fmt.Errorf("%w: html page", ErrContent)
	}
	return nil
}

func checkMP3(r io.ReaderAt, size int64) error {
	offset := id3Size(r)
	if offset >= size {
		return fmt.Errorf("%w: no audio after id3 tag", ErrContent)
	}
	dec := mp3.NewDecoder(io.NewSectionReader(r, offset, size-offset))
	var f mp3.Frame
	skipped := 0
	if err := dec.Decode(&f, &skipped); err != nil {
		return fmt.Errorf("%w: no mpeg frame: %v", ErrContent, err)
	}
	return nil
}

// id3Size returns the length of a leading ID3v2 tag, 0 if there is none
func id3Size(r io.ReaderAt) int64 {
	hdr := make([]byte, 10)
	if _, err := r.ReadAt(hdr, 0); err != nil || !bytes.HasPrefix(hdr, []byte("ID3")) {
		return 0
	}
	// syncsafe integer, 7 bits per byte
	size := int64(hdr[6]&0x7f)<<21 | int64(hdr[7]&0x7f)<<14 | int64(hdr[8]&0x7f)<<7 | int64(hdr[9]&0x7f)
	if hdr[5]&0x10 != 0 { // footer present
		size += 10
	}
	return size + 10
}

func checkPDF(r io.ReaderAt, size int64) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: broken pdf: %v", ErrContent, rec)
		}
	}()
	doc, err := pdf.NewReader(r, size)
	if err != nil {
		return fmt.Errorf("%w: not a pdf: %v", ErrContent, err)
	}
	if doc.NumPage() == 0 {
		return fmt.Errorf("%w: pdf without pages", ErrContent)
	}
	return nil
}
