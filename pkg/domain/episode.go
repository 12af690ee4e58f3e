package domain

import "fmt"

// MediaKind is the type of a downloadable episode file
type MediaKind string

const (
	MediaAudio MediaKind = "audio"
	MediaPDF   MediaKind = "pdf"
)

// Episode is the canonical, persisted record of one archive post.
// Number 0 marks a text-only post without audio.
type Episode struct {
	Number          int    `json:"episode"`
	Date            Date   `json:"date"`
	Title           string `json:"title"`
	AudioURL        string `json:"audio_url,omitempty"`
	ReserveAudioURL string `json:"reserve_audio_url,omitempty"`
	PDFURL          string `json:"pdf_url,omitempty"`
	PostURL         string `json:"post_url,omitempty"`
	FileName        string `json:"file_name"`
	AudioDownloaded bool   `json:"audio_downloaded,omitempty"`
	PDFDownloaded   bool   `json:"pdf_downloaded,omitempty"`
	Stale           bool   `json:"stale,omitempty"`
}

// Key identifies an episode inside the database.
// Name is set only for text-only episodes, several of them can share a date.
type Key struct {
	Number int
	Date   Date
	Name   string
}

func (k Key) String() string {
	if k.Name != "" {
		return fmt.Sprintf("%04d@%s#%s", k.Number, k.Date, k.Name)
	}
	return fmt.Sprintf("%04d@%s", k.Number, k.Date)
}

// Key returns the database key of the episode
func (e Episode) Key() Key {
	k := Key{Number: e.Number, Date: e.Date}
	if e.IsTextOnly() {
		k.Name = e.FileName
	}
	return k
}

// IsTextOnly reports whether the episode is a post without audio
func (e Episode) IsTextOnly() bool {
	return e.Number == 0
}

// HasAudio reports whether any audio link, primary or reserve, is known
func (e Episode) HasAudio() bool {
	return e.AudioURL != "" || e.ReserveAudioURL != ""
}

// HasMedia reports whether the episode carries anything downloadable
func (e Episode) HasMedia() bool {
	return e.HasAudio() || e.PDFURL != ""
}

// Downloaded returns the downloaded marker for the given media kind
func (e Episode) Downloaded(kind MediaKind) bool {
	switch kind {
	case MediaAudio:
		return e.AudioDownloaded
	case MediaPDF:
		return e.PDFDownloaded
	default:
		return false
	}
}

// SameContent reports whether the mutable, archive-derived fields are equal.
// Downloaded markers and the stale flag are not part of the content.
func (e Episode) SameContent(o Episode) bool {
	return e.Title == o.Title && e.AudioURL == o.AudioURL && e.ReserveAudioURL == o.ReserveAudioURL &&
		e.PDFURL == o.PDFURL && e.PostURL == o.PostURL && e.FileName == o.FileName
}
