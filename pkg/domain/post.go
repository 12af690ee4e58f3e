package domain

import "fmt"

// Link is a hyperlink found inside a post, in order of appearance
type Link struct {
	URL  string
	Text string
}

// RawPost is a post-like block extracted from the archive page, not persisted.
// Title is kept as found and may contain inline markup.
type RawPost struct {
	Position   int
	Title      string
	DateString string
	Permalink  string
	HTML       string
	Text       string
	Links      []Link
}

// LinkKind is the classification result for a single link
type LinkKind int

const (
	LinkIgnorable LinkKind = iota
	LinkPrimaryAudio
	LinkReserveAudio
	LinkPDF
)

func (k LinkKind) String() string {
	switch k {
	case LinkPrimaryAudio:
		return "primary-audio"
	case LinkReserveAudio:
		return "reserve-audio"
	case LinkPDF:
		return "pdf"
	default:
		return "ignorable"
	}
}

// ClassifiedLink is a link with its kind assigned
type ClassifiedLink struct {
	URL      string
	Text     string
	Kind     LinkKind
	Index    int
	Repaired bool
}

// Anomaly is a recoverable per-post parsing problem reported in the run summary
type Anomaly struct {
	Position int    `json:"position"`
	Title    string `json:"title,omitempty"`
	Reason   string `json:"reason"`
}

func (a Anomaly) String() string {
	if a.Title == "" {
		return fmt.Sprintf("post #%d: %s", a.Position, a.Reason)
	}
	return fmt.Sprintf("post #%d %q: %s", a.Position, a.Title, a.Reason)
}
