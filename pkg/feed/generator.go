package feed

import (
	"encoding/xml"
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/umputun/lepdl/pkg/domain"
)

// Generator renders episodes as a podcast RSS feed
type Generator struct {
	baseURL string
	title   string
}

// NewGenerator creates a new feed generator
func NewGenerator(baseURL, title string) *Generator {
	if title == "" {
		title = "Luke's English Podcast archive"
	}
	return &Generator{baseURL: strings.TrimRight(baseURL, "/"), title: title}
}

// GenerateRSS creates an RSS 2.0 feed of audio episodes, newest first by the given order.
// Text-only episodes have no enclosure and are skipped.
func (g *Generator) GenerateRSS(eps []domain.Episode) (string, error) {
	items := make([]*RSSItem, 0, len(eps))
	for _, ep := range eps {
		if item := g.convertToRSSItem(ep); item != nil {
			items = append(items, item)
		}
	}

	feed := &RSS{
		Version: "2.0",
		Atom:    "http://www.w3.org/2005/Atom",
		ITunes:  itunesNS,
		Channel: &RSSChannel{
			Title:         g.title,
			Link:          g.baseURL + "/",
			Description:   fmt.Sprintf("%d episodes with primary or reserve audio", len(items)),
			Language:      "en-gb",
			Author:        "Luke Thompson",
			AtomLink:      &AtomLink{Href: g.baseURL + "/rss", Rel: "self", Type: "application/rss+xml"},
			LastBuildDate: time.Now().Format(time.RFC1123Z),
			Items:         items,
		},
	}

	output, err := xml.MarshalIndent(feed, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal RSS: %w", err)
	}
	return xml.Header + string(output), nil
}

// convertToRSSItem makes a feed item, the primary audio link wins over the reserve one
func (g *Generator) convertToRSSItem(ep domain.Episode) *RSSItem {
	audio := ep.AudioURL
	if audio == "" {
		audio = ep.ReserveAudioURL
	}
	if audio == "" {
		return nil
	}
	return &RSSItem{
		Title:       ep.Title,
		Link:        ep.PostURL,
		GUID:        &GUID{Value: ep.Key().String()},
		Description: ep.FileName,
		PubDate:     ep.Date.Time().Format(time.RFC1123Z),
		Enclosure:   &Enclosure{URL: audio, Type: audioType(audio)},
		Episode:     ep.Number,
		EpisodeType: "full",
	}
}

// audioType guesses the enclosure mime type from the link extension, mp3 if unknown
func audioType(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return "audio/mpeg"
	}
	switch ext := strings.ToLower(path.Ext(u.Path)); ext {
	case "", ".mp3":
		return "audio/mpeg"
	case ".m4a":
		return "audio/mp4"
	default:
		if t := mime.TypeByExtension(ext); strings.HasPrefix(t, "audio/") {
			return t
		}
		return "audio/mpeg"
	}
}
