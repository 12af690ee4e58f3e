package feed

import (
	"encoding/xml"
)

const itunesNS = "http://www.itunes.com/dtds/podcast-1.0.dtd"

// RSS is the podcast feed document, RSS 2.0 with itunes extensions
type RSS struct {
	XMLName xml.Name    `xml:"rss"`
	Version string      `xml:"version,attr"`
	Atom    string      `xml:"xmlns:atom,attr"`
	ITunes  string      `xml:"xmlns:itunes,attr"`
	Channel *RSSChannel `xml:"channel"`
}

// RSSChannel is the podcast itself
type RSSChannel struct {
	XMLName       xml.Name   `xml:"channel"`
	Title         string     `xml:"title"`
	Link          string     `xml:"link"`
	Description   string     `xml:"description"`
	Language      string     `xml:"language,omitempty"`
	Author        string     `xml:"itunes:author,omitempty"`
	AtomLink      *AtomLink  `xml:"http://www.w3.org/2005/Atom link"`
	LastBuildDate string     `xml:"lastBuildDate"`
	Items         []*RSSItem `xml:"item"`
}

// AtomLink is the self reference of the feed
type AtomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

// RSSItem represents an episode in the podcast feed
type RSSItem struct {
	Title       string     `xml:"title"`
	Link        string     `xml:"link,omitempty"`
	GUID        *GUID      `xml:"guid"`
	Description string     `xml:"description,omitempty"`
	PubDate     string     `xml:"pubDate"`
	Enclosure   *Enclosure `xml:"enclosure,omitempty"`
	Episode     int        `xml:"itunes:episode,omitempty"`
	EpisodeType string     `xml:"itunes:episodeType,omitempty"`
}

// GUID is a feed item identifier, not a permalink
type GUID struct {
	Value       string `xml:",chardata"`
	IsPermaLink bool   `xml:"isPermaLink,attr"`
}

// Enclosure is the media file of an item
type Enclosure struct {
	URL    string `xml:"url,attr"`
	Length int64  `xml:"length,attr"`
	Type   string `xml:"type,attr"`
}
