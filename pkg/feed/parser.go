// Package feed reads the podcast RSS feed to fill reserve audio links and renders
// the episode database back as a podcast feed.
package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/umputun/lepdl/pkg/archive"
)

// Item is a feed entry with an audio enclosure
type Item struct {
	Title     string
	Number    int // leading number of the title, 0 if none
	Link      string
	AudioURL  string
	Published time.Time
}

// Parser parses podcast RSS/Atom feeds
type Parser struct {
	client    *http.Client
	userAgent string
}

// NewParser creates a new feed parser
func NewParser(timeout time.Duration, userAgent string) *Parser {
	return &Parser{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent: userAgent,
	}
}

// Parse fetches the feed and returns items carrying an audio enclosure
func (p *Parser) Parse(ctx context.Context, url string) ([]Item, error) {
	body, err := p.fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer body.Close()

	feed, err := gofeed.NewParser().Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := make([]Item, 0, len(feed.Items))
	for _, it := range feed.Items {
		audio := audioEnclosure(it)
		if audio == "" {
			continue
		}
		item := Item{Title: strings.TrimSpace(it.Title), Link: it.Link, AudioURL: audio}
		item.Number, _ = archive.TitleNumber(item.Title)

		// set published time
		if it.PublishedParsed != nil {
			item.Published = *it.PublishedParsed
		} else if it.UpdatedParsed != nil {
			item.Published = *it.UpdatedParsed
		}
		items = append(items, item)
	}
	return items, nil
}

// audioEnclosure returns the first audio enclosure url of the item
func audioEnclosure(it *gofeed.Item) string {
	for _, enc := range it.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		if strings.HasPrefix(enc.Type, "audio/") || strings.HasSuffix(strings.ToLower(enc.URL), ".mp3") {
			return strings.TrimSpace(enc.URL)
		}
	}
	return ""
}

// fetch retrieves content from a URL
func (p *Parser) fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	addBrowserHeaders(req, p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch URL: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return resp.Body, nil
}
