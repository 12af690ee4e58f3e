package feed

import (
	"math/rand"
	"net/http"
)

// podcastClients are Accept-Language values of common podcast apps
var podcastClients = []string{
	"en-GB,en;q=0.9",
	"en-US,en;q=0.9",
	"en;q=0.8",
}

// addBrowserHeaders makes the request look like a podcast client fetching the feed
func addBrowserHeaders(req *http.Request, userAgent string) {
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	req.Header.Set("Accept", "application/rss+xml,application/atom+xml,application/xml;q=0.9,text/xml;q=0.8,*/*;q=0.5")
	req.Header.Set("Accept-Language", podcastClients[rand.Intn(len(podcastClients))]) //nolint:gosec // header variation only
	req.Header.Set("Cache-Control", "no-cache")
}
