package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const podcastRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:itunes="http://www.itunes.com/dtds/podcast-1.0.dtd">
<channel>
	<title>Luke's ENGLISH Podcast</title>
	<link>https://teacherluke.co.uk</link>
	<item>
		<title>733. A Summer Ramble</title>
		<link>https://teacherluke.co.uk/2021/08/03/733-a-summer-ramble/</link>
		<pubDate>Tue, 03 Aug 2021 10:00:00 +0100</pubDate>
		<enclosure url="https://feeds.example.com/733.mp3" length="123" type="audio/mpeg"/>
	</item>
	<item>
		<title>Video special</title>
		<pubDate>Mon, 02 Aug 2021 10:00:00 +0100</pubDate>
		<enclosure url="https://feeds.example.com/video.mp4" length="123" type="video/mp4"/>
	</item>
	<item>
		<title>Bonus chat</title>
		<pubDate>Sun, 01 Aug 2021 10:00:00 +0100</pubDate>
		<enclosure url="https://feeds.example.com/bonus.MP3" length="1" type=""/>
	</item>
	<item>
		<title>No media</title>
	</item>
</channel>
</rss>`

func TestParser_Parse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "lepdl-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(podcastRSS))
	}))
	defer ts.Close()

	items, err := NewParser(5*time.Second, "lepdl-test").Parse(context.Background(), ts.URL)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "733. A Summer Ramble", items[0].Title)
	assert.Equal(t, 733, items[0].Number)
	assert.Equal(t, "https://feeds.example.com/733.mp3", items[0].AudioURL)
	assert.Equal(t, "https://teacherluke.co.uk/2021/08/03/733-a-summer-ramble/", items[0].Link)
	assert.False(t, items[0].Published.IsZero())

	assert.Equal(t, 0, items[1].Number)
	assert.Equal(t, "https://feeds.example.com/bonus.MP3", items[1].AudioURL)
}

func TestParser_Errors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			_, _ = w.Write([]byte("not a feed"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	p := NewParser(time.Second, "")
	_, err := p.Parse(context.Background(), ts.URL+"/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status code: 404")

	_, err = p.Parse(context.Background(), ts.URL+"/bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse feed")
}
