package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/lepdl/pkg/domain"
)

type itemsSourceMock struct {
	items []Item
	err   error
}

func (m itemsSourceMock) Parse(context.Context, string) ([]Item, error) { return m.items, m.err }

func TestMerge(t *testing.T) {
	d1 := domain.NewDate(2021, time.August, 3)
	d2 := domain.NewDate(2021, time.August, 4)
	eps := []domain.Episode{
		{Number: 733, Date: d1, AudioURL: "https://a/733.mp3"},
		{Number: 734, Date: d2, AudioURL: "https://a/734.mp3", ReserveAudioURL: "https://r/734.mp3"},
		{Number: 0, Date: d1, PDFURL: "https://p/x.pdf"},
		{Number: 735, Date: d2, AudioURL: "https://same/735.mp3"},
		{Number: 736, Date: d1, AudioURL: "https://a/736a.mp3"},
		{Number: 736, Date: d2, AudioURL: "https://a/736b.mp3"},
	}
	items := []Item{
		{Number: 733, AudioURL: "https://feed/733.mp3"},
		{Number: 734, AudioURL: "https://feed/734.mp3"},
		{Number: 735, AudioURL: "https://same/735.mp3"},
		{Number: 736, AudioURL: "https://feed/736a.mp3", Published: d1.Time().Add(10 * time.Hour)},
		{Number: 736, AudioURL: "https://feed/736b.mp3", Published: d2.Time().Add(10 * time.Hour)},
		{Number: 0, AudioURL: "https://feed/bonus.mp3"},
	}

	res, filled := Merge(eps, items)
	assert.Equal(t, 3, filled)
	assert.Equal(t, "https://feed/733.mp3", res[0].ReserveAudioURL)
	assert.Equal(t, "https://r/734.mp3", res[1].ReserveAudioURL, "existing reserve kept")
	assert.Empty(t, res[2].ReserveAudioURL, "text-only untouched")
	assert.Empty(t, res[3].ReserveAudioURL, "same url as primary is not a reserve")
	assert.Equal(t, "https://feed/736a.mp3", res[4].ReserveAudioURL)
	assert.Equal(t, "https://feed/736b.mp3", res[5].ReserveAudioURL, "matched by date")

	assert.Empty(t, eps[0].ReserveAudioURL, "input not modified")
}

func TestEnricher_Enrich(t *testing.T) {
	eps := []domain.Episode{{Number: 1, Date: domain.NewDate(2009, time.April, 12), AudioURL: "https://a/1.mp3"}}

	t.Run("filled", func(t *testing.T) {
		e := &Enricher{Source: itemsSourceMock{items: []Item{{Number: 1, AudioURL: "https://feed/1.mp3"}}}, URL: "https://feed"}
		res, filled := e.Enrich(context.Background(), eps)
		assert.Equal(t, 1, filled)
		require.Len(t, res, 1)
		assert.Equal(t, "https://feed/1.mp3", res[0].ReserveAudioURL)
	})

	t.Run("feed failure is not fatal", func(t *testing.T) {
		e := &Enricher{Source: itemsSourceMock{err: errors.New("timeout")}, URL: "https://feed"}
		res, filled := e.Enrich(context.Background(), eps)
		assert.Equal(t, 0, filled)
		assert.Equal(t, eps, res)
	})

	t.Run("disabled", func(t *testing.T) {
		var e *Enricher
		res, filled := e.Enrich(context.Background(), eps)
		assert.Equal(t, 0, filled)
		assert.Equal(t, eps, res)

		res, _ = (&Enricher{Source: itemsSourceMock{}}).Enrich(context.Background(), eps)
		assert.Equal(t, eps, res)
	})
}
