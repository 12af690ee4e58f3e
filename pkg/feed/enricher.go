package feed

import (
	"context"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/lepdl/pkg/domain"
)

// ItemsSource provides feed items
type ItemsSource interface {
	Parse(ctx context.Context, url string) ([]Item, error)
}

// Enricher fills missing reserve audio links of numbered episodes from the podcast feed
type Enricher struct {
	Source ItemsSource
	URL    string
}

// Enrich returns episodes with reserve links filled where the feed has an item with the
// same number. A feed failure is logged and leaves episodes untouched.
func (e *Enricher) Enrich(ctx context.Context, eps []domain.Episode) (res []domain.Episode, filled int) {
	if e == nil || e.Source == nil || e.URL == "" {
		return eps, 0
	}
	items, err := e.Source.Parse(ctx, e.URL)
	if err != nil {
		lgr.Printf("[WARN] can't read podcast feed %s, reserve links not enriched: %v", e.URL, err)
		return eps, 0
	}
	res, filled = Merge(eps, items)
	lgr.Printf("[DEBUG] podcast feed %s: %d items, %d reserve links filled", e.URL, len(items), filled)
	return res, filled
}

// Merge sets ReserveAudioURL of audio episodes without one to the enclosure of the feed item
// with the same number. Several episodes sharing a number are matched by date.
func Merge(eps []domain.Episode, items []Item) (res []domain.Episode, filled int) {
	byNumber := make(map[int][]Item, len(items))
	for _, it := range items {
		if it.Number > 0 {
			byNumber[it.Number] = append(byNumber[it.Number], it)
		}
	}

	res = make([]domain.Episode, len(eps))
	copy(res, eps)
	for i, ep := range res {
		if ep.IsTextOnly() || ep.ReserveAudioURL != "" {
			continue
		}
		candidates := byNumber[ep.Number]
		if len(candidates) == 0 {
			continue
		}
		pick := candidates[0]
		for _, c := range candidates {
			if !c.Published.IsZero() && domain.DateOf(c.Published) == ep.Date {
				pick = c
				break
			}
		}
		if pick.AudioURL == ep.AudioURL {
			continue
		}
		res[i].ReserveAudioURL = pick.AudioURL
		filled++
	}
	return res, filled
}
