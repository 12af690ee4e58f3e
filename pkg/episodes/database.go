// Package episodes keeps the in-memory episode database: an ordered set of episodes
// keyed by number and date, merged with persisted snapshots.
package episodes

import (
	"sort"
	"sync"

	"github.com/umputun/lepdl/pkg/domain"
)

// Change is the result of a single insert
type Change int

// insert outcomes
const (
	Unchanged Change = iota
	Added
	Updated
)

func (c Change) String() string {
	switch c {
	case Added:
		return "added"
	case Updated:
		return "updated"
	default:
		return "unchanged"
	}
}

// MergeStats counts what happened to fresh and snapshot entries during a merge
type MergeStats struct {
	Added     int `json:"added"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Stale     int `json:"stale"`
}

// Database is an ordered mapping of episodes. Insertion order is the archive host order.
// Safe for concurrent use.
type Database struct {
	mu    sync.RWMutex
	items []domain.Episode
	index map[domain.Key]int
}

// New makes a database with the given episodes inserted in order
func New(eps ...domain.Episode) *Database {
	d := &Database{index: make(map[domain.Key]int, len(eps))}
	for _, ep := range eps {
		d.insertOrUpdate(ep)
	}
	return d
}

// Merge combines a persisted snapshot with a fresh parse. Entries of the snapshot missing
// from a non-empty fresh parse are kept and flagged stale, nothing is ever removed.
// The result follows the fresh order, stale entries go last. An empty fresh parse
// leaves the snapshot as is.
func Merge(snapshot, fresh []domain.Episode) (*Database, MergeStats) {
	d := New(snapshot...)
	var stats MergeStats
	if len(fresh) == 0 {
		return d, stats
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	seen := make(map[domain.Key]bool, len(fresh))
	for _, ep := range fresh {
		switch d.insertOrUpdate(ep) {
		case Added:
			stats.Added++
		case Updated:
			stats.Updated++
		default:
			stats.Unchanged++
		}
		seen[ep.Key()] = true
	}

	ordered := make([]domain.Episode, 0, len(d.items))
	placed := make(map[domain.Key]bool, len(fresh))
	for _, ep := range fresh {
		k := ep.Key()
		if placed[k] {
			continue
		}
		placed[k] = true
		ordered = append(ordered, d.items[d.index[k]])
	}
	for _, ep := range d.items {
		if seen[ep.Key()] {
			continue
		}
		ep.Stale = true
		stats.Stale++
		ordered = append(ordered, ep)
	}
	d.reindex(ordered)
	return d, stats
}

// InsertOrUpdate adds a new episode or refreshes the archive-derived fields of an existing one.
// Downloaded markers survive the update and the stale flag of the existing entry is cleared.
func (d *Database) InsertOrUpdate(ep domain.Episode) Change {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.insertOrUpdate(ep)
}

func (d *Database) insertOrUpdate(ep domain.Episode) Change {
	key := ep.Key()
	i, ok := d.index[key]
	if !ok {
		d.index[key] = len(d.items)
		d.items = append(d.items, ep)
		return Added
	}

	cur := d.items[i]
	ep.AudioDownloaded = ep.AudioDownloaded || cur.AudioDownloaded
	ep.PDFDownloaded = ep.PDFDownloaded || cur.PDFDownloaded
	ep.Stale = false
	d.items[i] = ep
	if cur.SameContent(ep) && !cur.Stale {
		return Unchanged
	}
	return Updated
}

func (d *Database) reindex(items []domain.Episode) {
	d.items = items
	d.index = make(map[domain.Key]int, len(items))
	for i, ep := range items {
		d.index[ep.Key()] = i
	}
}

// Get returns the episode stored under the key
func (d *Database) Get(key domain.Key) (domain.Episode, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	i, ok := d.index[key]
	if !ok {
		return domain.Episode{}, false
	}
	return d.items[i], true
}

// Len returns the number of episodes
func (d *Database) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.items)
}

// Episodes returns a copy of all episodes in insertion order
func (d *Database) Episodes() []domain.Episode {
	d.mu.RLock()
	defer d.mu.RUnlock()
	res := make([]domain.Episode, len(d.items))
	copy(res, d.items)
	return res
}

// OrderedView returns episodes sorted by number, then date, then file name
func (d *Database) OrderedView() []domain.Episode {
	res := d.Episodes()
	sort.SliceStable(res, func(i, j int) bool {
		a, b := res[i], res[j]
		if a.Number != b.Number {
			return a.Number < b.Number
		}
		if c := a.Date.Compare(b.Date); c != 0 {
			return c < 0
		}
		return a.FileName < b.FileName
	})
	return res
}

// Last returns the episode with the highest number, the latest one on a tie
func (d *Database) Last() (domain.Episode, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if len(d.items) == 0 {
		return domain.Episode{}, false
	}
	last := d.items[0]
	for _, ep := range d.items[1:] {
		if ep.Number > last.Number || (ep.Number == last.Number && ep.Date.After(last.Date)) {
			last = ep
		}
	}
	return last, true
}

// MarkDownloaded sets the downloaded marker of the media kind, false if the key is unknown
func (d *Database) MarkDownloaded(key domain.Key, kind domain.MediaKind) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	i, ok := d.index[key]
	if !ok {
		return false
	}
	switch kind {
	case domain.MediaAudio:
		d.items[i].AudioDownloaded = true
	case domain.MediaPDF:
		d.items[i].PDFDownloaded = true
	default:
		return false
	}
	return true
}
