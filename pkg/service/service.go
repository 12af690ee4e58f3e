// Package service wires one run of the downloader: archive fetch and parse, snapshot merge,
// feed enrichment, selection, download and snapshot save.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/google/uuid"

	"github.com/umputun/lepdl/pkg/archive"
	"github.com/umputun/lepdl/pkg/domain"
	"github.com/umputun/lepdl/pkg/download"
	"github.com/umputun/lepdl/pkg/episodes"
	"github.com/umputun/lepdl/pkg/repository"
	"github.com/umputun/lepdl/pkg/selector"
)

// Fetcher gets the archive page
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Parser turns archive markup into episodes
type Parser interface {
	Parse(markup []byte) (archive.Result, error)
}

// Enricher fills reserve audio links from the podcast feed
type Enricher interface {
	Enrich(ctx context.Context, eps []domain.Episode) ([]domain.Episode, int)
}

// Downloader gets media of selected episodes
type Downloader interface {
	Plan(eps []domain.Episode) []download.Outcome
	Run(ctx context.Context, eps []domain.Episode) download.Summary
}

// DownloadLogger keeps per-run download records, implemented by the sqlite store
type DownloadLogger interface {
	LogDownloads(ctx context.Context, records []repository.DownloadRecord) error
}

// Params holds dependencies of the service. Enricher, Store and Downloader are optional.
type Params struct {
	Fetcher    Fetcher
	Parser     Parser
	Enricher   Enricher
	Store      repository.Store
	Downloader Downloader
	ArchiveURL string
}

// Service runs parse and download flows
type Service struct {
	Params
}

// New makes a service
func New(p Params) *Service {
	return &Service{Params: p}
}

// Report describes a finished run
type Report struct {
	RunID     string
	Posts     int // post blocks found in the archive
	Parsed    int // episodes built from the archive
	Anomalies []domain.Anomaly
	Merge     episodes.MergeStats
	Enriched  int
	Total     int // episodes in the database after merge
	Last      domain.Episode
	Selected  []domain.Episode
	Plan      []download.Outcome // files the run would handle, set in dry run and for confirmation
	Summary   download.Summary
	Saved     bool
	SaveErr   error
}

// DownloadRequest defines a download run
type DownloadRequest struct {
	Criteria selector.Criteria
	DryRun   bool
	Save     bool                             // write the merged database with download markers back
	Confirm  func(plan []download.Outcome) bool // asked before downloading, nil means yes
}

// Refresh builds the current database: archive parse merged into the stored snapshot and
// enriched from the feed. Only an archive fetch or parse failure is an error.
func (s *Service) Refresh(ctx context.Context) (*episodes.Database, Report, error) {
	rep := Report{RunID: uuid.NewString()}
	st := time.Now()

	markup, err := s.Fetcher.Fetch(ctx, s.ArchiveURL)
	if err != nil {
		return nil, rep, fmt.Errorf("fetch archive: %w", err)
	}
	res, err := s.Parser.Parse(markup)
	if err != nil {
		return nil, rep, fmt.Errorf("parse archive %s: %w", s.ArchiveURL, err)
	}
	rep.Posts, rep.Parsed, rep.Anomalies = res.Posts, len(res.Episodes), res.Anomalies
	for _, a := range res.Anomalies {
		lgr.Printf("[DEBUG] archive anomaly: %s", a)
	}

	fresh := res.Episodes
	if s.Enricher != nil {
		fresh, rep.Enriched = s.Enricher.Enrich(ctx, fresh)
	}

	db, stats := episodes.Merge(s.loadSnapshot(ctx), fresh)
	rep.Merge, rep.Total = stats, db.Len()
	rep.Last, _ = db.Last()
	lgr.Printf("[INFO] archive parsed in %v: %d posts, %d episodes, %d anomalies; database %d episodes "+
		"(added %d, updated %d, stale %d), last %s", time.Since(st).Round(time.Millisecond), rep.Posts, rep.Parsed,
		len(rep.Anomalies), rep.Total, stats.Added, stats.Updated, stats.Stale, rep.Last.Key())
	return db, rep, nil
}

// Parse refreshes the database and writes it to the store
func (s *Service) Parse(ctx context.Context) (Report, error) {
	db, rep, err := s.Refresh(ctx)
	if err != nil {
		return rep, err
	}
	s.save(ctx, db, &rep)
	return rep, nil
}

// Download refreshes the database, selects episodes and downloads their media.
// Download failures end up in the summary, the run itself fails only when the archive can't be read.
func (s *Service) Download(ctx context.Context, req DownloadRequest) (Report, error) {
	db, rep, err := s.Refresh(ctx)
	if err != nil {
		return rep, err
	}
	if s.Downloader == nil {
		return rep, errors.New("no downloader")
	}

	rep.Selected = selector.Select(db.OrderedView(), req.Criteria)
	lgr.Printf("[INFO] selected %d episodes", len(rep.Selected))
	if len(rep.Selected) == 0 {
		return rep, nil
	}

	if req.DryRun || req.Confirm != nil {
		rep.Plan = s.Downloader.Plan(rep.Selected)
	}
	if req.DryRun {
		return rep, nil
	}
	if req.Confirm != nil && !req.Confirm(rep.Plan) {
		lgr.Printf("[INFO] download cancelled by user")
		return rep, nil
	}

	rep.Summary = s.Downloader.Run(ctx, rep.Selected)
	for _, o := range rep.Summary.Outcomes {
		if o.State == download.StateSucceeded || o.State == download.StateSkipped {
			db.MarkDownloaded(o.Key, o.Kind)
		}
	}
	s.logDownloads(ctx, rep)
	if req.Save {
		s.save(context.WithoutCancel(ctx), db, &rep)
	}
	return rep, nil
}

func (s *Service) loadSnapshot(ctx context.Context) []domain.Episode {
	if s.Store == nil {
		return nil
	}
	eps, err := s.Store.Load(ctx)
	if err != nil {
		lgr.Printf("[WARN] can't load snapshot, starting with an empty one: %v", err)
		return nil
	}
	lgr.Printf("[DEBUG] loaded snapshot with %d episodes", len(eps))
	return eps
}

func (s *Service) save(ctx context.Context, db *episodes.Database, rep *Report) {
	if s.Store == nil {
		return
	}
	err := s.Store.Save(ctx, db.Episodes())
	switch {
	case errors.Is(err, repository.ErrReadOnly):
		lgr.Printf("[INFO] snapshot store is read-only, database not saved")
	case err != nil:
		rep.SaveErr = fmt.Errorf("save snapshot: %w", err)
		lgr.Printf("[ERROR] %v", rep.SaveErr)
	default:
		rep.Saved = true
		lgr.Printf("[INFO] saved database with %d episodes", db.Len())
	}
}

func (s *Service) logDownloads(ctx context.Context, rep Report) {
	dl, ok := s.Store.(DownloadLogger)
	if !ok || len(rep.Summary.Outcomes) == 0 {
		return
	}
	records := make([]repository.DownloadRecord, 0, len(rep.Summary.Outcomes))
	for _, o := range rep.Summary.Outcomes {
		records = append(records, repository.DownloadRecord{RunID: rep.RunID, EpisodeKey: o.Key.String(), Kind: string(o.Kind),
			State: o.State.String(), Source: o.Source, Error: o.Reason, Bytes: o.Bytes})
	}
	if err := dl.LogDownloads(context.WithoutCancel(ctx), records); err != nil {
		lgr.Printf("[WARN] can't log downloads of run %s: %v", rep.RunID, err)
	}
}
