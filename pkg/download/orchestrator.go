package download

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"sync/atomic"

	"github.com/go-pkgz/lgr"
	"golang.org/x/sync/errgroup"

	"github.com/umputun/lepdl/pkg/domain"
)

// Storage keeps downloaded files
type Storage interface {
	Exists(name string) bool
	Save(ctx context.Context, name string, r io.Reader, check Check) (int64, error)
}

// Getter opens a remote body
type Getter interface {
	Get(ctx context.Context, url string) (io.ReadCloser, error)
}

// Marker records downloaded media, episodes.Database implements it
type Marker interface {
	MarkDownloaded(key domain.Key, kind domain.MediaKind) bool
}

// Config defines orchestrator parameters
type Config struct {
	Workers   int    // parallel downloads, 1 means sequential
	WithPDF   bool   // download pdf files along with audio
	PDFMirror string // base url of the pdf mirror, used as the pdf reserve
}

// Orchestrator downloads media of selected episodes
type Orchestrator struct {
	storage Storage
	getter  Getter
	marker  Marker
	cfg     Config
}

// New makes an orchestrator, marker may be nil
func New(storage Storage, getter Getter, marker Marker, cfg Config) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = 3
	}
	return &Orchestrator{storage: storage, getter: getter, marker: marker, cfg: cfg}
}

// task is one episode file to get
type task struct {
	key     domain.Key
	kind    domain.MediaKind
	name    string
	title   string
	primary string
	reserve string
}

// Plan lists the files the run would handle, in episode order, audio before pdf
func (o *Orchestrator) Plan(eps []domain.Episode) []Outcome {
	tasks := o.tasks(eps)
	res := make([]Outcome, 0, len(tasks))
	for _, t := range tasks {
		oc := t.outcome(StatePending)
		if o.storage.Exists(t.name) {
			oc.State = StateSkipped
		}
		res = append(res, oc)
	}
	return res
}

// Run downloads all media of the episodes and returns the summary.
// Cancelling ctx abandons the remaining queue, started attempts abort.
func (o *Orchestrator) Run(ctx context.Context, eps []domain.Episode) Summary {
	tasks := o.tasks(eps)
	outcomes := make([]Outcome, len(tasks))
	var done atomic.Int32

	var g errgroup.Group
	g.SetLimit(o.cfg.Workers)
	for i, t := range tasks {
		g.Go(func() error {
			outcomes[i] = o.process(ctx, t)
			oc := outcomes[i]
			switch oc.State {
			case StateSucceeded:
				lgr.Printf("[INFO] [%d/%d] downloaded %s (%d bytes from %s)", done.Add(1), len(tasks), oc.Name, oc.Bytes, oc.Source)
			case StateFailed:
				lgr.Printf("[WARN] [%d/%d] failed %s: %s", done.Add(1), len(tasks), oc.Name, oc.Reason)
			case StateSkipped:
				lgr.Printf("[DEBUG] [%d/%d] already on disk %s", done.Add(1), len(tasks), oc.Name)
			default:
				done.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	return NewSummary(outcomes)
}

// process walks one file through the states, primary then reserve
func (o *Orchestrator) process(ctx context.Context, t task) Outcome {
	if ctx.Err() != nil {
		return t.outcome(StateAbandoned)
	}
	if o.storage.Exists(t.name) {
		o.mark(t)
		return t.outcome(StateSkipped)
	}

	var reasons []string
	for _, src := range t.sources() {
		lgr.Printf("[DEBUG] %s %s from %s", StateAttempting, t.name, src)
		n, err := o.attempt(ctx, src, t.name)
		if err == nil {
			o.mark(t)
			oc := t.outcome(StateSucceeded)
			oc.Source, oc.Bytes = src, n
			return oc
		}
		if ctx.Err() != nil {
			return t.outcome(StateAbandoned)
		}
		lgr.Printf("[DEBUG] attempt %s for %s failed: %v", src, t.name, err)
		reasons = append(reasons, fmt.Sprintf("%s: %v", src, err))
	}

	oc := t.outcome(StateFailed)
	oc.Reason = strings.Join(reasons, "; ")
	if len(reasons) == 0 {
		oc.Reason = "no link"
	}
	return oc
}

func (o *Orchestrator) attempt(ctx context.Context, src, name string) (int64, error) {
	body, err := o.getter.Get(ctx, src)
	if err != nil {
		return 0, err
	}
	defer body.Close()
	return o.storage.Save(ctx, name, body, ContentCheck(path.Ext(name)))
}

func (o *Orchestrator) mark(t task) {
	if o.marker != nil {
		o.marker.MarkDownloaded(t.key, t.kind)
	}
}

// tasks expands episodes into files, audio first then pdf
func (o *Orchestrator) tasks(eps []domain.Episode) []task {
	res := make([]task, 0, len(eps))
	for _, ep := range eps {
		if ep.HasAudio() {
			res = append(res, task{
				key: ep.Key(), kind: domain.MediaAudio, title: ep.Title,
				name:    ep.FileName + audioExt(ep.AudioURL, ep.ReserveAudioURL),
				primary: ep.AudioURL, reserve: ep.ReserveAudioURL,
			})
		}
		if !o.cfg.WithPDF {
			continue
		}
		t := task{key: ep.Key(), kind: domain.MediaPDF, title: ep.Title, name: ep.FileName + ".pdf", primary: ep.PDFURL}
		if o.cfg.PDFMirror != "" {
			t.reserve = o.cfg.PDFMirror + url.PathEscape(ep.FileName) + ".pdf"
		}
		if t.primary != "" || t.reserve != "" {
			res = append(res, t)
		}
	}
	return res
}

// sources returns links to try in order, an empty primary goes straight to the reserve
func (t task) sources() []string {
	var res []string
	if t.primary != "" {
		res = append(res, t.primary)
	}
	if t.reserve != "" && t.reserve != t.primary {
		res = append(res, t.reserve)
	}
	return res
}

func (t task) outcome(state State) Outcome {
	return Outcome{Key: t.key, Kind: t.kind, Name: t.name, Title: t.title, State: state}
}

// audioExt takes the extension of the first audio link, .mp3 by default
func audioExt(links ...string) string {
	for _, l := range links {
		if l == "" {
			continue
		}
		u, err := url.Parse(l)
		if err != nil {
			continue
		}
		if ext := strings.ToLower(path.Ext(u.Path)); ext != "" {
			return ext
		}
	}
	return ".mp3"
}
