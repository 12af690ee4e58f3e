package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/umputun/lepdl/pkg/domain"
	"github.com/umputun/lepdl/pkg/episodes"
	"github.com/umputun/lepdl/pkg/selector"
)

// statusHandler returns server status with a short database summary
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":   "ok",
		"version":  s.version,
		"time":     time.Now().UTC(),
		"snapshot": s.cfg.Location,
	}

	db, err := s.database(r)
	if err != nil {
		log.Printf("[WARN] failed to load snapshot for status: %v", err)
		status["status"] = "degraded"
		status["error"] = err.Error()
		renderJSON(w, r, http.StatusOK, status)
		return
	}

	status["episodes"] = db.Len()
	if last, ok := db.Last(); ok {
		status["last"] = last
	}
	if src, ok := s.snapshot.(savedAtSource); ok {
		savedAt, err := src.SavedAt(r.Context())
		switch {
		case err != nil:
			log.Printf("[WARN] failed to get snapshot save time: %v", err)
		case !savedAt.IsZero():
			status["saved_at"] = savedAt
		}
	}
	renderJSON(w, r, http.StatusOK, status)
}

// downloadsHandler returns download records of a run, available when the snapshot is kept in sqlite
func (s *Server) downloadsHandler(w http.ResponseWriter, r *http.Request) {
	dl, ok := s.snapshot.(downloadLog)
	if !ok {
		renderError(w, r, errors.New("download log is kept by sqlite snapshots only"), http.StatusNotFound)
		return
	}
	records, err := dl.Downloads(r.Context(), r.PathValue("run"))
	if err != nil {
		log.Printf("[ERROR] failed to get downloads: %v", err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}
	if len(records) == 0 {
		renderError(w, r, fmt.Errorf("no downloads of run %s", r.PathValue("run")), http.StatusNotFound)
		return
	}
	renderJSON(w, r, http.StatusOK, records)
}

// episodesHandler returns episodes in ascending number order, filtered by
// episode (range), start and end (dates) or last query parameters
func (s *Server) episodesHandler(w http.ResponseWriter, r *http.Request) {
	criteria, err := criteriaFromQuery(r)
	if err != nil {
		renderError(w, r, err, http.StatusBadRequest)
		return
	}

	db, err := s.database(r)
	if err != nil {
		log.Printf("[ERROR] failed to load snapshot: %v", err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}

	res := selector.Select(db.OrderedView(), criteria)
	if res == nil {
		res = []domain.Episode{}
	}
	renderJSON(w, r, http.StatusOK, res)
}

// lastEpisodeHandler returns the episode with the highest number
func (s *Server) lastEpisodeHandler(w http.ResponseWriter, r *http.Request) {
	db, err := s.database(r)
	if err != nil {
		log.Printf("[ERROR] failed to load snapshot: %v", err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}
	last, ok := db.Last()
	if !ok {
		renderError(w, r, fmt.Errorf("no episodes"), http.StatusNotFound)
		return
	}
	renderJSON(w, r, http.StatusOK, last)
}

// databaseHandler serves the whole database in the host order, the format read back by remote snapshot stores
func (s *Server) databaseHandler(w http.ResponseWriter, r *http.Request) {
	db, err := s.database(r)
	if err != nil {
		log.Printf("[ERROR] failed to load snapshot: %v", err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}
	renderJSON(w, r, http.StatusOK, db.Episodes())
}

// database reloads the snapshot, it may be rewritten by parse runs at any time
func (s *Server) database(r *http.Request) (*episodes.Database, error) {
	eps, err := s.snapshot.Load(r.Context())
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return episodes.New(eps...), nil
}

func criteriaFromQuery(r *http.Request) (selector.Criteria, error) {
	q := r.URL.Query()
	var c selector.Criteria
	var err error

	if v := strings.TrimSpace(q.Get("last")); v != "" && v != "0" && v != "false" {
		c.Last = true
	}
	if c.Numbers, err = selector.ParseRange(q.Get("episode")); err != nil {
		return c, err
	}
	if c.Dates.From, err = selector.ParseDate(q.Get("start")); err != nil {
		return c, fmt.Errorf("bad start date: %w", err)
	}
	if c.Dates.To, err = selector.ParseDate(q.Get("end")); err != nil {
		return c, fmt.Errorf("bad end date: %w", err)
	}
	return c, nil
}

// renderJSON sends JSON response
func renderJSON(w http.ResponseWriter, _ *http.Request, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("[ERROR] can't encode response to JSON: %v", err)
		}
	}
}

// renderError sends error response as JSON
func renderError(w http.ResponseWriter, r *http.Request, err error, code int) {
	errMsg := "unknown error"
	if err != nil {
		errMsg = err.Error()
	}
	renderJSON(w, r, code, map[string]string{"error": errMsg})
}
