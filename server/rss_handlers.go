package server

import (
	"log"
	"net/http"
	"slices"
	"strconv"

	"github.com/umputun/lepdl/pkg/feed"
)

// rssHandler serves the audio episodes as a podcast feed, newest first.
// Optional "limit" query keeps only that many newest entries.
func (s *Server) rssHandler(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "limit must be a positive number", http.StatusBadRequest)
			return
		}
		limit = n
	}

	db, err := s.database(r)
	if err != nil {
		log.Printf("[ERROR] failed to load snapshot for RSS: %v", err)
		http.Error(w, "Failed to generate RSS feed", http.StatusInternalServerError)
		return
	}

	eps := db.OrderedView()
	slices.Reverse(eps)
	if limit > 0 && len(eps) > limit {
		eps = eps[:limit]
	}

	rss, err := feed.NewGenerator(s.cfg.BaseURL, "").GenerateRSS(eps)
	if err != nil {
		log.Printf("[ERROR] failed to generate RSS feed: %v", err)
		http.Error(w, "Failed to generate RSS feed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	if _, err := w.Write([]byte(rss)); err != nil {
		log.Printf("[ERROR] failed to write RSS response: %v", err)
	}
}
