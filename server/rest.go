package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"

	"github.com/umputun/newspulse/pkg/domain"
	"github.com/umputun/newspulse/pkg/repository"
)

// internalErrorDetail is the only thing clients see on a server side failure
const internalErrorDetail = "Internal Server Error"

// healthHandler is the liveness check
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	lgr.Printf("[DEBUG] health check")
	renderJSON(w, r, http.StatusOK, rest.JSON{"message": "Hello, world!"})
}

// newsHandler returns news published on ?date=YYYY-MM-DD, newest first
func (s *Server) newsHandler(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		renderError(w, r, errors.New("date query parameter is required, YYYY-MM-DD"), http.StatusBadRequest)
		return
	}
	day, err := time.ParseInLocation(repository.DayLayout, date, time.Local)
	if err != nil {
		renderError(w, r, errors.New("invalid date, expected YYYY-MM-DD"), http.StatusBadRequest)
		return
	}

	articles, err := s.news.ByDate(r.Context(), day)
	if err != nil {
		lgr.Printf("[ERROR] failed to fetch news for date %s: %v", date, err)
		renderInternalError(w, r)
		return
	}
	if articles == nil {
		articles = []domain.NewsItem{}
	}

	lgr.Printf("[INFO] fetched %d articles for date %s", len(articles), date)
	renderJSON(w, r, http.StatusOK, rest.JSON{"date": date, "articles": articles})
}

// deleteNewsHandler deletes everything published today
func (s *Server) deleteNewsHandler(w http.ResponseWriter, r *http.Request) {
	today := s.cfg.Now().Format(repository.DayLayout)
	deleted, err := s.news.DeleteByDate(r.Context(), s.cfg.Now())
	if err != nil {
		lgr.Printf("[ERROR] failed to delete news for date %s: %v", today, err)
		renderInternalError(w, r)
		return
	}

	lgr.Printf("[INFO] deleted %d news for date %s", deleted, today)
	renderJSON(w, r, http.StatusOK, rest.JSON{"message": "Deleted all news for date " + today})
}

// statusHandler returns server status with pool and storage details
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := rest.JSON{
		"status":  "ok",
		"version": s.version,
		"time":    time.Now().UTC(),
	}

	if s.pool != nil {
		stats := s.pool.Stats()
		status["database"] = rest.JSON{
			"dialect": s.pool.Dialect(),
			"open":    stats.OpenConnections,
			"in_use":  stats.InUse,
			"idle":    stats.Idle,
		}
	}

	count, err := s.news.Count(r.Context())
	if err != nil {
		lgr.Printf("[WARN] failed to count news: %v", err)
		status["status"] = "degraded"
	} else {
		status["news"] = count
	}

	renderJSON(w, r, http.StatusOK, status)
}

// renderJSON sends JSON response
func renderJSON(w http.ResponseWriter, _ *http.Request, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			lgr.Printf("[ERROR] can't encode response to JSON: %v", err)
		}
	}
}

// renderError sends client error response as JSON
func renderError(w http.ResponseWriter, r *http.Request, err error, code int) {
	errMsg := "unknown error"
	if err != nil {
		errMsg = err.Error()
	}
	renderJSON(w, r, code, rest.JSON{"error": errMsg})
}

// renderInternalError sends 500 with a fixed detail, the cause is logged by the caller
func renderInternalError(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, r, http.StatusInternalServerError, rest.JSON{"detail": internalErrorDetail})
}
