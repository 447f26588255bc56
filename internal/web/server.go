// Package web serves the generated report artifacts and a small agenda API.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"companion/internal/agenda"
	"companion/internal/config"
	"companion/internal/ics"
	appLog "companion/internal/log"
)

// Server exposes the latest report, its PNG snapshot, the study-block
// calendar, and a JSON agenda endpoint.
type Server struct {
	cfg *config.Config
	mux *http.ServeMux

	// In-memory cache for /api/agenda responses to avoid redundant
	// fetch/parse/normalize work on every HTTP request.
	agendaMu    sync.RWMutex
	agendaCache *agendaCache
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config) *Server {
	s := &Server{
		cfg: cfg,
		mux: http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="Companion", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// StartServer starts an HTTP server bound to cfg.Listen. Graceful shutdown
// on ctx cancellation is handled by the http.Server wrapper in the caller;
// this helper keeps the simple ListenAndServe path.
func StartServer(_ context.Context, cfg *config.Config) error {
	s := NewServer(cfg)
	appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
	return http.ListenAndServe(cfg.Listen, s.Handler())
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/report", s.handleReport)
	s.mux.HandleFunc("/preview.png", s.handlePreview)
	s.mux.HandleFunc("/study.ics", s.handleStudyICS)
	s.mux.HandleFunc("/api/agenda", s.handleAgenda)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReport serves the last generated HTML report from disk.
// http.ServeFile returns the appropriate status for a missing or
// unreadable file.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.cfg.ReportPath)
}

// handlePreview serves the last rendered PNG snapshot from disk.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.cfg.SnapshotPath)
}

// handleStudyICS serves the study-block calendar for subscription clients.
func (s *Server) handleStudyICS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	http.ServeFile(w, r, s.cfg.StudyICSPath)
}

// agendaResponse is the JSON response shape for /api/agenda.
type agendaResponse struct {
	Date        string     `json:"date"`
	Timezone    string     `json:"timezone"`
	WindowStart string     `json:"window_start"`
	WindowEnd   string     `json:"window_end"`
	Events      []eventDTO `json:"events"`
	Slots       []slotDTO  `json:"slots"`
}

type eventDTO struct {
	Summary string    `json:"summary"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

type slotDTO struct {
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Label   string    `json:"label"`
	Minutes int       `json:"minutes"`
}

// agendaCache holds a cached /api/agenda response and its timestamp.
type agendaCache struct {
	resp      agendaResponse
	updatedAt time.Time
}

// handleAgenda computes today's events and free study blocks on demand.
//
// A small in-memory cache avoids repeating the ICS fetch/parse/normalize
// work on every HTTP request; the main refresh is still cron-driven.
func (s *Server) handleAgenda(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	const agendaCacheTTL = 30 * time.Second
	cacheNow := time.Now()

	s.agendaMu.RLock()
	ac := s.agendaCache
	s.agendaMu.RUnlock()
	if ac != nil && cacheNow.Sub(ac.updatedAt) < agendaCacheTTL {
		writeJSON(w, http.StatusOK, ac.resp)
		return
	}

	loc, err := s.cfg.Location()
	if err != nil {
		appLog.Error("api agenda: bad timezone", err, "timezone", s.cfg.Timezone)
		writeError(w, http.StatusInternalServerError, "invalid timezone configuration")
		return
	}

	day := agenda.Today(time.Now(), loc)
	window, err := agenda.NewWindow(day, s.cfg.WorkdayStartHour, s.cfg.WorkdayEndHour)
	if err != nil {
		appLog.Error("api agenda: bad workday window", err)
		writeError(w, http.StatusInternalServerError, "invalid workday configuration")
		return
	}

	var events []agenda.Event
	if s.cfg.FeedURL != "" {
		fetcher := ics.NewFetcher(s.cfg.CacheDir)
		res, err := fetcher.Fetch(ctx, s.cfg.FeedURL)
		if err != nil {
			appLog.Error("api agenda: feed fetch failed", err)
			writeError(w, http.StatusBadGateway, "calendar feed unavailable")
			return
		}
		raw, err := ics.ParseEvents(res.Body)
		if err != nil {
			appLog.Error("api agenda: feed parse failed", err)
			writeError(w, http.StatusBadGateway, "calendar feed unparseable")
			return
		}
		events = agenda.Normalize(raw, day, loc)
	}

	slots, err := agenda.FreeSlots(events, window, s.cfg.MinBlockMinutes)
	if err != nil {
		appLog.Error("api agenda: slot computation failed", err)
		writeError(w, http.StatusInternalServerError, "invalid slot configuration")
		return
	}

	resp := agendaResponse{
		Date:        day.Start.Format("2006-01-02"),
		Timezone:    loc.String(),
		WindowStart: window.WorkStart.Format(time.RFC3339),
		WindowEnd:   window.WorkEnd.Format(time.RFC3339),
		Events:      make([]eventDTO, 0, len(events)),
		Slots:       make([]slotDTO, 0, len(slots)),
	}
	for _, ev := range events {
		resp.Events = append(resp.Events, eventDTO{
			Summary: ev.Summary,
			Start:   ev.Start,
			End:     ev.End,
		})
	}
	for _, sl := range slots {
		resp.Slots = append(resp.Slots, slotDTO{
			Start:   sl.Start,
			End:     sl.End,
			Label:   sl.String(),
			Minutes: sl.Minutes(),
		})
	}

	s.agendaMu.Lock()
	s.agendaCache = &agendaCache{
		resp:      resp,
		updatedAt: time.Now(),
	}
	s.agendaMu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
