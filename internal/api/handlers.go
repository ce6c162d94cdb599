/*
Package api
File: handlers.go
Description:
    Contains the HTTP handlers for the REST API.
    These functions translate requests into engine actions and return JSON.

    Key Responsibilities:
    - Input Validation (Does the entity exist? Is it unlocked? Is the client clicking too fast?)
    - State Modification (Always through game.Session, never directly)
    - Error Mapping (engine sentinel errors -> HTTP status codes)
*/

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"github.com/everforgeworks/protocell/internal/game"
	"github.com/everforgeworks/protocell/internal/journal"
)

// ActionResponse is returned by every successful action.
type ActionResponse struct {
	OK       bool          `json:"ok"`
	Snapshot game.Snapshot `json:"snapshot"`
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server holds the dependencies shared by the handlers.
type Server struct {
	session *game.Session
	journal *journal.Journal
	hub     *Hub

	// Per-client synthesis limiters, keyed by remote IP.
	limiters  map[string]*clientLimiter
	limiterMu sync.Mutex
	clickRate rate.Limit
	burst     int
	now       func() time.Time
}

type clientLimiter struct {
	*rate.Limiter
	lastSeen time.Time
}

const (
	maxLimiters = 4096
	limiterIdle = 10 * time.Minute // An idle limiter has refilled long before this
)

// NewServer wires the handlers. clicksPerSecond bounds manual synthesis per client.
func NewServer(session *game.Session, j *journal.Journal, hub *Hub, clicksPerSecond float64) *Server {
	burst := int(clicksPerSecond)
	if burst < 1 {
		burst = 1
	}
	return &Server{
		session:   session,
		journal:   j,
		hub:       hub,
		limiters:  make(map[string]*clientLimiter),
		clickRate: rate.Limit(clicksPerSecond),
		burst:     burst,
		now:       time.Now,
	}
}

// Router builds the route table. metrics may be nil.
func (s *Server) Router(metrics http.Handler) http.Handler {
	r := chi.NewRouter()

	// Information Endpoints
	r.Get("/api/state", s.HandleGetState)
	r.Get("/api/resources/{id}", s.HandleGetResource)
	r.Get("/api/upgrades/{id}", s.HandleGetUpgrade)
	r.Get("/api/log", s.HandleGetLog)

	// Action Endpoints
	r.Post("/api/resources/{id}/synthesize", s.HandleSynthesize)
	r.Post("/api/upgrades/{id}/purchase", s.HandlePurchaseUpgrade)
	r.Post("/api/conversions/{id}", s.HandleConvert)

	// Real-Time WebSocket Endpoint
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		ServeWs(s.hub, s.session, w, r)
	})

	if metrics != nil {
		r.Handle("/metrics", metrics)
	}
	return r
}

// HandleGetState returns the full snapshot.
func (s *Server) HandleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

// HandleGetResource returns one resource view.
func (s *Server) HandleGetResource(w http.ResponseWriter, r *http.Request) {
	var view game.ResourceView
	err := s.session.Do(func(e *game.Engine) (err error) {
		view, err = e.ResourceView(chi.URLParam(r, "id"))
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleGetUpgrade returns one upgrade view, including its current cost.
func (s *Server) HandleGetUpgrade(w http.ResponseWriter, r *http.Request) {
	var view game.UpgradeView
	err := s.session.Do(func(e *game.Engine) (err error) {
		view, err = e.UpgradeView(chi.URLParam(r, "id"))
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleGetLog returns the message log, newest first.
func (s *Server) HandleGetLog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.journal.Entries())
}

// HandleSynthesize performs the manual action for a resource.
func (s *Server) HandleSynthesize(w http.ResponseWriter, r *http.Request) {
	if !s.limiter(clientKey(r)).Allow() {
		writeJSON(w, http.StatusTooManyRequests, ErrorResponse{Error: "synthesizing too fast"})
		return
	}
	id := chi.URLParam(r, "id")
	s.act(w, func(e *game.Engine) error { return e.Synthesize(id) })
}

// HandlePurchaseUpgrade buys one level of an upgrade.
func (s *Server) HandlePurchaseUpgrade(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.act(w, func(e *game.Engine) error { return e.PurchaseUpgrade(id) })
}

// HandleConvert runs a configured conversion.
func (s *Server) HandleConvert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.act(w, func(e *game.Engine) error { return e.Convert(id) })
}

// act runs one action under the session lock and replies with the resulting snapshot.
func (s *Server) act(w http.ResponseWriter, action func(e *game.Engine) error) {
	var snap game.Snapshot
	err := s.session.Do(func(e *game.Engine) error {
		if err := action(e); err != nil {
			return err
		}
		snap = e.Snapshot()
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ActionResponse{OK: true, Snapshot: snap})
}

// limiter returns the client's limiter, creating it on first use.
// The map is swept of idle clients whenever it fills up.
func (s *Server) limiter(key string) *rate.Limiter {
	s.limiterMu.Lock()
	defer s.limiterMu.Unlock()

	now := s.now()
	l, ok := s.limiters[key]
	if !ok {
		if len(s.limiters) >= maxLimiters {
			s.evictLimiters(now)
		}
		l = &clientLimiter{Limiter: rate.NewLimiter(s.clickRate, s.burst)}
		s.limiters[key] = l
	}
	l.lastSeen = now
	return l.Limiter
}

// evictLimiters drops idle limiters. If none are idle, the least recently seen goes.
func (s *Server) evictLimiters(now time.Time) {
	var oldestKey string
	var oldest time.Time
	for k, l := range s.limiters {
		if now.Sub(l.lastSeen) > limiterIdle {
			delete(s.limiters, k)
			continue
		}
		if oldestKey == "" || l.lastSeen.Before(oldest) {
			oldestKey, oldest = k, l.lastSeen
		}
	}
	if len(s.limiters) >= maxLimiters {
		delete(s.limiters, oldestKey)
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeError maps engine errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, game.ErrUnknownEntity):
		status = http.StatusNotFound
	case errors.Is(err, game.ErrLockedEntity):
		status = http.StatusForbidden
	case errors.Is(err, game.ErrInsufficientResources):
		status = http.StatusPaymentRequired
	case errors.Is(err, game.ErrInvalidAmount):
		status = http.StatusBadRequest
	default:
		log.Printf("API: unexpected error: %v", err)
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
