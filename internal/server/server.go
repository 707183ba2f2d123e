// Package server exposes the engine over HTTP. The surface is small and
// JSON-only: submit ratings, request predictions, resolve outcomes, and
// read the derived state back out.
package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/calsper/tasteline/internal/engine"
	"github.com/calsper/tasteline/internal/store"
	"github.com/calsper/tasteline/internal/taste"
)

type Server struct {
	engine *engine.Engine
	store  *store.Store
	log    zerolog.Logger
}

func New(e *engine.Engine, s *store.Store, log zerolog.Logger) *Server {
	return &Server{engine: e, store: s, log: log}
}

// Router builds the chi mux. Callers own the http.Server around it.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Route("/users/{user}", func(r chi.Router) {
		r.Post("/ratings", s.handleRate)
		r.Post("/recompute", s.handleRecompute)
		r.Post("/predictions", s.handlePredict)
		r.Post("/predictions/{id}/outcome", s.handleOutcome)
		r.Get("/predictions", s.handlePredictionHistory)
		r.Get("/model", s.handleModel)
		r.Get("/patterns", s.handlePatterns)
		r.Get("/episodes", s.handleEpisodes)
		r.Get("/tastes", s.handleTastes)
		r.Get("/drift-alerts", s.handleDriftAlerts)
		r.Post("/drift-alerts/{id}/ack", s.handleAckAlert)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(started)).
			Msg("request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type rateRequest struct {
	Item         string              `json:"item"`
	Artist       string              `json:"artist"`
	Rating       float64             `json:"rating"`
	Genres       []string            `json:"genres,omitempty"`
	Descriptors  []string            `json:"descriptors,omitempty"`
	Features     *taste.FeatureVector `json:"features,omitempty"`
	ItemAgeYears float64             `json:"item_age_years,omitempty"`
}

func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decoding body: %w", err))
		return
	}
	if strings.TrimSpace(req.Item) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("item is required"))
		return
	}

	recomputed, err := s.engine.RecordRating(r.Context(), taste.RatingEvent{
		User:         chi.URLParam(r, "user"),
		Item:         req.Item,
		Artist:       req.Artist,
		Rating:       req.Rating,
		Genres:       req.Genres,
		Descriptors:  req.Descriptors,
		Features:     req.Features,
		ItemAgeYears: req.ItemAgeYears,
	})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"recomputed": recomputed})
}

func (s *Server) handleRecompute(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")
	if err := s.engine.Recompute(r.Context(), user); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"user": user, "status": "recomputed"})
}

type predictRequest struct {
	Item     string               `json:"item"`
	Features *taste.FeatureVector `json:"features,omitempty"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decoding body: %w", err))
		return
	}
	p, err := s.engine.Predict(r.Context(), chi.URLParam(r, "user"), req.Item, req.Features)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

type outcomeRequest struct {
	Actual      float64  `json:"actual"`
	Descriptors []string `json:"descriptors,omitempty"`
}

func (s *Server) handleOutcome(w http.ResponseWriter, r *http.Request) {
	var req outcomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decoding body: %w", err))
		return
	}
	o, err := s.engine.RecordOutcome(r.Context(), chi.URLParam(r, "user"), chi.URLParam(r, "id"), req.Actual, req.Descriptors)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if strings.Contains(err.Error(), "no prediction") {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handlePredictionHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.PredictionHistory(chi.URLParam(r, "user"), 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")
	model, err := s.store.GetModel(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if model == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("no model for %q", user))
		return
	}
	writeJSON(w, http.StatusOK, model)
}

func (s *Server) handlePatterns(w http.ResponseWriter, r *http.Request) {
	ps, err := s.store.GetPatterns(chi.URLParam(r, "user"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (s *Server) handleEpisodes(w http.ResponseWriter, r *http.Request) {
	eps, err := s.store.GetEpisodes(chi.URLParam(r, "user"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, eps)
}

func (s *Server) handleTastes(w http.ResponseWriter, r *http.Request) {
	tastes, err := s.store.GetTastes(chi.URLParam(r, "user"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, tastes)
}

func (s *Server) handleDriftAlerts(w http.ResponseWriter, r *http.Request) {
	_, alerts, err := s.store.GetDriftState(chi.URLParam(r, "user"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if r.URL.Query().Get("significant") == "true" {
		kept := alerts[:0]
		for _, a := range alerts {
			if a.Significant() {
				kept = append(kept, a)
			}
		}
		alerts = kept
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (s *Server) handleAckAlert(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")
	id := chi.URLParam(r, "id")
	if err := s.store.AcknowledgeAlert(user, id); err != nil {
		status := http.StatusInternalServerError
		if strings.Contains(err.Error(), "no alert") {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "acknowledged"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
