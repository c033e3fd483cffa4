package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/socialcap/profile-api/internal/domain"
	"github.com/socialcap/profile-api/internal/generator"
	"github.com/socialcap/profile-api/internal/pipeline"
	"github.com/socialcap/profile-api/internal/store"
)

// Handler holds the HTTP dependencies.
type Handler struct {
	pipeline pipeline.Config
	store    *store.Store
	gen      generator.Generator
	log      *zap.Logger
}

// NewHandler creates a new Handler.
func NewHandler(p pipeline.Config, s *store.Store, gen generator.Generator, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{pipeline: p, store: s, gen: gen, log: log}
}

// errResponse writes a JSON error body.
func errResponse(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func jsonResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Health godoc
//
//	GET /health
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Analyze godoc
//
//	POST /api/v1/analyze
//
//	Request body: { "url": "https://example.com", "page_budget": 4 }
//	Response:     AnalyzeResponse JSON, or 502 with the attempt log
//	              when the site is unreachable.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req domain.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResponse(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.URL == "" {
		errResponse(w, http.StatusBadRequest, "url is required")
		return
	}

	resp, err := pipeline.Analyze(r.Context(), req, h.pipeline)
	switch {
	case errors.Is(err, domain.ErrInvalidURL):
		errResponse(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, domain.ErrUnreachable):
		// Distinct from "reachable but fields unknown": no draft at all.
		jsonResponse(w, http.StatusBadGateway, map[string]any{
			"error":    "could not analyze this site",
			"attempts": resp.Attempts,
		})
		return
	case err != nil:
		errResponse(w, http.StatusInternalServerError, "analysis failed: "+err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, resp)
}

// SaveProfile godoc
//
//	POST /api/v1/profiles
//
//	Create-or-update. expected_version guards concurrent edits; 0
//	overwrites unconditionally.
func (h *Handler) SaveProfile(w http.ResponseWriter, r *http.Request) {
	var req domain.SaveProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResponse(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.ID == "" && req.Name == "" && req.SourceURL == "" {
		errResponse(w, http.StatusBadRequest, "one of id, name, or source_url is required")
		return
	}

	saved, err := h.store.Save(domain.CompanyProfile{
		ID:        req.ID,
		Name:      req.Name,
		SourceURL: req.SourceURL,
		Fields:    req.Fields,
	}, req.ExpectedVersion)
	switch {
	case errors.Is(err, domain.ErrConflict):
		errResponse(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, domain.ErrInvalidURL):
		errResponse(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		errResponse(w, http.StatusInternalServerError, "save failed: "+err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, saved)
}

// ListProfiles godoc
//
//	GET /api/v1/profiles?limit=N
//
//	Most recently updated first. limit trims the result; total still
//	reports the full count.
func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.store.List()
	if err != nil {
		errResponse(w, http.StatusInternalServerError, "list failed: "+err.Error())
		return
	}
	total := len(profiles)
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errResponse(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		if n < len(profiles) {
			profiles = profiles[:n]
		}
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"total":    total,
		"profiles": profiles,
	})
}

// GetProfile godoc
//
//	GET /api/v1/profiles/{id}
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := h.store.Load(id)
	if errors.Is(err, domain.ErrNotFound) {
		errResponse(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		errResponse(w, http.StatusInternalServerError, "load failed: "+err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, p)
}

// DeleteProfile godoc
//
//	DELETE /api/v1/profiles/{id}
func (h *Handler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := h.store.Delete(id)
	if errors.Is(err, domain.ErrNotFound) {
		errResponse(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		errResponse(w, http.StatusInternalServerError, "delete failed: "+err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}

// Captions godoc
//
//	POST /api/v1/captions
//
//	Generates caption variants from a stored profile via the
//	configured generator.
func (h *Handler) Captions(w http.ResponseWriter, r *http.Request) {
	var req domain.CaptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResponse(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.ProfileID == "" {
		errResponse(w, http.StatusBadRequest, "profile_id is required")
		return
	}

	p, err := h.store.Load(req.ProfileID)
	if errors.Is(err, domain.ErrNotFound) {
		errResponse(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		errResponse(w, http.StatusInternalServerError, "load failed: "+err.Error())
		return
	}

	captions, err := h.gen.Generate(r.Context(), p.Fields, generator.Options{
		Platform: req.Platform,
		Tone:     req.Tone,
		Count:    req.Count,
		ImageRef: req.ImageRef,
	})
	if err != nil {
		errResponse(w, http.StatusUnprocessableEntity, "generation failed: "+err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, domain.CaptionResponse{
		ProfileID: p.ID,
		Captions:  captions,
	})
}
