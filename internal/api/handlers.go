package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/spinplate/internal/discovery"
	"github.com/sells-group/spinplate/internal/geo"
	"github.com/sells-group/spinplate/internal/model"
	"github.com/sells-group/spinplate/internal/selection"
	"github.com/sells-group/spinplate/internal/service"
)

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := h.pinger.Ping(ctx); err != nil {
			zap.L().Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	body := map[string]any{
		"status":     "ok",
		"candidates": len(h.svc.Candidates()),
	}
	if h.breakers != nil {
		body["endpoints"] = h.breakers.Snapshot()
	}
	writeJSON(w, http.StatusOK, body)
}

type discoverRequest struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	MaxRadiusMiles float64 `json:"max_radius_miles"`
}

type discoverResponse struct {
	Count       int                 `json:"count"`
	RadiusMiles float64             `json:"radius_miles"`
	Endpoint    string              `json:"endpoint,omitempty"`
	Message     string              `json:"message,omitempty"`
	Attempts    []discovery.Attempt `json:"attempts,omitempty"`
}

func (h *Handler) discover(w http.ResponseWriter, r *http.Request) {
	var req discoverRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	coord := model.Coordinate{Latitude: req.Latitude, Longitude: req.Longitude}
	if err := coord.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.discoverTimeout)
	defer cancel()

	res, err := h.svc.Discover(ctx, req.Latitude, req.Longitude, req.MaxRadiusMiles)
	switch {
	case errors.Is(err, service.ErrNoCandidates):
		writeJSON(w, http.StatusOK, discoverResponse{
			RadiusMiles: res.RadiusMiles,
			Endpoint:    res.Endpoint,
			Message:     service.ErrNoCandidates.Error(),
			Attempts:    res.Attempts,
		})
		return
	case errors.Is(err, discovery.ErrExhaustedSources):
		writeError(w, http.StatusBadGateway, discovery.ErrExhaustedSources.Error())
		return
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "discovery timed out")
		return
	case err != nil:
		zap.L().Error("discover failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "discovery failed")
		return
	}

	writeJSON(w, http.StatusOK, discoverResponse{
		Count:       len(res.Candidates),
		RadiusMiles: res.RadiusMiles,
		Endpoint:    res.Endpoint,
		Attempts:    res.Attempts,
	})
}

func (h *Handler) listCandidates(w http.ResponseWriter, r *http.Request) {
	facets, maxDistance, err := filterParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cands := h.svc.Filter(facets, maxDistance)

	if r.URL.Query().Get("format") == "geojson" {
		data, err := geo.FeatureCollection(cands)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "encode geojson")
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":      len(cands),
		"candidates": cands,
	})
}

func (h *Handler) countCandidates(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("max_distance")
	if raw == "" {
		writeJSON(w, http.StatusOK, map[string]any{
			"facets":  h.svc.Facets(),
			"options": h.svc.CountsByDistance(),
		})
		return
	}
	miles, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "max_distance must be a number")
		return
	}
	writeJSON(w, http.StatusOK, selection.DistanceCount{Miles: miles, Count: h.svc.Count(miles)})
}

type facetsRequest struct {
	Facets []string `json:"facets"`
}

func (h *Handler) setFacets(w http.ResponseWriter, r *http.Request) {
	var req facetsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	facets, err := model.ParseFacets(req.Facets)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.svc.SetFacets(facets)
	h.getFacets(w, r)
}

func (h *Handler) getFacets(w http.ResponseWriter, _ *http.Request) {
	facets := h.svc.Facets()
	if facets == nil {
		facets = []model.Facet{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"facets": facets})
}

type pickRequest struct {
	Facets      []string `json:"facets"`
	MaxDistance *float64 `json:"max_distance"`
}

type pickResponse struct {
	model.Candidate
	MapsURL string `json:"maps_url"`
}

func (h *Handler) pick(w http.ResponseWriter, r *http.Request) {
	var req pickRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	facets, err := model.ParseFacets(req.Facets)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	maxDistance := h.svc.DefaultDistance()
	if req.MaxDistance != nil {
		maxDistance = *req.MaxDistance
	}

	c := h.svc.PickRandom(facets, maxDistance)
	if c == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, pickResponse{Candidate: *c, MapsURL: c.MapsURL()})
}

type visitView struct {
	model.VisitRecord
	Label string `json:"label"`
}

func (h *Handler) listVisits(w http.ResponseWriter, _ *http.Request) {
	visits := h.svc.Visits()
	now := time.Now()
	out := make([]visitView, len(visits))
	for i, v := range visits {
		out[i] = visitView{VisitRecord: v, Label: v.RelativeLabel(now)}
	}
	writeJSON(w, http.StatusOK, map[string]any{"visits": out})
}

func (h *Handler) addVisit(w http.ResponseWriter, r *http.Request) {
	var req model.VisitRecord
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	v, err := h.svc.AddVisit(r.Context(), req)
	if err != nil {
		writeVisitError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *Handler) removeVisit(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveVisit(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeVisitError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type ratingRequest struct {
	Rating int     `json:"rating"`
	Notes  *string `json:"notes"`
}

func (h *Handler) updateVisit(w http.ResponseWriter, r *http.Request) {
	var req ratingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	v, err := h.svc.UpdateVisitRating(r.Context(), chi.URLParam(r, "id"), req.Rating, req.Notes)
	if err != nil {
		writeVisitError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func writeVisitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, selection.ErrVisitNotFound):
		writeError(w, http.StatusNotFound, "visit not found")
	case errors.Is(err, selection.ErrInvalidVisit):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		zap.L().Error("visit update failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not save visit history")
	}
}

func (h *Handler) getLocation(w http.ResponseWriter, _ *http.Request) {
	coord := h.svc.CachedLocation()
	if coord == nil {
		writeError(w, http.StatusNotFound, "no fresh location")
		return
	}
	writeJSON(w, http.StatusOK, coord)
}

func (h *Handler) setLocation(w http.ResponseWriter, r *http.Request) {
	var req model.Coordinate
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.svc.SetCachedLocation(req.Latitude, req.Longitude); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// filterParams reads ?type=dine-in,bar&max_distance=4. A missing
// max_distance means no distance limit.
func filterParams(r *http.Request) ([]model.Facet, float64, error) {
	q := r.URL.Query()
	var raw []string
	for _, v := range q["type"] {
		raw = append(raw, strings.Split(v, ",")...)
	}
	facets, err := model.ParseFacets(raw)
	if err != nil {
		return nil, 0, err
	}

	var maxDistance float64
	if s := q.Get("max_distance"); s != "" {
		maxDistance, err = strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, 0, eris.New("max_distance must be a number")
		}
	}
	return facets, maxDistance, nil
}
