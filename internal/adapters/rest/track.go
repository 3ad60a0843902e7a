package rest

import (
	"encoding/json"
	"net/http"

	"github.com/scoady/backbeat/internal/core/domain"
	"github.com/scoady/backbeat/internal/core/services"
)

type addTrackRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type updateTrackRequest struct {
	Name   *string  `json:"name,omitempty"`
	Color  *string  `json:"color,omitempty"`
	Volume *float64 `json:"volume,omitempty"`
	Pan    *float64 `json:"pan,omitempty"`
	Muted  *bool    `json:"muted,omitempty"`
	Solo   *bool    `json:"solo,omitempty"`
	Armed  *bool    `json:"armed,omitempty"`
}

// AddTrack handles POST /projects/{id}/tracks
func (h *Handler) AddTrack(w http.ResponseWriter, r *http.Request) {
	if !isJSONContentType(r) {
		writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}

	var req addTrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Type == "" {
		req.Type = string(domain.TrackMIDI)
	}

	project, err := h.projects.AddTrack(r.Context(), r.PathValue("id"), req.Name, domain.TrackType(req.Type))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

// UpdateTrack handles PUT /projects/{id}/tracks/{trackID}
func (h *Handler) UpdateTrack(w http.ResponseWriter, r *http.Request) {
	if !isJSONContentType(r) {
		writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}

	var req updateTrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	project, err := h.projects.UpdateTrack(r.Context(), r.PathValue("id"), r.PathValue("trackID"), services.TrackUpdate{
		Name:   req.Name,
		Color:  req.Color,
		Volume: req.Volume,
		Pan:    req.Pan,
		Muted:  req.Muted,
		Solo:   req.Solo,
		Armed:  req.Armed,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// DeleteTrack handles DELETE /projects/{id}/tracks/{trackID}
func (h *Handler) DeleteTrack(w http.ResponseWriter, r *http.Request) {
	project, err := h.projects.DeleteTrack(r.Context(), r.PathValue("id"), r.PathValue("trackID"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}
