package rest

import (
	"encoding/json"
	"net/http"

	"github.com/scoady/backbeat/internal/core/domain"
)

type createProjectRequest struct {
	Name     string `json:"name"`
	BPM      int    `json:"bpm"`
	TimeSigN int    `json:"timeSigN"`
	TimeSigD int    `json:"timeSigD"`
}

// ListProjects handles GET /projects
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.projects.List(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

// CreateProject handles POST /projects
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	if !isJSONContentType(r) {
		writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}

	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.BPM == 0 {
		req.BPM = 120
	}
	if req.TimeSigN == 0 {
		req.TimeSigN = 4
	}
	if req.TimeSigD == 0 {
		req.TimeSigD = 4
	}

	project, err := h.projects.Create(r.Context(), req.Name, req.BPM, req.TimeSigN, req.TimeSigD)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	w.Header().Set("Location", "/projects/"+project.ID)
	writeJSON(w, http.StatusCreated, project)
}

// GetProject handles GET /projects/{id}
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	project, err := h.projects.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// ReplaceProject handles PUT /projects/{id}: the incoming tree replaces the
// stored one wholesale.
func (h *Handler) ReplaceProject(w http.ResponseWriter, r *http.Request) {
	if !isJSONContentType(r) {
		writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}

	var tree domain.Project
	if err := json.NewDecoder(r.Body).Decode(&tree); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	tree.ID = r.PathValue("id")

	saved, err := h.projects.Replace(r.Context(), tree)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// DeleteProject handles DELETE /projects/{id}
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	existed, err := h.projects.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if !existed {
		writeErrorWithCode(w, http.StatusNotFound, "not found", "NOT_FOUND")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
