package rest

import (
	"encoding/json"
	"net/http"

	"github.com/scoady/backbeat/internal/core/domain"
)

// ListLibraryClips handles GET /library/clips?category=&search=
func (h *Handler) ListLibraryClips(w http.ResponseWriter, r *http.Request) {
	clips, err := h.library.List(r.Context(), r.URL.Query().Get("category"), r.URL.Query().Get("search"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clips)
}

// SaveLibraryClip handles POST /library/clips. Insert or overwrite-by-id.
func (h *Handler) SaveLibraryClip(w http.ResponseWriter, r *http.Request) {
	if !isJSONContentType(r) {
		writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}

	var clip domain.LibraryClip
	if err := json.NewDecoder(r.Body).Decode(&clip); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	saved, err := h.library.Save(r.Context(), clip)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	w.Header().Set("Location", "/library/clips/"+saved.ID)
	writeJSON(w, http.StatusCreated, saved)
}

// DeleteLibraryClip handles DELETE /library/clips/{id}
func (h *Handler) DeleteLibraryClip(w http.ResponseWriter, r *http.Request) {
	existed, err := h.library.Delete(r.Context(), r.PathValue("id"))
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
