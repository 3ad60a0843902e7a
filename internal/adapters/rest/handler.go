// Package rest is the HTTP boundary the browser client persists through.
package rest

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/scoady/backbeat/internal/core/domain"
	"github.com/scoady/backbeat/internal/core/ports"
	"github.com/scoady/backbeat/internal/core/services"
)

// AudioProber receives uploaded assets for background metadata probing.
type AudioProber interface {
	Submit(f domain.AudioFile)
}

// Handler manages the HTTP interface for our application.
type Handler struct {
	projects *services.Projects
	library  *services.Library
	audio    ports.AudioStore
	prober   AudioProber // may be nil
	log      *zap.Logger
	router   *http.ServeMux

	// Live-session collaborators, set by AttachSession.
	store     *services.Store
	recorder  RecordControl
	transport TransportControl
}

// NewHandler initializes the HTTP adapter and sets up routes.
func NewHandler(projects *services.Projects, library *services.Library, audio ports.AudioStore, prober AudioProber, log *zap.Logger) *Handler {
	h := &Handler{
		projects: projects,
		library:  library,
		audio:    audio,
		prober:   prober,
		log:      log,
		router:   http.NewServeMux(),
	}

	h.routes()

	return h
}

// ServeHTTP satisfies the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// routes defines the mapping between URLs and methods.
func (h *Handler) routes() {
	h.router.HandleFunc("GET /health", h.HealthCheck)

	h.router.HandleFunc("GET /projects", h.ListProjects)
	h.router.HandleFunc("POST /projects", h.CreateProject)
	h.router.HandleFunc("GET /projects/{id}", h.GetProject)
	h.router.HandleFunc("PUT /projects/{id}", h.ReplaceProject)
	h.router.HandleFunc("DELETE /projects/{id}", h.DeleteProject)

	h.router.HandleFunc("POST /projects/{id}/tracks", h.AddTrack)
	h.router.HandleFunc("PUT /projects/{id}/tracks/{trackID}", h.UpdateTrack)
	h.router.HandleFunc("DELETE /projects/{id}/tracks/{trackID}", h.DeleteTrack)

	h.router.HandleFunc("GET /library/clips", h.ListLibraryClips)
	h.router.HandleFunc("POST /library/clips", h.SaveLibraryClip)
	h.router.HandleFunc("DELETE /library/clips/{id}", h.DeleteLibraryClip)

	h.router.HandleFunc("GET /audio", h.ListAudioFiles)
	h.router.HandleFunc("POST /audio", h.UploadAudio)
	h.router.HandleFunc("GET /audio/{id}", h.GetAudio)
}

// HealthCheck is a simple endpoint to verify the API is running.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
