package rest

import (
	"encoding/json"
	"net/http"

	"github.com/scoady/backbeat/internal/core/domain"
	"github.com/scoady/backbeat/internal/core/services"
)

// TransportControl drives the beat clock of the live session.
type TransportControl interface {
	Play()
	Stop()
	Rewind()
	SetBPM(bpm int)
	BeatNow() float64
	Playing() bool
}

// RecordControl starts and stops capture sessions.
type RecordControl interface {
	Start() error
	Stop()
	Recording() bool
}

// AttachSession registers the live-session routes. Without it the handler
// serves only the persistence surface; with it the browser can edit the
// session tree, drive the transport and run recording sessions.
func (h *Handler) AttachSession(store *services.Store, recorder RecordControl, transport TransportControl) {
	h.store = store
	h.recorder = recorder
	h.transport = transport

	h.router.HandleFunc("GET /session", h.GetSession)
	h.router.HandleFunc("POST /session/save", h.SaveSession)
	h.router.HandleFunc("PUT /session/bpm", h.SetSessionBPM)
	h.router.HandleFunc("POST /session/tracks", h.AddSessionTrack)
	h.router.HandleFunc("DELETE /session/tracks/{trackID}", h.DeleteSessionTrack)
	h.router.HandleFunc("POST /session/tracks/{trackID}/arm", h.ArmSessionTrack)

	h.router.HandleFunc("GET /transport", h.GetTransport)
	h.router.HandleFunc("POST /transport/play", h.TransportPlay)
	h.router.HandleFunc("POST /transport/stop", h.TransportStop)
	h.router.HandleFunc("POST /transport/rewind", h.TransportRewind)

	h.router.HandleFunc("POST /session/record/start", h.StartRecording)
	h.router.HandleFunc("POST /session/record/stop", h.StopRecording)
}

// GetSession handles GET /session: the live tree as the recorder sees it.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Snapshot())
}

// SaveSession handles POST /session/save: an explicit synchronous save.
func (h *Handler) SaveSession(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Save(r.Context()); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setBPMRequest struct {
	BPM int `json:"bpm"`
}

// SetSessionBPM handles PUT /session/bpm: tempo for both the tree and the
// running clock.
func (h *Handler) SetSessionBPM(w http.ResponseWriter, r *http.Request) {
	if !isJSONContentType(r) {
		writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}
	var req setBPMRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	bpm := h.store.SetBPM(req.BPM)
	h.transport.SetBPM(bpm)
	h.store.QueueSave()
	writeJSON(w, http.StatusOK, setBPMRequest{BPM: bpm})
}

// AddSessionTrack handles POST /session/tracks.
func (h *Handler) AddSessionTrack(w http.ResponseWriter, r *http.Request) {
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
	track, err := h.store.AddTrack(req.Name, domain.TrackType(req.Type))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	h.store.QueueSave()
	writeJSON(w, http.StatusCreated, track)
}

// DeleteSessionTrack handles DELETE /session/tracks/{trackID}.
func (h *Handler) DeleteSessionTrack(w http.ResponseWriter, r *http.Request) {
	if !h.store.RemoveTrack(r.PathValue("trackID")) {
		writeErrorWithCode(w, http.StatusNotFound, "not found", "NOT_FOUND")
		return
	}
	h.store.QueueSave()
	w.WriteHeader(http.StatusNoContent)
}

// ArmSessionTrack handles POST /session/tracks/{trackID}/arm: exclusive
// record arming.
func (h *Handler) ArmSessionTrack(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Arm(r.PathValue("trackID")); err != nil {
		respondDomainError(w, err)
		return
	}
	h.store.QueueSave()
	w.WriteHeader(http.StatusNoContent)
}

type transportState struct {
	Beat      float64 `json:"beat"`
	Playing   bool    `json:"playing"`
	Recording bool    `json:"recording"`
}

// GetTransport handles GET /transport.
func (h *Handler) GetTransport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, transportState{
		Beat:      h.transport.BeatNow(),
		Playing:   h.transport.Playing(),
		Recording: h.recorder.Recording(),
	})
}

// TransportPlay handles POST /transport/play.
func (h *Handler) TransportPlay(w http.ResponseWriter, r *http.Request) {
	h.transport.Play()
	w.WriteHeader(http.StatusNoContent)
}

// TransportStop handles POST /transport/stop. A running recording session
// ends with the transport.
func (h *Handler) TransportStop(w http.ResponseWriter, r *http.Request) {
	if h.recorder.Recording() {
		h.recorder.Stop()
	}
	h.transport.Stop()
	w.WriteHeader(http.StatusNoContent)
}

// TransportRewind handles POST /transport/rewind.
func (h *Handler) TransportRewind(w http.ResponseWriter, r *http.Request) {
	h.transport.Rewind()
	w.WriteHeader(http.StatusNoContent)
}

// StartRecording handles POST /session/record/start.
func (h *Handler) StartRecording(w http.ResponseWriter, r *http.Request) {
	if err := h.recorder.Start(); err != nil {
		respondDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transportState{
		Beat:      h.transport.BeatNow(),
		Playing:   h.transport.Playing(),
		Recording: true,
	})
}

// StopRecording handles POST /session/record/stop.
func (h *Handler) StopRecording(w http.ResponseWriter, r *http.Request) {
	h.recorder.Stop()
	h.store.QueueSave()
	w.WriteHeader(http.StatusNoContent)
}
