package rest

import (
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/scoady/backbeat/internal/core/domain"
)

const maxUploadBytes = 64 << 20

// UploadAudio handles POST /audio (multipart, file field "file"). The payload
// is stored opaquely; duration/sample rate are filled in by the probe.
func (h *Handler) UploadAudio(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "multipart form required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	asset, err := domain.NewAudioFile(header.Filename, mimeType, data)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	if err := h.audio.SaveAudioFile(r.Context(), *asset); err != nil {
		respondDomainError(w, err)
		return
	}
	if h.prober != nil {
		h.prober.Submit(*asset)
	}
	h.log.Info("audio uploaded", zap.String("audio", asset.ID), zap.Int64("bytes", asset.SizeBytes))

	w.Header().Set("Location", "/audio/"+asset.ID)
	writeJSON(w, http.StatusCreated, asset)
}

// ListAudioFiles handles GET /audio (metadata only).
func (h *Handler) ListAudioFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.audio.ListAudioFiles(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

// GetAudio handles GET /audio/{id}, serving the payload with its stored mime
// type.
func (h *Handler) GetAudio(w http.ResponseWriter, r *http.Request) {
	f, err := h.audio.LoadAudioFile(r.Context(), r.PathValue("id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", f.MimeType)
	w.Header().Set("Content-Length", strconv.FormatInt(f.SizeBytes, 10))
	w.WriteHeader(http.StatusOK)
	w.Write(f.Data)
}
