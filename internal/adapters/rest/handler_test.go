package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/scoady/backbeat/internal/adapters/engine"
	"github.com/scoady/backbeat/internal/adapters/sqlite"
	"github.com/scoady/backbeat/internal/core/domain"
	"github.com/scoady/backbeat/internal/core/services"
)

type fakeProber struct {
	mu        sync.Mutex
	submitted []domain.AudioFile
}

func (f *fakeProber) Submit(a domain.AudioFile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, a)
}

func newTestHandler(t *testing.T) (*Handler, *fakeProber) {
	t.Helper()
	adapter, err := sqlite.NewAdapter(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { adapter.Close() })

	log := zaptest.NewLogger(t)
	prober := &fakeProber{}
	h := NewHandler(
		services.NewProjects(adapter, log),
		services.NewLibrary(adapter, log),
		adapter,
		prober,
		log,
	)
	return h, prober
}

func newSessionHandler(t *testing.T) (*Handler, *services.Store) {
	t.Helper()
	adapter, err := sqlite.NewAdapter(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { adapter.Close() })

	log := zaptest.NewLogger(t)
	store := services.NewStore(adapter, nil, log)
	store.LoadOrCreate(context.Background(), "")
	clock := engine.NewBeatClock(120)
	recorder := services.NewRecorder(store, clock, engine.Silent{}, 0, log)

	h := NewHandler(
		services.NewProjects(adapter, log),
		services.NewLibrary(adapter, log),
		adapter,
		nil,
		log,
	)
	h.AttachSession(store, recorder, clock)
	return h, store
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createProject(t *testing.T, h http.Handler, name string) domain.Project {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/projects", map[string]any{"name": name, "bpm": 128})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var p domain.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p
}

func TestHandler_Health(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_ProjectLifecycle(t *testing.T) {
	h, _ := newTestHandler(t)

	p := createProject(t, h, "My Song")
	assert.Equal(t, 128, p.BPM)

	rec := doJSON(t, h, http.MethodGet, "/projects/"+p.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/projects", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var summaries []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summaries))
	require.Len(t, summaries, 1)

	// Replace the whole tree through PUT.
	p.Name = "Renamed"
	rec = doJSON(t, h, http.MethodPut, "/projects/"+p.ID, p)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, h, http.MethodGet, "/projects/"+p.ID, nil)
	var got domain.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Renamed", got.Name)

	rec = doJSON(t, h, http.MethodDelete, "/projects/"+p.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, "/projects/"+p.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_ReplaceRejectsInvalidTree(t *testing.T) {
	h, _ := newTestHandler(t)
	p := createProject(t, h, "Valid")

	// A tree assembled by the client can carry out-of-range entities; none
	// of it may reach storage.
	p.Tracks = []domain.Track{{
		ID:   "t1",
		Name: "keys",
		Type: domain.TrackMIDI,
		Clips: []domain.Clip{{
			ID:            "c1",
			Name:          "riff",
			StartBeat:     0,
			DurationBeats: 4,
			Notes: []domain.Note{{
				ID:            "n1",
				Pitch:         999,
				Velocity:      300,
				StartBeat:     -5,
				DurationBeats: -2,
			}},
		}},
	}}

	rec := doJSON(t, h, http.MethodPut, "/projects/"+p.ID, p)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION", resp.Code)

	// The stored tree is untouched.
	rec = doJSON(t, h, http.MethodGet, "/projects/"+p.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Empty(t, got.Tracks)
}

func TestHandler_GetMissingProject(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doJSON(t, h, http.MethodGet, "/projects/nope", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "NOT_FOUND", resp.Code)
}

func TestHandler_CreateProjectRejectsWrongContentType(t *testing.T) {
	h, _ := newTestHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/projects", bytes.NewBufferString("name=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestHandler_TrackCRUD(t *testing.T) {
	h, _ := newTestHandler(t)
	p := createProject(t, h, "Tracks")

	rec := doJSON(t, h, http.MethodPost, "/projects/"+p.ID+"/tracks", map[string]string{"name": "keys", "type": "midi"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var withTrack domain.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &withTrack))
	require.Len(t, withTrack.Tracks, 1)
	trackID := withTrack.Tracks[0].ID

	// Empty name violates the entity invariant before reaching storage.
	rec = doJSON(t, h, http.MethodPost, "/projects/"+p.ID+"/tracks", map[string]string{"name": ""})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION", resp.Code)

	armed := true
	volume := 2.5 // clamped server-side
	rec = doJSON(t, h, http.MethodPut, fmt.Sprintf("/projects/%s/tracks/%s", p.ID, trackID), updateTrackRequest{Armed: &armed, Volume: &volume})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated domain.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.True(t, updated.Tracks[0].Armed)
	assert.Equal(t, 1.0, updated.Tracks[0].Volume)

	rec = doJSON(t, h, http.MethodDelete, fmt.Sprintf("/projects/%s/tracks/%s", p.ID, trackID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var afterDelete domain.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &afterDelete))
	assert.Empty(t, afterDelete.Tracks)

	rec = doJSON(t, h, http.MethodDelete, fmt.Sprintf("/projects/%s/tracks/%s", p.ID, "missing"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_LibraryClips(t *testing.T) {
	h, _ := newTestHandler(t)

	clip := map[string]any{
		"name":          "Funky Bassline",
		"category":      "bass",
		"durationBeats": 4,
		"bpm":           110,
		"tags":          "funk, groove",
		"notes": []map[string]any{
			{"pitch": 40, "startBeat": 0, "durationBeats": 0.5, "velocity": 110},
		},
	}
	rec := doJSON(t, h, http.MethodPost, "/library/clips", clip)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var saved domain.LibraryClip
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
	require.NotEmpty(t, saved.ID)

	rec = doJSON(t, h, http.MethodGet, "/library/clips?category=bass", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []domain.LibraryClip
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Len(t, listed[0].Notes, 1)

	rec = doJSON(t, h, http.MethodGet, "/library/clips?search=piano", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Empty(t, listed)

	// Out-of-range note velocity is rejected as a validation error.
	bad := map[string]any{
		"name": "Bad", "durationBeats": 4,
		"notes": []map[string]any{{"pitch": 60, "startBeat": 0, "durationBeats": 1, "velocity": 200}},
	}
	rec = doJSON(t, h, http.MethodPost, "/library/clips", bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, "/library/clips/"+saved.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = doJSON(t, h, http.MethodDelete, "/library/clips/"+saved.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_SessionControlSurface(t *testing.T) {
	h, store := newSessionHandler(t)

	// Recording cannot start before a recordable track exists.
	rec := doJSON(t, h, http.MethodPost, "/session/record/start", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION", resp.Code)

	rec = doJSON(t, h, http.MethodPost, "/session/tracks", map[string]string{"name": "keys"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var track domain.Track
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &track))
	assert.Equal(t, domain.TrackMIDI, track.Type)

	rec = doJSON(t, h, http.MethodPost, "/session/tracks/"+track.ID+"/arm", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = doJSON(t, h, http.MethodPost, "/session/tracks/missing/arm", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodPut, "/session/bpm", setBPMRequest{BPM: 999})
	require.Equal(t, http.StatusOK, rec.Code)
	var bpm setBPMRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bpm))
	assert.Equal(t, domain.MaxBPM, bpm.BPM)

	rec = doJSON(t, h, http.MethodPost, "/transport/play", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = doJSON(t, h, http.MethodPost, "/session/record/start", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, h, http.MethodGet, "/transport", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var state transportState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.True(t, state.Playing)
	assert.True(t, state.Recording)

	// Stopping the transport ends the recording session with it.
	rec = doJSON(t, h, http.MethodPost, "/transport/stop", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = doJSON(t, h, http.MethodGet, "/transport", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.False(t, state.Playing)
	assert.False(t, state.Recording)

	// The session tree survives an explicit save and is readable through
	// the persistence surface.
	rec = doJSON(t, h, http.MethodPost, "/session/save", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = doJSON(t, h, http.MethodGet, "/projects/"+store.Snapshot().ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var saved domain.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
	require.Len(t, saved.Tracks, 1)
	assert.True(t, saved.Tracks[0].Armed)

	rec = doJSON(t, h, http.MethodDelete, "/session/tracks/"+track.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = doJSON(t, h, http.MethodDelete, "/session/tracks/"+track.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_AudioUploadAndFetch(t *testing.T) {
	h, prober := newTestHandler(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "kick.wav")
	require.NoError(t, err)
	payload := []byte{0x52, 0x49, 0x46, 0x46, 0x00, 0x01}
	_, err = fw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/audio", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var asset domain.AudioFile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &asset))
	assert.Equal(t, "kick.wav", asset.Filename)
	assert.EqualValues(t, len(payload), asset.SizeBytes)

	prober.mu.Lock()
	assert.Len(t, prober.submitted, 1)
	prober.mu.Unlock()

	rec = doJSON(t, h, http.MethodGet, "/audio/"+asset.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, payload, rec.Body.Bytes())

	rec = doJSON(t, h, http.MethodGet, "/audio", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var files []domain.AudioFile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &files))
	require.Len(t, files, 1)

	rec = doJSON(t, h, http.MethodGet, "/audio/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
