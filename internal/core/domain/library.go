package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// LibraryClip is a reusable, unparented clip saved to the user's preset
// catalog. It carries the same note shape as a project clip but has no track.
type LibraryClip struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Category      string  `json:"category"`
	ClipType      string  `json:"clipType"`
	DurationBeats float64 `json:"durationBeats"`
	BPM           int     `json:"bpm"`
	Color         string  `json:"color,omitempty"`
	AudioFileID   string  `json:"audioFileId,omitempty"`
	Tags          string  `json:"tags,omitempty"`
	Notes         []Note  `json:"notes"`
}

// NewLibraryClip constructs a library clip with a generated id.
func NewLibraryClip(name, category string, durationBeats float64, bpm int) (*LibraryClip, error) {
	if name == "" {
		return nil, ValidationError{Entity: "libraryClip", Field: "name", Reason: "must not be empty"}
	}
	if durationBeats <= 0 {
		return nil, ValidationError{Entity: "libraryClip", Field: "durationBeats", Reason: "must be positive"}
	}
	return &LibraryClip{
		ID:            uuid.NewString(),
		Name:          name,
		Category:      category,
		ClipType:      "midi",
		DurationBeats: durationBeats,
		BPM:           ClampBPM(bpm),
		Notes:         []Note{},
	}, nil
}

// MatchesFilter applies the catalog query semantics: category is an exact
// match when given; search matches a name substring or any tag,
// case-insensitively.
func (lc *LibraryClip) MatchesFilter(category, search string) bool {
	if category != "" && lc.Category != category {
		return false
	}
	if search == "" {
		return true
	}
	q := strings.ToLower(search)
	if strings.Contains(strings.ToLower(lc.Name), q) {
		return true
	}
	for _, tag := range strings.Split(lc.Tags, ",") {
		if strings.Contains(strings.ToLower(strings.TrimSpace(tag)), q) {
			return true
		}
	}
	return false
}

// AudioFile is an opaque binary asset with metadata. The payload is never
// interpreted here; duration and sample rate are filled in by the probe
// worker when the mime type is understood.
type AudioFile struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	MimeType     string    `json:"mimeType"`
	SizeBytes    int64     `json:"sizeBytes"`
	DurationSecs float64   `json:"durationSecs,omitempty"`
	SampleRate   int       `json:"sampleRate,omitempty"`
	Data         []byte    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NewAudioFile constructs an audio asset from an uploaded payload.
func NewAudioFile(filename, mimeType string, data []byte) (*AudioFile, error) {
	if filename == "" {
		return nil, ValidationError{Entity: "audioFile", Field: "filename", Reason: "must not be empty"}
	}
	if len(data) == 0 {
		return nil, ValidationError{Entity: "audioFile", Field: "data", Reason: "must not be empty"}
	}
	return &AudioFile{
		ID:        uuid.NewString(),
		Filename:  filename,
		MimeType:  mimeType,
		SizeBytes: int64(len(data)),
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}, nil
}
