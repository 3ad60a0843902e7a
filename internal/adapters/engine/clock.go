// Package engine holds the transport-clock and sound-engine collaborators of
// the recording pipeline.
package engine

import (
	"sync"
	"time"
)

// BeatClock converts wall-clock time into a monotonically increasing beat
// position while playing. Stopping freezes the position; changing the tempo
// re-anchors so the position never jumps.
type BeatClock struct {
	mu      sync.Mutex
	bpm     float64
	playing bool
	anchor  time.Time
	beat    float64 // position at the anchor

	now func() time.Time
}

// NewBeatClock constructs a stopped clock at beat 0.
func NewBeatClock(bpm int) *BeatClock {
	return &BeatClock{bpm: float64(bpm), now: time.Now}
}

// Play starts advancing the beat position from where it stopped.
func (c *BeatClock) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playing {
		return
	}
	c.anchor = c.now()
	c.playing = true
}

// Stop freezes the beat position.
func (c *BeatClock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.playing {
		return
	}
	c.beat = c.beatAtLocked(c.now())
	c.playing = false
}

// Rewind resets the position to beat 0. Play state is unchanged.
func (c *BeatClock) Rewind() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.beat = 0
	c.anchor = c.now()
}

// SetBPM changes the tempo without moving the current position.
func (c *BeatClock) SetBPM(bpm int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.beat = c.beatAtLocked(now)
	c.anchor = now
	c.bpm = float64(bpm)
}

// BeatNow returns the current beat position.
func (c *BeatClock) BeatNow() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.beatAtLocked(c.now())
}

// Playing reports whether the transport is running.
func (c *BeatClock) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

func (c *BeatClock) beatAtLocked(now time.Time) float64 {
	if !c.playing {
		return c.beat
	}
	return c.beat + now.Sub(c.anchor).Minutes()*c.bpm
}
