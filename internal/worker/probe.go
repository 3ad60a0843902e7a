package worker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/hajimehoshi/go-mp3"
	"go.uber.org/zap"

	"github.com/scoady/backbeat/internal/core/domain"
	"github.com/scoady/backbeat/internal/core/ports"
)

// Probe fills in duration and sample-rate metadata for uploaded audio assets
// by decoding them off the request path. Only MP3 payloads are understood;
// everything else keeps empty metadata.
type Probe struct {
	store ports.AudioStore
	log   *zap.Logger
	jobs  chan domain.AudioFile
	wg    sync.WaitGroup
}

// NewProbe creates a probe with the given queue capacity.
func NewProbe(store ports.AudioStore, queueSize int, log *zap.Logger) *Probe {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Probe{store: store, log: log, jobs: make(chan domain.AudioFile, queueSize)}
}

// Start launches the worker goroutines.
func (p *Probe) Start(workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for f := range p.jobs {
				p.process(f)
			}
		}()
	}
}

// Stop waits for workers to finish after closing the queue.
func (p *Probe) Stop() {
	close(p.jobs)
	p.wg.Wait()
}

// Submit queues an asset without blocking.
func (p *Probe) Submit(f domain.AudioFile) {
	select {
	case p.jobs <- f:
	default:
		p.log.Warn("probe queue full, skipping asset", zap.String("audio", f.ID))
	}
}

func (p *Probe) process(f domain.AudioFile) {
	if f.MimeType != "audio/mpeg" && f.MimeType != "audio/mp3" {
		p.log.Debug("no prober for mime type, skipping", zap.String("audio", f.ID), zap.String("mime", f.MimeType))
		return
	}

	duration, rate, err := decodeMP3Func(bytes.NewReader(f.Data))
	if err != nil {
		p.log.Warn("audio probe failed", zap.String("audio", f.ID), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.store.UpdateAudioInfo(ctx, f.ID, duration, rate); err != nil {
		p.log.Warn("audio metadata update failed", zap.String("audio", f.ID), zap.Error(err))
		return
	}
	p.log.Info("audio probed", zap.String("audio", f.ID),
		zap.Float64("durationSecs", duration), zap.Int("sampleRate", rate))
}

func decodeMP3(r io.Reader) (durationSecs float64, sampleRate int, err error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return 0, 0, fmt.Errorf("mp3 decode failed: %w", err)
	}

	// Decoded stream is 16-bit stereo: 4 bytes per sample frame.
	buf := make([]byte, 4096)
	var total int64
	for {
		n, err := decoder.Read(buf)
		total += int64(n)
		if err != nil {
			if err == io.EOF {
				break
			}
			return 0, 0, fmt.Errorf("mp3 read failed: %w", err)
		}
	}
	if total == 0 {
		return 0, 0, fmt.Errorf("mp3 contains no samples")
	}

	rate := decoder.SampleRate()
	return float64(total) / float64(4*rate), rate, nil
}

// decodeMP3Func allows tests to override the decoder implementation.
var decodeMP3Func = decodeMP3
