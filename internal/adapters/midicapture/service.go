package midicapture

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/scoady/backbeat/internal/core/ports"
)

// Channel-voice status nibbles.
const (
	statusNoteOff = 0x80
	statusNoteOn  = 0x90
)

const defaultPollInterval = 2 * time.Second

// Service implements ports.Capture over a Transport. Construct one per
// composition; there is no package-level instance.
type Service struct {
	log       *zap.Logger
	transport Transport
	poll      time.Duration

	// selMu serializes device switches end to end. SelectDevice releases
	// s.mu around transport.Listen; without this, a switch requested by the
	// hot-plug watcher can interleave with one from the UI and leave
	// listeners attached to two ports.
	selMu sync.Mutex

	mu          sync.Mutex
	initialized bool
	supported   bool
	disposed    bool
	devices     map[string]ports.DeviceInfo
	order       []string
	selectedID  string
	stopListen  func()
	stopWatch   chan struct{}

	nextSub  int
	onNoteOn map[int]func(ports.NoteEvent)
	onNoteOf map[int]func(ports.NoteEvent)
	onDevice map[int]func([]ports.DeviceInfo)
}

// Option configures a Service.
type Option func(*Service)

// WithPollInterval overrides the hot-plug polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(s *Service) { s.poll = d }
}

// NewService constructs a capture service over the given transport.
func NewService(transport Transport, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		log:       log,
		transport: transport,
		poll:      defaultPollInterval,
		devices:   make(map[string]ports.DeviceInfo),
		onNoteOn:  make(map[int]func(ports.NoteEvent)),
		onNoteOf:  make(map[int]func(ports.NoteEvent)),
		onDevice:  make(map[int]func([]ports.DeviceInfo)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize probes the transport once and reports whether MIDI input is
// available. On unsupported platforms the service stays alive as a no-op.
func (s *Service) Initialize() bool {
	s.mu.Lock()
	if s.initialized || s.disposed {
		supported := s.supported
		s.mu.Unlock()
		return supported
	}
	s.initialized = true
	s.mu.Unlock()

	if _, err := s.transport.Ports(); err != nil {
		s.log.Warn("midi unavailable, capture disabled", zap.Error(err))
		return false
	}

	s.mu.Lock()
	s.supported = true
	s.stopWatch = make(chan struct{})
	stop := s.stopWatch
	s.mu.Unlock()

	s.rescan()
	go s.watch(stop)
	return true
}

func (s *Service) watch(stop chan struct{}) {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.rescan()
		}
	}
}

// rescan diffs the transport's port set against the known devices, marking
// vanished ones disconnected and notifying subscribers on any change. If the
// selected device vanished, the first remaining connected device takes over.
func (s *Service) rescan() {
	infos, err := s.transport.Ports()
	if err != nil {
		return
	}

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}

	seen := make(map[string]bool, len(infos))
	changed := false
	for _, info := range infos {
		seen[info.ID] = true
		prev, known := s.devices[info.ID]
		if !known {
			s.order = append(s.order, info.ID)
			changed = true
		} else if prev.State != ports.DeviceConnected {
			changed = true
		}
		s.devices[info.ID] = ports.DeviceInfo{
			ID:           info.ID,
			Name:         info.Name,
			Manufacturer: info.Manufacturer,
			State:        ports.DeviceConnected,
		}
	}
	for id, d := range s.devices {
		if !seen[id] && d.State == ports.DeviceConnected {
			d.State = ports.DeviceDisconnected
			s.devices[id] = d
			changed = true
		}
	}

	var reselect string
	if s.selectedID != "" && !seen[s.selectedID] {
		s.detachLocked()
		for _, id := range s.order {
			if s.devices[id].State == ports.DeviceConnected {
				reselect = id
				break
			}
		}
		changed = true
	}

	var snapshot []ports.DeviceInfo
	var subs []func([]ports.DeviceInfo)
	if changed {
		snapshot = s.snapshotLocked()
		subs = make([]func([]ports.DeviceInfo), 0, len(s.onDevice))
		for _, fn := range s.onDevice {
			subs = append(subs, fn)
		}
	}
	s.mu.Unlock()

	if reselect != "" {
		if err := s.SelectDevice(reselect); err != nil {
			s.log.Warn("auto-select failed", zap.String("device", reselect), zap.Error(err))
		} else {
			s.log.Info("selected device disconnected, switched input", zap.String("device", reselect))
		}
	}
	for _, fn := range subs {
		fn(snapshot)
	}
}

func (s *Service) snapshotLocked() []ports.DeviceInfo {
	out := make([]ports.DeviceInfo, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.devices[id])
	}
	return out
}

// ListDevices returns the current device list. Empty on unsupported
// platforms.
func (s *Service) ListDevices() []ports.DeviceInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.supported {
		return []ports.DeviceInfo{}
	}
	return s.snapshotLocked()
}

// SelectDevice attaches the raw listener to exactly one device; the empty id
// detaches. The previous listener is stopped before this call returns, so no
// stale events are delivered afterwards. Overlapping calls run one at a time.
func (s *Service) SelectDevice(id string) error {
	s.selMu.Lock()
	defer s.selMu.Unlock()

	s.mu.Lock()
	if !s.supported || s.disposed {
		s.mu.Unlock()
		return nil
	}
	s.detachLocked()
	if id == "" {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	stop, err := s.transport.Listen(id, s.handleRaw)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		stop()
		return nil
	}
	s.selectedID = id
	s.stopListen = stop
	s.mu.Unlock()
	s.log.Debug("midi input attached", zap.String("device", id))
	return nil
}

// detachLocked stops the active listener. Caller holds s.mu.
func (s *Service) detachLocked() {
	if s.stopListen != nil {
		s.stopListen()
		s.stopListen = nil
	}
	s.selectedID = ""
}

func (s *Service) handleRaw(raw []byte, ts time.Time) {
	ev, kind := decodeMessage(raw)
	if kind == msgIgnore {
		return
	}
	ev.Timestamp = ts

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	var subs []func(ports.NoteEvent)
	switch kind {
	case msgNoteOn:
		for _, fn := range s.onNoteOn {
			subs = append(subs, fn)
		}
	case msgNoteOff:
		for _, fn := range s.onNoteOf {
			subs = append(subs, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

const (
	msgIgnore = iota
	msgNoteOn
	msgNoteOff
)

// decodeMessage classifies a raw channel-voice message. Status high nibble
// 0x9 with velocity > 0 is Note On; 0x8, or 0x9 with velocity 0, is Note Off.
// Anything shorter than 3 bytes, or any other status, is ignored.
func decodeMessage(raw []byte) (ports.NoteEvent, int) {
	if len(raw) < 3 {
		return ports.NoteEvent{}, msgIgnore
	}
	status := raw[0] & 0xF0
	channel := raw[0] & 0x0F
	pitch := raw[1] & 0x7F
	velocity := raw[2] & 0x7F

	ev := ports.NoteEvent{Pitch: pitch, Velocity: velocity, Channel: channel}
	switch {
	case status == statusNoteOn && velocity > 0:
		return ev, msgNoteOn
	case status == statusNoteOff, status == statusNoteOn && velocity == 0:
		return ev, msgNoteOff
	default:
		return ports.NoteEvent{}, msgIgnore
	}
}

// OnNoteOn subscribes to decoded Note On events.
func (s *Service) OnNoteOn(fn func(ports.NoteEvent)) ports.Unsubscribe {
	return s.subscribe(s.onNoteOn, fn)
}

// OnNoteOff subscribes to decoded Note Off events.
func (s *Service) OnNoteOff(fn func(ports.NoteEvent)) ports.Unsubscribe {
	return s.subscribe(s.onNoteOf, fn)
}

// OnDeviceChange subscribes to device list updates.
func (s *Service) OnDeviceChange(fn func([]ports.DeviceInfo)) ports.Unsubscribe {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.onDevice[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.onDevice, id)
		s.mu.Unlock()
	}
}

func (s *Service) subscribe(reg map[int]func(ports.NoteEvent), fn func(ports.NoteEvent)) ports.Unsubscribe {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	reg[id] = fn
	s.mu.Unlock()
	return func() {
		// Deleting twice is harmless, so the handle is safe to call again.
		s.mu.Lock()
		delete(reg, id)
		s.mu.Unlock()
	}
}

// Dispose detaches the listener, stops the hot-plug watcher and clears all
// subscribers. Idempotent.
func (s *Service) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	s.detachLocked()
	if s.stopWatch != nil {
		close(s.stopWatch)
		s.stopWatch = nil
	}
	s.onNoteOn = make(map[int]func(ports.NoteEvent))
	s.onNoteOf = make(map[int]func(ports.NoteEvent))
	s.onDevice = make(map[int]func([]ports.DeviceInfo))
	s.mu.Unlock()
}
