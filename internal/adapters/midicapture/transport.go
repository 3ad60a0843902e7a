// Package midicapture normalizes raw MIDI input into note events, decoupled
// from any particular device or driver.
package midicapture

import (
	"fmt"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver

	"github.com/scoady/backbeat/internal/core/domain"
)

// PortInfo identifies one input port offered by a Transport.
type PortInfo struct {
	ID           string
	Name         string
	Manufacturer string
}

// Transport is the raw MIDI layer beneath the capture service. The production
// implementation wraps gomidi; tests supply a fake.
type Transport interface {
	// Ports enumerates currently connected input ports. It returns
	// domain.ErrUnsupported when the platform has no MIDI access.
	Ports() ([]PortInfo, error)
	// Listen attaches a callback for raw messages from one port and returns
	// a stop function. After stop returns, no further callbacks are made.
	Listen(portID string, fn func(raw []byte, ts time.Time)) (func(), error)
}

// RtmidiTransport is the gomidi/rtmidi-backed Transport.
type RtmidiTransport struct{}

// NewRtmidiTransport returns the production transport.
func NewRtmidiTransport() *RtmidiTransport {
	return &RtmidiTransport{}
}

func (t *RtmidiTransport) Ports() ([]PortInfo, error) {
	if drivers.Get() == nil {
		return nil, domain.ErrUnsupported
	}
	ins := gomidi.GetInPorts()
	infos := make([]PortInfo, 0, len(ins))
	for _, in := range ins {
		infos = append(infos, PortInfo{
			ID:   fmt.Sprintf("in-%d", in.Number()),
			Name: in.String(),
		})
	}
	return infos, nil
}

func (t *RtmidiTransport) Listen(portID string, fn func(raw []byte, ts time.Time)) (func(), error) {
	if drivers.Get() == nil {
		return nil, domain.ErrUnsupported
	}
	for _, in := range gomidi.GetInPorts() {
		if fmt.Sprintf("in-%d", in.Number()) != portID {
			continue
		}
		stop, err := gomidi.ListenTo(in, func(msg gomidi.Message, timestampms int32) {
			fn(msg.Bytes(), time.Now())
		})
		if err != nil {
			return nil, fmt.Errorf("open input %s: %w", portID, err)
		}
		return stop, nil
	}
	return nil, fmt.Errorf("midi port %s: %w", portID, domain.ErrNotFound)
}
