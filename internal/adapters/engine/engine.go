package engine

import (
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"

	"go.uber.org/zap"
)

// MIDIOut triggers notes on an external synth through a MIDI output port.
type MIDIOut struct {
	log     *zap.Logger
	send    func(msg gomidi.Message) error
	channel uint8
}

// NewMIDIOut opens the named output port. Returns an error when the port is
// missing or the platform has no MIDI access.
func NewMIDIOut(portName string, channel uint8, log *zap.Logger) (*MIDIOut, error) {
	out, err := gomidi.FindOutPort(portName)
	if err != nil {
		return nil, fmt.Errorf("find out port %q: %w", portName, err)
	}
	send, err := gomidi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("open out port %q: %w", portName, err)
	}
	return &MIDIOut{log: log, send: send, channel: channel}, nil
}

func (e *MIDIOut) NoteOn(pitch, velocity uint8) {
	if err := e.send(gomidi.NoteOn(e.channel, pitch, velocity)); err != nil {
		e.log.Warn("note on send failed", zap.Uint8("pitch", pitch), zap.Error(err))
	}
}

func (e *MIDIOut) NoteOff(pitch uint8) {
	if err := e.send(gomidi.NoteOff(e.channel, pitch)); err != nil {
		e.log.Warn("note off send failed", zap.Uint8("pitch", pitch), zap.Error(err))
	}
}

// Silent is the engine used when no synth is attached (headless runs, tests).
type Silent struct{}

func (Silent) NoteOn(pitch, velocity uint8) {}

func (Silent) NoteOff(pitch uint8) {}
