// Package config loads application settings from a YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// LogMode selects the zap preset: "development" or "production".
	LogMode string `yaml:"log_mode"`

	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	MIDI      MIDIConfig      `yaml:"midi"`
	Recording RecordingConfig `yaml:"recording"`
	Worker    WorkerConfig    `yaml:"worker"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type MIDIConfig struct {
	// PollIntervalMS controls how often connected devices are rescanned.
	PollIntervalMS int `yaml:"poll_interval_ms"`

	// OutPort names the MIDI output used for monitoring. Empty means no
	// synth is attached and triggers are discarded.
	OutPort string `yaml:"out_port"`
}

// PollInterval returns the rescan interval as a duration.
func (m MIDIConfig) PollInterval() time.Duration {
	return time.Duration(m.PollIntervalMS) * time.Millisecond
}

type RecordingConfig struct {
	// MinNoteBeats is the floor applied to captured note durations.
	MinNoteBeats float64 `yaml:"min_note_beats"`
}

type WorkerConfig struct {
	SaveQueueDepth int `yaml:"save_queue_depth"`
	ProbeWorkers   int `yaml:"probe_workers"`
}

// Load reads the config at path. A missing file is not an error; the
// returned config carries defaults so the server can start unconfigured.
func Load(path string) (*Config, error) {
	config := &Config{}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	// Set defaults if not provided
	if config.LogMode == "" {
		config.LogMode = "production"
	}

	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}

	if config.Database.Path == "" {
		config.Database.Path = "backbeat.db"
	}

	if config.MIDI.PollIntervalMS <= 0 {
		config.MIDI.PollIntervalMS = 2000
	}

	if config.Recording.MinNoteBeats <= 0 {
		config.Recording.MinNoteBeats = 0.125
	}

	if config.Worker.SaveQueueDepth <= 0 {
		config.Worker.SaveQueueDepth = 32
	}

	if config.Worker.ProbeWorkers <= 0 {
		config.Worker.ProbeWorkers = 2
	}

	return config, nil
}
