package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// GestureConfig tunes the signal conditioner.
type GestureConfig struct {
	SmoothingAlpha        float64 `json:"smoothingAlpha"`
	PinchArmThreshold     float64 `json:"pinchArmThreshold"`
	PinchReleaseThreshold float64 `json:"pinchReleaseThreshold"`
	PinchArmFrames        int     `json:"pinchArmFrames"`
	ConfidenceThreshold   float64 `json:"confidenceThreshold"`
	HandLossTimeoutMs     int     `json:"handLossTimeoutMs"`
	// BPM change per unit of vertical hand travel while unlocked.
	BPMPerUnitHeight float64 `json:"bpmPerUnitHeight"`
}

// TempoConfig bounds the scheduler clock.
type TempoConfig struct {
	BPM    int `json:"bpm"`
	MinBPM int `json:"minBpm"`
	MaxBPM int `json:"maxBpm"`
}

// AudioConfig controls the engine's voice bookkeeping and assets.
type AudioConfig struct {
	AssetsDir                  string             `json:"assetsDir,omitempty"`
	VoicePoolSizePerInstrument int                `json:"voicePoolSizePerInstrument"`
	MasterVolume               float64            `json:"masterVolume"`
	InstrumentVolumes          map[string]float64 `json:"instrumentVolumes,omitempty"`
}

// ScaleConfig selects the arpeggiator's pitch material.
type ScaleConfig struct {
	Name        string `json:"name"`
	OctaveRange int    `json:"octaveRange"`
}

// MIDIConfig optionally mirrors triggers to a MIDI out port.
type MIDIConfig struct {
	PortName string `json:"portName,omitempty"`
	Channel  uint8  `json:"channel,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Gesture GestureConfig `json:"gesture"`
	Tempo   TempoConfig   `json:"tempo"`
	Audio   AudioConfig   `json:"audio"`
	Scale   ScaleConfig   `json:"scale"`
	MIDI    MIDIConfig    `json:"midi,omitempty"`

	// FingerMap assigns each finger of the drum hand to an instrument
	// lane. The mapping is data, not engine behavior: variants of the
	// instrument layout differ, so performers can rebind it here.
	FingerMap map[string]string `json:"fingerMap"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Gesture: GestureConfig{
			SmoothingAlpha:        0.4,
			PinchArmThreshold:     0.05,
			PinchReleaseThreshold: 0.10,
			PinchArmFrames:        3,
			ConfidenceThreshold:   0.5,
			HandLossTimeoutMs:     500,
			BPMPerUnitHeight:      80,
		},
		Tempo: TempoConfig{
			BPM:    120,
			MinBPM: 40,
			MaxBPM: 200,
		},
		Audio: AudioConfig{
			VoicePoolSizePerInstrument: 4,
			MasterVolume:               0.8,
			InstrumentVolumes: map[string]float64{
				"kick":  0.5,
				"hihat": 0.8,
			},
		},
		Scale: ScaleConfig{
			Name:        "c-minor-pentatonic",
			OctaveRange: 3,
		},
		FingerMap: map[string]string{
			"thumb":  "kick",
			"index":  "snare",
			"middle": "hihat",
			"ring":   "tom",
			"pinky":  "crash",
		},
	}
}

// Validate rejects configs the engine cannot run with.
func (c *Config) Validate() error {
	if c.Tempo.MinBPM <= 0 || c.Tempo.MaxBPM < c.Tempo.MinBPM {
		return fmt.Errorf("invalid bpm range [%d, %d]", c.Tempo.MinBPM, c.Tempo.MaxBPM)
	}
	if c.Gesture.SmoothingAlpha <= 0 || c.Gesture.SmoothingAlpha > 1 {
		return fmt.Errorf("smoothingAlpha %v outside (0, 1]", c.Gesture.SmoothingAlpha)
	}
	if c.Gesture.PinchReleaseThreshold <= c.Gesture.PinchArmThreshold {
		return fmt.Errorf("pinchReleaseThreshold %v must exceed pinchArmThreshold %v",
			c.Gesture.PinchReleaseThreshold, c.Gesture.PinchArmThreshold)
	}
	if c.Audio.VoicePoolSizePerInstrument < 1 {
		return fmt.Errorf("voicePoolSizePerInstrument must be at least 1")
	}
	if c.Scale.OctaveRange < 1 {
		return fmt.Errorf("octaveRange must be at least 1")
	}
	return nil
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "tonguebeat"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return &cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
