package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// MatrixConfig describes the panel geometry and display backend.
type MatrixConfig struct {
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Display string `json:"display,omitempty"` // window, term, serial
	Scale   int    `json:"scale,omitempty"`   // window pixel scale
}

// SerialConfig is the LED chain serial link.
type SerialConfig struct {
	Device string `json:"device,omitempty"`
	Baud   int    `json:"baud,omitempty"`
}

// MidiConfig stores MIDI preferences.
type MidiConfig struct {
	Port    string  `json:"port,omitempty"` // substring match
	Sync    string  `json:"sync,omitempty"` // off, speed, spatial, both
	RefBPM  float64 `json:"refBpm,omitempty"`
	TextMsg string  `json:"textMsg,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Matrix MatrixConfig `json:"matrix,omitempty"`
	Serial SerialConfig `json:"serial,omitempty"`
	Midi   MidiConfig   `json:"midi,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Matrix: MatrixConfig{
			Width:   80,
			Height:  40,
			Display: "window",
			Scale:   12,
		},
		Serial: SerialConfig{
			Baud: 921600,
		},
		Midi: MidiConfig{
			Sync:   "speed",
			RefBPM: 120,
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "psiwave-matrix"), nil
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

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
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
