// Package config loads process configuration for the sender and
// receiver binaries from ~/.config/einkmirror/config.json, the same
// os.UserConfigDir()-rooted layout and load/defaults/save shape the
// rest of this codebase's configuration uses. Command-line flags take
// precedence over config file values; a missing config file falls
// back to defaults and is logged, not fatal.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/framegrace/einkmirror/geometry"
)

// Config holds the operator-tunable process parameters that sit
// outside the compile-time geometry contract.
type Config struct {
	// Addr is the receiver's UDP listen address (receiver) or the
	// sender's destination address (sender), host:port.
	Addr string `json:"addr"`
	// FramebufferDevice is the path to the Linux framebuffer device
	// the sender reads from.
	FramebufferDevice string `json:"framebufferDevice"`
	// Workers is the number of capture bands to split each frame
	// into. Must evenly divide both the display size and the tile
	// count, and must equal geometry.Workers: the capture engine
	// always runs the compiled-in number of bands.
	Workers int `json:"workers"`
	// VerboseLogs enables per-frame diagnostic logging.
	VerboseLogs bool `json:"verboseLogs"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Addr:              "0.0.0.0:9921",
		FramebufferDevice: "/dev/fb0",
		Workers:           geometry.Workers,
		VerboseLogs:       false,
	}
}

func configPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "einkmirror", "config.json"), nil
}

// Load reads configuration from ~/.config/einkmirror/config.json. If
// the file doesn't exist, it returns the defaults without error.
func Load() (*Config, error) {
	cfg := Default()

	path, err := configPath()
	if err != nil {
		log.Printf("config: failed to resolve user config dir: %v", err)
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("config: no config file at %s, using defaults", path)
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	log.Printf("config: loaded from %s", path)
	return cfg, nil
}

// Save writes the configuration to ~/.config/einkmirror/config.json.
func (c *Config) Save() error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	log.Printf("config: saved to %s", path)
	return nil
}

// Validate checks invariants Load alone can't enforce, since they
// depend on the compiled-in geometry constants.
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("config: workers must be positive, got %d", c.Workers)
	}
	if geometry.DisplaySize%c.Workers != 0 || geometry.NumTiles%c.Workers != 0 {
		return fmt.Errorf("config: workers=%d does not evenly divide the display or tile grid", c.Workers)
	}
	if c.Workers != geometry.Workers {
		return fmt.Errorf("config: workers=%d does not match the compiled-in worker count %d", c.Workers, geometry.Workers)
	}
	if c.Addr == "" {
		return fmt.Errorf("config: addr must not be empty")
	}
	return nil
}
