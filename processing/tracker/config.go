package tracker

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Config mirrors the keys of an Ultralytics bytetrack.yaml file.
type Config struct {
	TrackHighThresh float32 `yaml:"track_high_thresh"`
	TrackLowThresh  float32 `yaml:"track_low_thresh"`
	NewTrackThresh  float32 `yaml:"new_track_thresh"`
	TrackBuffer     int     `yaml:"track_buffer"`
	MatchThresh     float32 `yaml:"match_thresh"`
}

func DefaultConfig() Config {
	return Config{
		TrackHighThresh: 0.5,
		TrackLowThresh:  0.1,
		NewTrackThresh:  0.6,
		TrackBuffer:     30,
		MatchThresh:     0.8,
	}
}

// LoadConfig reads a tracker yaml file over the defaults. A missing file
// yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.TrackBuffer < 1 {
		cfg.TrackBuffer = 1
	}
	return cfg, nil
}
