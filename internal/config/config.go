package config

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

type SourceType string

const (
	SourceLocal  SourceType = "Local"
	SourceWebcam SourceType = "Web-Camera"

	DefaultConfigPath string = "config.json"
	DefaultRemoteHost string = "localhost:8080"

	BackendOpenCV string = "opencv"
	BackendFFmpeg string = "ffmpeg"

	DetectorONNX   string = "onnx"
	DetectorRemote string = "remote"
)

type WebcamConfig struct {
	DeviceID   int    `json:"device_id"`
	DeviceName string `json:"device_name"`
}

type DetectorConfig struct {
	Backend    string  `json:"backend"`
	RemoteHost string  `json:"remote_host"`
	Confidence float32 `json:"confidence"`
	NMS        float32 `json:"nms"`
	InputSize  int     `json:"input_size"`
	Tracking   bool    `json:"tracking"`
	TrackerCfg string  `json:"tracker_config"`
}

type Config struct {
	mu sync.RWMutex

	CaptureBackend string       `json:"capture_backend"`
	Webcam         WebcamConfig `json:"webcam"`

	TargetFPS     uint `json:"target_fps"`
	ScaledWitdh   int  `json:"scaled_witdh"`
	ScaledHeight  int  `json:"scaled_height"`
	SkipThreshold int  `json:"skip_threshold"`
	TickDelayMs   int  `json:"tick_delay_ms"`

	ModelsDir        string            `json:"models_dir"`
	ModelExt         string            `json:"model_ext"`
	ModelsList       string            `json:"models_list"`
	DefaultModel     string            `json:"default_model"`
	ClassLists       map[string]string `json:"class_lists"`
	DefaultClassList string            `json:"default_class_list"`

	Detector DetectorConfig `json:"detector"`

	Background string `json:"background"`
	Icon       string `json:"icon"`

	LogLevel    string `json:"log_level"`
	Development bool   `json:"development"`
}

func (c *Config) GetFPS() uint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.TargetFPS
}

func (c *Config) GetWidth() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ScaledWitdh
}

func (c *Config) GetHeight() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ScaledHeight
}

func (c *Config) GetSkipThreshold() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.SkipThreshold
}

func (c *Config) SetSkipThreshold(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SkipThreshold = n
}

func (c *Config) GetTickDelay() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.TickDelayMs) * time.Millisecond
}

func (c *Config) GetDeviceID() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Webcam.DeviceID
}

func (c *Config) SetDeviceID(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Webcam.DeviceID = id
}

// ClassListFor returns the class file bound to a model, or the default one.
func (c *Config) ClassListFor(model string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if p, ok := c.ClassLists[model]; ok && p != "" {
		return p
	}
	return c.DefaultClassList
}

func (c *Config) Save(path string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}

// LoadConfigFile reads path over the defaults. A missing or unreadable file
// yields the defaults.
func LoadConfigFile(path string) *Config {
	var cfg *Config = NewDefaultConfig()

	if _, err := os.Stat(path); err == nil {
		f, err := os.Open(path)

		if err != nil {
			return cfg
		}
		defer f.Close()

		dec := json.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return NewDefaultConfig()
		}
	}

	cfg.normalize()
	return cfg
}

func (c *Config) normalize() {
	def := NewDefaultConfig()
	if c.SkipThreshold < 1 {
		c.SkipThreshold = def.SkipThreshold
	}
	if c.ScaledWitdh <= 0 || c.ScaledHeight <= 0 {
		c.ScaledWitdh, c.ScaledHeight = def.ScaledWitdh, def.ScaledHeight
	}
	if c.TickDelayMs < 0 {
		c.TickDelayMs = def.TickDelayMs
	}
	if c.TargetFPS == 0 {
		c.TargetFPS = def.TargetFPS
	}
}

func NewDefaultConfig() *Config {
	return &Config{
		CaptureBackend: BackendOpenCV,
		Webcam:         WebcamConfig{DeviceID: 0, DeviceName: "/dev/video0"},
		TargetFPS:      30,
		ScaledWitdh:    1020,
		ScaledHeight:   500,
		SkipThreshold:  3,
		TickDelayMs:    10,

		ModelsDir:        "./models",
		ModelExt:         ".onnx",
		ModelsList:       "modelslist.txt",
		DefaultModel:     "bestfire",
		ClassLists:       map[string]string{"bestfire": "fireSmoke.txt"},
		DefaultClassList: "coco.txt",

		Detector: DetectorConfig{
			Backend:    DetectorONNX,
			RemoteHost: DefaultRemoteHost,
			Confidence: 0.4,
			NMS:        0.45,
			InputSize:  640,
			Tracking:   true,
			TrackerCfg: "bytetrack.yaml",
		},

		Background: "background.jpg",
		Icon:       "icon.ico",

		LogLevel:    "info",
		Development: true,
	}
}
