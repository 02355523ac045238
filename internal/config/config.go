package config

import (
	"path/filepath"
	"time"
)

// Config defines the runtime configuration for the study monitor server.
type Config struct {
	Addr            string
	MetricsAddr     string
	CameraID        int
	ModelWeights    string
	ModelConfig     string
	ModelNames      string
	RecordingDir    string
	AlertSoundPath  string
	DatabasePath    string
	NotifyURL       string
	PhonePrefix     string
	TargetFPS       int
	FrameWidth      int
	FrameHeight     int
	Confidence      float32
	AlertCooldown   time.Duration
	DeleteGraceWait time.Duration
}

// DefaultConfig returns a config aligned with the original monitor behavior.
func DefaultConfig() Config {
	return Config{
		Addr:            ":5000",
		MetricsAddr:     ":9090",
		CameraID:        0,
		ModelWeights:    filepath.Clean("models/yolov4-tiny.weights"),
		ModelConfig:     filepath.Clean("models/yolov4-tiny.cfg"),
		ModelNames:      filepath.Clean("models/coco.names"),
		RecordingDir:    "./recordings",
		AlertSoundPath:  "./alert.wav",
		DatabasePath:    "./studycam.db",
		NotifyURL:       "",
		PhonePrefix:     "+91",
		TargetFPS:       20,
		FrameWidth:      640,
		FrameHeight:     480,
		Confidence:      0.55,
		AlertCooldown:   15 * time.Second,
		DeleteGraceWait: 500 * time.Millisecond,
	}
}
