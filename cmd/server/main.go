// Command server runs the study session monitor: it watches the camera
// during the configured study window, records the session, flags phone
// and laptop distractions, and serves the live stream and control API.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smartstudy/studycam/internal/camera"
	"github.com/smartstudy/studycam/internal/config"
	"github.com/smartstudy/studycam/internal/detect"
	"github.com/smartstudy/studycam/internal/logger"
	"github.com/smartstudy/studycam/internal/metrics"
	"github.com/smartstudy/studycam/internal/notify"
	"github.com/smartstudy/studycam/internal/session"
	"github.com/smartstudy/studycam/internal/sound"
	"github.com/smartstudy/studycam/internal/store"
	"github.com/smartstudy/studycam/internal/web"
)

var (
	addr         = flag.String("addr", "", "HTTP listen address (default :5000)")
	metricsAddr  = flag.String("metrics-addr", "", "Prometheus listen address (default :9090)")
	cameraID     = flag.Int("camera", 0, "Camera device ID")
	modelWeights = flag.String("weights", "", "YOLO weights file")
	modelConfig  = flag.String("model-config", "", "YOLO network config file")
	modelNames   = flag.String("names", "", "Class names file")
	recordingDir = flag.String("recordings", "", "Directory for session recordings")
	alertSound   = flag.String("alert-sound", "", "WAV clip played on distraction")
	databasePath = flag.String("db", "", "SQLite database path")
	notifyURL    = flag.String("notify-url", "", "Shoutrrr URL template with a {phone} placeholder")
	logLevel     = flag.String("log-level", "INFO", "Log level: DEBUG, INFO, WARN, ERROR")
)

func main() {
	flag.Parse()

	level, err := logger.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level: %v\n", err)
		os.Exit(2)
	}
	logger.Init(level, os.Stdout, true)

	cfg := config.DefaultConfig()
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	cfg.CameraID = *cameraID
	if *modelWeights != "" {
		cfg.ModelWeights = *modelWeights
	}
	if *modelConfig != "" {
		cfg.ModelConfig = *modelConfig
	}
	if *modelNames != "" {
		cfg.ModelNames = *modelNames
	}
	if *recordingDir != "" {
		cfg.RecordingDir = *recordingDir
	}
	if *alertSound != "" {
		cfg.AlertSoundPath = *alertSound
	}
	if *databasePath != "" {
		cfg.DatabasePath = *databasePath
	}
	if *notifyURL != "" {
		cfg.NotifyURL = *notifyURL
	}

	if err := run(cfg); err != nil {
		logger.Error("Main", "%v", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	if err := os.MkdirAll(cfg.RecordingDir, 0o755); err != nil {
		return fmt.Errorf("create recording dir: %w", err)
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	engine, err := detect.NewEngine(cfg.ModelWeights, cfg.ModelConfig, cfg.ModelNames, cfg.Confidence)
	if err != nil {
		return fmt.Errorf("load detection model: %w", err)
	}
	defer engine.Close()

	source, err := camera.Open(cfg.CameraID)
	if err != nil {
		return fmt.Errorf("open camera: %w", err)
	}

	player := sound.NewPlayer(cfg.AlertSoundPath)
	sender := notify.NewSender(cfg.NotifyURL, cfg.PhonePrefix)

	m := metrics.New()
	go func() {
		logger.Info("Main", "Metrics listening on %s", cfg.MetricsAddr)
		if err := m.StartServer(cfg.MetricsAddr); err != nil && err != http.ErrServerClosed {
			logger.Error("Main", "Metrics server: %v", err)
		}
	}()

	broadcaster := session.NewBroadcaster(m)
	ctrl := session.NewController(cfg, source, engine, st, sender, player, broadcaster, m)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		ctrl.Run(ctx)
	}()

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: web.NewServer(cfg, ctrl, st, broadcaster).Handler(),
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Main", "HTTP listening on %s", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("Main", "Shutting down")
	case err := <-errCh:
		stop()
		<-loopDone
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Main", "HTTP shutdown: %v", err)
	}
	<-loopDone
	return nil
}
