// Package session runs the frame-processing tick loop: the long-lived
// core that fuses the study-window policy, object detection, the phone
// shape filter, the recording state machine, alert debouncing and daily
// summary dispatch, while absorbing concurrent control requests.
package session

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/smartstudy/studycam/internal/annotate"
	"github.com/smartstudy/studycam/internal/config"
	"github.com/smartstudy/studycam/internal/detect"
	"github.com/smartstudy/studycam/internal/logger"
	"github.com/smartstudy/studycam/internal/metrics"
	"github.com/smartstudy/studycam/internal/schedule"
	"github.com/smartstudy/studycam/internal/store"
)

// FrameSource supplies frames; only the tick loop calls it.
type FrameSource interface {
	Read(dst *gocv.Mat) bool
	Close() error
}

// Detector runs object detection on one frame.
type Detector interface {
	Detect(frame gocv.Mat) []detect.Detection
}

// Recordkeeper is the persistence surface the loop touches each tick.
type Recordkeeper interface {
	Settings() (store.Settings, error)
	LogDetection(day string) error
	TodayCount(day string) (int, error)
}

// Notifier delivers the daily summary message.
type Notifier interface {
	Send(phone, message string) error
}

// AlertSound plays the distraction alert.
type AlertSound interface {
	Play()
}

// Stats is the loop snapshot served by the status endpoint.
type Stats struct {
	Ticks        uint64 `json:"ticks"`
	TargetFPS    int    `json:"target_fps"`
	WindowActive bool   `json:"window_active"`
	IsRecording  bool   `json:"is_recording"`
	IsPaused     bool   `json:"is_paused"`
}

// Controller owns the tick loop and all session state. The camera, the
// detection engine and the video writer are touched only from the loop
// goroutine; the mutex covers the pause flag and the recorder, the two
// pieces the control handlers also reach.
type Controller struct {
	source      FrameSource
	engine      Detector
	store       Recordkeeper
	notifier    Notifier
	sound       AlertSound
	broadcaster *Broadcaster
	metrics     *metrics.Metrics

	targetFPS   int
	frameWidth  int
	frameHeight int
	cooldown    time.Duration
	graceWait   time.Duration

	now func() time.Time

	mu          sync.Mutex
	rec         *recorder
	manualPause bool
	lastActive  bool

	// Tick-loop private state; no lock needed.
	lastAlert    time.Time
	summarySent  bool
	lastSettings store.Settings
}

// NewController wires the loop to its collaborators.
func NewController(cfg config.Config, source FrameSource, engine Detector,
	st Recordkeeper, notifier Notifier, sound AlertSound,
	broadcaster *Broadcaster, m *metrics.Metrics) *Controller {
	return &Controller{
		source:      source,
		engine:      engine,
		store:       st,
		notifier:    notifier,
		sound:       sound,
		broadcaster: broadcaster,
		metrics:     m,
		targetFPS:   cfg.TargetFPS,
		frameWidth:  cfg.FrameWidth,
		frameHeight: cfg.FrameHeight,
		cooldown:    cfg.AlertCooldown,
		graceWait:   cfg.DeleteGraceWait,
		now:         time.Now,
		rec: &recorder{
			dir:     cfg.RecordingDir,
			fps:     float64(cfg.TargetFPS),
			width:   cfg.FrameWidth,
			height:  cfg.FrameHeight,
			newSink: MJPEGSink,
		},
	}
}

// Run drives the tick loop until ctx is canceled. Viewers subscribing to
// the broadcaster never affect this loop; it runs for process lifetime.
func (c *Controller) Run(ctx context.Context) {
	frame := gocv.NewMat()
	defer frame.Close()
	scratch := gocv.NewMat()
	defer scratch.Close()

	interval := time.Second / time.Duration(c.targetFPS)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("Session", "Tick loop started (%d fps target)", c.targetFPS)
	for {
		select {
		case <-ctx.Done():
			c.mu.Lock()
			if c.rec.active() {
				c.rec.stop()
				c.metrics.RecordingActive.Store(0)
			}
			c.mu.Unlock()
			_ = c.source.Close()
			logger.Info("Session", "Tick loop stopped")
			return
		case <-ticker.C:
			c.tick(&frame, &scratch)
		}
	}
}

// tick processes one frame end to end. A failed capture skips the tick;
// the source reopens itself for the next one.
func (c *Controller) tick(frame, scratch *gocv.Mat) {
	if !c.source.Read(frame) {
		c.metrics.CaptureErrors.Add(1)
		return
	}
	c.metrics.TicksProcessed.Add(1)

	now := c.now()
	clock := schedule.Clock(now)

	settings := c.currentSettings()
	window := schedule.Window{Start: settings.StartTime, End: settings.EndTime}
	active := window.Active(clock)

	paused := c.updateRecording(active, *frame, *scratch, now)
	c.dispatchSummary(window, active, clock, settings, now)

	detected := false
	if active {
		detected = c.runDetection(frame, now)
	}

	if detected {
		annotate.DrawBanner(frame)
	}
	switch {
	case !active:
		annotate.DrawStatus(frame, "FREE TIME", annotate.ColorFree)
	case paused:
		annotate.DrawStatus(frame, "PAUSED (Manual)", annotate.ColorPaused)
	default:
		annotate.DrawStatus(frame, "REC ● ACTIVE", annotate.ColorActive)
	}

	data, err := annotate.EncodeJPEG(*frame)
	if err != nil {
		logger.Warn("Session", "JPEG encode failed: %v", err)
		return
	}
	c.broadcaster.Publish(data)
}

// currentSettings reads the settings row wholesale. On a read failure
// the previous snapshot is reused so a transient database hiccup does
// not flap the recording state.
func (c *Controller) currentSettings() store.Settings {
	s, err := c.store.Settings()
	if err != nil {
		c.metrics.SettingsErrors.Add(1)
		logger.Warn("Session", "Settings read failed: %v", err)
		return c.lastSettings
	}
	c.lastSettings = s
	return s
}

// updateRecording applies the recording state machine for this tick and
// returns the pause flag observed under the same lock as the transition.
func (c *Controller) updateRecording(active bool, frame, scratch gocv.Mat, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastActive = active

	if active && !c.manualPause {
		if !c.rec.active() {
			if err := c.rec.start(now); err != nil {
				// Stay idle; the guard runs again next tick.
				c.metrics.WriterErrors.Add(1)
				logger.Warn("Recording", "Writer open failed: %v", err)
				return c.manualPause
			}
			c.metrics.RecordingActive.Store(1)
			logger.Info("Recording", "Started %s", c.rec.path)
		}
		gocv.Resize(frame, &scratch, image.Pt(c.frameWidth, c.frameHeight), 0, 0, gocv.InterpolationLinear)
		if err := c.rec.write(scratch); err != nil {
			c.metrics.WriterErrors.Add(1)
			logger.Warn("Recording", "Frame write failed: %v", err)
		} else {
			c.metrics.RecordingFrames.Add(1)
		}
	} else if c.rec.active() {
		c.rec.stop()
		c.metrics.RecordingActive.Store(0)
		logger.Info("Recording", "Stopped")
	}

	return c.manualPause
}

// dispatchSummary sends at most one end-of-window notification per day.
// The flag re-arms whenever the window is active again.
func (c *Controller) dispatchSummary(window schedule.Window, active bool, clock string, settings store.Settings, now time.Time) {
	if window.Ended(clock) && !c.summarySent {
		if settings.NotifyEnabled && settings.ParentPhone != "" {
			count, err := c.store.TodayCount(schedule.Day(now))
			if err != nil {
				logger.Warn("Summary", "Count lookup failed: %v", err)
			}
			msg := fmt.Sprintf("Session Done! Distractions: %d", count)
			if err := c.notifier.Send(settings.ParentPhone, msg); err != nil {
				// Best effort; no retry until tomorrow.
				c.metrics.SummaryFailures.Add(1)
				logger.Warn("Summary", "Send failed: %v", err)
			} else {
				c.metrics.SummariesSent.Add(1)
				logger.Info("Summary", "Sent to %s", settings.ParentPhone)
			}
		}
		c.summarySent = true
	}
	if active {
		c.summarySent = false
	}
}

// runDetection runs the engine and shape filter, draws overlays and
// fires the debounced alert. Returns whether any valid detection was
// present this tick.
func (c *Controller) runDetection(frame *gocv.Mat, now time.Time) bool {
	detected := false
	for _, d := range c.engine.Detect(*frame) {
		if d.Label == "cell phone" {
			if v := detect.CheckPhoneShape(d.Box); !v.Valid {
				c.metrics.DetectionsRejected.Add(1)
				annotate.DrawRejected(frame, v.Reason, d.Box)
				continue
			}
		}
		detected = true
		c.metrics.DetectionsValid.Add(1)
		annotate.DrawValid(frame, d.Label, d.Box)
	}

	if !detected {
		return false
	}

	// One trigger per tick regardless of how many boxes were valid.
	if now.Sub(c.lastAlert) >= c.cooldown {
		if err := c.store.LogDetection(schedule.Day(now)); err != nil {
			logger.Warn("Alert", "Count update failed: %v", err)
		}
		c.sound.Play()
		c.lastAlert = now
		c.metrics.AlertsFired.Add(1)
		logger.Info("Alert", "Distraction event logged")
	} else {
		c.metrics.AlertsSuppressed.Add(1)
	}
	return true
}

// TogglePause flips the manual pause flag and returns the new state.
func (c *Controller) TogglePause() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.manualPause = !c.manualPause
	return c.manualPause
}

// Status reports the pause and recording flags.
func (c *Controller) Status() (paused, recording bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.manualPause, c.rec.active()
}

// StopIfActive force-stops the in-progress recording when it is backed
// by the named file, pausing the system so the next tick does not
// immediately open a replacement. Returns true when a stop happened.
// The writer is released and a short grace wait elapses before
// returning, so the caller may delete the file safely.
func (c *Controller) StopIfActive(filename string) bool {
	c.mu.Lock()
	if !c.rec.active() || filepath.Base(c.rec.path) != filename {
		c.mu.Unlock()
		return false
	}
	logger.Warn("Recording", "Force stopping active recording to delete: %s", filename)
	c.rec.stop()
	c.metrics.RecordingActive.Store(0)
	c.manualPause = true
	c.mu.Unlock()

	// Give the OS time to release the file lock.
	time.Sleep(c.graceWait)
	return true
}

// Snapshot returns the loop state for the status endpoint.
func (c *Controller) Snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Ticks:        c.metrics.TicksProcessed.Load(),
		TargetFPS:    c.targetFPS,
		WindowActive: c.lastActive,
		IsRecording:  c.rec.active(),
		IsPaused:     c.manualPause,
	}
}
