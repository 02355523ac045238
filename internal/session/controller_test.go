package session

import (
	"image"
	"path/filepath"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/smartstudy/studycam/internal/config"
	"github.com/smartstudy/studycam/internal/detect"
	"github.com/smartstudy/studycam/internal/metrics"
	"github.com/smartstudy/studycam/internal/store"
)

type fakeSource struct {
	mat  gocv.Mat
	fail bool
}

func (f *fakeSource) Read(dst *gocv.Mat) bool {
	if f.fail {
		return false
	}
	f.mat.CopyTo(dst)
	return true
}

func (f *fakeSource) Close() error { return nil }

type fakeEngine struct {
	detections []detect.Detection
}

func (f *fakeEngine) Detect(frame gocv.Mat) []detect.Detection {
	return f.detections
}

type fakeStore struct {
	settings    store.Settings
	settingsErr error
	logged      int
	count       int
}

func (f *fakeStore) Settings() (store.Settings, error) {
	return f.settings, f.settingsErr
}

func (f *fakeStore) LogDetection(day string) error {
	f.logged++
	f.count++
	return nil
}

func (f *fakeStore) TodayCount(day string) (int, error) {
	return f.count, nil
}

type fakeNotifier struct {
	sent []string
}

func (f *fakeNotifier) Send(phone, message string) error {
	f.sent = append(f.sent, message)
	return nil
}

type fakeSound struct {
	plays int
}

func (f *fakeSound) Play() { f.plays++ }

type fakeSink struct {
	frames int
	closed bool
}

func (f *fakeSink) Write(frame gocv.Mat) error {
	f.frames++
	return nil
}

func (f *fakeSink) Close() error {
	f.closed = true
	return nil
}

type testRig struct {
	ctrl     *Controller
	source   *fakeSource
	engine   *fakeEngine
	store    *fakeStore
	notifier *fakeNotifier
	sound    *fakeSound
	sinks    []*fakeSink
	now      time.Time
	frame    gocv.Mat
	scratch  gocv.Mat
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.RecordingDir = t.TempDir()
	cfg.DeleteGraceWait = time.Millisecond

	rig := &testRig{
		source: &fakeSource{mat: gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)},
		engine: &fakeEngine{},
		store: &fakeStore{settings: store.Settings{
			ID:        1,
			StartTime: "09:00",
			EndTime:   "17:00",
		}},
		notifier: &fakeNotifier{},
		sound:    &fakeSound{},
		now:      time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
		frame:    gocv.NewMat(),
		scratch:  gocv.NewMat(),
	}
	t.Cleanup(func() {
		rig.source.mat.Close()
		rig.frame.Close()
		rig.scratch.Close()
	})

	m := metrics.New()
	rig.ctrl = NewController(cfg, rig.source, rig.engine, rig.store,
		rig.notifier, rig.sound, NewBroadcaster(m), m)
	rig.ctrl.now = func() time.Time { return rig.now }
	rig.ctrl.rec.newSink = func(path string, fps float64, width, height int) (VideoSink, error) {
		s := &fakeSink{}
		rig.sinks = append(rig.sinks, s)
		return s, nil
	}
	return rig
}

func (r *testRig) tickAt(hhmm string) {
	t, _ := time.Parse("15:04", hhmm)
	r.now = time.Date(r.now.Year(), r.now.Month(), r.now.Day(),
		t.Hour(), t.Minute(), 0, 0, time.UTC)
	r.ctrl.tick(&r.frame, &r.scratch)
}

func TestRecordingFollowsWindow(t *testing.T) {
	rig := newTestRig(t)

	rig.tickAt("10:00")
	if _, recording := rig.ctrl.Status(); !recording {
		t.Fatalf("expected recording during active window")
	}
	if len(rig.sinks) != 1 {
		t.Fatalf("expected 1 sink opened, got %d", len(rig.sinks))
	}
	if rig.sinks[0].frames != 1 {
		t.Fatalf("expected 1 frame written, got %d", rig.sinks[0].frames)
	}

	rig.tickAt("18:00")
	if _, recording := rig.ctrl.Status(); recording {
		t.Fatalf("expected recording stopped after window end")
	}
	if !rig.sinks[0].closed {
		t.Fatalf("expected sink closed after window end")
	}
}

func TestManualPauseStopsRecording(t *testing.T) {
	rig := newTestRig(t)

	rig.tickAt("10:00")
	if _, recording := rig.ctrl.Status(); !recording {
		t.Fatalf("expected recording before pause")
	}

	if paused := rig.ctrl.TogglePause(); !paused {
		t.Fatalf("expected pause on after toggle")
	}
	rig.tickAt("10:01")
	if _, recording := rig.ctrl.Status(); recording {
		t.Fatalf("expected recording stopped while paused")
	}
	if !rig.sinks[0].closed {
		t.Fatalf("expected first sink closed on pause")
	}

	if paused := rig.ctrl.TogglePause(); paused {
		t.Fatalf("expected pause off after second toggle")
	}
	rig.tickAt("10:02")
	if _, recording := rig.ctrl.Status(); !recording {
		t.Fatalf("expected recording resumed after unpause")
	}
	if len(rig.sinks) != 2 {
		t.Fatalf("expected a fresh sink after resume, got %d", len(rig.sinks))
	}
}

func TestAlertCooldown(t *testing.T) {
	rig := newTestRig(t)
	rig.engine.detections = []detect.Detection{
		{Label: "laptop", Box: image.Rect(100, 100, 300, 300), Confidence: 0.9},
	}

	rig.now = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	rig.ctrl.tick(&rig.frame, &rig.scratch)
	if rig.sound.plays != 1 {
		t.Fatalf("expected first detection to alert, got %d plays", rig.sound.plays)
	}
	if rig.store.logged != 1 {
		t.Fatalf("expected 1 logged detection, got %d", rig.store.logged)
	}

	rig.now = rig.now.Add(5 * time.Second)
	rig.ctrl.tick(&rig.frame, &rig.scratch)
	if rig.sound.plays != 1 {
		t.Fatalf("expected alert suppressed inside cooldown, got %d plays", rig.sound.plays)
	}

	rig.now = rig.now.Add(11 * time.Second)
	rig.ctrl.tick(&rig.frame, &rig.scratch)
	if rig.sound.plays != 2 {
		t.Fatalf("expected alert to fire after cooldown, got %d plays", rig.sound.plays)
	}
	if rig.store.logged != 2 {
		t.Fatalf("expected 2 logged detections, got %d", rig.store.logged)
	}
}

func TestPhoneShapeFilter(t *testing.T) {
	rig := newTestRig(t)

	// Near-square phone box is a false positive and must not alert.
	rig.engine.detections = []detect.Detection{
		{Label: "cell phone", Box: image.Rect(0, 0, 80, 70), Confidence: 0.9},
	}
	rig.tickAt("10:00")
	if rig.sound.plays != 0 {
		t.Fatalf("expected no alert for rejected phone shape")
	}

	rig.engine.detections = []detect.Detection{
		{Label: "cell phone", Box: image.Rect(0, 0, 100, 150), Confidence: 0.9},
	}
	rig.tickAt("10:01")
	if rig.sound.plays != 1 {
		t.Fatalf("expected alert for valid phone shape, got %d plays", rig.sound.plays)
	}
}

func TestDailySummaryOnce(t *testing.T) {
	rig := newTestRig(t)
	rig.store.settings.ParentPhone = "9657838159"
	rig.store.settings.NotifyEnabled = true
	rig.store.count = 4

	rig.tickAt("16:59")
	if len(rig.notifier.sent) != 0 {
		t.Fatalf("expected no summary during window")
	}

	rig.tickAt("17:01")
	if len(rig.notifier.sent) != 1 {
		t.Fatalf("expected one summary after window end, got %d", len(rig.notifier.sent))
	}
	if got, want := rig.notifier.sent[0], "Session Done! Distractions: 4"; got != want {
		t.Fatalf("summary = %q, want %q", got, want)
	}

	rig.tickAt("17:05")
	rig.tickAt("18:30")
	if len(rig.notifier.sent) != 1 {
		t.Fatalf("expected summary sent once per day, got %d", len(rig.notifier.sent))
	}

	// The next morning's active window re-arms the summary.
	rig.now = rig.now.Add(24 * time.Hour)
	rig.tickAt("10:00")
	rig.tickAt("17:01")
	if len(rig.notifier.sent) != 2 {
		t.Fatalf("expected second summary next day, got %d", len(rig.notifier.sent))
	}
}

func TestSummarySkippedWithoutPhone(t *testing.T) {
	rig := newTestRig(t)
	rig.store.settings.NotifyEnabled = true
	rig.store.settings.ParentPhone = ""

	rig.tickAt("17:01")
	rig.tickAt("17:02")
	if len(rig.notifier.sent) != 0 {
		t.Fatalf("expected no summary without a configured phone")
	}
}

func TestStopIfActive(t *testing.T) {
	rig := newTestRig(t)

	rig.tickAt("10:00")
	rig.ctrl.mu.Lock()
	name := rig.ctrl.rec.path
	rig.ctrl.mu.Unlock()
	if name == "" {
		t.Fatalf("expected a recording path")
	}

	if rig.ctrl.StopIfActive("Some_Other_File.avi") {
		t.Fatalf("expected no stop for a different file")
	}

	if !rig.ctrl.StopIfActive(filepath.Base(name)) {
		t.Fatalf("expected stop for the active file")
	}
	paused, recording := rig.ctrl.Status()
	if recording {
		t.Fatalf("expected recording stopped after force stop")
	}
	if !paused {
		t.Fatalf("expected system paused after force stop")
	}
	if !rig.sinks[0].closed {
		t.Fatalf("expected sink closed after force stop")
	}
}

func TestWriterOpenFailureRetriesNextTick(t *testing.T) {
	rig := newTestRig(t)
	calls := 0
	rig.ctrl.rec.newSink = func(path string, fps float64, width, height int) (VideoSink, error) {
		calls++
		if calls == 1 {
			return nil, errOpenFailed
		}
		s := &fakeSink{}
		rig.sinks = append(rig.sinks, s)
		return s, nil
	}

	rig.tickAt("10:00")
	if _, recording := rig.ctrl.Status(); recording {
		t.Fatalf("expected no recording after open failure")
	}

	rig.tickAt("10:01")
	if _, recording := rig.ctrl.Status(); !recording {
		t.Fatalf("expected recording on retry")
	}
}

func TestSettingsErrorReusesLastSnapshot(t *testing.T) {
	rig := newTestRig(t)

	rig.tickAt("10:00")
	if _, recording := rig.ctrl.Status(); !recording {
		t.Fatalf("expected recording with healthy settings")
	}

	rig.store.settingsErr = errSettingsDown
	rig.tickAt("10:01")
	if _, recording := rig.ctrl.Status(); !recording {
		t.Fatalf("expected recording to continue on a transient settings error")
	}
}

func TestCaptureFailureSkipsTick(t *testing.T) {
	rig := newTestRig(t)
	rig.source.fail = true

	rig.tickAt("10:00")
	if _, recording := rig.ctrl.Status(); recording {
		t.Fatalf("expected no state change on capture failure")
	}
	if got := rig.ctrl.Snapshot().Ticks; got != 0 {
		t.Fatalf("expected 0 processed ticks, got %d", got)
	}
}

var (
	errOpenFailed   = errString("writer open failed")
	errSettingsDown = errString("settings unavailable")
)

type errString string

func (e errString) Error() string { return string(e) }
