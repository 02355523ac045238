// Package web exposes the control surface: settings, recording
// management, history, the live MJPEG stream and a status endpoint.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/smartstudy/studycam/internal/config"
	"github.com/smartstudy/studycam/internal/logger"
	"github.com/smartstudy/studycam/internal/schedule"
	"github.com/smartstudy/studycam/internal/session"
	"github.com/smartstudy/studycam/internal/store"
)

// Controller is the slice of the session loop the handlers drive.
type Controller interface {
	TogglePause() bool
	Status() (paused, recording bool)
	StopIfActive(filename string) bool
	Snapshot() session.Stats
}

// SettingsStore is the persistence surface the handlers read and write.
type SettingsStore interface {
	Settings() (store.Settings, error)
	UpdateSettings(in store.Settings) error
	TodayCount(day string) (int, error)
	History(limit int) ([]store.DailyCount, error)
}

// Frames is the stream fanout the video endpoint subscribes to.
type Frames interface {
	Subscribe() (int, <-chan []byte)
	Unsubscribe(id int)
	Latest() []byte
}

// Server holds the HTTP handlers and their collaborators.
type Server struct {
	cfg         config.Config
	ctrl        Controller
	store       SettingsStore
	frames      Frames
	placeholder []byte
	now         func() time.Time
}

// NewServer builds the handler set. The placeholder frame is rendered
// once up front and reused for every stream keepalive.
func NewServer(cfg config.Config, ctrl Controller, st SettingsStore, frames Frames) *Server {
	return &Server{
		cfg:         cfg,
		ctrl:        ctrl,
		store:       st,
		frames:      frames,
		placeholder: placeholderFrame(cfg.FrameWidth, cfg.FrameHeight),
		now:         time.Now,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /video_feed", s.handleVideoFeed)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("POST /api/settings", s.handleUpdateSettings)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/recordings", s.handleListRecordings)
	mux.HandleFunc("GET /api/recordings/{name}", s.handleGetRecording)
	mux.HandleFunc("DELETE /api/recordings/{name}", s.handleDeleteRecording)
	mux.HandleFunc("POST /api/recording/toggle", s.handleTogglePause)
	mux.HandleFunc("GET /api/recording/status", s.handleRecordingStatus)
	mux.HandleFunc("POST /api/upload_audio", s.handleUploadAudio)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Web", "JSON encode failed: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.ctrl.Snapshot()
	count, err := s.store.TodayCount(schedule.Day(s.now()))
	if err != nil {
		logger.Warn("Web", "Today count lookup failed: %v", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ticks":            snap.Ticks,
		"target_fps":       snap.TargetFPS,
		"window_active":    snap.WindowActive,
		"is_recording":     snap.IsRecording,
		"is_paused":        snap.IsPaused,
		"today_detections": count,
		"timestamp":        s.now().Format(time.RFC3339),
	})
}

type settingsPayload struct {
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	ParentPhone   string `json:"parent_phone"`
	NotifyEnabled bool   `json:"notify_enabled"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.Settings()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "settings unavailable")
		return
	}
	writeJSON(w, http.StatusOK, settingsPayload{
		StartTime:     settings.StartTime,
		EndTime:       settings.EndTime,
		ParentPhone:   settings.ParentPhone,
		NotifyEnabled: settings.NotifyEnabled,
	})
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var in settingsPayload
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !schedule.ValidClock(in.StartTime) || !schedule.ValidClock(in.EndTime) {
		writeError(w, http.StatusBadRequest, "times must be HH:MM")
		return
	}
	err := s.store.UpdateSettings(store.Settings{
		ID:            1,
		StartTime:     in.StartTime,
		EndTime:       in.EndTime,
		ParentPhone:   in.ParentPhone,
		NotifyEnabled: in.NotifyEnabled,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "settings update failed")
		return
	}
	logger.Info("Web", "Settings updated: window %s-%s", in.StartTime, in.EndTime)
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.History(7)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, map[string]any{
			"date":       row.Date,
			"detections": row.Detections,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type recordingInfo struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

func (s *Server) handleListRecordings(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(s.cfg.RecordingDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeJSON(w, http.StatusOK, []recordingInfo{})
			return
		}
		writeError(w, http.StatusInternalServerError, "recordings unavailable")
		return
	}

	out := make([]recordingInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".avi") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, recordingInfo{
			Name:     e.Name(),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Modified.After(out[j].Modified)
	})
	writeJSON(w, http.StatusOK, out)
}

// recordingPath validates the request name and maps it into the
// recording directory. Traversal attempts and non-AVI names fail.
func (s *Server) recordingPath(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || !strings.HasSuffix(name, ".avi") {
		return "", fmt.Errorf("invalid recording name %q", name)
	}
	return filepath.Join(s.cfg.RecordingDir, name), nil
}

func (s *Server) handleGetRecording(w http.ResponseWriter, r *http.Request) {
	path, err := s.recordingPath(r.PathValue("name"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid recording name")
		return
	}
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "recording not found")
		return
	}
	w.Header().Set("Content-Type", "video/x-msvideo")
	http.ServeFile(w, r, path)
}

func (s *Server) handleDeleteRecording(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	path, err := s.recordingPath(name)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid recording name")
		return
	}
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "recording not found")
		return
	}

	// Deleting the in-progress file means force-stopping the writer
	// first and pausing so the loop does not reopen it.
	forced := s.ctrl.StopIfActive(name)

	if err := os.Remove(path); err != nil {
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	logger.Info("Web", "Deleted recording %s (forced stop: %v)", name, forced)
	paused, recording := s.ctrl.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "deleted",
		"is_paused":    paused,
		"is_recording": recording,
	})
}

func (s *Server) handleTogglePause(w http.ResponseWriter, r *http.Request) {
	paused := s.ctrl.TogglePause()
	logger.Info("Web", "Recording pause toggled: %v", paused)
	writeJSON(w, http.StatusOK, map[string]bool{"is_paused": paused})
}

func (s *Server) handleRecordingStatus(w http.ResponseWriter, r *http.Request) {
	paused, recording := s.ctrl.Status()
	writeJSON(w, http.StatusOK, map[string]bool{
		"is_paused":    paused,
		"is_recording": recording,
	})
}

const maxUploadBytes = 5 << 20

// handleUploadAudio replaces the alert clip. Only WAV files are
// accepted; the write goes through a temp file so a failed upload never
// clobbers the current clip.
func (s *Server) handleUploadAudio(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".wav") {
		writeError(w, http.StatusBadRequest, "only WAV files are accepted")
		return
	}

	head := make([]byte, 4)
	if _, err := io.ReadFull(file, head); err != nil || string(head) != "RIFF" {
		writeError(w, http.StatusBadRequest, "file is not a valid WAV")
		return
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.cfg.AlertSoundPath), "upload-*.wav")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "upload failed")
		return
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(head); err == nil {
		_, err = io.Copy(tmp, file)
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), s.cfg.AlertSoundPath)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "upload failed")
		return
	}

	logger.Info("Web", "Alert sound replaced (%s, %d bytes)", header.Filename, header.Size)
	writeJSON(w, http.StatusOK, map[string]string{"status": "uploaded"})
}
