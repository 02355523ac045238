package session

import (
	"fmt"
	"path/filepath"
	"time"

	"gocv.io/x/gocv"
)

const recordingCodec = "MJPG"

// VideoSink is an open recording file accepting frames.
type VideoSink interface {
	Write(frame gocv.Mat) error
	Close() error
}

// SinkFactory opens a sink for a new recording file.
type SinkFactory func(path string, fps float64, width, height int) (VideoSink, error)

// MJPEGSink opens an OpenCV VideoWriter producing an MJPG-encoded AVI.
func MJPEGSink(path string, fps float64, width, height int) (VideoSink, error) {
	w, err := gocv.VideoWriterFile(path, recordingCodec, fps, width, height, true)
	if err != nil {
		return nil, fmt.Errorf("open video writer %s: %w", path, err)
	}
	if !w.IsOpened() {
		_ = w.Close()
		return nil, fmt.Errorf("video writer %s did not open", path)
	}
	return &mjpegSink{writer: w}, nil
}

type mjpegSink struct {
	writer *gocv.VideoWriter
}

func (s *mjpegSink) Write(frame gocv.Mat) error {
	return s.writer.Write(frame)
}

func (s *mjpegSink) Close() error {
	return s.writer.Close()
}

// recorder is the recording state machine: Idle when sink is nil,
// Recording otherwise. It is not self-locking; the controller's mutex
// guards every call so transitions stay atomic with respect to the
// control handlers.
type recorder struct {
	dir     string
	fps     float64
	width   int
	height  int
	newSink SinkFactory

	sink      VideoSink
	path      string
	startedAt time.Time
	frames    uint64
}

func (r *recorder) active() bool {
	return r.sink != nil
}

// start transitions Idle -> Recording, allocating a timestamp-named file.
func (r *recorder) start(now time.Time) error {
	if r.sink != nil {
		return fmt.Errorf("already recording %s", r.path)
	}

	name := fmt.Sprintf("Study_Session_%s.avi", now.Format("2006-01-02_15-04-05"))
	path := filepath.Join(r.dir, name)

	sink, err := r.newSink(path, r.fps, r.width, r.height)
	if err != nil {
		return err
	}

	r.sink = sink
	r.path = path
	r.startedAt = now
	r.frames = 0
	return nil
}

// write appends one frame to the open file.
func (r *recorder) write(frame gocv.Mat) error {
	if r.sink == nil {
		return fmt.Errorf("not recording")
	}
	if err := r.sink.Write(frame); err != nil {
		return err
	}
	r.frames++
	return nil
}

// stop transitions Recording -> Idle, releasing the writer handle.
func (r *recorder) stop() {
	if r.sink == nil {
		return
	}
	_ = r.sink.Close()
	r.sink = nil
	r.path = ""
}
