// Package camera owns the capture device and supplies frames to the
// tick loop.
package camera

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/smartstudy/studycam/internal/logger"
)

// Source wraps a video capture device. Only the tick loop reads from it;
// a failed read triggers a reopen attempt and the caller skips the tick.
type Source struct {
	deviceID int
	cap      *gocv.VideoCapture
}

// Open opens the configured device, falling back to device 1 when
// device 0 is unavailable (common when an external webcam shadows the
// built-in one).
func Open(deviceID int) (*Source, error) {
	s := &Source{deviceID: deviceID}

	cap, err := gocv.OpenVideoCapture(deviceID)
	if err == nil && cap.IsOpened() {
		s.cap = cap
		return s, nil
	}
	if cap != nil {
		_ = cap.Close()
	}

	if deviceID == 0 {
		cap, err = gocv.OpenVideoCapture(1)
		if err == nil && cap.IsOpened() {
			logger.Warn("Camera", "Device 0 unavailable, using device 1")
			s.deviceID = 1
			s.cap = cap
			return s, nil
		}
		if cap != nil {
			_ = cap.Close()
		}
	}

	// The loop retries through Read, so a missing camera at startup is
	// not fatal.
	logger.Warn("Camera", "No capture device available yet, will retry")
	return s, nil
}

// Read fetches the next frame into dst. On failure it re-opens the
// device so the next call can succeed; no backoff is applied.
func (s *Source) Read(dst *gocv.Mat) bool {
	if s.cap == nil || !s.cap.IsOpened() {
		s.reopen()
		return false
	}
	if !s.cap.Read(dst) || dst.Empty() {
		s.reopen()
		return false
	}
	return true
}

func (s *Source) reopen() {
	if s.cap != nil {
		_ = s.cap.Close()
		s.cap = nil
	}
	cap, err := gocv.OpenVideoCapture(s.deviceID)
	if err != nil || !cap.IsOpened() {
		if cap != nil {
			_ = cap.Close()
		}
		return
	}
	logger.Info("Camera", "Reconnected to device %d", s.deviceID)
	s.cap = cap
}

// Close releases the device.
func (s *Source) Close() error {
	if s.cap == nil {
		return nil
	}
	if err := s.cap.Close(); err != nil {
		return fmt.Errorf("close capture device: %w", err)
	}
	s.cap = nil
	return nil
}
