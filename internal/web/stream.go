package web

import (
	"fmt"
	"net/http"
	"time"

	"github.com/smartstudy/studycam/internal/annotate"
	"github.com/smartstudy/studycam/internal/logger"
)

// keepaliveInterval bounds how long a stream client goes without a part
// when the camera is producing nothing.
const keepaliveInterval = 5 * time.Second

// placeholderFrame renders the frame shown before the first real one.
func placeholderFrame(width, height int) []byte {
	data, err := annotate.Placeholder(width, height, "Waiting for camera...")
	if err != nil {
		logger.Warn("Stream", "Placeholder render failed: %v", err)
		return nil
	}
	return data
}

// handleVideoFeed serves the live MJPEG stream. Each client gets its own
// subscription; slow clients only skip frames, they never stall the tick
// loop or each other.
func (s *Server) handleVideoFeed(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "close")

	id, frames := s.frames.Subscribe()
	defer s.frames.Unsubscribe(id)
	logger.Info("Stream", "Client #%d connected from %s", id, r.RemoteAddr)

	// Show something immediately, the last real frame if one exists.
	first := s.frames.Latest()
	if first == nil {
		first = s.placeholder
	}
	if err := writePart(w, first); err != nil {
		return
	}
	flusher.Flush()

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			logger.Info("Stream", "Client #%d disconnected", id)
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			if err := writePart(w, frame); err != nil {
				logger.Debug("Stream", "Client #%d write failed: %v", id, err)
				return
			}
			flusher.Flush()
			keepalive.Reset(keepaliveInterval)
		case <-keepalive.C:
			if err := writePart(w, s.placeholder); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writePart(w http.ResponseWriter, frame []byte) error {
	if frame == nil {
		return nil
	}
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(frame)); err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return err
	}
	_, err := w.Write([]byte("\r\n"))
	return err
}
