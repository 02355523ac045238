// Package sound plays the distraction alert. Playback is best-effort: a
// missing or unreadable WAV asset degrades to a generated tone, and
// playback failures are logged, never surfaced to the tick loop.
package sound

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/go-audio/wav"

	"github.com/smartstudy/studycam/internal/logger"
)

const playbackTimeout = 10 * time.Second

// Player plays the alert asset asynchronously.
type Player struct {
	mu      sync.Mutex
	path    string
	playing bool
}

// NewPlayer creates a player for the WAV file at path. The file may not
// exist yet; it is read on each play so uploads take effect immediately.
func NewPlayer(path string) *Player {
	return &Player{path: path}
}

// SetPath swaps the alert asset path.
func (p *Player) SetPath(path string) {
	p.mu.Lock()
	p.path = path
	p.mu.Unlock()
}

// Play starts playback in the background. Overlapping alerts are
// coalesced: a second Play while one is in flight is a no-op (the
// cooldown makes this rare anyway).
func (p *Player) Play() {
	p.mu.Lock()
	if p.playing {
		p.mu.Unlock()
		return
	}
	p.playing = true
	path := p.path
	p.mu.Unlock()

	go func() {
		defer func() {
			p.mu.Lock()
			p.playing = false
			p.mu.Unlock()
		}()

		clip, err := loadWAV(path)
		if err != nil {
			logger.Debug("Sound", "Alert file unusable (%v), using fallback tone", err)
			clip = fallbackTone()
		}
		if err := playClip(clip); err != nil {
			logger.Warn("Sound", "Playback failed: %v", err)
		}
	}()
}

// clip is raw signed 16-bit little-endian PCM plus its format.
type clip struct {
	pcm        []byte
	channels   int
	sampleRate int
}

func loadWAV(path string) (clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return clip{}, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return clip{}, fmt.Errorf("%s is not a valid WAV file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return clip{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if buf.Format == nil || len(buf.Data) == 0 {
		return clip{}, fmt.Errorf("%s contains no audio", path)
	}

	shift := uint(0)
	if dec.BitDepth > 16 {
		shift = uint(dec.BitDepth - 16)
	}
	pcm := make([]byte, len(buf.Data)*2)
	for i, s := range buf.Data {
		v := s >> shift
		if dec.BitDepth == 8 {
			v = (s - 128) << 8
		}
		pcm[i*2] = byte(v)
		pcm[i*2+1] = byte(v >> 8)
	}

	return clip{
		pcm:        pcm,
		channels:   buf.Format.NumChannels,
		sampleRate: buf.Format.SampleRate,
	}, nil
}

func playClip(c clip) error {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("init audio context: %w", err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = uint32(c.channels)
	cfg.SampleRate = uint32(c.sampleRate)

	var (
		pos  int
		once sync.Once
		done = make(chan struct{})
	)
	callbacks := malgo.DeviceCallbacks{
		Data: func(out, _ []byte, _ uint32) {
			n := copy(out, c.pcm[pos:])
			pos += n
			if pos >= len(c.pcm) {
				once.Do(func() { close(done) })
			}
		},
	}

	device, err := malgo.InitDevice(ctx.Context, cfg, callbacks)
	if err != nil {
		return fmt.Errorf("init playback device: %w", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fmt.Errorf("start playback: %w", err)
	}

	select {
	case <-done:
		// Let the device drain its last buffer.
		time.Sleep(50 * time.Millisecond)
	case <-time.After(playbackTimeout):
	}
	return nil
}
