package sound

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFallbackToneShape(t *testing.T) {
	c := fallbackTone()
	if c.channels != 1 {
		t.Fatalf("channels = %d", c.channels)
	}
	if c.sampleRate != toneSampleRate {
		t.Fatalf("sampleRate = %d", c.sampleRate)
	}
	wantSamples := toneSampleRate * toneDurationMs / 1000
	if len(c.pcm) != wantSamples*2 {
		t.Fatalf("pcm length = %d, want %d", len(c.pcm), wantSamples*2)
	}

	// A sine tone is not silence.
	silent := true
	for _, b := range c.pcm {
		if b != 0 {
			silent = false
			break
		}
	}
	if silent {
		t.Fatalf("tone is all zeros")
	}
}

func TestLoadWAVMissingFile(t *testing.T) {
	if _, err := loadWAV(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadWAVRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.wav")
	if err := os.WriteFile(path, []byte("not a wav"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := loadWAV(path); err == nil {
		t.Fatalf("expected error for non-WAV data")
	}
}
