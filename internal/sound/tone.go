package sound

import "math"

const (
	toneFrequency  = 1000.0
	toneSampleRate = 44100
	toneDurationMs = 200
	toneAmplitude  = 0.3
)

// fallbackTone synthesizes the short beep played when the configured
// alert asset cannot be used.
func fallbackTone() clip {
	samples := toneSampleRate * toneDurationMs / 1000
	pcm := make([]byte, samples*2)
	for i := range samples {
		v := int16(toneAmplitude * math.MaxInt16 *
			math.Sin(2*math.Pi*toneFrequency*float64(i)/toneSampleRate))
		pcm[i*2] = byte(v)
		pcm[i*2+1] = byte(v >> 8)
	}
	return clip{
		pcm:        pcm,
		channels:   1,
		sampleRate: toneSampleRate,
	}
}
