package asr

import (
	"time"

	"github.com/signstream/signstream/pkg/audio"
)

// SampleBuffer is an append-only accumulator of normalised mono samples with
// no internal synchronisation. Each [Pipeline] owns exactly one SampleBuffer
// and is the only caller; Clear is the only operation that shrinks it.
type SampleBuffer struct {
	samples []float32
}

// Append adds samples to the end of the buffer. Never fails.
func (b *SampleBuffer) Append(samples []float32) {
	b.samples = append(b.samples, samples...)
}

// Len returns the number of buffered samples.
func (b *SampleBuffer) Len() int { return len(b.samples) }

// Empty reports whether the buffer holds no samples.
func (b *SampleBuffer) Empty() bool { return len(b.samples) == 0 }

// Take returns the accumulated samples and resets the buffer to empty in one
// step. The returned slice is detached: subsequent Appends allocate fresh
// backing storage, so the caller may hold the window for the duration of an
// inference call.
func (b *SampleBuffer) Take() []float32 {
	samples := b.samples
	b.samples = nil
	return samples
}

// Clear resets the buffer to empty, discarding all samples.
func (b *SampleBuffer) Clear() { b.samples = nil }

// Duration returns the playback duration of the buffered samples at the
// given sample rate.
func (b *SampleBuffer) Duration(sampleRate int) time.Duration {
	return audio.Duration(len(b.samples), sampleRate)
}
