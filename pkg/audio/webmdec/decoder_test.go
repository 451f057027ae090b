package webmdec

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/signstream/signstream/pkg/audio"
)

func newTestDecoder(t *testing.T, opts ...Option) *Decoder {
	t.Helper()
	d, err := New(opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func wavFragment(sampleRate int, seconds float64) []byte {
	frames := int(float64(sampleRate) * seconds)
	samples := make([]float32, frames)
	for i := range samples {
		samples[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / float64(sampleRate)))
	}
	return audio.EncodeWAV(audio.Float32ToPCM(samples), sampleRate, 1)
}

func TestDecode_WAVFastPath(t *testing.T) {
	t.Parallel()

	// ffmpeg path points nowhere: a WAV fragment must decode without the
	// subprocess ever being invoked.
	d := newTestDecoder(t, WithFFmpegPath("/nonexistent/ffmpeg"))

	samples, err := d.Decode(context.Background(), wavFragment(16000, 0.5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := 8000; len(samples) != want {
		t.Errorf("got %d samples, want %d", len(samples), want)
	}
}

func TestDecode_ResamplesToTargetRate(t *testing.T) {
	t.Parallel()

	d := newTestDecoder(t, WithFFmpegPath("/nonexistent/ffmpeg"), WithTargetRate(16000))

	samples, err := d.Decode(context.Background(), wavFragment(8000, 1.0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := 16000; len(samples) != want {
		t.Errorf("got %d samples, want %d", len(samples), want)
	}
}

func TestDecode_Idempotent(t *testing.T) {
	t.Parallel()

	d := newTestDecoder(t, WithFFmpegPath("/nonexistent/ffmpeg"))
	frag := wavFragment(16000, 0.25)

	first, err := d.Decode(context.Background(), frag)
	if err != nil {
		t.Fatalf("first decode: %v", err)
	}
	second, err := d.Decode(context.Background(), frag)
	if err != nil {
		t.Fatalf("second decode: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("sample %d differs: %f vs %f", i, first[i], second[i])
		}
	}
}

func TestDecode_EmptyFragment(t *testing.T) {
	t.Parallel()

	d := newTestDecoder(t)
	_, err := d.Decode(context.Background(), nil)
	if !errors.Is(err, ErrUndecodable) {
		t.Errorf("got %v, want ErrUndecodable", err)
	}
}

func TestDecode_TranscoderUnavailable(t *testing.T) {
	t.Parallel()

	d := newTestDecoder(t, WithFFmpegPath("/nonexistent/ffmpeg"))

	// Non-WAV bytes force the subprocess path, which cannot start.
	_, err := d.Decode(context.Background(), []byte{0x1a, 0x45, 0xdf, 0xa3, 0x00, 0x01})
	if !errors.Is(err, ErrUndecodable) {
		t.Errorf("got %v, want ErrUndecodable", err)
	}
}

func TestDecode_CancelledContext(t *testing.T) {
	t.Parallel()

	d := newTestDecoder(t, WithFFmpegPath("/nonexistent/ffmpeg"), WithTimeout(time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Decode(ctx, []byte{0x1a, 0x45, 0xdf, 0xa3, 0x00, 0x01})
	if !errors.Is(err, ErrUndecodable) {
		t.Errorf("got %v, want ErrUndecodable", err)
	}
}

func TestNew_InvalidTargetRate(t *testing.T) {
	t.Parallel()

	if _, err := New(WithTargetRate(-1)); err == nil {
		t.Error("expected error for negative target rate")
	}
}

func TestClose_Idempotent(t *testing.T) {
	t.Parallel()

	d, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("first close: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
}
