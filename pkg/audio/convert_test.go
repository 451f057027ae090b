package audio

import (
	"encoding/binary"
	"math"
	"testing"
	"time"
)

func TestPCMToFloat32_KnownValues(t *testing.T) {
	t.Parallel()

	pcm := make([]byte, 8)
	samples := []int16{0, 16384, -16384, -32768}
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[2*i:], uint16(s))
	}

	got := PCMToFloat32(pcm)
	want := []float32{0, 0.5, -0.5, -1.0}
	if len(got) != len(want) {
		t.Fatalf("got %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-4 {
			t.Errorf("sample %d = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestPCMToFloat32_OddTrailingByte(t *testing.T) {
	t.Parallel()

	got := PCMToFloat32([]byte{0, 0, 42})
	if len(got) != 1 {
		t.Fatalf("got %d samples, want 1", len(got))
	}
}

func TestPCMToFloat32Mono_DownmixAverages(t *testing.T) {
	t.Parallel()

	// One stereo frame: left 0.5, right -0.5 → mono 0.
	pcm := make([]byte, 4)
	left, right := int16(16384), int16(-16384)
	binary.LittleEndian.PutUint16(pcm[0:], uint16(left))
	binary.LittleEndian.PutUint16(pcm[2:], uint16(right))

	got := PCMToFloat32Mono(pcm, 2)
	if len(got) != 1 {
		t.Fatalf("got %d samples, want 1", len(got))
	}
	if math.Abs(float64(got[0])) > 1e-4 {
		t.Errorf("mono sample = %f, want 0", got[0])
	}
}

func TestFloat32ToPCM_Clamps(t *testing.T) {
	t.Parallel()

	pcm := Float32ToPCM([]float32{2.0, -2.0})
	hi := int16(binary.LittleEndian.Uint16(pcm[0:2]))
	lo := int16(binary.LittleEndian.Uint16(pcm[2:4]))
	if hi != 32767 {
		t.Errorf("clamped high sample = %d, want 32767", hi)
	}
	if lo != -32767 {
		t.Errorf("clamped low sample = %d, want -32767", lo)
	}
}

func TestFloat32ToPCM_Roundtrip(t *testing.T) {
	t.Parallel()

	in := []float32{0, 0.25, -0.25, 0.99, -0.99}
	out := PCMToFloat32(Float32ToPCM(in))
	if len(out) != len(in) {
		t.Fatalf("got %d samples, want %d", len(out), len(in))
	}
	for i := range in {
		if math.Abs(float64(out[i]-in[i])) > 1e-3 {
			t.Errorf("sample %d = %f, want %f", i, out[i], in[i])
		}
	}
}

func TestResample_NoOpOnMatchingRates(t *testing.T) {
	t.Parallel()

	in := []float32{0.1, 0.2, 0.3}
	out := Resample(in, 16000, 16000)
	if &out[0] != &in[0] {
		t.Error("expected identical slice for matching rates")
	}
}

func TestResample_DoublesLength(t *testing.T) {
	t.Parallel()

	in := make([]float32, 8000)
	out := Resample(in, 8000, 16000)
	if len(out) != 16000 {
		t.Fatalf("got %d samples, want 16000", len(out))
	}
}

func TestResample_PreservesTone(t *testing.T) {
	t.Parallel()

	// A 440 Hz sine at 8 kHz upsampled to 16 kHz should still be a 440 Hz
	// sine. Compare against the analytic waveform away from the tail, where
	// the last-sample hold of linear interpolation distorts.
	const (
		srcRate = 8000
		dstRate = 16000
		freq    = 440.0
	)
	in := make([]float32, srcRate) // 1 s
	for i := range in {
		in[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / srcRate))
	}

	out := Resample(in, srcRate, dstRate)
	for i := 0; i < len(out)-4; i++ {
		want := math.Sin(2 * math.Pi * freq * float64(i) / dstRate)
		if math.Abs(float64(out[i])-want) > 0.05 {
			t.Fatalf("sample %d = %f, want %f (±0.05)", i, out[i], want)
		}
	}
}

func TestResample_Downsamples(t *testing.T) {
	t.Parallel()

	in := make([]float32, 44100)
	out := Resample(in, 44100, 16000)
	if len(out) != 16000 {
		t.Fatalf("got %d samples, want 16000", len(out))
	}
}

func TestDuration(t *testing.T) {
	t.Parallel()

	if d := Duration(16000, 16000); d != time.Second {
		t.Errorf("Duration(16000, 16000) = %v, want 1s", d)
	}
	if d := Duration(8000, 16000); d != 500*time.Millisecond {
		t.Errorf("Duration(8000, 16000) = %v, want 500ms", d)
	}
	if d := Duration(100, 0); d != 0 {
		t.Errorf("Duration with zero rate = %v, want 0", d)
	}
}
