package asr

import (
	"testing"
	"time"
)

func TestSampleBuffer_AppendAndLen(t *testing.T) {
	t.Parallel()

	var b SampleBuffer
	if !b.Empty() {
		t.Error("new buffer not empty")
	}
	b.Append(make([]float32, 100))
	b.Append(make([]float32, 50))
	if b.Len() != 150 {
		t.Errorf("Len = %d, want 150", b.Len())
	}
	if b.Empty() {
		t.Error("buffer with samples reported empty")
	}
}

func TestSampleBuffer_TakeDetaches(t *testing.T) {
	t.Parallel()

	var b SampleBuffer
	b.Append([]float32{1, 2, 3})

	window := b.Take()
	if len(window) != 3 {
		t.Fatalf("window length = %d, want 3", len(window))
	}
	if !b.Empty() {
		t.Error("buffer not empty after Take")
	}

	// Appending after Take must not touch the taken window.
	b.Append([]float32{9, 9, 9})
	if window[0] != 1 || window[1] != 2 || window[2] != 3 {
		t.Errorf("taken window mutated: %v", window)
	}
}

func TestSampleBuffer_Clear(t *testing.T) {
	t.Parallel()

	var b SampleBuffer
	b.Append(make([]float32, 42))
	b.Clear()
	if !b.Empty() {
		t.Error("buffer not empty after Clear")
	}
}

func TestSampleBuffer_Duration(t *testing.T) {
	t.Parallel()

	var b SampleBuffer
	b.Append(make([]float32, 8000))
	if d := b.Duration(16000); d != 500*time.Millisecond {
		t.Errorf("Duration = %v, want 500ms", d)
	}
}
