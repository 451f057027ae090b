// This file contains the Native engine backed by the whisper.cpp CGO
// bindings. The whisper.cpp static library (libwhisper.a) and headers
// (whisper.h) must be available at link time via LIBRARY_PATH and
// C_INCLUDE_PATH environment variables.

package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/signstream/signstream/pkg/engine"
)

// Compile-time assertion that Native satisfies engine.Transcriber.
var _ engine.Transcriber = (*Native)(nil)

// NativeOption is a functional option for configuring a Native engine.
type NativeOption func(*Native)

// WithNativeLanguage sets the BCP-47 language code for transcription
// (e.g., "en", "de", "fr"). Defaults to "en".
func WithNativeLanguage(lang string) NativeOption {
	return func(n *Native) { n.language = lang }
}

// Native implements engine.Transcriber using whisper.cpp Go bindings (CGO).
// The model is loaded once at construction and shared across all streams.
//
// whisper.cpp contexts are not reentrant, so Native serialises inference
// with an internal mutex: concurrent callers queue rather than corrupt
// shared state.
type Native struct {
	model    whisperlib.Model
	language string

	mu sync.Mutex
}

// NewNative loads the whisper.cpp model from modelPath. The caller must call
// Close when the engine is no longer needed.
func NewNative(modelPath string, opts ...NativeOption) (*Native, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	n := &Native{
		model:    model,
		language: defaultLanguage,
	}
	for _, o := range opts {
		o(n)
	}
	return n, nil
}

// Close releases the whisper model.
func (n *Native) Close() error {
	if n.model != nil {
		return n.model.Close()
	}
	return nil
}

// Transcribe runs one batch inference over the sample window and returns the
// concatenated segment text. Empty windows short-circuit to "".
//
// whisper.cpp offers no mid-inference cancellation; ctx is only honoured
// before inference begins and while waiting for the engine mutex.
func (n *Native) Transcribe(ctx context.Context, samples []float32) (string, error) {
	if len(samples) == 0 {
		return "", nil
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("whisper: %w", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("whisper: %w", err)
	}

	// Each inference gets a fresh whisper context; the loaded model itself
	// is shareable.
	wctx, err := n.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisper: create context: %w", err)
	}

	if err := wctx.SetLanguage(n.language); err != nil {
		slog.Warn("whisper: failed to set language, using default", "language", n.language, "error", err)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whisper: read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, " "), nil
}
