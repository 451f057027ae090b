// Package engine defines the Transcriber interface for batch speech-to-text
// backends.
//
// A Transcriber wraps a pretrained speech model (a local whisper.cpp model,
// a whisper-server instance, ...) behind a single synchronous call. Each call
// is a complete, stateless batch inference over the supplied sample window;
// the model carries no memory between calls.
//
// A Transcriber instance is a heavyweight shared service: one instance is
// typically constructed at startup and handed to every stream's pipeline.
// Implementations must therefore be safe for concurrent use, serialising
// inference internally when the underlying runtime is not reentrant.
package engine

import "context"

// Transcriber converts a window of normalised float32 mono samples into
// recognised text.
type Transcriber interface {
	// Transcribe runs one batch inference over samples (assumed mono at the
	// pipeline's canonical sample rate) and returns the recognised text.
	// Very short or silent windows yield an empty string, not an error.
	// Errors indicate an internal inference failure and are recoverable:
	// the caller may keep submitting subsequent windows.
	Transcribe(ctx context.Context, samples []float32) (string, error)
}
