// Package mock provides a test double for the engine.Transcriber interface.
//
// Use Transcriber to script per-call results and inspect the sample windows
// the caller submitted:
//
//	eng := &mock.Transcriber{Results: []string{"", "hello world"}}
//	text, _ := eng.Transcribe(ctx, window)
package mock

import (
	"context"
	"sync"

	"github.com/signstream/signstream/pkg/engine"
)

// Compile-time assertion that Transcriber implements engine.Transcriber.
var _ engine.Transcriber = (*Transcriber)(nil)

// Transcriber is a mock implementation of engine.Transcriber.
type Transcriber struct {
	mu sync.Mutex

	// Results is consumed one element per Transcribe call. When exhausted
	// (or empty), Transcribe returns Text.
	Results []string

	// Text is the fallback result once Results is exhausted.
	Text string

	// Err, if non-nil, is returned from every Transcribe call.
	Err error

	// Calls records the length of every sample window submitted.
	Calls []int
}

// Transcribe records the call and returns the next scripted result.
func (t *Transcriber) Transcribe(_ context.Context, samples []float32) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Calls = append(t.Calls, len(samples))
	if t.Err != nil {
		return "", t.Err
	}
	if len(t.Results) > 0 {
		text := t.Results[0]
		t.Results = t.Results[1:]
		return text, nil
	}
	return t.Text, nil
}

// CallCount returns the number of Transcribe invocations so far. Thread-safe.
func (t *Transcriber) CallCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Calls)
}
