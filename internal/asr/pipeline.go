// Package asr implements the streaming audio transcription pipeline: it
// receives irregularly-sized compressed fragments, normalises them into a
// uniform decoded sample stream, accumulates samples until a flush threshold
// is reached, runs a batch speech-to-text pass over the accumulated window,
// and maps each outcome to a small event vocabulary for the caller.
//
// One Pipeline serves one stream. The caller must invoke Process for one
// fragment at a time and deliver the returned events before reading the next
// fragment; the Pipeline performs no internal locking. The Transcriber is
// the only component shared across pipelines.
package asr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/signstream/signstream/internal/observe"
	"github.com/signstream/signstream/pkg/engine"
)

const (
	// defaultSampleRate is the pipeline's canonical sample rate in Hz.
	defaultSampleRate = 16000

	// defaultFlushThreshold is the amount of buffered audio that triggers a
	// transcription pass.
	defaultFlushThreshold = 5 * time.Second

	// maxErrorTextLen bounds the diagnostic text surfaced to clients when
	// inference fails.
	maxErrorTextLen = 100
)

// Decoder converts one compressed fragment into normalised mono samples at
// the pipeline's canonical sample rate. Implementations report every decode
// problem as an error; the Pipeline treats all of them as recoverable.
type Decoder interface {
	Decode(ctx context.Context, fragment []byte) ([]float32, error)
}

// Option is a functional option for configuring a Pipeline.
type Option func(*Pipeline)

// WithSampleRate sets the canonical sample rate in Hz. Defaults to 16000.
func WithSampleRate(rate int) Option {
	return func(p *Pipeline) { p.sampleRate = rate }
}

// WithFlushThreshold sets the buffered-audio duration at which a
// transcription pass is triggered. The threshold is a hard floor, not a
// target: the window submitted to the engine includes everything accumulated,
// overshoot included. Defaults to 5 s.
func WithFlushThreshold(d time.Duration) Option {
	return func(p *Pipeline) { p.flushThreshold = d }
}

// WithLogger sets the logger used for per-fragment diagnostics.
// Defaults to slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithMetrics attaches pipeline metrics. When nil (the default) no metrics
// are recorded.
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// Pipeline orchestrates decode → resample → buffer → transcribe for a single
// stream. It alternates between accumulating (buffer below threshold) and
// flushing (buffer at/above threshold, transcription in progress) for the
// lifetime of the stream; there is no terminal state.
type Pipeline struct {
	dec Decoder
	eng engine.Transcriber

	sampleRate     int
	flushThreshold time.Duration
	flushSamples   int

	buf       SampleBuffer
	fragments int

	log     *slog.Logger
	metrics *observe.Metrics
}

// New creates a Pipeline that decodes fragments with dec and transcribes
// accumulated windows with eng.
func New(dec Decoder, eng engine.Transcriber, opts ...Option) *Pipeline {
	p := &Pipeline{
		dec:            dec,
		eng:            eng,
		sampleRate:     defaultSampleRate,
		flushThreshold: defaultFlushThreshold,
		log:            slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	p.flushSamples = int(int64(p.sampleRate) * int64(p.flushThreshold) / int64(time.Second))
	return p
}

// BufferedSamples returns the number of samples currently accumulated.
// Intended for tests and stats reporting.
func (p *Pipeline) BufferedSamples() int { return p.buf.Len() }

// Process handles one incoming fragment and returns the status events it
// produced, in emission order. It never returns an error: every failure mode
// is mapped to an interim diagnostic event so the stream keeps flowing.
func (p *Pipeline) Process(ctx context.Context, fragment []byte) []Event {
	if len(fragment) == 0 {
		p.log.Debug("ignoring empty fragment")
		return nil
	}

	p.fragments++
	if p.metrics != nil {
		p.metrics.FragmentsReceived.Add(ctx, 1)
	}
	p.log.Debug("fragment received", "n", p.fragments, "bytes", len(fragment))

	samples, err := p.dec.Decode(ctx, fragment)
	if err != nil {
		// Expected for the first fragments of a compressed stream: the
		// container header may not be complete yet. Keep accumulating and
		// retry on the next fragment; the buffer is left untouched.
		p.log.Warn("fragment decode failed", "n", p.fragments, "error", err)
		if p.metrics != nil {
			p.metrics.DecodeFailures.Add(ctx, 1)
		}
		return []Event{{Type: EventInterim, Text: "Processing audio..."}}
	}

	p.buf.Append(samples)
	p.log.Debug("buffer state",
		"samples", p.buf.Len(),
		"duration", p.buf.Duration(p.sampleRate),
	)

	if p.buf.Len() >= p.flushSamples {
		return p.flush(ctx)
	}

	return []Event{{
		Type: EventInterim,
		Text: fmt.Sprintf("Listening... (%d fragments)", p.fragments),
	}}
}

// flush transcribes everything accumulated and clears the buffer
// unconditionally — success, empty result, and inference failure all clear
// it. Discarding a bad or silent window instead of retrying it bounds
// worst-case memory and guarantees forward progress.
func (p *Pipeline) flush(ctx context.Context) []Event {
	window := p.buf.Take()
	windowDur := time.Duration(int64(len(window)) * int64(time.Second) / int64(p.sampleRate))
	p.log.Info("transcribing window", "samples", len(window), "duration", windowDur)

	start := time.Now()
	text, err := p.eng.Transcribe(ctx, window)
	elapsed := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
	}
	if p.metrics != nil {
		p.metrics.TranscribeDuration.Record(ctx, elapsed.Seconds())
		p.metrics.Transcriptions.Add(ctx, 1,
			metric.WithAttributes(attribute.String("status", status)))
	}

	if err != nil {
		p.log.Error("transcription failed", "error", err, "elapsed", elapsed)
		return []Event{{
			Type: EventInterim,
			Text: "Transcription error: " + truncate(err.Error(), maxErrorTextLen),
		}}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		p.log.Info("no speech detected", "elapsed", elapsed)
		return []Event{{Type: EventInterim, Text: "No speech detected"}}
	}

	p.log.Info("transcribed", "text", text, "elapsed", elapsed)
	return []Event{{Type: EventFinal, Text: text}}
}

// truncate shortens s to at most n bytes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// IsContextErr reports whether err stems from context cancellation; used by
// the transport layer to tell client disconnects from pipeline problems.
func IsContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
