// Package webmdec decodes compressed audio fragments into normalised float32
// mono samples at a canonical sample rate.
//
// Browsers deliver MediaRecorder output as WebM/Opus fragments. Go has no
// in-process WebM demuxer worth depending on, so decoding shells out to
// ffmpeg, which transcodes the fragment to 16-bit mono PCM WAV in a scratch
// file that is then parsed by [audio.DecodeWAV]. Fragments that already carry
// a RIFF/WAVE header skip the subprocess entirely.
//
// A Decoder owns a private scratch directory whose input/output files are
// overwritten on every call, so at most one Decode may be in flight per
// Decoder instance. Create one Decoder per stream.
package webmdec

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/signstream/signstream/pkg/audio"
)

const (
	defaultFFmpegPath = "ffmpeg"
	defaultTimeout    = 10 * time.Second
	defaultTargetRate = 16000
)

// ErrUndecodable is wrapped by every error returned from [Decoder.Decode].
// Callers should treat it as a recoverable per-fragment failure: the first
// fragment of a compressed stream frequently cannot be decoded on its own
// because the container header is incomplete.
var ErrUndecodable = errors.New("webmdec: fragment could not be decoded")

// Option is a functional option for configuring a Decoder.
type Option func(*Decoder)

// WithFFmpegPath overrides the ffmpeg binary used for transcoding.
// Defaults to "ffmpeg" resolved via PATH.
func WithFFmpegPath(path string) Option {
	return func(d *Decoder) { d.ffmpegPath = path }
}

// WithTimeout sets the hard wall-clock bound on a single transcode.
// A transcode exceeding it is killed and reported as undecodable.
// Defaults to 10 s.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Decoder) { d.timeout = timeout }
}

// WithTargetRate sets the canonical output sample rate in Hz.
// Defaults to 16000.
func WithTargetRate(rate int) Option {
	return func(d *Decoder) { d.targetRate = rate }
}

// Decoder converts one compressed audio fragment at a time into float32 mono
// samples at the target rate. Not safe for concurrent use; the scratch files
// are shared across calls.
type Decoder struct {
	ffmpegPath string
	timeout    time.Duration
	targetRate int

	scratchDir string
	inPath     string
	outPath    string
}

// New creates a Decoder with a fresh scratch directory. The caller must call
// Close to remove the scratch directory when the stream ends.
func New(opts ...Option) (*Decoder, error) {
	d := &Decoder{
		ffmpegPath: defaultFFmpegPath,
		timeout:    defaultTimeout,
		targetRate: defaultTargetRate,
	}
	for _, o := range opts {
		o(d)
	}
	if d.targetRate <= 0 {
		return nil, fmt.Errorf("webmdec: invalid target rate %d", d.targetRate)
	}

	dir, err := os.MkdirTemp("", "webmdec-*")
	if err != nil {
		return nil, fmt.Errorf("webmdec: create scratch dir: %w", err)
	}
	d.scratchDir = dir
	d.inPath = filepath.Join(dir, "fragment.webm")
	d.outPath = filepath.Join(dir, "fragment.wav")
	return d, nil
}

// Close removes the decoder's scratch directory. Safe to call more than once.
func (d *Decoder) Close() error {
	if d.scratchDir == "" {
		return nil
	}
	dir := d.scratchDir
	d.scratchDir = ""
	return os.RemoveAll(dir)
}

// Decode converts one fragment into normalised mono samples at the target
// rate. It is a pure function of the fragment bytes as far as callers are
// concerned: equal inputs produce equal outputs.
//
// Every failure mode (transcoder exit status, timeout, corrupt intermediate
// WAV) is reported as an error wrapping [ErrUndecodable]; none of them are
// fatal to the surrounding stream.
func (d *Decoder) Decode(ctx context.Context, fragment []byte) ([]float32, error) {
	if len(fragment) == 0 {
		return nil, fmt.Errorf("%w: empty fragment", ErrUndecodable)
	}

	// Linear-PCM fast path: WAV fragments need no transcoding.
	if audio.IsWAV(fragment) {
		return d.parseWAV(fragment)
	}

	if err := os.WriteFile(d.inPath, fragment, 0o600); err != nil {
		return nil, fmt.Errorf("%w: write scratch input: %w", ErrUndecodable, err)
	}

	tctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	cmd := exec.CommandContext(tctx, d.ffmpegPath,
		"-i", d.inPath,
		"-acodec", "pcm_s16le",
		"-ar", fmt.Sprint(d.targetRate),
		"-ac", "1",
		"-y",
		d.outPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		if tctx.Err() != nil {
			return nil, fmt.Errorf("%w: transcode exceeded %s", ErrUndecodable, d.timeout)
		}
		return nil, fmt.Errorf("%w: ffmpeg: %w (%s)", ErrUndecodable, err, firstLine(out))
	}

	wav, err := os.ReadFile(d.outPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read scratch output: %w", ErrUndecodable, err)
	}
	return d.parseWAV(wav)
}

// parseWAV decodes a WAV byte sequence and resamples to the target rate when
// the declared rate differs.
func (d *Decoder) parseWAV(wav []byte) ([]float32, error) {
	info, samples, err := audio.DecodeWAV(wav)
	if err != nil {
		return nil, fmt.Errorf("%w: parse wav: %w", ErrUndecodable, err)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: wav contains no samples", ErrUndecodable)
	}
	if info.SampleRate != d.targetRate {
		samples = audio.Resample(samples, info.SampleRate, d.targetRate)
	}
	return samples, nil
}

// firstLine trims ffmpeg's stderr spew down to its final non-empty line,
// which is where ffmpeg puts the actual error.
func firstLine(out []byte) string {
	var last string
	start := 0
	for i := 0; i <= len(out); i++ {
		if i == len(out) || out[i] == '\n' {
			if i > start {
				last = string(out[start:i])
			}
			start = i + 1
		}
	}
	if len(last) > 200 {
		last = last[:200]
	}
	return last
}
