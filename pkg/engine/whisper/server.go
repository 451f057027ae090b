// Package whisper provides whisper.cpp-backed implementations of
// engine.Transcriber.
//
// Two backends are available:
//
//   - [Native] loads a model through the whisper.cpp CGO bindings and runs
//     inference in-process.
//   - [Server] talks to a running whisper-server binary (REST API at
//     POST /inference), which keeps CGO out of the build at the cost of a
//     local HTTP round trip per window.
//
// Both are batch engines: each Transcribe call is a complete inference over
// the supplied window and the model keeps no state between calls.
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/signstream/signstream/pkg/audio"
	"github.com/signstream/signstream/pkg/engine"
)

const (
	defaultLanguage   = "en"
	defaultSampleRate = 16000
)

// Compile-time assertion that Server satisfies engine.Transcriber.
var _ engine.Transcriber = (*Server)(nil)

// ServerOption is a functional option for configuring a Server engine.
type ServerOption func(*Server)

// WithModel sets the model identifier forwarded to the whisper-server
// (e.g., "base.en", "small"). When empty the server uses whichever model it
// was started with — this is the default.
func WithModel(model string) ServerOption {
	return func(s *Server) { s.model = model }
}

// WithLanguage sets the BCP-47 language code sent to the whisper-server
// (e.g., "en", "de", "fr"). Defaults to "en".
func WithLanguage(lang string) ServerOption {
	return func(s *Server) { s.language = lang }
}

// WithSampleRate sets the sample rate declared in the WAV header of each
// inference upload. Must match the rate of the samples passed to Transcribe.
// Defaults to 16000.
func WithSampleRate(rate int) ServerOption {
	return func(s *Server) { s.sampleRate = rate }
}

// WithHTTPClient overrides the HTTP client used for inference requests.
// The default client carries a 30 s timeout.
func WithHTTPClient(c *http.Client) ServerOption {
	return func(s *Server) { s.httpClient = c }
}

// Server implements engine.Transcriber backed by a whisper-server HTTP
// endpoint. Safe for concurrent use; the server queues requests itself.
type Server struct {
	serverURL  string
	model      string
	language   string
	sampleRate int
	httpClient *http.Client
}

// NewServer creates a Server engine that connects to the whisper-server at
// serverURL (e.g., "http://localhost:8080"). serverURL must be non-empty.
func NewServer(serverURL string, opts ...ServerOption) (*Server, error) {
	if serverURL == "" {
		return nil, errors.New("whisper: serverURL must not be empty")
	}
	s := &Server{
		serverURL:  serverURL,
		language:   defaultLanguage,
		sampleRate: defaultSampleRate,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Transcribe encodes the window as a WAV file and POSTs it to the
// whisper-server /inference endpoint as multipart/form-data. Empty windows
// short-circuit to "".
func (s *Server) Transcribe(ctx context.Context, samples []float32) (string, error) {
	if len(samples) == 0 {
		return "", nil
	}

	wav := audio.EncodeWAV(audio.Float32ToPCM(samples), s.sampleRate, 1)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("whisper: create form file: %w", err)
	}
	if _, err := fw.Write(wav); err != nil {
		return "", fmt.Errorf("whisper: write wav data: %w", err)
	}

	if s.language != "" {
		if err := mw.WriteField("language", s.language); err != nil {
			return "", fmt.Errorf("whisper: write language field: %w", err)
		}
	}
	if s.model != "" {
		if err := mw.WriteField("model", s.model); err != nil {
			return "", fmt.Errorf("whisper: write model field: %w", err)
		}
	}

	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("whisper: close multipart writer: %w", err)
	}

	endpoint := s.serverURL + "/inference"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("whisper: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("whisper: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("whisper: server returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("whisper: read response body: %w", err)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("whisper: parse JSON response: %w", err)
	}

	return result.Text, nil
}
