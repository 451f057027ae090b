package whisper

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/signstream/signstream/pkg/audio"
)

func toneWindow(seconds float64) []float32 {
	n := int(16000 * seconds)
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / 16000))
	}
	return samples
}

func TestServer_Transcribe(t *testing.T) {
	t.Parallel()

	var gotLanguage string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/inference" {
			t.Errorf("path = %q, want /inference", r.URL.Path)
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		gotLanguage = r.FormValue("language")

		file, _, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer file.Close()

		head := make([]byte, 12)
		if _, err := file.Read(head); err != nil {
			t.Fatalf("read upload: %v", err)
		}
		if !audio.IsWAV(head) {
			t.Error("uploaded file is not a WAV container")
		}

		json.NewEncoder(w).Encode(map[string]string{"text": " hello there "})
	}))
	defer ts.Close()

	eng, err := NewServer(ts.URL, WithLanguage("de"))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	text, err := eng.Transcribe(context.Background(), toneWindow(0.5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != " hello there " {
		t.Errorf("text = %q, want %q", text, " hello there ")
	}
	if gotLanguage != "de" {
		t.Errorf("language field = %q, want %q", gotLanguage, "de")
	}
}

func TestServer_Transcribe_EmptyWindow(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("empty window must not reach the server")
	}))
	defer ts.Close()

	eng, err := NewServer(ts.URL)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	text, err := eng.Transcribe(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "" {
		t.Errorf("text = %q, want empty", text)
	}
}

func TestServer_Transcribe_HTTPError(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer ts.Close()

	eng, err := NewServer(ts.URL)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if _, err := eng.Transcribe(context.Background(), toneWindow(0.1)); err == nil {
		t.Error("expected error for HTTP 500")
	}
}

func TestServer_Transcribe_BadJSON(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer ts.Close()

	eng, err := NewServer(ts.URL)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if _, err := eng.Transcribe(context.Background(), toneWindow(0.1)); err == nil {
		t.Error("expected error for malformed response body")
	}
}

func TestNewServer_EmptyURL(t *testing.T) {
	t.Parallel()

	if _, err := NewServer(""); err == nil {
		t.Error("expected error for empty server URL")
	}
}

func TestNewNative_EmptyModelPath(t *testing.T) {
	t.Parallel()

	if _, err := NewNative(""); err == nil {
		t.Error("expected error for empty model path")
	}
}
