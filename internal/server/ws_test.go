package server

import (
	"context"
	"math"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/signstream/signstream/internal/asr"
	"github.com/signstream/signstream/pkg/audio"
	"github.com/signstream/signstream/pkg/engine/mock"
)

// wavFragment returns a WAV-wrapped sine fragment, which the decoder handles
// without an ffmpeg binary.
func wavFragment(seconds float64) []byte {
	frames := int(16000 * seconds)
	samples := make([]float32, frames)
	for i := range samples {
		samples[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / 16000))
	}
	return audio.EncodeWAV(audio.Float32ToPCM(samples), 16000, 1)
}

func dialWS(t *testing.T, ctx context.Context, s *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func TestWS_StreamingScenario(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	eng := &mock.Transcriber{Text: "hello world"}
	s := newTestServer(t, eng) // flush threshold 1 s
	conn := dialWS(t, ctx, s)

	// First 0.6 s fragment stays below the 1 s threshold.
	if err := conn.Write(ctx, websocket.MessageBinary, wavFragment(0.6)); err != nil {
		t.Fatalf("write fragment: %v", err)
	}
	var ev asr.Event
	if err := wsjson.Read(ctx, conn, &ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if ev.Type != asr.EventInterim || !strings.HasPrefix(ev.Text, "Listening...") {
		t.Errorf("first event = %+v, want listening interim", ev)
	}

	// Second fragment crosses the threshold and triggers transcription.
	if err := conn.Write(ctx, websocket.MessageBinary, wavFragment(0.6)); err != nil {
		t.Fatalf("write fragment: %v", err)
	}
	if err := wsjson.Read(ctx, conn, &ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if ev.Type != asr.EventFinal || ev.Text != "hello world" {
		t.Errorf("second event = %+v, want final transcript", ev)
	}

	if eng.CallCount() != 1 {
		t.Errorf("transcriber called %d times, want 1", eng.CallCount())
	}
}

func TestWS_UndecodableFragment(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s := newTestServer(t, &mock.Transcriber{})
	s.cfg.Audio.FFmpegPath = "/nonexistent/ffmpeg"
	conn := dialWS(t, ctx, s)

	if err := conn.Write(ctx, websocket.MessageBinary, []byte{0x1a, 0x45, 0xdf, 0xa3}); err != nil {
		t.Fatalf("write fragment: %v", err)
	}
	var ev asr.Event
	if err := wsjson.Read(ctx, conn, &ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if ev.Type != asr.EventInterim || ev.Text != "Processing audio..." {
		t.Errorf("event = %+v, want processing interim", ev)
	}
}

func TestWS_IgnoresTextMessages(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s := newTestServer(t, &mock.Transcriber{})
	conn := dialWS(t, ctx, s)

	// A text message produces no event; the next binary fragment is still
	// fragment number one.
	if err := conn.Write(ctx, websocket.MessageText, []byte("ping")); err != nil {
		t.Fatalf("write text: %v", err)
	}
	if err := conn.Write(ctx, websocket.MessageBinary, wavFragment(0.2)); err != nil {
		t.Fatalf("write fragment: %v", err)
	}

	var ev asr.Event
	if err := wsjson.Read(ctx, conn, &ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if ev.Text != "Listening... (1 fragments)" {
		t.Errorf("event = %+v, want first-fragment interim", ev)
	}
}

func TestWS_ClientClose(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s := newTestServer(t, &mock.Transcriber{})
	conn := dialWS(t, ctx, s)

	if err := conn.Write(ctx, websocket.MessageBinary, wavFragment(0.2)); err != nil {
		t.Fatalf("write fragment: %v", err)
	}
	var ev asr.Event
	if err := wsjson.Read(ctx, conn, &ev); err != nil {
		t.Fatalf("read event: %v", err)
	}

	// A clean close must not hang the server side.
	if err := conn.Close(websocket.StatusNormalClosure, "done"); err != nil {
		t.Fatalf("close: %v", err)
	}
}
