package server

import (
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/signstream/signstream/internal/asr"
	"github.com/signstream/signstream/pkg/audio/webmdec"
)

// maxFragmentBytes bounds a single WebSocket message. MediaRecorder fragments
// are typically tens of kilobytes; anything near this limit is not audio.
const maxFragmentBytes = 8 << 20

// handleWS upgrades the request to a WebSocket and runs the streaming
// transcription loop: each binary message is one audio fragment, and every
// event the pipeline produces for it is written back as a JSON text message
// before the next read. The loop ends only on transport error or disconnect.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Warn("websocket accept failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream aborted")
	conn.SetReadLimit(maxFragmentBytes)

	ctx := r.Context()
	log := s.log.With("remote", r.RemoteAddr)

	dec, err := webmdec.New(
		webmdec.WithFFmpegPath(s.cfg.Audio.FFmpegPath),
		webmdec.WithTimeout(time.Duration(s.cfg.Audio.DecodeTimeoutSeconds*float64(time.Second))),
		webmdec.WithTargetRate(s.cfg.Audio.SampleRate),
	)
	if err != nil {
		log.Error("decoder setup failed", "error", err)
		conn.Close(websocket.StatusInternalError, "decoder unavailable")
		return
	}
	defer dec.Close()

	pipe := asr.New(dec, s.eng,
		asr.WithSampleRate(s.cfg.Audio.SampleRate),
		asr.WithFlushThreshold(time.Duration(s.cfg.Audio.FlushThresholdSeconds*float64(time.Second))),
		asr.WithLogger(log),
		asr.WithMetrics(s.metrics),
	)

	s.metrics.ActiveStreams.Add(ctx, 1)
	defer s.metrics.ActiveStreams.Add(ctx, -1)
	log.Info("stream opened")

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			switch status := websocket.CloseStatus(err); {
			case status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway:
				log.Info("stream closed", "status", status)
			case asr.IsContextErr(err):
				log.Info("stream cancelled")
			default:
				log.Warn("stream read failed", "error", err)
			}
			conn.Close(websocket.StatusNormalClosure, "")
			return
		}
		if typ != websocket.MessageBinary {
			log.Debug("ignoring non-binary message", "type", typ)
			continue
		}

		for _, ev := range pipe.Process(ctx, data) {
			if err := wsjson.Write(ctx, conn, ev); err != nil {
				log.Warn("stream write failed", "error", err)
				return
			}
		}
	}
}
