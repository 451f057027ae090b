// Command signstream is the speech-to-sign-language streaming server. It
// accepts compressed audio fragments over WebSocket, transcribes them with a
// Whisper engine, and renders text into sign-language GIFs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/signstream/signstream/internal/config"
	"github.com/signstream/signstream/internal/health"
	"github.com/signstream/signstream/internal/observe"
	"github.com/signstream/signstream/internal/server"
	"github.com/signstream/signstream/internal/sign"
	"github.com/signstream/signstream/pkg/engine"
	"github.com/signstream/signstream/pkg/engine/whisper"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "signstream: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "signstream: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("signstream starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"engine", cfg.Engine.Backend,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Observability ─────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "signstream",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(sctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Transcription engine ──────────────────────────────────────────────────
	eng, closeEngine, err := buildEngine(cfg)
	if err != nil {
		slog.Error("failed to build transcription engine", "err", err)
		return 1
	}
	defer closeEngine()

	// ── Sign subsystem ────────────────────────────────────────────────────────
	library, err := sign.NewLibrary(cfg.Signs.LettersDir)
	if err != nil {
		slog.Error("failed to open letter library", "err", err)
		return 1
	}
	renderer, err := sign.NewRenderer(library, cfg.Signs.OutputDir,
		sign.WithFrameRate(cfg.Signs.FrameRate))
	if err != nil {
		slog.Error("failed to create renderer", "err", err)
		return 1
	}

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithHealthCheckers(healthCheckers(cfg, eng, library)...),
	}
	if cfg.Signs.MappingPath != "" {
		translator, err := sign.LoadTranslator(cfg.Signs.MappingPath)
		if err != nil {
			slog.Error("failed to load sign mapping", "err", err)
			return 1
		}
		opts = append(opts, server.WithTranslator(translator))
	}

	// ── Serve ─────────────────────────────────────────────────────────────────
	srv := server.New(cfg, eng, library, renderer, opts...)

	slog.Info("server ready — press Ctrl+C to shut down")
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	slog.Info("goodbye")
	return 0
}

// buildEngine constructs the configured transcription backend. The returned
// close function releases backend resources (a no-op for the HTTP backend).
func buildEngine(cfg *config.Config) (engine.Transcriber, func(), error) {
	switch cfg.Engine.Backend {
	case config.EngineWhisperNative:
		n, err := whisper.NewNative(cfg.Engine.ModelPath,
			whisper.WithNativeLanguage(cfg.Engine.Language))
		if err != nil {
			return nil, nil, err
		}
		return n, func() {
			if err := n.Close(); err != nil {
				slog.Warn("engine close error", "err", err)
			}
		}, nil
	case config.EngineWhisperServer:
		s, err := whisper.NewServer(cfg.Engine.ServerURL,
			whisper.WithLanguage(cfg.Engine.Language),
			whisper.WithSampleRate(cfg.Audio.SampleRate))
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown engine backend %q", cfg.Engine.Backend)
}

// healthCheckers builds the readiness checks served on /readyz.
func healthCheckers(cfg *config.Config, eng engine.Transcriber, library *sign.Library) []health.Checker {
	return []health.Checker{
		{
			Name: "engine",
			// An empty window short-circuits inside every backend, so this
			// verifies the engine is wired without paying for an inference.
			Check: func(ctx context.Context) error {
				_, err := eng.Transcribe(ctx, nil)
				return err
			},
		},
		{
			Name: "letters",
			Check: func(_ context.Context) error {
				_, err := os.ReadDir(library.Dir())
				return err
			},
		},
		{
			Name: "ffmpeg",
			Check: func(_ context.Context) error {
				_, err := exec.LookPath(cfg.Audio.FFmpegPath)
				return err
			},
		},
	}
}

// newLogger builds a text slog.Logger at the configured level.
func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
