package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults applied by Load/LoadFromReader when the corresponding key is
// absent from the file.
const (
	DefaultListenAddr            = ":8080"
	DefaultSampleRate            = 16000
	DefaultFlushThresholdSeconds = 5.0
	DefaultDecodeTimeoutSeconds  = 10.0
	DefaultFFmpegPath            = "ffmpeg"
	DefaultLanguage              = "en"
	DefaultLettersDir            = "static/letter_signs"
	DefaultOutputDir             = "gifs"
	DefaultFrameRate             = 10
	DefaultDurationPerLetter     = 0.5
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills zero-valued fields of cfg with the package defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Audio.SampleRate == 0 {
		cfg.Audio.SampleRate = DefaultSampleRate
	}
	if cfg.Audio.FlushThresholdSeconds == 0 {
		cfg.Audio.FlushThresholdSeconds = DefaultFlushThresholdSeconds
	}
	if cfg.Audio.DecodeTimeoutSeconds == 0 {
		cfg.Audio.DecodeTimeoutSeconds = DefaultDecodeTimeoutSeconds
	}
	if cfg.Audio.FFmpegPath == "" {
		cfg.Audio.FFmpegPath = DefaultFFmpegPath
	}
	if cfg.Engine.Backend == "" {
		cfg.Engine.Backend = EngineWhisperNative
	}
	if cfg.Engine.Language == "" {
		cfg.Engine.Language = DefaultLanguage
	}
	if cfg.Signs.LettersDir == "" {
		cfg.Signs.LettersDir = DefaultLettersDir
	}
	if cfg.Signs.OutputDir == "" {
		cfg.Signs.OutputDir = DefaultOutputDir
	}
	if cfg.Signs.FrameRate == 0 {
		cfg.Signs.FrameRate = DefaultFrameRate
	}
	if cfg.Signs.DurationPerLetter == 0 {
		cfg.Signs.DurationPerLetter = DefaultDurationPerLetter
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d must be positive", cfg.Audio.SampleRate))
	}
	if cfg.Audio.FlushThresholdSeconds <= 0 {
		errs = append(errs, fmt.Errorf("audio.flush_threshold_seconds %.2f must be positive", cfg.Audio.FlushThresholdSeconds))
	}
	if cfg.Audio.DecodeTimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("audio.decode_timeout_seconds %.2f must be positive", cfg.Audio.DecodeTimeoutSeconds))
	}

	if !cfg.Engine.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("engine.backend %q is invalid; valid values: whisper-native, whisper-server", cfg.Engine.Backend))
	}
	switch cfg.Engine.Backend {
	case EngineWhisperNative:
		if cfg.Engine.ModelPath == "" {
			errs = append(errs, errors.New("engine.model_path is required for the whisper-native backend"))
		}
	case EngineWhisperServer:
		if cfg.Engine.ServerURL == "" {
			errs = append(errs, errors.New("engine.server_url is required for the whisper-server backend"))
		}
	}

	if cfg.Signs.FrameRate <= 0 {
		errs = append(errs, fmt.Errorf("signs.frame_rate %d must be positive", cfg.Signs.FrameRate))
	}
	if cfg.Signs.DurationPerLetter <= 0 {
		errs = append(errs, fmt.Errorf("signs.duration_per_letter %.2f must be positive", cfg.Signs.DurationPerLetter))
	}

	return errors.Join(errs...)
}
