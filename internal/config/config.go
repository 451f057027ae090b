// Package config provides the configuration schema and loader for the
// signstream server.
package config

// LogLevel controls log verbosity for the signstream server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// EngineBackend selects the transcription engine implementation.
type EngineBackend string

const (
	// EngineWhisperNative runs whisper.cpp in-process via CGO bindings.
	EngineWhisperNative EngineBackend = "whisper-native"

	// EngineWhisperServer talks to a running whisper-server binary over HTTP.
	EngineWhisperServer EngineBackend = "whisper-server"
)

// IsValid reports whether e is a recognised engine backend.
func (e EngineBackend) IsValid() bool {
	return e == EngineWhisperNative || e == EngineWhisperServer
}

// Config is the root configuration structure for signstream.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server ServerConfig `yaml:"server"`
	Audio  AudioConfig  `yaml:"audio"`
	Engine EngineConfig `yaml:"engine"`
	Signs  SignsConfig  `yaml:"signs"`
}

// ServerConfig holds network and logging settings for the signstream server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// AudioConfig holds the streaming transcription pipeline settings.
type AudioConfig struct {
	// SampleRate is the canonical pipeline sample rate in Hz.
	// Default: 16000.
	SampleRate int `yaml:"sample_rate"`

	// FlushThresholdSeconds is the amount of buffered audio, in seconds,
	// that triggers a transcription pass. Default: 5.
	FlushThresholdSeconds float64 `yaml:"flush_threshold_seconds"`

	// DecodeTimeoutSeconds is the hard wall-clock bound on a single fragment
	// transcode. Default: 10.
	DecodeTimeoutSeconds float64 `yaml:"decode_timeout_seconds"`

	// FFmpegPath is the transcoder binary used for compressed fragments.
	// Default: "ffmpeg" resolved via PATH.
	FFmpegPath string `yaml:"ffmpeg_path"`
}

// EngineConfig selects and configures the transcription engine.
type EngineConfig struct {
	// Backend selects the engine implementation.
	Backend EngineBackend `yaml:"backend"`

	// ModelPath is the whisper.cpp model file loaded by the native backend
	// (e.g., "models/ggml-base.en.bin").
	ModelPath string `yaml:"model_path"`

	// ServerURL is the whisper-server endpoint used by the server backend
	// (e.g., "http://localhost:9000").
	ServerURL string `yaml:"server_url"`

	// Language is the BCP-47 language code for recognition. Default: "en".
	Language string `yaml:"language"`
}

// SignsConfig holds settings for the sign-language rendering subsystem.
type SignsConfig struct {
	// LettersDir is the directory of per-letter sign images (e.g., "A.png").
	LettersDir string `yaml:"letters_dir"`

	// OutputDir is where rendered GIF artifacts are written.
	OutputDir string `yaml:"output_dir"`

	// MappingPath is an optional JSON file mapping phrases to timed sign
	// cues. When empty the /translate endpoint is disabled.
	MappingPath string `yaml:"mapping_path"`

	// FrameRate is the GIF frame rate. Default: 10.
	FrameRate int `yaml:"frame_rate"`

	// DurationPerLetter is the default display time per letter in seconds.
	// Default: 0.5.
	DurationPerLetter float64 `yaml:"duration_per_letter"`
}
