package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains all runtime settings for the voice agent service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	AllowAnyOrigin   bool
	MaxUploadBytes   int64
	EnvFile          string

	ProviderMode string

	AssemblyAIAPIKey  string
	AssemblyAIBaseURL string

	GeminiAPIKey       string
	GeminiModel        string
	GeminiSystemPrompt string

	MurfAPIKey string
	MurfAPIURL string

	DefaultVoiceID   string
	VoiceCatalogPath string
	FallbackAudioURL string

	TranscribeTimeout time.Duration
	GenerateTimeout   time.Duration
	SynthesizeTimeout time.Duration

	HistoryContextTurns int

	DatabaseURL string
	TraceStdout bool

	LogLevel  string
	LogFormat string
}

const (
	ProviderModeLive = "live"
	ProviderModeMock = "mock"
)

// Load reads the optional env file, then environment variables, and applies safe defaults.
// Variables already present in the environment always win over the env file.
func Load() (Config, error) {
	envFile := envOrDefault("APP_ENV_FILE", ".env")
	if err := loadEnvFile(envFile); err != nil {
		return Config{}, err
	}

	cfg := Config{
		BindAddr:           envOrDefault("APP_BIND_ADDR", ":8000"),
		MetricsNamespace:   envOrDefault("APP_METRICS_NAMESPACE", "voxturn"),
		EnvFile:            envFile,
		ProviderMode:       strings.ToLower(envOrDefault("PROVIDER_MODE", ProviderModeLive)),
		AssemblyAIAPIKey:   stringsTrimSpace("ASSEMBLYAI_API_KEY"),
		AssemblyAIBaseURL:  envOrDefault("ASSEMBLYAI_BASE_URL", "https://api.assemblyai.com"),
		GeminiAPIKey:       stringsTrimSpace("GEMINI_API_KEY"),
		GeminiModel:        envOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiSystemPrompt: stringsTrimSpace("GEMINI_SYSTEM_PROMPT"),
		MurfAPIKey:         stringsTrimSpace("MURF_API_KEY"),
		MurfAPIURL:         envOrDefault("MURF_API_URL", "https://api.murf.ai/v1/speech/generate"),
		// Matches the voice the browser client preselects.
		DefaultVoiceID:      envOrDefault("DEFAULT_VOICE_ID", "en-US-natalie"),
		VoiceCatalogPath:    stringsTrimSpace("VOICE_CATALOG_PATH"),
		FallbackAudioURL:    envOrDefault("FALLBACK_AUDIO_URL", "/static/fallback.wav"),
		DatabaseURL:         stringsTrimSpace("DATABASE_URL"),
		LogLevel:            strings.ToLower(envOrDefault("LOG_LEVEL", "info")),
		LogFormat:           strings.ToLower(envOrDefault("LOG_FORMAT", "text")),
		ShutdownTimeout:     15 * time.Second,
		MaxUploadBytes:      25 << 20,
		TranscribeTimeout:   60 * time.Second,
		GenerateTimeout:     30 * time.Second,
		SynthesizeTimeout:   90 * time.Second,
		HistoryContextTurns: 0,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.TranscribeTimeout, err = durationFromEnv("TRANSCRIBE_TIMEOUT", cfg.TranscribeTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.GenerateTimeout, err = durationFromEnv("GENERATE_TIMEOUT", cfg.GenerateTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SynthesizeTimeout, err = durationFromEnv("SYNTHESIZE_TIMEOUT", cfg.SynthesizeTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.HistoryContextTurns, err = intFromEnv("HISTORY_CONTEXT_TURNS", cfg.HistoryContextTurns)
	if err != nil {
		return Config{}, err
	}
	maxUpload, err := intFromEnv("APP_MAX_UPLOAD_BYTES", int(cfg.MaxUploadBytes))
	if err != nil {
		return Config{}, err
	}
	cfg.MaxUploadBytes = int64(maxUpload)
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.TraceStdout, err = boolFromEnv("TRACE_STDOUT", cfg.TraceStdout)
	if err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.ProviderMode {
	case ProviderModeLive, ProviderModeMock:
	default:
		return fmt.Errorf("invalid PROVIDER_MODE: %q (expected live|mock)", c.ProviderMode)
	}
	if c.TranscribeTimeout <= 0 || c.GenerateTimeout <= 0 || c.SynthesizeTimeout <= 0 {
		return fmt.Errorf("stage timeouts must be positive")
	}
	if c.HistoryContextTurns < 0 {
		return fmt.Errorf("HISTORY_CONTEXT_TURNS must be >= 0")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("APP_MAX_UPLOAD_BYTES must be positive")
	}
	if strings.TrimSpace(c.FallbackAudioURL) == "" {
		return fmt.Errorf("FALLBACK_AUDIO_URL must not be empty")
	}
	return nil
}

func loadEnvFile(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
