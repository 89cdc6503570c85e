package app

import (
	"fmt"
	"net/http"

	"github.com/ent0n29/voxturn/internal/config"
	"github.com/ent0n29/voxturn/internal/voice"
)

type voiceSetup struct {
	transcriber voice.Transcriber
	generator   voice.Generator
	synthesizer voice.Synthesizer
	detail      string
	// warnings lists live providers that are missing configuration. Their
	// calls fail at request time and surface as fallback results.
	warnings []string
}

func resolveVoiceProviders(cfg config.Config) (voiceSetup, error) {
	switch cfg.ProviderMode {
	case config.ProviderModeMock:
		return voiceSetup{
			transcriber: voice.MockTranscriber{},
			generator:   voice.MockGenerator{},
			synthesizer: voice.MockSynthesizer{},
			detail:      "mock (offline)",
		}, nil
	case config.ProviderModeLive, "":
	default:
		return voiceSetup{}, fmt.Errorf("invalid PROVIDER_MODE: %q (expected live|mock)", cfg.ProviderMode)
	}

	// Bounded by per-stage context deadlines rather than a client timeout.
	client := &http.Client{}

	gemini := voice.NewGeminiGenerator(voice.GeminiConfig{
		APIKey:       cfg.GeminiAPIKey,
		Model:        cfg.GeminiModel,
		SystemPrompt: cfg.GeminiSystemPrompt,
	})
	setup := voiceSetup{
		transcriber: voice.NewAssemblyAITranscriber(voice.AssemblyAIConfig{
			APIKey:     cfg.AssemblyAIAPIKey,
			BaseURL:    cfg.AssemblyAIBaseURL,
			HTTPClient: client,
		}),
		generator: gemini,
		synthesizer: voice.NewMurfSynthesizer(voice.MurfConfig{
			APIKey:     cfg.MurfAPIKey,
			APIURL:     cfg.MurfAPIURL,
			HTTPClient: client,
		}),
		detail: fmt.Sprintf("live (assemblyai + %s + murf)", cfg.GeminiModel),
	}
	if cfg.AssemblyAIAPIKey == "" {
		setup.warnings = append(setup.warnings, "ASSEMBLYAI_API_KEY is not set")
	}
	if err := gemini.Ready(); err != nil {
		setup.warnings = append(setup.warnings, "gemini unavailable: "+err.Error())
	}
	if cfg.MurfAPIKey == "" {
		setup.warnings = append(setup.warnings, "MURF_API_KEY is not set")
	}
	return setup, nil
}
