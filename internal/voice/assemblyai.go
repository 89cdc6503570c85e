package voice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ent0n29/voxturn/internal/reliability"
)

const assemblyAIProvider = "assemblyai"

type AssemblyAIConfig struct {
	APIKey  string
	BaseURL string
	// PollInterval is the first wait between status checks; later waits back
	// off exponentially up to PollMaxInterval.
	PollInterval    time.Duration
	PollMaxInterval time.Duration
	HTTPClient      *http.Client
}

// AssemblyAITranscriber uploads audio, queues a transcript, and polls until it settles.
type AssemblyAITranscriber struct {
	cfg    AssemblyAIConfig
	client *http.Client
}

func NewAssemblyAITranscriber(cfg AssemblyAIConfig) *AssemblyAITranscriber {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.assemblyai.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 300 * time.Millisecond
	}
	if cfg.PollMaxInterval <= 0 {
		cfg.PollMaxInterval = 3 * time.Second
	}
	if cfg.PollMaxInterval < cfg.PollInterval {
		cfg.PollMaxInterval = cfg.PollInterval
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &AssemblyAITranscriber{cfg: cfg, client: client}
}

type assemblyUploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type assemblyTranscript struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

func (t *AssemblyAITranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if !apiKeyConfigured(t.cfg.APIKey) {
		return "", stageErr(StageTranscription, CauseUnavailable, assemblyAIProvider, errors.New("api key not configured"))
	}
	if len(audio) == 0 {
		return "", stageErr(StageTranscription, CauseRejected, assemblyAIProvider, errors.New("audio is empty"))
	}

	uploadURL, err := t.upload(ctx, audio)
	if err != nil {
		return "", err
	}
	id, err := t.submit(ctx, uploadURL)
	if err != nil {
		return "", err
	}
	return t.poll(ctx, id)
}

func (t *AssemblyAITranscriber) upload(ctx context.Context, audio []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.BaseURL+"/v2/upload", bytes.NewReader(audio))
	if err != nil {
		return "", stageErr(StageTranscription, CauseRejected, assemblyAIProvider, err)
	}
	req.Header.Set("Authorization", t.cfg.APIKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	var out assemblyUploadResponse
	if err := doJSON(t.client, req, StageTranscription, assemblyAIProvider, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.UploadURL) == "" {
		return "", stageErr(StageTranscription, CauseMalformed, assemblyAIProvider, errors.New("upload response has no upload_url"))
	}
	return out.UploadURL, nil
}

func (t *AssemblyAITranscriber) submit(ctx context.Context, audioURL string) (string, error) {
	req, err := newJSONRequest(ctx, http.MethodPost, t.cfg.BaseURL+"/v2/transcript", map[string]string{"audio_url": audioURL})
	if err != nil {
		return "", stageErr(StageTranscription, CauseRejected, assemblyAIProvider, err)
	}
	req.Header.Set("Authorization", t.cfg.APIKey)

	var out assemblyTranscript
	if err := doJSON(t.client, req, StageTranscription, assemblyAIProvider, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", stageErr(StageTranscription, CauseMalformed, assemblyAIProvider, errors.New("transcript response has no id"))
	}
	return out.ID, nil
}

func (t *AssemblyAITranscriber) poll(ctx context.Context, id string) (string, error) {
	endpoint := t.cfg.BaseURL + "/v2/transcript/" + url.PathEscape(id)
	for attempt := 0; ; attempt++ {
		req, err := newJSONRequest(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return "", stageErr(StageTranscription, CauseRejected, assemblyAIProvider, err)
		}
		req.Header.Set("Authorization", t.cfg.APIKey)

		var tr assemblyTranscript
		if err := doJSON(t.client, req, StageTranscription, assemblyAIProvider, &tr); err != nil {
			return "", err
		}

		switch tr.Status {
		case "completed":
			text := strings.TrimSpace(tr.Text)
			if text == "" {
				return "", ErrEmptySpeech
			}
			return text, nil
		case "error":
			return "", stageErr(StageTranscription, CauseRejected, assemblyAIProvider, fmt.Errorf("transcript %s failed: %s", id, tr.Error))
		case "queued", "processing":
		default:
			return "", stageErr(StageTranscription, CauseMalformed, assemblyAIProvider, fmt.Errorf("unknown transcript status %q", tr.Status))
		}

		wait := reliability.ExponentialBackoff(attempt, t.cfg.PollInterval, t.cfg.PollMaxInterval)
		if err := reliability.Sleep(ctx, wait); err != nil {
			return "", asStageError(StageTranscription, assemblyAIProvider, err)
		}
	}
}

// apiKeyConfigured rejects blank keys and the placeholders shipped in sample env files.
func apiKeyConfigured(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return false
	}
	return !(strings.HasPrefix(key, "your_") || strings.HasPrefix(key, "your-") || strings.Contains(key, "changeme"))
}
