package voice

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

const (
	murfProvider = "murf"
	// murfMaxTextRunes stays under the service's per-request character limit.
	murfMaxTextRunes = 2999
)

type MurfConfig struct {
	APIKey     string
	APIURL     string
	HTTPClient *http.Client
}

// MurfSynthesizer renders speech through the Murf generate endpoint, which
// answers with a hosted audio URL.
type MurfSynthesizer struct {
	cfg    MurfConfig
	client *http.Client
}

func NewMurfSynthesizer(cfg MurfConfig) *MurfSynthesizer {
	if strings.TrimSpace(cfg.APIURL) == "" {
		cfg.APIURL = "https://api.murf.ai/v1/speech/generate"
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &MurfSynthesizer{cfg: cfg, client: client}
}

type murfRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voice_id"`
}

type murfResponse struct {
	AudioURL  string `json:"audio_url"`
	AudioFile string `json:"audioFile"`
}

func (s *MurfSynthesizer) Synthesize(ctx context.Context, text, voiceID string) (string, error) {
	if !apiKeyConfigured(s.cfg.APIKey) {
		return "", stageErr(StageSynthesis, CauseUnavailable, murfProvider, errors.New("api key not configured"))
	}
	if strings.TrimSpace(text) == "" {
		return "", stageErr(StageSynthesis, CauseRejected, murfProvider, errors.New("text is empty"))
	}
	if strings.TrimSpace(voiceID) == "" {
		return "", stageErr(StageSynthesis, CauseRejected, murfProvider, errors.New("voice id is empty"))
	}

	payload := murfRequest{
		Text:    prepareSpeechText(text, murfMaxTextRunes),
		VoiceID: voiceID,
	}
	req, err := newJSONRequest(ctx, http.MethodPost, s.cfg.APIURL, payload)
	if err != nil {
		return "", stageErr(StageSynthesis, CauseRejected, murfProvider, err)
	}
	req.Header.Set("api-key", s.cfg.APIKey)

	var out murfResponse
	if err := doJSON(s.client, req, StageSynthesis, murfProvider, &out); err != nil {
		return "", err
	}
	url := strings.TrimSpace(out.AudioURL)
	if url == "" {
		url = strings.TrimSpace(out.AudioFile)
	}
	if url == "" {
		return "", stageErr(StageSynthesis, CauseMalformed, murfProvider, errors.New("response has no audio url"))
	}
	return url, nil
}
