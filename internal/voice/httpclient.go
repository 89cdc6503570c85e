package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const maxErrorBodyBytes = 2048

// doJSON sends req and decodes a successful JSON body into out. Failures are
// classified into StageErrors for stage.
func doJSON(client *http.Client, req *http.Request, stage Stage, provider string, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(req.Context().Err(), context.DeadlineExceeded) {
			return stageErr(stage, CauseTimeout, provider, err)
		}
		return stageErr(stage, CauseUnavailable, provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return stageErr(stage, causeForHTTPStatus(resp.StatusCode), provider,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(req.Context().Err(), context.DeadlineExceeded) {
			return stageErr(stage, CauseTimeout, provider, err)
		}
		return stageErr(stage, CauseMalformed, provider, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func newJSONRequest(ctx context.Context, method, url string, payload any) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}
