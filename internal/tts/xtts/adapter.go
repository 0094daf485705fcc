// Package xtts provides a TTS adapter for an XTTS v2 synthesis
// server. XTTS does voice cloning from a short reference clip, which
// no hosted TTS API offers; the model runs behind a small HTTP
// endpoint on the inference host.
package xtts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Adapter implements tts.Adapter against an XTTS HTTP server.
type Adapter struct {
	endpoint string
	client   *http.Client
}

// New creates an XTTS adapter for the given base endpoint.
func New(endpoint string, timeout time.Duration) *Adapter {
	return &Adapter{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type synthesizeRequest struct {
	Text       string `json:"text"`
	Language   string `json:"language"`
	SpeakerWav string `json:"speaker_wav,omitempty"`
}

// Synthesize renders text through the XTTS server, cloning the
// reference voice when provided.
func (a *Adapter) Synthesize(ctx context.Context, text, languageCode string, referenceVoice []byte) ([]byte, error) {
	reqBody := synthesizeRequest{
		Text:     text,
		Language: languageCode,
	}
	if len(referenceVoice) > 0 {
		reqBody.SpeakerWav = base64.StdEncoding.EncodeToString(referenceVoice)
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint+"/synthesize", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("xtts synthesize: status %d: %s", resp.StatusCode, body)
	}
	return io.ReadAll(resp.Body)
}

// Ready probes the server's health endpoint.
func (a *Adapter) Ready(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.endpoint+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("xtts health: status %d", resp.StatusCode)
	}
	return nil
}
