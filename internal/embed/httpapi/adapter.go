// Package httpapi provides an embedding adapter for an ECAPA-TDNN
// extraction server running on the inference host.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Adapter implements embed.Adapter against an HTTP extraction server.
type Adapter struct {
	endpoint string
	dim      int
	client   *http.Client
}

// New creates an adapter for the given base endpoint expecting
// vectors of length dim.
func New(endpoint string, dim int, timeout time.Duration) *Adapter {
	return &Adapter{
		endpoint: endpoint,
		dim:      dim,
		client:   &http.Client{Timeout: timeout},
	}
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed posts the audio clip and returns the extracted vector.
func (a *Adapter) Embed(ctx context.Context, audio []byte) ([]float32, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint+"/embed", bytes.NewReader(audio))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embed: status %d: %s", resp.StatusCode, body)
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if len(out.Embedding) != a.dim {
		return nil, fmt.Errorf("embed: got %d dims, want %d", len(out.Embedding), a.dim)
	}
	return out.Embedding, nil
}

// Dim returns the expected vector length.
func (a *Adapter) Dim() int { return a.dim }

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
		return fmt.Errorf("embed health: status %d", resp.StatusCode)
	}
	return nil
}
