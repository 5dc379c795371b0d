package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// httpProvider talks to an already-running embedding server over HTTP. It
// replaces the binary-downloading, process-managing provider the daemon
// architecture used: a context-indexing engine has no daemon lifecycle to
// hook a subprocess into, so the server is expected to be reachable at a
// configured endpoint rather than spawned and supervised here.
type httpProvider struct {
	endpoint   string
	model      string
	dimensions int
	client     *http.Client
}

// NewHTTPProvider builds a Provider that calls a remote embedding server's
// /embed endpoint. dimensions and model describe the server's configured
// model so callers don't need a round trip to learn them.
func NewHTTPProvider(endpoint, model string, dimensions int) Provider {
	return &httpProvider{
		endpoint:   endpoint,
		model:      model,
		dimensions: dimensions,
		client:     &http.Client{Timeout: 60 * time.Second},
	}
}

// embedRequest is the JSON request body for the /embed endpoint.
type embedRequest struct {
	Texts []string `json:"texts"`
	Mode  string   `json:"mode"`
}

// embedResponse is the JSON response from the /embed endpoint.
type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (p *httpProvider) Embed(ctx context.Context, texts []string, mode EmbedMode) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	body, err := json.Marshal(embedRequest{Texts: texts, Mode: string(mode)})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding server returned status %d", resp.StatusCode)
	}

	var decoded embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(decoded.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding server returned %d vectors for %d inputs", len(decoded.Embeddings), len(texts))
	}
	for _, v := range decoded.Embeddings {
		if len(v) != p.dimensions {
			return nil, fmt.Errorf("embedding server returned vector of length %d, expected %d", len(v), p.dimensions)
		}
	}
	return decoded.Embeddings, nil
}

func (p *httpProvider) Dimensions() int {
	return p.dimensions
}

func (p *httpProvider) Model() string {
	return p.model
}

func (p *httpProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
