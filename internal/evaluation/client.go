package evaluation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	deltaMin = -5
	deltaMax = 5
)

// Request describes one decision to score.
type Request struct {
	Situation string `json:"situation"`
	Choice    string `json:"choice"`
	Reasoning string `json:"reasoning,omitempty"`
	Category  string `json:"category,omitempty"`
}

// Result is the oracle's verdict: feedback text plus per-resource integer
// deltas in a fixed small range.
type Result struct {
	Feedback string         `json:"feedback"`
	Deltas   map[string]int `json:"deltas"`
}

// Client calls the remote evaluation service. Failures are reported to the
// caller and never retried automatically; the phase machine holds the
// decision open so the controller can retry by hand.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
	}
}

func (that *Client) Evaluate(ctx context.Context, request Request) (*Result, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("could not marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, that.baseURL+"/evaluate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("could not build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := that.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("evaluation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("evaluation service returned status %d", resp.StatusCode)
	}

	var result Result
	if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("could not decode result: %w", err)
	}

	for resource, delta := range result.Deltas {
		result.Deltas[resource] = clamp(delta)
	}

	return &result, nil
}

func clamp(delta int) int {
	if delta < deltaMin {
		return deltaMin
	}

	if delta > deltaMax {
		return deltaMax
	}

	return delta
}
