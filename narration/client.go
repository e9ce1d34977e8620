package narration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/strauser85/snap-sold-sub000/types"
)

// Result is what the speech service hands back: a hosted audio asset, its
// duration, and word-level timings when the engine can align them. The core
// works either way; missing timings just switch on estimation.
type Result struct {
	AudioURL    string             `json:"audio_url"`
	Duration    float64            `json:"duration"`
	WordTimings []types.WordTiming `json:"word_timings,omitempty"`
}

// Client talks to the narration service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a narration client. timeout bounds the synthesis call.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Synthesize sends the sanitized script and returns the voiceover asset.
func (c *Client) Synthesize(ctx context.Context, script string) (*Result, error) {
	body, err := json.Marshal(map[string]string{"text": script})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/synthesize", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("narration request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("narration service returned status %d", resp.StatusCode)
	}

	var out Result
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode narration response: %w", err)
	}
	if out.AudioURL == "" {
		return nil, fmt.Errorf("narration response missing audio url")
	}
	return &out, nil
}
