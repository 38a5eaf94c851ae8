// Package speechhttp is a speech.Synthesizer for a synthesis proxy that
// speaks a small JSON protocol:
//
//	POST {baseURL}/synthesize  {"text": "...", "voice": "..."}
//	200 OK                     {"audio": "<base64 PCM16 mono>", "sample_rate": 24000}
//
// Deployments use it to keep the vendor credential on the proxy rather than
// in this service.
package speechhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/phrazzld/scry-study/internal/speech"
)

var _ speech.Synthesizer = (*Client)(nil)

const (
	defaultTimeout     = 15 * time.Second
	synthesizeEndpoint = "/synthesize"

	// maxResponseBytes caps the JSON body read from the proxy.
	maxResponseBytes = 16 << 20
)

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBearerToken sends token in the Authorization header.
func WithBearerToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// Client calls a synthesis proxy.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a Client for the proxy at baseURL. An empty baseURL is a
// configuration error.
func New(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("%w: speech proxy URL is empty", speech.ErrConfiguration)
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

type synthesizeRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

type synthesizeResponse struct {
	Audio      string `json:"audio"`
	SampleRate int    `json:"sample_rate,omitempty"`
}

// Synthesize posts text to the proxy and decodes the base64 audio it returns.
func (c *Client) Synthesize(ctx context.Context, text, voice string) (speech.Audio, error) {
	body, err := json.Marshal(synthesizeRequest{Text: text, Voice: voice})
	if err != nil {
		return speech.Audio{}, fmt.Errorf("%w: encode request: %v", speech.ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+synthesizeEndpoint, bytes.NewReader(body))
	if err != nil {
		return speech.Audio{}, fmt.Errorf("%w: build request: %v", speech.ErrConfiguration, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return speech.Audio{}, fmt.Errorf("%w: %v", speech.ErrTransport, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return speech.Audio{}, fmt.Errorf("%w: proxy rejected credentials (%d)", speech.ErrConfiguration, resp.StatusCode)
	case resp.StatusCode == http.StatusNoContent:
		return speech.Audio{}, fmt.Errorf("%w: proxy returned no content", speech.ErrEmptyPayload)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return speech.Audio{}, fmt.Errorf("%w: proxy status %d", speech.ErrTransport, resp.StatusCode)
	}

	var payload synthesizeResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			return speech.Audio{}, fmt.Errorf("%w: empty body", speech.ErrEmptyPayload)
		}
		return speech.Audio{}, fmt.Errorf("%w: malformed JSON: %v", speech.ErrDecode, err)
	}
	if payload.Audio == "" {
		return speech.Audio{}, fmt.Errorf("%w: audio field missing", speech.ErrEmptyPayload)
	}

	pcm, err := speech.DecodeBase64(payload.Audio)
	if err != nil {
		return speech.Audio{}, err
	}
	rate := payload.SampleRate
	if rate <= 0 {
		rate = speech.SampleRate
	}
	return speech.Audio{PCM: pcm, SampleRate: rate}, nil
}
