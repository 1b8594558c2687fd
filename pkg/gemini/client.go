package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/academiaalbert/academia-backend/pkg/config"
	"github.com/go-resty/resty/v2"
)

var (
	ErrNotConfigured = errors.New("gemini api key not configured")
	ErrEmptyReply    = errors.New("gemini returned no text")
)

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	SystemInstruction *content  `json:"systemInstruction,omitempty"`
	Contents          []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Client calls the generateContent REST endpoint.
type Client struct {
	http  *resty.Client
	model string
	key   string
}

func NewClient(cfg config.GeminiConfig) (*Client, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("gemini model is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &Client{http: httpClient, model: cfg.Model, key: cfg.APIKey}, nil
}

// GenerateReply sends one user prompt with an optional system instruction
// and returns the concatenated text of the first candidate.
func (c *Client) GenerateReply(ctx context.Context, prompt, systemInstruction string) (string, error) {
	body := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	}
	if strings.TrimSpace(systemInstruction) != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: systemInstruction}}}
	}

	var out generateResponse
	var failure apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("key", c.key).
		SetPathParam("model", c.model).
		SetBody(body).
		SetResult(&out).
		SetError(&failure).
		Post("/models/{model}:generateContent")
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	if resp.IsError() {
		msg := failure.Error.Message
		if msg == "" {
			msg = resp.Status()
		}
		return "", fmt.Errorf("gemini status %d: %s", resp.StatusCode(), msg)
	}

	if len(out.Candidates) == 0 {
		return "", ErrEmptyReply
	}
	var b strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	reply := strings.TrimSpace(b.String())
	if reply == "" {
		return "", ErrEmptyReply
	}
	return reply, nil
}
