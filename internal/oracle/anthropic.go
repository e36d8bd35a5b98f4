package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"sowmatch/internal/errs"
)

// DefaultEndpoint is the Anthropic Messages API base URL.
const DefaultEndpoint = "https://api.anthropic.com/v1"

// AnthropicClient implements Oracle against the Anthropic Messages API.
type AnthropicClient struct {
	endpoint  string
	apiKey    string
	model     string
	version   string
	maxTokens int
	client    *http.Client
}

// AnthropicConfig configures an AnthropicClient.
type AnthropicConfig struct {
	Endpoint  string
	APIKey    string
	Model     string
	Version   string // anthropic-version header
	MaxTokens int    // used when a request does not set its own
}

// NewAnthropicClient creates a new client. Timeouts are applied per request
// through the context, not on the http.Client.
func NewAnthropicClient(cfg AnthropicConfig) *AnthropicClient {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	version := cfg.Version
	if version == "" {
		version = "2023-06-01"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4000
	}
	return &AnthropicClient{
		endpoint:  strings.TrimSuffix(endpoint, "/"),
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		version:   version,
		maxTokens: maxTokens,
		client:    &http.Client{},
	}
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// Complete sends the request and returns the concatenated text blocks.
func (c *AnthropicClient) Complete(ctx context.Context, req Request) (string, error) {
	const op = "oracle.complete"

	if c.apiKey == "" {
		return "", errs.E(errs.OracleUnavailable, op, "oracle API key not configured")
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	body, err := json.Marshal(messagesRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    req.system(),
		Messages:  req.messages(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", c.version)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", classifyTransportError(ctx, op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classifyTransportError(ctx, op, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", statusError(op, resp.StatusCode, respBody)
	}

	var msg messagesResponse
	if err := json.Unmarshal(respBody, &msg); err != nil {
		return "", errs.Wrap(errs.OracleParseFailure, op, err, "malformed oracle envelope")
	}
	if msg.StopReason == "max_tokens" {
		return "", errs.E(errs.OracleParseFailure, op, "oracle response truncated at %d tokens", maxTokens)
	}

	var parts []string
	for _, block := range msg.Content {
		if block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n"), nil
}

func classifyTransportError(ctx context.Context, op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errs.Wrap(errs.OracleTimeout, op, err, "oracle request timed out")
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errs.Wrap(errs.OracleTimeout, op, err, "oracle request timed out")
	}
	if errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.OracleUnavailable, op, err, "oracle request canceled")
	}
	return &errs.Error{Kind: errs.OracleUnavailable, Op: op, Msg: "oracle request failed", Err: err, Transient: true}
}

func statusError(op string, status int, body []byte) error {
	detail := string(body)
	if len(detail) > 300 {
		detail = detail[:300]
	}
	transient := status == http.StatusTooManyRequests || status >= 500
	return &errs.Error{
		Kind:      errs.OracleUnavailable,
		Op:        op,
		Msg:       fmt.Sprintf("unexpected status code %d: %s", status, detail),
		Transient: transient,
	}
}
