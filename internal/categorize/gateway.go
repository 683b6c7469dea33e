package categorize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// GatewayConfig configures an OpenAI-compatible chat completions endpoint.
type GatewayConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// GatewayClient asks a hosted LLM gateway to pick a category.
type GatewayClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewGatewayClient creates a GatewayClient.
func NewGatewayClient(cfg GatewayConfig) *GatewayClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GatewayClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

const systemPrompt = "You categorise household and small-business expenses in Trinidad and Tobago. " +
	"Reply with exactly one category name from the list you are given and nothing else."

// Choose sends the expense and the allowed category names and returns the
// model's raw answer.
func (g *GatewayClient) Choose(ctx context.Context, vendor, description string, allowed []string) (string, error) {
	if g.apiKey == "" {
		return "", fmt.Errorf("llm gateway API key not configured")
	}

	var user strings.Builder
	fmt.Fprintf(&user, "Categories:\n- %s\n\n", strings.Join(allowed, "\n- "))
	fmt.Fprintf(&user, "Vendor: %s\nDescription: %s\n", vendor, description)

	payload, err := json.Marshal(chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: user.String()},
		},
		Temperature: 0,
		MaxTokens:   20,
	})
	if err != nil {
		return "", fmt.Errorf("marshalling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling llm gateway: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading llm response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("parsing llm response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("llm gateway error: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("llm gateway returned no choices")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
