package collab

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
	"time"
)

var _ Generator = (*ChatGenerator)(nil)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ChatGenerator calls an OpenAI-compatible chat completions endpoint
// (OpenRouter, LM Studio, a Gemini OpenAI shim) at temperature 0.
type ChatGenerator struct {
	baseURL string
	model   string
	apiKey  string
	http    *http.Client
}

// NewChatGenerator creates a ChatGenerator. A nil hc gets a client with a
// dial timeout and no overall timeout; per-call deadlines come from ctx.
func NewChatGenerator(baseURL, model, apiKey string, hc *http.Client) *ChatGenerator {
	if hc == nil {
		hc = &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		}
	}
	return &ChatGenerator{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		apiKey:  apiKey,
		http:    hc,
	}
}

// Generate sends the instruction as the system message and the rendered
// prompt context as the user message.
func (g *ChatGenerator) Generate(ctx context.Context, prompt PromptContext) (string, error) {
	req := chatRequest{
		Model:       g.model,
		Temperature: 0,
	}
	if inst := strings.TrimSpace(prompt[KeyInstruction]); inst != "" {
		req.Messages = append(req.Messages, chatMessage{Role: "system", Content: inst})
	}
	req.Messages = append(req.Messages, chatMessage{Role: "user", Content: Render(prompt)})

	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("chat: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("chat: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.http.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", &ServiceError{Service: "chat", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ServiceError{Service: "chat", Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return "", &ServiceError{Service: "chat", Err: statusErr}
		}
		return "", fmt.Errorf("chat: %w", statusErr)
	}

	var decoded chatResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("chat: decode response: %w", err)
	}
	if decoded.Error != nil {
		return "", &ServiceError{Service: "chat", Err: errors.New(decoded.Error.Message)}
	}
	if len(decoded.Choices) == 0 {
		return "", &ServiceError{Service: "chat", Err: errors.New("no choices in response")}
	}
	return strings.TrimSpace(decoded.Choices[0].Message.Content), nil
}
