// Package llm talks to an OpenAI-compatible chat-completions API and wraps it
// in the degrade-to-no-op rewrite and advisory services the pipeline consumes.
package llm

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
)

const (
	// DefaultBaseURL points at Groq's OpenAI-compatible endpoint.
	DefaultBaseURL = "https://api.groq.com/openai/v1"

	chatCompletionsPath      = "/chat/completions"
	contentTypeHeader        = "Content-Type"
	authorizationHeader      = "Authorization"
	jsonContentType          = "application/json"
	responseBodyPreviewLimit = 512
)

// Message roles accepted by the chat-completions API.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one turn of a chat exchange.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest describes a single chat-completion call. Temperature is a
// pointer so an explicit zero still reaches the wire.
type ChatRequest struct {
	Model               string    `json:"model"`
	Messages            []Message `json:"messages"`
	Temperature         *float64  `json:"temperature,omitempty"`
	MaxCompletionTokens int       `json:"max_completion_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Client issues chat-completion requests against one endpoint with one
// credential. The embedded http.Client enforces the transport timeout.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient builds a client for the given endpoint. An empty baseURL falls
// back to the Groq default; timeout zero means no transport deadline beyond
// the per-call context.
func NewClient(baseURL string, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// CreateChatCompletion performs one chat-completion round trip and returns
// the assistant message content, trimmed. Exactly one attempt is made.
func (c *Client) CreateChatCompletion(ctx context.Context, request ChatRequest) (string, error) {
	requestBody, marshalErr := json.Marshal(request)
	if marshalErr != nil {
		return "", fmt.Errorf("marshal chat request: %w", marshalErr)
	}

	httpRequest, buildErr := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatCompletionsPath, bytes.NewReader(requestBody))
	if buildErr != nil {
		return "", fmt.Errorf("build chat request: %w", buildErr)
	}
	httpRequest.Header.Set(contentTypeHeader, jsonContentType)
	httpRequest.Header.Set(authorizationHeader, "Bearer "+c.apiKey)

	httpResponse, doErr := c.httpClient.Do(httpRequest)
	if doErr != nil {
		return "", fmt.Errorf("execute chat request: %w", doErr)
	}
	defer func() { _ = httpResponse.Body.Close() }()

	responseBody, readErr := io.ReadAll(httpResponse.Body)
	if readErr != nil {
		return "", fmt.Errorf("read chat response: %w", readErr)
	}
	if httpResponse.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat completion http %d: %s", httpResponse.StatusCode, bodyPreview(responseBody))
	}

	var parsedResponse chatResponse
	if decodeErr := json.Unmarshal(responseBody, &parsedResponse); decodeErr != nil {
		return "", fmt.Errorf("decode chat response: %w", decodeErr)
	}
	if len(parsedResponse.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	choice := parsedResponse.Choices[0]
	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		if refusal := strings.TrimSpace(choice.Message.Refusal); refusal != "" {
			return "", fmt.Errorf("chat completion refused: %s", refusal)
		}
		return "", errors.New("chat completion returned empty content")
	}
	return content, nil
}

// bodyPreview truncates on rune boundaries so the error message stays valid
// UTF-8 even when the cutoff lands inside a multi-byte sequence.
func bodyPreview(body []byte) string {
	preview := strings.TrimSpace(string(body))
	if len(preview) <= responseBodyPreviewLimit {
		return preview
	}
	runes := []rune(preview)
	if len(runes) <= responseBodyPreviewLimit {
		return preview
	}
	return string(runes[:responseBodyPreviewLimit]) + "..."
}
