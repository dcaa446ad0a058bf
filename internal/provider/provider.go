package provider

import (
	"context"
	"strings"
)

// Message represents a conversation message
type Message struct {
	Role    string `json:"role"` // user, assistant
	Content string `json:"content"`
}

// Response represents a provider response
type Response struct {
	Content    string `json:"content"`
	Model      string `json:"model,omitempty"`
	StopReason string `json:"stop_reason"`
	Usage      Usage  `json:"usage"`
}

// Usage tracks token usage
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete sends a completion request
	Complete(ctx context.Context, req *CompletionRequest) (*Response, error)
}

// CompletionRequest represents a completion request
type CompletionRequest struct {
	Model       string    `json:"model"`
	System      string    `json:"system"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	StopSeqs    []string  `json:"stop_sequences,omitempty"`
}

// UserPrompt builds a request carrying a single user message.
func UserPrompt(prompt string) *CompletionRequest {
	return &CompletionRequest{
		Messages: []Message{{Role: "user", Content: prompt}},
	}
}

// Text returns the reply content with surrounding whitespace removed.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r.Content)
}
