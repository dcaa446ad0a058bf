// Package openai implements provider.Provider for OpenAI-compatible chat
// completion endpoints. Pointing BaseURL at a gateway (OpenRouter, a
// self-hosted proxy, GigaChat's compatible API) reuses the same client.
package openai

import (
	"context"
	"strings"
	"time"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	rcErrors "github.com/cadre-oss/reqcheck/internal/errors"
	"github.com/cadre-oss/reqcheck/internal/provider"
)

const defaultModel = "gpt-4o-mini"

// Config configures the OpenAI-compatible client.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Client implements provider.Provider on the chat completions API.
type Client struct {
	apiKey string
	model  string
	sdk    sdk.Client
}

// NewClient creates a new client.
func NewClient(cfg Config) *Client {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	opts := []option.RequestOption{
		option.WithMaxRetries(0),
	}
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		opts = append(opts, option.WithAPIKey(key))
	}
	if trimmed := strings.TrimRight(cfg.BaseURL, "/"); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed+"/"))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &Client{
		apiKey: strings.TrimSpace(cfg.APIKey),
		model:  model,
		sdk:    sdk.NewClient(opts...),
	}
}

// Name returns the provider name
func (c *Client) Name() string {
	return "openai"
}

// Complete sends a chat completion request.
func (c *Client) Complete(ctx context.Context, req *provider.CompletionRequest) (*provider.Response, error) {
	if c.apiKey == "" {
		return nil, rcErrors.New(rcErrors.CodeAPIKeyMissing, "openai api key not set").
			WithSuggestion("Set provider.api_key in reqcheck.yaml or export REQCHECK_PROVIDER_API_KEY")
	}

	completion, err := c.sdk.Chat.Completions.New(ctx, c.buildParams(req))
	if err != nil {
		return nil, rcErrors.Wrap(rcErrors.CodeProviderError, "chat completion failed", err)
	}
	if len(completion.Choices) == 0 {
		return nil, rcErrors.New(rcErrors.CodeProviderError, "chat completion returned no choices")
	}

	choice := completion.Choices[0]
	return &provider.Response{
		Content:    choice.Message.Content,
		Model:      completion.Model,
		StopReason: string(choice.FinishReason),
		Usage: provider.Usage{
			InputTokens:  int(completion.Usage.PromptTokens),
			OutputTokens: int(completion.Usage.CompletionTokens),
		},
	}, nil
}

func (c *Client) buildParams(req *provider.CompletionRequest) sdk.ChatCompletionNewParams {
	model := req.Model
	if model == "" {
		model = c.model
	}

	var messages []sdk.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, sdk.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		if m.Role == "assistant" {
			messages = append(messages, sdk.AssistantMessage(m.Content))
		} else {
			messages = append(messages, sdk.UserMessage(m.Content))
		}
	}

	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(model),
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = sdk.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = sdk.Float(req.Temperature)
	}
	return params
}
