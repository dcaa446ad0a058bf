package anthropic

import (
	"context"
	"fmt"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	rcErrors "github.com/cadre-oss/reqcheck/internal/errors"
	"github.com/cadre-oss/reqcheck/internal/provider"
)

const (
	defaultModel     = "claude-sonnet-4-20250514"
	defaultMaxTokens = 4096
)

// Config configures the Anthropic client.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Client implements provider.Provider on the Anthropic Messages API.
type Client struct {
	apiKey string
	model  string
	sdk    sdk.Client
}

// NewClient creates a new Anthropic client. The SDK falls back to
// ANTHROPIC_API_KEY when cfg.APIKey is empty.
func NewClient(cfg Config) *Client {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	opts := []option.RequestOption{
		// Retries belong to the agent.
		option.WithMaxRetries(0),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/"))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &Client{
		apiKey: cfg.APIKey,
		model:  model,
		sdk:    sdk.NewClient(opts...),
	}
}

// Name returns the provider name
func (c *Client) Name() string {
	return "anthropic"
}

// Complete sends a completion request to Claude
func (c *Client) Complete(ctx context.Context, req *provider.CompletionRequest) (*provider.Response, error) {
	if c.apiKey == "" {
		return nil, rcErrors.New(rcErrors.CodeAPIKeyMissing, "anthropic api key not set").
			WithSuggestion("Set provider.api_key in reqcheck.yaml or export REQCHECK_PROVIDER_API_KEY")
	}

	msg, err := c.sdk.Messages.New(ctx, c.buildParams(req))
	if err != nil {
		return nil, rcErrors.Wrap(rcErrors.CodeProviderError, "anthropic request failed", err)
	}

	return parseMessage(msg), nil
}

// buildParams converts our request to SDK parameters.
func (c *Client) buildParams(req *provider.CompletionRequest) sdk.MessageNewParams {
	model := req.Model
	if model == "" {
		model = c.model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(model),
		MaxTokens: int64(maxTokens),
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature > 0 {
		params.Temperature = sdk.Float(req.Temperature)
	}
	if len(req.StopSeqs) > 0 {
		params.StopSequences = req.StopSeqs
	}

	for _, m := range req.Messages {
		block := sdk.NewTextBlock(m.Content)
		if m.Role == "assistant" {
			params.Messages = append(params.Messages, sdk.NewAssistantMessage(block))
		} else {
			params.Messages = append(params.Messages, sdk.NewUserMessage(block))
		}
	}
	return params
}

func parseMessage(msg *sdk.Message) *provider.Response {
	var parts []string
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(sdk.TextBlock); ok && tb.Text != "" {
			parts = append(parts, tb.Text)
		}
	}

	return &provider.Response{
		Content:    strings.Join(parts, "\n"),
		Model:      string(msg.Model),
		StopReason: string(msg.StopReason),
		Usage: provider.Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}
}

func (c *Client) String() string {
	return fmt.Sprintf("anthropic(%s)", c.model)
}
