// Package llm wraps the chat-completions API the assistant replies come
// from. One external request/response per reply, nothing fancier.
package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// ErrMissingAPIKey means the serving path was started without credentials.
// This is a configuration error, not a per-request recoverable one.
var ErrMissingAPIKey = errors.New("llm: missing API key")

// ErrUpstream wraps any transport, auth, or rate-limit failure from the
// model provider. The chat pipeline converts it into the fixed fallback
// reply; it must never reach the user raw.
var ErrUpstream = errors.New("llm: upstream unavailable")

// Chat message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string
	Content string
}

// Options are the sampling parameters sent with every completion request.
type Options struct {
	Model            string
	Temperature      float32
	MaxTokens        int
	TopP             float32
	FrequencyPenalty float32
	PresencePenalty  float32
}

// Client is a thin wrapper over the OpenAI-compatible completions endpoint.
type Client struct {
	api  *openai.Client
	opts Options
}

// NewClient builds a client for the given endpoint. An empty apiKey is fatal
// here so a misconfigured deployment fails at startup, not mid-conversation.
func NewClient(apiKey, baseURL string, opts Options) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{
		api:  openai.NewClientWithConfig(cfg),
		opts: opts,
	}, nil
}

// Complete sends the message list and returns the first choice's content.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	chatMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		chatMessages[i] = openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		}
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:            c.opts.Model,
		Messages:         chatMessages,
		Temperature:      c.opts.Temperature,
		MaxTokens:        c.opts.MaxTokens,
		TopP:             c.opts.TopP,
		FrequencyPenalty: c.opts.FrequencyPenalty,
		PresencePenalty:  c.opts.PresencePenalty,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", ErrUpstream)
	}
	return resp.Choices[0].Message.Content, nil
}
