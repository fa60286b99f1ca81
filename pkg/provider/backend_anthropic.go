package provider

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicMaxTokens = 4096

// AnthropicBackend executes requests against Anthropic Claude.
type AnthropicBackend struct {
	key        string
	model      string
	client     anthropic.Client
	configured bool
}

// NewAnthropicBackend creates an Anthropic-backed provider. An empty API
// key leaves the backend registered but unconfigured.
func NewAnthropicBackend(key, model, apiKey string) *AnthropicBackend {
	return &AnthropicBackend{
		key:        key,
		model:      model,
		client:     anthropic.NewClient(option.WithAPIKey(apiKey)),
		configured: apiKey != "",
	}
}

// Key returns the registry key.
func (b *AnthropicBackend) Key() string {
	return b.key
}

// Model returns the model handle.
func (b *AnthropicBackend) Model() string {
	return b.model
}

// IsConfigured reports whether an API key is present.
func (b *AnthropicBackend) IsConfigured() bool {
	return b.configured
}

// Execute makes a single message call.
func (b *AnthropicBackend) Execute(ctx context.Context, req Request) (*Response, error) {
	response, err := b.client.Messages.New(ctx, b.params(req))
	if err != nil {
		return nil, err
	}

	content := ""
	for _, block := range response.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			content += text.Text
		}
	}

	promptTokens := int(response.Usage.InputTokens)
	completionTokens := int(response.Usage.OutputTokens)

	return &Response{
		Content: content,
		Usage: &Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
		FinishReason: string(response.StopReason),
	}, nil
}

// Stream makes a streaming message call, emitting one chunk per text delta.
func (b *AnthropicBackend) Stream(ctx context.Context, req Request) (<-chan Chunk, error) {
	stream := b.client.Messages.NewStreaming(ctx, b.params(req))

	out := make(chan Chunk)
	go func() {
		defer close(out)
		for stream.Next() {
			event := stream.Current()
			switch variant := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				if delta, ok := variant.Delta.AsAny().(anthropic.TextDelta); ok {
					out <- Chunk{Content: delta.Text}
				}
			}
		}
		if err := stream.Err(); err != nil {
			out <- Chunk{Err: err}
		}
	}()

	return out, nil
}

func (b *AnthropicBackend) params(req Request) anthropic.MessageNewParams {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(b.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	return params
}
