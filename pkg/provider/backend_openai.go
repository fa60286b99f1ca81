package provider

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIBackend executes requests against the OpenAI chat completions API.
type OpenAIBackend struct {
	key        string
	model      string
	client     openai.Client
	configured bool
}

// NewOpenAIBackend creates an OpenAI-backed provider. An empty API key
// leaves the backend registered but unconfigured.
func NewOpenAIBackend(key, model, apiKey string) *OpenAIBackend {
	return &OpenAIBackend{
		key:        key,
		model:      model,
		client:     openai.NewClient(option.WithAPIKey(apiKey)),
		configured: apiKey != "",
	}
}

// Key returns the registry key.
func (b *OpenAIBackend) Key() string {
	return b.key
}

// Model returns the model handle.
func (b *OpenAIBackend) Model() string {
	return b.model
}

// IsConfigured reports whether an API key is present.
func (b *OpenAIBackend) IsConfigured() bool {
	return b.configured
}

// Execute makes a single chat completion call.
func (b *OpenAIBackend) Execute(ctx context.Context, req Request) (*Response, error) {
	response, err := b.client.Chat.Completions.New(ctx, b.params(req))
	if err != nil {
		return nil, err
	}

	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no response choices returned")
	}
	choice := response.Choices[0]

	return &Response{
		Content: choice.Message.Content,
		Usage: &Usage{
			PromptTokens:     int(response.Usage.PromptTokens),
			CompletionTokens: int(response.Usage.CompletionTokens),
			TotalTokens:      int(response.Usage.TotalTokens),
		},
		FinishReason: choice.FinishReason,
	}, nil
}

// Stream makes a streaming chat completion call, emitting one chunk per
// content delta.
func (b *OpenAIBackend) Stream(ctx context.Context, req Request) (<-chan Chunk, error) {
	stream := b.client.Chat.Completions.NewStreaming(ctx, b.params(req))

	out := make(chan Chunk)
	go func() {
		defer close(out)
		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			if delta := chunk.Choices[0].Delta.Content; delta != "" {
				out <- Chunk{Content: delta}
			}
		}
		if err := stream.Err(); err != nil {
			out <- Chunk{Err: err}
		}
	}()

	return out, nil
}

func (b *OpenAIBackend) params(req Request) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(b.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	return params
}
