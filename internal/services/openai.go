package services

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultOpenAIModel = "gpt-4o-mini"

type openAICompleter struct {
	client openai.Client
	model  string
}

// NewOpenAITextService builds a text service backed by the OpenAI chat
// completions API. Extra request options are appended after the key.
func NewOpenAITextService(apiKey, model string, opts ...option.RequestOption) (*LLMTextService, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	if model == "" {
		model = os.Getenv("OPENAI_MODEL")
	}
	if model == "" {
		model = defaultOpenAIModel
	}

	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &LLMTextService{
		provider: "openai",
		client: &openAICompleter{
			client: openai.NewClient(opts...),
			model:  model,
		},
	}, nil
}

func (o *openAICompleter) complete(ctx context.Context, system, prompt string, wantJSON bool) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(0),
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrMalformedOutput
	}
	return resp.Choices[0].Message.Content, nil
}
