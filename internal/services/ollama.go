package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/ollama/ollama/api"
)

const (
	defaultOllamaHost  = "http://localhost:11434"
	defaultOllamaModel = "openchat:latest"
)

type ollamaCompleter struct {
	client *api.Client
	model  string
}

// NewOllamaTextService builds a text service backed by an Ollama server.
// Empty arguments fall back to OLLAMA_HOST / OLLAMA_MODEL and then defaults.
func NewOllamaTextService(hostURL, model string) *LLMTextService {
	if hostURL == "" {
		hostURL = os.Getenv("OLLAMA_HOST")
	}
	if hostURL == "" {
		hostURL = defaultOllamaHost
	}
	if model == "" {
		model = os.Getenv("OLLAMA_MODEL")
	}
	if model == "" {
		model = defaultOllamaModel
	}

	parsedURL, err := url.Parse(hostURL)
	if err != nil || parsedURL.Scheme == "" {
		parsedURL, _ = url.Parse(defaultOllamaHost)
	}

	return &LLMTextService{
		provider: "ollama",
		client: &ollamaCompleter{
			client: api.NewClient(parsedURL, http.DefaultClient),
			model:  model,
		},
	}
}

func (o *ollamaCompleter) complete(ctx context.Context, system, prompt string, wantJSON bool) (string, error) {
	stream := false
	req := &api.ChatRequest{
		Model: o.model,
		Messages: []api.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		Stream:  &stream,
		Options: map[string]any{"temperature": 0},
	}
	if wantJSON {
		req.Format = json.RawMessage(`"json"`)
	}

	var content strings.Builder
	err := o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	return content.String(), nil
}
