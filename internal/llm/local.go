package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"
)

type LocalOptions struct {
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// LocalModel is the process-wide handle to the locally served model. It is built once at
// startup and serializes generation since the backing runtime handles one request at a time.
type LocalModel struct {
	mu     sync.Mutex
	client *openai.Client
	model  string
}

func NewLocalModel(opts LocalOptions) (*LocalModel, error) {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		return nil, fmt.Errorf("local model base URL is required")
	}
	if opts.Model == "" {
		return nil, fmt.Errorf("local model name is required")
	}

	cfg := openai.DefaultConfig("")
	cfg.BaseURL = baseURL
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}
	return &LocalModel{client: openai.NewClientWithConfig(cfg), model: opts.Model}, nil
}

// Complete ignores req.Model and req.Credential.
func (l *LocalModel) Complete(ctx context.Context, req Request) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Result{}, classify(ctx, err)
	}

	req.Model = l.model
	resp, err := l.client.CreateChatCompletion(ctx, chatRequest(req))
	if err != nil {
		return Result{}, classify(ctx, err)
	}
	return resultFrom(resp)
}

// Warm sends a one-token prompt so the runtime loads weights before the first real request.
func (l *LocalModel) Warm(ctx context.Context) error {
	_, err := l.Complete(ctx, Request{Prompt: "ping", MaxTokens: 1})
	if err != nil {
		return fmt.Errorf("warm-up: %w", err)
	}
	return nil
}
