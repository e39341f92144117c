package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"puppet-server/internal/model"
)

// Hosted calls the hosted API with the per-account key carried in each Request.
type Hosted struct {
	baseURL    string
	httpClient *http.Client
}

// NewHosted returns a hosted provider. An empty baseURL uses the public OpenAI endpoint.
func NewHosted(baseURL string, httpClient *http.Client) *Hosted {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Hosted{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

func (h *Hosted) Complete(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Credential) == "" {
		return Result{}, fmt.Errorf("%w: no API key on account", model.ErrInvalidCredential)
	}

	cfg := openai.DefaultConfig(req.Credential)
	if h.baseURL != "" {
		cfg.BaseURL = h.baseURL
	}
	cfg.HTTPClient = h.httpClient
	client := openai.NewClientWithConfig(cfg)

	resp, err := client.CreateChatCompletion(ctx, chatRequest(req))
	if err != nil {
		return Result{}, classify(ctx, err)
	}
	return resultFrom(resp)
}
