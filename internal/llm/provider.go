// Package llm talks to OpenAI-compatible chat completion endpoints, either the hosted API or a
// locally served model.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
	"puppet-server/internal/model"
)

// Request is a single-turn completion. Credential is the caller's API key and is ignored by
// providers that do not need one.
type Request struct {
	Model      string
	Prompt     string
	Credential string
	MaxTokens  int
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Result struct {
	Text  string
	Usage *Usage
}

type Provider interface {
	Complete(ctx context.Context, req Request) (Result, error)
}

// ProviderFunc adapts a plain function to Provider.
type ProviderFunc func(ctx context.Context, req Request) (Result, error)

func (f ProviderFunc) Complete(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}

func chatRequest(req Request) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		MaxTokens: req.MaxTokens,
	}
}

func resultFrom(resp openai.ChatCompletionResponse) (Result, error) {
	if len(resp.Choices) == 0 {
		return Result{}, fmt.Errorf("%w: no choices in response", model.ErrUpstream)
	}
	res := Result{Text: resp.Choices[0].Message.Content}
	if resp.Usage.TotalTokens > 0 {
		res.Usage = &Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	return res, nil
}

// classify maps client errors onto the model error kinds.
func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", model.ErrTimeout, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: %s", model.ErrInvalidCredential, apiErr.Message)
		}
		return fmt.Errorf("%w: status %d: %s", model.ErrUpstream, apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: %v", model.ErrInvalidCredential, reqErr.Err)
		}
		return fmt.Errorf("%w: status %d: %v", model.ErrUpstream, reqErr.HTTPStatusCode, reqErr.Err)
	}
	return fmt.Errorf("%w: %v", model.ErrUpstream, err)
}
