// Package gateway dispatches prompts to the hosted or local model and records the outcome.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"puppet-server/internal/llm"
	"puppet-server/internal/model"
	"puppet-server/internal/store"
)

type Options struct {
	Store   store.Store
	Catalog *Catalog
	Hosted  llm.Provider
	// Local may be nil when no local runtime is configured.
	Local     llm.Provider
	Timeout   time.Duration
	MaxTokens int
	Logger    logrus.FieldLogger
	Now       func() time.Time
}

type Gateway struct {
	store     store.Store
	catalog   *Catalog
	hosted    llm.Provider
	local     llm.Provider
	timeout   time.Duration
	maxTokens int
	log       logrus.FieldLogger
	now       func() time.Time
}

func New(opts Options) *Gateway {
	g := &Gateway{
		store:     opts.Store,
		catalog:   opts.Catalog,
		hosted:    opts.Hosted,
		local:     opts.Local,
		timeout:   opts.Timeout,
		maxTokens: opts.MaxTokens,
		log:       opts.Logger,
		now:       opts.Now,
	}
	if g.log == nil {
		g.log = logrus.StandardLogger()
	}
	g.log = g.log.WithField("component", "gateway")
	if g.now == nil {
		g.now = time.Now
	}
	if g.timeout <= 0 {
		g.timeout = 60 * time.Second
	}
	if g.maxTokens <= 0 {
		g.maxTokens = 150
	}
	return g
}

type Completion struct {
	Text  string     `json:"text"`
	Usage *llm.Usage `json:"usage,omitempty"`
}

// Complete answers prompt with the model named by selector. Only a successful answer stamps the
// account and appends a mobile history entry; storage failures at that point are logged.
func (g *Gateway) Complete(ctx context.Context, accountID, prompt, selector string) (Completion, error) {
	if strings.TrimSpace(prompt) == "" {
		return Completion{}, fmt.Errorf("%w: prompt is required", model.ErrValidation)
	}
	acc, err := g.store.GetAccount(ctx, accountID)
	if err != nil {
		return Completion{}, err
	}
	target, err := g.catalog.Resolve(selector)
	if err != nil {
		return Completion{}, err
	}

	res, err := g.generate(ctx, target, acc, prompt)
	if err != nil {
		return Completion{}, err
	}
	text := strings.TrimSpace(res.Text)
	if text == "" {
		return Completion{}, fmt.Errorf("%w: empty response from %s", model.ErrUpstream, target.Selector)
	}

	now := g.now().UnixMilli()
	log := g.log.WithField("account_id", acc.ID)
	if err := g.store.TouchPrompt(ctx, acc.ID, now); err != nil {
		log.WithError(err).Error("stamp prompt time failed")
	}
	entry := model.HistoryEntry{
		AccountID: acc.ID,
		Prompt:    prompt,
		Response:  text,
		Partition: model.PartitionMobile,
		Model:     target.Selector,
		CreatedAt: now,
	}
	if _, err := g.store.AppendHistory(ctx, entry); err != nil {
		log.WithError(err).Error("append history failed")
	}

	return Completion{Text: text, Usage: res.Usage}, nil
}

func (g *Gateway) generate(ctx context.Context, target Target, acc model.Account, prompt string) (llm.Result, error) {
	req := llm.Request{Model: target.Model, Prompt: prompt, MaxTokens: g.maxTokens}

	var provider llm.Provider
	switch target.Kind {
	case KindHosted:
		if !acc.HasCredential() {
			return llm.Result{}, fmt.Errorf("%w: account has no API key for %s", model.ErrInvalidCredential, target.Selector)
		}
		req.Credential = acc.Credential
		provider = g.hosted
	case KindLocal:
		provider = g.local
	}
	if provider == nil {
		return llm.Result{}, fmt.Errorf("%w: %s model is not configured", model.ErrUpstream, target.Kind)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	res, err := provider.Complete(ctx, req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, model.ErrTimeout) {
			return llm.Result{}, fmt.Errorf("%w: %s did not answer within %s", model.ErrTimeout, target.Selector, g.timeout)
		}
		return llm.Result{}, err
	}
	return res, nil
}
