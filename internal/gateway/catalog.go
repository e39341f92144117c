package gateway

import (
	"fmt"
	"strings"

	"puppet-server/internal/config"
	"puppet-server/internal/model"
)

type Kind int

const (
	KindHosted Kind = iota + 1
	KindLocal
)

func (k Kind) String() string {
	switch k {
	case KindHosted:
		return config.ModelKindHosted
	case KindLocal:
		return config.ModelKindLocal
	default:
		return "unknown"
	}
}

// Target is a resolved model selector.
type Target struct {
	Kind     Kind
	Selector string
	// Model is the name sent to the provider.
	Model string
}

type Catalog struct {
	targets map[string]Target
}

func NewCatalog(specs []config.ModelSpec) *Catalog {
	c := &Catalog{targets: make(map[string]Target, len(specs))}
	for _, s := range specs {
		t := Target{Kind: KindHosted, Selector: s.Selector, Model: s.Model}
		if s.Kind == config.ModelKindLocal {
			t.Kind = KindLocal
		}
		if t.Model == "" {
			t.Model = s.Selector
		}
		c.targets[s.Selector] = t
	}
	return c
}

func (c *Catalog) Resolve(selector string) (Target, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return Target{}, fmt.Errorf("%w: model version is required", model.ErrValidation)
	}
	t, ok := c.targets[selector]
	if !ok {
		return Target{}, fmt.Errorf("%w: unsupported model %q", model.ErrValidation, selector)
	}
	return t, nil
}
