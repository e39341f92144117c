package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	ModelKindHosted = "hosted"
	ModelKindLocal  = "local"
)

// ModelSpec maps a client-facing selector to a provider kind and the provider's model name.
type ModelSpec struct {
	Selector string `yaml:"selector"`
	Kind     string `yaml:"kind"`
	Model    string `yaml:"model"`
}

type modelsFile struct {
	Models []ModelSpec `yaml:"models"`
}

// LoadModelsFile reads a catalog such as:
//
//	models:
//	  - selector: gpt-4
//	    kind: hosted
//	  - selector: falcon
//	    kind: local
//	    model: falcon-7b-instruct
func LoadModelsFile(path string) ([]ModelSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read models file: %w", err)
	}
	var file modelsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse models file: %w", err)
	}
	if len(file.Models) == 0 {
		return nil, fmt.Errorf("models file %s has no models", path)
	}

	seen := make(map[string]bool, len(file.Models))
	out := make([]ModelSpec, 0, len(file.Models))
	for i, m := range file.Models {
		m.Selector = strings.TrimSpace(m.Selector)
		m.Kind = strings.ToLower(strings.TrimSpace(m.Kind))
		if m.Selector == "" {
			return nil, fmt.Errorf("models[%d]: selector is required", i)
		}
		if m.Kind != ModelKindHosted && m.Kind != ModelKindLocal {
			return nil, fmt.Errorf("models[%d]: unknown kind %q", i, m.Kind)
		}
		if seen[m.Selector] {
			return nil, fmt.Errorf("models[%d]: duplicate selector %q", i, m.Selector)
		}
		seen[m.Selector] = true
		out = append(out, m)
	}
	return out, nil
}

func defaultModels(hostedRaw, localTag string) []ModelSpec {
	if strings.TrimSpace(hostedRaw) == "" {
		hostedRaw = "gpt-3.5-turbo,gpt-4"
	}
	localTag = strings.TrimSpace(localTag)
	if localTag == "" {
		localTag = "falcon"
	}

	var models []ModelSpec
	for _, name := range strings.Split(hostedRaw, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		models = append(models, ModelSpec{Selector: name, Kind: ModelKindHosted})
	}
	return append(models, ModelSpec{Selector: localTag, Kind: ModelKindLocal})
}
