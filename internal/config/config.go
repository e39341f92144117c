package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port         int
	MasterSecret string
	GinMode      string
	TLSCertFile  string
	TLSKeyFile   string
	TokenExpiry  time.Duration

	// Storage. DatabaseURL wins over SQLitePath; with neither set the in-memory store is used,
	// optionally snapshotted to StateFile.
	DatabaseURL string
	SQLitePath  string
	StateFile   string

	OpenAIBaseURL     string
	LocalModelURL     string
	LocalModelName    string
	CompletionTimeout time.Duration
	MaxTokens         int
	Models            []ModelSpec

	LogLevel  string
	LogFormat string
}

type Env interface {
	Getenv(key string) string
}

type osEnv struct{}

func (osEnv) Getenv(key string) string { return os.Getenv(key) }

func LoadConfig() (Config, error) {
	return LoadConfigFromEnv(osEnv{})
}

func LoadConfigFromEnv(env Env) (Config, error) {
	cfg := Config{
		Port:              3000,
		GinMode:           "release",
		TokenExpiry:       7 * 24 * time.Hour,
		LocalModelName:    "falcon-7b-instruct",
		CompletionTimeout: 60 * time.Second,
		MaxTokens:         150,
		LogLevel:          "info",
		LogFormat:         "text",
	}

	if raw := env.Getenv("PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 || port > 65535 {
			return Config{}, fmt.Errorf("invalid PORT")
		}
		cfg.Port = port
	}

	cfg.MasterSecret = env.Getenv("MASTER_SECRET")
	if cfg.MasterSecret == "" {
		return Config{}, fmt.Errorf("MASTER_SECRET is required")
	}

	if raw := env.Getenv("GIN_MODE"); raw != "" {
		cfg.GinMode = raw
	}

	cfg.TLSCertFile = env.Getenv("TLS_CERT_FILE")
	cfg.TLSKeyFile = env.Getenv("TLS_KEY_FILE")

	if raw := env.Getenv("TOKEN_EXPIRY_SECONDS"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			return Config{}, fmt.Errorf("invalid TOKEN_EXPIRY_SECONDS")
		}
		cfg.TokenExpiry = time.Duration(seconds) * time.Second
	}

	cfg.DatabaseURL = env.Getenv("DATABASE_URL")
	cfg.SQLitePath = env.Getenv("SQLITE_PATH")
	cfg.StateFile = env.Getenv("STATE_FILE")

	cfg.OpenAIBaseURL = env.Getenv("OPENAI_BASE_URL")
	cfg.LocalModelURL = env.Getenv("LOCAL_MODEL_URL")
	if raw := env.Getenv("LOCAL_MODEL_NAME"); raw != "" {
		cfg.LocalModelName = raw
	}

	if raw := env.Getenv("COMPLETION_TIMEOUT_SECONDS"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			return Config{}, fmt.Errorf("invalid COMPLETION_TIMEOUT_SECONDS")
		}
		cfg.CompletionTimeout = time.Duration(seconds) * time.Second
	}

	if raw := env.Getenv("MAX_TOKENS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid MAX_TOKENS")
		}
		cfg.MaxTokens = n
	}

	if path := env.Getenv("MODELS_FILE"); path != "" {
		models, err := LoadModelsFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg.Models = models
	} else {
		cfg.Models = defaultModels(env.Getenv("HOSTED_MODELS"), env.Getenv("LOCAL_MODEL_TAG"))
	}

	if raw := env.Getenv("LOG_LEVEL"); raw != "" {
		cfg.LogLevel = strings.ToLower(raw)
	}
	if raw := env.Getenv("LOG_FORMAT"); raw != "" {
		switch strings.ToLower(raw) {
		case "text", "json":
			cfg.LogFormat = strings.ToLower(raw)
		default:
			return Config{}, fmt.Errorf("invalid LOG_FORMAT")
		}
	}

	return cfg, nil
}
