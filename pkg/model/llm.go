package model

import (
	"context"
)

// DefaultMaxTokens bounds a single generation. It is generous on purpose so long
// note sets and many-question quizzes are not truncated.
const DefaultMaxTokens = 10000

// TextGenerator sends one prompt as a single user turn and returns the reply text.
// Implementations are constructed once per process and are safe for concurrent use.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, GenerationMetadata, error)
}

type GenerationMetadata map[string]string

const (
	MetadataKeyProvider          = "provider"
	MetadataKeyModel             = "model"
	MetadataKeyLatencyMs         = "latency_ms"
	MetadataKeyInputTokens       = "input_tokens"
	MetadataKeyOutputTokens      = "output_tokens"
	MetadataKeyTotalTokens       = "total_tokens"
	MetadataKeyCachedInputTokens = "cached_input_tokens"
	MetadataKeyResponseID        = "response_id"
	MetadataKeyResponseStatus    = "response_status"
)

type GeneratorOption interface {
	apply(*GeneratorConfig)
}

type generatorOptionFunc func(*GeneratorConfig)

func (f generatorOptionFunc) apply(cfg *GeneratorConfig) {
	f(cfg)
}

type GeneratorConfig struct {
	URL         string
	AuthToken   string
	Temperature *float64
	MaxTokens   *int
	Model       *string

	// Region and the static credential triple are only read by cloud providers
	// that sign requests (bedrock).
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Profile         string
}

func ResolveGeneratorOpts(opts ...GeneratorOption) GeneratorConfig {
	cfg := GeneratorConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt.apply(&cfg)
		}
	}
	return cfg
}

// ResolveMaxTokens returns the configured bound or DefaultMaxTokens.
func (cfg GeneratorConfig) ResolveMaxTokens() int {
	if cfg.MaxTokens != nil && *cfg.MaxTokens > 0 {
		return *cfg.MaxTokens
	}
	return DefaultMaxTokens
}

func WithURL(value string) GeneratorOption {
	return generatorOptionFunc(func(cfg *GeneratorConfig) {
		cfg.URL = value
	})
}

func WithAuthToken(value string) GeneratorOption {
	return generatorOptionFunc(func(cfg *GeneratorConfig) {
		cfg.AuthToken = value
	})
}

func WithTemperature(value float64) GeneratorOption {
	return generatorOptionFunc(func(cfg *GeneratorConfig) {
		cfg.Temperature = &value
	})
}

func WithMaxTokens(value int) GeneratorOption {
	return generatorOptionFunc(func(cfg *GeneratorConfig) {
		cfg.MaxTokens = &value
	})
}

func WithModel(value string) GeneratorOption {
	return generatorOptionFunc(func(cfg *GeneratorConfig) {
		cfg.Model = &value
	})
}

func WithRegion(value string) GeneratorOption {
	return generatorOptionFunc(func(cfg *GeneratorConfig) {
		cfg.Region = value
	})
}

func WithCredentials(accessKeyID string, secretAccessKey string, sessionToken string) GeneratorOption {
	return generatorOptionFunc(func(cfg *GeneratorConfig) {
		cfg.AccessKeyID = accessKeyID
		cfg.SecretAccessKey = secretAccessKey
		cfg.SessionToken = sessionToken
	})
}

func WithProfile(value string) GeneratorOption {
	return generatorOptionFunc(func(cfg *GeneratorConfig) {
		cfg.Profile = value
	})
}
