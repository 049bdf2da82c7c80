// Package llms builds the configured speech-to-text and text-generation
// providers. Each provider is constructed once per process.
package llms

import (
	"context"
	"fmt"

	"github.com/Nephrolytics-ai/study-notes/pkg/config"
	"github.com/Nephrolytics-ai/study-notes/pkg/llms/anthropic"
	"github.com/Nephrolytics-ai/study-notes/pkg/llms/bedrock"
	"github.com/Nephrolytics-ai/study-notes/pkg/llms/gemini"
	"github.com/Nephrolytics-ai/study-notes/pkg/llms/ollama"
	"github.com/Nephrolytics-ai/study-notes/pkg/llms/openai"
	"github.com/Nephrolytics-ai/study-notes/pkg/model"
	"github.com/Nephrolytics-ai/study-notes/pkg/utils"
)

func NewTranscriber(ctx context.Context, cfg config.Config) (model.Transcriber, error) {
	opts := audioOptions(cfg)

	var (
		transcriber model.Transcriber
		err         error
	)
	switch cfg.Transcription.Provider {
	case config.ProviderOpenAI:
		opts.AuthToken = cfg.Credentials.OpenAIKey
		opts.URL = cfg.Endpoints.OpenAIURL
		transcriber, err = openai.NewTranscriber(opts)
	case config.ProviderGemini:
		opts.AuthToken = cfg.Credentials.GeminiKey
		opts.URL = cfg.Endpoints.GeminiURL
		transcriber, err = gemini.NewTranscriber(ctx, opts)
	default:
		err = fmt.Errorf("unsupported transcription provider %q", cfg.Transcription.Provider)
	}
	if err != nil {
		return nil, utils.WrapIfNotNil(err, cfg.Transcription.Provider)
	}
	return transcriber, nil
}

func NewTextGenerator(ctx context.Context, cfg config.Config) (model.TextGenerator, error) {
	opts := generatorOptions(cfg)

	var (
		generator model.TextGenerator
		err       error
	)
	switch cfg.Generation.Provider {
	case config.ProviderBedrock:
		opts = append(opts,
			model.WithURL(cfg.AWS.BedrockURL),
			model.WithRegion(cfg.AWS.Region),
			model.WithCredentials(cfg.AWS.AccessKeyID, cfg.AWS.SecretAccessKey, cfg.AWS.SessionToken),
			model.WithProfile(cfg.AWS.Profile),
		)
		generator, err = bedrock.NewTextGenerator(ctx, opts...)
	case config.ProviderAnthropic:
		opts = append(opts, model.WithAuthToken(cfg.Credentials.AnthropicKey), model.WithURL(cfg.Endpoints.AnthropicURL))
		generator, err = anthropic.NewTextGenerator(opts...)
	case config.ProviderOpenAI:
		opts = append(opts, model.WithAuthToken(cfg.Credentials.OpenAIKey), model.WithURL(cfg.Endpoints.OpenAIURL))
		generator, err = openai.NewTextGenerator(opts...)
	case config.ProviderGemini:
		opts = append(opts, model.WithAuthToken(cfg.Credentials.GeminiKey), model.WithURL(cfg.Endpoints.GeminiURL))
		generator, err = gemini.NewTextGenerator(ctx, opts...)
	case config.ProviderOllama:
		opts = append(opts, model.WithURL(cfg.Endpoints.OllamaURL))
		generator, err = ollama.NewTextGenerator(opts...)
	default:
		err = fmt.Errorf("unsupported generation provider %q", cfg.Generation.Provider)
	}
	if err != nil {
		return nil, utils.WrapIfNotNil(err, cfg.Generation.Provider)
	}
	return generator, nil
}

func audioOptions(cfg config.Config) model.AudioOptions {
	return model.AudioOptions{
		Model:    cfg.Transcription.Model,
		Prompt:   cfg.Transcription.Prompt,
		Keywords: model.NormalizeKeywords(cfg.Transcription.Keywords),
	}
}

func generatorOptions(cfg config.Config) []model.GeneratorOption {
	opts := []model.GeneratorOption{
		model.WithMaxTokens(cfg.Generation.MaxTokens),
	}
	if cfg.Generation.Model != "" {
		opts = append(opts, model.WithModel(cfg.Generation.Model))
	}
	if cfg.Generation.Temperature != nil {
		opts = append(opts, model.WithTemperature(*cfg.Generation.Temperature))
	}
	return opts
}
