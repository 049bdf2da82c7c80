package openai

import (
	"strconv"
	"strings"
	"time"

	"github.com/Nephrolytics-ai/study-notes/pkg/model"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const providerName = "openai"

type client struct {
	apiClient openai.Client
}

func newClient(cfg model.GeneratorConfig) *client {
	requestOpts := []option.RequestOption{
		option.WithMaxRetries(0),
	}
	if strings.TrimSpace(cfg.URL) != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(strings.TrimSpace(cfg.URL)))
	}
	if strings.TrimSpace(cfg.AuthToken) != "" {
		requestOpts = append(requestOpts, option.WithAPIKey(strings.TrimSpace(cfg.AuthToken)))
	}

	return &client{apiClient: openai.NewClient(requestOpts...)}
}

func initMetadata(provider string, modelName string) model.GenerationMetadata {
	if strings.TrimSpace(modelName) == "" {
		modelName = "unknown"
	}

	return model.GenerationMetadata{
		model.MetadataKeyProvider: provider,
		model.MetadataKeyModel:    modelName,
	}
}

func setLatencyMetadata(meta model.GenerationMetadata, start time.Time) {
	if meta == nil {
		return
	}
	meta[model.MetadataKeyLatencyMs] = strconv.FormatInt(time.Since(start).Milliseconds(), 10)
}
