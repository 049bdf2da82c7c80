package openai

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/Nephrolytics-ai/study-notes/pkg/logging"
	"github.com/Nephrolytics-ai/study-notes/pkg/model"
	"github.com/Nephrolytics-ai/study-notes/pkg/utils"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
)

const defaultModelName = "gpt-4.1-mini"

type textGenerator struct {
	client    *client
	modelName string
	cfg       model.GeneratorConfig
}

// NewTextGenerator returns a generator backed by the OpenAI Responses API.
func NewTextGenerator(opts ...model.GeneratorOption) (model.TextGenerator, error) {
	cfg := model.ResolveGeneratorOpts(opts...)
	if strings.TrimSpace(cfg.AuthToken) == "" && strings.TrimSpace(cfg.URL) == "" {
		return nil, utils.WrapIfNotNil(errors.New("auth token or base URL is required"))
	}

	return &textGenerator{
		client:    newClient(cfg),
		modelName: resolveModelName(cfg),
		cfg:       cfg,
	}, nil
}

func (g *textGenerator) GenerateText(ctx context.Context, prompt string) (string, model.GenerationMetadata, error) {
	start := time.Now()
	meta := initMetadata(providerName, g.modelName)
	defer setLatencyMetadata(meta, start)

	log := logging.NewLogger(ctx)
	log.Infof(
		"prompt_len=%d model=%q max_tokens=%d temperature=%v",
		len(prompt),
		g.modelName,
		g.cfg.ResolveMaxTokens(),
		g.cfg.Temperature,
	)

	response, err := g.client.apiClient.Responses.New(ctx, buildResponseParams(g.modelName, prompt, g.cfg, log))
	if err != nil {
		log.Errorf("error: %v", err)
		return "", meta, utils.WrapIfNotNil(err)
	}
	if response == nil {
		err = errors.New("responses API returned nil response")
		log.Errorf("error: %v", err)
		return "", meta, utils.WrapIfNotNil(err)
	}
	applyOpenAIResponseMetadata(meta, response)

	text := response.OutputText()
	if text == "" {
		err = errors.New("response has no text output")
		log.Errorf("error: %v", err)
		return "", meta, utils.WrapIfNotNil(err)
	}
	return text, meta, nil
}

func buildResponseParams(modelName string, prompt string, cfg model.GeneratorConfig, log logging.Logger) responses.ResponseNewParams {
	params := responses.ResponseNewParams{
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(prompt),
		},
		Model:           shared.ResponsesModel(modelName),
		MaxOutputTokens: openai.Int(int64(cfg.ResolveMaxTokens())),
	}

	if cfg.Temperature != nil {
		if isReasoningModel(modelName) {
			if log != nil {
				log.Warnf("ignoring temperature for reasoning model %q", modelName)
			}
		} else {
			params.Temperature = openai.Float(*cfg.Temperature)
		}
	}
	return params
}

func resolveModelName(cfg model.GeneratorConfig) string {
	if cfg.Model != nil {
		name := strings.TrimSpace(*cfg.Model)
		if name != "" {
			return name
		}
	}
	return defaultModelName
}

func isReasoningModel(modelName string) bool {
	name := strings.ToLower(strings.TrimSpace(modelName))
	if name == "" {
		return false
	}

	return strings.HasPrefix(name, "o1") ||
		strings.HasPrefix(name, "o3") ||
		strings.HasPrefix(name, "o4") ||
		strings.HasPrefix(name, "gpt-5")
}

func applyOpenAIResponseMetadata(meta model.GenerationMetadata, response *responses.Response) {
	if meta == nil || response == nil {
		return
	}

	meta[model.MetadataKeyInputTokens] = strconv.FormatInt(response.Usage.InputTokens, 10)
	meta[model.MetadataKeyOutputTokens] = strconv.FormatInt(response.Usage.OutputTokens, 10)
	meta[model.MetadataKeyTotalTokens] = strconv.FormatInt(response.Usage.TotalTokens, 10)
	meta[model.MetadataKeyCachedInputTokens] = strconv.FormatInt(response.Usage.InputTokensDetails.CachedTokens, 10)
	if response.ID != "" {
		meta[model.MetadataKeyResponseID] = response.ID
	}
	if response.Status != "" {
		meta[model.MetadataKeyResponseStatus] = string(response.Status)
	}
}
