package gemini

import (
	"context"
	"errors"
	"time"

	"github.com/Nephrolytics-ai/study-notes/pkg/logging"
	"github.com/Nephrolytics-ai/study-notes/pkg/model"
	"github.com/Nephrolytics-ai/study-notes/pkg/utils"
	"google.golang.org/genai"
)

type textGenerator struct {
	client    *genai.Client
	modelName string
	cfg       model.GeneratorConfig
}

// NewTextGenerator returns a generator backed by the Gemini API.
func NewTextGenerator(ctx context.Context, opts ...model.GeneratorOption) (model.TextGenerator, error) {
	cfg := model.ResolveGeneratorOpts(opts...)
	client, err := newAPIClient(ctx, cfg)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}

	return &textGenerator{
		client:    client,
		modelName: resolveGenerationModelName(cfg),
		cfg:       cfg,
	}, nil
}

func (g *textGenerator) GenerateText(ctx context.Context, prompt string) (string, model.GenerationMetadata, error) {
	start := time.Now()
	meta := initMetadata(g.modelName)
	defer setLatencyMetadata(meta, start)

	log := logging.NewLogger(ctx)
	log.Infof(
		"prompt_len=%d model=%q max_tokens=%d temperature=%v",
		len(prompt),
		g.modelName,
		g.cfg.ResolveMaxTokens(),
		g.cfg.Temperature,
	)

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	response, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, buildGenerateContentConfig(g.cfg))
	if err != nil {
		log.Errorf("error: %v", err)
		return "", meta, utils.WrapIfNotNil(err)
	}
	applyResponseMetadata(meta, response)

	text := response.Text()
	if text == "" {
		err = errors.New("response has no text content")
		log.Errorf("error: %v", err)
		return "", meta, utils.WrapIfNotNil(err)
	}
	return text, meta, nil
}

func buildGenerateContentConfig(cfg model.GeneratorConfig) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(cfg.ResolveMaxTokens()),
	}
	if cfg.Temperature != nil {
		temp := float32(*cfg.Temperature)
		config.Temperature = &temp
	}
	return config
}
