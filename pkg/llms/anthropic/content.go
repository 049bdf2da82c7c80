package anthropic

import (
	"context"
	"errors"
	"time"

	"github.com/Nephrolytics-ai/study-notes/pkg/logging"
	"github.com/Nephrolytics-ai/study-notes/pkg/model"
	"github.com/Nephrolytics-ai/study-notes/pkg/utils"
)

type textGenerator struct {
	client    *apiClient
	modelName string
	cfg       model.GeneratorConfig
}

func NewTextGenerator(opts ...model.GeneratorOption) (model.TextGenerator, error) {
	cfg := model.ResolveGeneratorOpts(opts...)
	client, err := newAPIClient(cfg)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}

	return &textGenerator{
		client:    client,
		modelName: resolveModelName(cfg),
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

	response, err := g.client.createMessage(ctx, buildMessageRequest(g.modelName, prompt, g.cfg))
	if err != nil {
		log.Errorf("error: %v", err)
		return "", meta, utils.WrapIfNotNil(err)
	}
	applyAnthropicMetadata(meta, response)

	text, err := firstTextBlock(response)
	if err != nil {
		log.Errorf("error: %v", err)
		return "", meta, utils.WrapIfNotNil(err)
	}
	return text, meta, nil
}

func buildMessageRequest(modelName string, prompt string, cfg model.GeneratorConfig) anthropicMessageRequest {
	return anthropicMessageRequest{
		Model:       modelName,
		MaxTokens:   cfg.ResolveMaxTokens(),
		Temperature: cfg.Temperature,
		Messages: []anthropicMessage{
			{
				Role: "user",
				Content: []anthropicContentBlock{
					{Type: "text", Text: prompt},
				},
			},
		},
	}
}

func firstTextBlock(response *anthropicMessageResponse) (string, error) {
	if response == nil {
		return "", errors.New("response is nil")
	}
	for _, block := range response.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", errors.New("response has no text content block")
}
