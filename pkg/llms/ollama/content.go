package ollama

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Nephrolytics-ai/study-notes/pkg/logging"
	"github.com/Nephrolytics-ai/study-notes/pkg/model"
	"github.com/Nephrolytics-ai/study-notes/pkg/utils"
	ollamasdk "github.com/rozoomcool/go-ollama-sdk"
)

type textGenerator struct {
	client    *client
	modelName string
	cfg       model.GeneratorConfig
}

// NewTextGenerator returns a generator backed by a local Ollama server.
func NewTextGenerator(opts ...model.GeneratorOption) (model.TextGenerator, error) {
	cfg := model.ResolveGeneratorOpts(opts...)
	return &textGenerator{
		client:    newClient(cfg),
		modelName: resolveGenerationModelName(cfg),
		cfg:       cfg,
	}, nil
}

func (g *textGenerator) GenerateText(ctx context.Context, prompt string) (string, model.GenerationMetadata, error) {
	start := time.Now()
	meta := initMetadata(g.modelName)
	defer setLatencyMetadata(meta, start)

	log := logging.NewLogger(ctx)
	log.Infof("prompt_len=%d model=%q base_url=%q", len(prompt), g.modelName, g.client.baseURL)

	response, err := g.client.chat(ctx, chatRequest{
		Model: g.modelName,
		Messages: []ollamasdk.ChatMessage{
			{Role: "user", Content: prompt},
		},
		Stream:  false,
		Options: buildChatOptions(g.cfg),
	})
	if err != nil {
		log.Errorf("error: %v", err)
		return "", meta, utils.WrapIfNotNil(err)
	}
	applyChatMetadata(meta, response)

	text := strings.TrimSpace(response.Message.Content)
	if text == "" {
		err = errors.New("chat response has no content")
		log.Errorf("error: %v", err)
		return "", meta, utils.WrapIfNotNil(err)
	}
	return text, meta, nil
}

func buildChatOptions(cfg model.GeneratorConfig) *chatOptions {
	numPredict := cfg.ResolveMaxTokens()
	options := &chatOptions{NumPredict: &numPredict}
	if cfg.Temperature != nil {
		temperature := *cfg.Temperature
		options.Temperature = &temperature
	}
	return options
}
