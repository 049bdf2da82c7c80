package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/Nephrolytics-ai/study-notes/pkg/logging"
	"github.com/Nephrolytics-ai/study-notes/pkg/model"
	"github.com/Nephrolytics-ai/study-notes/pkg/utils"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type invokeRequest struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	Temperature      *float64  `json:"temperature,omitempty"`
	Messages         []message `json:"messages"`
}

type invokeUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

type invokeResponse struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      *invokeUsage   `json:"usage"`
}

type textGenerator struct {
	client    modelInvoker
	modelName string
	cfg       model.GeneratorConfig
}

// NewTextGenerator builds a Bedrock client once and returns a generator that
// invokes an Anthropic model with a single user message per call.
func NewTextGenerator(ctx context.Context, opts ...model.GeneratorOption) (model.TextGenerator, error) {
	cfg := model.ResolveGeneratorOpts(opts...)
	client, err := newClient(ctx, cfg)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}
	return newTextGenerator(client, cfg), nil
}

func newTextGenerator(client modelInvoker, cfg model.GeneratorConfig) *textGenerator {
	return &textGenerator{
		client:    client,
		modelName: resolveModelName(cfg),
		cfg:       cfg,
	}
}

func (g *textGenerator) GenerateText(ctx context.Context, prompt string) (string, model.GenerationMetadata, error) {
	start := time.Now()
	meta := initMetadata(g.modelName)
	defer setLatencyMetadata(meta, start)

	log := logging.NewLogger(ctx)
	body, err := buildInvokeBody(prompt, g.cfg)
	if err != nil {
		log.Errorf("error: %v", err)
		return "", meta, utils.WrapIfNotNil(err)
	}

	log.Infof(
		"prompt_len=%d model=%q max_tokens=%d temperature=%v",
		len(prompt),
		g.modelName,
		g.cfg.ResolveMaxTokens(),
		g.cfg.Temperature,
	)

	output, err := g.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(g.modelName),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		log.Errorf("error: %v", err)
		return "", meta, utils.WrapIfNotNil(err)
	}
	if output == nil {
		err = errors.New("invoke model returned nil output")
		log.Errorf("error: %v", err)
		return "", meta, utils.WrapIfNotNil(err)
	}

	response, text, err := decodeInvokeResponse(output.Body)
	if err != nil {
		log.Errorf("error: %v", err)
		return "", meta, utils.WrapIfNotNil(err)
	}
	applyUsageMetadata(meta, response)

	log.Debugf("reply_len=%d stop_reason=%q", len(text), response.StopReason)
	return text, meta, nil
}

func buildInvokeBody(prompt string, cfg model.GeneratorConfig) ([]byte, error) {
	request := invokeRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        cfg.ResolveMaxTokens(),
		Temperature:      cfg.Temperature,
		Messages: []message{
			{
				Role: "user",
				Content: []contentBlock{
					{Type: "text", Text: prompt},
				},
			},
		},
	}

	bits, err := json.Marshal(request)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}
	return bits, nil
}

// decodeInvokeResponse returns the first text content block of the reply.
func decodeInvokeResponse(body []byte) (*invokeResponse, string, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, "", utils.WrapIfNotNil(errors.New("response body is empty"))
	}

	response := &invokeResponse{}
	err := json.Unmarshal(body, response)
	if err != nil {
		return nil, "", utils.WrapIfNotNil(err)
	}

	for _, block := range response.Content {
		if block.Type == "text" {
			return response, block.Text, nil
		}
	}
	return response, "", utils.WrapIfNotNil(errors.New("response has no text content block"))
}
