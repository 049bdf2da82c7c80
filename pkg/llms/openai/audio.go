package openai

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Nephrolytics-ai/study-notes/pkg/logging"
	"github.com/Nephrolytics-ai/study-notes/pkg/model"
	"github.com/Nephrolytics-ai/study-notes/pkg/utils"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/packages/param"
)

const defaultAudioTranscriptionModelName = "whisper-1"

type transcriber struct {
	client *client
	opts   model.AudioOptions
}

// NewTranscriber returns a speech-to-text adapter backed by the OpenAI audio
// transcriptions endpoint. The language is auto-detected.
func NewTranscriber(opts model.AudioOptions) (model.Transcriber, error) {
	if strings.TrimSpace(opts.AuthToken) == "" && strings.TrimSpace(opts.URL) == "" {
		return nil, utils.WrapIfNotNil(errors.New("auth token or base URL is required"))
	}

	opts.Keywords = model.NormalizeKeywords(opts.Keywords)
	return &transcriber{
		client: newClient(audioGeneratorConfigFromOptions(opts)),
		opts:   opts,
	}, nil
}

func (t *transcriber) Transcribe(ctx context.Context, filePath string) (string, model.GenerationMetadata, error) {
	start := time.Now()
	meta := initMetadata(providerName, resolveAudioTranscriptionModelName(t.opts))
	defer setLatencyMetadata(meta, start)

	log := logging.NewLogger(ctx)
	log.Infof(
		"audio_transcription_request model=%q",
		resolveAudioTranscriptionModelName(t.opts),
	)

	transcript, response, err := t.client.runAudioTranscription(ctx, filePath, t.opts)
	if err != nil {
		log.Errorf("error: %v", err)
		return "", meta, utils.WrapIfNotNil(err)
	}

	applyOpenAIAudioTranscriptionMetadata(meta, response)
	return transcript, meta, nil
}

func (c *client) runAudioTranscription(
	ctx context.Context,
	filePath string,
	opts model.AudioOptions,
) (string, *openai.AudioTranscriptionNewResponseUnion, error) {
	if strings.TrimSpace(filePath) == "" {
		return "", nil, utils.WrapIfNotNil(errors.New("file path is required"))
	}

	file, err := os.Open(filePath)
	if err != nil {
		return "", nil, utils.WrapIfNotNil(err)
	}
	defer func() {
		_ = file.Close()
	}()

	params := openai.AudioTranscriptionNewParams{
		File:           file,
		Model:          openai.AudioModel(resolveAudioTranscriptionModelName(opts)),
		ResponseFormat: openai.AudioResponseFormatJSON,
	}
	prompt, err := buildAudioTranscriptionPrompt(opts)
	if err != nil {
		return "", nil, utils.WrapIfNotNil(err)
	}
	if prompt != "" {
		params.Prompt = param.NewOpt(prompt)
	}

	response, err := c.apiClient.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", nil, utils.WrapIfNotNil(err)
	}
	if response == nil {
		return "", nil, utils.WrapIfNotNil(errors.New("audio transcriptions API returned nil response"))
	}

	// Silent media legitimately produces an empty transcript.
	return strings.TrimSpace(response.Text), response, nil
}

func buildAudioTranscriptionPrompt(opts model.AudioOptions) (string, error) {
	customPrompt := strings.TrimSpace(opts.Prompt)
	if customPrompt != "" {
		return customPrompt, nil
	}

	return buildCommonMissedWordsPrompt(opts.Keywords)
}

func buildCommonMissedWordsPrompt(keywords []model.AudioKeyword) (string, error) {
	keywords = model.NormalizeKeywords(keywords)
	if len(keywords) == 0 {
		return "", nil
	}

	keywordsJSON, err := json.Marshal(keywords)
	if err != nil {
		return "", err
	}

	return "Common missed words: " + string(keywordsJSON), nil
}

func resolveAudioTranscriptionModelName(opts model.AudioOptions) string {
	modelName := strings.TrimSpace(opts.Model)
	if modelName != "" {
		return modelName
	}

	return defaultAudioTranscriptionModelName
}

func audioGeneratorConfigFromOptions(opts model.AudioOptions) model.GeneratorConfig {
	cfg := model.GeneratorConfig{
		URL:       opts.URL,
		AuthToken: opts.AuthToken,
	}

	modelName := strings.TrimSpace(opts.Model)
	if modelName != "" {
		cfg.Model = &modelName
	}

	return cfg
}

func applyOpenAIAudioTranscriptionMetadata(
	meta model.GenerationMetadata,
	response *openai.AudioTranscriptionNewResponseUnion,
) {
	if meta == nil || response == nil {
		return
	}

	meta[model.MetadataKeyInputTokens] = strconv.FormatInt(response.Usage.InputTokens, 10)
	meta[model.MetadataKeyOutputTokens] = strconv.FormatInt(response.Usage.OutputTokens, 10)
	meta[model.MetadataKeyTotalTokens] = strconv.FormatInt(response.Usage.TotalTokens, 10)
}
