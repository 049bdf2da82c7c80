package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Nephrolytics-ai/study-notes/pkg/logging"
	"github.com/Nephrolytics-ai/study-notes/pkg/model"
	"github.com/Nephrolytics-ai/study-notes/pkg/utils"
	"google.golang.org/genai"
)

const transcriptionInstruction = "Transcribe the speech in this recording accurately. Return only the transcript text. " +
	"If nothing is spoken, return an empty response."

type transcriber struct {
	client    *genai.Client
	modelName string
	opts      model.AudioOptions
}

// NewTranscriber returns a speech-to-text adapter that sends the uploaded
// media inline to a multimodal Gemini model.
func NewTranscriber(ctx context.Context, opts model.AudioOptions) (model.Transcriber, error) {
	client, err := newAPIClient(ctx, audioGeneratorConfigFromOptions(opts))
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}

	opts.Keywords = model.NormalizeKeywords(opts.Keywords)
	return &transcriber{
		client:    client,
		modelName: resolveAudioTranscriptionModelName(opts),
		opts:      opts,
	}, nil
}

func (t *transcriber) Transcribe(ctx context.Context, filePath string) (string, model.GenerationMetadata, error) {
	start := time.Now()
	meta := initMetadata(t.modelName)
	defer setLatencyMetadata(meta, start)

	log := logging.NewLogger(ctx)
	mimeType, err := resolveMediaMIMEType(filePath)
	if err != nil {
		log.Errorf("error: %v", err)
		return "", meta, utils.WrapIfNotNil(err)
	}

	mediaBytes, err := os.ReadFile(filePath)
	if err != nil {
		log.Errorf("error: %v", err)
		return "", meta, utils.WrapIfNotNil(err)
	}

	prompt, err := buildAudioTranscriptionPrompt(t.opts)
	if err != nil {
		log.Errorf("error: %v", err)
		return "", meta, utils.WrapIfNotNil(err)
	}

	log.Infof("audio_transcription_request model=%q mime_type=%q bytes=%d", t.modelName, mimeType, len(mediaBytes))
	contents := []*genai.Content{
		genai.NewContentFromParts(
			[]*genai.Part{
				genai.NewPartFromText(prompt),
				genai.NewPartFromBytes(mediaBytes, mimeType),
			},
			genai.RoleUser,
		),
	}

	response, err := t.client.Models.GenerateContent(ctx, t.modelName, contents, &genai.GenerateContentConfig{})
	if err != nil {
		log.Errorf("error: %v", err)
		return "", meta, utils.WrapIfNotNil(err)
	}

	applyResponseMetadata(meta, response)
	return strings.TrimSpace(response.Text()), meta, nil
}

func resolveAudioTranscriptionModelName(opts model.AudioOptions) string {
	if modelName := strings.TrimSpace(opts.Model); modelName != "" {
		return modelName
	}
	return defaultGenerationModelName
}

func audioGeneratorConfigFromOptions(opts model.AudioOptions) model.GeneratorConfig {
	cfg := model.GeneratorConfig{
		URL:       opts.URL,
		AuthToken: opts.AuthToken,
	}
	if modelName := strings.TrimSpace(opts.Model); modelName != "" {
		cfg.Model = &modelName
	}
	return cfg
}

func buildAudioTranscriptionPrompt(opts model.AudioOptions) (string, error) {
	if custom := strings.TrimSpace(opts.Prompt); custom != "" {
		return custom, nil
	}

	words, err := buildCommonMissedWordsPrompt(opts.Keywords)
	if err != nil {
		return "", err
	}
	if words == "" {
		return transcriptionInstruction, nil
	}
	return transcriptionInstruction + " " + words, nil
}

func buildCommonMissedWordsPrompt(keywords []model.AudioKeyword) (string, error) {
	cleaned := model.NormalizeKeywords(keywords)
	if len(cleaned) == 0 {
		return "", nil
	}

	payload, err := json.Marshal(cleaned)
	if err != nil {
		return "", err
	}
	return "Common missed words: " + string(payload), nil
}

func resolveMediaMIMEType(filePath string) (string, error) {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filePath)))
	if ext == "" {
		return "", utils.WrapIfNotNil(errors.New("file extension is required to determine mime type"))
	}

	switch ext {
	case ".wav":
		return "audio/wav", nil
	case ".mp3":
		return "audio/mpeg", nil
	case ".m4a":
		return "audio/mp4", nil
	case ".ogg":
		return "audio/ogg", nil
	case ".flac":
		return "audio/flac", nil
	case ".aac":
		return "audio/aac", nil
	case ".mp4":
		return "video/mp4", nil
	case ".mov":
		return "video/quicktime", nil
	case ".mkv":
		return "video/x-matroska", nil
	case ".avi":
		return "video/x-msvideo", nil
	case ".webm":
		return "video/webm", nil
	}

	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		return "", utils.WrapIfNotNil(errors.New("unsupported media file extension: " + ext))
	}

	// Strip parameters such as "; charset=utf-8".
	mimeType = strings.TrimSpace(strings.Split(mimeType, ";")[0])
	if !strings.HasPrefix(mimeType, "audio/") && !strings.HasPrefix(mimeType, "video/") {
		return "", utils.WrapIfNotNil(errors.New("unsupported media mime type: " + mimeType))
	}
	return mimeType, nil
}
