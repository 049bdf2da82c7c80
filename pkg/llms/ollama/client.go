package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Nephrolytics-ai/study-notes/pkg/model"
	"github.com/Nephrolytics-ai/study-notes/pkg/utils"
	ollamasdk "github.com/rozoomcool/go-ollama-sdk"
)

const (
	providerName               = "ollama"
	defaultGenerationModelName = "llama3.1"
	defaultBaseURL             = "http://localhost:11434"
	defaultHTTPTimeout         = 5 * time.Minute
)

type client struct {
	baseURL    string
	httpClient *http.Client
}

type chatRequest struct {
	Model    string                  `json:"model"`
	Messages []ollamasdk.ChatMessage `json:"messages"`
	Stream   bool                    `json:"stream"`
	Options  *chatOptions            `json:"options,omitempty"`
}

type chatOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	NumPredict  *int     `json:"num_predict,omitempty"`
}

type chatResponse struct {
	Model           string                `json:"model"`
	Message         ollamasdk.ChatMessage `json:"message"`
	DoneReason      string                `json:"done_reason"`
	PromptEvalCount int64                 `json:"prompt_eval_count"`
	EvalCount       int64                 `json:"eval_count"`
	Error           string                `json:"error"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func newClient(cfg model.GeneratorConfig) *client {
	baseURL := strings.TrimSpace(cfg.URL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
}

func (c *client) chat(ctx context.Context, request chatRequest) (*chatResponse, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("Accept", "application/json")

	httpResponse, err := c.httpClient.Do(httpRequest)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}
	defer httpResponse.Body.Close()

	rawBody, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}

	if httpResponse.StatusCode < http.StatusOK || httpResponse.StatusCode >= http.StatusMultipleChoices {
		var apiError errorResponse
		if unmarshalErr := json.Unmarshal(rawBody, &apiError); unmarshalErr == nil && strings.TrimSpace(apiError.Error) != "" {
			return nil, utils.WrapIfNotNil(
				fmt.Errorf("ollama chat request failed with status %d: %s", httpResponse.StatusCode, apiError.Error),
			)
		}
		return nil, utils.WrapIfNotNil(
			fmt.Errorf("ollama chat request failed with status %d: %s", httpResponse.StatusCode, strings.TrimSpace(string(rawBody))),
		)
	}

	var response chatResponse
	if err := json.Unmarshal(rawBody, &response); err != nil {
		return nil, utils.WrapIfNotNil(err)
	}
	if strings.TrimSpace(response.Error) != "" {
		return nil, utils.WrapIfNotNil(errors.New(strings.TrimSpace(response.Error)))
	}

	return &response, nil
}

func resolveGenerationModelName(cfg model.GeneratorConfig) string {
	if cfg.Model != nil {
		modelName := strings.TrimSpace(*cfg.Model)
		if modelName != "" {
			return modelName
		}
	}
	return defaultGenerationModelName
}

func initMetadata(modelName string) model.GenerationMetadata {
	if strings.TrimSpace(modelName) == "" {
		modelName = "unknown"
	}

	return model.GenerationMetadata{
		model.MetadataKeyProvider: providerName,
		model.MetadataKeyModel:    modelName,
	}
}

func setLatencyMetadata(meta model.GenerationMetadata, start time.Time) {
	if meta == nil {
		return
	}
	meta[model.MetadataKeyLatencyMs] = strconv.FormatInt(time.Since(start).Milliseconds(), 10)
}

func applyChatMetadata(meta model.GenerationMetadata, response *chatResponse) {
	if meta == nil || response == nil {
		return
	}

	meta[model.MetadataKeyInputTokens] = strconv.FormatInt(response.PromptEvalCount, 10)
	meta[model.MetadataKeyOutputTokens] = strconv.FormatInt(response.EvalCount, 10)
	meta[model.MetadataKeyTotalTokens] = strconv.FormatInt(response.PromptEvalCount+response.EvalCount, 10)
	if response.DoneReason != "" {
		meta[model.MetadataKeyResponseStatus] = response.DoneReason
	}
}
