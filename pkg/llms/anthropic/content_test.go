package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Nephrolytics-ai/study-notes/pkg/model"
	"github.com/stretchr/testify/suite"
)

type ContentSuite struct {
	suite.Suite
}

func TestContentSuite(t *testing.T) {
	suite.Run(t, new(ContentSuite))
}

func (s *ContentSuite) TestNewTextGeneratorRequiresToken() {
	generator, err := NewTextGenerator()
	s.Require().Error(err)
	s.Nil(generator)
	s.Contains(err.Error(), "auth token is required")
}

func (s *ContentSuite) TestGenerateTextAgainstServer() {
	var received anthropicMessageRequest
	var headers http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		s.Equal("/v1/messages", r.URL.Path)
		bits, _ := io.ReadAll(r.Body)
		s.NoError(json.Unmarshal(bits, &received))

		w.Header().Set("content-type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","model":"claude-test","content":[{"type":"text","text":"{\"Summary\":\"s\",\"Questions\":[]}"}],"stop_reason":"end_turn","usage":{"input_tokens":4,"output_tokens":6}}`))
	}))
	defer server.Close()

	generator, err := NewTextGenerator(model.WithAuthToken("key"), model.WithURL(server.URL+"/"))
	s.Require().NoError(err)

	text, meta, err := generator.GenerateText(context.Background(), "quiz me")
	s.Require().NoError(err)
	s.Equal(`{"Summary":"s","Questions":[]}`, text)

	s.Equal("key", headers.Get("x-api-key"))
	s.Equal(anthropicVersion, headers.Get("anthropic-version"))
	s.Equal(defaultModelName, received.Model)
	s.Equal(model.DefaultMaxTokens, received.MaxTokens)
	s.Require().Len(received.Messages, 1)
	s.Equal("user", received.Messages[0].Role)
	s.Equal("quiz me", received.Messages[0].Content[0].Text)

	s.Equal("claude-test", meta[model.MetadataKeyModel])
	s.Equal("10", meta[model.MetadataKeyTotalTokens])
}

func (s *ContentSuite) TestAPIErrorMessageIsSurfaced() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"quota exceeded"}}`))
	}))
	defer server.Close()

	generator, err := NewTextGenerator(model.WithAuthToken("key"), model.WithURL(server.URL))
	s.Require().NoError(err)

	_, _, err = generator.GenerateText(context.Background(), "p")
	s.Require().Error(err)
	s.Contains(err.Error(), "anthropic API error (429): quota exceeded")
}

func (s *ContentSuite) TestMissingTextBlockIsAnError() {
	_, err := firstTextBlock(&anthropicMessageResponse{Content: []anthropicContentBlock{{Type: "tool_use"}}})
	s.Error(err)

	_, err = firstTextBlock(&anthropicMessageResponse{})
	s.Error(err)
}
