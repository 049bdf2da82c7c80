package ollama

import (
	"context"
	"encoding/json"
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

func (s *ContentSuite) TestGenerateTextPostsSingleUserMessage() {
	var received chatRequest
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		s.NoError(json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"llama3.1","message":{"role":"assistant","content":" notes "},"done_reason":"stop","prompt_eval_count":10,"eval_count":5}`))
	}))
	defer server.Close()

	generator, err := NewTextGenerator(model.WithURL(server.URL+"/"), model.WithTemperature(0.3))
	s.Require().NoError(err)

	text, meta, err := generator.GenerateText(context.Background(), "write notes")
	s.Require().NoError(err)
	s.Equal("notes", text)
	s.Equal("/api/chat", path)
	s.Equal(defaultGenerationModelName, received.Model)
	s.False(received.Stream)
	s.Require().Len(received.Messages, 1)
	s.Equal("user", received.Messages[0].Role)
	s.Equal("write notes", received.Messages[0].Content)
	s.Require().NotNil(received.Options)
	s.Equal(model.DefaultMaxTokens, *received.Options.NumPredict)
	s.InDelta(0.3, *received.Options.Temperature, 1e-9)
	s.Equal("15", meta[model.MetadataKeyTotalTokens])
	s.Equal("stop", meta[model.MetadataKeyResponseStatus])
}

func (s *ContentSuite) TestServerErrorIsSurfaced() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model \"nope\" not found"}`))
	}))
	defer server.Close()

	generator, err := NewTextGenerator(model.WithURL(server.URL), model.WithModel("nope"))
	s.Require().NoError(err)

	_, _, err = generator.GenerateText(context.Background(), "p")
	s.Require().Error(err)
	s.Contains(err.Error(), "status 404")
	s.Contains(err.Error(), "not found")
}

func (s *ContentSuite) TestEmptyContentIsAnError() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":""}}`))
	}))
	defer server.Close()

	generator, err := NewTextGenerator(model.WithURL(server.URL))
	s.Require().NoError(err)

	_, _, err = generator.GenerateText(context.Background(), "p")
	s.Require().Error(err)
}
