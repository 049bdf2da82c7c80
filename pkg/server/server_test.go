package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Nephrolytics-ai/study-notes/pkg/pipeline"
	"github.com/Nephrolytics-ai/study-notes/pkg/study"
	"github.com/stretchr/testify/suite"
)

type fakeProcessor struct {
	result   *pipeline.Result
	err      error
	filename string
}

func (f *fakeProcessor) Process(_ context.Context, filename string, media io.Reader) (*pipeline.Result, error) {
	f.filename = filename
	_, _ = io.Copy(io.Discard, media)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type ServerSuite struct {
	suite.Suite
	processor *fakeProcessor
	router    http.Handler
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

func (s *ServerSuite) SetupTest() {
	s.processor = &fakeProcessor{result: &pipeline.Result{
		Filename:   "lecture.mp4",
		Transcript: "hello",
		Notes:      `"# Notes\n"`,
		Quiz: study.Quiz{
			Summary: "s",
			Questions: []study.Question{
				{Question: "q", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: 3},
			},
		},
	}}
	s.router = NewRouter(s.processor, Options{MaxUploadBytes: 1 << 10})
}

func (s *ServerSuite) uploadRequest(field string, content []byte) *http.Request {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(field, "lecture.mp4")
	s.Require().NoError(err)
	_, err = part.Write(content)
	s.Require().NoError(err)
	s.Require().NoError(writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload/", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func (s *ServerSuite) serve(req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var body map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func (s *ServerSuite) TestUploadSuccess() {
	rec, body := s.serve(s.uploadRequest("file", []byte("media")))

	s.Equal(http.StatusOK, rec.Code)
	s.Equal("application/json", rec.Header().Get("Content-Type"))
	s.Equal("lecture.mp4", s.processor.filename)
	s.Equal("lecture.mp4", body["filename"])
	s.Equal("hello", body["transcript"])
	s.Equal(`"# Notes\n"`, body["notes"])
	s.NotContains(body, "error")

	sqa, ok := body["sqa"].(string)
	s.Require().True(ok)
	quiz, err := study.ParseQuiz(sqa)
	s.Require().NoError(err)
	s.Equal(s.processor.result.Quiz, quiz)
}

func (s *ServerSuite) TestFailureReturnsOnlyError() {
	cases := map[string]struct {
		err    error
		status int
	}{
		"notes generation": {
			err:    &pipeline.GenerationServiceError{Stage: pipeline.StageNotes, Err: errors.New("throttled")},
			status: http.StatusBadGateway,
		},
		"transcription": {
			err:    &pipeline.TranscriptionError{Err: errors.New("bad audio")},
			status: http.StatusBadGateway,
		},
		"malformed quiz": {
			err:    &pipeline.ParseError{Err: &study.MalformedQuizError{Question: 0, Reason: "expected 4 options, got 3"}},
			status: http.StatusUnprocessableEntity,
		},
		"storage": {
			err:    &pipeline.StorageError{Err: errors.New("disk full")},
			status: http.StatusInternalServerError,
		},
	}

	for name, tc := range cases {
		s.Run(name, func() {
			s.processor.err = tc.err
			rec, body := s.serve(s.uploadRequest("file", []byte("media")))

			s.Equal(tc.status, rec.Code)
			s.Len(body, 1)
			s.Equal(pipeline.Message(tc.err), body["error"])
		})
	}
}

func (s *ServerSuite) TestMissingFileField() {
	rec, body := s.serve(s.uploadRequest("video", []byte("media")))

	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(body["error"], "file")
	s.Empty(s.processor.filename)
}

func (s *ServerSuite) TestUploadTooLarge() {
	rec, body := s.serve(s.uploadRequest("file", bytes.Repeat([]byte("x"), 4<<10)))

	s.Equal(http.StatusRequestEntityTooLarge, rec.Code)
	s.Contains(body, "error")
}

func (s *ServerSuite) TestHealthz() {
	rec, body := s.serve(httptest.NewRequest(http.MethodGet, "/healthz", nil))

	s.Equal(http.StatusOK, rec.Code)
	s.Equal("ok", body["status"])
}
