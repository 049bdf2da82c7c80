package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Nephrolytics-ai/study-notes/pkg/model"
	"github.com/Nephrolytics-ai/study-notes/pkg/study"
	"github.com/stretchr/testify/suite"
)

const validQuiz = `{
  "Summary": "Eigenvalues describe how a linear map stretches space.",
  "Questions": [
    {"Question": "What is an eigenvector?", "Options": ["A scaled vector", "A zero vector", "A matrix", "A scalar"], "CorrectAnswer": 1},
    {"Question": "Which equation defines eigenvalues?", "Options": ["Ax = b", "Av = λv", "A = LU", "det(A) = 0"], "CorrectAnswer": 2}
  ]
}`

type fakeTranscriber struct {
	transcript string
	err        error
	seenPath   string
	existed    bool
}

func (f *fakeTranscriber) Transcribe(_ context.Context, filePath string) (string, model.GenerationMetadata, error) {
	f.seenPath = filePath
	_, statErr := os.Stat(filePath)
	f.existed = statErr == nil
	return f.transcript, model.GenerationMetadata{model.MetadataKeyProvider: "fake"}, f.err
}

type fakeGenerator struct {
	mu       sync.Mutex
	notes    string
	quiz     string
	notesErr error
	quizErr  error
	block    bool
	prompts  []string
}

func (f *fakeGenerator) GenerateText(ctx context.Context, prompt string) (string, model.GenerationMetadata, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return "", nil, ctx.Err()
	}
	meta := model.GenerationMetadata{model.MetadataKeyProvider: "fake"}
	if strings.HasPrefix(prompt, study.NotesPromptPreamble) {
		return f.notes, meta, f.notesErr
	}
	return f.quiz, meta, f.quizErr
}

type PipelineSuite struct {
	suite.Suite
	dir         string
	transcriber *fakeTranscriber
	generator   *fakeGenerator
	states      []State
}

func TestPipelineSuite(t *testing.T) {
	suite.Run(t, new(PipelineSuite))
}

func (s *PipelineSuite) SetupTest() {
	s.dir = s.T().TempDir()
	s.transcriber = &fakeTranscriber{transcript: "today we cover eigenvalues"}
	s.generator = &fakeGenerator{notes: `"# Eigenvalues\n$\lambda$"`, quiz: validQuiz}
	s.states = nil
}

func (s *PipelineSuite) orchestrator(opts ...Option) *Orchestrator {
	opts = append([]Option{
		WithTempDir(s.dir),
		WithStateObserver(func(_ context.Context, _ State, to State) {
			s.states = append(s.states, to)
		}),
	}, opts...)
	return New(s.transcriber, s.generator, opts...)
}

func (s *PipelineSuite) assertNoTempFiles() {
	entries, err := os.ReadDir(s.dir)
	s.Require().NoError(err)
	s.Empty(entries)
}

func (s *PipelineSuite) TestSuccessfulRun() {
	result, err := s.orchestrator().Process(context.Background(), "lecture.MP4", strings.NewReader("media-bytes"))
	s.Require().NoError(err)

	s.Equal("lecture.MP4", result.Filename)
	s.Equal("today we cover eigenvalues", result.Transcript)
	s.Equal(`"# Eigenvalues\n$\lambda$"`, result.Notes)
	s.Equal("# Eigenvalues\n$\\lambda$", result.NormalizedNotes)
	s.Require().Len(result.Quiz.Questions, 2)
	s.Equal(2, result.Quiz.Questions[1].CorrectAnswer)
	s.Equal(validQuiz, result.RawQuiz)
	s.Contains(result.Metadata, "transcription")
	s.Contains(result.Metadata, StageNotes)
	s.Contains(result.Metadata, StageQuiz)

	s.True(s.transcriber.existed)
	s.True(strings.HasSuffix(s.transcriber.seenPath, ".mp4"))
	s.Equal(s.dir, filepath.Dir(s.transcriber.seenPath))
	s.Equal([]State{
		StateReceived, StateStored, StateTranscribed, StatePrompted,
		StateGenerated, StateParsed, StateDone,
	}, s.states)
	s.assertNoTempFiles()

	s.Require().Len(s.generator.prompts, 2)
	s.Equal(study.BuildNotesPrompt("today we cover eigenvalues"), s.generator.prompts[0])
	s.Equal(study.BuildQuizPrompt("today we cover eigenvalues"), s.generator.prompts[1])
}

func (s *PipelineSuite) TestSilentMediaStillCompletes() {
	s.transcriber.transcript = ""
	s.generator.quiz = `{"Summary": "No content was provided.", "Questions": []}`

	result, err := s.orchestrator().Process(context.Background(), "silence.wav", strings.NewReader("RIFF"))
	s.Require().NoError(err)
	s.Empty(result.Transcript)
	s.Empty(result.Quiz.Questions)
	s.True(strings.HasSuffix(s.generator.prompts[0], study.NotesPromptPreamble))
	s.assertNoTempFiles()
}

func (s *PipelineSuite) TestGenerationFailureOnQuiz() {
	s.generator.quizErr = errors.New("rate limited")

	result, err := s.orchestrator().Process(context.Background(), "talk.mp3", strings.NewReader("x"))
	s.Require().Error(err)
	s.Nil(result)

	var genErr *GenerationServiceError
	s.Require().ErrorAs(err, &genErr)
	s.Equal(StageQuiz, genErr.Stage)
	s.Equal("quiz generation failed: rate limited", Message(err))
	s.Equal(StateFailed, s.states[len(s.states)-1])
	s.NotContains(s.states, StateGenerated)
	s.assertNoTempFiles()
}

func (s *PipelineSuite) TestGenerationFailureOnNotesSkipsQuiz() {
	s.generator.notesErr = errors.New("access denied")

	_, err := s.orchestrator().Process(context.Background(), "talk.mp3", strings.NewReader("x"))

	var genErr *GenerationServiceError
	s.Require().ErrorAs(err, &genErr)
	s.Equal(StageNotes, genErr.Stage)
	s.Len(s.generator.prompts, 1)
	s.assertNoTempFiles()
}

func (s *PipelineSuite) TestMalformedQuizFailsWholeRequest() {
	s.generator.quiz = `{"Summary": "s", "Questions": [{"Question": "q", "Options": ["a", "b", "c"], "CorrectAnswer": 1}]}`

	result, err := s.orchestrator().Process(context.Background(), "talk.mp3", strings.NewReader("x"))
	s.Require().Error(err)
	s.Nil(result)

	var parseErr *ParseError
	s.Require().ErrorAs(err, &parseErr)
	var malformedErr *study.MalformedQuizError
	s.Require().ErrorAs(err, &malformedErr)
	s.Equal(0, malformedErr.Question)
	s.True(strings.HasPrefix(Message(err), "quiz parsing failed: malformed quiz: question 1"))
	s.Equal([]State{
		StateReceived, StateStored, StateTranscribed, StatePrompted, StateGenerated, StateFailed,
	}, s.states)
	s.assertNoTempFiles()
}

func (s *PipelineSuite) TestTranscriptionFailure() {
	s.transcriber.err = errors.New("unsupported codec")

	_, err := s.orchestrator().Process(context.Background(), "talk.mkv", strings.NewReader("x"))

	var transcriptionErr *TranscriptionError
	s.Require().ErrorAs(err, &transcriptionErr)
	s.Equal("transcription failed: unsupported codec", Message(err))
	s.Empty(s.generator.prompts)
	s.Equal([]State{StateReceived, StateStored, StateFailed}, s.states)
	s.assertNoTempFiles()
}

func (s *PipelineSuite) TestStorageFailure() {
	o := New(s.transcriber, s.generator, WithTempDir(filepath.Join(s.dir, "missing")))

	_, err := o.Process(context.Background(), "talk.mp3", strings.NewReader("x"))

	var storageErr *StorageError
	s.Require().ErrorAs(err, &storageErr)
	s.Empty(s.transcriber.seenPath)
}

func (s *PipelineSuite) TestTimeoutRemovesTempFile() {
	s.generator.block = true

	_, err := s.orchestrator(WithTimeout(20*time.Millisecond)).Process(
		context.Background(), "talk.mp3", strings.NewReader("x"),
	)
	s.Require().Error(err)
	s.Require().ErrorIs(err, context.DeadlineExceeded)
	s.assertNoTempFiles()
}

func (s *PipelineSuite) TestCancelledContextFailsBeforeStorage() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.orchestrator().Process(ctx, "talk.mp3", strings.NewReader("x"))
	s.Require().ErrorIs(err, context.Canceled)
	s.Equal([]State{StateReceived, StateFailed}, s.states)
	s.assertNoTempFiles()
}

func (s *PipelineSuite) TestConcurrentGeneration() {
	result, err := s.orchestrator(WithConcurrentGeneration(true)).Process(
		context.Background(), "talk.mp3", strings.NewReader("x"),
	)
	s.Require().NoError(err)
	s.Len(s.generator.prompts, 2)
	s.Len(result.Quiz.Questions, 2)

	s.generator.quizErr = errors.New("boom")
	_, err = s.orchestrator(WithConcurrentGeneration(true)).Process(
		context.Background(), "talk.mp3", strings.NewReader("x"),
	)
	var genErr *GenerationServiceError
	s.Require().ErrorAs(err, &genErr)
	s.Equal(StageQuiz, genErr.Stage)
	s.assertNoTempFiles()
}

func (s *PipelineSuite) TestSanitizeFilename() {
	s.Equal("passwd.mp4", sanitizeFilename("../../etc/passwd.mp4"))
	s.Equal("clip.mov", sanitizeFilename(`C:\videos\clip.mov`))
	s.Equal("", sanitizeFilename("  "))
	s.Equal(".mp3", extension("a.MP3"))
	s.Equal("", extension("a.m p3"))
	s.Equal("", extension("noext"))
}

func (s *PipelineSuite) TestStatusCode() {
	s.Equal(200, StatusCode(nil))
	s.Equal(500, StatusCode(&StorageError{Err: errors.New("disk full")}))
	s.Equal(502, StatusCode(&TranscriptionError{Err: errors.New("x")}))
	s.Equal(502, StatusCode(&GenerationServiceError{Stage: StageNotes, Err: errors.New("x")}))
	s.Equal(504, StatusCode(&GenerationServiceError{Stage: StageQuiz, Err: context.DeadlineExceeded}))
	s.Equal(422, StatusCode(&ParseError{Err: &study.MalformedQuizError{Question: -1, Reason: "not a JSON object"}}))
	s.Equal(500, StatusCode(errors.New("other")))
}
