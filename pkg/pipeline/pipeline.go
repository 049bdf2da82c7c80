// Package pipeline turns one uploaded recording into a transcript, study
// notes and a validated quiz.
package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Nephrolytics-ai/study-notes/pkg/logging"
	"github.com/Nephrolytics-ai/study-notes/pkg/model"
	"github.com/Nephrolytics-ai/study-notes/pkg/study"
	"github.com/Nephrolytics-ai/study-notes/pkg/utils"
	"golang.org/x/sync/errgroup"
)

type State string

const (
	StateReceived    State = "received"
	StateStored      State = "stored"
	StateTranscribed State = "transcribed"
	StatePrompted    State = "prompted"
	StateGenerated   State = "generated"
	StateParsed      State = "parsed"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// StateObserver is called on every state transition of a request.
type StateObserver func(ctx context.Context, from State, to State)

// Result is what a successful run hands to the caller. Notes is the raw
// notes generation; NormalizedNotes has escape artifacts removed.
type Result struct {
	Filename        string
	Transcript      string
	Notes           string
	NormalizedNotes string
	Quiz            study.Quiz
	RawQuiz         string
	Metadata        map[string]model.GenerationMetadata
}

type Option func(*Orchestrator)

// WithTempDir sets the directory uploads are stored in. Empty means os.TempDir.
func WithTempDir(dir string) Option {
	return func(o *Orchestrator) {
		o.tempDir = dir
	}
}

// WithConcurrentGeneration issues the notes and quiz generations in parallel.
func WithConcurrentGeneration(enabled bool) Option {
	return func(o *Orchestrator) {
		o.concurrent = enabled
	}
}

// WithTimeout bounds a whole run. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.timeout = d
	}
}

func WithStateObserver(observer StateObserver) Option {
	return func(o *Orchestrator) {
		if observer != nil {
			o.observers = append(o.observers, observer)
		}
	}
}

// Orchestrator holds no per-request state and is safe for concurrent use.
type Orchestrator struct {
	transcriber model.Transcriber
	generator   model.TextGenerator
	tempDir     string
	concurrent  bool
	timeout     time.Duration
	observers   []StateObserver
}

func New(transcriber model.Transcriber, generator model.TextGenerator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		transcriber: transcriber,
		generator:   generator,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

type run struct {
	ctx   context.Context
	o     *Orchestrator
	log   logging.Logger
	state State
}

func (r *run) transition(to State) {
	from := r.state
	r.state = to
	r.log.Debugf("pipeline state %s -> %s", from, to)
	for _, observer := range r.o.observers {
		observer(r.ctx, from, to)
	}
}

// Process runs one upload through every stage. The stored temporary file is
// removed before Process returns, whatever the outcome.
func (o *Orchestrator) Process(ctx context.Context, filename string, media io.Reader) (result *Result, err error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	filename = sanitizeFilename(filename)
	ctx = logging.WithFields(ctx, logging.Fields{"filename": filename})
	r := &run{ctx: ctx, o: o, log: logging.NewLogger(ctx)}
	r.transition(StateReceived)

	defer func() {
		if err != nil {
			r.log.Errorf("error: %v", err)
			r.transition(StateFailed)
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, utils.WrapIfNotNil(err)
	}

	path, err := o.store(filename, media)
	if err != nil {
		return nil, &StorageError{Err: err}
	}
	defer func() {
		if removeErr := os.Remove(path); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			r.log.Warnf("removing temp file %q: %v", path, removeErr)
		}
	}()
	r.transition(StateStored)

	metadata := make(map[string]model.GenerationMetadata, 3)

	transcript, meta, err := o.transcriber.Transcribe(ctx, path)
	if err != nil {
		return nil, &TranscriptionError{Err: err}
	}
	metadata["transcription"] = meta
	r.transition(StateTranscribed)
	r.log.Infof("transcript_len=%d", len(transcript))

	notesPrompt := study.BuildNotesPrompt(transcript)
	quizPrompt := study.BuildQuizPrompt(transcript)
	r.transition(StatePrompted)

	notes, rawQuiz, err := o.generate(ctx, notesPrompt, quizPrompt, metadata)
	if err != nil {
		return nil, err
	}
	r.transition(StateGenerated)

	quiz, err := study.ParseQuiz(rawQuiz)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	normalized := study.NormalizeNotes(notes)
	r.transition(StateParsed)

	result = &Result{
		Filename:        filename,
		Transcript:      transcript,
		Notes:           notes,
		NormalizedNotes: normalized,
		Quiz:            quiz,
		RawQuiz:         rawQuiz,
		Metadata:        metadata,
	}
	r.transition(StateDone)
	r.log.Infof("pipeline done questions=%d", len(quiz.Questions))
	return result, nil
}

func (o *Orchestrator) generate(
	ctx context.Context,
	notesPrompt string,
	quizPrompt string,
	metadata map[string]model.GenerationMetadata,
) (string, string, error) {
	if !o.concurrent {
		notes, notesMeta, err := o.generator.GenerateText(ctx, notesPrompt)
		if err != nil {
			return "", "", &GenerationServiceError{Stage: StageNotes, Err: err}
		}
		metadata[StageNotes] = notesMeta

		rawQuiz, quizMeta, err := o.generator.GenerateText(ctx, quizPrompt)
		if err != nil {
			return "", "", &GenerationServiceError{Stage: StageQuiz, Err: err}
		}
		metadata[StageQuiz] = quizMeta
		return notes, rawQuiz, nil
	}

	var (
		notes, rawQuiz      string
		notesMeta, quizMeta model.GenerationMetadata
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		notes, notesMeta, err = o.generator.GenerateText(groupCtx, notesPrompt)
		if err != nil {
			return &GenerationServiceError{Stage: StageNotes, Err: err}
		}
		return nil
	})
	group.Go(func() error {
		var err error
		rawQuiz, quizMeta, err = o.generator.GenerateText(groupCtx, quizPrompt)
		if err != nil {
			return &GenerationServiceError{Stage: StageQuiz, Err: err}
		}
		return nil
	})
	if err := group.Wait(); err != nil {
		return "", "", err
	}

	metadata[StageNotes] = notesMeta
	metadata[StageQuiz] = quizMeta
	return notes, rawQuiz, nil
}

func (o *Orchestrator) store(filename string, media io.Reader) (string, error) {
	if media == nil {
		return "", utils.WrapIfNotNil(errors.New("upload body is required"))
	}

	file, err := os.CreateTemp(o.tempDir, "upload-*"+extension(filename))
	if err != nil {
		return "", utils.WrapIfNotNil(err)
	}
	path := file.Name()

	_, copyErr := io.Copy(file, media)
	closeErr := file.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(path)
		return "", utils.WrapIfNotNil(err)
	}
	return path, nil
}

// sanitizeFilename keeps only the base name of a client-supplied filename.
func sanitizeFilename(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	name = filepath.Base(name)
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// extension returns the lowercased extension if it is short and alphanumeric.
func extension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) < 2 || len(ext) > 8 {
		return ""
	}
	for _, c := range ext[1:] {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return ""
		}
	}
	return ext
}
