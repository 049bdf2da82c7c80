package pipeline

import (
	"context"
	"errors"
	"net/http"

	"github.com/Nephrolytics-ai/study-notes/pkg/study"
	"github.com/Nephrolytics-ai/study-notes/pkg/utils"
)

const (
	StageNotes = "notes"
	StageQuiz  = "quiz"
)

// StorageError reports that the upload could not be written to temporary storage.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string {
	return "storing upload failed: " + e.Err.Error()
}

func (e *StorageError) Unwrap() error { return e.Err }

// TranscriptionError reports a speech-to-text failure.
type TranscriptionError struct {
	Err error
}

func (e *TranscriptionError) Error() string {
	return "transcription failed: " + e.Err.Error()
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

// GenerationServiceError reports a text-generation failure for one prompt.
type GenerationServiceError struct {
	Stage string
	Err   error
}

func (e *GenerationServiceError) Error() string {
	return e.Stage + " generation failed: " + e.Err.Error()
}

func (e *GenerationServiceError) Unwrap() error { return e.Err }

// ParseError carries a *study.MalformedQuizError out of the Parsed stage.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "quiz parsing failed: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

// Message flattens a pipeline error into the single string shown to users:
// the stage prefix plus the innermost cause.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var (
		storageErr       *StorageError
		transcriptionErr *TranscriptionError
		generationErr    *GenerationServiceError
		parseErr         *ParseError
	)
	switch {
	case errors.As(err, &storageErr):
		return "storing upload failed: " + utils.RootMessage(storageErr.Err)
	case errors.As(err, &transcriptionErr):
		return "transcription failed: " + utils.RootMessage(transcriptionErr.Err)
	case errors.As(err, &generationErr):
		return generationErr.Stage + " generation failed: " + utils.RootMessage(generationErr.Err)
	case errors.As(err, &parseErr):
		var malformedErr *study.MalformedQuizError
		if errors.As(parseErr.Err, &malformedErr) {
			return "quiz parsing failed: " + malformedErr.Error()
		}
		return "quiz parsing failed: " + utils.RootMessage(parseErr.Err)
	}
	return utils.RootMessage(err)
}

// StatusCode maps a pipeline error to the HTTP status of the upload response.
func StatusCode(err error) int {
	var (
		storageErr       *StorageError
		transcriptionErr *TranscriptionError
		generationErr    *GenerationServiceError
		parseErr         *ParseError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &storageErr):
		return http.StatusInternalServerError
	case errors.As(err, &transcriptionErr), errors.As(err, &generationErr):
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	case errors.As(err, &parseErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
