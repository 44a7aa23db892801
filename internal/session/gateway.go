// Package session holds the per-user interaction state of the tutoring client:
// chat transcript, quiz answering and scoring, study materials, the pending
// upload selection and the mirror of the backend file registry.
//
// Components never share state. Each one guards itself with a mutex that is
// released across gateway calls, and refuses a second request of the same kind
// while one is in flight.
package session

import (
	"context"
	"errors"

	"study-tutor/internal/backend"
)

type Asker interface {
	Ask(ctx context.Context, question string) (backend.AskResponse, error)
}

type QuizSource interface {
	Quiz(ctx context.Context) (backend.QuizResponse, error)
}

type StudySource interface {
	Summary(ctx context.Context) (backend.SummaryResponse, error)
	Flashcards(ctx context.Context) (backend.FlashcardsResponse, error)
}

type FileStore interface {
	ListFiles(ctx context.Context) (backend.FilesResponse, error)
	Upload(ctx context.Context, req backend.UploadRequest) error
	DeleteFile(ctx context.Context, title string) error
}

// Gateway is everything the session layer needs from the backend.
type Gateway interface {
	Asker
	QuizSource
	StudySource
	FileStore
}

// Validation errors. They are returned before any network call.
var (
	ErrBusy            = errors.New("request of this kind already in flight")
	ErrEmptyQuestion   = errors.New("question is empty")
	ErrNothingSelected = errors.New("no file or link selected")
	ErrNoQuiz          = errors.New("no quiz loaded")
	ErrUnknownQuestion = errors.New("unknown question")
	ErrIncomplete      = errors.New("not all questions are answered")
	ErrUnknownFile     = errors.New("file is not in the registry")
	ErrNotConfirmed    = errors.New("delete was not confirmed")
	ErrNoSuchCard      = errors.New("no such flashcard")
)

// ErrRefreshFailed wraps a registry re-fetch failure that followed a successful mutation.
var ErrRefreshFailed = errors.New("file list refresh failed")

// IsValidation reports whether err was produced locally, without reaching the backend.
func IsValidation(err error) bool {
	for _, v := range []error{
		ErrBusy, ErrEmptyQuestion, ErrNothingSelected, ErrNoQuiz, ErrUnknownQuestion,
		ErrIncomplete, ErrUnknownFile, ErrNotConfirmed, ErrNoSuchCard,
	} {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}
