package session

import (
	"context"
	"errors"
	"sync"

	"study-tutor/internal/backend"
)

var errDown = &backend.NetworkError{Op: "test", Err: errors.New("connection refused")}

// fakeGateway answers from canned values. A non-nil gate blocks each call until it receives.
type fakeGateway struct {
	mu sync.Mutex

	askResp  backend.AskResponse
	askErr   error
	asked    []string
	quiz     backend.QuizResponse
	quizErr  error
	sums     backend.SummaryResponse
	sumErr   error
	cards    backend.FlashcardsResponse
	cardErr  error
	files    []backend.FileRecord
	listErr  error
	listN    int
	upErr    error
	uploads  []backend.UploadRequest
	delErr   error
	deleted  []string
	gate     chan struct{}
	entered  chan struct{}
}

func (f *fakeGateway) wait() {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
}

func (f *fakeGateway) Ask(_ context.Context, q string) (backend.AskResponse, error) {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.asked = append(f.asked, q)
	return f.askResp, f.askErr
}

func (f *fakeGateway) Quiz(context.Context) (backend.QuizResponse, error) {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.quiz, f.quizErr
}

func (f *fakeGateway) Summary(context.Context) (backend.SummaryResponse, error) {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sums, f.sumErr
}

func (f *fakeGateway) Flashcards(context.Context) (backend.FlashcardsResponse, error) {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cards, f.cardErr
}

func (f *fakeGateway) ListFiles(context.Context) (backend.FilesResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listN++
	if f.listErr != nil {
		return backend.FilesResponse{}, f.listErr
	}
	return backend.FilesResponse{Files: append([]backend.FileRecord{}, f.files...)}, nil
}

func (f *fakeGateway) Upload(_ context.Context, req backend.UploadRequest) error {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upErr != nil {
		return f.upErr
	}
	f.uploads = append(f.uploads, req)
	name := req.Link
	if req.File != nil {
		name = req.File.Name
	}
	f.files = append(f.files, backend.FileRecord{Title: name, Date: "2024-01-01", Subject: "General"})
	return nil
}

func (f *fakeGateway) DeleteFile(_ context.Context, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delErr != nil {
		return f.delErr
	}
	f.deleted = append(f.deleted, title)
	kept := f.files[:0]
	for _, r := range f.files {
		if r.Title != title {
			kept = append(kept, r)
		}
	}
	f.files = kept
	return nil
}

func threeQuestions() []backend.Question {
	return []backend.Question{
		{ID: "1", Type: backend.MultipleChoice, Prompt: "2+2?", Options: []string{"3", "4"}, CorrectAnswer: backend.TextAnswer("4")},
		{ID: "2", Type: backend.TrueFalse, Prompt: "Sky is blue", CorrectAnswer: backend.BoolAnswer(true)},
		{ID: "3", Type: backend.ShortAnswer, Prompt: "Capital of France", CorrectAnswer: backend.TextAnswer("Paris")},
	}
}
