package session

import (
	"context"
	"errors"
	"testing"

	"study-tutor/internal/backend"
)

func TestStudy_FailureIsolation(t *testing.T) {
	gw := &fakeGateway{
		sums:  backend.SummaryResponse{Summaries: []backend.SummaryEntry{{Chapter: "Ch 1", Summary: "s", KeyPoints: []string{"a"}}}},
		cards: backend.FlashcardsResponse{Flashcards: []backend.Flashcard{{Front: "f1", Back: "b1"}, {Front: "f2", Back: "b2"}}},
	}
	s := NewStudy(gw)
	if err := s.GenerateSummaries(context.Background()); err != nil {
		t.Fatalf("summaries: %v", err)
	}
	if err := s.GenerateFlashcards(context.Background()); err != nil {
		t.Fatalf("flashcards: %v", err)
	}

	gw.sumErr = errDown
	gw.cardErr = &backend.ServerError{Op: "flashcards", StatusCode: 502}
	if err := s.GenerateSummaries(context.Background()); err == nil {
		t.Fatalf("expected summary error")
	}
	if err := s.GenerateFlashcards(context.Background()); err == nil {
		t.Fatalf("expected flashcard error")
	}
	if len(s.Summaries()) != 1 || len(s.Flashcards()) != 2 {
		t.Fatalf("failed generation cleared previous data: %d summaries, %d cards", len(s.Summaries()), len(s.Flashcards()))
	}
	if s.LoadingSummaries() || s.LoadingFlashcards() {
		t.Fatalf("loading flags not cleared")
	}
}

func TestStudy_SummaryFailureLeavesFlashcards(t *testing.T) {
	gw := &fakeGateway{
		cards:  backend.FlashcardsResponse{Flashcards: []backend.Flashcard{{Front: "f", Back: "b"}}},
		sumErr: errDown,
	}
	s := NewStudy(gw)
	_ = s.GenerateFlashcards(context.Background())
	_ = s.GenerateSummaries(context.Background())
	if len(s.Flashcards()) != 1 || len(s.Summaries()) != 0 {
		t.Fatalf("unexpected collections")
	}
}

func TestStudyFlip_TogglesSingleCard(t *testing.T) {
	gw := &fakeGateway{cards: backend.FlashcardsResponse{Flashcards: []backend.Flashcard{{Front: "a"}, {Front: "b"}, {Front: "a"}}}}
	s := NewStudy(gw)
	_ = s.GenerateFlashcards(context.Background())

	if _, ok := s.Revealed(); ok {
		t.Fatalf("no card should be revealed initially")
	}
	if shown, _ := s.Flip(0); !shown {
		t.Fatalf("expected card 0 revealed")
	}
	// Identical content at another position is a different card.
	if shown, _ := s.Flip(2); !shown {
		t.Fatalf("expected card 2 revealed")
	}
	if i, ok := s.Revealed(); !ok || i != 2 {
		t.Fatalf("expected only card 2 revealed, got %d %v", i, ok)
	}
	if shown, _ := s.Flip(2); shown {
		t.Fatalf("second flip should hide the card")
	}
	if _, ok := s.Revealed(); ok {
		t.Fatalf("card should be hidden")
	}
	if _, err := s.Flip(3); !errors.Is(err, ErrNoSuchCard) {
		t.Fatalf("expected ErrNoSuchCard, got %v", err)
	}
}

func TestStudyFlip_ResetByNewDeck(t *testing.T) {
	gw := &fakeGateway{cards: backend.FlashcardsResponse{Flashcards: []backend.Flashcard{{Front: "a"}}}}
	s := NewStudy(gw)
	_ = s.GenerateFlashcards(context.Background())
	_, _ = s.Flip(0)
	_ = s.GenerateFlashcards(context.Background())
	if _, ok := s.Revealed(); ok {
		t.Fatalf("new deck should start face down")
	}
	if s.Deck() != 2 {
		t.Fatalf("expected deck 2, got %d", s.Deck())
	}
}

func TestStudy_BusyPerKind(t *testing.T) {
	gw := &fakeGateway{gate: make(chan struct{}), entered: make(chan struct{})}
	s := NewStudy(gw)
	done := make(chan error, 1)
	go func() { done <- s.GenerateSummaries(context.Background()) }()
	<-gw.entered

	if err := s.GenerateSummaries(context.Background()); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if !s.LoadingSummaries() || s.LoadingFlashcards() {
		t.Fatalf("loading flags should be independent")
	}
	close(gw.gate)
	if err := <-done; err != nil {
		t.Fatalf("summaries: %v", err)
	}
}
