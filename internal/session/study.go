package session

import (
	"context"
	"fmt"
	"sync"

	"study-tutor/internal/backend"
)

// Study holds chapter summaries and flashcards. The two collections load
// independently and a failed request never blanks what was already obtained.
type Study struct {
	source StudySource

	mu                sync.Mutex
	summaries         []backend.SummaryEntry
	flashcards        []backend.Flashcard
	loadingSummaries  bool
	loadingFlashcards bool
	revealed          int
	deck              int
}

func NewStudy(source StudySource) *Study {
	return &Study{source: source, revealed: -1}
}

func (s *Study) GenerateSummaries(ctx context.Context) error {
	s.mu.Lock()
	if s.loadingSummaries {
		s.mu.Unlock()
		return ErrBusy
	}
	s.loadingSummaries = true
	s.mu.Unlock()

	resp, err := s.source.Summary(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadingSummaries = false
	if err != nil {
		return err
	}
	s.summaries = append([]backend.SummaryEntry{}, resp.Summaries...)
	return nil
}

func (s *Study) GenerateFlashcards(ctx context.Context) error {
	s.mu.Lock()
	if s.loadingFlashcards {
		s.mu.Unlock()
		return ErrBusy
	}
	s.loadingFlashcards = true
	s.mu.Unlock()

	resp, err := s.source.Flashcards(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadingFlashcards = false
	if err != nil {
		return err
	}
	s.flashcards = append([]backend.Flashcard{}, resp.Flashcards...)
	s.revealed = -1
	s.deck++
	return nil
}

// Deck counts successfully loaded flashcard sets.
func (s *Study) Deck() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deck
}

func (s *Study) Summaries() []backend.SummaryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]backend.SummaryEntry{}, s.summaries...)
}

func (s *Study) Flashcards() []backend.Flashcard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]backend.Flashcard{}, s.flashcards...)
}

func (s *Study) LoadingSummaries() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadingSummaries
}

func (s *Study) LoadingFlashcards() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadingFlashcards
}

// Flip reveals card i, or hides it when it is the card currently revealed.
// At most one card is revealed at a time. It reports whether i is now revealed.
func (s *Study) Flip(i int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.flashcards) {
		return false, fmt.Errorf("%w: %d", ErrNoSuchCard, i)
	}
	if s.revealed == i {
		s.revealed = -1
		return false, nil
	}
	s.revealed = i
	return true, nil
}

func (s *Study) Revealed() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revealed, s.revealed >= 0
}
