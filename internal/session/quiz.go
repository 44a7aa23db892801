package session

import (
	"context"
	"fmt"
	"sync"

	"study-tutor/internal/backend"
)

type QuizState int

const (
	NoQuiz QuizState = iota
	Generating
	Answering
	Submitted
)

func (s QuizState) String() string {
	switch s {
	case NoQuiz:
		return "no_quiz"
	case Generating:
		return "generating"
	case Answering:
		return "answering"
	case Submitted:
		return "submitted"
	}
	return fmt.Sprintf("quiz_state(%d)", int(s))
}

type Quiz struct {
	source QuizSource

	mu        sync.Mutex
	state     QuizState
	questions []backend.Question
	index     map[string]int
	answers   map[string]string
	score     *Result
	round     int
}

func NewQuiz(source QuizSource) *Quiz {
	return &Quiz{source: source, answers: map[string]string{}}
}

// Generate fetches a new question set. Success replaces the questions and
// discards answers and score; failure leaves the previous quiz untouched.
func (q *Quiz) Generate(ctx context.Context) error {
	q.mu.Lock()
	if q.state == Generating {
		q.mu.Unlock()
		return ErrBusy
	}
	prev := q.state
	q.state = Generating
	q.mu.Unlock()

	resp, err := q.source.Quiz(ctx)

	q.mu.Lock()
	defer q.mu.Unlock()
	if err != nil {
		q.state = prev
		return err
	}
	q.questions = append([]backend.Question{}, resp.Questions...)
	q.index = make(map[string]int, len(q.questions))
	for i, qq := range q.questions {
		if _, dup := q.index[qq.ID]; !dup {
			q.index[qq.ID] = i
		}
	}
	q.answers = map[string]string{}
	q.score = nil
	q.state = Answering
	q.round++
	return nil
}

func (q *Quiz) State() QuizState {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// Round counts successfully generated quizzes. Renderers tag buttons with it
// so a press on an old quiz is recognised as stale.
func (q *Quiz) Round() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.round
}

func (q *Quiz) Loaded() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.questions != nil
}

func (q *Quiz) Questions() []backend.Question {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]backend.Question{}, q.questions...)
}

// Answer records or overwrites the answer for question id.
func (q *Quiz) Answer(id, value string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	switch {
	case q.state == Generating:
		return ErrBusy
	case q.questions == nil:
		return ErrNoQuiz
	}
	if _, ok := q.index[id]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownQuestion, id)
	}
	q.answers[id] = value
	if q.state == Submitted {
		q.state = Answering
	}
	return nil
}

func (q *Quiz) AnswerOf(id string) (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	v, ok := q.answers[id]
	return v, ok
}

func (q *Quiz) AnsweredCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.answers)
}

func (q *Quiz) Total() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.questions)
}

// Progress is the answered percentage, 0 when no quiz is loaded.
func (q *Quiz) Progress() float64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.progressLocked()
}

func (q *Quiz) progressLocked() float64 {
	if len(q.questions) == 0 {
		return 0
	}
	return float64(len(q.answers)) / float64(len(q.questions)) * 100
}

func (q *Quiz) CanSubmit() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.canSubmitLocked()
}

func (q *Quiz) canSubmitLocked() bool {
	return q.state != Generating && len(q.questions) > 0 && len(q.answers) == len(q.questions)
}

// Submit scores the quiz and records the result.
func (q *Quiz) Submit() (Result, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.questions == nil {
		return Result{}, ErrNoQuiz
	}
	if !q.canSubmitLocked() {
		return Result{}, ErrIncomplete
	}
	res := Score(q.questions, q.answers)
	q.score = &res
	q.state = Submitted
	return res, nil
}

// Score returns the last recorded result, if any.
func (q *Quiz) Score() (Result, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.score == nil {
		return Result{}, false
	}
	return *q.score, true
}
