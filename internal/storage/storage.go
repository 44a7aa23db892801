package storage

import "time"

// Kind names the session operation an event records.
type Kind string

const (
	KindAsk        Kind = "ask"
	KindQuiz       Kind = "quiz"
	KindSubmit     Kind = "submit"
	KindSummary    Kind = "summary"
	KindFlashcards Kind = "flashcards"
	KindUpload     Kind = "upload"
	KindDelete     Kind = "delete"
	KindFiles      Kind = "files"
)

// Event is one outcome of a user-triggered operation.
// Events are appended in chronological order.
type Event struct {
	Timestamp time.Time     `json:"timestamp"`
	UserID    int64         `json:"user_id"`
	Kind      Kind          `json:"kind"`
	OK        bool          `json:"ok"`
	Detail    string        `json:"detail,omitempty"`
	Duration  time.Duration `json:"duration_ns,omitempty"`
}

// Recorder abstracts persistence of events.
// Implementations must be safe for concurrent use.
type Recorder interface {
	AppendInteraction(event Event) error
	LoadInteractions() ([]Event, error)
}

// Nop discards everything.
type Nop struct{}

func (Nop) AppendInteraction(Event) error      { return nil }
func (Nop) LoadInteractions() ([]Event, error) { return nil, nil }
