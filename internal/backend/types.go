package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	ShortAnswer    QuestionType = "short_answer"
)

// normalizeType maps wire aliases onto the canonical question types.
func normalizeType(s string) QuestionType {
	switch s {
	case "mcq", "multiple-choice", "multiplechoice":
		return MultipleChoice
	case "true-false", "truefalse", "boolean":
		return TrueFalse
	case "short-answer", "shortanswer", "text":
		return ShortAnswer
	}
	return QuestionType(s)
}

// CorrectAnswer is the string-or-boolean correct_answer of a question.
type CorrectAnswer struct {
	Text   string
	Bool   bool
	IsBool bool
}

func TextAnswer(s string) CorrectAnswer { return CorrectAnswer{Text: s} }
func BoolAnswer(b bool) CorrectAnswer   { return CorrectAnswer{Bool: b, IsBool: true} }

// String renders booleans as "true"/"false" and text verbatim.
func (a CorrectAnswer) String() string {
	if a.IsBool {
		return strconv.FormatBool(a.Bool)
	}
	return a.Text
}

func (a CorrectAnswer) MarshalJSON() ([]byte, error) {
	if a.IsBool {
		return json.Marshal(a.Bool)
	}
	return json.Marshal(a.Text)
}

func (a *CorrectAnswer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || string(data) == "null":
		*a = CorrectAnswer{}
		return nil
	case string(data) == "true" || string(data) == "false":
		*a = BoolAnswer(string(data) == "true")
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = TextAnswer(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("correct_answer: unsupported value %s", string(data))
	}
	*a = TextAnswer(n.String())
	return nil
}

type Question struct {
	ID            string        `json:"id"`
	Type          QuestionType  `json:"type"`
	Prompt        string        `json:"prompt"`
	Options       []string      `json:"options,omitempty"`
	CorrectAnswer CorrectAnswer `json:"correct_answer"`
}

type wireQuestion struct {
	ID            json.RawMessage `json:"id"`
	Type          string          `json:"type"`
	Prompt        string          `json:"prompt"`
	Question      string          `json:"question"`
	Options       []string        `json:"options"`
	CorrectAnswer CorrectAnswer   `json:"correct_answer"`
}

// UnmarshalJSON accepts numeric or string ids and the "question" prompt field.
func (q *Question) UnmarshalJSON(data []byte) error {
	var w wireQuestion
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	id, err := decodeID(w.ID)
	if err != nil {
		return err
	}
	prompt := w.Prompt
	if prompt == "" {
		prompt = w.Question
	}
	*q = Question{
		ID:            id,
		Type:          normalizeType(w.Type),
		Prompt:        prompt,
		Options:       w.Options,
		CorrectAnswer: w.CorrectAnswer,
	}
	return nil
}

func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("question id: unsupported value %s", string(raw))
	}
	return n.String(), nil
}

type FileRecord struct {
	Title   string `json:"title"`
	Date    string `json:"date"`
	Subject string `json:"subject"`
}

type SummaryEntry struct {
	Chapter   string   `json:"chapter"`
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points"`
}

type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

type AskRequest struct {
	Question string `json:"question"`
}

type AskResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources,omitempty"`
}

type QuizResponse struct {
	Questions []Question `json:"questions"`
}

type SummaryResponse struct {
	Summaries []SummaryEntry `json:"summaries"`
}

type FlashcardsResponse struct {
	Flashcards []Flashcard `json:"flashcards"`
}

type FilesResponse struct {
	Files []FileRecord `json:"files"`
}

// UploadFile is an in-memory file part for /upload.
type UploadFile struct {
	Name    string
	Content []byte
}

// UploadRequest carries a file, a link, or both in one ingestion request.
type UploadRequest struct {
	File *UploadFile
	Link string
}

// Absent arrays decode as empty collections.

func (r *AskResponse) normalize() {
	if r.Sources == nil {
		r.Sources = []string{}
	}
}

func (r *QuizResponse) normalize() {
	if r.Questions == nil {
		r.Questions = []Question{}
	}
}

func (r *SummaryResponse) normalize() {
	if r.Summaries == nil {
		r.Summaries = []SummaryEntry{}
	}
	for i := range r.Summaries {
		if r.Summaries[i].KeyPoints == nil {
			r.Summaries[i].KeyPoints = []string{}
		}
	}
}

func (r *FlashcardsResponse) normalize() {
	if r.Flashcards == nil {
		r.Flashcards = []Flashcard{}
	}
}

func (r *FilesResponse) normalize() {
	if r.Files == nil {
		r.Files = []FileRecord{}
	}
}
