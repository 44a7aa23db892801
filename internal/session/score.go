package session

import (
	"fmt"

	"study-tutor/internal/backend"
)

type Result struct {
	Correct int
	Total   int
}

func (r Result) String() string {
	return fmt.Sprintf("%d / %d", r.Correct, r.Total)
}

// Score grades every question against the recorded answers. One point per
// exact match, no partial credit; unanswered questions never match.
func Score(questions []backend.Question, answers map[string]string) Result {
	res := Result{Total: len(questions)}
	for _, q := range questions {
		answer, ok := answers[q.ID]
		if ok && IsCorrect(q, answer) {
			res.Correct++
		}
	}
	return res
}

// IsCorrect compares one recorded answer with the question's correct answer.
// True/false questions compare against the lowercase rendering of a boolean
// correct answer. Every other type is a strict, case-sensitive, untrimmed
// string comparison; a boolean correct answer on those never matches a string.
func IsCorrect(q backend.Question, answer string) bool {
	ca := q.CorrectAnswer
	if q.Type == backend.TrueFalse {
		return answer == ca.String()
	}
	if ca.IsBool {
		return false
	}
	return answer == ca.Text
}
