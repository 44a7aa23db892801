package telegram

import (
	"context"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"study-tutor/internal/backend"
	"study-tutor/internal/session"
)

func quizGateway() *fakeGateway {
	return &fakeGateway{quiz: backend.QuizResponse{Questions: []backend.Question{
		{ID: "1", Type: backend.MultipleChoice, Prompt: "2+2?", Options: []string{"3", "4"}, CorrectAnswer: backend.TextAnswer("4")},
		{ID: "2", Type: backend.TrueFalse, Prompt: "Sky is blue", CorrectAnswer: backend.BoolAnswer(true)},
		{ID: "3", Type: backend.ShortAnswer, Prompt: "Capital of France", CorrectAnswer: backend.TextAnswer("Paris")},
	}}}
}

func keyboardData(c tgbotapi.Chattable) []string {
	var kb tgbotapi.InlineKeyboardMarkup
	switch m := c.(type) {
	case tgbotapi.MessageConfig:
		k, ok := m.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
		if !ok {
			return nil
		}
		kb = k
	case tgbotapi.EditMessageTextConfig:
		if m.ReplyMarkup == nil {
			return nil
		}
		kb = *m.ReplyMarkup
	default:
		return nil
	}
	var out []string
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			if btn.CallbackData != nil {
				out = append(out, *btn.CallbackData)
			}
		}
	}
	return out
}

func TestQuiz_FullFlowThroughButtonsAndAnswerCommand(t *testing.T) {
	b, fs, rec := newTestBot(t, quizGateway())
	ctx := context.Background()

	b.handleCommand(ctx, command(testUser, "/quiz"))
	// progress notice, header, one message per question
	if len(fs.sent) != 5 {
		t.Fatalf("expected 5 messages, got %d: %+v", len(fs.sent), fs.texts())
	}
	if got := keyboardData(fs.sent[2]); len(got) != 2 || got[0] != "qa:1:0:0" || got[1] != "qa:1:0:1" {
		t.Fatalf("unexpected option buttons: %v", got)
	}
	if got := keyboardData(fs.sent[3]); len(got) != 2 || got[0] != "qt:1:1:t" {
		t.Fatalf("unexpected true/false buttons: %v", got)
	}
	if keyboardData(fs.sent[4]) != nil || !strings.Contains(fs.texts()[4], "/answer 3") {
		t.Fatalf("short answer should point at /answer: %q", fs.texts()[4])
	}

	b.handleCallback(ctx, callback(testUser, "qa:1:0:1"))
	b.handleCallback(ctx, callback(testUser, "qt:1:1:t"))
	quiz := b.sessions.Get(testUser).Quiz
	if v, _ := quiz.AnswerOf("1"); v != "4" {
		t.Fatalf("option pick not recorded, got %q", v)
	}
	if v, _ := quiz.AnswerOf("2"); v != "true" {
		t.Fatalf("true/false pick not recorded, got %q", v)
	}
	if _, ok := fs.last().(tgbotapi.EditMessageTextConfig); !ok {
		t.Fatalf("pick should edit the question message")
	}
	if quiz.CanSubmit() {
		t.Fatalf("submit must stay disabled until all questions are answered")
	}

	fs.reset()
	b.handleCommand(ctx, command(testUser, "/answer 3 Paris"))
	if v, _ := quiz.AnswerOf("3"); v != "Paris" {
		t.Fatalf("answer command stored %q", v)
	}
	if got := keyboardData(fs.last()); len(got) != 1 || got[0] != "qs:1" {
		t.Fatalf("submit button expected once complete, got %v", got)
	}

	fs.reset()
	b.handleCallback(ctx, callback(testUser, "qs:1"))
	if !containsAny(fs.texts(), "3 / 3") {
		t.Fatalf("score not shown: %+v", fs.texts())
	}
	if quiz.State() != session.Submitted {
		t.Fatalf("expected submitted, got %s", quiz.State())
	}
	if len(rec.events) != 2 {
		t.Fatalf("expected quiz and submit events, got %+v", rec.events)
	}
}

func TestQuiz_AnswerCommandKeepsTextVerbatim(t *testing.T) {
	b, _, _ := newTestBot(t, quizGateway())
	b.handleCommand(context.Background(), command(testUser, "/quiz"))
	b.handleCommand(context.Background(), command(testUser, "/answer 3  paris "))
	if v, _ := b.sessions.Get(testUser).Quiz.AnswerOf("3"); v != " paris " {
		t.Fatalf("answer should be stored as typed, got %q", v)
	}
}

func TestQuiz_AnswerCommandValidation(t *testing.T) {
	b, fs, _ := newTestBot(t, quizGateway())
	ctx := context.Background()

	b.handleCommand(ctx, command(testUser, "/answer 1 4"))
	if !containsAny(fs.texts(), "no quiz") {
		t.Fatalf("expected no-quiz hint, got %+v", fs.texts())
	}
	b.handleCommand(ctx, command(testUser, "/quiz"))
	fs.reset()
	b.handleCommand(ctx, command(testUser, "/answer 9 x"))
	b.handleCommand(ctx, command(testUser, "/answer three"))
	texts := fs.texts()
	if !containsAny(texts, "no question 9") || !containsAny(texts, "Usage") {
		t.Fatalf("unexpected replies: %+v", texts)
	}
}

func TestQuiz_StaleButtonIsRejected(t *testing.T) {
	b, fs, _ := newTestBot(t, quizGateway())
	ctx := context.Background()
	b.handleCommand(ctx, command(testUser, "/quiz"))
	b.handleCommand(ctx, command(testUser, "/quiz"))

	b.handleCallback(ctx, callback(testUser, "qa:1:0:1"))
	if _, ok := b.sessions.Get(testUser).Quiz.AnswerOf("1"); ok {
		t.Fatalf("stale button must not record an answer")
	}
	if !containsAny(fs.callbackTexts(), "replaced") {
		t.Fatalf("expected stale notice, got %+v", fs.callbackTexts())
	}
}

func TestQuiz_SubmitIncompleteIsRefused(t *testing.T) {
	b, fs, _ := newTestBot(t, quizGateway())
	ctx := context.Background()
	b.handleCommand(ctx, command(testUser, "/quiz"))
	b.handleCallback(ctx, callback(testUser, "qs:1"))
	if !containsAny(fs.callbackTexts(), "Answer every question") {
		t.Fatalf("expected incomplete hint, got %+v", fs.callbackTexts())
	}
}

func TestProgress_ShowsPercentage(t *testing.T) {
	b, fs, _ := newTestBot(t, quizGateway())
	ctx := context.Background()
	b.handleCommand(ctx, command(testUser, "/quiz"))
	b.handleCallback(ctx, callback(testUser, "qa:1:0:0"))
	fs.reset()
	b.handleCommand(ctx, command(testUser, "/progress"))
	if !containsAny(fs.texts(), "Answered 1 of 3 (33%)") {
		t.Fatalf("unexpected progress: %+v", fs.texts())
	}
}
