package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"study-tutor/internal/backend"
	"study-tutor/internal/session"
	"study-tutor/internal/storage"
)

func (b *Bot) handleQuiz(ctx context.Context, chatID, userID int64) {
	quiz := b.sessions.Get(userID).Quiz
	b.sendMessage(chatID, b.italic("Generating a quiz from your material..."))

	started := b.now()
	err := quiz.Generate(ctx)
	if !session.IsValidation(err) {
		b.record(userID, storage.KindQuiz, started, err)
	}
	if err != nil {
		b.log.Warn("quiz generation failed", "user_id", userID, "error", err)
		b.sendMessage(chatID, b.escapeIfNeeded(failureText("Failed to generate quiz.", err)))
		return
	}

	questions := quiz.Questions()
	if len(questions) == 0 {
		b.sendMessage(chatID, b.escapeIfNeeded("The tutor returned no questions. Upload more material and try again."))
		return
	}
	round := quiz.Round()
	b.sendMessage(chatID, b.bold(fmt.Sprintf("Quiz: %d questions", len(questions)))+"\n"+
		b.escapeIfNeeded("Tap an option, or use /answer <n> <text> for open questions. Submit appears once everything is answered."))
	for i, q := range questions {
		text, markup := b.renderQuestion(round, i, q, "", false)
		if markup != nil {
			b.sendWithMarkup(chatID, text, *markup)
		} else {
			b.sendMessage(chatID, text)
		}
	}
}

// renderQuestion formats question i; selected is the recorded answer when answered.
func (b *Bot) renderQuestion(round, i int, q backend.Question, selected string, answered bool) (string, *tgbotapi.InlineKeyboardMarkup) {
	var sb strings.Builder
	sb.WriteString(b.bold(fmt.Sprintf("%d.", i+1)))
	sb.WriteString(" ")
	sb.WriteString(b.escapeIfNeeded(q.Prompt))

	var rows [][]tgbotapi.InlineKeyboardButton
	switch {
	case q.Type == backend.MultipleChoice && len(q.Options) > 0:
		for oi, opt := range q.Options {
			label := opt
			if answered && selected == opt {
				label = "✅ " + opt
			}
			data := fmt.Sprintf("%s%d:%d:%d", quizPickPref, round, i, oi)
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(label, data)))
		}
	case q.Type == backend.TrueFalse:
		t, f := "True", "False"
		if answered && selected == "true" {
			t = "✅ True"
		}
		if answered && selected == "false" {
			f = "✅ False"
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(t, fmt.Sprintf("%s%d:%d:t", quizBoolPref, round, i)),
			tgbotapi.NewInlineKeyboardButtonData(f, fmt.Sprintf("%s%d:%d:f", quizBoolPref, round, i)),
		))
	default:
		sb.WriteString("\n")
		sb.WriteString(b.italic(fmt.Sprintf("Answer with /answer %d <your answer>", i+1)))
		if answered {
			sb.WriteString("\n")
			sb.WriteString(b.escapeIfNeeded("Your answer: " + selected))
		}
	}
	if len(rows) == 0 {
		return sb.String(), nil
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return sb.String(), &kb
}

// parseQuizCallback splits "<prefix><round>:<index>:<value>".
func parseQuizCallback(data, prefix string) (round, index int, value string, ok bool) {
	parts := strings.SplitN(strings.TrimPrefix(data, prefix), ":", 3)
	if len(parts) != 3 {
		return 0, 0, "", false
	}
	round, err1 := strconv.Atoi(parts[0])
	index, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, 0, "", false
	}
	return round, index, parts[2], true
}

func (b *Bot) handleQuizPick(cb *tgbotapi.CallbackQuery) {
	quiz := b.sessions.Get(cb.From.ID).Quiz
	prefix := quizPickPref
	if strings.HasPrefix(cb.Data, quizBoolPref) {
		prefix = quizBoolPref
	}
	round, i, raw, ok := parseQuizCallback(cb.Data, prefix)
	if !ok {
		b.answerCallback(cb, "")
		return
	}
	if round != quiz.Round() {
		b.answerCallback(cb, "This quiz was replaced. Use /quiz for a new one.")
		return
	}
	questions := quiz.Questions()
	if i < 0 || i >= len(questions) {
		b.answerCallback(cb, failureText("", session.ErrUnknownQuestion))
		return
	}
	q := questions[i]

	var value string
	if prefix == quizBoolPref {
		value = strconv.FormatBool(raw == "t")
	} else {
		oi, err := strconv.Atoi(raw)
		if err != nil || oi < 0 || oi >= len(q.Options) {
			b.answerCallback(cb, "")
			return
		}
		value = q.Options[oi]
	}

	_, had := quiz.AnswerOf(q.ID)
	if err := quiz.Answer(q.ID, value); err != nil {
		b.answerCallback(cb, failureText("Could not save the answer.", err))
		return
	}
	b.answerCallback(cb, "Saved")
	text, markup := b.renderQuestion(round, i, q, value, true)
	b.editMessage(cb.Message.Chat.ID, cb.Message.MessageID, text, markup)
	if !had && quiz.CanSubmit() {
		b.sendProgress(cb.Message.Chat.ID, quiz)
	}
}

// handleAnswerCommand records "/answer <n> <text>". The text after the
// separating space is stored exactly as typed.
func (b *Bot) handleAnswerCommand(chatID, userID int64, args string) {
	quiz := b.sessions.Get(userID).Quiz
	args = strings.TrimLeft(args, " ")
	num, text, found := strings.Cut(args, " ")
	n, err := strconv.Atoi(num)
	if !found || err != nil || text == "" {
		b.sendMessage(chatID, b.escapeIfNeeded("Usage: /answer <question number> <your answer>"))
		return
	}
	questions := quiz.Questions()
	if !quiz.Loaded() {
		b.sendMessage(chatID, b.escapeIfNeeded(failureText("", session.ErrNoQuiz)))
		return
	}
	if n < 1 || n > len(questions) {
		b.sendMessage(chatID, b.escapeIfNeeded(fmt.Sprintf("There is no question %d. The quiz has %d questions.", n, len(questions))))
		return
	}
	q := questions[n-1]
	_, had := quiz.AnswerOf(q.ID)
	if err := quiz.Answer(q.ID, text); err != nil {
		b.sendMessage(chatID, b.escapeIfNeeded(failureText("Could not save the answer.", err)))
		return
	}
	b.sendMessage(chatID, b.escapeIfNeeded(fmt.Sprintf("Saved your answer to question %d.", n)))
	if !had && quiz.CanSubmit() {
		b.sendProgress(chatID, quiz)
	}
}

func (b *Bot) handleProgress(chatID, userID int64) {
	quiz := b.sessions.Get(userID).Quiz
	if !quiz.Loaded() {
		b.sendMessage(chatID, b.escapeIfNeeded(failureText("", session.ErrNoQuiz)))
		return
	}
	b.sendProgress(chatID, quiz)
}

func (b *Bot) sendProgress(chatID int64, quiz *session.Quiz) {
	answered, total := quiz.AnsweredCount(), quiz.Total()
	text := b.escapeIfNeeded(fmt.Sprintf("Answered %d of %d (%s)", answered, total, formatPercent(quiz.Progress())))
	if res, ok := quiz.Score(); ok && quiz.State() == session.Submitted {
		text += "\n" + b.bold("Score: "+res.String())
	}
	if !quiz.CanSubmit() {
		b.sendMessage(chatID, text)
		return
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Submit quiz", fmt.Sprintf("%s%d", quizSubmit, quiz.Round())),
	))
	b.sendWithMarkup(chatID, text, kb)
}

func (b *Bot) handleQuizSubmit(cb *tgbotapi.CallbackQuery) {
	userID := cb.From.ID
	quiz := b.sessions.Get(userID).Quiz
	round, err := strconv.Atoi(strings.TrimPrefix(cb.Data, quizSubmit))
	if err != nil || round != quiz.Round() {
		b.answerCallback(cb, "This quiz was replaced. Use /quiz for a new one.")
		return
	}

	started := b.now()
	res, err := quiz.Submit()
	if err != nil {
		b.answerCallback(cb, failureText("Could not submit the quiz.", err))
		return
	}
	b.record(userID, storage.KindSubmit, started, nil)
	b.answerCallback(cb, "Score: "+res.String())
	b.editMessage(cb.Message.Chat.ID, cb.Message.MessageID, b.bold("Submitted. Score: "+res.String()), nil)
	b.sendLong(cb.Message.Chat.ID, b.renderReview(quiz))
}

// renderReview lists each question with the recorded and the correct answer.
func (b *Bot) renderReview(quiz *session.Quiz) string {
	var sb strings.Builder
	res, _ := quiz.Score()
	sb.WriteString(b.bold("Your score: " + res.String()))
	for i, q := range quiz.Questions() {
		answer, _ := quiz.AnswerOf(q.ID)
		mark := "❌"
		if session.IsCorrect(q, answer) {
			mark = "✅"
		}
		sb.WriteString("\n\n")
		sb.WriteString(b.escapeIfNeeded(fmt.Sprintf("%s %d. %s", mark, i+1, q.Prompt)))
		sb.WriteString("\n")
		sb.WriteString(b.escapeIfNeeded(fmt.Sprintf("Your answer: %s | Correct: %s", answer, q.CorrectAnswer.String())))
	}
	return sb.String()
}
