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

// Flip buttons per keyboard row.
const flipRowSize = 5

func (b *Bot) handleSummaries(ctx context.Context, chatID, userID int64) {
	study := b.sessions.Get(userID).Study
	b.sendMessage(chatID, b.italic("Summarising your material..."))

	started := b.now()
	err := study.GenerateSummaries(ctx)
	if !session.IsValidation(err) {
		b.record(userID, storage.KindSummary, started, err)
	}
	if err != nil {
		b.log.Warn("summary generation failed", "user_id", userID, "error", err)
		b.sendMessage(chatID, b.escapeIfNeeded(failureText("Failed to generate summaries.", err)))
		return
	}
	summaries := study.Summaries()
	if len(summaries) == 0 {
		b.sendMessage(chatID, b.escapeIfNeeded("No summaries yet. Upload some material first."))
		return
	}
	for _, s := range summaries {
		b.sendLong(chatID, b.renderSummary(s))
	}
}

func (b *Bot) renderSummary(s backend.SummaryEntry) string {
	var sb strings.Builder
	sb.WriteString(b.bold(s.Chapter))
	if s.Summary != "" {
		sb.WriteString("\n")
		sb.WriteString(b.escapeIfNeeded(s.Summary))
	}
	if len(s.KeyPoints) > 0 {
		sb.WriteString("\n\n")
		sb.WriteString(b.bold("Key points"))
		for _, p := range s.KeyPoints {
			sb.WriteString("\n")
			sb.WriteString(b.escapeIfNeeded("• " + p))
		}
	}
	return sb.String()
}

func (b *Bot) handleFlashcards(ctx context.Context, chatID, userID int64) {
	study := b.sessions.Get(userID).Study
	b.sendMessage(chatID, b.italic("Preparing flashcards..."))

	started := b.now()
	err := study.GenerateFlashcards(ctx)
	if !session.IsValidation(err) {
		b.record(userID, storage.KindFlashcards, started, err)
	}
	if err != nil {
		b.log.Warn("flashcard generation failed", "user_id", userID, "error", err)
		b.sendMessage(chatID, b.escapeIfNeeded(failureText("Failed to generate flashcards.", err)))
		return
	}
	if len(study.Flashcards()) == 0 {
		b.sendMessage(chatID, b.escapeIfNeeded("No flashcards yet. Upload some material first."))
		return
	}
	text, kb := b.renderDeck(study)
	b.sendWithMarkup(chatID, text, kb)
}

// renderDeck shows every front and the back of the one revealed card.
func (b *Bot) renderDeck(study *session.Study) (string, tgbotapi.InlineKeyboardMarkup) {
	cards := study.Flashcards()
	revealed, shown := study.Revealed()
	deck := study.Deck()

	var sb strings.Builder
	sb.WriteString(b.bold(fmt.Sprintf("Flashcards (%d)", len(cards))))
	sb.WriteString("\n")
	sb.WriteString(b.italic("Tap a number to flip that card."))

	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for i, c := range cards {
		sb.WriteString("\n\n")
		sb.WriteString(b.escapeIfNeeded(fmt.Sprintf("%d. %s", i+1, c.Front)))
		label := strconv.Itoa(i + 1)
		if shown && i == revealed {
			sb.WriteString("\n")
			sb.WriteString(b.bold("↳ " + c.Back))
			label = "🔄 " + label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("%s%d:%d", flipPrefix, deck, i)))
		if len(row) == flipRowSize {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return sb.String(), tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) handleFlip(cb *tgbotapi.CallbackQuery) {
	study := b.sessions.Get(cb.From.ID).Study
	deckStr, idxStr, ok := strings.Cut(strings.TrimPrefix(cb.Data, flipPrefix), ":")
	deck, err1 := strconv.Atoi(deckStr)
	i, err2 := strconv.Atoi(idxStr)
	if !ok || err1 != nil || err2 != nil {
		b.answerCallback(cb, "")
		return
	}
	if deck != study.Deck() {
		b.answerCallback(cb, "This deck was replaced. Use /flashcards for the current one.")
		return
	}
	if _, err := study.Flip(i); err != nil {
		b.answerCallback(cb, failureText("", err))
		return
	}
	b.answerCallback(cb, "")
	text, kb := b.renderDeck(study)
	b.editMessage(cb.Message.Chat.ID, cb.Message.MessageID, text, &kb)
}
