package telegram

import (
	"context"
	"strings"
	"time"

	"study-tutor/internal/session"
	"study-tutor/internal/storage"
)

func (b *Bot) handleAsk(ctx context.Context, chatID, userID int64, question string) {
	chat := b.sessions.Get(userID).Chat
	b.typing(chatID)

	started := b.now()
	turn, err := chat.Send(ctx, question)
	if !session.IsValidation(err) {
		b.record(userID, storage.KindAsk, started, err)
	}
	if err != nil {
		b.log.Warn("ask failed", "user_id", userID, "error", err)
		b.sendMessage(chatID, b.escapeIfNeeded(failureText("Failed to get an answer. Please try again.", err)))
		return
	}
	b.sendLong(chatID, b.renderAnswer(turn))
}

func (b *Bot) renderAnswer(turn session.Turn) string {
	var sb strings.Builder
	sb.WriteString(b.escapeIfNeeded(turn.Content))
	if turn.FromInternet() {
		sb.WriteString("\n\n")
		sb.WriteString(b.italic("🌐 Not found in your material, answered from the internet."))
	}
	var docs []string
	for _, s := range turn.Sources {
		if s != session.InternetSource {
			docs = append(docs, s)
		}
	}
	if len(docs) > 0 {
		sb.WriteString("\n\n")
		sb.WriteString(b.escapeIfNeeded("Sources: " + strings.Join(docs, ", ")))
	}
	return sb.String()
}

func (b *Bot) handleHistory(chatID, userID int64) {
	turns := b.sessions.Get(userID).Chat.Transcript()
	if len(turns) == 0 {
		b.sendMessage(chatID, b.escapeIfNeeded("The conversation is empty."))
		return
	}
	var sb strings.Builder
	for i, t := range turns {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		who := "You"
		if t.Role == session.RoleAssistant {
			who = "Tutor"
			if t.FromInternet() {
				who += " 🌐"
			}
		}
		sb.WriteString(b.bold(who + " " + t.Timestamp.Format(time.TimeOnly)))
		sb.WriteString("\n")
		sb.WriteString(b.escapeIfNeeded(t.Content))
	}
	if chat := b.sessions.Get(userID).Chat; chat.InFlight() {
		sb.WriteString("\n\n")
		sb.WriteString(b.italic("Waiting for an answer..."))
	}
	b.sendLong(chatID, sb.String())
}
