package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"study-tutor/internal/access"
	"study-tutor/internal/analytics"
)

func (b *Bot) isAdmin(userID int64) bool {
	return b.adminUserID != 0 && userID == b.adminUserID
}

func (b *Bot) handleAdminCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if !b.isAdmin(msg.From.ID) {
		b.sendMessage(chatID, b.escapeIfNeeded("This command is available to the administrator only."))
		return
	}
	switch msg.Command() {
	case "allowlist":
		b.sendMessage(chatID, b.escapeIfNeeded(formatUsers("Allowlist", b.access.Allowed())))
	case "pending":
		b.sendMessage(chatID, b.escapeIfNeeded(formatUsers("Pending requests", b.access.Pending())))
	case "approve", "deny", "remove":
		uid, ok := parseUserID(msg.CommandArguments())
		if !ok {
			b.sendMessage(chatID, b.escapeIfNeeded(fmt.Sprintf("Usage: /%s <user_id>", msg.Command())))
			return
		}
		switch msg.Command() {
		case "approve":
			b.approveUser(uid)
		case "deny":
			b.denyUser(uid)
		case "remove":
			if err := b.access.Remove(uid); err != nil {
				b.sendMessage(chatID, b.escapeIfNeeded(fmt.Sprintf("Failed to remove user: %v", err)))
				return
			}
			b.sessions.Reset(uid)
			b.sendMessage(chatID, b.escapeIfNeeded(fmt.Sprintf("User %d removed from the allowlist.", uid)))
		}
	case "report":
		if err := b.generateDailyReport(ctx, chatID, b.now()); err != nil {
			b.log.Error("report generation failed", "error", err)
			b.sendMessage(chatID, b.escapeIfNeeded(fmt.Sprintf("Report generation failed: %v", err)))
		}
	}
}

func parseUserID(args string) (int64, bool) {
	fields := strings.Fields(args)
	if len(fields) != 1 {
		return 0, false
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	return id, err == nil
}

func formatUsers(title string, users []access.User) string {
	var sb strings.Builder
	sb.WriteString(title + ":")
	if len(users) == 0 {
		sb.WriteString(" none")
	}
	for _, u := range users {
		sb.WriteString(fmt.Sprintf("\n- id=%d", u.ID))
		if u.Username != "" {
			sb.WriteString(" @" + u.Username)
		}
		if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
			sb.WriteString(" " + name)
		}
	}
	return sb.String()
}

func (b *Bot) notifyAdminRequest(user access.User) {
	if b.adminUserID == 0 {
		return
	}
	who := strconv.FormatInt(user.ID, 10)
	if user.Username != "" {
		who = "@" + user.Username + " (" + who + ")"
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Approve", approvePrefix+strconv.FormatInt(user.ID, 10)),
			tgbotapi.NewInlineKeyboardButtonData("Deny", denyPrefix+strconv.FormatInt(user.ID, 10)),
		),
	)
	b.sendWithMarkup(b.adminUserID, b.escapeIfNeeded("User "+who+" wants to use the study tutor."), kb)
}

func (b *Bot) handleAccessCallback(cb *tgbotapi.CallbackQuery) {
	if !b.isAdmin(cb.From.ID) {
		b.answerCallback(cb, "Administrator only.")
		return
	}
	var (
		uid int64
		err error
	)
	if strings.HasPrefix(cb.Data, approvePrefix) {
		uid, err = strconv.ParseInt(strings.TrimPrefix(cb.Data, approvePrefix), 10, 64)
		if err == nil {
			b.approveUser(uid)
		}
	} else {
		uid, err = strconv.ParseInt(strings.TrimPrefix(cb.Data, denyPrefix), 10, 64)
		if err == nil {
			b.denyUser(uid)
		}
	}
	b.answerCallback(cb, "")
	if err == nil {
		// drop the buttons so the request cannot be decided twice
		b.editMessage(cb.Message.Chat.ID, cb.Message.MessageID, b.escapeIfNeeded(cb.Message.Text), nil)
	}
}

func (b *Bot) approveUser(uid int64) {
	u, err := b.access.Approve(uid)
	if errors.Is(err, access.ErrNotPending) {
		b.sendMessage(b.adminUserID, b.escapeIfNeeded(fmt.Sprintf("User %d has no pending request.", uid)))
		return
	}
	if err != nil {
		b.log.Error("approve failed", "user_id", uid, "error", err)
		b.sendMessage(b.adminUserID, b.escapeIfNeeded(fmt.Sprintf("Failed to approve %d: %v", uid, err)))
		return
	}
	b.log.Info("user approved", "user_id", uid, "username", u.Username)
	b.sendMessage(b.adminUserID, b.escapeIfNeeded(fmt.Sprintf("User %d approved.", uid)))
	b.sendWithMarkup(uid, b.escapeIfNeeded("Access granted! Use /help to get started."), b.menuKeyboard())
}

func (b *Bot) denyUser(uid int64) {
	_, err := b.access.Deny(uid)
	if errors.Is(err, access.ErrNotPending) {
		b.sendMessage(b.adminUserID, b.escapeIfNeeded(fmt.Sprintf("User %d has no pending request.", uid)))
		return
	}
	if err != nil {
		b.log.Error("deny failed", "user_id", uid, "error", err)
		b.sendMessage(b.adminUserID, b.escapeIfNeeded(fmt.Sprintf("Failed to deny %d: %v", uid, err)))
		return
	}
	b.log.Info("user denied", "user_id", uid)
	b.sendMessage(b.adminUserID, b.escapeIfNeeded(fmt.Sprintf("User %d denied.", uid)))
	b.sendMessage(uid, b.escapeIfNeeded("Your access request was declined."))
}

// SendDailyReport sends the current day's activity report to the admin.
// It is the scheduler's report function.
func (b *Bot) SendDailyReport(ctx context.Context) error {
	if b.adminUserID == 0 {
		return errors.New("admin user is not configured")
	}
	return b.generateDailyReport(ctx, b.adminUserID, b.now())
}

func (b *Bot) generateDailyReport(ctx context.Context, chatID int64, day time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	events, err := b.recorder.LoadInteractions()
	if err != nil {
		return fmt.Errorf("load interactions: %w", err)
	}
	stats := analytics.AnalyzeDailyLogs(events, day.UTC())
	b.log.Info("daily report generated", "date", stats.Date, "events", stats.TotalEvents, "users", stats.UniqueUsers)
	b.sendLong(chatID, b.escapeIfNeeded(stats.GenerateReportSummary()))
	return nil
}
