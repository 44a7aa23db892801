package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"study-tutor/internal/access"
)

// Callback data prefixes. Telegram caps callback data at 64 bytes.
const (
	menuPrefix    = "menu:"
	quizPickPref  = "qa:"
	quizBoolPref  = "qt:"
	quizSubmit    = "qs:"
	flipPrefix    = "fc:"
	deletePrefix  = "fd:"
	deleteConfirm = "fy:"
	deleteCancel  = "fn:"
	approvePrefix = "approve:"
	denyPrefix    = "deny:"
)

const helpText = `Study tutor commands:
/ask <question> - ask about your material (or just type the question)
/history - show the conversation
/clear - clear the conversation
/link <url> - choose a link to ingest
/selection - show what will be uploaded
/upload - upload the selected document and link
/files - list uploaded files
/quiz - generate a quiz
/answer <n> <text> - answer question n
/progress - quiz progress
/summary - chapter summaries
/flashcards - flashcards
/reset - start over
Send a document to select it for upload.`

func (b *Bot) handleIncomingMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	if !b.access.IsAllowed(msg.From.ID) {
		b.handleUnauthorized(msg)
		return
	}
	b.log.Debug("incoming message", "user_id", msg.From.ID, "command", msg.Command(), "has_document", msg.Document != nil)

	switch {
	case msg.IsCommand():
		b.handleCommand(ctx, msg)
	case msg.Document != nil:
		b.handleDocument(ctx, msg)
	default:
		b.handleAsk(ctx, msg.Chat.ID, msg.From.ID, msg.Text)
	}
}

func (b *Bot) handleUnauthorized(msg *tgbotapi.Message) {
	b.log.Info("unauthorized access attempt", "user_id", msg.From.ID, "username", msg.From.UserName)
	user := access.User{ID: msg.From.ID, Username: msg.From.UserName, FirstName: msg.From.FirstName, LastName: msg.From.LastName}
	isNew, err := b.access.Request(user)
	if err != nil {
		b.log.Warn("failed to persist access request", "user_id", user.ID, "error", err)
	}
	if !isNew {
		b.sendMessage(msg.Chat.ID, b.escapeIfNeeded("Your access request is already with the administrator. You will be notified once it is approved."))
		return
	}
	b.sendMessage(msg.Chat.ID, b.escapeIfNeeded("Access request sent to the administrator. You will be notified once it is approved."))
	b.notifyAdminRequest(user)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID, userID := msg.Chat.ID, msg.From.ID
	args := msg.CommandArguments()

	switch msg.Command() {
	case "start":
		b.handleStart(ctx, chatID, userID)
	case "help":
		b.sendWithMarkup(chatID, b.escapeIfNeeded(helpText), b.menuKeyboard())
	case "ask":
		b.handleAsk(ctx, chatID, userID, args)
	case "clear":
		b.sessions.Get(userID).Chat.Clear()
		b.sendMessage(chatID, b.escapeIfNeeded("Conversation cleared."))
	case "history":
		b.handleHistory(chatID, userID)
	case "link":
		b.handleLink(chatID, userID, args)
	case "selection":
		b.handleSelection(chatID, userID)
	case "upload":
		b.handleUpload(ctx, chatID, userID)
	case "files":
		b.handleFiles(ctx, chatID, userID)
	case "quiz":
		b.handleQuiz(ctx, chatID, userID)
	case "answer":
		b.handleAnswerCommand(chatID, userID, args)
	case "progress":
		b.handleProgress(chatID, userID)
	case "summary":
		b.handleSummaries(ctx, chatID, userID)
	case "flashcards":
		b.handleFlashcards(ctx, chatID, userID)
	case "reset":
		b.sessions.Reset(userID)
		b.sendMessage(chatID, b.escapeIfNeeded("Session reset. Your chat, quiz, study materials and upload selection were discarded."))
	case "allowlist", "pending", "approve", "deny", "remove", "report":
		b.handleAdminCommand(ctx, msg)
	default:
		b.sendMessage(chatID, b.escapeIfNeeded("Unknown command. Use /help to see what I can do."))
	}
}

func (b *Bot) handleStart(ctx context.Context, chatID, userID int64) {
	sess := b.sessions.Get(userID)
	// First contact loads the registry once; later refreshes follow mutations or /files.
	if err := sess.Files.Init(ctx); err != nil {
		b.log.Warn("initial file list failed", "user_id", userID, "error", err)
	}
	text := b.bold("Welcome to the study tutor!") + "\n\n" +
		b.escapeIfNeeded("Upload your course material, then ask questions, take quizzes and review summaries or flashcards.")
	if sess.Files.Initialized() {
		text += "\n\n" + b.escapeIfNeeded(filesCountLine(len(sess.Files.Files())))
	}
	b.sendWithMarkup(chatID, text, b.menuKeyboard())
}

func (b *Bot) menuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Quiz", menuPrefix+"quiz"),
			tgbotapi.NewInlineKeyboardButtonData("Summaries", menuPrefix+"summary"),
			tgbotapi.NewInlineKeyboardButtonData("Flashcards", menuPrefix+"flashcards"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Files", menuPrefix+"files"),
			tgbotapi.NewInlineKeyboardButtonData("Clear chat", menuPrefix+"clear"),
		),
	)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.From == nil || cb.Message == nil {
		return
	}
	data := cb.Data
	if strings.HasPrefix(data, approvePrefix) || strings.HasPrefix(data, denyPrefix) {
		b.handleAccessCallback(cb)
		return
	}
	if !b.access.IsAllowed(cb.From.ID) {
		b.answerCallback(cb, "Access not granted yet.")
		return
	}

	chatID, userID := cb.Message.Chat.ID, cb.From.ID
	switch {
	case strings.HasPrefix(data, menuPrefix):
		b.answerCallback(cb, "")
		switch strings.TrimPrefix(data, menuPrefix) {
		case "quiz":
			b.handleQuiz(ctx, chatID, userID)
		case "summary":
			b.handleSummaries(ctx, chatID, userID)
		case "flashcards":
			b.handleFlashcards(ctx, chatID, userID)
		case "files":
			b.handleFiles(ctx, chatID, userID)
		case "clear":
			b.sessions.Get(userID).Chat.Clear()
			b.sendMessage(chatID, b.escapeIfNeeded("Conversation cleared."))
		}
	case strings.HasPrefix(data, quizPickPref), strings.HasPrefix(data, quizBoolPref):
		b.handleQuizPick(cb)
	case strings.HasPrefix(data, quizSubmit):
		b.handleQuizSubmit(cb)
	case strings.HasPrefix(data, flipPrefix):
		b.handleFlip(cb)
	case strings.HasPrefix(data, deletePrefix):
		b.handleDeleteRequest(cb)
	case strings.HasPrefix(data, deleteConfirm):
		b.handleDeleteConfirm(ctx, cb)
	case strings.HasPrefix(data, deleteCancel):
		b.handleDeleteCancel(cb)
	default:
		b.answerCallback(cb, "")
	}
}
