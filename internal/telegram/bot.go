package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"study-tutor/internal/access"
	"study-tutor/internal/backend"
	"study-tutor/internal/logger"
	"study-tutor/internal/session"
	"study-tutor/internal/storage"
)

type Options struct {
	AdminUserID    int64
	ParseMode      string
	MaxUploadBytes int64
}

type Bot struct {
	api         *tgbotapi.BotAPI
	s           sender
	log         *logger.Logger
	access      *access.Service
	sessions    *session.Store
	recorder    storage.Recorder
	httpClient  *http.Client
	adminUserID int64
	parseMode   string
	maxUpload   int64
	now         func() time.Time

	wg sync.WaitGroup
}

func New(botToken string, gw session.Gateway, accessSvc *access.Service, rec storage.Recorder, log *logger.Logger, opts Options) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("telegram api: %w", err)
	}
	b := newBot(botAPISender{api: api}, gw, accessSvc, rec, log, opts)
	b.api = api
	return b, nil
}

func newBot(s sender, gw session.Gateway, accessSvc *access.Service, rec storage.Recorder, log *logger.Logger, opts Options) *Bot {
	if log == nil {
		log = logger.Nop()
	}
	if rec == nil {
		rec = storage.Nop{}
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 20 << 20
	}
	return &Bot{
		s:           s,
		log:         log,
		access:      accessSvc,
		sessions:    session.NewStore(gw),
		recorder:    rec,
		httpClient:  &http.Client{Timeout: 2 * time.Minute},
		adminUserID: opts.AdminUserID,
		parseMode:   opts.ParseMode,
		maxUpload:   opts.MaxUploadBytes,
		now:         time.Now,
	}
}

// Start polls for updates until ctx is done. Every update runs on its own
// goroutine; the session components serialise what must not overlap.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.log.Info("bot started", "username", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.wg.Wait()
			return
		case update, ok := <-updates:
			if !ok {
				b.wg.Wait()
				return
			}
			b.wg.Add(1)
			go func(update tgbotapi.Update) {
				defer b.wg.Done()
				b.handleUpdate(ctx, update)
			}(update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("update handler panicked", "update_id", update.UpdateID, "panic", r)
		}
	}()
	switch {
	case update.Message != nil:
		b.handleIncomingMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) sendMessage(chatID int64, text string) {
	b.sendWithMarkup(chatID, text, nil)
}

// sendWithMarkup sends already formatted text; markup may be nil.
func (b *Bot) sendWithMarkup(chatID int64, text string, markup interface{}) (tgbotapi.Message, bool) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = b.parseModeValue()
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	sent, err := b.s.Send(msg)
	if err != nil {
		b.log.Warn("failed to send message", "chat_id", chatID, "error", err)
		return sent, false
	}
	return sent, true
}

func (b *Bot) editMessage(chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	var edit tgbotapi.EditMessageTextConfig
	if markup != nil {
		edit = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, *markup)
	} else {
		edit = tgbotapi.NewEditMessageText(chatID, messageID, text)
	}
	edit.ParseMode = b.parseModeValue()
	if _, err := b.s.Send(edit); err != nil {
		b.log.Warn("failed to edit message", "chat_id", chatID, "message_id", messageID, "error", err)
	}
}

func (b *Bot) answerCallback(cb *tgbotapi.CallbackQuery, text string) {
	if _, err := b.s.Request(tgbotapi.NewCallback(cb.ID, text)); err != nil {
		b.log.Debug("failed to answer callback", "error", err)
	}
}

func (b *Bot) typing(chatID int64) {
	_, _ = b.s.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))
}

// record appends one operation outcome to the interaction log.
func (b *Bot) record(userID int64, kind storage.Kind, started time.Time, err error) {
	ev := storage.Event{
		Timestamp: b.now().UTC(),
		UserID:    userID,
		Kind:      kind,
		OK:        err == nil,
		Duration:  b.now().Sub(started),
	}
	if err != nil {
		ev.Detail = errorDetail(err)
	}
	if rerr := b.recorder.AppendInteraction(ev); rerr != nil {
		b.log.Warn("failed to record interaction", "kind", kind, "error", rerr)
	}
}

// errorDetail is the short classification kept in the interaction log.
func errorDetail(err error) string {
	var se *backend.ServerError
	switch {
	case errors.As(err, &se):
		return fmt.Sprintf("server error %d", se.HTTPStatusCode())
	case backend.IsNetworkError(err):
		return "network error"
	case session.IsValidation(err):
		return err.Error()
	default:
		return "error"
	}
}
