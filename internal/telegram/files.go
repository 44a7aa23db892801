package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"study-tutor/internal/backend"
	"study-tutor/internal/session"
	"study-tutor/internal/storage"
)

var errTooLarge = errors.New("document exceeds the upload limit")

func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func filesCountLine(n int) string {
	switch n {
	case 0:
		return "No files uploaded yet."
	case 1:
		return "1 file uploaded."
	default:
		return fmt.Sprintf("%d files uploaded.", n)
	}
}

// handleDocument selects an incoming document for the next upload.
func (b *Bot) handleDocument(ctx context.Context, msg *tgbotapi.Message) {
	doc := msg.Document
	if int64(doc.FileSize) > b.maxUpload {
		b.sendMessage(msg.Chat.ID, b.escapeIfNeeded(fmt.Sprintf("%s is too large (limit %s).", doc.FileName, formatSize(b.maxUpload))))
		return
	}
	content, err := b.downloadDocument(ctx, doc.FileID)
	if err != nil {
		b.log.Warn("document download failed", "user_id", msg.From.ID, "file", doc.FileName, "error", err)
		if errors.Is(err, errTooLarge) {
			b.sendMessage(msg.Chat.ID, b.escapeIfNeeded(fmt.Sprintf("%s is too large (limit %s).", doc.FileName, formatSize(b.maxUpload))))
			return
		}
		b.sendMessage(msg.Chat.ID, b.escapeIfNeeded("Failed to receive the document. Please send it again."))
		return
	}
	name := doc.FileName
	if name == "" {
		name = doc.FileUniqueID
	}
	upload := b.sessions.Get(msg.From.ID).Upload
	upload.SelectFile(name, content)
	if link := strings.TrimSpace(msg.Caption); strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
		upload.SetLink(link)
	}
	b.sendMessage(msg.Chat.ID, b.renderSelection(upload.Selection())+"\n\n"+b.escapeIfNeeded("Send /upload to ingest it."))
}

func (b *Bot) downloadDocument(ctx context.Context, fileID string) ([]byte, error) {
	url, err := b.s.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("resolve file url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, b.maxUpload+1))
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if int64(len(data)) > b.maxUpload {
		return nil, errTooLarge
	}
	return data, nil
}

func (b *Bot) handleLink(chatID, userID int64, args string) {
	upload := b.sessions.Get(userID).Upload
	if strings.TrimSpace(args) == "" {
		upload.SetLink("")
		b.sendMessage(chatID, b.escapeIfNeeded("Link cleared. Usage: /link <url>"))
		return
	}
	upload.SetLink(args)
	b.sendMessage(chatID, b.renderSelection(upload.Selection())+"\n\n"+b.escapeIfNeeded("Send /upload to ingest it."))
}

func (b *Bot) handleSelection(chatID, userID int64) {
	b.sendMessage(chatID, b.renderSelection(b.sessions.Get(userID).Upload.Selection()))
}

func (b *Bot) renderSelection(sel session.Selection) string {
	if sel.Empty() {
		return b.escapeIfNeeded("Nothing selected. Send a document or use /link <url>.")
	}
	var sb strings.Builder
	sb.WriteString(b.bold("Selected for upload"))
	if sel.File != nil {
		sb.WriteString("\n")
		sb.WriteString(b.escapeIfNeeded(fmt.Sprintf("📄 %s (%s)", sel.File.Name, formatSize(int64(len(sel.File.Content))))))
	}
	if strings.TrimSpace(sel.Link) != "" {
		sb.WriteString("\n")
		sb.WriteString(b.escapeIfNeeded("🔗 " + sel.Link))
	}
	return sb.String()
}

func (b *Bot) handleUpload(ctx context.Context, chatID, userID int64) {
	sess := b.sessions.Get(userID)
	if !sess.Upload.Selection().Empty() {
		b.sendMessage(chatID, b.italic("Uploading..."))
	}

	started := b.now()
	err := sess.Upload.Submit(ctx)
	if !session.IsValidation(err) {
		recErr := err
		if errors.Is(err, session.ErrRefreshFailed) {
			recErr = nil
		}
		b.record(userID, storage.KindUpload, started, recErr)
	}
	switch {
	case errors.Is(err, session.ErrRefreshFailed):
		b.log.Warn("file list refresh after upload failed", "user_id", userID, "error", err)
		b.sendMessage(chatID, b.escapeIfNeeded("Uploaded, but the file list could not be refreshed. Use /files to try again."))
	case err != nil:
		b.log.Warn("upload failed", "user_id", userID, "error", err)
		b.sendMessage(chatID, b.escapeIfNeeded(failureText("Failed to upload. Your selection is kept, try /upload again.", err)))
	default:
		b.sendMessage(chatID, b.escapeIfNeeded("Uploaded. "+filesCountLine(len(sess.Files.Files()))))
	}
}

func (b *Bot) handleFiles(ctx context.Context, chatID, userID int64) {
	reg := b.sessions.Get(userID).Files
	started := b.now()
	err := reg.Refresh(ctx)
	b.record(userID, storage.KindFiles, started, err)
	if err != nil {
		b.log.Warn("file list failed", "user_id", userID, "error", err)
		if !reg.Initialized() {
			b.sendMessage(chatID, b.escapeIfNeeded("Failed to load files."))
			return
		}
		b.sendMessage(chatID, b.escapeIfNeeded("Failed to refresh files. Showing the last known list."))
	}
	text, kb := b.renderFiles(reg.Snapshot())
	if kb == nil {
		b.sendMessage(chatID, text)
		return
	}
	b.sendWithMarkup(chatID, text, *kb)
}

// renderFiles lists files with one delete button each. Buttons carry the
// listing generation so a press on an older listing is refused.
func (b *Bot) renderFiles(files []backend.FileRecord, gen uint64) (string, *tgbotapi.InlineKeyboardMarkup) {
	if len(files) == 0 {
		return b.escapeIfNeeded(filesCountLine(0)), nil
	}
	var sb strings.Builder
	sb.WriteString(b.bold("Your files"))
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(files))
	for i, f := range files {
		sb.WriteString("\n")
		sb.WriteString(b.escapeIfNeeded(fmt.Sprintf("%d. %s · %s · %s", i+1, f.Title, f.Subject, f.Date)))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 "+f.Title, fmt.Sprintf("%s%d:%d", deletePrefix, gen, i)),
		))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return sb.String(), &kb
}

// handleDeleteRequest asks for confirmation before anything is sent to the backend.
func (b *Bot) handleDeleteRequest(cb *tgbotapi.CallbackQuery) {
	reg := b.sessions.Get(cb.From.ID).Files
	genStr, idxStr, ok := strings.Cut(strings.TrimPrefix(cb.Data, deletePrefix), ":")
	gen, err1 := strconv.ParseUint(genStr, 10, 64)
	i, err2 := strconv.Atoi(idxStr)
	if !ok || err1 != nil || err2 != nil {
		b.answerCallback(cb, "")
		return
	}
	files, current := reg.Snapshot()
	if gen != current {
		b.answerCallback(cb, "The file list changed. Use /files for the current one.")
		return
	}
	if i < 0 || i >= len(files) {
		b.answerCallback(cb, failureText("", session.ErrUnknownFile))
		return
	}
	title := files[i].Title
	token, err := reg.RequestDelete(title)
	if err != nil {
		b.answerCallback(cb, failureText("", err))
		return
	}
	b.answerCallback(cb, "")
	kb := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Delete", fmt.Sprintf("%s%d", deleteConfirm, token)),
		tgbotapi.NewInlineKeyboardButtonData("Cancel", fmt.Sprintf("%s%d", deleteCancel, token)),
	))
	b.sendWithMarkup(cb.Message.Chat.ID, b.escapeIfNeeded("Delete ")+b.bold(title)+b.escapeIfNeeded("? This cannot be undone."), kb)
}

// parseDeleteToken reads the confirmation token after prefix.
func parseDeleteToken(data, prefix string) (uint64, bool) {
	token, err := strconv.ParseUint(strings.TrimPrefix(data, prefix), 10, 64)
	return token, err == nil
}

func (b *Bot) handleDeleteConfirm(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	userID, chatID := cb.From.ID, cb.Message.Chat.ID
	reg := b.sessions.Get(userID).Files
	token, ok := parseDeleteToken(cb.Data, deleteConfirm)
	if !ok {
		b.answerCallback(cb, "")
		return
	}
	title, pendingToken, pending := reg.PendingDelete()
	if !pending || pendingToken != token {
		b.answerCallback(cb, failureText("", session.ErrNotConfirmed))
		b.editMessage(chatID, cb.Message.MessageID, b.escapeIfNeeded("This deletion request is no longer active."), nil)
		return
	}
	b.answerCallback(cb, "Deleting...")

	started := b.now()
	err := reg.ConfirmDelete(ctx, title, token)
	if !session.IsValidation(err) {
		recErr := err
		if errors.Is(err, session.ErrRefreshFailed) {
			recErr = nil
		}
		b.record(userID, storage.KindDelete, started, recErr)
	}
	switch {
	case errors.Is(err, session.ErrRefreshFailed):
		b.editMessage(chatID, cb.Message.MessageID, b.escapeIfNeeded("Deleted "+title+", but the file list could not be refreshed."), nil)
	case err != nil:
		b.log.Warn("delete failed", "user_id", userID, "title", title, "error", err)
		b.editMessage(chatID, cb.Message.MessageID, b.escapeIfNeeded(failureText("Failed to delete "+title+".", err)), nil)
	default:
		b.editMessage(chatID, cb.Message.MessageID, b.escapeIfNeeded("Deleted "+title+". "+filesCountLine(len(reg.Files()))), nil)
	}
}

func (b *Bot) handleDeleteCancel(cb *tgbotapi.CallbackQuery) {
	token, ok := parseDeleteToken(cb.Data, deleteCancel)
	if !ok || !b.sessions.Get(cb.From.ID).Files.CancelDelete(token) {
		b.answerCallback(cb, "")
		b.editMessage(cb.Message.Chat.ID, cb.Message.MessageID, b.escapeIfNeeded("This deletion request is no longer active."), nil)
		return
	}
	b.answerCallback(cb, "Cancelled")
	b.editMessage(cb.Message.Chat.ID, cb.Message.MessageID, b.escapeIfNeeded("Deletion cancelled."), nil)
}
