package telegram

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"study-tutor/internal/session"
)

// Telegram rejects messages above this many characters.
const maxMessageLen = 4096

func (b *Bot) parseModeValue() string {
	switch strings.ToLower(strings.TrimSpace(b.parseMode)) {
	case "html":
		return tgbotapi.ModeHTML
	case "markdown":
		return tgbotapi.ModeMarkdown
	case "markdownv2":
		return tgbotapi.ModeMarkdownV2
	default:
		return ""
	}
}

// escapeIfNeeded makes user or backend text safe for the configured parse mode.
func (b *Bot) escapeIfNeeded(s string) string {
	mode := b.parseModeValue()
	if mode == "" {
		return s
	}
	return tgbotapi.EscapeText(mode, s)
}

// bold escapes s and wraps it in the parse mode's bold markup.
func (b *Bot) bold(s string) string {
	s = b.escapeIfNeeded(s)
	switch b.parseModeValue() {
	case tgbotapi.ModeHTML:
		return "<b>" + s + "</b>"
	case tgbotapi.ModeMarkdown, tgbotapi.ModeMarkdownV2:
		return "*" + s + "*"
	default:
		return s
	}
}

func (b *Bot) italic(s string) string {
	s = b.escapeIfNeeded(s)
	switch b.parseModeValue() {
	case tgbotapi.ModeHTML:
		return "<i>" + s + "</i>"
	case tgbotapi.ModeMarkdown, tgbotapi.ModeMarkdownV2:
		return "_" + s + "_"
	default:
		return s
	}
}

// sendLong splits formatted text so each part fits one message.
func (b *Bot) sendLong(chatID int64, text string) {
	for _, part := range splitMessage(text, maxMessageLen, b.parseModeValue()) {
		b.sendMessage(chatID, part)
	}
}

// messageLen counts UTF-16 code units, the unit Telegram measures text in.
// Markup is counted too, so the result never understates the limit.
func messageLen(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// splitMessage breaks text at line boundaries. A line longer than limit is cut
// between tokens: never inside a rune, an HTML tag or entity, or a Markdown
// escape, and with open formatting closed and reopened around the cut.
func splitMessage(text string, limit int, mode string) []string {
	if messageLen(text) <= limit {
		return []string{text}
	}
	var parts []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		if strings.TrimSpace(cur.String()) != "" {
			parts = append(parts, cur.String())
		}
		cur.Reset()
		curLen = 0
	}
	for _, line := range strings.SplitAfter(text, "\n") {
		n := messageLen(line)
		if curLen+n <= limit {
			cur.WriteString(line)
			curLen += n
			continue
		}
		flush()
		if n <= limit {
			cur.WriteString(line)
			curLen = n
			continue
		}
		chunks := splitLine(line, limit, mode)
		parts = append(parts, chunks[:len(chunks)-1]...)
		last := chunks[len(chunks)-1]
		cur.WriteString(last)
		curLen = messageLen(last)
	}
	flush()
	return parts
}

// markup is an open formatting element: its opening text and what closes it.
type markup struct{ open, close string }

func splitLine(line string, limit int, mode string) []string {
	var parts []string
	var cur strings.Builder
	curLen := 0
	var open []markup
	for _, tok := range tokenize(line, mode) {
		next := applyMarkup(open, tok, mode)
		tokLen := messageLen(tok)
		prefixLen := messageLen(openers(open))
		if curLen > prefixLen && curLen+tokLen+messageLen(closers(next)) > limit {
			cur.WriteString(closers(open))
			parts = append(parts, cur.String())
			cur.Reset()
			cur.WriteString(openers(open))
			curLen = prefixLen
		}
		cur.WriteString(tok)
		curLen += tokLen
		open = next
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}

// tokenize splits s into units that must not be cut.
func tokenize(s, mode string) []string {
	var toks []string
	for len(s) > 0 {
		n := tokenLen(s, mode)
		toks = append(toks, s[:n])
		s = s[n:]
	}
	return toks
}

func tokenLen(s, mode string) int {
	switch mode {
	case tgbotapi.ModeHTML:
		switch s[0] {
		case '<':
			if j := strings.IndexByte(s, '>'); j > 0 {
				return j + 1
			}
		case '&':
			if j := strings.IndexByte(s, ';'); j > 0 && j <= 10 {
				return j + 1
			}
		}
	case tgbotapi.ModeMarkdown, tgbotapi.ModeMarkdownV2:
		if s[0] == '\\' && len(s) > 1 {
			_, n := utf8.DecodeRuneInString(s[1:])
			return 1 + n
		}
	}
	_, n := utf8.DecodeRuneInString(s)
	return n
}

// applyMarkup returns the stack of open elements after tok.
func applyMarkup(open []markup, tok, mode string) []markup {
	switch mode {
	case tgbotapi.ModeHTML:
		if len(tok) < 3 || tok[0] != '<' {
			return open
		}
		if tok[1] == '/' {
			if len(open) == 0 {
				return open
			}
			return open[:len(open)-1 : len(open)-1]
		}
		name := strings.TrimSuffix(tok[1:], ">")
		if i := strings.IndexAny(name, " /"); i >= 0 {
			name = name[:i]
		}
		return append(open[:len(open):len(open)], markup{open: tok, close: "</" + name + ">"})
	case tgbotapi.ModeMarkdown, tgbotapi.ModeMarkdownV2:
		if tok != "*" && tok != "_" {
			return open
		}
		if len(open) > 0 && open[len(open)-1].open == tok {
			return open[:len(open)-1 : len(open)-1]
		}
		return append(open[:len(open):len(open)], markup{open: tok, close: tok})
	}
	return open
}

func openers(open []markup) string {
	var sb strings.Builder
	for _, m := range open {
		sb.WriteString(m.open)
	}
	return sb.String()
}

func closers(open []markup) string {
	var sb strings.Builder
	for i := len(open) - 1; i >= 0; i-- {
		sb.WriteString(open[i].close)
	}
	return sb.String()
}

// failureText turns an operation error into what the user sees. Backend
// failures collapse into the generic notice; local refusals get a hint.
func failureText(generic string, err error) string {
	switch {
	case errors.Is(err, session.ErrBusy):
		return "Still working on your previous request, please wait."
	case errors.Is(err, session.ErrEmptyQuestion):
		return "Please type a question first."
	case errors.Is(err, session.ErrNothingSelected):
		return "Nothing to upload. Send a document or set a link with /link <url> first."
	case errors.Is(err, session.ErrNoQuiz):
		return "There is no quiz yet. Use /quiz to generate one."
	case errors.Is(err, session.ErrUnknownQuestion):
		return "That question is not part of the current quiz."
	case errors.Is(err, session.ErrIncomplete):
		return "Answer every question before submitting."
	case errors.Is(err, session.ErrUnknownFile):
		return "That file is no longer in the list. Use /files to refresh."
	case errors.Is(err, session.ErrNotConfirmed):
		return "Deletion was not confirmed."
	case errors.Is(err, session.ErrNoSuchCard):
		return "That flashcard is not in the current deck."
	default:
		return generic
	}
}

func formatPercent(p float64) string {
	return fmt.Sprintf("%.0f%%", p)
}
