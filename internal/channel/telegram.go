package channel

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"pastebot/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	telegramMaxMsgLen      = 4000
	telegramMaxSendRetries = 3
	telegramFileTimeout    = 2 * time.Minute
)

// Telegram implements domain.Channel for the Telegram Bot API. It also
// implements domain.FileSource: attachments are fetched through getFile
// plus an HTTPS download of the resolved storage path.
type Telegram struct {
	token     string
	parseMode string

	bot        *tgbotapi.BotAPI
	bus        domain.MessageBus
	fileClient *http.Client
	logger     *slog.Logger
}

type TelegramConfig struct {
	Token     string
	ParseMode string
	Logger    *slog.Logger
}

func NewTelegram(cfg TelegramConfig) *Telegram {
	return &Telegram{
		token:      cfg.Token,
		parseMode:  cfg.ParseMode,
		fileClient: &http.Client{Timeout: telegramFileTimeout},
		logger:     cfg.Logger,
	}
}

func (t *Telegram) Name() string { return "telegram" }

// Start connects to Telegram and begins polling for updates.
func (t *Telegram) Start(ctx context.Context, bus domain.MessageBus) error {
	t.bus = bus

	bot, err := tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}
	t.bot = bot
	t.logger.Info("telegram bot connected",
		"username", bot.Self.UserName,
		"id", bot.Self.ID,
	)

	bus.OnOutbound("telegram", func(msg domain.OutboundMessage) {
		chatID, err := strconv.ParseInt(msg.ChatID, 10, 64)
		if err != nil {
			t.logger.Error("invalid chat ID for telegram outbound", "chatID", msg.ChatID, "err", err)
			return
		}
		t.sendMessage(chatID, msg.ReplyTo, msg.Content)
	})

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := bot.GetUpdatesChan(u)

	t.logger.Info("telegram polling started")

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("telegram channel stopping")
			bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			t.handleUpdate(update)
		}
	}
}

// Stop is a no-op: the bot stops when Start's context is cancelled.
// StopReceivingUpdates panics when called twice.
func (t *Telegram) Stop() error { return nil }

// handleUpdate converts one Telegram update into a domain.InboundMessage.
// No access decisions happen here; the dispatcher owns the gate.
func (t *Telegram) handleUpdate(update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return
	}

	in := domain.InboundMessage{
		Channel:   "telegram",
		ChatID:    strconv.FormatInt(msg.Chat.ID, 10),
		MessageID: msg.MessageID,
		SenderID:  strconv.FormatInt(msg.From.ID, 10),
		Text:      msg.Text,
		Timestamp: time.Unix(int64(msg.Date), 0),
	}
	if msg.IsCommand() {
		in.Command = msg.Command()
	}
	in.Attachments = attachmentsFrom(msg)
	in.Entities = entitiesFrom(msg.Text, msg.Entities)

	if in.Command == "" && len(in.Attachments) == 0 && len(in.Entities) == 0 {
		// Plain chatter the bot has no handler for.
		return
	}

	t.logger.Info("telegram message received",
		"chat_id", in.ChatID,
		"command", in.Command,
		"entities", len(in.Entities),
		"attachments", len(in.Attachments),
	)

	t.bus.Publish(in)
}

// attachmentsFrom maps a Telegram message onto the attachment tagged union.
// A photo arrives as multiple renditions of the same image; only the
// highest-resolution one is forwarded, so one photo yields one upload.
// Media kinds without an upload path (stickers, video notes, animations)
// are forwarded as unknown so the coordinator reports them as unsupported.
func attachmentsFrom(m *tgbotapi.Message) []domain.Attachment {
	switch {
	case m.Document != nil:
		return []domain.Attachment{{
			Kind:     domain.AttachmentDocument,
			FileID:   m.Document.FileID,
			FileName: m.Document.FileName,
			FileSize: int64(m.Document.FileSize),
		}}
	case len(m.Photo) > 0:
		best := m.Photo[0]
		for _, s := range m.Photo[1:] {
			if s.Width*s.Height > best.Width*best.Height {
				best = s
			}
		}
		return []domain.Attachment{{
			Kind:     domain.AttachmentPhoto,
			FileID:   best.FileID,
			FileSize: int64(best.FileSize),
		}}
	case m.Audio != nil:
		return []domain.Attachment{{
			Kind:     domain.AttachmentAudio,
			FileID:   m.Audio.FileID,
			FileSize: int64(m.Audio.FileSize),
		}}
	case m.Video != nil:
		return []domain.Attachment{{
			Kind:     domain.AttachmentVideo,
			FileID:   m.Video.FileID,
			FileSize: int64(m.Video.FileSize),
		}}
	case m.Voice != nil:
		return []domain.Attachment{{
			Kind:     domain.AttachmentVoice,
			FileID:   m.Voice.FileID,
			FileSize: int64(m.Voice.FileSize),
		}}
	case m.Sticker != nil:
		return []domain.Attachment{{
			Kind:   domain.AttachmentUnknown,
			FileID: m.Sticker.FileID,
		}}
	case m.Animation != nil:
		return []domain.Attachment{{
			Kind:   domain.AttachmentUnknown,
			FileID: m.Animation.FileID,
		}}
	case m.VideoNote != nil:
		return []domain.Attachment{{
			Kind:   domain.AttachmentUnknown,
			FileID: m.VideoNote.FileID,
		}}
	}
	return nil
}

// entitiesFrom converts Telegram's UTF-16 code-unit entity spans into byte
// spans over text, keeping only the link-bearing kinds.
func entitiesFrom(text string, entities []tgbotapi.MessageEntity) []domain.Entity {
	var out []domain.Entity
	for _, e := range entities {
		var kind domain.EntityKind
		switch e.Type {
		case "url":
			kind = domain.EntityURL
		case "text_link":
			kind = domain.EntityTextLink
		default:
			continue
		}
		start, end, ok := utf16Span(text, e.Offset, e.Length)
		if !ok {
			continue
		}
		out = append(out, domain.Entity{
			Kind:   kind,
			Offset: start,
			Length: end - start,
			URL:    e.URL,
		})
	}
	return out
}

// utf16Span translates a UTF-16 code-unit span into byte indexes of text.
// Returns ok=false when the span does not align with rune boundaries or
// falls outside the text.
func utf16Span(text string, offset, length int) (int, int, bool) {
	start, end := -1, -1
	units := 0
	for i, r := range text {
		if units == offset && start < 0 {
			start = i
		}
		if units == offset+length {
			end = i
			break
		}
		units += len(utf16.Encode([]rune{r}))
	}
	if start < 0 && units == offset {
		start = len(text)
	}
	if end < 0 && units == offset+length {
		end = len(text)
	}
	if start < 0 || end < 0 || end < start {
		return 0, 0, false
	}
	return start, end, true
}

// Open implements domain.FileSource: resolves the file ID into the remote
// storage path and streams the file body.
func (t *Telegram) Open(ctx context.Context, fileID string) (io.ReadCloser, string, error) {
	file, err := t.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, "", fmt.Errorf("telegram getFile: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(t.token), nil)
	if err != nil {
		return nil, "", fmt.Errorf("create download request: %w", err)
	}

	resp, err := t.fileClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download telegram file: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, "", fmt.Errorf("download telegram file: status %d", resp.StatusCode)
	}

	return resp.Body, file.FilePath, nil
}

// sendMessage chunks long texts; Telegram caps messages at 4096 chars.
// Only the first chunk carries the reply reference.
func (t *Telegram) sendMessage(chatID int64, replyTo int, text string) {
	first := true
	for len(text) > 0 {
		chunk := text
		if len(chunk) > telegramMaxMsgLen {
			cutAt := strings.LastIndex(chunk[:telegramMaxMsgLen], "\n")
			if cutAt < telegramMaxMsgLen/2 {
				cutAt = telegramMaxMsgLen
			}
			chunk = text[:cutAt]
			text = text[cutAt:]
		} else {
			text = ""
		}

		rt := 0
		if first {
			rt = replyTo
			first = false
		}
		t.sendChunk(chatID, rt, chunk)
	}
}

// sendChunk sends a single message with retry and rate limit handling.
func (t *Telegram) sendChunk(chatID int64, replyTo int, text string) {
	for attempt := 0; attempt <= telegramMaxSendRetries; attempt++ {
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ReplyToMessageID = replyTo
		if attempt == 0 && t.parseMode != "" {
			msg.ParseMode = t.parseMode
		}

		_, err := t.bot.Send(msg)
		if err == nil {
			return
		}

		errStr := err.Error()

		// Telegram rate limiting (HTTP 429).
		if strings.Contains(errStr, "Too Many Requests") || strings.Contains(errStr, "429") {
			retryAfter := time.Duration(attempt+1) * 3 * time.Second
			t.logger.Warn("telegram rate limited, backing off",
				"retry_after", retryAfter, "attempt", attempt+1,
			)
			time.Sleep(retryAfter)
			continue
		}

		// Parse-mode error on first attempt: retry immediately as plain text.
		if attempt == 0 && msg.ParseMode != "" && strings.Contains(errStr, "can't parse entities") {
			plainMsg := tgbotapi.NewMessage(chatID, text)
			plainMsg.ReplyToMessageID = replyTo
			if _, err2 := t.bot.Send(plainMsg); err2 == nil {
				return
			}
		}

		if attempt < telegramMaxSendRetries {
			backoff := time.Duration(attempt+1) * time.Second
			t.logger.Warn("telegram send error, retrying", "err", err, "backoff", backoff)
			time.Sleep(backoff)
			continue
		}

		t.logger.Error("telegram send failed after retries", "err", err, "attempts", telegramMaxSendRetries+1)
	}
}
