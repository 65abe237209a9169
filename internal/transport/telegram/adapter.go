// Package telegram delivers chat messages to the query pipeline and sends
// the replies back.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/semaphore"

	"product-query-router/internal/common/config"
	"product-query-router/internal/common/logger"
	"product-query-router/internal/models"
)

const Component = "telegram"

// Handler is the pipeline entry point the adapter drives.
type Handler interface {
	Handle(ctx context.Context, query models.Query) models.Response
	Welcome() models.Response
}

// Sender is the subset of the bot API used for replies.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Adapter long-polls for updates and handles each text message in its own
// goroutine, at most maxConcurrent at a time.
type Adapter struct {
	bot         *tgbotapi.BotAPI
	sender      Sender
	handler     Handler
	pollTimeout int
	sem         *semaphore.Weighted
	wg          sync.WaitGroup
	logger      logger.Logger
}

// New authorizes the bot token with the Telegram API.
func New(cfg config.TelegramConfig, maxConcurrent int, handler Handler, log logger.Logger) (*Adapter, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram token not configured")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	bot.Debug = cfg.Debug

	a := newAdapter(bot, handler, maxConcurrent, log)
	a.bot = bot
	a.pollTimeout = cfg.PollTimeout
	a.logger.Info("telegram bot authorized", map[string]interface{}{
		"username": bot.Self.UserName,
	})
	return a, nil
}

func newAdapter(sender Sender, handler Handler, maxConcurrent int, log logger.Logger) *Adapter {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Adapter{
		sender:  sender,
		handler: handler,
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		logger:  logger.ForComponent(log, Component),
	}
}

// Run receives updates until ctx is cancelled, then waits for in-flight
// messages. Their contexts are cancelled along with ctx.
func (a *Adapter) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = a.pollTimeout
	updates := a.bot.GetUpdatesChan(u)

	defer a.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			a.bot.StopReceivingUpdates()
			a.logger.Info("telegram adapter stopping", nil)
			return nil
		case update, ok := <-updates:
			if !ok {
				return errors.New("telegram update channel closed")
			}
			a.dispatch(ctx, update)
		}
	}
}

// dispatch blocks while all slots are busy, so a burst of updates is
// drained at the pipeline's pace.
func (a *Adapter) dispatch(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Text == "" || msg.Chat == nil {
		return
	}
	if err := a.sem.Acquire(ctx, 1); err != nil {
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.sem.Release(1)
		a.handleMessage(ctx, msg)
	}()
}

func (a *Adapter) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	log := a.logger.With(map[string]interface{}{"chatId": chatID})

	if msg.IsCommand() && msg.Command() == "start" {
		a.reply(chatID, a.handler.Welcome(), log)
		return
	}

	if _, err := a.sender.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		log.Debug("failed to send typing action", map[string]interface{}{"error": err.Error()})
	}

	var receivedAt time.Time
	if msg.Date > 0 {
		receivedAt = time.Unix(int64(msg.Date), 0).UTC()
	}
	resp := a.handler.Handle(ctx, models.NewQuery(msg.Text, strconv.FormatInt(chatID, 10), receivedAt))

	if ctx.Err() != nil {
		log.Info("dropping reply for cancelled query", nil)
		return
	}
	a.reply(chatID, resp, log)
}

func (a *Adapter) reply(chatID int64, resp models.Response, log logger.Logger) {
	for _, c := range buildMessages(chatID, resp) {
		_, err := a.sender.Send(c)
		if err == nil {
			continue
		}
		// Telegram rejects text whose Markdown does not parse; resend it plain.
		if text, ok := c.(tgbotapi.MessageConfig); ok && text.ParseMode != "" {
			text.ParseMode = ""
			text.Text = resp.Text
			if _, retryErr := a.sender.Send(text); retryErr == nil {
				continue
			}
		}
		log.Warn("failed to send reply", map[string]interface{}{"error": err.Error()})
	}
}

// buildMessages renders a Response as one Markdown text message followed
// by a photo per image reference. Link references are already in the text.
func buildMessages(chatID int64, resp models.Response) []tgbotapi.Chattable {
	text := tgbotapi.NewMessage(chatID, escapeMarkdown(resp.Text))
	text.ParseMode = tgbotapi.ModeMarkdown
	text.DisableWebPagePreview = true

	out := []tgbotapi.Chattable{text}
	for _, media := range resp.Media {
		if media.Kind != models.MediaImage || media.URL == "" {
			continue
		}
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(media.URL))
		photo.Caption = media.Title
		out = append(out, photo)
	}
	return out
}

var (
	markdownLink    = regexp.MustCompile(`\[[^\]\n]+\]\([^)\s]+\)`)
	markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")
)

// escapeMarkdown protects record text from being read as Telegram Markdown.
// Inline links are left intact so they stay clickable.
func escapeMarkdown(text string) string {
	var b strings.Builder
	last := 0
	for _, loc := range markdownLink.FindAllStringIndex(text, -1) {
		b.WriteString(markdownEscaper.Replace(text[last:loc[0]]))
		b.WriteString(text[loc[0]:loc[1]])
		last = loc[1]
	}
	b.WriteString(markdownEscaper.Replace(text[last:]))
	return b.String()
}
