// Package telegram runs the chat side of the attestation flow on the
// Telegram Bot API: commands, the deep-link start payload and the inline
// confirm keyboard, each translated into one orchestrator event.
package telegram

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Taump/attestation-telegram/internal/attest"
	"github.com/Taump/attestation-telegram/internal/identity"
	"github.com/Taump/attestation-telegram/internal/messages"
)

type Bot struct {
	api    *tgbotapi.BotAPI
	core   *attest.Orchestrator
	logger *slog.Logger
}

func New(log *slog.Logger, botToken string, core *attest.Orchestrator) (*Bot, error) {
	if log == nil {
		log = slog.Default()
	}
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	return &Bot{
		api:    api,
		core:   core,
		logger: log.With(slog.String("adapter", "telegram")),
	}, nil
}

// Username returns the bot's own username, used for t.me deep links.
func (b *Bot) Username() string {
	return b.api.Self.UserName
}

// Run polls for updates until the context is cancelled. Each update is
// handled on its own goroutine; a failure in one event never affects others.
func (b *Bot) Run(ctx context.Context) {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30
	updates := b.api.GetUpdatesChan(updateConfig)

	b.logger.Info("start", slog.String("username", b.Username()))
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("stop")
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				b.logger.Info("updates channel closed")
				return
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("update handler panicked", slog.Any("panic", r))
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	id := resolveSender(msg.From)
	chatID := msg.Chat.ID

	var (
		reply attest.Reply
		err   error
	)
	switch {
	case msg.IsCommand() && msg.Command() == "start":
		reply, err = b.core.HandleStart(ctx, id, msg.CommandArguments())
	case msg.IsCommand() && msg.Command() == "attest":
		reply, err = b.core.HandleAttest(ctx, id)
	case msg.IsCommand() && msg.Command() == "remove":
		reply, err = b.core.HandleRemove(ctx, id)
	case msg.IsCommand():
		return
	default:
		text := strings.TrimSpace(msg.Text)
		if text == "" {
			return
		}
		reply, err = b.core.HandleText(ctx, id, text)
	}
	b.deliver(chatID, reply, err)
}

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.logger.Warn("answer callback failed", slog.Any("error", err))
	}
	if query.Message != nil {
		// The confirm keyboard is one-shot; drop it once pressed.
		deleteMsg := tgbotapi.NewDeleteMessage(query.Message.Chat.ID, query.Message.MessageID)
		if _, err := b.api.Request(deleteMsg); err != nil {
			b.logger.Warn("delete keyboard failed", slog.Any("error", err))
		}
	}

	id := resolveSender(query.From)
	var (
		reply attest.Reply
		err   error
	)
	switch attest.Action(query.Data) {
	case attest.ActionConfirm:
		reply, err = b.core.HandleConfirm(ctx, id)
	case attest.ActionChange:
		reply, err = b.core.HandleRemove(ctx, id)
	default:
		b.logger.Warn("unknown callback action", slog.String("data", query.Data))
		return
	}
	if query.Message != nil {
		b.deliver(query.Message.Chat.ID, reply, err)
	}
}

// deliver renders the reply into chat messages. An internal error with no
// user-facing reply degrades to the generic failure text.
func (b *Bot) deliver(chatID int64, reply attest.Reply, err error) {
	if err != nil {
		b.logger.Error("event processing failed", slog.Int64("chat_id", chatID), slog.Any("error", err))
		if len(reply.Messages) == 0 {
			reply.Messages = append(reply.Messages, attest.Message{Text: messages.UnknownError})
		}
	}
	for _, m := range reply.Messages {
		out := tgbotapi.NewMessage(chatID, m.Text)
		if m.HTML {
			out.ParseMode = tgbotapi.ModeHTML
		}
		if markup, ok := renderMarkup(m.Buttons); ok {
			out.ReplyMarkup = markup
		}
		if _, err := b.api.Send(out); err != nil {
			b.logger.Error("send failed", slog.Int64("chat_id", chatID), slog.Any("error", err))
		}
	}
}

func renderMarkup(buttons []attest.Button) (tgbotapi.InlineKeyboardMarkup, bool) {
	if len(buttons) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, btn := range buttons {
		var rendered tgbotapi.InlineKeyboardButton
		if btn.URL != "" {
			rendered = tgbotapi.NewInlineKeyboardButtonURL(btn.Label, btn.URL)
		} else {
			rendered = tgbotapi.NewInlineKeyboardButtonData(btn.Label, string(btn.Action))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(rendered))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}

func resolveSender(user *tgbotapi.User) identity.Identity {
	if user == nil {
		return identity.Identity{}
	}
	return identity.Identity{
		UserID:   strconv.FormatInt(user.ID, 10),
		Username: strings.TrimSpace(user.UserName),
	}
}
