package escalation

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Vodeneev/oddsmerge/internal/pkg/models"
	"github.com/Vodeneev/oddsmerge/internal/resolver"
)

// botAPI is the part of *tgbotapi.BotAPI the escalator uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	StopReceivingUpdates()
}

// Telegram posts the conflicting rows to a chat with yes/no/exit buttons and
// waits for an operator to press one.
type Telegram struct {
	bot     botAPI
	chatID  int64
	updates tgbotapi.UpdatesChannel
}

var _ resolver.Escalator = (*Telegram)(nil)

// NewTelegram connects the bot and starts long polling for button presses.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	bot.Debug = false

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"callback_query"}

	slog.Info("Telegram escalation initialized", "chat_id", chatID, "bot", bot.Self.UserName)
	return newTelegram(bot, chatID, bot.GetUpdatesChan(u)), nil
}

func newTelegram(bot botAPI, chatID int64, updates tgbotapi.UpdatesChannel) *Telegram {
	return &Telegram{bot: bot, chatID: chatID, updates: updates}
}

func (t *Telegram) Escalate(ctx context.Context, rows []models.Comparison) (resolver.Decision, error) {
	msg := tgbotapi.NewMessage(t.chatID, "<pre>"+html.EscapeString(RenderTable(rows))+"</pre>\n"+html.EscapeString(Prompt))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Yes", "y"),
		tgbotapi.NewInlineKeyboardButtonData("No", "n"),
		tgbotapi.NewInlineKeyboardButtonData("Exit", "e"),
	))

	sent, err := t.bot.Send(msg)
	if err != nil {
		return resolver.Reject, fmt.Errorf("send escalation: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return resolver.Reject, ctx.Err()
		case upd, ok := <-t.updates:
			if !ok {
				return resolver.Abort, fmt.Errorf("telegram updates channel closed")
			}
			cb := upd.CallbackQuery
			if cb == nil || cb.Message == nil || cb.Message.MessageID != sent.MessageID ||
				cb.Message.Chat == nil || cb.Message.Chat.ID != t.chatID {
				continue
			}

			d, valid := parseAnswer(cb.Data)
			answer := "Invalid input"
			if valid {
				answer = d.String()
			}
			if _, err := t.bot.Request(tgbotapi.NewCallback(cb.ID, answer)); err != nil {
				slog.Warn("Failed to answer telegram callback", "error", err)
			}
			if !valid {
				continue
			}

			edit := tgbotapi.NewEditMessageText(t.chatID, sent.MessageID,
				"<pre>"+html.EscapeString(RenderTable(rows))+"</pre>\nDecision: "+d.String())
			edit.ParseMode = tgbotapi.ModeHTML
			if _, err := t.bot.Send(edit); err != nil {
				slog.Warn("Failed to update telegram escalation message", "error", err)
			}
			return d, nil
		}
	}
}

// Close stops long polling.
func (t *Telegram) Close() error {
	t.bot.StopReceivingUpdates()
	return nil
}
