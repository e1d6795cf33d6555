// Package telegram delivers notifications through the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	kit "statusbot/internal/transport"
	logx "statusbot/pkg/logx"
)

type Config struct {
	Token string
	// URL overrides the Bot API base URL; empty means api.telegram.org.
	URL string
	// Timeout bounds each Bot API call.
	Timeout time.Duration
}

// Adapter is a send-only Telegram client. It never polls for updates.
type Adapter struct {
	cfg Config
	log logx.Logger
	bot *tele.Bot
}

// New builds the bot client. telebot calls getMe here, so an invalid token or
// an unreachable Bot API fails construction.
func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		URL:    strings.TrimRight(cfg.URL, "/"),
		Client: &http.Client{Timeout: cfg.Timeout},
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	log.Debug("telegram bot ready", logx.String("username", b.Me.Username))
	return &Adapter{cfg: cfg, log: log, bot: b}, nil
}

// SendText sends text to the target, split into chunks Telegram accepts.
// The returned ref points at the first chunk.
func (a *Adapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	if opt == nil {
		opt = &kit.SendOptions{}
	}
	chat := &tele.Chat{ID: to.ChatID}

	var first kit.MessageRef
	for i, chunk := range splitText(text, textLimit, opt.ParseMode) {
		if ctx != nil {
			if err := ctx.Err(); err != nil {
				return first, err
			}
		}
		msg, err := a.bot.Send(chat, chunk, &tele.SendOptions{
			ParseMode:             opt.ParseMode,
			DisableWebPagePreview: opt.DisablePreview,
			ThreadID:              to.ThreadID,
		})
		if err != nil {
			return first, err
		}
		if i == 0 {
			first = kit.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID, MessageID: msg.ID}
		}
	}
	return first, nil
}

// ChatNotifier binds a Sender to one chat.
type ChatNotifier struct {
	Sender kit.Sender
	Target kit.ChatTarget
}

func (n ChatNotifier) Notify(ctx context.Context, text string) error {
	_, err := n.Sender.SendText(ctx, n.Target, text, &kit.SendOptions{DisablePreview: true})
	return err
}
