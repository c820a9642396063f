package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/darioluanne770968-prog/suno-clone/pkg/logger"
	"github.com/darioluanne770968-prog/suno-clone/pkg/music"
	"github.com/darioluanne770968-prog/suno-clone/pkg/notify"
	tgbot "github.com/go-telegram-bot-api/telegram-bot-api"
	"go.uber.org/zap"
)

var _ notify.Notifier = (*Notifier)(nil)

type sender interface {
	Send(c tgbot.Chattable) (tgbot.Message, error)
}

type Notifier struct {
	bot  sender
	chat int64
	log  *zap.Logger
}

type Config struct {
	Token  string
	Chat   int64
	Proxy  string
	Debug  bool
	Logger *zap.Logger
}

func New(cfg *Config) (*Notifier, error) {
	client := &http.Client{
		Timeout: 60 * time.Second,
	}
	if cfg.Proxy != "" {
		u, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("telegram: invalid proxy %s: %w", cfg.Proxy, err)
		}
		client.Transport = &http.Transport{
			Proxy: http.ProxyURL(u),
		}
	}
	bot, err := tgbot.NewBotAPIWithClient(cfg.Token, client)
	if err != nil {
		return nil, fmt.Errorf("telegram: couldn't create bot: %w", err)
	}
	bot.Debug = cfg.Debug
	return &Notifier{
		bot:  bot,
		chat: cfg.Chat,
		log:  logger.OrNop(cfg.Logger).Named("telegram"),
	}, nil
}

func (n *Notifier) Notify(ctx context.Context, tracks []music.Track) error {
	text := notify.Message(tracks)
	if text == "" {
		return nil
	}
	msg := tgbot.NewMessage(n.chat, text)
	msg.DisableWebPagePreview = true
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram: couldn't send message: %w", err)
	}
	n.log.Debug("notification sent", zap.Int64("chat", n.chat), zap.Int("tracks", len(tracks)))
	return nil
}
