package telegram

import (
	"context"
	"errors"
	"testing"

	"github.com/darioluanne770968-prog/suno-clone/pkg/logger"
	"github.com/darioluanne770968-prog/suno-clone/pkg/music"
	tgbot "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBot struct {
	sent []tgbot.MessageConfig
	err  error
}

func (f *fakeBot) Send(c tgbot.Chattable) (tgbot.Message, error) {
	if f.err != nil {
		return tgbot.Message{}, f.err
	}
	f.sent = append(f.sent, c.(tgbot.MessageConfig))
	return tgbot.Message{MessageID: len(f.sent)}, nil
}

func TestNotify(t *testing.T) {
	bot := &fakeBot{}
	n := &Notifier{bot: bot, chat: 42, log: logger.OrNop(nil)}

	err := n.Notify(context.Background(), []music.Track{{Title: "Rain", Duration: 185, Genre: "lofi"}})
	require.NoError(t, err)
	require.Len(t, bot.sent, 1)
	assert.Equal(t, int64(42), bot.sent[0].ChatID)
	assert.Contains(t, bot.sent[0].Text, "Rain (3:05) - lofi")

	require.NoError(t, n.Notify(context.Background(), nil))
	assert.Len(t, bot.sent, 1)
}

func TestNotifyError(t *testing.T) {
	n := &Notifier{bot: &fakeBot{err: errors.New("forbidden")}, log: logger.OrNop(nil)}
	err := n.Notify(context.Background(), []music.Track{{Title: "Rain"}})
	assert.Error(t, err)
}
