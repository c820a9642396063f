package tgstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/darioluanne770968-prog/suno-clone/pkg/logger"
	tgbot "github.com/go-telegram-bot-api/telegram-bot-api"
	"go.uber.org/zap"
)

// Refs records where each uploaded file lives.
type Refs interface {
	GetFileRef(ctx context.Context, id string) (string, error)
	SetFileRef(ctx context.Context, id, ref string) error
}

// Store keeps files as documents of a telegram chat.
type Store struct {
	bot    *tgbot.BotAPI
	chat   int64
	client *http.Client
	refs   Refs
	log    *zap.Logger
}

func New(bot *tgbot.BotAPI, chat int64, client *http.Client, refs Refs, log *zap.Logger) (*Store, error) {
	if _, err := bot.GetChat(tgbot.ChatConfig{ChatID: chat}); err != nil {
		return nil, fmt.Errorf("tgstore: invalid chat id: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &Store{
		bot:    bot,
		chat:   chat,
		client: client,
		refs:   refs,
		log:    logger.OrNop(log).Named("tgstore"),
	}, nil
}

var backoff = []time.Duration{
	15 * time.Second,
	30 * time.Second,
	1 * time.Minute,
}

// retry calls fn up to three times with backoff between attempts.
func (s *Store) retry(ctx context.Context, op string, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if attempt+1 >= len(backoff) {
			return err
		}
		wait := backoff[attempt]
		s.log.Warn("retrying", zap.String("op", op), zap.Duration("wait", wait), zap.Error(err))
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("tgstore: %s cancelled: %w", op, ctx.Err())
		case <-t.C:
		}
	}
}

func (s *Store) Upload(ctx context.Context, path, name string) error {
	doc := tgbot.NewDocumentUpload(s.chat, path)
	var msg tgbot.Message
	if err := s.retry(ctx, "upload", func() error {
		var err error
		msg, err = s.bot.Send(doc)
		return err
	}); err != nil {
		return fmt.Errorf("tgstore: couldn't send file: %w", err)
	}
	fileID := fileOf(msg)
	if fileID == "" {
		return fmt.Errorf("tgstore: message %d doesn't contain a file", msg.MessageID)
	}
	if err := s.refs.SetFileRef(ctx, name, toRef(s.chat, msg.MessageID, fileID)); err != nil {
		return fmt.Errorf("tgstore: couldn't set file %s: %w", name, err)
	}
	return nil
}

func fileOf(msg tgbot.Message) string {
	switch {
	case msg.Audio != nil && msg.Audio.FileID != "":
		return msg.Audio.FileID
	case msg.Document != nil && msg.Document.FileID != "":
		return msg.Document.FileID
	case msg.Photo != nil && len(*msg.Photo) > 0:
		return (*msg.Photo)[0].FileID
	}
	return ""
}

func (s *Store) Download(ctx context.Context, path, name string) error {
	ref, err := s.refs.GetFileRef(ctx, name)
	if err != nil {
		return fmt.Errorf("tgstore: couldn't get file %s: %w", name, err)
	}
	_, _, fileID, err := fromRef(ref)
	if err != nil {
		return err
	}
	file, err := s.bot.GetFile(tgbot.FileConfig{FileID: fileID})
	if err != nil {
		return fmt.Errorf("tgstore: couldn't get file: %w", err)
	}
	u := file.Link(s.bot.Token)

	var b []byte
	if err := s.retry(ctx, "download", func() error {
		var err error
		b, err = s.download(ctx, u)
		return err
	}); err != nil {
		return fmt.Errorf("tgstore: couldn't download %s: %w", name, err)
	}
	if err := os.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("tgstore: couldn't write %s: %w", path, err)
	}
	return nil
}

func (s *Store) download(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (s *Store) Delete(ctx context.Context, name string) error {
	ref, err := s.refs.GetFileRef(ctx, name)
	if err != nil {
		return fmt.Errorf("tgstore: couldn't get file %s: %w", name, err)
	}
	chat, msgID, _, err := fromRef(ref)
	if err != nil {
		return err
	}
	if _, err = s.bot.DeleteMessage(tgbot.DeleteMessageConfig{
		ChatID:    chat,
		MessageID: msgID,
	}); err != nil {
		return fmt.Errorf("tgstore: couldn't delete message: %w", err)
	}
	return nil
}

func toRef(chat int64, msgID int, fileID string) string {
	return fmt.Sprintf("%d/%d/%s", chat, msgID, fileID)
}

func fromRef(ref string) (int64, int, string, error) {
	split := strings.Split(ref, "/")
	if len(split) != 3 || split[2] == "" {
		return 0, 0, "", fmt.Errorf("tgstore: invalid ref %s", ref)
	}
	chat, err := strconv.ParseInt(split[0], 10, 64)
	if err != nil {
		return 0, 0, "", fmt.Errorf("tgstore: invalid ref %s: %w", ref, err)
	}
	msgID, err := strconv.Atoi(split[1])
	if err != nil {
		return 0, 0, "", fmt.Errorf("tgstore: invalid ref %s: %w", ref, err)
	}
	return chat, msgID, split[2], nil
}
