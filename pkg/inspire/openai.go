package inspire

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/darioluanne770968-prog/suno-clone/pkg/logger"
	"github.com/darioluanne770968-prog/suno-clone/pkg/music"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const DefaultModel = openai.GPT3Dot5Turbo

type Config struct {
	Token   string
	Model   string
	BaseURL string
	Client  *http.Client
	Debug   bool
	Logger  *zap.Logger
}

// Writer asks an OpenAI chat model for new song ideas.
type Writer struct {
	client *openai.Client
	model  string
	debug  bool
	log    *zap.Logger
}

func NewWriter(cfg *Config) (*Writer, error) {
	if cfg.Token == "" {
		return nil, &music.ConfigError{Service: "openai", Field: "token"}
	}
	c := openai.DefaultConfig(cfg.Token)
	if cfg.BaseURL != "" {
		c.BaseURL = cfg.BaseURL
	}
	if cfg.Client != nil {
		c.HTTPClient = cfg.Client
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Writer{
		client: openai.NewClientWithConfig(c),
		model:  model,
		debug:  cfg.Debug,
		log:    logger.OrNop(cfg.Logger).Named("openai"),
	}, nil
}

func (w *Writer) ChatCompletion(ctx context.Context, msg string) (string, error) {
	resp, err := w.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: w.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: msg},
		},
	})
	if err != nil {
		return "", fmt.Errorf("inspire: couldn't create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("inspire: empty chat completion")
	}
	content := resp.Choices[0].Message.Content
	if w.debug {
		w.log.Debug("chat completion", zap.String("content", content))
	}
	return content, nil
}

const ideaPrompt = `Invent one song idea for an AI music generator.
Answer only with a JSON object with the keys "name", "prompt" (one sentence describing mood, instruments and theme), "style" (comma separated genres) and "instrumental" (boolean).`

// Idea returns a new preset. The hint narrows the idea, for example to a
// genre.
func (w *Writer) Idea(ctx context.Context, hint string) (Preset, error) {
	msg := ideaPrompt
	if hint != "" {
		msg += "\nThe idea must match: " + hint
	}
	content, err := w.ChatCompletion(ctx, msg)
	if err != nil {
		return Preset{}, err
	}
	return parseIdea(content)
}

func parseIdea(content string) (Preset, error) {
	// Models sometimes wrap the object in a code block.
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return Preset{}, fmt.Errorf("inspire: no json object in %q", content)
	}
	var p Preset
	if err := json.Unmarshal([]byte(content[start:end+1]), &p); err != nil {
		return Preset{}, fmt.Errorf("inspire: couldn't parse idea %q: %w", content, err)
	}
	if strings.TrimSpace(p.Prompt) == "" {
		return Preset{}, fmt.Errorf("inspire: idea without prompt %q", content)
	}
	return p, nil
}
