// Package ai обращается к языковой модели Gemini через цепочку eino:
// системный промпт, окно истории диалога и текущий вопрос пользователя.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/levkhmelev/psy-support-bot/internal/config"
	"github.com/levkhmelev/psy-support-bot/internal/models"
)

// ErrEmptyCompletion возвращается, когда модель ответила без текста:
// например, ответ заблокирован фильтрами.
var ErrEmptyCompletion = errors.New("model returned empty completion")

// ErrUnavailable возвращается, когда клиент модели не настроен:
// в конфигурации нет ключа Gemini.
var ErrUnavailable = errors.New("completion service is not configured")

type Client struct {
	chain   compose.Runnable[map[string]any, *schema.Message]
	persona string
	timeout time.Duration
}

// New собирает клиент модели из конфигурации. Цепочка компилируется
// один раз при старте.
func New(ctx context.Context, cfg config.AI) (*Client, error) {
	const op = "ai.New"

	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.GeminiAPIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	chatModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client: genaiClient,
		Model:  cfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	persona := cfg.Persona
	if persona == "" {
		persona = DefaultPersona
	}

	return &Client{
		chain:   runnable,
		persona: persona,
		timeout: cfg.RequestTimeout,
	}, nil
}

// Generate запрашивает ответ модели на userMessage с учётом истории.
// История не должна содержать само userMessage.
func (c *Client) Generate(ctx context.Context, history []models.DialogueMessage, userMessage string) (string, error) {
	const op = "ai.Generate"

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	input := map[string]any{
		"system":  c.persona,
		"history": HistoryMessages(history),
		"query":   userMessage,
	}

	response, err := c.chain.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if response.Content == "" {
		return "", fmt.Errorf("%s: %w", op, ErrEmptyCompletion)
	}

	return response.Content, nil
}

// Disabled подставляется вместо клиента модели, когда ключ Gemini не
// задан. Бот продолжает работать: знакомство, профиль и оплата доступны,
// а на вопросы отвечает ErrUnavailable.
type Disabled struct{}

func NewDisabled() *Disabled { return &Disabled{} }

func (*Disabled) Generate(_ context.Context, _ []models.DialogueMessage, _ string) (string, error) {
	return "", ErrUnavailable
}

// HistoryMessages переводит сохранённые реплики в сообщения модели:
// реплики пользователя становятся user, реплики бота — assistant.
func HistoryMessages(history []models.DialogueMessage) []*schema.Message {
	messages := make([]*schema.Message, 0, len(history))
	for _, msg := range history {
		switch msg.Sender {
		case models.SenderBot:
			messages = append(messages, schema.AssistantMessage(msg.Text, nil))
		default:
			messages = append(messages, schema.UserMessage(msg.Text))
		}
	}
	return messages
}
