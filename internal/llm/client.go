package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"kasir/internal/config"

	openrouter "github.com/revrost/go-openrouter"
	"go.uber.org/zap"
)

var ErrNotConfigured = errors.New("llm is not configured")

// Client is the optional assistant backend. A client built from incomplete
// config is valid but disabled.
type Client struct {
	client  *openrouter.Client
	model   string
	logger  *zap.Logger
	enabled bool
}

func NewClient(cfg config.Config, logger *zap.Logger) (*Client, error) {
	logger = logger.Named("llm")
	model := strings.TrimSpace(cfg.LLMModel)
	apiKey := strings.TrimSpace(cfg.LLMAPIKey)

	if model == "" || apiKey == "" {
		logger.Warn("LLM config is incomplete; the assistant is disabled",
			zap.Bool("has_model", model != ""),
			zap.Bool("has_api_key", apiKey != ""),
		)
		return &Client{model: model, logger: logger}, nil
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	clientCfg := openrouter.DefaultConfig(apiKey)
	if baseURL := strings.TrimSpace(cfg.LLMBaseURL); baseURL != "" {
		clientCfg.BaseURL = baseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	return &Client{
		client:  openrouter.NewClientWithConfig(*clientCfg),
		model:   model,
		logger:  logger,
		enabled: true,
	}, nil
}

func (c *Client) Enabled() bool {
	return c != nil && c.enabled
}

func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}

// Chat sends the conversation with the POS tools the model may call.
func (c *Client) Chat(ctx context.Context, messages []openrouter.ChatCompletionMessage, tools []openrouter.Tool) (openrouter.ChatCompletionResponse, error) {
	if !c.Enabled() || c.client == nil {
		return openrouter.ChatCompletionResponse{}, ErrNotConfigured
	}

	c.logger.Debug("chat completion",
		zap.String("model", c.model),
		zap.Int("messages", len(messages)),
		zap.Int("tools", len(tools)),
	)
	return c.client.CreateChatCompletion(ctx, openrouter.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
		Tools:    tools,
	})
}
