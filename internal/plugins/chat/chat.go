// Package chat answers the "chat" command by calling an OpenAI-compatible
// chat-completion API. The provider is selected purely by base URL, so any
// endpoint speaking the protocol works.
package chat

import (
	"context"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mattjoyce/botgw/internal/config"
	"github.com/mattjoyce/botgw/internal/log"
	"github.com/mattjoyce/botgw/internal/protocol"
)

const defaultSystemPrompt = "You are a helpful chat assistant."

// Handler proxies prompts to the completion API.
type Handler struct {
	cfg    config.ChatConfig
	client *openai.Client
	logger *slog.Logger
}

// New creates the handler. A handler without an API key still registers so
// it can explain its own misconfiguration instead of silently ignoring the
// command.
func New(cfg config.ChatConfig) *Handler {
	h := &Handler{
		cfg:    cfg,
		logger: log.WithPlugin("chat"),
	}
	if cfg.APIKey != "" {
		clientCfg := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientCfg.BaseURL = cfg.BaseURL
		}
		h.client = openai.NewClientWithConfig(clientCfg)
	}
	return h
}

func (h *Handler) Name() string { return "chat" }

// Handle sends the joined params as the user prompt. API failures are
// answered with apology text rather than surfaced as handler faults; the
// command was claimed either way.
func (h *Handler) Handle(ctx context.Context, cmd string, params []string, mctx *protocol.Context) ([]protocol.Response, error) {
	if cmd != "chat" {
		return nil, nil
	}

	prompt := strings.TrimSpace(strings.Join(params, " "))
	if prompt == "" {
		return []protocol.Response{mctx.TextReply("ask me something after `.bot chat`.")}, nil
	}
	if h.client == nil {
		return []protocol.Response{mctx.TextReply("chat is not configured; set plugins.chat.api_key.")}, nil
	}

	systemPrompt := h.cfg.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}

	resp, err := h.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       h.cfg.Model,
		Temperature: h.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		h.logger.Error("completion request failed", "model", h.cfg.Model, "error", err)
		return []protocol.Response{mctx.TextReply("the completion API is unavailable right now, try again later.")}, nil
	}

	text := ""
	if len(resp.Choices) > 0 {
		text = strings.TrimSpace(resp.Choices[0].Message.Content)
	}
	if text == "" {
		text = "the model returned nothing."
	}
	return []protocol.Response{mctx.TextReply(text)}, nil
}
