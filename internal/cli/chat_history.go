package cli

import (
	"strings"

	openrouter "github.com/revrost/go-openrouter"
	"go.uber.org/zap"
)

const (
	defaultHistoryMaxMessages = 20
	defaultHistoryMaxTokens   = 3000
)

// ChatHistory is the assistant conversation of one REPL session. The system
// message, when first, survives trimming; the rest is dropped oldest first.
type ChatHistory struct {
	messages    []openrouter.ChatCompletionMessage
	maxMessages int
	maxTokens   int
	logger      *zap.Logger
}

func NewChatHistory(maxMessages, maxTokens int, logger *zap.Logger) *ChatHistory {
	if maxMessages <= 0 {
		maxMessages = defaultHistoryMaxMessages
	}
	if maxTokens <= 0 {
		maxTokens = defaultHistoryMaxTokens
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHistory{maxMessages: maxMessages, maxTokens: maxTokens, logger: logger}
}

func (h *ChatHistory) Append(messages ...openrouter.ChatCompletionMessage) {
	h.messages = append(h.messages, messages...)
	h.trim()
}

func (h *ChatHistory) Messages() []openrouter.ChatCompletionMessage {
	if len(h.messages) == 0 {
		return nil
	}
	out := make([]openrouter.ChatCompletionMessage, len(h.messages))
	copy(out, h.messages)
	return out
}

func (h *ChatHistory) Len() int {
	return len(h.messages)
}

func (h *ChatHistory) Clear() {
	h.messages = nil
}

func (h *ChatHistory) TokenCount() int {
	total := 0
	for _, msg := range h.messages {
		total += estimateTokens(msg)
	}
	return total
}

func (h *ChatHistory) trim() {
	before := len(h.messages)
	for h.removable() > 0 && (len(h.messages) > h.maxMessages || h.TokenCount() > h.maxTokens) {
		h.dropOldest()
	}
	h.dropOrphanToolResults()

	if len(h.messages) != before {
		h.logger.Info("chat history trimmed",
			zap.Int("messages", len(h.messages)),
			zap.Int("tokens", h.TokenCount()),
		)
	}
}

func (h *ChatHistory) pinned() int {
	if len(h.messages) > 0 && h.messages[0].Role == openrouter.ChatMessageRoleSystem {
		return 1
	}
	return 0
}

// removable keeps at least the newest message besides the pinned one.
func (h *ChatHistory) removable() int {
	return len(h.messages) - h.pinned() - 1
}

func (h *ChatHistory) dropOldest() {
	i := h.pinned()
	h.messages = append(h.messages[:i], h.messages[i+1:]...)
}

// dropOrphanToolResults removes tool results whose assistant call was
// trimmed; the API rejects a tool message without its call.
func (h *ChatHistory) dropOrphanToolResults() {
	i := h.pinned()
	for i < len(h.messages) && h.messages[i].Role == openrouter.ChatMessageRoleTool {
		h.messages = append(h.messages[:i], h.messages[i+1:]...)
	}
}

func estimateTokens(msg openrouter.ChatCompletionMessage) int {
	total := len(strings.Fields(msg.Content.Text))
	if msg.Content.Text == "" {
		for _, part := range msg.Content.Multi {
			total += len(strings.Fields(part.Text))
		}
	}
	for _, call := range msg.ToolCalls {
		total += len(strings.Fields(call.Function.Arguments)) + 1
	}
	return total
}
