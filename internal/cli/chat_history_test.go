package cli

import (
	"fmt"
	"testing"

	openrouter "github.com/revrost/go-openrouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assistantToolCall(id, name, args string) openrouter.ChatCompletionMessage {
	return openrouter.ChatCompletionMessage{
		Role: openrouter.ChatMessageRoleAssistant,
		ToolCalls: []openrouter.ToolCall{{
			ID:       id,
			Function: openrouter.FunctionCall{Name: name, Arguments: args},
		}},
	}
}

func TestChatHistoryKeepsSystemMessage(t *testing.T) {
	h := NewChatHistory(4, 1000, nil)
	h.Append(openrouter.SystemMessage("sistem"))
	for i := 0; i < 6; i++ {
		h.Append(openrouter.UserMessage(fmt.Sprintf("pertanyaan %d", i)))
	}

	msgs := h.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, openrouter.ChatMessageRoleSystem, msgs[0].Role)
	assert.Equal(t, "pertanyaan 3", msgs[1].Content.Text)
	assert.Equal(t, "pertanyaan 5", msgs[3].Content.Text)
}

func TestChatHistoryTrimsByTokens(t *testing.T) {
	h := NewChatHistory(50, 10, nil)
	h.Append(openrouter.SystemMessage("sys"))
	h.Append(openrouter.UserMessage("satu dua tiga empat lima enam"))
	h.Append(openrouter.UserMessage("tujuh delapan sembilan sepuluh"))

	assert.LessOrEqual(t, h.TokenCount(), 10)
	msgs := h.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "tujuh delapan sembilan sepuluh", msgs[1].Content.Text)
}

func TestChatHistoryKeepsNewestMessageOverBudget(t *testing.T) {
	h := NewChatHistory(50, 2, nil)
	h.Append(openrouter.UserMessage("pertanyaan yang sangat panjang sekali"))

	assert.Equal(t, 1, h.Len())
}

func TestChatHistoryDropsOrphanToolResults(t *testing.T) {
	h := NewChatHistory(3, 1000, nil)
	h.Append(openrouter.SystemMessage("sys"))
	h.Append(openrouter.UserMessage("stok rendah?"))
	h.Append(assistantToolCall("call-1", "GetLowStock", `{"limit":5}`))
	h.Append(openrouter.ToolMessage("call-1", `[]`), openrouter.ToolMessage("call-2", `[]`))

	for _, msg := range h.Messages() {
		if msg.Role == openrouter.ChatMessageRoleTool {
			t.Fatalf("tool result left without its call: %+v", msg)
		}
	}
	assert.Equal(t, openrouter.ChatMessageRoleSystem, h.Messages()[0].Role)
}

func TestChatHistoryClear(t *testing.T) {
	h := NewChatHistory(0, 0, nil)
	h.Append(openrouter.UserMessage("halo"))
	h.Clear()

	assert.Zero(t, h.Len())
	assert.Nil(t, h.Messages())
	assert.Zero(t, h.TokenCount())
}

func TestEstimateTokensCountsToolArguments(t *testing.T) {
	msg := assistantToolCall("c", "GetProfitLoss", `{"start_date": "2026-10-01", "end_date": "2026-10-18"}`)
	assert.Equal(t, 5, estimateTokens(msg))
}
