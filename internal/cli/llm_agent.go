package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"kasir/internal/llm"
	"kasir/internal/posapi"

	openrouter "github.com/revrost/go-openrouter"
	"go.uber.org/zap"
)

const (
	maxToolRounds       = 4
	defaultProductLimit = 10
	maxProductLimit     = 50
	defaultLowStock     = 20
	maxLowStock         = 100
)

type toolCallRecord struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
	MS   int64          `json:"ms"`
	OK   bool           `json:"ok"`
	Err  string         `json:"err,omitempty"`

	cause error
}

type answer struct {
	Question  string           `json:"question"`
	Text      string           `json:"answer_text"`
	ToolCalls []toolCallRecord `json:"tool_calls,omitempty"`
	NextStep  string           `json:"next_step,omitempty"`
}

func assistantCommands() []command {
	return []command{
		{name: "ask", aliases: []string{"tanya"}, usage: "ask <pertanyaan>", summary: "Tanya asisten toko", needsLogin: true, run: runAsk},
		{name: "chat-clear", usage: "chat-clear", summary: "Hapus riwayat percakapan asisten", run: runChatClear},
		{name: "chat-history", usage: "chat-history", summary: "Tampilkan riwayat percakapan asisten", run: runChatHistory},
	}
}

func runAsk(ctx context.Context, s *shell, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return errors.New("pemakaian: ask <pertanyaan>")
	}
	s.logger.Info("question received", zap.String("question", question), zap.Bool("json", s.opts.JSON))

	ans, err := s.runAgent(ctx, question)
	if err != nil {
		return err
	}
	s.logger.Info("answer",
		zap.String("answer", ans.Text),
		zap.Int("tool_calls", len(ans.ToolCalls)),
		zap.String("next_step", ans.NextStep),
	)
	return s.emit(ans, func(w io.Writer) {
		text := ans.Text
		if text == "" {
			text = "(jawaban kosong)"
		}
		fmt.Fprintln(w, text)
		if ans.NextStep != "" {
			fmt.Fprintf(w, "\nLangkah berikutnya: %s\n", ans.NextStep)
		}
	})
}

func runChatClear(_ context.Context, s *shell, _ []string) error {
	s.resetChat()
	fmt.Fprintln(s.out, "Riwayat percakapan dihapus.")
	return nil
}

func runChatHistory(_ context.Context, s *shell, _ []string) error {
	messages := s.history.Messages()
	if len(messages) == 0 {
		fmt.Fprintln(s.out, "Riwayat percakapan kosong.")
		return nil
	}
	fmt.Fprintf(s.out, "Riwayat (%d pesan, ~%d token):\n", len(messages), s.history.TokenCount())
	for i, msg := range messages {
		fmt.Fprintf(s.out, "%d) %s: %s\n", i+1, msg.Role, orDash(messagePreview(msg)))
	}
	return nil
}

func messagePreview(msg openrouter.ChatCompletionMessage) string {
	text := strings.TrimSpace(msg.Content.Text)
	if text == "" && len(msg.ToolCalls) > 0 {
		names := make([]string, 0, len(msg.ToolCalls))
		for _, call := range msg.ToolCalls {
			names = append(names, call.Function.Name)
		}
		text = "tool: " + strings.Join(names, ", ")
	}
	const maxLen = 120
	if r := []rune(text); len(r) > maxLen {
		return string(r[:maxLen]) + "..."
	}
	return text
}

// runAgent lets the model call POS tools until it answers or runs out of
// rounds. Every call goes through the shared posapi.Client, so tool calls
// share the session and its token refresh.
func (s *shell) runAgent(ctx context.Context, question string) (answer, error) {
	if !s.llm.Enabled() {
		return answer{}, llm.ErrNotConfigured
	}

	if s.history.Len() == 0 {
		s.history.Append(openrouter.SystemMessage(llm.SystemPromptWithContext(true)))
	}
	s.history.Append(openrouter.UserMessage(question))

	var records []toolCallRecord
	for round := 0; round < maxToolRounds; round++ {
		resp, err := s.llm.Chat(ctx, s.history.Messages(), llm.ToolSchemas())
		if err != nil {
			return answer{}, err
		}
		logLLMUsage(s.logger, resp)
		if len(resp.Choices) == 0 {
			return answer{}, errors.New("llm returned empty response")
		}

		msg := resp.Choices[0].Message
		s.history.Append(msg)
		if len(msg.ToolCalls) == 0 {
			return answer{Question: question, Text: strings.TrimSpace(msg.Content.Text), ToolCalls: records}, nil
		}

		results, calls := s.executeToolCalls(ctx, msg.ToolCalls)
		records = append(records, calls...)
		s.history.Append(results...)

		if err := sessionFailure(calls); err != nil {
			return answer{}, err
		}
	}

	return answer{
		Question:  question,
		Text:      "Tidak bisa menyelesaikan pertanyaan: batas langkah terlampaui.",
		ToolCalls: records,
		NextStep:  "Perjelas pertanyaan atau persempit periodenya.",
	}, nil
}

// sessionFailure stops the agent when a tool lost the session; the model
// cannot fix that and the cashier has to log in again.
func sessionFailure(records []toolCallRecord) error {
	for _, r := range records {
		if errors.Is(r.cause, posapi.ErrSessionExpired) {
			return r.cause
		}
	}
	return nil
}

func (s *shell) executeToolCalls(ctx context.Context, calls []openrouter.ToolCall) ([]openrouter.ChatCompletionMessage, []toolCallRecord) {
	messages := make([]openrouter.ChatCompletionMessage, 0, len(calls))
	records := make([]toolCallRecord, 0, len(calls))

	for _, call := range calls {
		args := map[string]any{}
		if call.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
				record := toolCallRecord{Name: call.Function.Name, Err: fmt.Sprintf("invalid tool args: %v", err)}
				records = append(records, record)
				messages = append(messages, openrouter.ToolMessage(call.ID, toolErrorPayload(record.Err)))
				continue
			}
		}

		result, record := s.dispatchToolCall(ctx, call.Function.Name, args)
		records = append(records, record)
		if !record.OK {
			messages = append(messages, openrouter.ToolMessage(call.ID, toolErrorPayload(record.Err)))
			continue
		}
		payload, err := json.Marshal(result)
		if err != nil {
			messages = append(messages, openrouter.ToolMessage(call.ID, toolErrorPayload(err.Error())))
			continue
		}
		messages = append(messages, openrouter.ToolMessage(call.ID, string(payload)))
	}
	return messages, records
}

func (s *shell) dispatchToolCall(ctx context.Context, name string, args map[string]any) (any, toolCallRecord) {
	switch name {
	case llm.ToolDashboardStats:
		rangeArg, _ := getStringArg(args, "range")
		r, err := posapi.ParseDashboardRange(rangeArg)
		if err != nil {
			return nil, failedCall(name, args, err)
		}
		return trackCall(s.logger, name, args, func() (posapi.DashboardStats, error) {
			return s.client.DashboardStats(ctx, r)
		})
	case llm.ToolSearchProducts:
		query, _ := getStringArg(args, "query")
		limit := clamp(getIntArg(args, "limit", defaultProductLimit), 1, maxProductLimit)
		return trackCall(s.logger, name, args, func() ([]productResult, error) {
			page, err := s.client.ListVariants(ctx, posapi.VariantFilter{ListFilter: posapi.ListFilter{Search: query, PageSize: limit}})
			if err != nil {
				return nil, err
			}
			return toProductResults(page.Results), nil
		})
	case llm.ToolLowStock:
		limit := clamp(getIntArg(args, "limit", defaultLowStock), 1, maxLowStock)
		return trackCall(s.logger, name, args, func() ([]productResult, error) {
			page, err := s.client.LowStock(ctx, posapi.ListFilter{PageSize: limit})
			if err != nil {
				return nil, err
			}
			return toProductResults(page.Results), nil
		})
	case llm.ToolProfitLoss, llm.ToolCashFlow:
		period, err := getPeriodArgs(args)
		if err != nil {
			return nil, failedCall(name, args, err)
		}
		if name == llm.ToolProfitLoss {
			return trackCall(s.logger, name, args, func() (posapi.ProfitLossReport, error) {
				return s.client.ProfitLoss(ctx, period)
			})
		}
		return trackCall(s.logger, name, args, func() (posapi.CashFlowReport, error) {
			return s.client.CashFlow(ctx, period)
		})
	default:
		return nil, failedCall(name, args, fmt.Errorf("unknown tool: %s", name))
	}
}

type productResult struct {
	ID            int      `json:"id"`
	Name          string   `json:"name"`
	SKU           string   `json:"sku,omitempty"`
	Stock         float64  `json:"stock"`
	Unit          string   `json:"unit,omitempty"`
	LowStockLevel float64  `json:"low_stock_level,omitempty"`
	NormalPrice   float64  `json:"normal_price"`
	ResellerPrice float64  `json:"reseller_price,omitempty"`
	PriceRules    []string `json:"price_rules,omitempty"`
}

func toProductResults(variants []posapi.Variant) []productResult {
	out := make([]productResult, 0, len(variants))
	for _, v := range variants {
		p := productResult{
			ID:            v.ID,
			Name:          v.DisplayName(),
			SKU:           v.SKU,
			Stock:         v.Stock.Float(),
			Unit:          v.Unit,
			LowStockLevel: v.LowStockThreshold.Float(),
			NormalPrice:   v.NormalPrice.Float(),
			ResellerPrice: v.ResellerPrice.Float(),
		}
		for _, rule := range v.PriceRules {
			p.PriceRules = append(p.PriceRules, fmt.Sprintf("%s for %s", rp(rule.TotalPrice.Float()), formatQty(rule.MinQuantity.Float())))
		}
		out = append(out, p)
	}
	return out
}

func trackCall[T any](logger *zap.Logger, name string, args map[string]any, fn func() (T, error)) (any, toolCallRecord) {
	start := time.Now()
	result, err := fn()
	record := toolCallRecord{
		Name:  name,
		Args:  args,
		MS:    time.Since(start).Milliseconds(),
		OK:    err == nil,
		cause: err,
	}
	if err != nil {
		record.Err = posapi.UserMessage(err, "")
	}
	logToolRecord(logger, record)
	if err != nil {
		return nil, record
	}
	return result, record
}

func failedCall(name string, args map[string]any, err error) toolCallRecord {
	return toolCallRecord{Name: name, Args: args, Err: err.Error(), cause: err}
}

func getStringArg(args map[string]any, key string) (string, bool) {
	value, ok := args[key]
	if !ok || value == nil {
		return "", false
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v), true
	default:
		return fmt.Sprintf("%v", v), true
	}
}

func getIntArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		if parsed, err := v.Int64(); err == nil {
			return int(parsed)
		}
	case string:
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return fallback
}

func getPeriodArgs(args map[string]any) (posapi.Period, error) {
	start, _ := getStringArg(args, "start_date")
	end, _ := getStringArg(args, "end_date")
	if start == "" || end == "" {
		return posapi.Period{}, errors.New("start_date and end_date are required")
	}
	return posapi.ParsePeriod(start, end)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func toolErrorPayload(message string) string {
	encoded, err := json.Marshal(map[string]string{"error": message})
	if err != nil {
		return `{"error":"tool failed"}`
	}
	return string(encoded)
}

func logToolRecord(logger *zap.Logger, record toolCallRecord) {
	logger.Info("tool call",
		zap.String("name", record.Name),
		zap.Any("args", record.Args),
		zap.Int64("ms", record.MS),
		zap.Bool("ok", record.OK),
		zap.String("err", record.Err),
	)
}

func logLLMUsage(logger *zap.Logger, resp openrouter.ChatCompletionResponse) {
	if resp.Usage == nil {
		return
	}
	logger.Info("llm usage",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Float64("cost", resp.Usage.Cost),
	)
}
