package digest

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/teamdigest/ai/llm"
	"github.com/hrygo/teamdigest/store"
)

// Result is the strict response contract enforced on the model output.
type Result struct {
	OverallSummary string                 `json:"overallSummary"`
	Channels       []store.ChannelSummary `json:"channels"`
}

// Summarizer sends the assembled payload to the LLM and enforces the
// response contract. A malformed response is rejected outright; a
// malformed-but-present digest would be worse than none.
type Summarizer interface {
	Summarize(ctx context.Context, payload string) (*Result, *llm.CallStats, error)
}

type llmSummarizer struct {
	llm llm.Service
}

// NewSummarizer creates an LLM-backed Summarizer.
func NewSummarizer(llmSvc llm.Service) Summarizer {
	return &llmSummarizer{llm: llmSvc}
}

func (s *llmSummarizer) Summarize(ctx context.Context, payload string) (*Result, *llm.CallStats, error) {
	messages := []llm.Message{
		llm.SystemPrompt(digestSystemPrompt),
		llm.UserMessage("Messages:\n\n" + payload),
	}

	content, stats, err := s.llm.Chat(ctx, messages)
	if err != nil {
		return nil, nil, errors.Wrap(err, "digest summarization failed")
	}

	result, err := ParseResult(content)
	if err != nil {
		return nil, stats, err
	}
	return result, stats, nil
}

// ParseResult decodes the model output into the response contract. The model
// is instructed to avoid markdown fences but may still produce one, so
// leading/trailing fence markers are stripped before the strict decode.
// Anything that does not decode cleanly is rejected; there is no best-effort
// coercion of partially valid output.
func ParseResult(content string) (*Result, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	if content == "" {
		return nil, errors.New("no text in LLM response")
	}

	result := &Result{}
	decoder := json.NewDecoder(strings.NewReader(content))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(result); err != nil {
		return nil, errors.Wrap(err, "LLM response is not a valid digest")
	}

	if result.Channels == nil {
		result.Channels = []store.ChannelSummary{}
	}
	return result, nil
}
