package strategy

import (
	"encoding/json"
	"fmt"
	"strings"

	"llmbatch/internal/llm"
)

// Legacy implements the pre-chat /v1/completions dialect: a single flat
// prompt string in, a single text delta out.
type Legacy struct{}

func (Legacy) BuildPayload(msgs []llm.Message, ctx BuildContext) (any, error) {
	out := map[string]any{
		"stream": true,
	}
	applyKnobs(out, ctx.Knobs)

	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(flattenText(m))
	}
	if prefillText, ok := ctx.Knobs.Prefill.Value(); ok {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(prefillText)
	}

	out["prompt"] = b.String()
	return out, nil
}

func flattenText(m llm.Message) string {
	if len(m.Parts) == 0 {
		return m.Content
	}
	var b strings.Builder
	for i, p := range m.Parts {
		if p.Type != "text" {
			continue
		}
		if i > 0 && b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p.Text)
	}
	return b.String()
}

type legacyStreamEvent struct {
	Choices []struct {
		Text string `json:"text"`
	} `json:"choices"`
}

func (Legacy) ParseChunk(event string, reasoning *llm.ReasoningState, seenDelta bool) ([]llm.Delta, error) {
	var ev legacyStreamEvent
	if err := json.Unmarshal([]byte(event), &ev); err != nil {
		return nil, fmt.Errorf("legacy: %w", err)
	}
	if len(ev.Choices) == 0 || ev.Choices[0].Text == "" {
		return nil, nil
	}
	return []llm.Delta{{Text: ev.Choices[0].Text, Kind: llm.KindDelta}}, nil
}
