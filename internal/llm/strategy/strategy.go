// Package strategy implements the three backend dialect adapters: chat
// completions, legacy completions, and the responses API. Each adapter
// builds a dialect-specific JSON payload from a message list and parses a
// dialect-specific SSE event into zero or more output deltas.
package strategy

import (
	"encoding/json"
	"strings"

	"llmbatch/internal/llm"
)

// Knobs carries the subset of ProgressRecord fields a Strategy needs to
// build a payload. Only set knobs are emitted.
type Knobs struct {
	Model           llm.Knob[string]
	Temperature     llm.Knob[float64]
	TopP            llm.Knob[float64]
	TopK            llm.Knob[int]
	PresencePenalty llm.Knob[float64]
	Seed            llm.Knob[int]
	ReasoningEffort llm.Knob[string]
	EnableThinking  llm.Knob[bool]
	ChatTemplateKW  llm.Knob[map[string]any]
	Reasoning       llm.Knob[map[string]any]
	Prefill         llm.PromptKnob
}

// BuildContext bundles everything a Strategy needs beyond the message list.
type BuildContext struct {
	Knobs     Knobs
	Prior     *llm.ReasoningState // reasoning carried from a previous turn, or nil
	ChatMode  bool                // whether encrypted reasoning round-trip is enabled
}

// Strategy is the polymorphic backend adapter. Implementations must be
// stateless; all per-request state lives in BuildContext and in the
// ReasoningState passed to ParseChunk.
type Strategy interface {
	// BuildPayload returns the JSON-serializable request body for msgs.
	BuildPayload(msgs []llm.Message, ctx BuildContext) (any, error)
	// ParseChunk parses one SSE event's data payload into zero or more
	// deltas, updating reasoning in place as a side effect.
	ParseChunk(event string, reasoning *llm.ReasoningState, seenDelta bool) ([]llm.Delta, error)
}

// SelectByURL picks the dialect from the endpoint's path suffix, per
// spec §6: "/responses" -> responses; "/completions" (not
// "/chat/completions") -> legacy; otherwise chat-completions.
func SelectByURL(url string) Strategy {
	u := strings.TrimRight(url, "/")
	switch {
	case strings.HasSuffix(u, "/responses"):
		return &Responses{}
	case strings.HasSuffix(u, "/completions") && !strings.HasSuffix(u, "/chat/completions"):
		return &Legacy{}
	default:
		return &Chat{}
	}
}

func applyKnobs(m map[string]any, k Knobs) {
	if v, ok := k.Model.Value(); ok {
		m["model"] = v
	}
	if v, ok := k.Temperature.Value(); ok {
		m["temperature"] = v
	}
	if v, ok := k.TopP.Value(); ok {
		m["top_p"] = v
	}
	if v, ok := k.TopK.Value(); ok {
		m["top_k"] = v
	}
	if v, ok := k.PresencePenalty.Value(); ok {
		m["presence_penalty"] = v
	}
	if v, ok := k.Seed.Value(); ok {
		m["seed"] = v
	}
	if v, ok := k.ReasoningEffort.Value(); ok {
		m["reasoning_effort"] = v
	}
	if v, ok := k.EnableThinking.Value(); ok {
		m["enable_thinking"] = v
	}
	if v, ok := k.ChatTemplateKW.Value(); ok {
		m["chat_template_kwargs"] = v
	}
	if v, ok := k.Reasoning.Value(); ok {
		m["reasoning"] = v
	}
}

// rawString extracts a JSON string field, ignoring absence/type mismatch.
func rawString(obj map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := obj[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
