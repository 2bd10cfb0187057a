package strategy

import (
	"encoding/json"
	"fmt"

	"llmbatch/internal/llm"
)

// Chat implements the OpenAI-style /v1/chat/completions dialect.
type Chat struct{}

func (Chat) BuildPayload(msgs []llm.Message, ctx BuildContext) (any, error) {
	out := map[string]any{
		"stream": true,
	}
	applyKnobs(out, ctx.Knobs)

	messages := make([]map[string]any, 0, len(msgs)+1)
	for _, m := range msgs {
		messages = append(messages, chatMessage(m))
	}

	prefillText, hasPrefill := ctx.Knobs.Prefill.Value()
	hasReasoning := ctx.Prior != nil && !ctx.Prior.Empty()

	if hasPrefill || hasReasoning {
		role := string(llm.RoleAssistant)
		if r := ctx.Knobs.Prefill.Role; r != "" {
			role = string(r)
		}
		am := map[string]any{"role": role}
		if hasPrefill {
			am["content"] = prefillText
		} else {
			am["content"] = ""
		}
		if hasReasoning {
			if ctx.Prior.UnencryptedText != "" {
				am["reasoning_content"] = ctx.Prior.UnencryptedText
			}
			if ctx.Prior.EncryptedBlob != "" {
				am["encrypted_reasoning"] = ctx.Prior.EncryptedBlob
			}
		}
		messages = append(messages, am)
	}

	out["messages"] = messages
	return out, nil
}

func chatMessage(m llm.Message) map[string]any {
	if len(m.Parts) == 0 && len(m.Images) == 0 {
		return map[string]any{"role": string(m.Role), "content": m.Content}
	}
	parts := make([]map[string]any, 0, len(m.Parts)+len(m.Images)+1)
	if len(m.Parts) == 0 {
		parts = append(parts, map[string]any{"type": "text", "text": m.Content})
	}
	for _, p := range m.Parts {
		switch p.Type {
		case "image_url":
			parts = append(parts, map[string]any{
				"type":      "image_url",
				"image_url": map[string]any{"url": p.ImageURL},
			})
		default:
			parts = append(parts, map[string]any{"type": "text", "text": p.Text})
		}
	}
	for _, img := range m.Images {
		parts = append(parts, map[string]any{
			"type":      "image_url",
			"image_url": map[string]any{"url": img.DataURL()},
		})
	}
	return map[string]any{"role": string(m.Role), "content": parts}
}

type chatStreamEvent struct {
	Choices []struct {
		Delta struct {
			Content          string `json:"content"`
			ReasoningContent string `json:"reasoning_content"`
		} `json:"delta"`
		Message struct {
			Content          string `json:"content"`
			ReasoningContent string `json:"reasoning_content"`
		} `json:"message"`
	} `json:"choices"`
}

func (Chat) ParseChunk(event string, reasoning *llm.ReasoningState, seenDelta bool) ([]llm.Delta, error) {
	var ev chatStreamEvent
	if err := json.Unmarshal([]byte(event), &ev); err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}
	if len(ev.Choices) == 0 {
		return nil, nil
	}
	choice := ev.Choices[0]

	if rc := choice.Delta.ReasoningContent; rc != "" && reasoning != nil {
		reasoning.UnencryptedText += rc
	} else if rc := choice.Message.ReasoningContent; rc != "" && reasoning != nil {
		reasoning.UnencryptedText += rc
	}

	if choice.Delta.Content != "" {
		return []llm.Delta{{Text: choice.Delta.Content, Kind: llm.KindDelta}}, nil
	}
	if !seenDelta && choice.Message.Content != "" {
		return []llm.Delta{{Text: choice.Message.Content, Kind: llm.KindConditional}}, nil
	}
	return nil, nil
}
