package strategy

import (
	"encoding/json"
	"fmt"
	"strings"

	"llmbatch/internal/llm"
)

// Responses implements the /v1/responses dialect: a top-level instructions
// string plus structured input items, and a typed event stream in place of
// the flat chat-completions delta shape.
type Responses struct{}

func (Responses) BuildPayload(msgs []llm.Message, ctx BuildContext) (any, error) {
	out := map[string]any{
		"stream": true,
	}
	applyKnobs(out, ctx.Knobs)

	var instructions []string
	items := make([]map[string]any, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == llm.RoleSystem {
			if len(m.Parts) == 0 {
				instructions = append(instructions, m.Content)
			} else {
				instructions = append(instructions, flattenText(m))
			}
			continue
		}
		items = append(items, responsesMessageItem(m))
	}

	if len(instructions) > 0 {
		out["instructions"] = strings.Join(instructions, "\n")
	}

	if prefillText, ok := ctx.Knobs.Prefill.Value(); ok {
		role := llm.RoleAssistant
		if ctx.Knobs.Prefill.Role != "" {
			role = ctx.Knobs.Prefill.Role
		}
		items = append(items, map[string]any{
			"type": "message",
			"role": string(role),
			"content": []map[string]any{
				{"type": "output_text", "text": prefillText},
			},
		})
	}

	if ctx.Prior != nil && !ctx.Prior.Empty() && ctx.Prior.EncryptedBlob != "" {
		items = append(items, map[string]any{
			"type":              "reasoning",
			"encrypted_content": ctx.Prior.EncryptedBlob,
		})
	}

	out["input"] = items

	if ctx.ChatMode {
		out["include"] = []string{"reasoning.encrypted_content", "reasoning"}
	}

	return out, nil
}

func responsesMessageItem(m llm.Message) map[string]any {
	textType := "input_text"
	if m.Role == llm.RoleAssistant {
		textType = "output_text"
	}

	if len(m.Parts) == 0 && len(m.Images) == 0 {
		return map[string]any{
			"type": "message",
			"role": string(m.Role),
			"content": []map[string]any{
				{"type": textType, "text": m.Content},
			},
		}
	}

	content := make([]map[string]any, 0, len(m.Parts)+len(m.Images)+1)
	if len(m.Parts) == 0 {
		content = append(content, map[string]any{"type": textType, "text": m.Content})
	}
	for _, p := range m.Parts {
		switch p.Type {
		case "image_url":
			content = append(content, map[string]any{
				"type":      "input_image",
				"image_url": p.ImageURL,
			})
		default:
			content = append(content, map[string]any{"type": textType, "text": p.Text})
		}
	}
	for _, img := range m.Images {
		content = append(content, map[string]any{
			"type":      "input_image",
			"image_url": img.DataURL(),
		})
	}
	return map[string]any{
		"type":    "message",
		"role":    string(m.Role),
		"content": content,
	}
}

type responsesEvent struct {
	Type  string          `json:"type"`
	Delta string          `json:"delta"`
	Text  string          `json:"text"`
	Item  json.RawMessage `json:"item"`
	// response.completed-style bulk payload
	Response struct {
		Output []json.RawMessage `json:"output"`
	} `json:"response"`
}

type responsesItem struct {
	Type             string          `json:"type"`
	Content          []responsesPart `json:"content"`
	EncryptedContent string          `json:"encrypted_content"`
	Summary          json.RawMessage `json:"summary"`
}

type responsesPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (Responses) ParseChunk(event string, reasoning *llm.ReasoningState, seenDelta bool) ([]llm.Delta, error) {
	var ev responsesEvent
	if err := json.Unmarshal([]byte(event), &ev); err != nil {
		return nil, fmt.Errorf("responses: %w", err)
	}

	switch ev.Type {
	case "response.output_text.delta", "response.refusal.delta":
		if ev.Delta == "" {
			return nil, nil
		}
		return []llm.Delta{{Text: ev.Delta, Kind: llm.KindDelta}}, nil

	case "response.reasoning_text.delta":
		if ev.Delta == "" {
			return nil, nil
		}
		if reasoning != nil {
			reasoning.UnencryptedText += ev.Delta
		}
		return []llm.Delta{{Text: ev.Delta, Kind: llm.KindDelta}}, nil

	case "response.output_text.done", "response.refusal.done":
		if seenDelta || ev.Text == "" {
			return nil, nil
		}
		return []llm.Delta{{Text: ev.Text, Kind: llm.KindConditional}}, nil

	case "response.output_item.added", "response.output_item.done":
		return parseResponsesItem(ev.Item, reasoning, seenDelta)

	default:
		if len(ev.Response.Output) == 0 {
			return nil, nil
		}
		var deltas []llm.Delta
		for _, raw := range ev.Response.Output {
			ds, err := parseResponsesItem(raw, reasoning, seenDelta)
			if err != nil {
				return nil, err
			}
			deltas = append(deltas, ds...)
		}
		return deltas, nil
	}
}

func parseResponsesItem(raw json.RawMessage, reasoning *llm.ReasoningState, seenDelta bool) ([]llm.Delta, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var item responsesItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("responses: item: %w", err)
	}

	if item.Type == "reasoning" {
		if reasoning != nil {
			if item.EncryptedContent != "" {
				reasoning.EncryptedBlob = item.EncryptedContent
			}
			if len(item.Summary) > 0 {
				var s string
				if err := json.Unmarshal(item.Summary, &s); err == nil && s != "" {
					reasoning.Summary = s
				}
			}
		}
		return nil, nil
	}

	if item.Type != "message" || seenDelta {
		return nil, nil
	}

	var deltas []llm.Delta
	for _, p := range item.Content {
		if p.Text == "" {
			continue
		}
		switch p.Type {
		case "output_text", "refusal":
			deltas = append(deltas, llm.Delta{Text: p.Text, Kind: llm.KindConditional})
		}
	}
	return deltas, nil
}
