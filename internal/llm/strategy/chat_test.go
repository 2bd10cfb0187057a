package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llmbatch/internal/llm"
)

func TestChat_BuildPayload_PlainMessages(t *testing.T) {
	msgs := []llm.Message{
		llm.NewTextMessage(llm.RoleSystem, "be terse"),
		llm.NewTextMessage(llm.RoleUser, "hello"),
	}
	payload, err := (Chat{}).BuildPayload(msgs, BuildContext{Knobs: Knobs{Model: llm.Enabled("m")}})
	require.NoError(t, err)

	m := payload.(map[string]any)
	assert.Equal(t, true, m["stream"])
	assert.Equal(t, "m", m["model"])
	messages := m["messages"].([]map[string]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "be terse", messages[0]["content"])
}

func TestChat_BuildPayload_PrefillAppendsAssistantTurn(t *testing.T) {
	msgs := []llm.Message{llm.NewTextMessage(llm.RoleUser, "hi")}
	ctx := BuildContext{Knobs: Knobs{Prefill: llm.EnabledPrompt("Sure,", llm.RoleAssistant, false)}}

	payload, err := (Chat{}).BuildPayload(msgs, ctx)
	require.NoError(t, err)

	messages := payload.(map[string]any)["messages"].([]map[string]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "Sure,", messages[1]["content"])
	assert.Equal(t, string(llm.RoleAssistant), messages[1]["role"])
}

func TestChat_BuildPayload_ImagesBecomeImageURLParts(t *testing.T) {
	msgs := []llm.Message{{
		Role:    llm.RoleUser,
		Content: "describe this",
		Images:  []llm.ImageAttachment{{MIMEType: "image/png", Base64Data: "QUJD"}},
	}}
	payload, err := (Chat{}).BuildPayload(msgs, BuildContext{})
	require.NoError(t, err)

	messages := payload.(map[string]any)["messages"].([]map[string]any)
	require.Len(t, messages, 1)
	parts := messages[0]["content"].([]map[string]any)
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0]["type"])
	assert.Equal(t, "image_url", parts[1]["type"])
	imgURL := parts[1]["image_url"].(map[string]any)["url"]
	assert.Equal(t, "data:image/png;base64,QUJD", imgURL)
}

func TestChat_ParseChunk_DeltaTakesPriorityOverMessage(t *testing.T) {
	event := `{"choices":[{"delta":{"content":"ab"},"message":{"content":"abc"}}]}`
	deltas, err := (Chat{}).ParseChunk(event, nil, false)
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	assert.Equal(t, "ab", deltas[0].Text)
	assert.Equal(t, llm.KindDelta, deltas[0].Kind)
}

func TestChat_ParseChunk_FallsBackToMessageWhenNoDeltaSeen(t *testing.T) {
	event := `{"choices":[{"message":{"content":"whole reply"}}]}`
	deltas, err := (Chat{}).ParseChunk(event, nil, false)
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	assert.Equal(t, llm.KindConditional, deltas[0].Kind)
}

func TestChat_ParseChunk_SuppressesMessageFallbackAfterDelta(t *testing.T) {
	event := `{"choices":[{"message":{"content":"whole reply"}}]}`
	deltas, err := (Chat{}).ParseChunk(event, nil, true)
	require.NoError(t, err)
	assert.Empty(t, deltas)
}

func TestChat_ParseChunk_AccumulatesReasoning(t *testing.T) {
	var reasoning llm.ReasoningState
	event := `{"choices":[{"delta":{"reasoning_content":"thinking..."}}]}`
	_, err := (Chat{}).ParseChunk(event, &reasoning, false)
	require.NoError(t, err)
	assert.Equal(t, "thinking...", reasoning.UnencryptedText)
}
