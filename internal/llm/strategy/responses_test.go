package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llmbatch/internal/llm"
)

func TestResponses_BuildPayload_SystemMessagesBecomeInstructions(t *testing.T) {
	msgs := []llm.Message{
		llm.NewTextMessage(llm.RoleSystem, "be terse"),
		llm.NewTextMessage(llm.RoleUser, "hello"),
	}
	payload, err := (Responses{}).BuildPayload(msgs, BuildContext{})
	require.NoError(t, err)

	m := payload.(map[string]any)
	assert.Equal(t, "be terse", m["instructions"])
	items := m["input"].([]map[string]any)
	require.Len(t, items, 1)
	assert.Equal(t, string(llm.RoleUser), items[0]["role"])
}

func TestResponses_BuildPayload_ChatModeRequestsEncryptedReasoning(t *testing.T) {
	msgs := []llm.Message{llm.NewTextMessage(llm.RoleUser, "hi")}
	payload, err := (Responses{}).BuildPayload(msgs, BuildContext{ChatMode: true})
	require.NoError(t, err)

	include := payload.(map[string]any)["include"].([]string)
	assert.Contains(t, include, "reasoning.encrypted_content")
}

func TestResponses_BuildPayload_PriorReasoningAppendsItem(t *testing.T) {
	msgs := []llm.Message{llm.NewTextMessage(llm.RoleUser, "hi")}
	prior := &llm.ReasoningState{EncryptedBlob: "blob"}
	payload, err := (Responses{}).BuildPayload(msgs, BuildContext{Prior: prior})
	require.NoError(t, err)

	items := payload.(map[string]any)["input"].([]map[string]any)
	require.Len(t, items, 2)
	assert.Equal(t, "reasoning", items[1]["type"])
	assert.Equal(t, "blob", items[1]["encrypted_content"])
}

func TestResponses_ParseChunk_OutputTextDelta(t *testing.T) {
	deltas, err := (Responses{}).ParseChunk(`{"type":"response.output_text.delta","delta":"ab"}`, nil, false)
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	assert.Equal(t, "ab", deltas[0].Text)
	assert.Equal(t, llm.KindDelta, deltas[0].Kind)
}

func TestResponses_ParseChunk_ReasoningDeltaAccumulatesAndEmits(t *testing.T) {
	var reasoning llm.ReasoningState
	deltas, err := (Responses{}).ParseChunk(`{"type":"response.reasoning_text.delta","delta":"thinking"}`, &reasoning, false)
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	assert.Equal(t, "thinking", deltas[0].Text)
	assert.Equal(t, llm.KindDelta, deltas[0].Kind)
	assert.Equal(t, "thinking", reasoning.UnencryptedText)
}

func TestResponses_ParseChunk_OutputItemDoneExtractsReasoningBlob(t *testing.T) {
	var reasoning llm.ReasoningState
	event := `{"type":"response.output_item.done","item":{"type":"reasoning","encrypted_content":"xyz"}}`
	deltas, err := (Responses{}).ParseChunk(event, &reasoning, false)
	require.NoError(t, err)
	assert.Empty(t, deltas)
	assert.Equal(t, "xyz", reasoning.EncryptedBlob)
}

func TestResponses_ParseChunk_OutputTextDoneSuppressedAfterDelta(t *testing.T) {
	event := `{"type":"response.output_text.done","text":"whole"}`
	deltas, err := (Responses{}).ParseChunk(event, nil, true)
	require.NoError(t, err)
	assert.Empty(t, deltas)
}
