package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llmbatch/internal/llm"
)

func TestLegacy_BuildPayload_FlattensMessagesAndPrefill(t *testing.T) {
	msgs := []llm.Message{
		llm.NewTextMessage(llm.RoleSystem, "sys"),
		llm.NewTextMessage(llm.RoleUser, "ask"),
	}
	ctx := BuildContext{Knobs: Knobs{Prefill: llm.EnabledPrompt("ans:", llm.RoleAssistant, false)}}

	payload, err := (Legacy{}).BuildPayload(msgs, ctx)
	require.NoError(t, err)

	prompt := payload.(map[string]any)["prompt"].(string)
	assert.Equal(t, "sys\nask\nans:", prompt)
}

func TestLegacy_ParseChunk_EmptyTextYieldsNoDelta(t *testing.T) {
	deltas, err := (Legacy{}).ParseChunk(`{"choices":[{"text":""}]}`, nil, false)
	require.NoError(t, err)
	assert.Empty(t, deltas)
}

func TestLegacy_ParseChunk_ReturnsDelta(t *testing.T) {
	deltas, err := (Legacy{}).ParseChunk(`{"choices":[{"text":"fragment"}]}`, nil, false)
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	assert.Equal(t, "fragment", deltas[0].Text)
	assert.Equal(t, llm.KindDelta, deltas[0].Kind)
}
