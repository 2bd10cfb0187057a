package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llmbatch/internal/llm"
)

func TestResolve_StoresScalarFields(t *testing.T) {
	rec := Defaults()
	raw := RawOptions{
		"url":       "https://example.com/v1/chat/completions",
		"chunkSize": float64(50),
		"parallel":  float64(4),
		"keepAlive": false,
	}
	require.NoError(t, Resolve(&rec, raw, JobTable()))

	assert.Equal(t, "https://example.com/v1/chat/completions", rec.URL)
	assert.Equal(t, 50, rec.ChunkSize)
	assert.Equal(t, 4, rec.Parallel)
	assert.False(t, rec.KeepAlive)
}

func TestResolve_AbsentKeysLeaveDefaultsUntouched(t *testing.T) {
	rec := Defaults()
	require.NoError(t, Resolve(&rec, RawOptions{}, JobTable()))
	assert.Equal(t, Defaults(), rec)
}

func TestResolve_InvalidURLSchemeFails(t *testing.T) {
	rec := Defaults()
	err := Resolve(&rec, RawOptions{"url": "ftp://example.com"}, JobTable())
	assert.Error(t, err)
}

func TestResolve_ChunkSizeOutOfRangeFails(t *testing.T) {
	rec := Defaults()
	err := Resolve(&rec, RawOptions{"chunkSize": float64(0)}, JobTable())
	assert.Error(t, err)
}

func TestResolve_NonIntegerWhereIntegerRequiredFails(t *testing.T) {
	rec := Defaults()
	err := Resolve(&rec, RawOptions{"parallel": 2.5}, JobTable())
	assert.Error(t, err)
}

func TestResolve_KnobEntrySetsEnabledKnob(t *testing.T) {
	rec := Defaults()
	require.NoError(t, Resolve(&rec, RawOptions{"temperature": 0.8}, JobTable()))

	v, ok := rec.Temperature.Value()
	require.True(t, ok)
	assert.Equal(t, 0.8, v)
}

func TestResolve_ReasoningEffortMustBeKnownMember(t *testing.T) {
	rec := Defaults()
	err := Resolve(&rec, RawOptions{"reasoning_effort": "extreme"}, JobTable())
	assert.Error(t, err)

	rec2 := Defaults()
	require.NoError(t, Resolve(&rec2, RawOptions{"reasoning_effort": "high"}, JobTable()))
	v, ok := rec2.ReasoningEffort.Value()
	require.True(t, ok)
	assert.Equal(t, "high", v)
}

func TestResolve_SystemPromptCustomHandler(t *testing.T) {
	rec := Defaults()
	raw := RawOptions{"systemPrompt": map[string]any{"text": "be terse", "role": "system"}}
	require.NoError(t, Resolve(&rec, raw, JobTable()))

	v, ok := rec.SystemPrompt.Value()
	require.True(t, ok)
	assert.Equal(t, "be terse", v)
	assert.Equal(t, llm.RoleSystem, rec.SystemPrompt.Role)
}

func TestResolve_ChatTemplateKwargsAndReasoningPassThrough(t *testing.T) {
	rec := Defaults()
	raw := RawOptions{
		"chat_template_kwargs": map[string]any{"enable_thinking": true},
		"reasoning":            map[string]any{"effort": "high"},
	}
	require.NoError(t, Resolve(&rec, raw, JobTable()))

	kw, ok := rec.ChatTemplateKW.Value()
	require.True(t, ok)
	assert.Equal(t, true, kw["enable_thinking"])

	r, ok := rec.Reasoning.Value()
	require.True(t, ok)
	assert.Equal(t, "high", r["effort"])
}

func TestResolve_ImagesCustomHandlerRejectsWrongType(t *testing.T) {
	rec := Defaults()
	err := Resolve(&rec, RawOptions{"images": "not-a-slice"}, JobTable())
	assert.Error(t, err)
}

func TestResolve_StopsAtFirstValidationFailure(t *testing.T) {
	rec := Defaults()
	raw := RawOptions{
		"chunkSize": float64(-1), // invalid, should abort before batchSize applies
		"batchSize": float64(99),
	}
	err := Resolve(&rec, raw, JobTable())
	assert.Error(t, err)
}

func TestNumericRange_RejectsNonNumeric(t *testing.T) {
	assert.Error(t, NumericRange(0, 10)("nope"))
}

func TestEnum_RejectsUnknownMember(t *testing.T) {
	assert.Error(t, Enum("a", "b")("c"))
	assert.NoError(t, Enum("a", "b")("a"))
}
