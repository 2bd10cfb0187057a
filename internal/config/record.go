// Package config implements the declarative Configuration Resolver: a
// per-field table of {getValue, validate, storeTransformedValue} entries
// shared by the LLM Client and the Batch Processor, replacing runtime
// reflection over a caller-supplied options map.
package config

import "llmbatch/internal/llm"

// ProgressRecord is the persisted per-job state (keyed by content
// fingerprint in the state directory) and doubles as the engine's
// externally-facing options shape: a resumed job's record always wins
// over freshly supplied CLI options.
type ProgressRecord struct {
	FileName      string  `json:"fileName"`
	ChunkIndex    int     `json:"chunkIndex"`
	URL           string  `json:"url"`
	APIKey        string  `json:"apiKey"`
	Delay         int     `json:"delay"`
	MaxAttempts   int     `json:"maxAttempts"`
	TempIncrement float64 `json:"tempIncrement"`
	Timeout       int     `json:"timeout"` // minutes
	ChunkSize     int     `json:"chunkSize"`
	BatchSize     int     `json:"batchSize"`
	Parallel      int     `json:"parallel"`
	KeepAlive     bool    `json:"keepAlive"`

	Model           llm.Knob[string]  `json:"model"`
	Temperature     llm.Knob[float64] `json:"temperature"`
	TopP            llm.Knob[float64] `json:"top_p"`
	TopK            llm.Knob[int]     `json:"top_k"`
	PresencePenalty llm.Knob[float64] `json:"presence_penalty"`
	Seed            llm.Knob[int]     `json:"seed"`

	SystemPrompt  llm.PromptKnob `json:"systemPrompt"`
	PrependPrompt llm.PromptKnob `json:"prependPrompt"`
	Prefill       llm.PromptKnob `json:"prefill"`

	Images []string `json:"images"`

	ReasoningEffort llm.Knob[string]         `json:"reasoning_effort"`
	EnableThinking  llm.Knob[bool]           `json:"enable_thinking"`
	ChatTemplateKW  llm.Knob[map[string]any] `json:"chat_template_kwargs"`
	Reasoning       llm.Knob[map[string]any] `json:"reasoning"`
}

// Defaults returns the field defaults named in the external interface
// table: url, delay, maxAttempts, tempIncrement, chunkSize, batchSize,
// parallel.
func Defaults() ProgressRecord {
	return ProgressRecord{
		URL:           "http://localhost:8080/v1/chat/completions",
		Delay:         60_000,
		MaxAttempts:   7,
		TempIncrement: 0.15,
		ChunkSize:     1,
		BatchSize:     1,
		Parallel:      1,
		KeepAlive:     true,
	}
}

// Done reports whether every chunk of a SourceJob with chunkCount chunks
// has been processed.
func (r ProgressRecord) Done(chunkCount int) bool {
	return r.ChunkIndex >= chunkCount
}
