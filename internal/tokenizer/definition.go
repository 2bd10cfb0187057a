// Package tokenizer implements a from-scratch byte-level BPE tokenizer:
// a composable normalizer chain, a composable pre-tokenizer chain, the
// merge-rank BPE core, byte-fallback counting, an Aho-Corasick matcher
// for added tokens, and template-aware special-token accounting.
package tokenizer

import "encoding/json"

// NormalizerStep is one entry of a normalizer Sequence.
type NormalizerStep struct {
	Type    string `json:"type"` // NFC|NFKC|NFD|NFKD|Lowercase|StripAccents|Replace|Sequence
	Pattern string `json:"pattern,omitempty"`
	Content string `json:"content,omitempty"`
}

// PreTokenizerStep is one entry of a pre-tokenizer Sequence.
type PreTokenizerStep struct {
	Type           string `json:"type"` // Split|ByteLevel|Metaspace|Whitespace|BertPreTokenizer|Replace|Precompiled
	Pattern        string `json:"pattern,omitempty"`
	Behavior       string `json:"behavior,omitempty"` // "removed"|"isolated"
	Invert         bool   `json:"invert,omitempty"`
	AddPrefixSpace bool   `json:"add_prefix_space,omitempty"`
	UseRegex       bool   `json:"use_regex,omitempty"`
	Content        string `json:"content,omitempty"`
}

// TemplatePiece is one element of a TemplateProcessing sequence.
type TemplatePiece struct {
	SpecialToken string `json:"special_token,omitempty"` // "{SpecialToken:id}" id
	Sequence     string `json:"sequence,omitempty"`      // "A" or "B"
}

// PostProcessor describes the optional TemplateProcessing step used for
// special-token accounting.
type PostProcessor struct {
	Type   string          `json:"type,omitempty"` // "TemplateProcessing" or ""
	Single []TemplatePiece `json:"single,omitempty"`
	Pair   []TemplatePiece `json:"pair,omitempty"`
}

// AddedToken is a literal string matched as a single token regardless of
// BPE merges.
type AddedToken struct {
	ID      int    `json:"id"`
	Content string `json:"content"`
}

// TokenizerDefinition is the immutable, shared-read-only artifact for one
// named tokenizer: normalizer config, pre-tokenizer config, vocab+merges,
// added tokens, and the post-processor template. Workers parse it once
// from a process-shared byte buffer and cache the resulting Tokenizer.
type TokenizerDefinition struct {
	Normalizer              []NormalizerStep   `json:"normalizer"`
	PreTokenizer            []PreTokenizerStep `json:"pre_tokenizer"`
	Vocab                   map[string]int     `json:"vocab"`
	Merges                  []string           `json:"merges"` // "left right", rank = index
	AddedTokens             []AddedToken       `json:"added_tokens"`
	PostProcessor           PostProcessor      `json:"post_processor"`
	EndOfWordSuffix         string             `json:"end_of_word_suffix,omitempty"`
	ContinuingSubwordSuffix string             `json:"continuing_subword_suffix,omitempty"`
	ByteFallback            bool               `json:"byte_fallback,omitempty"`
	UnkToken                string             `json:"unk_token,omitempty"`
	BOS                     string             `json:"bos_token,omitempty"`
	EOS                     string             `json:"eos_token,omitempty"`
	SEP                     string             `json:"sep_token,omitempty"`
}

// ParseDefinition decodes a TokenizerDefinition from its serialized JSON
// form, as handed to a worker via a shared byte buffer.
func ParseDefinition(raw []byte) (*TokenizerDefinition, error) {
	var def TokenizerDefinition
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, err
	}
	return &def, nil
}
