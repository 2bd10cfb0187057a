package tokenizer

import "unicode/utf8"

const bpeCacheCapacity = 4096

// Tokenizer is a fully-loaded, immutable tokenizer instance built from a
// TokenizerDefinition. Safe for concurrent use by multiple workers: all
// derived state (merge table, vocab, Aho-Corasick trie) is read-only
// after New, aside from the bounded LRU merge cache, which is its own
// mutex.
type Tokenizer struct {
	def         *TokenizerDefinition
	merges      mergeTable
	addedTokens *acAutomaton
	addedByText map[string]int // content -> id, for template accounting
	cache       *bpeCache
}

// New builds a Tokenizer from a parsed TokenizerDefinition. The
// definition itself is never mutated and may be shared across Tokenizer
// instances (e.g. one per worker, all pointing at the same parsed
// definition backed by a shared read-only byte buffer).
func New(def *TokenizerDefinition) *Tokenizer {
	addedByText := make(map[string]int, len(def.AddedTokens))
	for _, t := range def.AddedTokens {
		addedByText[t.Content] = t.ID
	}
	return &Tokenizer{
		def:         def,
		merges:      buildMergeTable(def.Merges),
		addedTokens: buildAhoCorasick(def.AddedTokens),
		addedByText: addedByText,
		cache:       newBPECache(bpeCacheCapacity),
	}
}

// Encode returns the subword token strings for text, including added
// tokens matched before normalization, but excluding any special tokens
// added by the post-processor (see CountWithSpecials for that).
func (t *Tokenizer) Encode(text string) []string {
	matches := t.addedTokens.findAddedTokens(text)
	if len(matches) == 0 {
		return t.encodeSpan(text)
	}

	var out []string
	pos := 0
	for _, m := range matches {
		if m.start > pos {
			out = append(out, t.encodeSpan(text[pos:m.start])...)
		}
		out = append(out, t.def.AddedTokens[m.tokenIdx].Content)
		pos = m.end
	}
	if pos < len(text) {
		out = append(out, t.encodeSpan(text[pos:])...)
	}
	return out
}

// encodeSpan runs one added-token-free span through
// normalize -> pre-tokenize -> BPE.
func (t *Tokenizer) encodeSpan(text string) []string {
	normalized := normalize(t.def.Normalizer, text)
	preTokens := preTokenize(t.def.PreTokenizer, normalized)

	var out []string
	for _, pt := range preTokens {
		out = append(out, t.bpeOne(pt)...)
	}
	return out
}

func (t *Tokenizer) bpeOne(pretoken string) []string {
	cacheable := utf8.RuneCountInString(pretoken) < 256
	if cacheable {
		if cached, ok := t.cache.get(pretoken); ok {
			return cached
		}
	}

	graphemes := graphemeSplit(pretoken)
	if t.def.EndOfWordSuffix != "" && len(graphemes) > 0 {
		graphemes[len(graphemes)-1] += t.def.EndOfWordSuffix
	}
	result := bpeMerge(graphemes, t.merges, t.def.ContinuingSubwordSuffix)

	if cacheable {
		t.cache.put(pretoken, result)
	}
	return result
}

// graphemeSplit splits s into its constituent runes as strings. The
// shipped tokenizer definitions operate on byte-level-encoded text
// (one rune per source byte), so a rune split is also a grapheme split
// for the inputs this tokenizer actually sees.
func graphemeSplit(s string) []string {
	runes := []rune(s)
	out := make([]string, len(runes))
	for i, r := range runes {
		out[i] = string(r)
	}
	return out
}

// Count returns the token count of text without special-token
// accounting (equivalent to CountWithSpecials(text, false)).
func (t *Tokenizer) Count(text string) int {
	return t.countTokens(t.Encode(text))
}

// countTokens implements the counting rule for each subword produced by
// Encode: in-vocab counts 1; else byte-fallback counts one per UTF-8
// byte if every byte has a <0xNN> vocab entry; else 1 if unk_token is
// configured, otherwise the subword's character length.
func (t *Tokenizer) countTokens(subwords []string) int {
	total := 0
	for _, sw := range subwords {
		total += t.countOne(sw)
	}
	return total
}

func (t *Tokenizer) countOne(subword string) int {
	if _, ok := t.def.Vocab[subword]; ok {
		return 1
	}
	if t.def.ByteFallback {
		if n, ok := t.byteFallbackCount(subword); ok {
			return n
		}
	}
	if t.def.UnkToken != "" {
		return 1
	}
	return len([]rune(subword))
}

func (t *Tokenizer) byteFallbackCount(subword string) (int, bool) {
	raw := byteLevelDecode(subword)
	if len(raw) == 0 {
		return 0, false
	}
	for _, b := range raw {
		if _, ok := t.def.Vocab[byteFallbackToken(b)]; !ok {
			return 0, false
		}
	}
	return len(raw), true
}

func byteFallbackToken(b byte) string {
	const hex = "0123456789ABCDEF"
	return "<0x" + string([]byte{hex[b>>4], hex[b&0x0f]}) + ">"
}

// CountWithSpecials counts text the way the engine does for a real
// tokenization call: addSpecialTokens applies the post-processor's
// TemplateProcessing sequence (or the bos/sep/eos fallback) on top of
// the base subword count.
func (t *Tokenizer) CountWithSpecials(text string, addSpecialTokens bool) int {
	base := t.Count(text)
	if !addSpecialTokens {
		return base
	}
	return base + t.specialTokenOverhead(text, "")
}

// CountPairWithSpecials is the two-sequence form used when a pair
// template ("A" and "B" sequences) is configured.
func (t *Tokenizer) CountPairWithSpecials(textA, textB string, addSpecialTokens bool) int {
	base := t.Count(textA) + t.Count(textB)
	if !addSpecialTokens {
		return base
	}
	return base + t.specialTokenOverhead(textA, textB)
}

func (t *Tokenizer) specialTokenOverhead(textA, textB string) int {
	pp := t.def.PostProcessor
	if pp.Type == "TemplateProcessing" {
		seq := pp.Single
		if textB != "" && len(pp.Pair) > 0 {
			seq = pp.Pair
		}
		overhead := 0
		for _, piece := range seq {
			switch {
			case piece.SpecialToken != "":
				if t.specialTokenKnown(piece.SpecialToken) {
					overhead++
				}
			case piece.Sequence == "A":
				// the base text counts are already included by the
				// caller; the template only adds the special pieces.
			case piece.Sequence == "B" && textB != "":
			}
		}
		return overhead
	}

	overhead := 0
	if t.def.BOS != "" {
		overhead++
	}
	if t.def.SEP != "" && textB != "" {
		overhead++
	}
	if t.def.EOS != "" {
		overhead++
	}
	return overhead
}

func (t *Tokenizer) specialTokenKnown(idOrContent string) bool {
	if _, ok := t.def.Vocab[idOrContent]; ok {
		return true
	}
	_, ok := t.addedByText[idOrContent]
	return ok
}
