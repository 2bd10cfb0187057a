package tokenizer

import "regexp"

// gpt2Pattern approximates the canonical GPT-2 contraction-aware split
// regex. RE2 has no negative lookahead, so the trailing-whitespace
// special case (`\s+(?!\S)`) collapses into the plain `\s+` branch: a
// run of whitespace before a word stays one pre-token instead of leaving
// its last space to join the word ("a  b" yields "a", "  ", "b" rather
// than "a", " ", " b"), which can change the resulting tokens and counts.
var gpt2Pattern = regexp.MustCompile(`'s|'t|'re|'ve|'m|'ll|'d| ?\p{L}+| ?\p{N}+| ?[^\s\p{L}\p{N}]+|\s+`)

// preTokenize runs text through the configured pre-tokenizer chain,
// producing the ordered list of pre-tokens fed individually into BPE.
func preTokenize(steps []PreTokenizerStep, text string) []string {
	tokens := []string{text}
	for _, step := range steps {
		tokens = applyPreTokenizerStep(step, tokens)
	}
	return tokens
}

func applyPreTokenizerStep(step PreTokenizerStep, tokens []string) []string {
	switch step.Type {
	case "ByteLevel":
		return byteLevelStep(step, tokens)
	case "Split":
		return splitStep(step, tokens)
	case "Whitespace":
		return splitOnRegex(tokens, whitespaceSplitPattern, "removed", false)
	case "Metaspace", "BertPreTokenizer", "Replace", "Precompiled":
		// Accepted but treated as identity: none of the shipped
		// tokenizer definitions in scope exercise these variants.
		return tokens
	default:
		return tokens
	}
}

var whitespaceSplitPattern = regexp.MustCompile(`\s+`)

func byteLevelStep(step PreTokenizerStep, tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if step.AddPrefixSpace && len(t) > 0 && t[0] != ' ' {
			t = " " + t
		}
		if step.UseRegex {
			for _, piece := range gpt2Pattern.FindAllString(t, -1) {
				out = append(out, byteLevelEncode(piece))
			}
			continue
		}
		out = append(out, byteLevelEncode(t))
	}
	return out
}

func splitStep(step PreTokenizerStep, tokens []string) []string {
	re, err := regexp.Compile(step.Pattern)
	if err != nil {
		return tokens
	}
	return splitOnRegex(tokens, re, step.Behavior, step.Invert)
}

// splitOnRegex splits each input token on re's matches. "removed" drops
// the separator text; anything else ("isolated", default, "") keeps the
// separators as their own sibling pre-tokens. invert swaps which side
// (matches vs. non-matches) is treated as the separator.
func splitOnRegex(tokens []string, re *regexp.Regexp, behavior string, invert bool) []string {
	var out []string
	for _, t := range tokens {
		idxs := re.FindAllStringIndex(t, -1)
		if idxs == nil {
			out = append(out, t)
			continue
		}
		pos := 0
		for _, idx := range idxs {
			sepStart, sepEnd := idx[0], idx[1]
			nonSep := t[pos:sepStart]
			sep := t[sepStart:sepEnd]
			if invert {
				nonSep, sep = sep, nonSep
			}
			if nonSep != "" {
				out = append(out, nonSep)
			}
			if behavior != "removed" && sep != "" {
				out = append(out, sep)
			}
			pos = sepEnd
		}
		if rest := t[pos:]; rest != "" {
			out = append(out, rest)
		}
	}
	return out
}
