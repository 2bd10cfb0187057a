package tokenizer

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// normalize runs text through the configured normalizer chain. Unknown
// step types are identity, per spec.
func normalize(steps []NormalizerStep, text string) string {
	for _, step := range steps {
		text = applyNormalizerStep(step, text)
	}
	return text
}

func applyNormalizerStep(step NormalizerStep, text string) string {
	switch step.Type {
	case "NFC":
		return norm.NFC.String(text)
	case "NFKC":
		return norm.NFKC.String(text)
	case "NFD":
		return norm.NFD.String(text)
	case "NFKD":
		return norm.NFKD.String(text)
	case "Lowercase":
		return strings.ToLower(text)
	case "StripAccents":
		return stripAccents(text)
	case "Replace":
		return replaceStep(step, text)
	case "Sequence":
		// A nested Sequence has no structured sub-steps in this wire
		// format; callers express sequences as a flat top-level list.
		return text
	default:
		return text
	}
}

// stripAccents decomposes to NFD and drops combining marks.
func stripAccents(text string) string {
	decomposed := norm.NFD.String(text)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// replaceStep applies a single pattern -> content substitution. Pattern
// is tried as a regex first; a compile failure falls back to a literal
// string replacement.
func replaceStep(step NormalizerStep, text string) string {
	if re, err := regexp.Compile(step.Pattern); err == nil {
		return re.ReplaceAllString(text, step.Content)
	}
	return strings.ReplaceAll(text, step.Pattern, step.Content)
}
