package batch

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint returns a fast content-addressed hash of the normalized
// source text, used as the resumable-state key (the target state
// directory file name minus its extension). Normalization turns CRLF and
// lone CR into LF and trims trailing LFs before hashing so that
// line-ending differences or trailing newlines don't invalidate an
// otherwise-identical job's saved progress.
func Fingerprint(text string) string {
	normalized := normalizeForHash(text)
	sum := xxhash.Sum64String(normalized)
	return strconv.FormatUint(sum, 16)
}

func normalizeForHash(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimRight(text, "\n")
}
