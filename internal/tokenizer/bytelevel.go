package tokenizer

// byteToRune and runeToByte implement the canonical GPT-2 byte-to-visible
// -unicode mapping: bytes in [33,126]∪[161,172]∪[174,255] map to their
// own code point; every other byte is assigned a dense code point
// starting at 256, in ascending byte order.
var byteToRune [256]rune
var runeToByte map[rune]byte

func init() {
	runeToByte = make(map[rune]byte, 256)

	printable := func(b int) bool {
		return (b >= 33 && b <= 126) || (b >= 161 && b <= 172) || (b >= 174 && b <= 255)
	}

	next := 256
	for b := 0; b < 256; b++ {
		var r rune
		if printable(b) {
			r = rune(b)
		} else {
			r = rune(next)
			next++
		}
		byteToRune[b] = r
		runeToByte[r] = byte(b)
	}
}

// byteLevelEncode renders the UTF-8 bytes of s as the visible-unicode
// byte-level alphabet.
func byteLevelEncode(s string) string {
	raw := []byte(s)
	runes := make([]rune, len(raw))
	for i, b := range raw {
		runes[i] = byteToRune[b]
	}
	return string(runes)
}

// byteLevelDecode reverses byteLevelEncode.
func byteLevelDecode(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if b, ok := runeToByte[r]; ok {
			out = append(out, b)
		}
	}
	return out
}
