package tokenizer

// acNode is one node of the added-token matching trie, stored in a flat
// arena so nodes are addressed by integer index rather than pointer,
// keeping the whole automaton a single contiguous allocation. Matching
// restarts the trie walk at every text position rather than following
// Aho-Corasick failure links, trading its linear-time guarantee for a
// much simpler implementation; added-token sets are small in practice.
type acNode struct {
	children map[rune]int
	matchLen int // length in runes of the longest added token ending here, 0 = none
	matchIdx int // index into addedTokens, valid when matchLen > 0
}

// acAutomaton matches a set of added-token contents against raw text,
// always preferring the longest match starting at a given position.
type acAutomaton struct {
	nodes       []acNode
	addedTokens []AddedToken
}

func buildAhoCorasick(tokens []AddedToken) *acAutomaton {
	a := &acAutomaton{
		nodes:       []acNode{{children: make(map[rune]int)}},
		addedTokens: tokens,
	}
	for i, tok := range tokens {
		a.insert(tok.Content, i)
	}
	return a
}

func (a *acAutomaton) insert(s string, idx int) {
	cur := 0
	n := 0
	for _, r := range s {
		next, ok := a.nodes[cur].children[r]
		if !ok {
			a.nodes = append(a.nodes, acNode{children: make(map[rune]int)})
			next = len(a.nodes) - 1
			a.nodes[cur].children[r] = next
		}
		cur = next
		n++
	}
	// Longest-first: only overwrite if this content is longer than
	// whatever already terminates here.
	if n > a.nodes[cur].matchLen {
		a.nodes[cur].matchLen = n
		a.nodes[cur].matchIdx = idx
	}
}

// acMatch is one greedy, longest-match hit.
type acMatch struct {
	start, end int // byte offsets into the original text
	tokenIdx   int
}

// findAddedTokens scans text for added-token occurrences, always taking
// the longest match available at each start position and resuming
// scanning after the match (non-overlapping).
func (a *acAutomaton) findAddedTokens(text string) []acMatch {
	if len(a.addedTokens) == 0 {
		return nil
	}

	type runePos struct {
		r      rune
		offset int // byte offset of this rune
	}
	runes := make([]runePos, 0, len(text))
	for i, r := range text {
		runes = append(runes, runePos{r: r, offset: i})
	}

	var matches []acMatch
	i := 0
	for i < len(runes) {
		best := -1
		bestLen := 0
		cur := 0
		for j := i; j < len(runes); j++ {
			next, ok := a.nodes[cur].children[runes[j].r]
			if !ok {
				break
			}
			cur = next
			if a.nodes[cur].matchLen > 0 && j-i+1 == a.nodes[cur].matchLen {
				best = a.nodes[cur].matchIdx
				bestLen = a.nodes[cur].matchLen
			}
		}
		if best == -1 {
			i++
			continue
		}
		startOffset := runes[i].offset
		var endOffset int
		if i+bestLen < len(runes) {
			endOffset = runes[i+bestLen].offset
		} else {
			endOffset = len(text)
		}
		matches = append(matches, acMatch{start: startOffset, end: endOffset, tokenIdx: best})
		i += bestLen
	}
	return matches
}
