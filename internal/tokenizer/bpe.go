package tokenizer

import (
	"container/heap"
	"sync"
)

// mergeTable maps a "left right" symbol pair to its merge rank (lower
// merges first), built once from a TokenizerDefinition's Merges list.
type mergeTable map[[2]string]int

func buildMergeTable(merges []string) mergeTable {
	table := make(mergeTable, len(merges))
	for rank, m := range merges {
		left, right, ok := splitMerge(m)
		if !ok {
			continue
		}
		table[[2]string{left, right}] = rank
	}
	return table
}

func splitMerge(m string) (string, string, bool) {
	for i := 0; i < len(m); i++ {
		if m[i] == ' ' {
			return m[:i], m[i+1:], true
		}
	}
	return "", "", false
}

// bpeNode is one live position in the doubly-linked symbol list.
type bpeNode struct {
	symbol  string
	prev    int // index into nodes, -1 if none
	next    int
	version int
	dead    bool
}

// pairHeapItem is a candidate merge enqueued in the min-heap.
type pairHeapItem struct {
	rank         int
	tieBreaker   int // min ordinal of the two endpoints, per spec
	left, right  int // node indices at enqueue time
	leftVersion  int
	rightVersion int
}

type pairHeap []pairHeapItem

func (h pairHeap) Len() int { return len(h) }
func (h pairHeap) Less(i, j int) bool {
	if h[i].rank != h[j].rank {
		return h[i].rank < h[j].rank
	}
	return h[i].tieBreaker < h[j].tieBreaker
}
func (h pairHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *pairHeap) Push(x any)         { *h = append(*h, x.(pairHeapItem)) }
func (h *pairHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// bpeCache is a bounded LRU for tokens under 256 characters, shared
// across calls to a single Tokenizer instance.
type bpeCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*bpeCacheEntry
	order    []string // front = most recently used
}

type bpeCacheEntry struct {
	value []string
}

func newBPECache(capacity int) *bpeCache {
	return &bpeCache{capacity: capacity, entries: make(map[string]*bpeCacheEntry)}
}

func (c *bpeCache) get(key string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.touch(key)
	return e.value, true
}

func (c *bpeCache) put(key string, value []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		c.entries[key] = &bpeCacheEntry{value: value}
		c.touch(key)
		return
	}
	if len(c.order) >= c.capacity {
		oldest := c.order[len(c.order)-1]
		c.order = c.order[:len(c.order)-1]
		delete(c.entries, oldest)
	}
	c.entries[key] = &bpeCacheEntry{value: value}
	c.order = append([]string{key}, c.order...)
}

func (c *bpeCache) touch(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.order = append([]string{key}, c.order...)
}

// bpeMerge runs the merge-rank BPE algorithm over one pre-token's
// graphemes, returning the final list of subwords.
func bpeMerge(graphemes []string, merges mergeTable, continuingSuffix string) []string {
	if len(graphemes) == 0 {
		return nil
	}
	if len(graphemes) == 1 {
		return graphemes
	}

	nodes := make([]bpeNode, len(graphemes))
	for i, g := range graphemes {
		nodes[i] = bpeNode{symbol: g, prev: i - 1, next: i + 1}
	}
	nodes[len(nodes)-1].next = -1

	h := &pairHeap{}
	heap.Init(h)

	enqueue := func(a, b int) {
		if a == -1 || b == -1 {
			return
		}
		rank, ok := merges[[2]string{nodes[a].symbol, nodes[b].symbol}]
		if !ok {
			return
		}
		tie := a
		if b < tie {
			tie = b
		}
		heap.Push(h, pairHeapItem{
			rank: rank, tieBreaker: tie,
			left: a, right: b,
			leftVersion: nodes[a].version, rightVersion: nodes[b].version,
		})
	}

	for i := 0; i < len(nodes)-1; i++ {
		enqueue(i, i+1)
	}

	for h.Len() > 0 {
		item := heap.Pop(h).(pairHeapItem)
		l, r := item.left, item.right
		if nodes[l].dead || nodes[r].dead {
			continue
		}
		if nodes[l].version != item.leftVersion || nodes[r].version != item.rightVersion {
			continue
		}

		nodes[l].symbol += nodes[r].symbol
		nodes[l].version++
		nodes[r].dead = true

		nodes[l].next = nodes[r].next
		if nodes[r].next != -1 {
			nodes[nodes[r].next].prev = l
		}

		enqueue(nodes[l].prev, l)
		enqueue(l, nodes[l].next)
	}

	var out []string
	for i := 0; i != -1; i = nodes[i].next {
		if nodes[i].dead {
			continue
		}
		out = append(out, nodes[i].symbol)
	}

	if continuingSuffix != "" {
		for i := 0; i < len(out)-1; i++ {
			out[i] += continuingSuffix
		}
	}
	return out
}
