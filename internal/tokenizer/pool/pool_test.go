package pool

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llmbatch/internal/tokenizer"
)

func registerTestTokenizer(t *testing.T, p *Pool, name string) {
	t.Helper()
	def := tokenizer.TokenizerDefinition{
		PreTokenizer: []tokenizer.PreTokenizerStep{{Type: "ByteLevel", UseRegex: true}},
		Vocab:        map[string]int{"a": 0, "b": 1, "c": 2},
	}
	raw, err := json.Marshal(def)
	require.NoError(t, err)
	p.RegisterTokenizer(name, SharedBuffers{DefinitionJSON: raw})
}

func TestPool_SubmitCountsTokens(t *testing.T) {
	p := New(2)
	defer p.Shutdown()
	registerTestTokenizer(t, p, "demo")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	res := p.Submit(ctx, Job{TokenizerName: "demo", Inputs: []string{"a", "bb"}})
	require.NoError(t, res.Err)
	assert.Equal(t, []int{1, 2}, res.Counts)
}

func TestPool_SubmitUnknownTokenizerErrors(t *testing.T) {
	p := New(1)
	defer p.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	res := p.Submit(ctx, Job{TokenizerName: "missing", Inputs: []string{"a"}})
	assert.Error(t, res.Err)
}

func TestPool_ShutdownRejectsFurtherSubmits(t *testing.T) {
	p := New(1)
	registerTestTokenizer(t, p, "demo")
	p.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	res := p.Submit(ctx, Job{TokenizerName: "demo", Inputs: []string{"a"}})
	assert.ErrorIs(t, res.Err, ErrPoolShutdown)
}

func TestPool_ParallelCountMatchesSequential(t *testing.T) {
	p := New(4)
	defer p.Shutdown()
	registerTestTokenizer(t, p, "demo")

	inputs := []string{"a", "bb", "c", "aa", "b", "ccc"}
	ctx := context.Background()

	parallel, err := p.ParallelCount(ctx, "demo", inputs, false, 3)
	require.NoError(t, err)

	sequential := make([]int, len(inputs))
	for i, in := range inputs {
		res := p.Submit(ctx, Job{TokenizerName: "demo", Inputs: []string{in}})
		require.NoError(t, res.Err)
		sequential[i] = res.Counts[0]
	}

	assert.Equal(t, sequential, parallel)
}
