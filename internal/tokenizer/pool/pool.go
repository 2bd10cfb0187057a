// Package pool distributes token-counting work across a fixed set of
// isolated workers, each holding its own cache of parsed Tokenizer
// instances built from a process-shared, read-only definition buffer.
package pool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/google/uuid"

	"llmbatch/internal/tokenizer"
)

// ErrPoolShutdown is returned by Submit, and surfaced to any queued or
// in-flight job, once the pool has been shut down.
var ErrPoolShutdown = errors.New("tokenizer pool: shutting down")

// Job is one unit of work dispatched to a worker: count tokens for every
// input string against the named tokenizer.
type Job struct {
	ID            string
	TokenizerName string
	Inputs        []string
	AddSpecials   bool
}

// Result is a worker's response to a Job.
type Result struct {
	ID     string
	Counts []int
	Err    error
}

// SharedBuffers holds the process-shared, read-only serialized tokenizer
// artifacts a worker parses once per name and then caches.
type SharedBuffers struct {
	DefinitionJSON []byte
}

// Pool is a fixed-size set of isolated workers, each running its own
// goroutine with no shared mutable state beyond the read-only buffers
// and an idle-worker FIFO dispatch queue.
type Pool struct {
	jobs      chan jobRequest
	buffers   map[string]SharedBuffers
	buffersMu sync.RWMutex

	wg       sync.WaitGroup
	shutdown chan struct{}
	once     sync.Once
}

type jobRequest struct {
	job    Job
	result chan<- Result
}

// New starts a Pool with workers goroutines (defaulting to
// runtime.NumCPU() when workers <= 0).
func New(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	p := &Pool{
		jobs:     make(chan jobRequest),
		buffers:  make(map[string]SharedBuffers),
		shutdown: make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.workerLoop()
	}
	return p
}

// RegisterTokenizer makes a named tokenizer's serialized definition
// available to every worker. Workers parse it lazily on first use and
// cache the resulting Tokenizer by name.
func (p *Pool) RegisterTokenizer(name string, buf SharedBuffers) {
	p.buffersMu.Lock()
	defer p.buffersMu.Unlock()
	p.buffers[name] = buf
}

// Submit dispatches job to an idle worker (queueing if none are free)
// and blocks until the result is available or ctx is cancelled.
func (p *Pool) Submit(ctx context.Context, job Job) Result {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	resultCh := make(chan Result, 1)

	select {
	case <-p.shutdown:
		return Result{ID: job.ID, Err: ErrPoolShutdown}
	case p.jobs <- jobRequest{job: job, result: resultCh}:
	case <-ctx.Done():
		return Result{ID: job.ID, Err: ctx.Err()}
	}

	select {
	case res := <-resultCh:
		return res
	case <-ctx.Done():
		return Result{ID: job.ID, Err: ctx.Err()}
	case <-p.shutdown:
		return Result{ID: job.ID, Err: ErrPoolShutdown}
	}
}

// Shutdown stops accepting new jobs, rejects anything still queued, and
// waits for in-flight workers to exit. The pool is not reusable after
// Shutdown; call New again for a fresh pool.
func (p *Pool) Shutdown() {
	p.once.Do(func() {
		close(p.shutdown)
	})
	p.wg.Wait()
}

func (p *Pool) workerLoop() {
	defer p.wg.Done()
	cache := map[string]*tokenizer.Tokenizer{}

	for {
		select {
		case <-p.shutdown:
			return
		case req := <-p.jobs:
			req.result <- p.process(req.job, cache)
		}
	}
}

func (p *Pool) process(job Job, cache map[string]*tokenizer.Tokenizer) Result {
	tok, ok := cache[job.TokenizerName]
	if !ok {
		p.buffersMu.RLock()
		buf, ok := p.buffers[job.TokenizerName]
		p.buffersMu.RUnlock()
		if !ok {
			return Result{ID: job.ID, Err: fmt.Errorf("tokenizer pool: unknown tokenizer %q", job.TokenizerName)}
		}
		def, err := tokenizer.ParseDefinition(buf.DefinitionJSON)
		if err != nil {
			return Result{ID: job.ID, Err: fmt.Errorf("tokenizer pool: parse definition: %w", err)}
		}
		tok = tokenizer.New(def)
		cache[job.TokenizerName] = tok
	}

	counts := make([]int, len(job.Inputs))
	for i, in := range job.Inputs {
		counts[i] = tok.CountWithSpecials(in, job.AddSpecials)
	}
	return Result{ID: job.ID, Counts: counts}
}
