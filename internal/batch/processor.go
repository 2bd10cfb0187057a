// Package batch drives a SourceJob's chunks through an LLM Client in
// parallel batches, persisting resumable progress between batches and
// retrying individual calls with exponential backoff and temperature
// escalation.
package batch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"llmbatch/internal/config"
	"llmbatch/internal/llm"
	"llmbatch/internal/llm/strategy"
)

// Status is yielded to a caller-supplied sink after each successfully
// committed batch, generalizing the "yield (processedBatch, chunkIndex)"
// pair into an idiomatic channel-producer/consumer.
type Status struct {
	ProcessedBatch []string
	ChunkIndex     int
	Total          int
}

// StatusSink receives Status values as batches commit. Optional; a nil
// sink simply means no caller is listening for live progress.
type StatusSink chan<- Status

// Job describes one run of the Batch Processor.
type Job struct {
	SourcePath string
	TargetPath string
	StateDir   string
	Options    config.ProgressRecord // used only when no saved record exists
	Client     *llm.Client
	Cancel     *Canceller
	Sink       StatusSink
}

// Processor drives Jobs through the INIT -> ACQUIRE_LOCK ->
// LOAD_OR_SEED_PROGRESS -> RUN_LOOP -> (CANCELLED|COMPLETE) -> SAVE ->
// RELEASE_LOCK state machine described in the batch processor design.
type Processor struct{}

// NewProcessor returns a ready-to-use Processor. It is stateless; all
// per-run state lives in Job and the local Store/Lock it creates.
func NewProcessor() *Processor { return &Processor{} }

// Run executes job to completion, cancellation, or terminal failure.
func (p *Processor) Run(ctx context.Context, job Job) error {
	source, err := os.ReadFile(job.SourcePath)
	if err != nil {
		return fmt.Errorf("batch: read source: %w", err)
	}
	text := string(source)
	fingerprint := Fingerprint(text)

	store := NewStore(job.StateDir)

	lock, err := AcquireLock(job.StateDir, fingerprint)
	if err != nil {
		return err
	}
	defer lock.Release()

	rec, err := store.Load(fingerprint)
	if err != nil {
		return err
	}
	if rec == nil {
		seeded := job.Options
		seeded.FileName = job.SourcePath
		rec = &seeded
	}

	chunks := Chunk(text, rec.ChunkSize)
	if rec.Done(len(chunks)) {
		return nil
	}

	return p.runLoop(ctx, job, store, fingerprint, rec, chunks)
}

func (p *Processor) runLoop(ctx context.Context, job Job, store *Store, fingerprint string, rec *config.ProgressRecord, chunks []string) error {
	lastBatchStart := time.Now().Add(-time.Duration(rec.Delay) * time.Millisecond)

	for rec.ChunkIndex < len(chunks) {
		if job.Cancel != nil && job.Cancel.Level() != CancelNone {
			break
		}

		wait := time.Duration(rec.Delay)*time.Millisecond - time.Since(lastBatchStart)
		if wait > 0 {
			if !sleepInterruptible(ctx, job.Cancel, wait) {
				break
			}
		}
		if job.Cancel != nil && job.Cancel.Level() != CancelNone {
			break
		}
		lastBatchStart = time.Now()

		end := rec.ChunkIndex + rec.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[rec.ChunkIndex:end]

		results := make([]string, len(batch))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(rec.Parallel)
		for i, chunkText := range batch {
			i, chunkText := i, chunkText
			g.Go(func() error {
				out, err := p.callWithRetry(gctx, job, *rec, chunkText)
				if err != nil {
					return err
				}
				results[i] = out
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("batch: batch [%d,%d) failed: %w", rec.ChunkIndex, end, err)
		}

		if job.Cancel != nil && job.Cancel.Level() == CancelForceful {
			break
		}

		rec.ChunkIndex = end
		if err := store.Save(fingerprint, job.TargetPath, *rec, strings.Join(results, "\n\n")); err != nil {
			return err
		}

		if job.Sink != nil {
			job.Sink <- Status{ProcessedBatch: results, ChunkIndex: rec.ChunkIndex, Total: len(chunks)}
		}
	}
	return nil
}

// callWithRetry wraps a single chunk's LLM call in the exponential
// backoff + temperature escalation retry loop.
func (p *Processor) callWithRetry(ctx context.Context, job Job, rec config.ProgressRecord, chunkText string) (string, error) {
	temp := 0.7
	if t, ok := rec.Temperature.Value(); ok {
		temp = t
	}

	var cancelCh <-chan struct{}
	if job.Cancel != nil {
		cancelCh = job.Cancel.Requested()
	}

	messages := buildMessages(rec, chunkText)

	for attempt := 1; ; attempt++ {
		recordAttempt(ctx, temp)

		knobs := knobsFromRecord(rec)
		knobs.Temperature = llm.Enabled(temp)

		out, err := job.Client.Complete(ctx, messages, llm.CallOptions{
			Knobs:  knobs,
			Cancel: cancelCh,
		})
		if err == nil {
			return out, nil
		}
		if errors.Is(err, llm.ErrAborted) {
			return "", err
		}
		if attempt >= rec.MaxAttempts {
			return "", fmt.Errorf("chunk failed after %d attempts: %w", attempt, err)
		}

		waitMs := retryWaitMs(rec.Delay, attempt)
		recordWait(ctx, float64(waitMs)/1000)

		if attempt >= 3 {
			temp = math.Min(1.0, roundTo2(temp+rec.TempIncrement))
		}

		if !sleepInterruptible(ctx, job.Cancel, time.Duration(waitMs)*time.Millisecond) {
			return "", llm.ErrAborted
		}
	}
}

// retryWaitMs computes min(60000, max(delayMs, 2^attempt*5000 + rand(0,1000))).
func retryWaitMs(delayMs, attempt int) int64 {
	backoff := int64(math.Pow(2, float64(attempt))*5000) + rand.Int63n(1000)
	wait := int64(delayMs)
	if backoff > wait {
		wait = backoff
	}
	if wait > 60_000 {
		wait = 60_000
	}
	return wait
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}

// sleepInterruptible sleeps for d, waking early (and returning false) if
// ctx is cancelled or the job's cancellation level leaves CancelNone.
func sleepInterruptible(ctx context.Context, c *Canceller, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	var requested <-chan struct{}
	if c != nil {
		requested = c.Requested()
	}

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	case <-requested:
		return false
	}
}

func buildMessages(rec config.ProgressRecord, chunkText string) []llm.Message {
	var msgs []llm.Message

	if text, ok := rec.SystemPrompt.Value(); ok {
		role := rec.SystemPrompt.Role
		if role == "" {
			role = llm.RoleSystem
		}
		msgs = append(msgs, llm.NewTextMessage(role, text))
	}

	userText := chunkText
	if prepend, ok := rec.PrependPrompt.Value(); ok {
		userText = prepend + "\n" + chunkText
	}

	if len(rec.Images) == 0 {
		msgs = append(msgs, llm.NewTextMessage(llm.RoleUser, userText))
		return msgs
	}

	images := make([]llm.ImageAttachment, 0, len(rec.Images))
	for _, img := range rec.Images {
		if att, ok := llm.ParseDataURL(img); ok {
			images = append(images, att)
		}
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: userText, Images: images})
	return msgs
}

func knobsFromRecord(rec config.ProgressRecord) strategy.Knobs {
	return strategy.Knobs{
		Model:           rec.Model,
		TopP:            rec.TopP,
		TopK:            rec.TopK,
		PresencePenalty: rec.PresencePenalty,
		Seed:            rec.Seed,
		ReasoningEffort: rec.ReasoningEffort,
		EnableThinking:  rec.EnableThinking,
		ChatTemplateKW:  rec.ChatTemplateKW,
		Reasoning:       rec.Reasoning,
		Prefill:         rec.Prefill,
	}
}
