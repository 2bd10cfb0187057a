package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"llmbatch/internal/llm/sse"
	"llmbatch/internal/llm/strategy"
	"llmbatch/internal/observability"
)

// Config is the per-client configuration resolved from a ProgressRecord
// or caller-supplied options (see internal/config's Configuration
// Resolver). Per-call knobs are not part of Config; they travel in
// CallOptions.
type Config struct {
	URL       string
	APIKey    string
	Timeout   time.Duration // hard/idle timer duration for a single request
	KeepAlive bool
	ChatMode  bool // whether encrypted reasoning round-trip is requested
	Strategy  strategy.Strategy
}

// CallOptions carries per-call overrides layered on top of Config, plus
// the knobs a Strategy needs to build its payload.
type CallOptions struct {
	Knobs   strategy.Knobs
	Prior   *ReasoningState
	Verbose func(fragment string) // optional live-fragment sink; nil = hard timeout mode
	Cancel  <-chan struct{}       // external per-call cancellation, independent of ctx
}

// Client wraps a Strategy and an SSE Reader behind a single Complete
// operation, handling timeouts, auth, and error translation. Logging goes
// through observability.LoggerWithTrace(ctx) rather than a stored logger,
// so log lines carry whatever trace/span is active on the call's context.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient builds a Client from cfg. httpClient's Transport should
// already be wrapped (otelhttp, optionally http2) by the caller;
// NewClient does not mutate it further.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if cfg.Strategy == nil {
		cfg.Strategy = strategy.SelectByURL(cfg.URL)
	}
	return &Client{cfg: cfg, http: httpClient}
}

// Complete sends messages to the configured endpoint and returns the
// aggregated streamed text, or an error. Partial text is never returned
// on failure.
func (c *Client) Complete(ctx context.Context, messages []Message, opts CallOptions) (string, error) {
	select {
	case <-opts.Cancel:
		return "", newAbortedError("cancelled before request construction")
	default:
	}

	buildCtx := strategy.BuildContext{
		Knobs:    opts.Knobs,
		Prior:    opts.Prior,
		ChatMode: c.cfg.ChatMode,
	}
	payload, err := c.cfg.Strategy.BuildPayload(messages, buildCtx)
	if err != nil {
		return "", fmt.Errorf("llm: build payload: %w", err)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("llm: marshal payload: %w", err)
	}

	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go watchCancel(reqCtx, cancel, opts.Cancel)

	hardTimeout := opts.Verbose == nil
	if c.cfg.Timeout > 0 && hardTimeout {
		var timeoutCancel context.CancelFunc
		reqCtx, timeoutCancel = context.WithTimeout(reqCtx, c.cfg.Timeout)
		defer timeoutCancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm: build request: %w", err)
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	if !c.cfg.KeepAlive {
		req.Header.Set("Connection", "close")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isCancelled(reqCtx, opts.Cancel) {
			return "", newAbortedError("cancelled during request")
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return "", newTimeoutError("request timed out", err)
		}
		return "", newNetworkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := readAPIError(resp)
		observability.LoggerWithTrace(ctx).Debug().
			RawJSON("request_body", observability.RedactJSON(body)).
			Err(apiErr).
			Msg("llm backend returned a non-success status")
		return "", apiErr
	}

	var bodyReader io.Reader = resp.Body
	if !hardTimeout && c.cfg.Timeout > 0 {
		idle := newIdleWatchdog(reqCtx, cancel, c.cfg.Timeout)
		defer idle.stop()
		bodyReader = idle.wrap(resp.Body)
	}

	text, err := c.stream(reqCtx, bodyReader, opts)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", newEmptyBodyError()
	}
	return text, nil
}

func (c *Client) stream(ctx context.Context, body io.Reader, opts CallOptions) (string, error) {
	reader := sse.NewReader(ctx, body)
	strat := c.cfg.Strategy
	var (
		out       strings.Builder
		seenDelta bool
		reasoning = opts.Prior
	)
	if reasoning == nil {
		reasoning = &ReasoningState{}
	}

	for {
		select {
		case <-opts.Cancel:
			return "", newAbortedError("cancelled between frames")
		default:
		}

		event, err := reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out.String(), nil
			}
			if isCancelled(ctx, opts.Cancel) {
				return "", newAbortedError("cancelled during stream read")
			}
			if errors.Is(err, context.DeadlineExceeded) {
				return "", newTimeoutError("stream idle timeout", err)
			}
			return "", newNetworkError(err)
		}

		deltas, err := strat.ParseChunk(event, reasoning, seenDelta)
		if err != nil {
			observability.LoggerWithTrace(ctx).Debug().Err(err).Msg("skipping malformed SSE frame")
			continue
		}
		for _, d := range deltas {
			if d.Kind == KindConditional && seenDelta {
				continue
			}
			out.WriteString(d.Text)
			if d.Kind == KindDelta {
				seenDelta = true
			}
			if opts.Verbose != nil {
				opts.Verbose(d.Text)
			}
		}
	}
}

// idleWatchdog cancels its context if no read occurs within its duration,
// resetting the deadline on every successful read. Used only in verbose
// (idle-timeout) mode; hard-timeout mode relies on context.WithTimeout.
type idleWatchdog struct {
	timer *time.Timer
	d     time.Duration
	done  chan struct{}
}

func newIdleWatchdog(ctx context.Context, cancel context.CancelFunc, d time.Duration) *idleWatchdog {
	w := &idleWatchdog{timer: time.NewTimer(d), d: d, done: make(chan struct{})}
	go func() {
		select {
		case <-w.timer.C:
			cancel()
		case <-w.done:
		case <-ctx.Done():
		}
	}()
	return w
}

func (w *idleWatchdog) reset() {
	if !w.timer.Stop() {
		select {
		case <-w.timer.C:
		default:
		}
	}
	w.timer.Reset(w.d)
}

func (w *idleWatchdog) stop() {
	close(w.done)
	w.timer.Stop()
}

func (w *idleWatchdog) wrap(r io.Reader) io.Reader {
	return &idleResetReader{r: r, w: w}
}

type idleResetReader struct {
	r io.Reader
	w *idleWatchdog
}

func (ir *idleResetReader) Read(p []byte) (int, error) {
	n, err := ir.r.Read(p)
	if n > 0 {
		ir.w.reset()
	}
	return n, err
}

func watchCancel(ctx context.Context, cancel context.CancelFunc, external <-chan struct{}) {
	select {
	case <-ctx.Done():
	case <-external:
		cancel()
	}
}

func isCancelled(ctx context.Context, external <-chan struct{}) bool {
	select {
	case <-external:
		return true
	default:
	}
	return errors.Is(ctx.Err(), context.Canceled)
}

func readAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	msg := strings.TrimSpace(string(raw))
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &parsed) == nil && parsed.Error.Message != "" {
		msg = parsed.Error.Message
	}
	return newAPIError(resp.StatusCode, msg)
}
