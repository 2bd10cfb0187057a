// Package sse reads a chunked text/event-stream HTTP body and yields
// complete events, grounded on the framing rules the reference server's
// OpenAI-compatible streaming clients apply before parsing JSON payloads.
package sse

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
)

// Done is the sentinel event data indicating explicit stream termination.
const Done = "[DONE]"

// Reader yields one event payload at a time from an io.Reader carrying a
// text/event-stream body. Lines are normalized (CRLF/CR -> LF) internally:
// the split function installed by NewReader ends a line at LF, CRLF, or a
// lone CR.
type Reader struct {
	scanner *bufio.Scanner
	ctx     context.Context
	done    bool
}

// NewReader wraps body. ctx is checked between reads so a caller can
// cancel a stalled stream.
func NewReader(ctx context.Context, body io.Reader) *Reader {
	scanner := bufio.NewScanner(body)
	// Individual SSE lines are typically small, but a provider may emit a
	// very large single JSON chunk; grow the buffer accordingly.
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	scanner.Split(func(data []byte, atEOF bool) (int, []byte, error) {
		i := bytes.IndexAny(data, "\r\n")
		switch {
		case i < 0 && atEOF && len(data) > 0:
			return len(data), data, nil
		case i < 0 || (data[i] == '\r' && i+1 == len(data) && !atEOF):
			return 0, nil, nil // need more data (a CR may be the start of CRLF)
		case data[i] == '\r' && i+1 < len(data) && data[i+1] == '\n':
			return i + 2, data[:i], nil
		}
		return i + 1, data[:i], nil
	})
	return &Reader{scanner: scanner, ctx: ctx}
}

// Next returns the next complete event's data payload. It returns
// io.EOF when the body ends without a [DONE] event (not itself an
// error; callers decide whether that's premature termination).
func (r *Reader) Next() (string, error) {
	if r.done {
		return "", io.EOF
	}

	var data []string
	for {
		select {
		case <-r.ctx.Done():
			return "", r.ctx.Err()
		default:
		}

		if !r.scanner.Scan() {
			if err := r.scanner.Err(); err != nil {
				return "", err
			}
			// Body ended. If we'd accumulated a partial event with no
			// trailing blank line, surface it; otherwise EOF.
			r.done = true
			if len(data) > 0 {
				return strings.Join(data, "\n"), nil
			}
			return "", io.EOF
		}

		line := strings.TrimSuffix(r.scanner.Text(), "\r")

		if line == "" {
			// Event boundary.
			if len(data) == 0 {
				continue
			}
			payload := strings.Join(data, "\n")
			if payload == Done {
				r.done = true
				return "", io.EOF
			}
			return payload, nil
		}

		if strings.HasPrefix(line, ":") {
			continue // comment line
		}

		if rest, ok := cutPrefix(line, "data:"); ok {
			rest = strings.TrimPrefix(rest, " ")
			data = append(data, rest)
			continue
		}

		// Unrecognized field (event:, id:, retry:, or malformed) — ignored.
	}
}

func cutPrefix(s, prefix string) (string, bool) {
	if !strings.HasPrefix(s, prefix) {
		return s, false
	}
	return s[len(prefix):], true
}

// ErrMalformed is returned by callers (not this reader) when a data
// payload fails to parse as JSON; the reader itself never fails on
// malformed JSON since it only deals in raw text framing.
var ErrMalformed = errors.New("sse: malformed event payload")
