package sse

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReader_ReadsSingleLineEvents(t *testing.T) {
	body := "data: {\"a\":1}\n\ndata: {\"a\":2}\n\n"
	r := NewReader(context.Background(), strings.NewReader(body))

	first, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, first)

	second, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, second)
}

func TestReader_JoinsMultiLineData(t *testing.T) {
	body := "data: line one\ndata: line two\n\n"
	r := NewReader(context.Background(), strings.NewReader(body))

	event, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", event)
}

func TestReader_StopsOnDoneSentinel(t *testing.T) {
	body := "data: {\"a\":1}\n\ndata: [DONE]\n\ndata: {\"a\":2}\n\n"
	r := NewReader(context.Background(), strings.NewReader(body))

	first, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, first)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_IgnoresCommentAndUnknownFields(t *testing.T) {
	body := ": keep-alive\nevent: message\nid: 1\ndata: payload\n\n"
	r := NewReader(context.Background(), strings.NewReader(body))

	event, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "payload", event)
}

func TestReader_SurfacesTrailingPartialEventOnEOF(t *testing.T) {
	body := "data: partial"
	r := NewReader(context.Background(), strings.NewReader(body))

	event, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "partial", event)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_EmptyBodyReturnsEOF(t *testing.T) {
	r := NewReader(context.Background(), strings.NewReader(""))
	_, err := r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_ContextCancelledMidStream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewReader(ctx, strings.NewReader("data: x\n\n"))

	_, err := r.Next()
	assert.True(t, errors.Is(err, context.Canceled))
}
