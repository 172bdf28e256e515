package transport

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sseBody(s string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(s))
}

func TestSSEReader_DataEvents(t *testing.T) {
	r := NewSSEReader(sseBody("data: {\"a\":1}\n\ndata: {\"b\":2}\n\ndata: [DONE]\n"))

	data, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, data)

	data, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, `{"b":2}`, data)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSSEReader_SkipsCommentsAndFields(t *testing.T) {
	r := NewSSEReader(sseBody(": keepalive\nevent: chunk\nid: 7\ndata: payload\n\n"))

	data, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "payload", data)
}

func TestSSEReader_CRLF(t *testing.T) {
	r := NewSSEReader(sseBody("data: one\r\n\r\ndata: [DONE]\r\n"))

	data, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "one", data)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSSEReader_EOFWithoutDone(t *testing.T) {
	r := NewSSEReader(sseBody("data: last\n"))

	data, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "last", data)

	_, err = r.Next()
	assert.ErrorIs(t, err, ErrStreamTruncated)
}

func TestSSEReader_NoSpaceAfterColon(t *testing.T) {
	r := NewSSEReader(sseBody("data:tight\n"))

	data, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "tight", data)
}
