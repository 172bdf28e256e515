package transport

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// doneSentinel terminates an OpenAI-style event stream.
const doneSentinel = "[DONE]"

// ErrStreamTruncated is returned when the stream ends without the [DONE]
// sentinel, which means the response was cut off.
var ErrStreamTruncated = errors.New("event stream truncated")

// SSEReader reads data events from a server-sent-events stream. Only the
// "data:" field is interpreted; comments and other fields are skipped.
type SSEReader struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

// NewSSEReader wraps a response body. Close the reader to release it.
func NewSSEReader(body io.ReadCloser) *SSEReader {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	return &SSEReader{body: body, scanner: scanner}
}

// Next returns the payload of the next data event. It returns io.EOF on the
// terminating [DONE] sentinel and ErrStreamTruncated when the stream ends
// without one.
func (r *SSEReader) Next() (string, error) {
	for r.scanner.Scan() {
		line := strings.TrimRight(r.scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}

		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			// Ignore other SSE fields (event:, id:, retry:).
			continue
		}

		data = strings.TrimSpace(data)
		if data == doneSentinel {
			return "", io.EOF
		}
		return data, nil
	}

	if err := r.scanner.Err(); err != nil {
		return "", err
	}
	return "", ErrStreamTruncated
}

// Close releases the underlying body.
func (r *SSEReader) Close() error {
	return r.body.Close()
}
