package openai

import (
	"context"
	"encoding/json"
	"io"

	"github.com/loqui-dev/loqui/pkg/chats/chat"
	"github.com/loqui-dev/loqui/pkg/tools/toolbox"
	"github.com/loqui-dev/loqui/pkg/transport"
)

// Stream starts a streaming exchange. Fragments are decoded from the SSE
// chunk stream; the [DONE] sentinel becomes a TurnComplete fragment.
func (a *Adapter) Stream(ctx context.Context, c *chat.Chat, tools []toolbox.Tool) (transport.Stream, error) {
	req := a.buildRequest(c, tools, true)

	resp, err := a.PostStream(ctx, "stream", completionsPath, req)
	if err != nil {
		return nil, err
	}

	return &chunkStream{
		reader:  transport.NewSSEReader(resp.Body),
		adapter: a,
	}, nil
}

// --- streaming chunk types ---

type apiChunk struct {
	Choices []apiChunkChoice `json:"choices"`
	Usage   *apiUsage        `json:"usage"`
}

type apiChunkChoice struct {
	Delta        apiDelta `json:"delta"`
	FinishReason *string  `json:"finish_reason"`
}

type apiDelta struct {
	Content   *string            `json:"content"`
	ToolCalls []apiToolCallDelta `json:"tool_calls"`
}

type apiToolCallDelta struct {
	Index    int                  `json:"index"`
	ID       string               `json:"id"`
	Function apiToolFunctionDelta `json:"function"`
}

type apiToolFunctionDelta struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// chunkStream adapts the SSE chunk stream to the Fragment contract. A
// single chunk may carry both text and tool call deltas, so decoded
// fragments queue in pending and drain one Recv at a time.
type chunkStream struct {
	reader  *transport.SSEReader
	adapter *Adapter
	pending []transport.Fragment
	done    bool
	closed  bool
}

func (s *chunkStream) Recv() (transport.Fragment, error) {
	for {
		if len(s.pending) > 0 {
			f := s.pending[0]
			s.pending = s.pending[1:]
			return f, nil
		}

		if s.done {
			return transport.Fragment{}, io.EOF
		}

		data, err := s.reader.Next()
		if err == io.EOF {
			s.done = true
			return transport.Fragment{TurnComplete: true}, nil
		}
		if err != nil {
			return transport.Fragment{}, &transport.Error{Op: "stream", Err: err}
		}

		var chunk apiChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return transport.Fragment{}, &transport.DecodeError{Op: "stream", Data: data, Err: err}
		}

		if chunk.Usage != nil {
			s.adapter.Usage.Add(transport.TokenCount{
				InputTokens:  chunk.Usage.PromptTokens,
				OutputTokens: chunk.Usage.CompletionTokens,
			})
		}

		for _, choice := range chunk.Choices {
			if choice.Delta.Content != nil && *choice.Delta.Content != "" {
				s.pending = append(s.pending, transport.Fragment{TextDelta: *choice.Delta.Content})
			}
			for _, tc := range choice.Delta.ToolCalls {
				s.pending = append(s.pending, transport.Fragment{ToolCallDelta: &transport.ToolCallDelta{
					Index:          tc.Index,
					ID:             tc.ID,
					Name:           tc.Function.Name,
					ArgumentsDelta: tc.Function.Arguments,
				}})
			}
		}
	}
}

func (s *chunkStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.reader.Close()
}
