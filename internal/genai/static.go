package genai

import (
	"context"
	"io"
)

// Static is a canned Generator used in tests and local development. It
// returns Content in one shot and Chunks fragment by fragment.
type Static struct {
	Content string
	Chunks  []string
	Err     error
}

var _ Generator = (*Static)(nil)

func (s *Static) Generate(_ context.Context, _ string) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	return s.Content, nil
}

func (s *Static) GenerateStream(_ context.Context, _ string) (Stream, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	chunks := s.Chunks
	if len(chunks) == 0 && s.Content != "" {
		chunks = []string{s.Content}
	}
	return &sliceStream{chunks: chunks}, nil
}

type sliceStream struct {
	chunks []string
	pos    int
	err    error
}

// NewSliceStream returns a Stream that yields the given fragments and
// then finalErr, or io.EOF when finalErr is nil. Tests use it to
// exercise mid-stream failures.
func NewSliceStream(chunks []string, finalErr error) Stream {
	return &sliceStream{chunks: chunks, err: finalErr}
}

func (s *sliceStream) Recv() (string, error) {
	if s.pos >= len(s.chunks) {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	c := s.chunks[s.pos]
	s.pos++
	return c, nil
}

func (s *sliceStream) Close() error { return nil }
