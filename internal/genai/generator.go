// Package genai invokes the external text-generation model that turns
// natural-language descriptions into YAML data contracts.
package genai

import "context"

// Generator produces YAML contract text from a description, either in
// one shot or as an incrementally delivered stream.
type Generator interface {
	// Generate returns the full generated document.
	Generate(ctx context.Context, description string) (string, error)
	// GenerateStream returns a stream of text fragments. The stream is
	// finite, non-restartable, and consumed exactly once in order.
	GenerateStream(ctx context.Context, description string) (Stream, error)
}

// Stream delivers generated text fragments one at a time. Recv returns
// io.EOF after the final fragment; any other error means generation
// failed mid-stream. Errors travel on the stream as values, never mixed
// into the fragment text.
type Stream interface {
	Recv() (string, error)
	Close() error
}
