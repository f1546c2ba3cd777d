package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/ternlund/datapact/internal/apperr"
)

// BedrockAPI is the subset of the Bedrock runtime client the generator
// needs. Narrowed to an interface so tests can substitute a fake.
type BedrockAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
	InvokeModelWithResponseStream(ctx context.Context, params *bedrockruntime.InvokeModelWithResponseStreamInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelWithResponseStreamOutput, error)
}

// Bedrock generates contracts through the Bedrock runtime messages API.
type Bedrock struct {
	api         BedrockAPI
	modelID     string
	maxTokens   int
	temperature float64
}

var _ Generator = (*Bedrock)(nil)

// NewBedrock creates a generator bound to the given model.
func NewBedrock(api BedrockAPI, modelID string, maxTokens int, temperature float64) *Bedrock {
	return &Bedrock{api: api, modelID: modelID, maxTokens: maxTokens, temperature: temperature}
}

type messagesRequest struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	Temperature      float64   `json:"temperature"`
	Messages         []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (b *Bedrock) requestBody(description string) ([]byte, error) {
	return json.Marshal(messagesRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        b.maxTokens,
		Temperature:      b.temperature,
		Messages: []message{
			{Role: "user", Content: SystemPrompt + "\n\nUser request: " + description},
		},
	})
}

// Generate invokes the model synchronously and returns the first text
// block of the structured reply.
func (b *Bedrock) Generate(ctx context.Context, description string) (string, error) {
	body, err := b.requestBody(description)
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", apperr.ErrGenerationFailed, err)
	}
	out, err := b.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrGenerationFailed, err)
	}
	return firstTextBlock(out.Body)
}

func firstTextBlock(raw []byte) (string, error) {
	var resp messagesResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", apperr.ErrGenerationFailed, err)
	}
	for _, block := range resp.Content {
		if block.Type == "" || block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("%w: response contained no text block", apperr.ErrGenerationFailed)
}

// GenerateStream invokes the model with a response stream and adapts the
// protocol events into a fragment stream.
func (b *Bedrock) GenerateStream(ctx context.Context, description string) (Stream, error) {
	body, err := b.requestBody(description)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", apperr.ErrGenerationFailed, err)
	}
	out, err := b.api.InvokeModelWithResponseStream(ctx, &bedrockruntime.InvokeModelWithResponseStreamInput{
		ModelId:     aws.String(b.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrGenerationFailed, err)
	}
	es := out.GetStream()
	return newEventStream(ctx, es.Events(), es.Err, es.Close), nil
}

// streamEvent is the protocol event envelope delivered in each chunk.
// Only content_block_delta events carry fragment text; every other event
// type (message_start, content_block_stop, ...) is ignored.
type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
}

// decodeChunk extracts the text fragment from one protocol event, if it
// carries one.
func decodeChunk(raw []byte) (string, bool) {
	var ev streamEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return "", false
	}
	if ev.Type != "content_block_delta" || ev.Delta.Text == "" {
		return "", false
	}
	return ev.Delta.Text, true
}

// eventStream adapts the SDK's event channel into a Stream. Split from
// the SDK output type so the translation is testable without a live
// event stream.
type eventStream struct {
	ctx    context.Context
	events <-chan brtypes.ResponseStream
	errFn  func() error
	closer func() error
}

func newEventStream(ctx context.Context, events <-chan brtypes.ResponseStream, errFn func() error, closer func() error) *eventStream {
	return &eventStream{ctx: ctx, events: events, errFn: errFn, closer: closer}
}

func (s *eventStream) Recv() (string, error) {
	for {
		select {
		case <-s.ctx.Done():
			return "", fmt.Errorf("%w: %v", apperr.ErrGenerationFailed, s.ctx.Err())
		case ev, ok := <-s.events:
			if !ok {
				if err := s.errFn(); err != nil {
					return "", fmt.Errorf("%w: %v", apperr.ErrGenerationFailed, err)
				}
				return "", io.EOF
			}
			chunk, ok := ev.(*brtypes.ResponseStreamMemberChunk)
			if !ok {
				continue
			}
			if text, ok := decodeChunk(chunk.Value.Bytes); ok {
				return text, nil
			}
		}
	}
}

func (s *eventStream) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}
