package generate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// chunkStream is the part of *openai.ChatCompletionStream that ReadStream
// consumes.
type chunkStream interface {
	Recv() (openai.ChatCompletionStreamResponse, error)
}

// ReadStream receives chunks until the [DONE] marker or EOF, calling
// onToken for each content delta and returning the accumulated text.
// Records that do not decode are skipped. Cancellation of ctx is checked
// between records.
func ReadStream(ctx context.Context, s chunkStream, onToken func(string)) (string, error) {
	var out strings.Builder

	for {
		if err := ctx.Err(); err != nil {
			return out.String(), classifyTransport(ctx, err)
		}

		chunk, err := s.Recv()
		if errors.Is(err, io.EOF) {
			return out.String(), nil
		}
		if err != nil {
			if malformedRecord(err) {
				continue
			}
			return out.String(), classifyCall(ctx, err)
		}

		if len(chunk.Choices) == 0 {
			continue
		}
		token := chunk.Choices[0].Delta.Content
		if token == "" {
			continue
		}
		out.WriteString(token)
		if onToken != nil {
			onToken(token)
		}
	}
}

// malformedRecord reports whether err is a single record failing to decode.
func malformedRecord(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}
