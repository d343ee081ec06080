package generate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/zulandar/vibeyard/internal/models"
)

// maxErrorBody caps how much of a failed response is kept in HTTPError.
const maxErrorBody = 4096

// Streamer performs one streaming completion against a model config.
type Streamer interface {
	Stream(ctx context.Context, cfg models.AIModelConfig, prompt string, onToken func(string)) (string, error)
}

// Client talks to OpenAI-compatible chat completion endpoints.
type Client struct {
	HTTP *http.Client
}

// NewClient returns a Client whose calls are bounded by timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{HTTP: &http.Client{Timeout: timeout}}
}

// endpointDoer sends every SDK request to the configured endpoint URL, so
// endpoints that do not follow the <base>/chat/completions layout work.
type endpointDoer struct {
	endpoint *url.URL
	client   *http.Client
}

func (d endpointDoer) Do(req *http.Request) (*http.Response, error) {
	u := *d.endpoint
	req.URL = &u
	req.Host = u.Host
	return d.client.Do(req)
}

// Stream posts prompt as the system message and reads the streamed reply.
func (c *Client) Stream(ctx context.Context, cfg models.AIModelConfig, prompt string, onToken func(string)) (string, error) {
	endpoint, err := url.Parse(cfg.EndpointURL)
	if err != nil || endpoint.Scheme == "" || endpoint.Host == "" {
		return "", fmt.Errorf("%w: model %s has an invalid endpoint %q", ErrConfig, cfg.Name, cfg.EndpointURL)
	}

	config := openai.DefaultConfig(cfg.APIKey)
	config.HTTPClient = endpointDoer{endpoint: endpoint, client: c.HTTP}
	client := openai.NewClientWithConfig(config)

	stream, err := client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    cfg.ModelName,
		Messages: []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleSystem, Content: prompt}},
		Stream:   true,
	})
	if err != nil {
		return "", classifyCall(ctx, err)
	}
	defer stream.Close()

	return ReadStream(ctx, stream, onToken)
}

// classifyCall maps SDK errors onto the taxonomy. Error responses become
// *HTTPError; everything else is a transport failure.
func classifyCall(ctx context.Context, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &HTTPError{StatusCode: apiErr.HTTPStatusCode, Body: clip(apiErr.Message)}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		body := string(reqErr.Body)
		if body == "" && reqErr.Err != nil {
			body = reqErr.Err.Error()
		}
		return &HTTPError{StatusCode: reqErr.HTTPStatusCode, Body: clip(body)}
	}
	if errors.Is(err, openai.ErrTooManyEmptyStreamMessages) {
		return fmt.Errorf("%w: %v", ErrEmptyResult, err)
	}
	return classifyTransport(ctx, err)
}

func clip(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody]
	}
	return s
}
