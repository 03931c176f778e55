package llm

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"project/backend/config"

	openai "github.com/sashabaranov/go-openai"
)

// Message roles as consumed by OpenAI-compatible chat completion endpoints.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of an ordered chat completion context.
type Message struct {
	Role    string
	Content string
}

// Client is the generative text backend. Engines receive it as an injected
// dependency so tests can substitute a deterministic fake.
type Client interface {
	Complete(ctx context.Context, model string, messages []Message) (string, error)
}

// ErrEmptyCompletion is returned when the backend answers with no content.
var ErrEmptyCompletion = errors.New("completion returned no content")

type openAIClient struct {
	api     *openai.Client
	timeout time.Duration
}

// NewClient builds a Client against an OpenAI-compatible completion endpoint
// (Groq by default, see config). Calls are bounded by the configured timeout
// and retried once with jitter on transport failure.
func NewClient(cfg *config.Config) Client {
	apiCfg := openai.DefaultConfig(cfg.LLMAPIKey)
	if cfg.LLMBaseURL != "" {
		apiCfg.BaseURL = cfg.LLMBaseURL
	}

	timeout := time.Duration(cfg.LLMTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &openAIClient{
		api:     openai.NewClientWithConfig(apiCfg),
		timeout: timeout,
	}
}

func (c *openAIClient) Complete(ctx context.Context, model string, messages []Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	content, err := c.completeOnce(ctx, req)
	if err == nil {
		return content, nil
	}
	if ctx.Err() != nil {
		return "", err
	}

	// One bounded retry with jitter. At-most-once semantics per attempt is
	// acceptable; an in-flight call is not unwound on caller abort.
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(time.Duration(500+rand.Intn(500)) * time.Millisecond):
	}

	return c.completeOnce(ctx, req)
}

func (c *openAIClient) completeOnce(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(callCtx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyCompletion
	}
	return content, nil
}
