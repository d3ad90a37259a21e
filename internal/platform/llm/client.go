// Package llm talks to the OpenAI-compatible chat completions endpoint of the
// local model server.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/studybuddy-backend/internal/observability"
	"github.com/yungbote/studybuddy-backend/internal/platform/envutil"
	"github.com/yungbote/studybuddy-backend/internal/platform/httpx"
	"github.com/yungbote/studybuddy-backend/internal/platform/logger"
)

// ErrAIOffline means the model server could not be reached or timed out.
var ErrAIOffline = errors.New("AI is offline, please start the local model server and try again")

// UpstreamError is a non-transport failure reported by the model server.
type UpstreamError struct {
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("llm upstream http %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("llm upstream: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

const (
	RoleSystem    = openai.ChatMessageRoleSystem
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
)

type Message struct {
	Role    string
	Content string
}

type Request struct {
	Messages []Message
	// Zero values fall back to the client defaults.
	Temperature float32
	MaxTokens   int
}

type Client interface {
	// Complete sends a single user prompt.
	Complete(ctx context.Context, prompt string) (string, error)
	Chat(ctx context.Context, req Request) (string, error)
}

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	// NoThinkSuffix is appended to the last user message to disable
	// reasoning traces on models that honour it.
	NoThinkSuffix string
}

func ConfigFromEnv() Config {
	return Config{
		BaseURL:       envutil.String("LLM_BASE_URL", "http://127.0.0.1:8080/v1"),
		APIKey:        envutil.String("LLM_API_KEY", "sk-no-key-required"),
		Model:         envutil.String("LLM_MODEL", "local-model"),
		Temperature:   float32(envutil.Float("LLM_TEMPERATURE", 0.7)),
		MaxTokens:     envutil.Int("LLM_MAX_TOKENS", 14000),
		Timeout:       envutil.Duration("LLM_TIMEOUT", 30*time.Second),
		NoThinkSuffix: envutil.String("LLM_NO_THINK_SUFFIX", " /no-think"),
	}
}

type client struct {
	log *logger.Logger
	api *openai.Client
	cfg Config
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("missing LLM_BASE_URL")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 14000
	}
	if cfg.Model == "" {
		cfg.Model = "local-model"
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &client{
		log: log.With("client", "LLMClient", "model", cfg.Model),
		api: openai.NewClientWithConfig(oc),
		cfg: cfg,
	}, nil
}

func (c *client) Complete(ctx context.Context, prompt string) (string, error) {
	return c.Chat(ctx, Request{Messages: []Message{{Role: RoleUser, Content: prompt}}})
}

func (c *client) Chat(ctx context.Context, req Request) (text string, err error) {
	ctx, span := observability.StartSpan(ctx, "llm.chat",
		attribute.String("llm.model", c.cfg.Model),
		attribute.Int("llm.messages", len(req.Messages)),
	)
	defer func() { observability.EndSpan(span, err) }()

	if len(req.Messages) == 0 {
		return "", fmt.Errorf("llm: at least one message required")
	}
	temp := req.Temperature
	if temp == 0 {
		temp = c.cfg.Temperature
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.cfg.MaxTokens
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	lastUser := -1
	for i, m := range req.Messages {
		role := m.Role
		if role == "" {
			role = RoleUser
		}
		if role == RoleUser {
			lastUser = i
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	if lastUser >= 0 && c.cfg.NoThinkSuffix != "" && !strings.HasSuffix(msgs[lastUser].Content, c.cfg.NoThinkSuffix) {
		msgs[lastUser].Content += c.cfg.NoThinkSuffix
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    msgs,
		Temperature: temp,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		mapped := c.mapError(ctx, err)
		status := "error"
		if errors.Is(mapped, ErrAIOffline) {
			status = "offline"
		}
		observability.Current().ObserveLLMRequest(c.cfg.Model, status, time.Since(start), 0, 0)
		c.log.Warn("LLM request failed",
			"duration_ms", time.Since(start).Milliseconds(),
			"offline", errors.Is(mapped, ErrAIOffline),
			"error", err.Error(),
		)
		return "", mapped
	}
	if len(resp.Choices) == 0 {
		return "", &UpstreamError{Err: fmt.Errorf("no choices in response")}
	}

	text = StripThink(resp.Choices[0].Message.Content)
	span.SetAttributes(
		attribute.Int("llm.prompt_tokens", resp.Usage.PromptTokens),
		attribute.Int("llm.completion_tokens", resp.Usage.CompletionTokens),
	)
	observability.Current().ObserveLLMRequest(c.cfg.Model, "ok", time.Since(start), resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	c.log.Debug("LLM request completed",
		"duration_ms", time.Since(start).Milliseconds(),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"finish_reason", string(resp.Choices[0].FinishReason),
	)
	return text, nil
}

func (c *client) mapError(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return ctx.Err()
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode >= 500 {
			return fmt.Errorf("%w: %v", ErrAIOffline, err)
		}
		return &UpstreamError{StatusCode: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode >= 500 {
			return fmt.Errorf("%w: %v", ErrAIOffline, err)
		}
		return &UpstreamError{StatusCode: reqErr.HTTPStatusCode, Err: err}
	}
	if httpx.IsUnreachable(err) {
		return fmt.Errorf("%w: %v", ErrAIOffline, err)
	}
	return &UpstreamError{Err: err}
}

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// StripThink removes <think>...</think> reasoning blocks and trims the rest.
func StripThink(s string) string {
	return strings.TrimSpace(thinkBlock.ReplaceAllString(s, ""))
}
