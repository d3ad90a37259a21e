package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/studybuddy-backend/internal/platform/logger"
)

func newTestClient(t *testing.T, baseURL string, timeout time.Duration) Client {
	t.Helper()
	c, err := New(logger.Nop(), Config{
		BaseURL:       baseURL,
		APIKey:        "test-key",
		Model:         "local-model",
		Temperature:   0.7,
		MaxTokens:     14000,
		Timeout:       timeout,
		NoThinkSuffix: " /no-think",
	})
	require.NoError(t, err)
	return c
}

func completion(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1234567890,
		"model":   "local-model",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	}
}

func TestCompleteSendsChatCompletionBody(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion("<think>planning...</think>\n  [1,2,3]  "))
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL+"/v1", 5*time.Second)
	out, err := c.Complete(context.Background(), "Give me numbers")
	require.NoError(t, err)
	assert.Equal(t, "[1,2,3]", out)

	assert.Equal(t, "local-model", got["model"])
	assert.InDelta(t, 0.7, got["temperature"], 0.0001)
	assert.EqualValues(t, 14000, got["max_tokens"])
	msgs := got["messages"].([]any)
	require.Len(t, msgs, 1)
	msg := msgs[0].(map[string]any)
	assert.Equal(t, "user", msg["role"])
	assert.Equal(t, "Give me numbers /no-think", msg["content"])
}

func TestConnectionRefusedIsOffline(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	c := newTestClient(t, "http://"+addr+"/v1", 2*time.Second)
	_, err = c.Complete(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAIOffline), "got %v", err)
}

func TestTimeoutIsOffline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(completion("late"))
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL+"/v1", 50*time.Millisecond)
	_, err := c.Complete(context.Background(), "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAIOffline)
}

func TestClientErrorIsUpstreamNotOffline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"context too long","type":"invalid_request_error"}}`))
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL+"/v1", time.Second)
	_, err := c.Complete(context.Background(), "hello")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrAIOffline))
	var up *UpstreamError
	require.True(t, errors.As(err, &up))
	assert.Equal(t, http.StatusBadRequest, up.StatusCode)
}

func TestServerErrorIsOffline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"loading model","type":"unavailable_error"}}`))
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL+"/v1", time.Second)
	_, err := c.Complete(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrAIOffline)
}

func TestStripThink(t *testing.T) {
	in := "<think>\nstep one\nstep two\n</think>Answer <think>x</think>here"
	assert.Equal(t, "Answer here", StripThink(in))
	assert.False(t, strings.Contains(StripThink("<think>a</think>"), "think"))
}
