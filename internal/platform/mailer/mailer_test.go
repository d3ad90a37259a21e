package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/studybuddy-backend/internal/platform/logger"
)

func testConfig(baseURL string) Config {
	return Config{
		APIKey:     "SG.test",
		BaseURL:    baseURL,
		FromEmail:  "no-reply@example.com",
		FromName:   "StudyBuddy",
		Timeout:    2 * time.Second,
		MaxRetries: 2,
	}
}

func TestSendGridSendsWireRequest(t *testing.T) {
	var got mailSendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/mail/send" {
			t.Errorf("path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer SG.test" {
			t.Errorf("authorization header: %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	m, err := NewSendGrid(logger.Nop(), testConfig(srv.URL))
	if err != nil {
		t.Fatalf("NewSendGrid: %v", err)
	}
	if err := m.Send(context.Background(), OTPEmail("a@example.com", "123456")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.From.Email != "no-reply@example.com" || got.Subject == "" {
		t.Fatalf("unexpected wire request: %+v", got)
	}
	if len(got.Personalizations) != 1 || got.Personalizations[0].To[0].Email != "a@example.com" {
		t.Fatalf("unexpected recipients: %+v", got.Personalizations)
	}
	if len(got.Content) != 1 || !strings.Contains(got.Content[0].Value, "123456") {
		t.Fatalf("unexpected content: %+v", got.Content)
	}
}

func TestSendGridDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad from"}]}`))
	}))
	defer srv.Close()

	m, _ := NewSendGrid(logger.Nop(), testConfig(srv.URL))
	err := m.Send(context.Background(), OTPEmail("a@example.com", "123456"))
	var he *HTTPError
	if !errors.As(err, &he) || he.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected HTTPError 400, got %v", err)
	}
	if !strings.Contains(err.Error(), "bad from") {
		t.Fatalf("error message: %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("calls=%d want 1", calls)
	}
}

func TestNewFallsBackToLogMailer(t *testing.T) {
	m, err := New(logger.Nop(), Config{FromEmail: "no-reply@example.com"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	lm, ok := m.(*LogMailer)
	if !ok {
		t.Fatalf("expected *LogMailer, got %T", m)
	}
	if err := lm.Send(context.Background(), ReminderEmail("b@example.com")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	sent := lm.Sent()
	if len(sent) != 1 || sent[0].To[0].Email != "b@example.com" {
		t.Fatalf("unexpected sent: %+v", sent)
	}
}

func TestSendRejectsMissingRecipient(t *testing.T) {
	lm := NewLogMailer(logger.Nop(), Config{FromEmail: "x@example.com"})
	if err := lm.Send(context.Background(), Message{Subject: "s", Text: "t"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestResetEmailBuildsLink(t *testing.T) {
	msg := ResetEmail("a@example.com", "https://app.example.com/reset", "tok")
	if !strings.Contains(msg.Text, "https://app.example.com/reset?token=tok") {
		t.Fatalf("unexpected body: %s", msg.Text)
	}
}
