package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/studybuddy-backend/internal/platform/envutil"
	"github.com/yungbote/studybuddy-backend/internal/platform/logger"
)

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type Address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type Message struct {
	From    Address
	To      []Address
	Subject string
	Text    string
	HTML    string
}

type Config struct {
	APIKey     string
	BaseURL    string
	FromEmail  string
	FromName   string
	Timeout    time.Duration
	MaxRetries int
}

func ConfigFromEnv() Config {
	return Config{
		APIKey:     envutil.String("SENDGRID_API_KEY", ""),
		BaseURL:    envutil.String("SENDGRID_BASE_URL", "https://api.sendgrid.com"),
		FromEmail:  envutil.String("MAIL_FROM_EMAIL", "no-reply@studybuddy.local"),
		FromName:   envutil.String("MAIL_FROM_NAME", "StudyBuddy"),
		Timeout:    envutil.Duration("SENDGRID_TIMEOUT", 30*time.Second),
		MaxRetries: envutil.Int("SENDGRID_MAX_RETRIES", 3),
	}
}

// New returns a SendGrid mailer when an API key is configured and a
// log-only mailer otherwise.
func New(log *logger.Logger, cfg Config) (Mailer, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		log.Warn("SENDGRID_API_KEY not set; emails will only be logged")
		return NewLogMailer(log, cfg), nil
	}
	return NewSendGrid(log, cfg)
}

func normalize(msg Message, cfg Config) (Message, error) {
	if strings.TrimSpace(msg.From.Email) == "" {
		msg.From = Address{Email: cfg.FromEmail, Name: cfg.FromName}
	}
	msg.From.Email = strings.TrimSpace(msg.From.Email)
	msg.Subject = strings.TrimSpace(msg.Subject)
	if msg.From.Email == "" {
		return msg, fmt.Errorf("mailer: from address required")
	}
	if len(msg.To) == 0 {
		return msg, fmt.Errorf("mailer: recipient required")
	}
	if msg.Subject == "" {
		return msg, fmt.Errorf("mailer: subject required")
	}
	if strings.TrimSpace(msg.Text) == "" && strings.TrimSpace(msg.HTML) == "" {
		return msg, fmt.Errorf("mailer: text or html body required")
	}
	return msg, nil
}
