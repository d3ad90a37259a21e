package mailer

import (
	"context"
	"sync"

	"github.com/yungbote/studybuddy-backend/internal/platform/logger"
)

// LogMailer writes messages to the log instead of delivering them. It keeps
// the last sent messages so tests and local runs can read OTPs back.
type LogMailer struct {
	log *logger.Logger
	cfg Config

	mu   sync.Mutex
	sent []Message
}

func NewLogMailer(log *logger.Logger, cfg Config) *LogMailer {
	return &LogMailer{log: log.With("client", "LogMailer"), cfg: cfg}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	msg, err := normalize(msg, m.cfg)
	if err != nil {
		return err
	}
	to := make([]string, 0, len(msg.To))
	for _, a := range msg.To {
		to = append(to, a.Email)
	}
	m.log.Info("email not delivered (log mailer)", "recipients", len(to), "subject", msg.Subject)
	m.log.Debug("email body", "body", msg.Text)

	m.mu.Lock()
	m.sent = append(m.sent, msg)
	if len(m.sent) > 100 {
		m.sent = m.sent[len(m.sent)-100:]
	}
	m.mu.Unlock()
	return nil
}

func (m *LogMailer) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.sent))
	copy(out, m.sent)
	return out
}
