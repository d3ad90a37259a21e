package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/studybuddy-backend/internal/data/repos"
	types "github.com/yungbote/studybuddy-backend/internal/domain"
	"github.com/yungbote/studybuddy-backend/internal/pkg/dbctx"
	"github.com/yungbote/studybuddy-backend/internal/platform/logger"
)

// SessionLedger owns the per-user active session and folds session length
// into the progress record when it ends.
type SessionLedger interface {
	StartSession(ctx context.Context, email string, meta types.SessionData) (*types.Session, error)
	// EndSession returns the session length in minutes rounded to two
	// decimals, or nil when there was no active session to end.
	EndSession(ctx context.Context, email string) (*float64, error)
}

type sessionLedger struct {
	db       *gorm.DB
	log      *logger.Logger
	sessions repos.SessionRepo
	progress repos.ProgressRepo
	now      func() time.Time
}

func NewSessionLedger(db *gorm.DB, baseLog *logger.Logger, sessions repos.SessionRepo, progress repos.ProgressRepo) SessionLedger {
	return &sessionLedger{
		db:       db,
		log:      baseLog.With("service", "SessionLedger"),
		sessions: sessions,
		progress: progress,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (l *sessionLedger) StartSession(ctx context.Context, email string, meta types.SessionData) (*types.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, invalid("invalid_request", "email required")
	}
	now := l.now()
	if strings.TrimSpace(meta.LoginTime) == "" {
		meta.LoginTime = now.Format(time.RFC3339Nano)
	}

	var out *types.Session
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		existing, err := l.sessions.GetActive(dbc, email)
		if err != nil {
			return err
		}
		if existing != nil {
			ok, err := l.sessions.Supersede(dbc, existing.ID, meta, now)
			if err != nil {
				return err
			}
			if ok {
				existing.SessionData = meta
				existing.LastAccessed = now
				out = existing
				return nil
			}
		}
		s := &types.Session{UserEmail: email, SessionData: meta, LastAccessed: now}
		if err := l.sessions.Create(dbc, s); err != nil {
			return err
		}
		out = s
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	l.log.Debug("session started", "user_email", email, "session_id", out.ID)
	return out, nil
}

func (l *sessionLedger) EndSession(ctx context.Context, email string) (*float64, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, nil
	}
	var duration *float64
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		s, err := l.sessions.GetActive(dbc, email)
		if err != nil || s == nil {
			return err
		}
		now := l.now()
		ok, err := l.sessions.Deactivate(dbc, s.ID, now)
		if err != nil || !ok {
			return err
		}
		started := ParseLoginTime(s.SessionData.LoginTime, s.CreatedAt)
		minutes := round2(math.Max(0, now.Sub(started).Minutes()))
		if err := l.progress.AddSessionDuration(dbc, email, minutes, now); err != nil {
			return err
		}
		duration = &minutes
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("end session: %w", err)
	}
	if duration == nil {
		l.log.Debug("logout without active session", "user_email", email)
	}
	return duration, nil
}

// Layouts cover the ISO-8601 forms clients emit: optional zone, optional
// seconds, 'T' or space separator, and bare dates.
var loginTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04Z07:00",
	"2006-01-02 15:04",
	"2006-01-02T15",
	"2006-01-02",
}

// ParseLoginTime reads an ISO-8601 timestamp with or without a zone. Naive
// values are taken as UTC. Anything unparseable yields fallback.
func ParseLoginTime(raw string, fallback time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback.UTC()
	}
	for _, layout := range loginTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return fallback.UTC()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
