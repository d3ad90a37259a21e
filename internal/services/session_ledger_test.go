package services

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/yungbote/studybuddy-backend/internal/data/repos/testutil"
	types "github.com/yungbote/studybuddy-backend/internal/domain"
	"github.com/yungbote/studybuddy-backend/internal/pkg/dbctx"
)

func newLedger(env *testEnv, now time.Time) *sessionLedger {
	l := NewSessionLedger(env.db, env.log, env.set.Session, env.set.Progress).(*sessionLedger)
	l.now = func() time.Time { return now }
	return l
}

func TestEndSessionWithoutLogin(t *testing.T) {
	env := newTestEnv(t)
	l := newLedger(env, time.Now().UTC())
	got, err := l.EndSession(context.Background(), testutil.UniqueEmail("nobody"))
	if err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil duration, got %v", *got)
	}
}

func TestSessionDurationAccumulates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	email := testutil.UniqueEmail("ledger")
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	l := newLedger(env, t0)
	if _, err := l.StartSession(ctx, email, types.SessionData{LoginTime: t0.Format(time.RFC3339Nano)}); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	l.now = func() time.Time { return t0.Add(125 * time.Second) }
	got, err := l.EndSession(ctx, email)
	if err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if got == nil || *got != 2.08 {
		t.Fatalf("duration = %v, want 2.08", got)
	}

	again, err := l.EndSession(ctx, email)
	if err != nil || again != nil {
		t.Fatalf("second EndSession: got=%v err=%v", again, err)
	}

	p, err := env.set.Progress.GetByEmail(dbctx.Context{Ctx: ctx}, email)
	if err != nil || p == nil {
		t.Fatalf("GetByEmail: p=%v err=%v", p, err)
	}
	if math.Abs(p.TotalTimeSpent-2.08) > 1e-9 || math.Abs(p.LastSessionDuration-2.08) > 1e-9 {
		t.Fatalf("progress = %+v", p)
	}
}

func TestStartSessionSupersedesActive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	email := testutil.UniqueEmail("relogin")
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	l := newLedger(env, t0)

	first, err := l.StartSession(ctx, email, types.SessionData{LoginTime: t0.Format(time.RFC3339Nano)})
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	later := t0.Add(time.Hour)
	l.now = func() time.Time { return later }
	second, err := l.StartSession(ctx, email, types.SessionData{LoginTime: later.Format(time.RFC3339Nano)})
	if err != nil {
		t.Fatalf("StartSession(again): %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected the active session to be reused")
	}

	l.now = func() time.Time { return later.Add(60 * time.Second) }
	got, err := l.EndSession(ctx, email)
	if err != nil || got == nil || *got != 1 {
		t.Fatalf("EndSession: got=%v err=%v", got, err)
	}
}

func TestParseLoginTime(t *testing.T) {
	fallback := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	cases := []struct {
		raw  string
		want time.Time
	}{
		{"2024-05-01T10:00:00Z", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"2024-05-01T12:00:00+02:00", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"2024-05-01T10:00:00.123456", time.Date(2024, 5, 1, 10, 0, 0, 123456000, time.UTC)},
		{"2024-05-01 10:00:00", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"2024-05-01T10:30", time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)},
		{"2024-05-01T12:30+02:00", time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)},
		{"2024-05-01 10:30", time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)},
		{"2024-05-01T10", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"2024-05-01", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		{"yesterday", fallback},
		{"", fallback},
	}
	for _, tc := range cases {
		if got := ParseLoginTime(tc.raw, fallback); !got.Equal(tc.want) {
			t.Errorf("ParseLoginTime(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}
