package services

import (
	"context"
	"testing"

	"github.com/yungbote/studybuddy-backend/internal/data/repos/testutil"
	types "github.com/yungbote/studybuddy-backend/internal/domain"
	"github.com/yungbote/studybuddy-backend/internal/pkg/dbctx"
)

func TestComputeLevel(t *testing.T) {
	cases := []struct {
		xp      int
		level   int
		badge   string
		prev    int
		next    int
		percent int
	}{
		{0, 1, "Rookie", 0, 100, 0},
		{50, 1, "Rookie", 0, 100, 50},
		{100, 2, "Apprentice", 100, 250, 0},
		{175, 2, "Apprentice", 100, 250, 50},
		{749, 4, "Expert", 500, 750, 100},
		{750, 5, "Master", 750, 1000, 0},
		{1000, 5, "Master", 750, 1000, 100},
		{5000, 5, "Master", 750, 1000, 100},
	}
	for _, tc := range cases {
		got := ComputeLevel(tc.xp)
		if got.Level != tc.level || got.Badge != tc.badge || got.PrevCap != tc.prev || got.NextCap != tc.next || got.ProgressPercent != tc.percent {
			t.Errorf("ComputeLevel(%d) = %+v", tc.xp, got)
		}
	}

	prev := 0
	for xp := 0; xp <= 1200; xp += 5 {
		lvl := ComputeLevel(xp).Level
		if lvl < prev {
			t.Fatalf("level decreased at xp=%d", xp)
		}
		prev = lvl
	}
}

func TestRecordQuizOutcomeAwardsXPOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := env.progress()
	email := testutil.UniqueEmail("xp")

	out, err := svc.RecordQuizOutcome(dbctx.Context{Ctx: ctx}, email, "Go", "Syntax", types.QuizMCQ, false)
	if err != nil || out.Flipped {
		t.Fatalf("failed attempt: out=%+v err=%v", out, err)
	}
	out, err = svc.RecordQuizOutcome(dbctx.Context{Ctx: ctx}, email, "Go", "Syntax", types.QuizMCQ, true)
	if err != nil || !out.Flipped || out.XPAwarded != 20 {
		t.Fatalf("first pass: out=%+v err=%v", out, err)
	}
	out, err = svc.RecordQuizOutcome(dbctx.Context{Ctx: ctx}, email, " go ", "syntax", types.QuizMCQ, true)
	if err != nil || out.Flipped || out.XPAwarded != 0 {
		t.Fatalf("repeat pass: out=%+v err=%v", out, err)
	}
	out, err = svc.RecordQuizOutcome(dbctx.Context{Ctx: ctx}, email, "Go", "", types.QuizDescriptive, true)
	if err != nil || !out.Flipped || out.XPAwarded != 50 {
		t.Fatalf("final pass: out=%+v err=%v", out, err)
	}

	sum, err := svc.GetProgress(ctx, email)
	if err != nil {
		t.Fatalf("GetProgress: %v", err)
	}
	if sum.XP != 70 || sum.Level != 1 || sum.ProgressPercent != 70 {
		t.Fatalf("summary = %+v", sum)
	}
}

func TestRecordQuizOutcomeFailureClearsFlagButNotXP(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := env.progress()
	email := testutil.UniqueEmail("relapse")

	out, err := svc.RecordQuizOutcome(dbctx.Context{Ctx: ctx}, email, "Go", "Syntax", types.QuizMCQ, true)
	if err != nil || !out.Flipped || out.XPAwarded != 20 {
		t.Fatalf("pass: out=%+v err=%v", out, err)
	}
	out, err = svc.RecordQuizOutcome(dbctx.Context{Ctx: ctx}, email, "Go", "Syntax", types.QuizMCQ, false)
	if err != nil || !out.Flipped || out.XPAwarded != 0 {
		t.Fatalf("fail: out=%+v err=%v", out, err)
	}
	rows, err := env.set.QuizStatus.List(dbctx.Context{Ctx: ctx}, email, "go")
	if err != nil || len(rows) != 1 || rows[0].MCQPassed {
		t.Fatalf("after fail: rows=%+v err=%v", rows, err)
	}
	out, err = svc.RecordQuizOutcome(dbctx.Context{Ctx: ctx}, email, "Go", "Syntax", types.QuizMCQ, true)
	if err != nil || !out.Flipped || out.XPAwarded != 0 {
		t.Fatalf("pass again: out=%+v err=%v", out, err)
	}

	sum, err := svc.GetProgress(ctx, email)
	if err != nil {
		t.Fatalf("GetProgress: %v", err)
	}
	if sum.XP != 20 {
		t.Fatalf("xp = %d, want 20", sum.XP)
	}
}

func TestComputeTopicProgress(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := env.progress()
	email := testutil.UniqueEmail("topics")
	testutil.SeedRoadmap(t, ctx, env.db, email, "Go", "Syntax", "Types")

	record := func(subtopic string, qt types.QuizType) {
		t.Helper()
		if _, err := svc.RecordQuizOutcome(dbctx.Context{Ctx: ctx}, email, "Go", subtopic, qt, true); err != nil {
			t.Fatalf("RecordQuizOutcome: %v", err)
		}
	}
	record("Syntax", types.QuizMCQ)
	record("Syntax", types.QuizDescriptive)
	record("", types.QuizMCQ)
	// Not on the roadmap; must not count.
	record("Generics", types.QuizMCQ)

	got, err := svc.ComputeTopicProgress(ctx, email)
	if err != nil {
		t.Fatalf("ComputeTopicProgress: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("topics = %+v", got)
	}
	tp := got[0]
	if tp.Topic != "Go" || tp.Passed != 3 || tp.Required != 6 || tp.Percent != 50 {
		t.Fatalf("topic progress = %+v", tp)
	}

	p, err := env.set.Progress.GetByEmail(dbctx.Context{Ctx: ctx}, email)
	if err != nil || p == nil || len(p.TopicProgress) == 0 {
		t.Fatalf("cached topic progress missing: p=%v err=%v", p, err)
	}
}
