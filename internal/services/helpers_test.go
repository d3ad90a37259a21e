package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/studybuddy-backend/internal/data/repos"
	"github.com/yungbote/studybuddy-backend/internal/data/repos/testutil"
	"github.com/yungbote/studybuddy-backend/internal/platform/llm"
	"github.com/yungbote/studybuddy-backend/internal/platform/logger"
	"github.com/yungbote/studybuddy-backend/internal/prompts"
)

// scriptedLLM replays canned replies in order and records every prompt.
type scriptedLLM struct {
	mu      sync.Mutex
	replies []string
	err     error
	prompts []string
}

func (f *scriptedLLM) Complete(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", errors.New("scriptedLLM: no reply queued")
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r, nil
}

func (f *scriptedLLM) Chat(ctx context.Context, req llm.Request) (string, error) {
	prompt := ""
	if len(req.Messages) > 0 {
		prompt = req.Messages[len(req.Messages)-1].Content
	}
	return f.Complete(ctx, prompt)
}

func (f *scriptedLLM) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type testEnv struct {
	db        *gorm.DB
	log       *logger.Logger
	set       repos.Set
	catalogue *prompts.Catalogue
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	cat, err := prompts.Default(log)
	if err != nil {
		t.Fatalf("prompts.Default: %v", err)
	}
	return &testEnv{db: db, log: log, set: repos.NewSet(db, log), catalogue: cat}
}

func (e *testEnv) progress() ProgressService {
	return NewProgressService(e.db, e.log, e.set.Progress, e.set.Roadmap, e.set.QuizStatus)
}
