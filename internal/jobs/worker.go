package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/yungbote/studybuddy-backend/internal/platform/logger"
)

// Job is one periodic unit of work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Worker runs a Job immediately and then on every tick until ctx is done.
type Worker struct {
	log      *logger.Logger
	job      Job
	interval time.Duration
}

func NewWorker(baseLog *logger.Logger, job Job, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Worker{
		log:      baseLog.With("component", "JobWorker", "job", job.Name()),
		job:      job,
		interval: interval,
	}
}

func (w *Worker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		w.runOnce(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.runOnce(ctx)
			}
		}
	}()
}

func (w *Worker) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Job panic", "error", errFromRecover(r))
		}
	}()
	if err := w.job.Run(ctx); err != nil {
		w.log.Warn("Job run failed", "error", err)
	}
}

func errFromRecover(v any) error {
	return &panicError{Val: v}
}

type panicError struct{ Val any }

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.Val) }
