package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/studybuddy-backend/internal/data/repos"
	"github.com/yungbote/studybuddy-backend/internal/observability"
	"github.com/yungbote/studybuddy-backend/internal/pkg/dbctx"
	"github.com/yungbote/studybuddy-backend/internal/platform/logger"
	"github.com/yungbote/studybuddy-backend/internal/platform/mailer"
)

const (
	unverifiedGrace = 24 * time.Hour
	reminderWindow  = time.Hour
	sweepLockTTL    = 10 * time.Minute
	sweepLockName   = "unverified-sweep"
)

// Locker grants a lease or returns a nil release when someone else holds it.
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, error)
}

type SweepResult struct {
	Reminded int   `json:"reminded"`
	Deleted  int64 `json:"deleted"`
	Failed   int   `json:"failed"`
	Skipped  bool  `json:"skipped,omitempty"`
}

// Sweeper reminds unverified accounts in their last hour and deletes them
// once they are a day old.
type Sweeper struct {
	log    *logger.Logger
	users  repos.UserRepo
	mail   mailer.Mailer
	locker Locker
	now    func() time.Time
}

// NewSweeper builds a sweeper. locker may be nil for single-replica runs.
func NewSweeper(baseLog *logger.Logger, users repos.UserRepo, mail mailer.Mailer, locker Locker) *Sweeper {
	return &Sweeper{
		log:    baseLog.With("component", "UnverifiedSweeper"),
		users:  users,
		mail:   mail,
		locker: locker,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Sweeper) Name() string { return "unverified_sweep" }

func (s *Sweeper) Run(ctx context.Context) error {
	_, err := s.RunOnce(ctx)
	return err
}

func (s *Sweeper) RunOnce(ctx context.Context) (*SweepResult, error) {
	res := &SweepResult{}
	if s.locker != nil {
		release, err := s.locker.TryLock(ctx, sweepLockName, sweepLockTTL)
		if err != nil {
			return nil, err
		}
		if release == nil {
			s.log.Debug("sweep lock held elsewhere; skipping")
			res.Skipped = true
			observability.Current().ObserveSweep("skipped", 0, 0, 0)
			return res, nil
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.log.Warn("sweep lock release failed", "error", err)
			}
		}()
	}

	now := s.now()
	deleteBefore := now.Add(-unverifiedGrace)
	remindBefore := now.Add(-(unverifiedGrace - reminderWindow))

	stale, err := s.users.ListUnverifiedCreatedBefore(dbctx.Context{Ctx: ctx}, remindBefore)
	if err != nil {
		observability.Current().ObserveSweep("error", 0, 0, 0)
		return nil, err
	}
	var expired []uuid.UUID
	for _, u := range stale {
		if u.CreatedAt.Before(deleteBefore) {
			expired = append(expired, u.ID)
			continue
		}
		if u.ReminderSentAt != nil {
			continue
		}
		if err := s.mail.Send(ctx, mailer.ReminderEmail(u.Email)); err != nil {
			s.log.Warn("reminder email failed", "user_email", u.Email, "error", err)
			res.Failed++
			continue
		}
		if err := s.users.UpdateFields(dbctx.Context{Ctx: ctx}, u.ID, map[string]any{"reminder_sent_at": now}); err != nil {
			s.log.Warn("reminder mark failed", "user_email", u.Email, "error", err)
			res.Failed++
			continue
		}
		res.Reminded++
	}

	if len(expired) > 0 {
		n, err := s.users.DeleteByIDs(dbctx.Context{Ctx: ctx}, expired)
		if err != nil {
			observability.Current().ObserveSweep("error", int64(res.Reminded), 0, int64(res.Failed))
			return nil, err
		}
		res.Deleted = n
	}
	observability.Current().ObserveSweep("ok", int64(res.Reminded), res.Deleted, int64(res.Failed))
	s.log.Info("unverified sweep done", "reminded", res.Reminded, "deleted", res.Deleted, "failed", res.Failed)
	return res, nil
}
