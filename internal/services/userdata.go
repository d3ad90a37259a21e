package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/studybuddy-backend/internal/data/repos"
	types "github.com/yungbote/studybuddy-backend/internal/domain"
	"github.com/yungbote/studybuddy-backend/internal/pkg/dbctx"
	"github.com/yungbote/studybuddy-backend/internal/platform/logger"
)

const homeAttemptLimit = 20

// UserData is everything the client needs to render its home screen.
type UserData struct {
	User          *types.User           `json:"user"`
	Progress      *ProgressSummary      `json:"progress"`
	Roadmaps      []RoadmapView         `json:"roadmaps"`
	Notes         []*types.Note         `json:"notes"`
	Quizzes       []*types.Quiz         `json:"quizzes"`
	QuizAttempts  []*types.QuizAttempt  `json:"quiz_attempts"`
	QuizStatus    []*types.QuizStatus   `json:"quiz_status"`
	TopicProgress []types.TopicProgress `json:"topic_progress"`
}

type UserDataService interface {
	HomeData(ctx context.Context, email string) (*UserData, error)
}

type userDataService struct {
	log      *logger.Logger
	repos    repos.Set
	study    StudyService
	progress ProgressService
}

func NewUserDataService(baseLog *logger.Logger, set repos.Set, study StudyService, progress ProgressService) UserDataService {
	return &userDataService{
		log:      baseLog.With("service", "UserDataService"),
		repos:    set,
		study:    study,
		progress: progress,
	}
}

func (s *userDataService) HomeData(ctx context.Context, email string) (*UserData, error) {
	u, err := s.repos.User.GetByEmail(dbctx.Context{Ctx: ctx}, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, notFound("user")
	}
	out := &UserData{User: u}

	g, gctx := errgroup.WithContext(ctx)
	dbc := dbctx.Context{Ctx: gctx}
	g.Go(func() error {
		p, err := s.progress.GetProgress(gctx, email)
		if err != nil {
			return fmt.Errorf("progress: %w", err)
		}
		out.Progress = p
		return nil
	})
	g.Go(func() error {
		rms, err := s.study.ListRoadmaps(gctx, email)
		if err != nil {
			return fmt.Errorf("roadmaps: %w", err)
		}
		out.Roadmaps = rms
		return nil
	})
	g.Go(func() error {
		notes, err := s.repos.Note.ListByUser(dbc, email)
		if err != nil {
			return fmt.Errorf("notes: %w", err)
		}
		out.Notes = notes
		return nil
	})
	g.Go(func() error {
		quizzes, err := s.repos.Quiz.ListByUser(dbc, email)
		if err != nil {
			return fmt.Errorf("quizzes: %w", err)
		}
		out.Quizzes = quizzes
		return nil
	})
	g.Go(func() error {
		attempts, err := s.repos.QuizAttempt.List(dbc, email, "", homeAttemptLimit)
		if err != nil {
			return fmt.Errorf("quiz attempts: %w", err)
		}
		out.QuizAttempts = attempts
		return nil
	})
	g.Go(func() error {
		status, err := s.repos.QuizStatus.List(dbc, email, "")
		if err != nil {
			return fmt.Errorf("quiz status: %w", err)
		}
		out.QuizStatus = status
		return nil
	})
	g.Go(func() error {
		tp, err := s.progress.ComputeTopicProgress(gctx, email)
		if err != nil {
			return fmt.Errorf("topic progress: %w", err)
		}
		out.TopicProgress = tp
		return nil
	})
	if err := g.Wait(); err != nil {
		s.log.Error("home data failed", "user_email", email, "error", err)
		return nil, err
	}
	return out, nil
}
