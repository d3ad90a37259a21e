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
	"github.com/yungbote/studybuddy-backend/internal/normalization"
	"github.com/yungbote/studybuddy-backend/internal/pkg/dbctx"
	"github.com/yungbote/studybuddy-backend/internal/platform/logger"
)

var (
	levelThresholds = []int{100, 250, 500, 750, 1000}
	levelBadges     = []string{"Rookie", "Apprentice", "Scholar", "Expert", "Master"}
)

const (
	xpSubtopicQuiz = 20
	xpFinalQuiz    = 50
)

type LevelInfo struct {
	Level           int    `json:"level"`
	Badge           string `json:"badge"`
	XP              int    `json:"xp"`
	PrevCap         int    `json:"prev_cap"`
	NextCap         int    `json:"next_cap"`
	ProgressPercent int    `json:"progress_percent"`
}

// ComputeLevel maps accumulated XP onto the five-level ladder.
func ComputeLevel(xp int) LevelInfo {
	if xp < 0 {
		xp = 0
	}
	top := len(levelThresholds)
	if xp >= levelThresholds[top-1] {
		return LevelInfo{
			Level:           top,
			Badge:           levelBadges[top-1],
			XP:              xp,
			PrevCap:         levelThresholds[top-2],
			NextCap:         levelThresholds[top-1],
			ProgressPercent: 100,
		}
	}
	prev := 0
	for i, next := range levelThresholds {
		if xp < next {
			pct := int(math.Round(100 * float64(xp-prev) / float64(next-prev)))
			return LevelInfo{
				Level:           i + 1,
				Badge:           levelBadges[i],
				XP:              xp,
				PrevCap:         prev,
				NextCap:         next,
				ProgressPercent: clampPercent(pct),
			}
		}
		prev = next
	}
	return LevelInfo{}
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

type QuizOutcome struct {
	Topic     string `json:"topic"`
	Subtopic  string `json:"subtopic"`
	Flag      string `json:"flag"`
	Passed    bool   `json:"passed"`
	Flipped   bool   `json:"flipped"`
	XPAwarded int    `json:"xp_awarded"`
}

type ProgressSummary struct {
	Email               string     `json:"email"`
	TotalTimeSpent      float64    `json:"total_time_spent"`
	LastSessionDuration float64    `json:"last_session_duration"`
	LastLogoutEnd       *time.Time `json:"last_logout_end"`
	CreatedAt           *time.Time `json:"created_at"`
	LevelInfo
}

type ProgressService interface {
	GetProgress(ctx context.Context, email string) (*ProgressSummary, error)
	// RecordQuizOutcome joins dbc.Tx when set and opens its own transaction
	// otherwise.
	RecordQuizOutcome(dbc dbctx.Context, email, topic, subtopic string, quizType types.QuizType, passed bool) (*QuizOutcome, error)
	ComputeTopicProgress(ctx context.Context, email string) ([]types.TopicProgress, error)
}

type progressService struct {
	db         *gorm.DB
	log        *logger.Logger
	progress   repos.ProgressRepo
	roadmaps   repos.RoadmapRepo
	quizStatus repos.QuizStatusRepo
}

func NewProgressService(db *gorm.DB, baseLog *logger.Logger, progress repos.ProgressRepo, roadmaps repos.RoadmapRepo, quizStatus repos.QuizStatusRepo) ProgressService {
	return &progressService{
		db:         db,
		log:        baseLog.With("service", "ProgressService"),
		progress:   progress,
		roadmaps:   roadmaps,
		quizStatus: quizStatus,
	}
}

func (s *progressService) GetProgress(ctx context.Context, email string) (*ProgressSummary, error) {
	p, err := s.progress.GetByEmail(dbctx.Context{Ctx: ctx}, email)
	if err != nil {
		return nil, err
	}
	out := &ProgressSummary{Email: email, LevelInfo: ComputeLevel(0)}
	if p == nil {
		return out, nil
	}
	created := p.CreatedAt
	out.TotalTimeSpent = p.TotalTimeSpent
	out.LastSessionDuration = p.LastSessionDuration
	out.LastLogoutEnd = p.LastLogoutEnd
	out.CreatedAt = &created
	out.LevelInfo = ComputeLevel(p.XP)
	return out, nil
}

func (s *progressService) RecordQuizOutcome(dbc dbctx.Context, email, topic, subtopic string, quizType types.QuizType, passed bool) (*QuizOutcome, error) {
	email = strings.TrimSpace(email)
	if email == "" || normalization.TopicKey(topic) == "" {
		return nil, invalid("invalid_request", "email and topic required")
	}
	slot := repos.QuizSlot{
		UserEmail: email,
		Topic:     normalization.Title(topic),
		TopicKey:  normalization.TopicKey(topic),
		Subtopic:  normalization.TopicKey(subtopic),
	}
	flag := repos.FlagDescriptive
	if quizType == types.QuizMCQ {
		flag = repos.FlagMCQ
	}
	out := &QuizOutcome{Topic: slot.Topic, Subtopic: slot.Subtopic, Flag: flag, Passed: passed}

	record := func(dbc dbctx.Context) error {
		changed, err := s.quizStatus.SetFlag(dbc, slot, flag, passed)
		if err != nil {
			return err
		}
		out.Flipped = changed
		if !passed {
			return nil
		}
		claimed, err := s.quizStatus.ClaimXP(dbc, slot, flag)
		if err != nil || !claimed {
			return err
		}
		out.XPAwarded = xpSubtopicQuiz
		if slot.Subtopic == "" {
			out.XPAwarded = xpFinalQuiz
		}
		return s.progress.AddXP(dbc, email, out.XPAwarded)
	}

	var err error
	if dbc.Tx != nil {
		err = record(dbc)
	} else {
		ctx := dbc.Ctx
		if ctx == nil {
			ctx = context.Background()
		}
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return record(dbctx.Context{Ctx: ctx, Tx: tx})
		})
	}
	if err != nil {
		return nil, fmt.Errorf("record quiz outcome: %w", err)
	}
	if out.Flipped {
		s.log.Info("quiz flag changed", "user_email", email, "flag", flag, "passed", passed, "xp", out.XPAwarded)
	}
	return out, nil
}

// ComputeTopicProgress counts raised flags against the two mandatory quizzes
// of every subtopic plus the final, per roadmap. The result is cached on the
// progress row.
func (s *progressService) ComputeTopicProgress(ctx context.Context, email string) ([]types.TopicProgress, error) {
	dbc := dbctx.Context{Ctx: ctx}
	roadmaps, err := s.roadmaps.ListByUser(dbc, email)
	if err != nil {
		return nil, err
	}
	statuses, err := s.quizStatus.List(dbc, email, "")
	if err != nil {
		return nil, err
	}
	byTopic := map[string][]*types.QuizStatus{}
	for _, st := range statuses {
		byTopic[st.TopicKey] = append(byTopic[st.TopicKey], st)
	}

	out := make([]types.TopicProgress, 0, len(roadmaps))
	for _, rm := range roadmaps {
		subtopics, err := decodeSubtopics(rm)
		if err != nil {
			s.log.Warn("skipping roadmap with unreadable subtopics", "topic", rm.Topic, "error", err)
			continue
		}
		slots := map[string]bool{"": true}
		for _, st := range subtopics {
			slots[normalization.TopicKey(st.Title)] = true
		}
		passed := 0
		for _, st := range byTopic[rm.TopicKey] {
			if slots[st.Subtopic] {
				passed += st.PassedCount()
			}
		}
		required := 2*len(subtopics) + 2
		pct := int(math.Round(100 * float64(passed) / float64(required)))
		out = append(out, types.TopicProgress{
			Topic:    rm.Topic,
			Passed:   passed,
			Required: required,
			Percent:  clampPercent(pct),
		})
	}
	if err := s.progress.SetTopicProgress(dbc, email, out); err != nil {
		s.log.Warn("topic progress cache write failed", "user_email", email, "error", err)
	}
	return out, nil
}
