package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/studybuddy-backend/internal/data/repos"
	types "github.com/yungbote/studybuddy-backend/internal/domain"
	"github.com/yungbote/studybuddy-backend/internal/normalization"
	"github.com/yungbote/studybuddy-backend/internal/normalize"
	"github.com/yungbote/studybuddy-backend/internal/pkg/dbctx"
	"github.com/yungbote/studybuddy-backend/internal/platform/llm"
	"github.com/yungbote/studybuddy-backend/internal/platform/logger"
	"github.com/yungbote/studybuddy-backend/internal/prompts"
)

type RoadmapView struct {
	Topic     string           `json:"topic"`
	Subtopics []types.Subtopic `json:"topics"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

type SubDetails struct {
	Term string `json:"term"`
	HTML string `json:"html"`
}

type DeleteTopicReport struct {
	Topic        string `json:"topic"`
	Roadmaps     int64  `json:"roadmaps"`
	Notes        int64  `json:"notes"`
	Quizzes      int64  `json:"quizzes"`
	QuizAttempts int64  `json:"quiz_attempts"`
	QuizStatus   int64  `json:"quiz_status"`
}

type StudyService interface {
	GenerateRoadmap(ctx context.Context, email, topic string) (*RoadmapView, error)
	GenerateDetails(ctx context.Context, email, topic string) ([]types.DetailSection, error)
	GenerateSubDetails(ctx context.Context, email, topic, term string) (*SubDetails, error)
	ListRoadmaps(ctx context.Context, email string) ([]RoadmapView, error)
	GetRoadmap(ctx context.Context, email, topic string) (*RoadmapView, error)
	GetNotes(ctx context.Context, email, topic, noteType string) ([]*types.Note, error)
	TopicCount(ctx context.Context, email string) (int64, error)
	TopicCounts(ctx context.Context) ([]repos.TopicCount, error)
	DeleteTopic(ctx context.Context, email, topic string) (*DeleteTopicReport, error)
}

type studyService struct {
	db      *gorm.DB
	log     *logger.Logger
	llm     llm.Client
	prompts *prompts.Catalogue
	repos   repos.Set
}

func NewStudyService(db *gorm.DB, baseLog *logger.Logger, client llm.Client, catalogue *prompts.Catalogue, set repos.Set) StudyService {
	return &studyService{
		db:      db,
		log:     baseLog.With("service", "StudyService"),
		llm:     client,
		prompts: catalogue,
		repos:   set,
	}
}

func requireTopic(topic string) (string, string, error) {
	title := normalization.Title(topic)
	if title == "" {
		return "", "", invalid("invalid_request", "topic required")
	}
	return title, normalization.TopicKey(title), nil
}

func (s *studyService) complete(ctx context.Context, name string, data any) (string, error) {
	prompt, err := s.prompts.Render(name, data)
	if err != nil {
		return "", err
	}
	text, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		return "", modelError(err)
	}
	return text, nil
}

func (s *studyService) GenerateRoadmap(ctx context.Context, email, topic string) (*RoadmapView, error) {
	title, key, err := requireTopic(topic)
	if err != nil {
		return nil, err
	}
	text, err := s.complete(ctx, prompts.Roadmap, prompts.TopicData{Topic: title})
	if err != nil {
		return nil, err
	}
	var raw []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := normalize.DecodeValidated(text, normalize.ArrayShape, normalize.RoadmapSchema, &raw); err != nil {
		return nil, modelError(err)
	}
	subtopics := make([]types.Subtopic, 0, len(raw))
	for _, r := range raw {
		t := normalization.Title(r.Title)
		if t == "" {
			continue
		}
		subtopics = append(subtopics, types.Subtopic{
			ID:          len(subtopics) + 1,
			Title:       t,
			Description: strings.TrimSpace(r.Description),
		})
	}
	if len(subtopics) == 0 {
		return nil, modelError(&normalize.UnparseableError{Preview: normalize.Preview(text), Reason: "roadmap has no titled entries"})
	}
	payload, err := json.Marshal(subtopics)
	if err != nil {
		return nil, err
	}
	row := &types.Roadmap{UserEmail: email, Topic: title, TopicKey: key, Subtopics: datatypes.JSON(payload)}
	if err := s.repos.Roadmap.Upsert(dbctx.Context{Ctx: ctx}, row); err != nil {
		return nil, fmt.Errorf("save roadmap: %w", err)
	}
	s.log.Info("roadmap generated", "user_email", email, "topic", title, "subtopics", len(subtopics))
	return &RoadmapView{Topic: title, Subtopics: subtopics, CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt}, nil
}

func (s *studyService) GenerateDetails(ctx context.Context, email, topic string) ([]types.DetailSection, error) {
	title, key, err := requireTopic(topic)
	if err != nil {
		return nil, err
	}
	text, err := s.complete(ctx, prompts.Details, prompts.TopicData{Topic: title})
	if err != nil {
		return nil, err
	}
	var sections []types.DetailSection
	if err := normalize.DecodeValidated(text, normalize.ArrayShape, normalize.DetailsSchema, &sections); err != nil {
		return nil, modelError(err)
	}
	if err := s.saveNote(ctx, email, title, key, types.NoteDetails, sections); err != nil {
		return nil, err
	}
	return sections, nil
}

func (s *studyService) GenerateSubDetails(ctx context.Context, email, topic, term string) (*SubDetails, error) {
	title, key, err := requireTopic(topic)
	if err != nil {
		return nil, err
	}
	term = normalization.Title(term)
	if term == "" {
		return nil, invalid("invalid_request", "term required")
	}
	text, err := s.complete(ctx, prompts.SubDetails, prompts.SubDetailsData{Topic: title, Term: term})
	if err != nil {
		return nil, err
	}
	html, err := normalize.ExtractHTML(text)
	if err != nil {
		return nil, modelError(err)
	}
	out := &SubDetails{Term: term, HTML: html}
	if err := s.saveNote(ctx, email, title, key, types.NoteSubDetails, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *studyService) saveNote(ctx context.Context, email, title, key string, noteType types.NoteType, content any) error {
	raw, err := json.Marshal(content)
	if err != nil {
		return err
	}
	n := &types.Note{UserEmail: email, Topic: title, TopicKey: key, NoteType: noteType, Content: datatypes.JSON(raw)}
	if err := s.repos.Note.Upsert(dbctx.Context{Ctx: ctx}, n); err != nil {
		return fmt.Errorf("save %s note: %w", noteType, err)
	}
	return nil
}

func decodeSubtopics(rm *types.Roadmap) ([]types.Subtopic, error) {
	if len(rm.Subtopics) == 0 {
		return []types.Subtopic{}, nil
	}
	var out []types.Subtopic
	if err := json.Unmarshal(rm.Subtopics, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func roadmapView(rm *types.Roadmap) (RoadmapView, error) {
	subtopics, err := decodeSubtopics(rm)
	if err != nil {
		return RoadmapView{}, err
	}
	return RoadmapView{Topic: rm.Topic, Subtopics: subtopics, CreatedAt: rm.CreatedAt, UpdatedAt: rm.UpdatedAt}, nil
}

func (s *studyService) ListRoadmaps(ctx context.Context, email string) ([]RoadmapView, error) {
	rows, err := s.repos.Roadmap.ListByUser(dbctx.Context{Ctx: ctx}, email)
	if err != nil {
		return nil, err
	}
	out := make([]RoadmapView, 0, len(rows))
	for _, rm := range rows {
		v, err := roadmapView(rm)
		if err != nil {
			s.log.Warn("skipping unreadable roadmap", "topic", rm.Topic, "error", err)
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *studyService) GetRoadmap(ctx context.Context, email, topic string) (*RoadmapView, error) {
	_, key, err := requireTopic(topic)
	if err != nil {
		return nil, err
	}
	rm, err := s.repos.Roadmap.Get(dbctx.Context{Ctx: ctx}, email, key)
	if err != nil {
		return nil, err
	}
	if rm == nil {
		return nil, notFound("roadmap")
	}
	v, err := roadmapView(rm)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// GetNotes lists notes, optionally narrowed to one topic and one note type.
func (s *studyService) GetNotes(ctx context.Context, email, topic, noteType string) ([]*types.Note, error) {
	var want types.NoteType
	if nt := strings.TrimSpace(noteType); nt != "" {
		want = types.NoteType(nt)
		if !want.Valid() {
			return nil, invalid("invalid_request", "unknown note_type %q", nt)
		}
	}
	dbc := dbctx.Context{Ctx: ctx}
	var (
		notes []*types.Note
		err   error
	)
	if key := normalization.TopicKey(topic); key != "" {
		notes, err = s.repos.Note.ListByTopic(dbc, email, key)
	} else {
		notes, err = s.repos.Note.ListByUser(dbc, email)
	}
	if err != nil {
		return nil, err
	}
	if want == "" {
		return notes, nil
	}
	out := notes[:0]
	for _, n := range notes {
		if n.NoteType == want {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *studyService) TopicCount(ctx context.Context, email string) (int64, error) {
	return s.repos.Roadmap.CountByUser(dbctx.Context{Ctx: ctx}, email)
}

func (s *studyService) TopicCounts(ctx context.Context) ([]repos.TopicCount, error) {
	return s.repos.Roadmap.CountAllUsers(dbctx.Context{Ctx: ctx})
}

// DeleteTopic removes everything stored for one topic in a single
// transaction. Sessions and progress are left alone.
func (s *studyService) DeleteTopic(ctx context.Context, email, topic string) (*DeleteTopicReport, error) {
	title, key, err := requireTopic(topic)
	if err != nil {
		return nil, err
	}
	rep := &DeleteTopicReport{Topic: title}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		steps := []struct {
			name string
			n    *int64
			fn   func(dbctx.Context, string, string) (int64, error)
		}{
			{"roadmaps", &rep.Roadmaps, s.repos.Roadmap.DeleteByTopic},
			{"notes", &rep.Notes, s.repos.Note.DeleteByTopic},
			{"quizzes", &rep.Quizzes, s.repos.Quiz.DeleteByTopic},
			{"quiz_attempts", &rep.QuizAttempts, s.repos.QuizAttempt.DeleteByTopic},
			{"quiz_status", &rep.QuizStatus, s.repos.QuizStatus.DeleteByTopic},
		}
		for _, st := range steps {
			n, err := st.fn(dbc, email, key)
			if err != nil {
				return fmt.Errorf("delete %s: %w", st.name, err)
			}
			*st.n = n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if rep.Roadmaps+rep.Notes+rep.Quizzes+rep.QuizAttempts+rep.QuizStatus == 0 {
		return nil, notFound("topic")
	}
	s.log.Info("topic deleted", "user_email", email, "topic", title)
	return rep, nil
}
