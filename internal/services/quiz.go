package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
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

const (
	defaultQuizQuestions = 10
	maxQuizQuestions     = 50
	bothDescriptiveShare = 0.3
)

type GenerateQuizRequest struct {
	Topic        string `json:"topic"`
	Subtopic     string `json:"subtopic"`
	QuizType     string `json:"quiz_type"`
	NumQuestions int    `json:"num_questions"`
}

type GeneratedQuiz struct {
	Topic        string                `json:"topic"`
	Subtopic     string                `json:"subtopic"`
	QuizType     types.QuizType        `json:"quiz_type"`
	NumQuestions int                   `json:"num_questions"`
	Questions    []types.QuizItem      `json:"questions"`
	Report       normalize.CountReport `json:"report"`
}

type GradeRequest struct {
	Question    string `json:"question"`
	IdealAnswer string `json:"ideal_answer"`
	UserAnswer  string `json:"user_answer"`
}

type Grade struct {
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
}

// SubmitAttemptRequest carries one answered quiz. Answers and
// DescriptiveScores are keyed by question id. When Questions is empty the
// stored quiz for the same slot is graded.
type SubmitAttemptRequest struct {
	Topic             string            `json:"topic"`
	Subtopic          string            `json:"subtopic"`
	QuizType          string            `json:"quiz_type"`
	Practice          bool              `json:"practice"`
	Questions         []types.QuizItem  `json:"questions"`
	Answers           map[string]string `json:"answers"`
	DescriptiveScores map[string]int    `json:"descriptive_scores"`
}

type AttemptResult struct {
	Attempt *types.QuizAttempt `json:"attempt"`
	Scores  types.Scores       `json:"scores"`
	Passed  bool               `json:"passed"`
	Outcome *QuizOutcome       `json:"outcome,omitempty"`
}

type QuizService interface {
	GenerateQuiz(ctx context.Context, email string, req GenerateQuizRequest) (*GeneratedQuiz, error)
	AnalyzeAnswers(ctx context.Context, items []GradeRequest) ([]Grade, error)
	SubmitAttempt(ctx context.Context, email string, req SubmitAttemptRequest) (*AttemptResult, error)
	ListAttempts(ctx context.Context, email, topic string, limit int) ([]*types.QuizAttempt, error)
	QuizStatus(ctx context.Context, email, topic string) ([]*types.QuizStatus, error)
}

type quizService struct {
	db       *gorm.DB
	log      *logger.Logger
	llm      llm.Client
	prompts  *prompts.Catalogue
	repos    repos.Set
	progress ProgressService
	policy   normalize.ShortfallPolicy
}

func NewQuizService(
	db *gorm.DB,
	baseLog *logger.Logger,
	client llm.Client,
	catalogue *prompts.Catalogue,
	set repos.Set,
	progress ProgressService,
	policy normalize.ShortfallPolicy,
) QuizService {
	return &quizService{
		db:       db,
		log:      baseLog.With("service", "QuizService"),
		llm:      client,
		prompts:  catalogue,
		repos:    set,
		progress: progress,
		policy:   policy,
	}
}

// QuizSplit returns how many MCQ and descriptive questions make up n.
// "Both" is 30% descriptive, at least one when n >= 2.
func QuizSplit(quizType types.QuizType, n int) (mcq, descriptive int) {
	switch quizType {
	case types.QuizDescriptive:
		return 0, n
	case types.QuizBoth:
		descriptive = int(math.Round(float64(n) * bothDescriptiveShare))
		if descriptive < 1 && n >= 2 {
			descriptive = 1
		}
		return n - descriptive, descriptive
	default:
		return n, 0
	}
}

func itemKind(quizType types.QuizType) string {
	switch quizType {
	case types.QuizMCQ:
		return types.ItemMCQ
	case types.QuizDescriptive:
		return types.ItemDescriptive
	}
	return ""
}

func (s *quizService) GenerateQuiz(ctx context.Context, email string, req GenerateQuizRequest) (*GeneratedQuiz, error) {
	title, key, err := requireTopic(req.Topic)
	if err != nil {
		return nil, err
	}
	quizType, ok := types.ParseQuizType(req.QuizType)
	if !ok {
		return nil, invalid("invalid_request", "quiz_type must be MCQ, Descriptive or Both")
	}
	n := req.NumQuestions
	if n == 0 {
		n = defaultQuizQuestions
	}
	if n < 1 || n > maxQuizQuestions {
		return nil, invalid("invalid_request", "num_questions must be between 1 and %d", maxQuizQuestions)
	}
	subtopic := normalization.Title(req.Subtopic)
	mcq, desc := QuizSplit(quizType, n)

	prompt, err := s.prompts.Render(prompts.Quiz, prompts.QuizData{
		Topic: title, Subtopic: subtopic, Count: n, MCQ: mcq, Descriptive: desc,
	})
	if err != nil {
		return nil, err
	}
	text, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, modelError(err)
	}
	defaultType := itemKind(quizType)
	if defaultType == "" {
		defaultType = types.ItemMCQ
	}
	items, err := normalize.ParseQuizItems(text, defaultType)
	if err != nil {
		return nil, modelError(err)
	}

	supplement := func(ctx context.Context, missing int) ([]types.QuizItem, error) {
		return s.supplement(ctx, title, subtopic, quizType, missing, items)
	}
	items, rep, err := normalize.EnforceCount(ctx, items, n, s.policy, supplement)
	if err != nil {
		return nil, modelError(err)
	}
	if rep.Cloned > 0 {
		s.log.Warn("quiz padded with cloned questions", "topic", title, "cloned", rep.Cloned, "requested", n)
	}
	if err := normalize.ValidateQuiz(items); err != nil {
		return nil, modelError(err)
	}

	out := &GeneratedQuiz{
		Topic:        title,
		Subtopic:     subtopic,
		QuizType:     quizType,
		NumQuestions: n,
		Questions:    items,
		Report:       rep,
	}
	if err := s.saveQuiz(ctx, email, key, out); err != nil {
		return nil, err
	}
	return out, nil
}

// supplement makes the single follow-up request for missing questions. An
// unreadable reply counts as zero extra questions.
func (s *quizService) supplement(ctx context.Context, topic, subtopic string, quizType types.QuizType, missing int, have []types.QuizItem) ([]types.QuizItem, error) {
	existing := make([]string, 0, len(have))
	for _, it := range have {
		existing = append(existing, it.Question)
	}
	kind := itemKind(quizType)
	prompt, err := s.prompts.Render(prompts.QuizSupplement, prompts.QuizSupplementData{
		Topic: topic, Subtopic: subtopic, Count: missing, Kind: kind, Existing: existing,
	})
	if err != nil {
		return nil, err
	}
	text, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	if kind == "" {
		kind = types.ItemMCQ
	}
	extra, err := normalize.ParseQuizItems(text, kind)
	if errors.Is(err, normalize.ErrUnparseable) {
		s.log.Warn("supplemental quiz reply unparseable", "topic", topic, "error", err)
		return nil, nil
	}
	return extra, err
}

func (s *quizService) saveQuiz(ctx context.Context, email, key string, q *GeneratedQuiz) error {
	questions, err := json.Marshal(q.Questions)
	if err != nil {
		return err
	}
	meta, err := json.Marshal(map[string]any{
		"generated_at": time.Now().UTC(),
		"report":       q.Report,
	})
	if err != nil {
		return err
	}
	subKey := normalization.TopicKey(q.Subtopic)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		row := &types.Quiz{
			UserEmail:    email,
			Topic:        q.Topic,
			TopicKey:     key,
			Subtopic:     subKey,
			QuizType:     q.QuizType,
			NumQuestions: q.NumQuestions,
			Questions:    datatypes.JSON(questions),
			Metadata:     datatypes.JSON(meta),
		}
		if err := s.repos.Quiz.Upsert(dbc, row); err != nil {
			return fmt.Errorf("save quiz: %w", err)
		}
		note, err := json.Marshal(map[string]any{
			"questions":     q.Questions,
			"quiz_type":     q.QuizType,
			"subtopic":      q.Subtopic,
			"num_questions": q.NumQuestions,
		})
		if err != nil {
			return err
		}
		return s.repos.Note.Upsert(dbc, &types.Note{
			UserEmail: email,
			Topic:     q.Topic,
			TopicKey:  key,
			NoteType:  types.NoteQuiz,
			Content:   datatypes.JSON(note),
		})
	})
}

// AnalyzeAnswers grades descriptive answers with the model. The result has
// one grade per input, in order. Blank answers score 0 without being sent.
func (s *quizService) AnalyzeAnswers(ctx context.Context, items []GradeRequest) ([]Grade, error) {
	if len(items) == 0 {
		return nil, invalid("invalid_request", "no answers provided")
	}
	grades := make([]Grade, len(items))
	var (
		pending []GradeRequest
		index   []int
	)
	for i, it := range items {
		if strings.TrimSpace(it.UserAnswer) == "" {
			grades[i] = Grade{Score: 0, Feedback: "No answer provided."}
			continue
		}
		pending = append(pending, it)
		index = append(index, i)
	}
	if len(pending) == 0 {
		return grades, nil
	}

	answers, err := json.MarshalIndent(pending, "", "  ")
	if err != nil {
		return nil, err
	}
	prompt, err := s.prompts.Render(prompts.AnalyzeAnswers, prompts.AnalyzeAnswersData{AnswersJSON: string(answers)})
	if err != nil {
		return nil, err
	}
	text, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, modelError(err)
	}
	var raw []struct {
		Score    float64 `json:"score"`
		Feedback string  `json:"feedback"`
	}
	if err := normalize.DecodeValidated(text, normalize.ArrayShape, normalize.GradingSchema, &raw); err != nil {
		return nil, modelError(err)
	}
	if len(raw) != len(pending) {
		s.log.Warn("grading count mismatch", "want", len(pending), "got", len(raw))
	}
	for j, i := range index {
		if j >= len(raw) {
			grades[i] = Grade{Score: 0, Feedback: "No feedback was returned for this answer."}
			continue
		}
		score := 0
		if raw[j].Score >= 0.5 {
			score = 1
		}
		grades[i] = Grade{Score: score, Feedback: strings.TrimSpace(raw[j].Feedback)}
	}
	return grades, nil
}

// ScoreAttempt grades MCQ answers by exact (case-insensitive) match and sums
// the supplied descriptive scores.
func ScoreAttempt(questions []types.QuizItem, answers map[string]string, descriptive map[string]int) types.Scores {
	var sc types.Scores
	for _, q := range questions {
		id := strconv.Itoa(q.ID)
		switch q.Type {
		case types.ItemDescriptive:
			sc.DescriptiveTotal++
			if descriptive[id] > 0 {
				sc.DescriptiveScore++
			}
		default:
			sc.MCQTotal++
			got := strings.TrimSpace(answers[id])
			if got != "" && strings.EqualFold(got, strings.TrimSpace(q.Answer)) {
				sc.MCQScore++
			}
		}
	}
	sc.FinalScore = sc.MCQScore + sc.DescriptiveScore
	sc.FinalTotal = sc.MCQTotal + sc.DescriptiveTotal
	return sc
}

func (s *quizService) SubmitAttempt(ctx context.Context, email string, req SubmitAttemptRequest) (*AttemptResult, error) {
	title, key, err := requireTopic(req.Topic)
	if err != nil {
		return nil, err
	}
	quizType, ok := types.ParseQuizType(req.QuizType)
	if !ok {
		return nil, invalid("invalid_request", "quiz_type must be MCQ, Descriptive or Both")
	}
	subKey := normalization.TopicKey(req.Subtopic)

	questions := req.Questions
	if len(questions) == 0 {
		stored, err := s.repos.Quiz.Get(dbctx.Context{Ctx: ctx}, email, key, subKey, quizType)
		if err != nil {
			return nil, err
		}
		if stored == nil {
			return nil, invalid("invalid_request", "no questions submitted and no stored quiz for this topic")
		}
		if err := json.Unmarshal(stored.Questions, &questions); err != nil {
			return nil, fmt.Errorf("decode stored quiz: %w", err)
		}
	}

	scores := ScoreAttempt(questions, req.Answers, req.DescriptiveScores)
	snapshot, err := json.Marshal(questions)
	if err != nil {
		return nil, err
	}
	answers, err := json.Marshal(req.Answers)
	if err != nil {
		return nil, err
	}
	attempt := &types.QuizAttempt{
		UserEmail:         email,
		Topic:             title,
		TopicKey:          key,
		Subtopic:          subKey,
		QuizType:          quizType,
		Practice:          req.Practice,
		QuestionsSnapshot: datatypes.JSON(snapshot),
		UserAnswers:       datatypes.JSON(answers),
		Scores:            datatypes.NewJSONType(scores),
		Passed:            scores.Passed(),
	}
	res := &AttemptResult{Attempt: attempt, Scores: scores, Passed: attempt.Passed}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := s.repos.QuizAttempt.Create(dbc, attempt); err != nil {
			return fmt.Errorf("save attempt: %w", err)
		}
		if req.Practice {
			return nil
		}
		outcome, err := s.progress.RecordQuizOutcome(dbc, email, title, req.Subtopic, quizType, attempt.Passed)
		if err != nil {
			return err
		}
		res.Outcome = outcome
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *quizService) ListAttempts(ctx context.Context, email, topic string, limit int) ([]*types.QuizAttempt, error) {
	return s.repos.QuizAttempt.List(dbctx.Context{Ctx: ctx}, email, normalization.TopicKey(topic), limit)
}

func (s *quizService) QuizStatus(ctx context.Context, email, topic string) ([]*types.QuizStatus, error) {
	return s.repos.QuizStatus.List(dbctx.Context{Ctx: ctx}, email, normalization.TopicKey(topic))
}
