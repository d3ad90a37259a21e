package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/yungbote/studybuddy-backend/internal/data/repos/testutil"
	types "github.com/yungbote/studybuddy-backend/internal/domain"
	"github.com/yungbote/studybuddy-backend/internal/normalize"
	"github.com/yungbote/studybuddy-backend/internal/pkg/dbctx"
	"github.com/yungbote/studybuddy-backend/internal/platform/llm"
)

func mcqReply(t *testing.T, from, n int) string {
	t.Helper()
	items := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, map[string]any{
			"type":     "mcq",
			"question": fmt.Sprintf("Question %d?", from+i),
			"options":  []string{"alpha", "beta", "gamma", "delta"},
			"answer":   "beta",
		})
	}
	raw, err := json.Marshal(map[string]any{"questions": items})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(raw)
}

func newQuizService(env *testEnv, client llm.Client, policy normalize.ShortfallPolicy) QuizService {
	return NewQuizService(env.db, env.log, client, env.catalogue, env.set, env.progress(), policy)
}

func TestQuizSplit(t *testing.T) {
	cases := []struct {
		qt        types.QuizType
		n         int
		mcq, desc int
	}{
		{types.QuizMCQ, 10, 10, 0},
		{types.QuizDescriptive, 4, 0, 4},
		{types.QuizBoth, 10, 7, 3},
		{types.QuizBoth, 2, 1, 1},
		{types.QuizBoth, 1, 1, 0},
	}
	for _, tc := range cases {
		m, d := QuizSplit(tc.qt, tc.n)
		if m != tc.mcq || d != tc.desc {
			t.Errorf("QuizSplit(%s, %d) = %d/%d, want %d/%d", tc.qt, tc.n, m, d, tc.mcq, tc.desc)
		}
	}
}

func TestGenerateQuizSupplementsOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fake := &scriptedLLM{replies: []string{mcqReply(t, 1, 7), mcqReply(t, 8, 3)}}
	svc := newQuizService(env, fake, normalize.CloneLast)
	email := testutil.UniqueEmail("quiz")

	q, err := svc.GenerateQuiz(ctx, email, GenerateQuizRequest{Topic: "Go", Subtopic: "Syntax", QuizType: "mcq", NumQuestions: 10})
	if err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}
	if len(q.Questions) != 10 || fake.calls() != 2 {
		t.Fatalf("questions=%d calls=%d", len(q.Questions), fake.calls())
	}
	if q.Report.Supplemented != 3 || q.Report.Cloned != 0 {
		t.Fatalf("report = %+v", q.Report)
	}
	for i, it := range q.Questions {
		if it.ID != i+1 {
			t.Fatalf("item %d has id %d", i, it.ID)
		}
	}
	if !strings.Contains(fake.prompts[1], "3") {
		t.Fatalf("supplement prompt should ask for the missing count: %q", fake.prompts[1])
	}

	stored, err := env.set.Quiz.Get(dbctx.Context{Ctx: ctx}, email, "go", "syntax", types.QuizMCQ)
	if err != nil || stored == nil || stored.NumQuestions != 10 {
		t.Fatalf("stored quiz: %+v err=%v", stored, err)
	}
	note, err := env.set.Note.Get(dbctx.Context{Ctx: ctx}, email, "go", types.NoteQuiz)
	if err != nil || note == nil {
		t.Fatalf("quiz note: %+v err=%v", note, err)
	}
}

func TestGenerateQuizShortfallPolicies(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	email := testutil.UniqueEmail("short")

	clone := newQuizService(env, &scriptedLLM{replies: []string{mcqReply(t, 1, 4), "no more questions, sorry"}}, normalize.CloneLast)
	q, err := clone.GenerateQuiz(ctx, email, GenerateQuizRequest{Topic: "Go", NumQuestions: 6})
	if err != nil {
		t.Fatalf("GenerateQuiz(clone): %v", err)
	}
	if len(q.Questions) != 6 || q.Report.Cloned != 2 {
		t.Fatalf("clone: n=%d report=%+v", len(q.Questions), q.Report)
	}
	if !strings.HasSuffix(q.Questions[5].Question, "(variant 2)") {
		t.Fatalf("clone marker missing: %q", q.Questions[5].Question)
	}

	strict := newQuizService(env, &scriptedLLM{replies: []string{mcqReply(t, 1, 4), "[]"}}, normalize.FailShort)
	_, err = strict.GenerateQuiz(ctx, email, GenerateQuizRequest{Topic: "Go", NumQuestions: 6})
	requireAPIError(t, err, http.StatusBadGateway, "llm_short")

	trunc := newQuizService(env, &scriptedLLM{replies: []string{mcqReply(t, 1, 12)}}, normalize.CloneLast)
	q, err = trunc.GenerateQuiz(ctx, email, GenerateQuizRequest{Topic: "Go", NumQuestions: 10})
	if err != nil || len(q.Questions) != 10 || q.Report.Truncated != 2 {
		t.Fatalf("truncate: q=%+v err=%v", q, err)
	}
}

func TestGenerateQuizRejectsMalformedItemsBeforeSaving(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	email := testutil.UniqueEmail("quizschema")
	reply := `{"questions":[{"type":"mcq","question":"Pick one","options":["alpha","beta"]}]}`
	svc := newQuizService(env, &scriptedLLM{replies: []string{reply}}, normalize.CloneLast)

	_, err := svc.GenerateQuiz(ctx, email, GenerateQuizRequest{Topic: "Go", Subtopic: "Syntax", QuizType: "mcq", NumQuestions: 1})
	requireAPIError(t, err, http.StatusBadGateway, "llm_unparseable")

	stored, err := env.set.Quiz.Get(dbctx.Context{Ctx: ctx}, email, "go", "syntax", types.QuizMCQ)
	if err != nil || stored != nil {
		t.Fatalf("malformed quiz was stored: %+v err=%v", stored, err)
	}
	note, err := env.set.Note.Get(dbctx.Context{Ctx: ctx}, email, "go", types.NoteQuiz)
	if err != nil || note != nil {
		t.Fatalf("malformed quiz note was stored: %+v err=%v", note, err)
	}
}

func TestGenerateQuizValidationAndModelErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	email := testutil.UniqueEmail("quizerr")
	svc := newQuizService(env, &scriptedLLM{replies: []string{"Quizzes are fun but I won't write one."}}, normalize.CloneLast)

	_, err := svc.GenerateQuiz(ctx, email, GenerateQuizRequest{Topic: "Go", NumQuestions: 51})
	requireAPIError(t, err, http.StatusBadRequest, "invalid_request")
	_, err = svc.GenerateQuiz(ctx, email, GenerateQuizRequest{Topic: "Go", QuizType: "essay"})
	requireAPIError(t, err, http.StatusBadRequest, "invalid_request")
	_, err = svc.GenerateQuiz(ctx, email, GenerateQuizRequest{Topic: "Go"})
	requireAPIError(t, err, http.StatusBadGateway, "llm_unparseable")

	offline := newQuizService(env, &scriptedLLM{err: llm.ErrAIOffline}, normalize.CloneLast)
	_, err = offline.GenerateQuiz(ctx, email, GenerateQuizRequest{Topic: "Go"})
	requireAPIError(t, err, http.StatusServiceUnavailable, "ai_offline")
}

func TestAnalyzeAnswers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fake := &scriptedLLM{replies: []string{`[{"score":1,"feedback":"Good."},{"score":0.2,"feedback":"Missing detail."}]`}}
	svc := newQuizService(env, fake, normalize.CloneLast)

	grades, err := svc.AnalyzeAnswers(ctx, []GradeRequest{
		{Question: "What is a goroutine?", IdealAnswer: "A lightweight thread.", UserAnswer: "A cheap thread"},
		{Question: "What is a channel?", IdealAnswer: "A typed conduit.", UserAnswer: "   "},
		{Question: "What is defer?", IdealAnswer: "Runs at return.", UserAnswer: "Something"},
	})
	if err != nil {
		t.Fatalf("AnalyzeAnswers: %v", err)
	}
	if len(grades) != 3 || grades[0].Score != 1 || grades[1].Score != 0 || grades[2].Score != 0 {
		t.Fatalf("grades = %+v", grades)
	}
	if fake.calls() != 1 || strings.Contains(fake.prompts[0], "What is a channel?") {
		t.Fatalf("blank answers must not be sent for grading")
	}
}

func TestSubmitAttemptRecordsProgress(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	email := testutil.UniqueEmail("attempt")
	svc := newQuizService(env, &scriptedLLM{replies: []string{mcqReply(t, 1, 3)}}, normalize.CloneLast)

	if _, err := svc.GenerateQuiz(ctx, email, GenerateQuizRequest{Topic: "Go", Subtopic: "Syntax", NumQuestions: 3}); err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}

	answers := map[string]string{}
	for i := 1; i <= 3; i++ {
		answers[strconv.Itoa(i)] = "BETA"
	}
	wrong := map[string]string{"1": "beta", "2": "alpha", "3": "beta"}

	res, err := svc.SubmitAttempt(ctx, email, SubmitAttemptRequest{Topic: "Go", Subtopic: "Syntax", Answers: wrong})
	if err != nil || res.Passed || res.Scores.MCQScore != 2 || res.Outcome.Flipped {
		t.Fatalf("failed attempt: res=%+v err=%v", res, err)
	}
	res, err = svc.SubmitAttempt(ctx, email, SubmitAttemptRequest{Topic: "go", Subtopic: "syntax", Answers: answers, Practice: true})
	if err != nil || !res.Passed || res.Outcome != nil {
		t.Fatalf("practice attempt: res=%+v err=%v", res, err)
	}
	res, err = svc.SubmitAttempt(ctx, email, SubmitAttemptRequest{Topic: "Go", Subtopic: "Syntax", Answers: answers})
	if err != nil || !res.Passed || res.Outcome == nil || res.Outcome.XPAwarded != 20 {
		t.Fatalf("passing attempt: res=%+v err=%v", res, err)
	}

	attempts, err := svc.ListAttempts(ctx, email, "GO", 0)
	if err != nil || len(attempts) != 3 {
		t.Fatalf("ListAttempts: %d err=%v", len(attempts), err)
	}
	status, err := svc.QuizStatus(ctx, email, "Go")
	if err != nil || len(status) != 1 || !status[0].MCQPassed || status[0].DescriptivePassed {
		t.Fatalf("QuizStatus: %+v err=%v", status, err)
	}

	_, err = svc.SubmitAttempt(ctx, email, SubmitAttemptRequest{Topic: "Rust", Answers: answers})
	requireAPIError(t, err, http.StatusBadRequest, "invalid_request")
}

func TestScoreAttemptMixed(t *testing.T) {
	qs := []types.QuizItem{
		{ID: 1, Type: types.ItemMCQ, Answer: "Paris"},
		{ID: 2, Type: types.ItemDescriptive},
		{ID: 3, Type: types.ItemDescriptive},
	}
	sc := ScoreAttempt(qs, map[string]string{"1": " paris "}, map[string]int{"2": 1, "3": 0})
	if sc.MCQScore != 1 || sc.DescriptiveScore != 1 || sc.FinalScore != 2 || sc.FinalTotal != 3 || sc.Passed() {
		t.Fatalf("scores = %+v", sc)
	}
	if (types.Scores{}).Passed() {
		t.Fatalf("empty quiz must not pass")
	}
}
