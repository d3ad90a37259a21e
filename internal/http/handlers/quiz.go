package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/studybuddy-backend/internal/http/response"
	"github.com/yungbote/studybuddy-backend/internal/platform/logger"
	"github.com/yungbote/studybuddy-backend/internal/services"
)

const defaultAttemptLimit = 50

type QuizHandler struct {
	log  *logger.Logger
	quiz services.QuizService
}

func NewQuizHandler(log *logger.Logger, quiz services.QuizService) *QuizHandler {
	return &QuizHandler{log: log.With("handler", "QuizHandler"), quiz: quiz}
}

// POST /generate_quiz
// body: { "topic": "...", "subtopic": "", "num_questions": 10, "quiz_type": "MCQ"|"Descriptive"|"Both" }
func (h *QuizHandler) GenerateQuiz(c *gin.Context) {
	email := callerEmail(c)
	if email == "" {
		return
	}
	var req services.GenerateQuizRequest
	if !bindJSON(c, &req) {
		return
	}
	quiz, err := h.quiz.GenerateQuiz(c.Request.Context(), email, req)
	if err != nil {
		response.RespondServiceError(c, h.log, "quiz_failed", err)
		return
	}
	response.RespondOK(c, quiz)
}

// POST /analyze_answers
// body: { "answers": [{ "question", "ideal_answer", "user_answer" }] }
func (h *QuizHandler) AnalyzeAnswers(c *gin.Context) {
	if callerEmail(c) == "" {
		return
	}
	var req struct {
		Answers []services.GradeRequest `json:"answers"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if len(req.Answers) == 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("No answers provided"))
		return
	}
	graded, err := h.quiz.AnalyzeAnswers(c.Request.Context(), req.Answers)
	if err != nil {
		response.RespondServiceError(c, h.log, "analyze_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"graded_answers": graded})
}

// POST /quiz_attempts
func (h *QuizHandler) SubmitAttempt(c *gin.Context) {
	email := callerEmail(c)
	if email == "" {
		return
	}
	var req services.SubmitAttemptRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.quiz.SubmitAttempt(c.Request.Context(), email, req)
	if err != nil {
		response.RespondServiceError(c, h.log, "submit_attempt_failed", err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// GET /quiz_attempts?topic=...&limit=...
func (h *QuizHandler) ListAttempts(c *gin.Context) {
	email := callerEmail(c)
	if email == "" {
		return
	}
	attempts, err := h.quiz.ListAttempts(c.Request.Context(), email, c.Query("topic"), queryInt(c, "limit", defaultAttemptLimit))
	if err != nil {
		response.RespondServiceError(c, h.log, "list_attempts_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"quiz_attempts": attempts})
}

// GET /quiz_status?topic=...
func (h *QuizHandler) QuizStatus(c *gin.Context) {
	email := callerEmail(c)
	if email == "" {
		return
	}
	status, err := h.quiz.QuizStatus(c.Request.Context(), email, c.Query("topic"))
	if err != nil {
		response.RespondServiceError(c, h.log, "quiz_status_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"quiz_status": status})
}
