package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/studybuddy-backend/internal/http/handlers"
	httpMW "github.com/yungbote/studybuddy-backend/internal/http/middleware"
	"github.com/yungbote/studybuddy-backend/internal/observability"
	"github.com/yungbote/studybuddy-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	// ServiceName enables otelgin spans when set.
	ServiceName string
	CORSOrigins []string
	Metrics     *observability.Metrics

	AuthMiddleware  *httpMW.AuthMiddleware
	AuthHandler     *httpH.AuthHandler
	ProgressHandler *httpH.ProgressHandler
	StudyHandler    *httpH.StudyHandler
	QuizHandler     *httpH.QuizHandler
	ChatHandler     *httpH.ChatHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestObserver(cfg.Log, cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	// Auth (public)
	if cfg.AuthHandler != nil {
		auth := r.Group("/auth")
		auth.POST("/register", cfg.AuthHandler.Register)
		auth.POST("/verify-otp", cfg.AuthHandler.VerifyOTP)
		auth.POST("/resend-otp", cfg.AuthHandler.ResendOTP)
		auth.POST("/forgot-password", cfg.AuthHandler.ForgotPassword)
		auth.POST("/reset-password", cfg.AuthHandler.ResetPassword)
		auth.POST("/login", cfg.AuthHandler.Login)
	}

	protected := r.Group("/")
	{
		// Middleware
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		if cfg.AuthHandler != nil {
			protected.POST("/logout", cfg.AuthHandler.Logout)
		}

		// Progress
		if cfg.ProgressHandler != nil {
			protected.GET("/home-data", cfg.ProgressHandler.HomeData)
			protected.GET("/get_total_time", cfg.ProgressHandler.GetTotalTime)
			protected.GET("/get_progress", cfg.ProgressHandler.GetProgress)
			protected.GET("/get_topic_progress", cfg.ProgressHandler.GetTopicProgress)
		}

		// Roadmaps and notes
		if cfg.StudyHandler != nil {
			protected.POST("/generate_roadmap", cfg.StudyHandler.GenerateRoadmap)
			protected.POST("/generate_details", cfg.StudyHandler.GenerateDetails)
			protected.POST("/generate_sub_details", cfg.StudyHandler.GenerateSubDetails)
			protected.GET("/get_roadmaps", cfg.StudyHandler.GetRoadmaps)
			protected.GET("/get_roadmap/:topic", cfg.StudyHandler.GetRoadmap)
			protected.GET("/get_notes", cfg.StudyHandler.GetNotes)
			protected.GET("/get_topic_count", cfg.StudyHandler.GetTopicCount)
			protected.GET("/get_all_users_topic_counts", cfg.StudyHandler.GetAllUsersTopicCounts)
			protected.DELETE("/topics/:topic", cfg.StudyHandler.DeleteTopic)
		}

		// Quizzes
		if cfg.QuizHandler != nil {
			protected.POST("/generate_quiz", cfg.QuizHandler.GenerateQuiz)
			protected.POST("/analyze_answers", cfg.QuizHandler.AnalyzeAnswers)
			protected.POST("/quiz_attempts", cfg.QuizHandler.SubmitAttempt)
			protected.GET("/quiz_attempts", cfg.QuizHandler.ListAttempts)
			protected.GET("/quiz_status", cfg.QuizHandler.QuizStatus)
		}

		// Chat and PDF summaries
		if cfg.ChatHandler != nil {
			protected.POST("/ask", cfg.ChatHandler.Ask)
			protected.POST("/clear", cfg.ChatHandler.Clear)
			protected.GET("/get_chat_history", cfg.ChatHandler.GetChatHistory)
			protected.GET("/pdf_summaries", cfg.ChatHandler.ListSummaries)
			protected.GET("/pdf_summaries/:name", cfg.ChatHandler.GetSummary)
			protected.DELETE("/pdf_summaries/:name", cfg.ChatHandler.DeleteSummary)
		}
	}

	return r
}
