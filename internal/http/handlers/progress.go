package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/studybuddy-backend/internal/http/response"
	"github.com/yungbote/studybuddy-backend/internal/platform/logger"
	"github.com/yungbote/studybuddy-backend/internal/services"
)

type ProgressHandler struct {
	log      *logger.Logger
	progress services.ProgressService
	userData services.UserDataService
}

func NewProgressHandler(log *logger.Logger, progress services.ProgressService, userData services.UserDataService) *ProgressHandler {
	return &ProgressHandler{
		log:      log.With("handler", "ProgressHandler"),
		progress: progress,
		userData: userData,
	}
}

// GET /home-data
func (h *ProgressHandler) HomeData(c *gin.Context) {
	email := callerEmail(c)
	if email == "" {
		return
	}
	data, err := h.userData.HomeData(c.Request.Context(), email)
	if err != nil {
		response.RespondServiceError(c, h.log, "home_data_failed", err)
		return
	}
	name := ""
	if data.User != nil {
		name = data.User.Username
	}
	response.RespondOK(c, gin.H{
		"message":   "Welcome " + name + "!",
		"user":      data.User,
		"user_data": data,
	})
}

// GET /get_total_time
func (h *ProgressHandler) GetTotalTime(c *gin.Context) {
	email := callerEmail(c)
	if email == "" {
		return
	}
	p, err := h.progress.GetProgress(c.Request.Context(), email)
	if err != nil {
		response.RespondServiceError(c, h.log, "progress_failed", err)
		return
	}
	response.RespondOK(c, gin.H{
		"email":                 p.Email,
		"total_time_spent":      p.TotalTimeSpent,
		"last_session_duration": p.LastSessionDuration,
		"last_logout_end":       p.LastLogoutEnd,
		"created_at":            p.CreatedAt,
	})
}

// GET /get_progress
func (h *ProgressHandler) GetProgress(c *gin.Context) {
	email := callerEmail(c)
	if email == "" {
		return
	}
	p, err := h.progress.GetProgress(c.Request.Context(), email)
	if err != nil {
		response.RespondServiceError(c, h.log, "progress_failed", err)
		return
	}
	response.RespondOK(c, p)
}

// GET /get_topic_progress
func (h *ProgressHandler) GetTopicProgress(c *gin.Context) {
	email := callerEmail(c)
	if email == "" {
		return
	}
	topics, err := h.progress.ComputeTopicProgress(c.Request.Context(), email)
	if err != nil {
		response.RespondServiceError(c, h.log, "topic_progress_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"topic_progress": topics})
}
