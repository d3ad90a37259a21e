package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/studybuddy-backend/internal/http/response"
	"github.com/yungbote/studybuddy-backend/internal/platform/logger"
	"github.com/yungbote/studybuddy-backend/internal/services"
)

type StudyHandler struct {
	log   *logger.Logger
	study services.StudyService
}

func NewStudyHandler(log *logger.Logger, study services.StudyService) *StudyHandler {
	return &StudyHandler{log: log.With("handler", "StudyHandler"), study: study}
}

// POST /generate_roadmap
// body: { "query": "<topic>" }
func (h *StudyHandler) GenerateRoadmap(c *gin.Context) {
	email := callerEmail(c)
	if email == "" {
		return
	}
	var req struct {
		Query string `json:"query"`
		Topic string `json:"topic"`
	}
	if !bindJSON(c, &req) {
		return
	}
	topic := req.Query
	if strings.TrimSpace(topic) == "" {
		topic = req.Topic
	}
	view, err := h.study.GenerateRoadmap(c.Request.Context(), email, topic)
	if err != nil {
		response.RespondServiceError(c, h.log, "roadmap_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"topic": view.Topic, "topics": view.Subtopics})
}

// POST /generate_details
// body: { "title": "<topic>" }
func (h *StudyHandler) GenerateDetails(c *gin.Context) {
	email := callerEmail(c)
	if email == "" {
		return
	}
	var req struct {
		Title string `json:"title"`
	}
	if !bindJSON(c, &req) {
		return
	}
	details, err := h.study.GenerateDetails(c.Request.Context(), email, req.Title)
	if err != nil {
		response.RespondServiceError(c, h.log, "details_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"details": details})
}

// POST /generate_sub_details
// body: { "term": "...", "context": "<topic>" }
func (h *StudyHandler) GenerateSubDetails(c *gin.Context) {
	email := callerEmail(c)
	if email == "" {
		return
	}
	var req struct {
		Term    string `json:"term"`
		Context string `json:"context"`
	}
	if !bindJSON(c, &req) {
		return
	}
	sub, err := h.study.GenerateSubDetails(c.Request.Context(), email, req.Context, req.Term)
	if err != nil {
		response.RespondServiceError(c, h.log, "sub_details_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"term": sub.Term, "sub_details": sub.HTML})
}

// GET /get_roadmaps
func (h *StudyHandler) GetRoadmaps(c *gin.Context) {
	email := callerEmail(c)
	if email == "" {
		return
	}
	roadmaps, err := h.study.ListRoadmaps(c.Request.Context(), email)
	if err != nil {
		response.RespondServiceError(c, h.log, "list_roadmaps_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"roadmaps": roadmaps})
}

// GET /get_roadmap/:topic
func (h *StudyHandler) GetRoadmap(c *gin.Context) {
	email := callerEmail(c)
	if email == "" {
		return
	}
	view, err := h.study.GetRoadmap(c.Request.Context(), email, c.Param("topic"))
	if err != nil {
		response.RespondServiceError(c, h.log, "get_roadmap_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"roadmap": view})
}

// GET /get_notes?topic=...&note_type=details|sub_details|quiz|summary
func (h *StudyHandler) GetNotes(c *gin.Context) {
	email := callerEmail(c)
	if email == "" {
		return
	}
	notes, err := h.study.GetNotes(c.Request.Context(), email, c.Query("topic"), c.Query("note_type"))
	if err != nil {
		response.RespondServiceError(c, h.log, "get_notes_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"notes": notes})
}

// GET /get_topic_count
func (h *StudyHandler) GetTopicCount(c *gin.Context) {
	email := callerEmail(c)
	if email == "" {
		return
	}
	n, err := h.study.TopicCount(c.Request.Context(), email)
	if err != nil {
		response.RespondServiceError(c, h.log, "topic_count_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"user_email": email, "topic_count": n})
}

// GET /get_all_users_topic_counts
func (h *StudyHandler) GetAllUsersTopicCounts(c *gin.Context) {
	if callerEmail(c) == "" {
		return
	}
	counts, err := h.study.TopicCounts(c.Request.Context())
	if err != nil {
		response.RespondServiceError(c, h.log, "topic_counts_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"users": counts, "total_users": len(counts)})
}

// DELETE /topics/:topic
func (h *StudyHandler) DeleteTopic(c *gin.Context) {
	email := callerEmail(c)
	if email == "" {
		return
	}
	report, err := h.study.DeleteTopic(c.Request.Context(), email, c.Param("topic"))
	if err != nil {
		response.RespondServiceError(c, h.log, "delete_topic_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"message": "Topic deleted successfully", "deleted": report})
}
