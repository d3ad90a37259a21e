package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/studybuddy-backend/internal/http/response"
	"github.com/yungbote/studybuddy-backend/internal/platform/apierr"
	"github.com/yungbote/studybuddy-backend/internal/platform/llm"
	"github.com/yungbote/studybuddy-backend/internal/platform/logger"
	"github.com/yungbote/studybuddy-backend/internal/services"
)

const (
	maxHistoryLimit = 50
	maxUploadBytes  = 8 << 20
)

var errBinaryUpload = errors.New("uploaded files must contain extracted text")

type ChatHandler struct {
	log  *logger.Logger
	chat services.ChatService
}

func NewChatHandler(log *logger.Logger, chat services.ChatService) *ChatHandler {
	return &ChatHandler{log: log.With("handler", "ChatHandler"), chat: chat}
}

// POST /ask
// JSON body: { "message": "...", "documents": [{ "name", "text" }], "summary_name": "" }
// or multipart form with "message", "summary_name" and text files under "files".
func (h *ChatHandler) Ask(c *gin.Context) {
	email := callerEmail(c)
	if email == "" {
		return
	}
	var req services.AskRequest
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		var err error
		if req, err = readMultipartAsk(c); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
	} else if !bindJSON(c, &req) {
		return
	}

	res, err := h.chat.Ask(c.Request.Context(), email, req)
	if err != nil {
		var ae *apierr.Error
		if errors.As(err, &ae) && ae.Code == "ai_offline" {
			c.JSON(ae.Status, gin.H{"chat_reply": llm.ErrAIOffline.Error(), "summary_content": nil})
			return
		}
		response.RespondServiceError(c, h.log, "ask_failed", err)
		return
	}
	response.RespondOK(c, res)
}

func readMultipartAsk(c *gin.Context) (services.AskRequest, error) {
	req := services.AskRequest{
		Message:     c.PostForm("message"),
		SummaryName: c.PostForm("summary_name"),
	}
	form, err := c.MultipartForm()
	if err != nil {
		return req, err
	}
	for _, fh := range form.File["files"] {
		f, err := fh.Open()
		if err != nil {
			return req, fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		raw, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
		_ = f.Close()
		if err != nil {
			return req, fmt.Errorf("read %s: %w", fh.Filename, err)
		}
		if !utf8.Valid(raw) {
			return req, errBinaryUpload
		}
		req.Documents = append(req.Documents, services.Document{Name: fh.Filename, Text: string(raw)})
	}
	return req, nil
}

// POST /clear
func (h *ChatHandler) Clear(c *gin.Context) {
	email := callerEmail(c)
	if email == "" {
		return
	}
	n, err := h.chat.ClearHistory(c.Request.Context(), email)
	if err != nil {
		response.RespondServiceError(c, h.log, "clear_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"status": "Chat history cleared", "deleted": n})
}

// GET /get_chat_history?limit=...
func (h *ChatHandler) GetChatHistory(c *gin.Context) {
	email := callerEmail(c)
	if email == "" {
		return
	}
	limit := queryInt(c, "limit", maxHistoryLimit)
	if limit <= 0 || limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	history, err := h.chat.History(c.Request.Context(), email, limit)
	if err != nil {
		response.RespondServiceError(c, h.log, "chat_history_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"chat_history": history})
}

// GET /pdf_summaries?with_content=true
func (h *ChatHandler) ListSummaries(c *gin.Context) {
	email := callerEmail(c)
	if email == "" {
		return
	}
	summaries, err := h.chat.ListSummaries(c.Request.Context(), email, queryBool(c, "with_content", false))
	if err != nil {
		response.RespondServiceError(c, h.log, "list_summaries_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"pdf_summaries": summaries})
}

// GET /pdf_summaries/:name
func (h *ChatHandler) GetSummary(c *gin.Context) {
	email := callerEmail(c)
	if email == "" {
		return
	}
	summary, err := h.chat.GetSummary(c.Request.Context(), email, c.Param("name"))
	if err != nil {
		response.RespondServiceError(c, h.log, "get_summary_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"pdf_summary": summary})
}

// DELETE /pdf_summaries/:name
func (h *ChatHandler) DeleteSummary(c *gin.Context) {
	email := callerEmail(c)
	if email == "" {
		return
	}
	if err := h.chat.DeleteSummary(c.Request.Context(), email, c.Param("name")); err != nil {
		response.RespondServiceError(c, h.log, "delete_summary_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"status": "PDF summary deleted successfully"})
}
