package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/studybuddy-backend/internal/http/response"
	"github.com/yungbote/studybuddy-backend/internal/platform/ctxutil"
)

var errNoIdentity = errors.New("Token is missing!")

// callerEmail returns the authenticated email or writes a 401 and returns "".
func callerEmail(c *gin.Context) string {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || strings.TrimSpace(rd.Email) == "" {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", errNoIdentity)
		return ""
	}
	return rd.Email
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return false
	}
	return true
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func queryBool(c *gin.Context, key string, def bool) bool {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return b
}
