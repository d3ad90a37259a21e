package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/studybuddy-backend/internal/http/response"
	"github.com/yungbote/studybuddy-backend/internal/platform/ctxutil"
	"github.com/yungbote/studybuddy-backend/internal/platform/logger"
)

var errMissingToken = errors.New("Token is missing!")

// TokenParser resolves a bearer token into the caller's identity.
type TokenParser interface {
	ParseToken(tokenString string) (*ctxutil.RequestData, error)
}

type AuthMiddleware struct {
	log    *logger.Logger
	tokens TokenParser
}

func NewAuthMiddleware(log *logger.Logger, tokens TokenParser) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("middleware", "AuthMiddleware"), tokens: tokens}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractTokenFromAll(c)
		if tokenString == "" {
			response.RespondError(c, http.StatusUnauthorized, "unauthorized", errMissingToken)
			c.Abort()
			return
		}
		rd, err := am.tokens.ParseToken(tokenString)
		if err != nil {
			am.log.Debug("rejected token", "path", c.FullPath(), "error", err)
			response.RespondServiceError(c, am.log, "unauthorized", err)
			c.Abort()
			return
		}
		if rd == nil || strings.TrimSpace(rd.Email) == "" {
			response.RespondError(c, http.StatusForbidden, "forbidden", errors.New("forbidden"))
			c.Abort()
			return
		}
		c.Request = c.Request.WithContext(ctxutil.WithRequestData(c.Request.Context(), rd))
		c.Next()
	}
}

func extractTokenFromAll(c *gin.Context) string {
	if qToken := c.Query("token"); qToken != "" {
		return qToken
	}
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
