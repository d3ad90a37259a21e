package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/studybuddy-backend/internal/platform/apierr"
	"github.com/yungbote/studybuddy-backend/internal/platform/ctxutil"
	"github.com/yungbote/studybuddy-backend/internal/platform/logger"
)

var errInternal = errors.New("internal server error")

// RespondServiceError writes the status and code carried by an *apierr.Error.
// Anything else is logged and reported as a 500 with fallbackCode, without
// leaking the underlying message.
func RespondServiceError(c *gin.Context, log *logger.Logger, fallbackCode string, err error) {
	var ae *apierr.Error
	if errors.As(err, &ae) && ae.Status != 0 {
		if ae.Status >= http.StatusInternalServerError && log != nil {
			logFailure(c, log, ae.Code, err)
		}
		respond(c, ae.Status, ae.Code, ae, ae.Details)
		return
	}
	if log != nil {
		logFailure(c, log, fallbackCode, err)
	}
	if fallbackCode == "" {
		fallbackCode = "internal_error"
	}
	respond(c, http.StatusInternalServerError, fallbackCode, errInternal, nil)
}

func logFailure(c *gin.Context, log *logger.Logger, code string, err error) {
	fields := append([]interface{}{"path", c.FullPath(), "code", code, "error", err}, ctxutil.LogFields(c.Request.Context())...)
	log.Error("request failed", fields...)
}
