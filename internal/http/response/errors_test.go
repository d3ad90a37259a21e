package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/studybuddy-backend/internal/platform/apierr"
	"github.com/yungbote/studybuddy-backend/internal/platform/logger"
)

func serveError(t *testing.T, err error) (*httptest.ResponseRecorder, ErrorEnvelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		RespondServiceError(c, logger.Nop(), "x_failed", err)
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	var env ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v body=%s", err, rec.Body.String())
	}
	return rec, env
}

func TestRespondServiceErrorUsesAPIError(t *testing.T) {
	wrapped := fmt.Errorf("load roadmap: %w", apierr.NotFound("not_found", errors.New("Roadmap not found")).
		WithDetails(map[string]any{"topic": "go"}))
	rec, env := serveError(t, wrapped)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: got=%d want=%d", rec.Code, http.StatusNotFound)
	}
	if env.Error.Code != "not_found" || env.Error.Message != "Roadmap not found" {
		t.Fatalf("unexpected envelope: %+v", env.Error)
	}
	if env.Error.Details["topic"] != "go" {
		t.Fatalf("details missing: %+v", env.Error.Details)
	}
}

func TestRespondServiceErrorHidesUnknownErrors(t *testing.T) {
	rec, env := serveError(t, errors.New("pq: connection reset"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status: got=%d", rec.Code)
	}
	if env.Error.Code != "x_failed" || env.Error.Message != "internal server error" {
		t.Fatalf("unexpected envelope: %+v", env.Error)
	}
}
