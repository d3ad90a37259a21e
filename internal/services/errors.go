package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/yungbote/studybuddy-backend/internal/normalize"
	errs "github.com/yungbote/studybuddy-backend/internal/pkg/errors"
	"github.com/yungbote/studybuddy-backend/internal/platform/apierr"
	"github.com/yungbote/studybuddy-backend/internal/platform/llm"
)

var ErrUnverified = errors.New("Please verify your email before logging in.")

func invalid(code, format string, args ...any) *apierr.Error {
	return apierr.BadRequest(code, fmt.Errorf("%w: %s", errs.ErrInvalidArgument, fmt.Sprintf(format, args...)))
}

func notFound(what string) *apierr.Error {
	return apierr.NotFound("not_found", fmt.Errorf("%s: %w", what, errs.ErrNotFound))
}

// modelError classifies failures from the model client and the response
// normalizer. Anything else is returned unchanged.
func modelError(err error) error {
	if err == nil {
		return nil
	}
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, llm.ErrAIOffline) {
		return apierr.New(http.StatusServiceUnavailable, "ai_offline", err)
	}
	var ue *normalize.UnparseableError
	if errors.As(err, &ue) {
		return apierr.New(http.StatusBadGateway, "llm_unparseable", err).
			WithDetails(map[string]any{"preview": ue.Preview})
	}
	if errors.Is(err, normalize.ErrQuizShort) {
		return apierr.New(http.StatusBadGateway, "llm_short", err)
	}
	var up *llm.UpstreamError
	if errors.As(err, &up) {
		return apierr.New(http.StatusBadGateway, "llm_failed", err)
	}
	return err
}
