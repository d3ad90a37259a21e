package app

import (
	"context"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/studybuddy-backend/internal/http"
	httpH "github.com/yungbote/studybuddy-backend/internal/http/handlers"
	httpMW "github.com/yungbote/studybuddy-backend/internal/http/middleware"
	"github.com/yungbote/studybuddy-backend/internal/observability"
	"github.com/yungbote/studybuddy-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health   *httpH.HealthHandler
	Auth     *httpH.AuthHandler
	Progress *httpH.ProgressHandler
	Study    *httpH.StudyHandler
	Quiz     *httpH.QuizHandler
	Chat     *httpH.ChatHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(pingDB(db)),
		Auth:     httpH.NewAuthHandler(log, services.Auth),
		Progress: httpH.NewProgressHandler(log, services.Progress, services.UserData),
		Study:    httpH.NewStudyHandler(log, services.Study),
		Quiz:     httpH.NewQuizHandler(log, services.Quiz),
		Chat:     httpH.NewChatHandler(log, services.Chat),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireRouter(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *gin.Engine {
	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	return http.NewRouter(http.RouterConfig{
		Log:             log,
		ServiceName:     serviceName,
		CORSOrigins:     cfg.CORSOrigins,
		Metrics:         metrics,
		AuthMiddleware:  middleware.Auth,
		AuthHandler:     handlers.Auth,
		ProgressHandler: handlers.Progress,
		StudyHandler:    handlers.Study,
		QuizHandler:     handlers.Quiz,
		ChatHandler:     handlers.Chat,
		HealthHandler:   handlers.Health,
	})
}

func pingDB(db *gorm.DB) httpH.Pinger {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
