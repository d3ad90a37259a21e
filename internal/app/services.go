package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/studybuddy-backend/internal/data/repos"
	"github.com/yungbote/studybuddy-backend/internal/jobs"
	"github.com/yungbote/studybuddy-backend/internal/platform/logger"
	"github.com/yungbote/studybuddy-backend/internal/prompts"
	"github.com/yungbote/studybuddy-backend/internal/services"
)

type Services struct {
	Ledger   services.SessionLedger
	Progress services.ProgressService
	Study    services.StudyService
	Quiz     services.QuizService
	Chat     services.ChatService
	UserData services.UserDataService
	Auth     services.AuthService

	Sweeper *jobs.Sweeper
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet repos.Set, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	catalogue, err := prompts.Default(log)
	if err != nil {
		return Services{}, err
	}

	ledger := services.NewSessionLedger(db, log, reposet.Session, reposet.Progress)
	progress := services.NewProgressService(db, log, reposet.Progress, reposet.Roadmap, reposet.QuizStatus)
	study := services.NewStudyService(db, log, clients.LLM, catalogue, reposet)
	quiz := services.NewQuizService(db, log, clients.LLM, catalogue, reposet, progress, cfg.Shortfall)
	chat := services.NewChatService(log, clients.LLM, catalogue, reposet.ChatMessage, reposet.PDFSummary)
	userData := services.NewUserDataService(log, reposet, study, progress)
	auth := services.NewAuthService(db, log, reposet.User, clients.Codes, clients.Mailer, ledger, userData, services.AuthConfig{
		JWTSecret: cfg.JWTSecret,
		AccessTTL: cfg.AccessTTL,
		ResetURL:  cfg.ResetURL,
	})

	return Services{
		Ledger:   ledger,
		Progress: progress,
		Study:    study,
		Quiz:     quiz,
		Chat:     chat,
		UserData: userData,
		Auth:     auth,
		Sweeper:  jobs.NewSweeper(log, reposet.User, clients.Mailer, clients.Locker),
	}, nil
}
