package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/studybuddy-backend/internal/data/repos/chat"
	"github.com/yungbote/studybuddy-backend/internal/data/repos/ledger"
	"github.com/yungbote/studybuddy-backend/internal/data/repos/study"
	"github.com/yungbote/studybuddy-backend/internal/data/repos/user"
	"github.com/yungbote/studybuddy-backend/internal/platform/logger"
)

type UserRepo = user.UserRepo

type SessionRepo = ledger.SessionRepo
type ProgressRepo = ledger.ProgressRepo

type RoadmapRepo = study.RoadmapRepo
type NoteRepo = study.NoteRepo
type QuizRepo = study.QuizRepo
type QuizAttemptRepo = study.QuizAttemptRepo
type QuizStatusRepo = study.QuizStatusRepo
type QuizSlot = study.QuizSlot
type TopicCount = study.TopicCount

type ChatMessageRepo = chat.MessageRepo
type PDFSummaryRepo = chat.PDFSummaryRepo

const (
	FlagMCQ         = study.FlagMCQ
	FlagDescriptive = study.FlagDescriptive
)

// Set is every repo the services depend on.
type Set struct {
	User        UserRepo
	Session     SessionRepo
	Progress    ProgressRepo
	Roadmap     RoadmapRepo
	Note        NoteRepo
	Quiz        QuizRepo
	QuizAttempt QuizAttemptRepo
	QuizStatus  QuizStatusRepo
	ChatMessage ChatMessageRepo
	PDFSummary  PDFSummaryRepo
}

func NewSet(db *gorm.DB, log *logger.Logger) Set {
	return Set{
		User:        user.NewUserRepo(db, log),
		Session:     ledger.NewSessionRepo(db, log),
		Progress:    ledger.NewProgressRepo(db, log),
		Roadmap:     study.NewRoadmapRepo(db, log),
		Note:        study.NewNoteRepo(db, log),
		Quiz:        study.NewQuizRepo(db, log),
		QuizAttempt: study.NewQuizAttemptRepo(db, log),
		QuizStatus:  study.NewQuizStatusRepo(db, log),
		ChatMessage: chat.NewMessageRepo(db, log),
		PDFSummary:  chat.NewPDFSummaryRepo(db, log),
	}
}
