package domain

import (
	"github.com/yungbote/studybuddy-backend/internal/domain/chat"
	"github.com/yungbote/studybuddy-backend/internal/domain/ledger"
	"github.com/yungbote/studybuddy-backend/internal/domain/study"
	"github.com/yungbote/studybuddy-backend/internal/domain/user"
)

type User = user.User

type Session = ledger.Session
type SessionData = ledger.SessionData
type Progress = ledger.Progress
type TopicProgress = ledger.TopicProgress

type Roadmap = study.Roadmap
type Subtopic = study.Subtopic
type Note = study.Note
type NoteType = study.NoteType
type DetailSection = study.DetailSection
type DetailItem = study.DetailItem
type Quiz = study.Quiz
type QuizType = study.QuizType
type QuizItem = study.QuizItem
type QuizAttempt = study.QuizAttempt
type QuizStatus = study.QuizStatus
type Scores = study.Scores

type ChatMessage = chat.Message
type PDFSummary = chat.PDFSummary

const (
	NoteDetails    = study.NoteDetails
	NoteSubDetails = study.NoteSubDetails
	NoteQuiz       = study.NoteQuiz
	NoteSummary    = study.NoteSummary

	QuizMCQ         = study.QuizMCQ
	QuizDescriptive = study.QuizDescriptive
	QuizBoth        = study.QuizBoth

	ItemMCQ         = study.ItemMCQ
	ItemDescriptive = study.ItemDescriptive
)

// ParseQuizType accepts the type names case-insensitively; empty means MCQ.
var ParseQuizType = study.ParseQuizType

// AllModels lists every persisted type in migration order.
func AllModels() []any {
	return []any{
		&User{},
		&Session{},
		&Progress{},
		&Roadmap{},
		&Note{},
		&Quiz{},
		&QuizAttempt{},
		&QuizStatus{},
		&ChatMessage{},
		&PDFSummary{},
	}
}
