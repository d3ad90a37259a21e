package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/studybuddy-backend/internal/data/repos"
	types "github.com/yungbote/studybuddy-backend/internal/domain"
	"github.com/yungbote/studybuddy-backend/internal/domain/chat"
	"github.com/yungbote/studybuddy-backend/internal/pkg/dbctx"
	"github.com/yungbote/studybuddy-backend/internal/platform/llm"
	"github.com/yungbote/studybuddy-backend/internal/platform/logger"
	"github.com/yungbote/studybuddy-backend/internal/prompts"
)

const (
	botName          = "Xiao"
	chatContextTurns = 10
	maxDocumentChars = 200_000
	summaryReply     = "I've generated a summary of the content you provided."
	emptyAskReply    = "Please provide a message or file."
)

type Document struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

type AskRequest struct {
	Message     string     `json:"message"`
	Documents   []Document `json:"documents"`
	SummaryName string     `json:"summary_name"`
}

type AskResult struct {
	ChatReply      string  `json:"chat_reply"`
	SummaryContent *string `json:"summary_content"`
	SummaryName    string  `json:"summary_name,omitempty"`
}

type ChatService interface {
	Ask(ctx context.Context, email string, req AskRequest) (*AskResult, error)
	History(ctx context.Context, email string, limit int) ([]*types.ChatMessage, error)
	ClearHistory(ctx context.Context, email string) (int64, error)
	ListSummaries(ctx context.Context, email string, withContent bool) ([]*types.PDFSummary, error)
	GetSummary(ctx context.Context, email, name string) (*types.PDFSummary, error)
	DeleteSummary(ctx context.Context, email, name string) error
}

type chatService struct {
	log      *logger.Logger
	llm      llm.Client
	prompts  *prompts.Catalogue
	messages repos.ChatMessageRepo
	pdfs     repos.PDFSummaryRepo
	now      func() time.Time
}

func NewChatService(baseLog *logger.Logger, client llm.Client, catalogue *prompts.Catalogue, messages repos.ChatMessageRepo, pdfs repos.PDFSummaryRepo) ChatService {
	return &chatService{
		log:      baseLog.With("service", "ChatService"),
		llm:      client,
		prompts:  catalogue,
		messages: messages,
		pdfs:     pdfs,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Ask summarizes the attached documents when there are any and otherwise
// chats in persona with the recent history as context.
func (s *chatService) Ask(ctx context.Context, email string, req AskRequest) (*AskResult, error) {
	message := strings.TrimSpace(req.Message)
	docs := make([]prompts.Document, 0, len(req.Documents))
	for i, d := range req.Documents {
		text := strings.TrimSpace(d.Text)
		if text == "" {
			continue
		}
		if len(text) > maxDocumentChars {
			text = text[:maxDocumentChars]
		}
		name := strings.TrimSpace(d.Name)
		if name == "" {
			name = fmt.Sprintf("document-%d", i+1)
		}
		docs = append(docs, prompts.Document{Name: name, Text: text})
	}
	if message == "" && len(docs) == 0 {
		return &AskResult{ChatReply: emptyAskReply}, nil
	}
	if len(docs) > 0 {
		return s.summarize(ctx, email, message, strings.TrimSpace(req.SummaryName), docs)
	}
	return s.chat(ctx, email, message)
}

func (s *chatService) chat(ctx context.Context, email, message string) (*AskResult, error) {
	recent, err := s.messages.ListRecent(dbctx.Context{Ctx: ctx}, email, chatContextTurns)
	if err != nil {
		s.log.Warn("chat history unavailable; answering without context", "error", err)
		recent = nil
	}
	history := make([]prompts.ChatTurn, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		m := recent[i]
		if m.Kind != chat.KindChat {
			continue
		}
		history = append(history, prompts.ChatTurn{Role: m.Role, Content: m.Content})
	}
	prompt, err := s.prompts.Render(prompts.Chat, prompts.ChatData{BotName: botName, History: history, Message: message})
	if err != nil {
		return nil, err
	}
	reply, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, modelError(err)
	}
	s.record(ctx, email, chat.KindChat, message, reply)
	return &AskResult{ChatReply: reply}, nil
}

func (s *chatService) summarize(ctx context.Context, email, message, name string, docs []prompts.Document) (*AskResult, error) {
	prompt, err := s.prompts.Render(prompts.Summary, prompts.SummaryData{Instructions: message, Documents: docs})
	if err != nil {
		return nil, err
	}
	summary, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, modelError(err)
	}
	if name == "" {
		name = docs[0].Name
	}
	sources := make([]string, 0, len(docs))
	for _, d := range docs {
		sources = append(sources, d.Name)
	}
	rawSources, err := json.Marshal(sources)
	if err != nil {
		return nil, err
	}
	row := &types.PDFSummary{UserEmail: email, Name: name, Content: summary, SourceFiles: datatypes.JSON(rawSources)}
	if err := s.pdfs.Upsert(dbctx.Context{Ctx: ctx}, row); err != nil {
		return nil, fmt.Errorf("save summary: %w", err)
	}
	asked := message
	if asked == "" {
		asked = "Summarize: " + strings.Join(sources, ", ")
	}
	s.record(ctx, email, chat.KindSummary, asked, summary)
	return &AskResult{ChatReply: summaryReply, SummaryContent: &summary, SummaryName: name}, nil
}

// record appends the exchange to the history. A failed write is logged and
// does not fail the reply.
func (s *chatService) record(ctx context.Context, email, kind, asked, answered string) {
	now := s.now()
	err := s.messages.Create(dbctx.Context{Ctx: ctx},
		&types.ChatMessage{UserEmail: email, Role: chat.RoleUser, Kind: kind, Content: asked, CreatedAt: now},
		&types.ChatMessage{UserEmail: email, Role: chat.RoleAssistant, Kind: kind, Content: answered, CreatedAt: now.Add(time.Millisecond)},
	)
	if err != nil {
		s.log.Warn("chat history write failed", "user_email", email, "error", err)
	}
}

func (s *chatService) History(ctx context.Context, email string, limit int) ([]*types.ChatMessage, error) {
	return s.messages.ListRecent(dbctx.Context{Ctx: ctx}, email, limit)
}

func (s *chatService) ClearHistory(ctx context.Context, email string) (int64, error) {
	return s.messages.DeleteByUser(dbctx.Context{Ctx: ctx}, email)
}

func (s *chatService) ListSummaries(ctx context.Context, email string, withContent bool) ([]*types.PDFSummary, error) {
	return s.pdfs.List(dbctx.Context{Ctx: ctx}, email, withContent)
}

func (s *chatService) GetSummary(ctx context.Context, email, name string) (*types.PDFSummary, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("invalid_request", "name required")
	}
	row, err := s.pdfs.GetByName(dbctx.Context{Ctx: ctx}, email, name)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, notFound("pdf summary")
	}
	return row, nil
}

func (s *chatService) DeleteSummary(ctx context.Context, email, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return invalid("invalid_request", "name required")
	}
	ok, err := s.pdfs.DeleteByName(dbctx.Context{Ctx: ctx}, email, name)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("pdf summary")
	}
	return nil
}
