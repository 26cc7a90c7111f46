package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ai-teacher/internal/model"
	"ai-teacher/internal/prompt"
	"ai-teacher/internal/rag"
	"ai-teacher/internal/session"
)

const (
	EndpointHelpChat = "help_chat"
	EndpointSimplify = "simplify"

	maxHistoryTurns = 200
)

type ChatService struct {
	sessions     session.Store
	retriever    *rag.Retriever
	builder      *prompt.Builder
	llm          StreamGenerator
	publisher    TurnPublisher
	turns        TurnReader
	historyCache HistoryCache
	topK         int
	logger       *slog.Logger
}

type ChatServiceDeps struct {
	Sessions     session.Store
	Retriever    *rag.Retriever
	Builder      *prompt.Builder
	LLM          StreamGenerator
	Publisher    TurnPublisher
	Turns        TurnReader
	HistoryCache HistoryCache
	TopK         int
	Logger       *slog.Logger
}

func NewChatService(deps ChatServiceDeps) *ChatService {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.TopK <= 0 {
		deps.TopK = 3
	}
	return &ChatService{
		sessions:     deps.Sessions,
		retriever:    deps.Retriever,
		builder:      deps.Builder,
		llm:          deps.LLM,
		publisher:    deps.Publisher,
		turns:        deps.Turns,
		historyCache: deps.HistoryCache,
		topK:         deps.TopK,
		logger:       deps.Logger.With("component", "chat_service"),
	}
}

// UserInfo is the learner profile sent with each request.
type UserInfo struct {
	ExplanationComplexity float64
	TeachingStyle         string
	Occupation            string
	LearningGoal          string
	LearningStyle         string
	Interests             []string
}

type ChatInput struct {
	UserID   string
	History  []prompt.Turn
	UserInfo UserInfo
}

func lastQuestion(history []prompt.Turn) (string, error) {
	if len(history) == 0 {
		return "", validationf("chat_history is empty")
	}
	q := strings.TrimSpace(history[len(history)-1].Content)
	if q == "" {
		return "", validationf("latest question is empty")
	}
	return q, nil
}

// HelpChat answers the latest question from the user's uploaded material and
// the reference store of its topic only.
func (s *ChatService) HelpChat(ctx context.Context, in ChatInput, onChunk func(chunk string) error) (string, error) {
	question, err := lastQuestion(in.History)
	if err != nil {
		return "", err
	}
	rec, err := s.sessions.GetOrCreate(ctx, in.UserID)
	if err != nil {
		return "", fmt.Errorf("load session failed: %w", err)
	}
	if !rec.HasDocument() {
		return "", ErrNoUpload
	}

	chunks, err := s.retriever.AnswerWithGrounding(ctx, question, rec.VectorStorePath, rec.RefPath, s.topK)
	if err != nil {
		return "", classify(err)
	}
	p, err := prompt.Grounded(question, chunks)
	if err != nil {
		return "", fmt.Errorf("build grounded prompt failed: %w", err)
	}

	full, err := s.llm.GenerateStream(ctx, p, onChunk)
	if err != nil {
		return full, upstream("stream grounded answer", err)
	}
	s.record(ctx, in.UserID, EndpointHelpChat, rec.Topic, question, full)
	return full, nil
}

// Simplify streams a re-explanation of the latest question in the style of
// the session's topic. Right after an upload only the latest question is
// kept and the flag is reset.
func (s *ChatService) Simplify(ctx context.Context, in ChatInput, onChunk func(chunk string) error) (string, error) {
	question, err := lastQuestion(in.History)
	if err != nil {
		return "", err
	}
	rec, err := s.sessions.GetOrCreate(ctx, in.UserID)
	if err != nil {
		return "", fmt.Errorf("load session failed: %w", err)
	}

	history := in.History
	if rec.ClearHistory {
		history = history[len(history)-1:]
	}

	p, err := s.builder.Build(rec.Topic, history[:len(history)-1], question, in.UserInfo.Interests)
	if err != nil {
		return "", classify(err)
	}

	full, err := s.llm.GenerateStream(ctx, p, onChunk)
	if err != nil {
		return full, upstream("stream simplification", err)
	}
	if rec.ClearHistory {
		if err := s.sessions.Set(ctx, in.UserID, session.FieldClearHistory, session.BoolValue(false)); err != nil {
			return full, fmt.Errorf("reset clear history failed: %w", err)
		}
	}
	s.record(ctx, in.UserID, EndpointSimplify, rec.Topic, question, full)
	return full, nil
}

func (s *ChatService) record(ctx context.Context, userID, endpoint, topicID, question, answer string) {
	if s.publisher == nil {
		return
	}
	if s.historyCache != nil {
		if err := s.historyCache.Invalidate(ctx, userID); err != nil {
			s.logger.Warn("invalidate history cache failed", "user_id", userID, "error", err)
		}
	}
	turn := model.ChatTurn{
		UserID:    userID,
		Endpoint:  endpoint,
		Topic:     topicID,
		Question:  question,
		Answer:    answer,
		CreatedAt: time.Now(),
	}
	if err := s.publisher.Publish(ctx, turn); err != nil {
		s.logger.Error("enqueue chat turn failed", "user_id", userID, "endpoint", endpoint, "error", err)
	}
}

// History returns up to limit of the user's latest persisted turns, oldest
// first. The cache always holds the latest maxHistoryTurns.
func (s *ChatService) History(ctx context.Context, userID string, limit int) ([]model.ChatTurn, error) {
	if s.turns == nil {
		return []model.ChatTurn{}, nil
	}
	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, userID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.historyCache.GetHistory(ctx, userID); cacheErr == nil && hit {
				return trimTurns(cached, limit), nil
			}
		}
	}

	turns, err := s.turns.ListByUserID(userID, maxHistoryTurns)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, userID); dirtyErr == nil && !dirty {
			_ = s.historyCache.SetHistory(ctx, userID, turns)
		}
	}
	return trimTurns(turns, limit), nil
}

func trimTurns(turns []model.ChatTurn, limit int) []model.ChatTurn {
	if limit <= 0 || limit >= len(turns) {
		return turns
	}
	return turns[len(turns)-limit:]
}
