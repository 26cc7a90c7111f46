package app

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"ai-teacher/internal/model"
)

// StreamGenerator is the instruction-tuned model behind simplification and
// grounded answers.
type StreamGenerator interface {
	GenerateStream(ctx context.Context, prompt string, onChunk func(chunk string) error) (string, error)
}

// PlanStreamer produces the learning plan for an uploaded document.
type PlanStreamer interface {
	StreamChat(ctx context.Context, system, user string, onChunk func(chunk string) error) (string, error)
}

type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) (io.ReadCloser, error)
}

type TurnPublisher interface {
	Publish(ctx context.Context, turn model.ChatTurn) error
}

type TurnReader interface {
	ListByUserID(userID string, limit int) ([]model.ChatTurn, error)
}

type DocumentRecorder interface {
	Create(doc *model.Document) error
}

type HistoryCache interface {
	GetHistory(ctx context.Context, userID string) ([]model.ChatTurn, bool, error)
	SetHistory(ctx context.Context, userID string, turns []model.ChatTurn) error
	Invalidate(ctx context.Context, userID string) error
	IsDirty(ctx context.Context, userID string) (bool, error)
}

// Workspace lays out per-user folders under a root directory.
type Workspace struct {
	root string
}

func NewWorkspace(root string) Workspace {
	return Workspace{root: root}
}

// UserDir returns the user's folder, creating it when missing.
func (w Workspace) UserDir(userID string) (string, error) {
	if userID == "" || userID != filepath.Base(userID) {
		return "", validationf("invalid user id %q", userID)
	}
	dir := filepath.Join(w.root, userID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}
