package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"ai-teacher/internal/model"
	"ai-teacher/internal/pkg/pdfextract"
	"ai-teacher/internal/prompt"
	"ai-teacher/internal/rag"
	"ai-teacher/internal/session"
	"ai-teacher/internal/topic"
	"ai-teacher/internal/vectorstore"
)

const (
	userStoreDirName     = "user_vector_db"
	planJSONFileName     = "learning_plan.json"
	planMarkdownFileName = "learning_plan.md"
)

type UploadService struct {
	workspace    Workspace
	sessions     session.Store
	classifier   *topic.Classifier
	planner      PlanStreamer
	stores       *vectorstore.Manager
	documents    DocumentRecorder
	extract      func(io.Reader) (string, error)
	chunkSize    int
	chunkOverlap int
	logger       *slog.Logger
}

type UploadServiceConfig struct {
	ChunkSize    int
	ChunkOverlap int
	// Extract turns the uploaded bytes into text. Defaults to PDF extraction
	// with Arabic digit repair.
	Extract func(io.Reader) (string, error)
}

func NewUploadService(
	workspace Workspace,
	sessions session.Store,
	classifier *topic.Classifier,
	planner PlanStreamer,
	stores *vectorstore.Manager,
	documents DocumentRecorder,
	cfg UploadServiceConfig,
	logger *slog.Logger,
) *UploadService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = rag.DefaultChunkSize
		cfg.ChunkOverlap = rag.DefaultChunkOverlap
	}
	if cfg.Extract == nil {
		cfg.Extract = pdfextract.ExtractNormalized
	}
	return &UploadService{
		workspace:    workspace,
		sessions:     sessions,
		classifier:   classifier,
		planner:      planner,
		stores:       stores,
		documents:    documents,
		extract:      cfg.Extract,
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: cfg.ChunkOverlap,
		logger:       logger.With("component", "upload_service"),
	}
}

type UploadInput struct {
	UserID   string
	FileName string
	Content  io.Reader
}

// Ingested is a stored, extracted and classified upload whose learning plan
// has not been produced yet.
type Ingested struct {
	UserID       string
	FileName     string
	DocumentPath string
	UserDir      string
	Text         string
	Topic        topic.Result
}

// Ingest saves the PDF into the user's folder, extracts its text and
// classifies it. The session records the document and the classified topic.
func (s *UploadService) Ingest(ctx context.Context, in UploadInput) (*Ingested, error) {
	name := filepath.Base(strings.TrimSpace(in.FileName))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, validationf("file name is required")
	}
	dir, err := s.workspace.UserDir(in.UserID)
	if err != nil {
		return nil, fmt.Errorf("prepare user folder failed: %w", err)
	}
	if _, err := s.sessions.GetOrCreate(ctx, in.UserID); err != nil {
		return nil, fmt.Errorf("load session failed: %w", err)
	}

	docPath := filepath.Join(dir, uuid.NewString()+"_"+name)
	raw, err := io.ReadAll(in.Content)
	if err != nil {
		return nil, fmt.Errorf("read upload failed: %w", err)
	}
	if err := os.WriteFile(docPath, raw, 0o644); err != nil {
		return nil, fmt.Errorf("save upload failed: %w", err)
	}

	text, err := s.extract(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, validationf("no text could be extracted from %s", name)
	}

	result, err := s.classifier.Classify(ctx, text)
	if err != nil {
		return nil, upstream("classify document", err)
	}

	if err := s.sessions.Update(ctx, in.UserID, map[session.Field]string{
		session.FieldDocumentPath:    docPath,
		session.FieldTopic:           result.TopicID,
		session.FieldRefPath:         result.ReferencePath,
		session.FieldVectorStorePath: "",
	}); err != nil {
		return nil, fmt.Errorf("update session failed: %w", err)
	}
	s.logger.Info("document ingested", "user_id", in.UserID, "topic", result.TopicID, "chars", len([]rune(text)))

	return &Ingested{
		UserID:       in.UserID,
		FileName:     name,
		DocumentPath: docPath,
		UserDir:      dir,
		Text:         text,
		Topic:        result,
	}, nil
}

type PlanResult struct {
	Plan            string
	PlanPath        string
	VectorStorePath string
	Chunks          int
}

// StreamPlan forwards the learning plan to onChunk while accumulating it.
// Once the stream completes the plan is indexed into the user's store, saved
// next to the upload and the session is flagged to clear chat history.
func (s *UploadService) StreamPlan(ctx context.Context, ing *Ingested, onChunk func(chunk string) error) (PlanResult, error) {
	system, user, err := prompt.LearningPlan(ing.Text)
	if err != nil {
		return PlanResult{}, fmt.Errorf("build learning plan prompt failed: %w", err)
	}
	plan, err := s.planner.StreamChat(ctx, system, user, onChunk)
	if err != nil {
		return PlanResult{}, upstream("stream learning plan", err)
	}

	storeText := PlanMarkdown(plan)
	if strings.TrimSpace(storeText) == "" {
		return PlanResult{}, validationf("learning plan is empty")
	}
	chunks, err := rag.Split(storeText, s.chunkSize, s.chunkOverlap)
	if err != nil {
		return PlanResult{}, fmt.Errorf("chunk learning plan failed: %w", err)
	}
	if len(chunks) == 0 {
		return PlanResult{}, validationf("learning plan is empty")
	}
	storePath := filepath.Join(ing.UserDir, userStoreDirName)
	if _, err := s.stores.Create(ctx, storePath, chunks); err != nil {
		if errors.Is(err, vectorstore.ErrEmptyInput) {
			return PlanResult{}, fmt.Errorf("%w: %w", ErrValidation, err)
		}
		return PlanResult{}, upstream("build user store", err)
	}

	planPath, err := SavePlan(ing.UserDir, plan)
	if err != nil {
		s.logger.Warn("save learning plan failed", "user_id", ing.UserID, "error", err)
	}

	if err := s.sessions.Update(ctx, ing.UserID, map[session.Field]string{
		session.FieldVectorStorePath: storePath,
		session.FieldClearHistory:    session.BoolValue(true),
	}); err != nil {
		return PlanResult{}, fmt.Errorf("update session failed: %w", err)
	}

	if s.documents != nil {
		doc := &model.Document{
			UserID:          ing.UserID,
			Name:            ing.FileName,
			Path:            ing.DocumentPath,
			VectorStorePath: storePath,
			Topic:           ing.Topic.TopicID,
			RefPath:         ing.Topic.ReferencePath,
		}
		if err := s.documents.Create(doc); err != nil {
			s.logger.Warn("record document failed", "user_id", ing.UserID, "error", err)
		}
	}

	return PlanResult{Plan: plan, PlanPath: planPath, VectorStorePath: storePath, Chunks: len(chunks)}, nil
}

// PlanMarkdown joins the values of a JSON object plan in key order. Plans that
// are not a JSON object are returned as is.
func PlanMarkdown(plan string) string {
	var sections map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(plan)), &sections); err != nil || len(sections) == 0 {
		return plan
	}
	keys := make([]string, 0, len(sections))
	for k := range sections {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if v, ok := sections[k].(string); ok {
			parts = append(parts, v)
			continue
		}
		parts = append(parts, fmt.Sprint(sections[k]))
	}
	return strings.Join(parts, "\n\n")
}

// SavePlan writes the plan as indented JSON when it parses, raw markdown otherwise.
func SavePlan(dir, plan string) (string, error) {
	var parsed any
	if err := json.Unmarshal([]byte(strings.TrimSpace(plan)), &parsed); err == nil {
		pretty, err := json.MarshalIndent(parsed, "", "    ")
		if err != nil {
			return "", fmt.Errorf("marshal learning plan failed: %w", err)
		}
		path := filepath.Join(dir, planJSONFileName)
		if err := os.WriteFile(path, pretty, 0o644); err != nil {
			return "", fmt.Errorf("write learning plan failed: %w", err)
		}
		return path, nil
	}
	path := filepath.Join(dir, planMarkdownFileName)
	if err := os.WriteFile(path, []byte(plan), 0o644); err != nil {
		return "", fmt.Errorf("write learning plan failed: %w", err)
	}
	return path, nil
}
