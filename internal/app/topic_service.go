package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"ai-teacher/internal/prompt"
	"ai-teacher/internal/session"
	"ai-teacher/internal/topic"
)

type TopicService struct {
	registry   *topic.Registry
	classifier *topic.Classifier
	builder    *prompt.Builder
	references *ReferenceBuilder
	sessions   session.Store
	logger     *slog.Logger
}

func NewTopicService(
	registry *topic.Registry,
	classifier *topic.Classifier,
	builder *prompt.Builder,
	references *ReferenceBuilder,
	sessions session.Store,
	logger *slog.Logger,
) *TopicService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TopicService{
		registry:   registry,
		classifier: classifier,
		builder:    builder,
		references: references,
		sessions:   sessions,
		logger:     logger.With("component", "topic_service"),
	}
}

// List returns the registered topics followed by the general paraphrasing topic.
func (s *TopicService) List() []string {
	return append(s.registry.Names(), prompt.GeneralTopic)
}

// Confirm pins the user's topic and its reference store, overriding the
// classification of the last upload.
func (s *TopicService) Confirm(ctx context.Context, userID, topicID string) (topic.Result, error) {
	topicID = strings.TrimSpace(topicID)
	if topicID == "" {
		return topic.Result{}, validationf("topic is required")
	}
	if _, err := s.builder.Require(topicID); err != nil {
		return topic.Result{}, classify(err)
	}
	result := s.classifier.Resolve(topicID)

	if _, err := s.sessions.GetOrCreate(ctx, userID); err != nil {
		return topic.Result{}, fmt.Errorf("load session failed: %w", err)
	}
	if err := s.sessions.Update(ctx, userID, map[session.Field]string{
		session.FieldTopic:   result.TopicID,
		session.FieldRefPath: result.ReferencePath,
	}); err != nil {
		return topic.Result{}, fmt.Errorf("update session failed: %w", err)
	}
	s.logger.Info("topic confirmed", "user_id", userID, "topic", result.TopicID, "ref_path", result.ReferencePath)
	return result, nil
}

type ReferenceFile struct {
	Name    string
	Content io.Reader
}

type AddTopicInput struct {
	Name         string
	Definition   string
	Instruction  string
	ExamplesJSON string
	References   []ReferenceFile
}

// AddTopic validates the form, writes the topic files and reference PDFs,
// builds the reference store and refreshes the registry. A failure after the
// topic folder was created removes it again.
func (s *TopicService) AddTopic(ctx context.Context, in AddTopicInput) (topic.Topic, error) {
	details := map[string]string{}
	if strings.TrimSpace(in.Name) == "" {
		details["topic_name"] = "Topic Name is required"
	}
	if strings.TrimSpace(in.Definition) == "" {
		details["definition"] = "Definition is required"
	}
	if strings.TrimSpace(in.Instruction) == "" {
		details["instruction"] = "Instruction is required"
	}
	var examples []topic.Example
	if strings.TrimSpace(in.ExamplesJSON) == "" {
		details["examples"] = "Examples are required"
	} else if err := json.Unmarshal([]byte(in.ExamplesJSON), &examples); err != nil {
		details["examples"] = "Examples must be a JSON list of {input, output}"
	}
	if len(in.References) == 0 {
		details["references"] = "At least one reference PDF is required"
	}
	if len(details) > 0 {
		return topic.Topic{}, &ValidationError{Details: details}
	}

	t, err := s.registry.Create(topic.NewTopic{
		Name:         in.Name,
		Definition:   in.Definition,
		Instructions: in.Instruction,
		Examples:     examples,
	})
	if err != nil {
		return topic.Topic{}, classify(err)
	}

	if err := s.materialize(ctx, t, in.References); err != nil {
		if rmErr := os.RemoveAll(t.Dir); rmErr != nil {
			s.logger.Error("remove partial topic failed", "topic", t.ID, "error", rmErr)
		}
		return topic.Topic{}, err
	}

	if err := s.registry.Refresh(); err != nil {
		return topic.Topic{}, fmt.Errorf("refresh topics failed: %w", err)
	}
	s.logger.Info("topic added", "topic", t.ID)
	return t, nil
}

func (s *TopicService) materialize(ctx context.Context, t topic.Topic, refs []ReferenceFile) error {
	for _, ref := range refs {
		name := filepath.Base(ref.Name)
		if name == "." || name == string(filepath.Separator) || name == "" {
			return validationf("reference file name is required")
		}
		if err := writeFile(filepath.Join(t.ReferencesDir(), name), ref.Content); err != nil {
			return fmt.Errorf("save reference %s failed: %w", name, err)
		}
	}
	if _, err := s.references.BuildFromFolder(ctx, t.ReferencesDir(), t.ReferencePath()); err != nil {
		if errors.Is(err, ErrValidation) {
			return err
		}
		return fmt.Errorf("build reference store for %s failed: %w", t.ID, err)
	}
	return nil
}

func writeFile(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
