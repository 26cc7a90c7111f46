package topic

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode"

	"ai-teacher/internal/prompt"
)

const (
	definitionFile   = "Definition.txt"
	instructionsFile = "Instructions.txt"
	examplesFile     = "Examples.txt"
	referencesDir    = "References"
	referenceStore   = "References-VS"
	systemPrefix     = "<s>[INST] "
)

var (
	ErrTopicExists  = errors.New("topic already exists")
	ErrInvalidTopic = errors.New("invalid topic")
)

// Topic is a category loaded from its directory under the registry base.
type Topic struct {
	ID           string
	Definition   string
	Instructions string
	Examples     string
	Dir          string
}

// ReferencePath is where the topic's reference vector store lives.
func (t Topic) ReferencePath() string {
	return filepath.Join(t.Dir, referenceStore)
}

// ReferencesDir holds the reference PDFs the store is built from.
func (t Topic) ReferencesDir() string {
	return filepath.Join(t.Dir, referencesDir)
}

func (t Topic) SystemPrompt() string {
	return systemPrefix + t.Instructions + "\n" + t.Examples
}

// InterestAware reports whether the topic's examples carry a user-interest clause.
func (t Topic) InterestAware() bool {
	return strings.Contains(strings.ToLower(t.Examples), "user interest")
}

// Registry is the in-memory set of topics. It reads the base directory on
// Refresh only.
type Registry struct {
	baseDir string
	logger  *slog.Logger

	mu     sync.RWMutex
	topics []Topic
	byID   map[string]Topic
}

func NewRegistry(baseDir string, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		baseDir: baseDir,
		logger:  logger.With("component", "topic_registry"),
		byID:    map[string]Topic{},
	}
}

func (r *Registry) BaseDir() string {
	return r.baseDir
}

// Refresh rescans the base directory. Directories missing one of the three
// prompt files are logged and left out.
func (r *Registry) Refresh() error {
	if err := os.MkdirAll(r.baseDir, 0o755); err != nil {
		return fmt.Errorf("create topics dir failed: %w", err)
	}
	entries, err := os.ReadDir(r.baseDir)
	if err != nil {
		return fmt.Errorf("read topics dir failed: %w", err)
	}

	topics := make([]Topic, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || name == "__pycache__" || strings.HasPrefix(name, ".") {
			continue
		}
		t, err := loadTopic(filepath.Join(r.baseDir, name))
		if err != nil {
			r.logger.Warn("skip topic", "topic", name, "error", err)
			continue
		}
		topics = append(topics, t)
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].ID < topics[j].ID })

	byID := make(map[string]Topic, len(topics))
	for _, t := range topics {
		byID[t.ID] = t
	}

	r.mu.Lock()
	r.topics = topics
	r.byID = byID
	r.mu.Unlock()

	r.logger.Info("topic registry refreshed", "topics", len(topics))
	return nil
}

func loadTopic(dir string) (Topic, error) {
	read := func(name string) (string, error) {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return "", fmt.Errorf("missing %s: %w", name, err)
		}
		return string(b), nil
	}
	def, err := read(definitionFile)
	if err != nil {
		return Topic{}, err
	}
	instr, err := read(instructionsFile)
	if err != nil {
		return Topic{}, err
	}
	ex, err := read(examplesFile)
	if err != nil {
		return Topic{}, err
	}
	return Topic{
		ID:           filepath.Base(dir),
		Definition:   def,
		Instructions: instr,
		Examples:     ex,
		Dir:          dir,
	}, nil
}

func (r *Registry) Topics() []Topic {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Topic, len(r.topics))
	copy(out, r.topics)
	return out
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.topics))
	for i, t := range r.topics {
		names[i] = t.ID
	}
	return names
}

func (r *Registry) Get(id string) (Topic, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[id]
	return t, ok
}

// MatchLabel finds the topic a free-form label refers to: the exact id, or
// else the longest id contained in the label.
func (r *Registry) MatchLabel(label string) (Topic, bool) {
	if t, ok := r.Get(label); ok {
		return t, true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var best Topic
	found := false
	for _, t := range r.topics {
		if strings.Contains(label, t.ID) && len(t.ID) > len(best.ID) {
			best, found = t, true
		}
	}
	return best, found
}

// DynamicPrompt lets the prompt builder select registry topics.
func (r *Registry) DynamicPrompt(topicID string) (prompt.Simplification, bool) {
	t, ok := r.MatchLabel(topicID)
	if !ok {
		return prompt.Simplification{}, false
	}
	return prompt.Simplification{Name: t.ID, System: t.SystemPrompt(), InterestAware: t.InterestAware()}, true
}

// Example is one few-shot pair of a new topic.
type Example struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

type NewTopic struct {
	Name         string
	Definition   string
	Instructions string
	Examples     []Example
}

// Create writes the prompt files of a new topic and its empty References
// directory. The registry is not refreshed; call Refresh once the topic's
// reference store is built.
func (r *Registry) Create(nt NewTopic) (Topic, error) {
	name := SanitizeName(nt.Name)
	if name == "" {
		return Topic{}, fmt.Errorf("%w: empty name", ErrInvalidTopic)
	}
	if name == prompt.GeneralTopic {
		return Topic{}, fmt.Errorf("%w: %s", ErrTopicExists, name)
	}
	dir := filepath.Join(r.baseDir, name)
	if _, err := os.Stat(dir); err == nil {
		return Topic{}, fmt.Errorf("%w: %s", ErrTopicExists, name)
	}

	var ex strings.Builder
	for _, e := range nt.Examples {
		fmt.Fprintf(&ex, "Input: %s\nOutput: %s\n\n", e.Input, e.Output)
	}
	t := Topic{
		ID:           name,
		Definition:   nt.Definition,
		Instructions: nt.Instructions,
		Examples:     ex.String(),
		Dir:          dir,
	}

	if err := os.MkdirAll(t.ReferencesDir(), 0o755); err != nil {
		return Topic{}, fmt.Errorf("create topic dir failed: %w", err)
	}
	files := map[string]string{
		definitionFile:   t.Definition,
		instructionsFile: t.Instructions,
		examplesFile:     t.Examples,
	}
	for file, content := range files {
		if err := os.WriteFile(filepath.Join(dir, file), []byte(content), 0o644); err != nil {
			return Topic{}, fmt.Errorf("write %s failed: %w", file, err)
		}
	}
	return t, nil
}

// SanitizeName keeps letters, digits, spaces, underscores and hyphens.
func SanitizeName(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
