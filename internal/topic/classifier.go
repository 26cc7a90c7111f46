package topic

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"sync"
	"time"

	"ai-teacher/internal/prompt"
)

// Generator is a single-shot LLM completion.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Result is a classification outcome. An empty ReferencePath means the topic
// has no reference store and answers are grounded on the user's store only.
type Result struct {
	TopicID       string `json:"topic"`
	ReferencePath string `json:"ref_knowledge_path"`
}

type Classifier struct {
	registry        *Registry
	llm             Generator
	fallbackRefPath string
	logger          *slog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewClassifier(registry *Registry, llm Generator, fallbackRefPath string, rng *rand.Rand, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Classifier{
		registry:        registry,
		llm:             llm,
		fallbackRefPath: fallbackRefPath,
		logger:          logger.With("component", "classifier"),
		rng:             rng,
	}
}

// BuildPrompt assembles the few-shot classification prompt over the current
// registry with one randomly sampled example per topic.
func (c *Classifier) BuildPrompt(documentText string) (string, error) {
	topics := c.registry.Topics()
	shown := make([]prompt.ClassifierTopic, 0, len(topics))
	examples := make([]prompt.ClassifierExample, 0, len(topics))
	for _, t := range topics {
		shown = append(shown, prompt.ClassifierTopic{ID: t.ID, Definition: t.Definition})
		inputs := ExtractExampleInputs(t.Examples)
		if len(inputs) == 0 {
			c.logger.Warn("topic has no examples", "topic", t.ID)
			continue
		}
		examples = append(examples, prompt.ClassifierExample{TopicID: t.ID, Input: c.pick(inputs)})
	}
	return prompt.Classifier(shown, examples, documentText)
}

func (c *Classifier) pick(inputs []string) string {
	c.rngMu.Lock()
	defer c.rngMu.Unlock()
	return inputs[c.rng.Intn(len(inputs))]
}

// Classify asks the LLM for the document's topic. Labels outside the registry
// resolve to the general fallback.
func (c *Classifier) Classify(ctx context.Context, documentText string) (Result, error) {
	if len(c.registry.Names()) == 0 {
		c.logger.Info("no topics registered, using fallback")
		return c.Resolve(prompt.GeneralTopic), nil
	}
	p, err := c.BuildPrompt(documentText)
	if err != nil {
		return Result{}, fmt.Errorf("build classifier prompt failed: %w", err)
	}
	raw, err := c.llm.Generate(ctx, p)
	if err != nil {
		return Result{}, fmt.Errorf("classify document failed: %w", err)
	}

	label := CleanLabel(raw)
	if _, known := c.registry.Get(label); !known && label != prompt.GeneralTopic {
		c.logger.Info("unknown topic label, using fallback", "label", label)
		label = prompt.GeneralTopic
	}
	result := c.Resolve(label)
	c.logger.Info("document classified", "topic", result.TopicID, "ref_path", result.ReferencePath)
	return result, nil
}

// Resolve maps a topic label to its reference store path.
func (c *Classifier) Resolve(label string) Result {
	if label == prompt.GeneralTopic {
		return Result{TopicID: label, ReferencePath: c.fallbackRefPath}
	}
	t, ok := c.registry.MatchLabel(label)
	if !ok {
		return Result{TopicID: label}
	}
	ref := t.ReferencePath()
	if _, err := os.Stat(ref); errors.Is(err, fs.ErrNotExist) {
		c.logger.Warn("topic has no reference store", "topic", t.ID, "path", ref)
		ref = ""
	}
	return Result{TopicID: label, ReferencePath: ref}
}

// CleanLabel trims the raw completion and drops its periods.
func CleanLabel(raw string) string {
	return strings.TrimSpace(strings.ReplaceAll(strings.TrimSpace(raw), ".", ""))
}

// ExtractExampleInputs returns every span that starts at "Input" and ends
// before the nearest following "User Interest" or "Output".
func ExtractExampleInputs(examples string) []string {
	const start = "Input"
	var out []string
	rest := examples
	for {
		i := strings.Index(rest, start)
		if i < 0 {
			return out
		}
		rest = rest[i:]
		end := -1
		for _, marker := range []string{"User Interest", "Output"} {
			if j := strings.Index(rest[len(start):], marker); j >= 0 {
				j += len(start)
				if end < 0 || j < end {
					end = j
				}
			}
		}
		if end < 0 {
			return out
		}
		if s := strings.TrimSpace(rest[:end]); s != "" {
			out = append(out, s)
		}
		rest = rest[end:]
	}
}
