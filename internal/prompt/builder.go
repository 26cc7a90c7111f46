package prompt

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyQuestion = errors.New("question is empty")
	ErrUnsupported   = errors.New("topic has no simplification template")
)

// Simplification is a selectable system prompt. InterestAware marks prompts
// whose few-shot examples were written with a trailing user-interest clause.
type Simplification struct {
	Name          string
	System        string
	InterestAware bool
}

// DynamicSource resolves topics that are defined on disk rather than built in.
type DynamicSource interface {
	DynamicPrompt(topicID string) (Simplification, bool)
}

// Turn is one prior chat message.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Builder struct {
	builtin []Simplification
	dynamic DynamicSource
	general Simplification
}

func NewBuilder(dynamic DynamicSource) *Builder {
	return &Builder{
		builtin: []Simplification{
			{Name: "Science", System: scienceSystem, InterestAware: true},
			{Name: "Math", System: mathSystem},
		},
		dynamic: dynamic,
		general: Simplification{Name: GeneralTopic, System: generalSystem},
	}
}

// Lookup finds the prompt for topicID: built-in by exact name, then the
// dynamic source, then built-in by substring. It reports false when none match.
func (b *Builder) Lookup(topicID string) (Simplification, bool) {
	topicID = strings.TrimSpace(topicID)
	if topicID == "" {
		return Simplification{}, false
	}
	if topicID == GeneralTopic {
		return b.general, true
	}
	for _, s := range b.builtin {
		if s.Name == topicID {
			return s, true
		}
	}
	if b.dynamic != nil {
		if s, ok := b.dynamic.DynamicPrompt(topicID); ok {
			return s, true
		}
	}
	for _, s := range b.builtin {
		if strings.Contains(topicID, s.Name) {
			return s, true
		}
	}
	return Simplification{}, false
}

// Select is Lookup with the general paraphrasing prompt for unknown or
// unclassified topics.
func (b *Builder) Select(topicID string) Simplification {
	if s, ok := b.Lookup(topicID); ok {
		return s
	}
	return b.general
}

// Require is Lookup for callers that must reject topics without a template.
func (b *Builder) Require(topicID string) (Simplification, error) {
	s, ok := b.Lookup(topicID)
	if !ok {
		return Simplification{}, fmt.Errorf("%w: %q", ErrUnsupported, topicID)
	}
	return s, nil
}

// Build assembles the simplification prompt. History is rendered as a raw
// list. Interests are appended only for interest-aware prompts.
func (b *Builder) Build(topicID string, history []Turn, question string, interests []string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}
	selected := b.Select(topicID)
	if history == nil {
		history = []Turn{}
	}
	return simplifyTemplate.Render(map[string]any{
		"System":        selected.System,
		"Directive":     simplifyDirective,
		"History":       fmt.Sprintf("%v", history),
		"Question":      question,
		"InterestAware": selected.InterestAware,
		"Interests":     FormatInterests(interests),
	})
}
