package prompt

import (
	"fmt"
	"strings"
)

// Grounded builds the retrieval-grounded answer prompt for any number of chunks.
func Grounded(question string, chunks []string) (string, error) {
	body, err := groundedTemplate.Render(map[string]any{
		"Question": question,
		"Chunks":   chunks,
	})
	if err != nil {
		return "", err
	}
	return "<s> [INST] " + body + " [/INST] Answer: ", nil
}

// ClassifierTopic is one registry entry as shown to the classifier.
type ClassifierTopic struct {
	ID         string
	Definition string
}

// ClassifierExample is one few-shot input labelled with its topic.
type ClassifierExample struct {
	TopicID string
	Input   string
}

// Classifier builds the topic classification prompt with the document appended.
func Classifier(topics []ClassifierTopic, examples []ClassifierExample, content string) (string, error) {
	labels := make([]string, len(topics))
	shown := make([]ClassifierTopic, len(topics))
	for i, t := range topics {
		labels[i] = t.ID
		shown[i] = ClassifierTopic{ID: t.ID, Definition: strings.TrimSpace(t.Definition)}
	}
	first := GeneralTopic
	if len(labels) > 0 {
		first = labels[0]
	}
	return classifierTemplate.Render(map[string]any{
		"Labels":     strings.Join(labels, ", "),
		"FirstLabel": first,
		"Topics":     shown,
		"Examples":   examples,
		"Fallback":   GeneralTopic,
		"Content":    content,
	})
}

// LearningPlan returns the system and user messages for learning plan generation.
func LearningPlan(content string) (system, user string, err error) {
	user, err = learningPlanTemplate.Render(map[string]any{"Content": content})
	if err != nil {
		return "", "", err
	}
	return learningPlanSystem, user, nil
}

// FormatInterests renders interests the way the few-shot examples show them: [a, b].
func FormatInterests(interests []string) string {
	return fmt.Sprintf("[%s]", strings.Join(interests, ", "))
}
