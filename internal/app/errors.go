package app

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"ai-teacher/internal/prompt"
	"ai-teacher/internal/session"
	"ai-teacher/internal/topic"
	"ai-teacher/internal/vectorstore"
)

var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("not found")
	ErrUpstream    = errors.New("upstream service failed")
	ErrUnsupported = errors.New("topic is not supported")
	ErrNoUpload    = errors.New("no file has been uploaded yet")
	ErrTopicExists = errors.New("topic already exists")
)

// ValidationError carries per-field messages and matches ErrValidation.
type ValidationError struct {
	Details map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Details[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func upstream(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUpstream, what, err)
}

// classify maps errors from lower layers onto the app taxonomy.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound), errors.Is(err, ErrUpstream),
		errors.Is(err, ErrUnsupported), errors.Is(err, ErrNoUpload), errors.Is(err, ErrTopicExists):
		return err
	case errors.Is(err, vectorstore.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, prompt.ErrUnsupported):
		return fmt.Errorf("%w: %w", ErrUnsupported, err)
	case errors.Is(err, prompt.ErrEmptyQuestion), errors.Is(err, topic.ErrInvalidTopic):
		return fmt.Errorf("%w: %w", ErrValidation, err)
	case errors.Is(err, topic.ErrTopicExists):
		return fmt.Errorf("%w: %w", ErrTopicExists, err)
	case errors.Is(err, session.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNoUpload, err)
	}
	return err
}
