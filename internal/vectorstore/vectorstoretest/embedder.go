// Package vectorstoretest provides a deterministic embedder for tests.
package vectorstoretest

import (
	"context"
	"errors"
	"strings"
)

const letterDims = 26

// LetterEmbedder maps text to its a-z letter frequency vector. Identical texts
// embed identically, so a query equal to a stored text has distance zero.
type LetterEmbedder struct {
	Model string
	Fail  error
}

func (e *LetterEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	if e.Fail != nil {
		return nil, e.Fail
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = Letters(t)
	}
	return out, nil
}

func (e *LetterEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, errors.New("no vector")
	}
	return vecs[0], nil
}

func (e *LetterEmbedder) Dimension() int { return letterDims }

func (e *LetterEmbedder) ModelName() string {
	if e.Model == "" {
		return "letters-v1"
	}
	return e.Model
}

func Letters(text string) []float32 {
	v := make([]float32, letterDims)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	return v
}
