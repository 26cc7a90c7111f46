package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidTopK = errors.New("top k must be at least 1")
	ErrNoUserStore = errors.New("user store path is empty")
)

// StoreOpener loads the vector store persisted at a path.
type StoreOpener interface {
	Open(ctx context.Context, path string) (vectorstores.VectorStore, error)
}

// Retriever answers questions from a user's own store plus a topic reference store.
type Retriever struct {
	stores StoreOpener
	logger *slog.Logger
}

func NewRetriever(stores StoreOpener, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{stores: stores, logger: logger.With("component", "retriever")}
}

// AnswerWithGrounding returns the texts of the k best chunks across both
// stores, best first. A missing store at a non-empty path is an error. An
// empty refStorePath means the topic has no reference material and only the
// user store is searched.
func (r *Retriever) AnswerWithGrounding(ctx context.Context, question, userStorePath, refStorePath string, k int) ([]string, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTopK, k)
	}
	if userStorePath == "" {
		return nil, ErrNoUserStore
	}
	paths := []string{userStorePath}
	if refStorePath != "" {
		paths = append(paths, refStorePath)
	}

	results := make([][]schema.Document, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			store, err := r.stores.Open(gctx, path)
			if err != nil {
				return fmt.Errorf("open store %s failed: %w", path, err)
			}
			docs, err := store.SimilaritySearch(gctx, question, k)
			if err != nil {
				return fmt.Errorf("search store %s failed: %w", path, err)
			}
			results[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := MergeByScore(k, results...)
	r.logger.Debug("grounding retrieved", "stores", len(paths), "hits", len(merged))

	texts := make([]string, len(merged))
	for i, d := range merged {
		texts[i] = d.PageContent
	}
	return texts, nil
}

// MergeByScore concatenates the result sets, orders them by ascending score
// (distance) and keeps the first k. Ties keep the order of the inputs.
func MergeByScore(k int, sets ...[]schema.Document) []schema.Document {
	var all []schema.Document
	for _, s := range sets {
		all = append(all, s...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Score < all[j].Score })
	if k < len(all) {
		all = all[:k]
	}
	return all
}
