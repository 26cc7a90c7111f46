package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
)

var (
	ErrNotFound           = errors.New("vector store not found")
	ErrIncompatibleFormat = errors.New("vector store format incompatible")
	ErrEmptyInput         = errors.New("no text to index")
	ErrInvalidK           = errors.New("k must be at least 1")
)

// Record is one embedded chunk.
type Record struct {
	Text   string
	Vector []float32
}

// Hit is a search result. Score is the squared L2 distance to the query, so
// lower is better.
type Hit struct {
	Text  string
	Score float32
}

// Store is an in-memory handle on an index persisted at Path.
type Store struct {
	path     string
	embedder Embedder
	pathLock *sync.Mutex

	mu        sync.RWMutex
	dimension int
	model     string
	records   []Record
}

var _ vectorstores.VectorStore = (*Store)(nil)

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *Store) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

// Add embeds texts and appends them to the handle. Nothing is written to disk
// until Save.
func (s *Store) Add(ctx context.Context, texts []string) error {
	records, err := embedRecords(ctx, s.embedder, texts)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension == 0 {
		s.dimension = len(records[0].Vector)
	}
	for _, r := range records {
		if len(r.Vector) != s.dimension {
			return fmt.Errorf("%w: vector dimension %d, store dimension %d", ErrIncompatibleFormat, len(r.Vector), s.dimension)
		}
	}
	s.records = append(s.records, records...)
	return nil
}

// Save persists the handle at its path, serialized with other writers of the same path.
func (s *Store) Save(ctx context.Context) error {
	s.pathLock.Lock()
	defer s.pathLock.Unlock()
	return s.persist(ctx)
}

func (s *Store) persist(ctx context.Context) error {
	s.mu.RLock()
	meta := indexMeta{Dimension: s.dimension, Model: s.model}
	records := make([]Record, len(s.records))
	copy(records, s.records)
	s.mu.RUnlock()

	return writeIndex(ctx, s.path, meta, records)
}

// Search returns the k records nearest to query, ascending by distance.
// Equal distances keep insertion order. k larger than the store returns every record.
func (s *Store) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}
	qv, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query failed: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.records) == 0 {
		return []Hit{}, nil
	}
	if len(qv) != s.dimension {
		return nil, fmt.Errorf("%w: query dimension %d, store dimension %d", ErrIncompatibleFormat, len(qv), s.dimension)
	}

	hits := make([]Hit, len(s.records))
	for i, r := range s.records {
		hits[i] = Hit{Text: r.Text, Score: squaredL2(qv, r.Vector)}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score < hits[j].Score })
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// AddDocuments adds the page contents of docs to the handle. The returned ids
// are record positions.
func (s *Store) AddDocuments(ctx context.Context, docs []schema.Document, _ ...vectorstores.Option) ([]string, error) {
	texts := make([]string, 0, len(docs))
	for _, d := range docs {
		texts = append(texts, d.PageContent)
	}
	before := s.Len()
	if err := s.Add(ctx, texts); err != nil {
		return nil, err
	}
	after := s.Len()
	ids := make([]string, 0, after-before)
	for i := before; i < after; i++ {
		ids = append(ids, strconv.Itoa(i))
	}
	return ids, nil
}

// SimilaritySearch adapts Search to langchaingo documents; Score carries the distance.
func (s *Store) SimilaritySearch(ctx context.Context, query string, numDocuments int, _ ...vectorstores.Option) ([]schema.Document, error) {
	hits, err := s.Search(ctx, query, numDocuments)
	if err != nil {
		return nil, err
	}
	docs := make([]schema.Document, len(hits))
	for i, h := range hits {
		docs[i] = schema.Document{
			PageContent: h.Text,
			Score:       h.Score,
			Metadata:    map[string]any{"store": s.path},
		}
	}
	return docs, nil
}

func embedRecords(ctx context.Context, embedder Embedder, texts []string) ([]Record, error) {
	cleaned := make([]string, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			cleaned = append(cleaned, t)
		}
	}
	if len(cleaned) == 0 {
		return nil, ErrEmptyInput
	}

	vectors, err := embedder.EmbedDocuments(ctx, cleaned)
	if err != nil {
		return nil, fmt.Errorf("embed documents failed: %w", err)
	}
	if len(vectors) != len(cleaned) {
		return nil, fmt.Errorf("embedding count mismatch: got %d for %d texts", len(vectors), len(cleaned))
	}

	records := make([]Record, len(cleaned))
	for i := range cleaned {
		records[i] = Record{Text: cleaned[i], Vector: vectors[i]}
	}
	return records, nil
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
