package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/tmc/langchaingo/vectorstores"
)

// Manager creates and loads stores bound to one embedding function and
// serializes writers per store path.
type Manager struct {
	embedder Embedder
	logger   *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewManager(embedder Embedder, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		embedder: embedder,
		logger:   logger.With("component", "vectorstore"),
		locks:    make(map[string]*sync.Mutex),
	}
}

func (m *Manager) Embedder() Embedder {
	return m.embedder
}

func (m *Manager) pathLock(path string) *sync.Mutex {
	key := filepath.Clean(path)
	if abs, err := filepath.Abs(key); err == nil {
		key = abs
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[key]
	if !ok {
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	return l
}

func (m *Manager) newStore(path string) *Store {
	return &Store{
		path:      path,
		embedder:  m.embedder,
		pathLock:  m.pathLock(path),
		dimension: m.embedder.Dimension(),
		model:     m.embedder.ModelName(),
	}
}

// Create embeds texts into a fresh store and persists it at path, replacing
// whatever index was there.
func (m *Manager) Create(ctx context.Context, path string, texts []string) (*Store, error) {
	s := m.newStore(path)
	if err := s.Add(ctx, texts); err != nil {
		return nil, err
	}

	s.pathLock.Lock()
	defer s.pathLock.Unlock()
	if err := s.persist(ctx); err != nil {
		return nil, err
	}
	m.logger.Info("vector store created", "path", path, "records", s.Len())
	return s, nil
}

// Load opens the store at path. It fails with ErrNotFound when nothing is
// there and ErrIncompatibleFormat when the index was built by a different
// embedding function.
func (m *Manager) Load(ctx context.Context, path string) (*Store, error) {
	meta, records, err := readIndex(ctx, path)
	if err != nil {
		return nil, err
	}
	if want := m.embedder.Dimension(); want > 0 && meta.Dimension != want {
		return nil, fmt.Errorf("%w: index dimension %d, embedder dimension %d", ErrIncompatibleFormat, meta.Dimension, want)
	}
	if want := m.embedder.ModelName(); want != "" && meta.Model != "" && meta.Model != want {
		return nil, fmt.Errorf("%w: index model %q, embedder model %q", ErrIncompatibleFormat, meta.Model, want)
	}

	s := m.newStore(path)
	s.dimension = meta.Dimension
	if meta.Model != "" {
		s.model = meta.Model
	}
	s.records = records
	return s, nil
}

// Append adds texts to the store at path, creating it when absent, and persists it.
func (m *Manager) Append(ctx context.Context, path string, texts []string) (*Store, error) {
	lock := m.pathLock(path)
	lock.Lock()
	defer lock.Unlock()

	s, err := m.Load(ctx, path)
	if errors.Is(err, ErrNotFound) {
		s, err = m.newStore(path), nil
	}
	if err != nil {
		return nil, err
	}
	if err := s.Add(ctx, texts); err != nil {
		return nil, err
	}
	if err := s.persist(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Open satisfies rag.StoreOpener.
func (m *Manager) Open(ctx context.Context, path string) (vectorstores.VectorStore, error) {
	s, err := m.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	return s, nil
}
