package vectorstore

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-teacher/internal/vectorstore/vectorstoretest"
)

var corpus = []string{
	"the heart pumps blood",
	"kidneys filter waste",
	"lungs move oxygen",
	"muscles move bones",
}

func newManager(model string) *Manager {
	return NewManager(&vectorstoretest.LetterEmbedder{Model: model}, nil)
}

func TestCreateThenSearchRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "user_vector_db")
	m := newManager("")

	_, err := m.Create(ctx, path, corpus)
	require.NoError(t, err)

	s, err := m.Load(ctx, path)
	require.NoError(t, err)
	require.Equal(t, len(corpus), s.Len())

	for _, text := range corpus {
		hits, err := s.Search(ctx, text, 2)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, text, hits[0].Text)
		assert.Zero(t, hits[0].Score)
		assert.LessOrEqual(t, hits[0].Score, hits[1].Score)
	}
}

func TestSearchKLargerThanStore(t *testing.T) {
	ctx := context.Background()
	s, err := newManager("").Create(ctx, t.TempDir(), corpus)
	require.NoError(t, err)

	hits, err := s.Search(ctx, "blood", 50)
	require.NoError(t, err)
	assert.Len(t, hits, len(corpus))
	for i := 1; i < len(hits); i++ {
		assert.LessOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
}

func TestSearchRejectsZeroK(t *testing.T) {
	ctx := context.Background()
	s, err := newManager("").Create(ctx, t.TempDir(), corpus)
	require.NoError(t, err)

	_, err = s.Search(ctx, "blood", 0)
	assert.ErrorIs(t, err, ErrInvalidK)
}

func TestSearchTiesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s, err := newManager("").Create(ctx, t.TempDir(), []string{"ab", "ba", "zz"})
	require.NoError(t, err)

	hits, err := s.Search(ctx, "ab", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"ab", "ba", "zz"}, []string{hits[0].Text, hits[1].Text, hits[2].Text})
}

func TestCreateRejectsEmptyInput(t *testing.T) {
	_, err := newManager("").Create(context.Background(), t.TempDir(), []string{"", "  \n"})
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestLoadMissingPath(t *testing.T) {
	_, err := newManager("").Load(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadRejectsOtherEmbeddingModel(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir()
	_, err := newManager("letters-v1").Create(ctx, path, corpus)
	require.NoError(t, err)

	_, err = newManager("letters-v2").Load(ctx, path)
	assert.ErrorIs(t, err, ErrIncompatibleFormat)
}

func TestLoadRejectsForeignFile(t *testing.T) {
	path := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(path, indexFileName), []byte("not sqlite at all"), 0o600))

	_, err := newManager("").Load(context.Background(), path)
	assert.Error(t, err)
}

func TestAddRequiresSave(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir()
	m := newManager("")
	s, err := m.Create(ctx, path, corpus[:1])
	require.NoError(t, err)

	require.NoError(t, s.Add(ctx, corpus[1:]))
	reloaded, err := m.Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.Len())

	require.NoError(t, s.Save(ctx))
	reloaded, err = m.Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, len(corpus), reloaded.Len())
}

func TestAppendConcurrentWritersSerialized(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store")
	m := newManager("")

	var wg sync.WaitGroup
	for _, text := range corpus {
		wg.Add(1)
		go func(text string) {
			defer wg.Done()
			_, err := m.Append(ctx, path, []string{text})
			assert.NoError(t, err)
		}(text)
	}
	wg.Wait()

	s, err := m.Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, len(corpus), s.Len())
}

func TestSimilaritySearchDocuments(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir()
	m := newManager("")
	_, err := m.Create(ctx, path, corpus)
	require.NoError(t, err)

	vs, err := m.Open(ctx, path)
	require.NoError(t, err)
	docs, err := vs.SimilaritySearch(ctx, "kidneys filter waste", 1)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "kidneys filter waste", docs[0].PageContent)
	assert.Equal(t, path, docs[0].Metadata["store"])
}
