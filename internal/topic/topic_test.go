package topic

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-teacher/internal/prompt"
)

func writeTopic(t *testing.T, base, name string, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(base, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for f, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte(content), 0o644))
	}
	return dir
}

func fullTopic(def string) map[string]string {
	return map[string]string{
		definitionFile:   def,
		instructionsFile: "Explain simply.",
		examplesFile:     "Input: first complex text\nOutput: simple one\n\nInput: second complex text\nUser Interest: [cars]\nOutput: simple two\n\n",
	}
}

func newTestRegistry(t *testing.T) (*Registry, string) {
	t.Helper()
	base := t.TempDir()
	writeTopic(t, base, "Biology", fullTopic("living things"))
	writeTopic(t, base, "History", fullTopic("past events"))
	writeTopic(t, base, "Broken", map[string]string{definitionFile: "no examples"})
	writeTopic(t, base, "__pycache__", fullTopic("cache"))
	require.NoError(t, os.WriteFile(filepath.Join(base, "notes.txt"), []byte("x"), 0o644))

	r := NewRegistry(base, nil)
	require.NoError(t, r.Refresh())
	return r, base
}

type stubLLM struct {
	reply  string
	err    error
	prompt string
}

func (s *stubLLM) Generate(_ context.Context, p string) (string, error) {
	s.prompt = p
	return s.reply, s.err
}

func TestRegistryRefresh(t *testing.T) {
	r, _ := newTestRegistry(t)
	assert.Equal(t, []string{"Biology", "History"}, r.Names())

	bio, ok := r.Get("Biology")
	require.True(t, ok)
	assert.Equal(t, "<s>[INST] Explain simply.\n"+bio.Examples, bio.SystemPrompt())
	assert.True(t, bio.InterestAware())
}

func TestRegistryMatchLabelPrefersLongest(t *testing.T) {
	base := t.TempDir()
	writeTopic(t, base, "Math", fullTopic("numbers"))
	writeTopic(t, base, "Math_Advanced", fullTopic("calculus"))
	r := NewRegistry(base, nil)
	require.NoError(t, r.Refresh())

	got, ok := r.MatchLabel("Math_Advanced")
	require.True(t, ok)
	assert.Equal(t, "Math_Advanced", got.ID)

	got, ok = r.MatchLabel("Topic: Math")
	require.True(t, ok)
	assert.Equal(t, "Math", got.ID)

	_, ok = r.MatchLabel("Chemistry")
	assert.False(t, ok)
}

func TestRegistryCreate(t *testing.T) {
	r, base := newTestRegistry(t)

	created, err := r.Create(NewTopic{
		Name:         "Physics!! 101",
		Definition:   "forces",
		Instructions: "be brief",
		Examples:     []Example{{Input: "F=ma", Output: "push harder"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Physics 101", created.ID)
	assert.DirExists(t, filepath.Join(base, "Physics 101", "References"))

	raw, err := os.ReadFile(filepath.Join(base, "Physics 101", examplesFile))
	require.NoError(t, err)
	assert.Equal(t, "Input: F=ma\nOutput: push harder\n\n", string(raw))

	_, visible := r.Get("Physics 101")
	assert.False(t, visible)
	require.NoError(t, r.Refresh())
	_, visible = r.Get("Physics 101")
	assert.True(t, visible)

	_, err = r.Create(NewTopic{Name: "Biology"})
	assert.ErrorIs(t, err, ErrTopicExists)
	_, err = r.Create(NewTopic{Name: "***"})
	assert.ErrorIs(t, err, ErrInvalidTopic)
}

func TestExtractExampleInputs(t *testing.T) {
	got := ExtractExampleInputs(fullTopic("")[examplesFile])
	assert.Equal(t, []string{"Input: first complex text", "Input: second complex text"}, got)

	assert.Empty(t, ExtractExampleInputs("no markers here"))
	assert.Empty(t, ExtractExampleInputs("Input without an end"))
}

func TestClassifyKnownTopic(t *testing.T) {
	r, _ := newTestRegistry(t)
	bio, _ := r.Get("Biology")
	require.NoError(t, os.MkdirAll(bio.ReferencePath(), 0o755))

	llm := &stubLLM{reply: " Biology.\n"}
	c := NewClassifier(r, llm, "RAG_DB/General_Reference-VS", rand.New(rand.NewSource(1)), nil)

	res, err := c.Classify(context.Background(), "cells and tissues")
	require.NoError(t, err)
	assert.Equal(t, "Biology", res.TopicID)
	assert.Equal(t, bio.ReferencePath(), res.ReferencePath)

	assert.Contains(t, llm.prompt, "following topics: Biology, History.")
	assert.Contains(t, llm.prompt, "Output: Biology")
	assert.Contains(t, llm.prompt, "accordingly!cells and tissues[/INST]")
}

func TestClassifyUnknownLabelFallsBack(t *testing.T) {
	r, _ := newTestRegistry(t)
	for _, reply := range []string{"Astrology", "", "Biology and History", "   ...  "} {
		c := NewClassifier(r, &stubLLM{reply: reply}, "RAG_DB/General_Reference-VS", rand.New(rand.NewSource(1)), nil)
		res, err := c.Classify(context.Background(), "text")
		require.NoError(t, err)
		assert.Equal(t, prompt.GeneralTopic, res.TopicID, reply)
		assert.Equal(t, "RAG_DB/General_Reference-VS", res.ReferencePath)
	}
}

func TestClassifyTopicWithoutReferenceStore(t *testing.T) {
	r, _ := newTestRegistry(t)
	c := NewClassifier(r, &stubLLM{reply: "History"}, "fallback", rand.New(rand.NewSource(1)), nil)

	res, err := c.Classify(context.Background(), "kings")
	require.NoError(t, err)
	assert.Equal(t, "History", res.TopicID)
	assert.Empty(t, res.ReferencePath)
}

func TestClassifyUpstreamError(t *testing.T) {
	r, _ := newTestRegistry(t)
	boom := errors.New("boom")
	c := NewClassifier(r, &stubLLM{err: boom}, "fallback", nil, nil)

	_, err := c.Classify(context.Background(), "text")
	assert.ErrorIs(t, err, boom)
}

func TestClassifyEmptyRegistry(t *testing.T) {
	r := NewRegistry(t.TempDir(), nil)
	require.NoError(t, r.Refresh())
	llm := &stubLLM{reply: "Biology"}
	c := NewClassifier(r, llm, "fallback", nil, nil)

	res, err := c.Classify(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, prompt.GeneralTopic, res.TopicID)
	assert.Empty(t, llm.prompt)
}

func TestBuildPromptDeterministicWithSeed(t *testing.T) {
	r, _ := newTestRegistry(t)
	a := NewClassifier(r, nil, "", rand.New(rand.NewSource(7)), nil)
	b := NewClassifier(r, nil, "", rand.New(rand.NewSource(7)), nil)

	pa, err := a.BuildPrompt("doc")
	require.NoError(t, err)
	pb, err := b.BuildPrompt("doc")
	require.NoError(t, err)
	assert.Equal(t, pa, pb)
	assert.Contains(t, pa, "<<Example2>>")
	assert.NotContains(t, pa, "<<Example3>>")
}
