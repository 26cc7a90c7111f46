package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource map[string]Simplification

func (s stubSource) DynamicPrompt(id string) (Simplification, bool) {
	p, ok := s[id]
	return p, ok
}

func TestTemplateRequiredSlots(t *testing.T) {
	tmpl := MustTemplate("t", "Q: {{.Question}} ({{.Note}})", "Question")

	_, err := tmpl.Render(map[string]any{"Question": "  ", "Note": ""})
	assert.ErrorIs(t, err, ErrMissingSlot)

	_, err = tmpl.Render(map[string]any{"Note": "x"})
	assert.ErrorIs(t, err, ErrMissingSlot)

	out, err := tmpl.Render(map[string]any{"Question": "why?", "Note": ""})
	require.NoError(t, err)
	assert.Equal(t, "Q: why? ()", out)
}

func TestGroundedVariableChunks(t *testing.T) {
	out, err := Grounded("ما هو القلب؟", []string{"c-one", "c-two"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "<s> [INST] "))
	assert.True(t, strings.HasSuffix(out, " [/INST] Answer: "))
	assert.Contains(t, out, "these 2 chunks")
	assert.Contains(t, out, "Chunk 1:\nc-one")
	assert.Contains(t, out, "Chunk 2:\nc-two")
	assert.NotContains(t, out, "Chunk 3")
	assert.Contains(t, out, "User's question: ما هو القلب؟")
}

func TestBuilderSelect(t *testing.T) {
	b := NewBuilder(stubSource{"Biology": {Name: "Biology", System: "<s>[INST] bio"}})

	assert.Equal(t, "Science", b.Select("Science").Name)
	assert.Equal(t, "Math", b.Select("Math_Algebra").Name)
	assert.Equal(t, "Biology", b.Select("Biology").Name)
	assert.Equal(t, GeneralTopic, b.Select("").Name)
	assert.Equal(t, GeneralTopic, b.Select("Astrology").Name)

	_, err := b.Require("Astrology")
	assert.ErrorIs(t, err, ErrUnsupported)
	s, err := b.Require(GeneralTopic)
	require.NoError(t, err)
	assert.Equal(t, GeneralTopic, s.Name)
}

func TestBuildAppendsInterestsOnlyWhenExpected(t *testing.T) {
	b := NewBuilder(stubSource{"Plain": {Name: "Plain", System: "SYS"}})
	history := []Turn{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello"}}

	science, err := b.Build("Science", history, "explain cells", []string{"football", "cars"})
	require.NoError(t, err)
	assert.Contains(t, science, "<s> [INST] explain cells [/INST]User interest: [football, cars][/INST]")
	assert.Contains(t, science, simplifyDirective+"[{user hi} {assistant hello}]")

	plain, err := b.Build("Plain", nil, "explain cells", []string{"football"})
	require.NoError(t, err)
	assert.Equal(t, "SYS"+simplifyDirective+"[]<s> [INST] explain cells [/INST][/INST]", plain)
	assert.NotContains(t, plain, "User interest")
}

func TestBuildRejectsEmptyQuestion(t *testing.T) {
	_, err := NewBuilder(nil).Build("Science", nil, "   ", nil)
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestClassifierPrompt(t *testing.T) {
	out, err := Classifier(
		[]ClassifierTopic{{ID: "Biology", Definition: " living things \n"}, {ID: "History", Definition: "past events"}},
		[]ClassifierExample{{TopicID: "Biology", Input: "Input: cells"}, {TopicID: "History", Input: "Input: kings"}},
		"DOC",
	)
	require.NoError(t, err)

	assert.Contains(t, out, "following topics: Biology, History.")
	assert.Contains(t, out, "For Biology: living things\n")
	assert.Contains(t, out, "<<Example1>>:\nInput: cells\nOutput: Biology")
	assert.Contains(t, out, "<<Example2>>:\nInput: kings\nOutput: History")
	assert.Contains(t, out, `e.g., "Biology"`)
	assert.Contains(t, out, "classify it as '"+GeneralTopic+"'")
	assert.True(t, strings.HasSuffix(out, "accordingly!DOC[/INST]"))
}

func TestLearningPlan(t *testing.T) {
	system, user, err := LearningPlan("نص الدرس")
	require.NoError(t, err)
	assert.Contains(t, system, "curriculum designer")
	assert.Contains(t, user, "نص الدرس")

	_, _, err = LearningPlan("")
	assert.ErrorIs(t, err, ErrMissingSlot)
}
