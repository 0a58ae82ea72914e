package params

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestDefault_ConfiguresBuiltInTools(t *testing.T) {
	p, err := Default()
	require.NoError(t, err)

	assert.Equal(t, []string{"documentation_retriever", "trainings_retriever", "uisamples_retriever"}, p.Keys("tools"))

	ts, err := p.ToolSettings("documentation_retriever", "docs")
	require.NoError(t, err)
	assert.Equal(t, 20, ts.TopK)
	assert.Equal(t, 5, ts.TopReranked)
	assert.InDelta(t, 0.5, ts.SimilarityThreshold, 1e-9)
	assert.Equal(t, domain.DefaultNoResultsMessage, ts.NoResultsMessage)
	assert.True(t, ts.Enabled)
}

func TestParse_MissingTopK(t *testing.T) {
	_, err := Parse([]byte(`
tools:
  documentation_retriever:
    similarityThreshold: 0.4
`))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfig)
	assert.Contains(t, err.Error(), "topK")
}

func TestParse_InvalidRegexRule(t *testing.T) {
	_, err := Parse([]byte(`
postRetrievalProcessor:
  rules:
    - name: broken
      require:
        regex: {field: text, pattern: "("}
`))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestParse_UnknownOperator(t *testing.T) {
	_, err := Parse([]byte(`
postRetrievalProcessor:
  rules:
    - require:
        startsWith: {field: text, value: x}
`))

	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("tools: [unclosed"))

	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestLoad_FileOverridesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tools:
  documentation_retriever:
    similarityThreshold: 0.3
    topK: 7
    enabled: false
    noResultsMessage: nothing here
`), 0600))

	p, err := Load(path)
	require.NoError(t, err)

	ts, err := p.ToolSettings("documentation_retriever", "docs")
	require.NoError(t, err)
	assert.Equal(t, 7, ts.TopK)
	assert.Equal(t, 7, ts.TopReranked)
	assert.False(t, ts.Enabled)
	assert.Equal(t, "nothing here", ts.NoResultsMessage)
}

func TestLoad_EmptyPathUsesDefault(t *testing.T) {
	p, err := Load("")
	require.NoError(t, err)
	assert.True(t, p.Has("tools.trainings_retriever.topK"))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestParseChecks(t *testing.T) {
	checks, err := ParseChecks([]byte(`
checks:
  - category: views
    question: How do I open a dialog?
    answer: Use the DialogWindows bean.
    expect:
      - contains: {field: answer, value: DialogWindows}
      - name: mentions bean
        require:
          regex: {field: answer, pattern: "\\bbean\\b", ignoreCase: true}
  - id: entity-1
    question: What is an entity?
`))
	require.NoError(t, err)
	require.Len(t, checks, 2)

	assert.Equal(t, "1", checks[0].ID)
	assert.Equal(t, "views", checks[0].Category)
	assert.Equal(t, "Use the DialogWindows bean.", checks[0].ReferenceAnswer)
	assert.Len(t, checks[0].Expect, 2)
	assert.Equal(t, "entity-1", checks[1].ID)
	assert.Empty(t, checks[1].Expect)
}

func TestParseChecks_MissingQuestion(t *testing.T) {
	_, err := ParseChecks([]byte(`
checks:
  - answer: orphan
`))
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestParseChecks_InvalidExpectation(t *testing.T) {
	_, err := ParseChecks([]byte(`
checks:
  - question: q
    expect:
      - contains: {field: nowhere, value: x}
`))
	assert.ErrorIs(t, err, domain.ErrConfig)
}
