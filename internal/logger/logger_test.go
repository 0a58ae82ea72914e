package logger

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_WhenVerbose(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Verbose: true, Output: &buf})

	log.Debug("test message", zap.String("arg", "x"))

	assert.Contains(t, buf.String(), "DEBUG")
	assert.Contains(t, buf.String(), "test message")
	assert.Contains(t, buf.String(), `"arg": "x"`)
}

func TestNew_WhenNotVerbose(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Output: &buf})

	log.Debug("hidden")
	log.Info("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{JSON: true, Output: &buf})

	log.Warn("careful", zap.Int("n", 3))

	assert.Contains(t, buf.String(), `"msg":"careful"`)
	assert.Contains(t, buf.String(), `"n":3`)
}

func TestSection(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Verbose: true, Output: &buf})

	Section(log, "Reranking")

	assert.Contains(t, buf.String(), "=== Reranking ===")
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))

	log := zap.NewExample()
	assert.Same(t, log, OrNop(log))
}

func TestWithTrace_RecordsDebugAndAbove(t *testing.T) {
	var buf bytes.Buffer
	base := New(Options{Output: &buf})

	log, trace := WithTrace(base)
	log.Debug("found documents", zap.Int("count", 2))
	log.With(zap.String("tool", "docs")).Warn("reranking failed")

	lines := trace.Lines()
	require.Len(t, lines, 2)
	assert.Regexp(t, `^\d{2}:\d{2}:\d{2} found documents count=2$`, lines[0])
	assert.Regexp(t, `^\d{2}:\d{2}:\d{2} reranking failed tool=docs$`, lines[1])

	// Base logger still filters by its own level.
	assert.NotContains(t, buf.String(), "found documents")
	assert.Contains(t, buf.String(), "reranking failed")
}

func TestWithTrace_NilBase(t *testing.T) {
	log, trace := WithTrace(nil)
	log.Info("hello")

	require.Len(t, trace.Lines(), 1)
	assert.Contains(t, trace.Lines()[0], "hello")
}

func TestWithTrace_ConcurrentWriters(t *testing.T) {
	log, trace := WithTrace(Nop())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			log.Info("worker", zap.Int("n", n))
		}(i)
	}
	wg.Wait()

	assert.Len(t, trace.Lines(), 20)
}
