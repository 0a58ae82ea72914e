package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
[store]
backend = "pgvector"
dimensions = 384

[reranker]
timeout = "5s"
enabled = false

[checks]
parallelism = 8
timeout = 90

[sources.docs]
base_url = "https://docs.example.com"
requests_per_second = 2.5

[sources.trainings]
loader = "gitfs"
whitelist = ["core", "ui"]
`

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0600))
}

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestNewConfigStore_WithNestedDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	store, err := NewConfigStore(dir)

	require.NoError(t, err)
	assert.DirExists(t, dir)
	assert.Equal(t, filepath.Join(dir, "config.toml"), store.Path())
}

func TestNewConfigStore_InvalidTOML(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, "[store\nbackend = ")

	_, err := NewConfigStore(tmpDir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing")
}

func TestConfigStore_FlattenedKeys(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, sampleConfig)

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "pgvector", store.GetString("store.backend"))
	assert.Equal(t, 384, store.GetInt("store.dimensions"))
	assert.Equal(t, "https://docs.example.com", store.GetString("sources.docs.base_url"))
	assert.InDelta(t, 2.5, store.GetFloat("sources.docs.requests_per_second"), 1e-9)
	assert.Equal(t, []string{"core", "ui"}, store.GetStringSlice("sources.trainings.whitelist"))

	enabled, ok := store.Get("reranker.enabled")
	assert.True(t, ok)
	assert.Equal(t, false, enabled)
}

func TestConfigStore_GetDuration(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, sampleConfig)
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, store.GetDuration("reranker.timeout"))
	assert.Equal(t, 90*time.Second, store.GetDuration("checks.timeout"))
	assert.Zero(t, store.GetDuration("missing"))

}

func TestConfigStore_Keys(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, sampleConfig)
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, []string{"docs", "trainings"}, store.Keys("sources"))
	assert.Equal(t, []string{"backend", "dimensions"}, store.Keys("store"))
	assert.Empty(t, store.Keys("nothing"))
}

func TestConfigStore_SaveReload_PreservesTables(t *testing.T) {
	tmpDir := t.TempDir()
	store1, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store1.Set("store.backend", "sqlite"))
	require.NoError(t, store1.Set("sources.docs.base_url", "https://docs.example.com"))
	require.NoError(t, store1.Set("sources.docs.limit", 10))
	require.NoError(t, store1.Save())

	raw, err := os.ReadFile(store1.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[sources.docs]")

	store2, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", store2.GetString("store.backend"))
	assert.Equal(t, "https://docs.example.com", store2.GetString("sources.docs.base_url"))
	assert.Equal(t, 10, store2.GetInt("sources.docs.limit"))
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("k", "v"))
	require.NoError(t, store.Save())

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_Load_PicksUpEdits(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Empty(t, store.Keys("sources"))

	writeConfig(t, tmpDir, sampleConfig)
	require.NoError(t, store.Load())

	assert.Equal(t, []string{"docs", "trainings"}, store.Keys("sources"))
	assert.Equal(t, "gitfs", store.GetString("sources.trainings.loader"))
}

func TestConfigStore_Load_EmptyFile(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, "")

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	assert.Empty(t, store.Keys("store"))
}

func TestNest(t *testing.T) {
	got := nest(map[string]any{
		"a.b.c": 1,
		"a.d":   "x",
		"e":     true,
	})

	assert.Equal(t, map[string]any{
		"a": map[string]any{
			"b": map[string]any{"c": 1},
			"d": "x",
		},
		"e": true,
	}, got)
}
