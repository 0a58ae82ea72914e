package gitfs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func trainingsSettings(root string) domain.SourceSettings {
	return domain.SourceSettings{
		Type:       "trainings",
		LocalPath:  root,
		Extensions: []string{".adoc"},
		Markers:    []string{"_EN", "-EN"},
		Whitelist:  []string{"content"},
		Blacklist:  []string{"drafts"},
	}
}

func TestSelector_Accepts(t *testing.T) {
	s := Selector{
		Extensions: []string{".adoc"},
		Markers:    []string{"_EN", "-EN"},
		Whitelist:  []string{"content"},
		Blacklist:  []string{"drafts"},
	}

	tests := []struct {
		path string
		want bool
	}{
		{"content/intro_EN.adoc", true},
		{"content/views/list-EN.adoc", true},
		{"content/intro_RU.adoc", false},
		{"content/intro_EN.md", false},
		{"other/intro_EN.adoc", false},
		{"content/drafts/intro_EN.adoc", false},
		{"contents/intro_EN.adoc", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Accepts(tt.path))
		})
	}
}

func TestSelector_EmptyWhitelistAllowsAll(t *testing.T) {
	s := Selector{Blacklist: []string{"drafts"}}

	assert.True(t, s.Accepts("anything/at/all.txt"))
	assert.False(t, s.Accepts("drafts/x.txt"))
}

func TestNew_RequiresLocalPath(t *testing.T) {
	_, err := New(domain.SourceSettings{Type: "trainings"})
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestLoader_List(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "content/b/lesson_EN.adoc", "b")
	writeFile(t, root, "content/a/lesson_EN.adoc", "a")
	writeFile(t, root, "content/a/lesson_DE.adoc", "de")
	writeFile(t, root, "content/drafts/wip_EN.adoc", "wip")
	writeFile(t, root, ".git/content/x_EN.adoc", "git internals")

	l, err := New(trainingsSettings(root))
	require.NoError(t, err)

	sources, err := l.List(context.Background(), zap.NewNop())

	require.NoError(t, err)
	assert.Equal(t, []string{"content/a/lesson_EN.adoc", "content/b/lesson_EN.adoc"}, sources)
}

func TestLoader_List_MissingRoot(t *testing.T) {
	l, err := New(trainingsSettings(filepath.Join(t.TempDir(), "nope")))
	require.NoError(t, err)

	_, err = l.List(context.Background(), zap.NewNop())

	assert.Error(t, err)
}

func TestLoader_Load(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "content/lesson_EN.adoc", "= Lesson\n\nBody.")

	l, err := New(trainingsSettings(root))
	require.NoError(t, err)

	doc, err := l.Load(context.Background(), zap.NewNop(), "content/lesson_EN.adoc")
	require.NoError(t, err)
	assert.Equal(t, "= Lesson\n\nBody.", doc.Text)

	_, err = l.Load(context.Background(), zap.NewNop(), "content/gone_EN.adoc")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = l.Load(context.Background(), zap.NewNop(), "../outside.adoc")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

type recordedCommand struct {
	name string
	args []string
}

func TestLoader_Prepare(t *testing.T) {
	t.Run("no git url is a no-op", func(t *testing.T) {
		called := false
		l, err := New(trainingsSettings(t.TempDir()), WithCommandRunner(func(context.Context, string, ...string) ([]byte, error) {
			called = true
			return nil, nil
		}))
		require.NoError(t, err)

		require.NoError(t, l.Prepare(context.Background(), zap.NewNop()))
		assert.False(t, called)
	})

	t.Run("clones when checkout is missing, then pulls", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "repo")
		cfg := trainingsSettings(root)
		cfg.GitURL = "https://example.com/trainings.git"

		var cmds []recordedCommand
		l, err := New(cfg, WithPullInterval(0), WithCommandRunner(func(_ context.Context, name string, args ...string) ([]byte, error) {
			cmds = append(cmds, recordedCommand{name, args})
			if args[0] == "clone" {
				require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
			}
			return nil, nil
		}))
		require.NoError(t, err)

		require.NoError(t, l.Prepare(context.Background(), zap.NewNop()))
		require.NoError(t, l.Prepare(context.Background(), zap.NewNop()))

		require.Len(t, cmds, 2)
		assert.Equal(t, []string{"clone", cfg.GitURL, root}, cmds[0].args)
		assert.Equal(t, []string{"-C", root, "pull", "--ff-only"}, cmds[1].args)
	})

	t.Run("pull interval suppresses repeated pulls", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
		cfg := trainingsSettings(root)
		cfg.GitURL = "https://example.com/trainings.git"

		calls := 0
		l, err := New(cfg, WithCommandRunner(func(context.Context, string, ...string) ([]byte, error) {
			calls++
			return nil, nil
		}))
		require.NoError(t, err)

		require.NoError(t, l.Prepare(context.Background(), zap.NewNop()))
		require.NoError(t, l.Prepare(context.Background(), zap.NewNop()))
		assert.Equal(t, 1, calls)
	})

	t.Run("command failure carries output", func(t *testing.T) {
		cfg := trainingsSettings(t.TempDir())
		cfg.GitURL = "https://example.com/trainings.git"
		l, err := New(cfg, WithCommandRunner(func(context.Context, string, ...string) ([]byte, error) {
			return []byte("fatal: repository not found\n"), errors.New("exit status 128")
		}))
		require.NoError(t, err)

		err = l.Prepare(context.Background(), zap.NewNop())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "repository not found")
	})
}

func TestLoader_Watch(t *testing.T) {
	t.Run("emits selected files once per burst", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(root, "content"), 0o755))

		l, err := New(trainingsSettings(root), WithDebounce(50*time.Millisecond))
		require.NoError(t, err)
		defer l.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		ids, err := l.Watch(ctx, zap.NewNop())
		require.NoError(t, err)

		go func() {
			time.Sleep(20 * time.Millisecond)
			dir := filepath.Join(root, "content")
			_ = os.WriteFile(filepath.Join(dir, "new_EN.adoc"), []byte("one"), 0o644)
			_ = os.WriteFile(filepath.Join(dir, "new_EN.adoc"), []byte("two"), 0o644)
			_ = os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0o644)
		}()

		select {
		case id := <-ids:
			assert.Equal(t, "content/new_EN.adoc", id)
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for change")
		}

		select {
		case id := <-ids:
			t.Fatalf("unexpected second id %q", id)
		case <-time.After(200 * time.Millisecond):
		}
	})

	t.Run("closes channel when context is cancelled", func(t *testing.T) {
		l, err := New(trainingsSettings(t.TempDir()))
		require.NoError(t, err)
		defer l.Close()

		ctx, cancel := context.WithCancel(context.Background())
		ids, err := l.Watch(ctx, zap.NewNop())
		require.NoError(t, err)
		cancel()

		select {
		case _, ok := <-ids:
			assert.False(t, ok)
		case <-time.After(time.Second):
			t.Fatal("channel did not close after cancellation")
		}
	})

	t.Run("fails for missing root", func(t *testing.T) {
		l, err := New(trainingsSettings(filepath.Join(t.TempDir(), "nope")))
		require.NoError(t, err)

		ids, err := l.Watch(context.Background(), zap.NewNop())
		assert.Error(t, err)
		assert.Nil(t, ids)
	})

	t.Run("fails after close", func(t *testing.T) {
		l, err := New(trainingsSettings(t.TempDir()))
		require.NoError(t, err)
		require.NoError(t, l.Close())

		_, err = l.Watch(context.Background(), zap.NewNop())
		assert.ErrorIs(t, err, ErrClosed)
	})
}

func TestHandleEvent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "content/lesson_EN.adoc", "x")
	writeFile(t, root, "content/.hidden_EN.adoc", "x")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "content", "sub"), 0o755))

	l, err := New(trainingsSettings(root))
	require.NoError(t, err)
	w, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	defer w.Close()

	tests := []struct {
		name   string
		path   string
		op     fsnotify.Op
		wantID string
		wantOK bool
	}{
		{"write selected file", "content/lesson_EN.adoc", fsnotify.Write, "content/lesson_EN.adoc", true},
		{"create selected file", "content/lesson_EN.adoc", fsnotify.Create, "content/lesson_EN.adoc", true},
		{"chmod ignored", "content/lesson_EN.adoc", fsnotify.Chmod, "", false},
		{"remove ignored", "content/gone_EN.adoc", fsnotify.Remove, "", false},
		{"hidden file ignored", "content/.hidden_EN.adoc", fsnotify.Write, "", false},
		{"directory ignored", "content/sub", fsnotify.Create, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := fsnotify.Event{Name: filepath.Join(root, filepath.FromSlash(tt.path)), Op: tt.op}
			id, ok := l.handleEvent(w, zap.NewNop(), event)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}
