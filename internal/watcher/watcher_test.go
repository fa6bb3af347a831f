package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTypeString(t *testing.T) {
	testCases := []struct {
		eventType EventType
		expected  string
	}{
		{EventTypeCreated, "created"},
		{EventTypeModified, "modified"},
		{EventTypeDeleted, "deleted"},
		{EventTypeRenamed, "renamed"},
		{EventType(9), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.eventType.String())
		})
	}
}

func TestEventTypeOf(t *testing.T) {
	assert.Equal(t, EventTypeCreated, eventTypeOf(fsnotify.Create))
	assert.Equal(t, EventTypeModified, eventTypeOf(fsnotify.Write))
	assert.Equal(t, EventTypeDeleted, eventTypeOf(fsnotify.Remove))
	assert.Equal(t, EventTypeRenamed, eventTypeOf(fsnotify.Rename))
	assert.Equal(t, EventTypeModified, eventTypeOf(fsnotify.Chmod))
}

func TestNewFileWatcher(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	assert.NotNil(t, watcher.watcher)
	assert.NotNil(t, watcher.debouncer)
	assert.Empty(t, watcher.filters)
	assert.Empty(t, watcher.handlers)

	watcher.AddFilter(ExtensionFilter(".md"))
	watcher.AddFilter(NoGitFilter)
	assert.Len(t, watcher.filters, 2)
	assert.True(t, watcher.accepts("src/intro.md"))
	assert.False(t, watcher.accepts("src/intro.txt"))
	assert.False(t, watcher.accepts("src/.git/x.md"))
}

func TestFileWatcherAddPath(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	assert.NoError(t, watcher.AddPath(t.TempDir()))
	assert.Error(t, watcher.AddPath("/non/existent/path"))
	assert.Error(t, watcher.AddPath(" "))
}

func TestFileWatcherAddRecursive(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src", "combat"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "book"), 0o755))

	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	var skipped []string
	err = watcher.AddRecursive(root, func(path string) bool {
		if filepath.Base(path) == "book" {
			skipped = append(skipped, path)
			return true
		}
		return false
	})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "book")}, skipped)
	assert.ElementsMatch(t,
		[]string{root, filepath.Join(root, "src"), filepath.Join(root, "src", "combat")},
		watcher.watcher.WatchList(),
	)

	assert.Error(t, watcher.AddRecursive(filepath.Join(root, "missing"), nil))
}

func TestFileWatcherStartStop(t *testing.T) {
	dir := t.TempDir()

	watcher, err := NewFileWatcher(50*time.Millisecond, nil)
	require.NoError(t, err)
	require.NoError(t, watcher.AddPath(dir))
	watcher.AddFilter(ExtensionFilter(".md"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var received []ChangeEvent
	watcher.AddHandler(func(events []ChangeEvent) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, events...)
		return nil
	})

	require.NoError(t, watcher.Start(ctx))
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chapter.md"), []byte("[[1D6]]"), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) > 0
	}, 2*time.Second, 20*time.Millisecond)

	mu.Lock()
	for _, event := range received {
		assert.Equal(t, ".md", filepath.Ext(event.Path))
	}
	mu.Unlock()

	cancel()
	assert.NoError(t, watcher.Stop())
}

func TestFileWatcherWatchesNewDirectories(t *testing.T) {
	root := t.TempDir()

	watcher, err := NewFileWatcher(30*time.Millisecond, nil)
	require.NoError(t, err)
	require.NoError(t, watcher.AddRecursive(root, func(path string) bool {
		return filepath.Base(path) == "book"
	}))
	watcher.AddFilter(ExtensionFilter(".md"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	seen := make(map[string]bool)
	watcher.AddHandler(func(events []ChangeEvent) error {
		mu.Lock()
		defer mu.Unlock()
		for _, event := range events {
			seen[event.Path] = true
		}
		return nil
	})

	require.NoError(t, watcher.Start(ctx))
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "book"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "book", "out.md"), []byte("x"), 0o644))

	nested := filepath.Join(root, "rules", "combat")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	chapter := filepath.Join(nested, "grapple.md")
	require.NoError(t, os.WriteFile(chapter, []byte("[[1D4]]"), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seen[chapter]
	}, 2*time.Second, 20*time.Millisecond)

	later := filepath.Join(nested, "shove.md")
	require.NoError(t, os.WriteFile(later, []byte("[[1D6]]"), 0o644))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seen[later]
	}, 2*time.Second, 20*time.Millisecond)

	mu.Lock()
	assert.False(t, seen[filepath.Join(root, "book", "out.md")])
	mu.Unlock()

	cancel()
	assert.NoError(t, watcher.Stop())
}

func TestDebouncer(t *testing.T) {
	debouncer := newDebouncer(30 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go debouncer.start(ctx)

	debouncer.send(ChangeEvent{Type: EventTypeCreated, Path: "b.md"})
	debouncer.send(ChangeEvent{Type: EventTypeModified, Path: "a.md"})
	debouncer.send(ChangeEvent{Type: EventTypeModified, Path: "b.md"})

	select {
	case events := <-debouncer.output:
		require.Len(t, events, 2)
		assert.Equal(t, "a.md", events[0].Path)
		assert.Equal(t, "b.md", events[1].Path)
		assert.Equal(t, EventTypeModified, events[1].Type)
	case <-time.After(2 * time.Second):
		t.Fatal("debouncer did not flush")
	}
}

func TestDebouncerFlushEmpty(t *testing.T) {
	debouncer := newDebouncer(time.Millisecond)
	debouncer.flush()
	assert.Empty(t, debouncer.output)
	debouncer.stop()
}

func TestExtensionFilter(t *testing.T) {
	filter := ExtensionFilter(".md", ".markdown")

	testCases := []struct {
		path     string
		expected bool
	}{
		{"intro.md", true},
		{"INTRO.MD", true},
		{"notes.markdown", true},
		{"book.toml", false},
		{"md", false},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.expected, filter(tc.path))
		})
	}
}

func TestNoGitFilter(t *testing.T) {
	testCases := []struct {
		path     string
		expected bool
	}{
		{"src/intro.md", true},
		{".git/config", false},
		{"src/.git/test.md", false},
		{"intro.md", true},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.expected, NoGitFilter(tc.path))
		})
	}
}

func TestNoEditorTempFilter(t *testing.T) {
	assert.True(t, NoEditorTempFilter("src/intro.md"))
	assert.False(t, NoEditorTempFilter("src/.#intro.md"))
	assert.False(t, NoEditorTempFilter("src/intro.md~"))
	assert.False(t, NoEditorTempFilter("src/.intro.md.swp"))
}
