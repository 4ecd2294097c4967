package devserver

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_Scan(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules", "react"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "node_modules", "react", "index.js"), []byte(""), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.js"), []byte("1"), 0o644))

	w := NewWatcher([]string{dir, dir, filepath.Join(dir, "missing")}, time.Second, discardLogger())
	stamps := w.scan()

	assert.Len(t, stamps, 1)
	assert.Contains(t, stamps, filepath.Join(dir, "index.js"))
}

func TestDiff(t *testing.T) {
	now := time.Now()
	prev := map[string]fileStamp{"a": {1, now}, "b": {1, now}}

	_, changed := diff(prev, map[string]fileStamp{"a": {1, now}, "b": {1, now}})
	assert.False(t, changed)

	p, changed := diff(prev, map[string]fileStamp{"a": {2, now}, "b": {1, now}})
	assert.True(t, changed)
	assert.Equal(t, "a", p)

	p, changed = diff(prev, map[string]fileStamp{"a": {1, now}})
	assert.True(t, changed)
	assert.Equal(t, "b", p)

	p, changed = diff(prev, map[string]fileStamp{"a": {1, now}, "b": {1, now}, "c": {0, now}})
	assert.True(t, changed)
	assert.Equal(t, "c", p)
}

func TestWatcher_Run(t *testing.T) {
	dir := t.TempDir()
	w := NewWatcher([]string{dir}, 10*time.Millisecond, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes := make(chan string, 1)
	go w.Run(ctx, func(changed string) {
		select {
		case changes <- changed:
		default:
		}
	})

	// Give Run time to take its baseline scan.
	time.Sleep(50 * time.Millisecond)
	file := filepath.Join(dir, "button.md")
	require.NoError(t, os.WriteFile(file, []byte("# Button"), 0o644))

	select {
	case got := <-changes:
		assert.Equal(t, file, got)
	case <-time.After(5 * time.Second):
		t.Fatal("change not reported")
	}
}
