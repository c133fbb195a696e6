package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/donutnomad/fieldnames/fieldnames"
	"github.com/donutnomad/fieldnames/plugin"
	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunner(t *testing.T) *devRunner {
	t.Helper()
	registry := plugin.NewRegistry()
	registry.MustRegister(fieldnames.NewGenerator())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	return newDevRunner(ctx, &DevOptions{Debounce: 10 * time.Millisecond}, registry, nil)
}

func TestDevRunner_HandleEvent(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "models.go")
	require.NoError(t, os.WriteFile(src, []byte("package models\n\n// @FieldNames\ntype User struct {\n\tName string\n}\n"), 0644))

	r := newTestRunner(t)
	r.handleEvent(fsnotify.Event{Name: src, Op: fsnotify.Write})

	out := filepath.Join(dir, "models_fieldnames.go")
	assert.Eventually(t, func() bool {
		data, err := os.ReadFile(out)
		return err == nil && strings.Contains(string(data), "func (User) Fields() [1]string")
	}, 5*time.Second, 20*time.Millisecond)
}

func TestDevRunner_IgnoredEvents(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "plain.go")
	broken := filepath.Join(dir, "broken.go")
	generated := filepath.Join(dir, "models_fieldnames.go")
	require.NoError(t, os.WriteFile(plain, []byte("package models\n\ntype Plain struct{}\n"), 0644))
	require.NoError(t, os.WriteFile(broken, []byte("package models\n\n// @FieldNames\ntype Broken struct {\n"), 0644))
	require.NoError(t, os.WriteFile(generated, []byte("package models\n\n// @FieldNames\ntype Gen struct{}\n"), 0644))

	r := newTestRunner(t)
	r.handleEvent(fsnotify.Event{Name: plain, Op: fsnotify.Write})
	r.handleEvent(fsnotify.Event{Name: broken, Op: fsnotify.Write})
	r.handleEvent(fsnotify.Event{Name: generated, Op: fsnotify.Write})
	r.handleEvent(fsnotify.Event{Name: filepath.Join(dir, "notes.txt"), Op: fsnotify.Create})
	r.handleEvent(fsnotify.Event{Name: plain, Op: fsnotify.Remove})

	r.mu.Lock()
	defer r.mu.Unlock()
	assert.Empty(t, r.pending)
}
