package assets

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/anima-gfx/engine/assets/loaders"
	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	core.SetLogOutput(io.Discard)
	os.Exit(m.Run())
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newManager(t *testing.T, queueSize int) (*AssetManager, string) {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "shaders", "quad.wgsl"), "// quad")
	writeFile(t, filepath.Join(dir, "shaders", "mesh.wgsl"), "// mesh")
	writeFile(t, filepath.Join(dir, "textures", "notes.txt"), "ignored")

	am, err := NewAssetManager(queueSize)
	require.NoError(t, err)
	t.Cleanup(func() { am.Close() })
	require.NoError(t, am.Initialize(dir))
	return am, dir
}

func TestInitializeIndexesAssets(t *testing.T) {
	am, dir := newManager(t, 8)
	assert.Equal(t, 2, am.Len())

	shaders := am.Assets(loaders.ResourceTypeShader)
	require.Len(t, shaders, 2)
	assert.Equal(t, filepath.Join(dir, "shaders", "mesh.wgsl"), shaders[0].Path)
	assert.Equal(t, filepath.Join(dir, "shaders", "quad.wgsl"), shaders[1].Path)
	assert.Empty(t, am.Assets(loaders.ResourceTypeImage))
	// indexing is not a change
	assert.Empty(t, am.Poll())
}

func TestLoadAsset(t *testing.T) {
	am, dir := newManager(t, 8)
	res, err := am.LoadAsset(filepath.Join(dir, "shaders", "quad.wgsl"), nil)
	require.NoError(t, err)
	assert.Equal(t, "// quad", res.Data)
	assert.NoError(t, am.UnloadAsset(res))

	_, err = am.LoadAsset(filepath.Join(dir, "textures", "notes.txt"), nil)
	assert.Error(t, err)
}

func TestHandleEventQueuesChanges(t *testing.T) {
	am, dir := newManager(t, 8)
	quad := filepath.Join(dir, "shaders", "quad.wgsl")

	am.handleEvent(fsnotify.Event{Name: quad, Op: fsnotify.Write})
	am.handleEvent(fsnotify.Event{Name: quad, Op: fsnotify.Write})
	am.handleEvent(fsnotify.Event{Name: filepath.Join(dir, "textures", "notes.txt"), Op: fsnotify.Write})

	changes := am.Poll()
	require.Len(t, changes, 1)
	assert.Equal(t, Change{Path: quad, Type: loaders.ResourceTypeShader}, changes[0])
	assert.Empty(t, am.Poll())

	require.NoError(t, os.Remove(quad))
	am.handleEvent(fsnotify.Event{Name: quad, Op: fsnotify.Remove})
	changes = am.Poll()
	require.Len(t, changes, 1)
	assert.True(t, changes[0].Removed)
	assert.Equal(t, 1, am.Len())
}

func TestChangeQueueDropsOldest(t *testing.T) {
	am, dir := newManager(t, 2)
	for _, name := range []string{"a.wgsl", "b.wgsl", "c.wgsl"} {
		path := filepath.Join(dir, "shaders", name)
		writeFile(t, path, "//")
		am.handleEvent(fsnotify.Event{Name: path, Op: fsnotify.Create})
	}
	changes := am.Poll()
	require.Len(t, changes, 2)
	assert.Equal(t, filepath.Join(dir, "shaders", "b.wgsl"), changes[0].Path)
	assert.Equal(t, filepath.Join(dir, "shaders", "c.wgsl"), changes[1].Path)
}

func TestRunPicksUpWrites(t *testing.T) {
	am, dir := newManager(t, 8)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- am.Run(ctx) }()

	quad := filepath.Join(dir, "shaders", "quad.wgsl")
	writeFile(t, quad, "// edited")

	var seen []Change
	require.Eventually(t, func() bool {
		seen = append(seen, am.Poll()...)
		for _, c := range seen {
			if c.Path == quad && !c.Removed {
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.ErrorIs(t, am.Initialize(dir), ErrClosed)
}

func TestNewAssetManagerRejectsEmptyQueue(t *testing.T) {
	_, err := NewAssetManager(0)
	assert.Error(t, err)
}
