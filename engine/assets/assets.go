package assets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/anima-gfx/engine/assets/loaders"
	"github.com/spaghettifunk/anima-gfx/engine/containers"
	"github.com/spaghettifunk/anima-gfx/engine/core"
	"golang.org/x/exp/slices"
)

var ErrClosed = errors.New("asset manager already closed")

type AssetInfo struct {
	Path     string
	Type     loaders.ResourceType
	Modified time.Time
}

// Change is a file event the render goroutine picks up with Poll.
type Change struct {
	Path    string
	Type    loaders.ResourceType
	Removed bool
}

/**
 * @brief Indexes the asset directory and watches it for edits. The watcher
 * goroutine only records changes; the render goroutine drains them with Poll.
 */
type AssetManager struct {
	assets  map[string]AssetInfo
	loaders map[loaders.ResourceType]loaders.Loader

	mutex   sync.RWMutex
	pending *containers.RingQueue[Change]
	dropped int

	fsnotify *fsnotify.Watcher
	isClosed bool
}

// NewAssetManager creates a manager whose change queue holds queueSize entries.
func NewAssetManager(queueSize int) (*AssetManager, error) {
	if queueSize <= 0 {
		return nil, fmt.Errorf("invalid change queue size %d", queueSize)
	}
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	am := &AssetManager{
		assets:   make(map[string]AssetInfo),
		loaders:  make(map[loaders.ResourceType]loaders.Loader),
		pending:  containers.NewRingQueue[Change](queueSize),
		fsnotify: fsWatch,
	}
	// Register loaders
	am.registerLoader(loaders.ResourceTypeShader, &loaders.ShaderLoader{})
	am.registerLoader(loaders.ResourceTypeShaderBinary, &loaders.BinaryLoader{})
	am.registerLoader(loaders.ResourceTypeImage, &loaders.ImageLoader{})
	return am, nil
}

// Initialize indexes every known asset under assetsDir and watches all of
// its directories.
func (am *AssetManager) Initialize(assetsDir string) error {
	if am.closed() {
		return ErrClosed
	}
	if err := am.watchRecursive(filepath.Clean(assetsDir), false); err != nil {
		err = fmt.Errorf("failed to watch `%s`: %w", assetsDir, err)
		core.LogError("%s", err)
		return err
	}
	core.LogDebug("indexed %d assets under %s", am.Len(), assetsDir)
	return nil
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType loaders.ResourceType, loader loaders.Loader) {
	am.loaders[assetType] = loader
}

// LoadAsset reads an indexed asset with the loader for its type.
func (am *AssetManager) LoadAsset(path string, params interface{}) (*loaders.Resource, error) {
	path = filepath.Clean(path)
	am.mutex.RLock()
	asset, exists := am.assets[path]
	am.mutex.RUnlock()
	if !exists {
		return nil, fmt.Errorf("asset not found: %s", path)
	}
	loader, loaderExists := am.loaders[asset.Type]
	if !loaderExists {
		return nil, fmt.Errorf("no loader registered for asset type: %s", asset.Type)
	}
	return loader.Load(path, params)
}

func (am *AssetManager) UnloadAsset(res *loaders.Resource) error {
	if res == nil {
		return nil
	}
	loader, ok := am.loaders[res.Type]
	if !ok {
		return fmt.Errorf("no loader registered for asset type: %s", res.Type)
	}
	return loader.Unload(res)
}

// Assets lists the indexed assets of type t ordered by path.
func (am *AssetManager) Assets(t loaders.ResourceType) []AssetInfo {
	am.mutex.RLock()
	out := make([]AssetInfo, 0, len(am.assets))
	for _, a := range am.assets {
		if a.Type == t {
			out = append(out, a)
		}
	}
	am.mutex.RUnlock()
	slices.SortFunc(out, func(a, b AssetInfo) int {
		switch {
		case a.Path < b.Path:
			return -1
		case a.Path > b.Path:
			return 1
		}
		return 0
	})
	return out
}

func (am *AssetManager) Len() int {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return len(am.assets)
}

// Run forwards file system events until ctx is done or the watcher closes.
func (am *AssetManager) Run(ctx context.Context) error {
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return nil
			}
			am.handleEvent(e)

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return nil
			}
			core.LogError("%s", err)

		case <-ctx.Done():
			return am.Close()
		}
	}
}

// Poll drains the changes recorded since the last call, oldest first.
func (am *AssetManager) Poll() []Change {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	if am.dropped > 0 {
		core.LogWarn("change queue overflowed, %d changes dropped", am.dropped)
		am.dropped = 0
	}
	var out []Change
	for !am.pending.IsEmpty() {
		c, _ := am.pending.Dequeue()
		out = append(out, c)
	}
	return out
}

func (am *AssetManager) Close() error {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return nil
	}
	am.isClosed = true
	am.mutex.Unlock()
	return am.fsnotify.Close()
}

func (am *AssetManager) closed() bool {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return am.isClosed
}

func (am *AssetManager) handleEvent(e fsnotify.Event) {
	name := filepath.Clean(e.Name)
	s, err := os.Stat(name)
	if err == nil && s.IsDir() {
		if e.Op&fsnotify.Create != 0 {
			if err := am.watchRecursive(name, false); err != nil {
				core.LogWarn("failed to watch `%s`: %s", name, err.Error())
			}
		}
		return
	}
	// Handle create or modify events
	if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
		if am.handleFileEvent(name) {
			am.enqueue(Change{Path: name, Type: loaders.TypeOf(name)})
		}
	}
	if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		if t, ok := am.removeAsset(name); ok {
			am.enqueue(Change{Path: name, Type: t, Removed: true})
		}
		// can't stat a deleted path; dropping an unknown watch is harmless
		_ = am.fsnotify.Remove(name)
	}
}

func (am *AssetManager) enqueue(c Change) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	// editors write a file several times per save
	if containers.Contains(am.pending, c) {
		return
	}
	if am.pending.IsFull() {
		am.pending.Dequeue()
		am.dropped++
	}
	am.pending.Enqueue(c)
}

// watchRecursive adds all directories under the given one to the watch list
// and indexes the files it finds.
func (am *AssetManager) watchRecursive(path string, unWatch bool) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if unWatch {
				return am.fsnotify.Remove(walkPath)
			}
			return am.fsnotify.Add(walkPath)
		}
		if !unWatch {
			am.handleFileEvent(walkPath)
		}
		return nil
	})
}

// Handle the creation or modification of a file. It reports whether the
// file is an asset.
func (am *AssetManager) handleFileEvent(path string) bool {
	assetType := loaders.TypeOf(path)
	if assetType == loaders.ResourceTypeNone {
		return false
	}
	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.assets[path] = AssetInfo{
		Path:     path,
		Type:     assetType,
		Modified: time.Now(),
	}
	return true
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) (loaders.ResourceType, bool) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	a, ok := am.assets[path]
	delete(am.assets, path)
	return a.Type, ok
}
