package systems

import (
	"errors"
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/astra/engine/core"
)

/**
 * @brief Watches resource source files and refreshes their registry
 * entries in place when they change on disk. Because the refresh reuses
 * the same descriptor slot, indices already captured by shaders keep
 * working across a reload; the loader only has to swap the underlying
 * resource contents.
 */
type ReloadWatcher struct {
	registry *RegistrySystem
	watcher  *fsnotify.Watcher

	mu sync.Mutex
	// Watched path -> registered resource name.
	paths  map[string]string
	closed bool

	done chan struct{}
}

func NewReloadWatcher(registry *RegistrySystem) (*ReloadWatcher, error) {
	if registry == nil {
		return nil, fmt.Errorf("func NewReloadWatcher - registry must not be nil")
	}
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	rw := &ReloadWatcher{
		registry: registry,
		watcher:  fsWatch,
		paths:    make(map[string]string),
		done:     make(chan struct{}),
	}
	go rw.run()
	return rw, nil
}

// Watch ties a file path to a registered resource name.
func (rw *ReloadWatcher) Watch(path, resourceName string) error {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.closed {
		return errors.New("reload watcher instance already closed")
	}
	if err := rw.watcher.Add(path); err != nil {
		return err
	}
	rw.paths[path] = resourceName
	core.LogDebug("watching '%s' for '%s'", path, resourceName)
	return nil
}

// Unwatch stops tracking a path.
func (rw *ReloadWatcher) Unwatch(path string) error {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.closed {
		return errors.New("reload watcher instance already closed")
	}
	delete(rw.paths, path)
	return rw.watcher.Remove(path)
}

func (rw *ReloadWatcher) run() {
	for {
		select {
		case e, ok := <-rw.watcher.Events:
			if !ok {
				return
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			rw.mu.Lock()
			name, watched := rw.paths[e.Name]
			rw.mu.Unlock()
			if !watched {
				continue
			}
			if err := rw.registry.Refresh(name); err != nil {
				core.LogWarn("reload of '%s' skipped: %s", name, err.Error())
				continue
			}
			core.LogInfo("reloaded '%s' from '%s' (same descriptor index)", name, e.Name)
		case err, ok := <-rw.watcher.Errors:
			if !ok {
				return
			}
			core.LogError("reload watcher: %s", err.Error())
		case <-rw.done:
			return
		}
	}
}

// Close stops the watcher goroutine and releases the notifier.
func (rw *ReloadWatcher) Close() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.closed {
		return nil
	}
	rw.closed = true
	close(rw.done)
	return rw.watcher.Close()
}
