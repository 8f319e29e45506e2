package gtcache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/banshee-data/scenebench/internal/fsutil"
	"github.com/banshee-data/scenebench/internal/instance"
)

// File keeps every scene in one JSON object keyed by scene path, the layout
// of the benchmark's gtInstances.json. Writes go to a temporary sibling and
// are renamed over the target.
type File struct {
	fs   fsutil.FileSystem
	path string

	mu      sync.Mutex
	loaded  bool
	entries map[string]instance.Scene
}

// NewFile returns a cache backed by path. The file is read on first use.
func NewFile(fs fsutil.FileSystem, path string) *File {
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	return &File{fs: fs, path: path}
}

// Path is the cache file location.
func (f *File) Path() string { return f.path }

func (f *File) ensureLoaded() error {
	if f.loaded {
		return nil
	}
	f.entries = make(map[string]instance.Scene)
	if !f.fs.Exists(f.path) {
		f.loaded = true
		return nil
	}
	data, err := f.fs.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("read ground-truth cache %s: %w", f.path, err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &f.entries); err != nil {
			return fmt.Errorf("decode ground-truth cache %s: %w", f.path, err)
		}
	}
	f.loaded = true
	logf("loaded %d scenes from %s", len(f.entries), f.path)
	return nil
}

func (f *File) Load(_ context.Context, key string) (instance.Scene, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ensureLoaded(); err != nil {
		return nil, false, err
	}
	s, ok := f.entries[key]
	if !ok {
		return nil, false, nil
	}
	return s.Clone(), true, nil
}

func (f *File) Store(_ context.Context, key string, s instance.Scene) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ensureLoaded(); err != nil {
		return err
	}
	f.entries[key] = s.Clone()

	data, err := json.Marshal(f.entries)
	if err != nil {
		return fmt.Errorf("encode ground-truth cache: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := f.fs.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write ground-truth cache: %w", err)
	}
	if err := f.fs.Rename(tmp, f.path); err != nil {
		_ = f.fs.Remove(tmp)
		return fmt.Errorf("publish ground-truth cache: %w", err)
	}
	return nil
}

// Count reports the number of cached scenes.
func (f *File) Count(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ensureLoaded(); err != nil {
		return 0, err
	}
	return len(f.entries), nil
}

// Delete removes the cache file. A missing file is not an error.
func (f *File) Delete() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loaded = false
	f.entries = nil
	if err := f.fs.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete ground-truth cache: %w", err)
	}
	return nil
}
