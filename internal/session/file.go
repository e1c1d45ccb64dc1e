package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// FileStorage keeps one file per key in a private directory. Every process
// pointed at the same directory shares the session, and fsnotify tells each
// of them when a key file changes.
type FileStorage struct {
	dir string
	log zerolog.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	subs    map[uint64]func()
	next    uint64
	stopped chan struct{}
}

// NewFileStorage creates dir with owner-only permissions if needed
func NewFileStorage(dir string, log zerolog.Logger) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create token directory: %w", err)
	}
	return &FileStorage{
		dir:  dir,
		log:  log.With().Str("component", "file_storage").Str("dir", dir).Logger(),
		subs: make(map[uint64]func()),
	}, nil
}

// Dir returns the storage directory
func (f *FileStorage) Dir() string {
	return f.dir
}

func (f *FileStorage) path(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, ".") || strings.ContainsAny(key, `/\`) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(f.dir, key), nil
}

func (f *FileStorage) Get(key string) (string, bool, error) {
	p, err := f.path(key)
	if err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return strings.TrimRight(string(data), "\r\n"), true, nil
}

// Set writes through a temp file and rename so readers never see a torn value
func (f *FileStorage) Set(key, value string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.dir, "."+key+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("failed to replace %s: %w", key, err)
	}
	return nil
}

func (f *FileStorage) Remove(key string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

// Subscribe starts the directory watcher on first use and stops it when the
// last subscriber leaves.
func (f *FileStorage) Subscribe(fn func()) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.watcher == nil {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, fmt.Errorf("failed to create watcher: %w", err)
		}
		if err := w.Add(f.dir); err != nil {
			w.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", f.dir, err)
		}
		f.watcher = w
		f.stopped = make(chan struct{})
		go f.watch(w, f.stopped)
	}

	id := f.next
	f.next++
	f.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() { f.unsubscribe(id) })
	}, nil
}

func (f *FileStorage) unsubscribe(id uint64) {
	f.mu.Lock()
	delete(f.subs, id)
	if len(f.subs) > 0 || f.watcher == nil {
		f.mu.Unlock()
		return
	}
	w, stopped := f.watcher, f.stopped
	f.watcher = nil
	f.mu.Unlock()

	if err := w.Close(); err != nil {
		f.log.Warn().Err(err).Msg("Failed to close watcher")
	}
	<-stopped
}

func (f *FileStorage) watch(w *fsnotify.Watcher, stopped chan struct{}) {
	defer close(stopped)
	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			name := filepath.Base(event.Name)
			if strings.HasPrefix(name, ".") || event.Op == fsnotify.Chmod {
				continue
			}
			f.log.Debug().Str("key", name).Str("op", event.Op.String()).Msg("Storage changed")
			f.fire()
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			f.log.Warn().Err(err).Msg("Watcher error")
		}
	}
}

func (f *FileStorage) fire() {
	f.mu.Lock()
	fns := make([]func(), 0, len(f.subs))
	for _, fn := range f.subs {
		fns = append(fns, fn)
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
