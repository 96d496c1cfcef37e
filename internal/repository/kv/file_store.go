package kv

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ErrInvalidKey is returned for keys that cannot be mapped to a file name.
var ErrInvalidKey = errors.New("invalid key")

// FileStore keeps one file per key inside a directory. Values are replaced
// atomically, and Watch reports changes made by other processes.
type FileStore struct {
	dir    string
	logger *zap.Logger

	mu  sync.Mutex
	own map[string][sha256.Size]byte
}

// NewFileStore opens (creating if needed) a directory-backed store.
func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir == "" {
		return nil, errors.New("store directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory %s: %w", dir, err)
	}

	return &FileStore{
		dir:    dir,
		logger: logger,
		own:    make(map[string][sha256.Size]byte),
	}, nil
}

// Dir returns the backing directory.
func (s *FileStore) Dir() string { return s.dir }

// Get returns the value stored at key. The boolean is false when the key is absent.
func (s *FileStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, false, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read key %s: %w", key, err)
	}
	return data, true, nil
}

// Put overwrites the value stored at key.
func (s *FileStore) Put(_ context.Context, key string, value []byte) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.own[key] = sha256.Sum256(value)
	s.mu.Unlock()

	if err := writeFileAtomic(path, value, 0o644); err != nil {
		return fmt.Errorf("write key %s: %w", key, err)
	}

	s.logger.Debug("key written", zap.String("key", key), zap.Int("bytes", len(value)))
	return nil
}

// Watch emits on the returned channel whenever key is changed by someone else.
// Writes made through this FileStore are not reported. The channel is closed
// when ctx is done.
func (s *FileStore) Watch(ctx context.Context, key string) (<-chan struct{}, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	// rename-based writes replace the inode, so the directory is watched
	if err := watcher.Add(s.dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", s.dir, err)
	}

	out := make(chan struct{}, 1)
	lastSeen := checksumFile(path)

	go func() {
		defer close(out)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != key {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
					!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
					continue
				}

				sum := checksumFile(path)
				if sum == lastSeen {
					continue
				}
				lastSeen = sum
				if s.isOwnWrite(key, sum) {
					continue
				}

				s.logger.Debug("external change detected", zap.String("key", key), zap.String("op", event.Op.String()))
				select {
				case out <- struct{}{}:
				default:
				}

			case wErr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Error("fsnotify error", zap.String("key", key), zap.Error(wErr))
			}
		}
	}()

	return out, nil
}

// Close is a no-op; watchers stop with their context.
func (s *FileStore) Close(context.Context) error { return nil }

func (s *FileStore) isOwnWrite(key string, sum [sha256.Size]byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	own, ok := s.own[key]
	return ok && own == sum
}

func (s *FileStore) path(key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, TempFilePrefix) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.dir, key), nil
}

// checksumFile hashes the file content; a missing file hashes as empty content.
func checksumFile(path string) [sha256.Size]byte {
	data, err := os.ReadFile(path)
	if err != nil {
		return sha256.Sum256(nil)
	}
	return sha256.Sum256(data)
}
