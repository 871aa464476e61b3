package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// FileStore keeps every preference in a single JSON object on disk. Other
// processes may share the file: reads pick up their writes when the file
// changes, and every write re-reads the file before merging its own key.
type FileStore struct {
	mu      sync.RWMutex
	path    string
	values  map[string]json.RawMessage
	modTime time.Time
	size    int64
	exists  bool
}

// OpenFileStore loads path, treating a missing file as empty.
func OpenFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, values: make(map[string]json.RawMessage)}
	if err := s.reloadLocked(true); err != nil {
		return nil, err
	}
	log.Debug().Str("path", path).Int("keys", len(s.values)).Msg("Loaded preferences")
	return s, nil
}

// reloadLocked re-reads the file when forced or when its size or mtime moved
// since the last read or write. Caller holds the write lock.
func (s *FileStore) reloadLocked(force bool) error {
	info, err := os.Stat(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat preferences file: %w", err)
		}
		if s.exists || force {
			s.values = make(map[string]json.RawMessage)
			s.exists = false
		}
		return nil
	}
	if !force && s.exists && info.ModTime().Equal(s.modTime) && info.Size() == s.size {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read preferences file: %w", err)
	}
	values := make(map[string]json.RawMessage)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &values); err != nil {
			return fmt.Errorf("failed to parse preferences file: %w", err)
		}
	}
	s.values = values
	s.modTime, s.size, s.exists = info.ModTime(), info.Size(), true
	return nil
}

func (s *FileStore) changed() bool {
	info, err := os.Stat(s.path)
	if err != nil {
		return s.exists || !os.IsNotExist(err)
	}
	return !s.exists || !info.ModTime().Equal(s.modTime) || info.Size() != s.size
}

func (s *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	stale := s.changed()
	s.mu.RUnlock()
	if stale {
		s.mu.Lock()
		err := s.reloadLocked(false)
		s.mu.Unlock()
		if err != nil {
			return nil, err
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *FileStore) Set(_ context.Context, key string, value []byte) error {
	if !json.Valid(value) {
		return fmt.Errorf("preference %s is not valid JSON", key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.reloadLocked(true); err != nil {
		return err
	}
	s.values[key] = append(json.RawMessage(nil), value...)
	return s.flush()
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.reloadLocked(true); err != nil {
		return err
	}
	if _, ok := s.values[key]; !ok {
		return nil
	}
	delete(s.values, key)
	return s.flush()
}

// flush writes via a temp file and atomic rename. Caller holds the write lock.
func (s *FileStore) flush() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create preferences directory: %w", err)
	}

	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp preferences file: %w", err)
	}
	tmpPath := tmp.Name()
	_, err = tmp.Write(data)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(tmpPath, 0644)
	}
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp preferences file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename preferences file: %w", err)
	}

	if info, err := os.Stat(s.path); err == nil {
		s.modTime, s.size, s.exists = info.ModTime(), info.Size(), true
	}
	return nil
}
