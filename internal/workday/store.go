package workday

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Source supplies the row history, sorted ascending by date.
type Source interface {
	Records(ctx context.Context) ([]Record, error)
}

// Store provides thread-safe, date-keyed storage for records.
type Store struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewStore creates a new empty Store.
func NewStore() *Store {
	return &Store{records: make(map[string]Record)}
}

// Upsert adds or replaces records by date. Records without a date are skipped.
func (s *Store) Upsert(records ...Record) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, r := range records {
		if strings.TrimSpace(r.Date) == "" {
			continue
		}
		s.records[r.Date] = r
		n++
	}
	return n
}

// Get returns the record for a date.
func (s *Store) Get(date string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[date]
	return r, ok
}

// Count returns the number of stored records.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// All returns a copy of every record sorted ascending by date.
func (s *Store) All() []Record {
	s.mu.RLock()
	out := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b Record) int {
		return strings.Compare(a.Date, b.Date)
	})
	return out
}

// Records implements Source.
func (s *Store) Records(_ context.Context) ([]Record, error) {
	return s.All(), nil
}

// Load reads records from a JSONL file. A missing file is not an error.
func (s *Store) Load(path string) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open records file: %w", err)
	}
	defer file.Close()

	var records []Record
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(strings.TrimSpace(scanner.Text())) == 0 {
			continue
		}
		var r Record
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			log.Warn().Err(err).Str("path", path).Int("line", line).Msg("Skipping invalid record line")
			continue
		}
		records = append(records, r)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading records file: %w", err)
	}

	n := s.Upsert(records...)
	log.Info().Str("path", path).Int("count", n).Msg("Loaded work day records")
	return nil
}

// Save writes every record to a JSONL file via a temp file and atomic rename.
func (s *Store) Save(path string) error {
	records := s.All()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create records directory: %w", err)
	}

	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp records file: %w", err)
	}

	writer := bufio.NewWriter(file)
	encoder := json.NewEncoder(writer)

	for _, r := range records {
		if err := encoder.Encode(r); err != nil {
			file.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("failed to encode record %s: %w", r.Date, err)
		}
	}

	if err := writer.Flush(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to flush writer: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename records file: %w", err)
	}

	log.Info().Str("path", path).Int("count", len(records)).Msg("Work day records saved")
	return nil
}

// FileSource reloads a JSONL file on every call.
type FileSource struct {
	Path string
}

// Records implements Source.
func (f FileSource) Records(_ context.Context) ([]Record, error) {
	s := NewStore()
	if err := s.Load(f.Path); err != nil {
		return nil, err
	}
	return s.All(), nil
}
