// Package history keeps a local JSON file of past scout invocations
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/marketscout/internal/model"
)

// ErrInvalidBrief is returned when a brief breaks the error/insight exclusivity rule
var ErrInvalidBrief = errors.New("invalid brief")

// NewEntry records one invocation. Competitors are the companies of the briefs.
func NewEntry(query string, briefs []model.Brief, now time.Time) model.HistoryEntry {
	competitors := make([]string, 0, len(briefs))
	for _, b := range briefs {
		competitors = append(competitors, b.Company)
	}

	return model.HistoryEntry{
		ID:          uuid.NewString(),
		Query:       query,
		Timestamp:   now,
		Competitors: competitors,
		Briefs:      briefs,
	}
}

// Validate checks every brief of an entry: a brief either has an error and
// nothing else, or an insight with at least one feature
func Validate(entry model.HistoryEntry) error {
	if strings.TrimSpace(entry.ID) == "" {
		return fmt.Errorf("entry has no id")
	}

	for i, b := range entry.Briefs {
		if b.Company == "" {
			return fmt.Errorf("%w: brief %d has no company", ErrInvalidBrief, i)
		}
		hasError := b.Error != ""
		switch {
		case hasError && (b.Insight != nil || len(b.Features) > 0):
			return fmt.Errorf("%w: brief %s has both an error and results", ErrInvalidBrief, b.Company)
		case !hasError && b.Insight == nil:
			return fmt.Errorf("%w: brief %s has neither an error nor an insight", ErrInvalidBrief, b.Company)
		case !hasError && len(b.Features) == 0:
			return fmt.Errorf("%w: brief %s has an insight without features", ErrInvalidBrief, b.Company)
		case b.Insight != nil && (b.Insight.Sentiment < 0 || b.Insight.Sentiment > 100):
			return fmt.Errorf("%w: brief %s sentiment %d out of range", ErrInvalidBrief, b.Company, b.Insight.Sentiment)
		}
	}

	return nil
}

// Store is a JSON file holding an array of history entries, newest last
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a store backed by path
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file
func (s *Store) Path() string {
	return s.path
}

// Load returns all entries. A missing file is an empty history.
func (s *Store) Load() ([]model.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Append adds one entry
func (s *Store) Append(entry model.HistoryEntry) error {
	if err := Validate(entry); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	return s.save(append(entries, entry))
}

// Export writes all entries to path as a JSON array
func (s *Store) Export(path string) (int, error) {
	entries, err := s.Load()
	if err != nil {
		return 0, err
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("marshal history: %w", err)
	}
	if err := writeFile(path, append(data, '\n')); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// Import merges the entries in path into the store. Entries whose ID is
// already present are skipped. Nothing is written if any entry is invalid.
func (s *Store) Import(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}

	var incoming []model.HistoryEntry
	if err := json.Unmarshal(data, &incoming); err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	for i, e := range incoming {
		if err := Validate(e); err != nil {
			return 0, fmt.Errorf("entry %d: %w", i, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return 0, err
	}

	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		seen[e.ID] = true
	}

	added := 0
	for _, e := range incoming {
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		entries = append(entries, e)
		added++
	}

	if added == 0 {
		return 0, nil
	}
	return added, s.save(entries)
}

func (s *Store) load() ([]model.HistoryEntry, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []model.HistoryEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	var entries []model.HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse history: %w", err)
	}
	if entries == nil {
		entries = []model.HistoryEntry{}
	}
	return entries, nil
}

func (s *Store) save(entries []model.HistoryEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	return writeFile(s.path, append(data, '\n'))
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
