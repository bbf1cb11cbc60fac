package schedule

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Entry is one scheduled message: the text to send and the delay, in
// seconds, between consecutive sends of that text.
type Entry struct {
	Message      string  `json:"message"`
	DelaySeconds float64 `json:"delay"`
}

var (
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrEmptyMessage    = errors.New("message text cannot be empty")
	ErrNegativeDelay   = errors.New("delay must not be negative")
)

// Store holds the ordered message schedule and persists it to a JSON
// file after every mutation. Persistence is best-effort: a failed
// write is logged as a warning, never surfaced as a mutation error.
type Store struct {
	path   string
	logger *slog.Logger

	mu      sync.Mutex
	entries []Entry
}

func NewStore(path string, logger *slog.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// Path returns the schedule file location.
func (s *Store) Path() string { return s.path }

// Load reads the persisted schedule. A missing or unparsable file is
// not an error: the store starts empty and the problem is logged.
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := readFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("saved schedule was invalid, starting fresh", "path", s.path, "err", err)
		}
		s.entries = nil
		return
	}
	s.entries = entries
}

func readFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse schedule file: %w", err)
	}
	return entries, nil
}

// save writes the current entries to disk. Caller must hold s.mu.
func (s *Store) save() {
	entries := s.entries
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		s.logger.Warn("cannot marshal schedule", "err", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.logger.Warn("cannot create schedule directory", "path", s.path, "err", err)
		return
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		s.logger.Warn("cannot save schedule", "path", s.path, "err", err)
	}
}

// Add appends one entry and persists.
func (s *Store) Add(text string, delaySeconds float64) error {
	if text == "" {
		return ErrEmptyMessage
	}
	if delaySeconds < 0 {
		return ErrNegativeDelay
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, Entry{Message: text, DelaySeconds: delaySeconds})
	s.save()
	return nil
}

// Edit replaces fields of the entry at index. A nil field keeps the
// current value.
func (s *Store) Edit(index int, text *string, delaySeconds *float64) error {
	if text != nil && *text == "" {
		return ErrEmptyMessage
	}
	if delaySeconds != nil && *delaySeconds < 0 {
		return ErrNegativeDelay
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.entries) {
		return fmt.Errorf("edit entry %d: %w", index, ErrIndexOutOfRange)
	}
	if text != nil {
		s.entries[index].Message = *text
	}
	if delaySeconds != nil {
		s.entries[index].DelaySeconds = *delaySeconds
	}
	s.save()
	return nil
}

// Delete removes the entry at index and returns it.
func (s *Store) Delete(index int) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.entries) {
		return Entry{}, fmt.Errorf("delete entry %d: %w", index, ErrIndexOutOfRange)
	}
	removed := s.entries[index]
	s.entries = append(s.entries[:index], s.entries[index+1:]...)
	s.save()
	return removed, nil
}

// Clear removes all entries.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.save()
}

// LoadSample replaces the schedule with a fixed example list.
func (s *Store) LoadSample() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = SampleEntries()
	s.save()
}

// SampleEntries returns the built-in example schedule.
func SampleEntries() []Entry {
	return []Entry{
		{Message: "Hello from the Discord browser automation demo!", DelaySeconds: 5},
		{Message: "Each message can have its own delay.", DelaySeconds: 10},
		{Message: "Edit the schedule from the menu to fit your needs.", DelaySeconds: 15},
	}
}

// Save persists the current schedule. Mutations already auto-save;
// this is for callers that want an explicit write, like the menu's
// start action.
func (s *Store) Save() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.save()
}

// Get returns the entry at index. The read is bounds-checked under
// the lock because the watcher may shrink the schedule at any time.
func (s *Store) Get(index int) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.entries) {
		return Entry{}, fmt.Errorf("get entry %d: %w", index, ErrIndexOutOfRange)
	}
	return s.entries[index], nil
}

// Entries returns a snapshot copy of the schedule.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// replace swaps in entries loaded from disk (used by the watcher).
func (s *Store) replace(entries []Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = entries
}
