// Package secrets provides the local secret store with file watching.
package secrets

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/j-veylop/panoptic/internal/logger"
	"github.com/j-veylop/panoptic/internal/models"
)

// SecretsFile is the on-disk JSON structure.
type SecretsFile struct {
	Secrets []models.SecretEntry `json:"secrets"`
	Version int                  `json:"version,omitempty"`
}

// Event represents a secret store event.
type Event struct {
	Type  EventType
	Error error
	Name  string
}

// EventType defines the type of secret store event.
type EventType int

const (
	EventSecretsLoaded EventType = iota
	EventSecretsChanged
	EventSecretAdded
	EventSecretDeleted
	EventError
)

// Store manages secrets backed by a JSON file, reloading on external edits.
type Store struct {
	mu            sync.RWMutex
	entries       []models.SecretEntry
	filePath      string
	watcher       *fsnotify.Watcher
	eventChan     chan Event
	stopChan      chan struct{}
	debounceTimer *time.Timer
}

// New creates a new secret store and starts file watching.
func New(filePath string) (*Store, error) {
	s := &Store{
		entries:   make([]models.SecretEntry, 0),
		filePath:  filePath,
		eventChan: make(chan Event, 100),
		stopChan:  make(chan struct{}),
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create secrets directory: %w", err)
	}

	if err := s.load(); err != nil {
		if os.IsNotExist(err) {
			if err := s.save(); err != nil {
				return nil, fmt.Errorf("failed to create secrets file: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to load secrets: %w", err)
		}
	}

	if err := s.startWatcher(); err != nil {
		return nil, fmt.Errorf("failed to start file watcher: %w", err)
	}

	s.sendEvent(Event{Type: EventSecretsLoaded})

	return s, nil
}

// Events returns the event channel for subscribing to store changes.
func (s *Store) Events() <-chan Event {
	return s.eventChan
}

// ListByProvider returns all entries that are candidates for the given
// provider tag: entries hinted for that provider plus untagged entries.
// Never returns a nil slice for "nothing found".
func (s *Store) ListByProvider(tag string) ([]models.SecretEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.SecretEntry, 0)
	for _, e := range s.entries {
		if e.Provider == "" || strings.EqualFold(e.Provider, tag) {
			result = append(result, e)
		}
	}
	return result, nil
}

// List returns a copy of all entries.
func (s *Store) List() []models.SecretEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]models.SecretEntry, len(s.entries))
	copy(entries, s.entries)
	return entries
}

// Count returns the number of stored secrets.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Add stores a new secret entry. Names must be unique.
func (s *Store) Add(entry models.SecretEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.Name == entry.Name {
			return fmt.Errorf("secret %q already exists", entry.Name)
		}
	}

	s.entries = append(s.entries, entry)
	if err := s.saveLocked(); err != nil {
		s.entries = s.entries[:len(s.entries)-1]
		return fmt.Errorf("failed to save secrets: %w", err)
	}

	s.sendEvent(Event{Type: EventSecretAdded, Name: entry.Name})
	return nil
}

// Delete removes a secret by name.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, e := range s.entries {
		if e.Name == name {
			idx = i
			break
		}
	}
	if idx == -1 {
		return fmt.Errorf("secret not found: %s", name)
	}

	s.entries = append(s.entries[:idx], s.entries[idx+1:]...)
	if err := s.saveLocked(); err != nil {
		return fmt.Errorf("failed to save secrets: %w", err)
	}

	s.sendEvent(Event{Type: EventSecretDeleted, Name: name})
	return nil
}

// load reads the secrets file into memory.
func (s *Store) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	entries, err := parseSecrets(data)
	if err != nil {
		return err
	}

	s.entries = entries
	return nil
}

// parseSecrets parses secret data handling both the wrapped and the legacy
// bare-array formats.
func parseSecrets(data []byte) ([]models.SecretEntry, error) {
	var file SecretsFile
	if err := json.Unmarshal(data, &file); err == nil && file.Secrets != nil {
		return file.Secrets, nil
	}

	var entries []models.SecretEntry
	if err := json.Unmarshal(data, &entries); err == nil {
		return entries, nil
	}

	return nil, fmt.Errorf("failed to parse secrets file: invalid format")
}

func (s *Store) save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

// saveLocked writes the secrets file atomically (must hold lock).
func (s *Store) saveLocked() error {
	file := SecretsFile{
		Secrets: s.entries,
		Version: 1,
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal secrets: %w", err)
	}

	tmpFile := s.filePath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpFile, s.filePath); err != nil {
		if removeErr := os.Remove(tmpFile); removeErr != nil {
			logger.Error("failed to remove temp file", "error", removeErr)
		}
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// startWatcher starts the file system watcher.
func (s *Store) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	s.watcher = watcher

	// Watch the directory to catch file creation and atomic renames
	dir := filepath.Dir(s.filePath)
	if err := watcher.Add(dir); err != nil {
		if closeErr := watcher.Close(); closeErr != nil {
			logger.Error("failed to close watcher", "error", closeErr)
		}
		return err
	}

	go s.watchLoop()
	return nil
}

// watchLoop handles file system events with debouncing.
func (s *Store) watchLoop() {
	const debounceInterval = 100 * time.Millisecond

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != filepath.Base(s.filePath) {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				if s.debounceTimer != nil {
					s.debounceTimer.Stop()
				}
				s.debounceTimer = time.AfterFunc(debounceInterval, func() {
					s.handleFileChange()
				})
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.sendEvent(Event{Type: EventError, Error: err})

		case <-s.stopChan:
			return
		}
	}
}

// handleFileChange reloads secrets after an external edit.
func (s *Store) handleFileChange() {
	s.mu.Lock()
	err := s.load()
	s.mu.Unlock()

	if err != nil {
		s.sendEvent(Event{Type: EventError, Error: err})
		return
	}

	s.sendEvent(Event{Type: EventSecretsChanged})
}

// sendEvent sends an event to the event channel non-blocking.
func (s *Store) sendEvent(event Event) {
	select {
	case s.eventChan <- event:
	default:
		// Channel full, drop oldest
		select {
		case <-s.eventChan:
		default:
		}
		select {
		case s.eventChan <- event:
		default:
		}
	}
}

// Close stops the file watcher and cleans up resources.
func (s *Store) Close() error {
	close(s.stopChan)

	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
	}

	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}
