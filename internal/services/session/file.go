package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/j-veylop/quota-autopay/internal/logger"
	"github.com/j-veylop/quota-autopay/internal/models"
)

// Event represents a session file event.
type Event struct {
	Type  EventType
	Error error
}

// EventType defines the type of session event.
type EventType int

const (
	EventSessionLoaded EventType = iota
	EventSessionChanged
	EventSessionCleared
	EventError
)

// sessionFile is the wrapped on-disk format.
type sessionFile struct {
	Tokens    *models.TokenBundle `json:"tokens"`
	UpdatedAt time.Time           `json:"updatedAt,omitempty"`
}

// FileProvider reads tokens from a JSON file and reloads them whenever the
// file changes, so tokens rotated by another process are picked up.
type FileProvider struct {
	mu            sync.RWMutex
	tokens        models.TokenBundle
	filePath      string
	watcher       *fsnotify.Watcher
	eventChan     chan Event
	stopChan      chan struct{}
	debounceTimer *time.Timer
}

// NewFileProvider loads path (a missing file means no session) and starts watching it.
func NewFileProvider(path string) (*FileProvider, error) {
	if path == "" {
		return nil, errors.New("session file path is empty")
	}

	p := &FileProvider{
		filePath:  path,
		eventChan: make(chan Event, 20),
		stopChan:  make(chan struct{}),
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	if err := p.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if err := p.startWatcher(); err != nil {
		return nil, fmt.Errorf("failed to start file watcher: %w", err)
	}

	p.sendEvent(Event{Type: EventSessionLoaded})

	return p, nil
}

// Tokens implements Provider.
func (p *FileProvider) Tokens() (models.TokenBundle, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tokens, !p.tokens.IsZero()
}

// Events returns the event channel for subscribing to session changes.
func (p *FileProvider) Events() <-chan Event {
	return p.eventChan
}

// Path returns the watched file path.
func (p *FileProvider) Path() string {
	return p.filePath
}

// Save writes tokens to the session file atomically.
func (p *FileProvider) Save(tokens models.TokenBundle) error {
	data, err := json.MarshalIndent(sessionFile{Tokens: &tokens, UpdatedAt: time.Now().UTC()}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	// Write to temp file first, then rename
	tmpFile := p.filePath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpFile, p.filePath); err != nil {
		if removeErr := os.Remove(tmpFile); removeErr != nil {
			logger.Error("failed to remove temp file", "error", removeErr)
		}
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	p.mu.Lock()
	p.tokens = tokens
	p.mu.Unlock()
	return nil
}

// parseSession accepts either the wrapped format or a bare token bundle.
func parseSession(data []byte) (models.TokenBundle, error) {
	var wrapped sessionFile
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Tokens != nil {
		return *wrapped.Tokens, nil
	}

	var bare models.TokenBundle
	if err := json.Unmarshal(data, &bare); err != nil {
		return models.TokenBundle{}, fmt.Errorf("failed to parse session file: %w", err)
	}
	return bare, nil
}

// load reads the session file into memory.
func (p *FileProvider) load() error {
	data, err := os.ReadFile(p.filePath)
	if err != nil {
		return err
	}

	tokens, err := parseSession(data)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.tokens = tokens
	p.mu.Unlock()
	return nil
}

// startWatcher starts the file system watcher.
func (p *FileProvider) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	p.watcher = watcher

	// Watch the directory (to catch file creation/deletion)
	if err := watcher.Add(filepath.Dir(p.filePath)); err != nil {
		if closeErr := watcher.Close(); closeErr != nil {
			logger.Error("failed to close watcher", "error", closeErr)
		}
		return err
	}

	go p.watchLoop()
	return nil
}

// watchLoop handles file system events with debouncing.
func (p *FileProvider) watchLoop() {
	const debounceInterval = 100 * time.Millisecond

	for {
		select {
		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != filepath.Base(p.filePath) {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				p.mu.Lock()
				if p.debounceTimer != nil {
					p.debounceTimer.Stop()
				}
				p.debounceTimer = time.AfterFunc(debounceInterval, p.handleFileChange)
				p.mu.Unlock()
			}

		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			p.sendEvent(Event{Type: EventError, Error: err})

		case <-p.stopChan:
			return
		}
	}
}

// handleFileChange reloads tokens after an external change. A removed file
// clears the session.
func (p *FileProvider) handleFileChange() {
	err := p.load()
	switch {
	case os.IsNotExist(err):
		p.mu.Lock()
		p.tokens = models.TokenBundle{}
		p.mu.Unlock()
		logger.Warn("session file removed", "path", p.filePath)
		p.sendEvent(Event{Type: EventSessionCleared})
	case err != nil:
		// Keep the previous tokens; a half-written file is retried on the next event.
		logger.Warn("failed to reload session", "path", p.filePath, "error", err)
		p.sendEvent(Event{Type: EventError, Error: err})
	default:
		logger.Debug("session reloaded", "path", p.filePath)
		p.sendEvent(Event{Type: EventSessionChanged})
	}
}

// sendEvent sends an event to the event channel non-blocking.
func (p *FileProvider) sendEvent(event Event) {
	select {
	case p.eventChan <- event:
	default:
		// Channel full, drop oldest event
		select {
		case <-p.eventChan:
		default:
		}
		select {
		case p.eventChan <- event:
		default:
		}
	}
}

// Close stops the file watcher and cleans up resources.
func (p *FileProvider) Close() error {
	close(p.stopChan)

	p.mu.Lock()
	if p.debounceTimer != nil {
		p.debounceTimer.Stop()
	}
	p.mu.Unlock()

	if p.watcher != nil {
		return p.watcher.Close()
	}
	return nil
}
