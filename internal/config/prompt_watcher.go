package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"atsquick/internal/errors"

	"github.com/fsnotify/fsnotify"
)

// PromptWatcher reloads the analysis prompt file when it changes on disk
type PromptWatcher struct {
	mu sync.Mutex

	config        *Config
	file          string
	lastModTime   time.Time
	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	reloadChan chan struct{}
	onReload   func()
	logger     *errors.Logger

	running bool
}

// NewPromptWatcher creates a watcher for cfg's analysis prompt file.
// onReload, if not nil, runs after every successful reload.
func NewPromptWatcher(cfg *Config, onReload func(), logger *errors.Logger) (*PromptWatcher, error) {
	if cfg.AI.CustomPrompts.AnalyzeResumeFile == "" {
		return nil, fmt.Errorf("no analyze resume prompt file configured")
	}

	absPath, err := filepath.Abs(cfg.AI.CustomPrompts.AnalyzeResumeFile)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve prompt file path: %w", err)
	}

	debounceDelay := cfg.AI.CustomPrompts.DebounceDelay
	if debounceDelay <= 0 {
		debounceDelay = time.Second
	}

	return &PromptWatcher{
		config:        cfg,
		file:          absPath,
		debounceDelay: debounceDelay,
		stopChan:      make(chan struct{}),
		reloadChan:    make(chan struct{}, 1),
		onReload:      onReload,
		logger:        logger,
	}, nil
}

// Start begins watching the prompt file
func (pw *PromptWatcher) Start() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.running {
		return fmt.Errorf("prompt watcher is already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Watch the directory so editors that replace the file via rename are seen
	dir := filepath.Dir(pw.file)
	if err := watcher.Add(dir); err != nil {
		if closeErr := watcher.Close(); closeErr != nil {
			pw.logger.LogError(closeErr, "Failed to close file watcher during cleanup")
		}
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	pw.fsWatcher = watcher

	if stat, err := os.Stat(pw.file); err == nil {
		pw.lastModTime = stat.ModTime()
	}

	pw.running = true
	go pw.watchLoop()

	pw.logger.Info("Prompt file watcher started",
		"file", pw.file,
		"debounce_delay", pw.debounceDelay)
	return nil
}

// Stop stops the watcher. It is safe to call more than once.
func (pw *PromptWatcher) Stop() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if !pw.running {
		return nil
	}

	close(pw.stopChan)
	if pw.debounceTimer != nil {
		pw.debounceTimer.Stop()
	}
	pw.running = false

	if err := pw.fsWatcher.Close(); err != nil {
		pw.logger.LogError(err, "Failed to close file system watcher")
		return err
	}

	pw.logger.Info("Prompt file watcher stopped")
	return nil
}

// IsRunning returns whether the watcher is currently running
func (pw *PromptWatcher) IsRunning() bool {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	return pw.running
}

func (pw *PromptWatcher) watchLoop() {
	for {
		select {
		case event, ok := <-pw.fsWatcher.Events:
			if !ok {
				return
			}
			if pw.shouldProcessEvent(event) {
				pw.scheduleReload()
			}

		case err, ok := <-pw.fsWatcher.Errors:
			if !ok {
				return
			}
			pw.logger.LogError(err, "File watcher error")

		case <-pw.reloadChan:
			if pw.hasFileChanged() {
				pw.reload()
			}

		case <-pw.stopChan:
			return
		}
	}
}

func (pw *PromptWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != pw.file {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

func (pw *PromptWatcher) hasFileChanged() bool {
	stat, err := os.Stat(pw.file)
	if err != nil {
		return false
	}
	if stat.ModTime().After(pw.lastModTime) {
		pw.lastModTime = stat.ModTime()
		return true
	}
	return false
}

func (pw *PromptWatcher) reload() {
	if err := pw.config.ReloadAnalyzePrompt(); err != nil {
		pw.logger.LogError(err, "Failed to reload analysis prompt, keeping previous version", "file", pw.file)
		return
	}

	pw.logger.Info("Analysis prompt reloaded", "file", pw.file)
	if pw.onReload != nil {
		pw.onReload()
	}
}

// scheduleReload schedules a debounced reload
func (pw *PromptWatcher) scheduleReload() {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.debounceTimer != nil {
		pw.debounceTimer.Stop()
	}

	pw.debounceTimer = time.AfterFunc(pw.debounceDelay, func() {
		select {
		case pw.reloadChan <- struct{}{}:
		default:
			// Reload already pending
		}
	})
}
