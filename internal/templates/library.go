// Package templates loads onboarding template definitions from YAML files
// and keeps the templates collection in sync as the files change.
//
// Each *.yaml file in the library directory defines one template; the file
// name (without extension) is the template id. The library performs a full
// sync on start, then watches the directory and re-syncs changed files with
// debounce batching.
package templates

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/sgupta906/oboarding-sub000/internal/model"
)

// Sink receives synced template definitions. The engine implements it.
type Sink interface {
	UpsertTemplate(ctx context.Context, tmpl model.Template) error
	RemoveTemplate(ctx context.Context, id string) error
}

// templateFile is the YAML shape of one template definition.
type templateFile struct {
	Name  string     `yaml:"name"`
	Role  string     `yaml:"role,omitempty"`
	Steps []stepFile `yaml:"steps"`
}

type stepFile struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description,omitempty"`
	Role        string `yaml:"role,omitempty"`
	Owner       string `yaml:"owner,omitempty"`
	Expert      string `yaml:"expert,omitempty"`
	Link        string `yaml:"link,omitempty"`
}

// Config holds library configuration.
type Config struct {
	// DebounceInterval batches rapid file changes together
	DebounceInterval time.Duration

	// Logger for library activity
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DebounceInterval: 100 * time.Millisecond,
		Logger:           log.New(os.Stderr, "[templates] ", log.LstdFlags),
	}
}

// Library watches a directory of template definition files and pushes them
// into the sink.
type Library struct {
	dir    string
	sink   Sink
	config *Config

	watcher       *fsnotify.Watcher
	changeQueue   map[string]time.Time
	changeQueueMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a library for the given directory.
func New(dir string, sink Sink, config *Config) (*Library, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir cannot be empty")
	}
	if sink == nil {
		return nil, fmt.Errorf("sink cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[templates] ", log.LstdFlags)
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = 100 * time.Millisecond
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Library{
		dir:         dir,
		sink:        sink,
		config:      config,
		watcher:     watcher,
		changeQueue: make(map[string]time.Time),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Start performs a full sync and begins watching for file changes.
func (l *Library) Start() error {
	if err := l.FullSync(l.ctx); err != nil {
		return fmt.Errorf("initial template sync failed: %w", err)
	}

	if err := l.watcher.Add(l.dir); err != nil {
		return fmt.Errorf("failed to watch template directory %s: %w", l.dir, err)
	}

	l.config.Logger.Printf("Watching: %s", l.dir)

	l.wg.Add(2)
	go l.watchFileEvents()
	go l.processChangeQueue()

	return nil
}

// Stop stops watching and waits for in-flight processing to finish.
func (l *Library) Stop() error {
	l.cancel()

	if err := l.watcher.Close(); err != nil {
		l.config.Logger.Printf("Error closing watcher: %v", err)
	}

	l.wg.Wait()
	return nil
}

// FullSync reads every template file in the directory and upserts it.
// Individual file failures are logged but don't stop the sync.
func (l *Library) FullSync(ctx context.Context) error {
	if _, err := os.Stat(l.dir); os.IsNotExist(err) {
		l.config.Logger.Printf("Template directory doesn't exist: %s (skipping)", l.dir)
		return nil
	}

	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return fmt.Errorf("failed to read template directory: %w", err)
	}

	var synced, failed int
	for _, entry := range entries {
		if entry.IsDir() || !isTemplateFile(entry.Name()) {
			continue
		}

		path := filepath.Join(l.dir, entry.Name())
		if err := l.syncFile(ctx, path); err != nil {
			l.config.Logger.Printf("WARNING: Failed to sync template %s: %v", entry.Name(), err)
			failed++
			continue
		}
		synced++
	}

	l.config.Logger.Printf("Template sync complete: synced=%d, failed=%d", synced, failed)
	return nil
}

// syncFile parses one template file and pushes it into the sink. A missing
// file removes the corresponding template.
func (l *Library) syncFile(ctx context.Context, path string) error {
	id := templateID(path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		l.config.Logger.Printf("Removing template: %s", id)
		return l.sink.RemoveTemplate(ctx, id)
	}

	tmpl, err := ReadTemplateFile(path)
	if err != nil {
		return fmt.Errorf("failed to read template file: %w", err)
	}

	return l.sink.UpsertTemplate(ctx, tmpl)
}

// watchFileEvents monitors filesystem events and queues changes.
func (l *Library) watchFileEvents() {
	defer l.wg.Done()

	for {
		select {
		case <-l.ctx.Done():
			return

		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !isTemplateFile(filepath.Base(event.Name)) {
				continue
			}

			l.config.Logger.Printf("File event: %s %s", event.Op, event.Name)
			l.queueChange(event.Name)

		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

// queueChange adds a file to the change queue with debouncing.
func (l *Library) queueChange(path string) {
	l.changeQueueMu.Lock()
	defer l.changeQueueMu.Unlock()
	l.changeQueue[path] = time.Now()
}

// processChangeQueue syncs queued files once they have settled.
func (l *Library) processChangeQueue() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.config.DebounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.ctx.Done():
			return

		case <-ticker.C:
			l.processPendingChanges()
		}
	}
}

func (l *Library) processPendingChanges() {
	l.changeQueueMu.Lock()
	defer l.changeQueueMu.Unlock()

	now := time.Now()
	for path, queuedAt := range l.changeQueue {
		if now.Sub(queuedAt) < l.config.DebounceInterval {
			continue
		}

		if err := l.syncFile(l.ctx, path); err != nil {
			l.config.Logger.Printf("Error syncing template %s: %v", path, err)
		}
		delete(l.changeQueue, path)
	}
}

// ReadTemplateFile parses a YAML template definition. Step ids are assigned
// 1..n in file order.
func ReadTemplateFile(path string) (model.Template, error) {
	var zero model.Template

	data, err := os.ReadFile(path)
	if err != nil {
		return zero, fmt.Errorf("failed to read file: %w", err)
	}

	var tf templateFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return zero, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if tf.Name == "" {
		return zero, fmt.Errorf("template name is required")
	}

	steps := make([]model.Step, 0, len(tf.Steps))
	for i, sf := range tf.Steps {
		if sf.Title == "" {
			return zero, fmt.Errorf("step %d: title is required", i+1)
		}
		steps = append(steps, model.Step{
			ID:          i + 1,
			Title:       sf.Title,
			Description: sf.Description,
			Role:        sf.Role,
			Owner:       sf.Owner,
			Expert:      sf.Expert,
			Status:      model.StepPending,
			Link:        sf.Link,
		})
	}

	return model.Template{
		ID:        templateID(path),
		Name:      tf.Name,
		Role:      tf.Role,
		Steps:     steps,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// templateID derives the template id from the file name.
func templateID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(strings.TrimSuffix(base, ".yaml"), ".yml")
}

// isTemplateFile reports whether name looks like a template definition.
func isTemplateFile(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}
