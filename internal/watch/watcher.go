// Package watch rebuilds the family whenever a source file changes.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// sourcePatterns are the file kinds a rebuild cares about.
var sourcePatterns = []string{
	"*.svg", "*.glif", "*.plist", "*.designspace",
	"*.yaml", "*.yml", "VERSION",
}

// FileWatcher monitors the project sources and triggers a rebuild
// callback after changes settle.
type FileWatcher struct {
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	log       *zap.SugaredLogger
	patterns  []string
	ignored   []string
	onChange  func([]string) error
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// NewFileWatcher creates a watcher that invokes onChange with the
// settled batch of changed files.
func NewFileWatcher(log *zap.SugaredLogger, ignored []string, onChange func([]string) error) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	fw := &FileWatcher{
		watcher:   watcher,
		debouncer: NewDebouncer(250 * time.Millisecond),
		log:       log,
		patterns:  sourcePatterns,
		ignored:   ignored,
		onChange:  onChange,
		stopChan:  make(chan struct{}),
	}

	fw.debouncer.SetCallback(func(files []string) {
		if err := fw.onChange(files); err != nil {
			fw.log.Errorw("rebuild failed", "error", err)
		}
	})

	return fw, nil
}

// Start watches the given directories, descending into their
// subdirectories. fsnotify does not recurse on its own.
func (fw *FileWatcher) Start(roots ...string) error {
	for _, root := range roots {
		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() {
				return nil
			}
			if fw.shouldIgnore(path) {
				return filepath.SkipDir
			}
			if err := fw.watcher.Add(path); err != nil {
				return fmt.Errorf("failed to watch directory %s: %w", path, err)
			}
			fw.log.Debugw("watching", "dir", path)
			return nil
		})
		if err != nil {
			return err
		}
	}

	fw.wg.Add(1)
	go fw.watch()

	return nil
}

// Stop stops the file watcher.
func (fw *FileWatcher) Stop() error {
	select {
	case <-fw.stopChan:
		// Already stopped
		return nil
	default:
		close(fw.stopChan)
	}

	fw.wg.Wait()
	fw.debouncer.Stop()
	return fw.watcher.Close()
}

// watch is the main event loop.
func (fw *FileWatcher) watch() {
	defer fw.wg.Done()

	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			if fw.shouldIgnore(event.Name) {
				continue
			}

			// A created directory must be registered before events
			// inside it can arrive.
			if event.Op&fsnotify.Create == fsnotify.Create {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := fw.watcher.Add(event.Name); err != nil {
						fw.log.Warnw("cannot watch new directory", "dir", event.Name, "error", err)
					}
					continue
				}
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if fw.matchesPattern(event.Name) {
				fw.log.Infow("source changed", "file", event.Name)
				fw.debouncer.Add(event.Name)
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.log.Errorw("watch error", "error", err)

		case <-fw.stopChan:
			return
		}
	}
}

// shouldIgnore filters build output, hidden files and user-supplied
// ignore patterns.
func (fw *FileWatcher) shouldIgnore(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "build" {
			return true
		}
	}

	baseName := filepath.Base(path)
	if baseName != "." && strings.HasPrefix(baseName, ".") {
		return true
	}
	if strings.HasSuffix(baseName, ".tmp") {
		return true
	}

	for _, pattern := range fw.ignored {
		if matched, _ := filepath.Match(pattern, baseName); matched {
			return true
		}
	}

	return false
}

// matchesPattern checks if a file matches any of the watch patterns.
func (fw *FileWatcher) matchesPattern(path string) bool {
	if len(fw.patterns) == 0 {
		return true
	}

	base := filepath.Base(path)
	for _, pattern := range fw.patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}

	return false
}

// Debouncer collects file changes and triggers callbacks after a delay.
type Debouncer struct {
	duration time.Duration
	timer    *time.Timer
	files    map[string]struct{}
	mutex    sync.Mutex
	callback func([]string)
	stopChan chan struct{}
}

// NewDebouncer creates a new debouncer instance.
func NewDebouncer(duration time.Duration) *Debouncer {
	return &Debouncer{
		duration: duration,
		files:    make(map[string]struct{}),
		stopChan: make(chan struct{}),
	}
}

// Add adds a file to the debouncer, restarting the settle timer.
func (d *Debouncer) Add(file string) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.files[file] = struct{}{}

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.duration, func() {
		d.flush()
	})
}

// flush triggers the callback with accumulated files.
func (d *Debouncer) flush() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if len(d.files) == 0 {
		return
	}

	files := make([]string, 0, len(d.files))
	for file := range d.files {
		files = append(files, file)
	}

	d.files = make(map[string]struct{})

	if d.callback != nil {
		d.callback(files)
	}
}

// SetCallback sets the callback function.
func (d *Debouncer) SetCallback(callback func([]string)) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.callback = callback
}

// Stop stops the debouncer.
func (d *Debouncer) Stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}

	select {
	case <-d.stopChan:
		// Already stopped
	default:
		close(d.stopChan)
	}
}
