package dev

import (
	"context"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ChangeKind classifies a changed build output.
type ChangeKind int

const (
	ChangeAsset ChangeKind = iota
	ChangeScript
	ChangeStyle
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeScript:
		return "script"
	case ChangeStyle:
		return "style"
	default:
		return "asset"
	}
}

// Change is a created, modified or removed file.
type Change struct {
	Path string
	Kind ChangeKind
}

// WatcherConfig configures the file watcher.
type WatcherConfig struct {
	// Paths are the files or directories to watch.
	Paths []string

	// Ignore holds glob patterns matched against base names, or against
	// the slash-separated path when they contain a separator. Patterns
	// without glob characters match whole path segments.
	Ignore []string

	// Interval is the polling interval. Defaults to 250ms.
	Interval time.Duration
}

// Watcher polls the build output for changes.
type Watcher struct {
	config   WatcherConfig
	onChange func([]Change)

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	mtimes  map[string]time.Time
}

// NewWatcher creates a new file watcher.
func NewWatcher(config WatcherConfig) *Watcher {
	if config.Interval <= 0 {
		config.Interval = 250 * time.Millisecond
	}
	return &Watcher{config: config}
}

// OnChange sets the callback. It receives every change found in one poll.
func (w *Watcher) OnChange(fn func([]Change)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Start polls until ctx is done or Stop is called. Files present when
// Start is called are not reported.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	stopCh := w.stopCh
	w.mtimes = w.scan()
	w.mu.Unlock()

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			w.poll()
		}
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		close(w.stopCh)
		w.running = false
	}
}

// IsRunning returns whether the watcher is running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) poll() {
	current := w.scan()

	w.mu.Lock()
	previous := w.mtimes
	w.mtimes = current
	callback := w.onChange
	w.mu.Unlock()

	var changes []Change
	for p, mtime := range current {
		if last, ok := previous[p]; !ok || mtime.After(last) {
			changes = append(changes, Change{Path: p, Kind: classify(p)})
		}
	}
	for p := range previous {
		if _, ok := current[p]; !ok {
			changes = append(changes, Change{Path: p, Kind: classify(p)})
		}
	}

	if len(changes) > 0 && callback != nil {
		callback(changes)
	}
}

// scan records the modification time of every watched file.
func (w *Watcher) scan() map[string]time.Time {
	mtimes := make(map[string]time.Time)
	for _, root := range w.config.Paths {
		_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if w.ignored(p) {
				if d.IsDir() && p != root {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			mtimes[p] = info.ModTime()
			return nil
		})
	}
	return mtimes
}

func (w *Watcher) ignored(fullPath string) bool {
	name := filepath.Base(fullPath)
	normalized := filepath.ToSlash(fullPath)

	for _, pattern := range w.config.Ignore {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if name == pattern {
			return true
		}

		hasSep := strings.Contains(pattern, "/")
		if strings.ContainsAny(pattern, "*?[") {
			subject := name
			if hasSep {
				subject = normalized
			}
			if ok, _ := path.Match(pattern, subject); ok {
				return true
			}
			continue
		}
		if containsSegments(normalized, pattern) {
			return true
		}
	}
	return false
}

// containsSegments reports whether the segments of pattern appear
// consecutively in p.
func containsSegments(p, pattern string) bool {
	have := segments(p)
	want := segments(pattern)
	if len(want) == 0 || len(want) > len(have) {
		return false
	}
	for i := 0; i+len(want) <= len(have); i++ {
		match := true
		for j := range want {
			if have[i+j] != want[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func segments(p string) []string {
	var out []string
	for _, part := range strings.Split(p, "/") {
		if part != "" && part != "." {
			out = append(out, part)
		}
	}
	return out
}

func classify(p string) ChangeKind {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".css":
		return ChangeStyle
	case ".js", ".mjs", ".map":
		return ChangeScript
	default:
		return ChangeAsset
	}
}
