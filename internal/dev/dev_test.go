package dev

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/xinpianchang/nextgo/internal/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func startWatcher(t *testing.T, config WatcherConfig) <-chan []Change {
	t.Helper()
	config.Interval = 20 * time.Millisecond
	w := NewWatcher(config)

	changes := make(chan []Change, 10)
	w.OnChange(func(c []Change) { changes <- c })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go w.Start(ctx)

	deadline := time.Now().Add(time.Second)
	for !w.IsRunning() {
		if time.Now().After(deadline) {
			t.Fatal("watcher did not start")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return changes
}

// waitFor returns the first reported change for path.
func waitFor(t *testing.T, changes <-chan []Change, path string) Change {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case batch := <-changes:
			for _, c := range batch {
				if c.Path == path {
					return c
				}
			}
		case <-timeout:
			t.Fatalf("timeout waiting for a change to %s", path)
			return Change{}
		}
	}
}

func TestWatcher_Modify(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "main.js")
	writeFile(t, file, "console.log(1)")
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(file, old, old); err != nil {
		t.Fatal(err)
	}

	changes := startWatcher(t, WatcherConfig{Paths: []string{dir}})

	writeFile(t, file, "console.log(2)")

	if got := waitFor(t, changes, file); got.Kind != ChangeScript {
		t.Errorf("Kind = %v, want script", got.Kind)
	}
}

func TestWatcher_CreateAndRemove(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "app.css")
	writeFile(t, existing, "body{}")

	changes := startWatcher(t, WatcherConfig{Paths: []string{dir}})

	created := filepath.Join(dir, "static", "logo.svg")
	writeFile(t, created, "<svg/>")
	if got := waitFor(t, changes, created); got.Kind != ChangeAsset {
		t.Errorf("Kind = %v, want asset", got.Kind)
	}

	if err := os.Remove(existing); err != nil {
		t.Fatal(err)
	}
	if got := waitFor(t, changes, existing); got.Kind != ChangeStyle {
		t.Errorf("Kind = %v, want style", got.Kind)
	}
}

func TestWatcher_IgnoredFiles(t *testing.T) {
	dir := t.TempDir()
	changes := startWatcher(t, WatcherConfig{
		Paths:  []string{dir},
		Ignore: []string{".*", "*.swp", "cache"},
	})

	writeFile(t, filepath.Join(dir, ".hidden.js"), "x")
	writeFile(t, filepath.Join(dir, "main.js.swp"), "x")
	writeFile(t, filepath.Join(dir, "cache", "chunk.js"), "x")
	writeFile(t, filepath.Join(dir, "main.js"), "x")

	waitFor(t, changes, filepath.Join(dir, "main.js"))
	// Nothing else arrives once the ignored files have been polled.
	select {
	case batch := <-changes:
		t.Errorf("unexpected changes: %+v", batch)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatcher_Stop(t *testing.T) {
	w := NewWatcher(WatcherConfig{Paths: []string{t.TempDir()}, Interval: 10 * time.Millisecond})
	done := make(chan error, 1)
	go func() { done <- w.Start(context.Background()) }()

	for !w.IsRunning() {
		time.Sleep(5 * time.Millisecond)
	}
	w.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Start did not return after Stop")
	}
	if w.IsRunning() {
		t.Error("watcher should not be running")
	}
}

func TestIgnored(t *testing.T) {
	w := NewWatcher(WatcherConfig{Ignore: []string{"tmp", "*~", "static/media/*.png", "a/b"}})

	tests := []struct {
		path string
		want bool
	}{
		{filepath.Join("build", "tmp", "x.js"), true},
		{filepath.Join("build", "attempt.js"), false},
		{filepath.Join("build", "main.js~"), true},
		{"static/media/logo.png", true},
		{"static/logo.png", false},
		{filepath.Join("x", "a", "b", "c.js"), true},
		{filepath.Join("x", "a", "c", "b.js"), false},
	}
	for _, tt := range tests {
		if got := w.ignored(tt.path); got != tt.want {
			t.Errorf("ignored(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		path string
		want ChangeKind
	}{
		{"main.js", ChangeScript},
		{"chunk.MJS", ChangeScript},
		{"main.js.map", ChangeScript},
		{"app.css", ChangeStyle},
		{"logo.png", ChangeAsset},
		{"build-manifest.json", ChangeAsset},
	}
	for _, tt := range tests {
		if got := classify(tt.path); got != tt.want {
			t.Errorf("classify(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestCollectWatchPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nextgo.yaml")
	writeFile(t, path, "watch:\n  paths: [build, ./build, /abs/out, '']\n")

	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	got := CollectWatchPaths(cfg)
	want := []string{filepath.Join(dir, "build"), "/abs/out"}
	if len(got) != len(want) {
		t.Fatalf("paths = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("paths[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	// Without a file the build directory is used as is.
	if got := CollectWatchPaths(config.New()); len(got) != 1 || got[0] != config.DefaultBuildDir {
		t.Errorf("default paths = %v", got)
	}
}

func TestReloadServer_Ping(t *testing.T) {
	rs := NewReloadServer(nil)
	rr := httptest.NewRecorder()
	rs.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/_next/on-demand-entries-ping?page=/", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d", rr.Code)
	}
	if strings.TrimSpace(rr.Body.String()) != `{"success":true}` {
		t.Errorf("body = %q", rr.Body.String())
	}

	rr = httptest.NewRecorder()
	rs.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/_next/hot-reload", nil))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("plain GET status = %d, want 400", rr.Code)
	}
}

func dialReload(t *testing.T, rs *ReloadServer) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(rs)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/_next/hot-reload", nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(time.Second)
	for rs.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client was not registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestReloadServer_Notify(t *testing.T) {
	rs := NewReloadServer(nil)
	conn := dialReload(t, rs)

	if n := rs.Notify(MessageReload); n != 1 {
		t.Errorf("Notify() = %d, want 1", n)
	}
	if got := readMessage(t, conn); got != "reload" {
		t.Errorf("message = %q, want reload", got)
	}

	rs.Close()
	if rs.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d after Close", rs.ClientCount())
	}
}

func TestServer_HandleChanges(t *testing.T) {
	var notified []int
	srv := NewServer(Options{
		Config: config.New(),
		OnChange: func(_ []Change, clients int) {
			notified = append(notified, clients)
		},
	})
	conn := dialReload(t, srv.Reload())

	srv.handleChanges([]Change{{Path: "app.css", Kind: ChangeStyle}})
	if got := readMessage(t, conn); got != "css" {
		t.Errorf("style-only change sent %q, want css", got)
	}

	srv.handleChanges([]Change{
		{Path: "app.css", Kind: ChangeStyle},
		{Path: "main.js", Kind: ChangeScript},
	})
	if got := readMessage(t, conn); got != "reload" {
		t.Errorf("mixed change sent %q, want reload", got)
	}

	if len(notified) != 2 || notified[0] != 1 {
		t.Errorf("OnChange clients = %v", notified)
	}
}

func TestServer_Run(t *testing.T) {
	dir := t.TempDir()
	cfg := config.New()
	cfg.Watch.Paths = []string{dir}

	changed := make(chan int, 1)
	srv := NewServer(Options{
		Config:   cfg,
		Interval: 20 * time.Millisecond,
		OnChange: func(changes []Change, _ int) { changed <- len(changes) },
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	deadline := time.Now().Add(time.Second)
	for !srv.watcher.IsRunning() {
		if time.Now().After(deadline) {
			t.Fatal("watcher did not start")
		}
		time.Sleep(5 * time.Millisecond)
	}
	writeFile(t, filepath.Join(dir, "main.js"), "x")

	select {
	case n := <-changed:
		if n != 1 {
			t.Errorf("changes = %d, want 1", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for change")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() = %v, want nil", err)
	}
}
