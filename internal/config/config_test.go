package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xinpianchang/nextgo/internal/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Port != DefaultPort {
		t.Errorf("Port = %d, want %d", cfg.Port, DefaultPort)
	}
	if cfg.BuildDir != DefaultBuildDir {
		t.Errorf("BuildDir = %q, want %q", cfg.BuildDir, DefaultBuildDir)
	}
	if cfg.Fetch.Mode != "header" || cfg.Fetch.Value != "Next-Fetch" {
		t.Errorf("Fetch = %+v", cfg.Fetch)
	}
	if len(cfg.Static.Extensions) != 9 {
		t.Errorf("Static.Extensions = %v", cfg.Static.Extensions)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(t.TempDir())
	if errors.Code(err) != "E100" {
		t.Fatalf("Load() error = %v, want E100", err)
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "nextgo.json", `{
  "port": 8080,
  "host": "0.0.0.0",
  "dev": true,
  "buildDir": "out",
  "fetch": {"mode": "param", "param": "_snapshot"},
  "metrics": {"enabled": true}
}
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 8080 || cfg.Host != "0.0.0.0" || !cfg.Dev {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Fetch.Mode != "param" || cfg.Fetch.Param != "_snapshot" {
		t.Errorf("Fetch = %+v", cfg.Fetch)
	}
	// Unset keys keep their defaults.
	if cfg.Fetch.Header != "X-Requested-With" {
		t.Errorf("Fetch.Header = %q", cfg.Fetch.Header)
	}
	if len(cfg.Watch.Paths) != 1 || cfg.Watch.Paths[0] != "out" {
		t.Errorf("Watch.Paths = %v", cfg.Watch.Paths)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Path != DefaultMetricsPath {
		t.Errorf("Metrics = %+v", cfg.Metrics)
	}
	if cfg.Address() != "0.0.0.0:8080" {
		t.Errorf("Address() = %q", cfg.Address())
	}
	if cfg.Dir() != dir {
		t.Errorf("Dir() = %q, want %q", cfg.Dir(), dir)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "nextgo.yaml", `port: 4000
useFileSystemPublicRoutes: false
assetPrefix: https://cdn.example.com
static:
  allowOriginPatterns: ['^https://example\.com$']
s3:
  bucket: builds
  prefix: site/
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 4000 {
		t.Errorf("Port = %d", cfg.Port)
	}
	if cfg.S3 == nil || cfg.S3.Bucket != "builds" || cfg.S3.Prefix != "site/" {
		t.Errorf("S3 = %+v", cfg.S3)
	}

	app := cfg.App()
	if app.UseFileSystemPublicRoutes {
		t.Error("UseFileSystemPublicRoutes should be false")
	}
	if app.AssetPrefix != "https://cdn.example.com" {
		t.Errorf("AssetPrefix = %q", app.AssetPrefix)
	}
	if len(app.Static.AllowOriginPatterns) != 1 {
		t.Errorf("AllowOriginPatterns = %v", app.Static.AllowOriginPatterns)
	}
}

func TestLoadPrefersJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "nextgo.yml", "port: 1111\n")
	writeFile(t, dir, "nextgo.json", `{"port": 2222}`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 2222 {
		t.Errorf("Port = %d, want 2222", cfg.Port)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "nextgo.yaml", "")
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("Port = %d", cfg.Port)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  string
		wantCode string
		wantLine int
	}{
		{"invalid json", "nextgo.json", "not valid json", "E101", 1},
		{"unknown key", "nextgo.json", "{\n  \"port\": 3000,\n  \"prot\": 3001\n}\n", "E102", 3},
		{"wrong type", "nextgo.yaml", "port: 3000\ndev: yes please\n", "E102", 0},
		{"bad mode", "nextgo.yaml", "fetch:\n  mode: query\n", "E102", 0},
		{"extension without dot", "nextgo.yaml", "static:\n  extensions: [js]\n", "E102", 0},
		{"bucket required", "nextgo.yaml", "s3:\n  prefix: site/\n", "E102", 0},
		{"port out of range", "nextgo.json", `{"port": 70000}`, "E104", 0},
		{"bad pattern", "nextgo.yaml", "static:\n  allowOriginPatterns: ['(']\n", "E103", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), tt.file, tt.content)
			_, err := LoadFile(path)
			if got := errors.Code(err); got != tt.wantCode {
				t.Fatalf("code = %q, want %q (err: %v)", got, tt.wantCode, err)
			}
			if tt.wantLine == 0 {
				return
			}
			e := errors.FromError(err, "")
			if e.Location == nil {
				t.Fatalf("no location in %v", err)
			}
			if e.Location.Line != tt.wantLine {
				t.Errorf("line = %d, want %d", e.Location.Line, tt.wantLine)
			}
		})
	}
}

func TestSave(t *testing.T) {
	for _, name := range []string{"nextgo.json", "nextgo.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)

			cfg := New()
			cfg.Port = 9000
			if err := cfg.Save(); err == nil {
				t.Error("Save() without a path should fail")
			}
			if err := cfg.SaveTo(path); err != nil {
				t.Fatalf("SaveTo() error = %v", err)
			}

			loaded, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile() error = %v", err)
			}
			if loaded.Port != 9000 {
				t.Errorf("Port = %d, want 9000", loaded.Port)
			}

			loaded.Port = 9001
			if err := loaded.Save(); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			reloaded, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile() error = %v", err)
			}
			if reloaded.Port != 9001 {
				t.Errorf("Port = %d, want 9001", reloaded.Port)
			}
		})
	}
}

func TestSavedJSONEndsWithNewline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nextgo.json")
	if err := New().SaveTo(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(string(data), "}\n") {
		t.Errorf("file should end with a newline: %q", data[len(data)-5:])
	}
}

func TestValidate(t *testing.T) {
	cfg := New()
	cfg.Port = -1
	if errors.Code(cfg.Validate()) != "E104" {
		t.Error("negative port should fail with E104")
	}

	cfg = New()
	cfg.HotReloadPattern = "[a-"
	if errors.Code(cfg.Validate()) != "E103" {
		t.Error("invalid hot reload pattern should fail with E103")
	}

	cfg = New()
	cfg.Fetch.Mode = "sometimes"
	if errors.Code(cfg.Validate()) != "E102" {
		t.Error("unknown fetch mode should fail with E102")
	}
}

func TestLogger(t *testing.T) {
	cfg := New()
	if cfg.Logger() == nil {
		t.Fatal("Logger() = nil")
	}
	cfg.Dev = true
	if !cfg.Logger().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("development logger should log debug records")
	}
}
