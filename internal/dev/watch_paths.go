package dev

import (
	"path/filepath"

	"github.com/xinpianchang/nextgo/internal/config"
)

// CollectWatchPaths returns the configured watch paths resolved against the
// config file's directory, cleaned and deduplicated.
func CollectWatchPaths(cfg *config.Config) []string {
	dir := cfg.Dir()
	paths := cfg.Watch.Paths
	if len(paths) == 0 {
		paths = []string{cfg.BuildDir}
	}

	unique := make([]string, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		clean := filepath.Clean(resolvePath(dir, p))
		if _, ok := seen[clean]; ok {
			continue
		}
		seen[clean] = struct{}{}
		unique = append(unique, clean)
	}
	return unique
}

func resolvePath(dir, p string) string {
	if filepath.IsAbs(p) || dir == "" {
		return p
	}
	return filepath.Join(dir, p)
}
