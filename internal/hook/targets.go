package hook

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/izzyreal/resethook/internal/config"
)

// resolveTargets returns absolute reset targets under home: explicit targets
// in config order, then sorted pattern matches not already listed. Entries that
// name home itself or whose parent resolves outside home are skipped.
func resolveTargets(home string, cfg config.File) ([]string, error) {
	realHome, err := filepath.EvalSymlinks(home)
	if err != nil {
		realHome = filepath.Clean(home)
	}

	seen := map[string]struct{}{}
	out := make([]string, 0, len(cfg.Targets))
	add := func(rel string) {
		rel = filepath.Clean(filepath.FromSlash(rel))
		if rel == "." || !filepath.IsLocal(rel) {
			slog.Warn("skipping reset target outside home", "target", rel, "home", home)
			return
		}
		p := filepath.Join(home, rel)
		if _, ok := seen[p]; ok {
			return
		}
		if !parentInside(home, realHome, p) {
			slog.Warn("skipping reset target that resolves outside home", "target", p, "home", home)
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}

	for _, target := range cfg.Targets {
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		add(target)
	}

	if len(cfg.Patterns) == 0 {
		return out, nil
	}
	homeFS := os.DirFS(home)
	var matches []string
	for _, pattern := range cfg.Patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		ms, err := doublestar.Glob(homeFS, pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %q under %q: %w", pattern, home, err)
		}
		matches = append(matches, ms...)
	}
	sort.Strings(matches)
	for _, m := range matches {
		add(m)
	}
	return out, nil
}

// parentInside reports whether the nearest existing ancestor of target,
// with symlinks resolved, is realHome or below it. The target itself may be
// a symlink; RemoveAll deletes the link, not what it points to.
func parentInside(home, realHome, target string) bool {
	home = filepath.Clean(home)
	dir := filepath.Dir(target)
	for {
		resolved, err := filepath.EvalSymlinks(dir)
		if err == nil {
			rel, err := filepath.Rel(realHome, resolved)
			return err == nil && (rel == "." || filepath.IsLocal(rel))
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return false
		}
		if dir == home {
			// no home, nothing under it to delete
			return true
		}
		next := filepath.Dir(dir)
		if next == dir {
			return false
		}
		dir = next
	}
}
