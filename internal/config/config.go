package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/izzyreal/resethook/internal/protocol"
)

const (
	DefaultFileName    = "resethook.yaml"
	DefaultTarget      = "flutter"
	DefaultFailMessage = "Failed to clean up Flutter directory"
)

type File struct {
	Version     int      `yaml:"version" json:"version"`
	Hook        string   `yaml:"hook,omitempty" json:"hook,omitempty"`
	Targets     []string `yaml:"targets,omitempty" json:"targets,omitempty"`
	Patterns    []string `yaml:"patterns,omitempty" json:"patterns,omitempty"`
	FailMessage string   `yaml:"fail_message,omitempty" json:"fail_message,omitempty"`
	HistoryDB   string   `yaml:"history_db,omitempty" json:"history_db,omitempty"`
}

func Default() File {
	return File{
		Version:     1,
		Hook:        string(protocol.EventOnInit),
		Targets:     []string{DefaultTarget},
		FailMessage: DefaultFailMessage,
	}
}

// CleanupEvent is the single lifecycle event that performs the reset.
func (cfg File) CleanupEvent() protocol.Event {
	ev, err := protocol.ParseEvent(cfg.Hook)
	if err != nil {
		return protocol.EventOnInit
	}
	return ev
}

func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read config file %q: %w", path, err)
	}

	return Parse(data, path)
}

// LoadFromEnv reads RESETHOOK_CONFIG, falls back to ./resethook.yaml when present
// and to Default() otherwise. RESETHOOK_HISTORY_DB overrides history_db.
func LoadFromEnv() (File, string, error) {
	path := strings.TrimSpace(os.Getenv("RESETHOOK_CONFIG"))
	cfg := Default()
	source := "defaults"
	if path == "" {
		if _, err := os.Stat(DefaultFileName); err == nil {
			path = DefaultFileName
		} else if !errors.Is(err, fs.ErrNotExist) {
			return File{}, "", fmt.Errorf("stat %q: %w", DefaultFileName, err)
		}
	}
	if path != "" {
		loaded, err := Load(path)
		if err != nil {
			return File{}, "", err
		}
		cfg = loaded
		source = path
	}
	if db := strings.TrimSpace(os.Getenv("RESETHOOK_HISTORY_DB")); db != "" {
		cfg.HistoryDB = db
	}
	return cfg, source, nil
}

func Parse(data []byte, source string) (File, error) {
	var cfg File

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse YAML in %q: %w", source, err)
	}
	cfg.applyDefaults()

	if errs := cfg.Validate(); len(errs) > 0 {
		return cfg, fmt.Errorf("invalid config in %q: %s", source, strings.Join(errs, "; "))
	}
	return cfg, nil
}

func (cfg *File) applyDefaults() {
	if strings.TrimSpace(cfg.Hook) == "" {
		cfg.Hook = string(protocol.EventOnInit)
	}
	if len(cfg.Targets) == 0 && len(cfg.Patterns) == 0 {
		cfg.Targets = []string{DefaultTarget}
	}
	if strings.TrimSpace(cfg.FailMessage) == "" {
		cfg.FailMessage = DefaultFailMessage
	}
}

func (cfg File) Validate() []string {
	var errs []string

	if cfg.Version != 1 {
		errs = append(errs, fmt.Sprintf("unsupported config version %d", cfg.Version))
	}
	if _, err := protocol.ParseEvent(cfg.Hook); err != nil {
		errs = append(errs, fmt.Sprintf("hook must be one of %s,%s", protocol.EventOnInit, protocol.EventOnPreBuild))
	}
	if len(cfg.Targets) == 0 && len(cfg.Patterns) == 0 {
		errs = append(errs, "targets or patterns must contain at least one entry")
	}

	seen := map[string]struct{}{}
	for i, target := range cfg.Targets {
		target = strings.TrimSpace(target)
		if target == "" {
			errs = append(errs, fmt.Sprintf("targets[%d] is required", i))
			continue
		}
		clean := filepath.Clean(filepath.FromSlash(target))
		if !filepath.IsLocal(clean) || clean == "." {
			errs = append(errs, fmt.Sprintf("targets[%d] %q must be a relative path inside the home directory", i, target))
			continue
		}
		if _, ok := seen[clean]; ok {
			errs = append(errs, fmt.Sprintf("targets[%d] duplicate %q", i, target))
		}
		seen[clean] = struct{}{}
	}

	for i, pattern := range cfg.Patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			errs = append(errs, fmt.Sprintf("patterns[%d] is required", i))
			continue
		}
		if strings.HasPrefix(pattern, "/") || strings.Contains(pattern, "..") {
			errs = append(errs, fmt.Sprintf("patterns[%d] %q must stay inside the home directory", i, pattern))
			continue
		}
		if !doublestar.ValidatePattern(pattern) {
			errs = append(errs, fmt.Sprintf("patterns[%d] %q is not a valid glob", i, pattern))
			continue
		}
		if MatchesHome(pattern) {
			errs = append(errs, fmt.Sprintf("patterns[%d] %q can match the home directory itself", i, pattern))
		}
	}

	return errs
}

// MatchesHome reports whether pattern can select "." (the home directory).
func MatchesHome(pattern string) bool {
	pattern = strings.TrimSpace(pattern)
	if path.Clean(pattern) == "." {
		return true
	}
	if ok, err := doublestar.Match(pattern, "."); err == nil && ok {
		return true
	}
	for _, seg := range strings.Split(strings.Trim(pattern, "/"), "/") {
		if seg != "**" && seg != "." && seg != "" {
			return false
		}
	}
	return true
}
