package hook

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

var errHomeUnset = errors.New("HOME is not set")

func homeDir() (string, error) {
	home := strings.TrimSpace(os.Getenv("HOME"))
	if home == "" {
		return "", errHomeUnset
	}
	if abs, err := filepath.Abs(home); err == nil {
		return abs, nil
	}
	return home, nil
}
