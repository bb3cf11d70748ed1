package hook

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/izzyreal/resethook/internal/protocol"
)

// FailFunc marks the current build step as failed.
type FailFunc func(message string)

type Resetter struct {
	// Remove defaults to os.RemoveAll.
	Remove func(path string) error
	// Lstat defaults to os.Lstat.
	Lstat func(path string) (fs.FileInfo, error)
}

// Reset ensures target does not exist. A removal error is reported through
// fail exactly once with failMessage and returned as a failed result.
func (r Resetter) Reset(target, failMessage string, fail FailFunc) protocol.TargetResult {
	lstat := r.Lstat
	if lstat == nil {
		lstat = os.Lstat
	}
	remove := r.Remove
	if remove == nil {
		remove = os.RemoveAll
	}

	if _, err := lstat(target); errors.Is(err, fs.ErrNotExist) {
		slog.Info("reset target does not exist, safe to proceed", "target", target)
		return protocol.TargetResult{Path: target, Status: protocol.TargetStatusAbsent}
	} else if err != nil {
		slog.Debug("reset target stat failed, removing anyway", "target", target, "error", err)
	}

	slog.Info("reset target exists, removing", "target", target)
	if err := remove(target); err != nil {
		err = fmt.Errorf("remove %q: %w", target, err)
		slog.Error("reset target removal failed", "target", target, "error", err)
		if fail != nil {
			fail(failMessage)
		}
		return protocol.TargetResult{Path: target, Status: protocol.TargetStatusFailed, Error: err.Error()}
	}
	slog.Info("reset target removed", "target", target)
	return protocol.TargetResult{Path: target, Status: protocol.TargetStatusRemoved}
}
