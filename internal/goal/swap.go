// Package goal reads the target repository state kept in an alternate
// metadata directory next to the live .git directory.
package goal

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	// DefaultDir is the name of the alternate metadata directory.
	DefaultDir = ".goal_git"

	liveDir      = ".git"
	parkedSuffix = ".live"
)

// ErrGoalUnavailable means the goal directory is missing or could not be
// swapped into place.
var ErrGoalUnavailable = errors.New("goal unavailable")

// rename is replaced in tests to inject failures.
var rename = os.Rename

// Swap temporarily exposes root/alt as root/.git while fn runs: the live .git
// is parked as .git.live, alt takes its place, and both names are restored on
// every exit path, including a panic in fn. Restore failures are joined into
// the returned error; a layout left behind by one is recovered on the next call.
func Swap(root, alt string, fn func() error) (err error) {
	altPath := filepath.Join(root, alt)
	livePath := filepath.Join(root, liveDir)
	parkedPath := livePath + parkedSuffix

	if _, err := os.Lstat(parkedPath); err == nil {
		if _, rerr := Recover(root, alt); rerr != nil {
			return fmt.Errorf("%w: %s left over from an interrupted swap: %w", ErrGoalUnavailable, parkedPath, rerr)
		}
	}
	info, err := os.Stat(altPath)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrGoalUnavailable, altPath)
	}

	parked := false
	if _, err := os.Lstat(livePath); err == nil {
		if err := rename(livePath, parkedPath); err != nil {
			return fmt.Errorf("%w: park %s: %v", ErrGoalUnavailable, livePath, err)
		}
		parked = true
	}
	if err := rename(altPath, livePath); err != nil {
		swapErr := fmt.Errorf("%w: expose %s: %v", ErrGoalUnavailable, altPath, err)
		if parked {
			if rerr := rename(parkedPath, livePath); rerr != nil {
				return errors.Join(swapErr, fmt.Errorf("restore %s: %w", livePath, rerr))
			}
		}
		return swapErr
	}
	slog.Debug("goal directory swapped in", slog.String("root", root), slog.String("dir", alt))

	defer func() {
		var restoreErr error
		if rerr := rename(livePath, altPath); rerr != nil {
			restoreErr = fmt.Errorf("restore %s: %w", altPath, rerr)
		} else if parked {
			if rerr := rename(parkedPath, livePath); rerr != nil {
				restoreErr = fmt.Errorf("restore %s: %w", livePath, rerr)
			}
		}
		if restoreErr != nil {
			slog.Error("goal swap restore failed", slog.String("root", root), slog.Any("error", restoreErr))
			err = errors.Join(err, restoreErr)
			return
		}
		slog.Debug("goal directory swapped out", slog.String("root", root), slog.String("dir", alt))
	}()

	return fn()
}

// Recover undoes a swap that could not restore the directory names, e.g.
// because a rename failed or the process was killed. It reports whether
// anything was moved.
func Recover(root, alt string) (bool, error) {
	livePath := filepath.Join(root, liveDir)
	parkedPath := livePath + parkedSuffix
	altPath := filepath.Join(root, alt)

	if _, err := os.Lstat(parkedPath); err != nil {
		return false, nil
	}
	_, liveErr := os.Lstat(livePath)
	if _, err := os.Lstat(altPath); err == nil {
		if liveErr == nil {
			return false, fmt.Errorf("cannot recover goal swap: %s, %s and %s all exist", livePath, parkedPath, altPath)
		}
	} else if liveErr == nil {
		if err := rename(livePath, altPath); err != nil {
			return false, fmt.Errorf("recover %s: %w", altPath, err)
		}
	}
	if err := rename(parkedPath, livePath); err != nil {
		return true, fmt.Errorf("recover %s: %w", livePath, err)
	}
	slog.Info("recovered interrupted goal swap", slog.String("root", root))
	return true, nil
}
