package provider

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoWorkspace matches every *WorkspaceError.
var ErrNoWorkspace = errors.New("no workspace")

// WorkspaceError reports that zero or several workspaces were opened.
type WorkspaceError struct {
	Opened int
}

func (e *WorkspaceError) Error() string {
	if e.Opened == 0 {
		return "no workspace opened"
	}
	return fmt.Sprintf("more than 1 workspace opened (%d)", e.Opened)
}

func (e *WorkspaceError) Is(target error) bool { return target == ErrNoWorkspace }

// Notice is the message shown to the user for this condition.
func (e *WorkspaceError) Notice() string {
	if e.Opened == 0 {
		return "No workspace opened! Please open only 1 workspace."
	}
	return "More than 1 workspace opened! Please open only 1 workspace."
}

const noticeNotAGitRepository = "Workspace is not a git repository! Please run 'git init' in the terminal."

// Workspace returns the single workspace root among paths.
func Workspace(paths []string) (string, error) {
	if len(paths) != 1 {
		return "", &WorkspaceError{Opened: len(paths)}
	}
	root, err := filepath.Abs(paths[0])
	if err != nil {
		return "", fmt.Errorf("resolve workspace %s: %w", paths[0], err)
	}
	return root, nil
}

// hasGitDir reports whether root/.git exists. Worktrees and submodules use a
// .git file, which is accepted too.
func hasGitDir(root string) bool {
	_, err := os.Stat(filepath.Join(root, ".git"))
	return err == nil
}
