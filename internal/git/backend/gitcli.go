package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// gitCLI reads repository state by running the git executable in path.
type gitCLI struct {
	path string
}

// CommandError is a failed git invocation together with what it printed on
// stderr.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	name := "git"
	if len(e.Args) > 0 {
		name += " " + e.Args[0]
	}
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %v: %s", name, e.Err, e.Stderr)
	}
	return fmt.Sprintf("%s: %v", name, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// notFound reports whether git exited with status 1 and printed nothing,
// which the -q forms of rev-parse, symbolic-ref and show-ref use for "no such
// ref".
func (e *CommandError) notFound() bool {
	var exitErr *exec.ExitError
	return errors.As(e.Err, &exitErr) && exitErr.ExitCode() == 1 && e.Stderr == ""
}

// OpenCLI opens the repository containing repoPath through the git executable.
func OpenCLI(ctx context.Context, repoPath string) (Backend, error) {
	if err := ensureMinGitVersion(); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}
	root, err := (&gitCLI{path: abs}).git(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) && strings.Contains(strings.ToLower(cmdErr.Stderr), "not a git repository") {
			return nil, fmt.Errorf("open repository %s: %w", abs, ErrNotRepository)
		}
		return nil, fmt.Errorf("open repository %s: %w", abs, err)
	}
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("open repository %s: git rev-parse returned empty root", abs)
	}
	return &gitCLI{path: root}, nil
}

func (g *gitCLI) RepoPath() string { return g.path }

// git runs a git subcommand in the repository and returns its stdout.
func (g *gitCLI) git(ctx context.Context, args ...string) (string, error) {
	if g.path == "" {
		return "", errors.New("repository root not set")
	}
	cmd := exec.CommandContext(ctx, "git", append([]string{"--no-pager", "-C", g.path}, args...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", &CommandError{Args: args, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return stdout.String(), nil
}

// gitQuiet is git for commands where an empty exit 1 means "nothing found";
// that case yields empty output and no error.
func (g *gitCLI) gitQuiet(ctx context.Context, args ...string) (string, error) {
	out, err := g.git(ctx, args...)
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) && cmdErr.notFound() {
		return "", nil
	}
	return out, err
}
