package git

import (
	"errors"
	"fmt"

	gitbackend "github.com/thiagokokada/gitviz-go/internal/git/backend"
)

var (
	// ErrNotAGitRepository means the path is not inside a git work tree. It is
	// reported once to the user instead of being retried.
	ErrNotAGitRepository = gitbackend.ErrNotRepository
	// ErrRepositoryRead matches every *ReadError.
	ErrRepositoryRead = errors.New("repository read failed")
)

// ReadError is a transient failure while enumerating repository state, e.g.
// a read racing with a concurrent git operation.
type ReadError struct {
	Op   string
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

func (e *ReadError) Is(target error) bool { return target == ErrRepositoryRead }
