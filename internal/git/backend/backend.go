package backend

import (
	"context"
	"errors"
)

// ErrNotRepository is returned by the openers when the path is not inside a
// git work tree.
var ErrNotRepository = errors.New("not a git repository")

// Backend abstracts access to repository data.
//
// The default implementation reads the repository with go-git, but the
// interface allows shelling out to the git executable without changing callers.
type Backend interface {
	RepoPath() string

	HeadState(ctx context.Context) (hash string, headName string, ok bool, err error)
	ListRefs(ctx context.Context) ([]Ref, error)
	// StartLogStream enumerates every commit reachable from tips, each exactly once.
	StartLogStream(ctx context.Context, tips []string) (LogStream, error)
}

type LogStream interface {
	Next() (*Commit, error)
	Close() error
}

// Opener opens a Backend rooted at the work tree containing path.
type Opener func(ctx context.Context, path string) (Backend, error)
