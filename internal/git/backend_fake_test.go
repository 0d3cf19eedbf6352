package git

import (
	"context"
	"errors"
	"io"

	gitbackend "github.com/thiagokokada/gitviz-go/internal/git/backend"
)

type fakeBackend struct {
	repoPath string

	headStateFunc      func() (hash string, headName string, ok bool, err error)
	listRefsFunc       func() ([]gitbackend.Ref, error)
	startLogStreamFunc func(tips []string) (gitbackend.LogStream, error)

	lastTips []string
}

func (f *fakeBackend) opener() gitbackend.Opener {
	return func(context.Context, string) (gitbackend.Backend, error) {
		return f, nil
	}
}

func (f *fakeBackend) RepoPath() string { return f.repoPath }

func (f *fakeBackend) HeadState(context.Context) (hash string, headName string, ok bool, err error) {
	if f.headStateFunc != nil {
		return f.headStateFunc()
	}
	return "", "", false, errors.New("unexpected HeadState call")
}

func (f *fakeBackend) ListRefs(context.Context) ([]gitbackend.Ref, error) {
	if f.listRefsFunc != nil {
		return f.listRefsFunc()
	}
	return nil, errors.New("unexpected ListRefs call")
}

func (f *fakeBackend) StartLogStream(_ context.Context, tips []string) (gitbackend.LogStream, error) {
	f.lastTips = tips
	if f.startLogStreamFunc != nil {
		return f.startLogStreamFunc(tips)
	}
	return nil, errors.New("unexpected StartLogStream call")
}

type fakeStream struct {
	commits []*gitbackend.Commit
	err     error
	closed  bool
}

func (s *fakeStream) Next() (*gitbackend.Commit, error) {
	if len(s.commits) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	c := s.commits[0]
	s.commits = s.commits[1:]
	return c, nil
}

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}
