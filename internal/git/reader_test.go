package git

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gitbackend "github.com/thiagokokada/gitviz-go/internal/git/backend"
	"github.com/thiagokokada/gitviz-go/internal/git/gittest"
	"github.com/thiagokokada/gitviz-go/internal/graph"
)

const (
	hashRoot  = "1111111111111111111111111111111111111111"
	hashChild = "2222222222222222222222222222222222222222"
)

func fakeRepo() *fakeBackend {
	t0 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	return &fakeBackend{
		repoPath: "repo",
		listRefsFunc: func() ([]gitbackend.Ref, error) {
			return []gitbackend.Ref{
				{Hash: hashChild, Kind: gitbackend.RefKindBranch, Name: "main", FullName: "refs/heads/main"},
				{Hash: hashRoot, Kind: gitbackend.RefKindTag, Name: "v1", FullName: "refs/tags/v1"},
				{Hash: hashRoot, Kind: gitbackend.RefKindStash, Name: "stash@{0}", FullName: "refs/stash"},
			}, nil
		},
		headStateFunc: func() (string, string, bool, error) {
			return hashChild, "main", true, nil
		},
		startLogStreamFunc: func([]string) (gitbackend.LogStream, error) {
			return &fakeStream{commits: []*gitbackend.Commit{
				{Hash: hashChild, ParentHashes: []string{hashRoot}, Message: "child\n\nbody", Committer: gitbackend.Signature{When: t0.Add(time.Hour)}},
				{Hash: hashRoot, Message: "root\n", Author: gitbackend.Signature{When: t0}},
			}}, nil
		},
	}
}

func TestReaderSnapshot(t *testing.T) {
	t.Parallel()

	f := fakeRepo()
	snap, err := NewReader(f.opener()).Snapshot(context.Background(), "repo")
	require.NoError(t, err)

	assert.Equal(t, []string{hashChild, hashRoot}, f.lastTips, "tips are deduplicated")
	require.Len(t, snap.Refs, 4)
	assert.Equal(t, graph.Ref{Kind: graph.KindHead, Name: "HEAD", FullName: "refs/heads/main", Target: hashChild}, snap.Refs[3])
	assert.Equal(t, graph.KindStash, snap.Refs[2].Kind)
	require.Len(t, snap.Commits, 2)
	assert.Equal(t, "child", snap.Commits[0].Subject)
	assert.Equal(t, "root", snap.Commits[1].Subject)
	assert.False(t, snap.Commits[1].When.IsZero(), "author time is used when committer time is missing")
}

func TestReaderReadGraph(t *testing.T) {
	t.Parallel()

	g, err := NewReader(fakeRepo().opener()).ReadGraph(context.Background(), "repo")
	require.NoError(t, err)

	hovers := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		hovers = append(hovers, n.Hover)
	}
	assert.Equal(t, []string{"root", "child", "main", "v1", "stash@{0}", "HEAD"}, hovers)
	assert.Len(t, g.Links, 5)
}

func TestReaderReadCommitsOrdered(t *testing.T) {
	t.Parallel()

	commits, err := NewReader(fakeRepo().opener()).ReadCommits(context.Background(), "repo")
	require.NoError(t, err)
	require.Len(t, commits, 2)
	assert.Equal(t, hashRoot, commits[0].Hash)
	assert.Equal(t, hashChild, commits[1].Hash)
}

func TestReaderDetachedHead(t *testing.T) {
	t.Parallel()

	f := fakeRepo()
	f.headStateFunc = func() (string, string, bool, error) { return hashRoot, "HEAD", true, nil }
	snap, err := NewReader(f.opener()).Snapshot(context.Background(), "repo")
	require.NoError(t, err)
	assert.Equal(t, "HEAD", snap.Refs[len(snap.Refs)-1].FullName)
}

func TestReaderErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	tests := []struct {
		name   string
		mutate func(f *fakeBackend)
		open   gitbackend.Opener
		is     error
		op     string
	}{
		{
			name: "not_a_repository",
			open: func(context.Context, string) (gitbackend.Backend, error) {
				return nil, ErrNotAGitRepository
			},
			is: ErrNotAGitRepository,
		},
		{
			name: "open_failure",
			open: func(context.Context, string) (gitbackend.Backend, error) { return nil, boom },
			is:   ErrRepositoryRead,
			op:   "open",
		},
		{
			name:   "refs_failure",
			mutate: func(f *fakeBackend) { f.listRefsFunc = func() ([]gitbackend.Ref, error) { return nil, boom } },
			is:     ErrRepositoryRead,
			op:     "list refs",
		},
		{
			name: "head_failure",
			mutate: func(f *fakeBackend) {
				f.headStateFunc = func() (string, string, bool, error) { return "", "", false, boom }
			},
			is: ErrRepositoryRead,
			op: "resolve HEAD",
		},
		{
			name: "stream_failure",
			mutate: func(f *fakeBackend) {
				f.startLogStreamFunc = func([]string) (gitbackend.LogStream, error) {
					return &fakeStream{err: boom}, nil
				}
			},
			is: ErrRepositoryRead,
			op: "read commits",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := fakeRepo()
			open := f.opener()
			if tt.open != nil {
				open = tt.open
			}
			if tt.mutate != nil {
				tt.mutate(f)
			}
			_, err := NewReader(open).ReadGraph(context.Background(), "repo")
			require.ErrorIs(t, err, tt.is)
			if tt.op == "" {
				assert.NotErrorIs(t, err, ErrRepositoryRead)
				return
			}
			var readErr *ReadError
			require.ErrorAs(t, err, &readErr)
			assert.Equal(t, tt.op, readErr.Op)
			assert.ErrorIs(t, err, boom)
		})
	}
}

func TestOpenerFor(t *testing.T) {
	t.Parallel()

	for _, kind := range []BackendKind{"", BackendNative, BackendCLI} {
		open, err := OpenerFor(kind)
		require.NoError(t, err)
		assert.NotNil(t, open)
	}
	_, err := OpenerFor("svn")
	assert.Error(t, err)
}

func TestReaderNativeRepository(t *testing.T) {
	t.Parallel()

	r := gittest.New(t)
	first := r.Commit(t, "first")
	r.Commit(t, "second")
	r.Tag(t, "v1", first)
	r.Stash(t, first)

	g, err := NewReader(nil).ReadGraph(context.Background(), r.Dir)
	require.NoError(t, err)

	hovers := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		hovers = append(hovers, n.Hover)
	}
	assert.Equal(t, []string{"first", "second", "main", "v1", "stash@{0}", "HEAD"}, hovers)

	again, err := NewReader(nil).ReadGraph(context.Background(), r.Dir)
	require.NoError(t, err)
	assert.False(t, graph.HasChanged(&g, again))
}

func TestReaderNativeNotARepository(t *testing.T) {
	t.Parallel()

	_, err := NewReader(nil).ReadGraph(context.Background(), t.TempDir())
	require.ErrorIs(t, err, ErrNotAGitRepository)
	assert.NotErrorIs(t, err, ErrRepositoryRead)
}
