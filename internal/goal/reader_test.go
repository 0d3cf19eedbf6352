package goal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thiagokokada/gitviz-go/internal/git"
	"github.com/thiagokokada/gitviz-go/internal/git/gittest"
	"github.com/thiagokokada/gitviz-go/internal/graph"
)

func hovers(g graph.Graph) []string {
	out := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		out = append(out, n.Hover)
	}
	return out
}

func TestReadGoalFromRepositories(t *testing.T) {
	t.Parallel()

	live := gittest.New(t)
	live.Commit(t, "live one")

	goalRepo := gittest.New(t)
	goalRepo.Commit(t, "goal one")
	second := goalRepo.Commit(t, "goal two")
	goalRepo.Tag(t, "v1", second)
	require.NoError(t, os.Rename(filepath.Join(goalRepo.Dir, ".git"), filepath.Join(live.Dir, DefaultDir)))

	r := NewReader("", git.NewReader(nil))
	assert.Equal(t, DefaultDir, r.Dir())
	assert.True(t, r.Available(live.Dir))

	g, err := r.ReadGoal(context.Background(), live.Dir)
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, []string{"goal one", "goal two", "main", "v1", "HEAD"}, hovers(*g))

	liveGraph, err := git.NewReader(nil).ReadGraph(context.Background(), live.Dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"live one", "main", "HEAD"}, hovers(liveGraph))
	assert.DirExists(t, filepath.Join(live.Dir, DefaultDir))
	assert.NoDirExists(t, filepath.Join(live.Dir, ".git.live"))
}

type graphReaderFunc func(ctx context.Context, path string) (graph.Graph, error)

func (f graphReaderFunc) ReadGraph(ctx context.Context, path string) (graph.Graph, error) {
	return f(ctx, path)
}

func TestReadGoalUnavailable(t *testing.T) {
	t.Parallel()

	root := newWorkspace(t, "custom_goal")
	boom := errors.New("boom")

	tests := []struct {
		name   string
		dir    string
		reader graphReaderFunc
		target error
	}{
		{
			name: "missing_directory",
			dir:  DefaultDir,
			reader: func(context.Context, string) (graph.Graph, error) {
				t.Fatal("reader must not run")
				return graph.Graph{}, nil
			},
		},
		{
			name: "read_failure",
			dir:  "custom_goal",
			reader: func(context.Context, string) (graph.Graph, error) {
				return graph.Graph{}, boom
			},
			target: boom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(tt.dir, tt.reader)
			g, err := r.ReadGoal(context.Background(), root)
			require.ErrorIs(t, err, ErrGoalUnavailable)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
			assert.Nil(t, g)
			assertRestored(t, root, "custom_goal")
		})
	}
}

func TestReadGoalSeesAlternateDirectory(t *testing.T) {
	t.Parallel()

	root := newWorkspace(t, DefaultDir)
	want := graph.Graph{Nodes: []graph.Node{{ID: "x", Hover: "goal"}}}
	r := NewReader(DefaultDir, graphReaderFunc(func(_ context.Context, path string) (graph.Graph, error) {
		assert.Equal(t, root, path)
		assert.Equal(t, DefaultDir, origin(t, filepath.Join(path, ".git")))
		return want, nil
	}))

	g, err := r.ReadGoal(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, want, *g)
	assertRestored(t, root, DefaultDir)
}

func TestReadGoalRepairsFailedRestore(t *testing.T) {
	root := newWorkspace(t, DefaultDir)
	livePath := filepath.Join(root, ".git")
	altPath := filepath.Join(root, DefaultDir)
	failed := false
	failRename(t, func(from, to string) bool {
		if !failed && from == livePath && to == altPath {
			failed = true
			return true
		}
		return false
	})
	r := NewReader(DefaultDir, graphReaderFunc(func(_ context.Context, path string) (graph.Graph, error) {
		return graph.Graph{Nodes: []graph.Node{{ID: "x", Hover: origin(t, filepath.Join(path, ".git"))}}}, nil
	}))

	_, err := r.ReadGoal(context.Background(), root)
	require.ErrorIs(t, err, ErrGoalUnavailable)
	assert.Equal(t, DefaultDir, origin(t, livePath))

	g, err := r.ReadGoal(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultDir}, hovers(*g))
	assertRestored(t, root, DefaultDir)
}

func TestReaderRecover(t *testing.T) {
	t.Parallel()

	root := newWorkspace(t, DefaultDir)
	r := NewReader(DefaultDir, nil)

	recovered, err := r.Recover(root)
	require.NoError(t, err)
	assert.False(t, recovered)

	require.NoError(t, os.Rename(filepath.Join(root, ".git"), filepath.Join(root, ".git.live")))
	require.NoError(t, os.Rename(filepath.Join(root, DefaultDir), filepath.Join(root, ".git")))
	assert.False(t, r.Available(root))

	recovered, err = r.Recover(root)
	require.NoError(t, err)
	assert.True(t, recovered)
	assert.True(t, r.Available(root))
	assertRestored(t, root, DefaultDir)
}
