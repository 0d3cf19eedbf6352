package goal

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newWorkspace creates root/.git and root/<alt>, each holding a marker file
// naming its origin.
func newWorkspace(t *testing.T, alt string) string {
	t.Helper()
	root := t.TempDir()
	for _, dir := range []string{".git", alt} {
		require.NoError(t, os.Mkdir(filepath.Join(root, dir), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(root, dir, "origin"), []byte(dir), 0o644))
	}
	return root
}

func origin(t *testing.T, dir string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(dir, "origin"))
	require.NoError(t, err)
	return string(b)
}

func assertRestored(t *testing.T, root, alt string) {
	t.Helper()
	assert.Equal(t, ".git", origin(t, filepath.Join(root, ".git")))
	assert.Equal(t, alt, origin(t, filepath.Join(root, alt)))
	assert.NoDirExists(t, filepath.Join(root, ".git.live"))
}

func TestSwapExposesAlternateDirectory(t *testing.T) {
	t.Parallel()

	root := newWorkspace(t, DefaultDir)
	called := false
	err := Swap(root, DefaultDir, func() error {
		called = true
		assert.Equal(t, DefaultDir, origin(t, filepath.Join(root, ".git")))
		assert.Equal(t, ".git", origin(t, filepath.Join(root, ".git.live")))
		assert.NoDirExists(t, filepath.Join(root, DefaultDir))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assertRestored(t, root, DefaultDir)
}

func TestSwapRestoresAfterError(t *testing.T) {
	t.Parallel()

	root := newWorkspace(t, DefaultDir)
	boom := errors.New("boom")
	err := Swap(root, DefaultDir, func() error { return boom })
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrGoalUnavailable)
	assertRestored(t, root, DefaultDir)
}

func TestSwapRestoresAfterPanic(t *testing.T) {
	t.Parallel()

	root := newWorkspace(t, DefaultDir)
	assert.PanicsWithValue(t, "boom", func() {
		_ = Swap(root, DefaultDir, func() error { panic("boom") })
	})
	assertRestored(t, root, DefaultDir)
}

func TestSwapWithoutLiveDirectory(t *testing.T) {
	t.Parallel()

	root := newWorkspace(t, "alt")
	require.NoError(t, os.RemoveAll(filepath.Join(root, ".git")))

	err := Swap(root, "alt", func() error {
		assert.Equal(t, "alt", origin(t, filepath.Join(root, ".git")))
		return nil
	})
	require.NoError(t, err)
	assert.NoDirExists(t, filepath.Join(root, ".git"))
	assert.Equal(t, "alt", origin(t, filepath.Join(root, "alt")))
}

func TestSwapUnavailable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(t *testing.T, root string)
	}{
		{
			name: "missing",
			setup: func(t *testing.T, root string) {
				require.NoError(t, os.RemoveAll(filepath.Join(root, DefaultDir)))
			},
		},
		{
			name: "not_a_directory",
			setup: func(t *testing.T, root string) {
				require.NoError(t, os.RemoveAll(filepath.Join(root, DefaultDir)))
				require.NoError(t, os.WriteFile(filepath.Join(root, DefaultDir), nil, 0o644))
			},
		},
		{
			name: "leftover_parked_directory",
			setup: func(t *testing.T, root string) {
				require.NoError(t, os.Mkdir(filepath.Join(root, ".git.live"), 0o755))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root := newWorkspace(t, DefaultDir)
			tt.setup(t, root)
			called := false
			err := Swap(root, DefaultDir, func() error {
				called = true
				return nil
			})
			require.ErrorIs(t, err, ErrGoalUnavailable)
			assert.False(t, called)
			assert.Equal(t, ".git", origin(t, filepath.Join(root, ".git")))
		})
	}
}

// Tests below replace the package-level rename and must not run in parallel.

func TestSwapExposeFailureRestoresLive(t *testing.T) {
	root := newWorkspace(t, DefaultDir)
	altPath := filepath.Join(root, DefaultDir)
	failRename(t, func(from, _ string) bool { return from == altPath })

	err := Swap(root, DefaultDir, func() error {
		t.Fatal("fn must not run")
		return nil
	})
	require.ErrorIs(t, err, ErrGoalUnavailable)
	assertRestored(t, root, DefaultDir)
}

func TestSwapRestoreFailureIsReported(t *testing.T) {
	root := newWorkspace(t, DefaultDir)
	livePath := filepath.Join(root, ".git")
	altPath := filepath.Join(root, DefaultDir)
	failRename(t, func(from, to string) bool { return from == livePath && to == altPath })

	boom := errors.New("boom")
	err := Swap(root, DefaultDir, func() error { return boom })
	require.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "restore")
	assert.DirExists(t, filepath.Join(root, ".git.live"))
}

func TestSwapRecoversAfterFailedRestore(t *testing.T) {
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

	require.Error(t, Swap(root, DefaultDir, func() error { return nil }))
	require.True(t, failed)

	called := false
	err := Swap(root, DefaultDir, func() error {
		called = true
		assert.Equal(t, DefaultDir, origin(t, livePath))
		assert.Equal(t, ".git", origin(t, filepath.Join(root, ".git.live")))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assertRestored(t, root, DefaultDir)
}

func TestSwapLeftoverRecoveryFailure(t *testing.T) {
	root := newWorkspace(t, DefaultDir)
	require.NoError(t, os.Rename(filepath.Join(root, ".git"), filepath.Join(root, ".git.live")))
	require.NoError(t, os.Rename(filepath.Join(root, DefaultDir), filepath.Join(root, ".git")))
	parkedPath := filepath.Join(root, ".git.live")
	failRename(t, func(from, _ string) bool { return from == parkedPath })

	err := Swap(root, DefaultDir, func() error {
		t.Fatal("fn must not run")
		return nil
	})
	require.ErrorIs(t, err, ErrGoalUnavailable)
	assert.ErrorContains(t, err, "interrupted swap")
	assert.DirExists(t, parkedPath)
	assert.NoDirExists(t, filepath.Join(root, ".git"))

	rename = os.Rename
	require.NoError(t, Swap(root, DefaultDir, func() error { return nil }))
	assertRestored(t, root, DefaultDir)
}

func failRename(t *testing.T, match func(from, to string) bool) {
	t.Helper()
	rename = func(from, to string) error {
		if match(from, to) {
			return &os.LinkError{Op: "rename", Old: from, New: to, Err: os.ErrPermission}
		}
		return os.Rename(from, to)
	}
	t.Cleanup(func() { rename = os.Rename })
}

func TestRecover(t *testing.T) {
	t.Parallel()

	t.Run("nothing_to_do", func(t *testing.T) {
		t.Parallel()
		root := newWorkspace(t, DefaultDir)
		recovered, err := Recover(root, DefaultDir)
		require.NoError(t, err)
		assert.False(t, recovered)
		assertRestored(t, root, DefaultDir)
	})

	t.Run("interrupted_swap", func(t *testing.T) {
		t.Parallel()
		root := newWorkspace(t, DefaultDir)
		require.NoError(t, os.Rename(filepath.Join(root, ".git"), filepath.Join(root, ".git.live")))
		require.NoError(t, os.Rename(filepath.Join(root, DefaultDir), filepath.Join(root, ".git")))

		recovered, err := Recover(root, DefaultDir)
		require.NoError(t, err)
		assert.True(t, recovered)
		assertRestored(t, root, DefaultDir)
	})

	t.Run("goal_already_moved_back", func(t *testing.T) {
		t.Parallel()
		root := newWorkspace(t, DefaultDir)
		require.NoError(t, os.Rename(filepath.Join(root, ".git"), filepath.Join(root, ".git.live")))

		recovered, err := Recover(root, DefaultDir)
		require.NoError(t, err)
		assert.True(t, recovered)
		assertRestored(t, root, DefaultDir)
	})

	t.Run("ambiguous", func(t *testing.T) {
		t.Parallel()
		root := newWorkspace(t, DefaultDir)
		require.NoError(t, os.Mkdir(filepath.Join(root, ".git.live"), 0o755))

		recovered, err := Recover(root, DefaultDir)
		require.Error(t, err)
		assert.False(t, recovered)
	})
}
