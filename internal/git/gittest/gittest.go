// Package gittest builds throwaway repositories for tests.
package gittest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

var baseTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type Repo struct {
	Dir  string
	Repo *gitlib.Repository

	commits int
	stashes []plumbing.Hash
}

// New initializes an empty repository on branch main in a temporary directory.
func New(t testing.TB) *Repo {
	t.Helper()
	return NewAt(t, t.TempDir())
}

// NewAt initializes an empty repository in dir.
func NewAt(t testing.TB, dir string) *Repo {
	t.Helper()
	repo, err := gitlib.PlainInitWithOptions(dir, &gitlib.PlainInitOptions{
		InitOptions: gitlib.InitOptions{DefaultBranch: plumbing.Main},
	})
	if err != nil {
		t.Fatalf("init repository: %v", err)
	}
	return &Repo{Dir: dir, Repo: repo}
}

func signature(n int) *object.Signature {
	return &object.Signature{
		Name:  "Test",
		Email: "test@example.com",
		When:  baseTime.Add(time.Duration(n) * time.Minute),
	}
}

// Commit writes a file and commits it on the current branch.
func (r *Repo) Commit(t testing.TB, msg string) plumbing.Hash {
	t.Helper()
	r.commits++
	name := fmt.Sprintf("file%d.txt", r.commits)
	if err := os.WriteFile(filepath.Join(r.Dir, name), []byte(msg+"\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	wt, err := r.Repo.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}
	if _, err := wt.Add(name); err != nil {
		t.Fatalf("add: %v", err)
	}
	h, err := wt.Commit(msg, &gitlib.CommitOptions{Author: signature(r.commits)})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	return h
}

func (r *Repo) setRef(t testing.TB, name plumbing.ReferenceName, h plumbing.Hash) {
	t.Helper()
	if err := r.Repo.Storer.SetReference(plumbing.NewHashReference(name, h)); err != nil {
		t.Fatalf("set reference %s: %v", name, err)
	}
}

func (r *Repo) Branch(t testing.TB, name string, h plumbing.Hash) {
	t.Helper()
	r.setRef(t, plumbing.NewBranchReferenceName(name), h)
}

// RemoteBranch creates refs/remotes/<remote>/<branch>.
func (r *Repo) RemoteBranch(t testing.TB, remote, branch string, h plumbing.Hash) {
	t.Helper()
	r.setRef(t, plumbing.NewRemoteReferenceName(remote, branch), h)
}

func (r *Repo) Tag(t testing.TB, name string, h plumbing.Hash) {
	t.Helper()
	if _, err := r.Repo.CreateTag(name, h, nil); err != nil {
		t.Fatalf("create tag %s: %v", name, err)
	}
}

func (r *Repo) AnnotatedTag(t testing.TB, name string, h plumbing.Hash) {
	t.Helper()
	_, err := r.Repo.CreateTag(name, h, &gitlib.CreateTagOptions{
		Tagger:  signature(r.commits),
		Message: "release " + name,
	})
	if err != nil {
		t.Fatalf("create tag %s: %v", name, err)
	}
}

// Stash records h as the newest stash entry, the way `git stash push` leaves
// refs/stash and its reflog.
func (r *Repo) Stash(t testing.TB, h plumbing.Hash) {
	t.Helper()
	old := plumbing.ZeroHash
	if len(r.stashes) > 0 {
		old = r.stashes[len(r.stashes)-1]
	}
	r.stashes = append(r.stashes, h)
	r.setRef(t, plumbing.ReferenceName("refs/stash"), h)
	logPath := filepath.Join(r.Dir, ".git", "logs", "refs", "stash")
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		t.Fatalf("mkdir reflog: %v", err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s Test <test@example.com> %d +0000\tWIP on main: stash %d\n",
		old, h, baseTime.Unix()+int64(len(r.stashes)), len(r.stashes))
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open reflog: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(b.String()); err != nil {
		t.Fatalf("write reflog: %v", err)
	}
}
