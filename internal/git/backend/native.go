package backend

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

// maxTagDepth bounds the chain of annotated tags pointing at other tags.
const maxTagDepth = 8

type goGit struct {
	path   string
	gitDir string
	repo   *gitlib.Repository
}

// OpenNative opens the repository at repoPath with go-git.
func OpenNative(_ context.Context, repoPath string) (Backend, error) {
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}
	repo, err := gitlib.PlainOpenWithOptions(abs, &gitlib.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, gitlib.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("open repository %s: %w", abs, ErrNotRepository)
		}
		return nil, fmt.Errorf("open repository: %w", err)
	}
	g := &goGit{path: abs, repo: repo}
	if wt, err := repo.Worktree(); err == nil {
		g.path = wt.Filesystem.Root()
	}
	if st, ok := repo.Storer.(*filesystem.Storage); ok {
		g.gitDir = st.Filesystem().Root()
	}
	return g, nil
}

func (g *goGit) RepoPath() string {
	if g == nil {
		return ""
	}
	return g.path
}

func (g *goGit) HeadState(_ context.Context) (hash string, headName string, ok bool, err error) {
	ref, err := g.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", "", false, nil
		}
		return "", "", false, fmt.Errorf("resolve HEAD: %w", err)
	}
	headName = "HEAD"
	if ref.Name().IsBranch() {
		headName = ref.Name().Short()
	}
	return ref.Hash().String(), headName, true, nil
}

func (g *goGit) ListRefs(ctx context.Context) ([]Ref, error) {
	iter, err := g.repo.References()
	if err != nil {
		return nil, fmt.Errorf("list references: %w", err)
	}
	defer iter.Close()

	var refs []Ref
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if ref.Type() != plumbing.HashReference {
			return nil
		}
		name := ref.Name()
		out := Ref{Hash: ref.Hash().String(), FullName: name.String(), Name: name.Short()}
		switch {
		case name.IsBranch():
			out.Kind = RefKindBranch
		case name.IsRemote():
			if strings.HasSuffix(out.Name, "/HEAD") {
				return nil
			}
			out.Kind = RefKindRemoteBranch
		case name.IsTag():
			peeled, ok := g.peelTagCommitHash(ref.Hash())
			if !ok {
				return nil
			}
			out.Kind = RefKindTag
			out.Hash = peeled.String()
		default:
			return nil
		}
		refs = append(refs, out)
		return nil
	})
	if err != nil {
		return nil, err
	}
	stashes, err := g.stashEntries()
	if err != nil {
		return nil, err
	}
	return append(refs, stashes...), nil
}

func (g *goGit) peelTagCommitHash(hash plumbing.Hash) (plumbing.Hash, bool) {
	if hash == plumbing.ZeroHash {
		return plumbing.ZeroHash, false
	}
	// Lightweight tags point directly at a commit; annotated tags point at a tag object.
	if _, err := g.repo.CommitObject(hash); err == nil {
		return hash, true
	}
	cur := hash
	for range maxTagDepth {
		tag, err := g.repo.TagObject(cur)
		if err != nil {
			return plumbing.ZeroHash, false
		}
		switch tag.TargetType {
		case plumbing.CommitObject:
			return tag.Target, true
		case plumbing.TagObject:
			cur = tag.Target
		default:
			return plumbing.ZeroHash, false
		}
	}
	return plumbing.ZeroHash, false
}

// stashEntries reads the stash reflog, which go-git does not expose.
func (g *goGit) stashEntries() ([]Ref, error) {
	if g.gitDir == "" {
		return nil, nil
	}
	f, err := os.Open(filepath.Join(g.gitDir, "logs", "refs", "stash"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read stash reflog: %w", err)
	}
	defer f.Close()
	return parseStashReflog(f)
}

// parseStashReflog converts reflog lines ("<old> <new> <ident> <time> <tz>\t<msg>")
// into stash refs. The newest entry is the last line and becomes stash@{0}.
func parseStashReflog(r io.Reader) ([]Ref, error) {
	var hashes []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 || !plumbing.IsHash(fields[1]) {
			return nil, fmt.Errorf("unexpected stash reflog line: %q", line)
		}
		hashes = append(hashes, fields[1])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read stash reflog: %w", err)
	}
	refs := make([]Ref, 0, len(hashes))
	for i := len(hashes) - 1; i >= 0; i-- {
		idx := len(hashes) - 1 - i
		refs = append(refs, Ref{
			Hash:     hashes[i],
			Kind:     RefKindStash,
			Name:     StashName(idx),
			FullName: "refs/stash",
			Index:    idx,
		})
	}
	return refs, nil
}

func (g *goGit) StartLogStream(ctx context.Context, tips []string) (LogStream, error) {
	stack := make([]plumbing.Hash, 0, len(tips))
	for _, tip := range tips {
		if plumbing.IsHash(tip) {
			stack = append(stack, plumbing.NewHash(tip))
		}
	}
	seen := make(map[plumbing.Hash]struct{})
	var commits []*Commit
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		c, err := g.repo.CommitObject(h)
		if err != nil {
			// Shallow boundaries and tips naming non-commit objects are skipped.
			if errors.Is(err, plumbing.ErrObjectNotFound) || errors.Is(err, plumbing.ErrInvalidType) {
				continue
			}
			return nil, fmt.Errorf("read commit %s: %w", h, err)
		}
		commits = append(commits, convertCommit(c))
		stack = append(stack, c.ParentHashes...)
	}
	return &sliceStream{commits: commits}, nil
}

func convertCommit(c *object.Commit) *Commit {
	parents := make([]string, 0, len(c.ParentHashes))
	for _, p := range c.ParentHashes {
		parents = append(parents, p.String())
	}
	return &Commit{
		Hash:         c.Hash.String(),
		ParentHashes: parents,
		Author:       Signature{Name: c.Author.Name, Email: c.Author.Email, When: c.Author.When},
		Committer:    Signature{Name: c.Committer.Name, Email: c.Committer.Email, When: c.Committer.When},
		Message:      c.Message,
	}
}
