package git

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	gitbackend "github.com/thiagokokada/gitviz-go/internal/git/backend"
	"github.com/thiagokokada/gitviz-go/internal/graph"
)

type BackendKind string

const (
	BackendNative BackendKind = "native"
	BackendCLI    BackendKind = "cli"
)

// OpenerFor returns the backend opener for kind.
func OpenerFor(kind BackendKind) (gitbackend.Opener, error) {
	switch kind {
	case BackendNative, "":
		return gitbackend.OpenNative, nil
	case BackendCLI:
		return gitbackend.OpenCLI, nil
	}
	return nil, fmt.Errorf("unknown git backend %q", kind)
}

// Reader enumerates repository state and turns it into graphs. The repository
// is reopened on every call since it may be replaced between polls.
type Reader struct {
	open gitbackend.Opener
}

func NewReader(open gitbackend.Opener) *Reader {
	if open == nil {
		open = gitbackend.OpenNative
	}
	return &Reader{open: open}
}

// ReadGraph reads the repository at path and builds its graph.
func (r *Reader) ReadGraph(ctx context.Context, path string) (graph.Graph, error) {
	snap, err := r.Snapshot(ctx, path)
	if err != nil {
		return graph.Graph{}, err
	}
	g := graph.Build(snap)
	slog.Debug("graph built",
		slog.String("path", path),
		slog.Int("commits", len(snap.Commits)),
		slog.Int("refs", len(snap.Refs)),
		slog.Int("nodes", len(g.Nodes)),
		slog.Int("links", len(g.Links)),
	)
	return g, nil
}

// ReadCommits returns every commit reachable from any reference, ordered the
// way the graph orders them.
func (r *Reader) ReadCommits(ctx context.Context, path string) ([]graph.Commit, error) {
	snap, err := r.Snapshot(ctx, path)
	if err != nil {
		return nil, err
	}
	graph.SortCommits(snap.Commits)
	return snap.Commits, nil
}

// Snapshot returns the raw commits and references of the repository at path.
func (r *Reader) Snapshot(ctx context.Context, path string) (graph.Snapshot, error) {
	b, err := r.open(ctx, path)
	if err != nil {
		if errors.Is(err, ErrNotAGitRepository) {
			return graph.Snapshot{}, err
		}
		return graph.Snapshot{}, &ReadError{Op: "open", Path: path, Err: err}
	}
	refs, err := b.ListRefs(ctx)
	if err != nil {
		return graph.Snapshot{}, &ReadError{Op: "list refs", Path: path, Err: err}
	}
	headHash, headName, headOK, err := b.HeadState(ctx)
	if err != nil {
		return graph.Snapshot{}, &ReadError{Op: "resolve HEAD", Path: path, Err: err}
	}

	snap := graph.Snapshot{Refs: make([]graph.Ref, 0, len(refs)+1)}
	tips := make([]string, 0, len(refs)+1)
	seenTips := make(map[string]struct{}, len(refs)+1)
	addTip := func(h string) {
		if _, ok := seenTips[h]; ok || h == "" {
			return
		}
		seenTips[h] = struct{}{}
		tips = append(tips, h)
	}
	for _, ref := range refs {
		kind, ok := refKind(ref.Kind)
		if !ok || ref.Hash == "" {
			continue
		}
		snap.Refs = append(snap.Refs, graph.Ref{
			Kind:     kind,
			Name:     ref.Name,
			FullName: ref.FullName,
			Target:   ref.Hash,
			Index:    ref.Index,
		})
		addTip(ref.Hash)
	}
	if headOK {
		full := "HEAD"
		if headName != "" && headName != "HEAD" {
			full = "refs/heads/" + headName
		}
		snap.Refs = append(snap.Refs, graph.Ref{
			Kind:     graph.KindHead,
			Name:     graph.HeadID,
			FullName: full,
			Target:   headHash,
		})
		addTip(headHash)
	}

	stream, err := b.StartLogStream(ctx, tips)
	if err != nil {
		return graph.Snapshot{}, &ReadError{Op: "read commits", Path: path, Err: err}
	}
	defer stream.Close()
	for {
		c, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return graph.Snapshot{}, &ReadError{Op: "read commits", Path: path, Err: err}
		}
		snap.Commits = append(snap.Commits, graph.Commit{
			Hash:    c.Hash,
			Parents: c.ParentHashes,
			Subject: subject(c.Message),
			When:    commitTime(c),
		})
	}
	return snap, nil
}

func refKind(k gitbackend.RefKind) (graph.Kind, bool) {
	switch k {
	case gitbackend.RefKindBranch:
		return graph.KindLocalBranch, true
	case gitbackend.RefKindRemoteBranch:
		return graph.KindRemoteBranch, true
	case gitbackend.RefKindTag:
		return graph.KindTag, true
	case gitbackend.RefKindStash:
		return graph.KindStash, true
	}
	return 0, false
}

func subject(message string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(message), "\n")
	return strings.TrimSpace(first)
}

func commitTime(c *gitbackend.Commit) time.Time {
	if c.Committer.When.IsZero() {
		return c.Author.When
	}
	return c.Committer.When
}
