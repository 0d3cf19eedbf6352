package backend

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// HeadState resolves HEAD. ok is false on an unborn branch; headName is
// "HEAD" when detached.
func (g *gitCLI) HeadState(ctx context.Context) (hash string, headName string, ok bool, err error) {
	out, err := g.gitQuiet(ctx, "rev-parse", "-q", "--verify", "HEAD")
	if err != nil {
		return "", "", false, err
	}
	if hash = strings.TrimSpace(out); hash == "" {
		return "", "", false, nil
	}
	ref, err := g.gitQuiet(ctx, "symbolic-ref", "-q", "--short", "HEAD")
	if err != nil {
		return "", "", false, err
	}
	if headName = strings.TrimSpace(ref); headName == "" {
		headName = "HEAD"
	}
	return hash, headName, true, nil
}

// ListRefs returns branches, remote branches, tags peeled to their commit and
// stash entries.
func (g *gitCLI) ListRefs(ctx context.Context) ([]Ref, error) {
	out, err := g.gitQuiet(ctx, "show-ref", "--dereference")
	if err != nil {
		return nil, err
	}
	refs, err := parseRefsFromShowRef(out)
	if err != nil {
		return nil, err
	}
	stashOut, err := g.git(ctx, "stash", "list", "--format=%H%x00%gd")
	if err != nil {
		return nil, err
	}
	stashes, err := parseStashList(stashOut)
	if err != nil {
		return nil, err
	}
	return append(refs, stashes...), nil
}

func parseRefsFromShowRef(out string) ([]Ref, error) {
	type refEntry struct {
		hash string
		ref  string
	}

	peeledByTagRef := map[string]string{}
	var entries []refEntry

	for rawLine := range strings.SplitSeq(out, "\n") {
		line := strings.TrimRight(rawLine, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) != 2 {
			return nil, fmt.Errorf("unexpected show-ref output line: %q", rawLine)
		}
		hash, refName := parts[0], parts[1]
		if base, ok := strings.CutSuffix(refName, "^{}"); ok {
			if base != "" {
				peeledByTagRef[base] = hash
			}
			continue
		}
		entries = append(entries, refEntry{hash: hash, ref: refName})
	}

	var refs []Ref
	for _, entry := range entries {
		ref := Ref{Hash: entry.hash, FullName: entry.ref}
		switch {
		case strings.HasPrefix(entry.ref, "refs/tags/"):
			ref.Kind = RefKindTag
			ref.Name = strings.TrimPrefix(entry.ref, "refs/tags/")
			if peeled, ok := peeledByTagRef[entry.ref]; ok && peeled != "" {
				ref.Hash = peeled
			}
		case strings.HasPrefix(entry.ref, "refs/heads/"):
			ref.Kind = RefKindBranch
			ref.Name = strings.TrimPrefix(entry.ref, "refs/heads/")
		case strings.HasPrefix(entry.ref, "refs/remotes/"):
			ref.Kind = RefKindRemoteBranch
			ref.Name = strings.TrimPrefix(entry.ref, "refs/remotes/")
			// origin/HEAD is a symbolic alias of another remote branch.
			if strings.HasSuffix(ref.Name, "/HEAD") {
				continue
			}
		default:
			// refs/stash is listed through the stash reflog instead.
			continue
		}
		if ref.Name == "" {
			continue
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// parseStashList parses `git stash list --format=%H%x00%gd` output.
func parseStashList(out string) ([]Ref, error) {
	var refs []Ref
	for rawLine := range strings.SplitSeq(out, "\n") {
		line := strings.TrimRight(rawLine, "\r")
		if line == "" {
			continue
		}
		hash, selector, ok := strings.Cut(line, "\x00")
		if !ok || hash == "" {
			return nil, fmt.Errorf("unexpected stash list line: %q", rawLine)
		}
		idx, err := parseStashSelector(selector)
		if err != nil {
			return nil, err
		}
		refs = append(refs, Ref{
			Hash:     hash,
			Kind:     RefKindStash,
			Name:     StashName(idx),
			FullName: "refs/stash",
			Index:    idx,
		})
	}
	return refs, nil
}

func parseStashSelector(sel string) (int, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(sel), "stash@{")
	if !ok {
		return 0, fmt.Errorf("unexpected stash selector: %q", sel)
	}
	num, ok := strings.CutSuffix(rest, "}")
	if !ok {
		return 0, fmt.Errorf("unexpected stash selector: %q", sel)
	}
	idx, err := strconv.Atoi(num)
	if err != nil || idx < 0 {
		return 0, fmt.Errorf("unexpected stash selector: %q", sel)
	}
	return idx, nil
}

// StashName returns the display selector of the stash entry at idx.
func StashName(idx int) string {
	return "stash@{" + strconv.Itoa(idx) + "}"
}
