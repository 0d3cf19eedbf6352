package backend

import (
	"strings"
	"testing"
)

func TestParseRefsFromShowRef(t *testing.T) {
	t.Parallel()

	const (
		commit1 = "1111111111111111111111111111111111111111"
		commit2 = "2222222222222222222222222222222222222222"
		tagObj  = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	)

	in := strings.Join([]string{
		commit1 + " refs/heads/main",
		commit1 + " refs/remotes/origin/main",
		commit1 + " refs/remotes/origin/HEAD",
		commit2 + " refs/tags/v1.0",
		tagObj + " refs/tags/v2.0",
		commit1 + " refs/tags/v2.0^{}",
		commit2 + " refs/stash",
		commit2 + " refs/notes/commits",
		"",
	}, "\n")

	got, err := parseRefsFromShowRef(in)
	if err != nil {
		t.Fatalf("parseRefsFromShowRef() error = %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("unexpected ref count: got %d want 4 (%+v)", len(got), got)
	}

	assertHasRef(t, got, Ref{Hash: commit1, Kind: RefKindBranch, Name: "main", FullName: "refs/heads/main"})
	assertHasRef(t, got, Ref{Hash: commit1, Kind: RefKindRemoteBranch, Name: "origin/main", FullName: "refs/remotes/origin/main"})
	assertHasRef(t, got, Ref{Hash: commit2, Kind: RefKindTag, Name: "v1.0", FullName: "refs/tags/v1.0"})
	// v2.0 should use the peeled hash.
	assertHasRef(t, got, Ref{Hash: commit1, Kind: RefKindTag, Name: "v2.0", FullName: "refs/tags/v2.0"})
}

func TestParseRefsFromShowRef_InvalidLine(t *testing.T) {
	t.Parallel()

	_, err := parseRefsFromShowRef("refs/heads/main\n")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestParseStashList(t *testing.T) {
	t.Parallel()

	const (
		newest = "3333333333333333333333333333333333333333"
		oldest = "4444444444444444444444444444444444444444"
	)
	in := newest + "\x00stash@{0}\n" + oldest + "\x00stash@{1}\n"

	got, err := parseStashList(in)
	if err != nil {
		t.Fatalf("parseStashList() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("unexpected stash count: %d", len(got))
	}
	assertHasRef(t, got, Ref{Hash: newest, Kind: RefKindStash, Name: "stash@{0}", FullName: "refs/stash"})
	assertHasRef(t, got, Ref{Hash: oldest, Kind: RefKindStash, Name: "stash@{1}", FullName: "refs/stash", Index: 1})
}

func TestParseStashList_Invalid(t *testing.T) {
	t.Parallel()

	tests := []string{
		"no-separator\n",
		"\x00stash@{0}\n",
		"abc\x00stash@{x}\n",
		"abc\x00refs/stash\n",
		"abc\x00stash@{-1}\n",
	}
	for _, in := range tests {
		if _, err := parseStashList(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestParseStashList_Empty(t *testing.T) {
	t.Parallel()

	got, err := parseStashList("")
	if err != nil {
		t.Fatalf("parseStashList() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no stashes, got %+v", got)
	}
}

func assertHasRef(t *testing.T, refs []Ref, want Ref) {
	t.Helper()
	for _, got := range refs {
		if got == want {
			return
		}
	}
	t.Fatalf("missing ref: %+v (got=%+v)", want, refs)
}
