package backend

import "time"

type Signature struct {
	Name  string
	Email string
	When  time.Time
}

type Commit struct {
	Hash         string
	ParentHashes []string
	Author       Signature
	Committer    Signature
	Message      string
}

type RefKind uint8

const (
	RefKindBranch RefKind = iota
	RefKindRemoteBranch
	RefKindTag
	RefKindStash
)

func (k RefKind) String() string {
	switch k {
	case RefKindBranch:
		return "branch"
	case RefKindRemoteBranch:
		return "remote"
	case RefKindTag:
		return "tag"
	case RefKindStash:
		return "stash"
	default:
		return "unknown"
	}
}

type Ref struct {
	Hash     string
	Kind     RefKind
	Name     string // short name: main, origin/main, v1, stash@{0}
	FullName string // refs/heads/main, refs/stash
	// Index is the stash position; zero for every other kind.
	Index int
}
