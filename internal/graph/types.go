package graph

import (
	"fmt"
	"time"
)

// Kind identifies what a node represents. The set is closed; every function
// switching over it must handle all variants.
type Kind uint8

const (
	KindCommit Kind = iota
	KindLocalBranch
	KindTag
	KindStash
	KindRemoteBranch
	KindHead
)

// Kinds lists every variant in ordinal order.
var Kinds = [...]Kind{KindCommit, KindLocalBranch, KindTag, KindStash, KindRemoteBranch, KindHead}

type Shape uint8

const (
	ShapeCircle Shape = iota
	ShapeBox
)

func (k Kind) String() string {
	switch k {
	case KindCommit:
		return "commit"
	case KindLocalBranch:
		return "branch"
	case KindTag:
		return "tag"
	case KindStash:
		return "stash"
	case KindRemoteBranch:
		return "remote"
	case KindHead:
		return "head"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Letter is the identifier drawn inside reference boxes.
func (k Kind) Letter() string {
	switch k {
	case KindCommit:
		return "C"
	case KindLocalBranch:
		return "LB"
	case KindTag:
		return "T"
	case KindStash:
		return "S"
	case KindRemoteBranch:
		return "RB"
	case KindHead:
		return "H"
	}
	return "?"
}

func (k Kind) Shape() Shape {
	if k == KindCommit {
		return ShapeCircle
	}
	return ShapeBox
}

func (k Kind) Valid() bool {
	return k <= KindHead
}

// Layout is renderer-owned position state. The core copies it forward and
// never computes it, except for the initial fan-out.
type Layout struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	VX float64 `json:"vx"`
	VY float64 `json:"vy"`
}

type Node struct {
	ID    string `json:"id"`
	Type  Kind   `json:"type"`
	Hover string `json:"hover"`
	RtClk string `json:"rt_clk"`
	*Layout
}

type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

type Graph struct {
	Nodes []Node `json:"nodes"`
	Links []Edge `json:"links"`
}

// Clone returns a deep copy, including layout state.
func (g Graph) Clone() Graph {
	out := Graph{
		Nodes: make([]Node, len(g.Nodes)),
		Links: append([]Edge(nil), g.Links...),
	}
	for i, n := range g.Nodes {
		if n.Layout != nil {
			l := *n.Layout
			n.Layout = &l
		}
		out.Nodes[i] = n
	}
	return out
}

// Commit is a raw commit record as enumerated by the repository reader.
type Commit struct {
	Hash    string
	Parents []string
	Subject string
	When    time.Time
}

// Ref is a raw named reference. Name is the short display name
// (main, v1, stash@{0}, origin/main, HEAD) and FullName the canonical one.
type Ref struct {
	Kind     Kind
	Name     string
	FullName string
	Target   string
	// Index orders stash entries (stash@{Index}).
	Index int
}

// Snapshot is the raw repository state a graph is built from.
type Snapshot struct {
	Commits []Commit
	Refs    []Ref
}
