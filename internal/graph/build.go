package graph

import (
	"cmp"
	"container/heap"
	"slices"
	"strconv"
	"strings"
)

// HeadID is the node id of the HEAD reference.
const HeadID = "HEAD"

const shortHashLen = 7

// refOrder is the position of each reference kind in the node sequence.
var refOrder = map[Kind]int{
	KindLocalBranch:  0,
	KindTag:          1,
	KindStash:        2,
	KindRemoteBranch: 3,
	KindHead:         4,
}

// Build maps raw repository state to a node/edge graph: one node per commit and
// per reference, one edge per parent relationship and per reference target.
// The result only depends on the snapshot contents, not on their order.
func Build(snap Snapshot) Graph {
	commits := slices.Clone(snap.Commits)
	SortCommits(commits)
	refs := slices.Clone(snap.Refs)
	slices.SortStableFunc(refs, compareRefs)

	g := Graph{
		Nodes: make([]Node, 0, len(commits)+len(refs)),
	}
	known := make(map[string]struct{}, len(commits))
	for _, c := range commits {
		if c.Hash == "" {
			continue
		}
		if _, dup := known[c.Hash]; dup {
			continue
		}
		known[c.Hash] = struct{}{}
		g.Nodes = append(g.Nodes, Node{
			ID:    c.Hash,
			Type:  KindCommit,
			Hover: commitHover(c),
			RtClk: c.Hash,
		})
	}
	linked := make(map[string]struct{}, len(commits))
	for _, c := range commits {
		if _, ok := known[c.Hash]; !ok {
			continue
		}
		if _, dup := linked[c.Hash]; dup {
			continue
		}
		linked[c.Hash] = struct{}{}
		for _, p := range c.Parents {
			if _, ok := known[p]; !ok {
				continue
			}
			g.Links = append(g.Links, Edge{Source: c.Hash, Target: p})
		}
	}

	seenRefs := make(map[string]struct{}, len(refs))
	for _, r := range refs {
		if _, ok := known[r.Target]; !ok {
			continue
		}
		id := RefID(r)
		if id == "" {
			continue
		}
		if _, dup := seenRefs[id]; dup {
			continue
		}
		seenRefs[id] = struct{}{}
		full := r.FullName
		if full == "" {
			full = r.Name
		}
		g.Nodes = append(g.Nodes, Node{
			ID:    id,
			Type:  r.Kind,
			Hover: refHover(r),
			RtClk: full,
		})
		g.Links = append(g.Links, Edge{Source: id, Target: r.Target})
	}
	return g
}

// SortCommits orders commits by commit time, then subject, then hash, and
// moves every commit after its parents. Commit times have one-second
// resolution, so a parent and child often tie; hashes alone would order them
// differently in two otherwise identical repositories.
func SortCommits(commits []Commit) {
	slices.SortStableFunc(commits, compareCommits)
	if len(commits) < 2 {
		return
	}

	first := make(map[string]int, len(commits))
	for i, c := range commits {
		if _, ok := first[c.Hash]; !ok {
			first[c.Hash] = i
		}
	}
	waiting := make([]int, len(commits))
	children := make([][]int, len(commits))
	for i, c := range commits {
		for _, p := range c.Parents {
			j, ok := first[p]
			if !ok || j == i {
				continue
			}
			waiting[i]++
			children[j] = append(children[j], i)
		}
	}

	ready := &indexHeap{}
	for i := range commits {
		if waiting[i] == 0 {
			heap.Push(ready, i)
		}
	}
	order := make([]int, 0, len(commits))
	emitted := make([]bool, len(commits))
	for ready.Len() > 0 {
		i := heap.Pop(ready).(int)
		order = append(order, i)
		emitted[i] = true
		for _, child := range children[i] {
			if waiting[child]--; waiting[child] == 0 {
				heap.Push(ready, child)
			}
		}
	}
	// Only a parent cycle, which git cannot produce, leaves commits behind.
	for i := range commits {
		if !emitted[i] {
			order = append(order, i)
		}
	}

	sorted := make([]Commit, len(commits))
	for k, i := range order {
		sorted[k] = commits[i]
	}
	copy(commits, sorted)
}

func compareCommits(a, b Commit) int {
	if c := a.When.Compare(b.When); c != 0 {
		return c
	}
	if c := strings.Compare(a.Subject, b.Subject); c != 0 {
		return c
	}
	return strings.Compare(a.Hash, b.Hash)
}

// indexHeap pops the smallest index first.
type indexHeap []int

func (h indexHeap) Len() int           { return len(h) }
func (h indexHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h indexHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *indexHeap) Push(x any)        { *h = append(*h, x.(int)) }

func (h *indexHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// RefID returns the namespaced node id of a reference, so that a branch and a
// tag sharing a short name do not collide.
func RefID(r Ref) string {
	switch r.Kind {
	case KindLocalBranch:
		return "branch:" + r.Name
	case KindTag:
		return "tag:" + r.Name
	case KindStash:
		return "stash:" + strconv.Itoa(r.Index)
	case KindRemoteBranch:
		return "remote:" + r.Name
	case KindHead:
		return HeadID
	case KindCommit:
		return ""
	}
	return ""
}

func compareRefs(a, b Ref) int {
	if c := cmp.Compare(refOrder[a.Kind], refOrder[b.Kind]); c != 0 {
		return c
	}
	if a.Kind == KindStash {
		if c := cmp.Compare(a.Index, b.Index); c != 0 {
			return c
		}
	}
	if c := strings.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	return strings.Compare(a.Target, b.Target)
}

func commitHover(c Commit) string {
	subject := strings.TrimSpace(strings.SplitN(strings.TrimSpace(c.Subject), "\n", 2)[0])
	if subject != "" {
		return subject
	}
	if len(c.Hash) > shortHashLen {
		return c.Hash[:shortHashLen]
	}
	return c.Hash
}

func refHover(r Ref) string {
	switch r.Kind {
	case KindStash:
		if r.Name != "" {
			return r.Name
		}
		return "stash@{" + strconv.Itoa(r.Index) + "}"
	case KindHead:
		return HeadID
	}
	return r.Name
}
