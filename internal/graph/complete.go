package graph

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// IsComplete reports whether cur matches the goal graph: same number of nodes
// and the same hover label at every position. A nil goal is never complete.
//
// The comparison is positional, so it relies on both graphs being built with
// the same deterministic ordering.
func IsComplete(cur Graph, goal *Graph) bool {
	if goal == nil {
		return false
	}
	if len(cur.Nodes) != len(goal.Nodes) {
		return false
	}
	for i := range cur.Nodes {
		if cur.Nodes[i].Hover != goal.Nodes[i].Hover {
			return false
		}
	}
	return true
}

type labelKey struct {
	kind  Kind
	hover string
}

// IsCompleteMultiset is the order-independent variant of IsComplete: the two
// graphs must hold the same multiset of (type, hover) pairs.
func IsCompleteMultiset(cur Graph, goal *Graph) bool {
	if goal == nil {
		return false
	}
	if len(cur.Nodes) != len(goal.Nodes) {
		return false
	}
	counts := make(map[labelKey]int, len(goal.Nodes))
	for _, n := range goal.Nodes {
		counts[labelKey{n.Type, n.Hover}]++
	}
	for _, n := range cur.Nodes {
		k := labelKey{n.Type, n.Hover}
		if counts[k] == 0 {
			return false
		}
		counts[k]--
	}
	return true
}

// Evaluator decides completion of a live graph against a goal graph.
type Evaluator func(cur Graph, goal *Graph) bool

// LabelDiff returns a unified diff of the hover sequences of goal and cur, or
// an empty string when they are identical.
func LabelDiff(cur, goal Graph) (string, error) {
	d := difflib.UnifiedDiff{
		A:        labelLines(goal),
		B:        labelLines(cur),
		FromFile: "goal",
		ToFile:   "live",
		Context:  2,
	}
	return difflib.GetUnifiedDiffString(d)
}

func labelLines(g Graph) []string {
	lines := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		var b strings.Builder
		b.WriteString(n.Type.Letter())
		b.WriteByte(' ')
		b.WriteString(n.Hover)
		b.WriteByte('\n')
		lines = append(lines, b.String())
	}
	return lines
}
