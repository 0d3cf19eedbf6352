package graph

// nodeKey is the canonical representation compared by HasChanged. Layout
// fields are renderer-owned and deliberately absent.
type nodeKey struct {
	id    string
	kind  Kind
	hover string
}

func keyOf(n Node) nodeKey {
	return nodeKey{id: n.ID, kind: n.Type, hover: n.Hover}
}

// HasChanged reports whether cur should be re-rendered given the previously
// rendered graph. A nil prev is always a change (first render). Only the node
// sequences are compared: edges are fully determined by the nodes.
func HasChanged(prev *Graph, cur Graph) bool {
	if prev == nil {
		return true
	}
	if len(prev.Nodes) != len(cur.Nodes) {
		return true
	}
	for i := range cur.Nodes {
		if keyOf(prev.Nodes[i]) != keyOf(cur.Nodes[i]) {
			return true
		}
	}
	return false
}
