package graph

// LayoutUpdate is a position report for a single node, as sent back by the
// renderer.
type LayoutUpdate struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	VX float64 `json:"vx"`
	VY float64 `json:"vy"`
}

// Reconcile carries layout state forward from prev onto the nodes of cur that
// share an id, so the renderer does not restart the layout. Nodes without a
// match are left without layout. With no previous graph, cur gets the initial
// vertical fan-out instead.
func Reconcile(prev *Graph, cur *Graph) {
	if cur == nil {
		return
	}
	if prev == nil {
		FanOut(cur)
		return
	}
	byID := make(map[string]*Layout, len(prev.Nodes))
	for _, n := range prev.Nodes {
		if n.Layout != nil {
			byID[n.ID] = n.Layout
		}
	}
	for i := range cur.Nodes {
		node := &cur.Nodes[i]
		old, ok := byID[node.ID]
		if !ok {
			node.Layout = nil
			continue
		}
		l := *old
		node.Layout = &l
	}
}

// FanOut assigns the deterministic first-paint layout: node i of N sits at
// x=0, y=N-i.
func FanOut(g *Graph) {
	n := len(g.Nodes)
	for i := range g.Nodes {
		g.Nodes[i].Layout = &Layout{X: 0, Y: float64(n - i)}
	}
}

// ApplyLayout records renderer-reported positions on g and returns the number
// of nodes updated. Unknown ids are ignored.
func ApplyLayout(g *Graph, updates []LayoutUpdate) int {
	if g == nil || len(updates) == 0 {
		return 0
	}
	index := make(map[string]int, len(g.Nodes))
	for i, n := range g.Nodes {
		index[n.ID] = i
	}
	applied := 0
	for _, u := range updates {
		i, ok := index[u.ID]
		if !ok {
			continue
		}
		g.Nodes[i].Layout = &Layout{X: u.X, Y: u.Y, VX: u.VX, VY: u.VY}
		applied++
	}
	return applied
}
