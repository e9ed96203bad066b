package domain

// Flow is the authored graph of nodes and edges for one automation. It is
// validated and executed as a whole and swapped atomically; the engine never
// runs a partial graph.
type Flow struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`
}

// Node returns the node with the given id, or nil.
func (f *Flow) Node(id string) *Node {
	for i := range f.Nodes {
		if f.Nodes[i].ID == id {
			return &f.Nodes[i]
		}
	}
	return nil
}

// StartNodes returns every entry-point node in authoring order.
func (f *Flow) StartNodes() []*Node {
	var starts []*Node
	for i := range f.Nodes {
		if f.Nodes[i].Kind == KindStart {
			starts = append(starts, &f.Nodes[i])
		}
	}
	return starts
}

// EdgesFrom returns all edges leaving a node, in authoring order.
func (f *Flow) EdgesFrom(nodeID string) []Edge {
	var out []Edge
	for _, e := range f.Edges {
		if e.Source == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// EdgeFrom resolves the single edge leaving a node on the given handle.
// The first matching edge wins when the graph carries duplicates.
func (f *Flow) EdgeFrom(nodeID, handle string) (Edge, bool) {
	for _, e := range f.Edges {
		if e.Source == nodeID && e.Handle == handle {
			return e, true
		}
	}
	return Edge{}, false
}

// ReachableSet walks the graph forward from the entry nodes and returns the
// set of node ids that can be visited. Edges pointing at nonexistent nodes
// are followed into nothing rather than reported; dangling targets are the
// validator's concern.
func (f *Flow) ReachableSet(entryIDs []string) map[string]bool {
	reached := make(map[string]bool, len(f.Nodes))
	queue := make([]string, 0, len(entryIDs))
	for _, id := range entryIDs {
		if f.Node(id) != nil && !reached[id] {
			reached[id] = true
			queue = append(queue, id)
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, e := range f.EdgesFrom(current) {
			if reached[e.Target] || f.Node(e.Target) == nil {
				continue
			}
			reached[e.Target] = true
			queue = append(queue, e.Target)
		}
	}
	return reached
}
