package relation

import "github.com/ajitpratap0/memgraph/pkg/models"

// DetectCycles runs a depth-first search from every unvisited node, in the
// order nodes first appear as a relation source. Each time an edge reaches
// a node on the active path the chain from that node back to itself is
// recorded. Edges are never removed.
func DetectCycles(relations []models.Relation) [][]string {
	adjacency := make(map[string][]string)
	var order []string
	for _, r := range relations {
		if _, ok := adjacency[r.From]; !ok {
			order = append(order, r.From)
		}
		adjacency[r.From] = append(adjacency[r.From], r.To)
	}

	d := &dfs{
		adjacency: adjacency,
		visited:   make(map[string]bool),
		onPath:    make(map[string]bool),
	}
	for _, node := range order {
		if !d.visited[node] {
			d.visit(node, nil)
		}
	}
	return d.cycles
}

type dfs struct {
	adjacency map[string][]string
	visited   map[string]bool
	onPath    map[string]bool
	cycles    [][]string
}

func (d *dfs) visit(node string, path []string) {
	if d.onPath[node] {
		start := indexOf(path, node)
		cycle := make([]string, 0, len(path)-start+1)
		cycle = append(cycle, path[start:]...)
		d.cycles = append(d.cycles, append(cycle, node))
		return
	}
	if d.visited[node] {
		return
	}

	d.visited[node] = true
	d.onPath[node] = true
	path = append(path, node)

	for _, next := range d.adjacency[node] {
		d.visit(next, path[:len(path):len(path)])
	}

	d.onPath[node] = false
}

func indexOf(path []string, node string) int {
	for i, p := range path {
		if p == node {
			return i
		}
	}
	return 0
}
