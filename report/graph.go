package report

import (
	"fmt"
	"os"

	"github.com/zboralski/lattice"
	"github.com/zboralski/lattice/render"
)

// ClassGraph builds the class reference graph: one node per class in table
// order and one edge for every reference the closure followed. Superclass
// links are included even when the closure reached the parent another way.
func ClassGraph(m *LinkMap) *lattice.Graph {
	g := &lattice.Graph{}
	for _, c := range m.Classes {
		g.Nodes = append(g.Nodes, c.Name)
		if c.Parent != "" {
			g.Edges = append(g.Edges, lattice.Edge{Caller: c.Name, Callee: c.Parent})
		}
	}
	for _, e := range m.Edges {
		g.Edges = append(g.Edges, lattice.Edge{Caller: e.From, Callee: e.To})
	}
	g.Dedup()
	return g
}

// WriteGraph renders the class graph as DOT.
func WriteGraph(path string, m *LinkMap) error {
	g := ClassGraph(m)
	if err := os.WriteFile(path, []byte(render.DOT(g, "classes")), 0644); err != nil {
		return fmt.Errorf("report: write class graph: %w", err)
	}
	return nil
}
