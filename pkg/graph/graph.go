// Package graph builds the in-memory migration graph from a directory of
// revision files and validates its shape: no cycles and no branch point
// with more than one successor. Validation does not check that exactly one
// revision is a root, nor that every down_revision_id names a revision
// present in the directory.
package graph

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/emicklei/dot"

	"github.com/go-wandern/wandern/pkg/revision"
	"github.com/go-wandern/wandern/pkg/wanderrors"
)

// Graph is an arena of parsed revisions plus the down-revision edges
// between them. The zero value is not usable; build one with Build.
type Graph struct {
	nodes map[string]*revision.Revision
	// edges maps a revision id to the ids of revisions whose down_revision_id
	// points at it, i.e. its successors in the upgrade direction.
	edges map[string][]string
}

// Build reads every .sql file directly inside dir, parses it into a
// Revision, and wires up edges by down_revision_id. A non-.sql file, or a
// subdirectory, is rejected outright rather than silently skipped.
func Build(dir string) (*Graph, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, wanderrors.IO(err, dir)
	}

	g := &Graph{
		nodes: make(map[string]*revision.Revision),
		edges: make(map[string][]string),
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".sql" {
			return nil, wanderrors.InvalidMigrationFile(
				errNotSQLFile(entry.Name()), path)
		}
		rev, err := revision.ParseFile(path)
		if err != nil {
			return nil, err
		}
		g.nodes[rev.RevisionID] = rev
	}

	for id, rev := range g.nodes {
		down, ok := rev.DownRevision()
		if !ok {
			continue
		}
		g.edges[down] = append(g.edges[down], id)
	}
	for _, successors := range g.edges {
		sort.Strings(successors)
	}

	return g, nil
}

// Len returns the number of revisions in the graph.
func (g *Graph) Len() int { return len(g.nodes) }

// Get returns the revision with the given id, or false if it isn't present.
func (g *Graph) Get(revisionID string) (*revision.Revision, bool) {
	rev, ok := g.nodes[revisionID]
	return rev, ok
}

// Root returns the revision with no predecessor. Validates the graph's
// shape first, so a Root call on a cyclic or divergent graph reports that
// problem instead of an arbitrary node. When several revisions have no
// predecessor, which of them is returned is not defined.
func (g *Graph) Root() (*revision.Revision, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	for id, rev := range g.nodes {
		if _, hasPredecessor := rev.DownRevision(); !hasPredecessor {
			return g.nodes[id], nil
		}
	}
	return nil, nil
}

// Head returns the single revision with no successor (the leaf of the
// chain), or nil if the graph is empty.
func (g *Graph) Head() (*revision.Revision, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	for id, rev := range g.nodes {
		if len(g.edges[id]) == 0 {
			return rev, nil
		}
	}
	return nil, nil
}

// Successor returns the revision immediately downstream of revisionID, or
// false if revisionID is the head or does not exist.
func (g *Graph) Successor(revisionID string) (*revision.Revision, bool) {
	successors := g.edges[revisionID]
	if len(successors) == 0 {
		return nil, false
	}
	return g.nodes[successors[0]], true
}

// Chain walks the graph from its root to its head, in upgrade order. It
// runs Validate first and returns its cycle/divergence error, if any.
func (g *Graph) Chain() ([]*revision.Revision, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	root, err := g.Root()
	if err != nil || root == nil {
		return nil, err
	}

	chain := make([]*revision.Revision, 0, len(g.nodes))
	current := root
	for current != nil {
		chain = append(chain, current)
		next, ok := g.Successor(current.RevisionID)
		if !ok {
			break
		}
		current = next
	}
	return chain, nil
}

// ChainFrom walks the graph starting immediately after start, in upgrade
// order, up to and including the head.
func (g *Graph) ChainFrom(start string) ([]*revision.Revision, error) {
	if _, ok := g.nodes[start]; !ok {
		return nil, wanderrors.Plan(start, "revision %s does not exist in the graph", start)
	}
	var chain []*revision.Revision
	current := start
	for {
		next, ok := g.Successor(current)
		if !ok {
			break
		}
		chain = append(chain, next)
		current = next.RevisionID
	}
	return chain, nil
}

// Validate checks the graph for cycles and divergent branches, returning a
// wanderrors.KindCycleDetected or wanderrors.KindDivergentBranch error
// describing the first problem found. An empty graph is valid.
func (g *Graph) Validate() error {
	if cycle := g.findCycle(); cycle != nil {
		return wanderrors.CycleDetected(cycle)
	}
	for node, successors := range g.edges {
		if len(successors) > 1 {
			return wanderrors.DivergentBranch(node, successors)
		}
	}
	return nil
}

// findCycle does a DFS from every unvisited node looking for a back edge.
// Returns the cycle as a list of "from -> to" edges in cycle order, or nil.
func (g *Graph) findCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.nodes))
	parent := make(map[string]string, len(g.nodes))

	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var cycleEdges []string
	var dfs func(node string) bool
	dfs = func(node string) bool {
		color[node] = gray
		for _, next := range g.edges[node] {
			switch color[next] {
			case white:
				parent[next] = node
				if dfs(next) {
					return true
				}
			case gray:
				cycleEdges = buildCyclePath(parent, node, next)
				return true
			}
		}
		color[node] = black
		return false
	}

	for _, id := range ids {
		if color[id] == white {
			if dfs(id) {
				return cycleEdges
			}
		}
	}
	return nil
}

func buildCyclePath(parent map[string]string, closingFrom, closingTo string) []string {
	path := []string{closingFrom}
	for n := closingFrom; n != closingTo; {
		p, ok := parent[n]
		if !ok {
			break
		}
		path = append(path, p)
		n = p
	}
	// path is closingTo .. closingFrom in reverse; flip and close the loop.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	edges := make([]string, 0, len(path))
	for i := 0; i < len(path)-1; i++ {
		edges = append(edges, path[i]+" -> "+path[i+1])
	}
	edges = append(edges, closingFrom+" -> "+closingTo)
	return edges
}

func errNotSQLFile(name string) error {
	return &notSQLFileError{name: name}
}

type notSQLFileError struct{ name string }

func (e *notSQLFileError) Error() string {
	return "migration directory entry is not a .sql file: " + e.name
}

// DOT renders the graph as Graphviz DOT source, used for diagnostics (the
// CLI's graph command) and by String when the graph is not a valid chain.
func (g *Graph) DOT() string {
	dg := dot.NewGraph(dot.Directed)
	gNodes := make(map[string]dot.Node, len(g.nodes))

	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		gNodes[id] = dg.Node(id)
	}
	for _, from := range ids {
		for _, to := range g.edges[from] {
			dg.Edge(gNodes[from], gNodes[to])
		}
	}
	return dg.String()
}

// String implements fmt.Stringer for debugging and error messages.
func (g *Graph) String() string {
	var b strings.Builder
	chain, err := g.Chain()
	if err != nil {
		return g.DOT()
	}
	for i, rev := range chain {
		if i > 0 {
			b.WriteString(" -> ")
		}
		b.WriteString(rev.RevisionID)
	}
	return b.String()
}
