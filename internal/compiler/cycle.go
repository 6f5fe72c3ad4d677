package compiler

import (
	"fmt"
	"slices"
	"strings"
)

// CycleWarning names a feedback loop between operations. A loop whose back
// edge enters a different sync group can still make progress; one inside a
// single group waits on its own output forever.
type CycleWarning struct {
	Path    []string `json:"path"` // first operation repeated last
	Message string   `json:"message"`
	Level   string   `json:"level"`
}

// AnalyzeCycles reports every feedback loop in p, self-feeding operations
// included, in a stable order. An acyclic pipeline yields an empty list.
func AnalyzeCycles(p *Pipeline) []CycleWarning {
	g := newFeedGraph(p)
	warnings := []CycleWarning{}
	for _, group := range g.components() {
		if len(group) == 1 && !slices.Contains(g.feeds[group[0]], group[0]) {
			continue
		}
		warnings = append(warnings, g.warning(group))
	}
	return warnings
}

// feedGraph holds, per operation, the sorted set of operations it feeds.
type feedGraph struct {
	names []string
	feeds map[string][]string
}

func newFeedGraph(p *Pipeline) *feedGraph {
	g := &feedGraph{feeds: make(map[string][]string, len(p.Operations))}
	for _, op := range p.Operations {
		if _, ok := g.feeds[op.Name]; !ok {
			g.names = append(g.names, op.Name)
			g.feeds[op.Name] = nil
		}
	}
	for _, c := range p.Connections {
		from, to := c.From.Operation, c.To.Operation
		if _, ok := g.feeds[from]; !ok {
			g.names = append(g.names, from)
		}
		if !slices.Contains(g.feeds[from], to) {
			g.feeds[from] = append(g.feeds[from], to)
		}
	}
	slices.Sort(g.names)
	for _, targets := range g.feeds {
		slices.Sort(targets)
	}
	return g
}

// components returns the strongly connected components (Tarjan), each
// sorted by name.
func (g *feedGraph) components() [][]string {
	t := &tarjan{
		g:     g,
		index: make(map[string]int, len(g.names)),
		low:   make(map[string]int, len(g.names)),
		held:  make(map[string]bool, len(g.names)),
	}
	for _, name := range g.names {
		if _, seen := t.index[name]; !seen {
			t.visit(name)
		}
	}
	return t.out
}

type tarjan struct {
	g     *feedGraph
	next  int
	index map[string]int
	low   map[string]int
	held  map[string]bool
	stack []string
	out   [][]string
}

func (t *tarjan) visit(v string) {
	t.index[v], t.low[v] = t.next, t.next
	t.next++
	t.stack = append(t.stack, v)
	t.held[v] = true

	for _, w := range t.g.feeds[v] {
		if _, seen := t.index[w]; !seen {
			t.visit(w)
			t.low[v] = min(t.low[v], t.low[w])
		} else if t.held[w] {
			t.low[v] = min(t.low[v], t.index[w])
		}
	}
	if t.low[v] != t.index[v] {
		return
	}

	var group []string
	for {
		top := len(t.stack) - 1
		w := t.stack[top]
		t.stack = t.stack[:top]
		t.held[w] = false
		group = append(group, w)
		if w == v {
			break
		}
	}
	slices.Sort(group)
	t.out = append(t.out, group)
}

func (g *feedGraph) warning(group []string) CycleWarning {
	if len(group) == 1 {
		name := group[0]
		return CycleWarning{
			Path:    []string{name, name},
			Message: fmt.Sprintf("operation feeds itself: %s → %s", name, name),
			Level:   "warning",
		}
	}
	path := g.loopThrough(group)
	return CycleWarning{
		Path:    path,
		Message: "feedback loop: " + strings.Join(path, " → "),
		Level:   "warning",
	}
}

// loopThrough finds the shortest loop from the first member of group back
// to itself, staying inside the group.
func (g *feedGraph) loopThrough(group []string) []string {
	start := group[0]
	parent := map[string]string{start: ""}
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, w := range g.feeds[cur] {
			if !slices.Contains(group, w) {
				continue
			}
			if w == start {
				path := []string{start}
				for n := cur; n != start; n = parent[n] {
					path = append(path, n)
				}
				slices.Reverse(path[1:])
				return append(path, start)
			}
			if _, seen := parent[w]; !seen {
				parent[w] = cur
				queue = append(queue, w)
			}
		}
	}
	return []string{start}
}
