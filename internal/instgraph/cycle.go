package instgraph

import (
	"fmt"
	"strings"
)

// CycleError is a chain of unconditional instantiations that leads back
// to its start.
type CycleError struct {
	Cycle []string
	Edge  *Edge // the instantiation that closes the cycle
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("recursive instantiation: %s", strings.Join(e.Cycle, " -> "))
}

// FindAllCycles returns every cycle made only of unconditional edges.
// Such a cycle recurses no matter what parameters are chosen. Cycles
// through generate schemes are left to the elaborator, which sees the
// actual branches taken.
func (g *Graph) FindAllCycles() []*CycleError {
	var cycles []*CycleError
	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	path := make([]string, 0)

	var dfs func(node *Node)
	dfs = func(node *Node) {
		visited[node.Name] = true
		recStack[node.Name] = true
		path = append(path, node.Name)

		for _, edge := range node.Children {
			if edge.Conditional {
				continue
			}
			child := edge.To
			if !visited[child.Name] {
				dfs(child)
			} else if recStack[child.Name] {
				cycleStart := -1
				for i, p := range path {
					if p == child.Name {
						cycleStart = i
						break
					}
				}
				if cycleStart >= 0 {
					cycle := make([]string, len(path)-cycleStart+1)
					copy(cycle, path[cycleStart:])
					cycle[len(cycle)-1] = child.Name
					cycles = append(cycles, &CycleError{Cycle: cycle, Edge: edge})
				}
			}
		}

		path = path[:len(path)-1]
		recStack[node.Name] = false
	}

	for _, name := range g.order {
		if !visited[name] {
			dfs(g.Nodes[name])
		}
	}
	return cycles
}

// InCycle reports the modules that take part in any reported cycle.
func InCycle(cycles []*CycleError) map[string]bool {
	out := make(map[string]bool)
	for _, c := range cycles {
		for _, name := range c.Cycle {
			out[name] = true
		}
	}
	return out
}

// TopologicalSort returns module names with instantiated modules before
// the modules that instantiate them. Conditional edges count.
func (g *Graph) TopologicalSort() []string {
	var result []string
	visited := make(map[string]bool)

	var visit func(node *Node)
	visit = func(node *Node) {
		if visited[node.Name] {
			return
		}
		visited[node.Name] = true
		for _, edge := range node.Children {
			visit(edge.To)
		}
		result = append(result, node.Name)
	}

	for _, name := range g.order {
		visit(g.Nodes[name])
	}
	return result
}
