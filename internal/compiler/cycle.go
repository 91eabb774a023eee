package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/ncd/internal/program"
)

// NoTemplate is the template name call() treats as "run nothing".
const NoTemplate = "<none>"

// CycleWarning represents template recursion in a program.
//
// Recursion is a warning, not an error, because it may be intentional:
//   - Retry loops that call themselves from a try() template
//   - Recursion guarded by embcall2_multif conditions
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["t1", "t2", "t1"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning" or "info"
}

// TemplateRefs returns the literal template names a statement would start.
//
// Only string literal arguments count; a template name computed from a
// reference is only known at runtime.
func TemplateRefs(st program.StatementSpec) []string {
	if st.IsMethod() {
		return nil
	}

	var positions []int
	switch st.Module {
	case "call", "call_with_caller_target", "try":
		positions = []int{0}
	case "embcall2_multif":
		// cond1, t1, cond2, t2, ..., [else]
		for j := 1; j < len(st.Args); j += 2 {
			positions = append(positions, j)
		}
		if len(st.Args)%2 == 1 {
			positions = append(positions, len(st.Args)-1)
		}
	}

	var names []string
	for _, pos := range positions {
		if pos < len(st.Args) && st.Args[pos].Kind == program.ArgString {
			names = append(names, st.Args[pos].Str)
		}
	}
	return names
}

// AnalyzeCycles performs static recursion analysis on a program.
//
// The algorithm:
//  1. Build process → template call graph from literal template arguments
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or self-loops as a recursion warning
//
// A DAG (no recursion) returns an empty warning list.
func AnalyzeCycles(prog *program.Program) []CycleWarning {
	if prog == nil || len(prog.Templates) == 0 {
		return []CycleWarning{}
	}

	graph, order := buildCallGraph(prog)
	sccs := tarjanSCC(graph, order)

	warnings := []CycleWarning{}
	for _, scc := range sccs {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			warnings = append(warnings, cycleSCCToWarning(scc, graph))
		}
	}
	return warnings
}

// callGraph maps process or template name → templates it may start.
type callGraph map[string][]string

// buildCallGraph constructs the call graph. order lists nodes in
// declaration order so results are deterministic.
func buildCallGraph(prog *program.Program) (callGraph, []string) {
	graph := make(callGraph)
	var order []string

	add := func(ps program.ProcessSpec) {
		if _, ok := graph[ps.Name]; !ok {
			order = append(order, ps.Name)
			graph[ps.Name] = []string{}
		}
		for _, st := range ps.Statements {
			for _, name := range TemplateRefs(st) {
				if _, ok := prog.Template(name); ok {
					graph[ps.Name] = append(graph[ps.Name], name)
				}
			}
		}
	}
	for _, ps := range prog.Processes {
		add(ps)
	}
	for _, ps := range prog.Templates {
		add(ps)
	}
	return graph, order
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph callGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Returns a list of SCCs, where each SCC is a list of node names.
// Single-node SCCs without self-loops are NOT cycles.
func tarjanSCC(graph callGraph, order []string) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// If v is a root node, pop the stack and create an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range order {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

// cycleSCCToWarning converts an SCC to a CycleWarning.
func cycleSCCToWarning(scc []string, graph callGraph) CycleWarning {
	if len(scc) == 1 {
		name := scc[0]
		return CycleWarning{
			Path:    []string{name, name},
			Message: fmt.Sprintf("Template calls itself: %s → %s", name, name),
			Level:   "warning",
		}
	}

	path := reconstructCyclePath(scc, graph)
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("Template recursion detected: %s", strings.Join(path, " → ")),
		Level:   "warning",
	}
}

// reconstructCyclePath builds a cycle path from an SCC.
//
// Start at the last node popped (the SCC root), follow edges to other SCC
// members, continue until we return to start node.
func reconstructCyclePath(scc []string, graph callGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	sccSet := make(map[string]bool)
	for _, node := range scc {
		sccSet[node] = true
	}

	start := scc[len(scc)-1]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
