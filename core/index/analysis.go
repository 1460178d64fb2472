package index

import (
	"sort"

	"github.com/codectx/repograph/model"
)

// DepthAnalysis describes how deep an entity's dependency chain goes.
type DepthAnalysis struct {
	Entity             string   `json:"entity"`
	MaxDepth           int      `json:"max_depth"`
	TotalDependencies  int      `json:"total_dependencies"`
	DirectDependencies int      `json:"direct_dependencies"`
	AllDependencies    []string `json:"all_dependencies"`
}

// FindCircularDependencies finds cycles over the IMPORTS and
// INHERITS_FROM edges of the given relationship list. Each returned
// chain starts and ends on the same name.
func FindCircularDependencies(edges []*model.GraphEdge) [][]string {
	graph := map[string][]string{}
	for _, edge := range edges {
		if edge.Kind != model.RelationshipImports && edge.Kind != model.RelationshipInheritsFrom {
			continue
		}
		graph[edge.SourceName] = append(graph[edge.SourceName], edge.TargetName)
	}
	for node := range graph {
		sort.Strings(graph[node])
	}

	var cycles [][]string
	visited := map[string]bool{}
	onStack := map[string]bool{}

	var dfs func(node string, path []string)
	dfs = func(node string, path []string) {
		visited[node] = true
		onStack[node] = true
		path = append(path, node)

		for _, neighbor := range graph[node] {
			if !visited[neighbor] {
				dfs(neighbor, path)
			} else if onStack[neighbor] {
				start := 0
				for i, name := range path {
					if name == neighbor {
						start = i
						break
					}
				}
				cycle := append(append([]string{}, path[start:]...), neighbor)
				if !containsCycle(cycles, cycle) {
					cycles = append(cycles, cycle)
				}
			}
		}

		onStack[node] = false
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	for _, node := range nodes {
		if !visited[node] {
			dfs(node, nil)
		}
	}

	return cycles
}

func containsCycle(cycles [][]string, cycle []string) bool {
	for _, existing := range cycles {
		if len(existing) != len(cycle) {
			continue
		}
		same := true
		for i := range existing {
			if existing[i] != cycle[i] {
				same = false
				break
			}
		}
		if same {
			return true
		}
	}
	return false
}

// AnalyzeDependencyDepth runs a breadth first search from an entity
// over all given edges and reports the depth of its dependency chain.
func AnalyzeDependencyDepth(edges []*model.GraphEdge, entityName string) *DepthAnalysis {
	graph := map[string][]string{}
	for _, edge := range edges {
		graph[edge.SourceName] = append(graph[edge.SourceName], edge.TargetName)
	}

	visited := map[string]bool{entityName: true}
	dependencies := map[string]bool{}
	type queued struct {
		name  string
		depth int
	}
	queue := []queued{{entityName, 0}}
	maxDepth := 0

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current.depth > maxDepth {
			maxDepth = current.depth
		}

		for _, neighbor := range graph[current.name] {
			dependencies[neighbor] = true
			if !visited[neighbor] {
				visited[neighbor] = true
				queue = append(queue, queued{neighbor, current.depth + 1})
			}
		}
	}

	all := make([]string, 0, len(dependencies))
	for name := range dependencies {
		all = append(all, name)
	}
	sort.Strings(all)

	return &DepthAnalysis{
		Entity:             entityName,
		MaxDepth:           maxDepth,
		TotalDependencies:  len(dependencies),
		DirectDependencies: len(graph[entityName]),
		AllDependencies:    all,
	}
}
