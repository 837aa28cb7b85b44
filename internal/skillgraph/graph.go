// Package skillgraph provides read algorithms over the directed prerequisite
// graph between skills. Edge data comes from manual entry and is not
// guaranteed acyclic; every algorithm here terminates on cyclic input.
package skillgraph

import (
	"sort"

	"mastery-service/internal/models"
)

// Graph indexes a set of prerequisite edges for traversal. Edges point from
// a dependent skill to its required prerequisite.
type Graph struct {
	// prereqsOf maps skill key -> edges whose dependent is that skill.
	prereqsOf map[string][]*models.SkillPrerequisite
	// dependentsOf maps prerequisite key -> dependent skill keys.
	dependentsOf map[string][]string
	// skills is the set of all skill keys seen on either edge end.
	skills map[string]bool
}

// Build indexes active edges into a Graph. Inactive edges are ignored.
func Build(edges []*models.SkillPrerequisite) *Graph {
	g := &Graph{
		prereqsOf:    make(map[string][]*models.SkillPrerequisite),
		dependentsOf: make(map[string][]string),
		skills:       make(map[string]bool),
	}
	for _, e := range edges {
		if !e.IsActive {
			continue
		}
		g.prereqsOf[e.SkillKey] = append(g.prereqsOf[e.SkillKey], e)
		g.dependentsOf[e.PrerequisiteSkillKey] = append(g.dependentsOf[e.PrerequisiteSkillKey], e.SkillKey)
		g.skills[e.SkillKey] = true
		g.skills[e.PrerequisiteSkillKey] = true
	}
	return g
}

// Prerequisites returns the direct prerequisite edges of a skill.
func (g *Graph) Prerequisites(skillKey string) []*models.SkillPrerequisite {
	return g.prereqsOf[skillKey]
}

// PrerequisiteChain returns all transitively required skills of skillKey in
// depth-first order. The visited set persists across the whole traversal, so
// a skill reached by two paths appears once and cycles cannot recurse
// forever.
func (g *Graph) PrerequisiteChain(skillKey string) []string {
	var chain []string
	visited := make(map[string]bool)
	g.buildChain(skillKey, &chain, visited)
	return chain
}

func (g *Graph) buildChain(skillKey string, chain *[]string, visited map[string]bool) {
	if visited[skillKey] {
		return
	}
	visited[skillKey] = true

	for _, edge := range g.prereqsOf[skillKey] {
		prereq := edge.PrerequisiteSkillKey
		if !containsKey(*chain, prereq) {
			*chain = append(*chain, prereq)
			g.buildChain(prereq, chain, visited)
		}
	}
}

// TopologicalOrder returns a valid learning order via Kahn's algorithm:
// skills with no unmet prerequisites first. Skills trapped in a cycle never
// reach zero in-degree and are omitted from the result; the sort still
// terminates and returns the partial order. Ties are broken alphabetically
// for determinism.
func (g *Graph) TopologicalOrder() []string {
	inDegree := make(map[string]int, len(g.skills))
	for skill := range g.skills {
		inDegree[skill] = len(g.prereqsOf[skill])
	}

	var queue []string
	for skill, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, skill)
		}
	}
	sort.Strings(queue)

	var order []string
	for len(queue) > 0 {
		skill := queue[0]
		queue = queue[1:]
		order = append(order, skill)

		dependents := append([]string(nil), g.dependentsOf[skill]...)
		sort.Strings(dependents)
		for _, dep := range dependents {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	return order
}

// Bottlenecks ranks skills by how many other skills require them, most
// required first, capped at limit. Ties are broken alphabetically.
func (g *Graph) Bottlenecks(limit int) []models.BottleneckSkill {
	type fanIn struct {
		key   string
		count int
	}
	var ranked []fanIn
	for prereq, dependents := range g.dependentsOf {
		ranked = append(ranked, fanIn{key: prereq, count: len(dependents)})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].key < ranked[j].key
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	result := make([]models.BottleneckSkill, len(ranked))
	for i, r := range ranked {
		result[i] = models.BottleneckSkill{SkillKey: r.key, DependentCount: r.count}
	}
	return result
}

// DetectCycle reports whether adding an edge dependent -> prerequisite would
// close a cycle, i.e. whether dependent is already transitively required by
// prerequisite. Returns the offending path (prerequisite back to dependent)
// when a cycle is found.
func (g *Graph) DetectCycle(dependent, prerequisite string) []string {
	if dependent == prerequisite {
		return []string{dependent, dependent}
	}

	// Walk the prerequisite chain of the proposed prerequisite; if it leads
	// back to the dependent, the new edge would complete a cycle.
	var path []string
	visited := make(map[string]bool)
	if g.findPath(prerequisite, dependent, visited, &path) {
		return append([]string{dependent, prerequisite}, path[1:]...)
	}
	return nil
}

func (g *Graph) findPath(from, target string, visited map[string]bool, path *[]string) bool {
	if visited[from] {
		return false
	}
	visited[from] = true
	*path = append(*path, from)

	if from == target {
		return true
	}
	for _, edge := range g.prereqsOf[from] {
		if g.findPath(edge.PrerequisiteSkillKey, target, visited, path) {
			return true
		}
	}

	*path = (*path)[:len(*path)-1]
	return false
}

func containsKey(list []string, key string) bool {
	for _, k := range list {
		if k == key {
			return true
		}
	}
	return false
}
