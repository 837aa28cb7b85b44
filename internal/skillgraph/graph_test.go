package skillgraph

import (
	"testing"

	"mastery-service/internal/models"
)

func edge(skill, prereq string) *models.SkillPrerequisite {
	return &models.SkillPrerequisite{
		SkillKey:             skill,
		PrerequisiteSkillKey: prereq,
		IsActive:             true,
	}
}

func TestBuildSkipsInactiveEdges(t *testing.T) {
	inactive := edge("b", "a")
	inactive.IsActive = false

	g := Build([]*models.SkillPrerequisite{inactive, edge("c", "b")})
	if len(g.Prerequisites("b")) != 0 {
		t.Error("Expected inactive edge to be ignored")
	}
	if len(g.Prerequisites("c")) != 1 {
		t.Error("Expected active edge to be indexed")
	}
}

func TestPrerequisiteChain(t *testing.T) {
	// c requires b, b requires a
	g := Build([]*models.SkillPrerequisite{
		edge("c", "b"),
		edge("b", "a"),
	})

	chain := g.PrerequisiteChain("c")
	if len(chain) != 2 {
		t.Fatalf("Expected chain of 2, got %v", chain)
	}
	if chain[0] != "b" || chain[1] != "a" {
		t.Errorf("Expected [b a], got %v", chain)
	}
}

func TestPrerequisiteChainDiamond(t *testing.T) {
	// d requires b and c, both require a; a must appear once.
	g := Build([]*models.SkillPrerequisite{
		edge("d", "b"),
		edge("d", "c"),
		edge("b", "a"),
		edge("c", "a"),
	})

	chain := g.PrerequisiteChain("d")
	seen := make(map[string]int)
	for _, s := range chain {
		seen[s]++
	}
	if seen["a"] != 1 {
		t.Errorf("Expected a to appear exactly once, chain: %v", chain)
	}
	if len(chain) != 3 {
		t.Errorf("Expected chain of 3, got %v", chain)
	}
}

func TestPrerequisiteChainTerminatesOnCycle(t *testing.T) {
	// a <-> b cycle in raw edge data must not recurse forever.
	g := Build([]*models.SkillPrerequisite{
		edge("a", "b"),
		edge("b", "a"),
	})

	chain := g.PrerequisiteChain("a")
	if len(chain) == 0 {
		t.Error("Expected a non-empty chain despite the cycle")
	}
	for _, s := range chain {
		if s != "a" && s != "b" {
			t.Errorf("Unexpected skill in chain: %s", s)
		}
	}
}

func TestTopologicalOrder(t *testing.T) {
	g := Build([]*models.SkillPrerequisite{
		edge("c", "b"),
		edge("b", "a"),
	})

	order := g.TopologicalOrder()
	if len(order) != 3 {
		t.Fatalf("Expected 3 skills, got %v", order)
	}

	pos := make(map[string]int)
	for i, s := range order {
		pos[s] = i
	}
	if pos["a"] > pos["b"] || pos["b"] > pos["c"] {
		t.Errorf("Prerequisites must come first, got %v", order)
	}
}

func TestTopologicalOrderDeterministic(t *testing.T) {
	g := Build([]*models.SkillPrerequisite{
		edge("z", "root"),
		edge("m", "root"),
		edge("a", "root"),
	})

	order := g.TopologicalOrder()
	expected := []string{"root", "a", "m", "z"}
	for i, s := range expected {
		if order[i] != s {
			t.Fatalf("Expected deterministic order %v, got %v", expected, order)
		}
	}
}

func TestTopologicalOrderOmitsCycleMembers(t *testing.T) {
	// a and b trap each other; c stands alone below root.
	g := Build([]*models.SkillPrerequisite{
		edge("a", "b"),
		edge("b", "a"),
		edge("c", "root"),
	})

	order := g.TopologicalOrder()
	for _, s := range order {
		if s == "a" || s == "b" {
			t.Errorf("Cycle member %s must be omitted, got %v", s, order)
		}
	}
	if len(order) != 2 {
		t.Errorf("Expected [root c], got %v", order)
	}
}

func TestBottlenecks(t *testing.T) {
	g := Build([]*models.SkillPrerequisite{
		edge("b", "a"),
		edge("c", "a"),
		edge("d", "a"),
		edge("d", "c"),
	})

	ranked := g.Bottlenecks(10)
	if len(ranked) != 2 {
		t.Fatalf("Expected 2 bottleneck skills, got %v", ranked)
	}
	if ranked[0].SkillKey != "a" || ranked[0].DependentCount != 3 {
		t.Errorf("Expected a with 3 dependents first, got %+v", ranked[0])
	}
	if ranked[1].SkillKey != "c" || ranked[1].DependentCount != 1 {
		t.Errorf("Expected c with 1 dependent second, got %+v", ranked[1])
	}

	capped := g.Bottlenecks(1)
	if len(capped) != 1 {
		t.Errorf("Expected limit to cap the ranking, got %v", capped)
	}
}

func TestDetectCycle(t *testing.T) {
	// b requires a; adding a -> b would close a cycle.
	g := Build([]*models.SkillPrerequisite{
		edge("b", "a"),
	})

	if path := g.DetectCycle("a", "b"); path == nil {
		t.Error("Expected cycle when a would require b")
	}

	// The reverse direction already exists and a fresh edge c -> a is fine.
	if path := g.DetectCycle("c", "a"); path != nil {
		t.Errorf("Expected no cycle for c -> a, got path %v", path)
	}
}

func TestDetectCycleSelfLoop(t *testing.T) {
	g := Build(nil)
	if path := g.DetectCycle("a", "a"); path == nil {
		t.Error("Expected self-loop to be reported as a cycle")
	}
}

func TestDetectCycleTransitive(t *testing.T) {
	// c -> b -> a chain; adding a -> c closes a three-skill cycle.
	g := Build([]*models.SkillPrerequisite{
		edge("c", "b"),
		edge("b", "a"),
	})

	path := g.DetectCycle("a", "c")
	if path == nil {
		t.Fatal("Expected transitive cycle to be detected")
	}
	if path[0] != "a" || path[len(path)-1] != "a" {
		t.Errorf("Expected path to start and end at a, got %v", path)
	}
}
