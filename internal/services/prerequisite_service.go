package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"mastery-service/internal/cache"
	"mastery-service/internal/models"
	"mastery-service/internal/repository"
	"mastery-service/internal/skillgraph"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// PrerequisiteService manages the prerequisite edge set and answers graph
// questions over it: gating checks, chains, learning order, bottlenecks.
type PrerequisiteService struct {
	prereqRepo  *repository.PrerequisiteRepository
	masteryRepo *repository.MasteryRepository
	prereqCache *cache.PrereqCache
}

func NewPrerequisiteService(prereqRepo *repository.PrerequisiteRepository, masteryRepo *repository.MasteryRepository, prereqCache *cache.PrereqCache) *PrerequisiteService {
	return &PrerequisiteService{
		prereqRepo:  prereqRepo,
		masteryRepo: masteryRepo,
		prereqCache: prereqCache,
	}
}

// CreatePrerequisite inserts a new edge after validating it would not close
// a cycle in the owner's graph.
func (s *PrerequisiteService) CreatePrerequisite(ctx context.Context, edge *models.SkillPrerequisite) (*models.SkillPrerequisite, error) {
	if edge.SkillKey == "" || edge.PrerequisiteSkillKey == "" {
		return nil, fmt.Errorf("invalid prerequisite: skill keys are required")
	}
	if edge.SkillKey == edge.PrerequisiteSkillKey {
		return nil, fmt.Errorf("cycle detected: a skill cannot require itself")
	}
	if edge.MinimumMasteryRequired <= 0 {
		edge.MinimumMasteryRequired = 60
	}
	if edge.MinimumMasteryRequired > 100 {
		return nil, fmt.Errorf("invalid prerequisite: minimum mastery must be at most 100")
	}
	if edge.Weight <= 0 {
		edge.Weight = 1.0
	}

	existing, err := s.prereqRepo.GetByOwner(ctx, edge.OwnerID)
	if err != nil {
		return nil, err
	}

	graph := skillgraph.Build(existing)
	if path := graph.DetectCycle(edge.SkillKey, edge.PrerequisiteSkillKey); path != nil {
		return nil, fmt.Errorf("cycle detected: %s", strings.Join(path, " -> "))
	}

	created, err := s.prereqRepo.Create(ctx, edge)
	if err != nil {
		return nil, err
	}

	log.Printf("Created prerequisite edge %s -> %s (min mastery %.0f)",
		edge.SkillKey, edge.PrerequisiteSkillKey, edge.MinimumMasteryRequired)

	s.prereqCache.Invalidate(ctx, edge.OwnerID, edge.SubjectID)
	return created, nil
}

// RemovePrerequisite soft-deletes an edge
func (s *PrerequisiteService) RemovePrerequisite(ctx context.Context, ownerID, subjectID bson.ObjectID, skillKey, prerequisiteSkillKey string) error {
	if err := s.prereqRepo.Deactivate(ctx, ownerID, skillKey, prerequisiteSkillKey); err != nil {
		return err
	}

	log.Printf("Removed prerequisite edge %s -> %s", skillKey, prerequisiteSkillKey)

	s.prereqCache.Invalidate(ctx, ownerID, subjectID)
	return nil
}

// GetPrerequisites returns a skill's direct prerequisite edges
func (s *PrerequisiteService) GetPrerequisites(ctx context.Context, ownerID bson.ObjectID, skillKey string) ([]*models.SkillPrerequisite, error) {
	return s.prereqRepo.GetBySkill(ctx, ownerID, skillKey)
}

// GetDependents returns the edges of skills that require the given skill
func (s *PrerequisiteService) GetDependents(ctx context.Context, ownerID bson.ObjectID, skillKey string) ([]*models.SkillPrerequisite, error) {
	return s.prereqRepo.GetDependents(ctx, ownerID, skillKey)
}

// CheckPrerequisites reports whether a student may start a skill. Only
// strict edges block; advisory edges are reported in the blocks list but
// never gate access. A missing mastery record counts as zero mastery.
func (s *PrerequisiteService) CheckPrerequisites(ctx context.Context, ownerID, studentID bson.ObjectID, skillKey string) (bool, []models.PrerequisiteBlock, error) {
	edges, err := s.prereqRepo.GetBySkill(ctx, ownerID, skillKey)
	if err != nil {
		return false, nil, err
	}

	mastery, err := s.masteryLevels(ctx, ownerID, studentID, edges)
	if err != nil {
		return false, nil, err
	}

	met, blocks := collectBlocks(edges, mastery)
	return met, blocks, nil
}

// GetBlockingSkills explains why a skill is locked: every unmet prerequisite
// edge, advisory ones included, becomes a gap record.
func (s *PrerequisiteService) GetBlockingSkills(ctx context.Context, ownerID, studentID bson.ObjectID, skillKey string) ([]models.PrerequisiteBlock, error) {
	edges, err := s.prereqRepo.GetBySkill(ctx, ownerID, skillKey)
	if err != nil {
		return nil, err
	}

	mastery, err := s.masteryLevels(ctx, ownerID, studentID, edges)
	if err != nil {
		return nil, err
	}

	_, blocks := collectBlocks(edges, mastery)
	return blocks, nil
}

// collectBlocks evaluates edges against the student's mastery levels. Every
// unmet edge produces a gap record; only strict edges gate.
func collectBlocks(edges []*models.SkillPrerequisite, mastery map[string]float64) (bool, []models.PrerequisiteBlock) {
	met := true
	var blocks []models.PrerequisiteBlock
	for _, edge := range edges {
		current := mastery[edge.PrerequisiteSkillKey]
		if edge.IsMasteryMet(current) {
			continue
		}

		blocks = append(blocks, models.PrerequisiteBlock{
			SkillKey:        edge.PrerequisiteSkillKey,
			SkillName:       edge.PrerequisiteSkillName,
			CurrentMastery:  current,
			RequiredMastery: edge.MinimumMasteryRequired,
			Gap:             edge.MinimumMasteryRequired - current,
		})
		if edge.IsStrict {
			met = false
		}
	}
	return met, blocks
}

// masteryLevels loads the student's mastery for each edge's prerequisite
// skill. A missing record counts as zero mastery.
func (s *PrerequisiteService) masteryLevels(ctx context.Context, ownerID, studentID bson.ObjectID, edges []*models.SkillPrerequisite) (map[string]float64, error) {
	levels := make(map[string]float64, len(edges))
	for _, edge := range edges {
		if _, ok := levels[edge.PrerequisiteSkillKey]; ok {
			continue
		}
		mastery, err := s.studentMastery(ctx, ownerID, studentID, edge.PrerequisiteSkillKey)
		if err != nil {
			return nil, err
		}
		levels[edge.PrerequisiteSkillKey] = mastery
	}
	return levels, nil
}

// CalculatePrerequisiteCompletion returns the percentage of a skill's
// prerequisite edges the student has met. A skill with no prerequisites is
// 100% complete.
func (s *PrerequisiteService) CalculatePrerequisiteCompletion(ctx context.Context, ownerID, studentID bson.ObjectID, skillKey string) (float64, error) {
	edges, err := s.prereqRepo.GetBySkill(ctx, ownerID, skillKey)
	if err != nil {
		return 0, err
	}
	if len(edges) == 0 {
		return 100.0, nil
	}

	met := 0
	for _, edge := range edges {
		mastery, err := s.studentMastery(ctx, ownerID, studentID, edge.PrerequisiteSkillKey)
		if err != nil {
			return 0, err
		}
		if edge.IsMasteryMet(mastery) {
			met++
		}
	}

	return float64(met) / float64(len(edges)) * 100.0, nil
}

// GetPrerequisiteChain returns every skill transitively required before
// skillKey, in depth-first discovery order.
func (s *PrerequisiteService) GetPrerequisiteChain(ctx context.Context, ownerID bson.ObjectID, skillKey string) ([]string, error) {
	edges, err := s.prereqRepo.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	return skillgraph.Build(edges).PrerequisiteChain(skillKey), nil
}

// GetRecommendedLearningOrder returns a valid topological learning order for
// a subject's skills. Skills caught in an edge-data cycle are omitted.
func (s *PrerequisiteService) GetRecommendedLearningOrder(ctx context.Context, ownerID, subjectID bson.ObjectID) ([]string, error) {
	edges, err := s.subjectEdges(ctx, ownerID, subjectID)
	if err != nil {
		return nil, err
	}

	return skillgraph.Build(edges).TopologicalOrder(), nil
}

// FindPrerequisiteBottlenecks ranks the subject's most-depended-on skills
func (s *PrerequisiteService) FindPrerequisiteBottlenecks(ctx context.Context, ownerID, subjectID bson.ObjectID, limit int) (*models.BottleneckReport, error) {
	if limit <= 0 {
		limit = 10
	}

	edges, err := s.subjectEdges(ctx, ownerID, subjectID)
	if err != nil {
		return nil, err
	}

	bottlenecks := skillgraph.Build(edges).Bottlenecks(limit)
	return &models.BottleneckReport{
		BottleneckSkills: bottlenecks,
		Count:            len(bottlenecks),
	}, nil
}

// subjectEdges loads a subject's edge set through the Redis cache
func (s *PrerequisiteService) subjectEdges(ctx context.Context, ownerID, subjectID bson.ObjectID) ([]*models.SkillPrerequisite, error) {
	if cached := s.prereqCache.Get(ctx, ownerID, subjectID); cached != nil {
		return cached, nil
	}

	edges, err := s.prereqRepo.GetBySubject(ctx, ownerID, subjectID)
	if err != nil {
		return nil, err
	}

	s.prereqCache.Set(ctx, ownerID, subjectID, edges)
	return edges, nil
}

func (s *PrerequisiteService) studentMastery(ctx context.Context, ownerID, studentID bson.ObjectID, skillKey string) (float64, error) {
	record, err := s.masteryRepo.GetByStudentAndSkill(ctx, ownerID, studentID, skillKey)
	if err != nil {
		return 0, err
	}
	if record == nil {
		return 0, nil
	}
	return record.MasteryLevel, nil
}
