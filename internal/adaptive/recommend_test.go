package adaptive

import (
	"testing"
	"time"

	"mastery-service/internal/models"
)

func record(skillKey string, mastery float64) *models.MasteryRecord {
	return &models.MasteryRecord{SkillKey: skillKey, SkillName: skillKey, MasteryLevel: mastery}
}

func TestNextModuleEmptyRecords(t *testing.T) {
	engine := NewEngine(nil)
	if got := engine.NextModule(nil, time.Now()); got != nil {
		t.Errorf("Expected nil recommendation with no records, got %+v", got)
	}
}

func TestNextModuleRemedialWinsOverDueReview(t *testing.T) {
	engine := NewEngine(nil)
	now := time.Now()

	overdue := now.AddDate(0, 0, -1)
	strong := record("strong_skill", 90.0)
	strong.NextReviewAt = &overdue
	weak := record("weak_skill", 40.0)

	got := engine.NextModule([]*models.MasteryRecord{strong, weak}, now)
	if got == nil {
		t.Fatal("Expected a recommendation")
	}
	if got.RecommendationType != models.RecommendationRemedial {
		t.Errorf("Expected REMEDIAL, got %s", got.RecommendationType)
	}
	if got.SkillKey != "weak_skill" {
		t.Errorf("Expected weak_skill, got %s", got.SkillKey)
	}
	if got.Priority != 1 {
		t.Errorf("Expected priority 1, got %d", got.Priority)
	}
	if got.TargetMastery != 60.0 {
		t.Errorf("Expected remedial target 60, got %f", got.TargetMastery)
	}
}

func TestNextModulePicksLowestMasteryForRemedial(t *testing.T) {
	engine := NewEngine(nil)

	records := []*models.MasteryRecord{
		record("low_a", 55.0),
		record("low_b", 30.0),
		record("low_c", 45.0),
	}

	got := engine.NextModule(records, time.Now())
	if got.SkillKey != "low_b" {
		t.Errorf("Expected the weakest skill low_b, got %s", got.SkillKey)
	}
}

func TestNextModuleReview(t *testing.T) {
	engine := NewEngine(nil)
	now := time.Now()

	overdue := now.AddDate(0, 0, -2)
	due := record("due_skill", 75.0)
	due.NextReviewAt = &overdue

	got := engine.NextModule([]*models.MasteryRecord{record("ok_skill", 85.0), due}, now)
	if got.RecommendationType != models.RecommendationReview {
		t.Errorf("Expected REVIEW, got %s", got.RecommendationType)
	}
	if got.SkillKey != "due_skill" {
		t.Errorf("Expected due_skill, got %s", got.SkillKey)
	}
	if got.Priority != 2 {
		t.Errorf("Expected priority 2, got %d", got.Priority)
	}
}

func TestNextModuleMiddleBand(t *testing.T) {
	engine := NewEngine(nil)

	records := []*models.MasteryRecord{
		record("mid_low", 62.0),
		record("mid_high", 78.0),
		record("expert", 95.0),
	}

	got := engine.NextModule(records, time.Now())
	if got.RecommendationType != models.RecommendationNextModule {
		t.Errorf("Expected NEXT_MODULE, got %s", got.RecommendationType)
	}
	// The strongest middle-band skill advances, not the expert one.
	if got.SkillKey != "mid_high" {
		t.Errorf("Expected mid_high, got %s", got.SkillKey)
	}
	if got.Priority != 3 {
		t.Errorf("Expected priority 3, got %d", got.Priority)
	}
}

func TestNextModuleAllHighMastery(t *testing.T) {
	engine := NewEngine(nil)

	records := []*models.MasteryRecord{
		record("first", 90.0),
		record("second", 95.0),
	}

	got := engine.NextModule(records, time.Now())
	if got.RecommendationType != models.RecommendationNextModule {
		t.Errorf("Expected NEXT_MODULE, got %s", got.RecommendationType)
	}
	if got.SkillKey != "first" {
		t.Errorf("Expected the first record, got %s", got.SkillKey)
	}
	if got.Priority != 4 {
		t.Errorf("Expected priority 4, got %d", got.Priority)
	}
}

func TestReviewQueue(t *testing.T) {
	engine := NewEngine(nil)
	now := time.Now()

	overdue := now.AddDate(0, 0, -1)
	future := now.AddDate(0, 0, 5)

	a := record("due_a", 70.0)
	a.NextReviewAt = &overdue
	b := record("not_due", 70.0)
	b.NextReviewAt = &future
	c := record("due_c", 85.0)
	c.NextReviewAt = &overdue
	d := record("never_scheduled", 20.0)

	queue := engine.ReviewQueue([]*models.MasteryRecord{a, b, c, d}, now)
	if len(queue) != 2 {
		t.Fatalf("Expected 2 due skills, got %d", len(queue))
	}
	if queue[0].SkillKey != "due_a" || queue[1].SkillKey != "due_c" {
		t.Errorf("Unexpected queue order: %s, %s", queue[0].SkillKey, queue[1].SkillKey)
	}
}

func TestDiagnosticSetSelection(t *testing.T) {
	engine := NewEngine(nil)

	struggling := record("struggling", 70.0)
	struggling.ConsecutiveIncorrect = 3

	records := []*models.MasteryRecord{
		record("weak", 30.0),
		record("fine", 75.0),
		struggling,
	}

	got := engine.DiagnosticSet(records)
	if len(got) != 2 {
		t.Fatalf("Expected 2 diagnostic skills, got %d", len(got))
	}
	// Weakest first.
	if got[0].SkillKey != "weak" {
		t.Errorf("Expected weak first, got %s", got[0].SkillKey)
	}
	if got[1].SkillKey != "struggling" {
		t.Errorf("Expected struggling second, got %s", got[1].SkillKey)
	}
}

func TestDiagnosticSetDedupAndCap(t *testing.T) {
	engine := NewEngine(nil)

	records := []*models.MasteryRecord{
		record("skill_a", 10.0),
		record("skill_b", 20.0),
		record("skill_c", 30.0),
		record("skill_d", 40.0),
		record("skill_e", 45.0),
		record("skill_f", 48.0),
		record("skill_g", 49.0),
		// Duplicate skill key must only appear once.
		record("skill_b", 15.0),
	}

	got := engine.DiagnosticSet(records)
	if len(got) != 5 {
		t.Fatalf("Expected diagnostic set capped at 5, got %d", len(got))
	}

	seen := make(map[string]bool)
	for _, r := range got {
		if seen[r.SkillKey] {
			t.Errorf("Duplicate skill in diagnostic set: %s", r.SkillKey)
		}
		seen[r.SkillKey] = true
	}
}

func TestRecommendationDifficultyFollowsMastery(t *testing.T) {
	engine := NewEngine(nil)

	got := engine.NextModule([]*models.MasteryRecord{record("weak", 30.0)}, time.Now())
	if got.Difficulty != models.DifficultyEasy {
		t.Errorf("Expected EASY for low mastery, got %s", got.Difficulty)
	}

	got = engine.NextModule([]*models.MasteryRecord{record("mid", 70.0)}, time.Now())
	if got.Difficulty != models.DifficultyMedium {
		t.Errorf("Expected MEDIUM for middle mastery, got %s", got.Difficulty)
	}

	got = engine.NextModule([]*models.MasteryRecord{record("high", 90.0)}, time.Now())
	if got.Difficulty != models.DifficultyHard {
		t.Errorf("Expected HARD for high mastery, got %s", got.Difficulty)
	}
}
