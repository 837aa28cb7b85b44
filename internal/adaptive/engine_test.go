package adaptive

import (
	"math"
	"testing"
	"time"

	"mastery-service/internal/models"
)

const epsilon = 0.0001

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestPerformanceScore(t *testing.T) {
	engine := NewEngine(nil)

	tests := []struct {
		name     string
		outcome  models.Outcome
		hints    int
		expected float64
	}{
		{"correct no hints", models.OutcomeCorrect, 0, 1.0},
		{"correct one hint", models.OutcomeCorrect, 1, 0.9},
		{"correct two hints", models.OutcomeCorrect, 2, 0.8},
		{"correct many hints hits floor", models.OutcomeCorrect, 10, 0.5},
		{"partial no hints", models.OutcomePartial, 0, 0.5},
		{"partial two hints", models.OutcomePartial, 2, 0.4},
		{"incorrect", models.OutcomeIncorrect, 0, 0.0},
		{"incorrect with hints stays zero", models.OutcomeIncorrect, 3, 0.0},
		{"skipped", models.OutcomeSkipped, 0, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.PerformanceScore(tt.outcome, tt.hints)
			if !almostEqual(got, tt.expected) {
				t.Errorf("PerformanceScore(%s, %d) = %f, want %f", tt.outcome, tt.hints, got, tt.expected)
			}
		})
	}
}

func TestQuality(t *testing.T) {
	engine := NewEngine(nil)

	tests := []struct {
		name     string
		outcome  models.Outcome
		hints    int
		expected int
	}{
		{"perfect recall", models.OutcomeCorrect, 0, 5},
		{"correct with hints", models.OutcomeCorrect, 2, 4},
		{"partial", models.OutcomePartial, 0, 3},
		{"incorrect", models.OutcomeIncorrect, 0, 1},
		{"skipped", models.OutcomeSkipped, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.Quality(tt.outcome, tt.hints)
			if got != tt.expected {
				t.Errorf("Quality(%s, %d) = %d, want %d", tt.outcome, tt.hints, got, tt.expected)
			}
		})
	}
}

func TestApplyInteractionEWMA(t *testing.T) {
	engine := NewEngine(nil)
	now := time.Now()

	// 50 + 0.3 * (100 - 50) = 65
	record := &models.MasteryRecord{MasteryLevel: 50.0}
	engine.ApplyInteraction(record, models.OutcomeCorrect, 120, 0, models.DifficultyMedium, now)
	if !almostEqual(record.MasteryLevel, 65.0) {
		t.Errorf("Expected mastery 65.0 after correct answer at 50.0, got %f", record.MasteryLevel)
	}

	// 50 + 0.3 * (0 - 50) = 35
	record = &models.MasteryRecord{MasteryLevel: 50.0}
	engine.ApplyInteraction(record, models.OutcomeIncorrect, 60, 0, models.DifficultyMedium, now)
	if !almostEqual(record.MasteryLevel, 35.0) {
		t.Errorf("Expected mastery 35.0 after incorrect answer at 50.0, got %f", record.MasteryLevel)
	}

	// 50 + 0.3 * (50 - 50) = 50, partial holds steady at the midpoint
	record = &models.MasteryRecord{MasteryLevel: 50.0}
	engine.ApplyInteraction(record, models.OutcomePartial, 60, 0, models.DifficultyMedium, now)
	if !almostEqual(record.MasteryLevel, 50.0) {
		t.Errorf("Expected mastery 50.0 after partial answer at 50.0, got %f", record.MasteryLevel)
	}
}

func TestApplyInteractionHintPenalty(t *testing.T) {
	engine := NewEngine(nil)
	now := time.Now()

	// Two hints cut the performance to 0.8: 50 + 0.3 * (80 - 50) = 59
	record := &models.MasteryRecord{MasteryLevel: 50.0}
	engine.ApplyInteraction(record, models.OutcomeCorrect, 60, 2, models.DifficultyMedium, now)
	if !almostEqual(record.MasteryLevel, 59.0) {
		t.Errorf("Expected mastery 59.0 with two hints, got %f", record.MasteryLevel)
	}
}

func TestApplyInteractionClampsBounds(t *testing.T) {
	engine := NewEngine(nil)
	now := time.Now()

	record := &models.MasteryRecord{MasteryLevel: 0.0}
	engine.ApplyInteraction(record, models.OutcomeIncorrect, 60, 0, models.DifficultyEasy, now)
	if record.MasteryLevel < 0 {
		t.Errorf("Mastery went below zero: %f", record.MasteryLevel)
	}

	record = &models.MasteryRecord{MasteryLevel: 100.0}
	engine.ApplyInteraction(record, models.OutcomeCorrect, 60, 0, models.DifficultyHard, now)
	if record.MasteryLevel > 100 {
		t.Errorf("Mastery went above 100: %f", record.MasteryLevel)
	}
}

func TestApplyInteractionBookkeeping(t *testing.T) {
	engine := NewEngine(nil)
	now := time.Now()

	record := &models.MasteryRecord{MasteryLevel: 50.0}
	engine.ApplyInteraction(record, models.OutcomeCorrect, 180, 1, models.DifficultyHard, now)

	if record.TotalAttempts != 1 || record.CorrectAttempts != 1 {
		t.Errorf("Expected 1/1 attempts, got %d/%d", record.CorrectAttempts, record.TotalAttempts)
	}
	if record.TimeSpentMinutes != 3 {
		t.Errorf("Expected 3 minutes recorded, got %d", record.TimeSpentMinutes)
	}
	if record.HintsUsedCount != 1 {
		t.Errorf("Expected 1 hint recorded, got %d", record.HintsUsedCount)
	}
	if record.LastDifficulty != models.DifficultyHard {
		t.Errorf("Expected last difficulty HARD, got %s", record.LastDifficulty)
	}
	if record.LastPracticedAt == nil || !record.LastPracticedAt.Equal(now) {
		t.Error("Expected last practiced timestamp to be set")
	}
	if record.NextReviewAt == nil {
		t.Error("Expected next review date to be set")
	}
}

func TestScheduleNextReview(t *testing.T) {
	engine := NewEngine(nil)
	now := time.Now()

	tests := []struct {
		name     string
		mastery  float64
		quality  int
		expected int // days
	}{
		{"failed recall comes back tomorrow", 92.0, 2, 1},
		{"expert mastery", 92.0, 5, 30},
		{"strong mastery", 85.0, 5, 14},
		{"solid mastery", 72.0, 4, 7},
		{"building mastery", 65.0, 3, 3},
		{"low mastery", 40.0, 3, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := &models.MasteryRecord{MasteryLevel: tt.mastery}
			next := engine.ScheduleNextReview(record, tt.quality, now)
			expected := now.AddDate(0, 0, tt.expected)
			if !next.Equal(expected) {
				t.Errorf("Expected review in %d days, got %s", tt.expected, next.Sub(now))
			}
		})
	}
}

func TestApplyDecay(t *testing.T) {
	engine := NewEngine(nil)
	now := time.Now()

	// Two weeks inactive: 80 * 0.95^2 = 72.2
	practiced := now.AddDate(0, 0, -14)
	record := &models.MasteryRecord{MasteryLevel: 80.0, LastPracticedAt: &practiced}
	if !engine.ApplyDecay(record, now) {
		t.Fatal("Expected decay to apply after two inactive weeks")
	}
	if !almostEqual(record.MasteryLevel, 72.2) {
		t.Errorf("Expected mastery 72.2 after two weeks of decay, got %f", record.MasteryLevel)
	}
}

func TestApplyDecayIdempotentWithinWeek(t *testing.T) {
	engine := NewEngine(nil)
	now := time.Now()

	practiced := now.AddDate(0, 0, -14)
	record := &models.MasteryRecord{MasteryLevel: 80.0, LastPracticedAt: &practiced}

	engine.ApplyDecay(record, now)
	after := record.MasteryLevel

	// Running again a day later must not compound within the same week count.
	if engine.ApplyDecay(record, now.Add(24*time.Hour)) {
		t.Error("Expected second sweep in the same week to be a no-op")
	}
	if !almostEqual(record.MasteryLevel, after) {
		t.Errorf("Mastery changed on repeated sweep: %f -> %f", after, record.MasteryLevel)
	}
}

func TestApplyDecayAfterReturningToPractice(t *testing.T) {
	engine := NewEngine(nil)
	now := time.Now()

	// Decayed by an old sweep, practiced again, then two weeks inactive.
	// Only the new inactivity window counts: 80 * 0.95^2 = 72.2.
	oldSweep := now.AddDate(0, 0, -35)
	practiced := now.AddDate(0, 0, -14)
	record := &models.MasteryRecord{
		MasteryLevel:       80.0,
		LastPracticedAt:    &practiced,
		LastDecayAppliedAt: &oldSweep,
	}
	if !engine.ApplyDecay(record, now) {
		t.Fatal("Expected decay to apply after two inactive weeks")
	}
	if !almostEqual(record.MasteryLevel, 72.2) {
		t.Errorf("Expected mastery 72.2 after two weeks of decay, got %f", record.MasteryLevel)
	}
}

func TestApplyInteractionClearsDecayMarker(t *testing.T) {
	engine := NewEngine(nil)
	now := time.Now()

	decayed := now.AddDate(0, 0, -7)
	record := &models.MasteryRecord{MasteryLevel: 50.0, LastDecayAppliedAt: &decayed}
	engine.ApplyInteraction(record, models.OutcomeCorrect, 60, 0, models.DifficultyMedium, now)

	if record.LastDecayAppliedAt != nil {
		t.Error("Expected practice to clear the decay marker")
	}
}

func TestApplyDecaySkipsRecentAndUnpracticed(t *testing.T) {
	engine := NewEngine(nil)
	now := time.Now()

	record := &models.MasteryRecord{MasteryLevel: 80.0}
	if engine.ApplyDecay(record, now) {
		t.Error("Expected no decay for a never-practiced record")
	}

	practiced := now.AddDate(0, 0, -3)
	record = &models.MasteryRecord{MasteryLevel: 80.0, LastPracticedAt: &practiced}
	if engine.ApplyDecay(record, now) {
		t.Error("Expected no decay under one full week of inactivity")
	}
}

func TestMasteryConfidence(t *testing.T) {
	engine := NewEngine(nil)

	tests := []struct {
		attempts int
		expected float64
	}{
		{0, 0.3},
		{2, 0.3},
		{3, 0.5},
		{5, 0.7},
		{10, 0.85},
		{20, 0.95},
		{100, 0.95},
	}

	for _, tt := range tests {
		record := &models.MasteryRecord{TotalAttempts: tt.attempts}
		got := engine.MasteryConfidence(record)
		if !almostEqual(got, tt.expected) {
			t.Errorf("MasteryConfidence with %d attempts = %f, want %f", tt.attempts, got, tt.expected)
		}
	}
}

func TestMasteryVelocity(t *testing.T) {
	engine := NewEngine(nil)
	now := time.Now()

	// 20 mastery points gained over 10 days = 2.0/day
	interactions := []*models.LearningInteraction{
		{MasteryAfter: 50.0, AttemptedAt: now.AddDate(0, 0, -10)},
		{MasteryAfter: 60.0, AttemptedAt: now.AddDate(0, 0, -5)},
		{MasteryAfter: 70.0, AttemptedAt: now},
	}
	got := engine.MasteryVelocity(interactions)
	if !almostEqual(got, 2.0) {
		t.Errorf("Expected velocity 2.0, got %f", got)
	}

	// Declining mastery gives negative velocity
	interactions = []*models.LearningInteraction{
		{MasteryAfter: 70.0, AttemptedAt: now.AddDate(0, 0, -10)},
		{MasteryAfter: 60.0, AttemptedAt: now},
	}
	got = engine.MasteryVelocity(interactions)
	if !almostEqual(got, -1.0) {
		t.Errorf("Expected velocity -1.0, got %f", got)
	}

	if engine.MasteryVelocity(nil) != 0 {
		t.Error("Expected zero velocity with no interactions")
	}
	if engine.MasteryVelocity(interactions[:1]) != 0 {
		t.Error("Expected zero velocity with a single interaction")
	}

	// Same-instant interactions must not divide by zero
	interactions = []*models.LearningInteraction{
		{MasteryAfter: 50.0, AttemptedAt: now},
		{MasteryAfter: 65.0, AttemptedAt: now},
	}
	if engine.MasteryVelocity(interactions) != 0 {
		t.Error("Expected zero velocity over a zero-length window")
	}
}

func TestPredictFutureMastery(t *testing.T) {
	engine := NewEngine(nil)

	record := &models.MasteryRecord{MasteryLevel: 60.0, VelocityScore: 2.0}
	if got := engine.PredictFutureMastery(record, 10); !almostEqual(got, 80.0) {
		t.Errorf("Expected prediction 80.0, got %f", got)
	}

	// Projection clamps at 100
	record = &models.MasteryRecord{MasteryLevel: 95.0, VelocityScore: 2.0}
	if got := engine.PredictFutureMastery(record, 10); !almostEqual(got, 100.0) {
		t.Errorf("Expected prediction clamped to 100.0, got %f", got)
	}
}

func TestStreakTracking(t *testing.T) {
	engine := NewEngine(nil)
	now := time.Now()

	record := &models.MasteryRecord{MasteryLevel: 50.0}
	engine.ApplyInteraction(record, models.OutcomeCorrect, 60, 0, models.DifficultyMedium, now)
	engine.ApplyInteraction(record, models.OutcomeCorrect, 60, 0, models.DifficultyMedium, now)
	if record.ConsecutiveCorrect != 2 || record.ConsecutiveIncorrect != 0 {
		t.Errorf("Expected streak 2/0, got %d/%d", record.ConsecutiveCorrect, record.ConsecutiveIncorrect)
	}

	// Partial credit breaks the correct streak
	engine.ApplyInteraction(record, models.OutcomePartial, 60, 0, models.DifficultyMedium, now)
	if record.ConsecutiveCorrect != 0 || record.ConsecutiveIncorrect != 1 {
		t.Errorf("Expected streak 0/1 after partial, got %d/%d", record.ConsecutiveCorrect, record.ConsecutiveIncorrect)
	}

	engine.ApplyInteraction(record, models.OutcomeIncorrect, 60, 0, models.DifficultyMedium, now)
	if record.ConsecutiveIncorrect != 2 {
		t.Errorf("Expected incorrect streak 2, got %d", record.ConsecutiveIncorrect)
	}
}
