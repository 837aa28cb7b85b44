package models

import (
	"testing"
	"time"
)

func TestMasteryCategory(t *testing.T) {
	tests := []struct {
		mastery  float64
		expected string
	}{
		{95.0, "Expert"},
		{90.0, "Expert"},
		{80.0, "Proficient"},
		{75.0, "Proficient"},
		{65.0, "Competent"},
		{60.0, "Competent"},
		{45.0, "Developing"},
		{40.0, "Developing"},
		{20.0, "Beginner"},
		{0.0, "Beginner"},
	}

	for _, tt := range tests {
		m := &MasteryRecord{MasteryLevel: tt.mastery}
		if got := m.MasteryCategory(); got != tt.expected {
			t.Errorf("MasteryCategory at %.0f = %s, want %s", tt.mastery, got, tt.expected)
		}
	}
}

func TestRecommendedDifficulty(t *testing.T) {
	tests := []struct {
		mastery  float64
		expected DifficultyLevel
	}{
		{85.0, DifficultyHard},
		{80.0, DifficultyHard},
		{65.0, DifficultyMedium},
		{50.0, DifficultyMedium},
		{30.0, DifficultyEasy},
	}

	for _, tt := range tests {
		m := &MasteryRecord{MasteryLevel: tt.mastery}
		if got := m.RecommendedDifficulty(); got != tt.expected {
			t.Errorf("RecommendedDifficulty at %.0f = %s, want %s", tt.mastery, got, tt.expected)
		}
	}
}

func TestRecordOutcomeStreaks(t *testing.T) {
	m := &MasteryRecord{}

	m.RecordOutcome(OutcomeCorrect)
	m.RecordOutcome(OutcomeCorrect)
	if m.ConsecutiveCorrect != 2 || m.ConsecutiveIncorrect != 0 {
		t.Errorf("Expected streak 2/0, got %d/%d", m.ConsecutiveCorrect, m.ConsecutiveIncorrect)
	}

	m.RecordOutcome(OutcomeSkipped)
	if m.ConsecutiveCorrect != 0 || m.ConsecutiveIncorrect != 1 {
		t.Errorf("Expected skipped to break the streak, got %d/%d", m.ConsecutiveCorrect, m.ConsecutiveIncorrect)
	}

	if m.TotalAttempts != 3 || m.CorrectAttempts != 2 {
		t.Errorf("Expected 2/3 attempts, got %d/%d", m.CorrectAttempts, m.TotalAttempts)
	}
}

func TestUpdateAccuracy(t *testing.T) {
	m := &MasteryRecord{TotalAttempts: 4, CorrectAttempts: 3}
	m.UpdateAccuracy()
	if m.AvgAccuracy != 75.0 {
		t.Errorf("Expected accuracy 75.0, got %f", m.AvgAccuracy)
	}

	// No attempts leaves accuracy alone instead of dividing by zero.
	m = &MasteryRecord{}
	m.UpdateAccuracy()
	if m.AvgAccuracy != 0 {
		t.Errorf("Expected accuracy 0 with no attempts, got %f", m.AvgAccuracy)
	}
}

func TestNeedsReview(t *testing.T) {
	now := time.Now()

	m := &MasteryRecord{}
	if m.NeedsReview(now) {
		t.Error("Record without a review date never needs review")
	}

	past := now.AddDate(0, 0, -1)
	m.NextReviewAt = &past
	if !m.NeedsReview(now) {
		t.Error("Expected review needed when the date has passed")
	}

	future := now.AddDate(0, 0, 1)
	m.NextReviewAt = &future
	if m.NeedsReview(now) {
		t.Error("Expected no review before the date")
	}
}

func TestReset(t *testing.T) {
	m := &MasteryRecord{
		MasteryLevel:         80.0,
		AvgAccuracy:          75.0,
		TotalAttempts:        20,
		CorrectAttempts:      15,
		ConsecutiveCorrect:   3,
		ConsecutiveIncorrect: 0,
		TimeSpentMinutes:     120,
		HintsUsedCount:       5,
		VelocityScore:        1.5,
		SkillKey:             "algebra_basics",
	}

	m.Reset()

	if m.MasteryLevel != 0 || m.TotalAttempts != 0 || m.VelocityScore != 0 {
		t.Errorf("Expected progress zeroed, got %+v", m)
	}
	if m.SkillKey != "algebra_basics" {
		t.Error("Reset must keep the record's identity")
	}
}

func TestValidOutcome(t *testing.T) {
	for _, valid := range []string{"CORRECT", "PARTIAL", "INCORRECT", "SKIPPED"} {
		if !ValidOutcome(valid) {
			t.Errorf("Expected %s to be valid", valid)
		}
	}
	for _, invalid := range []string{"", "correct", "WRONG", "PASS"} {
		if ValidOutcome(invalid) {
			t.Errorf("Expected %s to be invalid", invalid)
		}
	}
}

func TestPrerequisiteSkillKeys(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected []string
	}{
		{"empty", "", nil},
		{"single", "algebra_basics", []string{"algebra_basics"}},
		{"multiple with spaces", "algebra_basics, fractions ,decimals", []string{"algebra_basics", "fractions", "decimals"}},
		{"empty entries skipped", "algebra_basics,,  ,fractions", []string{"algebra_basics", "fractions"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &LearningModule{Prerequisites: tt.raw}
			got := m.PrerequisiteSkillKeys()
			if len(got) != len(tt.expected) {
				t.Fatalf("Expected %v, got %v", tt.expected, got)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("Expected %v, got %v", tt.expected, got)
				}
			}
		})
	}
}

func TestPrerequisiteEdgeHelpers(t *testing.T) {
	p := &SkillPrerequisite{MinimumMasteryRequired: 60.0, Weight: 0.9, PrerequisiteSkillName: "Fractions"}

	if !p.IsMasteryMet(60.0) {
		t.Error("Expected mastery at the threshold to satisfy the edge")
	}
	if p.IsMasteryMet(59.9) {
		t.Error("Expected mastery below the threshold to fail the edge")
	}
	if p.PriorityLevel() != "High" {
		t.Errorf("Expected High priority at weight 0.9, got %s", p.PriorityLevel())
	}

	p.Weight = 0.6
	if p.PriorityLevel() != "Medium" {
		t.Errorf("Expected Medium priority at weight 0.6, got %s", p.PriorityLevel())
	}

	p.Weight = 0.2
	if p.PriorityLevel() != "Low" {
		t.Errorf("Expected Low priority at weight 0.2, got %s", p.PriorityLevel())
	}

	if got := p.FormattedRequirement(); got != "Requires 60% mastery in Fractions" {
		t.Errorf("Unexpected formatted requirement: %s", got)
	}
}
