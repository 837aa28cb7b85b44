package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// DifficultyLevel represents recommended practice difficulty
type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "EASY"
	DifficultyMedium DifficultyLevel = "MEDIUM"
	DifficultyHard   DifficultyLevel = "HARD"
)

// MasteryRecord tracks per-student mastery level for a single skill.
// One document per (owner, student, skill_key); created lazily on the first
// interaction with a skill and never hard-deleted.
type MasteryRecord struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	OwnerID   bson.ObjectID `bson:"owner_id" json:"owner_id"`
	StudentID bson.ObjectID `bson:"student_id" json:"student_id"`
	SubjectID bson.ObjectID `bson:"subject_id" json:"subject_id"`
	SkillKey  string        `bson:"skill_key" json:"skill_key"`   // e.g. "algebra_linear_equations"
	SkillName string        `bson:"skill_name" json:"skill_name"` // e.g. "Linear Equations"

	MasteryLevel float64 `bson:"mastery_level" json:"mastery_level"` // 0-100
	AvgAccuracy  float64 `bson:"avg_accuracy" json:"avg_accuracy"`   // 0-100

	TotalAttempts   int `bson:"total_attempts" json:"total_attempts"`
	CorrectAttempts int `bson:"correct_attempts" json:"correct_attempts"`

	ConsecutiveCorrect   int `bson:"consecutive_correct" json:"consecutive_correct"`
	ConsecutiveIncorrect int `bson:"consecutive_incorrect" json:"consecutive_incorrect"`

	TimeSpentMinutes int `bson:"time_spent_minutes" json:"time_spent_minutes"`
	HintsUsedCount   int `bson:"hints_used_count" json:"hints_used_count"`

	VelocityScore  float64         `bson:"velocity_score" json:"velocity_score"` // mastery change per day
	LastDifficulty DifficultyLevel `bson:"last_difficulty,omitempty" json:"last_difficulty,omitempty"`

	LastPracticedAt    *time.Time `bson:"last_practiced_at,omitempty" json:"last_practiced_at,omitempty"`
	LastDecayAppliedAt *time.Time `bson:"last_decay_applied_at,omitempty" json:"last_decay_applied_at,omitempty"`
	NextReviewAt       *time.Time `bson:"next_review_at,omitempty" json:"next_review_at,omitempty"`

	// Optimistic concurrency guard: every write increments the version and
	// filters on the value it read. Concurrent updates for the same
	// (student, skill) retry instead of overwriting each other.
	Version int64 `bson:"version" json:"version"`

	IsActive  bool      `bson:"is_active" json:"is_active"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// RecordOutcome updates attempt counters and streaks for an interaction
// outcome. Any non-CORRECT outcome (including PARTIAL and SKIPPED) counts
// against the incorrect streak; matching the upstream product decision,
// partial credit does not preserve a correct streak.
func (m *MasteryRecord) RecordOutcome(outcome Outcome) {
	m.TotalAttempts++
	if outcome == OutcomeCorrect {
		m.CorrectAttempts++
		m.ConsecutiveCorrect++
		m.ConsecutiveIncorrect = 0
	} else {
		m.ConsecutiveIncorrect++
		m.ConsecutiveCorrect = 0
	}
	m.UpdateAccuracy()
}

// UpdateAccuracy recomputes avg_accuracy from the attempt counters.
func (m *MasteryRecord) UpdateAccuracy() {
	if m.TotalAttempts > 0 {
		m.AvgAccuracy = float64(m.CorrectAttempts) / float64(m.TotalAttempts) * 100.0
	}
}

func (m *MasteryRecord) IsHighMastery() bool {
	return m.MasteryLevel >= 80.0
}

func (m *MasteryRecord) IsMediumMastery() bool {
	return m.MasteryLevel >= 50.0 && m.MasteryLevel < 80.0
}

func (m *MasteryRecord) IsLowMastery() bool {
	return m.MasteryLevel < 50.0
}

// NeedsReview reports whether the spaced-repetition review date has passed.
func (m *MasteryRecord) NeedsReview(now time.Time) bool {
	return m.NextReviewAt != nil && m.NextReviewAt.Before(now)
}

// MasteryCategory returns the display label for the current mastery band.
func (m *MasteryRecord) MasteryCategory() string {
	switch {
	case m.MasteryLevel >= 90:
		return "Expert"
	case m.MasteryLevel >= 75:
		return "Proficient"
	case m.MasteryLevel >= 60:
		return "Competent"
	case m.MasteryLevel >= 40:
		return "Developing"
	default:
		return "Beginner"
	}
}

// RecommendedDifficulty derives the next practice difficulty from mastery.
func (m *MasteryRecord) RecommendedDifficulty() DifficultyLevel {
	if m.MasteryLevel >= 80.0 {
		return DifficultyHard
	}
	if m.MasteryLevel >= 50.0 {
		return DifficultyMedium
	}
	return DifficultyEasy
}

// Reset zeroes counters and progress but keeps the record's identity.
func (m *MasteryRecord) Reset() {
	m.MasteryLevel = 0
	m.AvgAccuracy = 0
	m.TotalAttempts = 0
	m.CorrectAttempts = 0
	m.ConsecutiveCorrect = 0
	m.ConsecutiveIncorrect = 0
	m.TimeSpentMinutes = 0
	m.HintsUsedCount = 0
	m.VelocityScore = 0
}

// MongoDB indexes for the mastery_records collection
func GetMasteryRecordIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "owner_id", Value: 1},
				{Key: "student_id", Value: 1},
				{Key: "skill_key", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "owner_id", Value: 1},
				{Key: "student_id", Value: 1},
				{Key: "subject_id", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "next_review_at", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "last_practiced_at", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "mastery_level", Value: -1},
			},
		},
	}
}
