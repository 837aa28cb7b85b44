package models

import "time"

// RecommendationType tags why a learning unit was recommended
type RecommendationType string

const (
	RecommendationRemedial   RecommendationType = "REMEDIAL"
	RecommendationReview     RecommendationType = "REVIEW"
	RecommendationNextModule RecommendationType = "NEXT_MODULE"
	RecommendationDiagnostic RecommendationType = "DIAGNOSTIC"
)

// Recommendation is a single adaptive-learning suggestion for a student.
type Recommendation struct {
	SkillKey           string             `json:"skill_key"`
	SkillName          string             `json:"skill_name"`
	Difficulty         DifficultyLevel    `json:"difficulty"`
	CurrentMastery     float64            `json:"current_mastery"`
	TargetMastery      float64            `json:"target_mastery"`
	Rationale          string             `json:"rationale"`
	RecommendationType RecommendationType `json:"recommendation_type"`
	Priority           int                `json:"priority"` // 1 = most urgent
	IsBlocked          bool               `json:"is_blocked"`
}

// PrerequisiteBlock explains one unmet prerequisite of a locked skill.
type PrerequisiteBlock struct {
	SkillKey        string  `json:"skill_key"`
	SkillName       string  `json:"skill_name"`
	CurrentMastery  float64 `json:"current_mastery"`
	RequiredMastery float64 `json:"required_mastery"`
	Gap             float64 `json:"gap"`
}

// MasterySummary is the caller-facing view of a mastery record, with
// derived display fields precomputed.
type MasterySummary struct {
	ID                    string          `json:"id"`
	StudentID             string          `json:"student_id"`
	SubjectID             string          `json:"subject_id"`
	SkillKey              string          `json:"skill_key"`
	SkillName             string          `json:"skill_name"`
	MasteryLevel          float64         `json:"mastery_level"`
	AvgAccuracy           float64         `json:"avg_accuracy"`
	TotalAttempts         int             `json:"total_attempts"`
	CorrectAttempts       int             `json:"correct_attempts"`
	ConsecutiveCorrect    int             `json:"consecutive_correct"`
	ConsecutiveIncorrect  int             `json:"consecutive_incorrect"`
	TimeSpentMinutes      int             `json:"time_spent_minutes"`
	HintsUsedCount        int             `json:"hints_used_count"`
	VelocityScore         float64         `json:"velocity_score"`
	Confidence            float64         `json:"confidence"`
	MasteryCategory       string          `json:"mastery_category"`
	RecommendedDifficulty DifficultyLevel `json:"recommended_difficulty"`
	NeedsReview           bool            `json:"needs_review"`
	LastPracticedAt       *time.Time      `json:"last_practiced_at,omitempty"`
	NextReviewAt          *time.Time      `json:"next_review_at,omitempty"`
	DaysUntilReview       *int            `json:"days_until_review,omitempty"`
	DaysSinceLastPractice *int            `json:"days_since_last_practice,omitempty"`
	FormattedTimeSpent    string          `json:"formatted_time_spent"`
}

// LearningStatistics aggregates a student's adaptive-learning state.
type LearningStatistics struct {
	AvgMastery          float64 `json:"avg_mastery"`
	HighMasterySkills   int     `json:"high_mastery_skills"`   // >= 80
	MediumMasterySkills int     `json:"medium_mastery_skills"` // 50-80
	LowMasterySkills    int     `json:"low_mastery_skills"`    // < 50
	TotalSkills         int     `json:"total_skills"`
	TotalInteractions   int64   `json:"total_interactions"`
}

// VelocityTrends summarizes learning-velocity distribution for a student.
type VelocityTrends struct {
	AvgVelocity float64 `json:"avg_velocity"`
	MaxVelocity float64 `json:"max_velocity"`
	MinVelocity float64 `json:"min_velocity"`
	SkillCount  int     `json:"skill_count"`
}

// BottleneckReport lists the most-required prerequisite skills of a subject.
type BottleneckReport struct {
	BottleneckSkills []BottleneckSkill `json:"bottleneck_skills"`
	Count            int               `json:"count"`
}

// BottleneckSkill is one entry of a BottleneckReport.
type BottleneckSkill struct {
	SkillKey       string `json:"skill_key"`
	DependentCount int    `json:"dependent_count"` // how many skills require it
}
