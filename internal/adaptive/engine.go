package adaptive

import (
	"math"
	"time"

	"mastery-service/internal/models"
)

// Engine implements the mastery computation: EWMA updates, decay, spaced
// repetition scheduling and derived metrics. It is pure logic; persistence
// and locking live in the service layer.
type Engine struct {
	config *EngineConfig
}

// NewEngine creates an engine, falling back to default constants.
func NewEngine(config *EngineConfig) *Engine {
	if config == nil {
		config = DefaultEngineConfig()
	}
	return &Engine{config: config}
}

// PerformanceScore maps an interaction outcome to [0,1], penalized for hints.
func (e *Engine) PerformanceScore(outcome models.Outcome, hintsUsed int) float64 {
	var base float64
	switch outcome {
	case models.OutcomeCorrect:
		base = 1.0
	case models.OutcomePartial:
		base = 0.5
	default: // INCORRECT, SKIPPED
		base = 0.0
	}

	if hintsUsed > 0 {
		base *= math.Max(e.config.HintPenaltyFloor, 1.0-float64(hintsUsed)*e.config.HintPenaltyPerHint)
	}

	return base
}

// Quality maps outcome and hint usage to the 0-5 recall-quality scale used
// by the review scheduler.
func (e *Engine) Quality(outcome models.Outcome, hintsUsed int) int {
	switch outcome {
	case models.OutcomeCorrect:
		if hintsUsed == 0 {
			return 5
		}
		return 4
	case models.OutcomePartial:
		return 3
	case models.OutcomeIncorrect:
		return 1
	default: // SKIPPED
		return 0
	}
}

// ApplyInteraction folds one interaction into the record: EWMA mastery
// update, counters, streaks, accuracy, time and hint accounting, and the
// next review date. The record is mutated in place.
func (e *Engine) ApplyInteraction(record *models.MasteryRecord, outcome models.Outcome,
	timeTakenSeconds, hintsUsed int, difficulty models.DifficultyLevel, now time.Time) {

	performance := e.PerformanceScore(outcome, hintsUsed)

	newMastery := record.MasteryLevel + e.config.EWMAAlpha*(performance*100.0-record.MasteryLevel)
	record.MasteryLevel = clampMastery(newMastery)

	record.RecordOutcome(outcome)

	record.TimeSpentMinutes += timeTakenSeconds / 60
	record.HintsUsedCount += hintsUsed
	if difficulty != "" {
		record.LastDifficulty = difficulty
	}
	record.LastPracticedAt = &now
	// Practice starts a fresh inactivity window; the old decay marker no
	// longer applies to it.
	record.LastDecayAppliedAt = nil

	quality := e.Quality(outcome, hintsUsed)
	nextReview := e.ScheduleNextReview(record, quality, now)
	record.NextReviewAt = &nextReview
}

// ScheduleNextReview returns the next review date using a simplified
// SM-2-style policy: failed recall (quality < 3) comes back tomorrow
// regardless of mastery; otherwise the interval grows with mastery.
func (e *Engine) ScheduleNextReview(record *models.MasteryRecord, quality int, now time.Time) time.Time {
	var interval int

	if quality < 3 {
		interval = intervalFailed
	} else {
		switch mastery := record.MasteryLevel; {
		case mastery >= 90:
			interval = intervalExpert
		case mastery >= 80:
			interval = intervalStrong
		case mastery >= 70:
			interval = intervalSolid
		case mastery >= 60:
			interval = intervalBuilding
		default:
			interval = intervalLow
		}
	}

	return now.AddDate(0, 0, interval)
}

// ApplyDecay compounds weekly mastery loss for inactivity since the last
// practice. Whole weeks only, so re-running inside the same week is a no-op;
// a record never practiced is left untouched. Returns true if the record
// changed.
func (e *Engine) ApplyDecay(record *models.MasteryRecord, now time.Time) bool {
	if record.LastPracticedAt == nil {
		return false
	}

	weeks := int(now.Sub(*record.LastPracticedAt).Hours() / (24 * 7))
	if weeks <= 0 {
		return false
	}

	// Skip the weeks this inactivity window already paid for. A marker
	// older than the last practice belongs to a previous window and counts
	// for nothing.
	if record.LastDecayAppliedAt != nil && record.LastDecayAppliedAt.After(*record.LastPracticedAt) {
		weeksAlreadyDecayed := int(record.LastDecayAppliedAt.Sub(*record.LastPracticedAt).Hours() / (24 * 7))
		if weeksAlreadyDecayed >= weeks {
			return false
		}
		weeks -= weeksAlreadyDecayed
	}

	factor := math.Pow(1.0-e.config.DecayRatePerWeek, float64(weeks))
	record.MasteryLevel = math.Max(minMastery, record.MasteryLevel*factor)
	record.LastDecayAppliedAt = &now
	return true
}

// PredictFutureMastery projects mastery linearly along the velocity score.
// Informational only.
func (e *Engine) PredictFutureMastery(record *models.MasteryRecord, daysAhead int) float64 {
	return clampMastery(record.MasteryLevel + record.VelocityScore*float64(daysAhead))
}

// MasteryConfidence grades how trustworthy the mastery estimate is from the
// number of observations behind it.
func (e *Engine) MasteryConfidence(record *models.MasteryRecord) float64 {
	attempts := record.TotalAttempts
	switch {
	case attempts < 3:
		return 0.3
	case attempts < 5:
		return 0.5
	case attempts < 10:
		return 0.7
	case attempts < 20:
		return 0.85
	default:
		return 0.95
	}
}

// MasteryVelocity computes mastery change per day over a trailing window of
// interactions, using the mastery snapshots recorded on each interaction.
// Interactions must be ordered oldest first. Returns 0 with fewer than two
// data points or a zero-length window.
func (e *Engine) MasteryVelocity(interactions []*models.LearningInteraction) float64 {
	if len(interactions) < 2 {
		return 0
	}

	first := interactions[0]
	last := interactions[len(interactions)-1]

	days := last.AttemptedAt.Sub(first.AttemptedAt).Hours() / 24.0
	if days <= 0 {
		return 0
	}

	return (last.MasteryAfter - first.MasteryAfter) / days
}

func clampMastery(v float64) float64 {
	return math.Max(minMastery, math.Min(maxMastery, v))
}
