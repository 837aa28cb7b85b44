package adaptive

import (
	"fmt"
	"sort"
	"time"

	"mastery-service/internal/models"
)

// NextModule runs the deterministic priority cascade over a student's
// mastery records and returns the single next recommendation, or nil when
// the student has no mastery data at all.
//
// Cascade: remedial (lowest mastery < 60) -> due review -> next module
// (highest mastery in [60,80)) -> advanced (everything >= 80).
func (e *Engine) NextModule(records []*models.MasteryRecord, now time.Time) *models.Recommendation {
	if len(records) == 0 {
		return nil
	}

	// Remedial: weakest low-mastery skill wins, even over due reviews.
	var remedial *models.MasteryRecord
	for _, r := range records {
		if r.MasteryLevel < e.config.RemedialThreshold {
			if remedial == nil || r.MasteryLevel < remedial.MasteryLevel {
				remedial = r
			}
		}
	}
	if remedial != nil {
		return e.buildRecommendation(remedial, models.RecommendationRemedial, 1)
	}

	// Review: first skill whose review date has passed.
	for _, r := range records {
		if r.NeedsReview(now) {
			return e.buildRecommendation(r, models.RecommendationReview, 2)
		}
	}

	// Next module: strongest skill still in the middle band.
	var next *models.MasteryRecord
	for _, r := range records {
		if r.MasteryLevel >= e.config.RemedialThreshold && r.MasteryLevel < e.config.AdvancedThreshold {
			if next == nil || r.MasteryLevel > next.MasteryLevel {
				next = r
			}
		}
	}
	if next != nil {
		return e.buildRecommendation(next, models.RecommendationNextModule, 3)
	}

	// Everything is high mastery: advance from the first record.
	return e.buildRecommendation(records[0], models.RecommendationNextModule, 4)
}

// ReviewQueue wraps every due skill as a review recommendation. Order
// follows the input beyond due-date eligibility.
func (e *Engine) ReviewQueue(records []*models.MasteryRecord, now time.Time) []*models.Recommendation {
	queue := make([]*models.Recommendation, 0)
	for _, r := range records {
		if r.NeedsReview(now) {
			queue = append(queue, e.buildRecommendation(r, models.RecommendationReview, 1))
		}
	}
	return queue
}

// DiagnosticSet selects skills for a diagnostic assessment: low mastery or a
// streak of incorrect answers, deduplicated by skill key, weakest first,
// capped at the configured limit.
func (e *Engine) DiagnosticSet(records []*models.MasteryRecord) []*models.Recommendation {
	seen := make(map[string]bool)
	var selected []*models.MasteryRecord

	for _, r := range records {
		if seen[r.SkillKey] {
			continue
		}
		if r.MasteryLevel < e.config.DiagnosticMasteryCeiling ||
			r.ConsecutiveIncorrect >= e.config.DiagnosticStruggleStreak {
			seen[r.SkillKey] = true
			selected = append(selected, r)
		}
	}

	sort.Slice(selected, func(i, j int) bool {
		return selected[i].MasteryLevel < selected[j].MasteryLevel
	})

	if len(selected) > e.config.DiagnosticLimit {
		selected = selected[:e.config.DiagnosticLimit]
	}

	recommendations := make([]*models.Recommendation, len(selected))
	for i, r := range selected {
		recommendations[i] = e.buildRecommendation(r, models.RecommendationDiagnostic, 1)
	}
	return recommendations
}

func (e *Engine) buildRecommendation(record *models.MasteryRecord, recType models.RecommendationType, priority int) *models.Recommendation {
	target := e.config.AdvancedThreshold
	if recType == models.RecommendationRemedial {
		target = e.config.RemedialThreshold
	}

	return &models.Recommendation{
		SkillKey:           record.SkillKey,
		SkillName:          record.SkillName,
		Difficulty:         record.RecommendedDifficulty(),
		CurrentMastery:     record.MasteryLevel,
		TargetMastery:      target,
		Rationale:          buildRationale(record, recType),
		RecommendationType: recType,
		Priority:           priority,
		IsBlocked:          false,
	}
}

func buildRationale(record *models.MasteryRecord, recType models.RecommendationType) string {
	switch recType {
	case models.RecommendationRemedial:
		return fmt.Sprintf("Low mastery (%.1f%%) - needs improvement", record.MasteryLevel)
	case models.RecommendationReview:
		return "Scheduled for review to maintain mastery"
	case models.RecommendationDiagnostic:
		return fmt.Sprintf("Struggling with %d consecutive incorrect attempts", record.ConsecutiveIncorrect)
	case models.RecommendationNextModule:
		return fmt.Sprintf("Ready for next level (current mastery: %.1f%%)", record.MasteryLevel)
	default:
		return "Recommended for learning"
	}
}
