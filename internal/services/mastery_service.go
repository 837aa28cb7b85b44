package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"mastery-service/internal/adaptive"
	"mastery-service/internal/event"
	"mastery-service/internal/models"
	"mastery-service/internal/repository"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// MasteryService owns reads and direct writes of mastery records: lookups,
// summaries, manual adjustments, resets and decay. Interaction-driven
// updates go through AdaptiveService.
type MasteryService struct {
	masteryRepo *repository.MasteryRepository
	engine      *adaptive.Engine
	publisher   event.Publisher
	maxRetries  int
}

func NewMasteryService(masteryRepo *repository.MasteryRepository, engine *adaptive.Engine, publisher event.Publisher, maxRetries int) *MasteryService {
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &MasteryService{
		masteryRepo: masteryRepo,
		engine:      engine,
		publisher:   publisher,
		maxRetries:  maxRetries,
	}
}

// GetSkillMastery retrieves one mastery record, erroring when it doesn't exist
func (s *MasteryService) GetSkillMastery(ctx context.Context, ownerID, studentID bson.ObjectID, skillKey string) (*models.MasteryRecord, error) {
	record, err := s.masteryRepo.GetByStudentAndSkill(ctx, ownerID, studentID, skillKey)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("mastery record not found for skill: %s", skillKey)
	}
	return record, nil
}

// GetOrCreateSkillMastery retrieves the record for (student, skill), creating
// a zeroed one on first contact with the skill.
func (s *MasteryService) GetOrCreateSkillMastery(ctx context.Context, ownerID, studentID, subjectID bson.ObjectID, skillKey, skillName string) (*models.MasteryRecord, error) {
	record, err := s.masteryRepo.GetByStudentAndSkill(ctx, ownerID, studentID, skillKey)
	if err != nil {
		return nil, err
	}
	if record != nil {
		return record, nil
	}

	record = &models.MasteryRecord{
		OwnerID:   ownerID,
		StudentID: studentID,
		SubjectID: subjectID,
		SkillKey:  skillKey,
		SkillName: skillName,
	}

	created, err := s.masteryRepo.Create(ctx, record)
	if err != nil {
		// A concurrent first interaction may have created it; re-read once.
		existing, readErr := s.masteryRepo.GetByStudentAndSkill(ctx, ownerID, studentID, skillKey)
		if readErr == nil && existing != nil {
			return existing, nil
		}
		return nil, err
	}

	log.Printf("Created mastery record for student %s, skill %s", studentID.Hex(), skillKey)
	return created, nil
}

// GetStudentMastery returns summaries of a student's skills, optionally
// scoped to a subject, strongest first.
func (s *MasteryService) GetStudentMastery(ctx context.Context, ownerID, studentID bson.ObjectID, subjectID *bson.ObjectID) ([]*models.MasterySummary, error) {
	records, err := s.masteryRepo.GetByStudent(ctx, ownerID, studentID, subjectID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	summaries := make([]*models.MasterySummary, len(records))
	for i, record := range records {
		summaries[i] = s.ToSummary(record, now)
	}
	return summaries, nil
}

// AdjustMastery sets a record's mastery level directly, clamped to [0,100].
// Manual instructor overrides only; the reason is logged and published.
func (s *MasteryService) AdjustMastery(ctx context.Context, ownerID, studentID bson.ObjectID, skillKey string, newLevel float64, reason string) (*models.MasteryRecord, error) {
	newLevel, reason = normalizeAdjustment(newLevel, reason)

	var updated *models.MasteryRecord
	var before float64
	err := s.withRetry(ctx, ownerID, studentID, skillKey, func(record *models.MasteryRecord) {
		before = record.MasteryLevel
		record.MasteryLevel = newLevel
	}, &updated)
	if err != nil {
		return nil, err
	}

	log.Printf("Adjusted mastery for student %s, skill %s: %.1f -> %.1f (%s)",
		studentID.Hex(), skillKey, before, newLevel, reason)

	s.publishMasteryEvent(event.EventTypeMasteryUpdated, updated, before, reason)
	return updated, nil
}

// normalizeAdjustment clamps the target level to [0,100] and substitutes a
// placeholder for a missing reason rather than rejecting the override.
func normalizeAdjustment(level float64, reason string) (float64, string) {
	if level < 0 {
		level = 0
	}
	if level > 100 {
		level = 100
	}
	if reason == "" {
		reason = "unspecified"
	}
	return level, reason
}

// ResetSkillMastery zeroes a record's progress while keeping its identity
func (s *MasteryService) ResetSkillMastery(ctx context.Context, ownerID, studentID bson.ObjectID, skillKey string) (*models.MasteryRecord, error) {
	var updated *models.MasteryRecord
	var before float64
	err := s.withRetry(ctx, ownerID, studentID, skillKey, func(record *models.MasteryRecord) {
		before = record.MasteryLevel
		record.Reset()
		record.LastPracticedAt = nil
		record.LastDecayAppliedAt = nil
		record.NextReviewAt = nil
	}, &updated)
	if err != nil {
		return nil, err
	}

	log.Printf("Reset mastery for student %s, skill %s", studentID.Hex(), skillKey)

	s.publishMasteryEvent(event.EventTypeMasteryReset, updated, before, "manual reset")
	return updated, nil
}

// ApplyDecayToInactiveSkills runs the decay sweep over every record not
// practiced since the cutoff. Per-record failures are logged and skipped so
// one bad record can't stall the sweep. Returns the number of records decayed.
func (s *MasteryService) ApplyDecayToInactiveSkills(ctx context.Context, inactiveDays int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -inactiveDays)
	records, err := s.masteryRepo.FindInactiveSince(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to load inactive records: %w", err)
	}

	now := time.Now()
	decayed := 0
	for _, record := range records {
		before := record.MasteryLevel
		if !s.engine.ApplyDecay(record, now) {
			continue
		}

		if _, err := s.masteryRepo.UpdateWithVersion(ctx, record); err != nil {
			// A concurrent practice interaction wins over decay.
			log.Printf("Skipping decay for student %s, skill %s: %v",
				record.StudentID.Hex(), record.SkillKey, err)
			continue
		}

		s.publishMasteryEvent(event.EventTypeMasteryDecayed, record, before, "inactivity decay")
		decayed++
	}

	if decayed > 0 {
		log.Printf("Decay sweep complete: %d of %d inactive records decayed", decayed, len(records))
	}
	return decayed, nil
}

// GetStatistics aggregates a student's mastery distribution
func (s *MasteryService) GetStatistics(ctx context.Context, ownerID, studentID bson.ObjectID) (*models.LearningStatistics, error) {
	return s.masteryRepo.GetStatistics(ctx, ownerID, studentID)
}

// ToSummary maps a record into its caller-facing view with derived fields
func (s *MasteryService) ToSummary(record *models.MasteryRecord, now time.Time) *models.MasterySummary {
	summary := &models.MasterySummary{
		ID:                    record.ID.Hex(),
		StudentID:             record.StudentID.Hex(),
		SubjectID:             record.SubjectID.Hex(),
		SkillKey:              record.SkillKey,
		SkillName:             record.SkillName,
		MasteryLevel:          record.MasteryLevel,
		AvgAccuracy:           record.AvgAccuracy,
		TotalAttempts:         record.TotalAttempts,
		CorrectAttempts:       record.CorrectAttempts,
		ConsecutiveCorrect:    record.ConsecutiveCorrect,
		ConsecutiveIncorrect:  record.ConsecutiveIncorrect,
		TimeSpentMinutes:      record.TimeSpentMinutes,
		HintsUsedCount:        record.HintsUsedCount,
		VelocityScore:         record.VelocityScore,
		Confidence:            s.engine.MasteryConfidence(record),
		MasteryCategory:       record.MasteryCategory(),
		RecommendedDifficulty: record.RecommendedDifficulty(),
		NeedsReview:           record.NeedsReview(now),
		LastPracticedAt:       record.LastPracticedAt,
		NextReviewAt:          record.NextReviewAt,
		FormattedTimeSpent:    formatTimeSpent(record.TimeSpentMinutes),
	}

	if record.NextReviewAt != nil {
		days := int(record.NextReviewAt.Sub(now).Hours() / 24)
		summary.DaysUntilReview = &days
	}
	if record.LastPracticedAt != nil {
		days := int(now.Sub(*record.LastPracticedAt).Hours() / 24)
		summary.DaysSinceLastPractice = &days
	}

	return summary
}

// withRetry loads the record and applies mutate under the optimistic version
// guard, retrying on conflict up to the configured bound.
func (s *MasteryService) withRetry(ctx context.Context, ownerID, studentID bson.ObjectID, skillKey string, mutate func(*models.MasteryRecord), out **models.MasteryRecord) error {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		record, err := s.masteryRepo.GetByStudentAndSkill(ctx, ownerID, studentID, skillKey)
		if err != nil {
			return err
		}
		if record == nil {
			return fmt.Errorf("mastery record not found for skill: %s", skillKey)
		}

		mutate(record)

		updated, err := s.masteryRepo.UpdateWithVersion(ctx, record)
		if err == repository.ErrVersionConflict {
			log.Printf("Version conflict updating student %s, skill %s (attempt %d)",
				studentID.Hex(), skillKey, attempt+1)
			continue
		}
		if err != nil {
			return err
		}

		*out = updated
		return nil
	}
	return fmt.Errorf("version conflict: gave up updating skill %s after %d attempts", skillKey, s.maxRetries)
}

func (s *MasteryService) publishMasteryEvent(eventType string, record *models.MasteryRecord, before float64, reason string) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.PublishMasteryEvent(&event.MasteryEvent{
		EventType:       eventType,
		OwnerID:         record.OwnerID.Hex(),
		StudentID:       record.StudentID.Hex(),
		SkillKey:        record.SkillKey,
		SkillName:       record.SkillName,
		MasteryBefore:   before,
		MasteryAfter:    record.MasteryLevel,
		TotalAttempts:   record.TotalAttempts,
		MasteryCategory: record.MasteryCategory(),
		Reason:          reason,
	})
	if err != nil {
		log.Printf("Failed to publish %s event: %v", eventType, err)
	}
}

func formatTimeSpent(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}
