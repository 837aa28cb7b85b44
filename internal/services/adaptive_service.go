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

// velocityWindowDays is the trailing window the learning-velocity
// computation looks back over.
const velocityWindowDays = 30

// RecordInteractionRequest carries one learning interaction into the engine.
type RecordInteractionRequest struct {
	OwnerID          bson.ObjectID
	StudentID        bson.ObjectID
	SubjectID        bson.ObjectID
	ModuleID         bson.ObjectID
	SkillKey         string
	SkillName        string
	Outcome          models.Outcome
	Difficulty       models.DifficultyLevel
	Score            float64
	TimeTakenSeconds int
	HintsUsed        int
	QuestionType     string
	ConfidenceLevel  int
	Notes            string
}

// AdaptiveService drives the interaction-to-recommendation loop: it folds
// interactions into mastery records and answers what the student should do
// next.
type AdaptiveService struct {
	masteryService  *MasteryService
	prereqService   *PrerequisiteService
	masteryRepo     *repository.MasteryRepository
	interactionRepo *repository.InteractionRepository
	moduleRepo      *repository.ModuleRepository
	engine          *adaptive.Engine
	publisher       event.Publisher
	maxRetries      int
}

func NewAdaptiveService(
	masteryService *MasteryService,
	prereqService *PrerequisiteService,
	masteryRepo *repository.MasteryRepository,
	interactionRepo *repository.InteractionRepository,
	moduleRepo *repository.ModuleRepository,
	engine *adaptive.Engine,
	publisher event.Publisher,
	maxRetries int,
) *AdaptiveService {
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &AdaptiveService{
		masteryService:  masteryService,
		prereqService:   prereqService,
		masteryRepo:     masteryRepo,
		interactionRepo: interactionRepo,
		moduleRepo:      moduleRepo,
		engine:          engine,
		publisher:       publisher,
		maxRetries:      maxRetries,
	}
}

// RecordInteraction is the write path of the engine: update the mastery
// record under the version guard, append the interaction with its mastery
// snapshot, refresh the velocity score, then publish events. The mastery
// update is the source of truth; velocity refresh and event publishing are
// best-effort.
func (s *AdaptiveService) RecordInteraction(ctx context.Context, req *RecordInteractionRequest) (*models.MasteryRecord, error) {
	if !models.ValidOutcome(string(req.Outcome)) {
		return nil, fmt.Errorf("invalid outcome: %s", req.Outcome)
	}
	if req.SkillKey == "" {
		return nil, fmt.Errorf("invalid interaction: skill key is required")
	}
	if req.TimeTakenSeconds < 0 || req.HintsUsed < 0 {
		return nil, fmt.Errorf("invalid interaction: negative time or hints")
	}
	if req.Score < 0 || req.Score > 100 {
		return nil, fmt.Errorf("invalid interaction: score must be between 0 and 100")
	}

	now := time.Now()

	var record *models.MasteryRecord
	var masteryBefore float64
	for attempt := 0; ; attempt++ {
		var err error
		record, err = s.masteryService.GetOrCreateSkillMastery(ctx, req.OwnerID, req.StudentID, req.SubjectID, req.SkillKey, req.SkillName)
		if err != nil {
			return nil, err
		}

		masteryBefore = record.MasteryLevel
		s.engine.ApplyInteraction(record, req.Outcome, req.TimeTakenSeconds, req.HintsUsed, req.Difficulty, now)

		_, err = s.masteryRepo.UpdateWithVersion(ctx, record)
		if err == nil {
			break
		}
		if err == repository.ErrVersionConflict && attempt < s.maxRetries-1 {
			log.Printf("Version conflict recording interaction for student %s, skill %s (attempt %d)",
				req.StudentID.Hex(), req.SkillKey, attempt+1)
			continue
		}
		return nil, err
	}

	interaction, err := s.interactionRepo.Create(ctx, s.newInteraction(req, record, now))
	if err != nil {
		return nil, fmt.Errorf("mastery updated but interaction log failed: %w", err)
	}

	s.refreshVelocity(ctx, record, now)
	s.publishInteractionEvents(record, interaction, masteryBefore)

	return record, nil
}

// newInteraction materializes the stored interaction document. The caller's
// grade, confidence and notes are carried through as given; an ungraded
// interaction falls back to the engine's performance measure.
func (s *AdaptiveService) newInteraction(req *RecordInteractionRequest, record *models.MasteryRecord, now time.Time) *models.LearningInteraction {
	score := req.Score
	if score == 0 {
		score = s.engine.PerformanceScore(req.Outcome, req.HintsUsed) * 100.0
	}

	return &models.LearningInteraction{
		OwnerID:          req.OwnerID,
		StudentID:        req.StudentID,
		ModuleID:         req.ModuleID,
		SkillKey:         req.SkillKey,
		Difficulty:       req.Difficulty,
		Outcome:          req.Outcome,
		Score:            score,
		TimeTakenSeconds: req.TimeTakenSeconds,
		HintsUsed:        req.HintsUsed,
		QuestionType:     req.QuestionType,
		ConfidenceLevel:  req.ConfidenceLevel,
		Notes:            req.Notes,
		MasteryAfter:     record.MasteryLevel,
		AttemptedAt:      now,
	}
}

// HandleInteractionMessage adapts inbound queue messages onto RecordInteraction
func (s *AdaptiveService) HandleInteractionMessage(ctx context.Context, msg *event.InteractionMessage) error {
	ownerID, err := bson.ObjectIDFromHex(msg.OwnerID)
	if err != nil {
		return fmt.Errorf("invalid owner ID format: %w", err)
	}
	studentID, err := bson.ObjectIDFromHex(msg.StudentID)
	if err != nil {
		return fmt.Errorf("invalid student ID format: %w", err)
	}

	req := &RecordInteractionRequest{
		OwnerID:          ownerID,
		StudentID:        studentID,
		SkillKey:         msg.SkillKey,
		SkillName:        msg.SkillName,
		Outcome:          models.Outcome(msg.Outcome),
		Difficulty:       models.DifficultyLevel(msg.Difficulty),
		Score:            msg.Score,
		TimeTakenSeconds: msg.TimeTakenSeconds,
		HintsUsed:        msg.HintsUsed,
		QuestionType:     msg.QuestionType,
		ConfidenceLevel:  msg.ConfidenceLevel,
		Notes:            msg.Notes,
	}
	if msg.SubjectID != "" {
		subjectID, err := bson.ObjectIDFromHex(msg.SubjectID)
		if err != nil {
			return fmt.Errorf("invalid subject ID format: %w", err)
		}
		req.SubjectID = subjectID
	}
	if msg.ModuleID != "" {
		moduleID, err := bson.ObjectIDFromHex(msg.ModuleID)
		if err != nil {
			return fmt.Errorf("invalid module ID format: %w", err)
		}
		req.ModuleID = moduleID
	}

	_, err = s.RecordInteraction(ctx, req)
	return err
}

// HandleModuleMessage projects a curriculum module announcement into local
// storage so access checks can resolve the module's gating skills.
func (s *AdaptiveService) HandleModuleMessage(ctx context.Context, msg *event.ModuleMessage) error {
	module, err := moduleFromMessage(msg)
	if err != nil {
		return err
	}
	return s.moduleRepo.Upsert(ctx, module)
}

func moduleFromMessage(msg *event.ModuleMessage) (*models.LearningModule, error) {
	moduleID, err := bson.ObjectIDFromHex(msg.ModuleID)
	if err != nil {
		return nil, fmt.Errorf("invalid module ID format: %w", err)
	}
	ownerID, err := bson.ObjectIDFromHex(msg.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("invalid owner ID format: %w", err)
	}

	module := &models.LearningModule{
		ID:            moduleID,
		OwnerID:       ownerID,
		Title:         msg.Title,
		SkillKey:      msg.SkillKey,
		Prerequisites: msg.Prerequisites,
	}
	if msg.SubjectID != "" {
		subjectID, err := bson.ObjectIDFromHex(msg.SubjectID)
		if err != nil {
			return nil, fmt.Errorf("invalid subject ID format: %w", err)
		}
		module.SubjectID = subjectID
	}
	return module, nil
}

// GetNextModule returns the single next recommendation for a student,
// flagging it when strict prerequisites are still unmet. Nil means the
// student has no mastery data yet.
func (s *AdaptiveService) GetNextModule(ctx context.Context, ownerID, studentID bson.ObjectID, subjectID *bson.ObjectID) (*models.Recommendation, error) {
	records, err := s.masteryRepo.GetByStudent(ctx, ownerID, studentID, subjectID)
	if err != nil {
		return nil, err
	}

	recommendation := s.engine.NextModule(records, time.Now())
	if recommendation == nil {
		return nil, nil
	}

	met, _, err := s.prereqService.CheckPrerequisites(ctx, ownerID, studentID, recommendation.SkillKey)
	if err != nil {
		return nil, err
	}
	recommendation.IsBlocked = !met

	return recommendation, nil
}

// GetReviewQueue returns every skill due for spaced-repetition review
func (s *AdaptiveService) GetReviewQueue(ctx context.Context, ownerID, studentID bson.ObjectID, subjectID *bson.ObjectID) ([]*models.Recommendation, error) {
	now := time.Now()
	records, err := s.masteryRepo.GetDueForReview(ctx, ownerID, studentID, subjectID, now)
	if err != nil {
		return nil, err
	}

	return s.engine.ReviewQueue(records, now), nil
}

// GetDiagnosticAssessment selects the weakest skills for a diagnostic check
func (s *AdaptiveService) GetDiagnosticAssessment(ctx context.Context, ownerID, studentID bson.ObjectID, subjectID *bson.ObjectID) ([]*models.Recommendation, error) {
	records, err := s.masteryRepo.GetByStudent(ctx, ownerID, studentID, subjectID)
	if err != nil {
		return nil, err
	}

	return s.engine.DiagnosticSet(records), nil
}

// CanAccessModule checks a module's declared gating skills against the
// student's mastery. Every gating skill must clear its strict prerequisite
// edges; a skill with no edge data gates on nothing.
func (s *AdaptiveService) CanAccessModule(ctx context.Context, ownerID, studentID, moduleID bson.ObjectID) (bool, []models.PrerequisiteBlock, error) {
	module, err := s.moduleRepo.GetByID(ctx, ownerID, moduleID)
	if err != nil {
		return false, nil, err
	}
	if module == nil {
		return false, nil, fmt.Errorf("module not found: %s", moduleID.Hex())
	}

	canAccess := true
	var allBlocks []models.PrerequisiteBlock
	for _, skillKey := range module.PrerequisiteSkillKeys() {
		met, blocks, err := s.prereqService.CheckPrerequisites(ctx, ownerID, studentID, skillKey)
		if err != nil {
			return false, nil, err
		}
		if !met {
			canAccess = false
		}
		allBlocks = append(allBlocks, blocks...)
	}

	return canAccess, allBlocks, nil
}

// GetRemedialContent returns remedial recommendations for every low-mastery skill
func (s *AdaptiveService) GetRemedialContent(ctx context.Context, ownerID, studentID bson.ObjectID) ([]*models.Recommendation, error) {
	records, err := s.masteryRepo.FindLowMastery(ctx, ownerID, studentID, 60.0)
	if err != nil {
		return nil, err
	}

	recommendations := make([]*models.Recommendation, 0, len(records))
	for _, record := range records {
		recommendations = append(recommendations, &models.Recommendation{
			SkillKey:           record.SkillKey,
			SkillName:          record.SkillName,
			Difficulty:         record.RecommendedDifficulty(),
			CurrentMastery:     record.MasteryLevel,
			TargetMastery:      60.0,
			Rationale:          fmt.Sprintf("Low mastery (%.1f%%) - needs improvement", record.MasteryLevel),
			RecommendationType: models.RecommendationRemedial,
			Priority:           1,
		})
	}
	return recommendations, nil
}

// GetSkillsNeedingAttention returns skills with an active incorrect streak
func (s *AdaptiveService) GetSkillsNeedingAttention(ctx context.Context, ownerID, studentID bson.ObjectID) ([]*models.MasterySummary, error) {
	records, err := s.masteryRepo.FindStruggling(ctx, ownerID, studentID, 3)
	if err != nil {
		return nil, err
	}

	return s.toSummaries(records), nil
}

// GetMasteredSkills returns skills at or above the high-mastery threshold
func (s *AdaptiveService) GetMasteredSkills(ctx context.Context, ownerID, studentID bson.ObjectID) ([]*models.MasterySummary, error) {
	records, err := s.masteryRepo.FindHighMastery(ctx, ownerID, studentID, 80.0)
	if err != nil {
		return nil, err
	}

	return s.toSummaries(records), nil
}

// GetRecentInteractions returns the student's latest practice activity,
// newest first.
func (s *AdaptiveService) GetRecentInteractions(ctx context.Context, ownerID, studentID bson.ObjectID, limit int64) ([]*models.LearningInteraction, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.interactionRepo.ListRecent(ctx, ownerID, studentID, limit)
}

// GetLearningStatistics aggregates the student's mastery distribution plus
// total interaction count.
func (s *AdaptiveService) GetLearningStatistics(ctx context.Context, ownerID, studentID bson.ObjectID) (*models.LearningStatistics, error) {
	stats, err := s.masteryRepo.GetStatistics(ctx, ownerID, studentID)
	if err != nil {
		return nil, err
	}

	count, err := s.interactionRepo.CountByStudent(ctx, ownerID, studentID)
	if err != nil {
		return nil, err
	}
	stats.TotalInteractions = count

	return stats, nil
}

// GetVelocityTrends summarizes learning velocity across the student's skills
func (s *AdaptiveService) GetVelocityTrends(ctx context.Context, ownerID, studentID bson.ObjectID) (*models.VelocityTrends, error) {
	return s.masteryRepo.GetVelocityTrends(ctx, ownerID, studentID)
}

// refreshVelocity recomputes the record's velocity score over the trailing
// window and stores it. Failures are logged, never fatal: the next
// interaction recomputes it anyway.
func (s *AdaptiveService) refreshVelocity(ctx context.Context, record *models.MasteryRecord, now time.Time) {
	since := now.AddDate(0, 0, -velocityWindowDays)
	interactions, err := s.interactionRepo.ListSince(ctx, record.OwnerID, record.StudentID, record.SkillKey, since)
	if err != nil {
		log.Printf("Failed to load interactions for velocity: %v", err)
		return
	}

	velocity := s.engine.MasteryVelocity(interactions)
	if velocity == record.VelocityScore {
		return
	}

	record.VelocityScore = velocity
	if _, err := s.masteryRepo.UpdateWithVersion(ctx, record); err != nil {
		log.Printf("Failed to store velocity for student %s, skill %s: %v",
			record.StudentID.Hex(), record.SkillKey, err)
	}
}

func (s *AdaptiveService) publishInteractionEvents(record *models.MasteryRecord, interaction *models.LearningInteraction, masteryBefore float64) {
	if s.publisher == nil {
		return
	}

	err := s.publisher.PublishInteractionEvent(&event.InteractionEvent{
		EventType:        event.EventTypeInteractionTracked,
		InteractionID:    interaction.ID.Hex(),
		OwnerID:          interaction.OwnerID.Hex(),
		StudentID:        interaction.StudentID.Hex(),
		ModuleID:         interaction.ModuleID.Hex(),
		SkillKey:         interaction.SkillKey,
		Outcome:          string(interaction.Outcome),
		Difficulty:       string(interaction.Difficulty),
		TimeTakenSeconds: interaction.TimeTakenSeconds,
		HintsUsed:        interaction.HintsUsed,
		MasteryAfter:     interaction.MasteryAfter,
	})
	if err != nil {
		log.Printf("Failed to publish interaction event: %v", err)
	}

	err = s.publisher.PublishMasteryEvent(&event.MasteryEvent{
		EventType:       event.EventTypeMasteryUpdated,
		OwnerID:         record.OwnerID.Hex(),
		StudentID:       record.StudentID.Hex(),
		SkillKey:        record.SkillKey,
		SkillName:       record.SkillName,
		MasteryBefore:   masteryBefore,
		MasteryAfter:    record.MasteryLevel,
		TotalAttempts:   record.TotalAttempts,
		MasteryCategory: record.MasteryCategory(),
	})
	if err != nil {
		log.Printf("Failed to publish mastery event: %v", err)
	}
}

func (s *AdaptiveService) toSummaries(records []*models.MasteryRecord) []*models.MasterySummary {
	now := time.Now()
	summaries := make([]*models.MasterySummary, len(records))
	for i, record := range records {
		summaries[i] = s.masteryService.ToSummary(record, now)
	}
	return summaries
}
