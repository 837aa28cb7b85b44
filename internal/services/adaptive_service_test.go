package services

import (
	"testing"
	"time"

	"mastery-service/internal/adaptive"
	"mastery-service/internal/event"
	"mastery-service/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestNewInteractionCarriesCallerFields(t *testing.T) {
	s := &AdaptiveService{engine: adaptive.NewEngine(nil)}
	now := time.Now()

	req := &RecordInteractionRequest{
		OwnerID:          bson.NewObjectID(),
		StudentID:        bson.NewObjectID(),
		SkillKey:         "fractions",
		Outcome:          models.OutcomePartial,
		Score:            62.5,
		TimeTakenSeconds: 90,
		HintsUsed:        1,
		ConfidenceLevel:  4,
		Notes:            "second try after reviewing the worked example",
	}
	record := &models.MasteryRecord{MasteryLevel: 54.0}

	interaction := s.newInteraction(req, record, now)

	if interaction.Score != 62.5 {
		t.Errorf("Expected caller's score 62.5 to be stored, got %f", interaction.Score)
	}
	if interaction.ConfidenceLevel != 4 {
		t.Errorf("Expected confidence level 4, got %d", interaction.ConfidenceLevel)
	}
	if interaction.Notes != req.Notes {
		t.Errorf("Expected notes to be carried through, got %q", interaction.Notes)
	}
	if interaction.MasteryAfter != 54.0 {
		t.Errorf("Expected mastery snapshot 54.0, got %f", interaction.MasteryAfter)
	}
	if !interaction.AttemptedAt.Equal(now) {
		t.Error("Expected attempted timestamp to match the update time")
	}
}

func TestNewInteractionDerivesScoreWhenUngraded(t *testing.T) {
	s := &AdaptiveService{engine: adaptive.NewEngine(nil)}
	now := time.Now()

	// CORRECT with one hint: 1.0 * 0.9 * 100 = 90.
	req := &RecordInteractionRequest{
		SkillKey:  "fractions",
		Outcome:   models.OutcomeCorrect,
		HintsUsed: 1,
	}
	interaction := s.newInteraction(req, &models.MasteryRecord{}, now)

	if interaction.Score != 90.0 {
		t.Errorf("Expected derived score 90.0 for an ungraded interaction, got %f", interaction.Score)
	}
}

func TestModuleFromMessage(t *testing.T) {
	moduleID := bson.NewObjectID()
	ownerID := bson.NewObjectID()
	subjectID := bson.NewObjectID()

	msg := &event.ModuleMessage{
		ModuleID:      moduleID.Hex(),
		OwnerID:       ownerID.Hex(),
		SubjectID:     subjectID.Hex(),
		Title:         "Adding Fractions",
		SkillKey:      "fractions",
		Prerequisites: "number_sense, division_basics",
	}

	module, err := moduleFromMessage(msg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if module.ID != moduleID || module.OwnerID != ownerID || module.SubjectID != subjectID {
		t.Error("Expected IDs to be parsed from the message")
	}
	if keys := module.PrerequisiteSkillKeys(); len(keys) != 2 || keys[0] != "number_sense" {
		t.Errorf("Expected gating skills to survive projection, got %v", keys)
	}
}

func TestModuleFromMessageRejectsBadIDs(t *testing.T) {
	tests := []struct {
		name string
		msg  *event.ModuleMessage
	}{
		{"bad module ID", &event.ModuleMessage{ModuleID: "nope", OwnerID: bson.NewObjectID().Hex()}},
		{"bad owner ID", &event.ModuleMessage{ModuleID: bson.NewObjectID().Hex(), OwnerID: "nope"}},
		{"bad subject ID", &event.ModuleMessage{ModuleID: bson.NewObjectID().Hex(), OwnerID: bson.NewObjectID().Hex(), SubjectID: "nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := moduleFromMessage(tt.msg); err == nil {
				t.Error("Expected malformed ID to be rejected")
			}
		})
	}
}
