package event

const (
	// Mastery events (published)
	EventTypeMasteryUpdated     = "mastery.updated"
	EventTypeMasteryDecayed     = "mastery.decayed"
	EventTypeMasteryReset       = "mastery.reset"
	EventTypeInteractionTracked = "mastery.interaction.recorded"
)

// MasteryEvent represents mastery-change events published after an
// interaction, an adjustment or a decay sweep touched a record.
type MasteryEvent struct {
	EventType       string  `json:"eventType"`
	OwnerID         string  `json:"ownerId"`
	StudentID       string  `json:"studentId"`
	SkillKey        string  `json:"skillKey"`
	SkillName       string  `json:"skillName"`
	MasteryBefore   float64 `json:"masteryBefore"`
	MasteryAfter    float64 `json:"masteryAfter"`
	TotalAttempts   int     `json:"totalAttempts"`
	MasteryCategory string  `json:"masteryCategory"`
	Reason          string  `json:"reason,omitempty"`
	Timestamp       int64   `json:"timestamp"`
}

// InteractionEvent represents a recorded learning interaction, published for
// downstream analytics consumers.
type InteractionEvent struct {
	EventType        string  `json:"eventType"`
	InteractionID    string  `json:"interactionId"`
	OwnerID          string  `json:"ownerId"`
	StudentID        string  `json:"studentId"`
	ModuleID         string  `json:"moduleId"`
	SkillKey         string  `json:"skillKey"`
	Outcome          string  `json:"outcome"`
	Difficulty       string  `json:"difficulty"`
	TimeTakenSeconds int     `json:"timeTakenSeconds"`
	HintsUsed        int     `json:"hintsUsed"`
	MasteryAfter     float64 `json:"masteryAfter"`
	Timestamp        int64   `json:"timestamp"`
}

// InteractionMessage is the inbound payload other services publish on
// learning.interaction.* routing keys when a student completes an activity.
type InteractionMessage struct {
	OwnerID          string  `json:"ownerId"`
	StudentID        string  `json:"studentId"`
	SubjectID        string  `json:"subjectId"`
	ModuleID         string  `json:"moduleId"`
	SkillKey         string  `json:"skillKey"`
	SkillName        string  `json:"skillName,omitempty"`
	Outcome          string  `json:"outcome"`
	Difficulty       string  `json:"difficulty,omitempty"`
	Score            float64 `json:"score,omitempty"`
	TimeTakenSeconds int     `json:"timeTakenSeconds"`
	HintsUsed        int     `json:"hintsUsed"`
	QuestionType     string  `json:"questionType,omitempty"`
	ConfidenceLevel  int     `json:"confidenceLevel,omitempty"`
	Notes            string  `json:"notes,omitempty"`
}

// ModuleMessage is the inbound payload the curriculum service publishes on
// curriculum.module.* routing keys when a learning module changes.
type ModuleMessage struct {
	ModuleID      string `json:"moduleId"`
	OwnerID       string `json:"ownerId"`
	SubjectID     string `json:"subjectId"`
	Title         string `json:"title"`
	SkillKey      string `json:"skillKey,omitempty"`
	Prerequisites string `json:"prerequisites,omitempty"`
}
