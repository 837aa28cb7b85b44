package adaptive

// EngineConfig holds the tunable constants of the mastery computation engine.
type EngineConfig struct {
	// EWMAAlpha weights new observations in the moving average.
	EWMAAlpha float64
	// DecayRatePerWeek is the fractional mastery loss per inactive week.
	DecayRatePerWeek float64
	// HintPenaltyPerHint reduces the performance score per hint used.
	HintPenaltyPerHint float64
	// HintPenaltyFloor bounds the hint multiplier from below.
	HintPenaltyFloor float64
	// RemedialThreshold is the mastery level below which a skill is remedial.
	RemedialThreshold float64
	// AdvancedThreshold is the mastery level at which a skill counts as high.
	AdvancedThreshold float64
	// DiagnosticMasteryCeiling selects weak skills for diagnostics.
	DiagnosticMasteryCeiling float64
	// DiagnosticStruggleStreak selects struggling skills for diagnostics.
	DiagnosticStruggleStreak int
	// DiagnosticLimit caps the diagnostic set size.
	DiagnosticLimit int
}

// DefaultEngineConfig returns the production constants.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		EWMAAlpha:                0.3,
		DecayRatePerWeek:         0.05,
		HintPenaltyPerHint:       0.1,
		HintPenaltyFloor:         0.5,
		RemedialThreshold:        60.0,
		AdvancedThreshold:        80.0,
		DiagnosticMasteryCeiling: 50.0,
		DiagnosticStruggleStreak: 3,
		DiagnosticLimit:          5,
	}
}

const (
	minMastery = 0.0
	maxMastery = 100.0
)

// Review interval bands in days, keyed off mastery level after a passing
// answer (quality >= 3). A failing answer always comes back in one day.
const (
	intervalFailed   = 1
	intervalLow      = 1  // mastery < 60
	intervalBuilding = 3  // mastery >= 60
	intervalSolid    = 7  // mastery >= 70
	intervalStrong   = 14 // mastery >= 80
	intervalExpert   = 30 // mastery >= 90
)
