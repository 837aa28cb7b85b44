package services

import "testing"

func TestNormalizeAdjustment(t *testing.T) {
	tests := []struct {
		name       string
		level      float64
		reason     string
		wantLevel  float64
		wantReason string
	}{
		{"in range with reason", 75, "placement test", 75, "placement test"},
		{"clamps below zero", -10, "data fix", 0, "data fix"},
		{"clamps above hundred", 130, "data fix", 100, "data fix"},
		{"missing reason is substituted", 50, "", 50, "unspecified"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, reason := normalizeAdjustment(tt.level, tt.reason)
			if level != tt.wantLevel {
				t.Errorf("Expected level %f, got %f", tt.wantLevel, level)
			}
			if reason != tt.wantReason {
				t.Errorf("Expected reason %q, got %q", tt.wantReason, reason)
			}
		})
	}
}
