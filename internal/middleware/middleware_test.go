package middleware

import "testing"

func TestHasPermission(t *testing.T) {
	tests := []struct {
		name       string
		list       string
		permission string
		expected   bool
	}{
		{"exact match", "read:mastery", "read:mastery", true},
		{"match in list", "read:mastery,write:mastery", "write:mastery", true},
		{"match with spaces", "read:mastery, write:mastery", "write:mastery", true},
		{"no match", "read:mastery", "write:mastery", false},
		{"prefix is not a match", "read:mastery:all", "read:mastery", false},
		{"empty list", "", "read:mastery", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasPermission(tt.list, tt.permission); got != tt.expected {
				t.Errorf("HasPermission(%q, %q) = %v, want %v", tt.list, tt.permission, got, tt.expected)
			}
		})
	}
}

func TestHasElevatedPermissions(t *testing.T) {
	tests := []struct {
		name     string
		list     string
		expected bool
	}{
		{"admin", "admin", true},
		{"manager in list", "read:mastery,manager", true},
		{"plain reader", "read:mastery", false},
		{"empty list", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasElevatedPermissions(tt.list); got != tt.expected {
				t.Errorf("HasElevatedPermissions(%q) = %v, want %v", tt.list, got, tt.expected)
			}
		})
	}
}

func TestCanReadStudent(t *testing.T) {
	tests := []struct {
		name      string
		userID    string
		list      string
		studentID string
		expected  bool
	}{
		{"own data", "student-1", "read:mastery", "student-1", true},
		{"other student denied", "student-1", "read:mastery", "student-2", false},
		{"admin reads anyone", "staff-1", "admin", "student-2", true},
		{"manager reads anyone", "staff-1", "manager", "student-2", true},
		{"read-all reads anyone", "staff-1", "read:mastery:all", "student-2", true},
		{"empty user never matches by identity", "", "read:mastery", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanReadStudent(tt.userID, tt.list, tt.studentID); got != tt.expected {
				t.Errorf("CanReadStudent(%q, %q, %q) = %v, want %v", tt.userID, tt.list, tt.studentID, got, tt.expected)
			}
		})
	}
}
