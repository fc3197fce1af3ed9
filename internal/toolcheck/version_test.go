package toolcheck

import (
	"testing"
)

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		name      string
		installed string
		required  string
		expected  int
		wantErr   bool
	}{
		{"older patch", "1.0.0", "1.0.1", -1, false},
		{"older minor", "1.0.0", "1.1.0", -1, false},
		{"older major", "1.0.0", "2.0.0", -1, false},
		{"equal", "1.2.3", "1.2.3", 0, false},
		{"newer", "1.1.0", "1.0.0", 1, false},
		{"v prefix installed", "v1.0.0", "1.0.1", -1, false},
		{"v prefix required", "1.0.0", "v1.0.1", -1, false},
		{"short version", "2.43", "2.40.1", 1, false},
		{"prerelease less than release", "1.0.0-beta", "1.0.0", -1, false},
		{"invalid installed", "notaversion", "1.0.0", 0, true},
		{"invalid required", "1.0.0", "notaversion", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := CompareVersions(tt.installed, tt.required)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("CompareVersions(%q, %q) = %d, want %d", tt.installed, tt.required, result, tt.expected)
			}
		})
	}
}

func TestSatisfies(t *testing.T) {
	tests := []struct {
		installed, minimum string
		expected           bool
	}{
		{"0.4.1", "0.4.0", true},
		{"0.4.0", "0.4.0", true},
		{"0.3.9", "0.4.0", false},
	}

	for _, tt := range tests {
		got, err := Satisfies(tt.installed, tt.minimum)
		if err != nil {
			t.Fatalf("Satisfies(%q, %q) error: %v", tt.installed, tt.minimum, err)
		}
		if got != tt.expected {
			t.Errorf("Satisfies(%q, %q) = %v, want %v", tt.installed, tt.minimum, got, tt.expected)
		}
	}
}

func TestExtractVersion(t *testing.T) {
	tests := []struct {
		output string
		want   string
		found  bool
	}{
		{"ruff 0.4.1\n", "0.4.1", true},
		{"git version 2.43.0 (Apple Git-115)", "2.43.0", true},
		{"Infisical CLI v0.28.1", "0.28.1", true},
		{"uv 0.1.44 (Homebrew 2024-05-16)", "0.1.44", true},
		{"no digits here", "", false},
	}

	for _, tt := range tests {
		got, found := ExtractVersion(tt.output)
		if found != tt.found || got != tt.want {
			t.Errorf("ExtractVersion(%q) = %q, %v; want %q, %v", tt.output, got, found, tt.want, tt.found)
		}
	}
}
