package sanitizer

import "testing"

func TestSanitizeSearch(t *testing.T) {
	tests := []struct {
		name, input, want string
	}{
		{"trims and lowers", "  BK-2026 ", "bk-2026"},
		{"collapses whitespace", "pat \t  001", "pat 001"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeSearch(tt.input); got != tt.want {
				t.Errorf("SanitizeSearch(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeText(t *testing.T) {
	if got := SanitizeText("  patient   unavailable "); got != "patient unavailable" {
		t.Errorf("SanitizeText() = %q", got)
	}
}

func TestSanitizeCode(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"12345", "12345"},
		{" 123 45 ", "12345"},
		{"123-45", "12345"},
	}
	for _, tt := range tests {
		if got := SanitizeCode(tt.input); got != tt.want {
			t.Errorf("SanitizeCode(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSanitizeRef(t *testing.T) {
	if got := SanitizeRef("  PAT-001\n"); got != "PAT-001" {
		t.Errorf("SanitizeRef() = %q", got)
	}
}
