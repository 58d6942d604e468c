package normalize

import (
	"strings"
	"testing"
)

func TestText(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Board games", "Board games"},
		{"  Board \t games\n ", "Board games"},
		{"Board\x00 games", "Board games"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Text(tt.input); got != tt.expected {
				t.Errorf("Text(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDescription_PlainTextUnchanged(t *testing.T) {
	in := "Bring snacks.\nDoors open at 7."
	if got := Description("  " + in + "  "); got != in {
		t.Errorf("Description() = %q, want %q", got, in)
	}
}

func TestDescription_ConvertsHTML(t *testing.T) {
	got := Description("<p>Bring <strong>snacks</strong></p><ul><li>dice</li></ul>")

	if strings.Contains(got, "<") {
		t.Errorf("Description() kept HTML tags: %q", got)
	}
	if !strings.Contains(got, "**snacks**") {
		t.Errorf("Description() = %q, want bold markdown", got)
	}
	if !strings.Contains(got, "dice") {
		t.Errorf("Description() = %q, lost list item", got)
	}
}

func TestDescription_ComparisonIsNotHTML(t *testing.T) {
	in := "Ages 3 < 10 welcome"
	if got := Description(in); got != in {
		t.Errorf("Description(%q) = %q, want unchanged", in, got)
	}
}

func TestFold(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Café", "cafe"},
		{"Läuft  HEUTE", "lauft heute"},
		{"Ñandú", "nandu"},
		{"São Paulo", "sao paulo"},
		{"ﬁesta", "fiesta"}, // compatibility ligature
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Fold(tt.input); got != tt.expected {
				t.Errorf("Fold(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
