package release

import (
	"math"
	"testing"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "dots to spaces",
			input:    "Breaking.Bad",
			expected: "breaking bad",
		},
		{
			name:     "apostrophe stripped not spaced",
			input:    "Schitt's Creek",
			expected: "schitts creek",
		},
		{
			name:     "curly apostrophe stripped",
			input:    "Schitt’s Creek",
			expected: "schitts creek",
		},
		{
			name:     "punctuation to spaces",
			input:    "Love, Death & Robots",
			expected: "love death robots",
		},
		{
			name:     "multiple spaces collapsed",
			input:    "  The   Bear  ",
			expected: "the bear",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeName(tt.input); got != tt.expected {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNamesMatch(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want bool
	}{
		{"identical", "Dark", "Dark", true},
		{"case and punctuation", "Schitt's Creek", "schitts creek", true},
		{"separator style", "Be.My.Princess", "Be My Princess", true},
		{"different titles", "Dark", "Dark Matter", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NamesMatch(tt.a, tt.b); got != tt.want {
				t.Errorf("NamesMatch(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestNameSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want float64
	}{
		{"identical", "Be My Princess", "Be My Princess", 1.0},
		{"both empty", "", "", 1.0},
		{"one empty", "Dark", "", 0.0},
		{"disjoint", "Dark", "Silo", 0.0},
		{"partial overlap", "Be My Princess", "My Princess", 2.0 / 3.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NameSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("NameSimilarity(%q, %q) = %f, want %f", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
