package fuzzy

import (
	"testing"
)

// runStringTransformationTest is a helper to run tests for string transformation functions.
func runStringTransformationTest(t *testing.T, testName string,
	transformFunc func(string) string, testCases []struct {
		name     string
		input    string
		expected string
	}) {
	t.Helper()
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			result := transformFunc(tt.input)
			if result != tt.expected {
				t.Errorf("%s() = %q, want %q", testName, result, tt.expected)
			}
		})
	}
}

func TestNormalizer_Simplify(t *testing.T) {
	normalizer := NewNormalizer()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Plain name",
			input:    "Road Trip",
			expected: "roadtrip",
		},
		{
			name:     "Leading emoji",
			input:    "🤖 Robot Mix",
			expected: "robotmix",
		},
		{
			name:     "Emoji with variation selector",
			input:    "Summer ☀️ Vibes",
			expected: "summervibes",
		},
		{
			name:     "Joined emoji sequence",
			input:    "Family 👨‍👩‍👧 Songs",
			expected: "familysongs",
		},
		{
			name:     "Apostrophes are dropped",
			input:    "Rock'n'Roll",
			expected: "rocknroll",
		},
		{
			name:     "Ampersand",
			input:    "Rock & Roll",
			expected: "rock_roll",
		},
		{
			name:     "Surrounding whitespace",
			input:    "  Chill\tOut  ",
			expected: "chillout",
		},
		{
			name:     "Accents are kept",
			input:    "Café",
			expected: "café",
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "",
		},
	}

	runStringTransformationTest(t, "Simplify", normalizer.Simplify, tests)
}

func TestNormalizer_Fold(t *testing.T) {
	normalizer := NewNormalizer()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Lowercase",
			input:    "This Is Daft Punk",
			expected: "this is daft punk",
		},
		{
			name:     "Diacritics",
			input:    "This Is Beyoncé",
			expected: "this is beyonce",
		},
		{
			name:     "Several marks",
			input:    "Björk Guðmundsdóttir",
			expected: "bjork guðmundsdottir",
		},
		{
			name:     "Punctuation is kept",
			input:    "P!nk",
			expected: "p!nk",
		},
	}

	runStringTransformationTest(t, "Fold", normalizer.Fold, tests)
}

func TestNormalizer_Match(t *testing.T) {
	normalizer := NewNormalizer()

	tests := []struct {
		name     string
		a, b     string
		expected bool
	}{
		{"Identical", "This Is Muse", "This Is Muse", true},
		{"Case only", "this is muse", "THIS IS MUSE", true},
		{"Accent only", "This Is Beyonce", "This Is Beyoncé", true},
		{"Different artist", "This Is Muse", "This Is Mused", false},
		{"Spacing matters", "This Is Muse", "ThisIs Muse", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizer.Match(tt.a, tt.b); got != tt.expected {
				t.Errorf("Match(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}

func TestNormalizer_SameName(t *testing.T) {
	normalizer := NewNormalizer()

	if !normalizer.SameName("🤖 Robot Mix", "robot mix") {
		t.Error("Expected emoji and case differences to be ignored")
	}

	if normalizer.SameName("Robot Mix", "Robot Mix 2") {
		t.Error("Expected distinct names not to collide")
	}
}
