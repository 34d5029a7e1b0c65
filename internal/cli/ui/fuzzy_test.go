package ui

import (
	"reflect"
	"testing"
)

func TestFindSimilar(t *testing.T) {
	weights := []string{"Thin", "Light", "Regular", "Medium", "Bold", "Black"}

	tests := []struct {
		name   string
		target string
		opts   *FuzzyMatchOptions
		want   []string
	}{
		{
			name:   "close typo",
			target: "Blod",
			opts:   &FuzzyMatchOptions{MaxDistance: 2, MaxSuggestions: 1},
			want:   []string{"Bold"},
		},
		{
			name:   "case insensitive by default",
			target: "regular",
			opts:   &FuzzyMatchOptions{MaxDistance: 1, MaxSuggestions: 1},
			want:   []string{"Regular"},
		},
		{
			name:   "no match within distance",
			target: "Condensed",
			opts:   &FuzzyMatchOptions{MaxDistance: 2, MaxSuggestions: 3},
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindSimilar(tt.target, weights, tt.opts)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FindSimilar(%q) = %v, want %v", tt.target, got, tt.want)
			}
		})
	}
}

func TestFindSimilarDefaults(t *testing.T) {
	got := FindSimilar("Bol", []string{"Bold", "Black", "Bole", "Bolt"}, nil)
	if len(got) != DefaultMaxSuggestions {
		t.Errorf("FindSimilar() returned %d suggestions, want %d", len(got), DefaultMaxSuggestions)
	}
	if got[0] != "Bold" && got[0] != "Bole" && got[0] != "Bolt" {
		t.Errorf("FindSimilar() best match = %q", got[0])
	}
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		s1, s2 string
		want   int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"saturday", "sunday", 3},
		{"bold", "bold", 0},
		{"bold", "blod", 2},
	}

	for _, tt := range tests {
		if got := LevenshteinDistance(tt.s1, tt.s2); got != tt.want {
			t.Errorf("LevenshteinDistance(%q, %q) = %d, want %d", tt.s1, tt.s2, got, tt.want)
		}
	}
}
