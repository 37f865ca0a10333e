package ui

import (
	"reflect"
	"testing"
)

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"Admin", "Admin", 0},
		{"kitten", "sitting", 3},
		{"Amdin", "Admin", 2},
		{"café", "cafe", 1},
	}
	for _, tt := range tests {
		if got := LevenshteinDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("LevenshteinDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSuggestNames(t *testing.T) {
	groups := []string{"Admin", "Public", "Health", "Admins"}

	tests := []struct {
		target string
		want   []string
	}{
		{"Amdin", []string{"Admin", "Admins"}},
		{"admin", []string{"Admin", "Admins"}},
		{"Admin", []string{"Admins"}},
		{"publc", []string{"Public"}},
		{"Billing", nil},
	}
	for _, tt := range tests {
		if got := SuggestNames(tt.target, groups); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SuggestNames(%q) = %v, want %v", tt.target, got, tt.want)
		}
	}
}

func TestSuggestNames_Limit(t *testing.T) {
	got := SuggestNames("a", []string{"b", "c", "d", "e", "b"})
	if len(got) != DefaultMaxSuggestions {
		t.Errorf("Expected %d suggestions, got %v", DefaultMaxSuggestions, got)
	}
	if !reflect.DeepEqual(got, []string{"b", "c", "d"}) {
		t.Errorf("Ties should keep candidate order without duplicates, got %v", got)
	}
}
