package storage

import (
	"testing"
)

func TestRelevanceScore(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		title       string
		description string
		expected    float64
	}{
		{
			name:        "term in title only",
			query:       "election",
			title:       "Presidential election winner",
			description: "Who takes the White House",
			expected:    2.0,
		},
		{
			name:        "term in description only",
			query:       "election",
			title:       "Who wins in November",
			description: "Settles on the certified election result",
			expected:    1.0,
		},
		{
			name:        "term in both",
			query:       "election",
			title:       "Election night",
			description: "Election coverage market",
			expected:    3.0,
		},
		{
			name:        "term in neither",
			query:       "election",
			title:       "Bitcoin above 100k",
			description: "Resolves on the spot price",
			expected:    0.0,
		},
		{
			name:        "case insensitive",
			query:       "ELECTION",
			title:       "election day",
			description: "",
			expected:    2.0,
		},
		{
			name:        "multiple terms accumulate",
			query:       "fed rate",
			title:       "Fed rate decision",
			description: "Will the Fed cut the rate",
			expected:    6.0, // 2*(1+1) in title + 1*(1+1) in description
		},
		{
			name:        "repeated occurrences count",
			query:       "yes",
			title:       "yes or yes",
			description: "",
			expected:    4.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := relevanceScore(tokenize(tt.query), tt.title, tt.description)
			if score != tt.expected {
				t.Errorf("got %.1f, want %.1f", score, tt.expected)
			}
		})
	}
}

func TestSortSearchResults(t *testing.T) {
	titleHit := SearchResult{Market: Market{SourceID: "title-hit", Volume: 10}, Score: 2}
	descHit := SearchResult{Market: Market{SourceID: "desc-hit", Volume: 500}, Score: 1}
	bigVolume := SearchResult{Market: Market{SourceID: "big-volume", Volume: 900}, Score: 2}

	results := []SearchResult{descHit, titleHit, bigVolume}
	sortSearchResults(results)

	// Higher relevance first regardless of volume; among equal scores the
	// larger volume wins.
	want := []string{"big-volume", "title-hit", "desc-hit"}
	for i, id := range want {
		if results[i].SourceID != id {
			t.Fatalf("position %d: got %s, want %s", i, results[i].SourceID, id)
		}
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		query    string
		expected int
	}{
		{"fed rate decision", 3},
		{"  spaced   out  ", 2},
		{"", 0},
		{"   ", 0},
	}

	for _, tt := range tests {
		terms := tokenize(tt.query)
		if len(terms) != tt.expected {
			t.Errorf("tokenize(%q): got %d terms, want %d", tt.query, len(terms), tt.expected)
		}
	}
}

func TestListSortWhitelist(t *testing.T) {
	allowed := []string{"created_at", "volume", "volume_24h", "close_at"}
	for _, key := range allowed {
		if _, ok := sortColumns[key]; !ok {
			t.Errorf("sort key %q missing from whitelist", key)
		}
	}

	// Anything user-supplied outside the whitelist must not resolve.
	for _, key := range []string{"id; DROP TABLE markets", "title", "updated_at", ""} {
		if _, ok := sortColumns[key]; ok {
			t.Errorf("sort key %q unexpectedly whitelisted", key)
		}
	}

	if _, ok := orderDirections["asc"]; !ok {
		t.Error("asc missing from order whitelist")
	}
	if _, ok := orderDirections["desc"]; !ok {
		t.Error("desc missing from order whitelist")
	}
	if _, ok := orderDirections["ASC; --"]; ok {
		t.Error("unexpected order direction accepted")
	}
}
