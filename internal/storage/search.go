package storage

import (
	"context"
	"sort"
	"strings"
)

// SearchResult pairs a market with its relevance score
type SearchResult struct {
	Market
	Score float64 `json:"score"`
}

// SearchMarkets performs free-text relevance search over title and
// description. Candidate rows are matched with bound LIKE parameters and
// optional source/status equality filters; ranking happens in Go so user
// text never reaches query syntax. Results are ordered by score descending,
// ties broken by volume descending.
func (db *DB) SearchMarkets(ctx context.Context, query string, limit int, source, status string) ([]SearchResult, error) {
	terms := tokenize(query)
	if len(terms) == 0 {
		return []SearchResult{}, nil
	}

	tx := db.conn.WithContext(ctx).Model(&Market{})
	if source != "" {
		tx = tx.Where("source = ?", source)
	}
	if status != "" {
		tx = tx.Where("status = ?", status)
	}

	conditions := make([]string, 0, len(terms))
	args := make([]interface{}, 0, len(terms)*2)
	for _, term := range terms {
		conditions = append(conditions, "(LOWER(title) LIKE ? OR LOWER(description) LIKE ?)")
		pattern := "%" + term + "%"
		args = append(args, pattern, pattern)
	}
	tx = tx.Where(strings.Join(conditions, " OR "), args...)

	var candidates []Market
	if err := tx.Find(&candidates).Error; err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(candidates))
	for _, market := range candidates {
		score := relevanceScore(terms, market.Title, market.Description)
		if score <= 0 {
			continue
		}
		results = append(results, SearchResult{Market: market, Score: score})
	}

	sortSearchResults(results)

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// tokenize lower-cases and splits a query into whitespace-separated terms
func tokenize(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// relevanceScore counts term occurrences, weighing title hits double
// description hits.
func relevanceScore(terms []string, title, description string) float64 {
	titleLower := strings.ToLower(title)
	descLower := strings.ToLower(description)

	var score float64
	for _, term := range terms {
		score += 2.0 * float64(strings.Count(titleLower, term))
		score += 1.0 * float64(strings.Count(descLower, term))
	}
	return score
}

// sortSearchResults orders by score descending, then volume descending
func sortSearchResults(results []SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Volume > results[j].Volume
	})
}
