// Package polymarket adapts the Polymarket Gamma API to the canonical market
// shape. Prices arrive as a positional outcome-price array of numeric
// strings: index 0 is yes, index 1 is no.
package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pmtracker/pmtracker/internal/collector"
	"github.com/pmtracker/pmtracker/internal/config"
	"github.com/pmtracker/pmtracker/internal/ratelimit"
	"github.com/pmtracker/pmtracker/internal/storage"
	"github.com/sirupsen/logrus"
)

// Client handles communication with the Polymarket Gamma API
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	log        *logrus.Logger
}

// NewClient creates a new Gamma API client
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		baseURL:    cfg.PolymarketBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    ratelimit.New(cfg.PolymarketMarketsRPS),
		log:        log,
	}
}

// FetchMarkets fetches up to limit active markets and normalizes them
func (c *Client) FetchMarkets(ctx context.Context, limit int) ([]storage.CreateMarket, error) {
	// Rate limit
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	u, err := url.Parse(c.baseURL + "/markets")
	if err != nil {
		return nil, fmt.Errorf("parse URL: %w", err)
	}

	q := u.Query()
	q.Set("limit", strconv.Itoa(limit))
	q.Set("active", "true")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &collector.FetchError{Source: storage.SourcePolymarket, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &collector.FetchError{
			Source:     storage.SourcePolymarket,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status: %s", string(body)),
		}
	}

	var raw []gammaMarket
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, &collector.FetchError{Source: storage.SourcePolymarket, Err: fmt.Errorf("decode response: %w", err)}
	}

	markets := make([]storage.CreateMarket, 0, len(raw))
	for _, m := range raw {
		create := convertMarket(m)
		if create == nil {
			c.log.WithField("condition_id", m.ConditionID).Debug("Skipping unconvertible Polymarket market")
			continue
		}
		markets = append(markets, *create)
	}

	c.log.WithField("count", len(markets)).Info("Fetched markets from Polymarket")

	return markets, nil
}

// convertMarket normalizes one raw record, or returns nil if the record
// lacks the minimum canonical shape.
func convertMarket(m gammaMarket) *storage.CreateMarket {
	if m.ConditionID == "" || m.Question == "" {
		return nil
	}

	// Positional prices: index 0 is yes, index 1 is no. Unparseable strings
	// fall back to 0.5 for yes and the complement for no.
	yesPrice := 0.5
	if len(m.OutcomePrices) > 0 {
		if p, err := strconv.ParseFloat(m.OutcomePrices[0], 64); err == nil {
			yesPrice = p
		}
	}

	noPrice := 1.0 - yesPrice
	if len(m.OutcomePrices) > 1 {
		if p, err := strconv.ParseFloat(m.OutcomePrices[1], 64); err == nil {
			noPrice = p
		}
	}

	volume := parseFloat(m.Volume)
	volume24h := parseFloat(m.Volume24hr)

	var liquidity *float64
	if m.Liquidity != nil {
		if l, err := strconv.ParseFloat(*m.Liquidity, 64); err == nil {
			liquidity = &l
		}
	}

	status := storage.StatusClosed
	if m.Active {
		status = storage.StatusOpen
	}

	var closeAt *time.Time
	if m.EndDate != "" {
		if t, err := time.Parse(time.RFC3339, m.EndDate); err == nil {
			utc := t.UTC()
			closeAt = &utc
		}
	}

	var category *string
	if m.Category != "" {
		cat := m.Category
		category = &cat
	}

	var tags []string
	if len(m.Outcomes) > 0 {
		tags = m.Outcomes
	}

	return &storage.CreateMarket{
		SourceID:    m.ConditionID,
		Source:      storage.SourcePolymarket,
		Title:       m.Question,
		Description: m.Description,
		Category:    category,
		Tags:        tags,
		YesPrice:    yesPrice,
		NoPrice:     noPrice,
		Volume:      volume,
		Volume24h:   volume24h,
		Liquidity:   liquidity,
		Status:      status,
		CloseAt:     closeAt,
		URL:         "https://polymarket.com/event/" + m.ConditionID,
	}
}

func parseFloat(s *string) float64 {
	if s == nil {
		return 0.0
	}
	val, err := strconv.ParseFloat(*s, 64)
	if err != nil {
		return 0.0
	}
	return val
}
