// Package kalshi adapts the Kalshi trade API to the canonical market shape.
// Kalshi quotes prices as bid/ask in cents; the canonical yes price is the
// midpoint on a 0-1 scale.
package kalshi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pmtracker/pmtracker/internal/collector"
	"github.com/pmtracker/pmtracker/internal/config"
	"github.com/pmtracker/pmtracker/internal/ratelimit"
	"github.com/pmtracker/pmtracker/internal/storage"
	"github.com/sirupsen/logrus"
)

// Client handles communication with the Kalshi trade API
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	log        *logrus.Logger
}

// NewClient creates a new Kalshi API client
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		baseURL:    cfg.KalshiBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    ratelimit.New(cfg.KalshiMarketsRPS),
		log:        log,
	}
}

// FetchMarkets fetches up to limit open markets and normalizes them
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
	q.Set("status", "open")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &collector.FetchError{Source: storage.SourceKalshi, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &collector.FetchError{
			Source:     storage.SourceKalshi,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status: %s", string(body)),
		}
	}

	var data marketsResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, &collector.FetchError{Source: storage.SourceKalshi, Err: fmt.Errorf("decode response: %w", err)}
	}

	markets := make([]storage.CreateMarket, 0, len(data.Markets))
	for _, m := range data.Markets {
		create := convertMarket(m)
		if create == nil {
			c.log.WithField("ticker", m.Ticker).Debug("Skipping unconvertible Kalshi market")
			continue
		}
		markets = append(markets, *create)
	}

	c.log.WithField("count", len(markets)).Info("Fetched markets from Kalshi")

	return markets, nil
}

// convertMarket normalizes one raw record, or returns nil if the record
// lacks the minimum canonical shape.
func convertMarket(m kalshiMarket) *storage.CreateMarket {
	if m.Ticker == "" || m.Title == "" {
		return nil
	}

	// Midpoint of bid/ask when both are present, the known side otherwise,
	// neutral 0.5 when neither is quoted. Cents to 0-1 scale.
	var yesPrice float64
	switch {
	case m.YesBid != nil && m.YesAsk != nil:
		yesPrice = (*m.YesBid + *m.YesAsk) / 2.0 / 100.0
	case m.YesBid != nil:
		yesPrice = *m.YesBid / 100.0
	case m.YesAsk != nil:
		yesPrice = *m.YesAsk / 100.0
	default:
		yesPrice = 0.5
	}
	noPrice := 1.0 - yesPrice

	var volume, volume24h float64
	if m.Volume != nil {
		volume = *m.Volume
	}
	if m.Volume24h != nil {
		volume24h = *m.Volume24h
	}

	// Open interest stands in for liquidity when present
	var liquidity *float64
	if m.OpenInterest != nil {
		oi := *m.OpenInterest
		liquidity = &oi
	}

	// Unparseable or absent close times mean no close time, never an error
	var closeAt *time.Time
	if m.CloseTime != "" {
		if t, err := time.Parse(time.RFC3339, m.CloseTime); err == nil {
			utc := t.UTC()
			closeAt = &utc
		}
	}

	var category *string
	if m.Category != "" {
		cat := m.Category
		category = &cat
	}

	return &storage.CreateMarket{
		SourceID:    m.Ticker,
		Source:      storage.SourceKalshi,
		Title:       m.Title,
		Description: m.Subtitle,
		Category:    category,
		YesPrice:    yesPrice,
		NoPrice:     noPrice,
		Volume:      volume,
		Volume24h:   volume24h,
		Liquidity:   liquidity,
		Status:      strings.ToLower(m.Status),
		CloseAt:     closeAt,
		URL:         "https://kalshi.com/markets/" + m.Ticker,
	}
}
