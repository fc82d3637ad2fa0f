package kalshi

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pmtracker/pmtracker/internal/collector"
	"github.com/pmtracker/pmtracker/internal/config"
	"github.com/pmtracker/pmtracker/internal/storage"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(discard{})
	return log
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func newTestClient(baseURL string) *Client {
	cfg := &config.Config{KalshiBaseURL: baseURL, KalshiMarketsRPS: 1000}
	return NewClient(cfg, testLogger())
}

func floatPtr(f float64) *float64 { return &f }

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestConvertMarketPrices(t *testing.T) {
	tests := []struct {
		name    string
		bid     *float64
		ask     *float64
		wantYes float64
		wantNo  float64
	}{
		{"midpoint of bid and ask", floatPtr(40), floatPtr(60), 0.50, 0.50},
		{"bid only", floatPtr(30), nil, 0.30, 0.70},
		{"ask only", nil, floatPtr(70), 0.70, 0.30},
		{"neither quoted", nil, nil, 0.50, 0.50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			create := convertMarket(kalshiMarket{
				Ticker: "FED-25DEC",
				Title:  "Fed cuts rates in December?",
				YesBid: tt.bid,
				YesAsk: tt.ask,
				Status: "active",
			})
			if create == nil {
				t.Fatal("expected converted market")
			}
			if !almostEqual(create.YesPrice, tt.wantYes) || !almostEqual(create.NoPrice, tt.wantNo) {
				t.Errorf("prices: got %.2f/%.2f, want %.2f/%.2f", create.YesPrice, create.NoPrice, tt.wantYes, tt.wantNo)
			}
		})
	}
}

func TestConvertMarketSkipRules(t *testing.T) {
	tests := []struct {
		name   string
		market kalshiMarket
	}{
		{"missing ticker", kalshiMarket{Title: "Has a title"}},
		{"missing title", kalshiMarket{Ticker: "FED-25DEC"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if convertMarket(tt.market) != nil {
				t.Error("expected market to be skipped")
			}
		})
	}
}

func TestConvertMarketFields(t *testing.T) {
	create := convertMarket(kalshiMarket{
		Ticker:       "FED-25DEC",
		Title:        "Fed cuts rates in December?",
		Subtitle:     "Target range lowered at the December meeting",
		YesBid:       floatPtr(40),
		YesAsk:       floatPtr(60),
		Volume:       floatPtr(1500),
		Volume24h:    floatPtr(120),
		OpenInterest: floatPtr(900),
		Status:       "Active",
		CloseTime:    "2025-12-10T20:00:00Z",
		Category:     "Economics",
	})
	if create == nil {
		t.Fatal("expected converted market")
	}

	if create.Source != storage.SourceKalshi {
		t.Errorf("source: got %s", create.Source)
	}
	if create.SourceID != "FED-25DEC" {
		t.Errorf("source id: got %s", create.SourceID)
	}
	if create.URL != "https://kalshi.com/markets/FED-25DEC" {
		t.Errorf("url: got %s", create.URL)
	}
	if create.Status != "active" {
		t.Errorf("status not lowercased: got %s", create.Status)
	}
	if create.Liquidity == nil || *create.Liquidity != 900 {
		t.Errorf("open interest should map to liquidity: got %v", create.Liquidity)
	}
	if create.CloseAt == nil || create.CloseAt.Day() != 10 {
		t.Errorf("close time: got %v", create.CloseAt)
	}
	if create.Category == nil || *create.Category != "Economics" {
		t.Errorf("category: got %v", create.Category)
	}
}

func TestConvertMarketBadCloseTime(t *testing.T) {
	create := convertMarket(kalshiMarket{
		Ticker:    "FED-25DEC",
		Title:     "Fed cuts rates in December?",
		CloseTime: "next thursday",
	})
	if create == nil {
		t.Fatal("expected converted market")
	}
	if create.CloseAt != nil {
		t.Errorf("unparseable close time should yield nil, got %v", create.CloseAt)
	}
}

func TestFetchMarkets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/markets" {
			t.Errorf("path: got %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("limit"); got != "5" {
			t.Errorf("limit param: got %s, want 5", got)
		}
		if got := r.URL.Query().Get("status"); got != "open" {
			t.Errorf("status param: got %s, want open", got)
		}
		w.Write([]byte(`{"markets":[
			{"ticker":"FED-25DEC","title":"Fed cuts rates in December?","yes_bid":40,"yes_ask":60,"status":"active"},
			{"ticker":"","title":"No ticker, skipped"}
		]}`))
	}))
	defer srv.Close()

	markets, err := newTestClient(srv.URL).FetchMarkets(context.Background(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(markets) != 1 {
		t.Fatalf("markets: got %d, want 1", len(markets))
	}
	if markets[0].SourceID != "FED-25DEC" || !almostEqual(markets[0].YesPrice, 0.5) {
		t.Errorf("unexpected market: %+v", markets[0])
	}
}

func TestFetchMarketsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchMarkets(context.Background(), 5)
	if err == nil {
		t.Fatal("expected error")
	}

	var fetchErr *collector.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *collector.FetchError, got %T", err)
	}
	if fetchErr.Source != storage.SourceKalshi {
		t.Errorf("source: got %s", fetchErr.Source)
	}
	if fetchErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status code: got %d, want 429", fetchErr.StatusCode)
	}
}

func TestFetchMarketsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // force connection refused

	_, err := newTestClient(srv.URL).FetchMarkets(context.Background(), 5)
	if err == nil {
		t.Fatal("expected error")
	}

	var fetchErr *collector.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *collector.FetchError, got %T", err)
	}
	if fetchErr.StatusCode != 0 {
		t.Errorf("transport errors carry no status code, got %d", fetchErr.StatusCode)
	}
}
