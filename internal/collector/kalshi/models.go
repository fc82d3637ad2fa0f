package kalshi

// marketsResponse wraps the Kalshi markets API response
type marketsResponse struct {
	Markets []kalshiMarket `json:"markets"`
}

// kalshiMarket is a raw market record from the Kalshi trade API. Prices are
// quoted in cents.
type kalshiMarket struct {
	Ticker       string   `json:"ticker"`
	Title        string   `json:"title"`
	Subtitle     string   `json:"subtitle"`
	YesBid       *float64 `json:"yes_bid"`
	YesAsk       *float64 `json:"yes_ask"`
	Volume       *float64 `json:"volume"`
	Volume24h    *float64 `json:"volume_24h"`
	OpenInterest *float64 `json:"open_interest"`
	Status       string   `json:"status"`
	CloseTime    string   `json:"close_time"`
	Category     string   `json:"category"`
}
